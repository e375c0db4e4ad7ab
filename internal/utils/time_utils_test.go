package utils

import (
	"testing"
	"time"
)

func TestNowIfZero(t *testing.T) {
	zero := time.Time{}
	got := NowIfZero(zero)
	if got.IsZero() {
		t.Errorf("expected non-zero time, got zero")
	}

	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got = NowIfZero(fixed)
	if !got.Equal(fixed) {
		t.Errorf("expected %v, got %v", fixed, got)
	}
}

func TestTimeOrNowFromPtr(t *testing.T) {
	if got := TimeOrNowFromPtr(nil); got.IsZero() {
		t.Errorf("expected non-zero time for nil pointer")
	}

	fixed := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	if got := TimeOrNowFromPtr(&fixed); !got.Equal(fixed) {
		t.Errorf("expected %v, got %v", fixed, got)
	}

	zero := time.Time{}
	if got := TimeOrNowFromPtr(&zero); got.IsZero() {
		t.Errorf("expected non-zero time for zero-value pointer")
	}
}

func TestIsEqualTimePtr(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sameFixed := fixed

	cases := []struct {
		name     string
		t1, t2   *time.Time
		expected bool
	}{
		{"both nil", nil, nil, true},
		{"one nil", &fixed, nil, false},
		{"equal", &fixed, &sameFixed, true},
	}

	for _, c := range cases {
		if got := IsEqualTimePtr(c.t1, c.t2); got != c.expected {
			t.Errorf("%s: expected %v, got %v", c.name, c.expected, got)
		}
	}
}

func TestParseRFC5322Date(t *testing.T) {
	inputs := []string{
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		"2006-01-02T15:04:05Z",
	}

	for _, in := range inputs {
		if _, err := ParseRFC5322Date(in); err != nil {
			t.Errorf("ParseRFC5322Date(%q) failed: %v", in, err)
		}
	}

	if _, err := ParseRFC5322Date("not a date"); err == nil {
		t.Errorf("expected error for unparseable date")
	}
}

func TestIMAPSinceDate(t *testing.T) {
	d := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	got := IMAPSinceDate(d)
	want := "07-Mar-2024"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
