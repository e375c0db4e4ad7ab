package normalize

import "testing"

func TestSubject(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Quarterly Report", "quarterly report"},
		{"single re", "Re: Quarterly Report", "quarterly report"},
		{"repeated prefixes", "Re: Fwd: RE: Quarterly Report", "quarterly report"},
		{"external tag", "Re: [EXTERNAL] Quarterly Report", "quarterly report"},
		{"extra whitespace", "  Re:   Quarterly    Report  ", "quarterly report"},
		{"fw prefix", "FW: status update", "status update"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Subject(tc.input); got != tc.want {
				t.Errorf("Subject(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

// TestSubjectIdempotent checks the round-trip law spec §8 names L1:
// normalizing an already-normalized subject is a no-op.
func TestSubjectIdempotent(t *testing.T) {
	inputs := []string{"Re: Re: Fwd: hello world", "[external] status", "plain subject"}
	for _, in := range inputs {
		once := Subject(in)
		twice := Subject(once)
		if once != twice {
			t.Errorf("Subject not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}
