package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the contract the rest of the codebase depends on instead of a
// concrete *zap.Logger, so tracing and tests can swap in a no-op.
type Logger interface {
	Logger() *zap.Logger
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

type appLogger struct {
	sugar *zap.SugaredLogger
	zap   *zap.Logger
}

type Config struct {
	Level    string `env:"LOG_LEVEL" envDefault:"info"`
	FilePath string `env:"LOG_FILE_PATH" envDefault:""`
	MaxSizeMB int   `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int  `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int   `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`
}

// NewLogger builds a zap logger writing structured JSON to stderr and,
// when FilePath is set, also to a lumberjack-rotated file.
func NewLogger(cfg Config) (Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(cfg.Level); err != nil {
		level = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.Lock(zapcore.AddSync(os.Stderr)), level),
	}

	if cfg.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(rotator), level))
	}

	core := zapcore.NewTee(cores...)
	zl := zap.New(core, zap.AddCaller())

	return &appLogger{sugar: zl.Sugar(), zap: zl}, nil
}

func (l *appLogger) Logger() *zap.Logger { return l.zap }

func (l *appLogger) Debugf(template string, args ...interface{}) { l.sugar.Debugf(template, args...) }
func (l *appLogger) Infof(template string, args ...interface{})  { l.sugar.Infof(template, args...) }
func (l *appLogger) Warnf(template string, args ...interface{})  { l.sugar.Warnf(template, args...) }
func (l *appLogger) Errorf(template string, args ...interface{}) { l.sugar.Errorf(template, args...) }

// NewNoop is used by tests and by components that must run without a
// configured sink (e.g. package-level example usage).
func NewNoop() Logger {
	zl := zap.NewNop()
	return &appLogger{sugar: zl.Sugar(), zap: zl}
}
