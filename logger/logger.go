package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var global *zap.SugaredLogger

type Options struct {
	Level string
	// File, when set, receives JSON logs rotated by size.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Init replaces the global logger. Console output goes to stderr so it never
// mixes with the prediction report on stdout.
func Init(opts Options) error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	consoleConfig := zap.NewDevelopmentEncoderConfig()
	consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleConfig.TimeKey = ""
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(os.Stderr), level),
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return err
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotator),
			level,
		))
	}

	global = zap.New(zapcore.NewTee(cores...)).Sugar()
	return nil
}

func Get() *zap.SugaredLogger {
	if global == nil {
		global = zap.NewNop().Sugar()
	}
	return global
}

// Set installs l as the global logger. Tests use it with zaptest observers.
func Set(l *zap.Logger) {
	global = l.Sugar()
}

func Debugf(template string, args ...interface{}) { Get().Debugf(template, args...) }
func Infof(template string, args ...interface{})  { Get().Infof(template, args...) }
func Warnf(template string, args ...interface{})  { Get().Warnf(template, args...) }
func Errorf(template string, args ...interface{}) { Get().Errorf(template, args...) }

func With(args ...interface{}) *zap.SugaredLogger {
	return Get().With(args...)
}

func Sync() error {
	if global == nil {
		return nil
	}
	return global.Sync()
}
