package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"algosync/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates a zap.Logger configured from the log section of the config.
func New(opts config.LogConfig) (*zap.Logger, error) {
	level := opts.Level
	if level == "" {
		level = "info"
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	levels, err := componentLevels(opts.Levels)
	if err != nil {
		return nil, err
	}

	// cores accept everything the most verbose component needs
	floor := lvl
	for _, l := range levels {
		if l < floor {
			floor = l
		}
	}

	// Determine encoding format
	encoding := "json"
	if opts.Environment == "dev" || opts.Format == "console" {
		encoding = "console"
	}
	encoderCfg := encoderConfig(encoding)

	var cores []zapcore.Core

	stdoutEncoder := zapcore.NewJSONEncoder(encoderCfg)
	if encoding == "console" {
		stdoutEncoder = zapcore.NewConsoleEncoder(encoderCfg)
	}
	cores = append(cores, zapcore.NewCore(stdoutEncoder, zapcore.Lock(os.Stdout), floor))

	// Optional file output with rotation via lumberjack
	if opts.OutputFile != "" {
		dir := filepath.Dir(opts.OutputFile)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.OutputFile,
			MaxSize:    10,   // max file size (MB) before rotation
			MaxBackups: 5,    // max number of old log files to keep
			MaxAge:     7,    // max age (days) to retain a log file
			Compress:   true, // compress rotated files
		})

		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig("json")),
			fileWriter,
			floor,
		))
	}

	var core zapcore.Core = zapcore.NewTee(cores...)
	if len(levels) > 0 {
		core = &componentCore{Core: core, fallback: lvl, floor: floor, levels: levels}
	}

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// encoderConfig returns a zapcore.EncoderConfig based on log format.
func encoderConfig(format string) zapcore.EncoderConfig {
	if format == "console" {
		return zap.NewDevelopmentEncoderConfig()
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

func componentLevels(raw map[string]string) (map[string]zapcore.Level, error) {
	levels := make(map[string]zapcore.Level, len(raw))
	for name, text := range raw {
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(text)); err != nil {
			return nil, fmt.Errorf("invalid log level for %s: %w", name, err)
		}
		levels[strings.ToLower(strings.ReplaceAll(name, ":", "."))] = l
	}
	return levels, nil
}

// componentCore filters entries by the level configured for their logger name.
type componentCore struct {
	zapcore.Core
	fallback zapcore.Level
	floor    zapcore.Level
	levels   map[string]zapcore.Level
}

func (c *componentCore) Enabled(l zapcore.Level) bool {
	return l >= c.floor
}

func (c *componentCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.Core = c.Core.With(fields)
	return &clone
}

func (c *componentCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if ent.Level < c.levelFor(ent.LoggerName) {
		return ce
	}
	return ce.AddCore(ent, c)
}

// levelFor walks up the dotted logger name: "datasource.mt5", then "datasource".
func (c *componentCore) levelFor(name string) zapcore.Level {
	name = strings.ToLower(name)
	for name != "" {
		if l, ok := c.levels[name]; ok {
			return l
		}
		i := strings.LastIndexByte(name, '.')
		if i < 0 {
			break
		}
		name = name[:i]
	}
	return c.fallback
}
