package main

import (
	"reelsync/internal/conf"

	"github.com/yola1107/kratos/v2/library/log/zap"
	zconf "github.com/yola1107/kratos/v2/library/log/zap/conf"
)

// newLogger builds the rotating zap logger described by the log section.
func newLogger(c *conf.Log) *zap.Logger {
	opts := []zconf.Option{
		zconf.WithAppName(c.AppName),
		zconf.WithDirectory(c.Directory),
		zconf.WithSensitive(c.Sensitive),
	}
	if c.Production {
		opts = append(opts, zconf.WithProduction())
	}
	if c.Level != "" {
		opts = append(opts, zconf.WithLevel(c.Level))
	}
	return zap.NewLogger(zconf.DefaultConfig(opts...))
}
