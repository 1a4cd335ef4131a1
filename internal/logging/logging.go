// Package logging configures the process-wide logrus logger and provides
// the echo request logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/iliyamo/park-passes/internal/config"
)

// SeverityCritical marks configuration and data integrity problems that
// need an operator.  logrus has no critical level, so these are logged at
// error level with severity=critical for alerting rules to match on.
const SeverityCritical = "critical"

// Setup applies cfg to the standard logrus logger.
func Setup(cfg config.LogConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
	}
	log.SetOutput(out)
}

// Critical returns an entry tagged with severity=critical.
func Critical() *log.Entry {
	return log.WithField("severity", SeverityCritical)
}

// RequestLogger logs one line per request with method, path, status and
// latency.  5xx responses are logged at error level.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			res := c.Response()
			entry := log.WithFields(log.Fields{
				"method":  c.Request().Method,
				"path":    c.Path(),
				"uri":     c.Request().RequestURI,
				"status":  res.Status,
				"latency": time.Since(start).String(),
				"ip":      c.RealIP(),
			})
			if uid, ok := c.Get("user_id").(uint64); ok {
				entry = entry.WithField("user_id", uid)
			}
			if res.Status >= 500 {
				entry.Error("request")
			} else {
				entry.Info("request")
			}
			return nil
		}
	}
}
