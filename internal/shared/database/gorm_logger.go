package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tourly/pkg/logger"
)

// gormLogger routes GORM's query logging through the application logger.
type gormLogger struct {
	log           *logger.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(l *logger.Logger, level gormlogger.LogLevel) gormlogger.Interface {
	return &gormLogger{log: l, level: level, slowThreshold: 200 * time.Millisecond}
}

func (g *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Info {
		g.log.InfoWithContext(ctx, fmt.Sprintf(msg, data...), nil)
	}
}

func (g *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.log.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (g *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Error {
		g.log.ErrorWithContext(ctx, "gorm error", fmt.Errorf(msg, data...), nil)
	}
}

func (g *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	// Missing rows are an expected outcome for lookups, not a query failure.
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = nil
	}

	switch {
	case err != nil && g.level >= gormlogger.Error:
		sql, _ := fc()
		g.log.LogDBQuery(ctx, sql, elapsed, err)
	case elapsed > g.slowThreshold && g.level >= gormlogger.Warn:
		sql, rows := fc()
		g.log.WithFields(map[string]interface{}{
			"sql":      sql,
			"rows":     rows,
			"duration": elapsed,
		}).WarnContext(ctx, "Slow Database Query")
	case g.level >= gormlogger.Info:
		sql, _ := fc()
		g.log.LogDBQuery(ctx, sql, elapsed, nil)
	}
}
