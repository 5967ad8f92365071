package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// zapGormLogger adapts zap to gorm's logger.Interface. Record-not-found is
// not an error at this layer; callers decide what a missing row means.
type zapGormLogger struct {
	zap           *zap.Logger
	slowThreshold time.Duration
	logLevel      logger.LogLevel
	showSQL       bool
}

func newZapGormLogger(z *zap.Logger, logLevel logger.LogLevel, showSQL bool, slowThreshold time.Duration) *zapGormLogger {
	if slowThreshold == 0 {
		slowThreshold = 200 * time.Millisecond
	}
	return &zapGormLogger{
		zap:           z,
		logLevel:      logLevel,
		showSQL:       showSQL,
		slowThreshold: slowThreshold,
	}
}

func (l *zapGormLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.logLevel = level
	return &clone
}

func (l *zapGormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zap.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *zapGormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zap.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *zapGormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zap.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *zapGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.String("file", utils.FileWithLineNum()),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}

	switch {
	case err != nil && !errors.Is(err, logger.ErrRecordNotFound):
		l.zap.Error("query failed", append(fields, zap.Error(err))...)
	case elapsed > l.slowThreshold:
		l.zap.Warn("slow query", append(fields, zap.Duration("threshold", l.slowThreshold))...)
	case l.logLevel == logger.Info && l.showSQL:
		l.zap.Info("query", fields...)
	}
}
