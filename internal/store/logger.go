package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/SomeAverageDev/konnectors/internal/logging"
)

// gormLogger forwards gorm's messages to the application logger. Queries are
// logged at debug level; record-not-found is not an error.
type gormLogger struct {
	logger logging.Logger
}

func (l *gormLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface {
	return l
}

func (l *gormLogger) Info(_ context.Context, s string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(s, args...))
}

func (l *gormLogger) Warn(_ context.Context, s string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(s, args...))
}

func (l *gormLogger) Error(_ context.Context, s string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(s, args...))
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	sql, rows := fc()
	fields := []logging.Field{
		logging.F("sql", sql),
		logging.F("rows", rows),
		logging.F(logging.FieldDuration, time.Since(begin).Milliseconds()),
	}

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		l.logger.WithError(err).Debug("[GORM] query error", fields...)
		return
	}
	l.logger.Debug("[GORM] query", fields...)
}
