package logger

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// GormLogger adapts zap to the jinzhu/gorm Print-style logger
type GormLogger struct {
	logger        *zap.Logger
	slowThreshold time.Duration
}

// NewGormLogger creates a new gorm logger backed by zap
func NewGormLogger(zapLogger *zap.Logger) *GormLogger {
	return &GormLogger{
		logger:        zapLogger.Named("gorm"),
		slowThreshold: 200 * time.Millisecond,
	}
}

// Print implements the jinzhu/gorm logger interface.
// SQL entries arrive as ("sql", source, duration, query, vars, rows).
func (l *GormLogger) Print(v ...interface{}) {
	if len(v) == 0 {
		return
	}

	level, _ := v[0].(string)
	if level == "sql" && len(v) >= 6 {
		elapsed, _ := v[2].(time.Duration)
		query, _ := v[3].(string)
		rows, _ := v[5].(int64)
		fields := []zap.Field{
			zap.String("source", fmt.Sprint(v[1])),
			zap.Duration("elapsed", elapsed),
			zap.String("sql", query),
			zap.Int64("rows", rows),
		}
		if elapsed > l.slowThreshold {
			l.logger.Warn("slow query", fields...)
			return
		}
		l.logger.Debug("query", fields...)
		return
	}

	if len(v) > 2 {
		l.logger.Error(fmt.Sprint(v[2:]...), zap.String("source", fmt.Sprint(v[1])))
		return
	}
	l.logger.Info(fmt.Sprint(v...))
}
