// Package audit records operational diagnostics in the guild's append-only
// log sequence and mirrors them to the process logger. The guild logs are
// never read by business logic.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// LogStore is the slice of the guild store the logger needs.
type LogStore interface {
	AppendLog(ctx context.Context, guildID, line string) error
}

type Logger struct {
	store  LogStore
	logger *zap.Logger
	now    func() time.Time
}

func NewLogger(store LogStore, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger, now: time.Now}
}

// Log appends a timestamped line to the guild's log sequence. Store failures
// are swallowed: diagnostics must never take a handler down.
func (l *Logger) Log(ctx context.Context, guildID, details string) {
	line := "[" + l.now().Format("02 Jan. 2006 15:04:05") + "] " + details
	if l.store != nil {
		_ = l.store.AppendLog(ctx, guildID, line)
	}
	l.logger.Info("guild log", zap.String("guild_id", guildID), zap.String("details", details))
}
