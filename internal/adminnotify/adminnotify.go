// Package adminnotify pushes short lead summaries to the operator
// chat. Strictly best effort: no operator configured means a no-op,
// and a failed send is only logged.
package adminnotify

import (
	"context"
	"log/slog"
)

type SendFunc func(ctx context.Context, chatID int64, text string) error

type Notifier struct {
	chatID int64
	send   SendFunc
	logger *slog.Logger
}

func New(chatID int64, send SendFunc, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{chatID: chatID, send: send, logger: logger}
}

func (n *Notifier) NotifyLead(ctx context.Context, summary string) {
	if n == nil || n.chatID == 0 || n.send == nil {
		return
	}
	if err := n.send(ctx, n.chatID, summary); err != nil {
		n.logger.Warn("admin_notify_error", "error", err.Error())
	}
}
