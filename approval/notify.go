package approval

import (
	"context"

	"github.com/warp/approval-engine/engine"
	"go.uber.org/zap"
)

// NotifyKind labels the notification intent.
type NotifyKind string

const (
	NotifyEscalation NotifyKind = "escalation"
	NotifyDecision   NotifyKind = "decision"
	NotifyReminder   NotifyKind = "reminder"
)

// Notifier dispatches notifications. Delivery is best-effort: callers
// invoke it strictly after the commit is durable and only log failures.
type Notifier interface {
	Notify(ctx context.Context, recipient engine.EmployeeID, message string, kind NotifyKind) error
}

// LogNotifier writes notifications to the structured log. It stands in
// for the external delivery collaborator in tests and local runs.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n *LogNotifier) Notify(ctx context.Context, recipient engine.EmployeeID, message string, kind NotifyKind) error {
	n.Logger.Info("notification dispatched",
		zap.String("recipient", string(recipient)),
		zap.String("kind", string(kind)),
		zap.String("message", message))
	return nil
}
