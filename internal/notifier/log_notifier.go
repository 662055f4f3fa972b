package notifier

import (
	"context"

	"github.com/api-sage/retail-banking-ledger/internal/logger"
)

// LogNotifier writes notifications to the log. It is the default when
// no Redis address is configured.
type LogNotifier struct{}

func NewLogNotifier() LogNotifier {
	return LogNotifier{}
}

func (LogNotifier) Notify(_ context.Context, ownerID, subject, templateKey string, payload map[string]any) error {
	logger.Info("notification dispatched", logger.Fields{
		"ownerId":  ownerID,
		"subject":  subject,
		"template": templateKey,
		"payload":  payload,
	})
	return nil
}
