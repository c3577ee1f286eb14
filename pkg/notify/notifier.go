package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/answerline/answerline/pkg/voice"
)

// Notifier fans order events out to email and the POS. Either channel
// may be absent; a nil Notifier is a valid no-op.
type Notifier struct {
	Email  *EmailNotifier
	POS    *POSClient
	Logger *slog.Logger
}

var _ voice.Notifier = (*Notifier)(nil)

func (n *Notifier) NotifyOrderCreated(ctx context.Context, fields voice.OrderFields, callerNumber string) error {
	if n == nil {
		return nil
	}
	var errs []error
	if n.Email != nil {
		if err := n.Email.SendOrderEmail(fields, callerNumber); err != nil {
			n.log("order email failed", err)
			errs = append(errs, err)
		}
	}
	if n.POS != nil {
		if err := n.POS.PushOrder(ctx, fields, callerNumber); err != nil {
			n.log("pos push failed", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (n *Notifier) NotifySummary(ctx context.Context, callerNumber string, fields voice.OrderFields, transcript string) error {
	if n == nil || n.Email == nil {
		return nil
	}
	if err := n.Email.SendSummaryEmail(callerNumber, fields, transcript); err != nil {
		n.log("summary email failed", err)
		return err
	}
	return nil
}

func (n *Notifier) log(msg string, err error) {
	if n.Logger != nil {
		n.Logger.Warn(msg, "error", err)
	}
}
