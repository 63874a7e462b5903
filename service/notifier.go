package service

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"

	"visitor-management/models"
	"visitor-management/pkg/notify"
)

// MailNotifier turns domain events into emails. Sends happen on their own
// goroutine with a fresh timeout so a slow mail provider never holds up a
// gate scan.
type MailNotifier struct {
	mailer   notify.Mailer
	users    UserLookup
	visitors VisitorLookup
	timeout  time.Duration
}

func NewMailNotifier(mailer notify.Mailer, users UserLookup, visitors VisitorLookup) *MailNotifier {
	return &MailNotifier{mailer: mailer, users: users, visitors: visitors, timeout: 10 * time.Second}
}

func (n *MailNotifier) PassCheckedIn(ctx context.Context, pass *models.Pass, entry *models.CheckLog) {
	if pass.HostID == nil {
		return
	}
	hostID, visitorID := *pass.HostID, pass.VisitorID
	gate, at := entry.Gate, entry.CreatedAt

	n.dispatch(ctx, "check-in", func(ctx context.Context) error {
		host, err := n.users.FindByID(ctx, hostID)
		if err != nil {
			return fmt.Errorf("lookup host: %w", err)
		}
		visitor, err := n.visitors.FindByID(ctx, visitorID)
		if err != nil {
			return fmt.Errorf("lookup visitor: %w", err)
		}
		return n.mailer.Send(ctx, notify.Message{
			ToName:  host.Name,
			ToEmail: host.Email,
			Subject: fmt.Sprintf("%s has arrived", visitor.Name),
			Text: fmt.Sprintf("Your visitor %s (%s) checked in at %s on %s.",
				visitor.Name, visitor.Company, gate, at.Format(time.RFC1123)),
		})
	})
}

func (n *MailNotifier) AppointmentApproved(ctx context.Context, appt *models.Appointment) {
	visitorID, purpose, when := appt.VisitorID, appt.Purpose, appt.DateTime

	n.dispatch(ctx, "appointment approval", func(ctx context.Context) error {
		visitor, err := n.visitors.FindByID(ctx, visitorID)
		if err != nil {
			return fmt.Errorf("lookup visitor: %w", err)
		}
		return n.mailer.Send(ctx, notify.Message{
			ToName:  visitor.Name,
			ToEmail: visitor.Email,
			Subject: "Your visit has been approved",
			Text: fmt.Sprintf("Hello %s, your visit (%s) on %s has been approved.",
				visitor.Name, purpose, when.Format(time.RFC1123)),
		})
	})
}

func (n *MailNotifier) dispatch(ctx context.Context, what string, send func(context.Context) error) {
	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()
		if err := send(sendCtx); err != nil {
			log.Warnf("failed to send %s email: %v", what, err)
		}
	}()
}
