// Package worker turns domain events from the queue into in-app
// notifications and emails.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/go-dating-api/internal/domain"
	"github.com/go-dating-api/internal/infrastructure/rabbitmq"
	"github.com/go-dating-api/internal/pkg/logger"
)

type notifier interface {
	Notify(ctx context.Context, userID, kind, referenceID, message string) (*domain.Notification, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type presenceReader interface {
	Get(ctx context.Context, userID string) (*domain.Presence, error)
}

type mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type Deps struct {
	Notifications notifier
	Users         userStore
	Presence      presenceReader
	Mailer        mailer
	Log           *logrus.Logger
}

// Worker handles one event at a time; Handle is safe for concurrent use.
type Worker struct {
	notifications notifier
	users         userStore
	presence      presenceReader
	mailer        mailer
	log           *logrus.Logger
}

func New(deps Deps) *Worker {
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}
	return &Worker{
		notifications: deps.Notifications,
		users:         deps.Users,
		presence:      deps.Presence,
		mailer:        deps.Mailer,
		log:           log,
	}
}

// Handle is a rabbitmq.Handler. Store failures are returned for requeue;
// undecodable payloads are discarded. Email is best effort.
func (w *Worker) Handle(ctx context.Context, e domain.Event) error {
	entry := w.log.WithField("event", e.Type)
	switch e.Type {
	case domain.EventMatchCreated:
		var p domain.MatchCreated
		if err := decode(e, &p); err != nil || p.Match == nil {
			return discard(e, err)
		}
		return w.matchCreated(ctx, p.Match, entry)
	case domain.EventMessageCreated:
		var p domain.MessageCreated
		if err := decode(e, &p); err != nil || p.Message == nil {
			return discard(e, err)
		}
		return w.messageCreated(ctx, p, entry)
	case domain.EventVerificationReviewed:
		var p domain.VerificationReviewed
		if err := decode(e, &p); err != nil || p.Verification == nil {
			return discard(e, err)
		}
		return w.verificationReviewed(ctx, p.Verification)
	case domain.EventSubscriptionActivated:
		var p domain.SubscriptionActivated
		if err := decode(e, &p); err != nil || p.Subscription == nil {
			return discard(e, err)
		}
		return w.subscriptionActivated(ctx, p.Subscription, entry)
	default:
		entry.Debug("ignoring event")
		return nil
	}
}

func decode(e domain.Event, v any) error {
	return json.Unmarshal(e.Payload, v)
}

func discard(e domain.Event, err error) error {
	if err == nil {
		return fmt.Errorf("%s: empty payload: %w", e.Type, rabbitmq.ErrDiscard)
	}
	return fmt.Errorf("%s: %v: %w", e.Type, err, rabbitmq.ErrDiscard)
}

func (w *Worker) matchCreated(ctx context.Context, m *domain.Match, entry *logrus.Entry) error {
	for _, uid := range []string{m.UserAID, m.UserBID} {
		other := m.Other(uid)
		msg := "You have a new match!"
		if m.SuperLike {
			msg = "Someone super liked you back. It's a match!"
		}
		if _, err := w.notifications.Notify(ctx, uid, domain.NotificationMatch, m.MatchID, msg); err != nil {
			return fmt.Errorf("notify %s: %w", uid, err)
		}
		w.email(ctx, uid, "It's a match!", fmt.Sprintf("You matched with %s. Say hi!", w.firstName(ctx, other)), entry)
	}
	return nil
}

// messageCreated notifies the recipient only while they have no live chat
// connection; connected users already got the frame.
func (w *Worker) messageCreated(ctx context.Context, p domain.MessageCreated, entry *logrus.Entry) error {
	if p.RecipientID == "" {
		return discard(domain.Event{Type: domain.EventMessageCreated}, nil)
	}
	if w.presence != nil {
		pr, err := w.presence.Get(ctx, p.RecipientID)
		if err != nil {
			entry.WithError(err).Warn("presence lookup failed; notifying anyway")
		} else if pr.Online {
			return nil
		}
	}
	text := fmt.Sprintf("New message from %s", w.firstName(ctx, p.Message.SenderID))
	if _, err := w.notifications.Notify(ctx, p.RecipientID, domain.NotificationMessage, p.Message.MatchID, text); err != nil {
		return fmt.Errorf("notify %s: %w", p.RecipientID, err)
	}
	return nil
}

func (w *Worker) verificationReviewed(ctx context.Context, v *domain.PhotoVerification) error {
	text := "Your profile is now verified."
	if v.Status != domain.VerificationApproved {
		text = "Your verification was not approved: " + v.Reason
	}
	if _, err := w.notifications.Notify(ctx, v.UserID, domain.NotificationVerification, v.VerificationID, text); err != nil {
		return fmt.Errorf("notify %s: %w", v.UserID, err)
	}
	return nil
}

func (w *Worker) subscriptionActivated(ctx context.Context, s *domain.Subscription, entry *logrus.Entry) error {
	text := fmt.Sprintf("Your %s plan is active", s.Plan)
	if s.ExpiresAt != nil {
		text += " until " + s.ExpiresAt.Format("2006-01-02")
	}
	if _, err := w.notifications.Notify(ctx, s.UserID, domain.NotificationSubscription, s.SubscriptionID, text+"."); err != nil {
		return fmt.Errorf("notify %s: %w", s.UserID, err)
	}
	w.email(ctx, s.UserID, "Payment confirmed", text+". Thanks for subscribing!", entry)
	return nil
}

func (w *Worker) email(ctx context.Context, userID, subject, body string, entry *logrus.Entry) {
	if w.mailer == nil || w.users == nil {
		return
	}
	u, err := w.users.Get(ctx, userID)
	if err != nil {
		entry.WithError(err).WithField("user_id", userID).Warn("email recipient lookup")
		return
	}
	if u.Email == "" {
		return
	}
	if err := w.mailer.SendEmail(ctx, u.Email, subject, body); err != nil {
		entry.WithError(err).WithField("user_id", userID).Warn("send email")
	}
}

func (w *Worker) firstName(ctx context.Context, userID string) string {
	if w.users != nil {
		if u, err := w.users.Get(ctx, userID); err == nil && u.FirstName != "" {
			return u.FirstName
		}
	}
	return "your match"
}
