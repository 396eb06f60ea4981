// Package triage decides what happens to every inbound support message:
// answer from the knowledge base, forward to a human, or escalate.
package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"log/slog"

	"supportbot/core/logger"
	"supportbot/internal/faq"
	"supportbot/internal/session"
)

// Transport delivers messages to Telegram. The markdown flag selects
// Markdown parse mode for the outbound text.
type Transport interface {
	SendToUser(ctx context.Context, userID int64, text string, markdown bool) error
	SendToAdmin(ctx context.Context, text string, markdown bool) error
}

// ActionKind classifies how an inbound user message was handled.
type ActionKind string

const (
	// ActionAutoReply means the knowledge base answered the message.
	ActionAutoReply ActionKind = "auto_reply"
	// ActionForwarded means the user is in live mode and the message
	// went to the admin channel.
	ActionForwarded ActionKind = "forwarded"
	// ActionEscalated means no answer was found: the user was switched
	// to live mode and the admin channel was alerted.
	ActionEscalated ActionKind = "escalated"
)

// Action describes the outcome of HandleUserMessage.
type Action struct {
	Kind        ActionKind
	Welcomed    bool
	FAQQuestion string
	Score       float64
}

// Texts holds the operator-facing and user-facing message templates.
type Texts struct {
	Welcome  string
	Fallback string
}

// Service implements the support triage flow over a session store, a
// knowledge-base matcher and an outbound transport.
type Service struct {
	store     *session.Store
	matcher   *faq.Matcher
	transport Transport
	texts     Texts
}

// NewService wires a triage Service.
func NewService(store *session.Store, matcher *faq.Matcher, transport Transport, texts Texts) *Service {
	return &Service{
		store:     store,
		matcher:   matcher,
		transport: transport,
		texts:     texts,
	}
}

// Store exposes the underlying session store.
func (s *Service) Store() *session.Store { return s.store }

// Matcher exposes the knowledge-base matcher.
func (s *Service) Matcher() *faq.Matcher { return s.matcher }

// HandleUserMessage runs one inbound message through the triage flow.
// display is the sender's username, or their numeric ID rendered as a
// string when no username is set. State transitions are applied before
// sends, so a delivery failure never leaves the session inconsistent.
func (s *Service) HandleUserMessage(ctx context.Context, userID int64, display, text string, now time.Time) (Action, error) {
	var errs *multierror.Error
	action := Action{}

	if s.store.MarkSeen(userID, now) {
		action.Welcomed = true
		if err := s.transport.SendToUser(ctx, userID, s.texts.Welcome, false); err != nil {
			errs = multierror.Append(errs, &DeliveryError{Target: "user", UserID: userID, Err: err})
		}
	}

	sess := s.store.GetOrCreate(userID)
	if sess.LiveActive {
		action.Kind = ActionForwarded
		s.store.RecordPending(userID, now)
		forward := fmt.Sprintf("📨 Message from @%s:\n%s", display, text)
		if err := s.transport.SendToAdmin(ctx, forward, false); err != nil {
			errs = multierror.Append(errs, &DeliveryError{Target: "admin", Err: err})
		}
		logger.Triage.LogAttrs(ctx, slog.LevelInfo, "message.forwarded",
			slog.Int64("user_id", userID),
		)
		return action, errs.ErrorOrNil()
	}

	if entry, score, ok := s.matcher.Match(text); ok {
		action.Kind = ActionAutoReply
		action.FAQQuestion = entry.Question
		action.Score = score
		s.store.Touch(userID, now)
		if err := s.transport.SendToUser(ctx, userID, entry.Answer, true); err != nil {
			errs = multierror.Append(errs, &DeliveryError{Target: "user", UserID: userID, Err: err})
		}
		logger.Triage.LogAttrs(ctx, slog.LevelInfo, "faq.answered",
			slog.Int64("user_id", userID),
			slog.String("faq_question", entry.Question),
			slog.Float64("score", score),
		)
		return action, errs.ErrorOrNil()
	}

	action.Kind = ActionEscalated
	s.store.StartLive(userID, now)
	s.store.RecordPending(userID, now)
	if err := s.transport.SendToUser(ctx, userID, s.texts.Fallback, false); err != nil {
		errs = multierror.Append(errs, &DeliveryError{Target: "user", UserID: userID, Err: err})
	}
	alert := fmt.Sprintf("🚨 User @%s needs help:\n%s\n\nUse /chat %d to begin chatting.", display, text, userID)
	if err := s.transport.SendToAdmin(ctx, alert, false); err != nil {
		errs = multierror.Append(errs, &DeliveryError{Target: "admin", Err: err})
	}
	logger.Triage.LogAttrs(ctx, slog.LevelWarn, "user.escalated",
		slog.Int64("user_id", userID),
	)
	return action, errs.ErrorOrNil()
}

// HandleAdminMessage broadcasts an admin-channel message to every user
// currently in live mode. The pending marker is cleared only for users
// the reply actually reached. It returns the IDs that were delivered.
func (s *Service) HandleAdminMessage(ctx context.Context, text string) ([]int64, error) {
	var errs *multierror.Error
	reply := fmt.Sprintf("Support: %s", text)

	ids := s.store.LiveUserIDs()
	delivered := make([]int64, 0, len(ids))
	for _, userID := range ids {
		if err := s.transport.SendToUser(ctx, userID, reply, false); err != nil {
			errs = multierror.Append(errs, &DeliveryError{Target: "user", UserID: userID, Err: err})
			continue
		}
		s.store.ClearPending(userID)
		delivered = append(delivered, userID)
	}

	logger.Triage.LogAttrs(ctx, slog.LevelInfo, "admin.broadcast",
		slog.Int("live_users", len(ids)),
		slog.Int("delivered", len(delivered)),
	)
	return delivered, errs.ErrorOrNil()
}

// ReplyTo sends an admin reply to a single user and clears their
// pending marker on success.
func (s *Service) ReplyTo(ctx context.Context, userID int64, text string) error {
	reply := fmt.Sprintf("Support: %s", text)
	if err := s.transport.SendToUser(ctx, userID, reply, false); err != nil {
		return &DeliveryError{Target: "user", UserID: userID, Err: err}
	}
	s.store.ClearPending(userID)
	logger.Triage.LogAttrs(ctx, slog.LevelInfo, "admin.reply",
		slog.Int64("user_id", userID),
	)
	return nil
}

// StartChat switches a user into live mode on behalf of the admin.
func (s *Service) StartChat(userID int64, now time.Time) {
	s.store.StartLive(userID, now)
	logger.Triage.Info("chat.started", slog.Int64("user_id", userID))
}

// StopChat returns a user to the automated flow. It reports whether a
// live session existed.
func (s *Service) StopChat(userID int64) bool {
	ended := s.store.EndLive(userID)
	logger.Triage.Info("chat.stopped",
		slog.Int64("user_id", userID),
		slog.Bool("was_live", ended),
	)
	return ended
}
