package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/xiaot623/ragbook/internal/booking"
	"github.com/xiaot623/ragbook/internal/domain"
)

// turn tracks the state machine of a single Ask call.
type turn struct {
	state domain.TurnState
	log   logrus.FieldLogger
}

func (t *turn) enter(state domain.TurnState) {
	t.log.WithFields(logrus.Fields{"from": t.state, "to": state}).Debug("turn state")
	t.state = state
}

// Ask runs one conversational turn: classify the message, then either drive
// booking slot filling or answer from the document corpus. Both the message
// and the reply are appended to memory exactly once.
func (s *Service) Ask(ctx context.Context, req domain.AskRequest) (*domain.AskResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.Invalid("query", "cannot be empty")
	}
	sessionID := domain.NormalizeSessionID(req.SessionID)

	t := &turn{state: domain.TurnStateStart, log: s.log.WithField("session_id", sessionID)}
	t.enter(domain.TurnStateClassify)

	intent := s.classifier.Classify(ctx, query)
	history := s.recentHistory(ctx, sessionID, booking.HistoryWindow)

	isBooking := intent.IsBooking
	if !isBooking && s.continuesBooking(history, query) {
		t.log.Debug("continuing pending booking")
		isBooking = true
	}
	t.log.WithFields(logrus.Fields{
		"is_booking": isBooking,
		"confidence": intent.Confidence,
	}).Info("classified message")

	var resp *domain.AskResponse
	var err error
	if isBooking {
		resp, err = s.bookingTurn(ctx, t, sessionID, query, history)
	} else {
		resp, err = s.answerTurn(ctx, t, query, history)
	}
	if err != nil {
		return nil, err
	}
	resp.SessionID = sessionID

	if err := s.memory.AppendTurn(ctx, sessionID, query, resp.Answer); err != nil {
		t.log.WithError(err).Error("failed to record turn")
		return nil, fmt.Errorf("%w: record turn: %v", domain.ErrPersistence, err)
	}

	t.enter(domain.TurnStateEnd)
	return resp, nil
}

// recentHistory reads history, degrading to none on failure.
func (s *Service) recentHistory(ctx context.Context, sessionID string, n int) []domain.TurnMessage {
	history, err := s.memory.Recent(ctx, sessionID, n)
	if err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Warn("failed to read history")
		return nil
	}
	return history
}

// continuesBooking reports whether the assistant's last message asked for
// booking details and the query supplies at least one of them.
func (s *Service) continuesBooking(history []domain.TurnMessage, query string) bool {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != domain.RoleAssistant {
			continue
		}
		if !booking.IsRePrompt(history[i].Text) {
			return false
		}
		return len(booking.FieldsIn(query, s.now())) > 0
	}
	return false
}

func (s *Service) bookingTurn(ctx context.Context, t *turn, sessionID, query string, history []domain.TurnMessage) (*domain.AskResponse, error) {
	ext := s.extractor.Extract(ctx, query, history)
	t.log.WithFields(logrus.Fields{
		"source":   ext.Source,
		"complete": ext.Complete,
		"missing":  ext.Missing,
	}).Info("extracted booking details")

	missing := ext.Missing
	note := ""
	if ext.Complete {
		decision := s.admit(ctx, ext.Data)
		if decision.Allowed {
			t.enter(domain.TurnStateBookingComplete)
			b, err := s.createBooking(ctx, ext.Data, sessionID)
			if err != nil {
				return nil, err
			}
			draft := b.Draft()
			return &domain.AskResponse{
				Answer:          booking.ConfirmationMessage(draft),
				Sources:         []domain.Source{},
				BookingDetected: true,
				BookingData:     &draft,
				BookingID:       b.BookingID,
			}, nil
		}
		t.log.WithField("reason", decision.Reason).Info("booking rejected by policy")
		missing = []string{domain.FieldEmail}
		note = decision.Reason
	}

	t.enter(domain.TurnStateBookingIncomplete)
	return &domain.AskResponse{
		Answer:          booking.RePromptMessage(missing, note),
		Sources:         []domain.Source{},
		BookingDetected: true,
	}, nil
}

func (s *Service) answerTurn(ctx context.Context, t *turn, query string, history []domain.TurnMessage) (*domain.AskResponse, error) {
	t.enter(domain.TurnStateAnswering)
	ans, err := s.composer.ComposeWithHistory(ctx, query, history)
	if err != nil {
		return nil, err
	}
	return &domain.AskResponse{
		Answer:          ans.Text,
		Sources:         ans.Sources,
		BookingDetected: false,
	}, nil
}
