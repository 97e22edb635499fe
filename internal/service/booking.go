package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/xiaot623/ragbook/internal/booking"
	"github.com/xiaot623/ragbook/internal/domain"
)

// Limits for ListBookings.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// Schedule books an interview directly from complete details.
func (s *Service) Schedule(ctx context.Context, req domain.ScheduleRequest) (*domain.ScheduleResponse, error) {
	draft, err := booking.NormalizeDraft(req.Draft(), s.now())
	if err != nil {
		return nil, err
	}

	decision := s.admit(ctx, draft)
	if !decision.Allowed {
		return nil, domain.Invalid(domain.FieldEmail, decision.Reason)
	}

	b, err := s.createBooking(ctx, draft, domain.NormalizeSessionID(req.SessionID))
	if err != nil {
		return nil, err
	}
	return &domain.ScheduleResponse{
		Success:   true,
		BookingID: b.BookingID,
		Message:   booking.ScheduledMessage(b),
		Booking:   b,
	}, nil
}

// ListBookings returns bookings newest first. An empty sessionID lists every
// session; a zero limit means DefaultListLimit.
func (s *Service) ListBookings(ctx context.Context, sessionID string, limit int) ([]domain.Booking, error) {
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit < 1 || limit > MaxListLimit {
		return nil, domain.Invalid("limit", fmt.Sprintf("must be between 1 and %d", MaxListLimit))
	}

	bookings, err := s.store.ListBookings(ctx, sessionID, limit)
	if err != nil {
		s.log.WithError(err).Error("failed to list bookings")
		return nil, fmt.Errorf("%w: list bookings: %v", domain.ErrPersistence, err)
	}
	return bookings, nil
}

// GetBooking returns a booking or ErrNotFound.
func (s *Service) GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		s.log.WithError(err).WithField("booking_id", bookingID).Error("failed to get booking")
		return nil, fmt.Errorf("%w: get booking: %v", domain.ErrPersistence, err)
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

// DeleteBooking cancels a booking and returns a confirmation, or ErrNotFound.
func (s *Service) DeleteBooking(ctx context.Context, bookingID string) (string, error) {
	deleted, err := s.store.DeleteBooking(ctx, bookingID)
	if err != nil {
		s.log.WithError(err).WithField("booking_id", bookingID).Error("failed to delete booking")
		return "", fmt.Errorf("%w: delete booking: %v", domain.ErrPersistence, err)
	}
	if !deleted {
		return "", domain.ErrNotFound
	}
	return fmt.Sprintf("Booking %s cancelled successfully", bookingID), nil
}

func (s *Service) createBooking(ctx context.Context, draft domain.BookingDraft, sessionID string) (*domain.Booking, error) {
	b := &domain.Booking{
		BookingID: uuid.NewString(),
		Name:      draft.Name,
		Email:     draft.Email,
		Date:      draft.Date,
		Time:      draft.Time,
		SessionID: sessionID,
		CreatedAt: s.now().UTC(),
	}
	log := s.log.WithFields(logrus.Fields{"booking_id": b.BookingID, "session_id": sessionID})
	if err := s.store.CreateBooking(ctx, b); err != nil {
		log.WithError(err).Error("failed to save booking")
		return nil, fmt.Errorf("%w: create booking: %v", domain.ErrPersistence, err)
	}
	log.Info("booking saved")
	return b, nil
}

// admit evaluates the booking policy. An unavailable or failing policy admits the draft.
func (s *Service) admit(ctx context.Context, draft domain.BookingDraft) domain.PolicyDecision {
	if s.policy == nil {
		return domain.PolicyDecision{Allowed: true}
	}
	decision, err := s.policy.Evaluate(ctx, draft)
	if err != nil {
		s.log.WithError(err).Warn("booking policy evaluation failed, admitting booking")
		return domain.PolicyDecision{Allowed: true}
	}
	return decision
}
