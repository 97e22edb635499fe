// Package service implements the conversation orchestrator and the booking,
// session and upload operations around it.
package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xiaot623/ragbook/internal/domain"
	"github.com/xiaot623/ragbook/internal/memory"
	"github.com/xiaot623/ragbook/internal/repository"
)

// IntentClassifier labels a message as a booking request or not. It never fails.
type IntentClassifier interface {
	Classify(ctx context.Context, query string) domain.IntentResult
}

// SlotExtractor fills a booking draft from a message and recent history. It never fails.
type SlotExtractor interface {
	Extract(ctx context.Context, query string, history []domain.TurnMessage) domain.Extraction
}

// AnswerComposer produces a grounded answer.
type AnswerComposer interface {
	ComposeWithHistory(ctx context.Context, query string, history []domain.TurnMessage) (*domain.Answer, error)
}

// PolicyEvaluator admits or rejects a complete booking draft.
type PolicyEvaluator interface {
	Evaluate(ctx context.Context, draft domain.BookingDraft) (domain.PolicyDecision, error)
}

// DocumentIngestor indexes extracted document text.
type DocumentIngestor interface {
	Ingest(ctx context.Context, source, text string, strategy domain.ChunkStrategy) (*domain.Document, error)
}

// Deps are the collaborators a Service is built from. Policy and Ingestor may be nil.
type Deps struct {
	Store      repository.Store
	Memory     memory.Store
	Classifier IntentClassifier
	Extractor  SlotExtractor
	Composer   AnswerComposer
	Policy     PolicyEvaluator
	Ingestor   DocumentIngestor
	Logger     logrus.FieldLogger
}

// Service is the application layer shared by every transport.
type Service struct {
	store      repository.Store
	memory     memory.Store
	classifier IntentClassifier
	extractor  SlotExtractor
	composer   AnswerComposer
	policy     PolicyEvaluator
	ingestor   DocumentIngestor
	log        logrus.FieldLogger
	now        func() time.Time
}

// New creates a Service.
func New(deps Deps) *Service {
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		store:      deps.Store,
		memory:     deps.Memory,
		classifier: deps.Classifier,
		extractor:  deps.Extractor,
		composer:   deps.Composer,
		policy:     deps.Policy,
		ingestor:   deps.Ingestor,
		log:        log.WithField("component", "service"),
		now:        time.Now,
	}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
