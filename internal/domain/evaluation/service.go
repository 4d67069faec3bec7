package evaluation

import (
	"context"
	"log/slog"
	"time"

	"perfeval/internal/domain/audit"
)

const entityType = "evaluation"

type Auditor interface {
	Record(ctx context.Context, entry audit.Entry) error
}

type Service struct {
	store         StoreAPI
	identity      IdentityProvider
	events        Publisher
	auditor       Auditor
	observer      Observer
	now           func() time.Time
	defaultMethod ScoringMethod
	maxRating     float64
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDefaultScoringMethod sets the method used by periods that do not pick one.
func WithDefaultScoringMethod(m ScoringMethod) Option {
	return func(s *Service) {
		if m.Valid() {
			s.defaultMethod = m
		}
	}
}

func WithMaxRating(max float64) Option {
	return func(s *Service) {
		if max > 0 {
			s.maxRating = max
		}
	}
}

func NewService(store StoreAPI, identity IdentityProvider, opts ...Option) *Service {
	s := &Service{
		store:         store,
		identity:      identity,
		events:        noopPublisher{},
		observer:      noopObserver{},
		now:           func() time.Time { return time.Now().UTC() },
		defaultMethod: ScoringSimpleAverage,
		maxRating:     5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) record(ctx context.Context, entry audit.Entry) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, entry); err != nil {
		slog.Warn("audit record failed", "err", err, "action", entry.Action, "entity_id", entry.EntityID)
	}
}

// scoringConfig resolves the method and weights for a period, falling back to
// the service default when the period does not choose one.
func (s *Service) scoringConfig(ctx context.Context, period Period) (ScoringConfig, error) {
	cfg := ScoringConfig{Method: period.ScoringMethod}
	if cfg.Method == "" {
		cfg.Method = s.defaultMethod
	}
	if cfg.Method != ScoringWeightedAverage {
		return cfg, nil
	}
	weights, err := s.store.QuestionWeights(ctx, period.ID)
	if err != nil {
		return ScoringConfig{}, err
	}
	cfg.Weights = weights
	return cfg, nil
}
