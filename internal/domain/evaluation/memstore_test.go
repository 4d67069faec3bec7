package evaluation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"perfeval/internal/domain/auth"
)

// memStore is an in-memory StoreAPI whose conditional updates hold one lock,
// matching the single-statement semantics of the pgx store.
type memStore struct {
	mu          sync.Mutex
	periods     map[string]Period
	eligible    []EligibleUser
	mappings    []ManagerMapping
	weights     []QuestionWeight
	evaluations map[string]Evaluation
	logs        []CronExecutionLog

	failEligibleList error
}

func newMemStore() *memStore {
	return &memStore{
		periods:     map[string]Period{},
		evaluations: map[string]Evaluation{},
	}
}

func samePeriod(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *memStore) CreatePeriod(_ context.Context, p Period) (Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()
	m.periods[p.ID] = p
	return p, nil
}

func (m *memStore) GetPeriod(_ context.Context, id string) (Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.periods[id]
	if !ok {
		return Period{}, ErrPeriodNotFound
	}
	return p, nil
}

func (m *memStore) ListPeriods(_ context.Context) ([]Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Period
	for _, p := range m.periods {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (m *memStore) ListPeriodsDueForCreation(_ context.Context, asOf time.Time) ([]Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Period
	for _, p := range m.periods {
		if p.Status == PeriodStatusOpen && !p.AutomaticCreationExecuted && !p.StartDate.After(asOf) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) UpdatePeriodStatus(_ context.Context, id string, from, to PeriodStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.periods[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	m.periods[id] = p
	return true, nil
}

func (m *memStore) ClaimAutomaticCreation(_ context.Context, periodID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.periods[periodID]
	if !ok || p.AutomaticCreationExecuted {
		return false, nil
	}
	p.AutomaticCreationExecuted = true
	m.periods[periodID] = p
	return true, nil
}

func (m *memStore) ReleaseAutomaticCreation(_ context.Context, periodID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.periods[periodID]
	if !ok || !p.AutomaticCreationExecuted || p.TotalEvaluationsCreated != 0 {
		return false, nil
	}
	p.AutomaticCreationExecuted = false
	m.periods[periodID] = p
	return true, nil
}

func (m *memStore) SetEvaluationsCreated(_ context.Context, periodID string, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.periods[periodID]
	if ok && p.AutomaticCreationExecuted {
		p.TotalEvaluationsCreated = total
		m.periods[periodID] = p
	}
	return nil
}

func (m *memStore) ListEligibleEntries(_ context.Context, periodID string) ([]EligibleUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failEligibleList != nil {
		return nil, m.failEligibleList
	}
	var out []EligibleUser
	for _, e := range m.eligible {
		if e.PeriodID == nil || *e.PeriodID == periodID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) UpsertEligibleUser(_ context.Context, entry EligibleUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.eligible {
		if e.UserID == entry.UserID && samePeriod(e.PeriodID, entry.PeriodID) {
			m.eligible[i] = entry
			return nil
		}
	}
	m.eligible = append(m.eligible, entry)
	return nil
}

func (m *memStore) ListManagerMappings(_ context.Context, collaboratorID, periodID string) ([]ManagerMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ManagerMapping
	for _, mm := range m.mappings {
		if mm.CollaboratorID == collaboratorID && (mm.PeriodID == nil || *mm.PeriodID == periodID) {
			out = append(out, mm)
		}
	}
	return out, nil
}

func (m *memStore) UpsertManagerMapping(_ context.Context, mapping ManagerMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, mm := range m.mappings {
		if mm.CollaboratorID == mapping.CollaboratorID && samePeriod(mm.PeriodID, mapping.PeriodID) {
			m.mappings[i] = mapping
			return nil
		}
	}
	m.mappings = append(m.mappings, mapping)
	return nil
}

func (m *memStore) QuestionWeights(_ context.Context, periodID string) (map[string]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]decimal.Decimal{}
	for _, w := range m.weights {
		if w.PeriodID == nil {
			if _, ok := out[w.QuestionID]; !ok {
				out[w.QuestionID] = w.Weight
			}
		}
	}
	for _, w := range m.weights {
		if w.PeriodID != nil && *w.PeriodID == periodID {
			out[w.QuestionID] = w.Weight
		}
	}
	return out, nil
}

func (m *memStore) UpsertQuestionWeight(_ context.Context, weight QuestionWeight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.weights {
		if w.QuestionID == weight.QuestionID && samePeriod(w.PeriodID, weight.PeriodID) {
			m.weights[i] = weight
			return nil
		}
	}
	m.weights = append(m.weights, weight)
	return nil
}

func (m *memStore) CreateEvaluation(_ context.Context, e Evaluation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.evaluations {
		if existing.EmployeeID == e.EmployeeID && existing.PeriodID == e.PeriodID {
			return false, nil
		}
	}
	m.evaluations[e.ID] = e
	return true, nil
}

func (m *memStore) GetEvaluation(_ context.Context, id string) (Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.evaluations[id]
	if !ok {
		return Evaluation{}, ErrNotFound
	}
	return e, nil
}

func (m *memStore) ListPendingForEvaluator(_ context.Context, evaluatorID string) ([]Evaluation, error) {
	return m.filter(func(e Evaluation) bool {
		return e.EvaluatorID == evaluatorID && !e.Quarantined() &&
			(e.Status == StatusAwaitingManagerApproval || e.Status == StatusAwaitingFinalization)
	}), nil
}

func (m *memStore) ListForEmployee(_ context.Context, employeeID string) ([]Evaluation, error) {
	return m.filter(func(e Evaluation) bool { return e.EmployeeID == employeeID }), nil
}

func (m *memStore) filter(keep func(Evaluation) bool) []Evaluation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Evaluation
	for _, e := range m.evaluations {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) ApplyTransition(_ context.Context, u TransitionUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.evaluations[u.EvaluationID]
	if !ok || e.Status != u.From || e.Quarantined() {
		return false, nil
	}
	u.ApplyTo(&e)
	m.evaluations[e.ID] = e
	return true, nil
}

func (m *memStore) DeleteEvaluation(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.evaluations[id]; !ok {
		return false, nil
	}
	delete(m.evaluations, id)
	return true, nil
}

func (m *memStore) ListEvaluationRefs(_ context.Context) ([]EvaluationRef, error) {
	var refs []EvaluationRef
	for _, e := range m.filter(func(e Evaluation) bool { return !e.Quarantined() }) {
		refs = append(refs, EvaluationRef{ID: e.ID, EmployeeID: e.EmployeeID, EvaluatorID: e.EvaluatorID})
	}
	return refs, nil
}

func (m *memStore) QuarantineEvaluation(_ context.Context, id, reason string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.evaluations[id]
	if !ok || e.Quarantined() {
		return false, nil
	}
	e.QuarantinedAt = &at
	e.QuarantineReason = reason
	m.evaluations[id] = e
	return true, nil
}

func (m *memStore) InsertExecutionLog(_ context.Context, entry CronExecutionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entry)
	return nil
}

func (m *memStore) ListExecutionLogs(_ context.Context, periodID string) ([]CronExecutionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []CronExecutionLog
	for _, l := range m.logs {
		if l.PeriodID == periodID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) setEvaluation(e Evaluation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluations[e.ID] = e
}

func (m *memStore) evaluationsFor(periodID string) []Evaluation {
	return m.filter(func(e Evaluation) bool { return e.PeriodID == periodID })
}

// fakeIdentity treats listed users as active; failing users return an error.
type fakeIdentity struct {
	mu      sync.Mutex
	active  map[string]bool
	failing map[string]error
}

func newFakeIdentity(active ...string) *fakeIdentity {
	f := &fakeIdentity{active: map[string]bool{}, failing: map[string]error{}}
	for _, id := range active {
		f.active[id] = true
	}
	return f
}

func (f *fakeIdentity) IsActive(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failing[userID]; ok {
		return false, err
	}
	return f.active[userID], nil
}

func (f *fakeIdentity) deactivate(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.active, userID)
}

func (f *fakeIdentity) fail(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[userID] = errors.New("identity store unavailable")
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []TransitionEvent
}

func (p *recordingPublisher) Publish(evt TransitionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) statuses() []Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Status, 0, len(p.events))
	for _, evt := range p.events {
		out = append(out, evt.To)
	}
	return out
}

var (
	adminActor = auth.Actor{UserID: "admin-1", Role: auth.RoleAdmin}
	testNow    = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
)

func strPtr(s string) *string { return &s }

type fixture struct {
	store     *memStore
	identity  *fakeIdentity
	publisher *recordingPublisher
	svc       *Service
	period    Period
}

// newFixture builds an open period with employee E mapped to manager M.
func newFixture() *fixture {
	store := newMemStore()
	identity := newFakeIdentity("E", "M", "A", "B", adminActor.UserID)
	publisher := &recordingPublisher{}
	svc := NewService(store, identity,
		WithPublisher(publisher),
		WithClock(func() time.Time { return testNow }),
	)
	period, _ := store.CreatePeriod(context.Background(), Period{
		Name:                   "2026",
		Year:                   2026,
		StartDate:              time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:                time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		SelfAssessmentDeadline: time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
		ApprovalDeadline:       time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC),
		Status:                 PeriodStatusOpen,
	})
	store.eligible = append(store.eligible, EligibleUser{UserID: "E", Active: true})
	store.mappings = append(store.mappings, ManagerMapping{CollaboratorID: "E", ManagerID: "M", Active: true})
	return &fixture{store: store, identity: identity, publisher: publisher, svc: svc, period: period}
}
