package evaluation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const periodColumns = `id, name, year, start_date, end_date, self_assessment_deadline, approval_deadline,
    status, COALESCE(scoring_method, ''), automatic_creation_executed, total_evaluations_created, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeriod(row rowScanner) (Period, error) {
	var (
		p       Period
		status  string
		scoring string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Year, &p.StartDate, &p.EndDate, &p.SelfAssessmentDeadline, &p.ApprovalDeadline,
		&status, &scoring, &p.AutomaticCreationExecuted, &p.TotalEvaluationsCreated, &p.CreatedAt); err != nil {
		return Period{}, err
	}
	p.Status = PeriodStatus(status)
	p.ScoringMethod = ScoringMethod(scoring)
	return p, nil
}

func (s *Store) CreatePeriod(ctx context.Context, p Period) (Period, error) {
	row := s.DB.QueryRow(ctx, `
    INSERT INTO evaluation_periods (name, year, start_date, end_date, self_assessment_deadline, approval_deadline, status, scoring_method)
    VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8, ''))
    RETURNING `+periodColumns,
		p.Name, p.Year, p.StartDate, p.EndDate, p.SelfAssessmentDeadline, p.ApprovalDeadline, string(p.Status), string(p.ScoringMethod))
	return scanPeriod(row)
}

func (s *Store) GetPeriod(ctx context.Context, id string) (Period, error) {
	if uuid.Validate(id) != nil {
		return Period{}, ErrPeriodNotFound
	}
	p, err := scanPeriod(s.DB.QueryRow(ctx, `SELECT `+periodColumns+` FROM evaluation_periods WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, ErrPeriodNotFound
	}
	return p, err
}

func (s *Store) ListPeriods(ctx context.Context) ([]Period, error) {
	return s.queryPeriods(ctx, `SELECT `+periodColumns+` FROM evaluation_periods ORDER BY start_date DESC`)
}

func (s *Store) ListPeriodsDueForCreation(ctx context.Context, asOf time.Time) ([]Period, error) {
	return s.queryPeriods(ctx, `
    SELECT `+periodColumns+`
    FROM evaluation_periods
    WHERE status = 'open' AND NOT automatic_creation_executed AND start_date <= $1::date
    ORDER BY start_date
  `, asOf)
}

func (s *Store) queryPeriods(ctx context.Context, query string, args ...any) ([]Period, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdatePeriodStatus(ctx context.Context, id string, from, to PeriodStatus) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE evaluation_periods SET status = $3
    WHERE id = $1 AND status = $2
  `, id, string(from), string(to))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ClaimAutomaticCreation flips the gate in one statement so exactly one
// concurrent caller sees true.
func (s *Store) ClaimAutomaticCreation(ctx context.Context, periodID string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE evaluation_periods SET automatic_creation_executed = true
    WHERE id = $1 AND NOT automatic_creation_executed
  `, periodID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseAutomaticCreation reopens the gate only while nothing was recorded
// as created for the period.
func (s *Store) ReleaseAutomaticCreation(ctx context.Context, periodID string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE evaluation_periods SET automatic_creation_executed = false
    WHERE id = $1 AND automatic_creation_executed AND total_evaluations_created = 0
  `, periodID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) SetEvaluationsCreated(ctx context.Context, periodID string, total int) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE evaluation_periods SET total_evaluations_created = $2
    WHERE id = $1 AND automatic_creation_executed
  `, periodID, total)
	return err
}

func (s *Store) ListEligibleEntries(ctx context.Context, periodID string) ([]EligibleUser, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT user_id, period_id, active
    FROM eligible_users
    WHERE period_id IS NULL OR period_id = $1
  `, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EligibleUser
	for rows.Next() {
		var entry EligibleUser
		if err := rows.Scan(&entry.UserID, &entry.PeriodID, &entry.Active); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *Store) UpsertEligibleUser(ctx context.Context, entry EligibleUser) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO eligible_users (user_id, period_id, active)
    VALUES ($1,$2,$3)
    ON CONFLICT (user_id, COALESCE(period_id, '00000000-0000-0000-0000-000000000000'::uuid))
    DO UPDATE SET active = EXCLUDED.active, updated_at = now()
  `, entry.UserID, entry.PeriodID, entry.Active)
	return err
}

func (s *Store) ListManagerMappings(ctx context.Context, collaboratorID, periodID string) ([]ManagerMapping, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT collaborator_id, manager_id, period_id, active
    FROM manager_mappings
    WHERE collaborator_id = $1 AND (period_id IS NULL OR period_id = $2)
  `, collaboratorID, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ManagerMapping
	for rows.Next() {
		var m ManagerMapping
		if err := rows.Scan(&m.CollaboratorID, &m.ManagerID, &m.PeriodID, &m.Active); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) UpsertManagerMapping(ctx context.Context, m ManagerMapping) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO manager_mappings (collaborator_id, manager_id, period_id, active)
    VALUES ($1,$2,$3,$4)
    ON CONFLICT (collaborator_id, COALESCE(period_id, '00000000-0000-0000-0000-000000000000'::uuid))
    DO UPDATE SET manager_id = EXCLUDED.manager_id, active = EXCLUDED.active, updated_at = now()
  `, m.CollaboratorID, m.ManagerID, m.PeriodID, m.Active)
	return err
}

// QuestionWeights returns global weights overridden by the period's own.
func (s *Store) QuestionWeights(ctx context.Context, periodID string) (map[string]decimal.Decimal, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT question_id, weight::text, period_id IS NOT NULL
    FROM question_weights
    WHERE period_id IS NULL OR period_id = $1
  `, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	weights := map[string]decimal.Decimal{}
	scoped := map[string]bool{}
	for rows.Next() {
		var (
			questionID string
			raw        string
			isScoped   bool
		)
		if err := rows.Scan(&questionID, &raw, &isScoped); err != nil {
			return nil, err
		}
		weight, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
		if scoped[questionID] && !isScoped {
			continue
		}
		weights[questionID] = weight
		scoped[questionID] = isScoped
	}
	return weights, rows.Err()
}

func (s *Store) UpsertQuestionWeight(ctx context.Context, w QuestionWeight) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO question_weights (period_id, question_id, weight)
    VALUES ($1,$2,$3::text::numeric)
    ON CONFLICT (question_id, COALESCE(period_id, '00000000-0000-0000-0000-000000000000'::uuid))
    DO UPDATE SET weight = EXCLUDED.weight
  `, w.PeriodID, w.QuestionID, w.Weight.String())
	return err
}
