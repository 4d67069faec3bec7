package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const evaluationColumns = `id, employee_id, evaluator_id, period_id, status, responses_json, manager_scores_json,
    evaluator_comment, employee_final_comment, final_score::text, approval_status,
    self_assessment_submitted_at, manager_approved_at, final_comment_at, approved_at, finalized_at,
    approved_by, quarantined_at, quarantine_reason, created_at, updated_at`

func scanEvaluation(row rowScanner) (Evaluation, error) {
	var (
		e                 Evaluation
		status, approval  string
		responsesJSON     []byte
		managerScoresJSON []byte
		finalScore        *string
		approvedBy        *string
	)
	if err := row.Scan(&e.ID, &e.EmployeeID, &e.EvaluatorID, &e.PeriodID, &status, &responsesJSON, &managerScoresJSON,
		&e.EvaluatorComment, &e.EmployeeFinalComment, &finalScore, &approval,
		&e.SelfAssessmentSubmittedAt, &e.ManagerApprovedAt, &e.FinalCommentAt, &e.ApprovedAt, &e.FinalizedAt,
		&approvedBy, &e.QuarantinedAt, &e.QuarantineReason, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Evaluation{}, err
	}
	e.Status = Status(status)
	e.ApprovalStatus = ApprovalStatus(approval)
	if approvedBy != nil {
		e.ApprovedBy = *approvedBy
	}
	if err := json.Unmarshal(responsesJSON, &e.Responses); err != nil {
		return Evaluation{}, fmt.Errorf("decode responses of %s: %w", e.ID, err)
	}
	if err := json.Unmarshal(managerScoresJSON, &e.ManagerScores); err != nil {
		return Evaluation{}, fmt.Errorf("decode manager scores of %s: %w", e.ID, err)
	}
	if finalScore != nil {
		score, err := decimal.NewFromString(*finalScore)
		if err != nil {
			return Evaluation{}, fmt.Errorf("decode final score of %s: %w", e.ID, err)
		}
		e.FinalScore = decimal.NewNullDecimal(score)
	}
	return e, nil
}

// CreateEvaluation reports false when the employee already has an evaluation
// for the period.
func (s *Store) CreateEvaluation(ctx context.Context, e Evaluation) (bool, error) {
	responses, err := json.Marshal(e.Responses)
	if err != nil {
		return false, err
	}
	scores, err := json.Marshal(e.ManagerScores)
	if err != nil {
		return false, err
	}
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO evaluations (id, employee_id, evaluator_id, period_id, status, responses_json, manager_scores_json, approval_status, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    ON CONFLICT (employee_id, period_id) DO NOTHING
  `, e.ID, e.EmployeeID, e.EvaluatorID, e.PeriodID, string(e.Status), responses, scores, string(e.ApprovalStatus), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) GetEvaluation(ctx context.Context, id string) (Evaluation, error) {
	if uuid.Validate(id) != nil {
		return Evaluation{}, ErrNotFound
	}
	e, err := scanEvaluation(s.DB.QueryRow(ctx, `SELECT `+evaluationColumns+` FROM evaluations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Evaluation{}, ErrNotFound
	}
	return e, err
}

func (s *Store) ListPendingForEvaluator(ctx context.Context, evaluatorID string) ([]Evaluation, error) {
	return s.queryEvaluations(ctx, `
    SELECT `+evaluationColumns+`
    FROM evaluations
    WHERE evaluator_id = $1
      AND status IN ('awaiting_manager_approval', 'awaiting_finalization')
      AND quarantined_at IS NULL
    ORDER BY created_at
  `, evaluatorID)
}

func (s *Store) ListForEmployee(ctx context.Context, employeeID string) ([]Evaluation, error) {
	return s.queryEvaluations(ctx, `
    SELECT `+evaluationColumns+`
    FROM evaluations
    WHERE employee_id = $1
    ORDER BY created_at DESC
  `, employeeID)
}

func (s *Store) queryEvaluations(ctx context.Context, query string, args ...any) ([]Evaluation, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ApplyTransition runs one UPDATE guarded by the expected predecessor status.
// Quarantined rows never match.
func (s *Store) ApplyTransition(ctx context.Context, u TransitionUpdate) (bool, error) {
	args := []any{u.EvaluationID, string(u.From), string(u.To), u.At}
	sets := []string{"status = $3", "updated_at = $4"}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if u.Responses != nil {
		payload, err := json.Marshal(u.Responses)
		if err != nil {
			return false, err
		}
		add("responses_json", payload)
	}
	if u.ManagerScores != nil {
		payload, err := json.Marshal(u.ManagerScores)
		if err != nil {
			return false, err
		}
		add("manager_scores_json", payload)
	}
	if u.EvaluatorComment != nil {
		add("evaluator_comment", *u.EvaluatorComment)
	}
	if u.EmployeeFinalComment != nil {
		add("employee_final_comment", *u.EmployeeFinalComment)
	}
	if u.FinalScore != nil {
		var score *string
		if u.FinalScore.Valid {
			text := u.FinalScore.Decimal.String()
			score = &text
		}
		args = append(args, score)
		sets = append(sets, fmt.Sprintf("final_score = $%d::text::numeric", len(args)))
	}
	if u.ApprovalStatus != "" {
		add("approval_status", string(u.ApprovalStatus))
	}
	if u.ApprovedBy != "" {
		add("approved_by", u.ApprovedBy)
		add("approved_at", u.At)
	}
	if u.Stamp != StampNone {
		add(string(u.Stamp), u.At)
	}

	query := "UPDATE evaluations SET " + strings.Join(sets, ", ") +
		" WHERE id = $1 AND status = $2 AND quarantined_at IS NULL"
	tag, err := s.DB.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) DeleteEvaluation(ctx context.Context, id string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `DELETE FROM evaluations WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) ListEvaluationRefs(ctx context.Context) ([]EvaluationRef, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, evaluator_id
    FROM evaluations
    WHERE quarantined_at IS NULL
    ORDER BY created_at
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EvaluationRef
	for rows.Next() {
		var ref EvaluationRef
		if err := rows.Scan(&ref.ID, &ref.EmployeeID, &ref.EvaluatorID); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (s *Store) QuarantineEvaluation(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE evaluations SET quarantined_at = $2, quarantine_reason = $3, updated_at = $2
    WHERE id = $1 AND quarantined_at IS NULL
  `, id, at, reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) InsertExecutionLog(ctx context.Context, entry CronExecutionLog) error {
	skipped, err := json.Marshal(entry.Skipped)
	if err != nil {
		return err
	}
	errs, err := json.Marshal(entry.Errors)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO cron_execution_logs (id, period_id, trigger, started_at, finished_at, outcome, evaluations_created, skipped_json, errors_json)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `, entry.ID, entry.PeriodID, string(entry.Trigger), entry.StartedAt, entry.FinishedAt, string(entry.Outcome), entry.EvaluationsCreated, skipped, errs)
	return err
}

func (s *Store) ListExecutionLogs(ctx context.Context, periodID string) ([]CronExecutionLog, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, period_id, trigger, started_at, finished_at, outcome, evaluations_created, skipped_json, errors_json
    FROM cron_execution_logs
    WHERE period_id = $1
    ORDER BY started_at DESC
  `, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CronExecutionLog
	for rows.Next() {
		var (
			entry            CronExecutionLog
			trigger, outcome string
			skipped, errs    []byte
		)
		if err := rows.Scan(&entry.ID, &entry.PeriodID, &trigger, &entry.StartedAt, &entry.FinishedAt, &outcome, &entry.EvaluationsCreated, &skipped, &errs); err != nil {
			return nil, err
		}
		entry.Trigger = Trigger(trigger)
		entry.Outcome = RunOutcome(outcome)
		if err := json.Unmarshal(skipped, &entry.Skipped); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(errs, &entry.Errors); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
