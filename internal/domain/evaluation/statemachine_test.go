package evaluation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfeval/internal/domain/auth"
)

var (
	employeeActor = auth.Actor{UserID: "E", Role: auth.RoleEmployee}
	managerActor  = auth.Actor{UserID: "M", Role: auth.RoleManager}
)

func createdEvaluation(t *testing.T, f *fixture) Evaluation {
	t.Helper()
	_, err := f.svc.TriggerAutomaticCreation(context.Background(), adminActor, f.period.ID)
	require.NoError(t, err)
	rows := f.store.evaluationsFor(f.period.ID)
	require.Len(t, rows, 1)
	return rows[0]
}

func TestEvaluationLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	e := createdEvaluation(t, f)
	assert.Equal(t, StatusCreated, e.Status)
	assert.Equal(t, "E", e.EmployeeID)
	assert.Equal(t, "M", e.EvaluatorID)

	e, err := f.svc.SubmitSelfAssessment(ctx, employeeActor, e.ID, map[string]Response{
		"q1": {Score: 4, Comment: "delivered the migration"},
		"q2": {Score: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingManagerApproval, e.Status)
	require.NotNil(t, e.SelfAssessmentSubmittedAt)

	pending, err := f.svc.GetPendingForManager(ctx, managerActor, "M")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	e, err = f.svc.ApproveByManager(ctx, managerActor, e.ID, "solid year", map[string]float64{"q1": 5})
	require.NoError(t, err)
	assert.Equal(t, StatusManagerApprovedAwaitingComment, e.Status)
	assert.Equal(t, ApprovalManagerApproved, e.ApprovalStatus)
	assert.Equal(t, "solid year", e.EvaluatorComment)

	e, err = f.svc.SubmitFinalComment(ctx, employeeActor, e.ID, "thanks")
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingFinalization, e.Status)

	e, err = f.svc.Finalize(ctx, managerActor, e.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConcluded, e.Status)
	assert.Equal(t, ApprovalApproved, e.ApprovalStatus)
	assert.Equal(t, "M", e.ApprovedBy)
	require.True(t, e.FinalScore.Valid)
	assert.Equal(t, "3.6667", e.FinalScore.Decimal.String())
	require.NotNil(t, e.FinalizedAt)

	stored, err := f.svc.GetEvaluation(ctx, employeeActor, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e, stored)

	assert.Equal(t, []Status{
		StatusCreated,
		StatusAwaitingManagerApproval,
		StatusManagerApprovedAwaitingComment,
		StatusAwaitingFinalization,
		StatusConcluded,
	}, f.publisher.statuses())
}

func TestSubmitFinalCommentOutOfOrderIsConflict(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	e := createdEvaluation(t, f)

	_, err := f.svc.SubmitFinalComment(ctx, employeeActor, e.ID, "too early")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "not awaiting your comment", conflict.Reason)
	assert.Equal(t, StatusCreated, conflict.Actual)
	assert.Equal(t, "E", conflict.ActorID)

	_, err = f.svc.SubmitSelfAssessment(ctx, employeeActor, e.ID, map[string]Response{"q1": {Score: 3}})
	require.NoError(t, err)

	_, err = f.svc.SubmitFinalComment(ctx, employeeActor, e.ID, "still too early")
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, StatusAwaitingManagerApproval, conflict.Actual)

	stored, err := f.store.GetEvaluation(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.EmployeeFinalComment)
	assert.Nil(t, stored.FinalCommentAt)
}

func TestTransitionsEnforceActors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	e := createdEvaluation(t, f)
	var authErr *AuthorizationError

	_, err := f.svc.SubmitSelfAssessment(ctx, managerActor, e.ID, map[string]Response{"q1": {Score: 3}})
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, ActionSubmitSelfAssessment, authErr.Action)

	_, err = f.svc.SubmitSelfAssessment(ctx, employeeActor, e.ID, map[string]Response{"q1": {Score: 3}})
	require.NoError(t, err)

	_, err = f.svc.ApproveByManager(ctx, employeeActor, e.ID, "self approval", nil)
	require.ErrorAs(t, err, &authErr)

	other := auth.Actor{UserID: "A", Role: auth.RoleManager}
	_, err = f.svc.ApproveByManager(ctx, other, e.ID, "not my report", nil)
	require.ErrorAs(t, err, &authErr)

	e, err = f.svc.ApproveByManager(ctx, adminActor, e.ID, "approved on behalf", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusManagerApprovedAwaitingComment, e.Status)

	_, err = f.svc.GetEvaluation(ctx, other, e.ID)
	require.ErrorAs(t, err, &authErr)
}

func TestTransitionValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	e := createdEvaluation(t, f)
	var validation *ValidationError

	_, err := f.svc.SubmitSelfAssessment(ctx, employeeActor, e.ID, nil)
	require.ErrorAs(t, err, &validation)

	_, err = f.svc.SubmitSelfAssessment(ctx, employeeActor, e.ID, map[string]Response{"q1": {Score: 6}})
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "q1", validation.Field)

	_, err = f.svc.SubmitSelfAssessment(ctx, employeeActor, e.ID, map[string]Response{"q1": {Score: 3}})
	require.NoError(t, err)

	_, err = f.svc.ApproveByManager(ctx, managerActor, e.ID, "   ", nil)
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "comment", validation.Field)

	stored, err := f.store.GetEvaluation(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingManagerApproval, stored.Status)
}

func TestSelfAssessmentRejectedAfterDeadline(t *testing.T) {
	f := newFixture()
	e := createdEvaluation(t, f)
	f.svc.now = func() time.Time { return time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC) }

	_, err := f.svc.SubmitSelfAssessment(context.Background(), employeeActor, e.ID, map[string]Response{"q1": {Score: 3}})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "self_assessment_deadline", validation.Field)
}

func TestDeadlineIncludesWholeDay(t *testing.T) {
	deadline := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	assert.False(t, deadlinePassed(deadline, deadline.Add(23*time.Hour)))
	assert.True(t, deadlinePassed(deadline, deadline.Add(24*time.Hour)))
	assert.False(t, deadlinePassed(time.Time{}, deadline))
}

func TestConcurrentApprovalsCommitOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	e := createdEvaluation(t, f)
	_, err := f.svc.SubmitSelfAssessment(ctx, employeeActor, e.ID, map[string]Response{"q1": {Score: 3}})
	require.NoError(t, err)

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ApproveByManager(ctx, managerActor, e.ID, "ok", nil)
			mu.Lock()
			defer mu.Unlock()
			var conflict *ConflictError
			switch {
			case err == nil:
				successes++
			case assert.ErrorAs(t, err, &conflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, conflicts)
}

func TestQuarantinedEvaluationRejectsTransitions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	e := createdEvaluation(t, f)
	at := testNow
	e.QuarantinedAt = &at
	e.QuarantineReason = "evaluator_id missing"
	f.store.setEvaluation(e)

	_, err := f.svc.SubmitSelfAssessment(ctx, employeeActor, e.ID, map[string]Response{"q1": {Score: 3}})
	var defect *IntegrityDefect
	require.ErrorAs(t, err, &defect)
	assert.Equal(t, e.ID, defect.EvaluationID)
}

func TestHardDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	e := createdEvaluation(t, f)

	err := f.svc.HardDelete(ctx, managerActor, e.ID)
	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)

	require.NoError(t, f.svc.HardDelete(ctx, adminActor, e.ID))
	_, err = f.store.GetEvaluation(ctx, e.ID)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, f.publisher.statuses(), StatusDeleted)

	require.ErrorIs(t, f.svc.HardDelete(ctx, adminActor, e.ID), ErrNotFound)
}

func TestGetEvaluationNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.GetEvaluation(context.Background(), adminActor, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
