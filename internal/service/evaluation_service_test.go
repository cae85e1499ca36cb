package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/prepai/prepai-go-api/internal/models"
	"github.com/prepai/prepai-go-api/internal/repository"
	"github.com/prepai/prepai-go-api/internal/worker"
	"github.com/prepai/prepai-go-api/pkg/ai"
)

const validAssessment = `{
  "scores": {"correctness": 8, "completeness": 6, "quality": 7, "communication": 7},
  "feedback": "Good grasp of indexing, but missed covering composite keys.",
  "suggestions": ["Mention composite indexes", "Discuss query planning"]
}`

type stubAssessor struct {
	raw      string
	err      error
	failures int
	calls    int
}

func (s *stubAssessor) Evaluate(ctx context.Context, role, questionText, answerText string) (string, error) {
	s.calls++
	if s.failures > 0 {
		s.failures--
		return "", s.err
	}
	return s.raw, nil
}

type captureScheduler struct {
	tasks []func(ctx context.Context)
	err   error
}

func (c *captureScheduler) Schedule(task func(ctx context.Context)) error {
	if c.err != nil {
		return c.err
	}
	c.tasks = append(c.tasks, task)
	return nil
}

func TestEvaluationServiceCompletesAnswer(t *testing.T) {
	db := setupServiceDB(t)
	answerID, userID := seedPendingAnswer(t, db)

	assessor := &stubAssessor{raw: validAssessment}
	svc := newTestEvaluationService(db, assessor, worker.Synchronous{})

	svc.Schedule(answerID)

	status, err := svc.GetStatus(context.Background(), userID, answerID)
	require.NoError(t, err)
	require.Equal(t, models.EvaluationStatusCompleted, status.Status)
	require.NotNil(t, status.Evaluation)
	require.InDelta(t, 7.0, status.Evaluation.OverallScore, 0.001)
	require.InDelta(t, 8.0, status.Evaluation.Scores[models.ScoreCorrectness], 0.001)
	require.Len(t, status.Evaluation.Suggestions, 2)
	require.Equal(t, 1, assessor.calls)
}

func TestEvaluationServiceRetriesTransientThenFails(t *testing.T) {
	db := setupServiceDB(t)
	answerID, userID := seedPendingAnswer(t, db)

	transient := &ai.Failure{Kind: ai.FailureTransient, Err: errors.New("rate limited")}
	assessor := &stubAssessor{err: transient, failures: 3}
	svc := newTestEvaluationService(db, assessor, worker.Synchronous{})

	var delays []time.Duration
	svc.(*evaluationService).sleep = func(d time.Duration) { delays = append(delays, d) }

	svc.Schedule(answerID)

	require.Equal(t, 3, assessor.calls)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)

	status, err := svc.GetStatus(context.Background(), userID, answerID)
	require.NoError(t, err)
	require.Equal(t, models.EvaluationStatusFailed, status.Status)
	require.Nil(t, status.Evaluation)
}

func TestEvaluationServiceTransientThenSuccess(t *testing.T) {
	db := setupServiceDB(t)
	answerID, userID := seedPendingAnswer(t, db)

	transient := &ai.Failure{Kind: ai.FailureTransient, Err: errors.New("timeout")}
	assessor := &stubAssessor{raw: validAssessment, err: transient, failures: 2}
	svc := newTestEvaluationService(db, assessor, worker.Synchronous{})
	svc.(*evaluationService).sleep = func(time.Duration) {}

	svc.Schedule(answerID)

	require.Equal(t, 3, assessor.calls)
	status, err := svc.GetStatus(context.Background(), userID, answerID)
	require.NoError(t, err)
	require.Equal(t, models.EvaluationStatusCompleted, status.Status)
}

func TestEvaluationServiceFatalFailsImmediately(t *testing.T) {
	db := setupServiceDB(t)
	answerID, userID := seedPendingAnswer(t, db)

	fatal := &ai.Failure{Kind: ai.FailureFatal, Err: errors.New("invalid api key")}
	assessor := &stubAssessor{err: fatal, failures: 3}
	svc := newTestEvaluationService(db, assessor, worker.Synchronous{})

	svc.Schedule(answerID)

	require.Equal(t, 1, assessor.calls, "fatal failures must not be retried")
	status, err := svc.GetStatus(context.Background(), userID, answerID)
	require.NoError(t, err)
	require.Equal(t, models.EvaluationStatusFailed, status.Status)
}

func TestEvaluationServiceUnparseableOutputFails(t *testing.T) {
	db := setupServiceDB(t)
	answerID, userID := seedPendingAnswer(t, db)

	assessor := &stubAssessor{raw: "I think this answer deserves an 8 out of 10."}
	svc := newTestEvaluationService(db, assessor, worker.Synchronous{})

	svc.Schedule(answerID)

	status, err := svc.GetStatus(context.Background(), userID, answerID)
	require.NoError(t, err)
	require.Equal(t, models.EvaluationStatusFailed, status.Status)
}

func TestEvaluationServiceTerminalRecordIsNotReprocessed(t *testing.T) {
	db := setupServiceDB(t)
	answerID, userID := seedPendingAnswer(t, db)

	assessor := &stubAssessor{raw: validAssessment}
	svc := newTestEvaluationService(db, assessor, worker.Synchronous{})

	svc.Schedule(answerID)
	require.Equal(t, 1, assessor.calls)

	svc.Schedule(answerID)
	require.Equal(t, 1, assessor.calls, "terminal record must be a no-op")

	status, err := svc.GetStatus(context.Background(), userID, answerID)
	require.NoError(t, err)
	require.Equal(t, models.EvaluationStatusCompleted, status.Status)
}

func TestEvaluationServiceDeduplicatesInflight(t *testing.T) {
	db := setupServiceDB(t)
	answerID, _ := seedPendingAnswer(t, db)

	scheduler := &captureScheduler{}
	svc := newTestEvaluationService(db, &stubAssessor{raw: validAssessment}, scheduler)

	svc.Schedule(answerID)
	svc.Schedule(answerID)
	require.Len(t, scheduler.tasks, 1, "an in-flight answer must not be scheduled twice")

	scheduler.tasks[0](context.Background())

	svc.Schedule(answerID)
	require.Len(t, scheduler.tasks, 2, "the guard must clear after the run")
}

type blockingAssessor struct {
	raw   string
	gate  chan struct{}
	calls atomic.Int32
}

func (b *blockingAssessor) Evaluate(ctx context.Context, role, questionText, answerText string) (string, error) {
	b.calls.Add(1)
	<-b.gate
	return b.raw, nil
}

func TestEvaluationServiceConcurrentSchedulesRunOnce(t *testing.T) {
	db := setupServiceDB(t)
	answerID, userID := seedPendingAnswer(t, db)

	assessor := &blockingAssessor{raw: validAssessment, gate: make(chan struct{})}
	pool := worker.NewPool(4, zerolog.Nop())
	svc := newTestEvaluationService(db, assessor, pool)

	// The gate holds the first run open while the remaining schedules race
	// against the in-flight guard.
	const attempts = 16
	var start, scheduled sync.WaitGroup
	start.Add(1)
	scheduled.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer scheduled.Done()
			start.Wait()
			svc.Schedule(answerID)
		}()
	}
	start.Done()
	scheduled.Wait()
	close(assessor.gate)
	pool.Stop()

	require.EqualValues(t, 1, assessor.calls.Load(), "concurrent schedules must collapse into one run")

	status, err := svc.GetStatus(context.Background(), userID, answerID)
	require.NoError(t, err)
	require.Equal(t, models.EvaluationStatusCompleted, status.Status)
	require.InDelta(t, 7.0, status.Evaluation.OverallScore, 0.001)
}

func TestEvaluationServiceSchedulerRejectionFailsRecord(t *testing.T) {
	db := setupServiceDB(t)
	answerID, userID := seedPendingAnswer(t, db)

	scheduler := &captureScheduler{err: worker.ErrStopped}
	svc := newTestEvaluationService(db, &stubAssessor{raw: validAssessment}, scheduler)

	svc.Schedule(answerID)

	status, err := svc.GetStatus(context.Background(), userID, answerID)
	require.NoError(t, err)
	require.Equal(t, models.EvaluationStatusFailed, status.Status)
}

func TestEvaluationServiceNilAssessorFailsRecord(t *testing.T) {
	db := setupServiceDB(t)
	answerID, userID := seedPendingAnswer(t, db)

	svc := NewEvaluationService(
		repository.NewEvaluationRepository(db),
		repository.NewAnswerRepository(db),
		nil,
		worker.Synchronous{},
		zerolog.Nop(),
		DefaultRetryPolicy(),
	)

	svc.Schedule(answerID)

	status, err := svc.GetStatus(context.Background(), userID, answerID)
	require.NoError(t, err)
	require.Equal(t, models.EvaluationStatusFailed, status.Status)
}

func TestEvaluationServiceGetStatusAuthorization(t *testing.T) {
	db := setupServiceDB(t)
	answerID, userID := seedPendingAnswer(t, db)

	svc := newTestEvaluationService(db, &stubAssessor{raw: validAssessment}, worker.Synchronous{})

	status, err := svc.GetStatus(context.Background(), userID, answerID)
	require.NoError(t, err)
	require.Equal(t, models.EvaluationStatusPending, status.Status)
	require.Nil(t, status.Evaluation)

	_, err = svc.GetStatus(context.Background(), userID+1, answerID)
	require.ErrorIs(t, err, ErrAnswerForbidden)

	_, err = svc.GetStatus(context.Background(), userID, answerID+999)
	require.ErrorIs(t, err, ErrAnswerNotFound)
}

func TestEvaluationServiceSanitizesModelOutput(t *testing.T) {
	db := setupServiceDB(t)
	answerID, userID := seedPendingAnswer(t, db)

	raw := `{"scores": {"correctness": 9, "completeness": 9, "quality": 9, "communication": 9},
		"feedback": "<script>alert(1)</script>Strong answer overall.",
		"suggestions": ["<b>Keep it up</b>"]}`
	svc := newTestEvaluationService(db, &stubAssessor{raw: raw}, worker.Synchronous{})

	svc.Schedule(answerID)

	status, err := svc.GetStatus(context.Background(), userID, answerID)
	require.NoError(t, err)
	require.Equal(t, models.EvaluationStatusCompleted, status.Status)
	require.Equal(t, "Strong answer overall.", status.Evaluation.Feedback)
	require.Equal(t, []string{"Keep it up"}, status.Evaluation.Suggestions)
}

func newTestEvaluationService(db *gorm.DB, assessor ai.Assessor, scheduler worker.Scheduler) EvaluationService {
	svc := NewEvaluationService(
		repository.NewEvaluationRepository(db),
		repository.NewAnswerRepository(db),
		assessor,
		scheduler,
		zerolog.Nop(),
		DefaultRetryPolicy(),
	)
	svc.(*evaluationService).sleep = func(time.Duration) {}
	return svc
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Interview{}, &models.Question{}, &models.Answer{}, &models.Evaluation{}))
	return db
}

func seedPendingAnswer(t *testing.T, db *gorm.DB) (uint, uint) {
	t.Helper()
	user := models.User{Username: "u-" + t.Name(), Email: t.Name() + "@example.com", HashedPassword: "x"}
	require.NoError(t, db.Create(&user).Error)
	interview := models.Interview{UserID: user.ID, Role: "Backend Engineer"}
	require.NoError(t, db.Create(&interview).Error)
	question := models.Question{InterviewID: interview.ID, QuestionText: "How do database indexes work?", QuestionOrder: 1}
	require.NoError(t, db.Create(&question).Error)
	answer := models.Answer{QuestionID: question.ID, UserID: user.ID, AnswerText: "An index is a sorted structure that speeds up lookups at the cost of writes."}
	require.NoError(t, db.Create(&answer).Error)
	evaluation := models.Evaluation{AnswerID: answer.ID, Status: models.EvaluationStatusPending}
	require.NoError(t, db.Create(&evaluation).Error)
	return answer.ID, user.ID
}
