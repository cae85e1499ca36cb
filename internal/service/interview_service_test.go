package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/prepai/prepai-go-api/internal/dto"
	"github.com/prepai/prepai-go-api/internal/models"
	"github.com/prepai/prepai-go-api/internal/repository"
)

type stubGenerator struct {
	questions []string
	err       error
}

func (s *stubGenerator) GenerateQuestions(ctx context.Context, role string, numQuestions int) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.questions != nil {
		return s.questions, nil
	}
	out := make([]string, numQuestions)
	for i := range out {
		out[i] = fmt.Sprintf("Question %d about %s", i+1, role)
	}
	return out, nil
}

func newTestInterviewService(db *gorm.DB, generator *stubGenerator) InterviewService {
	return NewInterviewService(
		repository.NewInterviewRepository(db),
		generator,
		validator.New(),
		zerolog.Nop(),
	)
}

func seedUser(t *testing.T, db *gorm.DB) uint {
	t.Helper()
	user := models.User{Username: "iv-" + t.Name(), Email: t.Name() + "-iv@example.com", HashedPassword: "x"}
	require.NoError(t, db.Create(&user).Error)
	return user.ID
}

func TestInterviewServiceCreateOrdersQuestions(t *testing.T) {
	db := setupServiceDB(t)
	userID := seedUser(t, db)

	svc := newTestInterviewService(db, &stubGenerator{})

	created, err := svc.Create(context.Background(), userID, dto.CreateInterviewRequest{Role: "Backend Engineer", NumQuestions: 3})
	require.NoError(t, err)
	require.Len(t, created.Questions, 3)
	for i, question := range created.Questions {
		require.Equal(t, i+1, question.QuestionOrder)
		require.NotZero(t, question.ID)
	}

	fetched, err := svc.Get(context.Background(), userID, created.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Questions, 3)
	require.Equal(t, created.Questions[0].QuestionText, fetched.Questions[0].QuestionText)
}

func TestInterviewServiceCreateValidatesBounds(t *testing.T) {
	db := setupServiceDB(t)
	userID := seedUser(t, db)

	svc := newTestInterviewService(db, &stubGenerator{})

	_, err := svc.Create(context.Background(), userID, dto.CreateInterviewRequest{Role: "QA", NumQuestions: 0})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), userID, dto.CreateInterviewRequest{Role: "QA", NumQuestions: 11})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), userID, dto.CreateInterviewRequest{Role: "", NumQuestions: 3})
	require.Error(t, err)
}

func TestInterviewServiceCreateGeneratorFailure(t *testing.T) {
	db := setupServiceDB(t)
	userID := seedUser(t, db)

	svc := newTestInterviewService(db, &stubGenerator{err: errors.New("model unavailable")})

	_, err := svc.Create(context.Background(), userID, dto.CreateInterviewRequest{Role: "QA", NumQuestions: 3})
	require.Error(t, err)

	interviews, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	require.Empty(t, interviews, "no session should be persisted when generation fails")
}

func TestInterviewServiceGetOwnership(t *testing.T) {
	db := setupServiceDB(t)
	userID := seedUser(t, db)

	svc := newTestInterviewService(db, &stubGenerator{})
	created, err := svc.Create(context.Background(), userID, dto.CreateInterviewRequest{Role: "DevOps", NumQuestions: 2})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), userID+1, created.ID)
	require.ErrorIs(t, err, ErrInterviewForbidden)

	_, err = svc.Get(context.Background(), userID, created.ID+999)
	require.ErrorIs(t, err, ErrInterviewNotFound)
}
