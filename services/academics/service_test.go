package academics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/lms-backend/internal/observability"
	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/repositories"
	"github.com/upb/lms-backend/repositories/memory"
	"github.com/upb/lms-backend/services"
	"github.com/upb/lms-backend/services/audit"
	"go.uber.org/zap"
)

type fixture struct {
	svc      *Service
	repos    *repositories.Repositories
	auditSvc *audit.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos := memory.NewRepositories()
	logger := zap.NewNop()
	auditSvc := audit.NewService(repos.AuditEvents, audit.NoActor, observability.NewAuditMetrics(nil), logger, audit.DefaultConfig())
	interceptor := audit.NewInterceptor(auditSvc, nil, logger)

	svc := NewService(repos, memory.NewTransactionManager(), interceptor, auditSvc, logger)
	svc.now = func() time.Time { return time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC) }
	return &fixture{svc: svc, repos: repos, auditSvc: auditSvc}
}

func (f *fixture) events(t *testing.T) []*models.AuditEvent {
	t.Helper()
	page := f.auditSvc.Query(context.Background(), models.AuditFilter{}, models.PageRequest{Page: 1, Size: 100})
	return page.Items
}

func yearInput(subjects ...SubjectInput) AcademicYearInput {
	return AcademicYearInput{
		Name:     "2026",
		StartsOn: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		EndsOn:   time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC),
		Active:   true,
		Subjects: subjects,
	}
}

func TestCreateAcademicYear_BatchesAllEvents(t *testing.T) {
	f := newFixture(t)

	year, subjects, err := f.svc.CreateAcademicYear(context.Background(), yearInput(
		SubjectInput{Code: "MAT101", Name: "Calculus I", Credits: 4},
		SubjectInput{Code: "PHY101", Name: "Physics I", Credits: 3},
	))
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, year.ID, *subjects[0].AcademicYearID())

	events := f.events(t)
	require.Len(t, events, 4)

	assert.Equal(t, "Created AcademicYear", events[0].Description)
	assert.Equal(t, "Created Subject", events[1].Description)
	assert.Equal(t, float64(year.ID), events[1].Attributes()["academic_year_id"])
	assert.Equal(t, "Created Subject", events[2].Description)

	manual := events[3]
	assert.Equal(t, LogAcademicYearCreated, manual.LogName)
	assert.Equal(t, "Academic year 2026 created", manual.Description)
	assert.Equal(t, float64(2), manual.Properties["subject_count"])
	assert.Equal(t, []any{"MAT101", "PHY101"}, manual.Properties["subject_codes"])

	require.NotNil(t, events[0].BatchUUID)
	for _, e := range events {
		require.NotNil(t, e.BatchUUID)
		assert.Equal(t, *events[0].BatchUUID, *e.BatchUUID)
	}
}

func TestCreateAcademicYear_JoinsCallerBatch(t *testing.T) {
	f := newFixture(t)

	var outer string
	err := audit.WithBatch(context.Background(), func(ctx context.Context) error {
		outer, _ = audit.BatchIDFromContext(ctx)
		_, _, err := f.svc.CreateAcademicYear(ctx, yearInput())
		return err
	})
	require.NoError(t, err)

	for _, e := range f.events(t) {
		assert.Equal(t, outer, *e.BatchUUID)
	}
}

func TestCreateAcademicYear_FailureRecordsNothing(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.CreateAcademicYear(context.Background(), yearInput(
		SubjectInput{Code: "MAT101", Name: "Calculus I", Credits: 4},
		SubjectInput{Code: "MAT101", Name: "Calculus again", Credits: 4},
	))

	require.Error(t, err)
	assert.True(t, services.IsConflictError(err))
	assert.Empty(t, f.events(t), "automatic events are discarded with the transaction")
}

func TestCreateAcademicYear_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := yearInput()
	in.EndsOn = in.StartsOn
	_, _, err := f.svc.CreateAcademicYear(ctx, in)
	assert.ErrorIs(t, err, services.ErrInvalidDateRange)

	in = yearInput()
	in.Name = "  "
	_, _, err = f.svc.CreateAcademicYear(ctx, in)
	assert.True(t, services.IsValidationError(err))

	_, _, err = f.svc.CreateAcademicYear(ctx, yearInput(SubjectInput{Code: "X", Name: "x", Credits: 0}))
	assert.Equal(t, "credits", services.GetErrorDetails(err)["field"])

	assert.Empty(t, f.events(t))
}

func TestSubjectLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	subject, err := f.svc.CreateSubject(ctx, SubjectInput{Code: " MAT101 ", Name: "Calculus I", Credits: 4})
	require.NoError(t, err)
	assert.Equal(t, "MAT101", subject.Code)
	assert.Nil(t, subject.AcademicYear)

	updated, err := f.svc.UpdateSubject(ctx, subject.ID, SubjectInput{Code: "MAT101", Name: "Calculus 1", Credits: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Credits)

	require.NoError(t, f.svc.DeleteSubject(ctx, subject.ID))

	events := f.events(t)
	require.Len(t, events, 3)
	assert.Equal(t, []string{models.EventCreated, models.EventUpdated, models.EventDeleted},
		[]string{events[0].Event, events[1].Event, events[2].Event})

	old := events[1].Properties["old"].(map[string]any)
	assert.Equal(t, "Calculus I", old["name"])
	assert.Equal(t, float64(5), events[1].Attributes()["credits"])
	assert.Nil(t, events[2].Attributes())

	_, err = f.svc.GetSubject(ctx, subject.ID)
	assert.True(t, services.IsNotFoundError(err))
}

func TestCreateSubject_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	missing := int64(99)
	_, err := f.svc.CreateSubject(ctx, SubjectInput{Code: "MAT101", Name: "Calculus", Credits: 4, AcademicYearID: &missing})
	assert.ErrorIs(t, err, services.ErrAcademicYearNotFound)

	_, err = f.svc.CreateSubject(ctx, SubjectInput{Code: "MAT101", Name: "Calculus", Credits: 4})
	require.NoError(t, err)
	_, err = f.svc.CreateSubject(ctx, SubjectInput{Code: "MAT101", Name: "Other", Credits: 4})
	assert.ErrorIs(t, err, services.ErrDuplicateSubjectCode)

	_, err = f.svc.UpdateSubject(ctx, 42, SubjectInput{Code: "X1", Name: "x", Credits: 1})
	assert.ErrorIs(t, err, services.ErrSubjectNotFound)

	assert.Len(t, f.events(t), 1)
}

func TestListSubjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	year, _, err := f.svc.CreateAcademicYear(ctx, yearInput(SubjectInput{Code: "MAT101", Name: "Calculus I", Credits: 4}))
	require.NoError(t, err)
	_, err = f.svc.CreateSubject(ctx, SubjectInput{Code: "ART100", Name: "Drawing", Credits: 2})
	require.NoError(t, err)

	all, err := f.svc.ListSubjects(ctx, nil, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	inYear, err := f.svc.ListSubjects(ctx, &year.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, inYear, 1)
	assert.Equal(t, "MAT101", inYear[0].Code)

	years, err := f.svc.ListAcademicYears(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, years, 1)
}

func TestQuizLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	subject, err := f.svc.CreateSubject(ctx, SubjectInput{Code: "MAT101", Name: "Calculus I", Credits: 4})
	require.NoError(t, err)

	quiz, err := f.svc.CreateQuiz(ctx, subject.ID, QuizInput{
		Title:     "Limits",
		MaxScore:  5,
		Questions: []QuestionInput{{Prompt: "lim x->0 sin x / x", Points: 5}},
	})
	require.NoError(t, err)
	assert.False(t, quiz.Published)

	withQuizzes, err := f.svc.GetSubject(ctx, subject.ID)
	require.NoError(t, err)
	require.Len(t, withQuizzes.Quizzes, 1)

	t.Run("subject with quizzes cannot be deleted", func(t *testing.T) {
		err := f.svc.DeleteSubject(ctx, subject.ID)
		assert.ErrorIs(t, err, services.ErrStillReferenced)
	})

	published, err := f.svc.PublishQuiz(ctx, quiz.ID)
	require.NoError(t, err)
	assert.True(t, published.Published)
	require.NotNil(t, published.PublishedAt)

	_, err = f.svc.PublishQuiz(ctx, quiz.ID)
	assert.ErrorIs(t, err, services.ErrQuizPublished)

	require.NoError(t, f.svc.DeleteQuiz(ctx, quiz.ID))
	assert.ErrorIs(t, f.svc.DeleteQuiz(ctx, quiz.ID), services.ErrQuizNotFound)

	events := f.events(t)
	require.Len(t, events, 4)
	assert.Equal(t, "Created Quiz", events[1].Description)
	assert.Equal(t, float64(subject.ID), events[1].Attributes()["subject_id"])
	assert.NotContains(t, events[1].Attributes(), "questions")
	assert.Equal(t, "Updated Quiz", events[2].Description)
	assert.Equal(t, true, events[2].Attributes()["published"])
	assert.Equal(t, false, events[2].Properties["old"].(map[string]any)["published"])
	assert.Equal(t, "Deleted Quiz", events[3].Description)
}

func TestCreateQuiz_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateQuiz(ctx, 1, QuizInput{Title: "", MaxScore: 5})
	assert.True(t, services.IsValidationError(err))

	_, err = f.svc.CreateQuiz(ctx, 1, QuizInput{Title: "Limits", MaxScore: 0})
	assert.Equal(t, "max_score", services.GetErrorDetails(err)["field"])

	_, err = f.svc.CreateQuiz(ctx, 1, QuizInput{Title: "Limits", MaxScore: 5})
	assert.True(t, errors.Is(err, services.ErrSubjectNotFound))

	_, err = f.svc.PublishQuiz(ctx, 1)
	assert.ErrorIs(t, err, services.ErrQuizNotFound)

	assert.Empty(t, f.events(t))
}
