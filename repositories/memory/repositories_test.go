package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/repositories"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	ann := models.NewUser("Ann", "ann@upb.edu.co", &models.Role{ID: 3, Name: models.RoleStudent})
	require.NoError(t, repo.Create(ctx, ann))
	assert.Equal(t, int64(1), ann.ID)

	t.Run("reads are copies", func(t *testing.T) {
		got, err := repo.GetByID(ctx, ann.ID)
		require.NoError(t, err)
		got.Name = "changed"
		got.Role.Name = "changed"

		again, err := repo.GetByID(ctx, ann.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ann", again.Name)
		assert.Equal(t, models.RoleStudent, again.Role.Name)
	})

	t.Run("email is unique", func(t *testing.T) {
		err := repo.Create(ctx, models.NewUser("Other", "ANN@upb.edu.co", nil))
		assert.ErrorIs(t, err, repositories.ErrConflict)

		bob := models.NewUser("Bob", "bob@upb.edu.co", nil)
		require.NoError(t, repo.Create(ctx, bob))
		bob.Email = ann.Email
		assert.ErrorIs(t, repo.Update(ctx, bob), repositories.ErrConflict)
	})

	t.Run("get by email", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, "ann@upb.edu.co")
		require.NoError(t, err)
		assert.Equal(t, ann.ID, got.ID)

		_, err = repo.GetByEmail(ctx, "nobody@upb.edu.co")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("list pages by id", func(t *testing.T) {
		users, err := repo.List(ctx, 1, 1)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "Bob", users[0].Name)

		users, err = repo.List(ctx, 10, 5)
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, ann.ID))
		assert.ErrorIs(t, repo.Delete(ctx, ann.ID), repositories.ErrNotFound)
		assert.ErrorIs(t, repo.Update(ctx, ann), repositories.ErrNotFound)
	})
}

func TestAcademicRepositories(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories()

	year := &models.AcademicYear{Name: "2026"}
	require.NoError(t, repos.AcademicYears.Create(ctx, year))

	calculus := &models.Subject{Code: "MAT101", Name: "Calculus I", Credits: 4, AcademicYear: year}
	require.NoError(t, repos.Subjects.Create(ctx, calculus))

	t.Run("subject code is unique", func(t *testing.T) {
		err := repos.Subjects.Create(ctx, &models.Subject{Code: "MAT101", Name: "dup", Credits: 1})
		assert.ErrorIs(t, err, repositories.ErrConflict)
	})

	t.Run("subject needs an existing year", func(t *testing.T) {
		err := repos.Subjects.Create(ctx, &models.Subject{Code: "PHY101", Credits: 3, AcademicYear: &models.AcademicYear{ID: 99}})
		assert.ErrorIs(t, err, repositories.ErrConflict)
	})

	t.Run("list by academic year", func(t *testing.T) {
		subjects, err := repos.Subjects.ListByAcademicYear(ctx, year.ID)
		require.NoError(t, err)
		require.Len(t, subjects, 1)
		assert.Equal(t, "MAT101", subjects[0].Code)

		subjects, err = repos.Subjects.ListByAcademicYear(ctx, 99)
		require.NoError(t, err)
		assert.Empty(t, subjects)
	})

	quiz := &models.Quiz{Title: "Limits", MaxScore: 5, Subject: calculus,
		Questions: []models.Question{{Prompt: "lim x->0 sin x / x", Points: 5}}}
	require.NoError(t, repos.Quizzes.Create(ctx, quiz))

	t.Run("quiz needs an existing subject", func(t *testing.T) {
		err := repos.Quizzes.Create(ctx, &models.Quiz{Title: "orphan", Subject: &models.Subject{ID: 99}})
		assert.ErrorIs(t, err, repositories.ErrConflict)
		err = repos.Quizzes.Create(ctx, &models.Quiz{Title: "orphan"})
		assert.ErrorIs(t, err, repositories.ErrConflict)
	})

	t.Run("questions are copied", func(t *testing.T) {
		got, err := repos.Quizzes.GetByID(ctx, quiz.ID)
		require.NoError(t, err)
		got.Questions[0].Prompt = "changed"

		again, err := repos.Quizzes.GetByID(ctx, quiz.ID)
		require.NoError(t, err)
		assert.Equal(t, "lim x->0 sin x / x", again.Questions[0].Prompt)
	})

	t.Run("subject with quizzes cannot be deleted", func(t *testing.T) {
		err := repos.Subjects.Delete(ctx, calculus.ID)
		assert.ErrorIs(t, err, repositories.ErrConflict)

		require.NoError(t, repos.Quizzes.Delete(ctx, quiz.ID))
		require.NoError(t, repos.Subjects.Delete(ctx, calculus.ID))
	})
}

func TestRoleRepository(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories()

	admin, err := repos.Roles.GetByName(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), admin.ID)

	teacher, err := repos.Roles.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, teacher.Name)

	_, err = repos.Roles.GetByName(ctx, "dean")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = repos.Roles.GetByID(ctx, 42)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestTransactionManager(t *testing.T) {
	ctx := context.Background()
	manager := NewTransactionManager()

	t.Run("hooks run after commit in order", func(t *testing.T) {
		var calls []int
		err := manager.InTransaction(ctx, func(ctx context.Context, tx repositories.Transaction) error {
			carried, ok := repositories.TransactionFromContext(ctx)
			require.True(t, ok)
			assert.Same(t, tx, carried)

			tx.AfterCommit(func(context.Context) { calls = append(calls, 1) })
			tx.AfterCommit(func(context.Context) { calls = append(calls, 2) })
			assert.Empty(t, calls)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, calls)
	})

	t.Run("error drops hooks", func(t *testing.T) {
		ran := false
		boom := errors.New("boom")
		err := manager.InTransaction(ctx, func(ctx context.Context, tx repositories.Transaction) error {
			tx.AfterCommit(func(context.Context) { ran = true })
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.False(t, ran)
	})

	t.Run("finished transaction", func(t *testing.T) {
		tx, err := manager.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())

		ran := false
		tx.AfterCommit(func(context.Context) { ran = true })
		assert.ErrorIs(t, tx.Commit(), ErrTransactionDone)
		assert.False(t, ran)
		assert.NoError(t, tx.Rollback())
	})
}
