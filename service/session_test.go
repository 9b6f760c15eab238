package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"awards-voting-backend/models"
	"awards-voting-backend/mq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSessionValidation(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	in := env.sessionInput()
	in.SeasonID = "season-9"
	_, err := env.svc.CreateSession(ctx, in)
	assertKind(t, err, KindValidation)

	in = env.sessionInput()
	in.EndDate = in.StartDate
	_, err = env.svc.CreateSession(ctx, in)
	assertKind(t, err, KindValidation)

	in = env.sessionInput()
	in.Title = strings.Repeat("x", 201)
	_, err = env.svc.CreateSession(ctx, in)
	assertKind(t, err, KindValidation)

	in = env.sessionInput()
	in.Title = "   "
	_, err = env.svc.CreateSession(ctx, in)
	assertKind(t, err, KindValidation)

	in = env.sessionInput()
	in.Title = "  Trimmed  "
	in.Description = ptr("  ")
	session, err := env.svc.CreateSession(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "Trimmed", session.Title)
	assert.Nil(t, session.Description)
	assert.Equal(t, models.StatusDraft, session.Status)
	assert.Empty(t, session.Categories)
	assert.Contains(t, env.events.types(), mq.EventSessionCreated)
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	session, err := env.svc.CreateSession(ctx, env.sessionInput())
	require.NoError(t, err)

	_, err = env.svc.OpenSession(ctx, session.ID)
	assertKind(t, err, KindStatePrecondition)

	category, err := env.svc.CreateCategory(ctx, models.CreateCategoryInput{SessionID: session.ID, Name: "Empty"})
	require.NoError(t, err)
	_, err = env.svc.OpenSession(ctx, session.ID)
	assertKind(t, err, KindStatePrecondition)
	assert.Contains(t, err.Error(), "Empty")

	_, err = env.svc.CreateQuestion(ctx, models.CreateQuestionInput{
		CategoryID: category.ID, Title: "MVP", AnswerType: models.AnswerMember,
	})
	require.NoError(t, err)

	_, err = env.svc.CloseSession(ctx, session.ID)
	assertKind(t, err, KindStatePrecondition)

	opened, err := env.svc.OpenSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, opened.Status)

	_, err = env.svc.OpenSession(ctx, session.ID)
	assertKind(t, err, KindStatePrecondition)
	_, err = env.svc.FinalizeSession(ctx, session.ID)
	assertKind(t, err, KindStatePrecondition)
	assertKind(t, env.svc.DeleteSession(ctx, session.ID), KindStatePrecondition)

	closed, err := env.svc.CloseSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, closed.Status)
	assert.Nil(t, closed.ResultsFinalizedAt)

	finalized, err := env.svc.FinalizeSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinalized, finalized.Status)
	require.NotNil(t, finalized.ResultsFinalizedAt)
	assert.True(t, finalized.ResultsFinalizedAt.Equal(testNow))

	for _, transition := range []func(context.Context, string) (*models.VotingSession, error){
		env.svc.OpenSession, env.svc.CloseSession, env.svc.FinalizeSession,
	} {
		_, err := transition(ctx, session.ID)
		assertKind(t, err, KindStatePrecondition)
	}

	_, err = env.svc.OpenSession(ctx, "missing")
	assertKind(t, err, KindNotFound)

	assert.Equal(t, []mq.EventType{
		mq.EventSessionCreated, mq.EventSessionOpened, mq.EventSessionClosed, mq.EventSessionFinalized,
	}, env.events.types())
}

func TestUpdateSession(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	b := env.createAwardsBallot(t)
	id := b.session.ID

	newStart := testNow.Add(time.Hour)
	newEnd := testNow.Add(48 * time.Hour)
	updated, err := env.svc.UpdateSession(ctx, id, models.UpdateSessionInput{StartDate: &newStart, EndDate: &newEnd})
	require.NoError(t, err)
	assert.True(t, updated.StartDate.Equal(newStart))
	assert.True(t, updated.EndDate.Equal(newEnd))

	backwards := newStart.Add(-2 * time.Hour)
	_, err = env.svc.UpdateSession(ctx, id, models.UpdateSessionInput{EndDate: &backwards})
	assertKind(t, err, KindValidation)

	// reopen the window so the session can open now
	start := testNow.Add(-time.Hour)
	_, err = env.svc.UpdateSession(ctx, id, models.UpdateSessionInput{StartDate: &start})
	require.NoError(t, err)
	_, err = env.svc.OpenSession(ctx, id)
	require.NoError(t, err)

	moved := start.Add(time.Minute)
	_, err = env.svc.UpdateSession(ctx, id, models.UpdateSessionInput{StartDate: &moved})
	assertKind(t, err, KindStatePrecondition)

	shorter := newEnd.Add(-time.Hour)
	_, err = env.svc.UpdateSession(ctx, id, models.UpdateSessionInput{EndDate: &shorter})
	assertKind(t, err, KindStatePrecondition)

	unchanged := newEnd
	_, err = env.svc.UpdateSession(ctx, id, models.UpdateSessionInput{StartDate: &start, EndDate: &unchanged})
	require.NoError(t, err, "resending the current dates is a no-op")

	longer := newEnd.Add(24 * time.Hour)
	updated, err = env.svc.UpdateSession(ctx, id, models.UpdateSessionInput{
		Title:       ptr("Renamed"),
		Description: ptr("Now with a description"),
		EndDate:     &longer,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "Now with a description", *updated.Description)
	assert.True(t, updated.EndDate.Equal(longer))
	assert.Equal(t, models.StatusOpen, updated.Status)

	_, err = env.svc.UpdateSession(ctx, "missing", models.UpdateSessionInput{Title: ptr("x")})
	assertKind(t, err, KindNotFound)
}

func TestDeleteSessionCascadesInDraft(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	b := env.createAwardsBallot(t)

	require.NoError(t, env.svc.DeleteSession(ctx, b.session.ID))
	_, err := env.svc.GetSession(ctx, b.session.ID)
	assertKind(t, err, KindNotFound)

	var questions int64
	require.NoError(t, env.db.Model(&models.VotingQuestion{}).Count(&questions).Error)
	assert.Zero(t, questions)

	assertKind(t, env.svc.DeleteSession(ctx, b.session.ID), KindNotFound)
	assert.Contains(t, env.events.types(), mq.EventSessionDeleted)
}

func TestCloseExpiredSessions(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	b := env.openAwardsBallot(t)

	n, err := env.svc.CloseExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.clock.Add(25 * time.Hour)
	n, err = env.svc.CloseExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	session, err := env.svc.GetSession(ctx, b.session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, session.Status)
}

func TestGetActiveSession(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	active, err := env.svc.GetActiveSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	b := env.openAwardsBallot(t)
	active, err = env.svc.GetActiveSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, b.session.ID, active.ID)
	require.Len(t, active.Categories, 1)
	assert.Len(t, active.Categories[0].Questions, 2)

	env.clock.Add(48 * time.Hour)
	active, err = env.svc.GetActiveSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, active, "window has passed")

	preview, err := env.svc.GetSessionPreview(ctx, b.session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, preview.QuestionCount())
}

func TestGetActiveSessionWithoutTables(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	require.NoError(t, env.db.Migrator().DropTable(&models.VotingQuestion{}, &models.VotingCategory{}, &models.VotingSession{}))

	active, err := env.svc.GetActiveSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	status, err := env.svc.GetPublicStatus(ctx, "")
	require.NoError(t, err)
	assert.False(t, status.HasActiveSession)
}
