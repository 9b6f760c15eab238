package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"awards-voting-backend/cache"
	"awards-voting-backend/models"
	"awards-voting-backend/mq"
	"awards-voting-backend/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitBallotScenario(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	b := env.openAwardsBallot(t)

	created, err := env.svc.SubmitBallot(ctx, "voter-a", b.session.ID, b.answers("member-42", "  Go loud  "))
	require.NoError(t, err)
	require.Len(t, created, 2)

	voted, err := env.svc.HasVoted(ctx, "voter-a", b.session.ID)
	require.NoError(t, err)
	assert.True(t, voted)

	mine, err := env.svc.GetMyResponses(ctx, "voter-a", b.session.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, r := range mine {
		switch r.QuestionID {
		case b.mvp.ID:
			require.NotNil(t, r.SelectedMemberID)
			assert.Equal(t, "member-42", *r.SelectedMemberID)
			assert.Nil(t, r.TextAnswer)
			assert.Nil(t, r.SelectedTeamID)
		case b.slogan.ID:
			require.NotNil(t, r.TextAnswer)
			assert.Equal(t, "Go loud", *r.TextAnswer)
			assert.Nil(t, r.SelectedMemberID)
		}
	}

	_, err = env.svc.SubmitBallot(ctx, "voter-a", b.session.ID, b.answers("member-42", "Again"))
	assertKind(t, err, KindConflict)
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	assert.Contains(t, env.events.types(), mq.EventBallotSubmitted)

	_, err = env.svc.CloseSession(ctx, b.session.ID)
	require.NoError(t, err)
	_, err = env.svc.FinalizeSession(ctx, b.session.ID)
	require.NoError(t, err)

	results, err := env.svc.GetResults(ctx, b.session.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), results.TotalVoters)
	require.Len(t, results.Categories, 1)
	questions := results.Categories[0].Questions
	require.Len(t, questions, 2)

	require.Len(t, questions[0].MemberVotes, 1)
	assert.Equal(t, "member-42", questions[0].MemberVotes[0].MemberID)
	assert.Equal(t, "Ada Lovelace", questions[0].MemberVotes[0].MemberName)
	assert.Equal(t, int64(1), questions[0].MemberVotes[0].VoteCount)
	assert.Equal(t, []string{"Go loud"}, questions[1].TextAnswers)
	assert.Equal(t, int64(1), questions[1].TotalResponses)
}

func TestSubmitBallotCompleteness(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	b := env.openAwardsBallot(t)
	member := "member-42"

	_, err := env.svc.SubmitBallot(ctx, "voter-a", b.session.ID, []models.BallotAnswer{
		{QuestionID: b.mvp.ID, SelectedMemberID: &member},
	})
	assertKind(t, err, KindValidation)
	assert.Contains(t, err.Error(), "Best Slogan")

	answers := b.answers(member, "x")
	answers = append(answers, models.BallotAnswer{QuestionID: "ghost", TextAnswer: ptr("boo")})
	_, err = env.svc.SubmitBallot(ctx, "voter-a", b.session.ID, answers)
	assertKind(t, err, KindValidation)
	assert.Contains(t, err.Error(), "ghost")

	_, err = env.svc.SubmitBallot(ctx, "voter-a", b.session.ID, []models.BallotAnswer{
		{QuestionID: b.mvp.ID, SelectedMemberID: &member},
		{QuestionID: b.mvp.ID, SelectedMemberID: &member},
	})
	assertKind(t, err, KindValidation)
	assert.Contains(t, err.Error(), "duplicate")

	voted, err := env.svc.HasVoted(ctx, "voter-a", b.session.ID)
	require.NoError(t, err)
	assert.False(t, voted, "rejected ballots write nothing")
}

func TestSubmitBallotAnswerValidation(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	b := env.openAwardsBallot(t)

	tests := []struct {
		name    string
		answers []models.BallotAnswer
		message string
	}{
		{
			name:    "blank text",
			answers: b.answers("member-42", "   "),
			message: "Best Slogan",
		},
		{
			name: "missing member",
			answers: []models.BallotAnswer{
				{QuestionID: b.mvp.ID, TextAnswer: ptr("member-42")},
				{QuestionID: b.slogan.ID, TextAnswer: ptr("ok")},
			},
			message: "MVP",
		},
		{
			name:    "unknown member",
			answers: b.answers("nobody", "ok"),
			message: "nobody",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.SubmitBallot(ctx, "voter-a", b.session.ID, tt.answers)
			assertKind(t, err, KindValidation)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestSubmitBallotTeamAndEntityAnswers(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	session, err := env.svc.CreateSession(ctx, env.sessionInput())
	require.NoError(t, err)
	category, err := env.svc.CreateCategory(ctx, models.CreateCategoryInput{SessionID: session.ID, Name: "Teams"})
	require.NoError(t, err)
	team, err := env.svc.CreateQuestion(ctx, models.CreateQuestionInput{CategoryID: category.ID, Title: "Team of the Year", AnswerType: models.AnswerTeam})
	require.NoError(t, err)
	venue, err := env.svc.CreateQuestion(ctx, models.CreateQuestionInput{CategoryID: category.ID, Title: "Venue of the Year", AnswerType: models.AnswerVenue, DisplayOrder: ptr(1)})
	require.NoError(t, err)
	_, err = env.svc.OpenSession(ctx, session.ID)
	require.NoError(t, err)

	_, err = env.svc.SubmitBallot(ctx, "voter-a", session.ID, []models.BallotAnswer{
		{QuestionID: team.ID, SelectedTeamID: ptr("team-404")},
		{QuestionID: venue.ID, TextAnswer: ptr("Expo Square")},
	})
	assertKind(t, err, KindValidation)
	assert.Contains(t, err.Error(), "team-404")

	created, err := env.svc.SubmitBallot(ctx, "voter-a", session.ID, []models.BallotAnswer{
		{QuestionID: team.ID, SelectedTeamID: ptr("team-1"), TextAnswer: ptr("ignored")},
		{QuestionID: venue.ID, TextAnswer: ptr("Expo Square")},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "team-1", *created[0].SelectedTeamID)
	assert.Nil(t, created[0].TextAnswer)
	assert.Equal(t, "Expo Square", *created[1].TextAnswer)
}

func TestSubmitBallotEligibility(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	b := env.createAwardsBallot(t)
	answers := b.answers("member-42", "Go loud")

	_, err := env.svc.SubmitBallot(ctx, "voter-a", b.session.ID, answers)
	assertKind(t, err, KindEligibility)

	_, err = env.svc.OpenSession(ctx, b.session.ID)
	require.NoError(t, err)

	_, err = env.svc.SubmitBallot(ctx, "voter-x", b.session.ID, answers)
	assertKind(t, err, KindEligibility)

	_, err = env.svc.SubmitBallot(ctx, "stranger", b.session.ID, answers)
	assertKind(t, err, KindEligibility)

	_, err = env.svc.SubmitBallot(ctx, "", b.session.ID, answers)
	assertKind(t, err, KindEligibility)

	_, err = env.svc.SubmitBallot(ctx, "voter-a", "missing", answers)
	assertKind(t, err, KindNotFound)

	env.clock.Add(25 * time.Hour)
	_, err = env.svc.SubmitBallot(ctx, "voter-a", b.session.ID, answers)
	assertKind(t, err, KindEligibility)
}

func TestSubmitBallotGateFailureIsIneligible(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t, func(o *Options) {
		o.Gate = MembershipGateFunc(func(context.Context, string) (bool, error) {
			return false, errors.New("membership service down")
		})
	})
	b := env.openAwardsBallot(t)

	_, err := env.svc.SubmitBallot(ctx, "voter-a", b.session.ID, b.answers("member-42", "Go loud"))
	assertKind(t, err, KindEligibility)
}

// blindRepo never reports an earlier ballot, so only the unique index can
// stop a second one.
type blindRepo struct {
	repository.VotingRepository
}

func (blindRepo) HasVoted(context.Context, string, string) (bool, error) { return false, nil }

func TestConcurrentSubmissionsCommitOnce(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	b := env.openAwardsBallot(t)
	svc := NewVotingService(blindRepo{env.repo}, env.dir, Options{Clock: env.clock})

	const attempts = 5
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.SubmitBallot(ctx, "voter-b", b.session.ID, b.answers("member-42", "Go loud"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyVoted)
	}
	assert.Equal(t, 1, succeeded)

	var rows int64
	require.NoError(t, env.db.Model(&models.VotingResponse{}).Where("voter_id = ?", "voter-b").Count(&rows).Error)
	assert.Equal(t, int64(2), rows)
}

type busyLocker struct{ calls int }

func (l *busyLocker) WithLock(context.Context, string, func() error) error {
	l.calls++
	return cache.ErrLockNotAcquired
}

type brokenLocker struct{ calls int }

func (l *brokenLocker) WithLock(context.Context, string, func() error) error {
	l.calls++
	return errors.New("acquire lock: dial tcp 127.0.0.1:1: connection refused")
}

type passLocker struct{ names []string }

func (l *passLocker) WithLock(_ context.Context, name string, action func() error) error {
	l.names = append(l.names, name)
	return action()
}

func TestSubmitBallotUsesLock(t *testing.T) {
	ctx := context.Background()

	busy := &busyLocker{}
	env := setupTestEnv(t, func(o *Options) { o.Locker = busy })
	b := env.openAwardsBallot(t)
	_, err := env.svc.SubmitBallot(ctx, "voter-a", b.session.ID, b.answers("member-42", "Go loud"))
	assertKind(t, err, KindConflict)
	assert.Equal(t, 1, busy.calls)

	pass := &passLocker{}
	env = setupTestEnv(t, func(o *Options) { o.Locker = pass })
	b = env.openAwardsBallot(t)
	_, err = env.svc.SubmitBallot(ctx, "voter-a", b.session.ID, b.answers("member-42", "Go loud"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ballot:" + b.session.ID + ":voter-a"}, pass.names)
}

func TestSubmitBallotWithoutLockBackend(t *testing.T) {
	ctx := context.Background()
	broken := &brokenLocker{}
	env := setupTestEnv(t, func(o *Options) { o.Locker = broken })
	b := env.openAwardsBallot(t)

	created, err := env.svc.SubmitBallot(ctx, "voter-a", b.session.ID, b.answers("member-42", "Go loud"))
	require.NoError(t, err, "lock outages do not block voting")
	assert.Len(t, created, 2)
	assert.Equal(t, 1, broken.calls)

	voted, err := env.svc.HasVoted(ctx, "voter-a", b.session.ID)
	require.NoError(t, err)
	assert.True(t, voted)

	_, err = env.svc.SubmitBallot(ctx, "voter-a", b.session.ID, b.answers("member-42", "Again"))
	assert.ErrorIs(t, err, ErrAlreadyVoted)
}
