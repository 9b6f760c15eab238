package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"awards-voting-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultsAccessPolicy(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	b := env.openAwardsBallot(t)

	_, err := env.svc.GetResults(ctx, b.session.ID, false)
	assertKind(t, err, KindNotAvailable)
	_, err = env.svc.GetResults(ctx, b.session.ID, true)
	assertKind(t, err, KindNotAvailable)

	_, err = env.svc.GetResults(ctx, "missing", true)
	assertKind(t, err, KindNotFound)

	_, err = env.svc.SubmitBallot(ctx, "voter-a", b.session.ID, b.answers("member-42", "Go loud"))
	require.NoError(t, err)
	_, err = env.svc.CloseSession(ctx, b.session.ID)
	require.NoError(t, err)

	_, err = env.svc.GetResults(ctx, b.session.ID, false)
	assertKind(t, err, KindNotAvailable)

	preview, err := env.svc.GetResults(ctx, b.session.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), preview.TotalVoters)
	assert.Equal(t, models.StatusClosed, preview.Session.Status)
	assert.Zero(t, env.cache.Len(), "previews are never cached")
}

func TestFinalizedResultsAreCached(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	b := env.openAwardsBallot(t)

	_, err := env.svc.SubmitBallot(ctx, "voter-a", b.session.ID, b.answers("member-42", "Go loud"))
	require.NoError(t, err)
	_, err = env.svc.CloseSession(ctx, b.session.ID)
	require.NoError(t, err)
	_, err = env.svc.FinalizeSession(ctx, b.session.ID)
	require.NoError(t, err)

	first, err := env.svc.GetResults(ctx, b.session.ID, false)
	require.NoError(t, err)
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)

	// a late row written behind the service's back
	require.NoError(t, env.db.Create(&models.VotingResponse{
		SessionID: b.session.ID, QuestionID: b.slogan.ID, VoterID: "voter-b", TextAnswer: ptr("Late entry"),
	}).Error)

	env.clock.Add(4 * time.Minute)
	second, err := env.svc.GetResults(ctx, b.session.ID, false)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))

	env.clock.Add(2 * time.Minute)
	third, err := env.svc.GetResults(ctx, b.session.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), third.TotalVoters)
	assert.Equal(t, []string{"Go loud", "Late entry"}, third.Categories[0].Questions[1].TextAnswers)
}

func TestFinalizeWarmsResultsCache(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	b := env.openAwardsBallot(t)

	_, err := env.svc.SubmitBallot(ctx, "voter-a", b.session.ID, b.answers("member-42", "Go loud"))
	require.NoError(t, err)
	_, err = env.svc.CloseSession(ctx, b.session.ID)
	require.NoError(t, err)
	_, err = env.svc.FinalizeSession(ctx, b.session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, env.cache.Len())

	require.NoError(t, env.db.Create(&models.VotingResponse{
		SessionID: b.session.ID, QuestionID: b.slogan.ID, VoterID: "voter-b", TextAnswer: ptr("Late entry"),
	}).Error)

	results, err := env.svc.GetResults(ctx, b.session.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), results.TotalVoters, "first read is served from the finalize snapshot")
	assert.Equal(t, []string{"Go loud"}, results.Categories[0].Questions[1].TextAnswers)
}

func TestEntityVotesGroupByExactName(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	session, err := env.svc.CreateSession(ctx, env.sessionInput())
	require.NoError(t, err)
	category, err := env.svc.CreateCategory(ctx, models.CreateCategoryInput{SessionID: session.ID, Name: "Business"})
	require.NoError(t, err)
	retailer, err := env.svc.CreateQuestion(ctx, models.CreateQuestionInput{CategoryID: category.ID, Title: "Retailer", AnswerType: models.AnswerRetailer})
	require.NoError(t, err)
	team, err := env.svc.CreateQuestion(ctx, models.CreateQuestionInput{CategoryID: category.ID, Title: "Team", AnswerType: models.AnswerTeam, DisplayOrder: ptr(1)})
	require.NoError(t, err)
	_, err = env.svc.OpenSession(ctx, session.ID)
	require.NoError(t, err)

	for voter, shop := range map[string]string{"voter-a": "Loud Audio", "voter-b": "Loud Audio", "member-42": "loud audio"} {
		_, err := env.svc.SubmitBallot(ctx, voter, session.ID, []models.BallotAnswer{
			{QuestionID: retailer.ID, TextAnswer: ptr(shop)},
			{QuestionID: team.ID, SelectedTeamID: ptr("team-1")},
		})
		require.NoError(t, err, voter)
	}

	_, err = env.svc.CloseSession(ctx, session.ID)
	require.NoError(t, err)
	results, err := env.svc.GetResults(ctx, session.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), results.TotalVoters)

	questions := results.Categories[0].Questions
	assert.Equal(t, []models.EntityVote{
		{Name: "Loud Audio", VoteCount: 2},
		{Name: "loud audio", VoteCount: 1},
	}, questions[0].EntityVotes)
	assert.Equal(t, int64(3), questions[0].TotalResponses)

	require.Len(t, questions[1].TeamVotes, 1)
	assert.Equal(t, "Bass Heads", questions[1].TeamVotes[0].TeamName)
	assert.Equal(t, int64(3), questions[1].TeamVotes[0].VoteCount)
	assert.Equal(t, int64(3), questions[1].TotalResponses)
}

func TestPublicStatus(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	status, err := env.svc.GetPublicStatus(ctx, "")
	require.NoError(t, err)
	assert.False(t, status.HasActiveSession)
	assert.Nil(t, status.SessionID)

	upcoming := env.sessionInput()
	upcoming.Title = "Upcoming"
	upcoming.StartDate = testNow.Add(24 * time.Hour)
	upcoming.EndDate = testNow.Add(48 * time.Hour)
	draft, err := env.svc.CreateSession(ctx, upcoming)
	require.NoError(t, err)

	status, err = env.svc.GetPublicStatus(ctx, "")
	require.NoError(t, err)
	require.True(t, status.HasActiveSession, "cache was invalidated by the create")
	assert.Equal(t, draft.ID, *status.SessionID)
	assert.Equal(t, models.StatusDraft, *status.Status)

	b := env.openAwardsBallot(t)
	status, err = env.svc.GetPublicStatus(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, b.session.ID, *status.SessionID, "open beats upcoming draft")
	assert.Equal(t, models.StatusOpen, *status.Status)
	assert.Nil(t, status.UserHasVoted)

	status, err = env.svc.GetPublicStatus(ctx, "voter-a")
	require.NoError(t, err)
	require.NotNil(t, status.UserHasVoted)
	assert.False(t, *status.UserHasVoted)

	_, err = env.svc.SubmitBallot(ctx, "voter-a", b.session.ID, b.answers("member-42", "Go loud"))
	require.NoError(t, err)
	status, err = env.svc.GetPublicStatus(ctx, "voter-a")
	require.NoError(t, err)
	require.NotNil(t, status.UserHasVoted)
	assert.True(t, *status.UserHasVoted, "per-voter status is never cached")
}

func TestPublicStatusAnonymousCache(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	b := env.openAwardsBallot(t)

	status, err := env.svc.GetPublicStatus(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, *status.Status)

	// bypass the service so the cache is not invalidated
	require.NoError(t, env.db.Model(&models.VotingSession{}).Where("id = ?", b.session.ID).Update("status", models.StatusClosed).Error)

	status, err = env.svc.GetPublicStatus(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, *status.Status, "served from cache")

	env.clock.Add(31 * time.Second)
	status, err = env.svc.GetPublicStatus(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, *status.Status)
}

func TestSearchEntities(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	session, err := env.svc.CreateSession(ctx, env.sessionInput())
	require.NoError(t, err)

	members, err := env.svc.SearchEntities(ctx, models.AnswerMember, "ada", "", 0)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "member-42", members[0].ID)
	assert.Equal(t, "Ada Lovelace", members[0].Name)

	limited, err := env.svc.SearchEntities(ctx, models.AnswerMember, "", "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	teams, err := env.svc.SearchEntities(ctx, models.AnswerTeam, "bass", "", 1000)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "team-1", teams[0].ID)

	venues, err := env.svc.SearchEntities(ctx, models.AnswerVenue, "expo", session.ID, 10)
	require.NoError(t, err)
	require.Len(t, venues, 1)
	assert.Equal(t, "Expo Square", venues[0].Name)

	_, err = env.svc.SearchEntities(ctx, models.AnswerVenue, "expo", "", 10)
	assertKind(t, err, KindValidation)
	_, err = env.svc.SearchEntities(ctx, models.AnswerVenue, "expo", "missing", 10)
	assertKind(t, err, KindNotFound)

	_, err = env.svc.SearchEntities(ctx, models.AnswerText, "x", "", 10)
	assertKind(t, err, KindValidation)
	_, err = env.svc.SearchEntities(ctx, "mascot", "x", "", 10)
	assertKind(t, err, KindValidation)

	assert.Equal(t, maxSearchLimit, env.svc.clampLimit(10000))
	assert.Equal(t, defaultSearchLimit, env.svc.clampLimit(-1))
}
