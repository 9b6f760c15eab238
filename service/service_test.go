package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"awards-voting-backend/cache"
	"awards-voting-backend/migrations"
	"awards-voting-backend/models"
	"awards-voting-backend/mq"
	"awards-voting-backend/repository"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []mq.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e mq.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []mq.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]mq.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	db     *gorm.DB
	svc    *VotingServiceImpl
	repo   *repository.GormVotingRepository
	dir    *repository.GormDirectoryRepository
	clock  *clock.Mock
	cache  *cache.MemoryCache
	events *recordingPublisher
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrations.Run(db, zap.NewNop()))
	return db
}

func setupTestEnv(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	seedDirectory(t, db)

	mock := clock.NewMock()
	mock.Set(testNow)
	env := &testEnv{
		db:     db,
		repo:   repository.NewVotingRepository(db),
		dir:    repository.NewDirectoryRepository(db),
		clock:  mock,
		cache:  cache.NewMemoryCache(mock),
		events: &recordingPublisher{},
	}
	opts := Options{
		Clock:     mock,
		Cache:     env.cache,
		Publisher: env.events,
		Logger:    zap.NewNop(),
	}
	for _, m := range mutate {
		m(&opts)
	}
	env.svc = NewVotingService(env.repo, env.dir, opts)
	return env
}

func seedDirectory(t *testing.T, db *gorm.DB) {
	t.Helper()
	meca := 42
	require.NoError(t, db.Create(&models.Season{ID: "season-1", Name: "2024"}).Error)
	require.NoError(t, db.Create(&[]models.Profile{
		{ID: "voter-a", FirstName: "Alice", LastName: "Voter", MembershipStatus: models.MembershipActive, Role: models.RoleMember},
		{ID: "voter-b", FirstName: "Bob", LastName: "Voter", MembershipStatus: models.MembershipActive, Role: models.RoleMember},
		{ID: "voter-x", FirstName: "Xavier", LastName: "Lapsed", MembershipStatus: "expired", Role: models.RoleMember},
		{ID: "member-42", FirstName: "Ada", LastName: "Lovelace", MecaID: &meca, MembershipStatus: models.MembershipActive, Role: models.RoleMember},
	}).Error)
	require.NoError(t, db.Create(&models.Team{ID: "team-1", Name: "Bass Heads", IsActive: true}).Error)
	venue := "Expo Square"
	require.NoError(t, db.Create(&models.Event{ID: "event-1", SeasonID: "season-1", Title: "Spring Bash", VenueName: &venue}).Error)
}

func ptr[T any](v T) *T { return &v }

func (e *testEnv) sessionInput() models.CreateSessionInput {
	return models.CreateSessionInput{
		SeasonID:  "season-1",
		Title:     "2024 Awards",
		StartDate: testNow.Add(-time.Hour),
		EndDate:   testNow.Add(24 * time.Hour),
	}
}

// awardsBallot is a DRAFT session with one category "Awards" holding a
// member question "MVP" and a text question "Best Slogan".
type awardsBallot struct {
	session *models.VotingSession
	mvp     *models.VotingQuestion
	slogan  *models.VotingQuestion
}

func (e *testEnv) createAwardsBallot(t *testing.T) awardsBallot {
	t.Helper()
	ctx := context.Background()
	session, err := e.svc.CreateSession(ctx, e.sessionInput())
	require.NoError(t, err)

	category, err := e.svc.CreateCategory(ctx, models.CreateCategoryInput{SessionID: session.ID, Name: "Awards"})
	require.NoError(t, err)
	mvp, err := e.svc.CreateQuestion(ctx, models.CreateQuestionInput{
		CategoryID: category.ID, Title: "MVP", AnswerType: models.AnswerMember, DisplayOrder: ptr(0),
	})
	require.NoError(t, err)
	slogan, err := e.svc.CreateQuestion(ctx, models.CreateQuestionInput{
		CategoryID: category.ID, Title: "Best Slogan", AnswerType: models.AnswerText, DisplayOrder: ptr(1),
	})
	require.NoError(t, err)
	return awardsBallot{session: session, mvp: mvp, slogan: slogan}
}

func (e *testEnv) openAwardsBallot(t *testing.T) awardsBallot {
	t.Helper()
	b := e.createAwardsBallot(t)
	_, err := e.svc.OpenSession(context.Background(), b.session.ID)
	require.NoError(t, err)
	return b
}

func (b awardsBallot) answers(memberID, slogan string) []models.BallotAnswer {
	return []models.BallotAnswer{
		{QuestionID: b.mvp.ID, SelectedMemberID: &memberID},
		{QuestionID: b.slogan.ID, TextAnswer: &slogan},
	}
}

func assertKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, KindOf(err), err.Error())
}

func TestErrorKinds(t *testing.T) {
	err := invalid("bad %s", "input")
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.Equal(t, "bad input", err.Error())

	detailed := &Error{Kind: KindValidation, Message: "ballot incomplete", Details: []string{"a", "b"}}
	assert.Equal(t, "ballot incomplete: a; b", detailed.Error())

	assert.ErrorIs(t, ErrAlreadyVoted, ErrConflict)
	assert.Equal(t, ErrorKind(""), KindOf(assert.AnError))
}

func TestNewVotingServiceDefaults(t *testing.T) {
	db := setupTestDB(t)
	svc := NewVotingService(repository.NewVotingRepository(db), repository.NewDirectoryRepository(db), Options{SearchMaxLimit: 10000})

	assert.Equal(t, 5*time.Minute, svc.resultsTTL)
	assert.Equal(t, 30*time.Second, svc.statusTTL)
	assert.Equal(t, defaultSearchLimit, svc.searchLimit)
	assert.Equal(t, maxSearchLimit, svc.searchMaxLimit)
	assert.NotNil(t, svc.gate)
}
