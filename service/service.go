package service

import (
	"context"
	"time"

	"awards-voting-backend/cache"
	"awards-voting-backend/database"
	"awards-voting-backend/models"
	"awards-voting-backend/mq"
	"awards-voting-backend/repository"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const (
	publicStatusKey    = "status:public"
	resultsKeyPrefix   = "results:"
	statusScanLimit    = 10
	defaultSearchLimit = 20
	maxSearchLimit     = 500
)

func resultsKey(sessionID string) string { return resultsKeyPrefix + sessionID }

// Locker serializes work under a name across processes
type Locker interface {
	WithLock(ctx context.Context, name string, action func() error) error
}

// VotingService is the voting core used by the HTTP handlers
type VotingService interface {
	// Session lifecycle
	CreateSession(ctx context.Context, in models.CreateSessionInput) (*models.VotingSession, error)
	GetSession(ctx context.Context, id string) (*models.VotingSession, error)
	ListSessions(ctx context.Context) ([]models.VotingSession, error)
	UpdateSession(ctx context.Context, id string, in models.UpdateSessionInput) (*models.VotingSession, error)
	DeleteSession(ctx context.Context, id string) error
	OpenSession(ctx context.Context, id string) (*models.VotingSession, error)
	CloseSession(ctx context.Context, id string) (*models.VotingSession, error)
	FinalizeSession(ctx context.Context, id string) (*models.VotingSession, error)
	CloneSession(ctx context.Context, sourceID string, in models.CloneSessionInput) (*models.VotingSession, error)
	SeedTemplate(ctx context.Context, sessionID, template string) (*models.VotingSession, error)
	GetActiveSession(ctx context.Context) (*models.VotingSession, error)
	GetSessionPreview(ctx context.Context, id string) (*models.VotingSession, error)
	CloseExpiredSessions(ctx context.Context) (int, error)

	// Structure
	CreateCategory(ctx context.Context, in models.CreateCategoryInput) (*models.VotingCategory, error)
	UpdateCategory(ctx context.Context, id string, in models.UpdateCategoryInput) (*models.VotingCategory, error)
	DeleteCategory(ctx context.Context, id string) error
	CreateQuestion(ctx context.Context, in models.CreateQuestionInput) (*models.VotingQuestion, error)
	UpdateQuestion(ctx context.Context, id string, in models.UpdateQuestionInput) (*models.VotingQuestion, error)
	MoveQuestion(ctx context.Context, id string, in models.MoveQuestionInput) (*models.VotingQuestion, error)
	DeleteQuestion(ctx context.Context, id string) error

	// Ballots
	SubmitBallot(ctx context.Context, voterID, sessionID string, answers []models.BallotAnswer) ([]models.VotingResponse, error)
	GetMyResponses(ctx context.Context, voterID, sessionID string) ([]models.VotingResponse, error)
	HasVoted(ctx context.Context, voterID, sessionID string) (bool, error)

	// Results and discovery
	GetResults(ctx context.Context, sessionID string, adminPreview bool) (*models.SessionResults, error)
	GetPublicStatus(ctx context.Context, voterID string) (*models.PublicStatus, error)
	SearchEntities(ctx context.Context, answerType models.AnswerType, query, sessionID string, limit int) ([]models.EntitySearchResult, error)
}

// Options carries the collaborators and policy of the service. Zero values
// fall back to working defaults.
type Options struct {
	Clock          clock.Clock
	Cache          cache.Cache
	Gate           MembershipGate
	Publisher      mq.Publisher
	Locker         Locker
	Logger         *zap.Logger
	ResultsTTL     time.Duration
	StatusTTL      time.Duration
	SearchLimit    int
	SearchMaxLimit int
}

// VotingServiceImpl implements VotingService on the repositories
type VotingServiceImpl struct {
	repo      repository.VotingRepository
	directory repository.DirectoryRepository
	gate      MembershipGate
	cache     cache.Cache
	clock     clock.Clock
	publisher mq.Publisher
	locker    Locker
	log       *zap.Logger

	resultsTTL     time.Duration
	statusTTL      time.Duration
	searchLimit    int
	searchMaxLimit int
}

// NewVotingService wires the voting core
func NewVotingService(repo repository.VotingRepository, directory repository.DirectoryRepository, opts Options) *VotingServiceImpl {
	s := &VotingServiceImpl{
		repo:           repo,
		directory:      directory,
		gate:           opts.Gate,
		cache:          opts.Cache,
		clock:          opts.Clock,
		publisher:      opts.Publisher,
		locker:         opts.Locker,
		log:            opts.Logger,
		resultsTTL:     opts.ResultsTTL,
		statusTTL:      opts.StatusTTL,
		searchLimit:    opts.SearchLimit,
		searchMaxLimit: opts.SearchMaxLimit,
	}
	if s.gate == nil {
		s.gate = NewProfileMembershipGate(directory)
	}
	if s.cache == nil {
		s.cache = cache.NopCache{}
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.publisher == nil {
		s.publisher = mq.NopPublisher{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.resultsTTL <= 0 {
		s.resultsTTL = 5 * time.Minute
	}
	if s.statusTTL <= 0 {
		s.statusTTL = 30 * time.Second
	}
	if s.searchLimit <= 0 {
		s.searchLimit = defaultSearchLimit
	}
	if s.searchMaxLimit <= 0 || s.searchMaxLimit > maxSearchLimit {
		s.searchMaxLimit = maxSearchLimit
	}
	s.log = s.log.Named("voting")
	return s
}

func (s *VotingServiceImpl) now() time.Time {
	return s.clock.Now().UTC()
}

// publish delivers an event after commit. Delivery failures never fail
// the operation that produced the event.
func (s *VotingServiceImpl) publish(ctx context.Context, event mq.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("event not delivered",
			zap.String("type", string(event.Type)),
			zap.String("session_id", event.SessionID),
			zap.Error(err))
	}
}

func (s *VotingServiceImpl) invalidateStatus(ctx context.Context) {
	if err := s.cache.Delete(ctx, publicStatusKey); err != nil {
		s.log.Warn("public status cache not invalidated", zap.Error(err))
	}
}

// storeError maps repository failures onto service errors. Missing rows
// become not-found with the given message.
func storeError(err error, what string) error {
	if err == nil {
		return nil
	}
	if repository.IsNotFound(err) {
		return notFound("%s not found", what)
	}
	if database.IsUniqueViolation(err) {
		return newError(KindConflict, "%s already exists", what)
	}
	return err
}
