package repository

import (
	"context"
	"errors"
	"time"

	"awards-voting-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a looked-up row does not exist
var ErrNotFound = gorm.ErrRecordNotFound

// MemberTally is one grouped row of profile-backed votes
type MemberTally struct {
	MemberID  string
	FirstName string
	LastName  string
	MecaID    *int
	AvatarURL *string
	VoteCount int64
}

// TeamTally is one grouped row of team votes
type TeamTally struct {
	TeamID    string
	TeamName  string
	LogoURL   *string
	VoteCount int64
}

// VotingRepository is the structure and response store of the voting core.
type VotingRepository interface {
	// Transaction runs fn against a repository bound to a single database
	// transaction. Returning an error rolls everything back.
	Transaction(ctx context.Context, fn func(repo VotingRepository) error) error

	// Sessions
	GetSession(ctx context.Context, id string) (*models.VotingSession, error)
	GetSessionForUpdate(ctx context.Context, id string) (*models.VotingSession, error)
	GetSessionWithStructure(ctx context.Context, id string) (*models.VotingSession, error)
	ListSessionsWithStructure(ctx context.Context) ([]models.VotingSession, error)
	RecentSessions(ctx context.Context, limit int) ([]models.VotingSession, error)
	FindOpenSession(ctx context.Context, now time.Time) (*models.VotingSession, error)
	ListExpiredOpenSessions(ctx context.Context, now time.Time) ([]models.VotingSession, error)
	CreateSession(ctx context.Context, session *models.VotingSession) error
	UpdateSession(ctx context.Context, session *models.VotingSession) error
	DeleteSession(ctx context.Context, id string) error

	// Categories
	CountCategories(ctx context.Context, sessionID string) (int64, error)
	GetCategory(ctx context.Context, id string) (*models.VotingCategory, error)
	CreateCategory(ctx context.Context, category *models.VotingCategory) error
	UpdateCategory(ctx context.Context, category *models.VotingCategory) error
	DeleteCategory(ctx context.Context, id string) error

	// Questions
	GetQuestion(ctx context.Context, id string) (*models.VotingQuestion, error)
	CreateQuestion(ctx context.Context, question *models.VotingQuestion) error
	UpdateQuestion(ctx context.Context, question *models.VotingQuestion) error
	DeleteQuestion(ctx context.Context, id string) error

	// Responses
	CreateResponses(ctx context.Context, responses []models.VotingResponse) error
	HasVoted(ctx context.Context, sessionID, voterID string) (bool, error)
	ListVoterResponses(ctx context.Context, sessionID, voterID string) ([]models.VotingResponse, error)

	// Aggregation
	CountDistinctVoters(ctx context.Context, sessionID string) (int64, error)
	TallyMembers(ctx context.Context, questionID string) ([]MemberTally, error)
	TallyTeams(ctx context.Context, questionID string) ([]TeamTally, error)
	ListTextAnswers(ctx context.Context, questionID string) ([]string, error)
}

// GormVotingRepository implements VotingRepository on gorm
type GormVotingRepository struct {
	db *gorm.DB
}

// NewVotingRepository creates a gorm-backed VotingRepository
func NewVotingRepository(db *gorm.DB) *GormVotingRepository {
	return &GormVotingRepository{db: db}
}

func presentationOrder(db *gorm.DB) *gorm.DB {
	return db.Order("display_order ASC").Order("created_at ASC").Order("id ASC")
}

func withStructure(db *gorm.DB) *gorm.DB {
	return db.Preload("Categories", presentationOrder).Preload("Categories.Questions", presentationOrder)
}

// Transaction runs fn with a repository bound to one database transaction
func (r *GormVotingRepository) Transaction(ctx context.Context, fn func(repo VotingRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormVotingRepository{db: tx})
	})
}

func (r *GormVotingRepository) GetSession(ctx context.Context, id string) (*models.VotingSession, error) {
	var session models.VotingSession
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSessionForUpdate reads the session row with a row lock where the
// dialect supports one, so concurrent lifecycle writes serialize.
func (r *GormVotingRepository) GetSessionForUpdate(ctx context.Context, id string) (*models.VotingSession, error) {
	var session models.VotingSession
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&session, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *GormVotingRepository) GetSessionWithStructure(ctx context.Context, id string) (*models.VotingSession, error) {
	var session models.VotingSession
	if err := withStructure(r.db.WithContext(ctx)).First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *GormVotingRepository) ListSessionsWithStructure(ctx context.Context) ([]models.VotingSession, error) {
	var sessions []models.VotingSession
	err := withStructure(r.db.WithContext(ctx)).
		Order("created_at DESC").Order("id DESC").
		Find(&sessions).Error
	return sessions, err
}

// RecentSessions returns the newest sessions first, without structure
func (r *GormVotingRepository) RecentSessions(ctx context.Context, limit int) ([]models.VotingSession, error) {
	var sessions []models.VotingSession
	err := r.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

// FindOpenSession returns the open session whose window contains now, with structure.
func (r *GormVotingRepository) FindOpenSession(ctx context.Context, now time.Time) (*models.VotingSession, error) {
	var session models.VotingSession
	err := withStructure(r.db.WithContext(ctx)).
		Where("status = ? AND start_date <= ? AND end_date >= ?", models.StatusOpen, now, now).
		Order("start_date DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ListExpiredOpenSessions returns open sessions whose end date is before now
func (r *GormVotingRepository) ListExpiredOpenSessions(ctx context.Context, now time.Time) ([]models.VotingSession, error) {
	var sessions []models.VotingSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_date < ?", models.StatusOpen, now).
		Find(&sessions).Error
	return sessions, err
}

func (r *GormVotingRepository) CreateSession(ctx context.Context, session *models.VotingSession) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(session).Error
}

func (r *GormVotingRepository) UpdateSession(ctx context.Context, session *models.VotingSession) error {
	return r.db.WithContext(ctx).Model(session).
		Select("title", "description", "start_date", "end_date", "status", "results_finalized_at", "updated_at").
		Updates(session).Error
}

// DeleteSession removes a session and its structure, children first.
// Callers wrap it in Transaction for atomicity.
func (r *GormVotingRepository) DeleteSession(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	categoryIDs := db.Model(&models.VotingCategory{}).Select("id").Where("session_id = ?", id)

	if err := db.Where("category_id IN (?)", categoryIDs).Delete(&models.VotingQuestion{}).Error; err != nil {
		return err
	}
	if err := db.Where("session_id = ?", id).Delete(&models.VotingResponse{}).Error; err != nil {
		return err
	}
	if err := db.Where("session_id = ?", id).Delete(&models.VotingCategory{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", id).Delete(&models.VotingSession{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormVotingRepository) CountCategories(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.VotingCategory{}).Where("session_id = ?", sessionID).Count(&n).Error
	return n, err
}

func (r *GormVotingRepository) GetCategory(ctx context.Context, id string) (*models.VotingCategory, error) {
	var category models.VotingCategory
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *GormVotingRepository) CreateCategory(ctx context.Context, category *models.VotingCategory) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(category).Error
}

func (r *GormVotingRepository) UpdateCategory(ctx context.Context, category *models.VotingCategory) error {
	return r.db.WithContext(ctx).Model(category).
		Select("name", "description", "display_order").
		Updates(category).Error
}

func (r *GormVotingRepository) DeleteCategory(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("category_id = ?", id).Delete(&models.VotingQuestion{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", id).Delete(&models.VotingCategory{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormVotingRepository) GetQuestion(ctx context.Context, id string) (*models.VotingQuestion, error) {
	var question models.VotingQuestion
	if err := r.db.WithContext(ctx).First(&question, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *GormVotingRepository) CreateQuestion(ctx context.Context, question *models.VotingQuestion) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *GormVotingRepository) UpdateQuestion(ctx context.Context, question *models.VotingQuestion) error {
	return r.db.WithContext(ctx).Model(question).
		Select("category_id", "title", "description", "image_url", "answer_type", "display_order").
		Updates(question).Error
}

func (r *GormVotingRepository) DeleteQuestion(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.VotingQuestion{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormVotingRepository) CreateResponses(ctx context.Context, responses []models.VotingResponse) error {
	if len(responses) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&responses).Error
}

func (r *GormVotingRepository) HasVoted(ctx context.Context, sessionID, voterID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.VotingResponse{}).
		Where("session_id = ? AND voter_id = ?", sessionID, voterID).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}

func (r *GormVotingRepository) ListVoterResponses(ctx context.Context, sessionID, voterID string) ([]models.VotingResponse, error) {
	var responses []models.VotingResponse
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND voter_id = ?", sessionID, voterID).
		Order("created_at ASC").Order("id ASC").
		Find(&responses).Error
	return responses, err
}

func (r *GormVotingRepository) CountDistinctVoters(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.VotingResponse{}).
		Where("session_id = ?", sessionID).
		Distinct("voter_id").
		Count(&n).Error
	return n, err
}

func (r *GormVotingRepository) TallyMembers(ctx context.Context, questionID string) ([]MemberTally, error) {
	var rows []MemberTally
	err := r.db.WithContext(ctx).
		Table("voting_responses AS vr").
		Select("vr.selected_member_id AS member_id, COUNT(*) AS vote_count, " +
			"COALESCE(p.first_name, '') AS first_name, COALESCE(p.last_name, '') AS last_name, " +
			"p.meca_id AS meca_id, p.avatar_url AS avatar_url").
		Joins("JOIN profiles p ON p.id = vr.selected_member_id").
		Where("vr.question_id = ? AND vr.selected_member_id IS NOT NULL", questionID).
		Group("vr.selected_member_id, p.first_name, p.last_name, p.meca_id, p.avatar_url").
		Order("vote_count DESC").Order("first_name ASC").Order("last_name ASC").Order("member_id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *GormVotingRepository) TallyTeams(ctx context.Context, questionID string) ([]TeamTally, error) {
	var rows []TeamTally
	err := r.db.WithContext(ctx).
		Table("voting_responses AS vr").
		Select("vr.selected_team_id AS team_id, COUNT(*) AS vote_count, t.name AS team_name, t.logo_url AS logo_url").
		Joins("JOIN teams t ON t.id = vr.selected_team_id").
		Where("vr.question_id = ? AND vr.selected_team_id IS NOT NULL", questionID).
		Group("vr.selected_team_id, t.name, t.logo_url").
		Order("vote_count DESC").Order("team_name ASC").Order("team_id ASC").
		Scan(&rows).Error
	return rows, err
}

// ListTextAnswers returns the non-empty text answers of a question in submission order.
func (r *GormVotingRepository) ListTextAnswers(ctx context.Context, questionID string) ([]string, error) {
	answers := []string{}
	err := r.db.WithContext(ctx).Model(&models.VotingResponse{}).
		Where("question_id = ? AND text_answer IS NOT NULL AND text_answer <> ''", questionID).
		Order("created_at ASC").Order("id ASC").
		Pluck("text_answer", &answers).Error
	return answers, err
}

// IsNotFound reports whether err is a missing-row error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
