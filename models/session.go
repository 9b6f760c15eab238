package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionStatus is the lifecycle state of a voting session.
// It only ever moves forward: draft -> open -> closed -> finalized.
type SessionStatus string

const (
	StatusDraft     SessionStatus = "draft"
	StatusOpen      SessionStatus = "open"
	StatusClosed    SessionStatus = "closed"
	StatusFinalized SessionStatus = "finalized"
)

// VotingSession is one complete awards-voting event
type VotingSession struct {
	ID                 string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	SeasonID           string           `gorm:"type:varchar(36);not null;index" json:"season_id"`
	Title              string           `gorm:"type:varchar(200);not null" json:"title"`
	Description        *string          `gorm:"type:text" json:"description"`
	StartDate          time.Time        `gorm:"not null" json:"start_date"`
	EndDate            time.Time        `gorm:"not null" json:"end_date"`
	Status             SessionStatus    `gorm:"type:varchar(20);not null;default:draft;index" json:"status"`
	ResultsFinalizedAt *time.Time       `json:"results_finalized_at"`
	Categories         []VotingCategory `gorm:"foreignKey:SessionID" json:"categories,omitempty"`
	CreatedAt          time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

func (VotingSession) TableName() string { return "voting_sessions" }

func (s *VotingSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// InWindow reports whether t falls inside [StartDate, EndDate].
func (s *VotingSession) InWindow(t time.Time) bool {
	return !t.Before(s.StartDate) && !t.After(s.EndDate)
}

// QuestionCount returns the number of questions across all loaded categories.
func (s *VotingSession) QuestionCount() int {
	n := 0
	for _, c := range s.Categories {
		n += len(c.Questions)
	}
	return n
}

// VotingCategory groups questions inside a session
type VotingCategory struct {
	ID           string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	SessionID    string           `gorm:"type:varchar(36);not null;index" json:"session_id"`
	Name         string           `gorm:"type:varchar(200);not null" json:"name"`
	Description  *string          `gorm:"type:text" json:"description"`
	DisplayOrder int              `gorm:"not null;default:0" json:"display_order"`
	Questions    []VotingQuestion `gorm:"foreignKey:CategoryID" json:"questions,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

func (VotingCategory) TableName() string { return "voting_categories" }

func (c *VotingCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// VotingQuestion is a single award on the ballot
type VotingQuestion struct {
	ID           string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	CategoryID   string     `gorm:"type:varchar(36);not null;index" json:"category_id"`
	Title        string     `gorm:"type:varchar(500);not null" json:"title"`
	Description  *string    `gorm:"type:text" json:"description"`
	ImageURL     *string    `gorm:"type:varchar(1000)" json:"image_url"`
	AnswerType   AnswerType `gorm:"type:varchar(32);not null" json:"answer_type"`
	DisplayOrder int        `gorm:"not null;default:0" json:"display_order"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (VotingQuestion) TableName() string { return "voting_questions" }

func (q *VotingQuestion) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// VotingResponse is one voter's answer to one question. Rows are immutable.
// Exactly one of SelectedMemberID, SelectedTeamID and TextAnswer is set,
// depending on the question's answer kind.
type VotingResponse struct {
	ID               string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	SessionID        string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_voting_responses_ballot,priority:1;index:idx_voting_responses_voter,priority:1" json:"session_id"`
	QuestionID       string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_voting_responses_ballot,priority:2;index" json:"question_id"`
	VoterID          string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_voting_responses_ballot,priority:3;index:idx_voting_responses_voter,priority:2" json:"voter_id"`
	SelectedMemberID *string   `gorm:"type:varchar(36);index" json:"selected_member_id"`
	SelectedTeamID   *string   `gorm:"type:varchar(36);index" json:"selected_team_id"`
	TextAnswer       *string   `gorm:"type:varchar(500)" json:"text_answer"`
	CreatedAt        time.Time `json:"created_at"`
}

func (VotingResponse) TableName() string { return "voting_responses" }

func (r *VotingResponse) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
