package models

import "time"

// CreateSessionInput defines the structure for creating a new voting session
type CreateSessionInput struct {
	SeasonID    string    `json:"season_id" binding:"required"`
	Title       string    `json:"title" binding:"required"`
	Description *string   `json:"description"`
	StartDate   time.Time `json:"start_date" binding:"required"`
	EndDate     time.Time `json:"end_date" binding:"required"`
}

// CloneSessionInput carries the target season and window for a cloned session
type CloneSessionInput = CreateSessionInput

// UpdateSessionInput defines the structure for updating a session.
// Nil fields are left unchanged.
type UpdateSessionInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

type SeedTemplateInput struct {
	Template string `json:"template" binding:"required"`
}

type CreateCategoryInput struct {
	SessionID    string  `json:"session_id" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	Description  *string `json:"description"`
	DisplayOrder *int    `json:"display_order"`
}

type UpdateCategoryInput struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	DisplayOrder *int    `json:"display_order"`
}

type CreateQuestionInput struct {
	CategoryID   string     `json:"category_id" binding:"required"`
	Title        string     `json:"title" binding:"required"`
	Description  *string    `json:"description"`
	ImageURL     *string    `json:"image_url"`
	AnswerType   AnswerType `json:"answer_type" binding:"required"`
	DisplayOrder *int       `json:"display_order"`
}

// UpdateQuestionInput edits a question. A CategoryID different from the
// current one moves the question, which is only allowed within the session.
type UpdateQuestionInput struct {
	CategoryID   *string     `json:"category_id"`
	Title        *string     `json:"title"`
	Description  *string     `json:"description"`
	ImageURL     *string     `json:"image_url"`
	AnswerType   *AnswerType `json:"answer_type"`
	DisplayOrder *int        `json:"display_order"`
}

type MoveQuestionInput struct {
	CategoryID   string `json:"category_id" binding:"required"`
	DisplayOrder *int   `json:"display_order"`
}

// BallotAnswer is one submitted answer. Which field is read depends on the
// question's answer type.
type BallotAnswer struct {
	QuestionID       string  `json:"question_id"`
	SelectedMemberID *string `json:"selected_member_id"`
	SelectedTeamID   *string `json:"selected_team_id"`
	TextAnswer       *string `json:"text_answer"`
}

type SubmitBallotInput struct {
	Responses []BallotAnswer `json:"responses" binding:"required"`
}

// SessionSummary is the session header embedded in results
type SessionSummary struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	SeasonID    string        `json:"season_id"`
	Status      SessionStatus `json:"status"`
}

type SessionResults struct {
	Session     SessionSummary   `json:"session"`
	Categories  []CategoryResult `json:"categories"`
	TotalVoters int64            `json:"total_voters"`
}

type CategoryResult struct {
	CategoryID          string           `json:"category_id"`
	CategoryName        string           `json:"category_name"`
	CategoryDescription *string          `json:"category_description"`
	Questions           []QuestionResult `json:"questions"`
}

// QuestionResult holds the tally for one question. Only the vote list
// matching the question's answer kind is populated.
type QuestionResult struct {
	QuestionID          string       `json:"question_id"`
	QuestionTitle       string       `json:"question_title"`
	QuestionDescription *string      `json:"question_description"`
	QuestionImageURL    *string      `json:"question_image_url"`
	AnswerType          AnswerType   `json:"answer_type"`
	TotalResponses      int64        `json:"total_responses"`
	MemberVotes         []MemberVote `json:"member_votes,omitempty"`
	TeamVotes           []TeamVote   `json:"team_votes,omitempty"`
	EntityVotes         []EntityVote `json:"entity_votes,omitempty"`
	TextAnswers         []string     `json:"text_answers,omitempty"`
}

type MemberVote struct {
	MemberID        string  `json:"member_id"`
	MemberName      string  `json:"member_name"`
	MemberMecaID    *int    `json:"member_meca_id"`
	MemberAvatarURL *string `json:"member_avatar_url"`
	VoteCount       int64   `json:"vote_count"`
}

type TeamVote struct {
	TeamID      string  `json:"team_id"`
	TeamName    string  `json:"team_name"`
	TeamLogoURL *string `json:"team_logo_url"`
	VoteCount   int64   `json:"vote_count"`
}

// EntityVote tallies a text-entity answer (retailer, manufacturer, venue) by exact name.
type EntityVote struct {
	Name      string `json:"name"`
	VoteCount int64  `json:"vote_count"`
}

// PublicStatus summarizes the session the public site should show.
// UserHasVoted is only set for a known voter while the session is open.
type PublicStatus struct {
	HasActiveSession bool           `json:"has_active_session"`
	SessionID        *string        `json:"session_id"`
	Title            *string        `json:"title"`
	Status           *SessionStatus `json:"status"`
	StartDate        *time.Time     `json:"start_date"`
	EndDate          *time.Time     `json:"end_date"`
	UserHasVoted     *bool          `json:"user_has_voted,omitempty"`
}

// EntitySearchResult is a candidate for an entity picker
type EntitySearchResult struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Subtitle  *string `json:"subtitle,omitempty"`
	MecaID    *int    `json:"meca_id,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// VotedStatus answers the has-voted query
type VotedStatus struct {
	SessionID string `json:"session_id"`
	HasVoted  bool   `json:"has_voted"`
}
