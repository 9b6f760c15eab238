package service

import (
	"context"
	"errors"
	"fmt"

	"awards-voting-backend/cache"
	"awards-voting-backend/database"
	"awards-voting-backend/models"
	"awards-voting-backend/mq"
	"awards-voting-backend/repository"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ErrAlreadyVoted is returned for a second ballot by the same voter
var ErrAlreadyVoted = &Error{Kind: KindConflict, Message: "you have already voted in this session"}

func ballotLockName(sessionID, voterID string) string {
	return fmt.Sprintf("ballot:%s:%s", sessionID, voterID)
}

// SubmitBallot records a complete ballot in one transaction. The ballot
// must answer every question of the session exactly once.
func (s *VotingServiceImpl) SubmitBallot(ctx context.Context, voterID, sessionID string, answers []models.BallotAnswer) ([]models.VotingResponse, error) {
	if voterID == "" {
		return nil, newError(KindEligibility, "a voter is required")
	}
	if s.locker == nil {
		return s.submitBallot(ctx, voterID, sessionID, answers)
	}

	var (
		created []models.VotingResponse
		ran     bool
	)
	err := s.locker.WithLock(ctx, ballotLockName(sessionID, voterID), func() error {
		ran = true
		var err error
		created, err = s.submitBallot(ctx, voterID, sessionID, answers)
		return err
	})
	if ran {
		return created, err
	}
	if errors.Is(err, cache.ErrLockNotAcquired) {
		return nil, newError(KindConflict, "a ballot for this session is already being submitted")
	}
	// the unique (session, question, voter) index still rejects duplicates
	s.log.Warn("ballot lock unavailable, submitting without it",
		zap.String("session_id", sessionID),
		zap.String("voter_id", voterID),
		zap.Error(err))
	return s.submitBallot(ctx, voterID, sessionID, answers)
}

func (s *VotingServiceImpl) submitBallot(ctx context.Context, voterID, sessionID string, answers []models.BallotAnswer) ([]models.VotingResponse, error) {
	session, err := s.repo.GetSessionWithStructure(ctx, sessionID)
	if err != nil {
		return nil, storeError(err, "session")
	}
	if session.Status != models.StatusOpen || !session.InWindow(s.now()) {
		return nil, newError(KindEligibility, "voting session is not open")
	}

	active, err := s.gate.IsActiveMember(ctx, voterID)
	if err != nil {
		s.log.Warn("membership lookup failed", zap.String("voter_id", voterID), zap.Error(err))
		active = false
	}
	if !active {
		return nil, newError(KindEligibility, "only active members can vote")
	}

	voted, err := s.repo.HasVoted(ctx, sessionID, voterID)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, ErrAlreadyVoted
	}

	questions, err := checkCompleteness(session, answers)
	if err != nil {
		return nil, err
	}

	responses := make([]models.VotingResponse, 0, len(answers))
	var memberIDs, teamIDs []string
	for _, a := range answers {
		q := questions[a.QuestionID]
		v, err := checkAnswer(q, a)
		if err != nil {
			return nil, err
		}
		kind := q.AnswerType.Kind()
		switch kind {
		case models.KindProfile:
			memberIDs = append(memberIDs, v)
		case models.KindTeam:
			teamIDs = append(teamIDs, v)
		}

		r := models.VotingResponse{SessionID: sessionID, QuestionID: q.ID, VoterID: voterID}
		answerRules[kind].store(&r, v)
		responses = append(responses, r)
	}

	if err := s.checkReferences(ctx, memberIDs, teamIDs); err != nil {
		return nil, err
	}

	err = s.repo.Transaction(ctx, func(repo repository.VotingRepository) error {
		return repo.CreateResponses(ctx, responses)
	})
	if database.IsUniqueViolation(err) {
		return nil, ErrAlreadyVoted
	}
	if err != nil {
		return nil, err
	}

	e := mq.NewEvent(mq.EventBallotSubmitted, sessionID, s.now())
	e.VoterID = voterID
	s.publish(ctx, e)
	s.log.Info("ballot submitted",
		zap.String("session_id", sessionID),
		zap.String("voter_id", voterID),
		zap.Int("answers", len(responses)))
	return responses, nil
}

// checkCompleteness requires exactly one answer per question of the session.
// It returns the questions keyed by id.
func checkCompleteness(session *models.VotingSession, answers []models.BallotAnswer) (map[string]models.VotingQuestion, error) {
	questions := make(map[string]models.VotingQuestion, session.QuestionCount())
	var ordered []models.VotingQuestion
	for _, c := range session.Categories {
		for _, q := range c.Questions {
			questions[q.ID] = q
			ordered = append(ordered, q)
		}
	}

	seen := make(map[string]bool, len(answers))
	var details []string
	for _, a := range answers {
		if _, ok := questions[a.QuestionID]; !ok {
			details = append(details, fmt.Sprintf("unknown question %s", a.QuestionID))
			continue
		}
		if seen[a.QuestionID] {
			details = append(details, fmt.Sprintf("duplicate answer for question %s", a.QuestionID))
			continue
		}
		seen[a.QuestionID] = true
	}
	for _, q := range ordered {
		if !seen[q.ID] {
			details = append(details, fmt.Sprintf("missing answer for %q (%s)", q.Title, q.ID))
		}
	}

	if len(details) > 0 || len(answers) != len(questions) {
		return nil, &Error{Kind: KindValidation, Message: "ballot must answer every question exactly once", Details: details}
	}
	return questions, nil
}

// checkReferences confirms every selected member and team exists, one
// query per directory.
func (s *VotingServiceImpl) checkReferences(ctx context.Context, memberIDs, teamIDs []string) error {
	memberIDs, teamIDs = lo.Uniq(memberIDs), lo.Uniq(teamIDs)

	if len(memberIDs) > 0 {
		profiles, err := s.directory.FindProfiles(ctx, memberIDs)
		if err != nil {
			return err
		}
		found := lo.SliceToMap(profiles, func(p models.Profile) (string, bool) { return p.ID, true })
		if missing := lo.Reject(memberIDs, func(id string, _ int) bool { return found[id] }); len(missing) > 0 {
			return &Error{Kind: KindValidation, Message: "invalid member selected", Details: missing}
		}
	}

	if len(teamIDs) > 0 {
		teams, err := s.directory.FindTeams(ctx, teamIDs)
		if err != nil {
			return err
		}
		found := lo.SliceToMap(teams, func(t models.Team) (string, bool) { return t.ID, true })
		if missing := lo.Reject(teamIDs, func(id string, _ int) bool { return found[id] }); len(missing) > 0 {
			return &Error{Kind: KindValidation, Message: "invalid team selected", Details: missing}
		}
	}
	return nil
}

// GetMyResponses returns the voter's stored answers for a session
func (s *VotingServiceImpl) GetMyResponses(ctx context.Context, voterID, sessionID string) ([]models.VotingResponse, error) {
	return s.repo.ListVoterResponses(ctx, sessionID, voterID)
}

// HasVoted reports whether the voter already submitted a ballot for the session
func (s *VotingServiceImpl) HasVoted(ctx context.Context, voterID, sessionID string) (bool, error) {
	return s.repo.HasVoted(ctx, sessionID, voterID)
}
