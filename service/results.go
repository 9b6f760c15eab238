package service

import (
	"context"
	"errors"

	"awards-voting-backend/cache"
	"awards-voting-backend/database"
	"awards-voting-backend/models"

	"go.uber.org/zap"
)

// GetResults tallies a session. Public callers only see FINALIZED sessions;
// an admin preview may also see CLOSED ones. Finalized results are cached.
func (s *VotingServiceImpl) GetResults(ctx context.Context, sessionID string, adminPreview bool) (*models.SessionResults, error) {
	var cached models.SessionResults
	err := cache.GetJSON(ctx, s.cache, resultsKey(sessionID), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrKeyNotFound) {
		s.log.Warn("results cache read failed", zap.String("session_id", sessionID), zap.Error(err))
	}

	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, storeError(err, "session")
	}
	switch {
	case session.Status == models.StatusFinalized:
	case adminPreview && session.Status == models.StatusClosed:
	case adminPreview:
		return nil, newError(KindNotAvailable, "results can be previewed once the session is closed")
	default:
		return nil, newError(KindNotAvailable, "results are not yet available")
	}
	return s.computeResults(ctx, sessionID, session.Status == models.StatusFinalized)
}

// computeResults builds the tally and, when store is set, caches it.
func (s *VotingServiceImpl) computeResults(ctx context.Context, sessionID string, store bool) (*models.SessionResults, error) {
	session, err := s.repo.GetSessionWithStructure(ctx, sessionID)
	if err != nil {
		return nil, storeError(err, "session")
	}

	voters, err := s.repo.CountDistinctVoters(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	results := &models.SessionResults{
		Session: models.SessionSummary{
			ID:          session.ID,
			Title:       session.Title,
			Description: session.Description,
			SeasonID:    session.SeasonID,
			Status:      session.Status,
		},
		Categories:  make([]models.CategoryResult, 0, len(session.Categories)),
		TotalVoters: voters,
	}

	for _, c := range session.Categories {
		cr := models.CategoryResult{
			CategoryID:          c.ID,
			CategoryName:        c.Name,
			CategoryDescription: c.Description,
			Questions:           make([]models.QuestionResult, 0, len(c.Questions)),
		}
		for _, q := range c.Questions {
			qr := models.QuestionResult{
				QuestionID:          q.ID,
				QuestionTitle:       q.Title,
				QuestionDescription: q.Description,
				QuestionImageURL:    q.ImageURL,
				AnswerType:          q.AnswerType,
			}
			if rule, ok := answerRules[q.AnswerType.Kind()]; ok {
				if err := rule.tally(ctx, s.repo, q, &qr); err != nil {
					return nil, err
				}
			}
			cr.Questions = append(cr.Questions, qr)
		}
		results.Categories = append(results.Categories, cr)
	}

	if store {
		if err := cache.SetJSON(ctx, s.cache, resultsKey(sessionID), results, s.resultsTTL); err != nil {
			s.log.Warn("results not cached", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	return results, nil
}

// GetPublicStatus reports which session the public site should show. The
// anonymous view is cached; a voter's view adds user_has_voted and is not.
func (s *VotingServiceImpl) GetPublicStatus(ctx context.Context, voterID string) (*models.PublicStatus, error) {
	if voterID == "" {
		var cached models.PublicStatus
		if err := cache.GetJSON(ctx, s.cache, publicStatusKey, &cached); err == nil {
			return &cached, nil
		}
	}

	sessions, err := s.repo.RecentSessions(ctx, statusScanLimit)
	if database.IsUndefinedTable(err) {
		s.log.Warn("voting tables missing, reporting no session", zap.Error(err))
		return &models.PublicStatus{}, nil
	}
	if err != nil {
		return nil, err
	}

	status := &models.PublicStatus{}
	if current := s.pickPublicSession(sessions); current != nil {
		id, title, st := current.ID, current.Title, current.Status
		start, end := current.StartDate, current.EndDate
		status.HasActiveSession = true
		status.SessionID = &id
		status.Title = &title
		status.Status = &st
		status.StartDate = &start
		status.EndDate = &end
	}

	if voterID == "" {
		if err := cache.SetJSON(ctx, s.cache, publicStatusKey, status, s.statusTTL); err != nil {
			s.log.Warn("public status not cached", zap.Error(err))
		}
		return status, nil
	}

	if status.Status != nil && *status.Status == models.StatusOpen {
		voted, err := s.repo.HasVoted(ctx, *status.SessionID, voterID)
		if err != nil {
			return nil, err
		}
		status.UserHasVoted = &voted
	}
	return status, nil
}

// pickPublicSession prefers an open session, then closed, then finalized,
// then an upcoming draft. Within each group the newest session wins.
func (s *VotingServiceImpl) pickPublicSession(sessions []models.VotingSession) *models.VotingSession {
	now := s.now()
	for _, status := range []models.SessionStatus{models.StatusOpen, models.StatusClosed, models.StatusFinalized} {
		for i := range sessions {
			if sessions[i].Status == status {
				return &sessions[i]
			}
		}
	}
	for i := range sessions {
		if sessions[i].Status == models.StatusDraft && sessions[i].StartDate.After(now) {
			return &sessions[i]
		}
	}
	return nil
}
