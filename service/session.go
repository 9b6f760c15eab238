package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"awards-voting-backend/database"
	"awards-voting-backend/models"
	"awards-voting-backend/mq"
	"awards-voting-backend/repository"

	"go.uber.org/zap"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 2000
)

func validateTitle(field, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", invalid("%s is required", field)
	}
	if len([]rune(title)) > maxTitleLength {
		return "", invalid("%s must be at most %d characters", field, maxTitleLength)
	}
	return title, nil
}

// normalizeDescription trims a description and turns an empty one into nil
func normalizeDescription(desc *string) (*string, error) {
	if desc == nil {
		return nil, nil
	}
	d := strings.TrimSpace(*desc)
	if d == "" {
		return nil, nil
	}
	if len([]rune(d)) > maxDescriptionLength {
		return nil, invalid("description must be at most %d characters", maxDescriptionLength)
	}
	return &d, nil
}

func validateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return invalid("start_date and end_date are required")
	}
	if !end.After(start) {
		return invalid("end_date must be after start_date")
	}
	return nil
}

// newDraftSession validates create and clone input and builds the DRAFT row
func (s *VotingServiceImpl) newDraftSession(ctx context.Context, in models.CreateSessionInput) (*models.VotingSession, error) {
	title, err := validateTitle("title", in.Title)
	if err != nil {
		return nil, err
	}
	desc, err := normalizeDescription(in.Description)
	if err != nil {
		return nil, err
	}
	start, end := in.StartDate.UTC(), in.EndDate.UTC()
	if err := validateWindow(start, end); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.SeasonID) == "" {
		return nil, invalid("season_id is required")
	}
	ok, err := s.directory.SeasonExists(ctx, in.SeasonID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalid("season %s not found", in.SeasonID)
	}

	return &models.VotingSession{
		SeasonID:    in.SeasonID,
		Title:       title,
		Description: desc,
		StartDate:   start,
		EndDate:     end,
		Status:      models.StatusDraft,
	}, nil
}

// CreateSession creates an empty DRAFT session for an existing season
func (s *VotingServiceImpl) CreateSession(ctx context.Context, in models.CreateSessionInput) (*models.VotingSession, error) {
	session, err := s.newDraftSession(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	s.invalidateStatus(ctx)
	s.publish(ctx, mq.NewEvent(mq.EventSessionCreated, session.ID, s.now()))
	s.log.Info("session created", zap.String("session_id", session.ID), zap.String("season_id", session.SeasonID))
	return s.GetSession(ctx, session.ID)
}

// GetSession returns a session with its ordered structure
func (s *VotingServiceImpl) GetSession(ctx context.Context, id string) (*models.VotingSession, error) {
	session, err := s.repo.GetSessionWithStructure(ctx, id)
	if err != nil {
		return nil, storeError(err, "session")
	}
	return session, nil
}

// ListSessions returns every session, newest first, with structure
func (s *VotingServiceImpl) ListSessions(ctx context.Context) ([]models.VotingSession, error) {
	return s.repo.ListSessionsWithStructure(ctx)
}

// UpdateSession edits title, description and dates. Outside DRAFT the
// start date is frozen and the end date may only move later.
func (s *VotingServiceImpl) UpdateSession(ctx context.Context, id string, in models.UpdateSessionInput) (*models.VotingSession, error) {
	err := s.repo.Transaction(ctx, func(repo repository.VotingRepository) error {
		session, err := repo.GetSessionForUpdate(ctx, id)
		if err != nil {
			return storeError(err, "session")
		}

		if in.Title != nil {
			title, err := validateTitle("title", *in.Title)
			if err != nil {
				return err
			}
			session.Title = title
		}
		if in.Description != nil {
			desc, err := normalizeDescription(in.Description)
			if err != nil {
				return err
			}
			session.Description = desc
		}
		if err := s.applyDates(session, in.StartDate, in.EndDate); err != nil {
			return err
		}
		return repo.UpdateSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStatus(ctx)
	return s.GetSession(ctx, id)
}

func (s *VotingServiceImpl) applyDates(session *models.VotingSession, start, end *time.Time) error {
	if start == nil && end == nil {
		return nil
	}
	newStart, newEnd := session.StartDate, session.EndDate
	if start != nil {
		newStart = start.UTC()
	}
	if end != nil {
		newEnd = end.UTC()
	}

	if session.Status != models.StatusDraft {
		if !newStart.Equal(session.StartDate) {
			return wrongState("start_date cannot change once the session is %s", session.Status)
		}
		if newEnd.Before(session.EndDate) {
			return wrongState("end_date can only be extended once the session is %s", session.Status)
		}
	}
	if err := validateWindow(newStart, newEnd); err != nil {
		return err
	}
	session.StartDate, session.EndDate = newStart, newEnd
	return nil
}

// DeleteSession removes a DRAFT session and its structure
func (s *VotingServiceImpl) DeleteSession(ctx context.Context, id string) error {
	err := s.repo.Transaction(ctx, func(repo repository.VotingRepository) error {
		session, err := repo.GetSessionForUpdate(ctx, id)
		if err != nil {
			return storeError(err, "session")
		}
		if session.Status != models.StatusDraft {
			return wrongState("session must be %s to be deleted, it is %s", models.StatusDraft, session.Status)
		}
		return storeError(repo.DeleteSession(ctx, id), "session")
	})
	if err != nil {
		return err
	}

	s.invalidateStatus(ctx)
	s.publish(ctx, mq.NewEvent(mq.EventSessionDeleted, id, s.now()))
	s.log.Info("session deleted", zap.String("session_id", id))
	return nil
}

// transition moves a session from one status to the next under a row lock.
// check runs against the locked session before the status changes.
func (s *VotingServiceImpl) transition(ctx context.Context, id string, from, to models.SessionStatus,
	check func(repo repository.VotingRepository, session *models.VotingSession) error) (*models.VotingSession, error) {

	var updated *models.VotingSession
	err := s.repo.Transaction(ctx, func(repo repository.VotingRepository) error {
		session, err := repo.GetSessionForUpdate(ctx, id)
		if err != nil {
			return storeError(err, "session")
		}
		if session.Status != from {
			return wrongState("session must be %s to become %s, it is %s", from, to, session.Status)
		}
		if check != nil {
			if err := check(repo, session); err != nil {
				return err
			}
		}
		session.Status = to
		if to == models.StatusFinalized {
			now := s.now()
			session.ResultsFinalizedAt = &now
		}
		if err := repo.UpdateSession(ctx, session); err != nil {
			return err
		}
		updated = session
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStatus(ctx)
	s.log.Info("session status changed",
		zap.String("session_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return updated, nil
}

// OpenSession starts voting. Every category must hold at least one question.
func (s *VotingServiceImpl) OpenSession(ctx context.Context, id string) (*models.VotingSession, error) {
	_, err := s.transition(ctx, id, models.StatusDraft, models.StatusOpen,
		func(repo repository.VotingRepository, _ *models.VotingSession) error {
			structured, err := repo.GetSessionWithStructure(ctx, id)
			if err != nil {
				return storeError(err, "session")
			}
			if len(structured.Categories) == 0 {
				return wrongState("session has no categories")
			}
			var empty []string
			for _, c := range structured.Categories {
				if len(c.Questions) == 0 {
					empty = append(empty, c.Name)
				}
			}
			if len(empty) > 0 {
				return &Error{
					Kind:    KindStatePrecondition,
					Message: "every category needs at least one question",
					Details: empty,
				}
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, s.statusEvent(mq.EventSessionOpened, id, models.StatusOpen))
	return s.GetSession(ctx, id)
}

// CloseSession moves an OPEN session to CLOSED and stops accepting ballots
func (s *VotingServiceImpl) CloseSession(ctx context.Context, id string) (*models.VotingSession, error) {
	if _, err := s.transition(ctx, id, models.StatusOpen, models.StatusClosed, nil); err != nil {
		return nil, err
	}
	s.publish(ctx, s.statusEvent(mq.EventSessionClosed, id, models.StatusClosed))
	return s.GetSession(ctx, id)
}

// FinalizeSession publishes results and pre-warms the results cache
func (s *VotingServiceImpl) FinalizeSession(ctx context.Context, id string) (*models.VotingSession, error) {
	if _, err := s.transition(ctx, id, models.StatusClosed, models.StatusFinalized, nil); err != nil {
		return nil, err
	}
	if _, err := s.computeResults(ctx, id, true); err != nil {
		s.log.Warn("results cache not pre-warmed", zap.String("session_id", id), zap.Error(err))
	}
	s.publish(ctx, s.statusEvent(mq.EventSessionFinalized, id, models.StatusFinalized))
	return s.GetSession(ctx, id)
}

func (s *VotingServiceImpl) statusEvent(t mq.EventType, sessionID string, status models.SessionStatus) mq.Event {
	e := mq.NewEvent(t, sessionID, s.now())
	e.Status = string(status)
	return e
}

// CloseExpiredSessions closes every open session whose end date has passed.
// It returns how many were closed.
func (s *VotingServiceImpl) CloseExpiredSessions(ctx context.Context) (int, error) {
	expired, err := s.repo.ListExpiredOpenSessions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list expired sessions: %w", err)
	}
	closed := 0
	for _, session := range expired {
		if _, err := s.CloseSession(ctx, session.ID); err != nil {
			if KindOf(err) == KindStatePrecondition {
				continue
			}
			return closed, err
		}
		closed++
	}
	return closed, nil
}

// GetActiveSession returns the open session whose window contains now, or
// nil when there is none.
func (s *VotingServiceImpl) GetActiveSession(ctx context.Context) (*models.VotingSession, error) {
	session, err := s.repo.FindOpenSession(ctx, s.now())
	if repository.IsNotFound(err) {
		return nil, nil
	}
	if database.IsUndefinedTable(err) {
		s.log.Warn("voting tables missing, reporting no active session", zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetSessionPreview returns the ballot structure of any session, regardless of status
func (s *VotingServiceImpl) GetSessionPreview(ctx context.Context, id string) (*models.VotingSession, error) {
	return s.GetSession(ctx, id)
}
