package service

import (
	"context"

	"awards-voting-backend/models"
	"awards-voting-backend/mq"
	"awards-voting-backend/repository"

	"go.uber.org/zap"
)

// CloneSession copies the categories and questions of a source session
// into a new DRAFT session. Responses are never copied.
func (s *VotingServiceImpl) CloneSession(ctx context.Context, sourceID string, in models.CloneSessionInput) (*models.VotingSession, error) {
	source, err := s.repo.GetSessionWithStructure(ctx, sourceID)
	if err != nil {
		return nil, storeError(err, "source session")
	}
	clone, err := s.newDraftSession(ctx, in)
	if err != nil {
		return nil, err
	}

	err = s.repo.Transaction(ctx, func(repo repository.VotingRepository) error {
		if err := repo.CreateSession(ctx, clone); err != nil {
			return err
		}
		for _, c := range source.Categories {
			category := &models.VotingCategory{
				SessionID:    clone.ID,
				Name:         c.Name,
				Description:  c.Description,
				DisplayOrder: c.DisplayOrder,
			}
			if err := repo.CreateCategory(ctx, category); err != nil {
				return err
			}
			for _, q := range c.Questions {
				if err := repo.CreateQuestion(ctx, &models.VotingQuestion{
					CategoryID:   category.ID,
					Title:        q.Title,
					Description:  q.Description,
					ImageURL:     q.ImageURL,
					AnswerType:   q.AnswerType,
					DisplayOrder: q.DisplayOrder,
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStatus(ctx)
	s.publish(ctx, mq.NewEvent(mq.EventSessionCreated, clone.ID, s.now()))
	s.log.Info("session cloned",
		zap.String("source_id", sourceID),
		zap.String("session_id", clone.ID),
		zap.Int("questions", source.QuestionCount()))
	return s.GetSession(ctx, clone.ID)
}

// SeedTemplate fills an empty DRAFT session from a built-in template
func (s *VotingServiceImpl) SeedTemplate(ctx context.Context, sessionID, template string) (*models.VotingSession, error) {
	err := s.repo.Transaction(ctx, func(repo repository.VotingRepository) error {
		if _, err := lockDraft(ctx, repo, sessionID); err != nil {
			return err
		}
		n, err := repo.CountCategories(ctx, sessionID)
		if err != nil {
			return err
		}
		if n > 0 {
			return invalid("session already has %d categories, templates only seed an empty session", n)
		}
		catalog, ok := ballotTemplates[template]
		if !ok {
			return invalid("unknown template %q", template)
		}

		for i, c := range catalog {
			desc := c.description
			category := &models.VotingCategory{
				SessionID:    sessionID,
				Name:         c.name,
				Description:  &desc,
				DisplayOrder: i,
			}
			if err := repo.CreateCategory(ctx, category); err != nil {
				return err
			}
			for j, tq := range c.questions {
				if err := repo.CreateQuestion(ctx, &models.VotingQuestion{
					CategoryID:   category.ID,
					Title:        tq.title,
					AnswerType:   tq.answerType,
					DisplayOrder: j,
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStatus(ctx)
	s.log.Info("session seeded from template", zap.String("session_id", sessionID), zap.String("template", template))
	return s.GetSession(ctx, sessionID)
}
