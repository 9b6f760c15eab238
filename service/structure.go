package service

import (
	"context"

	"awards-voting-backend/models"
	"awards-voting-backend/repository"

	"github.com/samber/lo"
)

// lockDraft loads the session that owns a structure edit and rejects the
// edit unless the session is still DRAFT.
func lockDraft(ctx context.Context, repo repository.VotingRepository, sessionID string) (*models.VotingSession, error) {
	session, err := repo.GetSessionForUpdate(ctx, sessionID)
	if err != nil {
		return nil, storeError(err, "session")
	}
	if session.Status != models.StatusDraft {
		return nil, wrongState("session must be %s to edit its structure, it is %s", models.StatusDraft, session.Status)
	}
	return session, nil
}

func validateOrder(order *int) (int, error) {
	if order == nil {
		return 0, nil
	}
	if *order < 0 {
		return 0, invalid("display_order must not be negative")
	}
	return *order, nil
}

// CreateCategory adds a category to a DRAFT session
func (s *VotingServiceImpl) CreateCategory(ctx context.Context, in models.CreateCategoryInput) (*models.VotingCategory, error) {
	name, err := validateTitle("name", in.Name)
	if err != nil {
		return nil, err
	}
	desc, err := normalizeDescription(in.Description)
	if err != nil {
		return nil, err
	}
	order, err := validateOrder(in.DisplayOrder)
	if err != nil {
		return nil, err
	}

	category := &models.VotingCategory{
		SessionID:    in.SessionID,
		Name:         name,
		Description:  desc,
		DisplayOrder: order,
	}
	err = s.repo.Transaction(ctx, func(repo repository.VotingRepository) error {
		if _, err := lockDraft(ctx, repo, in.SessionID); err != nil {
			return err
		}
		return repo.CreateCategory(ctx, category)
	})
	if err != nil {
		return nil, err
	}
	s.invalidateStatus(ctx)
	return category, nil
}

// UpdateCategory edits a category of a DRAFT session
func (s *VotingServiceImpl) UpdateCategory(ctx context.Context, id string, in models.UpdateCategoryInput) (*models.VotingCategory, error) {
	var category *models.VotingCategory
	err := s.repo.Transaction(ctx, func(repo repository.VotingRepository) error {
		var err error
		category, err = repo.GetCategory(ctx, id)
		if err != nil {
			return storeError(err, "category")
		}
		if _, err := lockDraft(ctx, repo, category.SessionID); err != nil {
			return err
		}

		if in.Name != nil {
			if category.Name, err = validateTitle("name", *in.Name); err != nil {
				return err
			}
		}
		if in.Description != nil {
			if category.Description, err = normalizeDescription(in.Description); err != nil {
				return err
			}
		}
		if in.DisplayOrder != nil {
			if category.DisplayOrder, err = validateOrder(in.DisplayOrder); err != nil {
				return err
			}
		}
		return repo.UpdateCategory(ctx, category)
	})
	if err != nil {
		return nil, err
	}
	s.invalidateStatus(ctx)
	return category, nil
}

// DeleteCategory removes a category and its questions
func (s *VotingServiceImpl) DeleteCategory(ctx context.Context, id string) error {
	err := s.repo.Transaction(ctx, func(repo repository.VotingRepository) error {
		category, err := repo.GetCategory(ctx, id)
		if err != nil {
			return storeError(err, "category")
		}
		if _, err := lockDraft(ctx, repo, category.SessionID); err != nil {
			return err
		}
		return storeError(repo.DeleteCategory(ctx, id), "category")
	})
	if err != nil {
		return err
	}
	s.invalidateStatus(ctx)
	return nil
}

func validateAnswerType(t models.AnswerType) error {
	if !t.Valid() {
		err := invalid("unknown answer_type %q", t)
		err.Details = lo.Map(models.AnswerTypes(), func(a models.AnswerType, _ int) string { return string(a) })
		return err
	}
	return nil
}

// CreateQuestion adds a question to a category of a DRAFT session
func (s *VotingServiceImpl) CreateQuestion(ctx context.Context, in models.CreateQuestionInput) (*models.VotingQuestion, error) {
	title, err := validateTitle("title", in.Title)
	if err != nil {
		return nil, err
	}
	if err := validateAnswerType(in.AnswerType); err != nil {
		return nil, err
	}
	desc, err := normalizeDescription(in.Description)
	if err != nil {
		return nil, err
	}
	order, err := validateOrder(in.DisplayOrder)
	if err != nil {
		return nil, err
	}

	question := &models.VotingQuestion{
		CategoryID:   in.CategoryID,
		Title:        title,
		Description:  desc,
		ImageURL:     in.ImageURL,
		AnswerType:   in.AnswerType,
		DisplayOrder: order,
	}
	err = s.repo.Transaction(ctx, func(repo repository.VotingRepository) error {
		category, err := repo.GetCategory(ctx, in.CategoryID)
		if err != nil {
			return storeError(err, "category")
		}
		if _, err := lockDraft(ctx, repo, category.SessionID); err != nil {
			return err
		}
		return repo.CreateQuestion(ctx, question)
	})
	if err != nil {
		return nil, err
	}
	s.invalidateStatus(ctx)
	return question, nil
}

// UpdateQuestion edits a question. Changing CategoryID moves it, which is
// only allowed between categories of the same session.
func (s *VotingServiceImpl) UpdateQuestion(ctx context.Context, id string, in models.UpdateQuestionInput) (*models.VotingQuestion, error) {
	if in.AnswerType != nil {
		if err := validateAnswerType(*in.AnswerType); err != nil {
			return nil, err
		}
	}

	var question *models.VotingQuestion
	err := s.repo.Transaction(ctx, func(repo repository.VotingRepository) error {
		var err error
		question, err = repo.GetQuestion(ctx, id)
		if err != nil {
			return storeError(err, "question")
		}
		category, err := repo.GetCategory(ctx, question.CategoryID)
		if err != nil {
			return storeError(err, "category")
		}
		if _, err := lockDraft(ctx, repo, category.SessionID); err != nil {
			return err
		}

		if in.CategoryID != nil && *in.CategoryID != question.CategoryID {
			target, err := repo.GetCategory(ctx, *in.CategoryID)
			if err != nil {
				return storeError(err, "target category")
			}
			if target.SessionID != category.SessionID {
				return invalid("question can only move between categories of the same session")
			}
			question.CategoryID = target.ID
		}
		if in.Title != nil {
			if question.Title, err = validateTitle("title", *in.Title); err != nil {
				return err
			}
		}
		if in.Description != nil {
			if question.Description, err = normalizeDescription(in.Description); err != nil {
				return err
			}
		}
		if in.ImageURL != nil {
			question.ImageURL = in.ImageURL
			if *in.ImageURL == "" {
				question.ImageURL = nil
			}
		}
		if in.AnswerType != nil {
			question.AnswerType = *in.AnswerType
		}
		if in.DisplayOrder != nil {
			if question.DisplayOrder, err = validateOrder(in.DisplayOrder); err != nil {
				return err
			}
		}
		return repo.UpdateQuestion(ctx, question)
	})
	if err != nil {
		return nil, err
	}
	s.invalidateStatus(ctx)
	return question, nil
}

// MoveQuestion reassigns a question to another category of its session
func (s *VotingServiceImpl) MoveQuestion(ctx context.Context, id string, in models.MoveQuestionInput) (*models.VotingQuestion, error) {
	return s.UpdateQuestion(ctx, id, models.UpdateQuestionInput{
		CategoryID:   &in.CategoryID,
		DisplayOrder: in.DisplayOrder,
	})
}

// DeleteQuestion removes a question while its session is still DRAFT
func (s *VotingServiceImpl) DeleteQuestion(ctx context.Context, id string) error {
	err := s.repo.Transaction(ctx, func(repo repository.VotingRepository) error {
		question, err := repo.GetQuestion(ctx, id)
		if err != nil {
			return storeError(err, "question")
		}
		category, err := repo.GetCategory(ctx, question.CategoryID)
		if err != nil {
			return storeError(err, "category")
		}
		if _, err := lockDraft(ctx, repo, category.SessionID); err != nil {
			return err
		}
		return storeError(repo.DeleteQuestion(ctx, id), "question")
	})
	if err != nil {
		return err
	}
	s.invalidateStatus(ctx)
	return nil
}
