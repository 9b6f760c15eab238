package service

import (
	"context"

	"awards-voting-backend/models"
	"awards-voting-backend/repository"
)

func (s *VotingServiceImpl) clampLimit(limit int) int {
	if limit <= 0 {
		limit = s.searchLimit
	}
	if limit > s.searchMaxLimit {
		limit = s.searchMaxLimit
	}
	return limit
}

// SearchEntities finds candidates for an entity picker. Venue search is
// scoped to the season of the given session.
func (s *VotingServiceImpl) SearchEntities(ctx context.Context, answerType models.AnswerType, query, sessionID string, limit int) ([]models.EntitySearchResult, error) {
	if !answerType.Searchable() {
		return nil, invalid("entity search is not available for answer type %q", answerType)
	}
	limit = s.clampLimit(limit)

	switch answerType {
	case models.AnswerMember:
		profiles, err := s.directory.SearchMembers(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		return profileResults(profiles), nil

	case models.AnswerEventDirector:
		profiles, err := s.directory.SearchEventDirectors(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		return profileResults(profiles), nil

	case models.AnswerJudge:
		judges, err := s.directory.SearchJudges(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		out := make([]models.EntitySearchResult, 0, len(judges))
		for _, j := range judges {
			subtitle := j.Level
			if j.Specialty != "" {
				subtitle += " - " + j.Specialty
			}
			out = append(out, models.EntitySearchResult{
				ID:        j.ID,
				Name:      models.FullName(j.FirstName, j.LastName),
				Subtitle:  &subtitle,
				MecaID:    j.MecaID,
				AvatarURL: j.AvatarURL,
			})
		}
		return out, nil

	case models.AnswerTeam:
		teams, err := s.directory.SearchTeams(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		out := make([]models.EntitySearchResult, 0, len(teams))
		for _, t := range teams {
			out = append(out, models.EntitySearchResult{
				ID:        t.ID,
				Name:      t.Name,
				Subtitle:  t.Location,
				AvatarURL: t.LogoURL,
			})
		}
		return out, nil

	case models.AnswerRetailer:
		listings, err := s.directory.SearchRetailers(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		return listingResults(listings), nil

	case models.AnswerManufacturer:
		listings, err := s.directory.SearchManufacturers(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		return listingResults(listings), nil

	case models.AnswerVenue:
		if sessionID == "" {
			return nil, invalid("session_id is required for venue search")
		}
		session, err := s.repo.GetSession(ctx, sessionID)
		if err != nil {
			return nil, storeError(err, "session")
		}
		venues, err := s.directory.SearchVenues(ctx, session.SeasonID, query, limit)
		if err != nil {
			return nil, err
		}
		return venueResults(venues), nil
	}
	return nil, invalid("entity search is not available for answer type %q", answerType)
}

func profileResults(profiles []models.Profile) []models.EntitySearchResult {
	out := make([]models.EntitySearchResult, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, models.EntitySearchResult{
			ID:        p.ID,
			Name:      p.DisplayName(),
			MecaID:    p.MecaID,
			AvatarURL: p.AvatarURL,
		})
	}
	return out
}

// listingResults uses the business name as the id, since text-entity
// answers store the name.
func listingResults(listings []models.BusinessListing) []models.EntitySearchResult {
	out := make([]models.EntitySearchResult, 0, len(listings))
	for _, l := range listings {
		r := models.EntitySearchResult{ID: l.BusinessName, Name: l.BusinessName}
		if loc := l.Location(); loc != "" {
			r.Subtitle = &loc
		}
		out = append(out, r)
	}
	return out
}

func venueResults(venues []repository.VenueMatch) []models.EntitySearchResult {
	out := make([]models.EntitySearchResult, 0, len(venues))
	for _, v := range venues {
		r := models.EntitySearchResult{ID: v.VenueName, Name: v.VenueName}
		if loc := models.JoinLocation(v.VenueCity, v.VenueState); loc != "" {
			r.Subtitle = &loc
		}
		out = append(out, r)
	}
	return out
}
