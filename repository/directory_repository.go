package repository

import (
	"context"
	"fmt"
	"strings"

	"awards-voting-backend/models"

	"gorm.io/gorm"
)

// JudgeMatch is a judge search hit joined to its profile
type JudgeMatch struct {
	ID        string
	FirstName string
	LastName  string
	MecaID    *int
	AvatarURL *string
	Level     string
	Specialty string
}

// VenueMatch is a distinct venue taken from a season's events
type VenueMatch struct {
	VenueName  string
	VenueCity  *string
	VenueState *string
}

// DirectoryRepository reads the member, team and business directories the
// ballot references. It never writes.
type DirectoryRepository interface {
	SeasonExists(ctx context.Context, id string) (bool, error)
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	FindProfiles(ctx context.Context, ids []string) ([]models.Profile, error)
	FindTeams(ctx context.Context, ids []string) ([]models.Team, error)

	SearchMembers(ctx context.Context, query string, limit int) ([]models.Profile, error)
	SearchJudges(ctx context.Context, query string, limit int) ([]JudgeMatch, error)
	SearchEventDirectors(ctx context.Context, query string, limit int) ([]models.Profile, error)
	SearchRetailers(ctx context.Context, query string, limit int) ([]models.BusinessListing, error)
	SearchManufacturers(ctx context.Context, query string, limit int) ([]models.BusinessListing, error)
	SearchVenues(ctx context.Context, seasonID, query string, limit int) ([]VenueMatch, error)
	SearchTeams(ctx context.Context, query string, limit int) ([]models.Team, error)
}

type GormDirectoryRepository struct {
	db *gorm.DB
}

// NewDirectoryRepository creates a read-only gorm DirectoryRepository
func NewDirectoryRepository(db *gorm.DB) *GormDirectoryRepository {
	return &GormDirectoryRepository{db: db}
}

func (r *GormDirectoryRepository) SeasonExists(ctx context.Context, id string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Season{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func (r *GormDirectoryRepository) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindProfiles loads every profile in ids with a single query
func (r *GormDirectoryRepository) FindProfiles(ctx context.Context, ids []string) ([]models.Profile, error) {
	var profiles []models.Profile
	if len(ids) == 0 {
		return profiles, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error
	return profiles, err
}

// FindTeams loads every team in ids with a single query
func (r *GormDirectoryRepository) FindTeams(ctx context.Context, ids []string) ([]models.Team, error) {
	var teams []models.Team
	if len(ids) == 0 {
		return teams, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&teams).Error
	return teams, err
}

func likeTerm(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

// personFilter matches the full "first last" name or any part of the MECA
// id, case-insensitively.
func (r *GormDirectoryRepository) personFilter(alias, query string) *gorm.DB {
	first := fmt.Sprintf("COALESCE(%sfirst_name, '')", alias)
	last := fmt.Sprintf("COALESCE(%slast_name, '')", alias)
	term := likeTerm(query)

	return r.db.Where(fmt.Sprintf("LOWER(%s) LIKE ?", r.concat(first, "' '", last)), term).
		Or(fmt.Sprintf("%s LIKE ?", r.castText(alias+"meca_id")), term)
}

// concat joins SQL expressions; MySQL reads || as OR
func (r *GormDirectoryRepository) concat(parts ...string) string {
	if r.db.Dialector.Name() == "mysql" {
		return "CONCAT(" + strings.Join(parts, ", ") + ")"
	}
	return strings.Join(parts, " || ")
}

func (r *GormDirectoryRepository) castText(expr string) string {
	if r.db.Dialector.Name() == "mysql" {
		return "CAST(" + expr + " AS CHAR)"
	}
	return "CAST(" + expr + " AS TEXT)"
}

// SearchMembers matches profiles with an active membership
func (r *GormDirectoryRepository) SearchMembers(ctx context.Context, query string, limit int) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.WithContext(ctx).
		Where("membership_status = ?", models.MembershipActive).
		Where(r.personFilter("", query)).
		Order("first_name").Order("last_name").
		Limit(limit).
		Find(&profiles).Error
	return profiles, err
}

// SearchJudges matches active judges joined to their profiles
func (r *GormDirectoryRepository) SearchJudges(ctx context.Context, query string, limit int) ([]JudgeMatch, error) {
	var rows []JudgeMatch
	err := r.db.WithContext(ctx).
		Table("judges AS j").
		Select("p.id AS id, COALESCE(p.first_name, '') AS first_name, COALESCE(p.last_name, '') AS last_name, " +
			"p.meca_id AS meca_id, p.avatar_url AS avatar_url, j.level AS level, j.specialty AS specialty").
		Joins("JOIN profiles p ON p.id = j.user_id").
		Where("j.is_active = ?", true).
		Where(r.personFilter("p.", query)).
		Order("p.first_name").Order("p.last_name").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *GormDirectoryRepository) SearchEventDirectors(ctx context.Context, query string, limit int) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.WithContext(ctx).
		Where("role IN ?", []string{models.RoleEventDirector, models.RoleAdmin}).
		Where(r.personFilter("", query)).
		Order("first_name").Order("last_name").
		Limit(limit).
		Find(&profiles).Error
	return profiles, err
}

func (r *GormDirectoryRepository) searchListings(ctx context.Context, model interface{}, query string, limit int) ([]models.BusinessListing, error) {
	var rows []models.BusinessListing
	err := r.db.WithContext(ctx).Model(model).
		Where("is_active = ? AND is_approved = ?", true, true).
		Where("business_name IS NOT NULL AND business_name <> ''").
		Where("LOWER(business_name) LIKE ?", likeTerm(query)).
		Order("business_name").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *GormDirectoryRepository) SearchRetailers(ctx context.Context, query string, limit int) ([]models.BusinessListing, error) {
	return r.searchListings(ctx, &models.RetailerListing{}, query, limit)
}

func (r *GormDirectoryRepository) SearchManufacturers(ctx context.Context, query string, limit int) ([]models.BusinessListing, error) {
	return r.searchListings(ctx, &models.ManufacturerListing{}, query, limit)
}

func (r *GormDirectoryRepository) SearchVenues(ctx context.Context, seasonID, query string, limit int) ([]VenueMatch, error) {
	var rows []VenueMatch
	err := r.db.WithContext(ctx).Model(&models.Event{}).
		Distinct("venue_name", "venue_city", "venue_state").
		Where("season_id = ?", seasonID).
		Where("venue_name IS NOT NULL AND venue_name <> ''").
		Where("LOWER(venue_name) LIKE ?", likeTerm(query)).
		Order("venue_name").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *GormDirectoryRepository) SearchTeams(ctx context.Context, query string, limit int) ([]models.Team, error) {
	var teams []models.Team
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("LOWER(name) LIKE ?", likeTerm(query)).
		Order("name").
		Limit(limit).
		Find(&teams).Error
	return teams, err
}
