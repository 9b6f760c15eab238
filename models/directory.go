package models

import (
	"strings"
	"time"
)

// The records below are owned by the wider membership platform. The voting
// core only reads them; they are migrated here so the service is runnable
// on its own.

// Profile is a platform user.
type Profile struct {
	ID               string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	FirstName        string  `gorm:"type:varchar(100)" json:"first_name"`
	LastName         string  `gorm:"type:varchar(100)" json:"last_name"`
	MecaID           *int    `gorm:"index" json:"meca_id"`
	AvatarURL        *string `gorm:"type:varchar(1000)" json:"avatar_url"`
	Role             string  `gorm:"type:varchar(32);index" json:"role"`
	MembershipStatus string  `gorm:"type:varchar(32);index" json:"membership_status"`
}

func (Profile) TableName() string { return "profiles" }

// DisplayName joins first and last name, falling back to "Unknown".
func (p Profile) DisplayName() string {
	return FullName(p.FirstName, p.LastName)
}

// FullName formats a person's name the way results and search present it.
func FullName(first, last string) string {
	name := strings.TrimSpace(first + " " + last)
	if name == "" {
		return "Unknown"
	}
	return name
}

const (
	MembershipActive  = "active"
	RoleAdmin         = "admin"
	RoleEventDirector = "event_director"
	RoleMember        = "member"
)

// Team is a competition team.
type Team struct {
	ID       string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name     string  `gorm:"type:varchar(200);not null" json:"name"`
	LogoURL  *string `gorm:"type:varchar(1000)" json:"logo_url"`
	Location *string `gorm:"type:varchar(200)" json:"location"`
	IsActive bool    `gorm:"not null;default:true" json:"is_active"`
}

func (Team) TableName() string { return "teams" }

// Season is a competition year.
type Season struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

func (Season) TableName() string { return "seasons" }

// Judge links a profile to a judging certification.
type Judge struct {
	ID        string `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Level     string `gorm:"type:varchar(50)" json:"level"`
	Specialty string `gorm:"type:varchar(50)" json:"specialty"`
	IsActive  bool   `gorm:"not null;default:true" json:"is_active"`
}

func (Judge) TableName() string { return "judges" }

// BusinessListing holds the columns shared by retailer and manufacturer directories.
type BusinessListing struct {
	ID              string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	BusinessName    string  `gorm:"type:varchar(200);index" json:"business_name"`
	ProfileImageURL *string `gorm:"type:varchar(1000)" json:"profile_image_url"`
	City            *string `gorm:"type:varchar(100)" json:"city"`
	State           *string `gorm:"type:varchar(50)" json:"state"`
	IsActive        bool    `gorm:"not null;default:true" json:"is_active"`
	IsApproved      bool    `gorm:"not null;default:false" json:"is_approved"`
}

// Location formats "city, state", skipping empty parts.
func (b BusinessListing) Location() string {
	return JoinLocation(b.City, b.State)
}

type RetailerListing struct {
	BusinessListing `gorm:"embedded"`
}

func (RetailerListing) TableName() string { return "retailer_listings" }

type ManufacturerListing struct {
	BusinessListing `gorm:"embedded"`
}

func (ManufacturerListing) TableName() string { return "manufacturer_listings" }

// Event is a sanctioned competition event; venues are derived from it.
type Event struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	SeasonID   string    `gorm:"type:varchar(36);not null;index" json:"season_id"`
	Title      string    `gorm:"type:varchar(200)" json:"title"`
	VenueName  *string   `gorm:"type:varchar(200)" json:"venue_name"`
	VenueCity  *string   `gorm:"type:varchar(100)" json:"venue_city"`
	VenueState *string   `gorm:"type:varchar(50)" json:"venue_state"`
	EventDate  time.Time `json:"event_date"`
}

func (Event) TableName() string { return "events" }

// JoinLocation renders optional city/state parts as "city, state".
func JoinLocation(parts ...*string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != nil && strings.TrimSpace(*p) != "" {
			out = append(out, strings.TrimSpace(*p))
		}
	}
	return strings.Join(out, ", ")
}
