package types

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidUserID   = errors.New("invalid user ID")
)

// User represents a platform account.
type User struct {
	ID          uint64    `bun:",pk,autoincrement"      json:"id"`
	Username    string    `bun:",notnull,unique"        json:"username"`
	DisplayName string    `bun:",notnull"               json:"displayName"`
	Headline    string    `bun:",notnull,default:''"    json:"headline"`
	IsActive    bool      `bun:",notnull,default:true"  json:"isActive"`
	CreatedAt   time.Time `bun:",notnull"               json:"createdAt"`
	UpdatedAt   time.Time `bun:",notnull"               json:"updatedAt"`
}

// Skill represents a single skill on a user's profile.
type Skill struct {
	UserID    uint64    `bun:",pk"      json:"userId"`
	Name      string    `bun:",pk"      json:"name"`
	Level     string    `bun:",notnull" json:"level"`
	UpdatedAt time.Time `bun:",notnull" json:"updatedAt"`
}

// Project represents a project owned by a user.
type Project struct {
	ID          uint64    `bun:",pk,autoincrement"   json:"id"`
	OwnerID     uint64    `bun:",notnull"            json:"ownerId"`
	Title       string    `bun:",notnull"            json:"title"`
	Description string    `bun:",notnull,default:''" json:"description"`
	Tags        []string  `bun:",type:jsonb"         json:"tags"`
	UpdatedAt   time.Time `bun:",notnull"            json:"updatedAt"`
}

// Experience represents a work history entry on a user's profile.
type Experience struct {
	ID        uint64     `bun:",pk,autoincrement"   json:"id"`
	UserID    uint64     `bun:",notnull"            json:"userId"`
	Company   string     `bun:",notnull"            json:"company"`
	Role      string     `bun:",notnull"            json:"role"`
	Summary   string     `bun:",notnull,default:''" json:"summary"`
	StartedAt time.Time  `bun:",notnull"            json:"startedAt"`
	EndedAt   *time.Time `bun:",nullzero"           json:"endedAt,omitempty"`
}

// Education represents an education entry on a user's profile.
type Education struct {
	ID     uint64 `bun:",pk,autoincrement" json:"id"`
	UserID uint64 `bun:",notnull"          json:"userId"`
	School string `bun:",notnull"          json:"school"`
	Degree string `bun:",notnull"          json:"degree"`
	Field  string `bun:",notnull"          json:"field"`
	Year   int    `bun:",notnull"          json:"year"`
}

// Profile aggregates everything needed to build a generation prompt for one user.
type Profile struct {
	User        *User        `json:"user"`
	Skills      []Skill      `json:"skills"`
	Projects    []Project    `json:"projects"`
	Experiences []Experience `json:"experiences"`
	Educations  []Education  `json:"educations"`
}

// IsEmpty reports whether the profile has no generation-relevant data at all.
// A profile with neither skills nor projects cannot produce useful suggestions.
func (p *Profile) IsEmpty() bool {
	return len(p.Skills) == 0 && len(p.Projects) == 0
}
