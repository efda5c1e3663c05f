package types

import (
	"errors"
	"time"
)

var ErrSuggestionNotFound = errors.New("suggestion cache entry not found")

// SuggestionCache stores the last-computed AI suggestions for a user.
// At most one entry exists per user; regeneration overwrites in place.
type SuggestionCache struct {
	UserID        uint64    `bun:",pk"                    json:"userId"`
	ProjectIdeas  []string  `bun:",notnull,type:jsonb"    json:"projectIdeas"`
	SkillRoadmap  string    `bun:",notnull"               json:"skillRoadmap"`
	IsValid       bool      `bun:",notnull,default:false" json:"isValid"`
	LastGenerated time.Time `bun:",notnull"               json:"lastGenerated"`
	UpdatedAt     time.Time `bun:",notnull"               json:"updatedAt"`
}

// IsFresh reports whether the entry can be served without regenerating.
// An entry is fresh when it is valid and younger than the freshness window.
func (c *SuggestionCache) IsFresh(window time.Duration) bool {
	return c.IsValid && time.Since(c.UpdatedAt) < window
}
