package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tier is a staff capability level. Higher tiers include lower ones.
type Tier int

const (
	TierNone Tier = iota
	TierModerator
	TierHeadModerator
	TierAdmin
)

func (t Tier) String() string {
	switch t {
	case TierModerator:
		return "moderator"
	case TierHeadModerator:
		return "head_moderator"
	case TierAdmin:
		return "admin"
	}
	return "none"
}

// ParseTier maps a role name to its tier. Unknown roles have no staff capability.
func ParseTier(role string) Tier {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "moderator", "mod":
		return TierModerator
	case "head_moderator", "headmod", "senior_moderator":
		return TierHeadModerator
	case "admin":
		return TierAdmin
	}
	return TierNone
}

// Actor is the authenticated caller of an engine operation.
type Actor struct {
	ID   uuid.UUID
	Tier Tier
}

// Can reports whether the actor holds at least the required tier.
func (a Actor) Can(required Tier) bool {
	return a.ID != uuid.Nil && a.Tier >= required
}

// StaffMember grants a tier to a platform user independent of token claims.
type StaffMember struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Role      string    `gorm:"size:20;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (StaffMember) TableName() string {
	return "staff_members"
}
