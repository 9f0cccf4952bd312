package middleware

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/config"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/dto"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StaffRequired resolves the caller's staff tier and rejects callers below
// minTier. The tier is the highest of:
// 1. the JWT "role" claim
// 2. the staff_members row for the user
// 3. the configured head moderator / admin id lists
// The resolved actor is stored for handlers; the engine re-checks the tier
// on every mutation.
func StaffRequired(db *gorm.DB, cfg *config.Config, minTier models.Tier) fiber.Handler {
	headMods := toSet(cfg.HeadModUserIDs)
	admins := toSet(cfg.AdminUserIDs)

	return func(c *fiber.Ctx) error {
		claims, err := getClaims(c)
		if err != nil {
			return unauthorized(c, "Unauthorized")
		}
		userID, err := GetUserID(c)
		if err != nil {
			return unauthorized(c, "Invalid subject claim")
		}

		role, _ := claims["role"].(string)
		tier := models.ParseTier(role)

		if tier < minTier && db != nil {
			var member models.StaffMember
			if err := db.Where("user_id = ?", userID).First(&member).Error; err == nil {
				tier = maxTier(tier, models.ParseTier(member.Role))
			}
		}
		if _, ok := headMods[userID.String()]; ok {
			tier = maxTier(tier, models.TierHeadModerator)
		}
		if _, ok := admins[userID.String()]; ok {
			tier = maxTier(tier, models.TierAdmin)
		}

		if tier < minTier {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Code: "permission_denied", Message: minTier.String() + " access required",
			})
		}
		c.Locals(actorLocal, models.Actor{ID: userID, Tier: tier})
		return c.Next()
	}
}

func maxTier(a, b models.Tier) models.Tier {
	if a > b {
		return a
	}
	return b
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		if parsed, err := uuid.Parse(trimmed); err == nil {
			trimmed = parsed.String()
		}
		set[trimmed] = struct{}{}
	}
	return set
}
