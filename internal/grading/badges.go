package grading

import (
	"time"

	"github.com/skillcheck/backend/internal/models"
)

// Badge names per grade tier.
var gradeBadgeNames = map[models.Grade]string{
	models.GradeElite:                "Elite Performer",
	models.GradeAdvanced:             "Advanced Achiever",
	models.GradeIntermediateAdvanced: "Rising Talent",
	models.GradeIntermediate:         "Steady Learner",
	models.GradeBeginner:             "First Steps",
}

const specialistBadgeName = "Category Specialist"

// NewBadges decides which badges a user should be granted given what
// they already hold. At most one grade-type badge and one specialist
// badge per user; the specialist badge is reserved for the top tier.
// The caller persists the returned badges; existing ones are never
// re-awarded or removed.
func NewBadges(existing []models.Badge, userID int64, grade models.Grade, now time.Time) []models.Badge {
	hasType := make(map[models.BadgeType]bool, len(existing))
	for _, b := range existing {
		hasType[b.BadgeType] = true
	}

	var created []models.Badge

	if !hasType[models.BadgeTypeGrade] {
		created = append(created, models.Badge{
			UserID:    userID,
			BadgeName: gradeBadgeNames[grade],
			BadgeType: models.BadgeTypeGrade,
			AwardedAt: now,
		})
	}

	if grade == models.GradeElite && !hasType[models.BadgeTypeSpecialist] {
		created = append(created, models.Badge{
			UserID:    userID,
			BadgeName: specialistBadgeName,
			BadgeType: models.BadgeTypeSpecialist,
			AwardedAt: now,
		})
	}

	return created
}
