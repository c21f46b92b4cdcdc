package services

import (
	"github.com/relayhq/relay-server/internal/models"
)

// Overlap tag categories
const (
	OverlapCategorySchool = "school"
	OverlapCategorySport  = "sport"
)

// Overlap tag labels. The fallback label is "<Sport> Athlete", built in place.
const (
	OverlapLabelSchool = "Fellow Alumni"
	OverlapLabelSport  = "Same Sport"
)

// OverlapTag is a display hint naming a shared attribute between the viewer
// and a request's author.
type OverlapTag struct {
	Category string `json:"category"`
	Label    string `json:"label"`
}

// ComputeOverlap returns the ordered overlap tags between a viewer's profile
// and an author's profile: school match first, then sport match, then a
// fallback naming the author's sport so every card carries at least one
// descriptive tag. Empty fields never match; either profile may be nil.
// Pure and total, no error cases.
func ComputeOverlap(viewer, author *models.AthleteProfile) []OverlapTag {
	var tags []OverlapTag

	if viewer != nil && author != nil {
		if viewer.School != "" && viewer.School == author.School {
			tags = append(tags, OverlapTag{Category: OverlapCategorySchool, Label: OverlapLabelSchool})
		}
		if viewer.Sport != "" && viewer.Sport == author.Sport {
			tags = append(tags, OverlapTag{Category: OverlapCategorySport, Label: OverlapLabelSport})
		}
	}

	if len(tags) == 0 && author != nil && author.Sport != "" {
		tags = append(tags, OverlapTag{Category: OverlapCategorySport, Label: author.Sport + " Athlete"})
	}

	return tags
}

// hasMatchTag reports whether any tag marks a real shared attribute, as
// opposed to the fallback sport tag. Fallback-only cards rank below matched
// ones in the feed.
func hasMatchTag(tags []OverlapTag) bool {
	for _, tag := range tags {
		if tag.Label == OverlapLabelSchool || tag.Label == OverlapLabelSport {
			return true
		}
	}
	return false
}
