package gamification

import "civiceye/internal/model"

// Badge is an achievement derived from the reputation snapshot. Badges are
// recomputed on every call rather than persisted, so a badge can disappear
// if the underlying stats regress (e.g. Trustworthy after a first fake
// complaint).
type Badge struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// BadgesFor returns the badges the snapshot currently earns, in a stable
// order.
func (e *Engine) BadgesFor(rep model.Reputation) []Badge {
	var badges []Badge

	if rep.TotalComplaints >= 1 {
		badges = append(badges, Badge{
			Name:        "First Step",
			Description: "Registered your first complaint",
			Icon:        "🎯",
		})
	}

	if rep.ResolvedComplaints >= 1 {
		badges = append(badges, Badge{
			Name:        "Problem Solver",
			Description: "Had your first complaint resolved",
			Icon:        "✅",
		})
	}
	if rep.ResolvedComplaints >= 5 {
		badges = append(badges, Badge{
			Name:        "Active Reporter",
			Description: "5 complaints resolved",
			Icon:        "🌟",
		})
	}
	if rep.ResolvedComplaints >= 10 {
		badges = append(badges, Badge{
			Name:        "Community Hero",
			Description: "10 complaints resolved",
			Icon:        "🏆",
		})
	}
	if rep.ResolvedComplaints >= 25 {
		badges = append(badges, Badge{
			Name:        "Civic Champion",
			Description: "25 complaints resolved",
			Icon:        "👑",
		})
	}

	if rep.Points >= 100 {
		badges = append(badges, Badge{
			Name:        "Point Master",
			Description: "Earned 100+ points",
			Icon:        "💎",
		})
	}
	if rep.Points >= 500 {
		badges = append(badges, Badge{
			Name:        "Legendary Citizen",
			Description: "Earned 500+ points",
			Icon:        "🔥",
		})
	}

	if rep.TotalComplaints >= 5 && rep.FakeComplaints == 0 {
		badges = append(badges, Badge{
			Name:        "Trustworthy",
			Description: "No fake complaints detected",
			Icon:        "🛡️",
		})
	}

	return badges
}
