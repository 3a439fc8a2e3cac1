package gamification

import (
	"math"

	"civiceye/internal/model"
)

// StatsSummary is the full profile view of a user's reputation: balance,
// tier, counters, badges, and the current registration decision.
type StatsSummary struct {
	Points             int      `json:"points"`
	Level              string   `json:"level"`
	LevelColor         string   `json:"level_color"`
	NextLevel          string   `json:"next_level"`
	Progress           float64  `json:"progress_to_next"`
	TotalComplaints    int      `json:"total_complaints"`
	ResolvedComplaints int      `json:"resolved_complaints"`
	FakeComplaints     int      `json:"fake_complaints"`
	PendingComplaints  int      `json:"pending_complaints"`
	SuccessRate        float64  `json:"success_rate"`
	CanRegister        bool     `json:"can_register"`
	Registration       Decision `json:"registration"`
	Badges             []Badge  `json:"badges"`
}

// Summarize builds the presentation summary for a reputation snapshot.
func (e *Engine) Summarize(rep model.Reputation) StatsSummary {
	level := e.LevelFor(rep.Points)
	decision := e.CanRegisterComplaint(rep.Points, rep.PendingComplaints)

	nextName := "Max Level"
	if level.Next != nil {
		nextName = level.Next.Name
	}

	successRate := 0.0
	if rep.TotalComplaints > 0 {
		successRate = float64(rep.ResolvedComplaints) / float64(rep.TotalComplaints) * 100
		successRate = math.Round(successRate*10) / 10
	}

	return StatsSummary{
		Points:             rep.Points,
		Level:              level.Current.Name,
		LevelColor:         level.Current.Color,
		NextLevel:          nextName,
		Progress:           level.Progress,
		TotalComplaints:    rep.TotalComplaints,
		ResolvedComplaints: rep.ResolvedComplaints,
		FakeComplaints:     rep.FakeComplaints,
		PendingComplaints:  rep.PendingComplaints,
		SuccessRate:        successRate,
		CanRegister:        decision.Allowed(),
		Registration:       decision,
		Badges:             e.BadgesFor(rep),
	}
}
