package gamification

// Level is one named reputation bracket.
type Level struct {
	Name      string `json:"name"`
	MinPoints int    `json:"min_points"`
	Color     string `json:"color"`
}

// levels is ordered by ascending threshold; LevelFor walks it and keeps the
// last tier the balance clears. Negative balances map to the first tier.
var levels = []Level{
	{Name: "Novice Citizen", MinPoints: 0, Color: "#gray"},
	{Name: "Active Citizen", MinPoints: 50, Color: "#blue"},
	{Name: "Super Citizen", MinPoints: 100, Color: "#green"},
	{Name: "Elite Citizen", MinPoints: 200, Color: "#purple"},
	{Name: "Guardian Citizen", MinPoints: 500, Color: "#gold"},
}

// LevelState is the presentation state derived from a point balance.
type LevelState struct {
	Current Level `json:"current_level"`
	// Next is nil at the top tier.
	Next *Level `json:"next_level,omitempty"`
	// Progress is the fraction of the way from the current tier threshold
	// to the next, clamped to [0,1]. 1.0 at the top tier.
	Progress float64 `json:"progress"`
}

// LevelFor maps a point balance to its tier and progress toward the next.
// Negative balances stay on the first tier with zero progress toward the
// second.
func (e *Engine) LevelFor(points int) LevelState {
	idx := 0
	for i, lvl := range levels {
		if points >= lvl.MinPoints {
			idx = i
		}
	}

	current := levels[idx]
	var next *Level
	if idx+1 < len(levels) {
		n := levels[idx+1]
		next = &n
	}

	return LevelState{
		Current:  current,
		Next:     next,
		Progress: progress(points, current, next),
	}
}

func progress(points int, current Level, next *Level) float64 {
	if next == nil {
		return 1.0
	}
	span := next.MinPoints - current.MinPoints
	if span <= 0 {
		return 1.0
	}
	p := float64(points-current.MinPoints) / float64(span)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
