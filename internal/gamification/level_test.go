package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civiceye/internal/model"
)

func TestLevelFor_Tiers(t *testing.T) {
	e := NewEngine(DefaultRules())

	cases := []struct {
		points int
		level  string
	}{
		{-100, "Novice Citizen"},
		{0, "Novice Citizen"},
		{49, "Novice Citizen"},
		{50, "Active Citizen"},
		{99, "Active Citizen"},
		{100, "Super Citizen"},
		{200, "Elite Citizen"},
		{499, "Elite Citizen"},
		{500, "Guardian Citizen"},
		{10000, "Guardian Citizen"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, e.LevelFor(tc.points).Current.Name, "points=%d", tc.points)
	}
}

func TestLevelFor_Progress(t *testing.T) {
	e := NewEngine(DefaultRules())

	t.Run("negative points clamp to zero progress", func(t *testing.T) {
		st := e.LevelFor(-30)
		assert.Equal(t, "Novice Citizen", st.Current.Name)
		require.NotNil(t, st.Next)
		assert.Equal(t, "Active Citizen", st.Next.Name)
		assert.Equal(t, 0.0, st.Progress)
	})

	t.Run("midway through a tier", func(t *testing.T) {
		st := e.LevelFor(25)
		require.NotNil(t, st.Next)
		assert.Equal(t, "Active Citizen", st.Next.Name)
		assert.InDelta(t, 0.5, st.Progress, 1e-9)
	})

	t.Run("top tier reports full progress and no next tier", func(t *testing.T) {
		st := e.LevelFor(700)
		assert.Nil(t, st.Next)
		assert.Equal(t, 1.0, st.Progress)
	})

	t.Run("non-decreasing within a tier, resets at the boundary", func(t *testing.T) {
		prev := e.LevelFor(-40)
		for points := -39; points <= 600; points++ {
			cur := e.LevelFor(points)
			switch {
			case cur.Current.Name == prev.Current.Name:
				assert.GreaterOrEqual(t, cur.Progress, prev.Progress,
					"progress regressed within tier at points=%d", points)
			case cur.Next == nil:
				// The top tier has nothing to progress toward.
				assert.Equal(t, 1.0, cur.Progress,
					"top tier did not report full progress at points=%d", points)
			default:
				assert.Equal(t, 0.0, cur.Progress,
					"progress did not reset at tier boundary points=%d", points)
			}
			prev = cur
		}
	})
}

func TestBadgesFor(t *testing.T) {
	e := NewEngine(DefaultRules())

	names := func(rep model.Reputation) []string {
		var out []string
		for _, b := range e.BadgesFor(rep) {
			out = append(out, b.Name)
		}
		return out
	}

	t.Run("fresh user earns nothing", func(t *testing.T) {
		assert.Empty(t, e.BadgesFor(model.Reputation{}))
	})

	t.Run("clean five-for-five record", func(t *testing.T) {
		got := names(model.Reputation{
			TotalComplaints:    5,
			ResolvedComplaints: 5,
			Points:             50,
		})
		assert.Contains(t, got, "First Step")
		assert.Contains(t, got, "Problem Solver")
		assert.Contains(t, got, "Active Reporter")
		assert.Contains(t, got, "Trustworthy")
		assert.NotContains(t, got, "Community Hero")
		assert.NotContains(t, got, "Point Master")
	})

	t.Run("trustworthy is revoked by a fake complaint", func(t *testing.T) {
		rep := model.Reputation{TotalComplaints: 6, ResolvedComplaints: 5}
		assert.Contains(t, names(rep), "Trustworthy")

		rep.FakeComplaints = 1
		assert.NotContains(t, names(rep), "Trustworthy")
	})

	t.Run("point thresholds", func(t *testing.T) {
		got := names(model.Reputation{Points: 500})
		assert.Contains(t, got, "Point Master")
		assert.Contains(t, got, "Legendary Citizen")

		got = names(model.Reputation{Points: 99})
		assert.NotContains(t, got, "Point Master")
	})
}

func TestSummarize(t *testing.T) {
	e := NewEngine(DefaultRules())

	rep := model.Reputation{
		Points:             60,
		TotalComplaints:    8,
		ResolvedComplaints: 6,
		FakeComplaints:     0,
		PendingComplaints:  2,
	}
	sum := e.Summarize(rep)

	assert.Equal(t, "Active Citizen", sum.Level)
	assert.Equal(t, "Super Citizen", sum.NextLevel)
	assert.InDelta(t, 0.2, sum.Progress, 1e-9)
	assert.Equal(t, 75.0, sum.SuccessRate)
	assert.True(t, sum.CanRegister, "pending=2 is still within the limit")
	assert.NotEmpty(t, sum.Badges)

	t.Run("restricted user summary carries the decision", func(t *testing.T) {
		sum := e.Summarize(model.Reputation{Points: -20})
		assert.False(t, sum.CanRegister)
		assert.Equal(t, ReasonLowPoints, sum.Registration.Reason)
		assert.Equal(t, "Novice Citizen", sum.Level)
	})
}
