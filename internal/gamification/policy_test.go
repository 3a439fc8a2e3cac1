package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civiceye/internal/model"
)

func TestPolicy_RegistrationBoundaries(t *testing.T) {
	e := NewEngine(DefaultRules())

	t.Run("points -19 is not restricted on points grounds", func(t *testing.T) {
		d := e.CanRegisterComplaint(-19, 0)
		assert.Equal(t, Allowed, d.Status)
	})

	t.Run("points -20 is restricted", func(t *testing.T) {
		d := e.CanRegisterComplaint(-20, 0)
		assert.Equal(t, TemporarilyRestricted, d.Status)
		assert.Equal(t, ReasonLowPoints, d.Reason)
		assert.Equal(t, 1, d.PointsNeeded)
	})

	t.Run("points -39 is restricted but not banned", func(t *testing.T) {
		d := e.CanRegisterComplaint(-39, 0)
		assert.Equal(t, TemporarilyRestricted, d.Status)
		assert.Equal(t, 20, d.PointsNeeded)
	})

	t.Run("points -40 is banned", func(t *testing.T) {
		d := e.CanRegisterComplaint(-40, 0)
		assert.Equal(t, PermanentlyBanned, d.Status)
		assert.Equal(t, ReasonBanned, d.Reason)
	})

	t.Run("pending 2 allowed, pending 3 blocked", func(t *testing.T) {
		assert.Equal(t, Allowed, e.CanRegisterComplaint(0, 2).Status)

		d := e.CanRegisterComplaint(0, 3)
		assert.Equal(t, TemporarilyRestricted, d.Status)
		assert.Equal(t, ReasonPendingLimit, d.Reason)
		assert.Zero(t, d.PointsNeeded, "pending-limit restrictions carry no points deficit")
	})

	t.Run("points checks win over the pending limit", func(t *testing.T) {
		d := e.CanRegisterComplaint(-25, 5)
		assert.Equal(t, TemporarilyRestricted, d.Status)
		assert.Equal(t, ReasonLowPoints, d.Reason)

		d = e.CanRegisterComplaint(-40, 5)
		assert.Equal(t, PermanentlyBanned, d.Status)
	})
}

func TestPolicy_BanDominance(t *testing.T) {
	e := NewEngine(DefaultRules())

	for _, points := range []int{-40, -41, -100, -1000} {
		for _, pending := range []int{0, 2, 3, 50} {
			d := e.CanRegisterComplaint(points, pending)
			assert.Equal(t, PermanentlyBanned, d.Status,
				"points=%d pending=%d must be banned", points, pending)
		}
		assert.Equal(t, PermanentlyBanned, e.CanLogin(points).Status,
			"points=%d must be refused login", points)
	}
}

func TestPolicy_Login(t *testing.T) {
	e := NewEngine(DefaultRules())

	t.Run("restricted users may still log in", func(t *testing.T) {
		assert.Equal(t, Allowed, e.CanLogin(-20).Status)
		assert.Equal(t, Allowed, e.CanLogin(-39).Status)
	})

	t.Run("banned exactly at threshold", func(t *testing.T) {
		assert.Equal(t, PermanentlyBanned, e.CanLogin(-40).Status)
		assert.Equal(t, Allowed, e.CanLogin(-39).Status)
	})
}

func TestPolicy_Scenarios(t *testing.T) {
	e := NewEngine(DefaultRules())

	t.Run("four fake complaints restrict a fresh user", func(t *testing.T) {
		rep := model.Reputation{}
		for i := 0; i < 4; i++ {
			rep = e.ApplyRegistration(rep)
			rep = e.ApplyFakeFlag(rep)
		}
		require.Equal(t, -20, rep.Points)

		d := e.CanRegisterComplaint(rep.Points, rep.PendingComplaints)
		assert.Equal(t, TemporarilyRestricted, d.Status)
	})

	t.Run("two genuine resolutions lift a restriction", func(t *testing.T) {
		rep := model.Reputation{Points: -35, PendingComplaints: 2}
		rep = e.ApplyResolution(rep, false)
		rep = e.ApplyResolution(rep, false)
		require.Equal(t, -15, rep.Points)

		d := e.CanRegisterComplaint(rep.Points, rep.PendingComplaints)
		assert.Equal(t, Allowed, d.Status)
	})

	t.Run("one more fake flag at -35 crosses into a ban", func(t *testing.T) {
		rep := model.Reputation{Points: -35, PendingComplaints: 1}
		require.Equal(t, Allowed, e.CanLogin(rep.Points).Status)

		rep = e.ApplyFakeFlag(rep)
		require.Equal(t, -40, rep.Points)

		// The session created while allowed must be invalidated on the
		// next per-request check.
		assert.Equal(t, PermanentlyBanned, e.CanLogin(rep.Points).Status)
	})
}
