package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civiceye/internal/bucketing"
	"civiceye/internal/config"
	"civiceye/internal/gamification"
	"civiceye/internal/hashing"
	"civiceye/internal/model"
	"civiceye/internal/service"
	"civiceye/internal/util"
)

// memUserRepo and friends implement just enough of the storage interfaces
// to drive the router end to end.

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func (r *memUserRepo) CreateUser(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	copied.CreatedAt = time.Now().UTC()
	r.users[user.Username] = &copied
	return nil
}

func (r *memUserRepo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[username]
	if !ok {
		return nil, gocql.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *memUserRepo) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[username]
	return ok, nil
}

func (r *memUserRepo) UpdateReputation(ctx context.Context, username string, rep model.Reputation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[username]; ok {
		user.Reputation = rep
	}
	return nil
}

func (r *memUserRepo) UpdateLastLogin(ctx context.Context, username string, timestamp time.Time) error {
	return nil
}

func (r *memUserRepo) HealthCheck(ctx context.Context) error { return nil }

func (r *memUserRepo) setPoints(username string, points int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[username]; ok {
		user.Reputation.Points = points
	}
}

type memReportRepo struct {
	mu      sync.Mutex
	seq     int
	reports map[string]*model.Report
}

func (r *memReportRepo) CreateReport(ctx context.Context, report *model.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	report.ReportID = fmt.Sprintf("ce-%08d", r.seq)
	report.CreatedAt = time.Now().UTC()
	copied := *report
	r.reports[report.ReportID] = &copied
	return nil
}

func (r *memReportRepo) GetReport(ctx context.Context, reportID string) (*model.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.reports[reportID]
	if !ok {
		return nil, gocql.ErrNotFound
	}
	copied := *report
	return &copied, nil
}

func (r *memReportRepo) ListUserReports(ctx context.Context, username string, limit int) ([]*model.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var reports []*model.Report
	for _, report := range r.reports {
		if report.Username == username {
			copied := *report
			reports = append(reports, &copied)
		}
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].ReportID > reports[j].ReportID })
	if len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

func (r *memReportRepo) ListReportsByDay(ctx context.Context, dateBucket string, limit int) ([]*model.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var reports []*model.Report
	for _, report := range r.reports {
		copied := *report
		reports = append(reports, &copied)
	}
	return reports, nil
}

func (r *memReportRepo) UpdateStatus(ctx context.Context, report *model.Report, newStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.reports[report.ReportID]; ok {
		stored.Status = newStatus
		report.Status = newStatus
	}
	return nil
}

func (r *memReportRepo) MarkFake(ctx context.Context, report *model.Report, fakeScore float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.reports[report.ReportID]; ok {
		stored.Fake = true
		stored.FakeScore = fakeScore
		stored.FakePenalized = true
		report.Fake = true
		report.FakePenalized = true
	}
	return nil
}

func (r *memReportRepo) HealthCheck(ctx context.Context) error { return nil }

type memSessionStore struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]*model.Session
}

func (s *memSessionStore) CreateSession(ctx context.Context, username, role string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	token := fmt.Sprintf("token-%d", s.seq)
	s.sessions[token] = &model.Session{Token: token, Username: username, Role: role, CreatedAt: time.Now().UTC()}
	return token, nil
}

func (s *memSessionStore) GetSession(ctx context.Context, token string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (s *memSessionStore) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *memSessionStore) InvalidateAllUserSessions(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, session := range s.sessions {
		if session.Username == username {
			delete(s.sessions, token)
		}
	}
	return nil
}

type memReputationCache struct {
	mu          sync.Mutex
	leaderboard map[string]int
}

func (c *memReputationCache) AcquireLock(ctx context.Context, username string) error { return nil }
func (c *memReputationCache) ReleaseLock(ctx context.Context, username string)       {}

func (c *memReputationCache) UpdateLeaderboard(ctx context.Context, username string, points int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaderboard[username] = points
	return nil
}

func (c *memReputationCache) TopUsers(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var entries []model.LeaderboardEntry
	for username, points := range c.leaderboard {
		entries = append(entries, model.LeaderboardEntry{Username: username, Points: points})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Points > entries[j].Points })
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

type apiFixture struct {
	server *httptest.Server
	users  *memUserRepo
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	users := &memUserRepo{users: make(map[string]*model.User)}
	reports := &memReportRepo{reports: make(map[string]*model.Report)}
	sessions := &memSessionStore{sessions: make(map[string]*model.Session)}
	cache := &memReputationCache{leaderboard: make(map[string]int)}

	cfg := &config.Config{
		Hashing:   config.HashingConfig{Argon2MemoryCost: 1024, Argon2TimeCost: 1, Argon2Parallelism: 1},
		Bucketing: config.BucketingConfig{UserBuckets: 64},
	}
	engine := gamification.NewEngine(gamification.DefaultRules())
	hasher := hashing.NewHasher(cfg)
	bucketingMgr := bucketing.NewBucketingManager(cfg)

	userService := service.NewUserService(users, reports, sessions, cache, engine, hasher, nil, nil)
	complaintService := service.NewComplaintService(users, reports, cache, engine, nil, bucketingMgr, nil, nil)

	router := NewRouter(
		NewUserHandler(userService, util.Get()),
		NewComplaintHandler(complaintService, userService, util.Get()),
		util.Get(),
		false,
	)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &apiFixture{server: server, users: users}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, Response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope
}

func (f *apiFixture) signupAndLogin(t *testing.T, username string) string {
	t.Helper()

	resp, _ := f.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, envelope := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := envelope.Data.(map[string]interface{})
	return data["token"].(string)
}

func TestRouter_AuthFlow(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("protected routes reject missing tokens", func(t *testing.T) {
		resp, envelope := f.do(t, http.MethodGet, "/api/v1/dashboard", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.False(t, envelope.Success)
	})

	t.Run("signup, login, dashboard", func(t *testing.T) {
		token := f.signupAndLogin(t, "asha")

		resp, envelope := f.do(t, http.MethodGet, "/api/v1/dashboard", token, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, envelope.Success)
	})

	t.Run("banned user is forced out mid-session", func(t *testing.T) {
		token := f.signupAndLogin(t, "bela")
		f.users.setPoints("bela", -40)

		resp, _ := f.do(t, http.MethodGet, "/api/v1/dashboard", token, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		// The session itself is gone now, so the next request is a 401.
		resp, _ = f.do(t, http.MethodGet, "/api/v1/dashboard", token, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestRouter_Complaints(t *testing.T) {
	f := newAPIFixture(t)
	token := f.signupAndLogin(t, "asha")

	complaint := map[string]interface{}{
		"issue_type":     "pothole",
		"complaint_text": "Deep pothole on MG Road near the bus stop.",
	}

	t.Run("register and track", func(t *testing.T) {
		resp, envelope := f.do(t, http.MethodPost, "/api/v1/complaints", token, complaint)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		reportID := envelope.Data.(map[string]interface{})["report_id"].(string)

		// Tracking needs no session.
		resp, envelope = f.do(t, http.MethodGet, "/api/v1/complaints/"+reportID, "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "submitted", envelope.Data.(map[string]interface{})["status"])
	})

	t.Run("blocked registration carries the decision", func(t *testing.T) {
		f.users.setPoints("asha", -25)

		resp, envelope := f.do(t, http.MethodPost, "/api/v1/complaints", token, complaint)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.False(t, envelope.Success)

		decision := envelope.Data.(map[string]interface{})
		assert.Equal(t, "low_points", decision["reason"])
		assert.Equal(t, float64(6), decision["points_needed"])

		f.users.setPoints("asha", 0)
	})

	t.Run("citizens cannot change status", func(t *testing.T) {
		resp, envelope := f.do(t, http.MethodPost, "/api/v1/complaints", token, complaint)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		reportID := envelope.Data.(map[string]interface{})["report_id"].(string)

		resp, _ = f.do(t, http.MethodPatch, "/api/v1/complaints/"+reportID+"/status", token,
			map[string]string{"status": "resolved"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
