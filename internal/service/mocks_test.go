package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gocql/gocql"

	"civiceye/internal/model"
)

// In-memory fakes for the storage and cache backends. They implement the
// same interfaces the services consume in production.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (r *fakeUserRepo) CreateUser(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	copied.CreatedAt = time.Now().UTC()
	r.users[user.Username] = &copied
	return nil
}

func (r *fakeUserRepo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[username]
	if !ok {
		return nil, gocql.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[username]
	return ok, nil
}

func (r *fakeUserRepo) UpdateReputation(ctx context.Context, username string, rep model.Reputation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[username]
	if !ok {
		return gocql.ErrNotFound
	}
	user.Reputation = rep
	return nil
}

func (r *fakeUserRepo) UpdateLastLogin(ctx context.Context, username string, timestamp time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[username]; ok {
		user.LastLogin = &timestamp
	}
	return nil
}

func (r *fakeUserRepo) HealthCheck(ctx context.Context) error { return nil }

// setPoints overwrites a user's point balance directly, simulating changes
// that happened outside the current session.
func (r *fakeUserRepo) setPoints(username string, points int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[username]; ok {
		user.Reputation.Points = points
	}
}

type fakeReportRepo struct {
	mu      sync.Mutex
	seq     int
	reports map[string]*model.Report
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: make(map[string]*model.Report)}
}

func (r *fakeReportRepo) CreateReport(ctx context.Context, report *model.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if report.ReportID == "" {
		report.ReportID = fmt.Sprintf("ce-%08d", r.seq)
	}
	report.CreatedAt = time.Now().UTC()
	copied := *report
	r.reports[report.ReportID] = &copied
	return nil
}

func (r *fakeReportRepo) GetReport(ctx context.Context, reportID string) (*model.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.reports[reportID]
	if !ok {
		return nil, gocql.ErrNotFound
	}
	copied := *report
	return &copied, nil
}

func (r *fakeReportRepo) ListUserReports(ctx context.Context, username string, limit int) ([]*model.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var reports []*model.Report
	for _, report := range r.reports {
		if report.Username == username {
			copied := *report
			reports = append(reports, &copied)
		}
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].ReportID > reports[j].ReportID
	})
	if len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

func (r *fakeReportRepo) ListReportsByDay(ctx context.Context, dateBucket string, limit int) ([]*model.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var reports []*model.Report
	for _, report := range r.reports {
		copied := *report
		reports = append(reports, &copied)
	}
	if len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

func (r *fakeReportRepo) UpdateStatus(ctx context.Context, report *model.Report, newStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.reports[report.ReportID]
	if !ok {
		return gocql.ErrNotFound
	}
	now := time.Now().UTC()
	stored.Status = newStatus
	stored.UpdatedAt = &now
	report.Status = newStatus
	report.UpdatedAt = &now
	return nil
}

func (r *fakeReportRepo) MarkFake(ctx context.Context, report *model.Report, fakeScore float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.reports[report.ReportID]
	if !ok {
		return gocql.ErrNotFound
	}
	stored.Fake = true
	stored.FakeScore = fakeScore
	stored.FakePenalized = true
	report.Fake = true
	report.FakeScore = fakeScore
	report.FakePenalized = true
	return nil
}

func (r *fakeReportRepo) HealthCheck(ctx context.Context) error { return nil }

type fakeSessionStore struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]*model.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*model.Session)}
}

func (s *fakeSessionStore) CreateSession(ctx context.Context, username, role string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	token := fmt.Sprintf("token-%d", s.seq)
	s.sessions[token] = &model.Session{
		Token:     token,
		Username:  username,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	return token, nil
}

func (s *fakeSessionStore) GetSession(ctx context.Context, token string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (s *fakeSessionStore) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *fakeSessionStore) InvalidateAllUserSessions(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, session := range s.sessions {
		if session.Username == username {
			delete(s.sessions, token)
		}
	}
	return nil
}

type fakeReputationCache struct {
	mu          sync.Mutex
	locks       map[string]bool
	leaderboard map[string]int
}

func newFakeReputationCache() *fakeReputationCache {
	return &fakeReputationCache{
		locks:       make(map[string]bool),
		leaderboard: make(map[string]int),
	}
}

func (c *fakeReputationCache) AcquireLock(ctx context.Context, username string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks[username] {
		return fmt.Errorf("reputation lock for %s is held", username)
	}
	c.locks[username] = true
	return nil
}

func (c *fakeReputationCache) ReleaseLock(ctx context.Context, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locks, username)
}

func (c *fakeReputationCache) UpdateLeaderboard(ctx context.Context, username string, points int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaderboard[username] = points
	return nil
}

func (c *fakeReputationCache) TopUsers(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var entries []model.LeaderboardEntry
	for username, points := range c.leaderboard {
		entries = append(entries, model.LeaderboardEntry{Username: username, Points: points})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

type fakeSearchIndex struct {
	mu   sync.Mutex
	docs map[string]model.Report
}

func newFakeSearchIndex() *fakeSearchIndex {
	return &fakeSearchIndex{docs: make(map[string]model.Report)}
}

func (s *fakeSearchIndex) IndexReport(ctx context.Context, report *model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[report.ReportID] = *report
	return nil
}

func (s *fakeSearchIndex) SearchReports(ctx context.Context, query string, limit int) ([]model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	query = strings.ToLower(query)
	var out []model.Report
	for _, doc := range s.docs {
		if len(out) == limit {
			break
		}
		if strings.Contains(strings.ToLower(doc.ComplaintText), query) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *fakeSearchIndex) DeleteReport(ctx context.Context, reportID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, reportID)
	return nil
}

func (s *fakeSearchIndex) indexed(reportID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[reportID]
	return ok
}
