package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"civiceye/internal/client"
	"civiceye/internal/gamification"
	"civiceye/internal/hashing"
	"civiceye/internal/model"
	"civiceye/internal/repository/scylla"
	"civiceye/internal/util"
)

const (
	recentReportsLimit   = 10
	leaderboardSize      = 10
	notificationsWindow  = 5
	pointHistoryLimit    = 20
	minPasswordLength    = 8
	maxUsernameLength    = 50
)

// UserService handles accounts, sessions, and the reputation views built
// on top of them. Every authenticated request funnels through
// Authenticate, which re-checks the ban threshold so a ban takes effect
// immediately rather than at next login.
type UserService struct {
	userRepo   scylla.UserRepository
	reportRepo scylla.ReportRepository
	sessions   SessionStore
	repCache   ReputationCoordinator
	engine     *gamification.Engine
	hasher     *hashing.Hasher
	clickhouse *client.ClickHouseClient
	events     *eventSink
}

func NewUserService(
	userRepo scylla.UserRepository,
	reportRepo scylla.ReportRepository,
	sessions SessionStore,
	repCache ReputationCoordinator,
	engine *gamification.Engine,
	hasher *hashing.Hasher,
	kafka *client.KafkaProducer,
	clickhouse *client.ClickHouseClient,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		reportRepo: reportRepo,
		sessions:   sessions,
		repCache:   repCache,
		engine:     engine,
		hasher:     hasher,
		clickhouse: clickhouse,
		events:     newEventSink(kafka, clickhouse),
	}
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (s *UserService) Signup(ctx context.Context, req SignupRequest) (*model.User, error) {
	username := strings.ToLower(util.SanitizeInput(req.Username))
	email := strings.ToLower(util.SanitizeInput(req.Email))
	name := util.SanitizeInput(req.Name)

	if username == "" || email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrInvalidInput)
	}
	if len(username) > maxUsernameLength {
		return nil, fmt.Errorf("%w: username too long", ErrInvalidInput)
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if util.ContainsSuspicious(req.Username) || util.ContainsSuspicious(req.Email) || util.ContainsSuspicious(req.Name) {
		return nil, fmt.Errorf("%w: input contains disallowed content", ErrInvalidInput)
	}

	taken, err := s.userRepo.IsUsernameTaken(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, ErrUserAlreadyExists
	}

	hashResult, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:      username,
		Email:         email,
		Name:          name,
		Role:          model.RoleCitizen,
		PasswordHash:  hashResult.Hash,
		PasswordSalt:  hashResult.Salt,
		PepperVersion: hashResult.PepperVersion,
	}

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Seed the leaderboard so new citizens show up at zero.
	if err := s.repCache.UpdateLeaderboard(ctx, username, 0); err != nil {
		util.Warn("Failed to seed leaderboard entry",
			zap.String("username", username),
			zap.Error(err))
	}

	util.Info("User signed up", zap.String("username", username))
	return user, nil
}

// Login verifies credentials and checks the permanent-ban threshold before
// issuing a session. Temporarily restricted users may still log in; only a
// permanent ban blocks access entirely.
func (s *UserService) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return "", nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if err == gocql.ErrNotFound {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to load user: %w", err)
	}

	ok, err := s.hasher.VerifyPassword(password, &hashing.HashResult{
		Hash:          user.PasswordHash,
		Salt:          user.PasswordSalt,
		PepperVersion: user.PepperVersion,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return "", nil, ErrInvalidCredentials
	}

	if decision := s.engine.CanLogin(user.Reputation.Points); !decision.Allowed() {
		util.Warn("Banned user attempted login",
			zap.String("username", username),
			zap.Int("points", user.Reputation.Points))
		return "", nil, fmt.Errorf("%w: %s", ErrUserBanned, decision.Message)
	}

	token, err := s.sessions.CreateSession(ctx, username, user.Role)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, username, time.Now().UTC()); err != nil {
		util.Warn("Failed to update last login",
			zap.String("username", username),
			zap.Error(err))
	}

	util.Info("User logged in", zap.String("username", username))
	return token, user, nil
}

// Authenticate resolves a session token to its user, re-checking the ban
// threshold on every call. A user who crossed the threshold since login is
// logged out of all sessions on the spot.
func (s *UserService) Authenticate(ctx context.Context, token string) (*model.Session, *model.User, error) {
	if token == "" {
		return nil, nil, ErrSessionInvalid
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, nil, ErrSessionInvalid
	}

	user, err := s.userRepo.GetUserByUsername(ctx, session.Username)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, nil, ErrSessionInvalid
		}
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}

	if decision := s.engine.CanLogin(user.Reputation.Points); !decision.Allowed() {
		if err := s.sessions.InvalidateAllUserSessions(ctx, session.Username); err != nil {
			util.Error("Failed to invalidate sessions for banned user",
				zap.String("username", session.Username),
				zap.Error(err))
		}
		util.Warn("Banned user forced out",
			zap.String("username", session.Username),
			zap.Int("points", user.Reputation.Points))
		return nil, nil, fmt.Errorf("%w: %s", ErrUserBanned, decision.Message)
	}

	return session, user, nil
}

func (s *UserService) Logout(ctx context.Context, token string) error {
	return s.sessions.DeleteSession(ctx, token)
}

// ProfileView is the full reputation profile: summary, recent complaints,
// and the point change history from analytics.
type ProfileView struct {
	Username     string                  `json:"username"`
	Name         string                  `json:"name"`
	Role         string                  `json:"role"`
	MemberSince  time.Time               `json:"member_since"`
	Stats        gamification.StatsSummary `json:"stats"`
	Reports      []*model.Report         `json:"recent_reports"`
	PointHistory []model.ReputationEvent `json:"point_history,omitempty"`
}

func (s *UserService) Profile(ctx context.Context, username string) (*ProfileView, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	var (
		reports []*model.Report
		history []model.ReputationEvent
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reports, err = s.reportRepo.ListUserReports(gctx, username, recentReportsLimit)
		return err
	})
	g.Go(func() error {
		if s.clickhouse == nil {
			return nil
		}
		var err error
		history, err = s.clickhouse.PointHistory(gctx, username, pointHistoryLimit)
		if err != nil {
			// Analytics being down should not take the profile down.
			util.Warn("Failed to load point history",
				zap.String("username", username),
				zap.Error(err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	return &ProfileView{
		Username:     user.Username,
		Name:         user.Name,
		Role:         user.Role,
		MemberSince:  user.CreatedAt,
		Stats:        s.engine.Summarize(user.Reputation),
		Reports:      reports,
		PointHistory: history,
	}, nil
}

// DashboardView is the logged-in landing page: the user's stats, recent
// complaints, derived notifications, and the community leaderboard.
type DashboardView struct {
	Stats         gamification.StatsSummary `json:"stats"`
	Reports       []*model.Report           `json:"reports"`
	Notifications []model.Notification      `json:"notifications"`
	Leaderboard   []model.LeaderboardEntry  `json:"leaderboard"`
}

func (s *UserService) Dashboard(ctx context.Context, user *model.User) (*DashboardView, error) {
	var (
		reports     []*model.Report
		leaderboard []model.LeaderboardEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reports, err = s.reportRepo.ListUserReports(gctx, user.Username, recentReportsLimit)
		return err
	})
	g.Go(func() error {
		var err error
		leaderboard, err = s.repCache.TopUsers(gctx, leaderboardSize)
		if err != nil {
			util.Warn("Failed to load leaderboard", zap.Error(err))
			leaderboard = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}

	return &DashboardView{
		Stats:         s.engine.Summarize(user.Reputation),
		Reports:       reports,
		Notifications: buildNotifications(reports),
		Leaderboard:   leaderboard,
	}, nil
}

// buildNotifications derives dashboard notifications from the user's most
// recent complaint outcomes.
func buildNotifications(reports []*model.Report) []model.Notification {
	notifications := make([]model.Notification, 0, notificationsWindow)
	for _, report := range reports {
		if len(notifications) >= notificationsWindow {
			break
		}

		when := report.CreatedAt
		if report.UpdatedAt != nil {
			when = *report.UpdatedAt
		}

		switch {
		case report.Fake:
			notifications = append(notifications, model.Notification{
				Message: fmt.Sprintf("Complaint %s was flagged as fake. Points were deducted.", report.ReportID),
				Type:    "warning",
				Date:    when,
			})
		case report.Status == model.StatusResolved:
			notifications = append(notifications, model.Notification{
				Message: fmt.Sprintf("Complaint %s was resolved. Points awarded!", report.ReportID),
				Type:    "success",
				Date:    when,
			})
		case report.Status == model.StatusRejected:
			notifications = append(notifications, model.Notification{
				Message: fmt.Sprintf("Complaint %s was rejected.", report.ReportID),
				Type:    "info",
				Date:    when,
			})
		}
	}
	return notifications
}

func (s *UserService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = leaderboardSize
	}
	return s.repCache.TopUsers(ctx, limit)
}

// AdjustPoints applies a manual point correction to a user. Admin only.
// A downward adjustment can push a user over the restriction or ban
// threshold; the per-request ban check picks that up immediately.
func (s *UserService) AdjustPoints(ctx context.Context, actor *model.Session, username string, delta int, reason string) (*gamification.StatsSummary, error) {
	if actor == nil || actor.Role != model.RoleAdmin {
		return nil, ErrPermissionDenied
	}
	if delta == 0 {
		return nil, fmt.Errorf("%w: delta must be non-zero", ErrInvalidInput)
	}

	username = strings.ToLower(strings.TrimSpace(username))

	if err := s.repCache.AcquireLock(ctx, username); err != nil {
		return nil, fmt.Errorf("failed to lock reputation: %w", err)
	}
	defer s.repCache.ReleaseLock(ctx, username)

	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	rep := user.Reputation
	rep.Points += delta

	if err := s.userRepo.UpdateReputation(ctx, username, rep); err != nil {
		return nil, fmt.Errorf("failed to persist adjustment: %w", err)
	}

	if err := s.repCache.UpdateLeaderboard(ctx, username, rep.Points); err != nil {
		util.Warn("Failed to update leaderboard",
			zap.String("username", username),
			zap.Error(err))
	}

	s.events.emit(ctx, model.EventManualAdjust, username, "", false, delta, rep.Points)

	util.Info("Points adjusted manually",
		zap.String("admin", actor.Username),
		zap.String("username", username),
		zap.Int("delta", delta),
		zap.String("reason", reason))

	summary := s.engine.Summarize(rep)
	return &summary, nil
}
