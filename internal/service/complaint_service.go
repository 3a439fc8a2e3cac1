package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"civiceye/internal/bucketing"
	"civiceye/internal/client"
	"civiceye/internal/gamification"
	"civiceye/internal/model"
	"civiceye/internal/repository/scylla"
	"civiceye/internal/util"
)

const (
	maxComplaintTextLength = 5000
	defaultSearchLimit     = 20
	recentFeedLimit        = 50
)

// ComplaintService owns the complaint lifecycle and drives every
// reputation change through the gamification ledger. All reputation
// writes follow the same shape: acquire the user's lock, load the current
// snapshot, apply the ledger operation, persist, then fan out events.
type ComplaintService struct {
	userRepo   scylla.UserRepository
	reportRepo scylla.ReportRepository
	repCache   ReputationCoordinator
	engine     *gamification.Engine
	es         SearchIndex
	bucketing  *bucketing.BucketingManager
	events     *eventSink
}

func NewComplaintService(
	userRepo scylla.UserRepository,
	reportRepo scylla.ReportRepository,
	repCache ReputationCoordinator,
	engine *gamification.Engine,
	es SearchIndex,
	bucketingMgr *bucketing.BucketingManager,
	kafka *client.KafkaProducer,
	clickhouse *client.ClickHouseClient,
) *ComplaintService {
	return &ComplaintService{
		userRepo:   userRepo,
		reportRepo: reportRepo,
		repCache:   repCache,
		engine:     engine,
		es:         es,
		bucketing:  bucketingMgr,
		events:     newEventSink(kafka, clickhouse),
	}
}

type RegisterComplaintRequest struct {
	IssueType     string         `json:"issue_type"`
	Description   string         `json:"description"`
	ComplaintText string         `json:"complaint_text"`
	Location      model.Location `json:"location"`
}

// RegistrationBlockedError carries the policy decision so handlers can
// tell the citizen exactly why registration was refused and how many
// points they need.
type RegistrationBlockedError struct {
	Decision gamification.Decision
}

func (e *RegistrationBlockedError) Error() string {
	return e.Decision.Message
}

func (e *RegistrationBlockedError) Unwrap() error {
	return ErrRegistrationBlocked
}

// Register files a new complaint for the user. The access policy is
// evaluated under the user's reputation lock so a burst of submissions
// cannot slip past the pending limit.
func (s *ComplaintService) Register(ctx context.Context, username string, req RegisterComplaintRequest) (*model.Report, error) {
	issueType := util.SanitizeInput(req.IssueType)
	description := util.SanitizeInput(req.Description)
	complaintText := util.SanitizeInput(req.ComplaintText)

	if issueType == "" || complaintText == "" {
		return nil, fmt.Errorf("%w: issue type and complaint text are required", ErrInvalidInput)
	}
	if len(complaintText) > maxComplaintTextLength {
		return nil, fmt.Errorf("%w: complaint text too long", ErrInvalidInput)
	}
	if util.ContainsSuspicious(req.ComplaintText) || util.ContainsSuspicious(req.Description) {
		return nil, fmt.Errorf("%w: complaint contains disallowed content", ErrInvalidInput)
	}

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

	decision := s.engine.CanRegisterComplaint(user.Reputation.Points, user.Reputation.PendingComplaints)
	if !decision.Allowed() {
		util.Warn("Complaint registration blocked",
			zap.String("username", username),
			zap.String("reason", decision.Reason),
			zap.Int("points", user.Reputation.Points),
			zap.Int("pending", user.Reputation.PendingComplaints))
		return nil, &RegistrationBlockedError{Decision: decision}
	}

	report := &model.Report{
		Username:      username,
		IssueType:     issueType,
		Description:   description,
		ComplaintText: complaintText,
		Location:      req.Location,
		Status:        model.StatusSubmitted,
	}

	if err := s.reportRepo.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	rep := s.engine.ApplyRegistration(user.Reputation)
	if err := s.userRepo.UpdateReputation(ctx, username, rep); err != nil {
		return nil, fmt.Errorf("failed to update reputation: %w", err)
	}

	s.events.emit(ctx, model.EventRegistered, username, report.ReportID, false, 0, rep.Points)
	s.indexReport(ctx, report)

	util.Info("Complaint registered",
		zap.String("report_id", report.ReportID),
		zap.String("username", username),
		zap.String("issue_type", issueType))

	return report, nil
}

// Track returns a single complaint by its tracking ID. Tracking is public:
// the IDs are short and citizens quote them over the phone, and the match
// is case-insensitive.
func (s *ComplaintService) Track(ctx context.Context, reportID string) (*model.Report, error) {
	report, err := s.reportRepo.GetReport(ctx, util.NormalizeReportID(reportID))
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}

	return report, nil
}

func (s *ComplaintService) ListUserReports(ctx context.Context, username string, limit int) ([]*model.Report, error) {
	if limit <= 0 || limit > recentFeedLimit {
		limit = recentReportsLimit
	}
	return s.reportRepo.ListUserReports(ctx, username, limit)
}

// ListRecent returns today's complaint feed for authority dashboards.
func (s *ComplaintService) ListRecent(ctx context.Context, limit int) ([]*model.Report, error) {
	if limit <= 0 || limit > recentFeedLimit {
		limit = recentFeedLimit
	}
	return s.reportRepo.ListReportsByDay(ctx, s.bucketing.GetDateBucket(), limit)
}

// UpdateStatus moves a complaint through its lifecycle and applies the
// matching ledger operation:
//
//	pending -> resolved            award (unless the report is fake)
//	pending -> rejected or closed  drain pending, no point change
//	submitted -> in_progress       no ledger event
//
// Transitions out of a terminal status are rejected.
func (s *ComplaintService) UpdateStatus(ctx context.Context, actor *model.Session, reportID, newStatus string) (*model.Report, error) {
	if actor.Role != model.RoleAuthority && actor.Role != model.RoleAdmin {
		return nil, ErrPermissionDenied
	}
	if !model.IsValidStatus(newStatus) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	report, err := s.reportRepo.GetReport(ctx, util.NormalizeReportID(reportID))
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}

	if report.Status == newStatus {
		return report, nil
	}
	if !model.IsPendingStatus(report.Status) {
		return nil, fmt.Errorf("%w: report is already %s", ErrInvalidStatus, report.Status)
	}

	if err := s.reportRepo.UpdateStatus(ctx, report, newStatus); err != nil {
		return nil, err
	}

	switch newStatus {
	case model.StatusResolved:
		err = s.applyLedger(ctx, report.Username, report.ReportID, func(rep model.Reputation) (model.Reputation, string, int) {
			next := s.engine.ApplyResolution(rep, report.Fake)
			return next, model.EventResolved, next.Points - rep.Points
		})
	case model.StatusRejected, model.StatusClosed:
		err = s.applyLedger(ctx, report.Username, report.ReportID, func(rep model.Reputation) (model.Reputation, string, int) {
			return s.engine.ApplyRejection(rep), model.EventRejected, 0
		})
	}
	if err != nil {
		return nil, err
	}

	util.Info("Complaint status changed",
		zap.String("report_id", report.ReportID),
		zap.String("status", newStatus),
		zap.String("actor", actor.Username))

	return report, nil
}

// FlagFake marks a complaint as fake and applies the penalty exactly once.
// The penalized flag travels with the report, so flagging an
// already-penalized report is a no-op on points.
func (s *ComplaintService) FlagFake(ctx context.Context, actor *model.Session, reportID string, fakeScore float64) (*model.Report, error) {
	if actor.Role != model.RoleAdmin {
		return nil, ErrPermissionDenied
	}

	report, err := s.reportRepo.GetReport(ctx, util.NormalizeReportID(reportID))
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}

	if report.FakePenalized {
		return nil, ErrAlreadyPenalized
	}

	if err := s.reportRepo.MarkFake(ctx, report, fakeScore); err != nil {
		return nil, err
	}

	err = s.applyLedger(ctx, report.Username, report.ReportID, func(rep model.Reputation) (model.Reputation, string, int) {
		next := s.engine.ApplyFakeFlag(rep)
		return next, model.EventFlaggedFake, next.Points - rep.Points
	})
	if err != nil {
		return nil, err
	}

	// A flagged complaint must stop surfacing in search results.
	s.deindexReport(ctx, report.ReportID)

	util.Warn("Complaint flagged as fake",
		zap.String("report_id", report.ReportID),
		zap.String("username", report.Username),
		zap.Float64("fake_score", fakeScore),
		zap.String("actor", actor.Username))

	return report, nil
}

// Search runs a full-text query over indexed complaints.
func (s *ComplaintService) Search(ctx context.Context, query string, limit int) ([]model.Report, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	if s.es == nil {
		return nil, ErrSearchUnavailable
	}
	if limit <= 0 || limit > recentFeedLimit {
		limit = defaultSearchLimit
	}
	return s.es.SearchReports(ctx, query, limit)
}

// applyLedger runs a single ledger operation under the user's reputation
// lock: load snapshot, apply, persist, update leaderboard, emit the event.
func (s *ComplaintService) applyLedger(ctx context.Context, username, reportID string, op func(model.Reputation) (model.Reputation, string, int)) error {
	if err := s.repCache.AcquireLock(ctx, username); err != nil {
		return fmt.Errorf("failed to lock reputation: %w", err)
	}
	defer s.repCache.ReleaseLock(ctx, username)

	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	next, eventType, delta := op(user.Reputation)

	if err := s.userRepo.UpdateReputation(ctx, username, next); err != nil {
		return fmt.Errorf("failed to update reputation: %w", err)
	}

	if err := s.repCache.UpdateLeaderboard(ctx, username, next.Points); err != nil {
		util.Warn("Failed to update leaderboard",
			zap.String("username", username),
			zap.Error(err))
	}

	s.events.emit(ctx, eventType, username, reportID, eventType == model.EventFlaggedFake, delta, next.Points)
	return nil
}

func (s *ComplaintService) indexReport(ctx context.Context, report *model.Report) {
	if s.es == nil {
		return
	}
	if err := s.es.IndexReport(ctx, report); err != nil {
		util.Warn("Failed to index report for search",
			zap.String("report_id", report.ReportID),
			zap.Error(err))
	}
}

func (s *ComplaintService) deindexReport(ctx context.Context, reportID string) {
	if s.es == nil {
		return
	}
	if err := s.es.DeleteReport(ctx, reportID); err != nil {
		util.Warn("Failed to remove report from search index",
			zap.String("report_id", reportID),
			zap.Error(err))
	}
}
