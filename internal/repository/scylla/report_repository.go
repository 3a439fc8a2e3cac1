package scylla

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"civiceye/internal/bucketing"
	"civiceye/internal/model"
	"civiceye/internal/util"
)

type reportRepository struct {
	client    *ScyllaClient
	bucketing *bucketing.BucketingManager
}

func NewReportRepository(client *ScyllaClient, bucketingMgr *bucketing.BucketingManager) ReportRepository {
	return &reportRepository{
		client:    client,
		bucketing: bucketingMgr,
	}
}

// newReportID generates a short, lowercase tracking ID citizens can quote
// over the phone.
func newReportID() string {
	return "ce-" + strings.ToLower(uuid.New().String()[:8])
}

func (r *reportRepository) CreateReport(ctx context.Context, report *model.Report) error {
	if report.ReportID == "" {
		report.ReportID = newReportID()
	}
	report.CreatedAt = time.Now().UTC()

	// Denormalized writes go through a logged batch so the three views of
	// a report never diverge.
	batch := r.client.Batch(gocql.LoggedBatch).WithContext(ctx)

	batch.Query(r.client.Prepared.CreateReport.Statement(),
		report.ReportID, report.Username, report.IssueType, report.Description,
		report.ComplaintText, report.Location.Latitude, report.Location.Longitude,
		report.Status, report.Fake, report.FakeScore, report.FakePenalized,
		report.CreatedAt, report.CreatedAt)

	batch.Query(r.client.Prepared.CreateReportByUser.Statement(),
		report.Username, report.CreatedAt, report.ReportID, report.IssueType,
		report.Description, report.ComplaintText,
		report.Location.Latitude, report.Location.Longitude,
		report.Status, report.Fake, report.FakeScore, report.FakePenalized,
		report.CreatedAt)

	batch.Query(r.client.Prepared.CreateReportByDay.Statement(),
		r.bucketing.GetDateBucket(), report.CreatedAt, report.ReportID,
		report.Username, report.IssueType, report.Status)

	if err := r.client.ExecuteBatch(batch); err != nil {
		util.Error("Failed to create report",
			zap.String("report_id", report.ReportID),
			zap.String("username", report.Username),
			zap.Error(err))
		return fmt.Errorf("failed to create report: %w", err)
	}

	util.Info("Report created",
		zap.String("report_id", report.ReportID),
		zap.String("username", report.Username),
		zap.String("issue_type", report.IssueType))

	return nil
}

func (r *reportRepository) GetReport(ctx context.Context, reportID string) (*model.Report, error) {
	report := &model.Report{}
	var updatedAt time.Time

	query := r.client.Prepared.GetReport.WithContext(ctx).Bind(util.NormalizeReportID(reportID))
	err := r.client.ScanWithRetry(query,
		&report.ReportID, &report.Username, &report.IssueType, &report.Description,
		&report.ComplaintText, &report.Location.Latitude, &report.Location.Longitude,
		&report.Status, &report.Fake, &report.FakeScore, &report.FakePenalized,
		&report.CreatedAt, &updatedAt,
	)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, gocql.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	if !updatedAt.IsZero() {
		report.UpdatedAt = &updatedAt
	}

	return report, nil
}

func (r *reportRepository) ListUserReports(ctx context.Context, username string, limit int) ([]*model.Report, error) {
	iter := r.client.Prepared.ListUserReports.WithContext(ctx).Bind(username, limit).Iter()

	var reports []*model.Report
	for {
		report := &model.Report{}
		var updatedAt time.Time
		if !iter.Scan(
			&report.ReportID, &report.Username, &report.IssueType, &report.Description,
			&report.ComplaintText, &report.Location.Latitude, &report.Location.Longitude,
			&report.Status, &report.Fake, &report.FakeScore, &report.FakePenalized,
			&report.CreatedAt, &updatedAt,
		) {
			break
		}
		if !updatedAt.IsZero() {
			report.UpdatedAt = &updatedAt
		}
		reports = append(reports, report)
	}

	if err := iter.Close(); err != nil {
		util.Error("Failed to list user reports",
			zap.String("username", username),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list user reports: %w", err)
	}

	return reports, nil
}

func (r *reportRepository) ListReportsByDay(ctx context.Context, dateBucket string, limit int) ([]*model.Report, error) {
	iter := r.client.Prepared.ListReportsByDay.WithContext(ctx).Bind(dateBucket, limit).Iter()

	var reports []*model.Report
	for {
		report := &model.Report{}
		if !iter.Scan(&report.ReportID, &report.Username, &report.IssueType,
			&report.Status, &report.CreatedAt) {
			break
		}
		reports = append(reports, report)
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list reports by day: %w", err)
	}

	return reports, nil
}

func (r *reportRepository) UpdateStatus(ctx context.Context, report *model.Report, newStatus string) error {
	now := time.Now().UTC()

	batch := r.client.Batch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(r.client.Prepared.UpdateReportStatus.Statement(),
		newStatus, now, report.ReportID)
	batch.Query(r.client.Prepared.UpdateReportStatusByUser.Statement(),
		newStatus, now, report.Username, report.CreatedAt, report.ReportID)

	if err := r.client.ExecuteBatch(batch); err != nil {
		util.Error("Failed to update report status",
			zap.String("report_id", report.ReportID),
			zap.String("new_status", newStatus),
			zap.Error(err))
		return fmt.Errorf("failed to update report status: %w", err)
	}

	report.Status = newStatus
	report.UpdatedAt = &now

	util.Info("Report status updated",
		zap.String("report_id", report.ReportID),
		zap.String("status", newStatus))

	return nil
}

// MarkFake flags a report fake and records the penalty as applied. The two
// flags travel in the same batch: once a report is fake-penalized it can
// never be penalized again.
func (r *reportRepository) MarkFake(ctx context.Context, report *model.Report, fakeScore float64) error {
	now := time.Now().UTC()

	batch := r.client.Batch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(r.client.Prepared.MarkReportFake.Statement(),
		true, fakeScore, true, now, report.ReportID)
	batch.Query(r.client.Prepared.MarkReportFakeByUser.Statement(),
		true, fakeScore, true, now, report.Username, report.CreatedAt, report.ReportID)

	if err := r.client.ExecuteBatch(batch); err != nil {
		util.Error("Failed to mark report fake",
			zap.String("report_id", report.ReportID),
			zap.Error(err))
		return fmt.Errorf("failed to mark report fake: %w", err)
	}

	report.Fake = true
	report.FakeScore = fakeScore
	report.FakePenalized = true
	report.UpdatedAt = &now

	util.Info("Report flagged as fake",
		zap.String("report_id", report.ReportID),
		zap.Float64("fake_score", fakeScore))

	return nil
}

func (r *reportRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck()
}
