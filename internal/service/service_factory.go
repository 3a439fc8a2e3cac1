package service

import (
	"civiceye/internal/bucketing"
	"civiceye/internal/client"
	"civiceye/internal/gamification"
	"civiceye/internal/hashing"
	"civiceye/internal/repository/scylla"
)

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	userRepo     scylla.UserRepository
	reportRepo   scylla.ReportRepository
	sessions     SessionStore
	repCache     ReputationCoordinator
	engine       *gamification.Engine
	hasher       *hashing.Hasher
	bucketingMgr *bucketing.BucketingManager
	kafka        *client.KafkaProducer
	clickhouse   *client.ClickHouseClient
	es           *client.ESClient

	userService      *UserService
	complaintService *ComplaintService
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(
	userRepo scylla.UserRepository,
	reportRepo scylla.ReportRepository,
	sessions SessionStore,
	repCache ReputationCoordinator,
	engine *gamification.Engine,
	hasher *hashing.Hasher,
	bucketingMgr *bucketing.BucketingManager,
	kafka *client.KafkaProducer,
	clickhouse *client.ClickHouseClient,
	es *client.ESClient,
) *ServiceFactory {
	return &ServiceFactory{
		userRepo:     userRepo,
		reportRepo:   reportRepo,
		sessions:     sessions,
		repCache:     repCache,
		engine:       engine,
		hasher:       hasher,
		bucketingMgr: bucketingMgr,
		kafka:        kafka,
		clickhouse:   clickhouse,
		es:           es,
	}
}

// UserService returns the user service instance (singleton)
func (f *ServiceFactory) UserService() *UserService {
	if f.userService == nil {
		f.userService = NewUserService(
			f.userRepo,
			f.reportRepo,
			f.sessions,
			f.repCache,
			f.engine,
			f.hasher,
			f.kafka,
			f.clickhouse,
		)
	}
	return f.userService
}

// ComplaintService returns the complaint service instance (singleton)
func (f *ServiceFactory) ComplaintService() *ComplaintService {
	if f.complaintService == nil {
		// A nil *client.ESClient must stay a nil interface so the service's
		// availability checks keep working.
		var search SearchIndex
		if f.es != nil {
			search = f.es
		}
		f.complaintService = NewComplaintService(
			f.userRepo,
			f.reportRepo,
			f.repCache,
			f.engine,
			search,
			f.bucketingMgr,
			f.kafka,
			f.clickhouse,
		)
	}
	return f.complaintService
}
