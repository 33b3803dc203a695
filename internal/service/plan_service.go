package service

import (
	"alcyxob/routine-planner/internal/domain"
	"alcyxob/routine-planner/internal/logger"
	"alcyxob/routine-planner/internal/repository"
	"alcyxob/routine-planner/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SnapshotCauseRepair  = "repair"
	SnapshotCauseRenewal = "renewal"
)

// SnapshotURL is a temporary download link for an archived plan version.
type SnapshotURL struct {
	Version   int64     `json:"version"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type PlanService interface {
	GetPlan(ctx context.Context, userID primitive.ObjectID) (*domain.TrainingPlan, error)
	ListSnapshots(ctx context.Context, userID primitive.ObjectID) ([]domain.PlanSnapshot, error)
	GetSnapshotURL(ctx context.Context, userID primitive.ObjectID, version int64) (*SnapshotURL, error)
}

// PlanArchiver copies a plan version to object storage before it is overwritten.
type PlanArchiver interface {
	// Archive never fails the caller; problems are logged.
	Archive(ctx context.Context, plan *domain.TrainingPlan, cause string)
}

type planService struct {
	planRepo     repository.TrainingPlanRepository
	snapshotRepo repository.PlanSnapshotRepository
	fileStorage  storage.FileStorage // nil when archiving is disabled
	log          *logger.Logger
}

// NewPlanService creates the read side of plans and snapshots. fileStorage may be nil.
func NewPlanService(
	planRepo repository.TrainingPlanRepository,
	snapshotRepo repository.PlanSnapshotRepository,
	fileStorage storage.FileStorage,
	log *logger.Logger,
) PlanService {
	return &planService{
		planRepo:     planRepo,
		snapshotRepo: snapshotRepo,
		fileStorage:  fileStorage,
		log:          log.With("service", "PlanService"),
	}
}

func (s *planService) GetPlan(ctx context.Context, userID primitive.ObjectID) (*domain.TrainingPlan, error) {
	return loadPlan(ctx, s.planRepo, userID)
}

func (s *planService) ListSnapshots(ctx context.Context, userID primitive.ObjectID) ([]domain.PlanSnapshot, error) {
	return s.snapshotRepo.ListByUser(ctx, userID)
}

func (s *planService) GetSnapshotURL(ctx context.Context, userID primitive.ObjectID, version int64) (*SnapshotURL, error) {
	if s.fileStorage == nil {
		return nil, ErrArchiveDisabled
	}
	snap, err := s.snapshotRepo.GetByVersion(ctx, userID, version)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}
	url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, snap.ObjectKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign snapshot: %w", err)
	}
	return &SnapshotURL{
		Version:   version,
		URL:       url,
		ExpiresAt: time.Now().Add(storage.DefaultPresignedURLExpiry).UTC(),
	}, nil
}

type planArchiver struct {
	snapshotRepo repository.PlanSnapshotRepository
	fileStorage  storage.FileStorage
	log          *logger.Logger
}

// NewPlanArchiver returns an archiver that does nothing when fileStorage is nil.
func NewPlanArchiver(snapshotRepo repository.PlanSnapshotRepository, fileStorage storage.FileStorage, log *logger.Logger) PlanArchiver {
	return &planArchiver{
		snapshotRepo: snapshotRepo,
		fileStorage:  fileStorage,
		log:          log.With("service", "PlanArchiver"),
	}
}

func (s *planArchiver) Archive(ctx context.Context, plan *domain.TrainingPlan, cause string) {
	if s.fileStorage == nil || plan == nil || plan.ID == primitive.NilObjectID {
		return
	}
	log := s.log.With("userId", plan.UserID.Hex(), "planVersion", plan.Version, "cause", cause)

	body, err := json.Marshal(plan)
	if err != nil {
		log.Error("failed to encode plan snapshot", "error", err)
		return
	}
	objectKey := path.Join("plans", plan.UserID.Hex(), fmt.Sprintf("v%06d-%s.json", plan.Version, uuid.NewString()))
	if err := s.fileStorage.PutObject(ctx, objectKey, "application/json", body); err != nil {
		log.Warn("plan snapshot upload failed", "error", err)
		return
	}

	_, err = s.snapshotRepo.Create(ctx, &domain.PlanSnapshot{
		UserID:      plan.UserID,
		PlanVersion: plan.Version,
		ObjectKey:   objectKey,
		Cause:       cause,
		Size:        int64(len(body)),
	})
	if err != nil {
		// Already archived (retried overwrite) or metadata write failed: drop the orphan object.
		if delErr := s.fileStorage.DeleteObject(ctx, objectKey); delErr != nil {
			log.Warn("failed to remove orphaned snapshot object", "key", objectKey, "error", delErr)
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			log.Warn("plan snapshot metadata write failed", "error", err)
		}
		return
	}
	log.Info("plan version archived", "key", objectKey, "size", len(body))
}

// loadPlan reads and migrates the user's plan, mapping storage errors to
// ErrPlanNotFound / ErrPlanMalformed.
func loadPlan(ctx context.Context, repo repository.TrainingPlanRepository, userID primitive.ObjectID) (*domain.TrainingPlan, error) {
	plan, err := repo.GetByUserID(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrPlanNotFound
		case errors.Is(err, domain.ErrPlanSchema):
			return nil, fmt.Errorf("%w: %v", ErrPlanMalformed, err)
		}
		return nil, err
	}
	if err := plan.Migrate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanMalformed, err)
	}
	plan.SortWorkouts()
	return plan, nil
}
