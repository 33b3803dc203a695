package mongo

import (
	"alcyxob/routine-planner/internal/domain"
	"alcyxob/routine-planner/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const planSnapshotCollectionName = "plan_snapshots"

// mongoPlanSnapshotRepository implements repository.PlanSnapshotRepository
type mongoPlanSnapshotRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanSnapshotRepository creates a new instance.
func NewMongoPlanSnapshotRepository(db *mongo.Database) repository.PlanSnapshotRepository {
	return &mongoPlanSnapshotRepository{
		collection: db.Collection(planSnapshotCollectionName),
	}
}

// Create inserts a new snapshot metadata record.
func (r *mongoPlanSnapshotRepository) Create(ctx context.Context, snapshot *domain.PlanSnapshot) (primitive.ObjectID, error) {
	if snapshot.UserID == primitive.NilObjectID || snapshot.ObjectKey == "" {
		return primitive.NilObjectID, errors.New("snapshot userId and objectKey are required")
	}
	snapshot.ID = primitive.NewObjectID()
	snapshot.ArchivedAt = time.Now().UTC()

	if _, err := r.collection.InsertOne(ctx, snapshot); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	return snapshot.ID, nil
}

// GetByVersion finds the snapshot of a given plan version.
func (r *mongoPlanSnapshotRepository) GetByVersion(ctx context.Context, userID primitive.ObjectID, version int64) (*domain.PlanSnapshot, error) {
	var snapshot domain.PlanSnapshot
	err := r.collection.FindOne(ctx, bson.M{"userId": userID, "planVersion": version}).Decode(&snapshot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &snapshot, nil
}

// ListByUser returns snapshots newest version first.
func (r *mongoPlanSnapshotRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.PlanSnapshot, error) {
	var snapshots []domain.PlanSnapshot
	opts := options.Find().SetSort(bson.D{{Key: "planVersion", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// EnsurePlanSnapshotIndexes creates necessary indexes.
func EnsurePlanSnapshotIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "planVersion", Value: -1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
