// internal/repository/mongo/training_plan_repo.go
package mongo

import (
	"alcyxob/routine-planner/internal/domain"
	"alcyxob/routine-planner/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const trainingPlanCollectionName = "training_plans"

// mongoTrainingPlanRepository implements repository.TrainingPlanRepository
type mongoTrainingPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoTrainingPlanRepository creates a new TrainingPlan repository.
func NewMongoTrainingPlanRepository(db *mongo.Database) repository.TrainingPlanRepository {
	return &mongoTrainingPlanRepository{
		collection: db.Collection(trainingPlanCollectionName),
	}
}

// GetByUserID loads the user's plan document. The raw document is decoded
// separately so shape problems surface as domain.ErrPlanSchema, not as I/O errors.
func (r *mongoTrainingPlanRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.TrainingPlan, error) {
	raw, err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var plan domain.TrainingPlan
	if err := bson.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPlanSchema, err)
	}
	return &plan, nil
}

// Save overwrites the whole plan document, guarded by the version it was read at.
func (r *mongoTrainingPlanRepository) Save(ctx context.Context, plan *domain.TrainingPlan) error {
	if plan.UserID == primitive.NilObjectID {
		return errors.New("training plan requires userId")
	}
	now := time.Now().UTC()
	expected := plan.Version
	next := *plan
	next.Version = expected + 1
	next.SchemaVersion = domain.CurrentPlanSchemaVersion
	next.UpdatedAt = now

	if plan.ID == primitive.NilObjectID {
		next.ID = primitive.NewObjectID()
		next.CreatedAt = now
		if _, err := r.collection.InsertOne(ctx, next); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return repository.ErrVersionConflict // someone created the plan first
			}
			return err
		}
		*plan = next
		return nil
	}

	filter := bson.M{"_id": plan.ID, "version": expected}
	if expected == 0 {
		// Documents written before versioning have no version field.
		filter["version"] = bson.M{"$in": bson.A{int64(0), nil}}
	}
	result, err := r.collection.ReplaceOne(ctx, filter, next)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrVersionConflict
	}
	*plan = next
	return nil
}

// EnsureTrainingPlanIndexes creates necessary indexes. Call during startup.
func EnsureTrainingPlanIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		// One plan document per user.
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
