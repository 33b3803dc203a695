// internal/repository/mongo/period_repo.go
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

const periodCollectionName = "routine_periods"

// mongoPeriodRepository implements repository.PeriodRepository
type mongoPeriodRepository struct {
	collection *mongo.Collection
}

// NewMongoPeriodRepository creates a new RoutinePeriod repository.
func NewMongoPeriodRepository(db *mongo.Database) repository.PeriodRepository {
	return &mongoPeriodRepository{
		collection: db.Collection(periodCollectionName),
	}
}

// Create inserts a new period.
func (r *mongoPeriodRepository) Create(ctx context.Context, period *domain.RoutinePeriod) (primitive.ObjectID, error) {
	if period.UserID == primitive.NilObjectID || period.StartDate.IsZero() || period.EndDate.IsZero() {
		return primitive.NilObjectID, errors.New("period requires userId, startDate and endDate")
	}
	if period.ID == primitive.NilObjectID {
		period.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	period.CreatedAt = now
	period.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, period); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	return period.ID, nil
}

// GetByID retrieves a single period by its ID.
func (r *mongoPeriodRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.RoutinePeriod, error) {
	var period domain.RoutinePeriod
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&period)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &period, nil
}

// GetCurrent picks the latest-starting period that has not ended yet.
func (r *mongoPeriodRepository) GetCurrent(ctx context.Context, userID primitive.ObjectID, today domain.Date) (*domain.RoutinePeriod, error) {
	var period domain.RoutinePeriod
	filter := bson.M{
		"userId":  userID,
		"endDate": bson.M{"$gte": today},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "startDate", Value: -1}})
	err := r.collection.FindOne(ctx, filter, opts).Decode(&period)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &period, nil
}

// ListEndingOn returns every period whose last day is date.
func (r *mongoPeriodRepository) ListEndingOn(ctx context.Context, date domain.Date) ([]domain.RoutinePeriod, error) {
	var periods []domain.RoutinePeriod
	cursor, err := r.collection.Find(ctx, bson.M{"endDate": date}, options.Find().SetSort(bson.D{{Key: "userId", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &periods); err != nil {
		return nil, err
	}
	return periods, nil
}

// ExistsStartingOn backs the renewal idempotency guard.
func (r *mongoPeriodRepository) ExistsStartingOn(ctx context.Context, userID primitive.ObjectID, date domain.Date) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"userId": userID, "startDate": date}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateWindow moves the end of a period and replaces its session window.
func (r *mongoPeriodRepository) UpdateWindow(ctx context.Context, id primitive.ObjectID, end domain.Date, sessionStart, sessionEnd string) error {
	update := bson.M{"$set": bson.M{
		"endDate":      end,
		"sessionStart": sessionStart,
		"sessionEnd":   sessionEnd,
		"updatedAt":    time.Now().UTC(),
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsurePeriodIndexes creates necessary indexes. Call during startup.
func EnsurePeriodIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// Current-period lookup and the renewal idempotency guard.
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "startDate", Value: -1}},
			Options: options.Index(),
		},
		{
			// Daily renewal scan.
			Keys:    bson.D{{Key: "endDate", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
