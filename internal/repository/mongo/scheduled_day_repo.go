// internal/repository/mongo/scheduled_day_repo.go
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

const scheduledDayCollectionName = "scheduled_days"

// mongoScheduledDayRepository implements repository.ScheduledDayRepository
type mongoScheduledDayRepository struct {
	collection *mongo.Collection
}

// NewMongoScheduledDayRepository creates a new ScheduledDay repository.
func NewMongoScheduledDayRepository(db *mongo.Database) repository.ScheduledDayRepository {
	return &mongoScheduledDayRepository{
		collection: db.Collection(scheduledDayCollectionName),
	}
}

// CreateMany inserts all days in one round trip. IDs are assigned in place.
func (r *mongoScheduledDayRepository) CreateMany(ctx context.Context, days []domain.ScheduledDay) error {
	if len(days) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, len(days))
	for i := range days {
		if days[i].UserID == primitive.NilObjectID || days[i].Date.IsZero() || days[i].Weekday == "" {
			return errors.New("scheduled day requires userId, weekday and date")
		}
		if days[i].ID == primitive.NilObjectID {
			days[i].ID = primitive.NewObjectID()
		}
		if days[i].Status == "" {
			days[i].Status = domain.DayPending
		}
		days[i].CreatedAt = now
		days[i].UpdatedAt = now
		docs[i] = days[i]
	}

	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID retrieves a single scheduled day by its ID.
func (r *mongoScheduledDayRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ScheduledDay, error) {
	var day domain.ScheduledDay
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&day)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &day, nil
}

// FindConflicts loads the user's rows on any candidate date and keeps the ones
// whose weekday matches too.
func (r *mongoScheduledDayRepository) FindConflicts(ctx context.Context, userID primitive.ObjectID, candidates []domain.DayConflict) ([]domain.DayConflict, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	wanted := make(map[domain.DayConflict]struct{}, len(candidates))
	dates := make([]domain.Date, 0, len(candidates))
	for _, c := range candidates {
		wanted[c] = struct{}{}
		dates = append(dates, c.Date)
	}

	existing, err := r.find(ctx, bson.M{"userId": userID, "date": bson.M{"$in": dates}})
	if err != nil {
		return nil, err
	}
	var conflicts []domain.DayConflict
	for _, day := range existing {
		key := domain.DayConflict{Weekday: day.Weekday, Date: day.Date}
		if _, ok := wanted[key]; ok {
			conflicts = append(conflicts, key)
		}
	}
	return conflicts, nil
}

func (r *mongoScheduledDayRepository) ListByPeriod(ctx context.Context, periodID primitive.ObjectID) ([]domain.ScheduledDay, error) {
	return r.find(ctx, bson.M{"periodId": periodID})
}

func (r *mongoScheduledDayRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.ScheduledDay, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

func (r *mongoScheduledDayRepository) ListByUserAndStatus(ctx context.Context, userID primitive.ObjectID, status domain.DayStatus) ([]domain.ScheduledDay, error) {
	return r.find(ctx, bson.M{"userId": userID, "status": status})
}

func (r *mongoScheduledDayRepository) find(ctx context.Context, filter bson.M) ([]domain.ScheduledDay, error) {
	var days []domain.ScheduledDay
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &days); err != nil {
		return nil, err
	}
	return days, nil
}

// DistinctWeekdays lists the weekday names recorded for a period.
func (r *mongoScheduledDayRepository) DistinctWeekdays(ctx context.Context, periodID primitive.ObjectID) ([]string, error) {
	values, err := r.collection.Distinct(ctx, "weekday", bson.M{"periodId": periodID})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected weekday value %v", v)
		}
		names = append(names, s)
	}
	return names, nil
}

// MarkPendingFailedInPeriod fails the still-pending days of an expired period
// up to and including through. Later rows are repair replacements.
func (r *mongoScheduledDayRepository) MarkPendingFailedInPeriod(ctx context.Context, periodID primitive.ObjectID, through domain.Date) (int64, error) {
	return r.failPending(ctx, bson.M{
		"periodId": periodID,
		"status":   domain.DayPending,
		"date":     bson.M{"$lte": through},
	})
}

// MovePendingAfter hands pending rows dated after `after` over to another period.
func (r *mongoScheduledDayRepository) MovePendingAfter(ctx context.Context, periodID primitive.ObjectID, after domain.Date, to *domain.RoutinePeriod) (int64, error) {
	filter := bson.M{
		"periodId": periodID,
		"status":   domain.DayPending,
		"date":     bson.M{"$gt": after},
	}
	update := bson.M{"$set": bson.M{
		"periodId":    to.ID,
		"periodStart": to.StartDate,
		"periodEnd":   to.EndDate,
		"updatedAt":   time.Now().UTC(),
	}}
	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (r *mongoScheduledDayRepository) MarkFailed(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return r.failPending(ctx, bson.M{"_id": bson.M{"$in": ids}, "status": domain.DayPending})
}

func (r *mongoScheduledDayRepository) failPending(ctx context.Context, filter bson.M) (int64, error) {
	update := bson.M{"$set": bson.M{"status": domain.DayFailed, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// UpdateStatus is a compare-and-set on the status field.
func (r *mongoScheduledDayRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to domain.DayStatus) error {
	filter := bson.M{"_id": id, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrUpdateFailed
	}
	return nil
}

// Delete removes a day owned by userID.
func (r *mongoScheduledDayRepository) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureScheduledDayIndexes creates necessary indexes. Call during startup.
func EnsureScheduledDayIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// One session per (user, weekday, date).
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "weekday", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "periodId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
