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

const failureReportCollectionName = "failure_reports"

type mongoFailureReportRepository struct {
	collection *mongo.Collection
}

func NewMongoFailureReportRepository(db *mongo.Database) repository.FailureReportRepository {
	return &mongoFailureReportRepository{
		collection: db.Collection(failureReportCollectionName),
	}
}

// Create appends a report. Reports are never updated.
func (r *mongoFailureReportRepository) Create(ctx context.Context, report *domain.FailureReport) (primitive.ObjectID, error) {
	if report.UserID == primitive.NilObjectID || report.Reason == "" {
		return primitive.NilObjectID, errors.New("failure report requires userId and reason")
	}
	report.ID = primitive.NewObjectID()
	report.CreatedAt = time.Now().UTC()

	if _, err := r.collection.InsertOne(ctx, report); err != nil {
		return primitive.NilObjectID, err
	}
	return report.ID, nil
}

// ListByUser returns reports newest first.
func (r *mongoFailureReportRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.FailureReport, error) {
	var reports []domain.FailureReport
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func EnsureFailureReportIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index(),
	})
	return err
}
