package mongo

import (
	"context"

	"alcyxob/routine-planner/internal/repository"

	"go.mongodb.org/mongo-driver/mongo"
)

// mongoTransactor implements repository.Transactor with multi-document
// transactions. Requires a replica set (a single-node one is enough).
type mongoTransactor struct {
	client *mongo.Client
}

func NewMongoTransactor(client *mongo.Client) repository.Transactor {
	return &mongoTransactor{client: client}
}

// WithinTransaction hands fn a mongo.SessionContext; repository calls that use
// it join the transaction. WithTransaction retries transient commit errors.
func (t *mongoTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
