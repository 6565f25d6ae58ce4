package archive

import (
	"context"

	"go-grc/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ArchiveRunRepository interface {
	Create(ctx context.Context, run *ArchiveRun) error
	Update(ctx context.Context, run *ArchiveRun) error
	List(ctx context.Context, limit int64) ([]ArchiveRun, error)
}

type ArchiveRunRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewArchiveRunRepository(mongodb *database.MongodbDB) ArchiveRunRepository {
	return &ArchiveRunRepositoryImpl{
		Collection: mongodb.DB.Collection("archive_runs"),
	}
}

func (r *ArchiveRunRepositoryImpl) Create(ctx context.Context, run *ArchiveRun) error {
	_, err := r.Collection.InsertOne(ctx, run)
	return err
}

func (r *ArchiveRunRepositoryImpl) Update(ctx context.Context, run *ArchiveRun) error {
	_, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": run.ID}, run)
	return err
}

func (r *ArchiveRunRepositoryImpl) List(ctx context.Context, limit int64) ([]ArchiveRun, error) {
	if limit < 1 {
		limit = 20
	}
	opts := options.Find().SetSort(bson.M{"started_at": -1}).SetLimit(limit)
	cursor, err := r.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var runs []ArchiveRun
	if err = cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}
