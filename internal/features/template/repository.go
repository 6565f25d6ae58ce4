package template

import (
	"context"
	"time"

	"go-grc/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TemplateRepository interface {
	Create(ctx context.Context, tmpl *WorkflowTemplate) error
	GetByID(ctx context.Context, id string) (*WorkflowTemplate, error)
	List(ctx context.Context, filter ListFilter) ([]WorkflowTemplate, int64, error)
	Update(ctx context.Context, id string, set bson.M) error
	Delete(ctx context.Context, id string) error
}

type TemplateRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewTemplateRepository(mongodb *database.MongodbDB) TemplateRepository {
	return &TemplateRepositoryImpl{
		Collection: mongodb.DB.Collection("workflow_templates"),
	}
}

func (r *TemplateRepositoryImpl) Create(ctx context.Context, tmpl *WorkflowTemplate) error {
	_, err := r.Collection.InsertOne(ctx, tmpl)
	return err
}

func (r *TemplateRepositoryImpl) GetByID(ctx context.Context, id string) (*WorkflowTemplate, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var tmpl WorkflowTemplate
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&tmpl)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &tmpl, nil
}

func (r *TemplateRepositoryImpl) List(ctx context.Context, filter ListFilter) ([]WorkflowTemplate, int64, error) {
	query := bson.M{}
	if filter.EntityType != "" {
		query["entity_type"] = filter.EntityType
	}
	if filter.Search != "" {
		query["name"] = bson.M{"$regex": primitive.Regex{Pattern: filter.Search, Options: "i"}}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}

	total, err := r.Collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetLimit(limit).
		SetSkip((page - 1) * limit).
		SetSort(bson.M{"created_at": -1})

	cursor, err := r.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var templates []WorkflowTemplate
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, 0, err
	}
	return templates, total, nil
}

func (r *TemplateRepositoryImpl) Update(ctx context.Context, id string, set bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	set["updated_at"] = time.Now()
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	return err
}

func (r *TemplateRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	// Step templates are embedded, so removing the document cascades to them.
	_, err = r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}
