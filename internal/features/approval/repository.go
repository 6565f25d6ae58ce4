package approval

import (
	"context"
	"time"

	"go-grc/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ApprovalRepository owns approval_requests. Conditional updates carry the
// expected current step so a stale writer matches zero documents instead of
// double-applying.
type ApprovalRepository interface {
	CreateWithSteps(ctx context.Context, req *ApprovalRequest, steps []ApprovalRequestStep) error
	GetByID(ctx context.Context, id string) (*ApprovalRequest, error)
	List(ctx context.Context, filter ListFilter) ([]ApprovalRequest, int64, error)
	ListNonTerminal(ctx context.Context) ([]ApprovalRequest, error)
	FindActiveByEntity(ctx context.Context, entityType, entityID string) (*ApprovalRequest, error)
	CountByTemplate(ctx context.Context, templateID string) (int64, error)
	Advance(ctx context.Context, id primitive.ObjectID, fromStep int) (bool, error)
	Finalize(ctx context.Context, id primitive.ObjectID, fromStep int, status RequestStatus, completedAt time.Time) (bool, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, fromStep int, from []RequestStatus, to RequestStatus) (bool, error)
}

// StepRepository owns approval_request_steps, scoped to one instance each.
type StepRepository interface {
	Get(ctx context.Context, requestID primitive.ObjectID, stepOrder int) (*ApprovalRequestStep, error)
	ListByRequest(ctx context.Context, requestID primitive.ObjectID) ([]ApprovalRequestStep, error)
	Transition(ctx context.Context, requestID primitive.ObjectID, stepOrder int, to StepStatus, action Action, actorID, comments string, at time.Time) (bool, error)
	ResetToPending(ctx context.Context, requestID primitive.ObjectID, stepOrder int) (bool, error)
	ListPendingByRequests(ctx context.Context, requestIDs []primitive.ObjectID) ([]ApprovalRequestStep, error)
}

// ActionLogRepository is a pure append sink; no update or delete is exposed.
type ActionLogRepository interface {
	Append(ctx context.Context, log *ApprovalActionLog) error
	ListByRequest(ctx context.Context, requestID primitive.ObjectID) ([]ApprovalActionLog, error)
}

type ApprovalRepositoryImpl struct {
	Client   *mongo.Client
	Requests *mongo.Collection
	Steps    *mongo.Collection
}

func NewApprovalRepository(mongodb *database.MongodbDB) ApprovalRepository {
	return &ApprovalRepositoryImpl{
		Client:   mongodb.Client,
		Requests: mongodb.DB.Collection("approval_requests"),
		Steps:    mongodb.DB.Collection("approval_request_steps"),
	}
}

// CreateWithSteps inserts the instance and its cloned steps in one session
// transaction: either everything lands or nothing does. A partially created
// instance would be permanently stuck, so this must never half-apply.
func (r *ApprovalRepositoryImpl) CreateWithSteps(ctx context.Context, req *ApprovalRequest, steps []ApprovalRequestStep) error {
	session, err := r.Client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.Requests.InsertOne(sc, req); err != nil {
			return nil, err
		}
		docs := make([]interface{}, len(steps))
		for i := range steps {
			docs[i] = steps[i]
		}
		if _, err := r.Steps.InsertMany(sc, docs); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

func (r *ApprovalRepositoryImpl) GetByID(ctx context.Context, id string) (*ApprovalRequest, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var req ApprovalRequest
	err = r.Requests.FindOne(ctx, bson.M{"_id": oid}).Decode(&req)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *ApprovalRepositoryImpl) List(ctx context.Context, filter ListFilter) ([]ApprovalRequest, int64, error) {
	query := bson.M{}
	if filter.EntityType != "" {
		query["entity_type"] = filter.EntityType
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}

	total, err := r.Requests.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetLimit(limit).
		SetSkip((page - 1) * limit).
		SetSort(bson.M{"requested_at": -1})

	cursor, err := r.Requests.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var requests []ApprovalRequest
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

func (r *ApprovalRepositoryImpl) ListNonTerminal(ctx context.Context) ([]ApprovalRequest, error) {
	cursor, err := r.Requests.Find(ctx, bson.M{"status": bson.M{"$in": NonTerminalStatuses}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []ApprovalRequest
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *ApprovalRepositoryImpl) FindActiveByEntity(ctx context.Context, entityType, entityID string) (*ApprovalRequest, error) {
	var req ApprovalRequest
	err := r.Requests.FindOne(ctx, bson.M{
		"entity_type": entityType,
		"entity_id":   entityID,
		"status":      bson.M{"$in": NonTerminalStatuses},
	}).Decode(&req)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *ApprovalRepositoryImpl) CountByTemplate(ctx context.Context, templateID string) (int64, error) {
	return r.Requests.CountDocuments(ctx, bson.M{"workflow_id": templateID})
}

func (r *ApprovalRepositoryImpl) Advance(ctx context.Context, id primitive.ObjectID, fromStep int) (bool, error) {
	res, err := r.Requests.UpdateOne(ctx, bson.M{
		"_id":          id,
		"current_step": fromStep,
		"status":       bson.M{"$in": NonTerminalStatuses},
	}, bson.M{
		"$inc": bson.M{"current_step": 1},
		"$set": bson.M{"status": StatusInProgress},
	})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *ApprovalRepositoryImpl) Finalize(ctx context.Context, id primitive.ObjectID, fromStep int, status RequestStatus, completedAt time.Time) (bool, error) {
	res, err := r.Requests.UpdateOne(ctx, bson.M{
		"_id":          id,
		"current_step": fromStep,
		"status":       bson.M{"$in": NonTerminalStatuses},
	}, bson.M{
		"$set": bson.M{"status": status, "completed_at": completedAt},
	})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *ApprovalRepositoryImpl) SetStatus(ctx context.Context, id primitive.ObjectID, fromStep int, from []RequestStatus, to RequestStatus) (bool, error) {
	res, err := r.Requests.UpdateOne(ctx, bson.M{
		"_id":          id,
		"current_step": fromStep,
		"status":       bson.M{"$in": from},
	}, bson.M{
		"$set": bson.M{"status": to},
	})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

type StepRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewStepRepository(mongodb *database.MongodbDB) StepRepository {
	return &StepRepositoryImpl{
		Collection: mongodb.DB.Collection("approval_request_steps"),
	}
}

func (r *StepRepositoryImpl) Get(ctx context.Context, requestID primitive.ObjectID, stepOrder int) (*ApprovalRequestStep, error) {
	var step ApprovalRequestStep
	err := r.Collection.FindOne(ctx, bson.M{"request_id": requestID, "step_order": stepOrder}).Decode(&step)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &step, nil
}

func (r *StepRepositoryImpl) ListByRequest(ctx context.Context, requestID primitive.ObjectID) ([]ApprovalRequestStep, error) {
	opts := options.Find().SetSort(bson.M{"step_order": 1})
	cursor, err := r.Collection.Find(ctx, bson.M{"request_id": requestID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var steps []ApprovalRequestStep
	if err = cursor.All(ctx, &steps); err != nil {
		return nil, err
	}
	return steps, nil
}

// Transition is the race boundary: the filter requires status=pending, so of
// two concurrent writers exactly one matches and the loser sees matched=false.
func (r *StepRepositoryImpl) Transition(ctx context.Context, requestID primitive.ObjectID, stepOrder int, to StepStatus, action Action, actorID, comments string, at time.Time) (bool, error) {
	res, err := r.Collection.UpdateOne(ctx, bson.M{
		"request_id": requestID,
		"step_order": stepOrder,
		"status":     StepPending,
	}, bson.M{
		"$set": bson.M{
			"status":    to,
			"action":    action,
			"action_by": actorID,
			"action_at": at,
			"comments":  comments,
		},
	})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *StepRepositoryImpl) ResetToPending(ctx context.Context, requestID primitive.ObjectID, stepOrder int) (bool, error) {
	res, err := r.Collection.UpdateOne(ctx, bson.M{
		"request_id": requestID,
		"step_order": stepOrder,
		"status":     StepRevisionRequired,
	}, bson.M{
		"$set":   bson.M{"status": StepPending},
		"$unset": bson.M{"action": "", "action_by": "", "action_at": "", "comments": ""},
	})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *StepRepositoryImpl) ListPendingByRequests(ctx context.Context, requestIDs []primitive.ObjectID) ([]ApprovalRequestStep, error) {
	if len(requestIDs) == 0 {
		return nil, nil
	}
	opts := options.Find().SetSort(bson.M{"step_order": 1})
	cursor, err := r.Collection.Find(ctx, bson.M{
		"request_id": bson.M{"$in": requestIDs},
		"status":     StepPending,
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var steps []ApprovalRequestStep
	if err = cursor.All(ctx, &steps); err != nil {
		return nil, err
	}
	return steps, nil
}

type ActionLogRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewActionLogRepository(mongodb *database.MongodbDB) ActionLogRepository {
	return &ActionLogRepositoryImpl{
		Collection: mongodb.DB.Collection("approval_actions"),
	}
}

func (r *ActionLogRepositoryImpl) Append(ctx context.Context, log *ApprovalActionLog) error {
	_, err := r.Collection.InsertOne(ctx, log)
	return err
}

func (r *ActionLogRepositoryImpl) ListByRequest(ctx context.Context, requestID primitive.ObjectID) ([]ApprovalActionLog, error) {
	opts := options.Find().SetSort(bson.M{"created_at": 1})
	cursor, err := r.Collection.Find(ctx, bson.M{"request_id": requestID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []ApprovalActionLog
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
