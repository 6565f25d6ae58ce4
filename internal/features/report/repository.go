package report

import (
	"context"
	"time"

	"go-grc/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ReportRepository interface {
	Create(ctx context.Context, report *Report) error
	GetByID(ctx context.Context, id string) (*Report, error)
	List(ctx context.Context) ([]Report, error)
	Update(ctx context.Context, id string, set bson.M) error
	Delete(ctx context.Context, id string) error

	CreateSchedule(ctx context.Context, schedule *ReportSchedule) error
	GetScheduleByID(ctx context.Context, id string) (*ReportSchedule, error)
	ListSchedules(ctx context.Context, activeOnly bool) ([]ReportSchedule, error)
	DeleteSchedule(ctx context.Context, id string) error
	UpdateScheduleRun(ctx context.Context, id string, lastRun time.Time, nextRun *time.Time) error
	DeleteSchedulesByReport(ctx context.Context, reportID primitive.ObjectID) error
}

type ReportRepositoryImpl struct {
	Reports   *mongo.Collection
	Schedules *mongo.Collection
}

func NewReportRepository(mongodb *database.MongodbDB) ReportRepository {
	return &ReportRepositoryImpl{
		Reports:   mongodb.DB.Collection("reports"),
		Schedules: mongodb.DB.Collection("report_schedules"),
	}
}

func (r *ReportRepositoryImpl) Create(ctx context.Context, report *Report) error {
	_, err := r.Reports.InsertOne(ctx, report)
	return err
}

func (r *ReportRepositoryImpl) GetByID(ctx context.Context, id string) (*Report, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var report Report
	err = r.Reports.FindOne(ctx, bson.M{"_id": oid}).Decode(&report)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

func (r *ReportRepositoryImpl) List(ctx context.Context) ([]Report, error) {
	cursor, err := r.Reports.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var reports []Report
	if err = cursor.All(ctx, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *ReportRepositoryImpl) Update(ctx context.Context, id string, set bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	set["updated_at"] = time.Now()
	_, err = r.Reports.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	return err
}

func (r *ReportRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	_, err = r.Reports.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

func (r *ReportRepositoryImpl) CreateSchedule(ctx context.Context, schedule *ReportSchedule) error {
	_, err := r.Schedules.InsertOne(ctx, schedule)
	return err
}

func (r *ReportRepositoryImpl) GetScheduleByID(ctx context.Context, id string) (*ReportSchedule, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var schedule ReportSchedule
	err = r.Schedules.FindOne(ctx, bson.M{"_id": oid}).Decode(&schedule)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &schedule, nil
}

func (r *ReportRepositoryImpl) ListSchedules(ctx context.Context, activeOnly bool) ([]ReportSchedule, error) {
	query := bson.M{}
	if activeOnly {
		query["active"] = true
	}
	cursor, err := r.Schedules.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var schedules []ReportSchedule
	if err = cursor.All(ctx, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *ReportRepositoryImpl) DeleteSchedule(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	_, err = r.Schedules.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

func (r *ReportRepositoryImpl) UpdateScheduleRun(ctx context.Context, id string, lastRun time.Time, nextRun *time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	_, err = r.Schedules.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"last_run": lastRun, "next_run": nextRun},
	})
	return err
}

func (r *ReportRepositoryImpl) DeleteSchedulesByReport(ctx context.Context, reportID primitive.ObjectID) error {
	_, err := r.Schedules.DeleteMany(ctx, bson.M{"report_id": reportID})
	return err
}
