package mongo

import (
	"context"
	"time"

	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/mongo/command"
	"github.com/DGISsoft/prodreport/services/mongo/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const attendanceCollection = "attendance"

type AttendanceStore struct {
	*MongoService
}

func NewAttendanceStore(mongoService *MongoService) *AttendanceStore {
	return &AttendanceStore{MongoService: mongoService}
}

// UpsertAttendance keeps one roll call per reporter and day; resubmission replaces the entries.
func (s *AttendanceStore) UpsertAttendance(ctx context.Context, a *models.Attendance) error {
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = time.Now()
	}
	update := command.NewUpdateBuilder().
		Set("reporter_name", a.ReporterName).
		Set("entries", a.Entries).
		Set("submitted_at", a.SubmittedAt).
		Set("updated_at", a.SubmittedAt).
		SetOnInsert("created_at", a.SubmittedAt).
		Build()
	filter := bson.M{"reporter_email": a.ReporterEmail, "date": a.Date}

	if err := command.UpdateAndReturn(ctx, s.GetCollection(attendanceCollection), filter, update, true, a); err != nil {
		return storeErr(err, "save attendance", "attendance")
	}
	return nil
}

func (s *AttendanceStore) ListAttendance(ctx context.Context, f models.AttendanceFilter) ([]*models.Attendance, error) {
	filter := query.NewBuilder().
		WhereIfSet("date", f.Date).
		WhereIfSet("reporter_email", f.ReporterEmail).
		Build()
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "submitted_at", Value: -1}})

	var out []*models.Attendance
	if err := query.FindMany(ctx, s.GetCollection(attendanceCollection), filter, &out, opts); err != nil {
		return nil, storeErr(err, "list attendance", "attendance")
	}
	return out, nil
}
