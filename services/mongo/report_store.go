package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/errs"
	"github.com/DGISsoft/prodreport/services/mongo/command"
	"github.com/DGISsoft/prodreport/services/mongo/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const reportsCollection = "reports"

// ReportStore keeps reports in one collection and each section kind in its own.
type ReportStore struct {
	*MongoService
}

func NewReportStore(mongoService *MongoService) *ReportStore {
	return &ReportStore{MongoService: mongoService}
}

func (s *ReportStore) reports() *mongo.Collection {
	return s.GetCollection(reportsCollection)
}

func (s *ReportStore) LatestDraft(ctx context.Context, email string) (*models.Report, error) {
	filter := query.NewBuilder().
		Where("reported_by_email", email).
		Where("status", models.StatusDraft).
		Build()

	var report models.Report
	if err := query.FindLatest(ctx, s.reports(), filter, &report); err != nil {
		return nil, storeErr(err, "find draft", "draft for "+email)
	}
	return &report, nil
}

func (s *ReportStore) CreateReport(ctx context.Context, report *models.Report) error {
	if err := command.Insert(ctx, s.reports(), report); err != nil {
		return storeErr(err, "create report", fmt.Sprintf("draft for %s on %s", report.ReportedByEmail, report.Date))
	}
	return nil
}

func (s *ReportStore) GetReport(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	var report models.Report
	if err := query.FindByID(ctx, s.reports(), id, &report); err != nil {
		return nil, storeErr(err, "get report", "report "+id.Hex())
	}
	return &report, nil
}

func (s *ReportStore) ListReports(ctx context.Context, f models.ReportFilter) ([]*models.Report, error) {
	filter := query.NewBuilder().
		WhereIfSet("reported_by_email", f.ReportedByEmail).
		WhereIfSet("status", string(f.Status)).
		WhereBetween("date", f.DateFrom, f.DateTo).
		Build()

	var reports []*models.Report
	if err := query.FindNewestFirst(ctx, s.reports(), filter, &reports, f.Limit, f.Skip); err != nil {
		return nil, storeErr(err, "list reports", "reports")
	}
	return reports, nil
}

// SaveSection stores sec as a new version and moves the report's reference to
// it, but only while the report is a draft. Section documents are never
// rewritten, so a submitted report keeps the sections it was submitted with.
func (s *ReportStore) SaveSection(ctx context.Context, reportID primitive.ObjectID, sec models.Section, now time.Time) error {
	kind := sec.Kind()
	meta := sec.Meta()
	meta.Stamp(reportID, now)
	meta.ID = primitive.NewObjectID()

	sections := s.GetCollection(kind.Collection())
	if _, err := sections.InsertOne(ctx, sec); err != nil {
		return storeErr(err, "save "+string(kind), string(kind))
	}

	field := models.SectionRefField(kind)
	update := command.NewUpdateBuilder().
		Set(field, meta.ID).
		Set("updated_at", now).
		Build()
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.Before).
		SetProjection(bson.M{field: 1})

	var before models.Report
	err := s.reports().FindOneAndUpdate(ctx, bson.M{"_id": reportID, "status": models.StatusDraft}, update, opts).Decode(&before)
	if err != nil {
		// The new version was never referenced; drop it.
		_, _ = command.DeleteOne(ctx, sections, bson.M{"_id": meta.ID})
		if errors.Is(err, mongo.ErrNoDocuments) {
			return s.stateError(ctx, reportID, models.StatusDraft)
		}
		return storeErr(err, "attach "+string(kind), "report "+reportID.Hex())
	}

	// A version left behind here is still removed with the report by DeleteSections.
	if prev := before.SectionRef(kind); prev != nil && *prev != meta.ID {
		_, _ = command.DeleteOne(ctx, sections, bson.M{"_id": *prev})
	}
	return nil
}

func (s *ReportStore) FindSections(ctx context.Context, kind models.SectionKind, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Section, error) {
	out := make(map[primitive.ObjectID]models.Section, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cursor, err := s.GetCollection(kind.Collection()).Find(ctx, query.NewBuilder().WhereIn("_id", ids).Build())
	if err != nil {
		return nil, storeErr(err, "load "+string(kind), string(kind))
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		sec, err := models.NewSection(kind)
		if err != nil {
			return nil, err
		}
		if err := cursor.Decode(sec); err != nil {
			return nil, errs.Storage(err, "failed to decode %s", kind)
		}
		out[sec.Meta().ID] = sec
	}
	if err := cursor.Err(); err != nil {
		return nil, storeErr(err, "load "+string(kind), string(kind))
	}
	return out, nil
}

// TransitionStatus moves a report from one status to the next in a single
// conditional write, so a concurrent transition cannot apply twice.
func (s *ReportStore) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.ReportStatus, now time.Time) (*models.Report, error) {
	update := command.NewUpdateBuilder().
		Set("status", to).
		Set("updated_at", now).
		SetIf(to == models.StatusSubmitted, "submitted_at", now).
		Build()

	var report models.Report
	err := command.UpdateAndReturn(ctx, s.reports(), bson.M{"_id": id, "status": from}, update, false, &report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.stateError(ctx, id, from)
	}
	if err != nil {
		return nil, storeErr(err, "update report status", "report "+id.Hex())
	}
	return &report, nil
}

func (s *ReportStore) PatchReport(ctx context.Context, id primitive.ObjectID, patch models.ReportPatch, now time.Time) (*models.Report, error) {
	update := command.NewUpdateBuilder().
		SetIf(patch.Date != nil, "date", deref(patch.Date)).
		SetIf(patch.ReportedBy != nil, "reported_by", deref(patch.ReportedBy)).
		Set("updated_at", now).
		Build()

	var report models.Report
	err := command.UpdateAndReturn(ctx, s.reports(), bson.M{"_id": id, "status": models.StatusDraft}, update, false, &report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.stateError(ctx, id, models.StatusDraft)
	}
	if err != nil {
		return nil, storeErr(err, "update report", "draft for that date")
	}
	return &report, nil
}

func (s *ReportStore) DeleteDraft(ctx context.Context, id primitive.ObjectID) error {
	n, err := command.DeleteOne(ctx, s.reports(), bson.M{"_id": id, "status": models.StatusDraft})
	if err != nil {
		return storeErr(err, "delete report", "report "+id.Hex())
	}
	if n == 0 {
		return s.stateError(ctx, id, models.StatusDraft)
	}
	return nil
}

// DeleteSections removes every section document owned by or referenced from report.
func (s *ReportStore) DeleteSections(ctx context.Context, report *models.Report) error {
	var failed []error
	for _, kind := range models.SectionKinds {
		filter := query.NewBuilder().OrWhere("report_id", report.ID)
		if ref := report.SectionRef(kind); ref != nil {
			filter.OrWhere("_id", *ref)
		}
		if _, err := command.DeleteMany(ctx, s.GetCollection(kind.Collection()), filter.Build()); err != nil {
			failed = append(failed, storeErr(err, "delete "+string(kind), string(kind)))
		}
	}
	return errors.Join(failed...)
}

// stateError explains why a conditional write on id matched nothing.
func (s *ReportStore) stateError(ctx context.Context, id primitive.ObjectID, want models.ReportStatus) error {
	report, err := s.GetReport(ctx, id)
	if err != nil {
		return err
	}
	return errs.InvalidState("report %s is %s, expected %s", id.Hex(), report.Status, want)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
