package mongo

import (
	"context"
	"strings"
	"time"

	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/errs"
	"github.com/DGISsoft/prodreport/services/mongo/command"
	"github.com/DGISsoft/prodreport/services/mongo/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const machinesCollection = "machines"

type MachineService struct {
	*MongoService
}

func NewMachineService(mongoService *MongoService) *MachineService {
	return &MachineService{MongoService: mongoService}
}

func (s *MachineService) GetAllMachines(ctx context.Context) ([]*models.Machine, error) {
	var machines []*models.Machine
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	if err := query.FindMany(ctx, s.GetCollection(machinesCollection), bson.M{}, &machines, opts); err != nil {
		return nil, storeErr(err, "get machines", "machines")
	}
	return machines, nil
}

func (s *MachineService) CreateMachine(ctx context.Context, machine *models.Machine) error {
	if strings.TrimSpace(machine.Name) == "" {
		return errs.Validation("machine name is required")
	}
	if machine.Status == "" {
		machine.Status = models.MachineActive
	}
	now := time.Now()
	machine.CreatedAt = now
	machine.UpdatedAt = now

	if err := command.Insert(ctx, s.GetCollection(machinesCollection), machine); err != nil {
		return storeErr(err, "create machine", "machine "+machine.Name)
	}
	return nil
}

// MachineUsage counts how often each machine was used in production sections
// of submitted reports dated within [from, to]. Empty bounds are open.
func (s *MachineService) MachineUsage(ctx context.Context, from, to string) ([]*models.MachineUsage, error) {
	match := bson.M{"report.status": bson.M{"$ne": models.StatusDraft}}
	if date := query.NewBuilder().WhereBetween("report.date", from, to).Build(); len(date) > 0 {
		match["report.date"] = date["report.date"]
	}

	pipeline := []bson.M{
		{
			"$lookup": bson.M{
				"from":         reportsCollection,
				"localField":   "report_id",
				"foreignField": "_id",
				"as":           "report",
			},
		},
		{"$unwind": "$report"},
		{"$match": match},
		{"$unwind": "$products"},
		{"$unwind": "$products.machines_used"},
		{
			"$group": bson.M{
				"_id":            "$products.machines_used",
				"entries":        bson.M{"$sum": 1},
				"total_quantity": bson.M{"$sum": "$products.quantity"},
			},
		},
		{"$sort": bson.D{{Key: "entries", Value: -1}, {Key: "_id", Value: 1}}},
	}

	var usage []*models.MachineUsage
	if err := query.Aggregate(ctx, s.GetCollection(models.SectionDailyProduction.Collection()), pipeline, &usage); err != nil {
		return nil, storeErr(err, "aggregate machine usage", "machine usage")
	}
	return usage, nil
}
