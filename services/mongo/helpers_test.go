package mongo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStoreErr(t *testing.T) {
	notFound := storeErr(fmt.Errorf("decode: %w", mongo.ErrNoDocuments), "get report", "report 1")
	assert.ErrorIs(t, notFound, errs.ErrNotFound)
	assert.EqualError(t, notFound, "report 1 not found")

	dup := storeErr(mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}, "create report", "draft")
	assert.ErrorIs(t, dup, errs.ErrDuplicate)

	cause := errors.New("connection refused")
	storage := storeErr(cause, "list reports", "reports")
	assert.ErrorIs(t, storage, errs.ErrStorage)
	assert.ErrorIs(t, storage, cause)
}

func TestIndexModels_DraftUniqueness(t *testing.T) {
	indexes := indexModels()

	var found bool
	for _, idx := range indexes[reportsCollection] {
		if idx.Options == nil || idx.Options.Name == nil || *idx.Options.Name != OneDraftPerDayIndex {
			continue
		}
		found = true
		require.NotNil(t, idx.Options.Unique)
		assert.True(t, *idx.Options.Unique)
		assert.Equal(t, bson.M{"status": models.StatusDraft}, idx.Options.PartialFilterExpression)
	}
	assert.True(t, found)

	for _, kind := range models.SectionKinds {
		assert.Contains(t, indexes, kind.Collection())
	}
}
