package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUpdateBuilder_GroupsOperators(t *testing.T) {
	update := NewUpdateBuilder().
		Set("status", "submitted").
		Set("updated_at", 1).
		SetIf(false, "date", "2024-01-01").
		SetOnInsert("created_at", 2).
		Build()

	assert.Equal(t, bson.M{
		"$set":         bson.M{"status": "submitted", "updated_at": 1},
		"$setOnInsert": bson.M{"created_at": 2},
	}, update)
}

type doc struct {
	ID   primitive.ObjectID
	Name string
}

func TestSetDocumentID(t *testing.T) {
	d := &doc{Name: "a"}
	id := primitive.NewObjectID()

	require.NoError(t, setDocumentID(d, id))
	assert.Equal(t, id, d.ID)

	assert.Error(t, setDocumentID(d, "not-an-object-id"))
	assert.Error(t, setDocumentID(*d, id))
}
