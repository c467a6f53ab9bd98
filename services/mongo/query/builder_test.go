package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestBuilder_SkipsEmptyOptionalValues(t *testing.T) {
	filter := NewBuilder().
		WhereIfSet("reported_by_email", "a@x.com").
		WhereIfSet("status", "").
		Build()

	assert.Equal(t, bson.M{"reported_by_email": "a@x.com"}, filter)
}

func TestBuilder_BetweenMergesBounds(t *testing.T) {
	filter := NewBuilder().WhereBetween("date", "2024-01-01", "2024-01-31").Build()

	assert.Equal(t, bson.M{"date": bson.M{"$gte": "2024-01-01", "$lte": "2024-01-31"}}, filter)
}

func TestBuilder_BetweenOpenEnded(t *testing.T) {
	filter := NewBuilder().WhereBetween("date", "", "2024-01-31").Build()

	assert.Equal(t, bson.M{"date": bson.M{"$lte": "2024-01-31"}}, filter)
}

func TestBuilder_OrAlternatives(t *testing.T) {
	filter := NewBuilder().
		Where("is_read", false).
		OrWhere("recipient_roles", "admin").
		OrWhere("recipient_ids", "u1").
		Build()

	assert.Equal(t, false, filter["is_read"])
	assert.Equal(t, []bson.M{{"recipient_roles": "admin"}, {"recipient_ids": "u1"}}, filter["$or"])
}

func TestBuilder_NoOrWhenUnused(t *testing.T) {
	ids := []string{"a", "b"}
	filter := NewBuilder().WhereIn("_id", ids).Build()

	_, hasOr := filter["$or"]
	assert.False(t, hasOr)
	assert.Equal(t, bson.M{"$in": ids}, filter["_id"])
}
