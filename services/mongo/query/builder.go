package query

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Builder assembles a bson filter. Empty values are skipped by the *IfSet
// helpers so optional request parameters can be chained unconditionally.
type Builder struct {
	filter bson.M
	or     []bson.M
}

func NewBuilder() *Builder {
	return &Builder{filter: bson.M{}}
}

func (b *Builder) Where(key string, value interface{}) *Builder {
	b.filter[key] = value
	return b
}

func (b *Builder) WhereIfSet(key string, value string) *Builder {
	if value != "" {
		b.filter[key] = value
	}
	return b
}

func (b *Builder) WhereIn(key string, values interface{}) *Builder {
	b.filter[key] = bson.M{"$in": values}
	return b
}

// WhereBetween adds an inclusive range; either bound may be empty.
func (b *Builder) WhereBetween(key, from, to string) *Builder {
	if from != "" {
		b.op(key, "$gte", from)
	}
	if to != "" {
		b.op(key, "$lte", to)
	}
	return b
}

// OrWhere adds an alternative; all alternatives are combined with $or.
func (b *Builder) OrWhere(key string, value interface{}) *Builder {
	b.or = append(b.or, bson.M{key: value})
	return b
}

func (b *Builder) op(key, operator string, value interface{}) *Builder {
	cond, ok := b.filter[key].(bson.M)
	if !ok {
		cond = bson.M{}
		b.filter[key] = cond
	}
	cond[operator] = value
	return b
}

func (b *Builder) Build() bson.M {
	if len(b.or) > 0 {
		b.filter["$or"] = b.or
	}
	return b.filter
}
