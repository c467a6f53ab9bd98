package command

import (
	"go.mongodb.org/mongo-driver/bson"
)

type UpdateBuilder struct {
	update bson.M
}

func NewUpdateBuilder() *UpdateBuilder {
	return &UpdateBuilder{update: bson.M{}}
}

func (u *UpdateBuilder) operator(op, key string, value interface{}) *UpdateBuilder {
	fields, ok := u.update[op].(bson.M)
	if !ok {
		fields = bson.M{}
		u.update[op] = fields
	}
	fields[key] = value
	return u
}

func (u *UpdateBuilder) Set(key string, value interface{}) *UpdateBuilder {
	return u.operator("$set", key, value)
}

// SetIf sets key only when cond holds. Used for optional patch fields.
func (u *UpdateBuilder) SetIf(cond bool, key string, value interface{}) *UpdateBuilder {
	if !cond {
		return u
	}
	return u.Set(key, value)
}

func (u *UpdateBuilder) SetOnInsert(key string, value interface{}) *UpdateBuilder {
	return u.operator("$setOnInsert", key, value)
}

func (u *UpdateBuilder) Build() bson.M {
	return u.update
}
