package command

import (
	"context"
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/mongo"
)

// Insert stores document and writes the generated _id back into its ID field.
func Insert[T any](ctx context.Context, collection *mongo.Collection, document *T) error {
	res, err := collection.InsertOne(ctx, document)
	if err != nil {
		return err
	}
	return setDocumentID(document, res.InsertedID)
}

func setDocumentID(document interface{}, id interface{}) error {
	v := reflect.ValueOf(document)
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("document must be a pointer")
	}
	v = v.Elem()

	field := v.FieldByName("ID")
	if !field.IsValid() {
		return fmt.Errorf("field ID not found on %s", v.Type())
	}
	if !field.CanSet() {
		return fmt.Errorf("field ID cannot be set")
	}

	idValue := reflect.ValueOf(id)
	if !idValue.Type().AssignableTo(field.Type()) {
		return fmt.Errorf("inserted id has type %T, want %s", id, field.Type())
	}
	field.Set(idValue)
	return nil
}
