package mongo

import (
	"errors"

	"github.com/DGISsoft/prodreport/services/errs"
	"go.mongodb.org/mongo-driver/mongo"
)

// storeErr maps driver errors onto the shared error kinds.
func storeErr(err error, op, subject string) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return errs.NotFound("%s not found", subject)
	case mongo.IsDuplicateKeyError(err):
		return errs.Duplicate("%s already exists", subject)
	}
	return errs.Storage(err, "failed to %s", op)
}
