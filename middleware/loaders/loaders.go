// Package loaders batches section reads when many reports are resolved in
// one request (lists and exports).
package loaders

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/DGISsoft/prodreport/models"
	"github.com/graph-gophers/dataloader"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SectionSource fetches sections of one kind by id.
type SectionSource interface {
	FindSections(ctx context.Context, kind models.SectionKind, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Section, error)
}

type Loaders struct {
	sections map[models.SectionKind]*dataloader.Loader
}

func NewLoaders(src SectionSource) *Loaders {
	l := &Loaders{sections: make(map[models.SectionKind]*dataloader.Loader, len(models.SectionKinds))}
	for _, kind := range models.SectionKinds {
		l.sections[kind] = newSectionLoader(src, kind)
	}
	return l
}

func newSectionLoader(src SectionSource, kind models.SectionKind) *dataloader.Loader {
	return dataloader.NewBatchedLoader(func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]primitive.ObjectID, len(keys))
		for i, key := range keys {
			id, err := primitive.ObjectIDFromHex(key.String())
			if err != nil {
				return resultsWithError(len(keys), fmt.Errorf("invalid %s id: %s", kind, key.String()))
			}
			ids[i] = id
		}

		found, err := src.FindSections(ctx, kind, ids)
		if err != nil {
			return resultsWithError(len(keys), err)
		}

		// A dangling reference resolves to nil so the inline copy can be used.
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			results[i] = &dataloader.Result{Data: found[id]}
		}
		return results
	}, dataloader.WithWait(2*time.Millisecond), dataloader.WithCache(&dataloader.NoCache{}))
}

// Details resolves the sections of every report. All loads are queued before
// any is awaited so each kind is fetched in one batch.
func (l *Loaders) Details(ctx context.Context, reports []*models.Report) ([]*models.ReportDetail, error) {
	queued := make([][]dataloader.Thunk, len(reports))
	for i, r := range reports {
		for _, kind := range models.SectionKinds {
			ref := r.SectionRef(kind)
			if ref == nil {
				continue
			}
			queued[i] = append(queued[i], l.sections[kind].Load(ctx, ObjectIDKey(*ref)))
		}
	}

	out := make([]*models.ReportDetail, len(reports))
	for i, r := range reports {
		referenced := &models.Sections{}
		for _, thunk := range queued[i] {
			v, err := thunk()
			if err != nil {
				return nil, err
			}
			if sec, ok := v.(models.Section); ok && sec != nil {
				referenced.Set(sec)
			}
		}
		out[i] = models.NewReportDetail(r, models.ResolveSections(r, referenced))
	}
	return out, nil
}

func resultsWithError(count int, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, count)
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}

type ctxKey string

const loadersKey ctxKey = "dataloaders"

// For returns the request's loaders, or nil outside Middleware.
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// Middleware gives every request a fresh set of loaders.
func Middleware(src SectionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLoaders(r.Context(), NewLoaders(src))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ObjectIDKey(id primitive.ObjectID) dataloader.Key {
	return dataloader.StringKey(id.Hex())
}
