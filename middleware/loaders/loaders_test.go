package loaders

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type countingSource struct {
	SectionSource
	mu    sync.Mutex
	calls map[models.SectionKind]int
	err   error
}

func (c *countingSource) FindSections(ctx context.Context, kind models.SectionKind, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Section, error) {
	c.mu.Lock()
	c.calls[kind]++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.SectionSource.FindSections(ctx, kind, ids)
}

func seed(t *testing.T, store *memory.Store, email string) *models.Report {
	t.Helper()
	ctx := context.Background()
	r := &models.Report{ReportedByEmail: email, Date: "2024-03-01", Status: models.StatusDraft}
	require.NoError(t, store.CreateReport(ctx, r))
	now := time.Now()
	require.NoError(t, store.SaveSection(ctx, r.ID, &models.IncidentReport{NoIncidents: true}, now))
	require.NoError(t, store.SaveSection(ctx, r.ID, &models.DailyProduction{Products: []models.Product{{Name: "P", Quantity: 3}}}, now))
	got, err := store.GetReport(ctx, r.ID)
	require.NoError(t, err)
	return got
}

func TestDetails_BatchesPerKind(t *testing.T) {
	store := memory.NewStore()
	reports := []*models.Report{seed(t, store, "a@x.com"), seed(t, store, "b@x.com"), seed(t, store, "c@x.com")}
	src := &countingSource{SectionSource: store, calls: map[models.SectionKind]int{}}

	details, err := NewLoaders(src).Details(context.Background(), reports)
	require.NoError(t, err)
	require.Len(t, details, 3)

	for _, d := range details {
		require.NotNil(t, d.Sections.IncidentReport)
		assert.True(t, d.Completion.Sections[models.SectionIncidentReport])
		assert.True(t, d.Completion.Sections[models.SectionDailyProduction])
		assert.False(t, d.Completion.Complete)
	}
	assert.Equal(t, 1, src.calls[models.SectionIncidentReport])
	assert.Equal(t, 1, src.calls[models.SectionDailyProduction])
	assert.Zero(t, src.calls[models.SectionSiteVisuals])
}

func TestDetails_DanglingReferenceFallsBackToInline(t *testing.T) {
	store := memory.NewStore()
	missing := primitive.NewObjectID()
	r := &models.Report{
		ID:               primitive.NewObjectID(),
		IncidentReportID: &missing,
		Embedded:         &models.Sections{IncidentReport: &models.IncidentReport{HasIncident: "no"}},
	}

	details, err := NewLoaders(store).Details(context.Background(), []*models.Report{r})
	require.NoError(t, err)
	assert.True(t, details[0].Completion.Sections[models.SectionIncidentReport])
}

func TestDetails_SourceError(t *testing.T) {
	store := memory.NewStore()
	r := seed(t, store, "a@x.com")
	src := &countingSource{SectionSource: store, calls: map[models.SectionKind]int{}, err: errors.New("boom")}

	_, err := NewLoaders(src).Details(context.Background(), []*models.Report{r})
	assert.Error(t, err)
}

func TestMiddleware_AttachesLoaders(t *testing.T) {
	var got *Loaders
	h := Middleware(memory.NewStore())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = For(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotNil(t, got)
	assert.Nil(t, For(context.Background()))
}
