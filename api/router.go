package api

import (
	"context"
	"net/http"
	"time"

	"github.com/DGISsoft/prodreport/api/auth"
	"github.com/DGISsoft/prodreport/middleware"
	"github.com/DGISsoft/prodreport/middleware/loaders"
	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/attendance"
	"github.com/DGISsoft/prodreport/services/drafts"
	"github.com/DGISsoft/prodreport/services/live"
	"github.com/DGISsoft/prodreport/services/notify"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type MachineStore interface {
	GetAllMachines(ctx context.Context) ([]*models.Machine, error)
	CreateMachine(ctx context.Context, m *models.Machine) error
	MachineUsage(ctx context.Context, from, to string) ([]*models.MachineUsage, error)
}

type PushRegistry interface {
	Subscribe(ctx context.Context, sub *models.PushSubscription) error
	Unsubscribe(ctx context.Context, endpoint, userID string) error
}

// MediaStore keeps site photos and videos. *s3.Storage satisfies it.
type MediaStore interface {
	UploadMedia(ctx context.Context, reportID primitive.ObjectID, fileName, contentType string, content []byte) (*models.Media, error)
	ReadMedia(ctx context.Context, reportID primitive.ObjectID, name string) ([]byte, string, error)
}

// Deps are the collaborators of the HTTP surface. Push and Media are
// optional; their routes answer 503 when unset.
type Deps struct {
	Drafts     *drafts.Service
	Notify     *notify.Service
	Attendance *attendance.Service
	Hub        *live.Hub
	Sections   loaders.SectionSource
	Users      UserStore
	Machines   MachineStore
	Push       PushRegistry
	Media      MediaStore
	JWT        *auth.JWTManager
	Health     func(ctx context.Context) error
	Log        *zap.Logger

	CORSOrigins    []string
	VAPIDPublicKey string
	// Heartbeat is the SSE keep-alive interval.
	Heartbeat time.Duration
}

type handler struct {
	Deps
	log *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	if d.Heartbeat <= 0 {
		d.Heartbeat = 25 * time.Second
	}
	h := &handler{Deps: d, log: d.Log}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(h.requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowCredentials: false,
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
	}).Handler)

	r.Get("/healthz", h.healthz)
	r.Post("/auth/login", h.login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(d.JWT, d.Log))
		r.Use(middleware.RequireAuth(writeMessage))
		r.Use(loaders.Middleware(d.Sections))

		r.Route("/reports", func(r chi.Router) {
			r.With(middleware.RequirePermission(models.ActionDraftReport, writeMessage)).Post("/", h.ensureDraft)
			r.Get("/", h.listReports)
			r.With(middleware.RequirePermission(models.ActionExportReports, writeMessage)).Get("/export", h.exportReports)
			r.Get("/{id}", h.getReport)
			r.Put("/{id}", h.updateReport)
			r.Delete("/{id}", h.deleteReport)
			r.Post("/{id}/submit", h.submitReport)
			r.Post("/{id}/media", h.uploadMedia)
			r.Get("/{id}/media/{file}", h.readMedia)
			r.Post("/{id}/{section}", h.saveSection)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.With(middleware.RequirePermission(models.ActionNotify, writeMessage)).Post("/", h.createNotification)
			r.Get("/", h.listNotifications)
			r.Patch("/", h.markNotificationsRead)
			r.Delete("/", h.deleteNotifications)
			r.Get("/stream", h.streamNotifications)
			r.Get("/ws", h.websocketNotifications)
		})

		r.Route("/push", func(r chi.Router) {
			r.Get("/vapid-public-key", h.vapidPublicKey)
			r.Post("/subscribe", h.pushSubscribe)
			r.Post("/unsubscribe", h.pushUnsubscribe)
		})

		r.Route("/attendance", func(r chi.Router) {
			r.With(middleware.RequirePermission(models.ActionSubmitAttend, writeMessage)).Post("/", h.submitAttendance)
			r.Get("/", h.listAttendance)
		})

		r.Route("/machines", func(r chi.Router) {
			r.Get("/", h.listMachines)
			r.With(middleware.RequirePermission(models.ActionManageMachines, writeMessage)).Post("/", h.createMachine)
			r.Get("/usage", h.machineUsage)
		})
	})

	return r
}

func (h *handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.log.Debug("http request",
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health(r.Context()); err != nil {
			h.log.Warn("health check failed", zap.Error(err))
			writeMessage(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
