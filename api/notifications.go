package api

import (
	"net/http"
	"strings"

	"github.com/DGISsoft/prodreport/api/auth"
	"github.com/DGISsoft/prodreport/middleware"
	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/errs"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type idsRequest struct {
	IDs []string `json:"ids"`
	All bool     `json:"all"`
}

type countResponse struct {
	Count int64 `json:"count"`
}

func parseIDs(raw []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, s := range raw {
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
		if err != nil {
			return nil, errs.Validation("invalid notification id %q", s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (h *handler) createNotification(w http.ResponseWriter, r *http.Request) {
	var ev models.NotificationEvent
	if err := decodeJSON(r, &ev); err != nil {
		h.writeError(w, r, err)
		return
	}
	n, err := h.Notify.Notify(r.Context(), ev)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// notificationFilter scopes non-admin callers to their own role and id.
func notificationFilter(r *http.Request, claims *auth.JWTClaims) models.NotificationFilter {
	q := r.URL.Query()
	f := models.NotificationFilter{
		Role:       claims.Role,
		UserID:     claims.UserID,
		UnreadOnly: q.Get("unreadOnly") == "true",
		Limit:      parseInt64(q.Get("limit"), 0),
	}
	if claims.Role == models.UserRoleAdmin {
		if role := q.Get("role"); role != "" {
			f.Role = models.UserRole(role)
		}
		if userID := q.Get("userId"); userID != "" {
			f.UserID = userID
		}
	}
	return f
}

// recipientScope limits writes to the caller's own notifications unless the
// caller is an admin.
func recipientScope(claims *auth.JWTClaims) models.NotificationFilter {
	if claims.Role == models.UserRoleAdmin {
		return models.NotificationFilter{}
	}
	return models.NotificationFilter{Role: claims.Role, UserID: claims.UserID}
}

func (h *handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())
	list, err := h.Notify.List(r.Context(), notificationFilter(r, claims))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) markNotificationsRead(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	claims := middleware.ClaimsFrom(r.Context())
	var (
		n   int64
		err error
	)
	if req.All {
		n, err = h.Notify.MarkAllRead(r.Context(), claims.Role, claims.UserID)
	} else {
		var ids []primitive.ObjectID
		if ids, err = parseIDs(req.IDs); err == nil {
			n, err = h.Notify.MarkRead(r.Context(), ids, recipientScope(claims))
		}
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

func (h *handler) deleteNotifications(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	raw := append(req.IDs, r.URL.Query()["id"]...)
	ids, err := parseIDs(raw)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	n, err := h.Notify.Delete(r.Context(), ids, recipientScope(middleware.ClaimsFrom(r.Context())))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}
