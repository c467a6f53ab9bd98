package api

import (
	"net/http"

	"github.com/DGISsoft/prodreport/middleware"
	"github.com/DGISsoft/prodreport/models"
)

type pushSubscribeRequest struct {
	Endpoint  string          `json:"endpoint"`
	Keys      models.PushKeys `json:"keys"`
	UserAgent string          `json:"userAgent"`
}

func (h *handler) vapidPublicKey(w http.ResponseWriter, r *http.Request) {
	if h.Push == nil || h.VAPIDPublicKey == "" {
		writeMessage(w, http.StatusServiceUnavailable, "push delivery is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": h.VAPIDPublicKey})
}

// pushSubscribe registers the caller's device under their id and role.
func (h *handler) pushSubscribe(w http.ResponseWriter, r *http.Request) {
	if h.Push == nil {
		writeMessage(w, http.StatusServiceUnavailable, "push delivery is not configured")
		return
	}
	var req pushSubscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	claims := middleware.ClaimsFrom(r.Context())
	sub := &models.PushSubscription{
		Endpoint:  req.Endpoint,
		Keys:      req.Keys,
		UserID:    claims.UserID,
		Roles:     []models.UserRole{claims.Role},
		UserAgent: req.UserAgent,
	}
	if sub.UserAgent == "" {
		sub.UserAgent = r.UserAgent()
	}
	if err := h.Push.Subscribe(r.Context(), sub); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// pushUnsubscribe removes a device. Non-admins may only remove their own.
func (h *handler) pushUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if h.Push == nil {
		writeMessage(w, http.StatusServiceUnavailable, "push delivery is not configured")
		return
	}
	var req pushSubscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	owner := ""
	if claims := middleware.ClaimsFrom(r.Context()); claims.Role != models.UserRoleAdmin {
		owner = claims.UserID
	}
	if err := h.Push.Unsubscribe(r.Context(), req.Endpoint, owner); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
