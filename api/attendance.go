package api

import (
	"net/http"

	"github.com/DGISsoft/prodreport/middleware"
	"github.com/DGISsoft/prodreport/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (h *handler) submitAttendance(w http.ResponseWriter, r *http.Request) {
	var a models.Attendance
	if err := decodeJSON(r, &a); err != nil {
		h.writeError(w, r, err)
		return
	}
	claims := middleware.ClaimsFrom(r.Context())
	a.ID = primitive.NilObjectID
	a.ReporterEmail = claims.Email
	if a.ReporterName == "" {
		a.ReporterName = claims.Name
	}

	saved, err := h.Attendance.Submit(r.Context(), &a)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// listAttendance lets roles without read access see only their own records.
func (h *handler) listAttendance(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())
	f := models.AttendanceFilter{
		Date:          r.URL.Query().Get("date"),
		ReporterEmail: r.URL.Query().Get("reporterEmail"),
	}
	if !claims.Role.Can(models.ActionReadAttendance) {
		f.ReporterEmail = claims.Email
	}

	list, err := h.Attendance.List(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.Attendance{}
	}
	writeJSON(w, http.StatusOK, list)
}
