package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/errs"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		h.writeError(w, r, errs.Validation("email and password are required"))
		return
	}

	user, err := h.Users.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, errs.ErrNotFound) || (err == nil && !user.CheckPassword(req.Password)) {
		h.log.Info("login rejected", zap.String("email", strings.ToLower(req.Email)))
		writeMessage(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	token, err := h.JWT.GenerateToken(user)
	if err != nil {
		h.writeError(w, r, errs.Storage(err, "failed to sign token"))
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (h *handler) listMachines(w http.ResponseWriter, r *http.Request) {
	machines, err := h.Machines.GetAllMachines(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if machines == nil {
		machines = []*models.Machine{}
	}
	writeJSON(w, http.StatusOK, machines)
}

func (h *handler) createMachine(w http.ResponseWriter, r *http.Request) {
	var m models.Machine
	if err := decodeJSON(r, &m); err != nil {
		h.writeError(w, r, err)
		return
	}
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		h.writeError(w, r, errs.Validation("machine name is required"))
		return
	}
	switch m.Status {
	case "":
		m.Status = models.MachineActive
	case models.MachineActive, models.MachineMaintenance, models.MachineRetired:
	default:
		h.writeError(w, r, errs.Validation("unknown machine status %q", m.Status))
		return
	}
	if err := h.Machines.CreateMachine(r.Context(), &m); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *handler) machineUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.Machines.MachineUsage(r.Context(), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if usage == nil {
		usage = []*models.MachineUsage{}
	}
	writeJSON(w, http.StatusOK, usage)
}
