package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"stordesk.org/internal/audit"
	"stordesk.org/internal/provision"
)

type provisionRequest struct {
	Name         string  `json:"name"`
	Password     string  `json:"password"`
	UsageType    string  `json:"usageType"`
	StorageQuota float64 `json:"storageQuota"`
}

type provisionResponse struct {
	Message string `json:"message"`
}

func (a *API) handleProvision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req provisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid provisioning request", err.Error())
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, r, http.StatusBadRequest, "invalid provisioning request", "name is required")
		return
	}
	if req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "invalid provisioning request", "password is required")
		return
	}

	var class provision.Class
	switch strings.TrimSpace(req.UsageType) {
	case "personal":
		if req.StorageQuota <= 0 {
			writeError(w, r, http.StatusBadRequest, "invalid provisioning request",
				"storageQuota must be a positive number for personal usage")
			return
		}
		class = provision.Personal{QuotaGB: req.StorageQuota}
	case "project":
		var quota *float64
		if req.StorageQuota > 0 {
			q := req.StorageQuota
			quota = &q
		}
		class = provision.Project{QuotaGB: quota}
	default:
		writeError(w, r, http.StatusBadRequest, "invalid provisioning request",
			`usageType must be "personal" or "project"`)
		return
	}

	ctx := audit.WithRequestID(r.Context(), RequestIDFromContext(r.Context()))
	res, err := a.svc.Provision(ctx, provision.Request{
		Identity: name,
		Secret:   provision.Secret(req.Password),
		Class:    class,
	})
	if err != nil {
		handleProvisionError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, provisionResponse{Message: res.Message})
}

func handleProvisionError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, provision.ErrInvalidRequest) {
		writeError(w, r, http.StatusBadRequest, "invalid provisioning request", err.Error())
		return
	}
	var step *provision.StepError
	if errors.As(err, &step) {
		// The remote status/body travels in the detail for diagnosis; the
		// message stays a human-readable summary of the failed step.
		writeError(w, r, http.StatusInternalServerError, step.Message, err.Error())
		return
	}
	writeError(w, r, http.StatusInternalServerError, "provisioning failed", err.Error())
}
