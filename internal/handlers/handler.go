package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dcm-project/instance-dashboard/internal/api/server"
	"github.com/dcm-project/instance-dashboard/internal/credentials"
	"github.com/dcm-project/instance-dashboard/internal/healthcheck"
	"github.com/dcm-project/instance-dashboard/internal/instances"
	"github.com/dcm-project/instance-dashboard/internal/service"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Dashboard is the configuration gate as seen by the HTTP layer.
type Dashboard interface {
	Snapshot() service.Snapshot
	Reload(ctx context.Context) service.Snapshot
	Submit(ctx context.Context, c credentials.Credentials) (service.Snapshot, error)
	Instances(f instances.Filter) ([]instances.Instance, int, error)
	ApplyAction(id int64, action instances.Action) error
}

// CredentialReader reads the stored credentials.
type CredentialReader interface {
	Get(ctx context.Context) credentials.Credentials
}

// UpstreamStatus reports the reachability of the messaging API.
type UpstreamStatus interface {
	Status() healthcheck.Upstream
}

var (
	_ Dashboard        = (*service.Gate)(nil)
	_ CredentialReader = (*credentials.Store)(nil)
	_ UpstreamStatus   = (*healthcheck.Monitor)(nil)
)

// Handler implements server.ServerInterface for the dashboard API.
type Handler struct {
	dashboard Dashboard
	creds     CredentialReader
	upstream  UpstreamStatus
	logger    log.Logger
}

// NewHandler creates a new Handler. upstream may be nil when the monitor is disabled.
func NewHandler(dashboard Dashboard, creds CredentialReader, upstream UpstreamStatus, logger log.Logger) *Handler {
	return &Handler{
		dashboard: dashboard,
		creds:     creds,
		upstream:  upstream,
		logger:    logger,
	}
}

// Ensure Handler implements ServerInterface
var _ server.ServerInterface = (*Handler)(nil)

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	upstream := string(healthcheck.HealthStatusUnknown)
	if h.upstream != nil {
		upstream = string(h.upstream.Status().Status)
	}
	writeJSON(w, http.StatusOK, server.Health{Status: "ok", Path: "health", Upstream: &upstream})
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toDashboard(h.dashboard.Snapshot()))
}

func (h *Handler) ReloadDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toDashboard(h.dashboard.Reload(r.Context())))
}

func (h *Handler) GetCredentials(w http.ResponseWriter, r *http.Request) {
	c := h.creds.Get(r.Context())
	writeJSON(w, http.StatusOK, server.CredentialsStatus{ApiUrl: c.APIURL, ApiKeyConfigured: c.HasKey()})
}

func (h *Handler) PutCredentials(w http.ResponseWriter, r *http.Request) {
	var req server.CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, newError("invalid-body", "Invalid request body", err.Error(), http.StatusBadRequest))
		return
	}

	c := credentials.Credentials{APIKey: req.ApiKey}
	if req.ApiUrl != nil {
		c.APIURL = *req.ApiUrl
	}

	snap, err := h.dashboard.Submit(r.Context(), c)
	if err != nil {
		handleServiceError(w, err, "credentials-error", "Failed to store credentials")
		return
	}
	writeJSON(w, http.StatusOK, toDashboard(snap))
}

func (h *Handler) ListInstances(w http.ResponseWriter, r *http.Request, params server.ListInstancesParams) {
	var filter instances.Filter
	if params.Search != nil {
		filter.SearchTerm = *params.Search
	}

	var rawStatus string
	if params.Status != nil {
		rawStatus = *params.Status
	}
	status, err := instances.ParseStatusFilter(rawStatus)
	if err != nil {
		WriteProblem(w, newError("validation-error", "Invalid status filter", err.Error(), http.StatusBadRequest))
		return
	}
	filter.Status = status

	items, total, err := h.dashboard.Instances(filter)
	if err != nil {
		handleServiceError(w, err, "list-error", "Failed to list instances")
		return
	}
	writeJSON(w, http.StatusOK, server.InstanceList{Instances: items, Count: len(items), Total: total})
}

func (h *Handler) DeleteInstance(w http.ResponseWriter, r *http.Request, instanceId int64) {
	h.applyAction(w, instanceId, instances.ActionDelete)
}

func (h *Handler) StartInstance(w http.ResponseWriter, r *http.Request, instanceId int64) {
	h.applyAction(w, instanceId, instances.ActionStart)
}

func (h *Handler) StopInstance(w http.ResponseWriter, r *http.Request, instanceId int64) {
	h.applyAction(w, instanceId, instances.ActionStop)
}

func (h *Handler) applyAction(w http.ResponseWriter, id int64, action instances.Action) {
	if err := h.dashboard.ApplyAction(id, action); err != nil {
		level.Debug(h.logger).Log("msg", "instance action rejected", "instance", id, "action", action, "err", err)
		handleServiceError(w, err, "action-error", "Failed to apply action")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, server.StatusTable{Statuses: instances.PresentationTable()})
}

func toDashboard(s service.Snapshot) server.Dashboard {
	return server.Dashboard{
		State:         string(s.State),
		Message:       s.Message,
		ErrorKind:     s.ErrorKind,
		ApiStatus:     s.APIStatus,
		InstanceCount: s.InstanceCount,
	}
}
