// Package handler provides HTTP handlers for the CareFinder API.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/carefinder/carefinder/internal/api/models"
	"github.com/carefinder/carefinder/internal/api/response"
	"github.com/carefinder/carefinder/internal/location"
	"github.com/carefinder/carefinder/internal/resilience"
)

// readinessTimeout bounds the store ping in readiness checks.
const readinessTimeout = 2 * time.Second

// StorePinger reports the configured location store and its connectivity.
type StorePinger interface {
	StoreName() string
	Ping(ctx context.Context) error
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	store     StorePinger
	registry  *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler. store and registry may be nil.
func NewOpsHandler(version, buildTime string, store StorePinger, registry *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		store:     store,
		registry:  registry,
	}
}

// HealthCheck handles GET /v1/ops/health. It only reports that the process
// is serving.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status:    models.HealthStatusOK,
		Time:      *models.NewTimestamp(time.Now()),
		Version:   h.version,
		BuildTime: h.buildTime,
	})
}

// ReadinessCheck handles GET /v1/ops/ready.
// Searches are always answerable from the fallback dataset, so an unreachable
// store degrades readiness instead of failing it.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	store := h.storeStatus(r.Context())
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: store.Status,
		Time:   *models.NewTimestamp(time.Now()),
		Store:  store.Name,
		Detail: store.Detail,
	})
}

// SystemStatus handles GET /v1/ops/status: the store ping plus every
// breaker-guarded backend.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:   models.HealthStatusOK,
		Time:     *models.NewTimestamp(time.Now()),
		Store:    h.storeStatus(r.Context()),
		Backends: h.backendStatuses(),
	}

	if status.Store.Status != models.HealthStatusOK {
		status.Status = models.HealthStatusDegraded
		status.DegradationFlags = append(status.DegradationFlags, "fallback_dataset")
	}
	for _, b := range status.Backends {
		if b.Status != models.HealthStatusOK {
			status.Status = models.HealthStatusDegraded
			status.DegradationFlags = append(status.DegradationFlags, "circuit_"+b.Name)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) storeStatus(ctx context.Context) models.StoreStatus {
	if h.store == nil {
		return models.StoreStatus{
			Name:   "none",
			Status: models.HealthStatusDegraded,
			Detail: "no location store configured",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	status := models.StoreStatus{Name: h.store.StoreName(), Status: models.HealthStatusOK}
	switch err := h.store.Ping(ctx); {
	case err == nil:
	case errors.Is(err, location.ErrStoreUnavailable):
		status.Status = models.HealthStatusDegraded
		status.Detail = "no location store configured"
	default:
		status.Status = models.HealthStatusDegraded
		status.Detail = err.Error()
	}
	return status
}

func (h *OpsHandler) backendStatuses() []models.BackendStatus {
	statuses := []models.BackendStatus{}
	if h.registry == nil {
		return statuses
	}

	for _, health := range h.registry.GetAllHealth() {
		bs := models.BackendStatus{
			Name:                health.Name,
			Circuit:             strings.ReplaceAll(health.CircuitState.String(), "-", "_"),
			Requests:            health.Counts.Requests,
			ConsecutiveFailures: health.Counts.ConsecutiveFailures,
			LastError:           health.LastError,
		}
		switch health.Condition() {
		case resilience.ConditionUp:
			bs.Status = models.HealthStatusOK
		case resilience.ConditionProbing:
			bs.Status = models.HealthStatusDegraded
		default:
			bs.Status = models.HealthStatusFail
		}
		if health.LastSuccessAt != nil {
			bs.LastSuccessAt = models.NewTimestamp(*health.LastSuccessAt)
		}
		if health.LastFailureAt != nil {
			bs.LastFailureAt = models.NewTimestamp(*health.LastFailureAt)
		}
		statuses = append(statuses, bs)
	}
	return statuses
}
