package models

// Health is the body of /v1/ops/health and /v1/ops/ready.
type Health struct {
	Status    HealthStatus `json:"status"`
	Time      Timestamp    `json:"time"`
	Version   string       `json:"version,omitempty"`
	BuildTime string       `json:"build_time,omitempty"`
	Store     string       `json:"store,omitempty"`
	Detail    string       `json:"detail,omitempty"`
}

// SystemStatus is the body of /v1/ops/status.
type SystemStatus struct {
	Status   HealthStatus    `json:"status"`
	Time     Timestamp       `json:"time"`
	Store    StoreStatus     `json:"store"`
	Backends []BackendStatus `json:"backends"`

	// DegradationFlags names what is currently degraded, e.g.
	// "fallback_dataset" or "circuit_postgis".
	DegradationFlags []string `json:"degradation_flags,omitempty"`
}

// StoreStatus is the result of pinging the configured location store.
type StoreStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail string       `json:"detail,omitempty"`
}

// BackendStatus reports one breaker-guarded store backend.
type BackendStatus struct {
	Name                string       `json:"name"`
	Status              HealthStatus `json:"status"`
	Circuit             string       `json:"circuit"`
	Requests            uint32       `json:"requests"`
	ConsecutiveFailures uint32       `json:"consecutive_failures"`
	LastSuccessAt       *Timestamp   `json:"last_success_at,omitempty"`
	LastFailureAt       *Timestamp   `json:"last_failure_at,omitempty"`
	LastError           string       `json:"last_error,omitempty"`
}
