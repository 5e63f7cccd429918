package httpapi

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/tconn93/Day-trader/internal/engine"
	"github.com/tconn93/Day-trader/internal/reliability"
)

// SystemHandlers serves the operational status/health routes of §12.
type SystemHandlers struct {
	live        *engine.LiveEngine
	ledgerHealth *reliability.DatabaseHealthService
	coreHealth   *reliability.DatabaseHealthService
	startedAt   time.Time
	log         zerolog.Logger
}

// NewSystemHandlers constructs a SystemHandlers.
func NewSystemHandlers(live *engine.LiveEngine, ledgerHealth, coreHealth *reliability.DatabaseHealthService, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		live:         live,
		ledgerHealth: ledgerHealth,
		coreHealth:   coreHealth,
		startedAt:    time.Now(),
		log:          log.With().Str("handler", "system").Logger(),
	}
}

type systemStatusResponse struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	CPUPercent       float64 `json:"cpu_percent"`
	RAMPercent       float64 `json:"ram_percent"`
	RunningAlgorithms int    `json:"running_algorithms"`
}

// HandleStatus handles GET /system/status, grounded on the teacher's
// getSystemStats: a short (100ms) CPU sample plus instantaneous memory.
func (h *SystemHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to read CPU percentage")
		cpuPercent = []float64{0}
	}
	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	ramPercent := 0.0
	if memStat, err := mem.VirtualMemory(); err != nil {
		h.log.Warn().Err(err).Msg("failed to read memory statistics")
	} else {
		ramPercent = memStat.UsedPercent
	}

	respondJSON(w, http.StatusOK, systemStatusResponse{
		UptimeSeconds:     time.Since(h.startedAt).Seconds(),
		CPUPercent:        cpuAvg,
		RAMPercent:        ramPercent,
		RunningAlgorithms: len(h.live.Running()),
	})
}

type databaseHealthResponse struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HandleHealth handles GET /system/health: an integrity check
// (PRAGMA integrity_check) over both the ledger and core databases.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	results := []databaseHealthResponse{
		checkOne("ledger", h.ledgerHealth),
		checkOne("core", h.coreHealth),
	}

	status := http.StatusOK
	for _, res := range results {
		if res.Status != "ok" {
			status = http.StatusServiceUnavailable
			break
		}
	}
	respondJSON(w, status, map[string]interface{}{"databases": results})
}

func checkOne(name string, svc *reliability.DatabaseHealthService) databaseHealthResponse {
	if err := svc.Check(); err != nil {
		return databaseHealthResponse{Name: name, Status: "failed", Error: err.Error()}
	}
	return databaseHealthResponse{Name: name, Status: "ok"}
}
