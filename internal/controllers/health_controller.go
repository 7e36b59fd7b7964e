package controllers

import (
	"crewboard/internal/presence"
	"crewboard/internal/providers"
	"fmt"
	json "github.com/goccy/go-json"
	"net/http"
	"time"
)

type HealthController struct {
	presence  presence.ClientInterface
	roster    providers.RosterProviderInterface
	startTime time.Time
}

type healthResponse struct {
	Status                string  `json:"status"`
	Uptime                string  `json:"uptime"`
	UptimeSeconds         float64 `json:"uptime_seconds"`
	Members               int     `json:"members"`
	PresenceState         string  `json:"presence_state"`
	PresenceSubscriptions int     `json:"presence_subscriptions"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	state := hc.presence.State()
	status := "ok"
	if state != presence.StateOpen {
		status = "degraded"
	}
	resp := healthResponse{
		Status:                status,
		Uptime:                formatDuration(uptime),
		UptimeSeconds:         uptime.Seconds(),
		Members:               len(hc.roster.Members()),
		PresenceState:         state.String(),
		PresenceSubscriptions: hc.presence.Subscriptions(),
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(client presence.ClientInterface, roster providers.RosterProviderInterface) *HealthController {
	return &HealthController{
		presence:  client,
		roster:    roster,
		startTime: time.Now(),
	}
}
