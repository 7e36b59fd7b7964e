package controllers

import (
	"crewboard/internal/providers"
	"crewboard/internal/services"
	"errors"
	"fmt"
	json "github.com/goccy/go-json"
	"net/http"
	"time"
)

const (
	batchCacheControl = "public, s-maxage=120, stale-while-revalidate"
	keepAliveInterval = 15 * time.Second
)

type ApiController struct {
	logger providers.Logger
	roster providers.RosterProviderInterface
	stats  services.StatisticServiceInterface
	views  services.ViewModelServiceInterface
}

func NewApiController(logger providers.Logger, roster providers.RosterProviderInterface, stats services.StatisticServiceInterface, views services.ViewModelServiceInterface) *ApiController {
	return &ApiController{
		logger: logger,
		roster: roster,
		stats:  stats,
		views:  views,
	}
}

type errorResponse struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	gson, _ := json.Marshal(errorResponse{Status: status, Error: msg})
	writeJSON(w, status, gson)
}

// Batch returns statistics for every roster member with a GitHub handle, in
// roster order. Individual failures show up as null entries; only a failure of
// the endpoint itself turns into an error object.
func (ac *ApiController) Batch(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			ac.logger.Errorf(providers.TypePost, "Statistics batch panicked: %v", rec)
			writeError(w, http.StatusInternalServerError, "statistics batch failed")
		}
	}()

	results := ac.stats.Batch(r.Context(), ac.roster.StatisticsHandles())
	if err := r.Context().Err(); err != nil {
		ac.logger.Warnf(providers.TypePost, "Statistics batch cancelled: %s", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	gson, err := json.Marshal(results)
	if err != nil {
		ac.logger.Errorf(providers.TypePost, "Unable to encode statistics batch: %s", err)
		writeError(w, http.StatusInternalServerError, "unable to encode statistics")
		return
	}

	w.Header().Set("Cache-Control", batchCacheControl)
	writeJSON(w, http.StatusOK, gson)
}

func (ac *ApiController) Members(w http.ResponseWriter, r *http.Request) {
	gson, err := json.Marshal(ac.views.Views())
	if err != nil {
		ac.logger.Errorf(providers.TypeGet, "Unable to encode members: %s", err)
		writeError(w, http.StatusInternalServerError, "unable to encode members")
		return
	}
	writeJSON(w, http.StatusOK, gson)
}

func (ac *ApiController) Member(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	selected, err := ac.views.Select(name)
	if errors.Is(err, services.ErrUnknownMember) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s: %s", err, name))
		return
	}
	if err != nil {
		ac.logger.Errorf(providers.TypeGet, "Unable to select %s: %s", name, err)
		writeError(w, http.StatusInternalServerError, "unable to select member")
		return
	}

	gson, err := json.Marshal(selected)
	if err != nil {
		ac.logger.Errorf(providers.TypeGet, "Unable to encode member %s: %s", name, err)
		writeError(w, http.StatusInternalServerError, "unable to encode member")
		return
	}
	writeJSON(w, http.StatusOK, gson)
}

// Events streams view changes as server-sent events. The current views are
// sent first so a client never has to combine this with GET /members.
func (ac *ApiController) Events(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// The stream outlives the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	updates := ac.views.Watch(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for _, view := range ac.views.Views() {
		if err := writeEvent(w, "member", view); err != nil {
			return
		}
	}
	if err := rc.Flush(); err != nil {
		ac.logger.Warnf(providers.TypeGet, "Event stream cannot be flushed: %s", err)
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case view, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(w, "member", view); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, payload any) error {
	gson, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, gson)
	return err
}
