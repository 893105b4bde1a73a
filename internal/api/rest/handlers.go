package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/gorilla/mux"

	"github.com/fortuna/pitchside/internal/scheduler"
	"github.com/fortuna/pitchside/internal/service"
	"github.com/fortuna/pitchside/internal/store"
)

// Scheduler is the control surface of the update scheduler.
type Scheduler interface {
	Status() scheduler.Status
	Trigger(ctx context.Context, cadence scheduler.Cadence) error
}

// HealthChecker is implemented by store.Database and cache.RedisCache.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

const loadingMessage = "data may still be loading, try again shortly"

// Handler contains dependencies for HTTP handlers
type Handler struct {
	scheduler    Scheduler
	matchService *service.MatchService
	checks       map[string]HealthChecker
}

// NewHandler creates a new handler. /health runs the checks.
func NewHandler(sched Scheduler, matches *service.MatchService, checks map[string]HealthChecker) *Handler {
	return &Handler{
		scheduler:    sched,
		matchService: matches,
		checks:       checks,
	}
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if check == nil {
			continue
		}
		if err := check.HealthCheck(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	respondJSON(w, status, map[string]interface{}{
		"status":  state,
		"service": "pitchside",
		"checks":  results,
	})
}

// GetSchedulerStatus returns the cadence schedule and last runs
func (h *Handler) GetSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.scheduler.Status())
}

// TriggerCadence starts one cadence run in the background
func (h *Handler) TriggerCadence(w http.ResponseWriter, r *http.Request) {
	cadence := scheduler.Cadence(mux.Vars(r)["cadence"])

	err := h.scheduler.Trigger(r.Context(), cadence)
	switch {
	case err == nil:
		respondJSON(w, http.StatusAccepted, map[string]interface{}{
			"message": "Sync started",
			"cadence": cadence,
		})
	case crerr.Is(err, scheduler.ErrUnknownCadence):
		respondError(w, http.StatusBadRequest, "Unknown cadence (use matches, predictions, full or initial)", err)
	case crerr.Is(err, scheduler.ErrBusy):
		respondError(w, http.StatusConflict, "A sync is already running", err)
	default:
		respondError(w, http.StatusInternalServerError, "Failed to start sync", err)
	}
}

// GetLeagues returns every stored league
func (h *Handler) GetLeagues(w http.ResponseWriter, r *http.Request) {
	leagues, err := h.matchService.Leagues(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch leagues", err)
		return
	}
	if leagues == nil {
		leagues = []*store.League{}
	}

	respondJSON(w, http.StatusOK, leagues)
}

// GetUpcomingMatches returns a league's upcoming matches. An optional
// matchday query parameter narrows them to one round.
func (h *Handler) GetUpcomingMatches(w http.ResponseWriter, r *http.Request) {
	leagueID, err := strconv.ParseInt(mux.Vars(r)["leagueID"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid league ID", err)
		return
	}

	var matchday *int
	if raw := r.URL.Query().Get("matchday"); raw != "" {
		md, err := strconv.Atoi(raw)
		if err != nil || md <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid matchday", err)
			return
		}
		matchday = &md
	}

	matches, err := h.matchService.UpcomingMatches(r.Context(), leagueID, matchday)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch upcoming matches", err)
		return
	}

	response := map[string]interface{}{
		"matches": matches,
		"count":   len(matches),
	}
	if len(matches) == 0 {
		response["message"] = loadingMessage
	}
	respondJSON(w, http.StatusOK, response)
}

// GetTeamPlayers returns a team with its squad
func (h *Handler) GetTeamPlayers(w http.ResponseWriter, r *http.Request) {
	teamID, err := strconv.ParseInt(mux.Vars(r)["teamID"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid team ID", err)
		return
	}

	roster, err := h.matchService.Roster(r.Context(), teamID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Team not found", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch players", err)
		return
	}

	response := map[string]interface{}{
		"team":    roster.Team,
		"players": roster.Players,
		"count":   len(roster.Players),
	}
	if len(roster.Players) == 0 {
		response["message"] = loadingMessage
	}
	respondJSON(w, http.StatusOK, response)
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	json.NewEncoder(w).Encode(response)
}
