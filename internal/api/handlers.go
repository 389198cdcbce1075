// Package api exposes HTTP handlers for the routine service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"example.com/routines/internal/domain"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", healthz)
	mux.HandleFunc("/api/routines", h.routines)
	mux.HandleFunc("/api/routines/", h.routineByID)
	mux.HandleFunc("/api/exercises/catalog", h.catalog)
	mux.HandleFunc("/api/exercises/catalog/", h.catalogByID)
	mux.HandleFunc("/api/routine-exercises", h.links)
	mux.HandleFunc("/api/routine-exercises/", h.linkByID)
	mux.HandleFunc("/api/workouts", h.workouts)
	mux.HandleFunc("/api/workouts/", h.workoutByID)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) routines(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := h.service.Routines.List(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"routines": items})
	case http.MethodPost:
		var in domain.CreateRoutineInput
		if !decodeBody(w, r, &in) {
			return
		}
		routine, err := h.service.Routines.Create(r.Context(), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"routine": routine})
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) routineByID(w http.ResponseWriter, r *http.Request) {
	id, sub := splitPath(r.URL.Path, "/api/routines/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing routine id")
		return
	}

	switch sub {
	case "":
	case "exercises":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		resolved, err := h.service.Resolver.ResolveRoutine(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"exercises": resolved})
		return
	case "summary":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		summary, err := h.service.Resolver.RoutineSummary(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"routine": summary})
		return
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	}

	switch r.Method {
	case http.MethodGet:
		routine, err := h.service.Routines.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"routine": routine})
	case http.MethodPut:
		var patch domain.RoutinePatch
		if !decodeBody(w, r, &patch) {
			return
		}
		routine, err := h.service.Routines.Update(r.Context(), id, patch)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"routine": routine})
	case http.MethodDelete:
		report, err := h.service.Routines.Delete(r.Context(), id)
		if err != nil {
			var cascadeErr *domain.CascadeError
			if errors.As(err, &cascadeErr) {
				writeJSON(w, http.StatusInternalServerError, CascadeFailure{
					Type:        "cascade_incomplete",
					Detail:      err.Error(),
					Report:      report,
					FailedLinks: failedLinkIDs(report),
				})
				return
			}
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"report": report})
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var (
			items []domain.Exercise
			err   error
		)
		if name := r.URL.Query().Get("name"); name != "" {
			items, err = h.service.Catalog.FindByName(r.Context(), name)
		} else {
			items, err = h.service.Catalog.List(r.Context())
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"exercises": items})
	case http.MethodPost:
		var in domain.CreateExerciseInput
		if !decodeBody(w, r, &in) {
			return
		}
		ex, err := h.service.Catalog.Create(r.Context(), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"exercise": ex})
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) catalogByID(w http.ResponseWriter, r *http.Request) {
	id, sub := splitPath(r.URL.Path, "/api/exercises/catalog/")
	if id == "" || sub != "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing exercise id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		ex, err := h.service.Catalog.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"exercise": ex})
	case http.MethodPut:
		var patch domain.ExercisePatch
		if !decodeBody(w, r, &patch) {
			return
		}
		ex, err := h.service.Catalog.Update(r.Context(), id, patch)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"exercise": ex})
	case http.MethodDelete:
		if err := h.service.Catalog.Delete(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) links(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		routineID := r.URL.Query().Get("routine_id")
		if strings.TrimSpace(routineID) == "" {
			writeError(w, http.StatusBadRequest, "validation_failed", "missing routine_id parameter")
			return
		}
		items, err := h.service.Links.ListByRoutine(r.Context(), routineID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		domain.SortLinks(items)
		writeJSON(w, http.StatusOK, map[string]any{"routine_exercises": items})
	case http.MethodPost:
		var in domain.CreateLinkInput
		if !decodeBody(w, r, &in) {
			return
		}
		link, err := h.service.Links.Create(r.Context(), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"routine_exercise": link})
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) linkByID(w http.ResponseWriter, r *http.Request) {
	id, sub := splitPath(r.URL.Path, "/api/routine-exercises/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing routine exercise id")
		return
	}
	if sub == "resolved" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		resolved, err := h.service.Resolver.ResolveLink(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"exercise": resolved})
		return
	}
	if sub != "" {
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	}

	switch r.Method {
	case http.MethodGet:
		link, err := h.service.Links.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"routine_exercise": link})
	case http.MethodPut:
		var patch domain.LinkPatch
		if !decodeBody(w, r, &patch) {
			return
		}
		link, err := h.service.Links.Update(r.Context(), id, patch)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"routine_exercise": link})
	case http.MethodDelete:
		if err := h.service.Links.Delete(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) workouts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		userID := r.URL.Query().Get("user_id")
		if strings.TrimSpace(userID) == "" {
			writeError(w, http.StatusBadRequest, "validation_failed", "missing user_id parameter")
			return
		}
		items, err := h.service.Workouts.ListByUser(r.Context(), userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"workouts": items})
	case http.MethodPost:
		var in domain.CreateWorkoutInput
		if !decodeBody(w, r, &in) {
			return
		}
		workout, err := h.service.Workouts.Create(r.Context(), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"workout": workout})
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) workoutByID(w http.ResponseWriter, r *http.Request) {
	id, sub := splitPath(r.URL.Path, "/api/workouts/")
	if id == "" || sub != "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing workout id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		workout, err := h.service.Workouts.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"workout": workout})
	case http.MethodPut:
		var req UpdateWorkoutRequest
		if !decodeBody(w, r, &req) {
			return
		}
		workout, err := h.service.Workouts.Update(r.Context(), id, req.Data)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"workout": workout})
	case http.MethodDelete:
		if err := h.service.Workouts.Delete(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

// UpdateWorkoutRequest is the payload for PUT /api/workouts/{id}.
type UpdateWorkoutRequest struct {
	Data map[string]any `json:"workout_data"`
}

// CascadeFailure is returned when a routine delete left links behind.
type CascadeFailure struct {
	Type        string               `json:"type"`
	Detail      string               `json:"detail"`
	Report      domain.CascadeReport `json:"report"`
	FailedLinks []string             `json:"failed_links"`
}

func failedLinkIDs(report domain.CascadeReport) []string {
	ids := make([]string, 0, len(report.FailedLinks))
	for id := range report.FailedLinks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// splitPath returns the id after prefix and the remaining sub-resource, if any.
func splitPath(path, prefix string) (string, string) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	id, sub, _ := strings.Cut(rest, "/")
	return id, sub
}

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

func writeDomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "validation_failed", verr.Error())
	case errors.Is(err, domain.ErrRoutineNotFound),
		errors.Is(err, domain.ErrExerciseNotFound),
		errors.Is(err, domain.ErrLinkNotFound),
		errors.Is(err, domain.ErrWorkoutNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "store did not answer in time")
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
