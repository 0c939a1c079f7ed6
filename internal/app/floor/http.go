package floor

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"floorstate/internal/common/logger"
	floorcore "floorstate/internal/floor"
	"floorstate/internal/gateway"
)

type api struct {
	session    *floorcore.DisplaySession
	controller *floorcore.Controller
	hub        *Hub
	lg         *logger.Logger
}

func (a *api) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /floor", a.getFloor)
	mux.HandleFunc("GET /floor/orders/{id}/items", a.getOrderItems)
	mux.HandleFunc("POST /orders/{id}/served", a.markServed)
	mux.HandleFunc("POST /requests/{id}/ack", a.acknowledgeRequest)
	mux.HandleFunc("POST /tables/{table}/close", a.closeTable)
	mux.HandleFunc("GET /notifications", a.getNotifications)
	mux.HandleFunc("POST /notifications", a.setNotifications)
	mux.HandleFunc("GET /ws", a.hub.HandleWS)
	mux.HandleFunc("GET /healthz", a.healthz)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (a *api) getFloor(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tables": a.session.Current()})
}

func (a *api) getOrderItems(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	items, err := a.session.Orders.HydrateItems(r.Context(), id)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order_id": id, "items": items})
}

func (a *api) markServed(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := a.controller.MarkServed(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"order_id": id, "status": "served"})
	case errors.Is(err, floorcore.ErrUnknownOrder):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, floorcore.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusBadGateway, err)
	}
}

func (a *api) acknowledgeRequest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.controller.AcknowledgeRequest(r.Context(), id); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request_id": id, "status": "completed"})
}

func (a *api) closeTable(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	report := a.controller.CloseTable(r.Context(), table)
	status := http.StatusOK
	if !report.Ok() {
		// partial failure: the caller retries the failed subset
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, report)
}

func (a *api) getNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"enabled": a.session.Notifier().Enabled()})
}

func (a *api) setNotifications(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("bad json"))
		return
	}
	a.session.Notifier().SetEnabled(body.Enabled)
	writeJSON(w, http.StatusOK, map[string]any{"enabled": body.Enabled})
}

func (a *api) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "session_id": a.session.ID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
