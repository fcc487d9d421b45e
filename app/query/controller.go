package query

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rwa-network/usdyx/pkg/models"
	"go.uber.org/zap"
)

func (a *App) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", a.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/metrics", a.handleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/v1/accounts/{address}", a.handleAccount).Methods(http.MethodGet)
	r.HandleFunc("/v1/days/{day}", a.handleDay).Methods(http.MethodGet)
	return r
}

func (a *App) handleHealth(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := models.NewProtocolMetrics()
	found, err := a.Store.Get(r.Context(), models.MetricsKey, m)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if !found {
		a.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no events processed yet"})
		return
	}
	a.writeJSON(w, http.StatusOK, m)
}

func (a *App) handleAccount(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	acct := models.NewAccount(address)
	found, err := a.Store.Get(r.Context(), models.AccountKey(address), acct)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if !found {
		a.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown account"})
		return
	}
	a.writeJSON(w, http.StatusOK, acct)
}

func (a *App) handleDay(w http.ResponseWriter, r *http.Request) {
	dayIndex, err := strconv.ParseInt(mux.Vars(r)["day"], 10, 64)
	if err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "day must be a UTC epoch-day index"})
		return
	}
	day := models.NewDailyBucket(dayIndex)
	found, err := a.Store.Get(r.Context(), models.DayKey(dayIndex), day)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if !found {
		a.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no activity that day"})
		return
	}
	a.writeJSON(w, http.StatusOK, day)
}

func (a *App) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.Logger.Warn("Failed to write response", zap.Error(err))
	}
}

func (a *App) writeError(w http.ResponseWriter, err error) {
	a.Logger.Error("Query failed", zap.Error(err))
	a.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
