package handlers

import (
	"RainMatrix/src/matrix"
	"RainMatrix/src/metrics"
	"RainMatrix/src/places"
	"RainMatrix/src/service"
	"RainMatrix/src/types"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	Service        *service.RainService
	Cache          types.PageCache
	Index          types.PlaceIndex
	DefaultCountry string
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("error encoding response")
	}
}

func textError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	fmt.Fprint(w, msg)
}

func (h *Handler) writePlacesError(w http.ResponseWriter, err error) {
	file := h.Service.PlacesFile()
	var placesErr *service.PlacesError

	switch {
	case errors.Is(err, places.ErrPlacesMissing):
		textError(w, http.StatusInternalServerError,
			"Missing places file: "+file+"\nCreate it with lines like:\nAIVR, 13.174, 121.278\n")
	case errors.Is(err, service.ErrNoPlaces):
		textError(w, http.StatusInternalServerError,
			"No places found in "+file+". Add lines like:\nAIVR, 13.174, 121.278\n")
	case errors.As(err, &placesErr):
		textError(w, http.StatusInternalServerError, "Error reading places file: "+placesErr.Err.Error())
	default:
		textError(w, http.StatusInternalServerError, "Error reading places file: "+err.Error())
	}
}

// writeServiceError maps request-flow errors onto plain-text responses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var rangeErr *service.RangeError

	switch {
	case errors.Is(err, service.ErrInvalidDate):
		textError(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD.")
	case errors.As(err, &rangeErr):
		textError(w, http.StatusBadRequest, fmt.Sprintf(
			"Date out of allowed range. Use %s to %s (tz=%s).",
			rangeErr.Min.Format("2006-01-02"), rangeErr.Max.Format("2006-01-02"), rangeErr.TZ))
	case errors.Is(err, places.ErrPlacesMissing), errors.Is(err, service.ErrNoPlaces):
		h.writePlacesError(w, err)
	case errors.As(err, new(*service.PlacesError)):
		h.writePlacesError(w, err)
	default:
		log.WithError(err).WithField("query", r.URL.RawQuery).Error("failed to build rain matrix")
		textError(w, http.StatusBadGateway, "Error fetching forecast: "+err.Error())
	}
}

func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	html, fromCache, err := h.Service.Page(r.Context(), service.QueryFromValues(r.URL.Query()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if fromCache {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	fmt.Fprint(w, html)
}

type matrixRow struct {
	Hour  string                `json:"hour"`
	Cells map[string]types.Cell `json:"cells"`
}

type matrixResponse struct {
	Date   string        `json:"date"`
	Places []types.Place `json:"places"`
	Rows   []matrixRow   `json:"rows"`
}

func (h *Handler) HandleMatrixAPI(w http.ResponseWriter, r *http.Request) {
	m, err := h.Service.Matrix(r.Context(), service.QueryFromValues(r.URL.Query()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := matrixResponse{
		Date:   m.Date.Format("2006-01-02"),
		Places: m.Places,
		Rows:   make([]matrixRow, 0, len(m.Hours)),
	}
	for _, hour := range m.Hours {
		row := matrixRow{Hour: matrix.HourKey(hour), Cells: make(map[string]types.Cell, len(m.Places))}
		for _, p := range m.Places {
			row.Cells[p.Label] = m.Cell(p.Label, hour)
		}
		resp.Rows = append(resp.Rows, row)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleCachePurge(w http.ResponseWriter, r *http.Request) {
	n, err := h.Cache.Purge(r.Context())
	if err != nil {
		log.WithError(err).Error("cache purge failed")
		http.Error(w, "Error purging cache", http.StatusInternalServerError)
		return
	}
	log.WithField("rows", n).Info("cache purged")
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *Handler) HandleCachePrune(w http.ResponseWriter, r *http.Request) {
	n, err := h.Cache.Prune(r.Context())
	if err != nil {
		log.WithError(err).Error("cache prune failed")
		http.Error(w, "Error pruning cache", http.StatusInternalServerError)
		return
	}
	metrics.RecordCachePruned(n)
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
