package handlers

import (
	"RainMatrix/src/places"
	"RainMatrix/src/types"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
)

const (
	pageSize = 10
)

type HandlePlaces struct {
	Name     string        `json:"name"`
	Total    int           `json:"total"`
	Places   []types.Place `json:"places"`
	Page     int           `json:"page"`
	LastPage int           `json:"last_page"`
	PrevPage int           `json:"prev_page,omitempty"`
	NextPage int           `json:"next_page,omitempty"`
}

type Recommendation struct {
	Name   string        `json:"name"`
	Places []types.Place `json:"places"`
}

// HandleGetPlacesAPI pages through the configured places file.
func (h *Handler) HandleGetPlacesAPI(w http.ResponseWriter, r *http.Request) {
	pageStr := r.URL.Query().Get("page")
	if pageStr == "" {
		pageStr = "1"
	}
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		http.Error(w, "Invalid 'page' value: "+pageStr, http.StatusBadRequest)
		return
	}

	all, err := places.Read(h.Service.PlacesFile())
	if err != nil {
		h.writePlacesError(w, err)
		return
	}

	total := len(all)
	lastPage := (total + pageSize - 1) / pageSize
	if lastPage > 0 && page > lastPage {
		http.Error(w, "Invalid 'page' value: "+pageStr, http.StatusBadRequest)
		return
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}

	data := &HandlePlaces{
		Name:     "Places",
		Places:   all[start:end],
		Total:    total,
		Page:     page,
		LastPage: lastPage,
	}
	if page > 1 {
		data.PrevPage = page - 1
	}
	if page < lastPage {
		data.NextPage = page + 1
	}

	writeJSON(w, http.StatusOK, data)
}

func (h *Handler) HandleNearbyAPI(w http.ResponseWriter, r *http.Request) {
	latStr := r.URL.Query().Get("lat")
	lonStr := r.URL.Query().Get("lon")
	if latStr == "" || lonStr == "" {
		http.Error(w, "Missing latitude or longitude", http.StatusBadRequest)
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		http.Error(w, "Invalid latitude", http.StatusBadRequest)
		return
	}

	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		http.Error(w, "Invalid longitude", http.StatusBadRequest)
		return
	}

	nearby, err := h.Index.GetNearbyPlaces(r.Context(), lat, lon)
	if err != nil {
		log.WithError(err).Error("nearby lookup failed")
		http.Error(w, "Error fetching nearby places", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, Recommendation{
		Name:   "Nearby",
		Places: nearby,
	})
}

func (h *Handler) HandleGeocodeAPI(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		http.Error(w, "Missing 'q' parameter", http.StatusBadRequest)
		return
	}
	country := r.URL.Query().Get("country")
	if country == "" {
		country = h.DefaultCountry
	}

	place, err := h.Service.Source().Geocode(r.Context(), q, country)
	if err != nil {
		log.WithError(err).WithField("q", q).Error("geocode failed")
		http.Error(w, "Error contacting geocoding service", http.StatusBadGateway)
		return
	}
	if place == nil {
		http.Error(w, "No match for "+q, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, place)
}
