// Package matrix turns hourly forecasts into the hours-by-places rain grid.
package matrix

import (
	"RainMatrix/src/types"
	"fmt"
	"sort"
	"time"
)

const (
	DayStartHour = 6
	DayEndHour   = 18

	ClearMax  = 25.0
	PartlyMax = 60.0

	LightMax    = 2.5
	ModerateMax = 7.5

	MissingIcon = "—"
)

func IsDay(t time.Time) bool {
	return DayStartHour <= t.Hour() && t.Hour() < DayEndHour
}

func WeatherIcon(cloudPct, precipMM float64, t time.Time) string {
	day := IsDay(t)

	if precipMM > 0 {
		switch {
		case precipMM <= LightMax:
			if day {
				return "🌦️"
			}
			return "🌧️"
		case precipMM <= ModerateMax:
			return "🌧️"
		default:
			return "⛈️"
		}
	}

	switch {
	case cloudPct <= ClearMax:
		if day {
			return "☀️"
		}
		return "🌙"
	case cloudPct <= PartlyMax:
		if day {
			return "🌤️"
		}
		return "🌙☁️"
	default:
		return "☁️"
	}
}

func PrecipDisplay(mm float64) string {
	if mm <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", mm)
}

func HourKey(t time.Time) string {
	return t.Format("15:00")
}

type Matrix struct {
	Date   time.Time                        `json:"date"`
	Places []types.Place                    `json:"places"`
	Hours  []time.Time                      `json:"hours"`
	Cells  map[string]map[string]types.Cell `json:"cells"`
}

// Cell returns the cell for a place and hour, or a placeholder when the
// provider returned no sample for it.
func (m *Matrix) Cell(label string, hour time.Time) types.Cell {
	if cell, ok := m.Cells[label][HourKey(hour)]; ok {
		return cell
	}
	return types.Cell{Icon: MissingIcon}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Build keeps only samples on the target date. The hour axis is the sorted
// union of hours any place reported.
func Build(places []types.Place, forecasts map[string]*types.HourlyForecast, target time.Time) *Matrix {
	m := &Matrix{
		Date:   target,
		Places: places,
		Cells:  make(map[string]map[string]types.Cell, len(places)),
	}
	seen := make(map[string]bool)

	for _, p := range places {
		cells := make(map[string]types.Cell)
		fc := forecasts[p.Label]
		if fc != nil {
			for i, t := range fc.Times {
				if !sameDate(t, target) {
					continue
				}

				hk := HourKey(t)
				if !seen[hk] {
					seen[hk] = true
					m.Hours = append(m.Hours, t)
				}

				precip := at(fc.Precip, i)
				cells[hk] = types.Cell{
					Icon:   WeatherIcon(at(fc.Cloud, i), precip, t),
					Precip: precip,
					POP:    atInt(fc.POP, i),
				}
			}
		}
		m.Cells[p.Label] = cells
	}

	sort.Slice(m.Hours, func(i, j int) bool { return m.Hours[i].Before(m.Hours[j]) })
	return m
}

func at(xs []float64, i int) float64 {
	if i < len(xs) {
		return xs[i]
	}
	return 0
}

func atInt(xs []int, i int) int {
	if i < len(xs) {
		return xs[i]
	}
	return 0
}
