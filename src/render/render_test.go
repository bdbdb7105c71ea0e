package render

import (
	"RainMatrix/src/matrix"
	"RainMatrix/src/types"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2025, 12, d, 0, 0, 0, 0, time.UTC)
}

func testView() View {
	places := []types.Place{{Label: "AIVR"}, {Label: "Calapan"}}
	target := day(31)
	forecasts := map[string]*types.HourlyForecast{
		"AIVR": {
			Times:  []time.Time{target.Add(9 * time.Hour), target.Add(15 * time.Hour)},
			Precip: []float64{1.2, 0},
			POP:    []int{85, 10},
			Cloud:  []float64{90, 10},
		},
	}

	base := url.Values{}
	base.Set("tz", "Asia/Manila")
	base.Set("country", "PH")
	base.Set("model", "ecmwf_ifs")

	return View{
		Matrix:     matrix.Build(places, forecasts, target),
		MinDate:    day(29),
		MaxDate:    day(29).AddDate(0, 0, 4),
		BaseParams: base,
	}
}

func TestBuildURL(t *testing.T) {
	base := url.Values{"tz": {"UTC"}, "date": {"2000-01-01"}}

	assert.Equal(t, "/?date=2025-12-31&tz=UTC", BuildURL(base, day(31)))
	assert.Equal(t, "/?tz=UTC", BuildURL(base, time.Time{}))
	assert.Equal(t, "2000-01-01", base.Get("date"), "base params must not be mutated")
}

func TestBuildPage(t *testing.T) {
	page := BuildPage(testView())

	assert.Equal(t, Title, page.Title)
	assert.Equal(t, "31-DEC-25", page.ForecastLabel)

	require.Len(t, page.Chips, 5)
	assert.Equal(t, "Mon Dec 29", page.Chips[0].Label)
	assert.True(t, page.Chips[2].Active)
	assert.False(t, page.Chips[0].Active)
	assert.Contains(t, page.Chips[4].Href, "date=2026-01-02")

	require.Len(t, page.Rows, 2)
	assert.Equal(t, "09:00 AM", page.Rows[0].Label)
	assert.Equal(t, "03:00 PM", page.Rows[1].Label)

	first := page.Rows[0].Cells
	require.Len(t, first, 2)
	assert.Equal(t, RowCell{
		Bg:     matrix.PrecipColor(1.2),
		PillBg: matrix.PopRed,
		Icon:   "🌦️",
		Value:  "1.2",
	}, first[0])
	assert.Equal(t, RowCell{
		Bg:     matrix.SkyBlue,
		PillBg: matrix.PopWhite,
		Icon:   matrix.MissingIcon,
		Value:  "-",
	}, first[1])

	require.Len(t, page.PrecipLegend, 5)
	assert.Equal(t, matrix.SkyBlue, page.PrecipLegend[0].Color)
	assert.Equal(t, matrix.Violet, page.PrecipLegend[4].Color)
	assert.Equal(t, "7.0 mm+ - buhos na ulan", page.PrecipLegend[4].Text)
}

func TestRender(t *testing.T) {
	r, err := LoadTemplate("../templates/matrix.html")
	require.NoError(t, err)

	html, err := r.Render(testView())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(html, "<!doctype html>"))
	assert.Contains(t, html, "<title>Mindoro Rain Forecast</title>")
	assert.Contains(t, html, "31-DEC-25")
	assert.Contains(t, html, "<th>Calapan</th>")
	assert.Contains(t, html, "09:00 AM")
	assert.Contains(t, html, "background:#87CEEB")
	assert.Contains(t, html, "tz=Asia%2FManila")
	assert.Contains(t, html, `class="dchip active"`)
	assert.Contains(t, html, "POP &lt; 30%")
	assert.Contains(t, html, "Download JPG")
}

func TestLoadTemplate_Missing(t *testing.T) {
	_, err := LoadTemplate("does-not-exist.html")
	assert.Error(t, err)
}
