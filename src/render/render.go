package render

import (
	"RainMatrix/src/matrix"
	"RainMatrix/src/types"
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const Title = "Mindoro Rain Forecast"

type Chip struct {
	Label  string
	Href   string
	Active bool
}

type RowCell struct {
	Bg     string
	PillBg string
	Icon   string
	Value  string
}

type Row struct {
	Label string
	Bg    string
	Cells []RowCell
}

type LegendItem struct {
	Color string
	Range string
	Text  string
}

type Page struct {
	Title         string
	ForecastLabel string
	Chips         []Chip
	Places        []types.Place
	Rows          []Row
	PopLegend     []LegendItem
	PrecipLegend  []LegendItem
}

// View is everything needed to render one day's matrix.
type View struct {
	Matrix  *matrix.Matrix
	MinDate time.Time
	MaxDate time.Time
	// BaseParams are carried into every date chip link.
	BaseParams url.Values
}

var popLegend = []LegendItem{
	{matrix.PopWhite, "POP < 30%", "malabong umulan"},
	{matrix.PopGreen, "POP 30–50%", "baka umulan"},
	{matrix.PopYellow, "POP 51–80%", "maghanda sa posibleng ulan"},
	{matrix.PopRed, "POP > 80%", "asahang uulan"},
}

var precipSamples = []struct {
	mm   float64
	text string
}{
	{0.0, "0.0 mm - walang ulan"},
	{1.0, "1.0 mm - ambon lang"},
	{2.5, "2.5 mm - ulan na"},
	{5.0, "5.0 mm - malakas na ulan"},
	{matrix.ScaleMaxMM, fmt.Sprintf("%.1f mm+ - buhos na ulan", matrix.ScaleMaxMM)},
}

type Renderer struct {
	tmpl *template.Template
}

func LoadTemplate(filename string) (*Renderer, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "read template")
	}

	tmpl, err := template.New("matrix").Parse(string(data))
	if err != nil {
		return nil, errors.Wrap(err, "parse template")
	}
	return &Renderer{tmpl: tmpl}, nil
}

func (r *Renderer) Render(v View) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, BuildPage(v)); err != nil {
		return "", errors.Wrap(err, "render matrix")
	}
	return buf.String(), nil
}

// BuildURL returns the index link for a date, keeping the base params.
// A zero date drops the date parameter.
func BuildURL(base url.Values, date time.Time) string {
	params := url.Values{}
	for k, v := range base {
		params[k] = append([]string(nil), v...)
	}
	if date.IsZero() {
		params.Del("date")
	} else {
		params.Set("date", date.Format("2006-01-02"))
	}
	return "/?" + params.Encode()
}

func BuildPage(v View) Page {
	m := v.Matrix
	page := Page{
		Title:         Title,
		ForecastLabel: strings.ToUpper(m.Date.Format("02-Jan-06")),
		Places:        m.Places,
		PopLegend:     popLegend,
	}

	for d := v.MinDate; !d.After(v.MaxDate); d = d.AddDate(0, 0, 1) {
		page.Chips = append(page.Chips, Chip{
			Label:  d.Format("Mon Jan 02"),
			Href:   BuildURL(v.BaseParams, d),
			Active: d.Equal(m.Date),
		})
	}

	for _, h := range m.Hours {
		row := Row{
			Label: h.Format("03:00 PM"),
			Bg:    matrix.TimeColor(h),
		}
		for _, p := range m.Places {
			cell := m.Cell(p.Label, h)
			row.Cells = append(row.Cells, RowCell{
				Bg:     matrix.PrecipColor(cell.Precip),
				PillBg: matrix.PopColor(cell.POP),
				Icon:   cell.Icon,
				Value:  matrix.PrecipDisplay(cell.Precip),
			})
		}
		page.Rows = append(page.Rows, row)
	}

	for _, s := range precipSamples {
		page.PrecipLegend = append(page.PrecipLegend, LegendItem{
			Color: matrix.PrecipColor(s.mm),
			Text:  s.text,
		})
	}

	return page
}
