package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/NERVsystems/co2mcp/pkg/emissions"
	"github.com/NERVsystems/co2mcp/pkg/estimator"
	"github.com/NERVsystems/co2mcp/pkg/trip"
)

// ErrNoData is returned when there is nothing to chart.
var ErrNoData = errors.New("no data to chart")

// Chart dimensions for PNG output.
const (
	PNGWidth  = 8 * vg.Inch
	PNGHeight = 5 * vg.Inch
)

var (
	barColor     = color.RGBA{R: 46, G: 139, B: 87, A: 255}
	highestColor = color.RGBA{R: 192, G: 57, B: 43, A: 255}
	lowestColor  = color.RGBA{R: 39, G: 174, B: 96, A: 255}
)

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func savingsSubtitle(s *emissions.Savings) string {
	return fmt.Sprintf("Choosing %s over %s saves %.2f kg CO2 per person (%.1f%% less)",
		s.Lowest.Mode, s.Highest.Mode, s.SavingsKg, s.PercentReduction)
}

func modeLabels(rows []emissions.Row) []string {
	x := make([]string, len(rows))
	for i, r := range rows {
		x[i] = r.Mode.String()
	}
	return x
}

func tripSubtitle(res *trip.Result) string {
	return fmt.Sprintf("%s to %s, %.2f km direct, %d traveler(s)", res.From.Name, res.To.Name, res.DirectDistanceKm, res.Travelers)
}

// WriteHTML renders an interactive page with per-person and total
// emissions per mode, the savings potential when two or more modes are
// compared, and the model comparison when present.
func WriteHTML(w io.Writer, res *trip.Result) error {
	if res == nil || len(res.Rows) == 0 {
		return ErrNoData
	}
	x := modeLabels(res.Rows)
	perPerson := make([]opts.BarData, len(res.Rows))
	total := make([]opts.BarData, len(res.Rows))
	for i, r := range res.Rows {
		perPerson[i] = opts.BarData{Value: round2(r.CO2PerPersonKg)}
		total[i] = opts.BarData{Value: round2(r.TotalCO2Kg)}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Trip CO2 comparison", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "CO2 by transport mode", Subtitle: tripSubtitle(res)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "kg CO2"}),
	)
	bar.SetXAxis(x).
		AddSeries("per person", perPerson, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"})).
		AddSeries("total", total)

	page := components.NewPage()
	page.AddCharts(bar)

	if s := res.Savings; s != nil {
		sav := charts.NewBar()
		sav.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
			charts.WithTitleOpts(opts.Title{Title: "Savings potential", Subtitle: savingsSubtitle(s)}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithYAxisOpts(opts.YAxis{Name: "kg CO2 per person"}),
		)
		sav.SetXAxis([]string{s.Highest.Mode.String(), s.Lowest.Mode.String()}).
			AddSeries("per person", []opts.BarData{
				{Name: "highest emissions", Value: round2(s.Highest.CO2PerPersonKg), ItemStyle: &opts.ItemStyle{Color: hexColor(highestColor)}},
				{Name: "lowest emissions", Value: round2(s.Lowest.CO2PerPersonKg), ItemStyle: &opts.ItemStyle{Color: hexColor(lowestColor)}},
			}, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
		page.AddCharts(sav)
	}

	if c := res.Model; c != nil {
		cmp := charts.NewBar()
		cmp.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
			charts.WithTitleOpts(opts.Title{
				Title:    "Car: baseline vs model",
				Subtitle: fmt.Sprintf("%s, %d years, %s, traffic %d/10", c.Trip.VehicleType, c.Trip.VehicleAgeYears, c.Trip.Season, c.Trip.TrafficLevel),
			}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithYAxisOpts(opts.YAxis{Name: "kg CO2 per person"}),
		)
		cmp.SetXAxis([]string{"baseline", "model"}).
			AddSeries("per person", []opts.BarData{
				{Value: round2(c.BaselinePerPersonKg)},
				{Value: round2(c.ModelPerPersonKg)},
			}, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
		page.AddCharts(cmp)
	}

	return page.Render(w)
}

// WriteImportanceHTML renders the feature ranking as a bar chart, highest first.
func WriteImportanceHTML(w io.Writer, imps []estimator.Importance) error {
	if len(imps) == 0 {
		return ErrNoData
	}
	names := make([]string, len(imps))
	data := make([]opts.BarData, len(imps))
	for i, imp := range imps {
		names[i] = imp.Feature
		data[i] = opts.BarData{Value: imp.Score}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Feature importance", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Feature importance"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).AddSeries("importance", data)
	return bar.Render(w)
}

// WritePNG renders per-person emissions per mode as a PNG bar chart. With
// savings, the highest and lowest emitters are drawn in their own colors.
func WritePNG(w io.Writer, res *trip.Result) error {
	if res == nil || len(res.Rows) == 0 {
		return ErrNoData
	}
	values := make(plotter.Values, len(res.Rows))
	for i, r := range res.Rows {
		values[i] = r.CO2PerPersonKg
	}

	p := plot.New()
	p.Title.Text = "CO2 per person by transport mode"
	p.Y.Label.Text = "kg CO2"
	p.X.Label.Text = tripSubtitle(res)

	bars, err := newBars(values, barColor)
	if err != nil {
		return err
	}
	p.Add(bars)

	if s := res.Savings; s != nil {
		p.Title.Text += "\n" + savingsSubtitle(s)
		for _, hl := range []struct {
			mode  emissions.Mode
			color color.RGBA
			label string
		}{
			{s.Highest.Mode, highestColor, "highest emissions"},
			{s.Lowest.Mode, lowestColor, "lowest emissions"},
		} {
			only := make(plotter.Values, len(values))
			for i, r := range res.Rows {
				if r.Mode == hl.mode {
					only[i] = values[i]
				}
			}
			b, err := newBars(only, hl.color)
			if err != nil {
				return err
			}
			p.Add(b)
			p.Legend.Add(hl.label, b)
		}
		p.Legend.Top = true
	}
	return writePlot(w, p, modeLabels(res.Rows))
}

// WriteImportancePNG renders the feature ranking as a PNG bar chart.
func WriteImportancePNG(w io.Writer, imps []estimator.Importance) error {
	if len(imps) == 0 {
		return ErrNoData
	}
	values := make(plotter.Values, len(imps))
	names := make([]string, len(imps))
	for i, imp := range imps {
		values[i] = imp.Score
		names[i] = imp.Feature
	}

	p := plot.New()
	p.Title.Text = "Feature importance"
	p.Y.Label.Text = "share of impurity reduction"
	bars, err := newBars(values, barColor)
	if err != nil {
		return err
	}
	p.Add(bars)
	return writePlot(w, p, names)
}

func newBars(values plotter.Values, c color.Color) (*plotter.BarChart, error) {
	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return nil, fmt.Errorf("create bar chart: %w", err)
	}
	bars.Color = c
	bars.LineStyle.Width = vg.Length(0)
	return bars, nil
}

func writePlot(w io.Writer, p *plot.Plot, names []string) error {
	p.NominalX(names...)
	p.Y.Min = 0

	wt, err := p.WriterTo(PNGWidth, PNGHeight, "png")
	if err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
