// Package monitor renders live dashboards for the nozzle condition monitor:
// the raw sensor series, the PCA clustering scatter, and the condition
// distribution, as server-rendered go-echarts pages.
package monitor

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/nozzle.report/internal/nozzle"
)

// Condition colours match the original dashboard: clogged red, unclogged
// green.
var conditionColors = map[string]string{
	"Clogged":   "#d62728",
	"Unclogged": "#2ca02c",
}

// Charts serves the live chart pages for one monitoring session.
type Charts struct {
	session *nozzle.Session
}

// NewCharts creates a chart server over the given session.
func NewCharts(session *nozzle.Session) *Charts {
	return &Charts{session: session}
}

// Attach mounts the chart routes on the given mux.
func (c *Charts) Attach(mux *http.ServeMux) {
	mux.HandleFunc("/charts", c.handleDashboard)
	mux.HandleFunc("/charts/sensor", c.handleSensorChart)
	mux.HandleFunc("/charts/clusters", c.handleClusterChart)
	mux.HandleFunc("/charts/conditions", c.handleConditionChart)
}

const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
<title>Nozzle Condition Monitor</title>
<meta http-equiv="refresh" content="5">
<style>
body { background: #111; color: #eee; font-family: sans-serif; }
iframe { border: none; width: 33%%; height: 520px; }
</style>
</head>
<body>
<h1>Real-Time Nozzle Condition Monitoring</h1>
<p>Status: <strong>%s</strong></p>
<iframe src="/charts/sensor"></iframe>
<iframe src="/charts/clusters"></iframe>
<iframe src="/charts/conditions"></iframe>
</body>
</html>
`

// handleDashboard renders a simple dashboard with iframes to the live charts.
func (c *Charts) handleDashboard(w http.ResponseWriter, r *http.Request) {
	status := "warming up"
	if rec, ok := c.session.History().Last(); ok {
		status = rec.Label
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, dashboardHTML, status)
}

// handleSensorChart renders the current window's encoder counts and currents
// as a two-series line chart.
func (c *Charts) handleSensorChart(w http.ResponseWriter, r *http.Request) {
	window := c.session.WindowSnapshot()

	indices := make([]int, len(window))
	encoder := make([]opts.LineData, len(window))
	current := make([]opts.LineData, len(window))
	for i, s := range window {
		indices[i] = i
		encoder[i] = opts.LineData{Value: s.EncoderCount}
		current[i] = opts.LineData{Value: s.Current}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Sensor Data", Theme: "dark", Width: "500px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Real-Time Sensor Data", Subtitle: fmt.Sprintf("window fill %d", len(window))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(indices).
		AddSeries("EncoderCount", encoder).
		AddSeries("Current", current)

	c.render(w, line)
}

// handleClusterChart renders the PCA history as a scatter, one series per
// condition so the legend doubles as a colour key.
func (c *Charts) handleClusterChart(w http.ResponseWriter, r *http.Request) {
	history := c.session.History().All()

	byLabel := make(map[string][]opts.ScatterData)
	for _, rec := range history {
		byLabel[rec.Label] = append(byLabel[rec.Label], opts.ScatterData{
			Value: []interface{}{rec.PCA1, rec.PCA2},
		})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Clustering", Theme: "dark", Width: "500px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Live Clustering Analysis", Subtitle: fmt.Sprintf("%d windows classified", len(history))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "PCA1"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "PCA2"}),
	)

	for _, label := range sortedLabels(byLabel) {
		series := byLabel[label]
		scatter.AddSeries(label, series,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: conditionColors[label]}),
		)
	}

	c.render(w, scatter)
}

// handleConditionChart renders the session's condition distribution as a bar
// chart of percentages.
func (c *Charts) handleConditionChart(w http.ResponseWriter, r *http.Request) {
	tally := c.session.History().Tally()

	labels := make([]string, 0, len(tally))
	for label := range tally {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	data := make([]opts.BarData, len(labels))
	for i, label := range labels {
		data[i] = opts.BarData{
			Value:     tally[label],
			ItemStyle: &opts.ItemStyle{Color: conditionColors[label]},
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Condition Distribution", Theme: "dark", Width: "500px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Condition Distribution", Subtitle: "percent of classified windows"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Percentage"}),
	)
	bar.SetXAxis(labels).AddSeries("Percentage", data)

	c.render(w, bar)
}

type renderer interface {
	Render(w io.Writer) error
}

func (c *Charts) render(w http.ResponseWriter, chart renderer) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := chart.Render(w); err != nil {
		log.Printf("failed to render chart: %v", err)
	}
}

func sortedLabels(m map[string][]opts.ScatterData) []string {
	labels := make([]string, 0, len(m))
	for label := range m {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
