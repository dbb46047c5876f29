// Package dashboard renders server-side ECharts views of a stored
// session. These are quick inspection pages, not the primary API; the
// JSON endpoints under /api carry the same data for richer frontends.
package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/pitwall-data/laptime.report/internal/analysis"
	"github.com/pitwall-data/laptime.report/internal/chartdata"
	"github.com/pitwall-data/laptime.report/internal/db"
	"github.com/pitwall-data/laptime.report/internal/session"
	"github.com/pitwall-data/laptime.report/internal/units"
)

const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// fallbackSeriesColor is used for drivers whose team has no palette entry.
const fallbackSeriesColor = "#9e9e9e"

type WebServer struct {
	db    *db.DB
	units string
}

func NewWebServer(database *db.DB, displayUnits string) *WebServer {
	return &WebServer{db: database, units: displayUnits}
}

// RegisterRoutes mounts the dashboard pages on mux.
func (ws *WebServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/dashboard", ws.handleIndex)
	mux.HandleFunc("/dashboard/laptimes", ws.handleLapTimeChart)
	mux.HandleFunc("/dashboard/positions", ws.handlePositionChart)
	mux.HandleFunc("/dashboard/stints", ws.handleStintChart)
	mux.HandleFunc("/dashboard/trace", ws.handleTraceChart)
	mux.HandleFunc("/dashboard/delta", ws.handleDeltaChart)
	mux.HandleFunc("/dashboard/trackmap", ws.handleTrackMapChart)
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// sessionLaps resolves the session named in the request to its laps.
func (ws *WebServer) sessionLaps(w http.ResponseWriter, r *http.Request) ([]session.Lap, string, bool) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		ws.writeJSONError(w, http.StatusBadRequest, "missing 'session' parameter")
		return nil, "", false
	}
	laps, err := ws.db.LapsBySession(sessionID)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load laps: %v", err))
		return nil, "", false
	}
	if len(laps) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no laps for session")
		return nil, "", false
	}
	return laps, sessionID, true
}

type chartRenderer interface {
	Render(w io.Writer) error
}

func (ws *WebServer) renderChart(w http.ResponseWriter, c chartRenderer) {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleIndex lists stored sessions with links to their charts.
func (ws *WebServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	sessions, err := ws.db.ListSessions()
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list sessions: %v", err))
		return
	}

	var body bytes.Buffer
	body.WriteString(indexHeaderHTML)
	for _, s := range sessions {
		safeID := url.QueryEscape(s.ID)
		fmt.Fprintf(&body, indexRowHTML,
			s.Year, html.EscapeString(s.EventName), html.EscapeString(s.SessionType),
			safeID, safeID, safeID, safeID)
	}
	body.WriteString(indexFooterHTML)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(body.Bytes())
}

// handleLapTimeChart renders one line per driver, lap time over lap number.
func (ws *WebServer) handleLapTimeChart(w http.ResponseWriter, r *http.Request) {
	laps, sessionID, ok := ws.sessionLaps(w, r)
	if !ok {
		return
	}

	data := chartdata.PrepareLapTimeChartData(laps, nil)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Lap Times", Theme: "dark", Width: "1200px", Height: "700px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Lap Times", Subtitle: fmt.Sprintf("session=%s points=%d", sessionID, data.NumPoints)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Lap"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Lap time (s)", Scale: opts.Bool(true)}),
	)

	line.SetXAxis(lapAxis(laps))
	for _, series := range data.Series {
		points := make([]opts.LineData, len(series.Points))
		for i, p := range series.Points {
			points[i] = opts.LineData{Value: []interface{}{p.LapNumber, p.Seconds}}
		}
		color := series.Color
		if color == "" {
			color = fallbackSeriesColor
		}
		line.AddSeries(series.Driver, points,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
		)
	}

	ws.renderChart(w, line)
}

// handlePositionChart renders the position-by-lap race trace. Position 1
// belongs at the top, so the value axis is inverted at render time; the
// series data itself stays in natural order.
func (ws *WebServer) handlePositionChart(w http.ResponseWriter, r *http.Request) {
	laps, sessionID, ok := ws.sessionLaps(w, r)
	if !ok {
		return
	}

	data := chartdata.PreparePositionChartData(laps, nil)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Race Positions", Theme: "dark", Width: "1200px", Height: "700px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Race Positions", Subtitle: fmt.Sprintf("session=%s", sessionID)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Lap"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Position", Inverse: opts.Bool(data.InvertYAxis), Min: 1}),
	)

	line.SetXAxis(lapAxis(laps))
	for _, series := range data.Series {
		points := make([]opts.LineData, len(series.Points))
		for i, p := range series.Points {
			points[i] = opts.LineData{Value: []interface{}{p.LapNumber, p.Position}}
		}
		color := series.Color
		if color == "" {
			color = fallbackSeriesColor
		}
		line.AddSeries(series.Driver, points,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
		)
	}

	ws.renderChart(w, line)
}

// handleStintChart renders tyre strategy as stacked horizontal bars:
// one bar segment per stint, coloured by compound.
func (ws *WebServer) handleStintChart(w http.ResponseWriter, r *http.Request) {
	laps, sessionID, ok := ws.sessionLaps(w, r)
	if !ok {
		return
	}

	data := chartdata.PrepareStintChartData(laps, nil)
	if len(data.Stints) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no stints for session")
		return
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Tyre Strategy", Theme: "dark", Width: "1200px", Height: "600px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Tyre Strategy", Subtitle: fmt.Sprintf("session=%s", sessionID)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	// One stacked series per stint ordinal; each driver's nth stint
	// contributes its length to the nth segment of that driver's bar.
	maxStints := 0
	byDriver := make(map[string][]session.Stint)
	for _, st := range data.Stints {
		byDriver[st.Driver] = append(byDriver[st.Driver], st)
		if len(byDriver[st.Driver]) > maxStints {
			maxStints = len(byDriver[st.Driver])
		}
	}

	bar.SetXAxis(data.Drivers)
	for ordinal := 0; ordinal < maxStints; ordinal++ {
		segment := make([]opts.BarData, len(data.Drivers))
		for i, driver := range data.Drivers {
			stints := byDriver[driver]
			if ordinal >= len(stints) {
				segment[i] = opts.BarData{Value: 0}
				continue
			}
			st := stints[ordinal]
			segment[i] = opts.BarData{
				Value:     st.EndLap - st.StartLap + 1,
				Name:      string(st.Compound),
				ItemStyle: &opts.ItemStyle{Color: session.CompoundColor(st.Compound)},
			}
		}
		bar.AddSeries(fmt.Sprintf("stint %d", ordinal+1), segment,
			charts.WithBarChartOpts(opts.BarChart{Stack: "stints"}),
		)
	}

	ws.renderChart(w, bar)
}

// handleTraceChart renders one telemetry channel over distance for one lap.
func (ws *WebServer) handleTraceChart(w http.ResponseWriter, r *http.Request) {
	telemetry, label, ok := ws.lapTelemetry(w, r)
	if !ok {
		return
	}

	channel := chartdata.TraceChannel(r.URL.Query().Get("channel"))
	if channel == "" {
		channel = chartdata.ChannelSpeed
	}
	trace := chartdata.PrepareTrace(telemetry, channel)
	if trace == nil {
		ws.writeJSONError(w, http.StatusBadRequest, "invalid 'channel' parameter")
		return
	}

	yName := string(channel)
	if channel == chartdata.ChannelSpeed {
		yName = fmt.Sprintf("speed (%s)", ws.units)
		for i := range trace {
			trace[i].Value = units.ConvertSpeed(trace[i].Value, ws.units)
		}
	}

	points := make([]opts.LineData, len(trace))
	for i, p := range trace {
		points[i] = opts.LineData{Value: []interface{}{p.Distance, p.Value}}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Telemetry Trace", Theme: "dark", Width: "1200px", Height: "600px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Telemetry Trace", Subtitle: label}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Distance (m)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, Scale: opts.Bool(true)}),
	)
	line.SetXAxis([]string{})
	line.AddSeries(string(channel), points)

	ws.renderChart(w, line)
}

// handleDeltaChart overlays two drivers' speed traces and their delta:
// ?session=&driver=&lap=&driver2=&lap2=.
func (ws *WebServer) handleDeltaChart(w http.ResponseWriter, r *http.Request) {
	t1, label, ok := ws.lapTelemetry(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	driver2 := q.Get("driver2")
	if driver2 == "" {
		ws.writeJSONError(w, http.StatusBadRequest, "missing 'driver2' parameter")
		return
	}
	lap2, err := strconv.Atoi(q.Get("lap2"))
	if err != nil || lap2 < 1 {
		ws.writeJSONError(w, http.StatusBadRequest, "invalid 'lap2' parameter")
		return
	}
	t2, err := ws.db.TelemetryForLap(q.Get("session"), driver2, lap2)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load telemetry: %v", err))
		return
	}

	delta := analysis.TelemetryDelta(t1, t2)
	if len(delta) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no overlapping telemetry")
		return
	}

	speed1 := make([]opts.LineData, len(delta))
	speed2 := make([]opts.LineData, len(delta))
	deltaPts := make([]opts.LineData, len(delta))
	for i, d := range delta {
		speed1[i] = opts.LineData{Value: []interface{}{d.Distance, units.ConvertSpeed(d.Speed1, ws.units)}}
		speed2[i] = opts.LineData{Value: []interface{}{d.Distance, units.ConvertSpeed(d.Speed2, ws.units)}}
		deltaPts[i] = opts.LineData{Value: []interface{}{d.Distance, units.ConvertSpeed(d.SpeedDelta, ws.units)}}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Speed Delta", Theme: "dark", Width: "1200px", Height: "700px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Speed Comparison", Subtitle: fmt.Sprintf("%s vs driver=%s lap=%d", label, driver2, lap2)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Distance (m)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: fmt.Sprintf("speed (%s)", ws.units), Scale: opts.Bool(true)}),
	)
	line.SetXAxis([]string{})
	line.AddSeries(q.Get("driver"), speed1)
	line.AddSeries(driver2, speed2)
	line.AddSeries("delta", deltaPts)

	ws.renderChart(w, line)
}

// handleTrackMapChart renders the speed-on-track scatter for one lap.
func (ws *WebServer) handleTrackMapChart(w http.ResponseWriter, r *http.Request) {
	telemetry, label, ok := ws.lapTelemetry(w, r)
	if !ok {
		return
	}

	points := chartdata.PrepareTrackMap(telemetry)
	if len(points) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no positional telemetry for lap")
		return
	}

	data := make([]opts.ScatterData, 0, len(points))
	maxSpeed := 0.0
	for _, p := range points {
		speed := units.ConvertSpeed(p.Speed, ws.units)
		if speed > maxSpeed {
			maxSpeed = speed
		}
		data = append(data, opts.ScatterData{Value: []interface{}{p.X, p.Y, speed}})
	}
	if maxSpeed == 0 {
		maxSpeed = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Track Map", Theme: "dark", Width: "900px", Height: "900px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Speed on Track", Subtitle: label}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxSpeed),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#3e4989", "#26828e", "#35b779", "#b5de2b", "#fde725"}},
		}),
	)
	scatter.AddSeries("speed", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	ws.renderChart(w, scatter)
}

// lapTelemetry resolves session/driver/lap query params to a trace.
func (ws *WebServer) lapTelemetry(w http.ResponseWriter, r *http.Request) ([]session.TelemetrySample, string, bool) {
	q := r.URL.Query()
	sessionID := q.Get("session")
	driver := q.Get("driver")
	if sessionID == "" || driver == "" {
		ws.writeJSONError(w, http.StatusBadRequest, "missing 'session' or 'driver' parameter")
		return nil, "", false
	}
	lapNumber, err := strconv.Atoi(q.Get("lap"))
	if err != nil || lapNumber < 1 {
		ws.writeJSONError(w, http.StatusBadRequest, "invalid 'lap' parameter")
		return nil, "", false
	}
	telemetry, err := ws.db.TelemetryForLap(sessionID, driver, lapNumber)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load telemetry: %v", err))
		return nil, "", false
	}
	if len(telemetry) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no telemetry for lap")
		return nil, "", false
	}
	label := fmt.Sprintf("driver=%s lap=%d", driver, lapNumber)
	return telemetry, label, true
}

// lapAxis builds the category axis of distinct lap numbers in order.
func lapAxis(laps []session.Lap) []string {
	seen := make(map[int]bool)
	var axis []string
	maxLap := 0
	for _, l := range laps {
		if l.LapNumber > maxLap {
			maxLap = l.LapNumber
		}
		seen[l.LapNumber] = true
	}
	for n := 1; n <= maxLap; n++ {
		if seen[n] {
			axis = append(axis, strconv.Itoa(n))
		}
	}
	return axis
}
