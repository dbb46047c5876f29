// Command plot-session renders static PNG charts for a stored session:
// lap times per driver and lap-time degradation over tyre age.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/pitwall-data/laptime.report/internal/analysis"
	"github.com/pitwall-data/laptime.report/internal/chartdata"
	"github.com/pitwall-data/laptime.report/internal/db"
	"github.com/pitwall-data/laptime.report/internal/session"
)

func main() {
	dbPath := flag.String("db", "session_data.db", "path to the session store")
	sessionID := flag.String("session", "", "session id to plot")
	drivers := flag.String("drivers", "", "comma-separated driver codes (default: all)")
	outputDir := flag.String("out", ".", "output directory for PNG files")
	flag.Parse()

	if *sessionID == "" {
		flag.Usage()
		os.Exit(2)
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	defer store.Close()

	laps, err := store.LapsBySession(*sessionID)
	if err != nil {
		log.Fatalf("failed to load laps: %v", err)
	}
	if len(laps) == 0 {
		log.Fatalf("no laps stored for session %s", *sessionID)
	}

	var driverList []string
	if *drivers != "" {
		driverList = strings.Split(*drivers, ",")
	}

	if err := plotLapTimes(laps, driverList, filepath.Join(*outputDir, "laptimes.png")); err != nil {
		log.Fatalf("lap time plot: %v", err)
	}
	if err := plotDegradation(laps, driverList, filepath.Join(*outputDir, "degradation.png")); err != nil {
		log.Fatalf("degradation plot: %v", err)
	}
	if err := plotGaps(laps, filepath.Join(*outputDir, "gaps.png")); err != nil {
		log.Printf("gap plot skipped: %v", err)
	}

	log.Printf("plots written to %s", *outputDir)
}

// plotLapTimes draws one line per driver, lap time over lap number.
func plotLapTimes(laps []session.Lap, drivers []string, outFile string) error {
	data := chartdata.PrepareLapTimeChartData(laps, drivers)
	if len(data.Series) == 0 {
		return fmt.Errorf("no valid laps to plot")
	}

	p := plot.New()
	p.Title.Text = "Lap Times"
	p.X.Label.Text = "Lap"
	p.Y.Label.Text = "Lap Time (s)"

	for i, series := range data.Series {
		pts := make(plotter.XYs, 0, len(series.Points))
		for _, pt := range series.Points {
			pts = append(pts, plotter.XY{X: float64(pt.LapNumber), Y: pt.Seconds})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = seriesColor(series.Color, i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(series.Driver, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p.Save(14*vg.Inch, 6*vg.Inch, outFile)
}

// plotDegradation draws average lap time over tyre age per driver.
func plotDegradation(laps []session.Lap, drivers []string, outFile string) error {
	if len(drivers) == 0 {
		drivers = session.Drivers(laps)
	}

	p := plot.New()
	p.Title.Text = "Tyre Degradation"
	p.X.Label.Text = "Tyre Life (laps)"
	p.Y.Label.Text = "Average Lap Time (s)"

	plotted := 0
	for i, driver := range drivers {
		rows := analysis.TireDegradation(session.PickDriver(laps, driver))
		if len(rows) == 0 {
			continue
		}
		pts := make(plotter.XYs, 0, len(rows))
		for _, row := range rows {
			pts = append(pts, plotter.XY{X: float64(row.TyreLife), Y: row.AvgLapTime})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		teamColor := ""
		if picked := session.PickDriver(laps, driver); len(picked) > 0 {
			if c, ok := session.TeamColor(picked[0].Team); ok {
				teamColor = c
			}
		}
		line.Color = seriesColor(teamColor, i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(driver, line)
		plotted++
	}
	if plotted == 0 {
		return fmt.Errorf("no degradation data to plot")
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p.Save(14*vg.Inch, 6*vg.Inch, outFile)
}

// plotGaps draws each driver's per-lap gap to the race leader.
// Errors out for sessions without position data (practice, qualifying).
func plotGaps(laps []session.Lap, outFile string) error {
	gaps := analysis.GapToLeader(laps)
	if len(gaps) == 0 {
		return fmt.Errorf("no position-1 laps; gap chart needs race data")
	}

	byDriver := make(map[string]plotter.XYs)
	var order []string
	for _, g := range gaps {
		if math.IsNaN(g.GapToLeader) {
			continue
		}
		if _, ok := byDriver[g.Driver]; !ok {
			order = append(order, g.Driver)
		}
		byDriver[g.Driver] = append(byDriver[g.Driver], plotter.XY{X: float64(g.LapNumber), Y: g.GapToLeader})
	}

	p := plot.New()
	p.Title.Text = "Gap to Leader"
	p.X.Label.Text = "Lap"
	p.Y.Label.Text = "Gap (s)"

	for i, driver := range order {
		line, err := plotter.NewLine(byDriver[driver])
		if err != nil {
			return err
		}
		teamColor := ""
		if picked := session.PickDriver(laps, driver); len(picked) > 0 {
			if c, ok := session.TeamColor(picked[0].Team); ok {
				teamColor = c
			}
		}
		line.Color = seriesColor(teamColor, i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(driver, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p.Save(14*vg.Inch, 6*vg.Inch, outFile)
}

// fallbackPalette covers drivers whose team has no colour entry.
var fallbackPalette = []color.RGBA{
	{R: 0xe6, G: 0x19, B: 0x4b, A: 0xff},
	{R: 0x3c, G: 0xb4, B: 0x4b, A: 0xff},
	{R: 0x43, G: 0x63, B: 0xd8, A: 0xff},
	{R: 0xf5, G: 0x82, B: 0x31, A: 0xff},
	{R: 0x91, G: 0x1e, B: 0xb4, A: 0xff},
	{R: 0x46, G: 0xf0, B: 0xf0, A: 0xff},
}

func seriesColor(hex string, i int) color.Color {
	if c, ok := parseHexColor(hex); ok {
		return c
	}
	return fallbackPalette[i%len(fallbackPalette)]
}

func parseHexColor(s string) (color.RGBA, bool) {
	var r, g, b uint8
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, false
	}
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, true
}
