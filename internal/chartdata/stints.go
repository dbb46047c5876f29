package chartdata

import (
	"github.com/pitwall-data/laptime.report/internal/session"
)

// PrepareStints segments one driver's laps into stints by detecting compound
// change boundaries: a new stint starts whenever the compound differs from
// the immediately preceding lap, including transitions into or out of an
// absent compound (normalised to UNKNOWN). Laps must already be in lap order.
// One span per stint is emitted as (driver, compound, start lap, end lap).
func PrepareStints(driverLaps []session.Lap) []session.Stint {
	var out []session.Stint
	for _, l := range driverLaps {
		compound := session.NormaliseCompound(string(l.Compound))
		if len(out) == 0 || out[len(out)-1].Compound != compound {
			out = append(out, session.Stint{
				Driver:   l.Driver,
				Compound: compound,
				StartLap: l.LapNumber,
				EndLap:   l.LapNumber,
			})
			continue
		}
		out[len(out)-1].EndLap = l.LapNumber
	}
	return out
}

// StintChartData holds stint spans for a set of drivers, one row index per
// driver so a renderer can stack spans as horizontal bars.
type StintChartData struct {
	Drivers []string        `json:"drivers"`
	Stints  []session.Stint `json:"stints"`
}

// PrepareStintChartData segments every requested driver's laps and collects
// the spans. Drivers with no laps contribute nothing.
func PrepareStintChartData(laps []session.Lap, drivers []string) *StintChartData {
	out := &StintChartData{Stints: []session.Stint{}}
	for _, driver := range drivers {
		stints := PrepareStints(session.PickDriver(laps, driver))
		if len(stints) == 0 {
			continue
		}
		out.Drivers = append(out.Drivers, driver)
		out.Stints = append(out.Stints, stints...)
	}
	return out
}
