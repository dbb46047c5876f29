// Package units provides shared constants and validation for speed units
package units

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "mps, mph, kmph, kph"
}

// ConvertSpeed converts a speed from km/h to the target units.
// The timing feed delivers telemetry speeds in km/h, so that is what the
// store holds.
func ConvertSpeed(speedKPH float64, targetUnits string) float64 {
	switch targetUnits {
	case KMPH, KPH:
		return speedKPH
	case MPH:
		return speedKPH * 0.621371
	case MPS:
		return speedKPH / 3.6
	default:
		return speedKPH
	}
}
