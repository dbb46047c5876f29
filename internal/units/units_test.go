package units

import (
	"math"
	"testing"
)

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		name     string
		speedKPH float64
		units    string
		expected float64
	}{
		{"100 km/h to mph", 100.0, MPH, 62.1371},
		{"100 km/h to kmph", 100.0, KMPH, 100.0},
		{"100 km/h to kph", 100.0, KPH, 100.0},
		{"36 km/h to mps", 36.0, MPS, 10.0},
		{"unknown units default to kph", 100.0, "unknown", 100.0},
		{"0 km/h to mph", 0.0, MPH, 0.0},
		{"top speed 340 km/h to mph", 340.0, MPH, 211.266}, // ~211 mph
		{"pit lane 80 km/h to mps", 80.0, MPS, 22.2222},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertSpeed(tt.speedKPH, tt.units)
			if math.Abs(result-tt.expected) > 0.01 { // Allow small floating point differences
				t.Errorf("ConvertSpeed(%f, %s) = %f, want %f", tt.speedKPH, tt.units, result, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid mps", MPS, true},
		{"valid mph", MPH, true},
		{"valid kmph", KMPH, true},
		{"valid kph", KPH, true},
		{"invalid unit", "invalid", false},
		{"empty string", "", false},
		{"case sensitive", "MPH", false},
		{"case sensitive", "Mph", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValid(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestGetValidUnitsString(t *testing.T) {
	expected := "mps, mph, kmph, kph"
	result := GetValidUnitsString()
	if result != expected {
		t.Errorf("GetValidUnitsString() = %s, want %s", result, expected)
	}
}
