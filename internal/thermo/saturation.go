package thermo

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// SaturationTable interpolates a fluid's saturation temperature against
// pressure from tabulated data. Queries outside the tabulated range fail
// rather than extrapolate.
type SaturationTable struct {
	curve    interp.PiecewiseLinear
	min, max float64
}

// NewSaturationTable builds a table from pressures in Pa (strictly
// increasing) and the matching saturation temperatures in K.
func NewSaturationTable(pressures, temperatures []float64) (*SaturationTable, error) {
	if len(pressures) < 2 {
		return nil, fmt.Errorf("saturation table: need at least two points, got %d", len(pressures))
	}
	var curve interp.PiecewiseLinear
	if err := curve.Fit(pressures, temperatures); err != nil {
		return nil, fmt.Errorf("saturation table: %w", err)
	}
	return &SaturationTable{
		curve: curve,
		min:   pressures[0],
		max:   pressures[len(pressures)-1],
	}, nil
}

// WaterSaturation returns a saturation table for water between 5 kPa and
// 1 MPa, from standard steam table data.
func WaterSaturation() *SaturationTable {
	t, err := NewSaturationTable(
		[]float64{5e3, 10e3, 20e3, 50e3, 101.325e3, 200e3, 500e3, 1000e3},
		[]float64{306.02, 318.96, 333.21, 354.47, 373.15, 393.36, 424.98, 453.03},
	)
	if err != nil {
		// The built-in table is valid by construction.
		panic(err)
	}
	return t
}

// Call returns the saturation temperature at the given pressure in Pa.
func (t *SaturationTable) Call(pressure float64) (float64, error) {
	if pressure < t.min || pressure > t.max {
		return 0, fmt.Errorf("saturation table: pressure %g Pa outside tabulated range [%g, %g]", pressure, t.min, t.max)
	}
	return t.curve.Predict(pressure), nil
}
