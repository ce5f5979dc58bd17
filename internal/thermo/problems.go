package thermo

import "fmt"

// TankHoldTime is the equation "the tank reaches Target after x seconds"; its
// root is the required hold time. The search coordinate is the elapsed time
// itself.
type TankHoldTime struct {
	Target float64 // K
}

// Input lifts the search coordinate into the tank model's input.
func (p TankHoldTime) Input(x float64) (float64, error) {
	return x, nil
}

// Residual is the remaining temperature offset from the target.
func (p TankHoldTime) Residual(_ float64, st TankState) (float64, error) {
	return st.Temperature - p.Target, nil
}

// BoilingPressure is the equation "saturation temperature at pressure x
// equals Target"; its root is the boiling pressure.
type BoilingPressure struct {
	Target float64 // K
}

// Input lifts the search coordinate into the saturation table's input.
func (p BoilingPressure) Input(x float64) (float64, error) {
	if x <= 0 {
		return 0, fmt.Errorf("boiling pressure: pressure must be positive, got %g", x)
	}
	return x, nil
}

// Residual is the saturation temperature offset from the target.
func (p BoilingPressure) Residual(_ float64, tsat float64) (float64, error) {
	return tsat - p.Target, nil
}

// GasDensityMatch is the equation "air density at pressure x and the fixed
// Temperature equals Target"; its root is the matching pressure.
type GasDensityMatch struct {
	Temperature float64 // K
	Target      float64 // kg/m^3
}

// Input lifts the search coordinate into the gas model's input.
func (p GasDensityMatch) Input(x float64) (GasConditions, error) {
	return GasConditions{Pressure: x, Temperature: p.Temperature}, nil
}

// Residual is the density offset from the target.
func (p GasDensityMatch) Residual(_ GasConditions, st GasState) (float64, error) {
	return st.Density - p.Target, nil
}

// HXNetBenefit scores a candidate exchanger area by the value of the
// recovered duty minus the cost of the area. Maximizing it over an area
// bracket yields the economic sizing optimum.
type HXNetBenefit struct {
	DutyValue float64 // value per W of recovered duty
	AreaCost  float64 // cost per m^2 of transfer area
}

// Input lifts the search coordinate into the exchanger model's input.
func (p HXNetBenefit) Input(x float64) (float64, error) {
	if x < 0 {
		return 0, fmt.Errorf("net benefit: area must be non-negative, got %g", x)
	}
	return x, nil
}

// Objective is the net benefit of the candidate area.
func (p HXNetBenefit) Objective(area float64, perf HXPerformance) (float64, error) {
	return p.DutyValue*perf.Duty - p.AreaCost*area, nil
}
