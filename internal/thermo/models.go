// Package thermo provides the engineering models served by the solve
// endpoints: a calorically perfect gas, a tabulated saturation curve, a
// stirred cooling tank, and a counterflow heat exchanger. Each model
// implements the solver's Model contract and stays pure and deterministic.
package thermo

import (
	"fmt"
	"math"
)

// GasConditions is the input state for the ideal gas model.
type GasConditions struct {
	Pressure    float64 // Pa
	Temperature float64 // K
}

// GasState is the resulting thermodynamic state.
type GasState struct {
	Density    float64 // kg/m^3
	Enthalpy   float64 // J/kg, referenced to 0 K
	SoundSpeed float64 // m/s
}

// IdealGas models a calorically perfect gas with constant specific heats.
type IdealGas struct {
	// R is the specific gas constant in J/(kg K).
	R float64
	// Cp is the constant-pressure specific heat in J/(kg K).
	Cp float64
}

// Air returns an ideal gas parameterized for dry air.
func Air() IdealGas {
	return IdealGas{R: 287.05, Cp: 1005.0}
}

// Call computes the gas state at the given conditions.
func (g IdealGas) Call(in GasConditions) (GasState, error) {
	if in.Pressure <= 0 {
		return GasState{}, fmt.Errorf("ideal gas: pressure must be positive, got %g", in.Pressure)
	}
	if in.Temperature <= 0 {
		return GasState{}, fmt.Errorf("ideal gas: temperature must be positive, got %g", in.Temperature)
	}
	gamma := g.Cp / (g.Cp - g.R)
	return GasState{
		Density:    in.Pressure / (g.R * in.Temperature),
		Enthalpy:   g.Cp * in.Temperature,
		SoundSpeed: math.Sqrt(gamma * g.R * in.Temperature),
	}, nil
}

// TankState is the cooling tank output at a given elapsed time.
type TankState struct {
	Elapsed     float64 // s
	Temperature float64 // K
}

// CoolingTank models a stirred liquid tank losing heat to ambient through its
// wall, T(t) = Tamb + (T0 - Tamb)·exp(-UA·t/(m·cp)).
type CoolingTank struct {
	Mass        float64 // kg
	Cp          float64 // J/(kg K)
	UA          float64 // W/K
	InitialTemp float64 // K
	AmbientTemp float64 // K
}

// Call returns the tank temperature after the given elapsed time in seconds.
func (t CoolingTank) Call(elapsed float64) (TankState, error) {
	if elapsed < 0 {
		return TankState{}, fmt.Errorf("cooling tank: elapsed time must be non-negative, got %g", elapsed)
	}
	if t.Mass <= 0 || t.Cp <= 0 || t.UA <= 0 {
		return TankState{}, fmt.Errorf("cooling tank: mass, cp and UA must be positive")
	}
	tau := t.Mass * t.Cp / t.UA
	temp := t.AmbientTemp + (t.InitialTemp-t.AmbientTemp)*math.Exp(-elapsed/tau)
	return TankState{Elapsed: elapsed, Temperature: temp}, nil
}

// HXPerformance is the counterflow heat exchanger output for a candidate
// transfer area.
type HXPerformance struct {
	Area          float64 // m^2
	NTU           float64
	Effectiveness float64
	Duty          float64 // W
}

// CounterflowHX rates a counterflow heat exchanger with the
// effectiveness-NTU method.
type CounterflowHX struct {
	U       float64 // W/(m^2 K) overall heat transfer coefficient
	CHot    float64 // W/K hot stream capacity rate
	CCold   float64 // W/K cold stream capacity rate
	THotIn  float64 // K
	TColdIn float64 // K
}

// Call rates the exchanger at the given transfer area.
func (hx CounterflowHX) Call(area float64) (HXPerformance, error) {
	if area < 0 {
		return HXPerformance{}, fmt.Errorf("heat exchanger: area must be non-negative, got %g", area)
	}
	if hx.U <= 0 || hx.CHot <= 0 || hx.CCold <= 0 {
		return HXPerformance{}, fmt.Errorf("heat exchanger: U and capacity rates must be positive")
	}
	if hx.THotIn <= hx.TColdIn {
		return HXPerformance{}, fmt.Errorf("heat exchanger: hot inlet must be warmer than cold inlet")
	}

	cmin := math.Min(hx.CHot, hx.CCold)
	cmax := math.Max(hx.CHot, hx.CCold)
	cr := cmin / cmax
	ntu := hx.U * area / cmin

	var eff float64
	if cr == 1 {
		eff = ntu / (1 + ntu)
	} else {
		e := math.Exp(-ntu * (1 - cr))
		eff = (1 - e) / (1 - cr*e)
	}

	return HXPerformance{
		Area:          area,
		NTU:           ntu,
		Effectiveness: eff,
		Duty:          eff * cmin * (hx.THotIn - hx.TColdIn),
	}, nil
}
