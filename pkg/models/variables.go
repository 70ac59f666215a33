package models

import (
	"fmt"
	"strings"
)

// Variable identifies one tracked measurement of an air quality reading.
// The value is the column name used in persisted and exported tables.
type Variable string

// Tracked variables
const (
	VariableCO2         Variable = "CO2 (ppm)"
	VariableTemperature Variable = "Temperature (°C)"
	VariableHumidity    Variable = "Humidity (%)"
	VariablePressure    Variable = "Pressure (hPa)"
)

// VariableInfo holds metadata about a tracked variable
type VariableInfo struct {
	Name  Variable
	Label string
	Alias string
	Unit  string
}

// VariableRegistry maps tracked variables to their information
var VariableRegistry = map[Variable]VariableInfo{
	VariableCO2: {
		Name:  VariableCO2,
		Label: "CO₂ (ppm)",
		Alias: "co2",
		Unit:  "ppm",
	},
	VariableTemperature: {
		Name:  VariableTemperature,
		Label: "Temperature (°C)",
		Alias: "temperature",
		Unit:  "°C",
	},
	VariableHumidity: {
		Name:  VariableHumidity,
		Label: "Humidity (%)",
		Alias: "humidity",
		Unit:  "%",
	},
	VariablePressure: {
		Name:  VariablePressure,
		Label: "Pressure (hPa)",
		Alias: "pressure",
		Unit:  "hPa",
	},
}

// AllVariables returns the tracked variables in canonical column order
func AllVariables() []Variable {
	return []Variable{VariableCO2, VariableTemperature, VariableHumidity, VariablePressure}
}

// IsKnown reports whether v is one of the tracked variables
func (v Variable) IsKnown() bool {
	_, ok := VariableRegistry[v]
	return ok
}

// Alias returns the short lowercase name of the variable
func (v Variable) Alias() string {
	if info, ok := VariableRegistry[v]; ok {
		return info.Alias
	}
	return strings.ToLower(string(v))
}

// ParseVariable resolves a column name or short alias to a Variable
func ParseVariable(s string) (Variable, error) {
	s = strings.TrimSpace(s)
	for _, v := range AllVariables() {
		info := VariableRegistry[v]
		if s == string(v) || strings.EqualFold(s, info.Alias) {
			return v, nil
		}
	}

	aliases := make([]string, 0, len(VariableRegistry))
	for _, v := range AllVariables() {
		aliases = append(aliases, v.Alias())
	}
	return "", fmt.Errorf("unknown variable: %q (valid: %s)", s, strings.Join(aliases, ", "))
}

// ParseVariables parses a comma-separated list of variables.
// An empty string yields all tracked variables.
func ParseVariables(s string) ([]Variable, error) {
	if strings.TrimSpace(s) == "" {
		return AllVariables(), nil
	}

	var vars []Variable
	seen := make(map[Variable]bool)
	for _, part := range strings.Split(s, ",") {
		v, err := ParseVariable(part)
		if err != nil {
			return nil, err
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		vars = append(vars, v)
	}
	return vars, nil
}
