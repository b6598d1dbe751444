package types

import (
	"encoding/json"
	"time"
)

// RunResult summarises one completed integration run.
type RunResult struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	Steps     int            `json:"steps"`
	TimeDays  float64        `json:"time_days"`
	Energy    EnergyReport   `json:"energy"`
	Elements  []ElementDrift `json:"elements,omitempty"`
	Metadata  RunMetadata    `json:"metadata"`
	Timestamp time.Time      `json:"timestamp"`
	Duration  time.Duration  `json:"duration"`
	Error     string         `json:"error,omitempty"`
}

// RunMetadata records how the run was configured.
type RunMetadata struct {
	Scenario       string  `json:"scenario"`
	OutputFile     string  `json:"output_file,omitempty"`
	Scheme         string  `json:"scheme"`
	InnerScheme    string  `json:"inner_scheme"`
	Nmaxshells     int     `json:"nmaxshells"`
	NmaxshellsUsed int     `json:"nmaxshells_used"`
	Kappa          float64 `json:"kappa"`
	Dt             float64 `json:"dt"`
	Version        string  `json:"version"`
}

// EnergyReport holds energy conservation statistics over a run.
type EnergyReport struct {
	Initial   float64 `json:"initial"`
	Final     float64 `json:"final"`
	MaxError  float64 `json:"max_rel_error"`
	MeanError float64 `json:"mean_rel_error"`
	StdError  float64 `json:"std_rel_error"`
}

// ElementDrift records how one body's orbital elements changed.
type ElementDrift struct {
	ID                string  `json:"id"`
	SemiMajorAxisFrom float64 `json:"a_from"`
	SemiMajorAxisTo   float64 `json:"a_to"`
	EccentricityFrom  float64 `json:"e_from"`
	EccentricityTo    float64 `json:"e_to"`
	InclinationChange float64 `json:"inclination_change_deg"`
	PerihelionShift   float64 `json:"perihelion_shift_au"`
}

// MarshalPretty returns indented JSON for terminal output.
func (r RunResult) MarshalPretty() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
