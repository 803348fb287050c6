// Package domain contains the core business entities for the health
// consultation analysis service: conversations, detected symptoms, disease
// probability estimates and generated health reports.
package domain

import (
	"errors"
	"strings"
)

// SeverityLevel is the triage classification attached to each generated
// health report.
type SeverityLevel string

const (
	// SeverityRed marks urgent situations needing immediate medical care.
	SeverityRed SeverityLevel = "red"
	// SeverityOrange marks conditions needing prompt but non-emergency care.
	SeverityOrange SeverityLevel = "orange"
	// SeverityGreen marks routine conditions with no immediate concern.
	SeverityGreen SeverityLevel = "green"
)

// Sentinel errors shared across repositories and services.
var (
	ErrNotFound          = errors.New("not found")
	ErrDelegatedAnalysis = errors.New("delegated analysis failed")
	ErrDelegatedReport   = errors.New("delegated report generation failed")
	ErrInvalidSeverity   = errors.New("invalid severity level")
)

// IsValid reports whether the severity level is one of the three triage
// levels. Reports must never persist anything else.
func (s SeverityLevel) IsValid() bool {
	switch s {
	case SeverityRed, SeverityOrange, SeverityGreen:
		return true
	default:
		return false
	}
}

// String returns the wire representation of the severity level.
func (s SeverityLevel) String() string {
	return string(s)
}

// ParseSeverityLevel normalizes a severity string to a SeverityLevel.
func ParseSeverityLevel(raw string) (SeverityLevel, error) {
	level := SeverityLevel(strings.ToLower(strings.TrimSpace(raw)))
	if !level.IsValid() {
		return "", ErrInvalidSeverity
	}
	return level, nil
}

// DiseaseProbability is a ranked candidate disease with its estimated
// probability in percent, rounded to one decimal place.
type DiseaseProbability struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
}

// AnalysisResult is the strategy-agnostic outcome of analyzing a
// conversation. Both the delegated and the local rule-based path produce
// this same shape so report synthesis does not care which one ran.
type AnalysisResult struct {
	Symptoms      []string             `json:"symptoms"`
	Diseases      []DiseaseProbability `json:"diseases_with_probabilities"`
	Suggestions   []string             `json:"suggestions"`
	PainIntensity *float64             `json:"pain_intensity,omitempty"`
}

// HasFindings reports whether the analysis detected any symptom or disease.
func (r *AnalysisResult) HasFindings() bool {
	return len(r.Symptoms) > 0 || len(r.Diseases) > 0
}
