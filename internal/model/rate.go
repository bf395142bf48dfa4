// Package model holds the types shared by the readers, the emitter and the CLI.
package model

import "time"

// RateRecord is one SCA wage classification for the target fiscal year.
type RateRecord struct {
	OccupationCode string  `csv:"occupation_code" json:"occupation_code" yaml:"occupation_code"`
	Title          string  `csv:"title" json:"title" yaml:"title"`
	Rate           float64 `csv:"rate" json:"rate" yaml:"rate"`
	// Description is copied from the prior-year export and is stored with single
	// quotes already doubled. It is never escaped again.
	Description string `csv:"-" json:"description" yaml:"description"`
}

// PriorDescription is a row of the prior-year export.
type PriorDescription struct {
	OccupationCode string `csv:"occupation_code"`
	Description    string `csv:"description"`
}

// StageName identifies a pipeline stage.
type StageName string

const (
	StageRead   StageName = "read"
	StageDedupe StageName = "dedupe"
	StageEnrich StageName = "enrich"
	StageWrite  StageName = "write"
)

// StageStatus is the outcome of a stage.
type StageStatus string

const (
	StageStatusComplete StageStatus = "complete"
	StageStatusFailed   StageStatus = "failed"
	StageStatusSkipped  StageStatus = "skipped"
)

// StageResult holds the outcome of one pipeline stage.
type StageResult struct {
	Name     StageName     `json:"name"`
	Status   StageStatus   `json:"status"`
	Duration time.Duration `json:"duration"`
	Records  int           `json:"records"`
	Error    string        `json:"error,omitempty"`
}

// RunReport summarizes a generate run.
type RunReport struct {
	FiscalYear int           `json:"fiscal_year"`
	OutputPath string        `json:"output_path"`
	Records    int           `json:"records"`
	Dropped    int           `json:"dropped"`   // removed by the duplicate policy
	Matched    int           `json:"matched"`   // enrichment rows applied to a record
	Unmatched  int           `json:"unmatched"` // enrichment rows with no record
	Stages     []StageResult `json:"stages"`
	Total      time.Duration `json:"total"`
}

// Stage returns the result for name, or nil if that stage did not run.
func (r *RunReport) Stage(name StageName) *StageResult {
	for i := range r.Stages {
		if r.Stages[i].Name == name {
			return &r.Stages[i]
		}
	}
	return nil
}
