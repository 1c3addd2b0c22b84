// Package app orchestrates study runs: it loads the cohort through the
// source port, drives the stage pipeline, and persists every artifact to
// the ledger. Stages stay pure; all timing, logging, and storage live here.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"her2lab/domain/cohort"
	"her2lab/domain/core"
	"her2lab/domain/study"
	"her2lab/ports"
)

// StudyService executes the curated study end to end
type StudyService struct {
	source ports.CohortSourcePort
	ledger ports.LedgerWriterPort
	stages []study.Stage
}

// NewStudyService creates a study service over a source, a ledger, and the
// stages to run, in order
func NewStudyService(source ports.CohortSourcePort, ledger ports.LedgerWriterPort, stages []study.Stage) *StudyService {
	return &StudyService{
		source: source,
		ledger: ledger,
		stages: stages,
	}
}

// StudyRunResult pairs the run record with the data it was computed over.
// The charts draw from the cohort and screen directly, so both ride along.
type StudyRunResult struct {
	Result *study.StudyResult
	Cohort *cohort.Cohort
	Screen *cohort.DrugScreen
}

// RunStudy loads the data, runs every configured stage, and stores the run
// manifest last so its presence marks a completed run. A failing stage is
// recorded and the pipeline moves on; only load and manifest errors abort.
func (s *StudyService) RunStudy(ctx context.Context, params study.Params) (*StudyRunResult, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid study parameters: %w", err)
	}

	startTime := time.Now()
	runID := core.NewRunID()
	log.Printf("[StudyService] Starting run %s with %d stages", runID, len(s.stages))

	c, err := s.source.LoadCohort(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cohort: %w", err)
	}
	screen, err := s.source.LoadDrugScreen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load drug screen: %w", err)
	}
	missing, err := s.source.Missingness(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute missingness: %w", err)
	}

	names := make([]study.StageName, len(s.stages))
	for i, stage := range s.stages {
		names[i] = stage.Name()
	}
	cohortHash := c.Fingerprint()
	fingerprint := core.ComputeRunFingerprint(cohortHash, params.Seed, study.StageNames(names))

	result := &study.StudyResult{
		RunID:       runID,
		Fingerprint: fingerprint,
		CohortHash:  cohortHash,
		Params:      params,
		StartedAt:   core.Now(),
	}
	input := &study.Input{
		RunID:   runID,
		Cohort:  c,
		Screen:  screen,
		Missing: missing,
		Params:  params,
	}

	for _, stage := range s.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, out := s.runStage(ctx, stage, input)
		result.AddStage(res, out)
	}
	result.CompletedAt = core.Now()

	manifest := study.Manifest{
		RunID:        runID,
		Fingerprint:  fingerprint,
		CohortHash:   cohortHash,
		SignalColumn: c.SignalColumn,
		Rows:         c.Len(),
		Params:       params,
		Stages:       names,
		Summary:      result.Summary(),
		StartedAt:    result.StartedAt,
		CompletedAt:  result.CompletedAt,
	}
	if err := s.ledger.StoreArtifact(ctx, runID, manifest.ToArtifact()); err != nil {
		return nil, fmt.Errorf("failed to store run manifest: %w", err)
	}

	log.Printf("[StudyService] %s (wall %.2fms)",
		result.Summary(), float64(time.Since(startTime).Nanoseconds())/1e6)

	return &StudyRunResult{Result: result, Cohort: c, Screen: screen}, nil
}

// runStage executes one stage, persists its artifacts, and records the
// outcome. Stage and storage errors both mark the stage failed without
// stopping the run.
func (s *StudyService) runStage(ctx context.Context, stage study.Stage, input *study.Input) (study.StageResult, *study.Output) {
	stageStart := time.Now()
	res := study.StageResult{Name: stage.Name()}

	out, err := stage.Run(ctx, input)
	if err != nil {
		res.Error = err.Error()
		res.Duration = time.Since(stageStart).Milliseconds()
		log.Printf("[StudyService] Stage %s failed: %v", stage.Name(), err)
		return res, nil
	}

	for _, artifact := range out.Artifacts {
		if err := s.ledger.StoreArtifact(ctx, input.RunID, artifact); err != nil {
			res.Error = fmt.Sprintf("failed to store %s artifact: %v", artifact.Kind, err)
			res.Duration = time.Since(stageStart).Milliseconds()
			log.Printf("[StudyService] Stage %s: %s", stage.Name(), res.Error)
			return res, nil
		}
	}

	res.Success = true
	res.Artifacts = out.Artifacts
	res.Skips = out.Skips
	res.Warnings = out.Warnings
	res.Duration = time.Since(stageStart).Milliseconds()
	log.Printf("[StudyService] Stage %s: %d artifacts, %d skips, %d warnings (%dms)",
		stage.Name(), len(out.Artifacts), len(out.Skips), len(out.Warnings), res.Duration)
	return res, out
}

// ChartData shapes the run for the figure set
func (r *StudyRunResult) ChartData() *study.ChartData {
	return &study.ChartData{Cohort: r.Cohort, Screen: r.Screen, Result: r.Result}
}
