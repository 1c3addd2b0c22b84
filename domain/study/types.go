package study

import (
	"fmt"

	"her2lab/domain/cohort"
	"her2lab/domain/core"
	"her2lab/domain/stats"
)

// StageName identifies one analysis stage of a study run
type StageName string

// The four stages of the curated study, in canonical order
const (
	StageProfile  StageName = "profile"  // column profiles and missingness
	StageSurvival StageName = "survival" // High/Low signal vs vital status
	StagePathway  StageName = "pathway"  // signal by HER2 status
	StageResponse StageName = "response" // drug sensitive fractions and rank test
)

// AllStages returns the canonical stage order
func AllStages() []StageName {
	return []StageName{StageProfile, StageSurvival, StagePathway, StageResponse}
}

// StageNames renders a stage list for fingerprinting
func StageNames(stages []StageName) []string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	return names
}

// Params carries the knobs a study run honors.
// DefaultParams matches the published analysis; overrides come from the
// environment or CLI flags.
type Params struct {
	PathwayAlternative stats.Alternative `json:"pathway_alternative"`   // Positive vs Negative signal
	SurvivalYates      bool              `json:"survival_yates"`        // continuity correction on the 2x2
	DrugThreshold      float64           `json:"drug_threshold"`        // viability cutoff for "sensitive"
	TargetedDrugs      []string          `json:"targeted_drugs"`        // the HER2-targeted agents
	Comparators        []string          `json:"comparators,omitempty"` // empty means every other drug
	MinDose            float64           `json:"min_dose"`              // dose floor for screen rows
	KeepZeroDose       bool              `json:"keep_zero_dose"`        // >= on the dose floor instead of >
	TopMissing         int               `json:"top_missing"`           // rows shown in the missingness table
	Seed               int64             `json:"seed"`                  // synthetic data and fingerprint seed
}

// DefaultParams returns the canonical study configuration
func DefaultParams() Params {
	return Params{
		PathwayAlternative: stats.Greater,
		SurvivalYates:      true,
		DrugThreshold:      50,
		TargetedDrugs:      []string{"lapatinib"},
		MinDose:            0,
		KeepZeroDose:       true,
		TopMissing:         25,
		Seed:               42,
	}
}

// Validate checks parameter sanity before a run starts
func (p *Params) Validate() error {
	if _, err := stats.ParseAlternative(string(p.PathwayAlternative)); err != nil {
		return core.NewValidationError("pathway_alternative", err.Error())
	}
	if p.DrugThreshold <= 0 {
		return core.NewValidationError("drug_threshold", "must be positive")
	}
	if len(p.TargetedDrugs) == 0 {
		return core.NewValidationError("targeted_drugs", "need at least one agent")
	}
	for _, d := range p.TargetedDrugs {
		if d == "" {
			return core.NewValidationError("targeted_drugs", "agent names cannot be empty")
		}
	}
	if p.MinDose < 0 {
		return core.NewValidationError("min_dose", "cannot be negative")
	}
	if p.TopMissing <= 0 {
		return core.NewValidationError("top_missing", "must be positive")
	}
	return nil
}

// StageResult is one stage's execution record
type StageResult struct {
	Name      StageName       `json:"name"`
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
	Artifacts []core.Artifact `json:"artifacts,omitempty"`
	Skips     map[string]int  `json:"skips,omitempty"` // e.g. {"no_vital_status": 1}
	Warnings  []string        `json:"warnings,omitempty"`
	Duration  int64           `json:"duration_ms"`
}

// StudyResult is the in-memory product of a full run. Stage artifacts also
// land in the ledger; the typed fields feed the report and the charts.
type StudyResult struct {
	RunID       core.RunID          `json:"run_id"`
	Fingerprint core.RunFingerprint `json:"fingerprint"`
	CohortHash  core.CohortHash     `json:"cohort_hash"`
	Params      Params              `json:"params"`
	StartedAt   core.Timestamp      `json:"started_at"`
	CompletedAt core.Timestamp      `json:"completed_at"`
	Stages      []StageResult       `json:"stages"`

	Missingness *stats.MissingnessReport   `json:"missingness,omitempty"`
	Profiles    []stats.ColumnProfile      `json:"profiles,omitempty"`
	Survival    *stats.SurvivalAssociation `json:"survival,omitempty"`
	Pathway     *stats.PathwayComparison   `json:"pathway,omitempty"`
	Drugs       *stats.DrugResponse        `json:"drugs,omitempty"`
}

// AddStage appends a stage record and absorbs its typed payloads
func (r *StudyResult) AddStage(res StageResult, out *Output) {
	r.Stages = append(r.Stages, res)
	if out == nil {
		return
	}
	if out.Missingness != nil {
		r.Missingness = out.Missingness
	}
	if len(out.Profiles) > 0 {
		r.Profiles = out.Profiles
	}
	if out.Survival != nil {
		r.Survival = out.Survival
	}
	if out.Pathway != nil {
		r.Pathway = out.Pathway
	}
	if out.Drugs != nil {
		r.Drugs = out.Drugs
	}
}

// Succeeded reports whether every stage went green
func (r *StudyResult) Succeeded() bool {
	for _, s := range r.Stages {
		if !s.Success {
			return false
		}
	}
	return true
}

// Summary condenses the run for logs and the console tail
func (r *StudyResult) Summary() Summary {
	s := Summary{RunID: r.RunID, TotalStages: len(r.Stages)}
	for _, st := range r.Stages {
		if st.Success {
			s.Successful++
		} else {
			s.Failed++
		}
		s.Artifacts += len(st.Artifacts)
		s.DurationMs += st.Duration
	}
	return s
}

// Summary is the run-level scoreboard
type Summary struct {
	RunID       core.RunID `json:"run_id"`
	TotalStages int        `json:"total_stages"`
	Successful  int        `json:"successful"`
	Failed      int        `json:"failed"`
	Artifacts   int        `json:"artifacts"`
	DurationMs  int64      `json:"duration_ms"`
}

// String renders the scoreboard in one line
func (s Summary) String() string {
	return fmt.Sprintf("run %s: %d/%d stages succeeded, %d artifacts, %dms",
		s.RunID, s.Successful, s.TotalStages, s.Artifacts, s.DurationMs)
}

// Manifest is the run-level artifact: what ran, over what data, and how it
// went. Stored last so its presence marks a completed run.
type Manifest struct {
	RunID        core.RunID          `json:"run_id"`
	Fingerprint  core.RunFingerprint `json:"fingerprint"`
	CohortHash   core.CohortHash     `json:"cohort_hash"`
	SignalColumn core.ColumnKey      `json:"signal_column"`
	Rows         int                 `json:"rows"`
	Params       Params              `json:"params"`
	Stages       []StageName         `json:"stages"`
	Summary      Summary             `json:"summary"`
	StartedAt    core.Timestamp      `json:"started_at"`
	CompletedAt  core.Timestamp      `json:"completed_at"`
}

// ToArtifact wraps the manifest for the ledger
func (m Manifest) ToArtifact() core.Artifact {
	return core.Artifact{
		ID:        core.NewID(),
		Kind:      core.ArtifactStudyManifest,
		Payload:   m,
		CreatedAt: core.Now(),
	}
}

// ChartData is everything the figure set draws from
type ChartData struct {
	Cohort *cohort.Cohort
	Screen *cohort.DrugScreen // nil when no screen was loaded
	Result *StudyResult
}
