package config

import (
	"testing"

	"her2lab/domain/stats"
)

// clearEnv blanks every knob so defaults apply regardless of the host env
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"HER2LAB_DATA_DIR", "HER2LAB_OUTPUT_DIR", "HER2LAB_SIGNAL_PREFERENCE",
		"HER2LAB_VIABILITY_THRESHOLD", "HER2LAB_TARGETED_DRUGS", "HER2LAB_COMPARATOR_DRUGS",
		"HER2LAB_PATHWAY_ALTERNATIVE", "HER2LAB_SURVIVAL_YATES", "HER2LAB_MIN_DOSE",
		"HER2LAB_KEEP_ZERO_DOSE", "HER2LAB_TOP_MISSING", "HER2LAB_SEED",
		"HER2LAB_DATABASE_URL", "HER2LAB_CHART_FORMAT",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed on defaults: %v", err)
	}

	if cfg.Paths.DataDir != "data" || cfg.Paths.OutputDir != "out" {
		t.Errorf("Unexpected default paths: %+v", cfg.Paths)
	}
	if len(cfg.Study.SignalPreference) != 2 || cfg.Study.SignalPreference[0] != "pp_her2" {
		t.Errorf("Unexpected signal preference: %v", cfg.Study.SignalPreference)
	}
	if cfg.Study.ViabilityThreshold != 50 {
		t.Errorf("Expected threshold 50, got %v", cfg.Study.ViabilityThreshold)
	}
	if len(cfg.Study.TargetedDrugs) != 1 || cfg.Study.TargetedDrugs[0] != "lapatinib" {
		t.Errorf("Unexpected targeted drugs: %v", cfg.Study.TargetedDrugs)
	}
	if cfg.Database.URL != "" {
		t.Errorf("Expected empty database URL, got %q", cfg.Database.URL)
	}
	if cfg.Charts.Format != "png" {
		t.Errorf("Expected png charts, got %q", cfg.Charts.Format)
	}

	params := cfg.Params()
	if params.PathwayAlternative != stats.Greater {
		t.Errorf("Expected greater alternative, got %s", params.PathwayAlternative)
	}
	if !params.SurvivalYates || params.Seed != 42 || params.TopMissing != 25 {
		t.Errorf("Default params did not map: %+v", params)
	}
	if err := params.Validate(); err != nil {
		t.Errorf("Mapped default params should validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HER2LAB_DATA_DIR", "/srv/her2")
	t.Setenv("HER2LAB_SIGNAL_PREFERENCE", "pp_her2_py1248 , pp_her2")
	t.Setenv("HER2LAB_VIABILITY_THRESHOLD", "35.5")
	t.Setenv("HER2LAB_TARGETED_DRUGS", "lapatinib, afatinib")
	t.Setenv("HER2LAB_COMPARATOR_DRUGS", "erlotinib")
	t.Setenv("HER2LAB_PATHWAY_ALTERNATIVE", "two-sided")
	t.Setenv("HER2LAB_SURVIVAL_YATES", "false")
	t.Setenv("HER2LAB_SEED", "7")
	t.Setenv("HER2LAB_CHART_FORMAT", "svg")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Paths.DataDir != "/srv/her2" {
		t.Errorf("Data dir override lost: %q", cfg.Paths.DataDir)
	}
	want := []string{"pp_her2_py1248", "pp_her2"}
	if len(cfg.Study.SignalPreference) != 2 || cfg.Study.SignalPreference[0] != want[0] || cfg.Study.SignalPreference[1] != want[1] {
		t.Errorf("Expected trimmed preference %v, got %v", want, cfg.Study.SignalPreference)
	}
	if cfg.Study.ViabilityThreshold != 35.5 {
		t.Errorf("Expected threshold 35.5, got %v", cfg.Study.ViabilityThreshold)
	}
	if len(cfg.Study.TargetedDrugs) != 2 || cfg.Study.TargetedDrugs[1] != "afatinib" {
		t.Errorf("Expected two targeted drugs, got %v", cfg.Study.TargetedDrugs)
	}

	params := cfg.Params()
	if params.PathwayAlternative != stats.TwoSided {
		t.Errorf("Expected two-sided alternative, got %s", params.PathwayAlternative)
	}
	if params.SurvivalYates {
		t.Error("Expected Yates disabled")
	}
	if params.Seed != 7 {
		t.Errorf("Expected seed 7, got %d", params.Seed)
	}
	if len(params.Comparators) != 1 || params.Comparators[0] != "erlotinib" {
		t.Errorf("Comparators did not map: %v", params.Comparators)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"zero_threshold", "HER2LAB_VIABILITY_THRESHOLD", "0"},
		{"threshold_above_scale", "HER2LAB_VIABILITY_THRESHOLD", "250"},
		{"unknown_alternative", "HER2LAB_PATHWAY_ALTERNATIVE", "sideways"},
		{"bad_chart_format", "HER2LAB_CHART_FORMAT", "pdf"},
		{"negative_min_dose", "HER2LAB_MIN_DOSE", "-1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Errorf("Expected Load to reject %s=%s", tc.key, tc.value)
			}
		})
	}
}
