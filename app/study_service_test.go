package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"her2lab/adapters/stats/stages"
	"her2lab/adapters/tabular"
	"her2lab/domain/core"
	"her2lab/domain/study"
	"her2lab/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allStages() []study.Stage {
	return []study.Stage{
		stages.NewProfileStage(),
		stages.NewSurvivalStage(),
		stages.NewPathwayStage(),
		stages.NewResponseStage(),
	}
}

func fixtureSource(t *testing.T) (*tabular.FileCohortSource, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, testkit.NewTestKit(42).Generator().WriteFixtures(dir))
	return tabular.NewFileCohortSource(dir, tabular.DefaultSourceConfig()), dir
}

func TestStudyServiceRunsAllStages(t *testing.T) {
	source, _ := fixtureSource(t)
	kit := testkit.NewTestKit(42)
	service := NewStudyService(source, kit.Ledger(), allStages())

	run, err := service.RunStudy(context.Background(), study.DefaultParams())
	require.NoError(t, err)

	result := run.Result
	require.Len(t, result.Stages, 4)
	assert.True(t, result.Succeeded(), "Expected every stage green: %+v", result.Stages)
	assert.NotEmpty(t, result.Fingerprint)
	assert.NotEmpty(t, result.CohortHash)
	assert.NotNil(t, result.Missingness)
	assert.NotEmpty(t, result.Profiles)
	assert.NotNil(t, result.Survival)
	assert.NotNil(t, result.Pathway)
	assert.NotNil(t, result.Drugs)

	summary := result.Summary()
	assert.Equal(t, 4, summary.Successful)
	assert.Equal(t, 0, summary.Failed)

	// 10 profiles + missingness + split + association + pathway + response,
	// then the manifest
	stored, err := kit.Ledger().GetArtifactsByRun(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.Len(t, stored, 16)
	assert.Equal(t, core.ArtifactStudyManifest, stored[len(stored)-1].Kind, "Expected the manifest stored last")

	data := run.ChartData()
	assert.NotNil(t, data.Cohort)
	assert.NotNil(t, data.Screen)
	assert.Same(t, result, data.Result)
}

func TestStudyServiceRejectsBadParams(t *testing.T) {
	source, _ := fixtureSource(t)
	kit := testkit.NewTestKit(1)
	service := NewStudyService(source, kit.Ledger(), allStages())

	params := study.DefaultParams()
	params.TargetedDrugs = nil
	_, err := service.RunStudy(context.Background(), params)
	require.Error(t, err, "Expected invalid params to be rejected")

	manifests, err := kit.Ledger().GetArtifactsByKind(context.Background(), core.ArtifactStudyManifest, 0)
	require.NoError(t, err)
	assert.Empty(t, manifests, "Expected no manifest after a rejected run")
}

type explodingStage struct{}

func (s explodingStage) Name() study.StageName { return "exploding" }

func (s explodingStage) Run(ctx context.Context, in *study.Input) (*study.Output, error) {
	return nil, errors.New("boom")
}

func TestStudyServiceToleratesStageFailure(t *testing.T) {
	source, _ := fixtureSource(t)
	kit := testkit.NewTestKit(2)
	service := NewStudyService(source, kit.Ledger(), []study.Stage{
		explodingStage{},
		stages.NewPathwayStage(),
	})

	run, err := service.RunStudy(context.Background(), study.DefaultParams())
	require.NoError(t, err, "Expected the run to survive a failing stage")

	result := run.Result
	assert.False(t, result.Succeeded())
	assert.False(t, result.Stages[0].Success)
	assert.NotEmpty(t, result.Stages[0].Error)
	assert.True(t, result.Stages[1].Success, "Expected the pathway stage to run anyway: %+v", result.Stages[1])
	assert.NotNil(t, result.Pathway, "Expected the pathway payload despite the earlier failure")

	manifests, err := kit.Ledger().GetArtifactsByKind(context.Background(), core.ArtifactStudyManifest, 0)
	require.NoError(t, err)
	assert.Len(t, manifests, 1, "Expected the manifest stored for a partial run")
}

func TestStudyServiceWithoutScreen(t *testing.T) {
	source, dir := fixtureSource(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "drug-sensitivity.csv")))
	kit := testkit.NewTestKit(3)
	service := NewStudyService(source, kit.Ledger(), allStages())

	run, err := service.RunStudy(context.Background(), study.DefaultParams())
	require.NoError(t, err)

	result := run.Result
	assert.True(t, result.Succeeded(), "Expected a clean run without a screen: %+v", result.Stages)
	assert.Nil(t, result.Drugs)
	last := result.Stages[len(result.Stages)-1]
	assert.Equal(t, 1, last.Skips["no_drug_screen"], "Expected the response stage skipped")
	assert.Nil(t, run.ChartData().Screen)
}

func TestStudyServiceHonorsContext(t *testing.T) {
	source, _ := fixtureSource(t)
	kit := testkit.NewTestKit(4)
	service := NewStudyService(source, kit.Ledger(), allStages())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := service.RunStudy(ctx, study.DefaultParams())
	require.Error(t, err, "Expected a canceled context to abort the run")
}
