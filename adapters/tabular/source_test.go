package tabular

import (
	"context"
	"strings"
	"testing"

	"her2lab/domain/cohort"
)

const mutationsCSV = `Tumor ID,HER2 Final Status,PP.HER2,ER Status,PR Status,Vital Status,Histological Type
TCGA-A1,Positive,1.42,Positive,Negative,Alive,Infiltrating Ductal Carcinoma
TCGA-A2,NEGATIVE ,-0.31,Negative,Negative,DECEASED,Infiltrating Lobular Carcinoma
TCGA-A3,Equivocal,0.77,Positive,Positive,Alive,Infiltrating Ductal Carcinoma
TCGA-A4,Positive,NA,Negative,Negative,Alive,Infiltrating Ductal Carcinoma
TCGA-A5,negative,0.05,Positive,Negative,,Infiltrating Ductal Carcinoma
`

const screenCSV = `Cosmic ID,Drug Name,Dose,Viability
1290730, Lapatinib ,0.5,42.0
1290730,lapatinib,2,250
1290731,Erlotinib,0,88
1290731,erlotinib,-1,70
1290732,gefitinib,,55
1290732,,1,60
1290733,afatinib,1,abc
`

func TestBuildCohortPipeline(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "mutations.csv", mutationsCSV)

	table, err := NewTableReader(path).Read()
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	c, err := BuildCohort(table, nil)
	if err != nil {
		t.Fatalf("BuildCohort error: %v", err)
	}

	if c.Len() != 3 {
		t.Fatalf("kept %d rows, want 3", c.Len())
	}
	if c.SignalColumn.String() != "pp_her2" {
		t.Errorf("signal column = %s, want pp_her2", c.SignalColumn)
	}

	wantStatus := []cohort.HER2Status{cohort.StatusPositive, cohort.StatusNegative, cohort.StatusNegative}
	for i, want := range wantStatus {
		if c.HER2[i] != want {
			t.Errorf("HER2[%d] = %s, want %s", i, c.HER2[i], want)
		}
	}
	wantH := []int{1, 0, 0}
	for i, want := range wantH {
		if c.H[i] != want {
			t.Errorf("H[%d] = %d, want %d", i, c.H[i], want)
		}
	}
	if c.Signal[0] != 1.42 || c.Signal[1] != -0.31 || c.Signal[2] != 0.05 {
		t.Errorf("signal values wrong: %v", c.Signal)
	}

	if !c.HasVital {
		t.Fatal("vital column should be detected")
	}
	wantVital := []int{cohort.VitalAlive, cohort.VitalDeceased, cohort.VitalUnknown}
	for i, want := range wantVital {
		if c.VitalStatus[i] != want {
			t.Errorf("VitalStatus[%d] = %d, want %d", i, c.VitalStatus[i], want)
		}
	}

	if c.ERStatus[1] != "Negative" || c.PRStatus[2] != "Negative" {
		t.Errorf("clinical statuses not normalized: ER=%v PR=%v", c.ERStatus, c.PRStatus)
	}
	if !c.HasHistology || c.Histology[0] != "Infiltrating Ductal Carcinoma" {
		t.Errorf("histology not carried: %v", c.Histology)
	}
}

func TestBuildCohortEncodesVitalBeforeFiltering(t *testing.T) {
	csvData := "her2_final_status,pp_her2,vital_status\n" +
		"Positive,1.0,alive\n" +
		"Equivocal,2.0,maybe\n"
	path := writeFixture(t, t.TempDir(), "mutations.csv", csvData)

	table, err := NewTableReader(path).Read()
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	_, err = BuildCohort(table, nil)
	if err == nil {
		t.Fatal("unmapped vital value should fail even on a row the status filter drops")
	}
	if !strings.Contains(err.Error(), "vital_status") {
		t.Errorf("error should name the column: %v", err)
	}
}

func TestBuildCohortMissingSignalColumn(t *testing.T) {
	table := &RawTable{
		Headers: []string{"tumor_id", "her2_final_status"},
		Rows:    []RawRow{{"tumor_id": "a", "her2_final_status": "Positive"}},
	}
	_, err := BuildCohort(table, nil)
	if err == nil {
		t.Fatal("expected error when no signal column is present")
	}
	if !strings.Contains(err.Error(), "pp_her2") {
		t.Errorf("error should list the candidate columns: %v", err)
	}
}

func TestBuildDrugScreen(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "drug-sensitivity.csv", screenCSV)
	table, err := NewTableReader(path).Read()
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	screen, err := BuildDrugScreen(table, 0, true)
	if err != nil {
		t.Fatalf("BuildDrugScreen error: %v", err)
	}
	if screen.Len() != 3 {
		t.Fatalf("kept %d measurements, want 3", screen.Len())
	}
	if screen.Drug[0] != "lapatinib" {
		t.Errorf("drug name not normalized: %q", screen.Drug[0])
	}
	if screen.Viability[1] != 200 {
		t.Errorf("viability not clipped: %v", screen.Viability[1])
	}
	if !screen.HasDose || screen.Dose[2] != 0 {
		t.Errorf("zero dose should survive with keepZeroDose: %v", screen.Dose)
	}
	if !screen.HasCosmic || screen.CosmicID[0] != "1290730" {
		t.Errorf("cosmic ids not carried: %v", screen.CosmicID)
	}

	strict, err := BuildDrugScreen(table, 0, false)
	if err != nil {
		t.Fatalf("BuildDrugScreen without zero doses: %v", err)
	}
	if strict.Len() != 2 {
		t.Errorf("kept %d measurements without zero doses, want 2", strict.Len())
	}
}

func TestBuildDrugScreenRequiresColumns(t *testing.T) {
	table := &RawTable{
		Headers: []string{"drug_name"},
		Rows:    []RawRow{{"drug_name": "lapatinib"}},
	}
	if _, err := BuildDrugScreen(table, 0, true); err == nil {
		t.Fatal("expected error when viability column is absent")
	}
}

func TestFileCohortSource(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "mutations.csv", mutationsCSV)
	writeFixture(t, dir, "drug-sensitivity.csv", screenCSV)

	src := NewFileCohortSource(dir, DefaultSourceConfig())
	ctx := context.Background()

	c, err := src.LoadCohort(ctx)
	if err != nil {
		t.Fatalf("LoadCohort error: %v", err)
	}
	if c.Len() != 3 {
		t.Errorf("cohort rows = %d, want 3", c.Len())
	}

	screen, err := src.LoadDrugScreen(ctx)
	if err != nil {
		t.Fatalf("LoadDrugScreen error: %v", err)
	}
	if screen == nil || screen.Len() != 3 {
		t.Fatalf("screen = %+v, want 3 measurements", screen)
	}

	report, err := src.Missingness(ctx)
	if err != nil {
		t.Fatalf("Missingness error: %v", err)
	}
	if report.TotalRows != 5 {
		t.Errorf("missingness over raw rows = %d, want 5", report.TotalRows)
	}
	if len(report.Rows) != 7 {
		t.Errorf("missingness columns = %d, want 7", len(report.Rows))
	}
}

func TestFileCohortSourceWithoutScreen(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "mutations.csv", mutationsCSV)

	src := NewFileCohortSource(dir, DefaultSourceConfig())
	screen, err := src.LoadDrugScreen(context.Background())
	if err != nil {
		t.Fatalf("absent screen should not be an error: %v", err)
	}
	if screen != nil {
		t.Fatalf("screen = %+v, want nil", screen)
	}
}

func TestFileCohortSourceMissingMutations(t *testing.T) {
	src := NewFileCohortSource(t.TempDir(), DefaultSourceConfig())
	if _, err := src.LoadCohort(context.Background()); err == nil {
		t.Fatal("expected error when the mutations table is absent")
	}
}

func TestFileCohortSourceHonorsContext(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "mutations.csv", mutationsCSV)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewFileCohortSource(dir, DefaultSourceConfig())
	if _, err := src.LoadCohort(ctx); err == nil {
		t.Fatal("expected context error")
	}
}
