package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	RunID      ID
	ArtifactID ID
	ColumnKey  ID
)

// String conversions for domain IDs
func (id RunID) String() string      { return ID(id).String() }
func (id ArtifactID) String() string { return ID(id).String() }
func (k ColumnKey) String() string   { return ID(k).String() }

// NewRunID creates a unique run identifier
func NewRunID() RunID {
	return RunID(NewID())
}

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}

// ParseArtifactID parses a string into ArtifactID
func ParseArtifactID(s string) (ArtifactID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("artifact ID cannot be empty")
	}
	return ArtifactID(s), nil
}

// ParseColumnKey parses a string into ColumnKey
func ParseColumnKey(s string) (ColumnKey, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("column key cannot be empty")
	}
	return ColumnKey(s), nil
}

// Artifact represents any output of a study run
type Artifact struct {
	ID        ID           `json:"id"`
	Kind      ArtifactKind `json:"kind"`
	Payload   interface{}  `json:"payload"`
	CreatedAt Timestamp    `json:"created_at"`
}

// ArtifactKind defines types of artifacts
type ArtifactKind string

const (
	// ArtifactColumnProfile is the output of the profile stage (per-column stats).
	ArtifactColumnProfile ArtifactKind = "column_profile"
	// ArtifactMissingness is the data-quality table produced before testing.
	ArtifactMissingness ArtifactKind = "missingness"
	// ArtifactMedianSplit records the High/Low cut applied to the pathway signal.
	ArtifactMedianSplit ArtifactKind = "median_split"
	// ArtifactSurvivalAssociation carries the contingency table plus both tests.
	ArtifactSurvivalAssociation ArtifactKind = "survival_association"
	// ArtifactPathwayComparison carries the Positive-vs-Negative rank test.
	ArtifactPathwayComparison ArtifactKind = "pathway_comparison"
	// ArtifactDrugResponse carries sensitive fractions and the drug rank test.
	ArtifactDrugResponse ArtifactKind = "drug_response"
	// ArtifactChart records a rendered figure on disk.
	ArtifactChart ArtifactKind = "chart"
	// ArtifactStudyManifest captures audit metadata for a whole run.
	ArtifactStudyManifest ArtifactKind = "study_manifest"
)
