package ports

import (
	"context"

	"her2lab/domain/core"
)

// LedgerWriterPort provides append-only write access to artifacts.
// This is the only way to persist study output, which keeps stages free of
// read-after-write coupling.
type LedgerWriterPort interface {
	StoreArtifact(ctx context.Context, runID core.RunID, artifact core.Artifact) error
}

// LedgerReaderPort provides read-only access to stored artifacts for
// queries and the CLI's artifacts command.
type LedgerReaderPort interface {
	ListArtifacts(ctx context.Context, filters ArtifactFilters) ([]core.Artifact, error)
	GetArtifact(ctx context.Context, artifactID core.ArtifactID) (*core.Artifact, error)
	GetArtifactsByRun(ctx context.Context, runID core.RunID) ([]core.Artifact, error)
	GetArtifactsByKind(ctx context.Context, kind core.ArtifactKind, limit int) ([]core.Artifact, error)
}

// ArtifactFilters narrows ledger queries
type ArtifactFilters struct {
	RunID  *core.RunID
	Kind   *core.ArtifactKind
	Limit  int
	Offset int
}

// LedgerPort combines read and write access for callers that own the ledger
type LedgerPort interface {
	LedgerWriterPort
	LedgerReaderPort
}
