// Package testkit provides the in-memory ledger and the synthetic cohort
// generator used by tests, demos, and the synth command.
package testkit

import (
	"context"
	"fmt"
	"sync"

	"her2lab/domain/core"
	"her2lab/ports"
)

// TestKit bundles an in-memory ledger with a deterministic data generator
type TestKit struct {
	ledger *InMemoryLedgerAdapter
	seed   int64
}

// NewTestKit creates a test kit seeded for reproducible fixtures
func NewTestKit(seed int64) *TestKit {
	return &TestKit{
		ledger: NewInMemoryLedgerAdapter(),
		seed:   seed,
	}
}

// Ledger returns the shared in-memory ledger
func (t *TestKit) Ledger() ports.LedgerPort {
	return t.ledger
}

// Generator returns a cohort generator carrying the kit's seed
func (t *TestKit) Generator() *CohortGenerator {
	config := DefaultGeneratorConfig()
	config.Seed = t.seed
	return NewCohortGenerator(config)
}

// InMemoryLedgerAdapter implements LedgerPort with map storage. Artifacts
// come back in insertion order, which keeps test assertions stable.
type InMemoryLedgerAdapter struct {
	artifacts    map[core.ArtifactID]core.Artifact
	order        []core.ArtifactID
	runArtifacts map[core.RunID][]core.ArtifactID
	mu           sync.RWMutex
}

// NewInMemoryLedgerAdapter creates an empty in-memory ledger
func NewInMemoryLedgerAdapter() *InMemoryLedgerAdapter {
	return &InMemoryLedgerAdapter{
		artifacts:    make(map[core.ArtifactID]core.Artifact),
		runArtifacts: make(map[core.RunID][]core.ArtifactID),
	}
}

// StoreArtifact appends one artifact under a run
func (s *InMemoryLedgerAdapter) StoreArtifact(ctx context.Context, runID core.RunID, artifact core.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	artifactID := core.ArtifactID(artifact.ID)
	if _, exists := s.artifacts[artifactID]; !exists {
		s.order = append(s.order, artifactID)
	}
	s.artifacts[artifactID] = artifact
	s.runArtifacts[runID] = append(s.runArtifacts[runID], artifactID)
	return nil
}

// ListArtifacts returns artifacts matching the filters, oldest first
func (s *InMemoryLedgerAdapter) ListArtifacts(ctx context.Context, filters ports.ArtifactFilters) ([]core.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inRun := make(map[core.ArtifactID]bool)
	if filters.RunID != nil {
		for _, id := range s.runArtifacts[*filters.RunID] {
			inRun[id] = true
		}
	}

	var results []core.Artifact
	skipped := 0
	for _, id := range s.order {
		artifact := s.artifacts[id]
		if filters.Kind != nil && artifact.Kind != *filters.Kind {
			continue
		}
		if filters.RunID != nil && !inRun[id] {
			continue
		}
		if skipped < filters.Offset {
			skipped++
			continue
		}
		results = append(results, artifact)
		if filters.Limit > 0 && len(results) >= filters.Limit {
			break
		}
	}
	return results, nil
}

// GetArtifact fetches one artifact by ID
func (s *InMemoryLedgerAdapter) GetArtifact(ctx context.Context, artifactID core.ArtifactID) (*core.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	artifact, exists := s.artifacts[artifactID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", core.ErrArtifactNotFound, artifactID)
	}
	return &artifact, nil
}

// GetArtifactsByRun returns a run's artifacts in storage order
func (s *InMemoryLedgerAdapter) GetArtifactsByRun(ctx context.Context, runID core.RunID) ([]core.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.runArtifacts[runID]
	artifacts := make([]core.Artifact, 0, len(ids))
	for _, id := range ids {
		if artifact, ok := s.artifacts[id]; ok {
			artifacts = append(artifacts, artifact)
		}
	}
	return artifacts, nil
}

// GetArtifactsByKind returns artifacts of one kind, oldest first
func (s *InMemoryLedgerAdapter) GetArtifactsByKind(ctx context.Context, kind core.ArtifactKind, limit int) ([]core.Artifact, error) {
	return s.ListArtifacts(ctx, ports.ArtifactFilters{Kind: &kind, Limit: limit})
}
