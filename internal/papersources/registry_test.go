package papersources

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clindex/research-pipeline-service/internal/domain"
)

// stubSource is a minimal SearchSource for registry tests.
type stubSource struct {
	sourceType domain.SourceType
	name       string
	enabled    bool
}

func (s *stubSource) Search(_ context.Context, _ SearchParams) (*SearchResult, error) {
	return &SearchResult{Source: s.sourceType}, nil
}

func (s *stubSource) SourceType() domain.SourceType { return s.sourceType }
func (s *stubSource) Name() string                  { return s.name }
func (s *stubSource) IsEnabled() bool               { return s.enabled }

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()

	src := &stubSource{sourceType: domain.SourceTypePubMed, name: "PubMed", enabled: true}
	r.Register(src)

	got := r.Get(domain.SourceTypePubMed)
	require.NotNil(t, got)
	assert.Equal(t, "PubMed", got.Name())

	assert.Nil(t, r.Get(domain.SourceTypeCrossRef))
}

func TestRegistryRegisterReplaces(t *testing.T) {
	r := NewRegistry()

	r.Register(&stubSource{sourceType: domain.SourceTypePubMed, name: "old", enabled: true})
	r.Register(&stubSource{sourceType: domain.SourceTypePubMed, name: "new", enabled: true})

	assert.Len(t, r.AllSources(), 1)
	assert.Equal(t, "new", r.Get(domain.SourceTypePubMed).Name())
}

func TestRegistryEnabledSources(t *testing.T) {
	r := NewRegistry()

	r.Register(&stubSource{sourceType: domain.SourceTypePubMed, name: "PubMed", enabled: true})
	r.Register(&stubSource{sourceType: domain.SourceTypeOpenFDA, name: "openFDA", enabled: false})
	r.Register(&stubSource{sourceType: domain.SourceTypeCrossRef, name: "CrossRef", enabled: true})

	enabled := r.EnabledSources()
	assert.Len(t, enabled, 2)
	for _, s := range enabled {
		assert.True(t, s.IsEnabled())
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for _, st := range domain.AllSourceTypes() {
		wg.Add(1)
		go func(st domain.SourceType) {
			defer wg.Done()
			r.Register(&stubSource{sourceType: st, name: string(st), enabled: true})
		}(st)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = r.AllSources()
		_ = r.EnabledSources()
	}()

	wg.Wait()
	assert.Len(t, r.AllSources(), len(domain.AllSourceTypes()))
}
