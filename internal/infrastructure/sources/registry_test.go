package sources

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezze/backend/internal/domain/ingestion"
)

type stubDriver struct {
	code ingestion.SourceCode
}

func (d *stubDriver) SourceCode() ingestion.SourceCode { return d.code }

func (d *stubDriver) Fetch(ctx context.Context, window ingestion.Window) (*ingestion.FetchResult, error) {
	return &ingestion.FetchResult{}, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()

	mezze := &stubDriver{code: ingestion.SourceCodeMezze}
	require.NoError(t, registry.Register(mezze))
	require.NoError(t, registry.Register(&stubDriver{code: ingestion.SourceCodeGmail}))

	got, err := registry.Get(ingestion.SourceCodeMezze)
	require.NoError(t, err)
	assert.Same(t, mezze, got)

	_, err = registry.Get(ingestion.SourceCodeCSVDrop)
	assert.ErrorIs(t, err, ingestion.ErrDriverNotRegistered)
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register(&stubDriver{code: ingestion.SourceCodeMezze}))
	assert.Error(t, registry.Register(&stubDriver{code: ingestion.SourceCodeMezze}))
}

func TestRegistry_CodesKeepRegistrationOrder(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register(&stubDriver{code: ingestion.SourceCodeGmail}))
	require.NoError(t, registry.Register(&stubDriver{code: ingestion.SourceCodeMezze}))

	assert.Equal(t, []ingestion.SourceCode{ingestion.SourceCodeGmail, ingestion.SourceCodeMezze}, registry.Codes())
	assert.Len(t, registry.List(), 2)
}
