package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/domain/shared"
)

type recordingHandler struct {
	types []string
	seen  []string
	fail  error
}

func (h *recordingHandler) Handle(_ context.Context, ev shared.DomainEvent) error {
	h.seen = append(h.seen, ev.EventType())
	return h.fail
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func committedEvent(t *testing.T) shared.DomainEvent {
	t.Helper()
	run, err := ingestion.NewIngestionRun(ingestion.SourceCodeMezze, ingestion.Window{}, ingestion.RunTriggerManual)
	require.NoError(t, err)
	return ingestion.NewRunCommittedEvent(run)
}

func TestBus_DeliversToSubscribedTypes(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	committed := &recordingHandler{types: []string{ingestion.EventTypeRunCommitted}}
	failed := &recordingHandler{types: []string{ingestion.EventTypeRunFailed}}
	all := &recordingHandler{}
	bus.Subscribe(committed)
	bus.Subscribe(failed)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(), committedEvent(t)))

	assert.Equal(t, []string{ingestion.EventTypeRunCommitted}, committed.seen)
	assert.Empty(t, failed.seen)
	assert.Equal(t, []string{ingestion.EventTypeRunCommitted}, all.seen)
}

func TestBus_HandlerFailureDoesNotStopOthers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	broken := &recordingHandler{types: []string{ingestion.EventTypeRunCommitted}, fail: errors.New("boom")}
	healthy := &recordingHandler{types: []string{ingestion.EventTypeRunCommitted}}
	bus.Subscribe(broken)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), committedEvent(t)))
	assert.Len(t, healthy.seen, 1)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &recordingHandler{types: []string{ingestion.EventTypeRunCommitted}}
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), committedEvent(t)))
	assert.Empty(t, handler.seen)
}
