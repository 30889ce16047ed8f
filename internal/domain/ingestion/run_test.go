package ingestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezze/backend/internal/domain/shared"
)

func newTestRun(t *testing.T) *IngestionRun {
	t.Helper()
	window, err := NewWindow(
		time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	run, err := NewIngestionRun(SourceCodeMezze, window, RunTriggerSchedule)
	require.NoError(t, err)
	return run
}

func eventTypes(events []shared.DomainEvent) []string {
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType())
	}
	return types
}

func TestNewIngestionRun(t *testing.T) {
	t.Run("creates pending run", func(t *testing.T) {
		run := newTestRun(t)

		assert.Equal(t, RunStatusPending, run.Status)
		assert.Equal(t, SourceCodeMezze, run.SourceCode)
		assert.Equal(t, RunTriggerSchedule, run.Trigger)
		require.NotNil(t, run.WindowStart)
		require.NotNil(t, run.WindowEnd)
		assert.Nil(t, run.StartedAt)
		assert.False(t, run.IsTerminal())
		assert.Equal(t, []string{EventTypeRunCreated}, eventTypes(run.GetDomainEvents()))
	})

	t.Run("unbounded window leaves bounds nil", func(t *testing.T) {
		run, err := NewIngestionRun(SourceCodeGmail, Window{}, RunTriggerManual)
		require.NoError(t, err)
		assert.Nil(t, run.WindowStart)
		assert.Nil(t, run.WindowEnd)
		assert.True(t, run.Window().IsZero())
	})

	t.Run("window round trips", func(t *testing.T) {
		run := newTestRun(t)
		w := run.Window()
		assert.Equal(t, "2025-01-13..2025-01-20", w.String())
	})

	t.Run("fails with invalid source", func(t *testing.T) {
		_, err := NewIngestionRun("fax", Window{}, RunTriggerManual)
		assert.Error(t, err)
	})

	t.Run("fails with invalid trigger", func(t *testing.T) {
		_, err := NewIngestionRun(SourceCodeMezze, Window{}, "WHIM")
		assert.Error(t, err)
	})

	t.Run("fails with inverted window", func(t *testing.T) {
		end := time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)
		_, err := NewIngestionRun(SourceCodeMezze, Window{Start: end.Add(time.Hour), End: end}, RunTriggerManual)
		assert.Error(t, err)
	})
}

func TestIngestionRun_CleanCompletion(t *testing.T) {
	run := newTestRun(t)

	require.NoError(t, run.Start())
	assert.Equal(t, RunStatusRunning, run.Status)
	require.NotNil(t, run.StartedAt)

	summary := RunSummary{Fetched: 40, Skipped: 3, Committed: 30, Merged: 5, NoOps: 5}
	require.NoError(t, run.Complete(summary))

	assert.Equal(t, RunStatusSuccess, run.Status)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, 30, run.Summary.Committed)
	assert.True(t, run.HasCommittedWork())
	assert.True(t, run.IsTerminal())
	assert.Equal(t, []string{
		EventTypeRunCreated, EventTypeRunStarted,
		EventTypeRunCompleted, EventTypeRunCommitted,
	}, eventTypes(run.GetDomainEvents()))
}

func TestIngestionRun_PartialCompletion(t *testing.T) {
	run := newTestRun(t)
	require.NoError(t, run.Start())

	summary := RunSummary{Fetched: 40, Committed: 30, Rejected: 4, NeedsReview: 5, Conflicts: 1}
	summary.AddErrorKind(ErrorKindUnresolved)
	summary.AddErrorKind(ErrorKindUnresolved)
	summary.AddErrorKind(ErrorKindConflict)
	require.NoError(t, run.Complete(summary))

	assert.Equal(t, RunStatusPartial, run.Status)
	assert.Equal(t, 10, run.Summary.FailureCount())
	assert.Equal(t, 2, run.Summary.ErrorKinds[ErrorKindUnresolved])
	assert.Contains(t, eventTypes(run.GetDomainEvents()), EventTypeRunCommitted,
		"partial runs that committed work still trigger recompute")
}

func TestIngestionRun_NoCommittedWork(t *testing.T) {
	run := newTestRun(t)
	require.NoError(t, run.Start())

	// Everything already ingested: dedup found only no-ops.
	require.NoError(t, run.Complete(RunSummary{Fetched: 40, NoOps: 40}))

	assert.Equal(t, RunStatusSuccess, run.Status)
	assert.False(t, run.HasCommittedWork())
	assert.NotContains(t, eventTypes(run.GetDomainEvents()), EventTypeRunCommitted)
}

func TestIngestionRun_Fail(t *testing.T) {
	t.Run("from running", func(t *testing.T) {
		run := newTestRun(t)
		require.NoError(t, run.Start())
		require.NoError(t, run.Fail("sheets: quota exceeded"))

		assert.Equal(t, RunStatusFailed, run.Status)
		assert.Equal(t, "sheets: quota exceeded", run.ErrorMessage)
		require.NotNil(t, run.FinishedAt)
	})

	t.Run("from pending", func(t *testing.T) {
		run := newTestRun(t)
		require.NoError(t, run.Fail("driver not registered"))
		assert.Equal(t, RunStatusFailed, run.Status)
	})
}

func TestIngestionRun_Cancel(t *testing.T) {
	run := newTestRun(t)
	require.NoError(t, run.Start())
	require.NoError(t, run.Cancel("shutdown requested"))

	assert.Equal(t, RunStatusCancelled, run.Status)
	assert.Equal(t, "shutdown requested", run.ErrorMessage)
	assert.Contains(t, eventTypes(run.GetDomainEvents()), EventTypeRunCancelled)
}

func TestIngestionRun_IllegalMoves(t *testing.T) {
	t.Run("cannot complete before start", func(t *testing.T) {
		run := newTestRun(t)
		assert.Error(t, run.Complete(RunSummary{}))
	})

	t.Run("cannot start twice", func(t *testing.T) {
		run := newTestRun(t)
		require.NoError(t, run.Start())
		assert.Error(t, run.Start())
	})

	t.Run("terminal run is frozen", func(t *testing.T) {
		run := newTestRun(t)
		require.NoError(t, run.Start())
		require.NoError(t, run.Complete(RunSummary{Fetched: 1, Committed: 1}))

		assert.Error(t, run.Start())
		assert.Error(t, run.Fail("late"))
		assert.Error(t, run.Cancel("late"))
	})
}

func TestIngestionRun_Duration(t *testing.T) {
	run := newTestRun(t)
	assert.Zero(t, run.Duration())

	require.NoError(t, run.Start())
	started := time.Now().Add(-90 * time.Second)
	run.StartedAt = &started
	assert.GreaterOrEqual(t, run.Duration(), 90*time.Second)

	require.NoError(t, run.Complete(RunSummary{}))
	finished := started.Add(2 * time.Minute)
	run.FinishedAt = &finished
	assert.Equal(t, 2*time.Minute, run.Duration())
}

func TestRunStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, RunStatusPending.CanTransitionTo(RunStatusRunning))
	assert.True(t, RunStatusPending.CanTransitionTo(RunStatusCancelled))
	assert.True(t, RunStatusRunning.CanTransitionTo(RunStatusSuccess))
	assert.True(t, RunStatusRunning.CanTransitionTo(RunStatusPartial))
	assert.False(t, RunStatusPending.CanTransitionTo(RunStatusSuccess))
	assert.False(t, RunStatusSuccess.CanTransitionTo(RunStatusRunning))
	assert.False(t, RunStatusFailed.CanTransitionTo(RunStatusRunning))
}

func TestRunSummary_Helpers(t *testing.T) {
	var s RunSummary
	s.AddErrorKind(ErrorKindUnparseableDate)
	s.AddErrorKind(ErrorKindUnparseableDate)
	s.AddErrorKind(ErrorKindAmbiguous)

	assert.Equal(t, 2, s.ErrorKinds[ErrorKindUnparseableDate])
	assert.Equal(t, 1, s.ErrorKinds[ErrorKindAmbiguous])
	assert.Equal(t, 0, s.FailureCount())
	assert.False(t, s.HasCommittedWork())

	s.Merged = 1
	assert.True(t, s.HasCommittedWork())
}
