package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/infrastructure/config"
)

func TestNewS3PayloadArchive_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3PayloadArchive(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		cfg := &config.ArchiveConfig{
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
		}
		_, err := NewS3PayloadArchive(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("access key without secret returns error", func(t *testing.T) {
		cfg := &config.ArchiveConfig{
			Bucket:      "mezze-raw",
			AccessKeyID: "test-key",
		}
		_, err := NewS3PayloadArchive(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "set together")
	})

	t.Run("valid MinIO-style config creates archive", func(t *testing.T) {
		cfg := &config.ArchiveConfig{
			Bucket:          "mezze-raw",
			Endpoint:        "http://localhost:9000",
			Region:          "us-west-2",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
			UsePathStyle:    true,
		}
		archive, err := NewS3PayloadArchive(cfg)
		require.NoError(t, err)
		require.NotNil(t, archive)
		assert.Equal(t, "mezze-raw", archive.bucket)
	})

	t.Run("bare endpoint gains https scheme", func(t *testing.T) {
		cfg := &config.ArchiveConfig{
			Bucket:          "mezze-raw",
			Endpoint:        "storage.internal:9000",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
		}
		_, err := NewS3PayloadArchive(cfg)
		require.NoError(t, err)
	})
}

func newTestRun(t *testing.T) *ingestion.IngestionRun {
	t.Helper()
	window, err := ingestion.NewWindow(
		time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	run, err := ingestion.NewIngestionRun(ingestion.SourceCodeCSVDrop, window, ingestion.RunTriggerSchedule)
	require.NoError(t, err)
	return run
}

func TestFetchEnvelope(t *testing.T) {
	run := newTestRun(t)
	fetchedAt := time.Date(2026, 1, 15, 8, 30, 0, 0, time.UTC)
	archivedAt := time.Date(2026, 1, 15, 8, 30, 5, 0, time.UTC)
	records := []ingestion.RawRecord{
		{
			SourceCode: ingestion.SourceCodeCSVDrop,
			SourceRef:  "psfh-jan.csv:3",
			Fields:     map[string]string{"account": "Crown Market", "quantity": "3 cs"},
			Provenance: map[string]string{"file": "psfh-jan.csv", "row": "3"},
			FetchedAt:  fetchedAt,
		},
	}

	envelope := newFetchEnvelope(run, records, archivedAt)

	assert.Equal(t, run.ID.String(), envelope.RunID)
	assert.Equal(t, "csv-drop", envelope.SourceCode)
	require.NotNil(t, envelope.WindowStart)
	require.NotNil(t, envelope.WindowEnd)
	assert.Equal(t, run.Window().Start, *envelope.WindowStart)
	assert.Equal(t, run.Window().End, *envelope.WindowEnd)
	require.Len(t, envelope.Records, 1)
	assert.Equal(t, "psfh-jan.csv:3", envelope.Records[0].SourceRef)
	assert.Equal(t, "Crown Market", envelope.Records[0].Fields["account"])

	payload, err := json.Marshal(envelope)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "csv-drop", decoded["source_code"])
	assert.Contains(t, decoded, "records")
}

func TestFetchEnvelope_UnboundedWindowOmitsBounds(t *testing.T) {
	run, err := ingestion.NewIngestionRun(ingestion.SourceCodeGmail, ingestion.Window{}, ingestion.RunTriggerSchedule)
	require.NoError(t, err)

	envelope := newFetchEnvelope(run, nil, time.Now().UTC())

	assert.Nil(t, envelope.WindowStart)
	assert.Nil(t, envelope.WindowEnd)
	assert.Empty(t, envelope.Records)
}

func TestArchiveKey(t *testing.T) {
	run := newTestRun(t)
	archivedAt := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)

	key := archiveKey(run, archivedAt)

	assert.Equal(t, "raw/csv-drop/2026/02/"+run.ID.String()+".json", key)
}
