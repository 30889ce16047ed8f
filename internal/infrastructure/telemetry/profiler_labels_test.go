package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithProfilingLabels_RunsFunction(t *testing.T) {
	ran := false
	WithProfilingLabels(context.Background(), IngestionLabels("csv-drop"), func(ctx context.Context) {
		ran = true
		assert.NotNil(t, ctx)
	})
	assert.True(t, ran)

	// Empty label set must still run the function
	ran = false
	WithProfilingLabels(context.Background(), nil, func(ctx context.Context) { ran = true })
	assert.True(t, ran)
}

func TestFlattenLabels(t *testing.T) {
	flat := flattenLabels(map[string]string{
		"operation": "ingestion_run",
		"empty":     "",
		"":          "dropped",
		"long":      strings.Repeat("x", MaxLabelValueLength+10),
	})

	// pairs come back flattened key,value
	assert.Len(t, flat, 4)
	for i := 0; i < len(flat); i += 2 {
		if flat[i] == "long" {
			assert.Len(t, flat[i+1], MaxLabelValueLength)
		}
	}
	assert.Contains(t, flat, "operation")
	assert.NotContains(t, flat, "empty")
	assert.NotContains(t, flat, "dropped")
}

func TestLabelSets(t *testing.T) {
	assert.Equal(t, "ingestion_run", IngestionLabels("gmail")["operation"])
	assert.Equal(t, "gmail", IngestionLabels("gmail")["source_code"])
	assert.Equal(t, "weekly", ReportLabels("weekly")["granularity"])
	assert.Equal(t, "/api/v1/timeseries", HTTPRequestLabels("/api/v1/timeseries", "GET")["route"])
}
