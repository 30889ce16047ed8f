package telemetry

import (
	"context"
	"runtime/pprof"
)

// MaxLabelValueLength bounds profile label values; Pyroscope truncates
// long values and unbounded cardinality bloats the profile store
const MaxLabelValueLength = 128

// WithProfilingLabels runs fn with pprof labels attached so profiles
// can be filtered by what the process was doing.
//
//	telemetry.WithProfilingLabels(ctx, telemetry.IngestionLabels("gmail"), func(ctx context.Context) {
//	    // fetch + pipeline work
//	})
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	if len(labels) == 0 {
		fn(ctx)
		return
	}
	pprof.Do(ctx, pprof.Labels(flattenLabels(labels)...), fn)
}

// IngestionLabels returns the label set for ingestion run work
func IngestionLabels(sourceCode string) map[string]string {
	return map[string]string{
		"operation":   "ingestion_run",
		"source_code": sourceCode,
	}
}

// ReportLabels returns the label set for timeseries recompute work
func ReportLabels(granularity string) map[string]string {
	return map[string]string{
		"operation":   "report_recompute",
		"granularity": granularity,
	}
}

// HTTPRequestLabels returns the label set for request handling
func HTTPRequestLabels(route, method string) map[string]string {
	return map[string]string{
		"operation": "http_request",
		"route":     route,
		"method":    method,
	}
}

func flattenLabels(labels map[string]string) []string {
	flat := make([]string, 0, len(labels)*2)
	for key, value := range labels {
		if key == "" || value == "" {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		flat = append(flat, key, value)
	}
	return flat
}
