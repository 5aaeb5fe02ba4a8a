// Package observe provides dtrack's OpenTelemetry metrics and tracing.
//
// Metrics are recorded through the OTel Metrics API. [InitProvider] bridges
// them to Prometheus so `dtrack train --metrics-addr` can expose /metrics.
// Tests should use [NewMetrics] with a ManualReader-backed provider instead
// of [DefaultMetrics] to avoid cross-test pollution.
package observe
