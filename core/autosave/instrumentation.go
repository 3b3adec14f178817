package autosave

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/prep-core/core/autosave"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	savesIssued    metric.Int64Counter
	savesDiscarded metric.Int64Counter
	savesFailed    metric.Int64Counter
)

func init() {
	// Instrument creation only fails on invalid names; the returned
	// instrument is a usable no-op in that case.
	savesIssued, _ = meter.Int64Counter("autosave.saves",
		metric.WithDescription("Draft save requests sent to the backend."))
	savesDiscarded, _ = meter.Int64Counter("autosave.discarded",
		metric.WithDescription("Save responses dropped because a newer local edit exists."))
	savesFailed, _ = meter.Int64Counter("autosave.failures",
		metric.WithDescription("Draft save requests that returned an error."))
}
