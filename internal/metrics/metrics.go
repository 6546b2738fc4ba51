package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counters for run-level accounting. Dropped rounds and invalid items are
// the two places this system can lose data by design; both must be
// observable so operators can tell a clean run from a lossy one.
var (
	RoundsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "molgen_rounds_completed_total",
		Help: "Rounds whose output was written to the artifact.",
	})
	RoundsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "molgen_rounds_dropped_total",
		Help: "Rounds whose output was skipped after the evaluation stage failed.",
	})
	RoundRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "molgen_round_retries_total",
		Help: "Evaluation stage retries after an infrastructure failure.",
	})
	MoleculesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "molgen_molecules_written_total",
		Help: "Lines appended to the output artifact, sentinels included.",
	})
	InvalidMolecules = promauto.NewCounter(prometheus.CounterOpts{
		Name: "molgen_invalid_molecules_total",
		Help: "Generated strings replaced by the sentinel after failing decode or canonicalization.",
	})
)

// Serve exposes the prometheus registry on addr. It blocks, so callers run
// it on its own goroutine; errors are returned to the caller rather than fatal
// because metrics are optional.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
