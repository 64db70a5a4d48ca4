package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AbsenceRuns counts completed absence computations.
	AbsenceRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apars_absence_runs_total",
		Help: "Completed absence computations.",
	})
	// AbsenceRecordsWritten counts absence records written by computations.
	AbsenceRecordsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apars_absence_records_written_total",
		Help: "Absence records upserted by the calculator.",
	})
	// ExportRows counts data rows emitted by CSV exports.
	ExportRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apars_export_rows_total",
		Help: "Data rows written to CSV exports.",
	})
)
