package persist

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	statements       *prometheus.CounterVec
	statementErrors  *prometheus.CounterVec
	flushes          prometheus.Counter
	orphansTargeted  prometheus.Counter
	orphansDeleted   prometheus.Counter
	orphansUnmatched prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orphanage",
			Name:      "statements_total",
			Help:      "SQL statements executed, by kind.",
		}, []string{"kind"}),
		statementErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orphanage",
			Name:      "statement_errors_total",
			Help:      "SQL statements that returned an error, by kind.",
		}, []string{"kind"}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orphanage",
			Name:      "flushes_total",
			Help:      "Committed non-empty flushes.",
		}),
		orphansTargeted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orphanage",
			Name:      "orphans_targeted_total",
			Help:      "Orphaned children included in a batch delete.",
		}),
		orphansDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orphanage",
			Name:      "orphans_deleted_total",
			Help:      "Rows removed by orphan batch deletes.",
		}),
		orphansUnmatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orphanage",
			Name:      "orphans_unmatched_total",
			Help:      "Orphans a batch delete targeted but did not remove.",
		}),
	}
	reg.MustRegister(
		m.statements,
		m.statementErrors,
		m.flushes,
		m.orphansTargeted,
		m.orphansDeleted,
		m.orphansUnmatched,
	)
	return m
}
