package access

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts synchronisation outcomes. A nil *Metrics records nothing.
type Metrics struct {
	syncs      *prometheus.CounterVec
	unresolved prometheus.Counter
	grants     prometheus.Counter
}

// NewMetrics registers the access collectors against registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	syncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_access_syncs_total",
		Help: "Album access synchronisations partitioned by stage and result.",
	}, []string{"stage", "result"})
	unresolved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "odyssey_access_unresolved_emails_total",
		Help: "Invite emails that matched no account during role sync.",
	})
	grants := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "odyssey_access_backfill_grants_total",
		Help: "Role memberships materialised by account backfill.",
	})
	if registerer != nil {
		registerer.MustRegister(syncs, unresolved, grants)
	}
	return &Metrics{syncs: syncs, unresolved: unresolved, grants: grants}
}

func (m *Metrics) observe(stage string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.syncs.WithLabelValues(stage, result).Inc()
}

func (m *Metrics) addUnresolved(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.unresolved.Add(float64(n))
}

func (m *Metrics) addGrants(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.grants.Add(float64(n))
}
