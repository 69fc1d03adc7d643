package metrics

import (
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/graph"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Emergency metrics
	EmergenciesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bloodnet_emergencies_total",
			Help: "Emergencies handled, by outcome",
		},
		[]string{"status"},
	)

	UnitsTransferred = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bloodnet_units_transferred_total",
			Help: "Units committed to transfers, by blood type",
		},
		[]string{"blood_type"},
	)

	AllocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bloodnet_allocation_duration_seconds",
			Help:    "Time spent from local check to reservation",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"strategy"},
	)

	ScorerFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bloodnet_scorer_fallbacks_total",
			Help: "Learned scorer failures that fell back to greedy allocation",
		},
		[]string{"scorer"},
	)

	DiscoveryPath = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bloodnet_discovery_path_total",
			Help: "Source discovery runs, by path taken",
		},
		[]string{"path"},
	)

	// Ledger metrics
	ActiveReservations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bloodnet_active_reservations",
		Help: "Units currently reserved for in-flight transfers",
	})

	// Graph metrics
	GraphNodeCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bloodnet_graph_nodes",
			Help: "Nodes in the entity graph",
		},
		[]string{"node_type"},
	)

	GraphEdgeCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bloodnet_graph_edges",
			Help: "Edges in the entity graph",
		},
		[]string{"edge_type"},
	)

	// Queue metrics
	MessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bloodnet_messages_published_total",
			Help: "Messages published to the broker, by queue or topic",
		},
		[]string{"destination", "result"},
	)
)

// UpdateGraphMetrics sets the graph gauges from g.
func UpdateGraphMetrics(g *graph.Graph) {
	stats := g.Stats()
	for _, k := range []graph.Kind{graph.KindHospital, graph.KindBloodBank, graph.KindDonor, graph.KindBloodUnit, graph.KindEmergency} {
		GraphNodeCount.WithLabelValues(string(k)).Set(float64(stats.Nodes[k]))
	}
	for _, k := range []graph.EdgeKind{graph.LocatedAt, graph.HasUnit, graph.Nearby, graph.CanDonateTo, graph.AtHospital} {
		GraphEdgeCount.WithLabelValues(string(k)).Set(float64(stats.Edges[k]))
	}
}
