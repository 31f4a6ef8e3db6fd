package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusReplayed  = "replayed"
	StatusMalformed = "malformed"
	StatusSkipped   = "skipped"
)

// Metrics counts one run. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	Registry *prometheus.Registry

	games   *prometheus.CounterVec
	awards  *prometheus.CounterVec
	players prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		games: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comeback_games_total",
			Help: "Games processed, by outcome of the replay.",
		}, []string{"status"}),
		awards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comeback_awards_total",
			Help: "Comeback awards issued, by point value.",
		}, []string{"points"}),
		players: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "comeback_players",
			Help: "Players seeded into the ledger.",
		}),
	}
	reg.MustRegister(m.games, m.awards, m.players)
	return m
}

func (m *Metrics) GameProcessed(status string) {
	if m == nil {
		return
	}
	m.games.WithLabelValues(status).Inc()
}

func (m *Metrics) AwardIssued(points int) {
	if m == nil {
		return
	}
	m.awards.WithLabelValues(strconv.Itoa(points)).Inc()
}

func (m *Metrics) SetPlayers(n int) {
	if m == nil {
		return
	}
	m.players.Set(float64(n))
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
