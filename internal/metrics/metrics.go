// Package metrics collects Prometheus metrics for the todo services.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder is what the services report to.
type Recorder interface {
	RecordCommand(command, outcome string)
	RecordLogin(mode, outcome string)
	SetCachedTodos(n int)
}

type Collector struct {
	commands    *prometheus.CounterVec
	logins      *prometheus.CounterVec
	cachedTodos prometheus.Gauge
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_commands_total",
			Help: "Todo store commands by command and outcome.",
		}, []string{"command", "outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_logins_total",
			Help: "Login attempts by mode and outcome.",
		}, []string{"mode", "outcome"}),
		cachedTodos: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "todo_cached_todos",
			Help: "Tasks currently held in the in-memory cache.",
		}),
	}

	reg.MustRegister(c.commands, c.logins, c.cachedTodos)

	return c
}

func (c *Collector) RecordCommand(command, outcome string) {
	c.commands.WithLabelValues(command, outcome).Inc()
}

func (c *Collector) RecordLogin(mode, outcome string) {
	c.logins.WithLabelValues(mode, outcome).Inc()
}

func (c *Collector) SetCachedTodos(n int) {
	c.cachedTodos.Set(float64(n))
}

// Outcome maps an error to an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// Handler serves the gathered metrics for scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type nop struct{}

func (nop) RecordCommand(string, string) {}
func (nop) RecordLogin(string, string)   {}
func (nop) SetCachedTodos(int)           {}

// Nop returns a Recorder that drops everything.
func Nop() Recorder { return nop{} }
