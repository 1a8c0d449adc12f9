// Package metrics records apply activity as prometheus metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "phoque"

// Registry holds phoque's metrics on a private prometheus registry.
//
// phoque is a short-lived CLI, so metrics are not served over HTTP; they are
// written to a node_exporter textfile after each run. A nil *Registry is
// valid and records nothing.
type Registry struct {
	reg *prometheus.Registry

	ApplyRuns        *prometheus.CounterVec
	Commands         *prometheus.CounterVec
	CleanupDeletions prometheus.Counter
	Rules            *prometheus.GaugeVec
}

// New creates a Registry with every metric registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		ApplyRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "apply_runs_total",
			Help:      "Apply runs by mode (dry_run, execute) and result.",
		}, []string{"mode", "result"}),
		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Rule add commands executed, by result.",
		}, []string{"result"}),
		CleanupDeletions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_deletions_total",
			Help:      "Previously applied rules deleted during cleanup.",
		}),
		Rules: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rules",
			Help:      "Rules in the collection, by state.",
		}, []string{"state"}),
	}
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// ObserveApply counts one apply run.
func (r *Registry) ObserveApply(execute, ok bool) {
	if r == nil {
		return
	}
	mode := "dry_run"
	if execute {
		mode = "execute"
	}
	r.ApplyRuns.WithLabelValues(mode, result(ok)).Inc()
}

// ObserveCommand counts one executed add command.
func (r *Registry) ObserveCommand(ok bool) {
	if r == nil {
		return
	}
	r.Commands.WithLabelValues(result(ok)).Inc()
}

// ObserveCleanup counts deletions issued by a cleanup sweep.
func (r *Registry) ObserveCleanup(deleted int) {
	if r == nil || deleted <= 0 {
		return
	}
	r.CleanupDeletions.Add(float64(deleted))
}

// SetRules records the size of the rule collection.
func (r *Registry) SetRules(active, inactive int) {
	if r == nil {
		return
	}
	r.Rules.WithLabelValues("active").Set(float64(active))
	r.Rules.WithLabelValues("inactive").Set(float64(inactive))
}

// WriteTextfile writes every metric in the text exposition format to path,
// atomically, for the node_exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
