package events

import (
	"github.com/vinayprograms/agentkit/telemetry"
	"github.com/vinayprograms/court/internal/trial"
)

// exporter is the part of telemetry.Exporter used here.
type exporter interface {
	LogEvent(name string, fields map[string]interface{})
}

// Telemetry logs run events to a telemetry exporter.
type Telemetry struct {
	exp  exporter
	runs runTracker
}

// NewTelemetry creates an OTLP exporter for protocol and endpoint, or a
// no-op exporter when disabled. The returned close func must be called.
func NewTelemetry(enabled bool, protocol, endpoint string) (*Telemetry, func(), error) {
	var (
		exp telemetry.Exporter
		err error
	)
	if enabled {
		exp, err = telemetry.NewExporter(protocol, endpoint)
		if err != nil {
			return nil, nil, err
		}
	} else {
		exp = telemetry.NewNoopExporter()
	}
	return &Telemetry{exp: exp}, func() { exp.Close() }, nil
}

// Observe logs e under its kind. Lookups are too chatty and are skipped.
func (t *Telemetry) Observe(e trial.Event) {
	run := t.runs.stamp(e)
	if e.Kind == trial.EventLookup {
		return
	}
	t.exp.LogEvent(string(e.Kind), NewMessage(run, e).Fields())
}
