package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName scopes every gomokuplane instrument.
const MeterName = "gomokuplane"

// Instruments are the counters shared by the job subsystem.
type Instruments struct {
	JobsClaimed         metric.Int64Counter
	JobsCompleted       metric.Int64Counter
	JobsFailed          metric.Int64Counter
	JobsRequeued        metric.Int64Counter
	GamesPlayed         metric.Int64Counter
	MoveTimeouts        metric.Int64Counter
	MonitorRemediations metric.Int64Counter
}

// NewInstruments creates the counters on meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	var (
		inst Instruments
		err  error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&inst.JobsClaimed, "gomoku.jobs.claimed", "Tournament jobs claimed by a worker"},
		{&inst.JobsCompleted, "gomoku.jobs.completed", "Tournament jobs completed successfully"},
		{&inst.JobsFailed, "gomoku.jobs.failed", "Tournament jobs moved to failed"},
		{&inst.JobsRequeued, "gomoku.jobs.requeued", "Tournament jobs returned to pending"},
		{&inst.GamesPlayed, "gomoku.games.played", "Games recorded"},
		{&inst.MoveTimeouts, "gomoku.moves.timeouts", "Agent moves that exceeded the move timeout"},
		{&inst.MonitorRemediations, "gomoku.monitor.remediations", "Repairs applied by the health monitor"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
	}
	return &inst, nil
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	inst, _ := NewInstruments(noop.NewMeterProvider().Meter(MeterName))
	return inst
}

// Reason is the attribute attached to failure and remediation counters.
func Reason(r string) metric.AddOption {
	return metric.WithAttributes(attribute.String("reason", r))
}

// RegisterQueueDepth exports an observable gauge of pending and running jobs, read through depth on every collection.
func RegisterQueueDepth(meter metric.Meter, depth func(ctx context.Context) (pending, running int64, err error)) (metric.Registration, error) {
	gauge, err := meter.Int64ObservableGauge("gomoku.queue.depth",
		metric.WithDescription("Tournament jobs by status"))
	if err != nil {
		return nil, fmt.Errorf("failed to create queue depth gauge: %w", err)
	}
	return meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		pending, running, err := depth(ctx)
		if err != nil {
			return err
		}
		o.ObserveInt64(gauge, pending, metric.WithAttributes(attribute.String("status", "pending")))
		o.ObserveInt64(gauge, running, metric.WithAttributes(attribute.String("status", "running")))
		return nil
	}, gauge)
}
