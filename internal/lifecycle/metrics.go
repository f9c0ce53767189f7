package lifecycle

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"pkt.systems/pslog"
)

type runnerMetrics struct {
	state         metric.Int64ObservableGauge
	tokensCreated metric.Int64Counter
	renewFailures metric.Int64Counter
	loginFailures metric.Int64Counter
	sleeps        metric.Int64Counter
}

func newRunnerMetrics(logger pslog.Logger, runner *Runner) *runnerMetrics {
	meter := otel.Meter("github.com/ianferguson/leasekeeper")
	m := &runnerMetrics{}
	var err error

	m.state, err = meter.Int64ObservableGauge(
		"leasekeeper.runner.state",
		metric.WithDescription("Current lifecycle runner state (0=Starting,1=Acquiring,2=RenewLoop,3=Backoff,4=Terminated)"),
	)
	logMetricInitError(logger, "leasekeeper.runner.state", err)

	m.tokensCreated, err = meter.Int64Counter(
		"leasekeeper.tokens_created",
		metric.WithDescription("Number of leases obtained via Login"),
	)
	logMetricInitError(logger, "leasekeeper.tokens_created", err)

	m.renewFailures, err = meter.Int64Counter(
		"leasekeeper.renew_failures",
		metric.WithDescription("Number of failed Renew calls"),
	)
	logMetricInitError(logger, "leasekeeper.renew_failures", err)

	m.loginFailures, err = meter.Int64Counter(
		"leasekeeper.login_failures",
		metric.WithDescription("Number of failed Login calls"),
	)
	logMetricInitError(logger, "leasekeeper.login_failures", err)

	m.sleeps, err = meter.Int64Counter(
		"leasekeeper.sleeps",
		metric.WithDescription("Number of Sleeper.Sleep invocations issued by the runner"),
	)
	logMetricInitError(logger, "leasekeeper.sleeps", err)

	if m.state != nil {
		if _, err := meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			if runner == nil {
				return nil
			}
			o.ObserveInt64(m.state, int64(runner.State()))
			return nil
		}, m.state); err != nil && logger != nil {
			logger.Warn("telemetry.metric.callback_failed", "name", "leasekeeper.runner.state", "error", err)
		}
	}

	return m
}

func (m *runnerMetrics) recordTokenCreated(ctx context.Context) {
	if m == nil || m.tokensCreated == nil {
		return
	}
	m.tokensCreated.Add(metricContext(ctx), 1)
}

func (m *runnerMetrics) recordRenewFailure(ctx context.Context) {
	if m == nil || m.renewFailures == nil {
		return
	}
	m.renewFailures.Add(metricContext(ctx), 1)
}

func (m *runnerMetrics) recordLoginFailure(ctx context.Context) {
	if m == nil || m.loginFailures == nil {
		return
	}
	m.loginFailures.Add(metricContext(ctx), 1)
}

func (m *runnerMetrics) recordSleep(ctx context.Context, phase string) {
	if m == nil || m.sleeps == nil {
		return
	}
	m.sleeps.Add(metricContext(ctx), 1, metric.WithAttributes(attribute.String("leasekeeper.phase", phase)))
}

func metricContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func logMetricInitError(logger pslog.Logger, name string, err error) {
	if err == nil || logger == nil {
		return
	}
	logger.Warn("telemetry.metric.init_failed", "name", name, "error", err)
}
