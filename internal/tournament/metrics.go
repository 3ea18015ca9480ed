package tournament

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// RegisterMetrics publishes tournament and player counts as observable
// gauges and counts reported matches. Call it once, before the Manager is
// shared between goroutines.
func (m *Manager) RegisterMetrics(meter metric.Meter) error {
	tournaments, err := meter.Int64ObservableGauge("swiss.tournaments",
		metric.WithDescription("Number of registered tournaments."),
	)
	if err != nil {
		return fmt.Errorf("creating tournaments gauge: %w", err)
	}
	players, err := meter.Int64ObservableGauge("swiss.players",
		metric.WithDescription("Number of registered players across all tournaments."),
	)
	if err != nil {
		return fmt.Errorf("creating players gauge: %w", err)
	}
	reported, err := meter.Int64Counter("swiss.matches.reported",
		metric.WithDescription("Match results recorded since start."),
	)
	if err != nil {
		return fmt.Errorf("creating matches counter: %w", err)
	}

	_, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		nt, err := m.tournaments.Count(ctx)
		if err != nil {
			return fmt.Errorf("counting tournaments: %w", err)
		}
		np, err := m.players.Count(ctx)
		if err != nil {
			return fmt.Errorf("counting players: %w", err)
		}
		o.ObserveInt64(tournaments, int64(nt))
		o.ObserveInt64(players, int64(np))
		return nil
	}, tournaments, players)
	if err != nil {
		return fmt.Errorf("registering metrics callback: %w", err)
	}

	m.reported = reported
	return nil
}
