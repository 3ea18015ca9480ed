// Package leader provides Kubernetes Lease-based leader election so that
// only one swissd replica applies schema migrations at a time.
package leader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/jensholdgaard/swiss-tournament/internal/config"
)

// ErrNotLeader is returned by Do when ctx ends before the lease is acquired.
var ErrNotLeader = errors.New("leadership not acquired")

// identity returns a unique identity for this instance.
// It uses the POD_NAME env var if set, otherwise the hostname.
func identity() string {
	if name := os.Getenv("POD_NAME"); name != "" {
		return name
	}
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

// Option configures Run and Do.
type Option func(*options)

type options struct {
	identity string
}

// WithIdentity sets the lease holder identity instead of POD_NAME or the
// hostname. Candidates sharing an identity are treated as the same holder.
func WithIdentity(id string) Option {
	return func(o *options) { o.identity = id }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.identity == "" {
		o.identity = identity()
	}
	return o
}

// ClientFactory creates a Kubernetes clientset.
// Extracted as a variable for testing.
var ClientFactory = func() (kubernetes.Interface, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("building in-cluster config: %w", err)
	}
	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating kubernetes client: %w", err)
	}
	return client, nil
}

// Run starts leader election. The onStartedLeading callback is invoked when
// this instance becomes the leader; it should block until ctx is done.
// The onStoppedLeading callback runs when leadership is lost.
// Run itself blocks until the election loop exits.
func Run(ctx context.Context, cfg config.LeaderElectionConfig, logger *slog.Logger, onStartedLeading func(ctx context.Context), onStoppedLeading func(), opts ...Option) error {
	id := buildOptions(opts).identity
	logger.Info("starting leader election",
		slog.String("identity", id),
		slog.String("lease", cfg.LeaseName),
		slog.String("namespace", cfg.LeaseNamespace),
	)

	client, err := ClientFactory()
	if err != nil {
		return fmt.Errorf("leader election client: %w", err)
	}

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      cfg.LeaseName,
			Namespace: cfg.LeaseNamespace,
		},
		Client: client.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: id,
		},
	}

	le, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
		Lock:            lock,
		LeaseDuration:   cfg.LeaseDuration,
		RenewDeadline:   cfg.RenewDeadline,
		RetryPeriod:     cfg.RetryPeriod,
		ReleaseOnCancel: true,
		Name:            cfg.LeaseName,
		Callbacks: leaderelection.LeaderCallbacks{
			OnStartedLeading: func(ctx context.Context) {
				logger.Info("acquired leadership", slog.String("identity", id))
				onStartedLeading(ctx)
			},
			OnStoppedLeading: func() {
				logger.Info("lost leadership", slog.String("identity", id))
				onStoppedLeading()
			},
			OnNewLeader: func(newID string) {
				if newID == id {
					return
				}
				logger.Info("new leader elected", slog.String("leader", newID))
			},
		},
	})
	if err != nil {
		return fmt.Errorf("configuring leader election: %w", err)
	}

	le.Run(ctx)
	return nil
}

// Do waits for leadership, runs fn once while holding the lease, then
// releases the lease and returns fn's error. Replicas that lose the race
// block until the leader releases, then run fn themselves, so fn must be
// idempotent.
func Do(ctx context.Context, cfg config.LeaderElectionConfig, logger *slog.Logger, fn func(ctx context.Context) error, opts ...Option) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	started := make(chan struct{})
	result := make(chan error, 1)

	err := Run(ctx, cfg, logger,
		func(leaderCtx context.Context) {
			close(started)
			result <- fn(leaderCtx)
			cancel()
		},
		func() {},
		opts...,
	)
	if err != nil {
		return err
	}

	select {
	case <-started:
		return <-result
	default:
		return fmt.Errorf("lease %s/%s: %w", cfg.LeaseNamespace, cfg.LeaseName, ErrNotLeader)
	}
}
