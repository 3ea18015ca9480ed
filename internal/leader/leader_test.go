package leader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/jensholdgaard/swiss-tournament/internal/config"
)

func TestIdentity_FromPodName(t *testing.T) {
	t.Setenv("POD_NAME", "swissd-abc123")
	if got := identity(); got != "swissd-abc123" {
		t.Errorf("identity() = %q, want %q", got, "swissd-abc123")
	}
}

func TestIdentity_Hostname(t *testing.T) {
	t.Setenv("POD_NAME", "")
	host, err := os.Hostname()
	if err != nil {
		t.Skip("cannot get hostname")
	}
	if got := identity(); got != host {
		t.Errorf("identity() = %q, want %q", got, host)
	}
}

func useClient(t *testing.T, client kubernetes.Interface) {
	t.Helper()
	orig := ClientFactory
	ClientFactory = func() (kubernetes.Interface, error) { return client, nil }
	t.Cleanup(func() { ClientFactory = orig })
}

func useFakeClient(t *testing.T) {
	t.Helper()
	useClient(t, fake.NewClientset())
}

type run struct {
	candidate  string
	start, end time.Time
}

// runCandidates calls Do concurrently for each candidate identity on one
// lease. Each fn holds the lease for hold before returning. It returns the
// recorded runs in completion order.
func runCandidates(ctx context.Context, t *testing.T, cfg config.LeaderElectionConfig, hold time.Duration, candidates ...string) []run {
	t.Helper()

	var (
		mu   sync.Mutex
		runs []run
		wg   sync.WaitGroup
	)
	errs := make(chan error, len(candidates))
	for _, c := range candidates {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := Do(ctx, cfg, slog.Default(), func(ctx context.Context) error {
				r := run{candidate: c, start: time.Now()}
				select {
				case <-time.After(hold):
				case <-ctx.Done():
					return ctx.Err()
				}
				r.end = time.Now()
				mu.Lock()
				runs = append(runs, r)
				mu.Unlock()
				return nil
			}, WithIdentity(c))
			if err != nil {
				errs <- fmt.Errorf("candidate %s: %w", c, err)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Do() error = %v", err)
	}
	return runs
}

// assertSerialized fails unless every candidate ran exactly once and no two
// runs overlapped.
func assertSerialized(t *testing.T, runs []run, candidates ...string) {
	t.Helper()

	seen := make(map[string]int)
	for _, r := range runs {
		seen[r.candidate]++
	}
	for _, c := range candidates {
		if seen[c] != 1 {
			t.Errorf("candidate %s ran %d times, want 1", c, seen[c])
		}
	}
	for i := 1; i < len(runs); i++ {
		prev, cur := runs[i-1], runs[i]
		if cur.start.Before(prev.end) {
			t.Errorf("%s started at %s before %s finished at %s",
				cur.candidate, cur.start.Format(time.StampMicro),
				prev.candidate, prev.end.Format(time.StampMicro))
		}
	}
}

func testConfig() config.LeaderElectionConfig {
	return config.LeaderElectionConfig{
		Enabled:        true,
		LeaseName:      "swissd-migrate-test",
		LeaseNamespace: "default",
		LeaseDuration:  2 * time.Second,
		RenewDeadline:  time.Second,
		RetryPeriod:    200 * time.Millisecond,
	}
}

func TestDo_RunsOnceAsLeader(t *testing.T) {
	useFakeClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	calls := 0
	err := Do(ctx, testConfig(), slog.Default(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestDo_ReturnsFnError(t *testing.T) {
	useFakeClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	want := errors.New("migration failed")
	err := Do(ctx, testConfig(), slog.Default(), func(context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Errorf("Do() error = %v, want %v", err, want)
	}
}

func TestDo_CanceledBeforeLeadership(t *testing.T) {
	useFakeClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, testConfig(), slog.Default(), func(context.Context) error {
		t.Error("fn must not run without leadership")
		return nil
	})
	if !errors.Is(err, ErrNotLeader) {
		t.Errorf("Do() error = %v, want ErrNotLeader", err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	useFakeClient(t)
	cfg := testConfig()
	cfg.RenewDeadline = cfg.LeaseDuration

	err := Run(context.Background(), cfg, slog.Default(), func(context.Context) {}, func() {})
	if err == nil {
		t.Fatal("Run() with renew_deadline >= lease_duration succeeded, want error")
	}
}

func TestRun_ClientFactoryError(t *testing.T) {
	orig := ClientFactory
	ClientFactory = func() (kubernetes.Interface, error) { return nil, errors.New("no cluster") }
	t.Cleanup(func() { ClientFactory = orig })

	err := Run(context.Background(), testConfig(), slog.Default(), func(context.Context) {}, func() {})
	if err == nil {
		t.Fatal("Run() succeeded without a client")
	}
}

func TestDo_SerializesCandidates(t *testing.T) {
	useFakeClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	candidates := []string{"swissd-0", "swissd-1"}
	runs := runCandidates(ctx, t, testConfig(), 300*time.Millisecond, candidates...)
	assertSerialized(t, runs, candidates...)
}
