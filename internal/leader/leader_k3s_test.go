package leader

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/k3s"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/jensholdgaard/swiss-tournament/internal/config"
)

func newK3sClient(ctx context.Context, t *testing.T) kubernetes.Interface {
	t.Helper()

	ctr, err := k3s.Run(ctx, "rancher/k3s:v1.31.6-k3s1")
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("starting k3s container: %v", err)
	}

	kubeconfig, err := ctr.GetKubeConfig(ctx)
	if err != nil {
		t.Fatalf("getting kubeconfig: %v", err)
	}
	restCfg, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		t.Fatalf("building rest config: %v", err)
	}
	client, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		t.Fatalf("creating kubernetes client: %v", err)
	}
	return client
}

// TestDo_K3sSerializesMigrations runs three replicas' migration step against
// a real API server and checks they take turns on the lease.
// Skipped in short mode.
func TestDo_K3sSerializesMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping k3s integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	client := newK3sClient(ctx, t)
	useClient(t, client)

	cfg := config.LeaderElectionConfig{
		Enabled:        true,
		LeaseName:      "swissd-migrate",
		LeaseNamespace: "default",
		LeaseDuration:  5 * time.Second,
		RenewDeadline:  3 * time.Second,
		RetryPeriod:    500 * time.Millisecond,
	}

	candidates := []string{"swissd-0", "swissd-1", "swissd-2"}
	runs := runCandidates(ctx, t, cfg, 2*time.Second, candidates...)
	assertSerialized(t, runs, candidates...)

	// Every replica released on return, so the lease is free.
	lease, err := client.CoordinationV1().Leases(cfg.LeaseNamespace).Get(ctx, cfg.LeaseName, metav1.GetOptions{})
	if err != nil {
		t.Fatalf("getting lease: %v", err)
	}
	if holder := lease.Spec.HolderIdentity; holder != nil && *holder != "" {
		t.Errorf("lease still held by %q after all replicas finished", *holder)
	}
}
