// opscale-admin is the operator CLI for the scaling backend: it lists
// managed workloads, shows their live clusters, and scales a cluster to a
// desired replica count. Every invocation runs as one authenticated
// request session.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	_ "github.com/KimMachineGun/automemlimit"
	_ "go.uber.org/automaxprocs"

	"github.com/spf13/cobra"

	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/opscale/opscale-backend/internal/apierr"
	"github.com/opscale/opscale-backend/internal/backend"
	"github.com/opscale/opscale-backend/internal/config"
	"github.com/opscale/opscale-backend/internal/observability"
	"github.com/opscale/opscale-backend/internal/preflight"
)

func main() {
	var (
		token     = os.Getenv("OPSCALE_TOKEN")
		principal = envOr("OPSCALE_PRINCIPAL", "opscale-admin")
	)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:   "opscale-admin",
		Short: "Administer managed workload scaling",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return fmt.Errorf("missing access token (flag --token or env OPSCALE_TOKEN)")
			}
			return nil
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&token, "token", token, "bearer token reviewed against the cluster (env OPSCALE_TOKEN)")
	root.PersistentFlags().StringVar(&principal, "principal", principal, "principal name recorded for this client (env OPSCALE_PRINCIPAL)")

	newSession := func(ctx context.Context) (*backend.Session, error) {
		restCfg := buildKubeConfig()
		kubeClient := kubernetes.NewForConfigOrDie(restCfg)
		dynamicClient := dynamic.NewForConfigOrDie(restCfg)

		b := backend.New(kubeClient, dynamicClient, &cfg, observability.NewMetrics(), slog.Default())
		return b.NewSession(ctx, principal, token)
	}

	root.AddCommand(&cobra.Command{
		Use:   "workloads",
		Short: "List the ids of all visible managed workloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := newSession(cmd.Context())
			if err != nil {
				return describe(err)
			}
			ids, err := session.WorkloadIDs(cmd.Context())
			if err != nil {
				return describe(err)
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "clusters <workload-id>",
		Short: "List the live clusters of one workload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := newSession(cmd.Context())
			if err != nil {
				return describe(err)
			}
			names, err := session.Clusters(cmd.Context(), args[0])
			if err != nil {
				return describe(err)
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "scale <workload-id> <cluster> <replicas>",
		Short: "Scale one cluster of one workload to a desired replica count",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			replicas, err := strconv.ParseInt(args[2], 10, 32)
			if err != nil {
				return fmt.Errorf("replicas must be an integer, got %q", args[2])
			}
			session, err := newSession(cmd.Context())
			if err != nil {
				return describe(err)
			}
			if err := session.ScaleCluster(cmd.Context(), args[0], args[1], int32(replicas)); err != nil {
				return describe(err)
			}
			fmt.Printf("scaled %s/%s to %d\n", args[0], args[1], replicas)
			return nil
		},
	})

	preflightCmd := &cobra.Command{
		Use:   "preflight",
		Short: "Verify this client's own cluster permissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kubeClient := kubernetes.NewForConfigOrDie(buildKubeConfig())
			results, err := preflight.Check(cmd.Context(), kubeClient)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Println(r)
			}
			if !preflight.AllAllowed(results) {
				return fmt.Errorf("missing permissions")
			}
			return nil
		},
	}
	// Preflight only talks to the local cluster; no caller token involved.
	preflightCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error { return nil }
	root.AddCommand(preflightCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// describe prefixes a backend failure with its status classification so
// shell callers can tell a 404 from a 502.
func describe(err error) error {
	kind := apierr.KindOf(err)
	return fmt.Errorf("%s (HTTP %d): %w", kind, apierr.HTTPStatus(kind), err)
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// buildKubeConfig creates a Kubernetes REST config.
// It tries in-cluster config first, then falls back to kubeconfig file
// (from $KUBECONFIG or the default ~/.kube/config).
func buildKubeConfig() *rest.Config {
	cfg, err := rest.InClusterConfig()
	if err == nil {
		slog.Info("using in-cluster kubernetes config")
		return cfg
	}

	kubeconfig := os.Getenv("KUBECONFIG")
	if kubeconfig == "" {
		kubeconfig = clientcmd.RecommendedHomeFile
	}

	cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		slog.Error("failed to build kubernetes config", "error", err)
		os.Exit(1)
	}
	slog.Info("using kubeconfig file", "path", kubeconfig)
	return cfg
}
