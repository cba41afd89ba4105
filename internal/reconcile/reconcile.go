// Package reconcile decides whether, and how, a scale request mutates a
// ManagedWorkload record. A write happens only when it changes observable
// state, and never for more replicas than the live cluster can provide.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/opscale/opscale-backend/internal/apierr"
	"github.com/opscale/opscale-backend/internal/observability"
	"github.com/opscale/opscale-backend/internal/topology"
	"github.com/opscale/opscale-backend/pkg/model"
)

// WorkloadStore is the slice of the workload directory the reconciler
// needs: resolve a record, write it back.
type WorkloadStore interface {
	FindByID(ctx context.Context, id string) (*model.ManagedWorkload, error)
	Replace(ctx context.Context, w *model.ManagedWorkload) error
}

// Reconciler validates scale requests against live capacity and applies
// the resulting record update. It runs strictly after authorization.
type Reconciler struct {
	store   WorkloadStore
	fetcher topology.Fetcher
	metrics *observability.Metrics
	logger  *slog.Logger
}

// New creates a Reconciler.
func New(store WorkloadStore, fetcher topology.Fetcher, metrics *observability.Metrics, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, fetcher: fetcher, metrics: metrics, logger: logger}
}

// Scale runs one scale request to completion:
//
//	validate count -> resolve record -> snapshot topology -> admit against
//	capacity -> no-op or (legacy gate -> apply -> replace)
//
// Identical repeated requests are no-ops: they produce zero write traffic
// and skip the legacy-mode gate. Admission happens before any mutation; a
// request that fails leaves the record untouched.
func (r *Reconciler) Scale(ctx context.Context, req model.ScaleRequest) error {
	if req.Replicas < 0 {
		r.reject()
		return apierr.Newf(apierr.InvalidArgument, apierr.MsgInvalidReplicaCount, req.Replicas)
	}

	start := time.Now()
	workload, err := r.store.FindByID(ctx, req.WorkloadID)
	r.metrics.ObserveUpstream(observability.CollaboratorDirectory, start)
	if err != nil {
		r.reject()
		return err
	}

	start = time.Now()
	topo, err := r.fetcher.Topology(ctx, workload.Namespace, workload.AdminService, workload.AdminSecret)
	r.metrics.ObserveUpstream(observability.CollaboratorTopology, start)
	if err != nil {
		r.reject()
		return err
	}
	cluster, ok := topo.Cluster(req.Cluster)
	if !ok {
		r.reject()
		return apierr.Newf(apierr.NotFound, apierr.MsgClusterNotConfigured, req.Cluster, req.WorkloadID)
	}

	capacity := cluster.EffectiveCapacity()
	if req.Replicas > capacity {
		r.reject()
		return apierr.Newf(apierr.InvalidArgument, apierr.MsgScaleExceedsCapacity, req.Replicas, capacity, req.Cluster)
	}

	current, overridden := workload.ReplicasFor(req.Cluster)
	if req.Replicas == current {
		r.logger.Info("scale request is a no-op",
			"workload_id", req.WorkloadID,
			"cluster", req.Cluster,
			"replicas", req.Replicas,
		)
		if r.metrics != nil {
			r.metrics.ScaleWritesTotal.WithLabelValues(observability.WriteNoop).Inc()
		}
		return nil
	}

	// Evaluated only on the changed path: an identical request must stay a
	// no-op success even under a non-automatic policy.
	if workload.StartupPolicy != "" && workload.StartupPolicy != model.PolicyAutomatic {
		r.reject()
		return apierr.Newf(apierr.InvalidArgument, apierr.MsgStartupPolicyBlocksScale, workload.StartupPolicy, req.Cluster)
	}

	workload.SetReplicasFor(req.Cluster, req.Replicas)
	start = time.Now()
	err = r.store.Replace(ctx, workload)
	r.metrics.ObserveUpstream(observability.CollaboratorDirectory, start)
	if err != nil {
		r.reject()
		return err
	}

	r.logger.Info("scaled cluster",
		"workload_id", req.WorkloadID,
		"cluster", req.Cluster,
		"namespace", workload.Namespace,
		"from", current,
		"to", req.Replicas,
		"overridden", overridden,
		"capacity", capacity,
	)
	if r.metrics != nil {
		r.metrics.ScaleWritesTotal.WithLabelValues(observability.WritePersisted).Inc()
	}
	return nil
}

func (r *Reconciler) reject() {
	if r.metrics != nil {
		r.metrics.ScaleWritesTotal.WithLabelValues(observability.WriteRejected).Inc()
	}
}
