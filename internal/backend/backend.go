// Package backend implements the per-request session behind the
// administrative API: one verified identity, five operations, every
// mutating or listing operation gated by an authorization check.
package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"

	"github.com/opscale/opscale-backend/internal/apierr"
	"github.com/opscale/opscale-backend/internal/authn"
	"github.com/opscale/opscale-backend/internal/authz"
	"github.com/opscale/opscale-backend/internal/config"
	"github.com/opscale/opscale-backend/internal/directory"
	"github.com/opscale/opscale-backend/internal/observability"
	"github.com/opscale/opscale-backend/internal/reconcile"
	"github.com/opscale/opscale-backend/internal/topology"
	"github.com/opscale/opscale-backend/pkg/model"
)

// Verbs checked against the policy gateway.
const (
	VerbList   = "list"
	VerbGet    = "get"
	VerbUpdate = "update"
)

// Authenticator verifies a credential once, at session construction.
type Authenticator interface {
	Verify(ctx context.Context, token string) (*model.Identity, error)
}

// Authorizer answers allow/deny for one action of one identity.
type Authorizer interface {
	Allowed(ctx context.Context, id *model.Identity, verb, workloadID, namespace string) (bool, error)
}

// WorkloadDirectory is the record lookup surface the session needs.
type WorkloadDirectory interface {
	ListIDs(ctx context.Context) ([]string, error)
	FindByID(ctx context.Context, id string) (*model.ManagedWorkload, error)
}

// Scaler runs an authorized scale request to completion.
type Scaler interface {
	Scale(ctx context.Context, req model.ScaleRequest) error
}

// Backend holds the long-lived collaborators shared by all sessions. It is
// safe for arbitrary request-level parallelism: sessions share no mutable
// state.
type Backend struct {
	authenticator Authenticator
	authorizer    Authorizer
	directory     WorkloadDirectory
	fetcher       topology.Fetcher
	scaler        Scaler
	metrics       *observability.Metrics
	logger        *slog.Logger
}

// New wires a Backend from Kubernetes clients and config. The visible
// namespace set comes from cfg and is fixed for every session.
func New(kube kubernetes.Interface, dyn dynamic.Interface, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	dir := directory.New(dyn, cfg.TargetNamespaces)
	fetcher := topology.NewHTTPFetcher(kube, cfg)
	return &Backend{
		authenticator: authn.NewTokenReviewer(kube),
		authorizer:    authz.NewAuthorizer(kube),
		directory:     dir,
		fetcher:       fetcher,
		scaler:        reconcile.New(dir, fetcher, metrics, logger),
		metrics:       metrics,
		logger:        logger,
	}
}

// Session owns one verified identity for the life of one inbound call.
// The identity is assigned exactly once, at construction, and never
// mutated afterward.
type Session struct {
	backend   *Backend
	identity  *model.Identity
	principal string
	requestID string
	logger    *slog.Logger
}

// NewSession authenticates the credential and returns a session for one
// request. An invalid or expired credential fails Unauthenticated; a token
// review that succeeds without a principal fails Internal.
func (b *Backend) NewSession(ctx context.Context, principal, token string) (*Session, error) {
	start := time.Now()
	identity, err := b.authenticator.Verify(ctx, token)
	b.metrics.ObserveUpstream(observability.CollaboratorIdentity, start)
	if err != nil {
		if b.metrics != nil {
			b.metrics.SessionsTotal.WithLabelValues(observability.OutcomeError).Inc()
		}
		return nil, err
	}
	if b.metrics != nil {
		b.metrics.SessionsTotal.WithLabelValues(observability.OutcomeSuccess).Inc()
	}

	requestID := uuid.New().String()
	return &Session{
		backend:   b,
		identity:  identity,
		principal: principal,
		requestID: requestID,
		logger: b.logger.With(
			"request_id", requestID,
			"username", identity.Username,
		),
	}, nil
}

// Identity returns the session's verified identity.
func (s *Session) Identity() model.Identity {
	return *s.identity
}

// Timed collaborator calls. Every directory and topology round trip is
// observed under its collaborator label.

func (s *Session) listIDs(ctx context.Context) ([]string, error) {
	start := time.Now()
	defer s.backend.metrics.ObserveUpstream(observability.CollaboratorDirectory, start)
	return s.backend.directory.ListIDs(ctx)
}

func (s *Session) findWorkload(ctx context.Context, id string) (*model.ManagedWorkload, error) {
	start := time.Now()
	defer s.backend.metrics.ObserveUpstream(observability.CollaboratorDirectory, start)
	return s.backend.directory.FindByID(ctx, id)
}

func (s *Session) liveTopology(ctx context.Context, w *model.ManagedWorkload) (*model.WorkloadTopology, error) {
	start := time.Now()
	defer s.backend.metrics.ObserveUpstream(observability.CollaboratorTopology, start)
	return s.backend.fetcher.Topology(ctx, w.Namespace, w.AdminService, w.AdminSecret)
}

// WorkloadIDs lists the ids of all visible workloads, sorted ascending.
func (s *Session) WorkloadIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.instrument("listWorkloadIds", func() error {
		if err := s.authorize(ctx, "", VerbList); err != nil {
			return err
		}
		var err error
		ids, err = s.listIDs(ctx)
		return err
	})
	return ids, err
}

// IsKnownWorkload reports whether a workload with the given id is visible.
func (s *Session) IsKnownWorkload(ctx context.Context, id string) (bool, error) {
	var known bool
	err := s.instrument("isKnownWorkload", func() error {
		if err := s.authorize(ctx, "", VerbList); err != nil {
			return err
		}
		ids, err := s.listIDs(ctx)
		if err != nil {
			return err
		}
		for _, candidate := range ids {
			if candidate == id {
				known = true
				break
			}
		}
		return nil
	})
	return known, err
}

// Clusters returns the live cluster names of one workload, sorted
// ascending. The listing comes from the running workload's admin endpoint,
// not from the declarative record.
func (s *Session) Clusters(ctx context.Context, id string) ([]string, error) {
	var names []string
	err := s.instrument("listClusters", func() error {
		if err := s.authorize(ctx, id, VerbGet); err != nil {
			return err
		}
		workload, err := s.findWorkload(ctx, id)
		if err != nil {
			return err
		}
		topo, err := s.liveTopology(ctx, workload)
		if err != nil {
			return err
		}
		names = topo.ClusterNames()
		return nil
	})
	return names, err
}

// IsKnownCluster reports whether the named cluster exists in the
// workload's live topology. Membership is a listing question, so the
// gate is a namespace-scoped list check, not get.
func (s *Session) IsKnownCluster(ctx context.Context, id, cluster string) (bool, error) {
	var known bool
	err := s.instrument("isKnownCluster", func() error {
		if err := s.authorize(ctx, id, VerbList); err != nil {
			return err
		}
		workload, err := s.findWorkload(ctx, id)
		if err != nil {
			return err
		}
		topo, err := s.liveTopology(ctx, workload)
		if err != nil {
			return err
		}
		_, known = topo.Cluster(cluster)
		return nil
	})
	return known, err
}

// ScaleCluster scales one cluster of one workload to the desired replica
// count. Validation precedes authorization, matching the request state
// machine: Start -> Validated -> Resolved -> Authorized -> Snapshotted.
func (s *Session) ScaleCluster(ctx context.Context, id, cluster string, replicas int32) error {
	return s.instrument("scaleCluster", func() error {
		if replicas < 0 {
			return apierr.Newf(apierr.InvalidArgument, apierr.MsgInvalidReplicaCount, replicas)
		}
		if err := s.authorize(ctx, id, VerbUpdate); err != nil {
			return err
		}
		return s.backend.scaler.Scale(ctx, model.ScaleRequest{
			WorkloadID: id,
			Cluster:    cluster,
			Replicas:   replicas,
		})
	})
}

// authorize gates one operation. An empty workload id asks for a
// cluster-scoped verdict; otherwise the owning namespace is resolved
// first. A missing workload fails NotFound here too — "workload doesn't
// exist" must never be treated as "allowed". A denial carries no reason.
func (s *Session) authorize(ctx context.Context, workloadID, verb string) error {
	namespace := ""
	if workloadID != "" {
		workload, err := s.findWorkload(ctx, workloadID)
		if err != nil {
			return err
		}
		namespace = workload.Namespace
	}

	start := time.Now()
	allowed, err := s.backend.authorizer.Allowed(ctx, s.identity, verb, workloadID, namespace)
	s.backend.metrics.ObserveUpstream(observability.CollaboratorPolicy, start)
	if err != nil {
		return err
	}
	if !allowed {
		s.logger.Info("authorization denied",
			"verb", verb,
			"workload_id", workloadID,
		)
		return apierr.New(apierr.Forbidden, "")
	}
	return nil
}

// instrument wraps one operation with outcome metrics and logging.
func (s *Session) instrument(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	if m := s.backend.metrics; m != nil {
		outcome := observability.OutcomeSuccess
		if err != nil {
			outcome = observability.OutcomeError
		}
		m.RequestsTotal.WithLabelValues(operation, outcome).Inc()
		m.RequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	}

	if err != nil {
		kind := apierr.KindOf(err)
		if kind == apierr.Internal {
			s.logger.Error("operation failed with internal error",
				"operation", operation,
				"error", err,
			)
		} else {
			s.logger.Info("operation failed",
				"operation", operation,
				"kind", string(kind),
				"error", err,
			)
		}
	}
	return err
}
