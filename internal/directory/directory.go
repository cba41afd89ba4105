// Package directory enumerates and resolves ManagedWorkload records across
// a fixed set of visible namespaces, and writes scale updates back.
package directory

import (
	"context"
	"sort"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"

	"github.com/opscale/opscale-backend/internal/apierr"
	"github.com/opscale/opscale-backend/internal/convert"
	"github.com/opscale/opscale-backend/pkg/model"
)

var workloadGVR = schema.GroupVersionResource{
	Group:    convert.Group,
	Version:  convert.Version,
	Resource: convert.Resource,
}

// Directory lists and resolves ManagedWorkload records. The namespace set
// is fixed at construction: it is the session's visible scope for every
// listing and lookup.
type Directory struct {
	client     dynamic.Interface
	namespaces []string
}

// New creates a Directory scoped to the given namespaces.
func New(client dynamic.Interface, namespaces []string) *Directory {
	return &Directory{client: client, namespaces: namespaces}
}

// List queries every visible namespace and returns the merged records
// sorted by workload ID. Any namespace query failure aborts the whole call
// with Upstream: a partial listing is indistinguishable from data loss. A
// workload ID appearing in two records violates the uniqueness invariant
// and fails Internal.
func (d *Directory) List(ctx context.Context) ([]model.ManagedWorkload, error) {
	var records []model.ManagedWorkload
	seen := make(map[string]string) // id -> namespace

	for _, ns := range d.namespaces {
		list, err := d.client.Resource(workloadGVR).Namespace(ns).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, apierr.Wrap(apierr.Upstream, err, "listing managed workloads in namespace %q failed", ns)
		}
		for i := range list.Items {
			w := convert.WorkloadFromUnstructured(&list.Items[i])
			if prev, dup := seen[w.ID]; dup {
				return nil, apierr.Newf(apierr.Internal, apierr.MsgDuplicateWorkloadID, w.ID, prev, w.Namespace)
			}
			seen[w.ID] = w.Namespace
			records = append(records, w)
		}
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// ListIDs returns the workload IDs sorted ascending.
func (d *Directory) ListIDs(ctx context.Context) ([]string, error) {
	records, err := d.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for _, w := range records {
		ids = append(ids, w.ID)
	}
	return ids, nil
}

// FindByID resolves a workload ID to its record. A linear scan over the
// full listing: the visible namespace set and record count are
// operationally small.
func (d *Directory) FindByID(ctx context.Context, id string) (*model.ManagedWorkload, error) {
	records, err := d.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, apierr.Newf(apierr.NotFound, apierr.MsgWorkloadNotFound, id)
}

// Replace writes the full record back, keyed by name and namespace. The
// record's resourceVersion rides along, so a concurrent writer surfaces as
// Conflict rather than being silently overwritten. Callers re-read
// immediately before calling Replace; retry on Conflict is their decision.
func (d *Directory) Replace(ctx context.Context, w *model.ManagedWorkload) error {
	obj := convert.WorkloadToUnstructured(w)
	_, err := d.client.Resource(workloadGVR).Namespace(w.Namespace).Update(ctx, obj, metav1.UpdateOptions{})
	if err != nil {
		if apierrors.IsConflict(err) {
			return apierr.Wrap(apierr.Conflict, err, "workload %q was modified concurrently", w.ID)
		}
		return apierr.Wrap(apierr.Upstream, err, "replacing workload %q in namespace %q failed", w.ID, w.Namespace)
	}
	return nil
}
