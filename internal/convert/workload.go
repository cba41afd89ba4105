// Package convert translates between the ManagedWorkload custom resource
// (unstructured, as the dynamic client sees it) and pkg/model types.
package convert

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/opscale/opscale-backend/pkg/model"
)

// GroupVersion of the ManagedWorkload custom resource.
const (
	Group      = "workloads.opscale.io"
	Version    = "v1alpha1"
	Kind       = "ManagedWorkload"
	Resource   = "managedworkloads"
	APIVersion = Group + "/" + Version
)

// WorkloadFromUnstructured converts a ManagedWorkload object to its model
// form. Pure function — no side effects. A record without spec.workloadID
// falls back to the resource name as its logical id.
func WorkloadFromUnstructured(obj *unstructured.Unstructured) model.ManagedWorkload {
	w := model.ManagedWorkload{
		Name:            obj.GetName(),
		Namespace:       obj.GetNamespace(),
		ResourceVersion: obj.GetResourceVersion(),
	}

	spec, ok := nestedMap(obj.Object, "spec")
	if !ok {
		w.ID = w.Name
		return w
	}

	w.ID = stringVal(spec, "workloadID")
	if w.ID == "" {
		w.ID = w.Name
	}
	w.AdminService = stringVal(spec, "adminService")
	w.AdminSecret = stringVal(spec, "adminSecret")
	w.StartupPolicy = model.StartupPolicy(stringVal(spec, "startupPolicy"))
	w.Replicas = int32Val(spec, "replicas")

	if clusters, ok := spec["clusters"].([]interface{}); ok {
		for _, c := range clusters {
			cm, ok := c.(map[string]interface{})
			if !ok {
				continue
			}
			w.ClusterOverrides = append(w.ClusterOverrides, model.ClusterOverride{
				Cluster:  stringVal(cm, "name"),
				Replicas: int32Val(cm, "replicas"),
			})
		}
	}

	return w
}

// WorkloadToUnstructured builds the full ManagedWorkload object for a
// replace call. The resourceVersion carried from the read is preserved so
// the API server can reject the write if a concurrent writer got there
// first.
func WorkloadToUnstructured(w *model.ManagedWorkload) *unstructured.Unstructured {
	spec := map[string]interface{}{
		"workloadID":   w.ID,
		"adminService": w.AdminService,
		"replicas":     int64(w.Replicas),
	}
	if w.AdminSecret != "" {
		spec["adminSecret"] = w.AdminSecret
	}
	if w.StartupPolicy != "" {
		spec["startupPolicy"] = string(w.StartupPolicy)
	}
	if len(w.ClusterOverrides) > 0 {
		clusters := make([]interface{}, 0, len(w.ClusterOverrides))
		for _, o := range w.ClusterOverrides {
			clusters = append(clusters, map[string]interface{}{
				"name":     o.Cluster,
				"replicas": int64(o.Replicas),
			})
		}
		spec["clusters"] = clusters
	}

	meta := map[string]interface{}{
		"name":      w.Name,
		"namespace": w.Namespace,
	}
	if w.ResourceVersion != "" {
		meta["resourceVersion"] = w.ResourceVersion
	}

	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": APIVersion,
		"kind":       Kind,
		"metadata":   meta,
		"spec":       spec,
	}}
}

func nestedMap(obj map[string]interface{}, key string) (map[string]interface{}, bool) {
	v, ok := obj[key]
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]interface{})
	return m, ok
}

func stringVal(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// int32Val reads an integer field. Unstructured JSON numbers decode as
// int64; float64 shows up when the object came through plain encoding/json.
func int32Val(m map[string]interface{}, key string) int32 {
	switch v := m[key].(type) {
	case int64:
		return int32(v)
	case float64:
		return int32(v)
	case int:
		return int32(v)
	default:
		return 0
	}
}
