package model

// StartupPolicy is the legacy operating-mode flag carried by a
// ManagedWorkload. When set to anything other than PolicyAutomatic the
// downstream controller ignores the domain-level replica count, so scale
// requests that would rely on it are rejected rather than silently dropped.
type StartupPolicy string

// PolicyAutomatic is the only startup policy under which domain-level
// replica changes take effect.
const PolicyAutomatic StartupPolicy = "AUTO"

// ClusterOverride pins a replica count for one named cluster, taking
// precedence over the workload's domain-level Replicas value.
type ClusterOverride struct {
	Cluster  string `json:"cluster"`
	Replicas int32  `json:"replicas"`
}

// ManagedWorkload is the decoded form of one ManagedWorkload custom
// resource: a managed clustered application whose desired size is scaled
// through this backend. Records are created and deleted by other operator
// machinery; this backend only reads them and updates replica fields.
type ManagedWorkload struct {
	// ID is the globally unique logical identifier (spec.workloadID).
	// Exactly one record carries a given ID across all visible namespaces.
	ID        string `json:"id"`
	Name      string `json:"name"`
	Namespace string `json:"namespace"`

	// ResourceVersion is carried from the read so that a replace can be
	// conflict-checked against concurrent writers.
	ResourceVersion string `json:"resource_version"`

	// AdminService names the admin endpoint service used to reach the
	// live workload's management API.
	AdminService string `json:"admin_service"`
	// AdminSecret optionally names the Secret holding admin credentials.
	AdminSecret string `json:"admin_secret,omitempty"`

	// StartupPolicy is empty when the record uses the current lifecycle
	// configuration.
	StartupPolicy StartupPolicy `json:"startup_policy,omitempty"`

	// Replicas is the domain-level desired replica count, used for any
	// cluster without an override.
	Replicas         int32             `json:"replicas"`
	ClusterOverrides []ClusterOverride `json:"cluster_overrides,omitempty"`
}

// ReplicasFor returns the desired replica count for the named cluster:
// the per-cluster override when one exists, else the domain-level value.
// The second return reports whether an override was found.
func (w *ManagedWorkload) ReplicasFor(cluster string) (int32, bool) {
	for _, o := range w.ClusterOverrides {
		if o.Cluster == cluster {
			return o.Replicas, true
		}
	}
	return w.Replicas, false
}

// SetReplicasFor writes the desired replica count for the named cluster to
// the location ReplicasFor reads from: an existing override if present,
// otherwise the domain-level field. It never creates a new override.
func (w *ManagedWorkload) SetReplicasFor(cluster string, replicas int32) {
	for i := range w.ClusterOverrides {
		if w.ClusterOverrides[i].Cluster == cluster {
			w.ClusterOverrides[i].Replicas = replicas
			return
		}
	}
	w.Replicas = replicas
}

// ScaleRequest asks for one cluster of one workload to be scaled to a
// desired replica count. Replicas >= 0 is a precondition checked by the
// reconciler; the request itself is never persisted.
type ScaleRequest struct {
	WorkloadID string `json:"workload_id"`
	Cluster    string `json:"cluster"`
	Replicas   int32  `json:"replicas"`
}
