package model

import "sort"

// ClusterState is the live view of one cluster inside a running workload,
// as reported by the workload's admin endpoint.
type ClusterState struct {
	Name string `json:"name"`
	// Size is the statically configured server count.
	Size int32 `json:"size"`
	// HasDynamicServers reports whether the cluster can grow beyond Size.
	HasDynamicServers bool `json:"hasDynamicServers"`
	// MaxDynamicSize is the dynamic-capacity ceiling; meaningful only when
	// HasDynamicServers is true.
	MaxDynamicSize int32 `json:"maxDynamicSize"`
}

// EffectiveCapacity is the largest replica count the cluster can currently
// provide: static size plus the dynamic ceiling when dynamic servers exist.
func (c ClusterState) EffectiveCapacity() int32 {
	if c.HasDynamicServers {
		return c.Size + c.MaxDynamicSize
	}
	return c.Size
}

// WorkloadTopology is an ephemeral snapshot of one live workload's clusters.
// It is recomputed on every request and never cached across requests —
// topology can change between calls.
type WorkloadTopology struct {
	Clusters map[string]ClusterState `json:"clusters"`
}

// Cluster looks up the named cluster in the snapshot.
func (t *WorkloadTopology) Cluster(name string) (ClusterState, bool) {
	c, ok := t.Clusters[name]
	return c, ok
}

// ClusterNames returns the cluster names sorted ascending.
func (t *WorkloadTopology) ClusterNames() []string {
	names := make([]string, 0, len(t.Clusters))
	for name := range t.Clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
