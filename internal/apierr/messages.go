package apierr

// Operator-facing message formats. Every caller-visible failure built by
// the backend goes through one of these so wording stays in one place.
const (
	// MsgWorkloadNotFound takes the workload id.
	MsgWorkloadNotFound = "no managed workload with id %q in the visible namespaces"
	// MsgClusterNotConfigured takes the cluster name and workload id.
	MsgClusterNotConfigured = "cluster %q is not configured for workload %q"
	// MsgInvalidReplicaCount takes the requested count.
	MsgInvalidReplicaCount = "requested replica count %d is invalid: must be >= 0"
	// MsgScaleExceedsCapacity takes the requested count, the effective
	// capacity, and the cluster name.
	MsgScaleExceedsCapacity = "requested replica count %d exceeds the configured capacity %d of cluster %q"
	// MsgStartupPolicyBlocksScale takes the policy value and the cluster name.
	MsgStartupPolicyBlocksScale = "startup policy %q is not AUTO: scaling cluster %q would be ignored by the controller"
	// MsgDuplicateWorkloadID takes the id and the two namespaces.
	MsgDuplicateWorkloadID = "workload id %q found in namespaces %q and %q: ids must be globally unique"
	// MsgTokenReviewEmptyUser is raised when a token review reports success
	// without a principal.
	MsgTokenReviewEmptyUser = "token review returned authenticated status without a user"
)
