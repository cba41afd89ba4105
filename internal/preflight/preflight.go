// Package preflight verifies that the backend's own service account holds
// the permissions it needs before serving requests, via
// SelfSubjectAccessReview. It checks the backend's access, not a caller's:
// per-request caller checks live in internal/authz.
package preflight

import (
	"context"
	"fmt"

	authorizationv1 "k8s.io/api/authorization/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/opscale/opscale-backend/internal/convert"
)

// requirement is one verb the backend needs on one resource.
type requirement struct {
	group    string
	resource string
	verb     string
}

// requirements lists every permission the backend exercises: workload
// listing and replacement, token reviews, subject access reviews, and
// admin-secret reads.
var requirements = []requirement{
	{convert.Group, convert.Resource, "list"},
	{convert.Group, convert.Resource, "get"},
	{convert.Group, convert.Resource, "update"},
	{"authentication.k8s.io", "tokenreviews", "create"},
	{"authorization.k8s.io", "subjectaccessreviews", "create"},
	{"", "secrets", "get"},
}

// Result reports one requirement's verdict.
type Result struct {
	Group    string
	Resource string
	Verb     string
	Allowed  bool
}

func (r Result) String() string {
	state := "denied"
	if r.Allowed {
		state = "allowed"
	}
	group := r.Group
	if group == "" {
		group = "core"
	}
	return fmt.Sprintf("%s %s/%s: %s", r.Verb, group, r.Resource, state)
}

// Check reviews every requirement and returns all verdicts. Errors are
// only returned for review transport failures, not for denials.
func Check(ctx context.Context, client kubernetes.Interface) ([]Result, error) {
	results := make([]Result, 0, len(requirements))
	for _, req := range requirements {
		allowed, err := checkAccess(ctx, client, req)
		if err != nil {
			return nil, err
		}
		results = append(results, Result{
			Group:    req.group,
			Resource: req.resource,
			Verb:     req.verb,
			Allowed:  allowed,
		})
	}
	return results, nil
}

// AllAllowed reports whether every requirement passed.
func AllAllowed(results []Result) bool {
	for _, r := range results {
		if !r.Allowed {
			return false
		}
	}
	return true
}

// checkAccess creates a SelfSubjectAccessReview for a single requirement.
func checkAccess(ctx context.Context, client kubernetes.Interface, req requirement) (bool, error) {
	review := &authorizationv1.SelfSubjectAccessReview{
		Spec: authorizationv1.SelfSubjectAccessReviewSpec{
			ResourceAttributes: &authorizationv1.ResourceAttributes{
				Verb:     req.verb,
				Group:    req.group,
				Resource: req.resource,
			},
		},
	}

	result, err := client.AuthorizationV1().SelfSubjectAccessReviews().Create(ctx, review, metav1.CreateOptions{})
	if err != nil {
		return false, fmt.Errorf("SelfSubjectAccessReview for %s/%s verb=%s: %w", req.group, req.resource, req.verb, err)
	}

	return result.Status.Allowed, nil
}
