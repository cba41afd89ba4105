// Package authz answers allow/deny questions through the Kubernetes
// SubjectAccessReview API. It returns verdicts only; turning a deny into a
// Forbidden failure is the session's job.
package authz

import (
	"context"

	authorizationv1 "k8s.io/api/authorization/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/opscale/opscale-backend/internal/apierr"
	"github.com/opscale/opscale-backend/internal/convert"
	"github.com/opscale/opscale-backend/pkg/model"
)

// Authorizer checks whether a verified identity may perform a verb on
// managedworkloads resources.
type Authorizer struct {
	client kubernetes.Interface
}

// NewAuthorizer creates an Authorizer backed by the given clientset.
func NewAuthorizer(client kubernetes.Interface) *Authorizer {
	return &Authorizer{client: client}
}

// Allowed submits a SubjectAccessReview for the identity. workloadID and
// namespace may be empty: an empty namespace asks for a cluster-scoped
// verdict. Only review transport failures produce an error (Upstream); a
// deny is a plain false.
func (a *Authorizer) Allowed(ctx context.Context, id *model.Identity, verb, workloadID, namespace string) (bool, error) {
	review := &authorizationv1.SubjectAccessReview{
		Spec: authorizationv1.SubjectAccessReviewSpec{
			User:   id.Username,
			Groups: id.Groups,
			ResourceAttributes: &authorizationv1.ResourceAttributes{
				Verb:      verb,
				Group:     convert.Group,
				Resource:  convert.Resource,
				Name:      workloadID,
				Namespace: namespace,
			},
		},
	}

	result, err := a.client.AuthorizationV1().SubjectAccessReviews().Create(ctx, review, metav1.CreateOptions{})
	if err != nil {
		return false, apierr.Wrap(apierr.Upstream, err, "subject access review for %s %s failed", verb, convert.Resource)
	}

	return result.Status.Allowed, nil
}
