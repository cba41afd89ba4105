package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authorizationv1 "k8s.io/api/authorization/v1"
	"k8s.io/apimachinery/pkg/runtime"
	fakeclientset "k8s.io/client-go/kubernetes/fake"
	clienttesting "k8s.io/client-go/testing"

	"github.com/opscale/opscale-backend/internal/apierr"
	"github.com/opscale/opscale-backend/pkg/model"
)

var testIdentity = &model.Identity{
	Username: "jane",
	Groups:   []string{"operators"},
}

// addSubjectAccessReviewReactor installs a reactor that records the
// submitted review spec and answers with the given verdict.
func addSubjectAccessReviewReactor(client *fakeclientset.Clientset, allowed bool, captured *authorizationv1.SubjectAccessReviewSpec) {
	client.PrependReactor("create", "subjectaccessreviews", func(action clienttesting.Action) (bool, runtime.Object, error) {
		review := action.(clienttesting.CreateAction).GetObject().(*authorizationv1.SubjectAccessReview)
		if captured != nil {
			*captured = review.Spec
		}
		return true, &authorizationv1.SubjectAccessReview{
			Status: authorizationv1.SubjectAccessReviewStatus{Allowed: allowed},
		}, nil
	})
}

func TestAllowed_NamespaceScoped(t *testing.T) {
	client := fakeclientset.NewSimpleClientset()
	var spec authorizationv1.SubjectAccessReviewSpec
	addSubjectAccessReviewReactor(client, true, &spec)

	ok, err := NewAuthorizer(client).Allowed(context.Background(), testIdentity, "update", "w1", "team-a")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, "jane", spec.User)
	assert.Equal(t, []string{"operators"}, spec.Groups)
	require.NotNil(t, spec.ResourceAttributes)
	assert.Equal(t, "update", spec.ResourceAttributes.Verb)
	assert.Equal(t, "workloads.opscale.io", spec.ResourceAttributes.Group)
	assert.Equal(t, "managedworkloads", spec.ResourceAttributes.Resource)
	assert.Equal(t, "w1", spec.ResourceAttributes.Name)
	assert.Equal(t, "team-a", spec.ResourceAttributes.Namespace)
}

func TestAllowed_ClusterScoped(t *testing.T) {
	client := fakeclientset.NewSimpleClientset()
	var spec authorizationv1.SubjectAccessReviewSpec
	addSubjectAccessReviewReactor(client, true, &spec)

	_, err := NewAuthorizer(client).Allowed(context.Background(), testIdentity, "list", "", "")
	require.NoError(t, err)
	assert.Empty(t, spec.ResourceAttributes.Name)
	assert.Empty(t, spec.ResourceAttributes.Namespace)
}

func TestAllowed_Denied(t *testing.T) {
	client := fakeclientset.NewSimpleClientset()
	addSubjectAccessReviewReactor(client, false, nil)

	ok, err := NewAuthorizer(client).Allowed(context.Background(), testIdentity, "update", "w1", "team-a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAllowed_TransportFailure(t *testing.T) {
	client := fakeclientset.NewSimpleClientset()
	client.PrependReactor("create", "subjectaccessreviews", func(action clienttesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("apiserver unavailable")
	})

	_, err := NewAuthorizer(client).Allowed(context.Background(), testIdentity, "list", "", "")
	assert.Equal(t, apierr.Upstream, apierr.KindOf(err))
}
