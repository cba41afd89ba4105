// Package authn verifies caller credentials through the Kubernetes
// TokenReview API.
package authn

import (
	"context"
	"log/slog"

	authenticationv1 "k8s.io/api/authentication/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/opscale/opscale-backend/internal/apierr"
	"github.com/opscale/opscale-backend/pkg/model"
)

// TokenReviewer turns a raw bearer token into a verified identity.
type TokenReviewer struct {
	client kubernetes.Interface
}

// NewTokenReviewer creates a TokenReviewer backed by the given clientset.
func NewTokenReviewer(client kubernetes.Interface) *TokenReviewer {
	return &TokenReviewer{client: client}
}

// Verify submits the token for review and returns the verified identity.
// Review transport failures map to Upstream; a rejected or unauthenticated
// token maps to Unauthenticated. A review that reports success without a
// username violates the collaborator contract and maps to Internal.
func (r *TokenReviewer) Verify(ctx context.Context, token string) (*model.Identity, error) {
	review := &authenticationv1.TokenReview{
		Spec: authenticationv1.TokenReviewSpec{Token: token},
	}

	result, err := r.client.AuthenticationV1().TokenReviews().Create(ctx, review, metav1.CreateOptions{})
	if err != nil {
		return nil, apierr.Wrap(apierr.Upstream, err, "token review request failed")
	}

	status := result.Status
	if status.Error != "" {
		return nil, apierr.Newf(apierr.Unauthenticated, "token rejected: %s", status.Error)
	}
	if !status.Authenticated {
		// The review gave no reason; don't invent one.
		return nil, apierr.New(apierr.Unauthenticated, "token not authenticated")
	}
	if status.User.Username == "" {
		slog.Error("token review contract violation", "status", status.String())
		return nil, apierr.New(apierr.Internal, apierr.MsgTokenReviewEmptyUser)
	}

	return &model.Identity{
		Username: status.User.Username,
		Groups:   status.User.Groups,
	}, nil
}
