package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	clienttesting "k8s.io/client-go/testing"

	"github.com/opscale/opscale-backend/internal/apierr"
	"github.com/opscale/opscale-backend/internal/convert"
	"github.com/opscale/opscale-backend/pkg/model"
)

func workloadObject(id, name, namespace string, replicas int64) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": convert.APIVersion,
		"kind":       convert.Kind,
		"metadata": map[string]interface{}{
			"name":      name,
			"namespace": namespace,
		},
		"spec": map[string]interface{}{
			"workloadID":   id,
			"adminService": name + "-admin",
			"replicas":     replicas,
		},
	}}
}

func newFakeDynamicClient(objects ...runtime.Object) *dynamicfake.FakeDynamicClient {
	scheme := runtime.NewScheme()
	listKinds := map[schema.GroupVersionResource]string{
		workloadGVR: convert.Kind + "List",
	}
	return dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme, listKinds, objects...)
}

func TestList_MergesAndSortsAcrossNamespaces(t *testing.T) {
	client := newFakeDynamicClient(
		workloadObject("zeta", "zeta", "ns2", 1),
		workloadObject("alpha", "alpha", "ns1", 2),
		workloadObject("mid", "mid", "ns2", 3),
	)
	dir := New(client, []string{"ns1", "ns2"})

	records, err := dir.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "alpha", records[0].ID)
	assert.Equal(t, "mid", records[1].ID)
	assert.Equal(t, "zeta", records[2].ID)
}

func TestList_OrderIndependentOfNamespaceOrder(t *testing.T) {
	client := newFakeDynamicClient(
		workloadObject("b", "b", "ns1", 1),
		workloadObject("a", "a", "ns2", 1),
	)

	forward, err := New(client, []string{"ns1", "ns2"}).ListIDs(context.Background())
	require.NoError(t, err)
	reversed, err := New(client, []string{"ns2", "ns1"}).ListIDs(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, forward)
	assert.Equal(t, forward, reversed)
}

func TestList_EmptyNamespaceTolerated(t *testing.T) {
	client := newFakeDynamicClient(workloadObject("only", "only", "ns1", 1))
	dir := New(client, []string{"ns1", "empty-ns"})

	ids, err := dir.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, ids)
}

func TestList_NamespaceFailureAbortsWholeCall(t *testing.T) {
	client := newFakeDynamicClient(workloadObject("w1", "w1", "ns1", 1))
	client.PrependReactor("list", "managedworkloads", func(action clienttesting.Action) (bool, runtime.Object, error) {
		if action.GetNamespace() == "ns2" {
			return true, nil, errors.New("etcd timeout")
		}
		return false, nil, nil
	})
	dir := New(client, []string{"ns1", "ns2"})

	records, err := dir.List(context.Background())
	assert.Nil(t, records, "no partial results on namespace failure")
	assert.Equal(t, apierr.Upstream, apierr.KindOf(err))
}

func TestList_DuplicateIDAcrossNamespacesIsConflict(t *testing.T) {
	client := newFakeDynamicClient(
		workloadObject("dup", "dup", "ns1", 1),
		workloadObject("dup", "dup", "ns2", 1),
	)
	dir := New(client, []string{"ns1", "ns2"})

	_, err := dir.List(context.Background())
	require.Error(t, err, "duplicate ids must not be silently deduplicated")
	assert.Equal(t, apierr.Internal, apierr.KindOf(err))
	assert.Contains(t, err.Error(), "dup")
}

func TestFindByID(t *testing.T) {
	client := newFakeDynamicClient(
		workloadObject("w1", "w1", "ns1", 2),
		workloadObject("w2", "w2", "ns2", 4),
	)
	dir := New(client, []string{"ns1", "ns2"})

	w, err := dir.FindByID(context.Background(), "w2")
	require.NoError(t, err)
	assert.Equal(t, "ns2", w.Namespace)
	assert.Equal(t, int32(4), w.Replicas)

	_, err = dir.FindByID(context.Background(), "ghost")
	assert.Equal(t, apierr.NotFound, apierr.KindOf(err))
	assert.Contains(t, err.Error(), `"ghost"`)
}

func TestReplace_PersistsFullRecord(t *testing.T) {
	client := newFakeDynamicClient(workloadObject("w1", "w1", "ns1", 2))
	dir := New(client, []string{"ns1"})

	w, err := dir.FindByID(context.Background(), "w1")
	require.NoError(t, err)
	w.SetReplicasFor("c1", 5)
	require.NoError(t, dir.Replace(context.Background(), w))

	got, err := dir.FindByID(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, int32(5), got.Replicas)
}

func TestReplace_ConflictSurfaced(t *testing.T) {
	client := newFakeDynamicClient(workloadObject("w1", "w1", "ns1", 2))
	client.PrependReactor("update", "managedworkloads", func(action clienttesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewConflict(
			schema.GroupResource{Group: convert.Group, Resource: convert.Resource},
			"w1", errors.New("object has been modified"))
	})
	dir := New(client, []string{"ns1"})

	err := dir.Replace(context.Background(), &model.ManagedWorkload{
		ID: "w1", Name: "w1", Namespace: "ns1", AdminService: "w1-admin", Replicas: 3,
	})
	assert.Equal(t, apierr.Conflict, apierr.KindOf(err))
}

func TestReplace_TransportFailureIsUpstream(t *testing.T) {
	client := newFakeDynamicClient(workloadObject("w1", "w1", "ns1", 2))
	client.PrependReactor("update", "managedworkloads", func(action clienttesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("connection reset")
	})
	dir := New(client, []string{"ns1"})

	err := dir.Replace(context.Background(), &model.ManagedWorkload{
		ID: "w1", Name: "w1", Namespace: "ns1", AdminService: "w1-admin", Replicas: 3,
	})
	assert.Equal(t, apierr.Upstream, apierr.KindOf(err))
}
