// Package topology reads the live cluster layout of a running workload
// from its admin endpoint. Every call hits the endpoint fresh: snapshots
// are never reused across requests.
package topology

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/opscale/opscale-backend/internal/apierr"
	"github.com/opscale/opscale-backend/internal/config"
	"github.com/opscale/opscale-backend/pkg/model"
)

// Fetcher returns a live topology snapshot for one workload. Failures are
// Upstream from the core's point of view; retry policy does not live here.
type Fetcher interface {
	Topology(ctx context.Context, namespace, adminService, adminSecret string) (*model.WorkloadTopology, error)
}

// topologyDocument is the wire shape served by the admin endpoint at
// /management/topology.
type topologyDocument struct {
	Clusters []model.ClusterState `json:"clusters"`
}

// HTTPFetcher reads topology over HTTP from the admin service of the
// workload's namespace, authenticating with basic credentials from the
// referenced Secret when one is named.
type HTTPFetcher struct {
	kube       kubernetes.Interface
	httpClient *http.Client
	scheme     string
	port       int
}

// NewHTTPFetcher creates an HTTPFetcher using the endpoint settings from cfg.
func NewHTTPFetcher(kube kubernetes.Interface, cfg *config.Config) *HTTPFetcher {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
	if cfg.AdminInsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &HTTPFetcher{
		kube: kube,
		httpClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		scheme: cfg.AdminScheme,
		port:   cfg.AdminPort,
	}
}

// Topology fetches the current cluster layout for one workload.
func (f *HTTPFetcher) Topology(ctx context.Context, namespace, adminService, adminSecret string) (*model.WorkloadTopology, error) {
	username, password, err := f.credentials(ctx, namespace, adminSecret)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s://%s.%s.svc:%d/management/topology", f.scheme, adminService, namespace, f.port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apierr.Wrap(apierr.Upstream, err, "building topology request for %s", url)
	}
	if username != "" {
		req.SetBasicAuth(username, password)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, apierr.Wrap(apierr.Upstream, err, "admin endpoint %s unreachable", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apierr.Newf(apierr.Upstream, "admin endpoint %s returned HTTP %d", url, resp.StatusCode)
	}

	var doc topologyDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, apierr.Wrap(apierr.Upstream, err, "decoding topology from %s failed", url)
	}

	topo := &model.WorkloadTopology{Clusters: make(map[string]model.ClusterState, len(doc.Clusters))}
	for _, c := range doc.Clusters {
		topo.Clusters[c.Name] = c
	}
	return topo, nil
}

// credentials reads the admin username/password from the named Secret.
// An empty secret name means the endpoint is unauthenticated.
func (f *HTTPFetcher) credentials(ctx context.Context, namespace, secretName string) (string, string, error) {
	if secretName == "" {
		return "", "", nil
	}
	secret, err := f.kube.CoreV1().Secrets(namespace).Get(ctx, secretName, metav1.GetOptions{})
	if err != nil {
		return "", "", apierr.Wrap(apierr.Upstream, err, "reading admin secret %q in namespace %q failed", secretName, namespace)
	}
	return string(secret.Data["username"]), string(secret.Data["password"]), nil
}
