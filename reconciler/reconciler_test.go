package reconciler_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/ingress-configurator/config"
	"github.com/canonical/ingress-configurator/reconciler"
	"github.com/canonical/ingress-configurator/relation"
	"github.com/canonical/ingress-configurator/relation/haproxyroute"
	"github.com/canonical/ingress-configurator/relation/haproxyroutetcp"
	"github.com/canonical/ingress-configurator/relation/ingress"
)

func newRelation(name string) *relation.Relation {
	return &relation.Relation{Name: name, App: relation.Databag{}, LocalApp: relation.Databag{}}
}

func reconcile(t *testing.T, snap *reconciler.Snapshot) (reconciler.Status, *reconciler.Recorder) {
	t.Helper()
	recorder := &reconciler.Recorder{}
	r := &reconciler.Reconciler{Reporter: recorder}
	status := r.Reconcile(context.Background(), snap)
	require.NotNil(t, recorder.Last)
	assert.Equal(t, status, *recorder.Last)
	return status, recorder
}

func TestReconcileMissingRouteRelation(t *testing.T) {
	status, _ := reconcile(t, &reconciler.Snapshot{
		Config: config.New("testing", "app", map[string]string{
			"backend-addresses": "10.0.0.1",
			"backend-ports":     "8080",
		}),
	})

	assert.Equal(t, reconciler.StatusBlocked, status.Kind)
	assert.Equal(t, "Missing haproxy-route relation.", status.Message)
}

func TestReconcileIntegratorHappyPath(t *testing.T) {
	routeRel := newRelation(haproxyroute.Name)
	status, _ := reconcile(t, &reconciler.Snapshot{
		Config: config.New("testing", "app", map[string]string{
			"backend-addresses": "10.0.0.1,10.0.0.2",
			"backend-ports":     "8080,8081",
		}),
		Relations: []*relation.Relation{routeRel},
	})

	assert.Equal(t, reconciler.StatusActive, status.Kind)

	raw := haproxyroute.Published(routeRel)
	require.NotEmpty(t, raw)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	assert.Equal(t, []any{"10.0.0.1", "10.0.0.2"}, payload["hosts"])
	assert.Equal(t, []any{float64(8080), float64(8081)}, payload["ports"])
	assert.Equal(t, "testing-app", payload["service"])
}

func TestReconcileInvalidConfigBlocked(t *testing.T) {
	routeRel := newRelation(haproxyroute.Name)
	status, _ := reconcile(t, &reconciler.Snapshot{
		Config: config.New("testing", "app", map[string]string{
			"backend-addresses": "10.0.0.1,invalid",
			"backend-ports":     "8080",
		}),
		Relations: []*relation.Relation{routeRel},
	})

	assert.Equal(t, reconciler.StatusBlocked, status.Kind)
	assert.Contains(t, status.Message, "backend-addresses[1]")
	// nothing may be published for an invalid state
	assert.Empty(t, haproxyroute.Published(routeRel))
}

func TestReconcileAmbiguousOriginBlocked(t *testing.T) {
	ingressRel := newRelation(ingress.Name)
	ingressRel.App.Set("port", "8080")
	ingressRel.Units = []relation.Databag{{"ip": "10.1.0.5"}}

	status, _ := reconcile(t, &reconciler.Snapshot{
		Config: config.New("testing", "app", map[string]string{
			"backend-addresses": "10.0.0.1",
			"backend-ports":     "8080",
		}),
		Relations: []*relation.Relation{newRelation(haproxyroute.Name), ingressRel},
	})

	assert.Equal(t, reconciler.StatusBlocked, status.Kind)
	assert.Equal(t, "Both integrator and adapter configurations are set.", status.Message)
}

func TestReconcileAdapterMode(t *testing.T) {
	routeRel := newRelation(haproxyroute.Name)
	ingressRel := newRelation(ingress.Name)
	ingressRel.App.Set("port", "8080")
	ingressRel.Units = []relation.Databag{{"ip": "10.1.0.5"}}

	status, _ := reconcile(t, &reconciler.Snapshot{
		Config:    config.New("testing", "app", nil),
		Relations: []*relation.Relation{routeRel, ingressRel},
	})

	assert.Equal(t, reconciler.StatusActive, status.Kind)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(haproxyroute.Published(routeRel)), &payload))
	assert.Equal(t, []any{"10.1.0.5"}, payload["hosts"])
}

func TestReconcileEmptyIngressRelationBlocked(t *testing.T) {
	// a bound but empty upstream relation is no backend origin
	status, _ := reconcile(t, &reconciler.Snapshot{
		Config:    config.New("testing", "app", nil),
		Relations: []*relation.Relation{newRelation(haproxyroute.Name), newRelation(ingress.Name)},
	})

	assert.Equal(t, reconciler.StatusBlocked, status.Kind)
	assert.Equal(t, "No valid mode detected.", status.Message)
}

func TestReconcileRepublishesProxiedEndpoint(t *testing.T) {
	routeRel := newRelation(haproxyroute.Name)
	routeRel.App.Set("proxied_endpoints", `["https://example.com/app"]`)
	ingressRel := newRelation(ingress.Name)
	ingressRel.App.Set("port", "8080")
	ingressRel.Units = []relation.Databag{{"ip": "10.1.0.5"}}

	status, _ := reconcile(t, &reconciler.Snapshot{
		Config:    config.New("testing", "app", nil),
		Relations: []*relation.Relation{routeRel, ingressRel},
	})

	assert.Equal(t, reconciler.StatusActive, status.Kind)
	url, ok := ingress.PublishedURL(ingressRel)
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/app", url)
}

func TestReconcileNoEndpointNoRepublish(t *testing.T) {
	routeRel := newRelation(haproxyroute.Name)
	ingressRel := newRelation(ingress.Name)
	ingressRel.App.Set("port", "8080")
	ingressRel.Units = []relation.Databag{{"ip": "10.1.0.5"}}

	status, _ := reconcile(t, &reconciler.Snapshot{
		Config:    config.New("testing", "app", nil),
		Relations: []*relation.Relation{routeRel, ingressRel},
	})

	assert.Equal(t, reconciler.StatusActive, status.Kind)
	_, ok := ingress.PublishedURL(ingressRel)
	assert.False(t, ok)
}

func TestReconcileTCPRoute(t *testing.T) {
	routeRel := newRelation(haproxyroute.Name)
	tcpRel := newRelation(haproxyroutetcp.Name)

	status, _ := reconcile(t, &reconciler.Snapshot{
		Config: config.New("testing", "app", map[string]string{
			"backend-addresses":     "10.0.0.1",
			"backend-ports":         "8080",
			"tcp-backend-addresses": "192.168.1.10",
			"tcp-frontend-port":     "8443",
			"tcp-backend-port":      "443",
		}),
		Relations: []*relation.Relation{routeRel, tcpRel},
	})

	assert.Equal(t, reconciler.StatusActive, status.Kind)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(haproxyroutetcp.Published(tcpRel)), &payload))
	assert.Equal(t, float64(8443), payload["port"])
	assert.Equal(t, []any{"192.168.1.10"}, payload["hosts"])
}

func TestReconcileTCPConfiguredWithoutRelation(t *testing.T) {
	status, _ := reconcile(t, &reconciler.Snapshot{
		Config: config.New("testing", "app", map[string]string{
			"backend-addresses":     "10.0.0.1",
			"backend-ports":         "8080",
			"tcp-backend-addresses": "192.168.1.10",
			"tcp-frontend-port":     "8443",
			"tcp-backend-port":      "443",
		}),
		Relations: []*relation.Relation{newRelation(haproxyroute.Name)},
	})

	assert.Equal(t, reconciler.StatusBlocked, status.Kind)
	assert.Equal(t, "Missing haproxy-route-tcp relation.", status.Message)
}

func TestReconcileTCPInvalidBlocked(t *testing.T) {
	status, _ := reconcile(t, &reconciler.Snapshot{
		Config: config.New("testing", "app", map[string]string{
			"backend-addresses":     "10.0.0.1",
			"backend-ports":         "8080",
			"tcp-backend-addresses": "192.168.1.10",
			"tcp-frontend-port":     "99999",
			"tcp-backend-port":      "443",
		}),
		Relations: []*relation.Relation{newRelation(haproxyroute.Name), newRelation(haproxyroutetcp.Name)},
	})

	assert.Equal(t, reconciler.StatusBlocked, status.Kind)
	assert.Contains(t, status.Message, "tcp-frontend-port")
}

func TestReconcileIdempotent(t *testing.T) {
	routeRel := newRelation(haproxyroute.Name)
	snap := &reconciler.Snapshot{
		Config: config.New("testing", "app", map[string]string{
			"backend-addresses": "10.0.0.1",
			"backend-ports":     "8080",
		}),
		Relations: []*relation.Relation{routeRel},
	}

	first, _ := reconcile(t, snap)
	firstPayload := haproxyroute.Published(routeRel)
	second, _ := reconcile(t, snap)

	assert.Equal(t, first, second)
	assert.Equal(t, firstPayload, haproxyroute.Published(routeRel))
}
