// Package haproxyroute implements the requirer side of the haproxy-route
// integration: it publishes a validated backend description for the reverse
// proxy to pick up and reads back the endpoints the proxy serves it on.
package haproxyroute

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/martinlindhe/base36"

	"github.com/canonical/ingress-configurator/model"
	"github.com/canonical/ingress-configurator/relation"
)

// Name is the integration endpoint name.
const Name = "haproxy-route"

const (
	requirementsKey     = "requirements"
	proxiedEndpointsKey = "proxied_endpoints"
)

// Requirement is the wire payload of the haproxy-route integration. Optional
// fields are pointers with omitempty: the provider distinguishes an absent
// field from an explicitly empty one, so absent state must never serialize.
type Requirement struct {
	Service  string   `json:"service"`
	Hosts    []string `json:"hosts"`
	Ports    []int    `json:"ports"`
	Protocol string   `json:"protocol,omitempty"`

	// ServerNames are stable per-host identifiers safe to use as proxy
	// server names regardless of the address literal form.
	ServerNames []string `json:"server_names,omitempty"`

	Paths               []string `json:"paths,omitempty"`
	Hostname            *string  `json:"hostname,omitempty"`
	AdditionalHostnames []string `json:"additional_hostnames,omitempty"`

	CheckInterval *int    `json:"check_interval,omitempty"`
	CheckRise     *int    `json:"check_rise,omitempty"`
	CheckFall     *int    `json:"check_fall,omitempty"`
	CheckPath     *string `json:"check_path,omitempty"`
	CheckPort     *int    `json:"check_port,omitempty"`

	RetryCount      *int  `json:"retry_count,omitempty"`
	RetryInterval   *int  `json:"retry_interval,omitempty"`
	RetryRedispatch *bool `json:"retry_redispatch,omitempty"`

	ServerTimeout  *int `json:"server_timeout,omitempty"`
	ConnectTimeout *int `json:"connect_timeout,omitempty"`
	QueueTimeout   *int `json:"queue_timeout,omitempty"`

	LoadBalancingAlgorithm        string  `json:"load_balancing_algorithm,omitempty"`
	LoadBalancingCookie           *string `json:"load_balancing_cookie,omitempty"`
	LoadBalancingConsistentHashes *bool   `json:"load_balancing_consistent_hashing,omitempty"`

	HTTPServerClose          *bool       `json:"http_server_close,omitempty"`
	PathRewriteExpressions   []string    `json:"path_rewrite_expressions,omitempty"`
	HeaderRewriteExpressions [][2]string `json:"header_rewrite_expressions,omitempty"`
	AllowHTTP                *bool       `json:"allow_http,omitempty"`
	ExternalGRPCPort         *int        `json:"external_grpc_port,omitempty"`
}

// FromState maps the validated state onto the wire payload, field by field.
// Only populated state is carried over.
func FromState(s *model.State) *Requirement {
	req := &Requirement{
		Service:  s.Service,
		Protocol: string(s.Backend.Protocol),
		Ports:    s.Backend.Ports,

		Paths:               s.Paths,
		Hostname:            s.Hostname,
		AdditionalHostnames: s.AdditionalHostnames,

		CheckInterval: s.HealthCheck.Interval,
		CheckRise:     s.HealthCheck.Rise,
		CheckFall:     s.HealthCheck.Fall,
		CheckPath:     s.HealthCheck.Path,
		CheckPort:     s.HealthCheck.Port,

		RetryCount:      s.Retry.Count,
		RetryInterval:   s.Retry.Interval,
		RetryRedispatch: s.Retry.Redispatch,

		ServerTimeout:  s.Timeout.Server,
		ConnectTimeout: s.Timeout.Connect,
		QueueTimeout:   s.Timeout.Queue,

		LoadBalancingAlgorithm: string(s.LoadBalancing.Algorithm),
		LoadBalancingCookie:    s.LoadBalancing.Cookie,

		// a set-but-false boolean is meaningful to the provider and must
		// serialize, so the set-ness is carried through as a pointer
		HTTPServerClose: s.HTTPServerClose,
		AllowHTTP:       s.AllowHTTP,

		PathRewriteExpressions:   s.PathRewriteExpressions,
		HeaderRewriteExpressions: s.HeaderRewriteExpressions,
		ExternalGRPCPort:         s.ExternalGRPCPort,
	}
	for _, addr := range s.Backend.Addresses {
		host := addr.String()
		req.Hosts = append(req.Hosts, host)
		req.ServerNames = append(req.ServerNames, ServerName(s.Service, host))
	}
	if s.LoadBalancing.ConsistentHashing {
		v := true
		req.LoadBalancingConsistentHashes = &v
	}
	return req
}

// ServerName derives a proxy safe server identifier from a backend host.
// Address literals, IPv6 in particular, contain characters the proxy
// configuration cannot carry, so the host is hashed instead.
func ServerName(service, host string) string {
	sum := sha256.Sum256([]byte(host))
	return fmt.Sprintf("%s-%s", service, strings.ToLower(base36.EncodeBytes(sum[:8])))
}

// Publish stages the payload on the relation's local application databag.
func Publish(rel *relation.Relation, req *Requirement) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode haproxy-route requirements: %w", err)
	}
	rel.LocalApp.Set(requirementsKey, string(data))
	return nil
}

// Published returns the payload currently staged on the relation, empty
// string when none.
func Published(rel *relation.Relation) string {
	v, _ := rel.LocalApp.Get(requirementsKey)
	return v
}

// ProxiedEndpoints reads back the endpoint URLs the proxy advertised for this
// route. Returns nil when the proxy published nothing yet.
func ProxiedEndpoints(rel *relation.Relation) ([]string, error) {
	if rel == nil {
		return nil, nil
	}
	raw, ok := rel.App.Get(proxiedEndpointsKey)
	if !ok {
		return nil, nil
	}
	var endpoints []string
	if err := json.Unmarshal([]byte(raw), &endpoints); err != nil {
		return nil, fmt.Errorf("%s: invalid proxied_endpoints payload: %w", rel, err)
	}
	return endpoints, nil
}
