// Package haproxyroutetcp implements the requirer side of the
// haproxy-route-tcp integration for raw TCP routes.
package haproxyroutetcp

import (
	"encoding/json"
	"fmt"

	"github.com/canonical/ingress-configurator/model"
	"github.com/canonical/ingress-configurator/relation"
)

// Name is the integration endpoint name.
const Name = "haproxy-route-tcp"

const requirementsKey = "requirements"

// HealthCheck is the TCP probe section of the wire payload.
type HealthCheck struct {
	Interval *int    `json:"interval,omitempty"`
	Rise     *int    `json:"rise,omitempty"`
	Fall     *int    `json:"fall,omitempty"`
	Type     *string `json:"type,omitempty"`
	Send     *string `json:"send,omitempty"`
	Expect   *string `json:"expect,omitempty"`
	DBUser   *string `json:"db_user,omitempty"`
}

// Requirement is the wire payload of the haproxy-route-tcp integration.
type Requirement struct {
	Hosts        []string `json:"hosts"`
	Port         int      `json:"port"`
	BackendPort  int      `json:"backend_port"`
	TLSTerminate bool     `json:"tls_terminate"`
	EnforceTLS   bool     `json:"enforce_tls"`
	Hostname     *string  `json:"hostname,omitempty"`

	RetryCount      *int  `json:"retry_count,omitempty"`
	RetryInterval   *int  `json:"retry_interval,omitempty"`
	RetryRedispatch *bool `json:"retry_redispatch,omitempty"`

	LoadBalancingAlgorithm        string `json:"load_balancing_algorithm,omitempty"`
	LoadBalancingConsistentHashes *bool  `json:"load_balancing_consistent_hashing,omitempty"`

	HealthCheck *HealthCheck `json:"health_check,omitempty"`
}

// FromRequirements maps the validated TCP aggregate onto the wire payload.
func FromRequirements(t *model.TCPRequirements) *Requirement {
	req := &Requirement{
		Port:         t.FrontendPort,
		BackendPort:  t.BackendPort,
		TLSTerminate: t.TLSTerminate,
		EnforceTLS:   t.EnforceTLS,
		Hostname:     t.Hostname,

		RetryCount:      t.Retry.Count,
		RetryInterval:   t.Retry.Interval,
		RetryRedispatch: t.Retry.Redispatch,

		LoadBalancingAlgorithm: string(t.LoadBalancing.Algorithm),
	}
	for _, addr := range t.Addresses {
		req.Hosts = append(req.Hosts, addr.String())
	}
	if t.LoadBalancing.ConsistentHashing {
		v := true
		req.LoadBalancingConsistentHashes = &v
	}
	if t.HealthCheck.HasProbe() {
		hc := &HealthCheck{
			Interval: t.HealthCheck.Interval,
			Rise:     t.HealthCheck.Rise,
			Fall:     t.HealthCheck.Fall,
			Send:     t.HealthCheck.Send,
			Expect:   t.HealthCheck.Expect,
			DBUser:   t.HealthCheck.DBUser,
		}
		if t.HealthCheck.Type != nil {
			s := string(*t.HealthCheck.Type)
			hc.Type = &s
		}
		req.HealthCheck = hc
	}
	return req
}

// Publish stages the payload on the relation's local application databag.
func Publish(rel *relation.Relation, req *Requirement) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode haproxy-route-tcp requirements: %w", err)
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
