package model

import (
	"fmt"
	"net/netip"

	"github.com/hashicorp/go-multierror"

	"github.com/canonical/ingress-configurator/config"
	"github.com/canonical/ingress-configurator/validate"
)

// tcpPrefix namespaces the configuration options of the raw TCP route so
// they never collide with the HTTP route options.
const tcpPrefix = "tcp-"

// CheckType selects the protocol aware probe the proxy runs against TCP
// backends.
type CheckType string

// Probe types accepted by the TCP route integration.
const (
	CheckGeneric  CheckType = "generic"
	CheckMySQL    CheckType = "mysql"
	CheckPostgres CheckType = "postgres"
	CheckRedis    CheckType = "redis"
	CheckSMTP     CheckType = "smtp"
)

// TCPHealthCheck is the TCP flavored probe configuration. Send and Expect
// apply to generic probes only; DBUser applies to mysql and postgres probes.
type TCPHealthCheck struct {
	Interval *int       `validate:"omitempty,gt=0" field:"tcp-health-check-interval"`
	Rise     *int       `validate:"omitempty,gt=0" field:"tcp-health-check-rise"`
	Fall     *int       `validate:"omitempty,gt=0" field:"tcp-health-check-fall"`
	Type     *CheckType `validate:"omitempty,oneof=generic mysql postgres redis smtp" field:"tcp-health-check-type"`
	Send     *string    `field:"tcp-health-check-send"`
	Expect   *string    `field:"tcp-health-check-expect"`
	DBUser   *string    `validate:"omitempty,safe_value" field:"tcp-health-check-db-user"`
}

func (h *TCPHealthCheck) validateComplete() error {
	set := 0
	for _, v := range []*int{h.Interval, h.Rise, h.Fall} {
		if v != nil {
			set++
		}
	}
	if set != 0 && set != 3 {
		return fmt.Errorf("Health check configuration is incomplete: interval, rise, and fall must all be set if any one of them is specified.")
	}
	return nil
}

// validateTypeFields rejects probe payload fields that do not belong to the
// configured probe type.
func (h *TCPHealthCheck) validateTypeFields() error {
	checkType := CheckGeneric
	if h.Type != nil {
		checkType = *h.Type
	}
	if (h.Send != nil || h.Expect != nil) && checkType != CheckGeneric {
		return fmt.Errorf("tcp-health-check-send and tcp-health-check-expect require tcp-health-check-type 'generic', got %q", checkType)
	}
	if h.DBUser != nil && checkType != CheckMySQL && checkType != CheckPostgres {
		return fmt.Errorf("tcp-health-check-db-user requires tcp-health-check-type 'mysql' or 'postgres', got %q", checkType)
	}
	return nil
}

func tcpHealthCheckFromConfig(bag *config.Bag) (*TCPHealthCheck, error) {
	var errs *multierror.Error
	h := &TCPHealthCheck{}
	var err error
	if h.Interval, err = bag.Int(tcpPrefix + "health-check-interval"); err != nil {
		errs = multierror.Append(errs, err)
	}
	if h.Rise, err = bag.Int(tcpPrefix + "health-check-rise"); err != nil {
		errs = multierror.Append(errs, err)
	}
	if h.Fall, err = bag.Int(tcpPrefix + "health-check-fall"); err != nil {
		errs = multierror.Append(errs, err)
	}
	if v, ok := bag.String(tcpPrefix + "health-check-type"); ok {
		t := CheckType(v)
		h.Type = &t
	}
	if v, ok := bag.String(tcpPrefix + "health-check-send"); ok {
		h.Send = &v
	}
	if v, ok := bag.String(tcpPrefix + "health-check-expect"); ok {
		h.Expect = &v
	}
	if v, ok := bag.String(tcpPrefix + "health-check-db-user"); ok {
		h.DBUser = &v
	}
	if err := validate.Validator().Struct(h); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := h.validateComplete(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := h.validateTypeFields(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return h, errs.ErrorOrNil()
}

// TCPRequirements is the validated description of a raw TCP route: frontend
// port, backend servers, TLS handling and the TCP specific health probe.
// It evolves independently from the HTTP State.
type TCPRequirements struct {
	Addresses     []netip.Addr
	FrontendPort  int     `validate:"gt=0,lte=65535" field:"tcp-frontend-port"`
	BackendPort   int     `validate:"gt=0,lte=65535" field:"tcp-backend-port"`
	TLSTerminate  bool    `field:"tcp-tls-terminate"`
	EnforceTLS    bool    `field:"tcp-enforce-tls"`
	Hostname      *string `validate:"omitempty,rfc1123_hostname" field:"tcp-hostname"`
	Retry         *Retry
	LoadBalancing *LoadBalancing
	HealthCheck   *TCPHealthCheck
}

// TCPConfigured reports whether a raw TCP route is being configured: one of
// the route defining options (addresses or ports) is set. Auxiliary tcp-*
// options on their own do not open a TCP route; they are validated only once
// a route is defined.
func TCPConfigured(bag *config.Bag) bool {
	for _, key := range []string{
		"tcp-backend-addresses", "tcp-frontend-port", "tcp-backend-port",
	} {
		if bag.IsSet(key) {
			return true
		}
	}
	return false
}

// NewTCPRequirements builds the TCP route aggregate from the tcp-* options.
func NewTCPRequirements(bag *config.Bag) (*TCPRequirements, error) {
	var errs *multierror.Error

	raw := bag.List(tcpPrefix + "backend-addresses")
	addrs, err := parseAddresses(tcpPrefix+"backend-addresses", raw)
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	if len(raw) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("tcp-backend-addresses must be set"))
	}

	req := &TCPRequirements{Addresses: addrs}
	frontendPort, err := bag.Int(tcpPrefix + "frontend-port")
	if err != nil {
		errs = multierror.Append(errs, err)
	} else if frontendPort == nil {
		errs = multierror.Append(errs, fmt.Errorf("tcp-frontend-port must be set"))
	} else {
		req.FrontendPort = *frontendPort
	}
	backendPort, err := bag.Int(tcpPrefix + "backend-port")
	if err != nil {
		errs = multierror.Append(errs, err)
	} else if backendPort == nil {
		errs = multierror.Append(errs, fmt.Errorf("tcp-backend-port must be set"))
	} else {
		req.BackendPort = *backendPort
	}

	if v, err := bag.Bool(tcpPrefix + "tls-terminate"); err != nil {
		errs = multierror.Append(errs, err)
	} else if v != nil {
		req.TLSTerminate = *v
	}
	// enforcing TLS only makes sense where TLS is terminated, so that is
	// the default
	req.EnforceTLS = req.TLSTerminate
	if v, err := bag.Bool(tcpPrefix + "enforce-tls"); err != nil {
		errs = multierror.Append(errs, err)
	} else if v != nil {
		req.EnforceTLS = *v
	}
	if v, ok := bag.String(tcpPrefix + "hostname"); ok {
		req.Hostname = &v
	}

	retry, err := RetryFromConfig(bag, tcpPrefix)
	errs = appendErr(errs, err)
	req.Retry = retry
	loadBalancing, err := LoadBalancingFromConfig(bag, tcpPrefix)
	errs = appendErr(errs, err)
	req.LoadBalancing = loadBalancing
	healthCheck, err := tcpHealthCheckFromConfig(bag)
	errs = appendErr(errs, err)
	req.HealthCheck = healthCheck

	if err := validate.Validator().Struct(req); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, invalidState(err)
	}
	return req, nil
}

// HasProbe reports whether the probe is configured at all.
func (h *TCPHealthCheck) HasProbe() bool {
	return h.Interval != nil || h.Type != nil || h.Send != nil || h.Expect != nil || h.DBUser != nil
}
