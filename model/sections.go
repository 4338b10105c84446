package model

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/canonical/ingress-configurator/config"
	"github.com/canonical/ingress-configurator/validate"
)

// HealthCheck carries the backend health probe configuration.
// Interval, rise and fall must be set together or not at all: a partially
// specified probe is a configuration error, not a probe with defaults.
type HealthCheck struct {
	Path     *string `validate:"omitempty,url_path" field:"health-check-path"`
	Port     *int    `validate:"omitempty,gt=0,lte=65535" field:"health-check-port"`
	Interval *int    `validate:"omitempty,gt=0" field:"health-check-interval"`
	Rise     *int    `validate:"omitempty,gt=0" field:"health-check-rise"`
	Fall     *int    `validate:"omitempty,gt=0" field:"health-check-fall"`
}

// IsZero reports whether no health check option is set.
func (h *HealthCheck) IsZero() bool {
	return h.Path == nil && h.Port == nil && h.Interval == nil && h.Rise == nil && h.Fall == nil
}

func (h *HealthCheck) validateComplete() error {
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

// HealthCheckFromConfig builds the health check section from configuration,
// reading keys under the given prefix.
func HealthCheckFromConfig(bag *config.Bag, prefix string) (*HealthCheck, error) {
	var errs *multierror.Error
	h := &HealthCheck{}
	var err error
	if h.Interval, err = bag.Int(prefix + "health-check-interval"); err != nil {
		errs = multierror.Append(errs, err)
	}
	if h.Rise, err = bag.Int(prefix + "health-check-rise"); err != nil {
		errs = multierror.Append(errs, err)
	}
	if h.Fall, err = bag.Int(prefix + "health-check-fall"); err != nil {
		errs = multierror.Append(errs, err)
	}
	if h.Port, err = bag.Int(prefix + "health-check-port"); err != nil {
		errs = multierror.Append(errs, err)
	}
	if path, ok := bag.String(prefix + "health-check-path"); ok {
		h.Path = &path
	}
	if err := validate.Validator().Struct(h); err != nil {
		errs = multierror.Append(errs, prefixFields(err, prefix))
	}
	if err := h.validateComplete(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return h, errs.ErrorOrNil()
}

// Retry carries the failed request retry configuration.
type Retry struct {
	Count      *int  `validate:"omitempty,gt=0" field:"retry-count"`
	Interval   *int  `validate:"omitempty,gt=0" field:"retry-interval"`
	Redispatch *bool `field:"retry-redispatch"`
}

// RetryFromConfig builds the retry section from configuration, reading keys
// under the given prefix.
func RetryFromConfig(bag *config.Bag, prefix string) (*Retry, error) {
	var errs *multierror.Error
	r := &Retry{}
	var err error
	if r.Count, err = bag.Int(prefix + "retry-count"); err != nil {
		errs = multierror.Append(errs, err)
	}
	if r.Interval, err = bag.Int(prefix + "retry-interval"); err != nil {
		errs = multierror.Append(errs, err)
	}
	if r.Redispatch, err = bag.Bool(prefix + "retry-redispatch"); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := validate.Validator().Struct(r); err != nil {
		errs = multierror.Append(errs, prefixFields(err, prefix))
	}
	return r, errs.ErrorOrNil()
}

// Timeout carries the proxy timeout configuration, all values in seconds.
type Timeout struct {
	Server  *int `validate:"omitempty,gt=0" field:"timeout-server"`
	Connect *int `validate:"omitempty,gt=0" field:"timeout-connect"`
	Queue   *int `validate:"omitempty,gt=0" field:"timeout-queue"`
}

// TimeoutFromConfig builds the timeout section from configuration.
func TimeoutFromConfig(bag *config.Bag) (*Timeout, error) {
	var errs *multierror.Error
	t := &Timeout{}
	var err error
	if t.Server, err = bag.Int("timeout-server"); err != nil {
		errs = multierror.Append(errs, err)
	}
	if t.Connect, err = bag.Int("timeout-connect"); err != nil {
		errs = multierror.Append(errs, err)
	}
	if t.Queue, err = bag.Int("timeout-queue"); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := validate.Validator().Struct(t); err != nil {
		errs = multierror.Append(errs, err)
	}
	return t, errs.ErrorOrNil()
}

// Algorithm selects how the proxy balances requests over backend servers.
type Algorithm string

// Balancing algorithms accepted by the proxy integration.
const (
	AlgorithmLeastConn  Algorithm = "leastconn"
	AlgorithmRoundRobin Algorithm = "roundrobin"
	AlgorithmSource     Algorithm = "source"
	AlgorithmRandom     Algorithm = "random"
)

// LoadBalancing carries the balancing configuration. The algorithm defaults
// to least connections.
type LoadBalancing struct {
	Algorithm         Algorithm `validate:"oneof=leastconn roundrobin source random" field:"load-balancing-algorithm"`
	Cookie            *string   `validate:"omitempty,safe_value" field:"load-balancing-cookie"`
	ConsistentHashing bool      `field:"load-balancing-consistent-hashing"`
}

// LoadBalancingFromConfig builds the load balancing section from
// configuration, reading keys under the given prefix.
func LoadBalancingFromConfig(bag *config.Bag, prefix string) (*LoadBalancing, error) {
	var errs *multierror.Error
	lb := &LoadBalancing{Algorithm: AlgorithmLeastConn}
	if v, ok := bag.String(prefix + "load-balancing-algorithm"); ok {
		lb.Algorithm = Algorithm(v)
	}
	if v, ok := bag.String(prefix + "load-balancing-cookie"); ok {
		lb.Cookie = &v
	}
	hashing, err := bag.Bool(prefix + "load-balancing-consistent-hashing")
	if err != nil {
		errs = multierror.Append(errs, err)
	} else if hashing != nil {
		lb.ConsistentHashing = *hashing
	}
	if err := validate.Validator().Struct(lb); err != nil {
		errs = multierror.Append(errs, prefixFields(err, prefix))
	}
	return lb, errs.ErrorOrNil()
}
