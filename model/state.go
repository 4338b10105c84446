// Package model holds the validated routing description the configurator
// derives from its configuration snapshot and relations. Every value is
// rebuilt from scratch on each reconciliation; nothing here survives a
// single trigger.
package model

import (
	"errors"
	"fmt"

	"github.com/gosimple/slug"
	"github.com/hashicorp/go-multierror"

	"github.com/canonical/ingress-configurator/config"
	"github.com/canonical/ingress-configurator/relation/ingress"
	"github.com/canonical/ingress-configurator/validate"
)

// State is the complete validated routing description published over the
// proxy integration.
type State struct {
	Backend       *Backend
	HealthCheck   *HealthCheck
	Retry         *Retry
	Timeout       *Timeout
	LoadBalancing *LoadBalancing

	// Service is the identifier the proxy uses for this route, derived from
	// the model and application names.
	Service string `validate:"required"`

	Paths                    []string    `validate:"dive,url_path" field:"paths"`
	Hostname                 *string     `validate:"omitempty,rfc1123_hostname" field:"hostname"`
	AdditionalHostnames      []string    `validate:"dive,rfc1123_hostname" field:"additional-hostnames"`
	PathRewriteExpressions   []string    `field:"path-rewrite-expressions"`
	HeaderRewriteExpressions [][2]string `field:"header-rewrite-expressions"`
	AllowHTTP                *bool       `field:"allow-http"`
	HTTPServerClose          *bool       `field:"http-server-close"`
	ExternalGRPCPort         *int        `validate:"omitempty,gt=0,lte=65535" field:"external-grpc-port"`
}

// NewState builds the composite state from the configuration snapshot and the
// optional upstream ingress relation data. Failures are reported as a single
// InvalidStateError naming every offending option, or a ModeError when the
// backend origin is ambiguous or absent.
func NewState(bag *config.Bag, upstream *ingress.RequirerData) (*State, error) {
	backend, err := newBackend(bag, upstream)
	if err != nil {
		var modeErr *ModeError
		if errors.As(err, &modeErr) {
			return nil, modeErr
		}
		var stateErr *InvalidStateError
		if errors.As(err, &stateErr) {
			return nil, stateErr
		}
		return nil, invalidState(err)
	}

	var errs *multierror.Error
	healthCheck, err := HealthCheckFromConfig(bag, "")
	errs = appendErr(errs, err)
	retry, err := RetryFromConfig(bag, "")
	errs = appendErr(errs, err)
	timeout, err := TimeoutFromConfig(bag)
	errs = appendErr(errs, err)
	loadBalancing, err := LoadBalancingFromConfig(bag, "")
	errs = appendErr(errs, err)

	s := &State{
		Backend:       backend,
		HealthCheck:   healthCheck,
		Retry:         retry,
		Timeout:       timeout,
		LoadBalancing: loadBalancing,
		Service:       slug.Make(fmt.Sprintf("%s-%s", bag.Model(), bag.Application())),
		Paths:         bag.List("paths"),
	}
	if v, ok := bag.String("hostname"); ok {
		s.Hostname = &v
	}
	s.AdditionalHostnames = bag.List("additional-hostnames")
	s.PathRewriteExpressions = bag.Expressions("path-rewrite-expressions")
	pairs, err := bag.Pairs("header-rewrite-expressions")
	errs = appendErr(errs, err)
	s.HeaderRewriteExpressions = pairs

	if s.AllowHTTP, err = bag.Bool("allow-http"); err != nil {
		errs = appendErr(errs, err)
	}
	if s.HTTPServerClose, err = bag.Bool("http-server-close"); err != nil {
		errs = appendErr(errs, err)
	}
	if s.ExternalGRPCPort, err = bag.Int("external-grpc-port"); err != nil {
		errs = appendErr(errs, err)
	}

	if err := validate.Validator().Struct(s); err != nil {
		errs = appendErr(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, invalidState(err)
	}
	if err := s.validateInvariants(); err != nil {
		return nil, err
	}
	return s, nil
}

// validateInvariants applies the cross section rules that only hold at the
// aggregate level.
func (s *State) validateInvariants() error {
	if s.ExternalGRPCPort != nil && s.Backend.Protocol != ProtocolHTTPS {
		return &InvalidStateError{
			Reason: "external-grpc-port can only be set when backend-protocol is 'https'.",
		}
	}
	if s.ExternalGRPCPort != nil && s.AllowHTTP != nil && *s.AllowHTTP {
		return &InvalidStateError{
			Reason: "external-grpc-port cannot be set when allow-http is true.",
		}
	}
	return nil
}

func appendErr(errs *multierror.Error, err error) *multierror.Error {
	if err != nil {
		return multierror.Append(errs, err)
	}
	return errs
}
