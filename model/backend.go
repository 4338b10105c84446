package model

import (
	"fmt"
	"net/netip"
	"strconv"

	"github.com/hashicorp/go-multierror"

	"github.com/canonical/ingress-configurator/config"
	"github.com/canonical/ingress-configurator/relation/ingress"
	"github.com/canonical/ingress-configurator/validate"
)

// Protocol is the scheme used to reach backend servers.
type Protocol string

// Backend protocols accepted by the proxy integration.
const (
	ProtocolHTTP  Protocol = "http"
	ProtocolHTTPS Protocol = "https"
)

// Backend is the set of servers requests are routed to. Both lists are
// ordered and non-empty.
type Backend struct {
	Addresses []netip.Addr
	Ports     []int
	Protocol  Protocol `validate:"oneof=http https" field:"backend-protocol"`
}

// parseAddresses parses every element of a configured address list, naming
// the offending element on failure.
func parseAddresses(key string, raw []string) ([]netip.Addr, error) {
	var errs *multierror.Error
	addrs := make([]netip.Addr, 0, len(raw))
	for i, s := range raw {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s[%d]: invalid IP address %q", key, i, s))
			continue
		}
		addrs = append(addrs, addr)
	}
	return addrs, errs.ErrorOrNil()
}

func parsePorts(key string, bag *config.Bag) ([]int, error) {
	raw := bag.List(key)
	if raw == nil {
		return nil, nil
	}
	var errs *multierror.Error
	ports := make([]int, 0, len(raw))
	for i, s := range raw {
		port, err := strconv.Atoi(s)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s[%d]: invalid port %q", key, i, s))
			continue
		}
		if err := validate.Port(port); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s[%d]: %w", key, i, err))
			continue
		}
		ports = append(ports, port)
	}
	return ports, errs.ErrorOrNil()
}

// backendFromConfig reads the statically configured backend lists.
func backendFromConfig(bag *config.Bag) ([]netip.Addr, []int, error) {
	var errs *multierror.Error
	var addrs []netip.Addr
	if raw := bag.List("backend-addresses"); raw != nil {
		parsed, err := parseAddresses("backend-addresses", raw)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		addrs = parsed
	}
	ports, err := parsePorts("backend-ports", bag)
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	return addrs, ports, errs.ErrorOrNil()
}

// backendFromUpstream derives the backend lists from the unit addresses and
// application port advertised over the upstream ingress relation.
func backendFromUpstream(data *ingress.RequirerData) ([]netip.Addr, []int, error) {
	var errs *multierror.Error
	addrs := make([]netip.Addr, 0, len(data.Units))
	for i, unit := range data.Units {
		addr, err := netip.ParseAddr(unit.IP)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("upstream unit %d: invalid address %q", i, unit.IP))
			continue
		}
		addrs = append(addrs, addr)
	}
	var ports []int
	if data.App.Port != 0 {
		if err := validate.Port(data.App.Port); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("upstream application port: %w", err))
		} else {
			ports = []int{data.App.Port}
		}
	}
	return addrs, ports, errs.ErrorOrNil()
}

// newBackend resolves the backend from whichever origin is active and
// validates the result.
func newBackend(bag *config.Bag, upstream *ingress.RequirerData) (*Backend, error) {
	mode, err := DetectMode(bag, upstream != nil)
	if err != nil {
		return nil, err
	}

	var (
		addrs []netip.Addr
		ports []int
	)
	switch mode {
	case ModeIntegrator:
		addrs, ports, err = backendFromConfig(bag)
	case ModeAdapter:
		addrs, ports, err = backendFromUpstream(upstream)
	}
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 || len(ports) == 0 {
		return nil, &InvalidStateError{
			Reason: fmt.Sprintf("%s mode requires both backend addresses and ports", mode),
		}
	}

	protocol := ProtocolHTTP
	if v, ok := bag.String("backend-protocol"); ok {
		protocol = Protocol(v)
	}
	b := &Backend{Addresses: addrs, Ports: ports, Protocol: protocol}
	if err := validate.Validator().Struct(b); err != nil {
		return nil, err
	}
	return b, nil
}
