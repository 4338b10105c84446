package model

import (
	"github.com/canonical/ingress-configurator/config"
)

// Mode is the operating mode of the configurator: backend addressing comes
// either from static configuration (integrator) or from an upstream ingress
// relation advertising its own endpoints (adapter). Exactly one origin must
// be active; the configurator never guesses when both or neither are present.
type Mode string

const (
	// ModeIntegrator routes to statically configured backends.
	ModeIntegrator Mode = "integrator"
	// ModeAdapter routes to backends advertised over the upstream relation.
	ModeAdapter Mode = "adapter"
)

// DetectMode determines the operating mode from the configuration snapshot
// and the presence of the upstream ingress relation. Static configuration
// counts as present when either backend-addresses or backend-ports is set;
// a partial static configuration is then rejected as an invalid backend
// rather than silently treated as absent.
func DetectMode(bag *config.Bag, hasUpstream bool) (Mode, error) {
	configBackend := bag.IsSet("backend-addresses") || bag.IsSet("backend-ports")
	switch {
	case configBackend && hasUpstream:
		return "", &ModeError{Reason: "Both integrator and adapter configurations are set."}
	case configBackend:
		return ModeIntegrator, nil
	case hasUpstream:
		return ModeAdapter, nil
	default:
		return "", &ModeError{Reason: "No valid mode detected."}
	}
}
