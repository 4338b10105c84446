// Package ingress implements the provider side of the ingress-per-application
// integration: it reads the endpoint data an upstream application advertises
// and publishes the externally reachable URL back to it.
package ingress

import (
	"fmt"
	"strconv"

	"github.com/canonical/ingress-configurator/relation"
)

// Name is the integration endpoint name.
const Name = "ingress"

const urlKey = "url"

// AppData is the application level data the upstream requirer advertises.
type AppData struct {
	Model string
	Name  string
	Port  int
}

// UnitData is the per unit endpoint data the upstream requirer advertises.
type UnitData struct {
	Host string
	IP   string
}

// RequirerData is the complete endpoint description read from the upstream
// relation.
type RequirerData struct {
	App   AppData
	Units []UnitData
}

// IsZero reports whether the requirer advertised nothing usable yet. An
// established relation with a default databag must not count as an active
// backend origin.
func (d *RequirerData) IsZero() bool {
	return d == nil || (d.App.Port == 0 && len(d.Units) == 0)
}

// Data reads the requirer's advertised endpoints from the relation snapshot.
// Returns nil when the relation carries no data yet.
func Data(rel *relation.Relation) (*RequirerData, error) {
	if rel == nil {
		return nil, nil
	}
	data := &RequirerData{}
	data.App.Model, _ = rel.App.Get("model")
	data.App.Name, _ = rel.App.Get("name")
	if v, ok := rel.App.Get("port"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid application port %q", rel, v)
		}
		data.App.Port = port
	}
	for _, unit := range rel.Units {
		host, _ := unit.Get("host")
		ip, hasIP := unit.Get("ip")
		if !hasIP {
			continue
		}
		data.Units = append(data.Units, UnitData{Host: host, IP: ip})
	}
	if data.IsZero() {
		return nil, nil
	}
	return data, nil
}

// PublishURL advertises the proxied URL to the upstream requirer.
func PublishURL(rel *relation.Relation, url string) {
	rel.LocalApp.Set(urlKey, url)
}

// PublishedURL returns the URL previously advertised on this relation.
func PublishedURL(rel *relation.Relation) (string, bool) {
	return rel.LocalApp.Get(urlKey)
}
