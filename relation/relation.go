// Package relation models the inter-application data exchange of the hosting
// platform. A relation is a pair of string key/value databags per side; the
// platform owns persistence and delivery, this package only reads and stages
// the snapshots handed to a reconciliation.
package relation

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Databag is one side's view of relation data.
type Databag map[string]string

// Get returns the value for key, reporting whether it is set and non-empty.
func (d Databag) Get(key string) (string, bool) {
	v, ok := d[key]
	return v, ok && v != ""
}

// Set stores a value, removing the key when the value is empty. The platform
// treats an absent key and an explicitly empty value differently, so ours
// never publishes empty markers.
func (d Databag) Set(key, value string) {
	if value == "" {
		delete(d, key)
		return
	}
	d[key] = value
}

// Merge copies all entries of src into d, overwriting existing keys.
func (d Databag) Merge(src Databag) {
	for k, v := range src {
		d[k] = v
	}
}

// Keys returns the set keys in sorted order.
func (d Databag) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Relation is an in-memory snapshot of one established relation.
type Relation struct {
	// Name of the integration endpoint, e.g. "haproxy-route".
	Name string `yaml:"name"`
	// ID distinguishes multiple relations on the same endpoint.
	ID int `yaml:"id"`
	// App is the remote application databag.
	App Databag `yaml:"app"`
	// Units holds the remote unit databags, ordered by unit.
	Units []Databag `yaml:"units"`
	// LocalApp is the databag this application publishes.
	LocalApp Databag `yaml:"local-app"`
}

func (r *Relation) String() string {
	return fmt.Sprintf("%s:%d", r.Name, r.ID)
}

type snapshotFile struct {
	Relations []*Relation `yaml:"relations"`
}

// LoadSnapshot reads relation snapshots from a YAML file. Databags are
// initialized so callers can publish into relations that carried no data yet.
func LoadSnapshot(path string) ([]*Relation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read relation snapshot: %w", err)
	}
	var f snapshotFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse relation snapshot %s: %w", path, err)
	}
	for _, rel := range f.Relations {
		if rel.Name == "" {
			return nil, fmt.Errorf("relation snapshot %s: relation without a name", path)
		}
		if rel.App == nil {
			rel.App = Databag{}
		}
		if rel.LocalApp == nil {
			rel.LocalApp = Databag{}
		}
	}
	return f.Relations, nil
}

// WriteSnapshot persists relation snapshots, typically after a reconciliation
// updated the local databags.
func WriteSnapshot(path string, relations []*Relation) error {
	data, err := yaml.Marshal(&snapshotFile{Relations: relations})
	if err != nil {
		return fmt.Errorf("encode relation snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write relation snapshot: %w", err)
	}
	return nil
}

// Find returns the first relation on the named endpoint, or nil.
func Find(relations []*Relation, name string) *Relation {
	for _, rel := range relations {
		if rel.Name == name {
			return rel
		}
	}
	return nil
}
