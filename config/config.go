// Package config provides typed access to the configuration snapshot the
// hosting platform materializes before each reconciliation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Delimiter separates elements of list valued options.
const Delimiter = ","

// ExpressionDelimiter separates rewrite expressions. The options carrying
// rewrite expressions may themselves contain embedded newlines, so the caller
// escapes them and the literal two character sequence backslash-n acts as the
// separator.
const ExpressionDelimiter = `\n`

// Bag is an immutable snapshot of the application configuration together with
// the model and application identity supplied by the hosting platform.
type Bag struct {
	model       string
	application string
	options     map[string]string
}

// New creates a Bag from raw option values. Empty values are treated as unset.
func New(model, application string, options map[string]string) *Bag {
	vals := make(map[string]string, len(options))
	for k, v := range options {
		if v != "" {
			vals[k] = v
		}
	}
	return &Bag{model: model, application: application, options: vals}
}

type snapshotFile struct {
	Model       string            `yaml:"model"`
	Application string            `yaml:"application"`
	Options     map[string]string `yaml:"options"`
}

// Load reads a configuration snapshot from a YAML file.
func Load(path string) (*Bag, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config snapshot: %w", err)
	}
	var f snapshotFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config snapshot %s: %w", path, err)
	}
	if f.Model == "" || f.Application == "" {
		return nil, fmt.Errorf("config snapshot %s: model and application are required", path)
	}
	return New(f.Model, f.Application, f.Options), nil
}

// Model returns the model name the application is deployed in.
func (b *Bag) Model() string { return b.model }

// Application returns the application name.
func (b *Bag) Application() string { return b.application }

// String returns the raw value for key, reporting whether it is set.
func (b *Bag) String(key string) (string, bool) {
	v, ok := b.options[key]
	return v, ok
}

// IsSet reports whether key has a non-empty value.
func (b *Bag) IsSet(key string) bool {
	_, ok := b.options[key]
	return ok
}

// Int parses the value for key as an integer, nil when unset.
func (b *Bag) Int(key string) (*int, error) {
	v, ok := b.options[key]
	if !ok {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return &n, nil
}

// Bool parses the value for key as a boolean, nil when unset.
func (b *Bag) Bool(key string) (*bool, error) {
	v, ok := b.options[key]
	if !ok {
		return nil, nil
	}
	t, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return &t, nil
}

// List splits the value for key on the option delimiter, nil when unset.
// Elements are not trimmed: surrounding whitespace is a configuration error
// the element level validators will catch.
func (b *Bag) List(key string) []string {
	v, ok := b.options[key]
	if !ok {
		return nil
	}
	return strings.Split(v, Delimiter)
}

// Expressions splits the value for key on the escaped newline token,
// nil when unset.
func (b *Bag) Expressions(key string) []string {
	v, ok := b.options[key]
	if !ok {
		return nil
	}
	return strings.Split(v, ExpressionDelimiter)
}

// Pairs splits the value for key on the escaped newline token and parses each
// element as a key:value pair, splitting on the first colon only.
func (b *Bag) Pairs(key string) ([][2]string, error) {
	elems := b.Expressions(key)
	if elems == nil {
		return nil, nil
	}
	pairs := make([][2]string, 0, len(elems))
	for _, elem := range elems {
		name, value, found := strings.Cut(elem, ":")
		if !found {
			return nil, fmt.Errorf("%s: %q is not a key:value pair", key, elem)
		}
		pairs = append(pairs, [2]string{name, value})
	}
	return pairs, nil
}
