// Package validate contains field level checks for values that are ultimately
// rendered into a proxy configuration file. Values that pass these checks are
// safe to embed verbatim.
package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	validator "github.com/go-playground/validator/v10"
)

const (
	maxPathLength     = 2048
	maxHostnameLength = 253
	maxLabelLength    = 63
)

// safeValueChars is the whitelist for values that end up inside proxy
// configuration directives. Anything outside of it (whitespace, quotes,
// comment or variable markers) could corrupt or inject into the rendered file.
const safeValueChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_/."

var pathRE = regexp.MustCompile(`^(/[a-zA-Z0-9\-_.]*)*$`)

// SafeValue checks that value contains only characters from the proxy
// configuration whitelist.
func SafeValue(value string) error {
	for _, r := range value {
		if !strings.ContainsRune(safeValueChars, r) {
			return fmt.Errorf("invalid characters in value %q", value)
		}
	}
	return nil
}

// Path checks a URL path: slash separated segments of whitelisted characters,
// no parent references, no empty segments, bounded length.
func Path(path string) error {
	if !pathRE.MatchString(path) {
		return fmt.Errorf("invalid path format: %q", path)
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("path %q must not contain '..'", path)
	}
	if strings.Contains(path, "//") {
		return fmt.Errorf("path %q must not contain '//'", path)
	}
	if len(path) > maxPathLength {
		return fmt.Errorf("path is too long (max %d characters)", maxPathLength)
	}
	return nil
}

// Subdomain checks an RFC-1123 style domain name fragment: dot separated
// labels of 1-63 characters, letters, digits and hyphens only, each label
// bounded by an alphanumeric character, 253 characters total.
func Subdomain(subdomain string) error {
	if len(subdomain) > maxHostnameLength {
		return fmt.Errorf("subdomain is too long (max %d characters)", maxHostnameLength)
	}
	for _, label := range strings.Split(subdomain, ".") {
		if err := checkLabel(label); err != nil {
			return err
		}
	}
	return nil
}

// Hostname checks a fully qualified hostname, optionally followed by a
// ":port" suffix. At least two labels are required and consecutive hyphens
// are rejected, mirroring the RFC-1123 shape accepted by the proxy.
func Hostname(value string) error {
	host, port, found := strings.Cut(value, ":")
	if found {
		if port == "" || strings.Trim(port, "0123456789") != "" {
			return fmt.Errorf("invalid hostname: %q", value)
		}
	}
	if host == "" || len(host) > maxHostnameLength {
		return fmt.Errorf("invalid hostname: %q", value)
	}
	if strings.Contains(host, "--") {
		return fmt.Errorf("invalid hostname: %q", value)
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return fmt.Errorf("invalid hostname: %q", value)
	}
	for i, label := range labels {
		if err := checkLabel(label); err != nil {
			return fmt.Errorf("invalid hostname: %q", value)
		}
		// leading labels may not start with a digit so the name cannot be
		// mistaken for an address literal
		if i < len(labels)-1 && label[0] >= '0' && label[0] <= '9' {
			return fmt.Errorf("invalid hostname: %q", value)
		}
	}
	return nil
}

// Port checks a TCP port number.
func Port(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("port %d out of range (1-65535)", port)
	}
	return nil
}

func checkLabel(label string) error {
	if label == "" {
		return fmt.Errorf("empty label, check for leading/trailing/consecutive dots")
	}
	if len(label) > maxLabelLength {
		return fmt.Errorf("label %q must be between 1 and %d characters", label, maxLabelLength)
	}
	if !isAlnum(label[0]) || !isAlnum(label[len(label)-1]) {
		return fmt.Errorf("label %q must start and end with a letter or digit", label)
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		if !isAlnum(c) && c != '-' {
			return fmt.Errorf("label %q contains invalid characters", label)
		}
	}
	return nil
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns a shared validator with the custom field checks
// registered. Struct tags: safe_value, url_path, subdomain, rfc1123_hostname.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New()
		// error messages name configuration options, not Go struct fields
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if name := fld.Tag.Get("field"); name != "" {
				return name
			}
			return fld.Name
		})
		register := map[string]func(string) error{
			"safe_value":       SafeValue,
			"url_path":         Path,
			"subdomain":        Subdomain,
			"rfc1123_hostname": Hostname,
		}
		for tag, fn := range register {
			fn := fn
			// registration only fails for an empty tag
			_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				return fn(fl.Field().String()) == nil
			})
		}
		instance = v
	})
	return instance
}
