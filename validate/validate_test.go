package validate_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/canonical/ingress-configurator/validate"
)

func TestSafeValue(t *testing.T) {
	for _, tc := range []struct {
		value string
		ok    bool
	}{
		{"abc-DEF_0.9/x", true},
		{"", true},
		{"with space", false},
		{"tab\there", false},
		{"dollar$", false},
		{`back\slash`, false},
		{"quote'", false},
		{"hash#", false},
		{"newline\n", false},
	} {
		t.Run(tc.value, func(t *testing.T) {
			err := validate.SafeValue(tc.value)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPath(t *testing.T) {
	for _, tc := range []struct {
		name string
		path string
		ok   bool
	}{
		{"root", "/", true},
		{"simple", "/api/v1", true},
		{"empty", "", true},
		{"trailing slash segment", "/api/", true},
		{"no leading slash", "api", false},
		{"parent ref", "/api/../etc", false},
		{"double slash", "//api", false},
		{"space", "/api v1", false},
		{"too long", "/" + strings.Repeat("a", 2048), false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := validate.Path(tc.path)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSubdomain(t *testing.T) {
	for _, tc := range []struct {
		name      string
		subdomain string
		ok        bool
	}{
		{"single label", "api", true},
		{"multi label", "api.internal", true},
		{"digits", "v2.api", true},
		{"hyphen inside", "my-api", true},
		{"leading hyphen", "-api", false},
		{"trailing hyphen", "api-", false},
		{"empty label", "api..internal", false},
		{"leading dot", ".api", false},
		{"label too long", strings.Repeat("a", 64), false},
		{"too long", strings.Repeat("a.", 127) + "toolong", false},
		{"illegal char", "api_internal", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := validate.Subdomain(tc.subdomain)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestHostname(t *testing.T) {
	for _, tc := range []struct {
		name     string
		hostname string
		ok       bool
	}{
		{"fqdn", "example.com", true},
		{"subdomained", "api.example.com", true},
		{"with port", "example.com:8080", true},
		{"single label", "localhost", false},
		{"double hyphen", "exa--mple.com", false},
		{"digit leading label", "9api.example.com", false},
		{"empty port", "example.com:", false},
		{"bad port", "example.com:http", false},
		{"trailing dot", "example.com.", false},
		{"too long", strings.Repeat("a.", 127) + "com", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := validate.Hostname(tc.hostname)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPort(t *testing.T) {
	for _, tc := range []struct {
		port int
		ok   bool
	}{
		{1, true},
		{65535, true},
		{0, false},
		{-1, false},
		{65536, false},
	} {
		err := validate.Port(tc.port)
		if tc.ok {
			assert.NoError(t, err, "port %d", tc.port)
		} else {
			assert.Error(t, err, "port %d", tc.port)
		}
	}
}

func TestValidatorTags(t *testing.T) {
	type subject struct {
		Host string `validate:"omitempty,rfc1123_hostname" field:"hostname"`
		Path string `validate:"omitempty,url_path" field:"paths"`
	}

	assert.NoError(t, validate.Validator().Struct(&subject{Host: "example.com", Path: "/api"}))

	err := validate.Validator().Struct(&subject{Host: "not valid", Path: "also invalid"})
	if assert.Error(t, err) {
		// messages surface the configuration option names
		assert.Contains(t, err.Error(), "hostname")
		assert.Contains(t, err.Error(), "paths")
	}
}
