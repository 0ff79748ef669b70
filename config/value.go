package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bgm-tracker/tracker/icon"
	"github.com/bgm-tracker/tracker/key"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/idna"
)

var (
	// ErrUnknownKey is returned for keys missing from Default.
	ErrUnknownKey = errors.New("unknown config key")
	// ErrInvalidValue is returned when a value does not fit its key.
	ErrInvalidValue = errors.New("invalid config value")
)

var validators = map[string]func(v any) error{
	key.ServerProtocol: func(v any) error {
		return oneOf(v.(string), "http", "https")
	},
	key.ServerHost: func(v any) error {
		return validateHost(v.(string))
	},
	key.ServerPort: func(v any) error {
		return between(v.(int), 1, 65535)
	},
	key.ServerMissingLimit: func(v any) error {
		return between(v.(int), 1, 1000)
	},
	key.ManifestPackage: func(v any) error {
		if ext := filepath.Ext(v.(string)); ext != ".json" {
			return fmt.Errorf("expected a .json package descriptor, got %q", v)
		}
		return nil
	},
	key.BgmAppID: func(v any) error {
		if strings.ContainsAny(v.(string), " \t\r\n") {
			return errors.New("must not contain whitespace")
		}
		return nil
	},
	key.IconsVariant: func(v any) error {
		return oneOf(v.(string), icon.AvailableVariants()...)
	},
	key.LogsLevel: func(v any) error {
		_, err := logrus.ParseLevel(v.(string))
		return err
	},
}

// Parse converts raw command line values into the type of the key's default and validates the result.
func Parse(k string, raw []string) (any, error) {
	field, ok := Default[k]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, k)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s: no value", ErrInvalidValue, k)
	}

	var v any
	switch field.Value.(type) {
	case string:
		v = raw[0]
	case int:
		n, err := strconv.Atoi(raw[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %q is not an integer", ErrInvalidValue, k, raw[0])
		}
		v = n
	case bool:
		b, err := strconv.ParseBool(raw[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %q is not a boolean", ErrInvalidValue, k, raw[0])
		}
		v = b
	case []string:
		v = raw
	default:
		return nil, fmt.Errorf("%w: %s: unsupported type %T", ErrInvalidValue, k, field.Value)
	}

	if err := Validate(k, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate checks a typed value against the constraints of its key.
func Validate(k string, v any) error {
	validate, ok := validators[k]
	if !ok {
		return nil
	}

	if err := validate(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidValue, k, err)
	}
	return nil
}

// Sensitive reports whether the key holds a credential.
func Sensitive(k string) bool {
	return k == key.BgmAppSecret
}

// Mask hides non-empty credential values.
func Mask(k string, v any) any {
	if s, ok := v.(string); ok && s != "" && Sensitive(k) {
		return strings.Repeat("*", 8)
	}
	return v
}

func oneOf(v string, allowed ...string) error {
	if lo.Contains(allowed, v) {
		return nil
	}
	return fmt.Errorf("%q is not one of %s", v, strings.Join(allowed, ", "))
}

func between(v, low, high int) error {
	if v < low || v > high {
		return fmt.Errorf("%d is outside %d..%d", v, low, high)
	}
	return nil
}

// validateHost accepts a host name with an optional port, as used in the OAuth redirect URI.
func validateHost(host string) error {
	if host == "" {
		return errors.New("empty host")
	}
	if strings.Contains(host, "/") {
		return fmt.Errorf("%q must be a bare host, without scheme or path", host)
	}

	name := host
	if h, port, err := net.SplitHostPort(host); err == nil {
		if _, err := strconv.Atoi(port); err != nil {
			return fmt.Errorf("invalid port %q", port)
		}
		name = h
	}

	_, err := idna.Lookup.ToASCII(name)
	return err
}
