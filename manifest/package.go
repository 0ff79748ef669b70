package manifest

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/Masterminds/semver/v3"
	"github.com/bgm-tracker/tracker/filesystem"
	"github.com/tidwall/gjson"
)

var (
	// ErrMalformedPackage is returned when the package descriptor is not a JSON object or holds invalid values.
	ErrMalformedPackage = errors.New("malformed package descriptor")
	// ErrMissingField is returned when a field the manifest derives from is absent or empty.
	ErrMissingField = errors.New("missing package descriptor field")
)

// Package is the subset of the package descriptor the manifest is derived from.
type Package struct {
	Version string
	Author  string
	Source  string
}

// LoadPackage reads and parses the package descriptor at path.
func LoadPackage(path string) (*Package, error) {
	data, err := filesystem.API().ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read package descriptor: %w", err)
	}

	pkg, err := ParsePackage(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pkg, nil
}

// ParsePackage extracts version, author and repository URL from a package descriptor document.
//
// author may be a string or an npm person object; repository may be an object with
// a url or the string shorthand.
func ParsePackage(data []byte) (*Package, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedPackage)
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level is not an object", ErrMalformedPackage)
	}

	version, err := parseVersion(root.Get("version"))
	if err != nil {
		return nil, err
	}

	author, err := parseAuthor(root.Get("author"))
	if err != nil {
		return nil, err
	}

	source, err := parseRepository(root.Get("repository"))
	if err != nil {
		return nil, err
	}

	return &Package{Version: version, Author: author, Source: source}, nil
}

func parseVersion(v gjson.Result) (string, error) {
	if v.Type != gjson.String || strings.TrimSpace(v.Str) == "" {
		return "", fmt.Errorf("%w: version", ErrMissingField)
	}

	if _, err := semver.StrictNewVersion(v.Str); err != nil {
		return "", fmt.Errorf("%w: version %q: %v", ErrMalformedPackage, v.Str, err)
	}
	return v.Str, nil
}

func parseAuthor(a gjson.Result) (string, error) {
	switch {
	case a.Type == gjson.String && strings.TrimSpace(a.Str) != "":
		return singleLine("author", a.Str)
	case a.IsObject():
		name := a.Get("name").String()
		if strings.TrimSpace(name) == "" {
			return "", fmt.Errorf("%w: author.name", ErrMissingField)
		}

		var b strings.Builder
		b.WriteString(name)
		if email := a.Get("email").String(); email != "" {
			fmt.Fprintf(&b, " <%s>", email)
		}
		if url := a.Get("url").String(); url != "" {
			fmt.Fprintf(&b, " (%s)", url)
		}
		return singleLine("author", b.String())
	default:
		return "", fmt.Errorf("%w: author", ErrMissingField)
	}
}

func parseRepository(r gjson.Result) (string, error) {
	var url string
	switch {
	case r.Type == gjson.String:
		url = r.Str
	case r.IsObject():
		url = r.Get("url").String()
	}

	if strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("%w: repository.url", ErrMissingField)
	}
	return singleLine("repository.url", url)
}

// singleLine rejects values that would break out of their header line.
func singleLine(field, value string) (string, error) {
	if i := strings.IndexFunc(value, unicode.IsControl); i >= 0 {
		return "", fmt.Errorf("%w: %s contains control character %q", ErrMalformedPackage, field, value[i])
	}
	return value, nil
}
