// Package manifest builds the userscript metadata record of the Bgm.tv auto tracker.
//
// A manifest is the fixed Declaration combined with the version, author and
// source read from the package descriptor at build time. It is immutable once
// built and renders either as the "// ==UserScript==" header block that
// userscript managers read at install time, or as JSON.
package manifest

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/samber/lo"
	"golang.org/x/exp/slices"
	"golang.org/x/net/idna"
)

// ErrInvalidDeclaration is returned when a declared field would produce a manifest the host rejects.
var ErrInvalidDeclaration = errors.New("invalid manifest declaration")

// Manifest is the complete userscript metadata record.
// Field order is the order used by both renderings.
type Manifest struct {
	Name      string   `json:"name" jsonschema:"minLength=1"`
	Namespace string   `json:"namespace"`
	Version   string   `json:"version" jsonschema_description:"Copied from the package descriptor"`
	Author    string   `json:"author" jsonschema_description:"Copied from the package descriptor"`
	Source    string   `json:"source" jsonschema_description:"Repository URL copied from the package descriptor"`
	License   string   `json:"license"`
	Match     []string `json:"match" jsonschema_description:"URL patterns the script activates on"`
	Require   []string `json:"require" jsonschema_description:"Scripts fetched and evaluated before the script body"`
	Grant     []string `json:"grant" jsonschema_description:"Privileged host APIs the script may call"`
	Connect   []string `json:"connect" jsonschema:"uniqueItems=true" jsonschema_description:"Extra hosts reachable from GM_xmlhttpRequest"`
	RunAt     RunAt    `json:"run-at" jsonschema:"enum=document-start,enum=document-body,enum=document-end,enum=document-idle,enum=context-menu"`
}

// Options tune how a manifest is built.
type Options struct {
	// KeepDuplicateGrants preserves repeated grant entries exactly as declared.
	KeepDuplicateGrants bool
}

// Build combines a declaration with a package descriptor.
func Build(decl Declaration, pkg *Package, opts Options) (*Manifest, error) {
	if pkg == nil {
		return nil, errors.New("package descriptor is required")
	}

	if err := decl.validate(); err != nil {
		return nil, err
	}

	grant := slices.Clone(decl.Grant)
	if !opts.KeepDuplicateGrants {
		grant = lo.Uniq(grant)
	}

	return &Manifest{
		Name:      decl.Name,
		Namespace: decl.Namespace,
		Version:   pkg.Version,
		Author:    pkg.Author,
		Source:    pkg.Source,
		License:   decl.License,
		Match:     slices.Clone(decl.Match),
		Require:   slices.Clone(decl.Require),
		Grant:     grant,
		Connect:   slices.Clone(decl.Connect),
		RunAt:     decl.RunAt,
	}, nil
}

func (d Declaration) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidDeclaration)
	}

	values := append([]string{d.Name, d.Namespace, d.License}, d.Match...)
	values = append(values, d.Require...)
	values = append(values, d.Grant...)
	values = append(values, d.Connect...)
	for _, v := range values {
		if strings.IndexFunc(v, unicode.IsControl) >= 0 {
			return fmt.Errorf("%w: %q contains a control character", ErrInvalidDeclaration, v)
		}
	}

	if !d.RunAt.Valid() {
		return fmt.Errorf("%w: unknown run-at %q", ErrInvalidDeclaration, d.RunAt)
	}

	for _, pattern := range d.Match {
		if pattern != "*" && !strings.Contains(pattern, "://") {
			return fmt.Errorf("%w: match pattern %q has no scheme", ErrInvalidDeclaration, pattern)
		}
	}

	for _, raw := range d.Require {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("%w: require %q is not an absolute URL", ErrInvalidDeclaration, raw)
		}
	}

	for _, host := range d.Connect {
		if err := validateHost(host); err != nil {
			return fmt.Errorf("%w: connect %q: %v", ErrInvalidDeclaration, host, err)
		}
	}

	return nil
}

// validateHost accepts the wildcard keywords managers understand and otherwise requires a valid host name.
func validateHost(host string) error {
	switch host {
	case "*", "self":
		return nil
	case "":
		return errors.New("empty host")
	}

	_, err := idna.Lookup.ToASCII(host)
	return err
}

// FromPackageFile loads the descriptor at path and builds the tracker manifest from it.
func FromPackageFile(path string, opts Options) (*Manifest, error) {
	pkg, err := LoadPackage(path)
	if err != nil {
		return nil, err
	}
	return Build(Tracker, pkg, opts)
}
