package manifest

import (
	"fmt"

	"github.com/bgm-tracker/tracker/filesystem"
)

// Format selects a manifest rendering.
type Format int

const (
	FormatHeader Format = iota
	FormatJSON
)

// Render returns the manifest in the given format.
func (m *Manifest) Render(f Format) ([]byte, error) {
	if f == FormatJSON {
		return m.JSON()
	}
	return []byte(m.Header()), nil
}

// WriteFile builds the manifest from the descriptor at pkgPath and writes it to output.
// Nothing is written when the descriptor or the declaration is invalid.
func WriteFile(pkgPath, output string, f Format, opts Options) (*Manifest, error) {
	m, err := FromPackageFile(pkgPath, opts)
	if err != nil {
		return nil, err
	}

	out, err := m.Render(f)
	if err != nil {
		return nil, fmt.Errorf("render manifest: %w", err)
	}

	if err := filesystem.WriteAtomic(output, out, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", output, err)
	}
	return m, nil
}
