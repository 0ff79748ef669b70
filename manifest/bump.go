package manifest

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/bgm-tracker/tracker/filesystem"
	"github.com/tidwall/sjson"
)

// Version increments accepted by BumpVersion.
const (
	BumpMajor = "major"
	BumpMinor = "minor"
	BumpPatch = "patch"
)

// NextVersion computes the version that follows current for the given target.
// target is major, minor, patch, or an explicit version that must be greater than current.
func NextVersion(current, target string) (string, error) {
	v, err := semver.StrictNewVersion(current)
	if err != nil {
		return "", fmt.Errorf("%w: version %q: %v", ErrMalformedPackage, current, err)
	}

	var next semver.Version
	switch target {
	case BumpMajor:
		next = v.IncMajor()
	case BumpMinor:
		next = v.IncMinor()
	case BumpPatch:
		next = v.IncPatch()
	default:
		explicit, err := semver.StrictNewVersion(target)
		if err != nil {
			return "", fmt.Errorf("invalid target version %q: %w", target, err)
		}
		if !explicit.GreaterThan(v) {
			return "", fmt.Errorf("target version %s is not greater than %s", explicit, v)
		}
		next = *explicit
	}

	return next.String(), nil
}

// BumpVersion rewrites the version of the package descriptor at path.
// Only the version value changes; the rest of the document is left byte for byte.
func BumpVersion(path, target string) (previous, next string, err error) {
	data, err := filesystem.API().ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read package descriptor: %w", err)
	}

	pkg, err := ParsePackage(data)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", path, err)
	}

	next, err = NextVersion(pkg.Version, target)
	if err != nil {
		return "", "", err
	}

	updated, err := sjson.SetBytes(data, "version", next)
	if err != nil {
		return "", "", fmt.Errorf("set version: %w", err)
	}

	perm := os.FileMode(0o644)
	if info, err := filesystem.API().Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	if err := filesystem.WriteAtomic(path, updated, perm); err != nil {
		return "", "", err
	}
	return pkg.Version, next, nil
}
