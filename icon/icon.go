// Package icon provides a multi-variant rendering engine for CLI feedback symbols.
//
// Icons can be displayed as emoji, nerd-font glyphs, plain ASCII or Unicode
// squares depending on user preference.
package icon

import (
	"github.com/bgm-tracker/tracker/key"
	"github.com/spf13/viper"
)

const (
	emoji   = "emoji"
	nerd    = "nerd"
	plain   = "plain"
	squares = "squares"
)

// AvailableVariants returns a slice of all registered icon style identifiers.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain, squares}
}

// Icon identifies a symbol in the registry.
type Icon int

const (
	Success Icon = iota
	Fail
	Progress
	Info
	Warn
)

type iconDef struct {
	emoji   string
	nerd    string
	plain   string
	squares string
}

func (d *iconDef) get() string {
	switch viper.GetString(key.IconsVariant) {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case plain:
		return d.plain
	case squares:
		return d.squares
	default:
		return ""
	}
}

var icons = map[Icon]*iconDef{
	Success:  {emoji: "🎉", nerd: "\uf00c", plain: "✓", squares: "🟩"},
	Fail:     {emoji: "💀", nerd: "\uf00d", plain: "✖", squares: "🟥"},
	Progress: {emoji: "⏳", nerd: "\uf110", plain: "…", squares: "🟦"},
	Info:     {emoji: "ℹ️", nerd: "\uf05a", plain: "i", squares: "🟪"},
	Warn:     {emoji: "⚠️", nerd: "\uf071", plain: "!", squares: "🟨"},
}

// Get returns the rendered string for an Icon under the configured variant.
func Get(i Icon) string {
	if d, ok := icons[i]; ok {
		return d.get()
	}
	return ""
}

