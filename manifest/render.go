package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

const (
	headerOpen  = "// ==UserScript=="
	headerClose = "// ==/UserScript=="
)

type entry struct {
	key   string
	value string
}

func (m *Manifest) entries() []entry {
	entries := []entry{
		{"name", m.Name},
		{"namespace", m.Namespace},
		{"version", m.Version},
		{"author", m.Author},
		{"source", m.Source},
		{"license", m.License},
	}

	list := func(key string, values []string) {
		for _, v := range values {
			entries = append(entries, entry{key, v})
		}
	}

	list("match", m.Match)
	list("require", m.Require)
	list("grant", m.Grant)
	list("connect", m.Connect)

	return append(entries, entry{"run-at", string(m.RunAt)})
}

// Header renders the metadata block placed at the top of the userscript.
// List fields repeat their key once per value, and values start on a shared column.
func (m *Manifest) Header() string {
	entries := m.entries()
	width := lo.Max(lo.Map(entries, func(e entry, _ int) int { return len(e.key) }))

	var b strings.Builder
	b.WriteString(headerOpen + "\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "// @%-*s %s\n", width, e.key, e.value)
	}
	b.WriteString(headerClose + "\n")
	return b.String()
}

// JSON renders the manifest as indented JSON without HTML escaping.
func (m *Manifest) JSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
