package store

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var pathEscaper = strings.NewReplacer(`\`, `\\`, ".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)

// mergeDocuments sets every top-level field of patch on base, like a document store's $set.
func mergeDocuments(base, patch []byte) ([]byte, error) {
	if len(base) == 0 {
		base = []byte("{}")
	}

	if !gjson.ValidBytes(patch) || !gjson.ParseBytes(patch).IsObject() {
		return nil, fmt.Errorf("document is not a JSON object")
	}

	out := base
	var err error
	gjson.ParseBytes(patch).ForEach(func(k, v gjson.Result) bool {
		out, err = sjson.SetRawBytes(out, pathEscaper.Replace(k.String()), []byte(v.Raw))
		return err == nil
	})
	if err != nil {
		return nil, fmt.Errorf("merge field: %w", err)
	}
	return out, nil
}
