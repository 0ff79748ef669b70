package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"
)

// ErrNoBangumiID is returned by DecodeSubjects for an entry without an id.
var ErrNoBangumiID = errors.New("subject entry has no _id or bangumiID")

// DecodeSubjects reads a YAML or JSON list of mapping documents for website.
// Each entry is identified by its _id, or bangumiID when _id is absent, and
// the id is stored back into _id as a string.
func DecodeSubjects(website string, data []byte) ([]Subject, error) {
	var entries []map[string]any
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode subjects: %w", err)
	}

	subjects := make([]Subject, 0, len(entries))
	for i, entry := range entries {
		id, ok := entry["_id"]
		if !ok {
			id, ok = entry["bangumiID"]
		}
		if !ok || id == nil || fmt.Sprint(id) == "" {
			return nil, fmt.Errorf("entry %d: %w", i, ErrNoBangumiID)
		}

		doc, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		bangumiID := fmt.Sprint(id)
		doc, err = sjson.SetBytes(doc, "_id", bangumiID)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		subjects = append(subjects, Subject{Website: website, BangumiID: bangumiID, Document: doc})
	}

	return subjects, nil
}

// Title is the display title of a subject document, empty when absent.
func (s Subject) Title() string {
	for _, field := range []string{"title", "name_cn", "name"} {
		if v := gjson.GetBytes(s.Document, field).String(); v != "" {
			return v
		}
	}
	return ""
}

// SearchSubjects returns the subjects whose title fuzzily matches query, best match first.
func SearchSubjects(subjects []Subject, query string) []Subject {
	titles := lo.Map(subjects, func(s Subject, _ int) string { return s.Title() })

	ranks := fuzzy.RankFindNormalizedFold(query, titles)
	sort.Stable(ranks)

	return lo.Map(ranks, func(r fuzzy.Rank, _ int) Subject {
		return subjects[r.OriginalIndex]
	})
}
