// Package store persists tracker backend records: bgm.tv tokens, website-to-subject
// mappings and reports of seasons that have no mapping yet.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// MissingReport is a user report of a season with no bgm.tv subject mapping.
type MissingReport struct {
	BangumiID string `json:"bangumiID"`
	SubjectID string `json:"subjectID"`
	Title     string `json:"title"`
	Href      string `json:"href"`
	Website   string `json:"website"`
}

// Subject is a stored mapping document for one season on one website.
type Subject struct {
	Website   string
	BangumiID string
	Document  []byte
}

// Store is the persistence API the backend depends on.
// Documents are raw JSON objects.
type Store interface {
	// UpsertToken merges doc over the stored token of userID, creating it if absent.
	UpsertToken(ctx context.Context, userID string, doc []byte) error
	GetToken(ctx context.Context, userID string) ([]byte, error)

	PutSubject(ctx context.Context, website, bangumiID string, doc []byte) error
	FindSubject(ctx context.Context, website, bangumiID string) ([]byte, error)
	ListSubjects(ctx context.Context, website string) ([]Subject, error)

	InsertMissing(ctx context.Context, report MissingReport) error
	// ListMissing returns at most limit reports, oldest first.
	ListMissing(ctx context.Context, limit int) ([]MissingReport, error)

	Close() error
}
