package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/onnwee/anitrack/anilist"
)

// docEntry is one value in the persisted document: either the structured form
// {"id": 42, "name": "Alice"} or a legacy bare name string "Alice".
type docEntry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`

	legacyName string
}

func (e *docEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.legacyName = s
		return nil
	}
	type structured docEntry
	var v structured
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*e = docEntry(v)
	return nil
}

// decodeDocument parses a persisted document into its entries.
func decodeDocument(raw []byte) (map[string]docEntry, error) {
	entries := make(map[string]docEntry)
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode account document: %w", err)
	}
	return entries, nil
}

// encodeDocument renders the store content as the pretty-printed document.
func encodeDocument(links map[string]Link) ([]byte, error) {
	doc := make(map[string]docEntry, len(links))
	for id, l := range links {
		doc[id] = docEntry{ID: l.RemoteID, Name: l.RemoteName}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// migrateDocument converts decoded entries into links, upgrading legacy
// bare-name entries via the resolver. Entries whose resolution fails (not
// found or transport error) are dropped with a warning. The returned dirty
// flag is true when at least one entry was upgraded, i.e. when the caller
// should re-persist the document once. A drop alone does not mark the
// document dirty: a transient resolve failure should not erase the entry
// from disk, only from the loaded store.
func migrateDocument(ctx context.Context, entries map[string]docEntry, resolver Resolver) (map[string]Link, bool) {
	links := make(map[string]Link, len(entries))
	dirty := false
	for localID, e := range entries {
		if e.legacyName == "" {
			links[localID] = Link{LocalID: localID, RemoteID: e.ID, RemoteName: e.Name}
			continue
		}
		ref, err := resolver.ResolveUser(ctx, e.legacyName)
		if err != nil {
			if errors.Is(err, anilist.ErrNotFound) {
				slog.Warn("dropping legacy account entry: remote user not found",
					slog.String("local_id", localID), slog.String("name", e.legacyName))
			} else {
				slog.Warn("dropping legacy account entry: resolve failed",
					slog.String("local_id", localID), slog.String("name", e.legacyName), slog.Any("err", err))
			}
			continue
		}
		links[localID] = Link{LocalID: localID, RemoteID: ref.ID, RemoteName: ref.Name}
		dirty = true
	}
	return links, dirty
}
