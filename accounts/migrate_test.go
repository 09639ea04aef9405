package accounts

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/onnwee/anitrack/anilist"
)

func TestDecodeDocumentMixedForms(t *testing.T) {
	raw := []byte(`{
	  "u1": "Alice",
	  "u2": {"id": 7, "name": "Bob"}
	}`)
	entries, err := decodeDocument(raw)
	if err != nil {
		t.Fatalf("decodeDocument: %v", err)
	}
	if e := entries["u1"]; e.legacyName != "Alice" || e.ID != 0 {
		t.Errorf("u1 = %+v, want legacy Alice", e)
	}
	if e := entries["u2"]; e.ID != 7 || e.Name != "Bob" || e.legacyName != "" {
		t.Errorf("u2 = %+v, want structured Bob/7", e)
	}
}

func TestDecodeDocumentRejectsGarbage(t *testing.T) {
	if _, err := decodeDocument([]byte(`[1,2,3]`)); err == nil {
		t.Error("expected error for non-object document")
	}
}

func TestEncodeDocumentPrettyAndStructured(t *testing.T) {
	links := map[string]Link{
		"u1": {LocalID: "u1", RemoteID: 42, RemoteName: "Alice"},
	}
	out, err := encodeDocument(links)
	if err != nil {
		t.Fatalf("encodeDocument: %v", err)
	}
	if !strings.Contains(string(out), "\n") {
		t.Error("document not pretty-printed")
	}
	var round map[string]struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(out, &round); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if round["u1"].ID != 42 || round["u1"].Name != "Alice" {
		t.Errorf("round = %+v", round["u1"])
	}
}

func TestMigrateDocumentDirtyOnlyOnUpgrade(t *testing.T) {
	r := &fakeResolver{users: map[string]anilist.UserRef{"alice": {ID: 42, Name: "Alice"}}}

	// all structured -> not dirty, resolver untouched
	entries := map[string]docEntry{"u1": {ID: 7, Name: "Bob"}}
	links, dirty := migrateDocument(context.Background(), entries, r)
	if dirty {
		t.Error("dirty for fully structured document")
	}
	if r.calls != 0 {
		t.Errorf("resolver called %d times for structured entries", r.calls)
	}
	if links["u1"].RemoteID != 7 {
		t.Errorf("links = %v", links)
	}

	// legacy upgraded -> dirty
	entries = map[string]docEntry{"u1": {legacyName: "Alice"}}
	links, dirty = migrateDocument(context.Background(), entries, r)
	if !dirty {
		t.Error("expected dirty after upgrade")
	}
	if links["u1"].RemoteID != 42 || links["u1"].RemoteName != "Alice" {
		t.Errorf("upgraded link = %+v", links["u1"])
	}

	// legacy dropped -> not dirty, entry absent
	entries = map[string]docEntry{"u1": {legacyName: "Ghost"}}
	links, dirty = migrateDocument(context.Background(), entries, r)
	if dirty {
		t.Error("drop alone must not mark document dirty")
	}
	if _, ok := links["u1"]; ok {
		t.Error("dropped entry still present")
	}
}
