// Package accounts owns the durable mapping from Twitch chat users to AniList
// accounts: the in-memory store, its persisted flat JSON document (file or
// Postgres backed), and the link/unlink rules.
package accounts

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/onnwee/anitrack/anilist"
	"github.com/onnwee/anitrack/telemetry"
)

// Link associates one Twitch chat user with one AniList account.
type Link struct {
	LocalID    string // Twitch login, map key
	RemoteID   int    // AniList user id, immutable once set
	RemoteName string // AniList display name
}

var (
	// ErrAlreadyLinked reports that another chat user already holds a link to
	// the same AniList name (case-insensitive).
	ErrAlreadyLinked = errors.New("accounts: remote account already linked by another user")
	// ErrNotLinked reports that the chat user has no link.
	ErrNotLinked = errors.New("accounts: not linked")
)

// Resolver resolves an AniList display name to an account. Satisfied by
// *anilist.Client.
type Resolver interface {
	ResolveUser(ctx context.Context, name string) (anilist.UserRef, error)
}

// LedgerDropper removes a remote account's dedup state. Satisfied by
// *activity.Ledger; optional.
type LedgerDropper interface {
	Drop(remoteName string)
}

// Store holds all account links. All mutation happens behind one mutex; every
// mutation persists the full document synchronously.
type Store struct {
	mu       sync.Mutex
	links    map[string]Link
	doc      DocStore
	resolver Resolver
	ledger   LedgerDropper
}

// NewStore creates an empty store over the given persistence backend.
func NewStore(doc DocStore, resolver Resolver) *Store {
	return &Store{
		links:    make(map[string]Link),
		doc:      doc,
		resolver: resolver,
	}
}

// SetLedger wires the dedup ledger so unlinks can drop stale entries.
func (s *Store) SetLedger(l LedgerDropper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = l
}

// Load reads the persisted document, upgrading legacy bare-name entries via
// the resolver. An absent document yields an empty store. If any entry was
// upgraded the document is re-persisted exactly once.
func (s *Store) Load(ctx context.Context) error {
	raw, ok, err := s.doc.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		slog.Info("no account document found; starting empty")
		return nil
	}
	entries, err := decodeDocument(raw)
	if err != nil {
		return err
	}
	links, dirty := migrateDocument(ctx, entries, s.resolver)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = links
	telemetry.SetLinkedAccounts(len(s.links))
	if dirty {
		s.persistLocked(ctx)
	}
	slog.Info("account store loaded", slog.Int("links", len(links)), slog.Bool("migrated", dirty))
	return nil
}

// LinkAccount links localID to the AniList account named remoteName. The prior
// link, if any, is replaced wholesale. Fails with ErrAlreadyLinked when a
// different chat user already holds a link to the same name
// (case-insensitive); re-linking to one's own current name is a harmless
// replace. Fails with anilist.ErrNotFound when the name does not resolve.
func (s *Store) LinkAccount(ctx context.Context, localID, remoteName string) (Link, error) {
	s.mu.Lock()
	lower := strings.ToLower(remoteName)
	for id, l := range s.links {
		if id != localID && strings.ToLower(l.RemoteName) == lower {
			s.mu.Unlock()
			return Link{}, ErrAlreadyLinked
		}
	}
	s.mu.Unlock()

	// Resolve outside the lock: a slow remote call must not block readers.
	ref, err := s.resolver.ResolveUser(ctx, remoteName)
	if err != nil {
		return Link{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check under the lock; a concurrent link may have taken the name.
	canonical := strings.ToLower(ref.Name)
	for id, l := range s.links {
		if id != localID && strings.ToLower(l.RemoteName) == canonical {
			return Link{}, ErrAlreadyLinked
		}
	}
	link := Link{LocalID: localID, RemoteID: ref.ID, RemoteName: ref.Name}
	s.links[localID] = link
	telemetry.SetLinkedAccounts(len(s.links))
	s.persistLocked(ctx)
	return link, nil
}

// UnlinkAccount removes localID's link and drops its dedup ledger entry.
// Returns ErrNotLinked when no link exists.
func (s *Store) UnlinkAccount(ctx context.Context, localID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[localID]
	if !ok {
		return ErrNotLinked
	}
	delete(s.links, localID)
	if s.ledger != nil {
		s.ledger.Drop(link.RemoteName)
	}
	telemetry.SetLinkedAccounts(len(s.links))
	s.persistLocked(ctx)
	return nil
}

// Get returns localID's link, if any.
func (s *Store) Get(localID string) (Link, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[localID]
	return l, ok
}

// All returns a snapshot of every link, sorted by local id for stable
// iteration order.
func (s *Store) All() []Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Link, 0, len(s.links))
	for _, l := range s.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocalID < out[j].LocalID })
	return out
}

// Len returns the number of links.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

// persistLocked writes the full document. A persist failure keeps the
// in-memory mutation and is logged loudly: rolling back would drop a linkage
// the user was just told succeeded. Callers must hold s.mu.
func (s *Store) persistLocked(ctx context.Context) {
	doc, err := encodeDocument(s.links)
	if err != nil {
		slog.Error("encode account document failed; in-memory state kept", slog.Any("err", err))
		return
	}
	if err := s.doc.Save(ctx, doc); err != nil {
		slog.Error("persist account document failed; in-memory state kept", slog.Any("err", err))
	}
}
