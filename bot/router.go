package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/onnwee/anitrack/accounts"
	"github.com/onnwee/anitrack/anilist"
	"github.com/onnwee/anitrack/telemetry"
)

// StatsClient is the slice of the AniList client the router needs. Satisfied
// by *anilist.Client.
type StatsClient interface {
	UserStatistics(ctx context.Context, name string) (*anilist.Statistics, error)
}

// Router maps chat commands to account store and stats operations, producing
// the reply text. It knows nothing about the chat transport.
type Router struct {
	store *accounts.Store
	stats StatsClient
}

func NewRouter(store *accounts.Store, stats StatsClient) *Router {
	telemetry.Init()
	return &Router{store: store, stats: stats}
}

const leaderboardSize = 10

// Handle processes one chat line from caller (a Twitch login). It returns the
// reply and whether the line was a recognized command.
func (r *Router) Handle(ctx context.Context, caller, message string) (string, bool) {
	fields := strings.Fields(message)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "!") {
		return "", false
	}
	cmd := strings.ToLower(strings.TrimPrefix(fields[0], "!"))
	args := fields[1:]

	var reply string
	switch cmd {
	case "link":
		reply = r.cmdLink(ctx, caller, args)
	case "unlink":
		reply = r.cmdUnlink(ctx, caller)
	case "myanime":
		reply = r.cmdStats(ctx, caller, args, statAnime)
	case "mymanga":
		reply = r.cmdStats(ctx, caller, args, statManga)
	case "profile":
		reply = r.cmdStats(ctx, caller, args, statProfile)
	case "topanime":
		reply = r.cmdLeaderboard(ctx, statAnime)
	case "topmanga":
		reply = r.cmdLeaderboard(ctx, statManga)
	case "stats":
		reply = r.cmdListLinks()
	case "help":
		reply = helpText
	default:
		return "", false
	}
	telemetry.CommandsHandled.Inc()
	return reply, true
}

const helpText = "Commands: !link <anilist name>, !unlink, !myanime [user], !mymanga [user], !profile [user], !topanime, !topmanga, !stats, !help"

func (r *Router) cmdLink(ctx context.Context, caller string, args []string) string {
	if len(args) != 1 {
		return "Usage: !link <anilist name>"
	}
	link, err := r.store.LinkAccount(ctx, caller, args[0])
	switch {
	case errors.Is(err, accounts.ErrAlreadyLinked):
		return fmt.Sprintf("@%s that AniList account is already linked to someone else.", caller)
	case errors.Is(err, anilist.ErrNotFound):
		return fmt.Sprintf("@%s couldn't find an AniList user named %q.", caller, args[0])
	case err != nil:
		slog.Error("link failed", slog.String("caller", caller), slog.Any("err", err))
		return fmt.Sprintf("@%s sorry, AniList isn't responding right now. Try again later.", caller)
	}
	telemetry.LinksCreated.Inc()
	return fmt.Sprintf("@%s linked to AniList user %s.", caller, link.RemoteName)
}

func (r *Router) cmdUnlink(ctx context.Context, caller string) string {
	err := r.store.UnlinkAccount(ctx, caller)
	if errors.Is(err, accounts.ErrNotLinked) {
		return fmt.Sprintf("@%s you don't have a linked AniList account.", caller)
	}
	if err != nil {
		slog.Error("unlink failed", slog.String("caller", caller), slog.Any("err", err))
		return fmt.Sprintf("@%s sorry, something went wrong.", caller)
	}
	telemetry.LinksRemoved.Inc()
	return fmt.Sprintf("@%s unlinked.", caller)
}

type statKind int

const (
	statAnime statKind = iota
	statManga
	statProfile
)

// resolveTarget picks the AniList name a stats command refers to: the caller's
// own link when no argument is given, a mentioned chat user's link for
// @mention arguments, or the argument itself as a literal AniList name.
func (r *Router) resolveTarget(caller string, args []string) (string, string) {
	if len(args) == 0 {
		link, ok := r.store.Get(caller)
		if !ok {
			return "", fmt.Sprintf("@%s you haven't linked an AniList account yet. Use !link <name>.", caller)
		}
		return link.RemoteName, ""
	}
	arg := args[0]
	if mention, ok := strings.CutPrefix(arg, "@"); ok {
		link, ok := r.store.Get(strings.ToLower(mention))
		if !ok {
			return "", fmt.Sprintf("@%s %s hasn't linked an AniList account.", caller, arg)
		}
		return link.RemoteName, ""
	}
	return arg, ""
}

func (r *Router) cmdStats(ctx context.Context, caller string, args []string, kind statKind) string {
	name, errReply := r.resolveTarget(caller, args)
	if errReply != "" {
		return errReply
	}
	st, err := r.stats.UserStatistics(ctx, name)
	if errors.Is(err, anilist.ErrNotFound) {
		return fmt.Sprintf("@%s couldn't find an AniList user named %q.", caller, name)
	}
	if err != nil {
		slog.Error("statistics fetch failed", slog.String("name", name), slog.Any("err", err))
		return fmt.Sprintf("@%s sorry, AniList isn't responding right now. Try again later.", caller)
	}
	switch kind {
	case statAnime:
		return formatAnimeStats(st)
	case statManga:
		return formatMangaStats(st)
	default:
		return formatProfile(st)
	}
}

func (r *Router) cmdListLinks() string {
	links := r.store.All()
	if len(links) == 0 {
		return "No linked accounts yet. Use !link <anilist name>."
	}
	parts := make([]string, 0, len(links))
	for _, l := range links {
		parts = append(parts, fmt.Sprintf("%s → %s", l.LocalID, l.RemoteName))
	}
	return fmt.Sprintf("Linked accounts (%d): %s", len(links), strings.Join(parts, ", "))
}

// boardEntry is one leaderboard row.
type boardEntry struct {
	Name  string
	Count int
}

// leaderboard fetches statistics for every linked account concurrently,
// discards failed fetches, and returns the top entries sorted descending by
// completed count. Ties keep fetch order (the store's stable iteration order).
func (r *Router) leaderboard(ctx context.Context, kind statKind) []boardEntry {
	links := r.store.All()
	results := make([]*anilist.Statistics, len(links))
	var wg sync.WaitGroup
	for i, link := range links {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			st, err := r.stats.UserStatistics(ctx, name)
			if err != nil {
				if !errors.Is(err, anilist.ErrNotFound) {
					slog.Warn("leaderboard fetch failed", slog.String("name", name), slog.Any("err", err))
				}
				return
			}
			results[i] = st
		}(i, link.RemoteName)
	}
	wg.Wait()

	entries := make([]boardEntry, 0, len(results))
	for _, st := range results {
		if st == nil {
			continue
		}
		count := st.AnimeCount
		if kind == statManga {
			count = st.MangaCount
		}
		entries = append(entries, boardEntry{Name: st.Name, Count: count})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Count > entries[j].Count })
	if len(entries) > leaderboardSize {
		entries = entries[:leaderboardSize]
	}
	return entries
}

func (r *Router) cmdLeaderboard(ctx context.Context, kind statKind) string {
	entries := r.leaderboard(ctx, kind)
	label := "anime"
	if kind == statManga {
		label = "manga"
	}
	if len(entries) == 0 {
		return fmt.Sprintf("No %s stats to rank yet.", label)
	}
	parts := make([]string, 0, len(entries))
	for i, e := range entries {
		parts = append(parts, fmt.Sprintf("%d. %s (%d)", i+1, e.Name, e.Count))
	}
	return fmt.Sprintf("Top %s: %s", label, strings.Join(parts, " "))
}
