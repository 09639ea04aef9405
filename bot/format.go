package bot

import (
	"fmt"
	"strings"

	"github.com/onnwee/anitrack/anilist"
)

// FormatActivity renders one activity as a single chat line, e.g.
// "Alice watched episode 3 of Frieren | https://anilist.co/anime/154587".
func FormatActivity(a *anilist.Activity) string {
	var b strings.Builder
	b.WriteString(a.UserName)
	verb := a.Status
	if verb == "" {
		verb = "updated"
	}
	if a.Progress != "" {
		fmt.Fprintf(&b, " %s %s of %s", verb, a.Progress, a.Title)
	} else {
		fmt.Fprintf(&b, " %s %s", verb, a.Title)
	}
	if a.SiteURL != "" {
		b.WriteString(" | ")
		b.WriteString(a.SiteURL)
	}
	return b.String()
}

func formatAnimeStats(st *anilist.Statistics) string {
	days := float64(st.MinutesWatched) / 60 / 24
	return fmt.Sprintf("%s has completed %d anime: %d episodes, %.1f days watched. %s",
		st.Name, st.AnimeCount, st.EpisodesWatched, days, st.SiteURL)
}

func formatMangaStats(st *anilist.Statistics) string {
	return fmt.Sprintf("%s has completed %d manga: %d chapters read. %s",
		st.Name, st.MangaCount, st.ChaptersRead, st.SiteURL)
}

func formatProfile(st *anilist.Statistics) string {
	days := float64(st.MinutesWatched) / 60 / 24
	return fmt.Sprintf("%s — anime: %d completed (%d eps, %.1f days), manga: %d completed (%d chapters). %s",
		st.Name, st.AnimeCount, st.EpisodesWatched, days, st.MangaCount, st.ChaptersRead, st.SiteURL)
}
