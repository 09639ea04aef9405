package bot

import (
	"strings"
	"testing"

	"github.com/onnwee/anitrack/anilist"
)

func TestFormatActivityWithProgress(t *testing.T) {
	got := FormatActivity(&anilist.Activity{
		ID:       7,
		Status:   "watched episode",
		Progress: "3",
		Title:    "Frieren: Beyond Journey's End",
		SiteURL:  "https://anilist.co/anime/154587",
		UserName: "Alice",
	})
	want := "Alice watched episode 3 of Frieren: Beyond Journey's End | https://anilist.co/anime/154587"
	if got != want {
		t.Errorf("FormatActivity = %q, want %q", got, want)
	}
}

func TestFormatActivityWithoutProgress(t *testing.T) {
	got := FormatActivity(&anilist.Activity{
		Status:   "completed",
		Title:    "Mushishi",
		UserName: "Bob",
	})
	if got != "Bob completed Mushishi" {
		t.Errorf("FormatActivity = %q", got)
	}
}

func TestFormatStats(t *testing.T) {
	st := &anilist.Statistics{
		Name:            "Alice",
		SiteURL:         "https://anilist.co/user/Alice",
		AnimeCount:      123,
		EpisodesWatched: 2500,
		MinutesWatched:  60 * 24 * 10, // exactly 10 days
		MangaCount:      8,
		ChaptersRead:    410,
	}
	anime := formatAnimeStats(st)
	if !strings.Contains(anime, "123 anime") || !strings.Contains(anime, "10.0 days") {
		t.Errorf("formatAnimeStats = %q", anime)
	}
	manga := formatMangaStats(st)
	if !strings.Contains(manga, "8 manga") || !strings.Contains(manga, "410 chapters") {
		t.Errorf("formatMangaStats = %q", manga)
	}
	profile := formatProfile(st)
	if !strings.Contains(profile, "Alice") || !strings.Contains(profile, "123") || !strings.Contains(profile, "410") {
		t.Errorf("formatProfile = %q", profile)
	}
}
