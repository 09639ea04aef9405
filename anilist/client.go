// Package anilist contains a minimal client for the AniList GraphQL API covering
// user id resolution, latest media-list activity, and profile statistics.
package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultURL is the public AniList GraphQL endpoint.
const DefaultURL = "https://graphql.anilist.co"

// ErrNotFound reports that the queried user or resource does not exist.
// It is a user-facing outcome, distinct from transport or parse failures.
var ErrNotFound = errors.New("anilist: not found")

// ServiceError wraps a transport, HTTP, or decode failure. The response body is
// retained (truncated) so callers can log full detail.
type ServiceError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("anilist: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("anilist: %s: http %d: %s", e.Op, e.Status, e.Body)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Client issues GraphQL queries against the AniList API.
type Client struct {
	URL        string
	HTTPClient *http.Client
}

// New returns a Client for the given endpoint (empty means DefaultURL).
func New(url string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{URL: url}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// UserRef is a resolved AniList account.
type UserRef struct {
	ID   int
	Name string
}

// Activity is a single media-list activity entry.
type Activity struct {
	ID        int
	Status    string // watching, rewatching, completed, paused, dropped, planning, ...
	Progress  string // optional, e.g. "1 - 3"
	Title     string
	MediaKind string // "anime" or "other"
	SiteURL   string
	CoverURL  string
	CreatedAt int64 // epoch seconds
	UserName  string
}

// Statistics is a user's aggregate anime/manga profile.
type Statistics struct {
	Name            string
	SiteURL         string
	AvatarURL       string
	AnimeCount      int
	EpisodesWatched int
	MinutesWatched  int
	MangaCount      int
	ChaptersRead    int
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// post runs one query/variables round trip and decodes the data envelope into out.
// A 404 or a GraphQL "Not Found" error maps to ErrNotFound; anything else
// unexpected becomes a *ServiceError.
func (c *Client) post(ctx context.Context, op, query string, vars map[string]any, out any) error {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return &ServiceError{Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return &ServiceError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := c.http().Do(req)
	if err != nil {
		return &ServiceError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &ServiceError{Op: op, Status: resp.StatusCode, Err: err}
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &ServiceError{Op: op, Status: resp.StatusCode, Body: truncate(body), Err: err}
	}
	for _, ge := range envelope.Errors {
		if ge.Status == http.StatusNotFound || strings.EqualFold(ge.Message, "not found") {
			return ErrNotFound
		}
	}
	if len(envelope.Errors) > 0 || resp.StatusCode != http.StatusOK {
		return &ServiceError{Op: op, Status: resp.StatusCode, Body: truncate(body)}
	}
	if len(envelope.Data) == 0 {
		return ErrNotFound
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &ServiceError{Op: op, Status: resp.StatusCode, Body: truncate(body), Err: err}
	}
	return nil
}

func truncate(b []byte) string {
	const max = 2048
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

const resolveUserQuery = `query ($name: String) {
  User(name: $name) { id name }
}`

// ResolveUser resolves a display name to its AniList account.
func (c *Client) ResolveUser(ctx context.Context, name string) (UserRef, error) {
	if name == "" {
		return UserRef{}, ErrNotFound
	}
	var data struct {
		User *struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"User"`
	}
	if err := c.post(ctx, "resolve user", resolveUserQuery, map[string]any{"name": name}, &data); err != nil {
		return UserRef{}, err
	}
	if data.User == nil || data.User.ID == 0 {
		return UserRef{}, ErrNotFound
	}
	return UserRef{ID: data.User.ID, Name: data.User.Name}, nil
}

const latestActivityQuery = `query ($userId: Int) {
  Activity(userId: $userId, sort: ID_DESC, type: MEDIA_LIST) {
    ... on ListActivity {
      id
      status
      progress
      createdAt
      user { name }
      media {
        siteUrl
        type
        title { userPreferred }
        coverImage { large }
      }
    }
  }
}`

// LatestActivity returns the user's most recent media-list activity, or nil
// when the user has no qualifying activity.
func (c *Client) LatestActivity(ctx context.Context, userID int) (*Activity, error) {
	var data struct {
		Activity *struct {
			ID        int    `json:"id"`
			Status    string `json:"status"`
			Progress  string `json:"progress"`
			CreatedAt int64  `json:"createdAt"`
			User      *struct {
				Name string `json:"name"`
			} `json:"user"`
			Media *struct {
				SiteURL string `json:"siteUrl"`
				Type    string `json:"type"`
				Title   *struct {
					UserPreferred string `json:"userPreferred"`
				} `json:"title"`
				CoverImage *struct {
					Large string `json:"large"`
				} `json:"coverImage"`
			} `json:"media"`
		} `json:"Activity"`
	}
	err := c.post(ctx, "latest activity", latestActivityQuery, map[string]any{"userId": userID}, &data)
	if errors.Is(err, ErrNotFound) {
		// No activity yet is not an error.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a := data.Activity
	if a == nil || a.ID == 0 {
		return nil, nil
	}
	act := &Activity{
		ID:        a.ID,
		Status:    strings.ToLower(a.Status),
		Progress:  a.Progress,
		CreatedAt: a.CreatedAt,
		MediaKind: "other",
	}
	if a.User != nil {
		act.UserName = a.User.Name
	}
	if a.Media != nil {
		act.SiteURL = a.Media.SiteURL
		if strings.EqualFold(a.Media.Type, "ANIME") {
			act.MediaKind = "anime"
		}
		if a.Media.Title != nil {
			act.Title = a.Media.Title.UserPreferred
		}
		if a.Media.CoverImage != nil {
			act.CoverURL = a.Media.CoverImage.Large
		}
	}
	return act, nil
}

const userStatisticsQuery = `query ($name: String) {
  User(name: $name) {
    name
    siteUrl
    avatar { large }
    statistics {
      anime { count episodesWatched minutesWatched }
      manga { count chaptersRead }
    }
  }
}`

// UserStatistics fetches aggregate anime/manga statistics for a user by name.
func (c *Client) UserStatistics(ctx context.Context, name string) (*Statistics, error) {
	if name == "" {
		return nil, ErrNotFound
	}
	var data struct {
		User *struct {
			Name    string `json:"name"`
			SiteURL string `json:"siteUrl"`
			Avatar  *struct {
				Large string `json:"large"`
			} `json:"avatar"`
			Statistics *struct {
				Anime *struct {
					Count           int `json:"count"`
					EpisodesWatched int `json:"episodesWatched"`
					MinutesWatched  int `json:"minutesWatched"`
				} `json:"anime"`
				Manga *struct {
					Count        int `json:"count"`
					ChaptersRead int `json:"chaptersRead"`
				} `json:"manga"`
			} `json:"statistics"`
		} `json:"User"`
	}
	if err := c.post(ctx, "user statistics", userStatisticsQuery, map[string]any{"name": name}, &data); err != nil {
		return nil, err
	}
	u := data.User
	if u == nil || u.Name == "" {
		return nil, ErrNotFound
	}
	st := &Statistics{Name: u.Name, SiteURL: u.SiteURL}
	if u.Avatar != nil {
		st.AvatarURL = u.Avatar.Large
	}
	if u.Statistics != nil {
		if a := u.Statistics.Anime; a != nil {
			st.AnimeCount = a.Count
			st.EpisodesWatched = a.EpisodesWatched
			st.MinutesWatched = a.MinutesWatched
		}
		if m := u.Statistics.Manga; m != nil {
			st.MangaCount = m.Count
			st.ChaptersRead = m.ChaptersRead
		}
	}
	return st, nil
}
