// Package testutil provides shared test helpers, primarily an httptest server
// that mocks the AniList GraphQL endpoint.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// MockUser is one fake AniList account served by MockAniList.
type MockUser struct {
	ID    int
	Name  string
	Stats map[string]any // raw statistics payload, optional
}

// MockAniList serves canned GraphQL responses. All three query shapes hit the
// same endpoint, so requests are routed by inspecting the query text.
type MockAniList struct {
	*httptest.Server

	mu         sync.Mutex
	users      map[string]MockUser // keyed by lowercase name
	activities map[int]map[string]any
	failAll    bool
	requests   int
}

// NewMockAniList starts a mock AniList server. It is closed via t.Cleanup.
func NewMockAniList(t *testing.T) *MockAniList {
	t.Helper()
	m := &MockAniList{
		users:      make(map[string]MockUser),
		activities: make(map[int]map[string]any),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.Close)
	return m
}

// AddUser registers a resolvable user.
func (m *MockAniList) AddUser(u MockUser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[strings.ToLower(u.Name)] = u
}

// SetActivity sets the latest-activity payload returned for a user id.
// Pass nil to simulate a user with no qualifying activity.
func (m *MockAniList) SetActivity(userID int, payload map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities[userID] = payload
}

// SetFailAll makes every request return HTTP 500 until reset.
func (m *MockAniList) SetFailAll(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = fail
}

// Requests returns how many GraphQL requests have been served.
func (m *MockAniList) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

// ListActivity builds a minimal activity payload as the API would return it.
func ListActivity(id int, status, progress, title, mediaType, userName string) map[string]any {
	return map[string]any{
		"id":        id,
		"status":    status,
		"progress":  progress,
		"createdAt": 1700000000,
		"user":      map[string]any{"name": userName},
		"media": map[string]any{
			"siteUrl":    "https://anilist.co/anime/1",
			"type":       mediaType,
			"title":      map[string]any{"userPreferred": title},
			"coverImage": map[string]any{"large": "https://img.anili.st/cover.png"},
		},
	}
}

func (m *MockAniList) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++

	if m.failAll {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var req struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	switch {
	case strings.Contains(req.Query, "Activity("):
		userID, _ := req.Variables["userId"].(float64)
		payload := m.activities[int(userID)]
		if payload == nil {
			writeNotFound(w)
			return
		}
		writeData(w, map[string]any{"Activity": payload})
	case strings.Contains(req.Query, "statistics"):
		name, _ := req.Variables["name"].(string)
		u, ok := m.users[strings.ToLower(name)]
		if !ok {
			writeNotFound(w)
			return
		}
		user := map[string]any{
			"name":    u.Name,
			"siteUrl": "https://anilist.co/user/" + u.Name,
			"avatar":  map[string]any{"large": "https://img.anili.st/avatar.png"},
		}
		if u.Stats != nil {
			user["statistics"] = u.Stats
		}
		writeData(w, map[string]any{"User": user})
	default:
		name, _ := req.Variables["name"].(string)
		u, ok := m.users[strings.ToLower(name)]
		if !ok {
			writeNotFound(w)
			return
		}
		writeData(w, map[string]any{"User": map[string]any{"id": u.ID, "name": u.Name}})
	}
}

// Stats builds a statistics payload with the given totals.
func Stats(animeCount, episodes, minutes, mangaCount, chapters int) map[string]any {
	return map[string]any{
		"anime": map[string]any{"count": animeCount, "episodesWatched": episodes, "minutesWatched": minutes},
		"manga": map[string]any{"count": mangaCount, "chaptersRead": chapters},
	}
}

func writeData(w http.ResponseWriter, data map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data}) //nolint:errcheck // test mock response
}

func writeNotFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // test mock response
		"data":   nil,
		"errors": []map[string]any{{"message": "Not Found.", "status": 404}},
	})
}
