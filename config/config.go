// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required credentials (Twitch chat), use ValidateChatReady.
package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	// Twitch
	TwitchChannel      string
	TwitchBotUsername  string
	TwitchOAuthToken   string
	AnnounceChannel    string

	// AniList
	AniListURL string

	// Polling
	PollInterval time.Duration

	// Accounts persistence
	AccountsFile string
	DBDsn        string // optional; when set the account document lives in Postgres

	// HTTP
	HTTPAddr string
}

// Load reads environment variables and applies defaults. It doesn't fail if Twitch creds
// are missing; use ValidateChatReady() when you require the chat connection.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.TwitchChannel = os.Getenv("TWITCH_CHANNEL")
	cfg.TwitchBotUsername = os.Getenv("TWITCH_BOT_USERNAME")
	cfg.TwitchOAuthToken = os.Getenv("TWITCH_OAUTH_TOKEN")
	cfg.AnnounceChannel = os.Getenv("ANNOUNCE_CHANNEL")
	if cfg.AnnounceChannel == "" {
		// default: announce into the channel the bot listens on
		cfg.AnnounceChannel = cfg.TwitchChannel
	}

	cfg.AniListURL = os.Getenv("ANILIST_URL")
	if cfg.AniListURL == "" {
		cfg.AniListURL = "https://graphql.anilist.co"
	}

	cfg.PollInterval = 60 * time.Second
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid POLL_INTERVAL %q: want a positive duration", v)
		}
		cfg.PollInterval = d
	}

	cfg.AccountsFile = os.Getenv("ACCOUNTS_FILE")
	if cfg.AccountsFile == "" {
		cfg.AccountsFile = "data/accounts.json"
	}
	cfg.DBDsn = os.Getenv("DB_DSN")

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	return cfg, nil
}

// ValidateChatReady checks required fields for connecting to Twitch chat.
func (c *Config) ValidateChatReady() error {
	if c.TwitchChannel == "" || c.TwitchBotUsername == "" || c.TwitchOAuthToken == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_CHANNEL, TWITCH_BOT_USERNAME, TWITCH_OAUTH_TOKEN")
	}
	return nil
}
