// Package bot connects to Twitch chat, routes commands to the account store
// and AniList client, and posts activity announcements.
package bot

import (
	"context"
	"log/slog"
	"strings"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/anitrack/anilist"
	"github.com/onnwee/anitrack/config"
)

// Bot owns the Twitch IRC connection. It implements activity.Notifier so the
// poller can announce through it.
type Bot struct {
	client          *twitch.Client
	router          *Router
	channel         string
	announceChannel string

	ctx context.Context
	say func(channel, text string) // indirection for tests
}

// New builds the bot and registers its message handler. Call Run to connect.
func New(cfg *config.Config, router *Router) *Bot {
	client := twitch.NewClient(cfg.TwitchBotUsername, cfg.TwitchOAuthToken)
	b := &Bot{
		client:          client,
		router:          router,
		channel:         cfg.TwitchChannel,
		announceChannel: cfg.AnnounceChannel,
		ctx:             context.Background(),
		say:             client.Say,
	}
	client.OnPrivateMessage(b.handleMessage)
	return b
}

func (b *Bot) handleMessage(msg twitch.PrivateMessage) {
	caller := strings.ToLower(msg.User.Name)
	reply, ok := b.router.Handle(b.ctx, caller, msg.Message)
	if !ok || reply == "" {
		return
	}
	slog.Debug("command handled", slog.String("caller", caller), slog.String("message", msg.Message))
	b.say(msg.Channel, reply)
}

// AnnounceActivity posts one rendered activity line to the announce channel.
func (b *Bot) AnnounceActivity(a *anilist.Activity) {
	b.say(b.announceChannel, FormatActivity(a))
}

// Run connects to Twitch chat and blocks until ctx is canceled.
func (b *Bot) Run(ctx context.Context) {
	b.ctx = ctx
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		b.client.Disconnect()
		close(done)
	}()
	b.client.Join(b.channel)
	slog.Info("connecting to twitch chat", slog.String("channel", b.channel), slog.String("announce_channel", b.announceChannel))
	if err := b.client.Connect(); err != nil && ctx.Err() == nil {
		slog.Error("twitch chat connect error", slog.Any("err", err))
	}
	<-done
}
