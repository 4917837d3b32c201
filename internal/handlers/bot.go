// Package handlers wires the Discord gateway to the playback engine: slash
// commands, guild sessions and lifecycle events.
package handlers

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/halcyonix/chorale/internal/cache"
	"github.com/halcyonix/chorale/internal/config"
	"github.com/halcyonix/chorale/internal/repository"
	"github.com/halcyonix/chorale/internal/resolver"
)

type Bot struct {
	cfg  *config.Config
	repo *repository.Repo
	mgr  *Manager
	cmd  *CommandHandler
}

func NewBot(cfg *config.Config, repo *repository.Repo, fc *cache.FileCache) *Bot {
	mgr := NewManager(cfg, repo)
	res := resolver.New(cfg, fc)
	cmd := NewCommandHandler(cfg, repo, mgr, res, repository.NewFavoritesService(repo))
	return &Bot{cfg: cfg, repo: repo, mgr: mgr, cmd: cmd}
}

// Run connects to the gateway and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	dg, err := discordgo.New("Bot " + b.cfg.DiscordToken)
	if err != nil {
		return err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("connected", "user", s.State.User.Username)
		if b.cfg.BotActivity != "" || b.cfg.BotStatus != "" {
			data := discordgo.UpdateStatusData{Status: b.cfg.BotStatus}
			if b.cfg.BotActivity != "" {
				data.Activities = []*discordgo.Activity{{
					Name: b.cfg.BotActivity,
					Type: discordgo.ActivityTypeListening,
				}}
			}
			if err := s.UpdateStatusComplex(data); err != nil {
				slog.Warn("set presence", "err", err)
			}
		}
		b.registerCommands(s)
	})

	dg.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		if b.cfg.RegisterCommandsOnBot {
			return
		}
		if err := b.cmd.RegisterCommands(s, s.State.User.ID, g.ID); err != nil {
			slog.Error("register guild commands on join", "guild", g.ID, "err", err)
		}
	})

	dg.AddHandler(b.cmd.HandleInteraction)

	// Leave the voice channel when the bot ends up alone in it.
	dg.AddHandler(func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		gs := b.mgr.Peek(vs.GuildID)
		if gs == nil || gs.VC == nil {
			return
		}
		if listenerCount(s, vs.GuildID, gs.VC.ChannelID) == 0 {
			slog.Info("voice channel empty, leaving", "guild", vs.GuildID)
			b.mgr.Disconnect(vs.GuildID)
		}
	})

	if err := dg.Open(); err != nil {
		return err
	}
	defer dg.Close()
	defer b.mgr.Close()

	<-ctx.Done()
	return nil
}

// registerCommands registers globally or per guild depending on config.
// Per-guild registration propagates immediately, which is what you want
// during development; global registration is the steady-state choice.
func (b *Bot) registerCommands(s *discordgo.Session) {
	appID := s.State.User.ID

	if b.cfg.RegisterCommandsOnBot {
		if err := b.cmd.RegisterCommands(s, appID, ""); err != nil {
			slog.Error("register global commands", "err", err)
			return
		}
		slog.Info("registered global application commands")
		return
	}

	var wg sync.WaitGroup
	for _, g := range s.State.Guilds {
		wg.Add(1)
		go func(guildID string) {
			defer wg.Done()
			if err := b.cmd.RegisterCommands(s, appID, guildID); err != nil {
				slog.Error("register guild commands", "guild", guildID, "err", err)
			}
		}(g.ID)
	}
	wg.Wait()

	if _, err := s.ApplicationCommandBulkOverwrite(appID, "", []*discordgo.ApplicationCommand{}); err != nil {
		slog.Error("clear global commands", "err", err)
	}
	slog.Info("registered commands on all guilds")
}

// listenerCount counts non-bot members in a voice channel.
func listenerCount(s *discordgo.Session, guildID, channelID string) int {
	g, _ := s.State.Guild(guildID)
	if g == nil {
		return 0
	}
	n := 0
	for _, vs := range g.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		m, _ := s.State.Member(guildID, vs.UserID)
		if m != nil && m.User != nil && !m.User.Bot {
			n++
		}
	}
	return n
}
