package handlers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/halcyonix/chorale/internal/config"
	"github.com/halcyonix/chorale/internal/player"
	"github.com/halcyonix/chorale/internal/repository"
	"github.com/halcyonix/chorale/internal/ui"
	"github.com/halcyonix/chorale/internal/voice"
	"github.com/halcyonix/chorale/internal/worker"
)

// GuildSession is the per-guild playback state: one voice connection, one
// player bound to it, and the text channel playback events are announced
// to.
type GuildSession struct {
	GuildID       string
	Player        *player.Player
	VC            *discordgo.VoiceConnection
	TextChannelID string

	quit chan struct{}

	idleMu    sync.Mutex
	idleTimer *time.Timer
}

// Manager owns the guild sessions and the worker pool they share. Frame
// transforms from every guild run on the same pool, so one busy guild
// cannot starve the rest beyond the pool's lane budget.
type Manager struct {
	cfg  *config.Config
	repo *repository.Repo
	pool *worker.Pool

	mu       sync.Mutex
	sessions map[string]*GuildSession
}

func NewManager(cfg *config.Config, repo *repository.Repo) *Manager {
	return &Manager{
		cfg:      cfg,
		repo:     repo,
		pool:     worker.NewPool(cfg.WorkerLanes),
		sessions: make(map[string]*GuildSession),
	}
}

// Connect joins the voice channel and builds the guild's player if it does
// not exist yet. An existing session just moves channels.
func (m *Manager) Connect(s *discordgo.Session, guildID, voiceChannelID, textChannelID string) (*GuildSession, error) {
	m.mu.Lock()
	gs, ok := m.sessions[guildID]
	m.mu.Unlock()

	if ok {
		gs.TextChannelID = textChannelID
		if gs.VC != nil && gs.VC.ChannelID == voiceChannelID {
			return gs, nil
		}
	}

	vc, err := s.ChannelVoiceJoin(guildID, voiceChannelID, false, true)
	if err != nil {
		return nil, err
	}

	if ok {
		gs.VC = vc
		return gs, nil
	}

	gs = &GuildSession{
		GuildID:       guildID,
		VC:            vc,
		TextChannelID: textChannelID,
		quit:          make(chan struct{}),
	}
	gs.Player = player.New(player.Config{
		DestroyOnDisconnect: m.cfg.DestroyOnDisconnect,
	}, voice.NewGatewayTransport(vc), m.pool)

	m.mu.Lock()
	m.sessions[guildID] = gs
	m.mu.Unlock()

	go m.watchEvents(s, gs)
	return gs, nil
}

// Peek returns the guild's session without creating one.
func (m *Manager) Peek(guildID string) *GuildSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[guildID]
}

// Disconnect stops playback and tears the voice connection down.
func (m *Manager) Disconnect(guildID string) {
	m.mu.Lock()
	gs := m.sessions[guildID]
	delete(m.sessions, guildID)
	m.mu.Unlock()
	if gs == nil {
		return
	}

	close(gs.quit)
	gs.cancelIdleLeave()
	if err := gs.Player.Stop(); err != nil && err != player.ErrNotPlaying {
		slog.Warn("stop on disconnect", "guild", guildID, "err", err)
	}
	if gs.VC != nil {
		if err := gs.VC.Disconnect(); err != nil {
			slog.Warn("voice disconnect", "guild", guildID, "err", err)
		}
	}
}

// Close tears down every session and the shared pool.
func (m *Manager) Close() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.Disconnect(id)
	}
	m.pool.Close()
}

// watchEvents consumes one player's event stream: announces the next track
// when the guild wants that, and arms the idle-leave timer when the queue
// runs dry.
func (m *Manager) watchEvents(s *discordgo.Session, gs *GuildSession) {
	for {
		var ev player.Event
		select {
		case ev = <-gs.Player.Events():
		case <-gs.quit:
			return
		}
		if ev.Type != player.EventTrackEnded {
			continue
		}
		if ev.Err != nil {
			slog.Warn("track ended with error", "guild", gs.GuildID, "err", ev.Err)
		}

		set, err := m.repo.UpsertSettings(context.Background(), gs.GuildID)
		if err != nil {
			slog.Warn("load settings", "guild", gs.GuildID, "err", err)
			continue
		}

		next := ev.Next
		if next == nil && ev.Err != nil {
			// A failed track parks the player; skip past it so one bad
			// stream doesn't stall the rest of the queue.
			if t, err := gs.Player.NextTrack(); err == nil {
				next = t
			}
		}

		if next == nil {
			m.armIdleLeave(gs, set.LeaveWhenIdleSeconds)
			continue
		}
		gs.cancelIdleLeave()

		if set.AutoAnnounceNext && gs.TextChannelID != "" {
			if _, err := s.ChannelMessageSendEmbed(gs.TextChannelID, ui.NowPlaying(gs.Player)); err != nil {
				slog.Debug("announce next", "guild", gs.GuildID, "err", err)
			}
		}
	}
}

func (m *Manager) armIdleLeave(gs *GuildSession, afterSeconds int) {
	if afterSeconds <= 0 {
		return
	}
	gs.idleMu.Lock()
	defer gs.idleMu.Unlock()
	if gs.idleTimer != nil {
		gs.idleTimer.Stop()
	}
	gs.idleTimer = time.AfterFunc(time.Duration(afterSeconds)*time.Second, func() {
		if gs.Player.Status() == player.StatusIdle {
			slog.Info("leaving idle voice channel", "guild", gs.GuildID)
			m.Disconnect(gs.GuildID)
		}
	})
}

func (gs *GuildSession) cancelIdleLeave() {
	gs.idleMu.Lock()
	defer gs.idleMu.Unlock()
	if gs.idleTimer != nil {
		gs.idleTimer.Stop()
		gs.idleTimer = nil
	}
}
