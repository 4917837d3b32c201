package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/halcyonix/chorale/internal/autocomplete"
	"github.com/halcyonix/chorale/internal/config"
	"github.com/halcyonix/chorale/internal/player"
	"github.com/halcyonix/chorale/internal/playlist"
	"github.com/halcyonix/chorale/internal/repository"
	"github.com/halcyonix/chorale/internal/resolver"
	"github.com/halcyonix/chorale/internal/spotify"
	"github.com/halcyonix/chorale/internal/ui"
	"github.com/halcyonix/chorale/internal/utils"
)

type CommandHandler struct {
	cfg  *config.Config
	repo *repository.Repo
	mgr  *Manager
	res  *resolver.Resolver
	favs *repository.FavoritesService
	sp   *spotify.Client
}

func NewCommandHandler(cfg *config.Config, repo *repository.Repo, mgr *Manager, res *resolver.Resolver, favs *repository.FavoritesService) *CommandHandler {
	h := &CommandHandler{cfg: cfg, repo: repo, mgr: mgr, res: res, favs: favs}
	if cfg.SpotifyClientID != "" && cfg.SpotifyClientSecret != "" {
		h.sp = spotify.NewClientCredentials(cfg.SpotifyClientID, cfg.SpotifyClientSecret)
	}
	return h
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "play",
			Description: "Play a song or add it to the queue",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "query", Description: "URL or search query", Type: discordgo.ApplicationCommandOptionString, Required: true, Autocomplete: true},
				{Name: "split", Description: "split video chapters into separate tracks", Type: discordgo.ApplicationCommandOptionBoolean},
				{Name: "skip", Description: "skip the current track", Type: discordgo.ApplicationCommandOptionBoolean},
			},
		},
		{Name: "pause", Description: "Pause the current song"},
		{Name: "resume", Description: "Resume playback"},
		{Name: "next", Description: "Skip to the next song"},
		{Name: "unskip", Description: "Go back in the queue by one song"},
		{Name: "replay", Description: "Replay the current song from the start"},
		{
			Name:        "jump",
			Description: "Jump to a queue position",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "position", Description: "queue position (1 = up next)", Type: discordgo.ApplicationCommandOptionInteger, Required: true},
			},
		},
		{
			Name:        "seek",
			Description: "Seek forward within the current song",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "time", Description: "seconds or 1m30s", Type: discordgo.ApplicationCommandOptionString, Required: true},
			},
		},
		{
			Name:        "fseek",
			Description: "Seek to an absolute position in the current song",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "time", Description: "seconds or 1m30s", Type: discordgo.ApplicationCommandOptionString, Required: true},
			},
		},
		{
			Name:        "rewind",
			Description: "Seek backward within the current song",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "time", Description: "seconds or 1m30s", Type: discordgo.ApplicationCommandOptionString, Required: true},
			},
		},
		{
			Name:        "queue",
			Description: "Show the queue",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "page", Description: "page of queue to show [default: 1]", Type: discordgo.ApplicationCommandOptionInteger},
			},
		},
		{Name: "now-playing", Description: "Show what is playing"},
		{
			Name:        "remove",
			Description: "Remove a song from the queue",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "position", Description: "queue position (1 = up next)", Type: discordgo.ApplicationCommandOptionInteger, Required: true},
			},
		},
		{Name: "clear", Description: "Clear the queue except the current song"},
		{Name: "stop", Description: "Stop playback"},
		{Name: "disconnect", Description: "Stop playback and leave the voice channel"},
		{
			Name:        "volume",
			Description: "Set playback volume",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "level", Description: "0-200, 100 = unity", Type: discordgo.ApplicationCommandOptionInteger, Required: true},
			},
		},
		{
			Name:        "favorites",
			Description: "Manage saved queries",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "use", Description: "play a favorite",
					Options: []*discordgo.ApplicationCommandOption{
						{Name: "name", Description: "favorite name", Type: discordgo.ApplicationCommandOptionString, Required: true},
					},
				},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "list", Description: "list favorites"},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "create", Description: "save a query",
					Options: []*discordgo.ApplicationCommandOption{
						{Name: "name", Description: "name", Type: discordgo.ApplicationCommandOptionString, Required: true},
						{Name: "query", Description: "query", Type: discordgo.ApplicationCommandOptionString, Required: true},
					},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "remove", Description: "delete a favorite",
					Options: []*discordgo.ApplicationCommandOption{
						{Name: "name", Description: "name", Type: discordgo.ApplicationCommandOptionString, Required: true},
					},
				},
			},
		},
		{
			Name:        "config",
			Description: "Guild settings",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "get", Description: "show settings"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set-playlist-limit", Description: "max tracks added from one playlist", Options: []*discordgo.ApplicationCommandOption{
					{Name: "limit", Description: "max tracks", Type: discordgo.ApplicationCommandOptionInteger, Required: true},
				}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set-default-volume", Description: "volume new tracks start at", Options: []*discordgo.ApplicationCommandOption{
					{Name: "level", Description: "0-200", Type: discordgo.ApplicationCommandOptionInteger, Required: true},
				}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set-queue-page-size", Description: "queue embed page size", Options: []*discordgo.ApplicationCommandOption{
					{Name: "page_size", Description: "1-30", Type: discordgo.ApplicationCommandOptionInteger, Required: true},
				}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set-silence-on-pause", Description: "keep sending silence while paused", Options: []*discordgo.ApplicationCommandOption{
					{Name: "value", Description: "true/false", Type: discordgo.ApplicationCommandOptionBoolean, Required: true},
				}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set-auto-announce-next-song", Description: "announce the next song automatically", Options: []*discordgo.ApplicationCommandOption{
					{Name: "value", Description: "true/false", Type: discordgo.ApplicationCommandOptionBoolean, Required: true},
				}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set-leave-when-idle", Description: "seconds before leaving an idle voice channel", Options: []*discordgo.ApplicationCommandOption{
					{Name: "delay", Description: "seconds (0 = never leave)", Type: discordgo.ApplicationCommandOptionInteger, Required: true},
				}},
			},
		},
	}
}

func (h *CommandHandler) RegisterCommands(s *discordgo.Session, appID, guildID string) error {
	_, err := s.ApplicationCommandBulkOverwrite(appID, guildID, commandDefinitions())
	return err
}

func (h *CommandHandler) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		slog.Debug("interaction: command", "guild", i.GuildID, "user", userIDOf(i), "command", i.ApplicationCommandData().Name)
		h.handleChatCommand(s, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		h.handleAutocomplete(s, i)
	}
}

func (h *CommandHandler) handleAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if data.Name != "play" {
		return
	}
	var query string
	for _, opt := range data.Options {
		if opt.Name == "query" {
			query = opt.StringValue()
		}
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	if strings.TrimSpace(query) != "" {
		choices = autocomplete.Choices(context.Background(), query, h.sp, 10)
	}
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
}

func (h *CommandHandler) handleChatCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	switch data.Name {
	case "play":
		h.cmdPlay(s, i)
	case "pause":
		h.cmdPause(s, i)
	case "resume":
		h.cmdResume(s, i)
	case "next":
		h.cmdNext(s, i)
	case "unskip":
		h.cmdUnskip(s, i)
	case "replay":
		h.cmdReplay(s, i)
	case "jump":
		h.cmdJump(s, i)
	case "seek":
		h.cmdSeek(s, i, false)
	case "fseek":
		h.cmdFseek(s, i)
	case "rewind":
		h.cmdSeek(s, i, true)
	case "queue":
		h.cmdQueue(s, i)
	case "now-playing":
		h.cmdNowPlaying(s, i)
	case "remove":
		h.cmdRemove(s, i)
	case "clear":
		h.cmdClear(s, i)
	case "stop":
		h.cmdStop(s, i)
	case "disconnect":
		h.cmdDisconnect(s, i)
	case "volume":
		h.cmdVolume(s, i)
	case "favorites":
		h.cmdFavorites(s, i)
	case "config":
		h.cmdConfig(s, i)
	default:
		slog.Debug("unknown command", "name", data.Name, "guild", i.GuildID)
	}
}

func (h *CommandHandler) reply(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: flags},
	}); err != nil {
		slog.Warn("reply failed", "guild", i.GuildID, "err", err)
	}
}

func (h *CommandHandler) replyEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	}); err != nil {
		slog.Warn("embed reply failed", "guild", i.GuildID, "err", err)
	}
}

func (h *CommandHandler) deferReply(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		slog.Warn("defer reply failed", "guild", i.GuildID, "err", err)
	}
}

func (h *CommandHandler) editReply(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		slog.Warn("edit reply failed", "guild", i.GuildID, "err", err)
	}
}

func userIDOf(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func userInVoice(s *discordgo.Session, guildID, userID string) (channelID string, ok bool) {
	g, _ := s.State.Guild(guildID)
	if g == nil {
		g, _ = s.Guild(guildID)
	}
	if g == nil {
		return "", false
	}
	for _, vs := range g.VoiceStates {
		if vs.UserID == userID && vs.ChannelID != "" {
			return vs.ChannelID, true
		}
	}
	return "", false
}

// session returns the guild's active session, replying when there is none.
func (h *CommandHandler) session(s *discordgo.Session, i *discordgo.InteractionCreate) *GuildSession {
	gs := h.mgr.Peek(i.GuildID)
	if gs == nil {
		h.reply(s, i, "not connected to a voice channel", true)
	}
	return gs
}

func optionsOf(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, o := range i.ApplicationCommandData().Options {
		out[o.Name] = o
	}
	return out
}

func (h *CommandHandler) cmdPlay(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionsOf(i)
	var query string
	var split, skip bool
	if o, ok := opts["query"]; ok {
		query = o.StringValue()
	}
	if o, ok := opts["split"]; ok {
		split = o.BoolValue()
	}
	if o, ok := opts["skip"]; ok {
		skip = o.BoolValue()
	}
	h.enqueue(s, i, query, split, skip)
}

// enqueue resolves a query and feeds the results into the guild's player,
// starting playback when it was idle.
func (h *CommandHandler) enqueue(s *discordgo.Session, i *discordgo.InteractionCreate, query string, split, skip bool) {
	guildID := i.GuildID
	userID := userIDOf(i)

	chID, inVoice := userInVoice(s, guildID, userID)
	if !inVoice {
		h.reply(s, i, "gotta be in a voice channel", true)
		return
	}

	ctx := context.Background()
	set, err := h.repo.UpsertSettings(ctx, guildID)
	if err != nil {
		// Degrade to process-wide defaults rather than refusing to play.
		slog.Warn("load settings", "guild", guildID, "err", err)
		set = &repository.Settings{
			GuildID:        guildID,
			PlaylistLimit:  50,
			DefaultVolume:  int(h.cfg.DefaultVolume * 100),
			QueuePageSize:  10,
			SilenceOnPause: h.cfg.SilenceOnPause,
		}
	}

	h.deferReply(s, i)

	gs, err := h.mgr.Connect(s, guildID, chID, i.ChannelID)
	if err != nil {
		slog.Warn("voice connect failed", "guild", guildID, "channel", chID, "err", err)
		h.editReply(s, i, "couldn't connect to the voice channel")
		return
	}

	results := h.res.ResolveStream(ctx, query, resolver.Options{
		Limit:         set.PlaylistLimit,
		SplitChapters: split,
		RequestedBy:   userID,
	})

	added := 0
	var firstNote string
	for res := range results {
		switch {
		case res.Err != nil:
			slog.Debug("resolve failed", "guild", guildID, "query", query, "err", res.Err)
		case res.Note != "":
			if firstNote == "" {
				firstNote = res.Note
			}
		case res.Track != nil:
			h.addTrack(gs, res.Track, set, added == 0, skip)
			if added == 0 {
				msg := fmt.Sprintf("**%s** added to the queue", utils.EscapeMarkdown(res.Track.Name))
				if skip {
					msg += " and the current track skipped"
				}
				h.editReply(s, i, msg)
			}
			added++
		}
	}

	switch {
	case added == 0:
		h.editReply(s, i, "no songs found")
	case added > 1:
		msg := fmt.Sprintf("%d songs added to the queue", added)
		if firstNote != "" {
			msg += " (" + firstNote + ")"
		}
		h.editReply(s, i, msg)
	}
}

func (h *CommandHandler) addTrack(gs *GuildSession, t *playlist.Track, set *repository.Settings, first, skip bool) {
	if err := t.Source.SetVolume(float64(set.DefaultVolume) / 100); err != nil {
		slog.Debug("set default volume", "err", err)
	}
	p := gs.Player
	p.AddTrack(t)
	if !first {
		return
	}

	switch {
	case p.Status() == player.StatusIdle:
		// Jump lands the cursor on the new track even when a finished
		// playlist left it parked on the last played entry.
		if _, err := p.JumpToPos(len(p.Tracks()) - 1); err != nil {
			slog.Warn("start playback", "guild", gs.GuildID, "err", err)
		}
	case skip:
		if _, err := p.NextTrack(); err != nil {
			slog.Debug("skip after add", "guild", gs.GuildID, "err", err)
		}
	}
}

func (h *CommandHandler) cmdPause(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gs := h.session(s, i)
	if gs == nil {
		return
	}
	set, err := h.repo.UpsertSettings(context.Background(), i.GuildID)
	silence := h.cfg.SilenceOnPause
	if err == nil {
		silence = set.SilenceOnPause
	}
	if err := gs.Player.Pause(silence); err != nil {
		h.reply(s, i, "nothing is playing", true)
		return
	}
	h.reply(s, i, "paused", false)
}

func (h *CommandHandler) cmdResume(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gs := h.session(s, i)
	if gs == nil {
		return
	}
	if err := gs.Player.Resume(); err != nil {
		h.reply(s, i, "nothing is paused", true)
		return
	}
	h.reply(s, i, "resumed", false)
}

func (h *CommandHandler) cmdNext(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gs := h.session(s, i)
	if gs == nil {
		return
	}
	t, err := gs.Player.NextTrack()
	if err != nil {
		h.reply(s, i, "no more songs in the queue", true)
		return
	}
	h.reply(s, i, "now playing **"+utils.EscapeMarkdown(t.Name)+"**", false)
}

func (h *CommandHandler) cmdUnskip(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gs := h.session(s, i)
	if gs == nil {
		return
	}
	t, err := gs.Player.PreviousTrack()
	if err != nil {
		h.reply(s, i, "already at the start of the queue", true)
		return
	}
	h.reply(s, i, "now playing **"+utils.EscapeMarkdown(t.Name)+"**", false)
}

func (h *CommandHandler) cmdReplay(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gs := h.session(s, i)
	if gs == nil {
		return
	}
	t, err := gs.Player.JumpToPos(gs.Player.TrackIndex())
	if err != nil {
		h.reply(s, i, "nothing to replay", true)
		return
	}
	h.reply(s, i, "replaying **"+utils.EscapeMarkdown(t.Name)+"**", false)
}

func (h *CommandHandler) cmdJump(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gs := h.session(s, i)
	if gs == nil {
		return
	}
	opts := optionsOf(i)
	pos := int(opts["position"].IntValue())
	// User positions are relative to the current track: 1 is up next.
	t, err := gs.Player.JumpToPos(gs.Player.TrackIndex() + pos)
	if err != nil {
		h.reply(s, i, "no song at that position", true)
		return
	}
	h.reply(s, i, "now playing **"+utils.EscapeMarkdown(t.Name)+"**", false)
}

func (h *CommandHandler) cmdSeek(s *discordgo.Session, i *discordgo.InteractionCreate, backward bool) {
	gs := h.session(s, i)
	if gs == nil {
		return
	}
	opts := optionsOf(i)
	secs := utils.ParseDurationString(opts["time"].StringValue())
	if secs <= 0 {
		h.reply(s, i, "give me a positive duration", true)
		return
	}

	var err error
	if backward {
		err = gs.Player.Rewind(float64(secs))
	} else {
		err = gs.Player.Seek(float64(secs))
	}
	if err != nil {
		h.reply(s, i, "can't seek in this song", true)
		return
	}
	h.reply(s, i, "position: "+utils.PrettyTime(int(gs.Player.Position())), false)
}

func (h *CommandHandler) cmdFseek(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gs := h.session(s, i)
	if gs == nil {
		return
	}
	opts := optionsOf(i)
	target := utils.ParseDurationString(opts["time"].StringValue())
	if target < 0 {
		h.reply(s, i, "give me a valid position", true)
		return
	}

	delta := float64(target) - gs.Player.Position()
	var err error
	if delta >= 0 {
		err = gs.Player.Seek(delta)
	} else {
		err = gs.Player.Rewind(-delta)
	}
	if err != nil {
		h.reply(s, i, "can't seek in this song", true)
		return
	}
	h.reply(s, i, "position: "+utils.PrettyTime(target), false)
}

func (h *CommandHandler) cmdQueue(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gs := h.session(s, i)
	if gs == nil {
		return
	}
	page := 1
	if o, ok := optionsOf(i)["page"]; ok {
		page = int(o.IntValue())
	}
	pageSize := 10
	if set, err := h.repo.UpsertSettings(context.Background(), i.GuildID); err == nil {
		pageSize = set.QueuePageSize
	}

	embed, err := ui.Queue(gs.Player, page, pageSize)
	if err != nil {
		h.reply(s, i, "queue is empty", true)
		return
	}
	h.replyEmbed(s, i, embed)
}

func (h *CommandHandler) cmdNowPlaying(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gs := h.session(s, i)
	if gs == nil {
		return
	}
	h.replyEmbed(s, i, ui.NowPlaying(gs.Player))
}

func (h *CommandHandler) cmdRemove(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gs := h.session(s, i)
	if gs == nil {
		return
	}
	pos := int(optionsOf(i)["position"].IntValue())
	if pos < 1 {
		h.reply(s, i, "positions start at 1", true)
		return
	}
	if err := gs.Player.RemoveTrackAt(gs.Player.TrackIndex() + pos); err != nil {
		h.reply(s, i, "no song at that position", true)
		return
	}
	h.reply(s, i, "removed", false)
}

func (h *CommandHandler) cmdClear(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gs := h.session(s, i)
	if gs == nil {
		return
	}
	p := gs.Player
	// Drop everything after the cursor, keeping the current track.
	for {
		idx := p.TrackIndex()
		tracks := p.Tracks()
		if idx+1 >= len(tracks) {
			break
		}
		if err := p.RemoveTrackAt(idx + 1); err != nil {
			break
		}
	}
	h.reply(s, i, "cleared everything up next", false)
}

func (h *CommandHandler) cmdStop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gs := h.session(s, i)
	if gs == nil {
		return
	}
	if err := gs.Player.Stop(); err != nil {
		h.reply(s, i, "nothing is playing", true)
		return
	}
	h.reply(s, i, "stopped", false)
}

func (h *CommandHandler) cmdDisconnect(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if h.mgr.Peek(i.GuildID) == nil {
		h.reply(s, i, "not connected", true)
		return
	}
	h.mgr.Disconnect(i.GuildID)
	h.reply(s, i, "bye", false)
}

func (h *CommandHandler) cmdVolume(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gs := h.session(s, i)
	if gs == nil {
		return
	}
	level := int(optionsOf(i)["level"].IntValue())
	if level < 0 || level > 200 {
		h.reply(s, i, "volume must be between 0 and 200", true)
		return
	}
	cur := gs.Player.CurrentTrack()
	if cur == nil {
		h.reply(s, i, "nothing is playing", true)
		return
	}
	if err := cur.Source.SetVolume(float64(level) / 100); err != nil {
		h.reply(s, i, "this song doesn't support volume changes", true)
		return
	}
	h.reply(s, i, fmt.Sprintf("volume set to %d%%", level), false)
}

func (h *CommandHandler) cmdFavorites(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sub := i.ApplicationCommandData().Options[0]
	subOpts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, o := range sub.Options {
		subOpts[o.Name] = o
	}
	ctx := context.Background()

	switch sub.Name {
	case "use":
		fav, err := h.favs.Use(ctx, i.GuildID, subOpts["name"].StringValue())
		if err != nil {
			h.reply(s, i, "no favorite by that name", true)
			return
		}
		h.enqueue(s, i, fav.Query, false, false)

	case "list":
		favs, err := h.favs.List(ctx, i.GuildID)
		if err != nil || len(favs) == 0 {
			h.reply(s, i, "no favorites yet", true)
			return
		}
		var b strings.Builder
		for _, f := range favs {
			fmt.Fprintf(&b, "**%s**: %s\n", utils.EscapeMarkdown(f.Name), utils.EscapeMarkdown(f.Query))
		}
		h.reply(s, i, b.String(), false)

	case "create":
		name := subOpts["name"].StringValue()
		err := h.favs.Create(ctx, i.GuildID, userIDOf(i), name, subOpts["query"].StringValue())
		if err != nil {
			h.reply(s, i, "couldn't save it; the name may be taken", true)
			return
		}
		h.reply(s, i, "saved **"+utils.EscapeMarkdown(name)+"**", false)

	case "remove":
		n, err := h.favs.Remove(ctx, i.GuildID, subOpts["name"].StringValue())
		if err != nil || n == 0 {
			h.reply(s, i, "no favorite by that name", true)
			return
		}
		h.reply(s, i, "removed", false)
	}
}

func (h *CommandHandler) cmdConfig(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sub := i.ApplicationCommandData().Options[0]
	subOpts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, o := range sub.Options {
		subOpts[o.Name] = o
	}
	ctx := context.Background()

	set, err := h.repo.UpsertSettings(ctx, i.GuildID)
	if err != nil {
		slog.Error("load settings", "guild", i.GuildID, "err", err)
		h.reply(s, i, "internal error", true)
		return
	}

	switch sub.Name {
	case "get":
		msg := fmt.Sprintf(
			"playlist limit: %d\ndefault volume: %d%%\nqueue page size: %d\nsilence on pause: %t\nauto announce next song: %t\nleave when idle: %ds",
			set.PlaylistLimit, set.DefaultVolume, set.QueuePageSize,
			set.SilenceOnPause, set.AutoAnnounceNext, set.LeaveWhenIdleSeconds,
		)
		h.reply(s, i, msg, true)
		return

	case "set-playlist-limit":
		limit := int(subOpts["limit"].IntValue())
		if limit < 1 {
			h.reply(s, i, "limit must be at least 1", true)
			return
		}
		set.PlaylistLimit = limit

	case "set-default-volume":
		level := int(subOpts["level"].IntValue())
		if level < 0 || level > 200 {
			h.reply(s, i, "volume must be between 0 and 200", true)
			return
		}
		set.DefaultVolume = level

	case "set-queue-page-size":
		size := int(subOpts["page_size"].IntValue())
		if size < 1 || size > 30 {
			h.reply(s, i, "page size must be between 1 and 30", true)
			return
		}
		set.QueuePageSize = size

	case "set-silence-on-pause":
		set.SilenceOnPause = subOpts["value"].BoolValue()

	case "set-auto-announce-next-song":
		set.AutoAnnounceNext = subOpts["value"].BoolValue()

	case "set-leave-when-idle":
		delay := int(subOpts["delay"].IntValue())
		if delay < 0 {
			h.reply(s, i, "delay can't be negative", true)
			return
		}
		set.LeaveWhenIdleSeconds = delay
	}

	if err := h.repo.UpdateSettings(ctx, set); err != nil {
		slog.Error("update settings", "guild", i.GuildID, "err", err)
		h.reply(s, i, "internal error", true)
		return
	}
	h.reply(s, i, "updated", false)
}
