// Package ui renders player state into Discord embeds.
package ui

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/halcyonix/chorale/internal/player"
	"github.com/halcyonix/chorale/internal/playlist"
	"github.com/halcyonix/chorale/internal/utils"
)

const (
	colorPlaying = 0x006400
	colorPaused  = 0x8B0000
	colorIdle    = 0x992222
)

func trackLink(t *playlist.Track) string {
	name := utils.EscapeMarkdown(t.Name)
	if t.URL == "" {
		return name
	}
	link := t.URL
	if t.Start > 0 && strings.Contains(link, "youtube.com/watch") {
		link += fmt.Sprintf("&t=%d", t.Start)
	}
	return fmt.Sprintf("[%s](%s)", name, link)
}

func elapsedLabel(t *playlist.Track, pos int) string {
	if t.IsLive {
		return "live"
	}
	return fmt.Sprintf("%s/%s", utils.PrettyTime(pos), utils.PrettyTime(t.Length))
}

func progressLine(t *playlist.Track, pos int, status player.Status) string {
	button := "▶️"
	if status == player.StatusPlaying {
		button = "⏹️"
	}
	progress := 0.0
	if t.Length > 0 {
		progress = float64(pos) / float64(t.Length)
	}
	return fmt.Sprintf("%s %s `[ %s ]`", button, ProgressBar(10, progress), elapsedLabel(t, pos))
}

// NowPlaying builds the now-playing embed for a player.
func NowPlaying(p *player.Player) *discordgo.MessageEmbed {
	cur := p.CurrentTrack()
	if cur == nil {
		return &discordgo.MessageEmbed{
			Title:       "Nothing Playing",
			Description: "The queue is empty",
			Color:       colorIdle,
		}
	}

	pos := int(p.Position())
	desc := fmt.Sprintf("**%s**", trackLink(cur))
	if cur.RequestedBy != "" {
		desc += fmt.Sprintf("\nRequested by: <@%s>", cur.RequestedBy)
	}
	desc += "\n\n" + progressLine(cur, pos, p.Status())

	title := "Now Playing"
	color := colorPlaying
	if p.Status() != player.StatusPlaying {
		title = "Paused"
		color = colorPaused
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: desc,
		Color:       color,
	}
	if cur.Artist != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Source: " + cur.Artist}
	}
	if cur.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: cur.Thumbnail}
	}
	return embed
}

// Queue builds one page of the queue embed. Pages are 1-based and cover the
// tracks after the cursor; the current track heads every page.
func Queue(p *player.Player, page, pageSize int) (*discordgo.MessageEmbed, error) {
	cur := p.CurrentTrack()
	if cur == nil {
		return nil, fmt.Errorf("ui: queue is empty")
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	tracks := p.Tracks()
	upcoming := tracks[p.TrackIndex()+1:]

	maxPage := (len(upcoming) + pageSize - 1) / pageSize
	if maxPage == 0 {
		maxPage = 1
	}
	if page < 1 || page > maxPage {
		return nil, fmt.Errorf("ui: the queue isn't that big")
	}

	begin := (page - 1) * pageSize
	end := begin + pageSize
	if end > len(upcoming) {
		end = len(upcoming)
	}

	var list strings.Builder
	for i, t := range upcoming[begin:end] {
		dur := "live"
		if !t.IsLive {
			dur = utils.PrettyTime(t.Length)
		}
		fmt.Fprintf(&list, "`%d.` %s `[ %s ]`\n", begin+i+1, trackLink(t), dur)
	}

	desc := fmt.Sprintf("**%s**", trackLink(cur))
	if cur.RequestedBy != "" {
		desc += fmt.Sprintf("\nRequested by: <@%s>", cur.RequestedBy)
	}
	desc += "\n\n" + progressLine(cur, int(p.Position()), p.Status()) + "\n\n"
	if list.Len() > 0 {
		desc += "**Up next:**\n" + list.String()
	}

	totalLen := 0
	for _, t := range upcoming {
		totalLen += t.Length
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Now Playing",
		Description: desc,
		Color:       colorPlaying,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "In queue", Value: countLabel(len(upcoming)), Inline: true},
			{Name: "Total length", Value: lengthLabel(totalLen), Inline: true},
			{Name: "Page", Value: fmt.Sprintf("%d out of %d", page, maxPage), Inline: true},
		},
	}
	footer := "Source: " + cur.Artist
	if cur.Collection != "" {
		footer += " (" + cur.Collection + ")"
	}
	if cur.Artist != "" || cur.Collection != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: footer}
	}
	if cur.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: cur.Thumbnail}
	}
	return embed, nil
}

func countLabel(n int) string {
	switch n {
	case 0:
		return "-"
	case 1:
		return "1 song"
	default:
		return fmt.Sprintf("%d songs", n)
	}
}

func lengthLabel(sec int) string {
	if sec <= 0 {
		return "-"
	}
	return utils.PrettyTime(sec)
}
