package slackbot

import (
	"context"
	"fmt"
	"strings"

	"QueueFM/logger"
	"QueueFM/model"
	"QueueFM/service"
	"QueueFM/youtube"

	"github.com/slack-go/slack"
)

// addActionPrefix prefixes the action id of every "Add to playlist" button in
// search results; the chosen video id is appended.
const addActionPrefix = "add_to_playlist_"

// Resolver is the video descriptor lookup the command surface depends on.
// Search may return an empty slice when the capability is unavailable.
type Resolver interface {
	Search(ctx context.Context, query string, limit int) ([]model.VideoDescriptor, error)
	Resolve(ctx context.Context, videoID string) (*model.VideoDescriptor, error)
}

// Limits bounds how much of the playlist the status command renders.
type Limits struct {
	SearchResults int
	Unplayed      int
	Played        int
}

// Handler translates validated Slack commands into playlist service calls.
// Transport and signature verification belong to the receiver in front of it.
type Handler struct {
	playlist *service.PlaylistService
	resolver Resolver
	api      *slack.Client // nil disables in-channel confirmations from block actions
	limits   Limits
}

// NewHandler creates a command handler. api may be nil.
func NewHandler(playlist *service.PlaylistService, resolver Resolver, api *slack.Client, limits Limits) *Handler {
	if limits.SearchResults <= 0 {
		limits.SearchResults = 5
	}
	if limits.Unplayed <= 0 {
		limits.Unplayed = 10
	}
	if limits.Played <= 0 {
		limits.Played = 5
	}
	return &Handler{playlist: playlist, resolver: resolver, api: api, limits: limits}
}

// HandleCommand dispatches a slash command and returns the response message.
func (h *Handler) HandleCommand(ctx context.Context, cmd slack.SlashCommand) slack.Msg {
	switch cmd.Command {
	case "/add-music":
		return h.handleAddMusic(ctx, cmd)
	case "/search-music":
		return h.handleSearchMusic(ctx, cmd)
	case "/playlist":
		return h.handlePlaylistStatus(ctx)
	default:
		return ephemeral(fmt.Sprintf("Unknown command %s.", cmd.Command))
	}
}

func (h *Handler) handleAddMusic(ctx context.Context, cmd slack.SlashCommand) slack.Msg {
	videoID, ok := youtube.ExtractVideoID(cmd.Text)
	if !ok {
		return ephemeral("Please enter a valid YouTube URL or video ID.")
	}

	descriptor, err := h.resolver.Resolve(ctx, videoID)
	if err != nil {
		logger.Error("video resolution failed",
			logger.String("videoId", videoID),
			logger.ErrorField(err))
		return ephemeral("Could not fetch video info.")
	}
	if descriptor == nil {
		return ephemeral("Could not fetch video info.")
	}

	requester := &model.Requester{UserID: cmd.UserID, UserName: cmd.UserName}
	song, err := h.playlist.AddSong(ctx, descriptor, requester)
	if err != nil {
		logger.Error("failed to add song from slash command",
			logger.String("videoId", videoID),
			logger.ErrorField(err))
		return ephemeral("Something went wrong while adding the song.")
	}

	return confirmationMessage(song)
}

func (h *Handler) handleSearchMusic(ctx context.Context, cmd slack.SlashCommand) slack.Msg {
	query := strings.TrimSpace(cmd.Text)
	if query == "" {
		return ephemeral("Please enter a search query.")
	}

	results, err := h.resolver.Search(ctx, query, h.limits.SearchResults)
	if err != nil {
		logger.Error("youtube search failed",
			logger.String("query", query),
			logger.ErrorField(err))
		return ephemeral("YouTube search failed.")
	}
	if len(results) == 0 {
		return ephemeral("No results found.")
	}

	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Results for \"%s\":*", query), false, false),
			nil, nil),
		slack.NewDividerBlock(),
	}
	for _, result := range results {
		button := slack.NewButtonBlockElement(
			addActionPrefix+result.VideoID,
			result.VideoID,
			slack.NewTextBlockObject(slack.PlainTextType, "Add to playlist", false, false),
		).WithStyle(slack.StylePrimary)

		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("*%s*\n%s", result.Title, result.ChannelTitle), false, false),
			nil,
			slack.NewAccessory(button)))
	}

	return slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Text:         fmt.Sprintf("Results for \"%s\"", query),
		Blocks:       slack.Blocks{BlockSet: blocks},
	}
}

func (h *Handler) handlePlaylistStatus(ctx context.Context) slack.Msg {
	songs, err := h.playlist.GetAllSongs(ctx)
	if err != nil {
		logger.Error("failed to load playlist for status command", logger.ErrorField(err))
		return ephemeral("Could not load the playlist.")
	}
	if len(songs) == 0 {
		return ephemeral("The playlist is empty.")
	}

	return ephemeral(h.formatStatus(songs))
}

// formatStatus renders the first unplayed and last played songs with
// truncation counts when either list exceeds its display limit.
func (h *Handler) formatStatus(songs []*model.Song) string {
	var unplayed, played []*model.Song
	for _, song := range songs {
		if song.IsPlayed {
			played = append(played, song)
		} else {
			unplayed = append(unplayed, song)
		}
	}

	var b strings.Builder

	if len(unplayed) > 0 {
		b.WriteString("*:clipboard: Up next:*\n\n")
		shown := unplayed
		if len(shown) > h.limits.Unplayed {
			shown = shown[:h.limits.Unplayed]
		}
		for _, song := range shown {
			b.WriteString(fmt.Sprintf("%d. %s - %s%s\n",
				song.PlayOrder, song.Title, song.ChannelTitle, requesterSuffix(song)))
		}
		if len(unplayed) > h.limits.Unplayed {
			b.WriteString(fmt.Sprintf("\n...and %d more\n", len(unplayed)-h.limits.Unplayed))
		}
	}

	if len(played) > 0 {
		b.WriteString("\n*:white_check_mark: Played:*\n\n")
		shown := played
		if len(shown) > h.limits.Played {
			shown = shown[len(shown)-h.limits.Played:]
		}
		// Newest first.
		for i := len(shown) - 1; i >= 0; i-- {
			song := shown[i]
			b.WriteString(fmt.Sprintf("~%d. %s - %s%s~\n",
				song.PlayOrder, song.Title, song.ChannelTitle, requesterSuffix(song)))
		}
		if len(played) > h.limits.Played {
			b.WriteString(fmt.Sprintf("\n...and %d more\n", len(played)-h.limits.Played))
		}
	}

	b.WriteString(fmt.Sprintf("\n*%d waiting, %d played*", len(unplayed), len(played)))
	return b.String()
}

func requesterSuffix(song *model.Song) string {
	if song.RequestedByUserName == "" {
		return ""
	}
	return fmt.Sprintf(" (%s)", song.RequestedByUserName)
}

// HandleBlockAction handles the "Add to playlist" button on a search result.
// It returns the message that replaces the original search response and false
// when the action is not one this handler owns.
func (h *Handler) HandleBlockAction(ctx context.Context, cb slack.InteractionCallback) (slack.Msg, bool) {
	actions := cb.ActionCallback.BlockActions
	if len(actions) == 0 || !strings.HasPrefix(actions[0].ActionID, addActionPrefix) {
		return slack.Msg{}, false
	}
	videoID := actions[0].Value

	descriptor, err := h.resolver.Resolve(ctx, videoID)
	if err != nil || descriptor == nil {
		if err != nil {
			logger.Error("video resolution failed for block action",
				logger.String("videoId", videoID),
				logger.ErrorField(err))
		}
		return replacement("Could not fetch video info."), true
	}

	requester := &model.Requester{UserID: cb.User.ID, UserName: cb.User.Name}
	song, err := h.playlist.AddSong(ctx, descriptor, requester)
	if err != nil {
		logger.Error("failed to add song from block action",
			logger.String("videoId", videoID),
			logger.ErrorField(err))
		return replacement("Something went wrong while adding the song."), true
	}

	if h.api != nil && cb.Channel.ID != "" {
		confirmation := confirmationMessage(song)
		_, _, err := h.api.PostMessageContext(ctx, cb.Channel.ID,
			slack.MsgOptionText(confirmation.Text, false),
			slack.MsgOptionBlocks(confirmation.Blocks.BlockSet...))
		if err != nil {
			logger.Warn("failed to post add confirmation", logger.ErrorField(err))
		}
	}

	return replacement(fmt.Sprintf(":white_check_mark: Added: %s", song.Title)), true
}

// confirmationMessage builds the in-channel confirmation for an added song.
func confirmationMessage(song *model.Song) slack.Msg {
	text := fmt.Sprintf("*%s*\n%s\nPlay order: %d", song.Title, song.ChannelTitle, song.PlayOrder)
	if song.RequestedByUserName != "" {
		text += fmt.Sprintf("\nRequested by: %s", song.RequestedByUserName)
	}

	var accessory *slack.Accessory
	if song.ThumbnailURL != "" {
		accessory = slack.NewAccessory(slack.NewImageBlockElement(song.ThumbnailURL, song.Title))
	}

	section := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, text, false, false),
		nil, accessory)

	return slack.Msg{
		ResponseType: slack.ResponseTypeInChannel,
		Text:         "Added to the playlist!",
		Blocks:       slack.Blocks{BlockSet: []slack.Block{section}},
	}
}

func ephemeral(text string) slack.Msg {
	return slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Text:         text,
	}
}

func replacement(text string) slack.Msg {
	return slack.Msg{
		ResponseType:    slack.ResponseTypeEphemeral,
		ReplaceOriginal: true,
		Text:            text,
	}
}
