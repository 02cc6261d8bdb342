package slackbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"QueueFM/model"
	"QueueFM/service"

	"github.com/slack-go/slack"
)

// memSongRepo backs the playlist service with an in-memory slice.
type memSongRepo struct {
	nextID int64
	songs  []*model.Song
}

func (f *memSongRepo) CreateSong(_ context.Context, d *model.VideoDescriptor, requester *model.Requester) (*model.Song, error) {
	maxOrder := 0
	for _, s := range f.songs {
		if s.PlayOrder > maxOrder {
			maxOrder = s.PlayOrder
		}
	}
	f.nextID++
	song := &model.Song{
		ID:           f.nextID,
		YoutubeID:    d.VideoID,
		Title:        d.Title,
		ChannelTitle: d.ChannelTitle,
		ThumbnailURL: d.ThumbnailURL,
		Duration:     d.Duration,
		PlayOrder:    maxOrder + 1,
		CreatedAt:    time.Now(),
	}
	if requester != nil {
		song.RequestedByUserID = requester.UserID
		song.RequestedByUserName = requester.UserName
	}
	f.songs = append(f.songs, song)
	return song, nil
}

func (f *memSongRepo) GetSongByID(_ context.Context, id int64) (*model.Song, error) {
	for _, s := range f.songs {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (f *memSongRepo) GetAllSongs(_ context.Context) ([]*model.Song, error) {
	return append([]*model.Song{}, f.songs...), nil
}

func (f *memSongRepo) GetUnplayedSongs(_ context.Context) ([]*model.Song, error) {
	out := make([]*model.Song, 0)
	for _, s := range f.songs {
		if !s.IsPlayed {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *memSongRepo) GetCurrentSong(ctx context.Context) (*model.Song, error) {
	unplayed, _ := f.GetUnplayedSongs(ctx)
	if len(unplayed) == 0 {
		return nil, nil
	}
	return unplayed[0], nil
}

func (f *memSongRepo) MarkSongPlayed(_ context.Context, id int64) (*model.Song, bool, error) {
	for _, s := range f.songs {
		if s.ID != id {
			continue
		}
		if s.IsPlayed {
			return s, false, nil
		}
		now := time.Now()
		s.IsPlayed = true
		s.PlayedAt = &now
		return s, true, nil
	}
	return nil, false, nil
}

func (f *memSongRepo) DeleteSong(_ context.Context, id int64) (bool, error) {
	for i, s := range f.songs {
		if s.ID == id {
			f.songs = append(f.songs[:i], f.songs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *memSongRepo) CountUnplayedSongs(ctx context.Context) (int, error) {
	unplayed, _ := f.GetUnplayedSongs(ctx)
	return len(unplayed), nil
}

func (f *memSongRepo) MaxPlayOrder(_ context.Context) (int, error) {
	max := 0
	for _, s := range f.songs {
		if s.PlayOrder > max {
			max = s.PlayOrder
		}
	}
	return max, nil
}

// fakeResolver serves canned descriptors and search results.
type fakeResolver struct {
	descriptors map[string]*model.VideoDescriptor
	results     []model.VideoDescriptor
	resolveErr  error
	searchErr   error
}

func (f *fakeResolver) Search(_ context.Context, query string, limit int) ([]model.VideoDescriptor, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if limit < len(f.results) {
		return f.results[:limit], nil
	}
	return f.results, nil
}

func (f *fakeResolver) Resolve(_ context.Context, videoID string) (*model.VideoDescriptor, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.descriptors[videoID], nil
}

func newTestHandler(resolver *fakeResolver) (*Handler, *service.PlaylistService) {
	playlist := service.NewPlaylistService(&memSongRepo{}, nil)
	return NewHandler(playlist, resolver, nil, Limits{}), playlist
}

func rickDescriptor() *model.VideoDescriptor {
	return &model.VideoDescriptor{
		VideoID:      "dQw4w9WgXcQ",
		Title:        "Never Gonna Give You Up",
		ChannelTitle: "Rick Astley",
		ThumbnailURL: "https://i.ytimg.com/vi/dQw4w9WgXcQ/mqdefault.jpg",
		Duration:     "PT3M33S",
	}
}

func TestHandleAddMusic(t *testing.T) {
	t.Run("rejects free text", func(t *testing.T) {
		handler, _ := newTestHandler(&fakeResolver{})
		msg := handler.HandleCommand(context.Background(), slack.SlashCommand{
			Command: "/add-music",
			Text:    "not a url",
		})
		if msg.ResponseType != slack.ResponseTypeEphemeral {
			t.Errorf("expected ephemeral response, got %q", msg.ResponseType)
		}
		if msg.Text != "Please enter a valid YouTube URL or video ID." {
			t.Errorf("unexpected text %q", msg.Text)
		}
	})

	t.Run("reports resolution failure", func(t *testing.T) {
		handler, _ := newTestHandler(&fakeResolver{resolveErr: errors.New("api down")})
		msg := handler.HandleCommand(context.Background(), slack.SlashCommand{
			Command: "/add-music",
			Text:    "dQw4w9WgXcQ",
		})
		if msg.Text != "Could not fetch video info." {
			t.Errorf("unexpected text %q", msg.Text)
		}
	})

	t.Run("reports unknown video", func(t *testing.T) {
		handler, _ := newTestHandler(&fakeResolver{})
		msg := handler.HandleCommand(context.Background(), slack.SlashCommand{
			Command: "/add-music",
			Text:    "aaaaaaaaaaa",
		})
		if msg.Text != "Could not fetch video info." {
			t.Errorf("unexpected text %q", msg.Text)
		}
	})

	t.Run("adds the song and confirms in channel", func(t *testing.T) {
		resolver := &fakeResolver{descriptors: map[string]*model.VideoDescriptor{
			"dQw4w9WgXcQ": rickDescriptor(),
		}}
		handler, playlist := newTestHandler(resolver)

		msg := handler.HandleCommand(context.Background(), slack.SlashCommand{
			Command:  "/add-music",
			Text:     "https://youtu.be/dQw4w9WgXcQ",
			UserID:   "U1",
			UserName: "alice",
		})
		if msg.ResponseType != slack.ResponseTypeInChannel {
			t.Errorf("expected in_channel response, got %q", msg.ResponseType)
		}
		if msg.Text != "Added to the playlist!" {
			t.Errorf("unexpected text %q", msg.Text)
		}

		songs, err := playlist.GetAllSongs(context.Background())
		if err != nil {
			t.Fatalf("failed to read playlist: %v", err)
		}
		if len(songs) != 1 {
			t.Fatalf("expected 1 song, got %d", len(songs))
		}
		song := songs[0]
		if song.YoutubeID != "dQw4w9WgXcQ" || song.RequestedByUserName != "alice" || song.PlayOrder != 1 {
			t.Errorf("unexpected song %+v", song)
		}
	})
}

func TestHandleSearchMusic(t *testing.T) {
	t.Run("rejects empty query", func(t *testing.T) {
		handler, _ := newTestHandler(&fakeResolver{})
		msg := handler.HandleCommand(context.Background(), slack.SlashCommand{
			Command: "/search-music",
			Text:    "   ",
		})
		if msg.Text != "Please enter a search query." {
			t.Errorf("unexpected text %q", msg.Text)
		}
	})

	t.Run("reports no results", func(t *testing.T) {
		handler, _ := newTestHandler(&fakeResolver{})
		msg := handler.HandleCommand(context.Background(), slack.SlashCommand{
			Command: "/search-music",
			Text:    "obscure song",
		})
		if msg.Text != "No results found." {
			t.Errorf("unexpected text %q", msg.Text)
		}
	})

	t.Run("renders a button per result", func(t *testing.T) {
		resolver := &fakeResolver{results: []model.VideoDescriptor{
			*rickDescriptor(),
			{VideoID: "aaaaaaaaaaa", Title: "Other", ChannelTitle: "Channel"},
		}}
		handler, _ := newTestHandler(resolver)

		msg := handler.HandleCommand(context.Background(), slack.SlashCommand{
			Command: "/search-music",
			Text:    "never gonna",
		})
		if msg.ResponseType != slack.ResponseTypeEphemeral {
			t.Errorf("expected ephemeral response, got %q", msg.ResponseType)
		}

		// Header, divider, then one section per result.
		blocks := msg.Blocks.BlockSet
		if len(blocks) != 4 {
			t.Fatalf("expected 4 blocks, got %d", len(blocks))
		}
		for i, want := range []string{"dQw4w9WgXcQ", "aaaaaaaaaaa"} {
			section, ok := blocks[2+i].(*slack.SectionBlock)
			if !ok {
				t.Fatalf("block %d is not a section", 2+i)
			}
			if section.Accessory == nil || section.Accessory.ButtonElement == nil {
				t.Fatalf("result section %d has no button accessory", i)
			}
			button := section.Accessory.ButtonElement
			if button.ActionID != addActionPrefix+want || button.Value != want {
				t.Errorf("unexpected button action %q value %q", button.ActionID, button.Value)
			}
		}
	})
}

func TestHandlePlaylistStatus(t *testing.T) {
	t.Run("empty playlist", func(t *testing.T) {
		handler, _ := newTestHandler(&fakeResolver{})
		msg := handler.HandleCommand(context.Background(), slack.SlashCommand{Command: "/playlist"})
		if msg.Text != "The playlist is empty." {
			t.Errorf("unexpected text %q", msg.Text)
		}
	})

	t.Run("lists unplayed and played with totals", func(t *testing.T) {
		handler, playlist := newTestHandler(&fakeResolver{})
		for i := 0; i < 3; i++ {
			song, err := playlist.AddSong(context.Background(), &model.VideoDescriptor{
				VideoID:      "dQw4w9WgXcQ",
				Title:        fmt.Sprintf("Song %d", i+1),
				ChannelTitle: "Channel",
			}, &model.Requester{UserID: "U1", UserName: "alice"})
			if err != nil {
				t.Fatalf("failed to add song: %v", err)
			}
			if i == 0 {
				if _, err := playlist.MarkAsPlayed(context.Background(), song.ID); err != nil {
					t.Fatalf("failed to mark played: %v", err)
				}
			}
		}

		msg := handler.HandleCommand(context.Background(), slack.SlashCommand{Command: "/playlist"})
		for _, want := range []string{
			"Up next:",
			"2. Song 2 - Channel (alice)",
			"3. Song 3 - Channel (alice)",
			"Played:",
			"~1. Song 1 - Channel (alice)~",
			"*2 waiting, 1 played*",
		} {
			if !strings.Contains(msg.Text, want) {
				t.Errorf("status missing %q:\n%s", want, msg.Text)
			}
		}
	})
}

func TestFormatStatusTruncation(t *testing.T) {
	handler, _ := newTestHandler(&fakeResolver{})

	var songs []*model.Song
	for i := 1; i <= 7; i++ {
		songs = append(songs, &model.Song{
			ID: int64(i), Title: fmt.Sprintf("Played %d", i), ChannelTitle: "Channel",
			PlayOrder: i, IsPlayed: true,
		})
	}
	for i := 8; i <= 19; i++ {
		songs = append(songs, &model.Song{
			ID: int64(i), Title: fmt.Sprintf("Queued %d", i), ChannelTitle: "Channel",
			PlayOrder: i,
		})
	}

	text := handler.formatStatus(songs)

	// 12 unplayed with a limit of 10 and 7 played with a limit of 5.
	if got := strings.Count(text, "...and 2 more"); got != 2 {
		t.Errorf("expected both truncation notes, got %d:\n%s", got, text)
	}
	if !strings.Contains(text, "Queued 17") || strings.Contains(text, "Queued 18") {
		t.Errorf("unplayed list not cut at the display limit:\n%s", text)
	}
	// Played shows the most recent five, newest first.
	if !strings.Contains(text, "~7. Played 7") || strings.Contains(text, "Played 2") {
		t.Errorf("played list not cut at the display limit:\n%s", text)
	}
	if strings.Index(text, "Played 7") > strings.Index(text, "Played 3") {
		t.Errorf("played songs not listed newest first:\n%s", text)
	}
	if !strings.Contains(text, "*12 waiting, 7 played*") {
		t.Errorf("missing totals footer:\n%s", text)
	}
}

func TestHandleBlockAction(t *testing.T) {
	t.Run("ignores foreign actions", func(t *testing.T) {
		handler, _ := newTestHandler(&fakeResolver{})
		cb := slack.InteractionCallback{
			ActionCallback: slack.ActionCallbacks{BlockActions: []*slack.BlockAction{
				{ActionID: "some_other_action", Value: "x"},
			}},
		}
		if _, ok := handler.HandleBlockAction(context.Background(), cb); ok {
			t.Error("expected the action to be ignored")
		}
	})

	t.Run("adds the chosen video and replaces the message", func(t *testing.T) {
		resolver := &fakeResolver{descriptors: map[string]*model.VideoDescriptor{
			"dQw4w9WgXcQ": rickDescriptor(),
		}}
		handler, playlist := newTestHandler(resolver)

		cb := slack.InteractionCallback{
			User: slack.User{ID: "U2", Name: "bob"},
			ActionCallback: slack.ActionCallbacks{BlockActions: []*slack.BlockAction{
				{ActionID: addActionPrefix + "dQw4w9WgXcQ", Value: "dQw4w9WgXcQ"},
			}},
		}
		msg, ok := handler.HandleBlockAction(context.Background(), cb)
		if !ok {
			t.Fatal("expected the action to be handled")
		}
		if !msg.ReplaceOriginal {
			t.Error("expected a replacement message")
		}
		if !strings.Contains(msg.Text, "Added: Never Gonna Give You Up") {
			t.Errorf("unexpected replacement text %q", msg.Text)
		}

		songs, err := playlist.GetAllSongs(context.Background())
		if err != nil {
			t.Fatalf("failed to read playlist: %v", err)
		}
		if len(songs) != 1 || songs[0].RequestedByUserName != "bob" {
			t.Errorf("unexpected playlist state %+v", songs)
		}
	})

	t.Run("reports resolution failure", func(t *testing.T) {
		handler, _ := newTestHandler(&fakeResolver{resolveErr: errors.New("api down")})
		cb := slack.InteractionCallback{
			ActionCallback: slack.ActionCallbacks{BlockActions: []*slack.BlockAction{
				{ActionID: addActionPrefix + "dQw4w9WgXcQ", Value: "dQw4w9WgXcQ"},
			}},
		}
		msg, ok := handler.HandleBlockAction(context.Background(), cb)
		if !ok {
			t.Fatal("expected the action to be handled")
		}
		if msg.Text != "Could not fetch video info." {
			t.Errorf("unexpected text %q", msg.Text)
		}
	})
}
