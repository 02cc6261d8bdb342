package service

import (
	"context"
	"errors"

	"QueueFM/logger"
	"QueueFM/model"
	"QueueFM/repository"
)

// ErrInvalidDescriptor is returned when AddSong is called without a resolved
// video descriptor. Resolution failures must be rejected before this layer.
var ErrInvalidDescriptor = errors.New("invalid video descriptor")

// Broadcaster pushes an unplayed-queue snapshot to all connected observers.
// Delivery is best-effort and fire-and-forget.
type Broadcaster interface {
	BroadcastUpdate(songs []*model.Song)
}

// PlaylistService orchestrates playlist mutations. Every successful mutation
// triggers exactly one broadcast of the full unplayed queue; reads never
// broadcast.
type PlaylistService struct {
	repo        repository.SongRepository
	broadcaster Broadcaster
}

// NewPlaylistService creates a new PlaylistService.
func NewPlaylistService(repo repository.SongRepository, broadcaster Broadcaster) *PlaylistService {
	return &PlaylistService{repo: repo, broadcaster: broadcaster}
}

// AddSong inserts a song resolved from the given descriptor and broadcasts the
// updated queue.
func (s *PlaylistService) AddSong(ctx context.Context, d *model.VideoDescriptor, requester *model.Requester) (*model.Song, error) {
	if d == nil || d.VideoID == "" || d.Title == "" {
		return nil, ErrInvalidDescriptor
	}

	song, err := s.repo.CreateSong(ctx, d, requester)
	if err != nil {
		return nil, err
	}

	s.broadcastUpdate(ctx)
	return song, nil
}

// GetAllSongs returns all of today's songs ordered by play order.
func (s *PlaylistService) GetAllSongs(ctx context.Context) ([]*model.Song, error) {
	return s.repo.GetAllSongs(ctx)
}

// GetUnplayedSongs returns today's unplayed songs ordered by play order.
func (s *PlaylistService) GetUnplayedSongs(ctx context.Context) ([]*model.Song, error) {
	return s.repo.GetUnplayedSongs(ctx)
}

// GetCurrentSong returns the first unplayed song, or nil when none remain.
func (s *PlaylistService) GetCurrentSong(ctx context.Context) (*model.Song, error) {
	return s.repo.GetCurrentSong(ctx)
}

// GetUnplayedCount returns the number of unplayed songs.
func (s *PlaylistService) GetUnplayedCount(ctx context.Context) (int, error) {
	return s.repo.CountUnplayedSongs(ctx)
}

// MarkAsPlayed marks a song as played. Unknown ids return nil without a
// broadcast. Re-marking an already-played song is a no-op: the song is
// returned unchanged and no broadcast fires since nothing changed.
func (s *PlaylistService) MarkAsPlayed(ctx context.Context, id int64) (*model.Song, error) {
	song, transitioned, err := s.repo.MarkSongPlayed(ctx, id)
	if err != nil {
		return nil, err
	}
	if song == nil {
		return nil, nil
	}

	if transitioned {
		s.broadcastUpdate(ctx)
	}
	return song, nil
}

// RemoveSong hard-deletes a song, broadcasting only if a row was actually
// deleted.
func (s *PlaylistService) RemoveSong(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.repo.DeleteSong(ctx, id)
	if err != nil {
		return false, err
	}

	if deleted {
		s.broadcastUpdate(ctx)
	}
	return deleted, nil
}

// broadcastUpdate pushes the post-mutation unplayed queue to all observers.
// The mutation has already committed, so a failed snapshot read only costs the
// broadcast, not the operation.
func (s *PlaylistService) broadcastUpdate(ctx context.Context) {
	if s.broadcaster == nil {
		return
	}

	songs, err := s.repo.GetUnplayedSongs(ctx)
	if err != nil {
		logger.Error("failed to load unplayed queue for broadcast", logger.ErrorField(err))
		return
	}
	s.broadcaster.BroadcastUpdate(songs)
}
