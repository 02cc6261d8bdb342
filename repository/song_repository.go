package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"QueueFM/logger"
	"QueueFM/model"
)

// SongRepository defines the interface for playlist data operations.
//
// All queries are scoped to the current calendar day in the repository's
// timezone: songs created on prior days stay in the database but are excluded
// from every operational view.
type SongRepository interface {
	CreateSong(ctx context.Context, d *model.VideoDescriptor, requester *model.Requester) (*model.Song, error)
	GetSongByID(ctx context.Context, id int64) (*model.Song, error)
	GetAllSongs(ctx context.Context) ([]*model.Song, error)
	GetUnplayedSongs(ctx context.Context) ([]*model.Song, error)
	GetCurrentSong(ctx context.Context) (*model.Song, error)
	MarkSongPlayed(ctx context.Context, id int64) (*model.Song, bool, error)
	DeleteSong(ctx context.Context, id int64) (bool, error)
	CountUnplayedSongs(ctx context.Context) (int, error)
	MaxPlayOrder(ctx context.Context) (int, error)
}

// mysqlSongRepository implements SongRepository for MySQL.
type mysqlSongRepository struct {
	db  *sql.DB
	loc *time.Location
	now func() time.Time
}

// NewMySQLSongRepository creates a new instance of mysqlSongRepository. The
// location determines the calendar day used for scoping.
func NewMySQLSongRepository(db *sql.DB, loc *time.Location) SongRepository {
	return &mysqlSongRepository{db: db, loc: loc, now: time.Now}
}

const songColumns = `id, youtube_id, title, channel_title, thumbnail_url, duration, play_order,
	is_played, created_at, played_at, requested_by_user_id, requested_by_user_name`

// dayWindow returns the half-open [start, end) interval of the current
// calendar day in the repository's timezone.
func (r *mysqlSongRepository) dayWindow() (time.Time, time.Time) {
	now := r.now().In(r.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
	return start, start.AddDate(0, 0, 1)
}

// CreateSong persists a new song with the next play order. The max-order read
// and the insert run in one transaction so concurrent submissions cannot
// collide on play_order.
func (r *mysqlSongRepository) CreateSong(ctx context.Context, d *model.VideoDescriptor, requester *model.Requester) (*model.Song, error) {
	start, end := r.dayWindow()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for CreateSong: %w", err)
	}
	defer tx.Rollback()

	var maxOrder int
	row := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(play_order), 0) FROM songs WHERE created_at >= ? AND created_at < ? FOR UPDATE`,
		start, end)
	if err := row.Scan(&maxOrder); err != nil {
		return nil, fmt.Errorf("failed to read max play_order: %w", err)
	}

	var reqID, reqName sql.NullString
	if requester != nil {
		reqID = sql.NullString{String: requester.UserID, Valid: true}
		reqName = sql.NullString{String: requester.UserName, Valid: true}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO songs (youtube_id, title, channel_title, thumbnail_url, duration, play_order,
			created_at, requested_by_user_id, requested_by_user_name)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.VideoID, d.Title, d.ChannelTitle, d.ThumbnailURL, d.Duration, maxOrder+1,
		r.now().In(r.loc), reqID, reqName)
	if err != nil {
		return nil, fmt.Errorf("failed to execute CreateSong: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID for CreateSong: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit CreateSong: %w", err)
	}

	logger.Info("song created",
		logger.Int64("id", id),
		logger.String("title", d.Title),
		logger.Int("playOrder", maxOrder+1))
	return r.GetSongByID(ctx, id)
}

// GetSongByID retrieves a song by its ID, or nil when absent from today's scope.
func (r *mysqlSongRepository) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	start, end := r.dayWindow()
	row := r.db.QueryRowContext(ctx,
		`SELECT `+songColumns+` FROM songs WHERE id = ? AND created_at >= ? AND created_at < ?`,
		id, start, end)

	song, err := scanSong(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan song by ID %d: %w", id, err)
	}
	return song, nil
}

// GetAllSongs retrieves all of today's songs ordered by play order.
func (r *mysqlSongRepository) GetAllSongs(ctx context.Context) ([]*model.Song, error) {
	start, end := r.dayWindow()
	return r.querySongs(ctx,
		`SELECT `+songColumns+` FROM songs WHERE created_at >= ? AND created_at < ? ORDER BY play_order ASC`,
		start, end)
}

// GetUnplayedSongs retrieves today's unplayed songs ordered by play order.
func (r *mysqlSongRepository) GetUnplayedSongs(ctx context.Context) ([]*model.Song, error) {
	start, end := r.dayWindow()
	return r.querySongs(ctx,
		`SELECT `+songColumns+` FROM songs WHERE is_played = 0 AND created_at >= ? AND created_at < ? ORDER BY play_order ASC`,
		start, end)
}

// GetCurrentSong retrieves the unplayed song with the smallest play order, or
// nil when the unplayed queue is empty.
func (r *mysqlSongRepository) GetCurrentSong(ctx context.Context) (*model.Song, error) {
	start, end := r.dayWindow()
	row := r.db.QueryRowContext(ctx,
		`SELECT `+songColumns+` FROM songs WHERE is_played = 0 AND created_at >= ? AND created_at < ?
		 ORDER BY play_order ASC LIMIT 1`,
		start, end)

	song, err := scanSong(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan current song: %w", err)
	}
	return song, nil
}

// MarkSongPlayed marks a song as played. The update only touches unplayed
// rows, so the unplayed-to-played transition happens at most once and played_at
// is never re-stamped. The bool reports whether the transition happened now;
// an already-played song is returned unchanged with false.
func (r *mysqlSongRepository) MarkSongPlayed(ctx context.Context, id int64) (*model.Song, bool, error) {
	start, end := r.dayWindow()
	res, err := r.db.ExecContext(ctx,
		`UPDATE songs SET is_played = 1, played_at = ? WHERE id = ? AND is_played = 0 AND created_at >= ? AND created_at < ?`,
		r.now().In(r.loc), id, start, end)
	if err != nil {
		return nil, false, fmt.Errorf("failed to execute MarkSongPlayed for song ID %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get affected rows for MarkSongPlayed: %w", err)
	}

	song, err := r.GetSongByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if song == nil {
		return nil, false, nil
	}
	return song, affected > 0, nil
}

// DeleteSong hard-deletes a song. Remaining play_order values are not
// renumbered; gaps are permitted.
func (r *mysqlSongRepository) DeleteSong(ctx context.Context, id int64) (bool, error) {
	start, end := r.dayWindow()
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM songs WHERE id = ? AND created_at >= ? AND created_at < ?`,
		id, start, end)
	if err != nil {
		return false, fmt.Errorf("failed to execute DeleteSong for song ID %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows for DeleteSong: %w", err)
	}
	return affected > 0, nil
}

// CountUnplayedSongs returns the number of today's unplayed songs.
func (r *mysqlSongRepository) CountUnplayedSongs(ctx context.Context) (int, error) {
	start, end := r.dayWindow()
	row := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM songs WHERE is_played = 0 AND created_at >= ? AND created_at < ?`,
		start, end)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unplayed songs: %w", err)
	}
	return count, nil
}

// MaxPlayOrder returns the largest play order assigned today, 0 when empty.
func (r *mysqlSongRepository) MaxPlayOrder(ctx context.Context) (int, error) {
	start, end := r.dayWindow()
	row := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(play_order), 0) FROM songs WHERE created_at >= ? AND created_at < ?`,
		start, end)

	var max int
	if err := row.Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to read max play_order: %w", err)
	}
	return max, nil
}

func (r *mysqlSongRepository) querySongs(ctx context.Context, query string, args ...interface{}) ([]*model.Song, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	songs := make([]*model.Song, 0)
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song row: %w", err)
		}
		songs = append(songs, song)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during song rows iteration: %w", err)
	}
	return songs, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSong(s scanner) (*model.Song, error) {
	song := &model.Song{}
	var (
		thumbnail sql.NullString
		duration  sql.NullString
		playedAt  sql.NullTime
		reqID     sql.NullString
		reqName   sql.NullString
	)
	if err := s.Scan(&song.ID, &song.YoutubeID, &song.Title, &song.ChannelTitle,
		&thumbnail, &duration, &song.PlayOrder, &song.IsPlayed, &song.CreatedAt,
		&playedAt, &reqID, &reqName); err != nil {
		return nil, err
	}

	song.ThumbnailURL = thumbnail.String
	song.Duration = duration.String
	if playedAt.Valid {
		t := playedAt.Time
		song.PlayedAt = &t
	}
	song.RequestedByUserID = reqID.String
	song.RequestedByUserName = reqName.String
	return song, nil
}
