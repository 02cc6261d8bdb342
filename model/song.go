package model

import "time"

// Song represents one playlist entry referencing a YouTube video.
type Song struct {
	ID                  int64      `json:"id"`
	YoutubeID           string     `json:"youtubeId"` // Not unique, the same video may be queued multiple times
	Title               string     `json:"title"`
	ChannelTitle        string     `json:"channelTitle"`
	ThumbnailURL        string     `json:"thumbnailUrl,omitempty"`
	Duration            string     `json:"duration,omitempty"` // ISO 8601 text, empty when resolved via oEmbed
	PlayOrder           int        `json:"playOrder"`          // Strictly increasing queue position, never reused or renumbered
	IsPlayed            bool       `json:"isPlayed"`
	CreatedAt           time.Time  `json:"createdAt"`
	PlayedAt            *time.Time `json:"playedAt,omitempty"`
	RequestedByUserID   string     `json:"requestedByUserId,omitempty"`
	RequestedByUserName string     `json:"requestedByUserName,omitempty"`
}

// VideoDescriptor is the metadata bundle returned by the video resolver.
type VideoDescriptor struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Duration     string `json:"duration,omitempty"`
}

// Requester identifies the user who submitted a song through an identified
// channel such as a Slack command.
type Requester struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}
