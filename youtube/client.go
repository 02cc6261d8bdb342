package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"QueueFM/logger"
	"QueueFM/model"
)

const (
	defaultAPIBaseURL    = "https://www.googleapis.com/youtube/v3"
	defaultOEmbedBaseURL = "https://www.youtube.com/oembed"

	// YouTube category id for Music, applied to searches.
	musicCategoryID = "10"
)

var (
	bareVideoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	videoURLPatterns   = []*regexp.Regexp{
		regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/v/)([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/watch\?.*v=([a-zA-Z0-9_-]{11})`),
	}
)

// ExtractVideoID extracts a canonical video id from a bare 11-character id or
// any of the known YouTube URL shapes. The second return is false when no
// pattern matches.
func ExtractVideoID(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}

	if bareVideoIDPattern.MatchString(input) {
		return input, true
	}

	for _, pattern := range videoURLPatterns {
		if m := pattern.FindStringSubmatch(input); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// Client resolves video descriptors against the YouTube Data API v3. Without
// an API key it degrades to the public oEmbed endpoint, which can look up ids
// (minus duration) but cannot search.
type Client struct {
	apiKey        string
	apiBaseURL    string
	oembedBaseURL string
	httpClient    *http.Client
}

// NewClient creates a new resolver client. apiKey may be empty.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:        apiKey,
		apiBaseURL:    defaultAPIBaseURL,
		oembedBaseURL: defaultOEmbedBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type searchListResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type videoListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			Thumbnails   struct {
				Medium struct {
					URL string `json:"url"`
				} `json:"medium"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Search looks up candidate videos for a free-text query. It returns an empty
// slice when no API key is configured; search has no unauthenticated fallback.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]model.VideoDescriptor, error) {
	if c.apiKey == "" {
		logger.Warn("youtube API key not configured, search disabled")
		return []model.VideoDescriptor{}, nil
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("maxResults", fmt.Sprintf("%d", limit))
	params.Set("type", "video")
	params.Set("videoCategoryId", musicCategoryID)
	params.Set("key", c.apiKey)

	var searchResp searchListResponse
	if err := c.getJSON(ctx, c.apiBaseURL+"/search?"+params.Encode(), &searchResp); err != nil {
		return nil, fmt.Errorf("youtube search failed: %w", err)
	}

	ids := make([]string, 0, len(searchResp.Items))
	for _, item := range searchResp.Items {
		if item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}
	if len(ids) == 0 {
		return []model.VideoDescriptor{}, nil
	}

	// Second call for contentDetails; search.list does not return durations.
	return c.listVideos(ctx, strings.Join(ids, ","))
}

// Resolve looks up a single video by id. It returns nil when the video does
// not exist. Without an API key, or when the API call fails, it falls back to
// the oEmbed endpoint.
func (c *Client) Resolve(ctx context.Context, videoID string) (*model.VideoDescriptor, error) {
	if c.apiKey == "" {
		logger.Warn("youtube API key not configured, using oEmbed fallback",
			logger.String("videoId", videoID))
		return c.resolveFromOEmbed(ctx, videoID)
	}

	descriptors, err := c.listVideos(ctx, videoID)
	if err != nil {
		logger.Warn("youtube API lookup failed, falling back to oEmbed",
			logger.String("videoId", videoID),
			logger.ErrorField(err))
		return c.resolveFromOEmbed(ctx, videoID)
	}
	if len(descriptors) == 0 {
		return nil, nil
	}

	d := descriptors[0]
	return &d, nil
}

func (c *Client) listVideos(ctx context.Context, ids string) ([]model.VideoDescriptor, error) {
	params := url.Values{}
	params.Set("part", "snippet,contentDetails")
	params.Set("id", ids)
	params.Set("key", c.apiKey)

	var videoResp videoListResponse
	if err := c.getJSON(ctx, c.apiBaseURL+"/videos?"+params.Encode(), &videoResp); err != nil {
		return nil, fmt.Errorf("youtube video lookup failed: %w", err)
	}

	descriptors := make([]model.VideoDescriptor, 0, len(videoResp.Items))
	for _, item := range videoResp.Items {
		descriptors = append(descriptors, model.VideoDescriptor{
			VideoID:      item.ID,
			Title:        item.Snippet.Title,
			ChannelTitle: item.Snippet.ChannelTitle,
			ThumbnailURL: item.Snippet.Thumbnails.Medium.URL,
			Duration:     item.ContentDetails.Duration,
		})
	}
	return descriptors, nil
}

func (c *Client) resolveFromOEmbed(ctx context.Context, videoID string) (*model.VideoDescriptor, error) {
	params := url.Values{}
	params.Set("url", "https://www.youtube.com/watch?v="+videoID)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.oembedBaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create oEmbed request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oEmbed request failed: %w", err)
	}
	defer resp.Body.Close()

	// oEmbed answers 400/404 for unknown or unembeddable videos.
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var oembed oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&oembed); err != nil {
		return nil, fmt.Errorf("failed to decode oEmbed response: %w", err)
	}

	return &model.VideoDescriptor{
		VideoID:      videoID,
		Title:        oembed.Title,
		ChannelTitle: oembed.AuthorName,
		ThumbnailURL: oembed.ThumbnailURL,
		// oEmbed does not provide duration.
	}, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("youtube API error: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
