package youtube

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"short URL", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"watch URL", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"watch URL with extra params", "https://www.youtube.com/watch?list=PL123&v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"embed URL", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"legacy v URL", "https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"bare id", "dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"bare id with whitespace", "  dQw4w9WgXcQ ", "dQw4w9WgXcQ", true},
		{"free text", "not a url", "", false},
		{"empty", "", "", false},
		{"id too short", "dQw4w9WgXc", "", false},
		{"unrelated URL", "https://example.com/watch?v=dQw4w9WgXcQ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractVideoID(tt.input)
			if ok != tt.ok {
				t.Fatalf("ExtractVideoID(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("ExtractVideoID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// roundTripFunc lets a test serve canned HTTP responses per request.
type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(apiKey string, rt roundTripFunc) *Client {
	c := NewClient(apiKey)
	c.httpClient.Transport = rt
	return c
}

func TestSearchWithoutAPIKeyReturnsEmpty(t *testing.T) {
	c := newTestClient("", func(req *http.Request) (*http.Response, error) {
		t.Fatalf("no request expected without an API key, got %s", req.URL)
		return nil, nil
	})

	results, err := c.Search(context.Background(), "never gonna", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %d", len(results))
	}
}

func TestSearchResolvesDurations(t *testing.T) {
	c := newTestClient("test-key", func(req *http.Request) (*http.Response, error) {
		switch {
		case strings.HasSuffix(req.URL.Path, "/search"):
			if got := req.URL.Query().Get("videoCategoryId"); got != "10" {
				t.Errorf("expected music category filter, got %q", got)
			}
			return jsonResponse(http.StatusOK, `{"items":[
				{"id":{"videoId":"dQw4w9WgXcQ"}},
				{"id":{"videoId":"aaaaaaaaaaa"}}
			]}`), nil
		case strings.HasSuffix(req.URL.Path, "/videos"):
			if got := req.URL.Query().Get("id"); got != "dQw4w9WgXcQ,aaaaaaaaaaa" {
				t.Errorf("unexpected video ids %q", got)
			}
			return jsonResponse(http.StatusOK, `{"items":[
				{"id":"dQw4w9WgXcQ","snippet":{"title":"Never Gonna Give You Up","channelTitle":"Rick Astley","thumbnails":{"medium":{"url":"https://i.ytimg.com/vi/dQw4w9WgXcQ/mqdefault.jpg"}}},"contentDetails":{"duration":"PT3M33S"}},
				{"id":"aaaaaaaaaaa","snippet":{"title":"Other","channelTitle":"Channel","thumbnails":{"medium":{"url":""}}},"contentDetails":{"duration":"PT1M"}}
			]}`), nil
		default:
			t.Fatalf("unexpected request to %s", req.URL.Path)
			return nil, nil
		}
	})

	results, err := c.Search(context.Background(), "never gonna", 5)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	first := results[0]
	if first.VideoID != "dQw4w9WgXcQ" || first.Title != "Never Gonna Give You Up" ||
		first.ChannelTitle != "Rick Astley" || first.Duration != "PT3M33S" {
		t.Errorf("unexpected first result: %+v", first)
	}
}

func TestResolveWithAPIKey(t *testing.T) {
	c := newTestClient("test-key", func(req *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(req.URL.Path, "/videos") {
			t.Fatalf("unexpected request to %s", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, `{"items":[
			{"id":"dQw4w9WgXcQ","snippet":{"title":"Never Gonna Give You Up","channelTitle":"Rick Astley","thumbnails":{"medium":{"url":"https://i.ytimg.com/vi/dQw4w9WgXcQ/mqdefault.jpg"}}},"contentDetails":{"duration":"PT3M33S"}}
		]}`), nil
	})

	d, err := c.Resolve(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if d == nil {
		t.Fatal("expected a descriptor")
	}
	if d.VideoID != "dQw4w9WgXcQ" || d.Duration != "PT3M33S" {
		t.Errorf("unexpected descriptor: %+v", d)
	}
}

func TestResolveUnknownVideo(t *testing.T) {
	c := newTestClient("test-key", func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"items":[]}`), nil
	})

	d, err := c.Resolve(context.Background(), "aaaaaaaaaaa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != nil {
		t.Errorf("expected nil descriptor for unknown video, got %+v", d)
	}
}

func TestResolveFallsBackToOEmbed(t *testing.T) {
	c := newTestClient("", func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/oembed" {
			t.Fatalf("unexpected request to %s", req.URL.Path)
		}
		return jsonResponse(http.StatusOK,
			`{"title":"Never Gonna Give You Up","author_name":"Rick Astley","thumbnail_url":"https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg"}`), nil
	})

	d, err := c.Resolve(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if d == nil {
		t.Fatal("expected a descriptor")
	}
	if d.Title != "Never Gonna Give You Up" || d.ChannelTitle != "Rick Astley" {
		t.Errorf("unexpected descriptor: %+v", d)
	}
	if d.Duration != "" {
		t.Errorf("oEmbed provides no duration, got %q", d.Duration)
	}
}

func TestResolveOEmbedNotFound(t *testing.T) {
	c := newTestClient("", func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `Not Found`), nil
	})

	d, err := c.Resolve(context.Background(), "aaaaaaaaaaa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != nil {
		t.Errorf("expected absent descriptor, got %+v", d)
	}
}
