package ytsearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Video is an opaque reference to a playable video plus display metadata.
type Video struct {
	Id           string `json:"id"`
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailUrl string `json:"thumbnail_url"`
}

var (
	videoIdRe      = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	searchResultRe = regexp.MustCompile(`"videoId":"([A-Za-z0-9_-]{11})"`)
)

type Client struct {
	httpClient *http.Client
	watchUrl   string
	searchUrl  string
	maxResults int
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		watchUrl:   "https://youtu.be",
		searchUrl:  "https://www.youtube.com/results",
		maxResults: 5,
	}
}

// Resolve maps a user query to candidate videos. A query that already looks
// like a video id or video url resolves to that single video, anything else
// goes through the search results page.
func (c *Client) Resolve(ctx context.Context, query string) ([]Video, error) {
	if id, ok := extractVideoId(query); ok {
		video, err := c.getVideo(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get video data: %w", err)
		}

		return []Video{*video}, nil
	}

	return c.search(ctx, query)
}

func extractVideoId(query string) (string, bool) {
	query = strings.TrimSpace(query)
	if videoIdRe.MatchString(query) {
		return query, true
	}

	u, err := url.Parse(query)
	if err != nil || u.Host == "" {
		return "", false
	}

	var id string
	switch {
	case strings.HasSuffix(u.Host, "youtu.be"):
		id = strings.TrimPrefix(u.Path, "/")
	case strings.HasSuffix(u.Host, "youtube.com"):
		id = u.Query().Get("v")
	}

	if videoIdRe.MatchString(id) {
		return id, true
	}

	return "", false
}

func (c *Client) search(ctx context.Context, query string) ([]Video, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchUrl+"?search_query="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	videos := make([]Video, 0, c.maxResults)
	for _, match := range searchResultRe.FindAllSubmatch(body, -1) {
		id := string(match[1])
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		video, err := c.getVideo(ctx, id)
		if err != nil {
			// keep the bare reference, metadata is best effort
			video = &Video{Id: id, ThumbnailUrl: thumbnailUrl(id)}
		}
		videos = append(videos, *video)

		if len(videos) == c.maxResults {
			break
		}
	}

	return videos, nil
}
