package ytsearch

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/net/html"
)

func thumbnailUrl(videoId string) string {
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", videoId)
}

func (c *Client) getVideo(ctx context.Context, videoId string) (*Video, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.watchUrl+"/"+videoId, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Video{
		Id:           videoId,
		Title:        getTitle(doc),
		AuthorName:   getLinkContent(doc),
		ThumbnailUrl: thumbnailUrl(videoId),
	}, nil
}

func getTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
		return n.FirstChild.Data
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := getTitle(c); title != "" {
			return title
		}
	}

	return ""
}

func getLinkContent(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "link" {
		for _, attr := range n.Attr {
			if attr.Key == "itemprop" && attr.Val == "name" {
				for _, attr := range n.Attr {
					if attr.Key == "content" {
						return attr.Val
					}
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if content := getLinkContent(c); content != "" {
			return content
		}
	}

	return ""
}
