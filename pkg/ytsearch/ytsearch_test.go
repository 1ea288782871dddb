package ytsearch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const watchPage = `<!DOCTYPE html>
<html>
<head>
<title>Never Gonna Give You Up</title>
<link itemprop="name" content="Rick Astley">
</head>
<body></body>
</html>`

func TestExtractVideoId(t *testing.T) {
	tests := []struct {
		query string
		id    string
		ok    bool
	}{
		{query: "dQw4w9WgXcQ", id: "dQw4w9WgXcQ", ok: true},
		{query: " dQw4w9WgXcQ ", id: "dQw4w9WgXcQ", ok: true},
		{query: "https://youtu.be/dQw4w9WgXcQ", id: "dQw4w9WgXcQ", ok: true},
		{query: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", id: "dQw4w9WgXcQ", ok: true},
		{query: "https://m.youtube.com/watch?v=dQw4w9WgXcQ&t=10s", id: "dQw4w9WgXcQ", ok: true},
		{query: "never gonna give you up", ok: false},
		{query: "https://example.com/watch?v=dQw4w9WgXcQ", ok: false},
		{query: "tooshort", ok: false},
		{query: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			id, ok := extractVideoId(tt.query)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestResolve_DirectVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dQw4w9WgXcQ", r.URL.Path)
		fmt.Fprint(w, watchPage)
	}))
	defer server.Close()

	client := NewClient()
	client.watchUrl = server.URL

	videos, err := client.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)

	require.Len(t, videos, 1)
	assert.Equal(t, "dQw4w9WgXcQ", videos[0].Id)
	assert.Equal(t, "Never Gonna Give You Up", videos[0].Title)
	assert.Equal(t, "Rick Astley", videos[0].AuthorName)
	assert.Equal(t, "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg", videos[0].ThumbnailUrl)
}

func TestResolve_Search(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/results", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "some query", r.URL.Query().Get("search_query"))
		// ids repeat on the real results page, duplicates must collapse
		fmt.Fprint(w, `{"videoId":"aaaaaaaaaaa"}{"videoId":"aaaaaaaaaaa"}{"videoId":"bbbbbbbbbbb"}`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, watchPage)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient()
	client.watchUrl = server.URL
	client.searchUrl = server.URL + "/results"

	videos, err := client.Resolve(context.Background(), "some query")
	require.NoError(t, err)

	require.Len(t, videos, 2)
	assert.Equal(t, "aaaaaaaaaaa", videos[0].Id)
	assert.Equal(t, "bbbbbbbbbbb", videos[1].Id)
	assert.Equal(t, "Never Gonna Give You Up", videos[0].Title)
}

func TestResolve_SearchCapsResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/results", func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 10; i++ {
			fmt.Fprintf(w, `{"videoId":"aaaaaaaaaa%d"}`, i)
		}
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, watchPage)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient()
	client.watchUrl = server.URL
	client.searchUrl = server.URL + "/results"

	videos, err := client.Resolve(context.Background(), "some query")
	require.NoError(t, err)
	assert.Len(t, videos, 5)
}
