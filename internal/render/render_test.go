package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/chartd/internal/chart"
	"github.com/hpungsan/chartd/internal/errors"
)

// originalPlaceholder is the fallback data URI the editor has always used.
const originalPlaceholder = "data:image/svg+xml;base64,PHN2ZyB3aWR0aD0iNDAwIiBoZWlnaHQ9IjMwMCIgeG1sbnM9Imh0dHA6Ly93d3cudzMub3JnLzIwMDAvc3ZnIj48cmVjdCB3aWR0aD0iMTAwJSIgaGVpZ2h0PSIxMDAlIiBmaWxsPSIjZjBmMGYwIi8+PHRleHQgeD0iNTAlIiB5PSI1MCUiIGZvbnQtZmFtaWx5PSJBcmlhbCIgZm9udC1zaXplPSIxNCIgZmlsbD0iIzk5OSIgdGV4dC1hbmNob3I9Im1pZGRsZSIgZHk9Ii4zZW0iPkVycm9yIGxvYWRpbmcgY2hhcnQ8L3RleHQ+PC9zdmc+"

func TestBuildURL_Shape(t *testing.T) {
	spec := chart.Specification{ConfigText: `{"type":"bar"}`, Width: "800", Height: "600"}

	got := BuildURL(spec, "http://localhost:8080/")
	want := "http://localhost:8080/api/chart?c=%7B%22type%22%3A%22bar%22%7D&w=800&h=600"
	require.Equal(t, want, got)
}

func TestBuildURL_Deterministic(t *testing.T) {
	spec := chart.Specification{ConfigText: "{\n  \"a\": [1, 2]\n}", Width: "10", Height: "20"}
	first := BuildURL(spec, "https://charts.example.com")
	for i := 0; i < 5; i++ {
		require.Equal(t, first, BuildURL(spec, "https://charts.example.com"))
	}
}

func TestBuildURL_RoundTrip(t *testing.T) {
	specs := []chart.Specification{
		{ConfigText: `{"type":"pie","data":{"labels":["a & b","c=d"]}}`, Width: "800", Height: "600"},
		{ConfigText: "{not json", Width: "", Height: "abc"},
		{ConfigText: "multi\nline + plus % percent #hash", Width: "1", Height: "2"},
		{ConfigText: "ünïcødé 📊", Width: "0800", Height: " 600"},
		{},
	}

	for _, spec := range specs {
		raw := BuildURL(spec, "http://example.test")
		u, err := url.Parse(raw)
		require.NoError(t, err)
		require.Equal(t, "/api/chart", u.Path)

		got := ParseQuery(u.Query())
		require.Equal(t, spec, got, "round trip of %q", raw)
	}
}

func TestBuilder_CustomPath(t *testing.T) {
	b := Builder{Origin: "http://r:9000", Path: "render"}
	got := b.URL(chart.Specification{ConfigText: "{}", Width: "1", Height: "2"})
	require.True(t, strings.HasPrefix(got, "http://r:9000/render?c="), got)
}

func TestPlaceholderDataURI(t *testing.T) {
	require.Equal(t, originalPlaceholder, PlaceholderDataURI)
	require.Contains(t, PlaceholderSVG, `width="400" height="300"`)
	require.Contains(t, PlaceholderSVG, "Error loading chart")
}

func TestFetcher_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("c") != `{"type":"bar"}` {
			http.Error(w, "unexpected config", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG fake"))
	}))
	defer srv.Close()

	f := NewFetcher(time.Second, nil)
	img := f.Fetch(context.Background(), BuildURL(chart.Specification{ConfigText: `{"type":"bar"}`, Width: "1", Height: "1"}, srv.URL))

	require.False(t, img.Fallback)
	require.NoError(t, img.Err)
	require.Equal(t, "image/png", img.ContentType)
	require.Equal(t, []byte("\x89PNG fake"), img.Data)
}

func TestFetcher_Non2xxFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad config", http.StatusBadRequest)
	}))
	defer srv.Close()

	img := NewFetcher(time.Second, nil).Fetch(context.Background(), srv.URL+"/api/chart?c=x")

	require.True(t, img.Fallback)
	require.Equal(t, "image/svg+xml", img.ContentType)
	require.Equal(t, PlaceholderSVG, string(img.Data))
	require.True(t, errors.Is(img.Err, errors.ErrRenderFailure))
}

func TestFetcher_UnreachableFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	img := NewFetcher(time.Second, nil).Fetch(context.Background(), addr+"/api/chart")
	require.True(t, img.Fallback)
	require.True(t, errors.Is(img.Err, errors.ErrRenderFailure))
}

func TestFetcher_BadURLFallsBack(t *testing.T) {
	img := NewFetcher(time.Second, nil).Fetch(context.Background(), "://nope")
	require.True(t, img.Fallback)
}
