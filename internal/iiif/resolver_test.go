package iiif

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archetype-pal/lightbox-backend/internal/model"
)

func TestWholeImageURL(t *testing.T) {
	got := WholeImageURL("https://iiif.example/ms7/info.json", Options{})
	assert.Equal(t, "https://iiif.example/ms7/full/full/0/default.jpg", got)

	got = WholeImageURL("https://iiif.example/ms7", Options{Thumbnail: true})
	assert.Equal(t, "https://iiif.example/ms7/full/!250,250/0/default.jpg", got)
}

func newInfoServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBoundedImageURLNoUpscale(t *testing.T) {
	srv := newInfoServer(t, `{"width":1000,"height":800}`, http.StatusOK)

	r := NewResolver()
	coords := &model.Rect{X: 0, Y: 0, Width: 2000, Height: 2000}
	url, err := r.BoundedImageURL(context.Background(), srv.URL+"/info.json", coords, Options{})
	require.NoError(t, err)

	// region clamps to native bounds
	assert.Contains(t, url, "/0,0,1000,800/")

	// size parameters never exceed native dimensions
	parts := strings.Split(url, "/")
	size := parts[len(parts)-3]
	dims := strings.Split(size, ",")
	require.Len(t, dims, 2)
	w, _ := strconv.Atoi(dims[0])
	h, _ := strconv.Atoi(dims[1])
	assert.LessOrEqual(t, w, 1000)
	assert.LessOrEqual(t, h, 800)
}

func TestBoundedImageURLFallsBackWithoutCoordinates(t *testing.T) {
	r := NewResolver()

	// no network call may happen: there is no server behind this URL
	url, err := r.BoundedImageURL(context.Background(), "https://iiif.invalid/ms/info.json", nil, Options{Thumbnail: true})
	require.NoError(t, err)
	assert.Equal(t, WholeImageURL("https://iiif.invalid/ms/info.json", Options{Thumbnail: true}), url)

	url, err = r.BoundedImageURL(context.Background(), "https://iiif.invalid/ms/info.json", &model.Rect{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, WholeImageURL("https://iiif.invalid/ms/info.json", Options{Thumbnail: true}), url)
}

func TestBoundedImageURLRejectsOnFetchFailure(t *testing.T) {
	srv := newInfoServer(t, `server error`, http.StatusInternalServerError)

	r := NewResolver()
	_, err := r.BoundedImageURL(context.Background(), srv.URL+"/info.json", &model.Rect{Width: 10, Height: 10}, Options{})
	require.Error(t, err)
	assert.True(t, IsResolveError(err))
}

func TestBoundedImageURLRejectsOnBadInfoDocument(t *testing.T) {
	srv := newInfoServer(t, `{"not":"an info doc"}`, http.StatusOK)

	r := NewResolver()
	_, err := r.BoundedImageURL(context.Background(), srv.URL+"/info.json", &model.Rect{Width: 10, Height: 10}, Options{})
	require.Error(t, err)
	assert.True(t, IsResolveError(err))
}

func TestBoundedImageURLThumbnailMode(t *testing.T) {
	srv := newInfoServer(t, `{"width":1000,"height":800}`, http.StatusOK)

	r := NewResolver()
	url, err := r.BoundedImageURL(context.Background(), srv.URL+"/info.json", &model.Rect{X: 100, Y: 100, Width: 600, Height: 500}, Options{Thumbnail: true})
	require.NoError(t, err)
	assert.Contains(t, url, "/100,100,600,500/")
	assert.Contains(t, url, "/!250,250/")
}

func TestBoundsFromGeoJSON(t *testing.T) {
	rect, ok := BoundsFromGeoJSON(`{"type":"Polygon","coordinates":[[[10,20],[110,20],[110,220],[10,220],[10,20]]]}`)
	require.True(t, ok)
	assert.Equal(t, model.Rect{X: 10, Y: 20, Width: 100, Height: 200}, *rect)
}

func TestBoundsFromGeoJSONMalformed(t *testing.T) {
	for _, s := range []string{"", "not json", `{"type":"Polygon"}`, `{"type":"Polygon","coordinates":"oops"}`} {
		if _, ok := BoundsFromGeoJSON(s); ok {
			t.Fatalf("expected no bounds for %q", s)
		}
	}
}
