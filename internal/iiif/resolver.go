// Package iiif builds fetchable image URLs from IIIF image descriptors
// following the standard {region}/{size}/{rotation}/{quality}.{format}
// path template. The whole-image path is a pure string transform; the
// bounded path fetches the endpoint's info.json to map region geometry
// into native pixel space.
package iiif

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/archetype-pal/lightbox-backend/internal/model"
)

// ThumbnailMax is the fixed maximum dimension requested in thumbnail mode.
const ThumbnailMax = 250

// Options select the rendering variant for a resolved URL.
type Options struct {
	Thumbnail bool
}

// ResolveError reports a failed bounded resolution: the info.json fetch
// or parse failed, so the caller cannot distinguish the full image from
// a crop. Bounded resolution rejects instead of degrading.
type ResolveError struct {
	InfoURL string
	Cause   error
}

func (e ResolveError) Error() string {
	return fmt.Sprintf("iiif resolve %s: %v", e.InfoURL, e.Cause)
}

func (e ResolveError) Unwrap() error { return e.Cause }

// IsResolveError checks if err is a ResolveError (including wrapped errors).
func IsResolveError(err error) bool {
	var re ResolveError
	return errors.As(err, &re)
}

// WholeImageURL converts an info.json URL into a directly fetchable
// image URL. No network call is made.
func WholeImageURL(infoURL string, opts Options) string {
	base := strings.TrimSuffix(strings.TrimSuffix(infoURL, "info.json"), "/")
	if opts.Thumbnail {
		return fmt.Sprintf("%s/full/!%d,%d/0/default.jpg", base, ThumbnailMax, ThumbnailMax)
	}
	return base + "/full/full/0/default.jpg"
}

// Resolver resolves bounded region URLs against remote IIIF endpoints.
type Resolver struct {
	client *resty.Client
}

// NewResolver builds a resolver with a shared HTTP client.
func NewResolver() *Resolver {
	c := resty.New().
		SetHeader("Accept", "application/json").
		SetTimeout(30 * time.Second)
	return &Resolver{client: c}
}

// info.json subset: only the native dimensions matter here.
type infoDocument struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// BoundedImageURL fetches the info.json behind infoURL, maps coords
// into native pixel space, clamps to the image bounds and builds a
// region-of-interest URL whose size parameters never exceed the
// region's native dimensions. An absent or empty coords degrades to the
// whole-image thumbnail URL; a fetch or parse failure returns a
// ResolveError so callers can tell "no image" from "cropped to full".
func (r *Resolver) BoundedImageURL(ctx context.Context, infoURL string, coords *model.Rect, opts Options) (string, error) {
	if coords == nil || coords.Width <= 0 || coords.Height <= 0 {
		return WholeImageURL(infoURL, Options{Thumbnail: true}), nil
	}

	info, err := r.fetchInfo(ctx, infoURL)
	if err != nil {
		return "", ResolveError{InfoURL: infoURL, Cause: err}
	}

	rect := clampToBounds(*coords, info.Width, info.Height)
	if rect.Width <= 0 || rect.Height <= 0 {
		return "", ResolveError{InfoURL: infoURL, Cause: fmt.Errorf("region %v outside image bounds %gx%g", *coords, info.Width, info.Height)}
	}

	base := strings.TrimSuffix(strings.TrimSuffix(infoURL, "info.json"), "/")
	region := fmt.Sprintf("%d,%d,%d,%d",
		int(math.Floor(rect.X)), int(math.Floor(rect.Y)),
		int(math.Ceil(rect.Width)), int(math.Ceil(rect.Height)))

	w, h := int(math.Ceil(rect.Width)), int(math.Ceil(rect.Height))
	if opts.Thumbnail && (w > ThumbnailMax || h > ThumbnailMax) {
		// bounded-fit thumbnail; the server scales down, never up
		return fmt.Sprintf("%s/%s/!%d,%d/0/default.jpg", base, region, ThumbnailMax, ThumbnailMax), nil
	}
	// request the region at native resolution, no upscaling
	return fmt.Sprintf("%s/%s/%d,%d/0/default.jpg", base, region, w, h), nil
}

func (r *Resolver) fetchInfo(ctx context.Context, infoURL string) (*infoDocument, error) {
	resp, err := r.client.R().SetContext(ctx).Get(infoURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	var doc infoDocument
	if err := json.Unmarshal(resp.Body(), &doc); err != nil {
		return nil, err
	}
	if doc.Width <= 0 || doc.Height <= 0 {
		return nil, fmt.Errorf("info document missing dimensions")
	}
	return &doc, nil
}

func clampToBounds(rect model.Rect, width, height float64) model.Rect {
	if rect.X < 0 {
		rect.Width += rect.X
		rect.X = 0
	}
	if rect.Y < 0 {
		rect.Height += rect.Y
		rect.Y = 0
	}
	if rect.X+rect.Width > width {
		rect.Width = width - rect.X
	}
	if rect.Y+rect.Height > height {
		rect.Height = height - rect.Y
	}
	return rect
}
