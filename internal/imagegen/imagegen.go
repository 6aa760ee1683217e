// Package imagegen talks to image-generation services and builds placeholder
// image URLs for failed generations.
package imagegen

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

const (
	DefaultSize  = "square_hd"
	DefaultSteps = 4
	DefaultCount = 1

	DefaultPlaceholderBase = "/placeholder.svg"
)

var (
	// ErrNotConfigured is returned by generators created without credentials.
	ErrNotConfigured = errors.New("imagegen: generator is not configured")
	// ErrNoImage is returned when the service answered with an empty image list.
	ErrNoImage = errors.New("imagegen: no image returned")
)

// Request describes one generation call.
type Request struct {
	Prompt string
	Size   string
	Steps  int
	Count  int
}

// Generator produces image URLs for a prompt. A successful call returns at least
// one URL.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]string, error)
	Name() string
}

// Placeholder returns the URL of a 512x512 placeholder image showing the prompt.
func Placeholder(base, prompt string) string {
	if base == "" {
		base = DefaultPlaceholderBase
	}
	return base + "?height=512&width=512&text=" + encodeComponent(prompt)
}

// encodeComponent percent-encodes s for use as a query value, spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func withDefaults(req Request) Request {
	if req.Size == "" {
		req.Size = DefaultSize
	}
	if req.Steps <= 0 {
		req.Steps = DefaultSteps
	}
	if req.Count <= 0 {
		req.Count = DefaultCount
	}
	return req
}
