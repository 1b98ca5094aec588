package messages

import (
	"net/url"
	"strings"
)

// ContentKind classifies message content.
type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentImage ContentKind = "image"
	ContentVideo ContentKind = "video"
)

const (
	imageTag = "[image]"
	videoTag = "[video]"
)

// Content is parsed message content. URL is set for media references.
type Content struct {
	Kind ContentKind `json:"kind"`
	Text string      `json:"text,omitempty"`
	URL  string      `json:"url,omitempty"`
}

// IsMedia reports whether the content references an uploaded file.
func (c Content) IsMedia() bool {
	return c.Kind == ContentImage || c.Kind == ContentVideo
}

// ParseContent splits a media tag from its URL. A tag only counts when it
// opens the content; everything else is plain text.
func ParseContent(raw string) Content {
	switch {
	case strings.HasPrefix(raw, imageTag):
		return Content{Kind: ContentImage, URL: strings.TrimSpace(raw[len(imageTag):])}
	case strings.HasPrefix(raw, videoTag):
		return Content{Kind: ContentVideo, URL: strings.TrimSpace(raw[len(videoTag):])}
	}
	return Content{Kind: ContentText, Text: raw}
}

// MediaContent builds the stored form of a media reference.
func MediaContent(kind ContentKind, rawURL string) string {
	if kind == ContentVideo {
		return videoTag + rawURL
	}
	return imageTag + rawURL
}

// KindForContentType picks the media tag for an uploaded file.
func KindForContentType(contentType string) (ContentKind, bool) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return ContentImage, true
	case strings.HasPrefix(contentType, "video/"):
		return ContentVideo, true
	}
	return "", false
}

// Preview is the short text used in notifications.
func Preview(raw string) string {
	c := ParseContent(raw)
	switch c.Kind {
	case ContentImage:
		return "Sent a photo"
	case ContentVideo:
		return "Sent a video"
	}
	return c.Text
}

func validMediaURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
