package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

const EventCastCreated = "cast.created"

// WebhookEvent is the envelope delivered by the social network webhook.
type WebhookEvent struct {
	Type      string    `json:"type"`
	CreatedAt int64     `json:"created_at"`
	Data      EventData `json:"data"`
}

type EventData struct {
	Hash string `json:"hash"`
}

func (e WebhookEvent) Received() time.Time {
	if e.CreatedAt == 0 {
		return time.Time{}
	}
	return time.Unix(e.CreatedAt, 0)
}

type User struct {
	FID             int64  `json:"fid"`
	Username        string `json:"username"`
	DisplayName     string `json:"display_name"`
	VerifiedAddress string `json:"verified_address,omitempty"`
}

// Cast is a single post with every image-bearing field the resolver knows about.
type Cast struct {
	Hash          string       `json:"hash"`
	Author        User         `json:"author"`
	Text          string       `json:"text"`
	Mentions      []int64      `json:"mentions,omitempty"`
	ImageURLs     []string     `json:"image_urls,omitempty"`
	Embeds        []Embed      `json:"embeds,omitempty"`
	EmbeddedMedia []Media      `json:"embedded_media,omitempty"`
	Attachments   []Attachment `json:"attachments,omitempty"`
}

type Media struct {
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

type EmbedKind int

const (
	EmbedUnknown EmbedKind = iota
	EmbedLink
	EmbedRich
)

// Embed is a link embed. Rich embeds carry a preview image; unknown embeds
// (quoted casts, frames without an image) are kept only so they can be skipped.
type Embed struct {
	Kind     EmbedKind `json:"kind"`
	URL      string    `json:"url,omitempty"`
	Image    string    `json:"image,omitempty"`
	MimeType string    `json:"mimetype,omitempty"`
	Title    string    `json:"title,omitempty"`
}

type AttachmentKind int

const (
	AttachmentUnknown AttachmentKind = iota
	AttachmentURL
	AttachmentObject
)

// Attachment decodes from either a bare URL string or an object with a url field.
type Attachment struct {
	Kind AttachmentKind
	URL  string
	Type string
}

func (a *Attachment) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	var s string
	if err := json.Unmarshal(data, &s); err == nil && s != "" {
		*a = Attachment{Kind: AttachmentURL, URL: s}
		return nil
	}

	var obj struct {
		URL  string `json:"url"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.URL != "" {
		*a = Attachment{Kind: AttachmentObject, URL: obj.URL, Type: obj.Type}
		return nil
	}

	*a = Attachment{Kind: AttachmentUnknown}
	return nil
}

func (a Attachment) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AttachmentURL:
		return json.Marshal(a.URL)
	case AttachmentObject:
		return json.Marshal(map[string]string{"url": a.URL, "type": a.Type})
	default:
		return []byte("null"), nil
	}
}
