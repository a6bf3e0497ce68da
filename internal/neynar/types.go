package neynar

import (
	"encoding/json"
	"strings"

	"zoiner/internal/domain"
)

type apiUser struct {
	FID               int64    `json:"fid"`
	Username          string   `json:"username"`
	DisplayName       string   `json:"display_name"`
	Verifications     []string `json:"verifications"`
	VerifiedAddresses struct {
		EthAddresses []string `json:"eth_addresses"`
	} `json:"verified_addresses"`
}

func (u apiUser) toDomain() domain.User {
	user := domain.User{
		FID:         u.FID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
	}
	if user.DisplayName == "" {
		user.DisplayName = u.Username
	}

	switch {
	case len(u.VerifiedAddresses.EthAddresses) > 0:
		user.VerifiedAddress = u.VerifiedAddresses.EthAddresses[0]
	case len(u.Verifications) > 0:
		user.VerifiedAddress = u.Verifications[0]
	}

	return user
}

type apiEmbed struct {
	URL      string          `json:"url"`
	CastID   json.RawMessage `json:"cast_id"`
	Metadata *struct {
		ContentType string `json:"content_type"`
		Image       *struct {
			WidthPx  int `json:"width_px"`
			HeightPx int `json:"height_px"`
		} `json:"image"`
		HTML *struct {
			OGTitle string `json:"ogTitle"`
			OGImage []struct {
				URL string `json:"url"`
			} `json:"ogImage"`
		} `json:"html"`
	} `json:"metadata"`
}

type apiFrame struct {
	Image     string `json:"image"`
	FramesURL string `json:"frames_url"`
}

type apiCast struct {
	Hash              string              `json:"hash"`
	Text              string              `json:"text"`
	Author            apiUser             `json:"author"`
	Embeds            []apiEmbed          `json:"embeds"`
	Frames            []apiFrame          `json:"frames"`
	MentionedProfiles []apiUser           `json:"mentioned_profiles"`
	Attachments       []domain.Attachment `json:"attachments"`
}

// toDomain sorts the API's loosely typed embeds into the cast's known shapes.
// Image uploads become embedded media, link previews become rich embeds,
// quoted casts are kept as unknown embeds.
func (c apiCast) toDomain() domain.Cast {
	cast := domain.Cast{
		Hash:        c.Hash,
		Text:        c.Text,
		Author:      c.Author.toDomain(),
		Attachments: c.Attachments,
	}

	for _, p := range c.MentionedProfiles {
		cast.Mentions = append(cast.Mentions, p.FID)
	}

	for _, f := range c.Frames {
		if f.Image != "" {
			cast.ImageURLs = append(cast.ImageURLs, f.Image)
		}
	}

	for _, e := range c.Embeds {
		switch {
		case e.URL == "":
			cast.Embeds = append(cast.Embeds, domain.Embed{Kind: domain.EmbedUnknown})
		case e.Metadata != nil && strings.HasPrefix(e.Metadata.ContentType, "image/"):
			cast.EmbeddedMedia = append(cast.EmbeddedMedia, domain.Media{URL: e.URL, Type: e.Metadata.ContentType})
		case e.Metadata != nil && e.Metadata.HTML != nil && len(e.Metadata.HTML.OGImage) > 0:
			cast.Embeds = append(cast.Embeds, domain.Embed{
				Kind:     domain.EmbedRich,
				URL:      e.URL,
				Image:    e.Metadata.HTML.OGImage[0].URL,
				MimeType: e.Metadata.ContentType,
				Title:    e.Metadata.HTML.OGTitle,
			})
		default:
			embed := domain.Embed{Kind: domain.EmbedLink, URL: e.URL}
			if e.Metadata != nil {
				embed.MimeType = e.Metadata.ContentType
			}
			cast.Embeds = append(cast.Embeds, embed)
		}
	}

	return cast
}
