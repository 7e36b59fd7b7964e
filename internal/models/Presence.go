package models

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

type PresenceStatus string

const (
	StatusOnline       PresenceStatus = "online"
	StatusIdle         PresenceStatus = "idle"
	StatusDoNotDisturb PresenceStatus = "dnd"
	StatusOffline      PresenceStatus = "offline"
)

const ActivityTypeCustomStatus = 4

const (
	externalAssetPrefix = "mp:external/"
	spotifyAssetPrefix  = "spotify:"

	spotifyImageCDN  = "https://i.scdn.co/image/"
	discordCDN       = "https://cdn.discordapp.com"
	twemojiSVGPrefix = "https://cdnjs.cloudflare.com/ajax/libs/twemoji/14.0.2/svg/"
)

type DiscordUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Avatar        string `json:"avatar"`
	GlobalName    string `json:"global_name,omitempty"`
	Discriminator string `json:"discriminator,omitempty"`
}

type Emoji struct {
	Name     string `json:"name"`
	ID       string `json:"id,omitempty"`
	Animated bool   `json:"animated,omitempty"`
}

type ActivityAssets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

type Activity struct {
	Type          int             `json:"type"`
	ID            string          `json:"id,omitempty"`
	Name          string          `json:"name"`
	Details       string          `json:"details,omitempty"`
	State         string          `json:"state,omitempty"`
	ApplicationID string          `json:"application_id,omitempty"`
	CreatedAt     int64           `json:"created_at,omitempty"`
	Emoji         *Emoji          `json:"emoji,omitempty"`
	Assets        *ActivityAssets `json:"assets,omitempty"`
}

func (a Activity) IsCustomStatus() bool {
	return a.Type == ActivityTypeCustomStatus
}

// LargeImageURL resolves the large image asset. The asset namespace is
// chosen by prefix: externally hosted media, Spotify album art, or an
// application asset on the Discord CDN.
func (a Activity) LargeImageURL() string {
	if a.Assets == nil || a.Assets.LargeImage == "" {
		return ""
	}
	img := a.Assets.LargeImage
	switch {
	case strings.HasPrefix(img, externalAssetPrefix):
		parts := strings.Split(img, "/")
		if len(parts) <= 3 {
			return "https://"
		}
		return "https://" + strings.Join(parts[3:], "/")
	case strings.HasPrefix(img, spotifyAssetPrefix):
		return spotifyImageCDN + strings.Split(img, ":")[1]
	default:
		return discordCDN + "/app-assets/" + a.ApplicationID + "/" + img + ".png"
	}
}

// EmojiURL is only meaningful for custom status activities.
func (a Activity) EmojiURL() string {
	if a.Emoji == nil {
		return ""
	}
	if a.Emoji.ID != "" {
		ext := "png"
		if a.Emoji.Animated {
			ext = "gif"
		}
		return discordCDN + "/emojis/" + a.Emoji.ID + "." + ext
	}
	r, _ := utf8.DecodeRuneInString(a.Emoji.Name)
	if r == utf8.RuneError {
		return ""
	}
	return twemojiSVGPrefix + strconv.FormatInt(int64(r), 16) + ".svg"
}

type SpotifyTimestamps struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

type Spotify struct {
	TrackID     string            `json:"track_id,omitempty"`
	Song        string            `json:"song"`
	Artist      string            `json:"artist"`
	Album       string            `json:"album,omitempty"`
	AlbumArtURL string            `json:"album_art_url"`
	Timestamps  SpotifyTimestamps `json:"timestamps"`
}

// ArtworkURL points at the image CDN using the last path segment of the
// album art reference.
func (s Spotify) ArtworkURL() string {
	if s.AlbumArtURL == "" {
		return ""
	}
	parts := strings.Split(s.AlbumArtURL, "/")
	id := parts[len(parts)-1]
	if id == "" {
		return ""
	}
	return spotifyImageCDN + id
}

func (s Spotify) Progress(nowMillis int64) float64 {
	return PlaybackProgress(s.Timestamps.Start, s.Timestamps.End, nowMillis)
}

// PlaybackProgress returns (now-start)/(end-start) clamped into [0,1].
func PlaybackProgress(start, end, now int64) float64 {
	ratio := float64(now-start) / float64(end-start)
	if math.IsNaN(ratio) {
		return 0
	}
	return math.Min(math.Max(ratio, 0), 1)
}

type PresenceSnapshot struct {
	DiscordUser        DiscordUser    `json:"discord_user"`
	DiscordStatus      PresenceStatus `json:"discord_status"`
	Activities         []Activity     `json:"activities"`
	ListeningToSpotify bool           `json:"listening_to_spotify"`
	Spotify            *Spotify       `json:"spotify,omitempty"`
}

// ActiveSpotify returns the music session only while one is being played.
func (p *PresenceSnapshot) ActiveSpotify() *Spotify {
	if p == nil || p.Spotify == nil {
		return nil
	}
	if !p.ListeningToSpotify && p.Spotify.AlbumArtURL == "" {
		return nil
	}
	return p.Spotify
}

// AvatarURL is empty when the user has no custom avatar.
func (p *PresenceSnapshot) AvatarURL(discordID string) string {
	if p == nil || p.DiscordUser.Avatar == "" {
		return ""
	}
	return discordCDN + "/avatars/" + discordID + "/" + p.DiscordUser.Avatar + ".png?size=256"
}
