package models

// MemberView is the merged per-member record. Stats and Presence are owned by
// different sources and are only ever replaced as whole fields.
type MemberView struct {
	Member
	Stats    *StatisticsSnapshot `json:"stats,omitempty"`
	Presence *PresenceSnapshot   `json:"discord_data,omitempty"`
}

func (v MemberView) AvatarURL() string {
	if url := v.Presence.AvatarURL(v.DiscordID); url != "" {
		return url
	}
	if v.Github != "" {
		if v.Stats != nil && v.Stats.AvatarURL != "" {
			return v.Stats.AvatarURL
		}
		return "https://github.com/" + v.Github + ".png"
	}
	return ""
}

// RGB is a dominant color sampled from artwork.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// SelectedView is the detail of the currently selected member.
type SelectedView struct {
	View          MemberView `json:"member"`
	AvatarURL     string     `json:"avatar_url,omitempty"`
	Progress      float64    `json:"progress"`
	DominantColor *RGB       `json:"dominant_color,omitempty"`
	ColorHex      string     `json:"dominant_color_hex,omitempty"`
}
