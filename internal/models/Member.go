package models

type ProjectType string

const (
	ProjectWebsite ProjectType = "website"
	ProjectGithub  ProjectType = "github"
)

func (t ProjectType) Valid() bool {
	return t == ProjectWebsite || t == ProjectGithub
}

type Project struct {
	Name        string      `json:"name" yaml:"name" validate:"required"`
	Description string      `json:"description" yaml:"description"`
	URL         string      `json:"url" yaml:"url" validate:"required"`
	Icon        string      `json:"icon,omitempty" yaml:"icon"`
	Type        ProjectType `json:"type" yaml:"type" validate:"required"`
}

// Member is a roster entry. It is immutable after the roster is loaded.
type Member struct {
	Name      string    `json:"name" yaml:"name" validate:"required"`
	Link      string    `json:"link" yaml:"link" validate:"required"`
	Github    string    `json:"github,omitempty" yaml:"github"`
	DiscordID string    `json:"discord_id,omitempty" yaml:"discordId"`
	Projects  []Project `json:"projects,omitempty" yaml:"projects"`
}

func (m Member) HasStatistics() bool {
	return m.Github != ""
}

func (m Member) HasPresence() bool {
	return m.DiscordID != ""
}
