package models

import "time"

const ContributionWindow = 30 * 24 * time.Hour

type StatisticsSnapshot struct {
	Repos         int     `json:"repos"`
	Followers     int     `json:"followers"`
	Contributions int     `json:"contributions"`
	Stars         int     `json:"stars"`
	AvatarURL     string  `json:"avatar_url"`
	Bio           *string `json:"bio"`
}

// GithubProfile is the subset of the upstream user payload we read.
// Message is only set when the upstream answered with an error payload.
type GithubProfile struct {
	Login       string  `json:"login"`
	PublicRepos int     `json:"public_repos"`
	Followers   int     `json:"followers"`
	AvatarURL   string  `json:"avatar_url"`
	Bio         *string `json:"bio"`
	Message     string  `json:"message,omitempty"`
}

type GithubEvent struct {
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
}

type GithubRepo struct {
	Name            string `json:"name"`
	StargazersCount *int   `json:"stargazers_count"`
}

// CountRecentEvents counts events strictly newer than now minus the
// contribution window. Events with a missing or unparseable timestamp are
// skipped.
func CountRecentEvents(events []GithubEvent, now time.Time) int {
	cutoff := now.Add(-ContributionWindow)
	count := 0
	for _, e := range events {
		if e.CreatedAt == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, e.CreatedAt)
		if err != nil {
			continue
		}
		if ts.After(cutoff) {
			count++
		}
	}
	return count
}

func SumStars(repos []GithubRepo) int {
	total := 0
	for _, r := range repos {
		if r.StargazersCount != nil {
			total += *r.StargazersCount
		}
	}
	return total
}

func NewStatisticsSnapshot(profile *GithubProfile, events []GithubEvent, repos []GithubRepo, now time.Time) *StatisticsSnapshot {
	var bio *string
	if profile.Bio != nil && *profile.Bio != "" {
		b := *profile.Bio
		bio = &b
	}
	return &StatisticsSnapshot{
		Repos:         profile.PublicRepos,
		Followers:     profile.Followers,
		Contributions: CountRecentEvents(events, now),
		Stars:         SumStars(repos),
		AvatarURL:     profile.AvatarURL,
		Bio:           bio,
	}
}
