// Package github is a minimal read-only client for the public GitHub REST API.
package github

import (
	"context"
	"crewboard/internal/models"
	"crewboard/internal/structures"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const maxResponseSize = 8 << 20

type ClientInterface interface {
	GetUser(ctx context.Context, username string) (*models.GithubProfile, error)
	GetEvents(ctx context.Context, username string) ([]models.GithubEvent, error)
	GetRepos(ctx context.Context, username string) ([]models.GithubRepo, error)
}

type Client struct {
	baseURL       string
	userAgent     string
	eventsPerPage int
	reposPerPage  int
	http          *http.Client
}

func NewClient(conf *structures.Config) ClientInterface {
	timeout := conf.Stats.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:       strings.TrimRight(conf.Stats.APIURL, "/"),
		userAgent:     conf.Stats.UserAgent,
		eventsPerPage: pageSize(conf.Stats.EventsPerPage),
		reposPerPage:  pageSize(conf.Stats.ReposPerPage),
		http:          &http.Client{Timeout: timeout},
	}
}

func pageSize(n int) int {
	if n <= 0 || n > 100 {
		return 100
	}
	return n
}

// GetUser returns the profile payload. An error-shaped payload (for example
// "Not Found") is returned as a profile with Message set, not as an error.
func (c *Client) GetUser(ctx context.Context, username string) (*models.GithubProfile, error) {
	var profile models.GithubProfile
	if _, err := c.get(ctx, "/users/"+url.PathEscape(username), nil, &profile, true); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) GetEvents(ctx context.Context, username string) ([]models.GithubEvent, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(c.eventsPerPage))
	var events []models.GithubEvent
	if _, err := c.get(ctx, "/users/"+url.PathEscape(username)+"/events/public", q, &events, false); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) GetRepos(ctx context.Context, username string) ([]models.GithubRepo, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(c.reposPerPage))
	q.Set("sort", "pushed")
	var repos []models.GithubRepo
	if _, err := c.get(ctx, "/users/"+url.PathEscape(username)+"/repos", q, &repos, false); err != nil {
		return nil, err
	}
	return repos, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any, allowErrorBody bool) (int, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("github %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("github %s: read body: %w", path, err)
	}
	if resp.StatusCode >= 300 && !allowErrorBody {
		return resp.StatusCode, &StatusError{Path: path, Code: resp.StatusCode}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, fmt.Errorf("github %s: decode: %w", path, err)
	}
	return resp.StatusCode, nil
}

type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github %s: unexpected status %d", e.Path, e.Code)
}
