package presence

import (
	"context"
	"crewboard/internal/models"
	"crewboard/internal/structures"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

type LookupInterface interface {
	// Lookup fetches the current presence of id once. A nil snapshot with a
	// nil error means the service does not track that identity.
	Lookup(ctx context.Context, id string) (*models.PresenceSnapshot, error)
}

type lookupResponse struct {
	Success bool                     `json:"success"`
	Data    *models.PresenceSnapshot `json:"data"`
}

type LookupClient struct {
	baseURL string
	http    *http.Client
}

func (l *LookupClient) Lookup(ctx context.Context, id string) (*models.PresenceSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/users/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var payload lookupResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("presence lookup for %s: status %d", id, resp.StatusCode)
		}
		return nil, fmt.Errorf("presence lookup for %s: %w", id, err)
	}
	if !payload.Success || payload.Data == nil {
		return nil, nil
	}
	return payload.Data, nil
}

func NewLookupClient(conf *structures.Config) LookupInterface {
	timeout := conf.Presence.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LookupClient{
		baseURL: strings.TrimRight(conf.Presence.APIURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}
