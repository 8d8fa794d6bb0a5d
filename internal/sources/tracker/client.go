// Package tracker provides a client for the issue tracker side of a
// reconciliation: records carry a free-form state label and a
// last-modified timestamp that moves whenever a comment is added.
package tracker

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/tasklink/internal/transport"
	"github.com/agentstation/tasklink/pkg/records"
	"github.com/agentstation/tasklink/pkg/sources"
)

// SystemName is the short name used in logs and error entries.
const SystemName = "tracker"

const pageSize = 100

// Response structures for the tracker API.
type recordsResponse struct {
	Data       []recordResponse `json:"data"`
	NextCursor string           `json:"next_cursor"`
}

type recordResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	State       string     `json:"state"`
	ModifiedAt  *time.Time `json:"modified_at"`
	URL         string     `json:"url"`
}

type commentsResponse struct {
	Data []commentResponse `json:"data"`
}

type commentResponse struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Client implements sources.Source for the tracker.
type Client struct {
	transport *transport.Client
}

// NewClient creates a tracker client.
func NewClient(cfg transport.Config) (*Client, error) {
	if cfg.System == "" {
		cfg.System = SystemName
	}
	t, err := transport.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{transport: t}, nil
}

// Capabilities implements sources.Source.
func (c *Client) Capabilities() sources.Capabilities {
	return sources.Capabilities{
		System:                 c.transport.System(),
		Status:                 sources.StatusLabel,
		ModifiedTracksComments: true,
	}
}

// ListRecords retrieves every record in a project, following cursors.
func (c *Client) ListRecords(ctx context.Context, container string) ([]records.Record, error) {
	var out []records.Record
	cursor := ""
	for {
		query := url.Values{"limit": {strconv.Itoa(pageSize)}}
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var page recordsResponse
		if err := c.transport.GetJSON(ctx, "containers/"+url.PathEscape(container)+"/records", query, &page); err != nil {
			return nil, err
		}
		for _, r := range page.Data {
			out = append(out, convertRecord(r))
		}
		if page.NextCursor == "" || page.NextCursor == cursor {
			return out, nil
		}
		cursor = page.NextCursor
	}
}

// ListComments retrieves the comments on one record.
func (c *Client) ListComments(ctx context.Context, recordID string) ([]sources.Comment, error) {
	var resp commentsResponse
	if err := c.transport.GetJSON(ctx, "records/"+url.PathEscape(recordID)+"/comments", nil, &resp); err != nil {
		return nil, err
	}
	comments := make([]sources.Comment, 0, len(resp.Data))
	for _, cm := range resp.Data {
		comments = append(comments, sources.Comment{
			ID:        cm.ID,
			Author:    cm.Author,
			Body:      cm.Body,
			CreatedAt: utc.Time{Time: cm.CreatedAt},
		})
	}
	return comments, nil
}

func convertRecord(r recordResponse) records.Record {
	rec := records.Record{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		State:       r.State,
		URL:         r.URL,
	}
	if r.ModifiedAt != nil && !r.ModifiedAt.IsZero() {
		rec.ModifiedAt = &utc.Time{Time: *r.ModifiedAt}
	}
	return rec
}

var _ sources.Source = (*Client)(nil)
