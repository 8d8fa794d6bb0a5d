// Package planner provides a client for the task planner side of a
// reconciliation. Planner tasks expose a completion flag rather than a
// state label, and their modification timestamp does not move when a
// comment is added.
package planner

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
const SystemName = "planner"

const pageSize = 100

// storyComment is the story type carrying user discussion. Other story
// types are system-generated activity.
const storyComment = "comment"

type tasksResponse struct {
	Tasks    []taskResponse `json:"tasks"`
	NextPage *struct {
		Offset string `json:"offset"`
	} `json:"next_page"`
}

type taskResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Notes      string     `json:"notes"`
	Completed  bool       `json:"completed"`
	ModifiedAt *time.Time `json:"modified_at"`
	Permalink  string     `json:"permalink_url"`
}

type storiesResponse struct {
	Data []storyResponse `json:"data"`
}

type storyResponse struct {
	ID        string    `json:"gid"`
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy struct {
		Name string `json:"name"`
	} `json:"created_by"`
}

// Client implements sources.Source for the planner.
type Client struct {
	transport *transport.Client
}

// NewClient creates a planner client.
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
		System: c.transport.System(),
		Status: sources.StatusCompletion,
	}
}

// ListRecords retrieves every task in a list, following offsets.
func (c *Client) ListRecords(ctx context.Context, container string) ([]records.Record, error) {
	var out []records.Record
	offset := ""
	for {
		query := url.Values{"limit": {strconv.Itoa(pageSize)}}
		if offset != "" {
			query.Set("offset", offset)
		}

		var page tasksResponse
		if err := c.transport.GetJSON(ctx, "lists/"+url.PathEscape(container)+"/tasks", query, &page); err != nil {
			return nil, err
		}
		for _, t := range page.Tasks {
			out = append(out, convertTask(t))
		}
		if page.NextPage == nil || page.NextPage.Offset == "" || page.NextPage.Offset == offset {
			return out, nil
		}
		offset = page.NextPage.Offset
	}
}

// ListComments retrieves the user comments on a task. System activity
// stories are skipped.
func (c *Client) ListComments(ctx context.Context, recordID string) ([]sources.Comment, error) {
	var resp storiesResponse
	if err := c.transport.GetJSON(ctx, "tasks/"+url.PathEscape(recordID)+"/stories", nil, &resp); err != nil {
		return nil, err
	}
	var comments []sources.Comment
	for _, s := range resp.Data {
		if s.Type != storyComment {
			continue
		}
		comments = append(comments, sources.Comment{
			ID:        s.ID,
			Author:    s.CreatedBy.Name,
			Body:      s.Text,
			CreatedAt: utc.Time{Time: s.CreatedAt},
		})
	}
	return comments, nil
}

func convertTask(t taskResponse) records.Record {
	rec := records.Record{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Notes,
		Completed:   t.Completed,
		URL:         t.Permalink,
	}
	if t.ModifiedAt != nil && !t.ModifiedAt.IsZero() {
		rec.ModifiedAt = &utc.Time{Time: *t.ModifiedAt}
	}
	return rec
}

var _ sources.Source = (*Client)(nil)
