// Package mail reads a delegated user's mailbox through the Gmail API.
//
// Only calls allowed under the gmail.readonly scope are made. Every call
// waits on a limiter sized from the per-user quota so that bulk searches do
// not trip rateLimitExceeded.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
)

const (
	// See https://developers.google.com/gmail/api/reference/quota
	quotaUnitsMessagesGet     = 5
	quotaUnitsPerGetProfile   = 1
	quotaUnitsPerLabelsList   = 1
	quotaUnitsPerMessagesList = 5

	quotaUnitsPerSecond = 250
	rateLimitPerSecond  = quotaUnitsPerSecond * 0.8
	rateLimitBurst      = quotaUnitsPerSecond

	fetchParallelism = 8
	listPageMax      = 500
	user             = "me"
)

var ErrMessageNotFound = errors.New("gmail message not found")

var metadataHeaders = []string{"From", "To", "Subject", "Date"}

type Client struct {
	svc     *gmail.Service
	limiter *rate.Limiter
}

func New(svc *gmail.Service) *Client {
	return &Client{
		svc:     svc,
		limiter: rate.NewLimiter(rateLimitPerSecond, rateLimitBurst),
	}
}

type Profile struct {
	Email         string `json:"email"`
	MessagesTotal int64  `json:"messagesTotal"`
	ThreadsTotal  int64  `json:"threadsTotal"`
	HistoryID     uint64 `json:"historyId"`
}

func (c *Client) Profile(ctx context.Context) (Profile, error) {
	if err := c.limiter.WaitN(ctx, quotaUnitsPerGetProfile); err != nil {
		return Profile{}, err
	}
	p, err := c.svc.Users.GetProfile(user).Context(ctx).Do()
	if err != nil {
		return Profile{}, err
	}
	return Profile{
		Email:         p.EmailAddress,
		MessagesTotal: p.MessagesTotal,
		ThreadsTotal:  p.ThreadsTotal,
		HistoryID:     p.HistoryId,
	}, nil
}

type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func (c *Client) Labels(ctx context.Context) ([]Label, error) {
	if err := c.limiter.WaitN(ctx, quotaUnitsPerLabelsList); err != nil {
		return nil, err
	}
	resp, err := c.svc.Users.Labels.List(user).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := make([]Label, 0, len(resp.Labels))
	for _, l := range resp.Labels {
		out = append(out, Label{ID: l.Id, Name: l.Name, Type: l.Type})
	}
	return out, nil
}

// Message is the metadata view of a Gmail message.
type Message struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"threadId"`
	From     string    `json:"from,omitempty"`
	To       string    `json:"to,omitempty"`
	Subject  string    `json:"subject,omitempty"`
	Date     string    `json:"date,omitempty"`
	Snippet  string    `json:"snippet,omitempty"`
	Labels   []string  `json:"labels,omitempty"`
	Received time.Time `json:"received,omitzero"`
}

func (c *Client) Message(ctx context.Context, id string) (Message, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Message{}, errors.New("missing message id")
	}
	if err := c.limiter.WaitN(ctx, quotaUnitsMessagesGet); err != nil {
		return Message{}, err
	}
	m, err := c.svc.Users.Messages.Get(user, id).
		Format("metadata").
		MetadataHeaders(metadataHeaders...).
		Context(ctx).
		Do()
	if err != nil {
		if isNotFound(err) {
			return Message{}, fmt.Errorf("%w: %s", ErrMessageNotFound, id)
		}
		return Message{}, err
	}
	return toMessage(m), nil
}

// Search lists up to limit messages matching query, newest first as Gmail
// returns them, and fetches their metadata. Output order follows list order.
func (c *Client) Search(ctx context.Context, query string, limit int64) ([]Message, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	ids, err := c.listIDs(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	out := make([]Message, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchParallelism)
	for i, id := range ids {
		g.Go(func() error {
			m, err := c.Message(gctx, id)
			if err != nil {
				return err
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) listIDs(ctx context.Context, query string, limit int64) ([]string, error) {
	var ids []string
	pageToken := ""
	for {
		if err := c.limiter.WaitN(ctx, quotaUnitsPerMessagesList); err != nil {
			return nil, err
		}
		call := c.svc.Users.Messages.List(user).MaxResults(min(limit-int64(len(ids)), listPageMax))
		if strings.TrimSpace(query) != "" {
			call = call.Q(query)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		slog.Debug("listed gmail page", "count", len(resp.Messages), "total", len(ids))
		if resp.NextPageToken == "" || int64(len(ids)) >= limit {
			break
		}
		pageToken = resp.NextPageToken
	}
	if int64(len(ids)) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func toMessage(m *gmail.Message) Message {
	out := Message{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		Snippet:  m.Snippet,
		Labels:   m.LabelIds,
	}
	if m.InternalDate > 0 {
		out.Received = time.UnixMilli(m.InternalDate).UTC()
	}
	if m.Payload == nil {
		return out
	}
	for _, h := range m.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			out.From = h.Value
		case "to":
			out.To = h.Value
		case "subject":
			out.Subject = h.Value
		case "date":
			out.Date = h.Value
		}
	}
	return out
}
