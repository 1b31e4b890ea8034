package events

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/newsletter/internal/domain/subscriber"
)

// SubscriberDocument is what the projection stores per subscriber.
type SubscriberDocument struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// ElasticsearchProjection upserts a partial document per event so the index
// mirrors the subscriber store.
type ElasticsearchProjection struct {
	Client  *elasticsearch.Client
	Index   string
	Timeout time.Duration
}

func NewElasticsearchProjection(client *elasticsearch.Client, index string) *ElasticsearchProjection {
	return &ElasticsearchProjection{Client: client, Index: index, Timeout: 3 * time.Second}
}

func (p *ElasticsearchProjection) Publish(ctx context.Context, events ...subscriber.Event) error {
	for _, e := range events {
		doc := projectionDoc(e)
		if doc == nil {
			continue
		}
		if err := p.upsert(ctx, e.AggregateID().String(), doc); err != nil {
			return err
		}
	}
	return nil
}

func projectionDoc(e subscriber.Event) map[string]any {
	at := e.OccurredAt().UTC().Format(time.RFC3339Nano)
	switch ev := e.(type) {
	case subscriber.Registered:
		return map[string]any{
			"id":            ev.AggregateID().String(),
			"email":         ev.Email,
			"name":          ev.SubscriberName,
			"status":        string(ev.Status),
			"registered_at": at,
			"updated_at":    at,
		}
	case subscriber.NameUpdated:
		return map[string]any{"name": ev.NewName, "updated_at": at}
	case subscriber.Confirmed:
		return map[string]any{"status": string(subscriber.StatusConfirmed), "updated_at": at}
	case subscriber.EmailVerified:
		return map[string]any{"status": string(ev.Status), "updated_at": at}
	default:
		return nil
	}
}

func (p *ElasticsearchProjection) upsert(ctx context.Context, id string, doc map[string]any) error {
	b, err := json.Marshal(map[string]any{"doc": doc, "doc_as_upsert": true})
	if err != nil {
		return err
	}
	req := esapi.UpdateRequest{Index: p.Index, DocumentID: id, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	res, err := req.Do(c, p.Client)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es update %s: %s", id, res.Status())
	}
	return nil
}

// Search runs a multi_match over email and name.
func (p *ElasticsearchProjection) Search(ctx context.Context, q string, size int) ([]SubscriberDocument, error) {
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	res, err := p.Client.Search(
		p.Client.Search.WithContext(c),
		p.Client.Search.WithIndex(p.Index),
		p.Client.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var out struct {
		Hits struct {
			Hits []struct {
				Source SubscriberDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	docs := make([]SubscriberDocument, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		docs = append(docs, h.Source)
	}
	return docs, nil
}

var _ subscriber.EventPublisher = (*ElasticsearchProjection)(nil)
