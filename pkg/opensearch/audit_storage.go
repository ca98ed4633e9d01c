package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"

	"github.com/dmitrymomot/toggler/pkg/audit"
)

// indexMapping keeps identifiers as keywords so Find can use exact term filters.
const indexMapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "keyword"},
      "timestamp":   {"type": "date"},
      "feature":     {"type": "keyword"},
      "environment": {"type": "keyword"},
      "action":      {"type": "keyword"},
      "user_id":     {"type": "keyword"},
      "details":     {"type": "text"}
    }
  }
}`

// AuditStorage indexes audit entries, one document per entry with the entry
// ID as document ID. It implements audit.Storage and audit.Reader.
type AuditStorage struct {
	client *opensearch.Client
	index  string
}

// NewAuditStorage creates a storage writing to index.
func NewAuditStorage(client *opensearch.Client, index string) *AuditStorage {
	return &AuditStorage{client: client, index: index}
}

// EnsureIndex creates the index with its mapping. An existing index is left
// untouched.
func (s *AuditStorage) EnsureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Create(s.index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return errors.Join(ErrFailedToCreateIndex, err)
	}
	defer res.Body.Close()

	if !res.IsError() {
		return nil
	}
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode == http.StatusBadRequest && bytes.Contains(body, []byte("resource_already_exists_exception")) {
		return nil
	}
	return errors.Join(ErrFailedToCreateIndex, fmt.Errorf("status %d: %s", res.StatusCode, body))
}

// StoreBatch indexes the batch with one bulk request. Indexing by ID makes a
// retried batch overwrite rather than duplicate.
func (s *AuditStorage) StoreBatch(ctx context.Context, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		meta := map[string]map[string]string{"index": {"_index": s.index, "_id": e.ID}}
		if err := enc.Encode(meta); err != nil {
			return errors.Join(ErrFailedToStoreEntries, err)
		}
		if err := enc.Encode(e); err != nil {
			return errors.Join(ErrFailedToStoreEntries, err)
		}
	}

	res, err := s.client.Bulk(&buf, s.client.Bulk.WithContext(ctx))
	if err != nil {
		return errors.Join(ErrFailedToStoreEntries, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return errors.Join(ErrFailedToStoreEntries, fmt.Errorf("status %d: %s", res.StatusCode, body))
	}

	var out bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return errors.Join(ErrFailedToStoreEntries, err)
	}
	if out.Errors {
		return errors.Join(ErrFailedToStoreEntries, out.firstError())
	}
	return nil
}

// Find returns entries matching c ordered by timestamp. Without a limit at
// most 10000 entries are returned.
func (s *AuditStorage) Find(ctx context.Context, c audit.Criteria) ([]audit.Entry, error) {
	size := c.Limit
	if size <= 0 {
		size = 10000
	}
	body, err := json.Marshal(map[string]any{
		"size":  size,
		"query": searchQuery(c),
		"sort":  []any{map[string]string{"timestamp": "asc"}, map[string]string{"id": "asc"}},
	})
	if err != nil {
		return nil, errors.Join(ErrFailedToQueryEntries, err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, errors.Join(ErrFailedToQueryEntries, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		b, _ := io.ReadAll(res.Body)
		return nil, errors.Join(ErrFailedToQueryEntries, fmt.Errorf("status %d: %s", res.StatusCode, b))
	}

	var out searchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, errors.Join(ErrFailedToQueryEntries, err)
	}

	entries := make([]audit.Entry, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		entries = append(entries, h.Source)
	}
	return entries, nil
}

func searchQuery(c audit.Criteria) map[string]any {
	var filters []any
	term := func(field, value string) {
		if value != "" {
			filters = append(filters, map[string]any{"term": map[string]string{field: value}})
		}
	}
	term("feature", c.Feature)
	term("environment", c.Environment.String())
	term("action", c.Action.String())
	term("user_id", c.UserID)

	if !c.Since.IsZero() || !c.Until.IsZero() {
		r := map[string]string{}
		if !c.Since.IsZero() {
			r["gte"] = c.Since.UTC().Format(time.RFC3339Nano)
		}
		if !c.Until.IsZero() {
			r["lt"] = c.Until.UTC().Format(time.RFC3339Nano)
		}
		filters = append(filters, map[string]any{"range": map[string]any{"timestamp": r}})
	}

	if len(filters) == 0 {
		return map[string]any{"match_all": map[string]any{}}
	}
	return map[string]any{"bool": map[string]any{"filter": filters}}
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

func (r bulkResponse) firstError() error {
	for _, item := range r.Items {
		for _, op := range item {
			if op.Error != nil {
				return fmt.Errorf("status %d: %s: %s", op.Status, op.Error.Type, op.Error.Reason)
			}
		}
	}
	return errors.New("bulk request reported errors")
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source audit.Entry `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}
