// Package index writes events to an external Elasticsearch-compatible
// index engine through its bulk HTTP API, and bootstraps the index
// template, lifecycle policy, and rollover write alias it depends on.
package index

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/sentrywatch/siemcore/internal/config"
	"github.com/sentrywatch/siemcore/internal/model"
)

const (
	templateName = "logs"
	ilmPolicy    = "logs"
	writeAlias   = "logs-write"
)

// Client is a thin bulk-write/bootstrap client over an Elasticsearch-
// compatible HTTP API. Index selection always goes through the
// write alias, never a concrete index name, so rollover stays
// transparent to writers.
type Client struct {
	http     *http.Client
	host     string
	username string
	password string
	prefix   string
}

// NewClient returns a Client against the first configured host.
func NewClient(cfg config.IndexConfig) *Client {
	host := "http://localhost:9200"
	if len(cfg.Hosts) > 0 {
		host = strings.TrimRight(cfg.Hosts[0], "/")
	}
	return &Client{
		http:     &http.Client{Timeout: 30 * time.Second},
		host:     host,
		username: cfg.Username,
		password: cfg.Password,
		prefix:   cfg.IndexPrefix,
	}
}

// Bootstrap installs the index template and ILM policy matching
// logs-*, then ensures the current month's write-alias-backed index
// exists, rolling over if the alias exists but that index is missing.
func (c *Client) Bootstrap(ctx context.Context) error {
	if err := c.ensureIndexTemplate(ctx); err != nil {
		return fmt.Errorf("index: ensure template: %w", err)
	}
	if err := c.ensureILMPolicy(ctx); err != nil {
		return fmt.Errorf("index: ensure ilm policy: %w", err)
	}
	if err := c.ensureWriteAlias(ctx); err != nil {
		return fmt.Errorf("index: ensure write alias: %w", err)
	}
	return nil
}

func (c *Client) ensureIndexTemplate(ctx context.Context) error {
	body := map[string]any{
		"index_patterns": []string{c.prefix + "-*"},
		"template": map[string]any{
			"settings": map[string]any{
				"index.lifecycle.name":          ilmPolicy,
				"index.lifecycle.rollover_alias": writeAlias,
			},
			"mappings": map[string]any{
				"properties": map[string]any{
					"timestamp":  map[string]string{"type": "date"},
					"source":     map[string]string{"type": "keyword"},
					"event_type": map[string]string{"type": "keyword"},
					"vendor":     map[string]string{"type": "keyword"},
					"severity":   map[string]string{"type": "keyword"},
					"data":       map[string]any{"type": "object", "dynamic": true},
					"enriched":   map[string]any{"type": "object", "dynamic": true},
				},
			},
		},
	}
	return c.put(ctx, "/_index_template/"+templateName, body)
}

func (c *Client) ensureILMPolicy(ctx context.Context) error {
	body := map[string]any{
		"policy": map[string]any{
			"phases": map[string]any{
				"hot": map[string]any{
					"min_age": "0ms",
					"actions": map[string]any{
						"rollover": map[string]any{"max_age": "30d", "max_size": "50gb"},
					},
				},
				"warm": map[string]any{
					"min_age": "30d",
					"actions": map[string]any{
						"shrink":     map[string]any{"number_of_shards": 1},
						"forcemerge": map[string]any{"max_num_segments": 1},
					},
				},
				"cold":   map[string]any{"min_age": "90d", "actions": map[string]any{}},
				"delete": map[string]any{"min_age": "365d", "actions": map[string]any{"delete": map[string]any{}}},
			},
		},
	}
	return c.put(ctx, "/_ilm/policy/"+ilmPolicy, body)
}

func (c *Client) ensureWriteAlias(ctx context.Context) error {
	currentIndex := c.prefix + "-" + time.Now().UTC().Format("2006.01")

	exists, err := c.aliasExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return c.put(ctx, "/"+currentIndex, map[string]any{
			"aliases": map[string]any{writeAlias: map[string]any{"is_write_index": true}},
		})
	}

	indexExists, err := c.indexExists(ctx, currentIndex)
	if err != nil {
		return err
	}
	if !indexExists {
		return c.post(ctx, "/"+writeAlias+"/_rollover", nil)
	}
	return nil
}

func (c *Client) aliasExists(ctx context.Context) (bool, error) {
	return c.head(ctx, "/_alias/"+writeAlias)
}

func (c *Client) indexExists(ctx context.Context, index string) (bool, error) {
	return c.head(ctx, "/"+index)
}

// BulkDoc is one event queued for a bulk-write call.
type BulkDoc struct {
	Event model.Event
}

// BulkWrite appends docs to the write alias in a single bulk API call,
// optionally through pipeline for server-side enrichment. All writes go
// through the alias, never a dated index name.
func (c *Client) BulkWrite(ctx context.Context, docs []model.Event, pipeline string) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, ev := range docs {
		action := map[string]any{"index": map[string]any{"_index": writeAlias}}
		if pipeline != "" {
			action["index"].(map[string]any)["pipeline"] = pipeline
		}
		if err := writeNDJSONLine(&buf, action); err != nil {
			return fmt.Errorf("index: encode bulk action: %w", err)
		}
		if err := writeNDJSONLine(&buf, ev); err != nil {
			return fmt.Errorf("index: encode bulk document: %w", err)
		}
	}

	resp, err := c.do(ctx, http.MethodPost, "/_bulk", "application/x-ndjson", buf.Bytes())
	if err != nil {
		return fmt.Errorf("index: bulk request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("index: bulk request returned status %d", resp.StatusCode)
	}

	var result struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("index: decode bulk response: %w", err)
	}
	if result.Errors {
		return fmt.Errorf("index: bulk request reported per-item errors")
	}
	return nil
}

func writeNDJSONLine(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	buf.WriteByte('\n')
	return nil
}

func (c *Client) put(ctx context.Context, path string, body any) error {
	return c.writeJSON(ctx, http.MethodPut, path, body)
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	return c.writeJSON(ctx, http.MethodPost, path, body)
}

func (c *Client) writeJSON(ctx context.Context, method, path string, body any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("index: encode request body: %w", err)
		}
		payload = b
	}
	resp, err := c.do(ctx, method, path, "application/json", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("index: %s %s returned status %d", method, path, resp.StatusCode)
	}
	return nil
}

func (c *Client) head(ctx context.Context, path string) (bool, error) {
	resp, err := c.do(ctx, http.MethodHead, path, "", nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.host+path, reader)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	return c.http.Do(req)
}
