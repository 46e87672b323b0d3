// Package dgraph is the Graph store, talking to Dgraph's HTTP API.
package dgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/isaac-evs/side-b/internal/graph"
	"github.com/isaac-evs/side-b/internal/model"
	"github.com/isaac-evs/side-b/internal/stores"
)

// Store implements stores.Graph.
type Store struct {
	baseURL string
	timeout time.Duration

	mu     sync.RWMutex
	client *resty.Client
}

func New(baseURL string, timeout time.Duration) *Store {
	if baseURL != "" && !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Store{baseURL: strings.TrimSuffix(baseURL, "/"), timeout: timeout}
}

type apiError struct {
	Message string `json:"message"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []apiError      `json:"errors"`
}

func (r *response) err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return fmt.Errorf("dgraph: %s", strings.Join(msgs, "; "))
}

// Connect builds the client and checks /health.
func (s *Store) Connect(ctx context.Context) error {
	if s.baseURL == "" {
		return fmt.Errorf("dgraph URL is empty")
	}
	c := resty.New().
		SetBaseURL(s.baseURL).
		SetTimeout(s.timeout)
	if err := ping(ctx, c); err != nil {
		return err
	}
	s.mu.Lock()
	s.client = c
	s.mu.Unlock()
	return nil
}

// Initialize applies graph.Schema.
func (s *Store) Initialize(ctx context.Context) error {
	c, err := s.conn()
	if err != nil {
		return err
	}
	resp, err := c.R().
		SetContext(ctx).
		SetBody(graph.Schema).
		Post("/alter")
	if err != nil {
		return fmt.Errorf("dgraph alter: %w", err)
	}
	_, err = decode(resp, "alter")
	return err
}

func (s *Store) HealthPing(ctx context.Context) error {
	c, err := s.conn()
	if err != nil {
		return err
	}
	return ping(ctx, c)
}

func (s *Store) Disconnect(context.Context) error {
	s.mu.Lock()
	s.client = nil
	s.mu.Unlock()
	return nil
}

func (s *Store) conn() (*resty.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, model.ErrNotConnected
	}
	return s.client, nil
}

func ping(ctx context.Context, c *resty.Client) error {
	resp, err := c.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("dgraph health: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("dgraph health status %d", resp.StatusCode())
	}
	var out []struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return fmt.Errorf("dgraph health: %w", err)
	}
	for _, n := range out {
		if n.Status != "healthy" {
			return fmt.Errorf("dgraph node status %q", n.Status)
		}
	}
	return nil
}

// decode reads the standard {data, errors} envelope; GraphQL-style errors win over
// the status code since Dgraph reports most failures with 200.
func decode(resp *resty.Response, op string) (*response, error) {
	var out response
	if err := json.Unmarshal(resp.Body(), &out); err != nil && resp.StatusCode() == http.StatusOK {
		return nil, fmt.Errorf("dgraph %s: decode: %w", op, err)
	}
	if err := out.err(); err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("dgraph %s status %d", op, resp.StatusCode())
	}
	return &out, nil
}

type upsertBody struct {
	Query     string          `json:"query"`
	Mutations []mutationBlock `json:"mutations"`
}

type mutationBlock struct {
	Cond string `json:"cond,omitempty"`
	Set  []any  `json:"set"`
}

// Upsert commits mu as a single upsert block.
func (s *Store) Upsert(ctx context.Context, mu graph.Mutation) error {
	if mu.Empty() {
		return nil
	}
	c, err := s.conn()
	if err != nil {
		return err
	}
	resp, err := c.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("commitNow", "true").
		SetBody(upsertBody{Query: mu.Query, Mutations: []mutationBlock{{Cond: mu.Cond, Set: mu.Set}}}).
		Post("/mutate")
	if err != nil {
		return fmt.Errorf("dgraph mutate: %w", err)
	}
	_, err = decode(resp, "mutate")
	return err
}

// Query runs a DQL query. vars keys are given without the leading $.
func (s *Store) Query(ctx context.Context, query string, vars map[string]string, out any) error {
	c, err := s.conn()
	if err != nil {
		return err
	}
	body := map[string]any{"query": query}
	if len(vars) > 0 {
		v := make(map[string]string, len(vars))
		for k, val := range vars {
			v["$"+strings.TrimPrefix(k, "$")] = val
		}
		body["variables"] = v
	}
	resp, err := c.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/query")
	if err != nil {
		return fmt.Errorf("dgraph query: %w", err)
	}
	res, err := decode(resp, "query")
	if err != nil {
		return err
	}
	if out == nil || len(res.Data) == 0 {
		return nil
	}
	return json.Unmarshal(res.Data, out)
}

var _ stores.Graph = (*Store)(nil)
