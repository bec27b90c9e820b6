package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/model"
)

const restTimeout = 10 * time.Second

// RESTBackend speaks the store's row-oriented REST dialect: /rest/v1/tasks
// with eq/order query filters, an api key header and a per-user bearer token.
type RESTBackend struct {
	baseURL string
	apiKey  string
	tokens  TokenProvider
	client  *http.Client
}

func NewRESTBackend(baseURL, apiKey string, tokens TokenProvider) *RESTBackend {
	return &RESTBackend{
		baseURL: baseURL,
		apiKey:  apiKey,
		tokens:  tokens,
		client:  &http.Client{Timeout: restTimeout},
	}
}

func (b *RESTBackend) ListTasks(ctx context.Context) ([]model.Task, error) {
	q := url.Values{}
	q.Set("user_id", "eq."+b.tokens.UserID())
	q.Set("order", "created_at.desc")
	q.Set("select", "*")

	body, err := b.do(ctx, http.MethodGet, "/rest/v1/tasks?"+q.Encode(), nil, false)
	if err != nil {
		return nil, err
	}

	var records []model.Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: malformed task listing: %v", ErrUnavailable, err)
	}
	tasks := make([]model.Task, 0, len(records))
	for _, r := range records {
		tasks = append(tasks, r.Task())
	}
	return tasks, nil
}

func (b *RESTBackend) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	rec := model.ToRecord(t, b.tokens.UserID())
	payload, err := json.Marshal(rec)
	if err != nil {
		return model.Task{}, err
	}

	body, err := b.do(ctx, http.MethodPost, "/rest/v1/tasks", payload, true)
	if err != nil {
		return model.Task{}, err
	}

	// With return=representation the store echoes the inserted rows.
	var created []model.Record
	if err := json.Unmarshal(body, &created); err != nil || len(created) == 0 {
		return t, nil
	}
	return created[0].Task(), nil
}

func (b *RESTBackend) UpdateTask(ctx context.Context, id string, p model.Patch) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}

	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("user_id", "eq."+b.tokens.UserID())

	body, err := b.do(ctx, http.MethodPatch, "/rest/v1/tasks?"+q.Encode(), payload, true)
	if err != nil {
		return err
	}

	var updated []model.Record
	if err := json.Unmarshal(body, &updated); err == nil && len(updated) == 0 {
		return fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	return nil
}

func (b *RESTBackend) DeleteTask(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("user_id", "eq."+b.tokens.UserID())

	body, err := b.do(ctx, http.MethodDelete, "/rest/v1/tasks?"+q.Encode(), nil, true)
	if err != nil {
		return err
	}

	var deleted []model.Record
	if err := json.Unmarshal(body, &deleted); err == nil && len(deleted) == 0 {
		return fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	return nil
}

// do performs one request, mapping transport and status failures onto the
// error taxonomy. wantRows asks the store to echo affected rows so callers
// can distinguish not-found from success.
func (b *RESTBackend) do(ctx context.Context, method, path string, payload []byte, wantRows bool) ([]byte, error) {
	token, err := b.tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", b.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if wantRows {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrNotAuthenticated, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
