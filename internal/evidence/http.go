package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/claimflow/internal/retry"
)

// HTTPStore talks to the evidence service over its REST API.
type HTTPStore struct {
	baseURL string
	client  *http.Client
	retry   retry.Config
}

// NewHTTPStore builds a store client with a bounded per-request timeout.
func NewHTTPStore(baseURL string) *HTTPStore {
	return &HTTPStore{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		retry:   retry.DefaultConfig(),
	}
}

type extractionResponse struct {
	Status   string            `json:"status"` // processing, done, failed
	Entities map[string]string `json:"entities"`
}

// GetExtractedEntities implements Store. HTTP transport failures are retried
// with backoff; a "processing" response maps to ErrNotReady so the caller's
// polling job can reschedule.
func (s *HTTPStore) GetExtractedEntities(ctx context.Context, ref string) (Entities, error) {
	var out Entities
	err := retry.Do(ctx, s.retry, "evidence.get_extracted_entities", func() error {
		ents, err := s.fetch(ctx, ref)
		if err != nil {
			return err
		}
		out = ents
		return nil
	})
	return out, err
}

func (s *HTTPStore) fetch(ctx context.Context, ref string) (Entities, error) {
	u := fmt.Sprintf("%s/api/v1/evidence/%s/entities", s.baseURL, url.PathEscape(ref))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("evidence service request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusUnprocessableEntity:
		return nil, ErrInvalid
	case http.StatusAccepted:
		return nil, ErrNotReady
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("evidence service status %d: %s", resp.StatusCode, body)
	}

	var er extractionResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}
	switch er.Status {
	case "processing":
		return nil, ErrNotReady
	case "failed":
		return nil, ErrInvalid
	}
	return Entities(er.Entities), nil
}
