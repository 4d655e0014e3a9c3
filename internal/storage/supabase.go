package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SupabaseStore is a wrapper around the Supabase Storage REST API.
// It uses the service role key, so it must only run server-side.
type SupabaseStore struct {
	baseURL    string
	apiKey     string
	bucket     string
	httpClient *http.Client
}

// NewSupabaseStore creates a store bound to one bucket.
func NewSupabaseStore(baseURL, apiKey, bucket string) *SupabaseStore {
	return &SupabaseStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		bucket:  bucket,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (s *SupabaseStore) objectURL(p string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, strings.TrimLeft(p, "/"))
}

// doRequest executes a request against the storage API with auth headers attached.
func (s *SupabaseStore) doRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, []byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp, respBody, nil
}

func (s *SupabaseStore) Put(ctx context.Context, p string, data []byte, contentType string) error {
	clean, err := CleanPath(p)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	resp, body, err := s.doRequest(ctx, http.MethodPost, s.objectURL(clean), data, map[string]string{
		"Content-Type":  contentType,
		"Cache-Control": "3600",
		"x-upsert":      "false",
	})
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusConflict ||
		(resp.StatusCode == http.StatusBadRequest && bytes.Contains(body, []byte("Duplicate"))) {
		return ErrObjectExists
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("supabase storage error (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

func (s *SupabaseStore) Get(ctx context.Context, p string) (Object, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return Object{}, err
	}
	resp, body, err := s.doRequest(ctx, http.MethodGet, s.objectURL(clean), nil, nil)
	if err != nil {
		return Object{}, err
	}
	// Storage отвечает 400 с телом "not_found" для отсутствующих объектов
	if resp.StatusCode == http.StatusNotFound ||
		(resp.StatusCode == http.StatusBadRequest && bytes.Contains(body, []byte("not_found"))) {
		return Object{}, ErrObjectNotFound
	}
	if resp.StatusCode >= 400 {
		return Object{}, fmt.Errorf("supabase storage error (status %d): %s", resp.StatusCode, string(body))
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" || strings.HasPrefix(ct, "application/octet-stream") {
		ct = ContentTypeForPath(clean)
	}
	return Object{Data: body, ContentType: ct}, nil
}

func (s *SupabaseStore) PublicURL(p string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, strings.TrimLeft(p, "/"))
}
