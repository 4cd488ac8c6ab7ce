package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/leajer/leajer/internal/shared"
)

// Repository is the remote persistence collaborator for request records.
// It is the source of truth: local state is only reconciled after a call
// succeeds.
type Repository interface {
	List(ctx context.Context, bearer string) ([]RetailerRequest, error)
	Get(ctx context.Context, bearer, id string) (RetailerRequest, error)
	Create(ctx context.Context, bearer string, body CreateBody) (RetailerRequest, error)
	UpdateStatus(ctx context.Context, bearer, id string, status Status) (RetailerRequest, error)
	Delete(ctx context.Context, bearer, id string) error
}

// CreateBody is the repository's create payload. AttendedBy carries the
// acting user's display name; the repository expands it into the stored
// actor snapshot.
type CreateBody struct {
	RetailerName string `json:"retailerName"`
	ProductName  string `json:"productName"`
	Description  string `json:"description"`
	UniqueID     string `json:"uniqueId"`
	AttendedBy   string `json:"attendedBy"`
}

// HTTPRepository implements Repository against the REST contract:
// GET/POST /request, GET/PUT/DELETE /request/{id}.
type HTTPRepository struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPRepository constructs an HTTPRepository for the given base URL.
func NewHTTPRepository(baseURL string, logger *slog.Logger) *HTTPRepository {
	return &HTTPRepository{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// List fetches all request records.
func (r *HTTPRepository) List(ctx context.Context, bearer string) ([]RetailerRequest, error) {
	var out []RetailerRequest
	if err := r.do(ctx, http.MethodGet, "/request", bearer, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches a single record by id.
func (r *HTTPRepository) Get(ctx context.Context, bearer, id string) (RetailerRequest, error) {
	var out RetailerRequest
	if err := r.do(ctx, http.MethodGet, "/request/"+url.PathEscape(id), bearer, nil, &out); err != nil {
		return RetailerRequest{}, err
	}
	return out, nil
}

// Create persists a new record. The repository assigns id, status
// "requested" and both timestamps.
func (r *HTTPRepository) Create(ctx context.Context, bearer string, body CreateBody) (RetailerRequest, error) {
	var out RetailerRequest
	if err := r.do(ctx, http.MethodPost, "/request", bearer, body, &out); err != nil {
		return RetailerRequest{}, err
	}
	return out, nil
}

// UpdateStatus persists a status change and returns the updated record.
func (r *HTTPRepository) UpdateStatus(ctx context.Context, bearer, id string, status Status) (RetailerRequest, error) {
	var out RetailerRequest
	body := map[string]Status{"status": status}
	if err := r.do(ctx, http.MethodPut, "/request/"+url.PathEscape(id), bearer, body, &out); err != nil {
		return RetailerRequest{}, err
	}
	return out, nil
}

// Delete removes a record.
func (r *HTTPRepository) Delete(ctx context.Context, bearer, id string) error {
	return r.do(ctx, http.MethodDelete, "/request/"+url.PathEscape(id), bearer, nil, nil)
}

func (r *HTTPRepository) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode %s: %v", shared.ErrPersistence, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: build %s: %v", shared.ErrPersistence, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("request repository unreachable", slog.String("path", path), slog.Any("error", err))
		}
		return fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusNotFound:
		return shared.ErrNotFound
	default:
		return fmt.Errorf("%w: %s %s returned %d", shared.ErrPersistence, method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode %s: %v", shared.ErrPersistence, path, err)
		}
	}
	return nil
}
