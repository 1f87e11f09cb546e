package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/fieldline-crm/fieldline/internal/config"
	"github.com/fieldline-crm/fieldline/internal/logger"
	"github.com/fieldline-crm/fieldline/models"
)

type httpRemoteAPI struct {
	client *resty.Client

	mu    sync.RWMutex
	token string

	logger *logger.Logger
}

// NewHTTPRemoteAPI constructs an HTTP/REST implementation of [RemoteAPI].
// It normalises and validates the base URL from cfg.BaseURL and configures
// the underlying resty client with the resolved base URL and per-request
// timeout. A timed-out request surfaces as [ErrRemoteUnavailable], so the
// reconciler treats it like any other network failure.
//
// Returns an error if cfg.BaseURL is empty or cannot be parsed as a valid
// URL.
func NewHTTPRemoteAPI(cfg config.ClientRemote, logger *logger.Logger) (RemoteAPI, error) {
	baseURL, err := normalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid remote base url: %w", err)
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.RequestTimeout)

	api := &httpRemoteAPI{client: client, logger: logger}
	api.SetToken(cfg.AuthToken)

	return api, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// SetToken implements [RemoteAPI]. It stores token (whitespace-trimmed) for
// use in the Authorization header of all subsequent requests.
func (h *httpRemoteAPI) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

// Token implements [RemoteAPI].
func (h *httpRemoteAPI) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// Ping implements [RemoteAPI]. It GETs the backend health endpoint. Any
// error, transport-level or non-2xx, means the backend is not usable for
// reconciliation right now.
func (h *httpRemoteAPI) Ping(ctx context.Context) error {
	resp, err := h.client.R().SetContext(ctx).Get("/api/health")
	if err != nil {
		return fmt.Errorf("%w: ping: %w", ErrRemoteUnavailable, err)
	}

	return mapHTTPError(resp)
}

// GetAll implements [RemoteAPI]. It GETs /api/{collection} with filter as
// query parameters and decodes the [models.RemoteList] envelope.
func (h *httpRemoteAPI) GetAll(ctx context.Context, collection string, filter map[string]string) ([]models.RemoteRecord, error) {
	req := h.authedRequest(ctx)
	if len(filter) > 0 {
		req.SetQueryParams(filter)
	}

	resp, err := req.Get("/api/" + collection)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrRemoteUnavailable, collection, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	var list models.RemoteList
	if err = json.Unmarshal(resp.Body(), &list); err != nil {
		return nil, fmt.Errorf("decode %s list response: %w", collection, err)
	}

	return list.Records, nil
}

// Create implements [RemoteAPI]. It POSTs the record data to
// POST /api/{collection} and returns the created record carrying the
// backend-assigned server key. The idempotency key lets the backend collapse
// a replayed create after a lost response.
func (h *httpRemoteAPI) Create(ctx context.Context, collection string, data json.RawMessage, idempotencyKey string) (models.RemoteRecord, error) {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Idempotency-Key", idempotencyKey).
		SetBody(data).
		Post("/api/" + collection)
	if err != nil {
		return models.RemoteRecord{}, fmt.Errorf("%w: create %s: %w", ErrRemoteUnavailable, collection, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.RemoteRecord{}, err
	}

	// decode the body directly so a backend that omits the Content-Type
	// header still round-trips
	var created models.RemoteRecord
	if err = json.Unmarshal(resp.Body(), &created); err != nil {
		return models.RemoteRecord{}, fmt.Errorf("decode %s create response: %w", collection, err)
	}

	if created.ServerKey == "" {
		return models.RemoteRecord{}, fmt.Errorf("create %s: response carries no server key", collection)
	}

	return created, nil
}

// Update implements [RemoteAPI]. It PUTs the record data to
// PUT /api/{collection}/{serverKey}.
func (h *httpRemoteAPI) Update(ctx context.Context, collection, serverKey string, data json.RawMessage, idempotencyKey string) (models.RemoteRecord, error) {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Idempotency-Key", idempotencyKey).
		SetBody(data).
		Put("/api/" + collection + "/" + url.PathEscape(serverKey))
	if err != nil {
		return models.RemoteRecord{}, fmt.Errorf("%w: update %s/%s: %w", ErrRemoteUnavailable, collection, serverKey, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.RemoteRecord{}, err
	}

	var updated models.RemoteRecord
	if err = json.Unmarshal(resp.Body(), &updated); err != nil {
		return models.RemoteRecord{}, fmt.Errorf("decode %s update response: %w", collection, err)
	}

	return updated, nil
}

// Delete implements [RemoteAPI]. It sends DELETE /api/{collection}/{serverKey}.
func (h *httpRemoteAPI) Delete(ctx context.Context, collection, serverKey string, idempotencyKey string) error {
	resp, err := h.authedRequest(ctx).
		SetHeader("X-Idempotency-Key", idempotencyKey).
		Delete("/api/" + collection + "/" + url.PathEscape(serverKey))
	if err != nil {
		return fmt.Errorf("%w: delete %s/%s: %w", ErrRemoteUnavailable, collection, serverKey, err)
	}

	return mapHTTPError(resp)
}

func (h *httpRemoteAPI) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}
