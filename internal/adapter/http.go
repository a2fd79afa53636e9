// Package adapter talks to the remote entity API over HTTP.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/conflict"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/utils"
	"github.com/MKhiriev/go-sync-engine/models"
)

const entitiesPath = "/api/entities/{type}/{id}"

var _ conflict.RemoteStore = (*HTTPRemoteStore)(nil)

// HTTPRemoteStore is a [conflict.RemoteStore] backed by the REST API:
//
//	GET    /api/entities/{type}/{id}?context=<json>
//	PUT    /api/entities/{type}/{id}
//	DELETE /api/entities/{type}/{id}
type HTTPRemoteStore struct {
	client *utils.HTTPClient
	logger *logger.Logger
}

// NewHTTPRemoteStore validates cfg.HTTPAddress and builds the client. An
// address without a scheme is treated as plain http.
func NewHTTPRemoteStore(cfg config.Remote, log *logger.Logger) (*HTTPRemoteStore, error) {
	baseURL, err := normalizeBaseURL(cfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid remote http address: %w", err)
	}

	return &HTTPRemoteStore{
		client: utils.NewHTTPClient(baseURL, cfg.RequestTimeout),
		logger: log,
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyAddress
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

// Fetch returns the remote record or nil when the entity does not exist.
// A non-empty lookup payload is sent as the "context" query parameter.
func (h *HTTPRemoteStore) Fetch(ctx context.Context, entityType models.EntityType, entityID string, lookup json.RawMessage) (*models.CloudRecord, error) {
	const op = "HTTPRemoteStore.Fetch"

	var record models.CloudRecord
	req := h.lookup(h.entity(ctx, entityType, entityID), lookup).SetResult(&record)

	resp, err := req.Get(entitiesPath)
	if err != nil {
		return nil, mapTransportError(ctx, op, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if err = mapHTTPError(op, resp); err != nil {
		return nil, err
	}

	if record.ID == "" {
		record.ID = entityID
	}
	return &record, nil
}

// Write creates or replaces the remote entity with data.
func (h *HTTPRemoteStore) Write(ctx context.Context, entityType models.EntityType, entityID string, data json.RawMessage) error {
	const op = "HTTPRemoteStore.Write"

	resp, err := h.entity(ctx, entityType, entityID).
		SetHeader("Content-Type", "application/json").
		SetBody([]byte(data)).
		Put(entitiesPath)
	if err != nil {
		return mapTransportError(ctx, op, err)
	}
	if err = mapHTTPError(op, resp); err != nil {
		h.logger.Debug().Err(err).
			Str("func", "*HTTPRemoteStore.Write").
			Str("entity_type", string(entityType)).
			Str("entity_id", entityID).
			Msg("remote write rejected")
		return err
	}
	return nil
}

// Delete removes the remote entity. A missing entity is reported as a
// not_found error. lookup travels the same way as for Fetch.
func (h *HTTPRemoteStore) Delete(ctx context.Context, entityType models.EntityType, entityID string, lookup json.RawMessage) error {
	const op = "HTTPRemoteStore.Delete"

	resp, err := h.lookup(h.entity(ctx, entityType, entityID), lookup).Delete(entitiesPath)
	if err != nil {
		return mapTransportError(ctx, op, err)
	}
	return mapHTTPError(op, resp)
}

func (h *HTTPRemoteStore) lookup(req *resty.Request, lookup json.RawMessage) *resty.Request {
	if len(lookup) > 0 && string(lookup) != "null" {
		req.SetQueryParam("context", string(lookup))
	}
	return req
}

func (h *HTTPRemoteStore) entity(ctx context.Context, entityType models.EntityType, entityID string) *resty.Request {
	return h.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"type": string(entityType),
			"id":   entityID,
		})
}
