// Package service holds the typed request builders for each catalog
// resource. A service turns one intent into one transport call and unwraps
// the response envelope. It does not retry, cache or validate, and it returns
// transport errors unchanged.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/mesh-intelligence/catalog/internal/transport"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

// Client is the transport a service sends through.
type Client interface {
	Do(ctx context.Context, req transport.Request) ([]byte, error)
}

// resource implements the five REST verbs for one collection path. E is the
// entity type and D the draft sent on create and update.
type resource[E, D any] struct {
	client Client
	path   string // e.g. "departments"
	single string // envelope key for one entity, e.g. "department"
}

func (r resource[E, D]) itemPath(id types.ID) string {
	return r.path + "/" + url.PathEscape(id.String())
}

func (r resource[E, D]) list(ctx context.Context, query url.Values) ([]E, error) {
	body, err := r.client.Do(ctx, transport.Request{Method: http.MethodGet, Path: r.path, Query: query})
	if err != nil {
		return nil, err
	}
	var out []E
	if err := decode(body, r.path, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	if out == nil {
		out = []E{}
	}
	return out, nil
}

func (r resource[E, D]) get(ctx context.Context, id types.ID) (E, error) {
	return r.one(ctx, transport.Request{Method: http.MethodGet, Path: r.itemPath(id)})
}

func (r resource[E, D]) create(ctx context.Context, draft D) (E, error) {
	return r.one(ctx, transport.Request{Method: http.MethodPost, Path: r.path, Body: draft})
}

func (r resource[E, D]) update(ctx context.Context, id types.ID, draft D) (E, error) {
	return r.one(ctx, transport.Request{Method: http.MethodPut, Path: r.itemPath(id), Body: draft})
}

func (r resource[E, D]) delete(ctx context.Context, id types.ID) error {
	_, err := r.client.Do(ctx, transport.Request{Method: http.MethodDelete, Path: r.itemPath(id)})
	return err
}

func (r resource[E, D]) one(ctx context.Context, req transport.Request) (E, error) {
	var out E
	body, err := r.client.Do(ctx, req)
	if err != nil {
		return out, err
	}
	if err := decode(body, r.single, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", r.single, err)
	}
	return out, nil
}

// decode unmarshals the payload of body into v. The payload is the "data"
// member when present, else the member named key, else the body itself.
func decode(body []byte, key string, v any) error {
	return json.Unmarshal(unwrap(body, key), v)
}

func unwrap(body []byte, key string) []byte {
	if !gjson.ValidBytes(body) {
		return body
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return body
	}
	if data := root.Get("data"); data.Exists() {
		return []byte(data.Raw)
	}
	if key != "" {
		if inner := root.Get(key); inner.Exists() && (inner.IsObject() || inner.IsArray()) {
			return []byte(inner.Raw)
		}
	}
	return body
}
