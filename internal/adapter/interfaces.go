// Package adapter provides transport-layer abstractions for communicating
// with the CRM backend API.
//
// The primary abstraction is [RemoteAPI], which decouples the reconciler and
// façade from the underlying protocol. The package ships an HTTP/REST
// implementation ([NewHTTPRemoteAPI]) built on resty.
//
// Error values defined in errors.go are mapped from transport failures and
// HTTP status codes by mapHTTPError so that callers can use [errors.Is] for
// transport-agnostic error handling ([ErrRemoteUnavailable] for network-level
// failures and timeouts, [ErrRemoteRejected] for application-level
// responses).
package adapter

import (
	"context"
	"encoding/json"

	"github.com/fieldline-crm/fieldline/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/remote_api_mock.go -package=mock

// RemoteAPI defines transport-agnostic communication with the CRM backend.
// Implementations are responsible for serialisation, authentication header
// management, and mapping transport-level errors to the sentinel values
// defined in this package.
//
// Every mutating call carries an idempotency key so that a retry after a
// lost response does not double-apply the mutation on the backend.
type RemoteAPI interface {
	// SetToken stores the bearer token attached to all subsequent requests.
	SetToken(token string)

	// Token returns the bearer token currently held by the adapter, or an
	// empty string if none has been set.
	Token() string

	// Ping checks whether the backend is reachable. Used by the connectivity
	// monitor as its reachability probe.
	Ping(ctx context.Context) error

	// GetAll fetches every record of the collection matching filter
	// (nil fetches all). Used by Refresh to reconcile the local cache with
	// authoritative remote state.
	GetAll(ctx context.Context, collection string, filter map[string]string) ([]models.RemoteRecord, error)

	// Create submits a new record and returns it with the backend-assigned
	// server key.
	Create(ctx context.Context, collection string, data json.RawMessage, idempotencyKey string) (models.RemoteRecord, error)

	// Update overwrites the record identified by serverKey with data.
	Update(ctx context.Context, collection, serverKey string, data json.RawMessage, idempotencyKey string) (models.RemoteRecord, error)

	// Delete removes the record identified by serverKey.
	Delete(ctx context.Context, collection, serverKey string, idempotencyKey string) error
}
