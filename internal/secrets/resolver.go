// Package secrets resolves connector credentials from Secret Manager.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

const DefaultVersion = "latest"

// Resolver fetches a versioned secret payload. The payload is opaque at this
// layer; callers decode it as raw text or JSON.
type Resolver interface {
	Access(ctx context.Context, projectID, secretID, version string) ([]byte, error)
}

// ResolutionError wraps any failure to fetch a secret; it maps to a server
// error at the HTTP boundary.
type ResolutionError struct {
	ProjectID string
	SecretID  string
	Err       error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve secret %s/%s: %v", e.ProjectID, e.SecretID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ManagerResolver is the Secret Manager implementation of Resolver.
type ManagerResolver struct {
	client *secretmanager.Client
}

func NewManagerResolver(ctx context.Context) (*ManagerResolver, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create secret manager client: %w", err)
	}
	return &ManagerResolver{client: client}, nil
}

func (r *ManagerResolver) Access(ctx context.Context, projectID, secretID, version string) ([]byte, error) {
	if version == "" {
		version = DefaultVersion
	}
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", projectID, secretID, version)
	resp, err := r.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return nil, &ResolutionError{ProjectID: projectID, SecretID: secretID, Err: err}
	}
	return resp.GetPayload().GetData(), nil
}

func (r *ManagerResolver) Close() error { return r.client.Close() }

// JSONPayload decodes a secret as a JSON object. Secrets holding service
// account keys or structured credentials must pass through here.
func JSONPayload(raw []byte) (map[string]any, bool) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false
	}
	return payload, true
}

// TokenPayload extracts a bare token secret: either the named field of a JSON
// object payload or the raw text itself.
func TokenPayload(raw []byte, field string) string {
	if payload, ok := JSONPayload(raw); ok {
		if value, ok := payload[field].(string); ok {
			return value
		}
		return ""
	}
	return string(raw)
}
