// Package signer mints short-lived signed URL credentials scoped to exactly
// one storage object and one operation. Credentials are never persisted or
// cached; callers mint a fresh one per use.
package signer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/apetrov/assetgate/internal/common"
)

// Operation is the storage action a credential grants.
type Operation string

const (
	OperationUpload   Operation = "upload"
	OperationDownload Operation = "download"
)

// Credential is a time-limited capability bound to a single
// (objectKey, operation) pair. It becomes unusable strictly after ExpiresAt.
type Credential struct {
	ObjectKey string
	Operation Operation
	URL       string
	ExpiresAt time.Time
}

// Expired reports whether the credential is past its validity window.
func (c *Credential) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Signer mints signed URL credentials. Implementations must bind the
// resulting capability to exactly the given key and operation; the binding
// itself is enforced by the storage backend's signature check.
type Signer interface {
	Sign(ctx context.Context, objectKey string, op Operation, ttl time.Duration) (*Credential, error)
}

// ValidateKey rejects empty keys and keys containing path-traversal
// segments before they reach the storage signer.
func ValidateKey(objectKey string) error {
	if objectKey == "" {
		return fmt.Errorf("%w: empty key", common.ErrorInvalidKey)
	}
	if strings.HasPrefix(objectKey, "/") {
		return fmt.Errorf("%w: absolute key %q", common.ErrorInvalidKey, objectKey)
	}
	for _, seg := range strings.Split(objectKey, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: traversal segment in %q", common.ErrorInvalidKey, objectKey)
		}
	}
	return nil
}

// ValidateTTL enforces the positive-and-bounded TTL policy.
func ValidateTTL(ttl, ceiling time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: non-positive ttl %v", common.ErrorTTLOutOfRange, ttl)
	}
	if ceiling > 0 && ttl > ceiling {
		return fmt.Errorf("%w: ttl %v exceeds ceiling %v", common.ErrorTTLOutOfRange, ttl, ceiling)
	}
	return nil
}
