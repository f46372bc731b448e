package repository

import (
	"context"
	"fmt"
	"strings"

	"asic-advisor/internal/domain"
)

// Source reads an entire dataset. Every call goes back to the backend; nothing
// is cached between calls.
type Source interface {
	Records(ctx context.Context) ([]domain.Record, error)
}

// Backend names a dataset storage backend.
type Backend string

const (
	BackendFile     Backend = "file"
	BackendDynamoDB Backend = "dynamodb"
	BackendPostgres Backend = "postgres"
)

// ParseBackend validates a backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendFile, BackendDynamoDB, BackendPostgres:
		return b, nil
	case "":
		return BackendFile, nil
	default:
		return "", fmt.Errorf("repository: unknown backend %q", s)
	}
}
