package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/taskdeck/internal/core/versioned"
	"github.com/colonyops/taskdeck/internal/data/db"
	"github.com/oklog/ulid/v2"
)

// ResourceStore keeps versioned blobs in SQLite. Every accepted write gets a
// fresh ULID token; writes are conditional on the caller's last seen token.
type ResourceStore struct {
	db   *db.DB
	kind string
	now  func() time.Time
}

var _ versioned.Store[[]byte] = (*ResourceStore)(nil)

// NewResourceStore creates a store for resources of one kind, e.g. "checklist".
func NewResourceStore(db *db.DB, kind string) *ResourceStore {
	return &ResourceStore{db: db, kind: kind, now: time.Now}
}

// Fetch returns the stored blob and token. A missing resource has an empty token.
func (s *ResourceStore) Fetch(ctx context.Context, id string) (versioned.Resource[[]byte], error) {
	row, err := s.db.Queries().GetResource(ctx, id)
	if IsNotFoundError(err) {
		return versioned.Resource[[]byte]{ID: id}, nil
	}
	if err != nil {
		return versioned.Resource[[]byte]{}, transportError("fetch", id, err)
	}

	return versioned.Resource[[]byte]{ID: id, Value: row.Value, Token: row.Token}, nil
}

// Write stores value if the current token equals expectedToken. An empty
// expectedToken creates the resource and fails if it already exists.
func (s *ResourceStore) Write(ctx context.Context, id string, value []byte, expectedToken string) (string, error) {
	token := ulid.Make().String()
	now := s.now().UnixNano()

	var (
		affected int64
		err      error
	)
	if expectedToken == "" {
		affected, err = s.db.Queries().InsertResource(ctx, db.InsertResourceParams{
			ID:        id,
			Kind:      s.kind,
			Token:     token,
			Value:     value,
			CreatedAt: now,
		})
	} else {
		affected, err = s.db.Queries().UpdateResource(ctx, db.UpdateResourceParams{
			ID:            id,
			ExpectedToken: expectedToken,
			Token:         token,
			Value:         value,
			UpdatedAt:     now,
		})
	}
	if err != nil {
		return "", transportError("write", id, err)
	}

	if affected == 0 {
		current, err := s.Fetch(ctx, id)
		if err != nil {
			return "", err
		}
		return "", &versioned.ConflictError{
			ResourceID:    id,
			ExpectedToken: expectedToken,
			CurrentToken:  current.Token,
		}
	}

	return token, nil
}

// List returns the ids of all resources of this kind.
func (s *ResourceStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.db.Queries().ListResourceIDs(ctx, s.kind)
	if err != nil {
		return nil, fmt.Errorf("list %s resources: %w", s.kind, err)
	}
	return ids, nil
}

// Delete removes a resource regardless of its token.
func (s *ResourceStore) Delete(ctx context.Context, id string) error {
	if err := s.db.Queries().DeleteResource(ctx, id); err != nil {
		return fmt.Errorf("delete resource %s: %w", id, err)
	}
	return nil
}
