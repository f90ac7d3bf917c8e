// Package artifact persists trained risk models as JSON bundles.
package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/okian/scholar/internal/domain/risk"
)

// FormatVersion is bumped when the bundle layout changes.
const FormatVersion = 1

// Errors returned by stores.
var (
	ErrNotFound      = errors.New("artifact: no model stored")
	ErrIncompatible  = errors.New("artifact: incompatible model")
	ErrSerialization = errors.New("artifact: serialization failed")
	ErrUnavailable   = errors.New("artifact: store unavailable")
)

// Store saves and restores the current model.
type Store interface {
	Save(ctx context.Context, m *risk.Model) error
	// Load returns ErrNotFound when nothing was saved yet.
	Load(ctx context.Context) (*risk.Model, error)
}

// Archive is implemented by stores that keep superseded models addressable
// by ID.
type Archive interface {
	// LoadByID returns ErrNotFound for unknown or expired IDs.
	LoadByID(ctx context.Context, id string) (*risk.Model, error)
}

// bundle is the persisted form of a model.
type bundle struct {
	FormatVersion int         `json:"format_version"`
	Model         *risk.Model `json:"model"`
}

func encode(m *risk.Model) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil model", ErrSerialization)
	}
	data, err := json.MarshalIndent(bundle{FormatVersion: FormatVersion, Model: m}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return data, nil
}

// decode parses a bundle and rejects models this build cannot serve.
func decode(data []byte) (*risk.Model, error) {
	var b bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if b.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: format version %d", ErrIncompatible, b.FormatVersion)
	}
	if b.Model == nil {
		return nil, fmt.Errorf("%w: bundle has no model", ErrSerialization)
	}
	if b.Model.SchemaVersion != risk.SchemaVersion {
		return nil, fmt.Errorf("%w: schema %s, want %s", ErrIncompatible, b.Model.SchemaVersion, risk.SchemaVersion)
	}
	if err := b.Model.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatible, err)
	}
	return b.Model, nil
}

// NopStore keeps nothing.
type NopStore struct{}

func (NopStore) Save(context.Context, *risk.Model) error { return nil }

func (NopStore) Load(context.Context) (*risk.Model, error) { return nil, ErrNotFound }
