package models

import (
	"errors"
	"fmt"
)

var (
	ErrConfig   = errors.New("configuration error")
	ErrProvider = errors.New("provider error")
	ErrStorage  = errors.New("storage error")
	ErrNotFound = errors.New("not found")

	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported file format", ErrInvalidInput)
)

// ConfigError reports an unusable or missing setting.
type ConfigError struct {
	Key string
	Msg string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("config: %s", e.Msg)
	}
	return fmt.Sprintf("config %s: %s", e.Key, e.Msg)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// ProviderError wraps a failed embedding or chat call.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

func (e *ProviderError) Unwrap() error { return e.Err }

// StorageError wraps a vector store I/O failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func (e *StorageError) Unwrap() error { return e.Err }

// NotFoundError reports a reference to an unknown resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IndexMismatchError is raised when the active embedding model differs from
// the one the stored vectors were produced with.
type IndexMismatchError struct {
	Stored IndexInfo
	Active IndexInfo
}

func (e *IndexMismatchError) Error() string {
	return fmt.Sprintf("index was built with %s but the active embedding model is %s; re-ingest the books or switch back", e.Stored, e.Active)
}

func (e *IndexMismatchError) Is(target error) bool { return target == ErrConfig }

// Error kinds carried by the REST API so a remote client can rebuild the
// sentinel an error matched.
const (
	KindInvalidInput = "invalid_input"
	KindNotFound     = "not_found"
	KindConfig       = "config"
	KindProvider     = "provider"
	KindStorage      = "storage"
)

var kindSentinels = map[string]error{
	KindInvalidInput: ErrInvalidInput,
	KindNotFound:     ErrNotFound,
	KindConfig:       ErrConfig,
	KindProvider:     ErrProvider,
	KindStorage:      ErrStorage,
}

// Kind returns the kind of the first sentinel err matches, or "".
func Kind(err error) string {
	for _, kind := range []string{KindInvalidInput, KindNotFound, KindConfig, KindProvider, KindStorage} {
		if errors.Is(err, kindSentinels[kind]) {
			return kind
		}
	}
	return ""
}

// SentinelForKind is the inverse of Kind; nil for an unknown kind.
func SentinelForKind(kind string) error {
	return kindSentinels[kind]
}
