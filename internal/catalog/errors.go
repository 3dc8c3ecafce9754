package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedCatalog matches every *MalformedError.
	ErrMalformedCatalog = errors.New("catalog: malformed catalog")
	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("catalog: not found")
)

// MalformedError reports the first invariant violation found while building a catalog.
type MalformedError struct {
	// Location is the path of the offending element, e.g. "categories[1].apis[0]".
	Location string
	// Kind names what was invalid: "category key", "api name", "param name", "param value".
	Kind   string
	Name   string
	Reason string
}

func (e *MalformedError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("catalog: %s: %s %s", e.Location, e.Kind, e.Reason)
	}
	return fmt.Sprintf("catalog: %s: %s %q %s", e.Location, e.Kind, e.Name, e.Reason)
}

// Is makes errors.Is(err, ErrMalformedCatalog) hold.
func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformedCatalog
}

// Missing identifies which half of a lookup failed.
type Missing string

const (
	MissingCategory Missing = "category"
	MissingAPI      Missing = "api"
)

// NotFoundError is returned by lookups that do not match exactly.
type NotFoundError struct {
	CategoryKey string
	APIName     string
	Missing     Missing
}

func (e *NotFoundError) Error() string {
	if e.Missing == MissingCategory {
		return fmt.Sprintf("catalog: unknown category %q", e.CategoryKey)
	}
	return fmt.Sprintf("catalog: category %q has no api %q", e.CategoryKey, e.APIName)
}

// Is makes errors.Is(err, ErrNotFound) hold.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
