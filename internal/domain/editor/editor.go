// Package editor implements the product editing workflow: an immutable
// snapshot of the fetched record, a mutable draft, and a dirty predicate
// gating submission.
package editor

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/catalog"
)

// Sentinel errors for editor operations.
var (
	// ErrNoChange is returned when submit is attempted with a clean draft.
	// No network call is made.
	ErrNoChange = errors.New("no changes detected")
	// ErrNotLoaded is returned when the editor is used before Load.
	ErrNotLoaded = errors.New("no product loaded")
	// ErrSubmitInProgress is returned when a submit is already in flight.
	ErrSubmitInProgress = errors.New("submit already in progress")
)

// UnknownFieldError is returned by EditField for a field name that is not
// part of the editable record.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Field)
}

// FieldValueError is returned by EditField when a value cannot be parsed
// into the field's type.
type FieldValueError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldValueError) Error() string {
	return fmt.Sprintf("invalid value %q for field %s: %v", e.Value, e.Field, e.Err)
}

func (e *FieldValueError) Unwrap() error { return e.Err }

// Editor drives editing of a single product record.
//
// After Load the editor holds two copies of the record: original, the
// comparison baseline that is never mutated, and draft, which edits apply
// to. A staged replacement image rides alongside the draft until submit.
type Editor struct {
	client catalog.Client

	mu           sync.Mutex
	original     *catalog.ProductRecord
	draft        *catalog.ProductRecord
	pendingImage *catalog.Image
	submitting   bool
}

// New creates an editor over the given catalog client. Load must be called
// before any other operation.
func New(client catalog.Client) *Editor {
	return &Editor{client: client}
}

// Load fetches the record (with image) and establishes original and draft
// as identical copies. Any previously staged image is discarded.
func (e *Editor) Load(ctx context.Context, id string) error {
	record, err := e.client.Get(ctx, id, true)
	if err != nil {
		return errors.Wrap(err, "fetch product")
	}

	e.mu.Lock()
	original := *record
	draft := *record
	e.original = &original
	e.draft = &draft
	e.pendingImage = nil
	e.mu.Unlock()
	return nil
}

// EditField applies a single field edit to the draft. The original snapshot
// is never touched. Values arrive as strings (form input) and are parsed
// into the field's type.
func (e *Editor) EditField(field, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil {
		return ErrNotLoaded
	}

	switch field {
	case "name":
		e.draft.Name = value
	case "brand":
		e.draft.Brand = value
	case "description":
		e.draft.Description = value
	case "price":
		price, err := decimal.NewFromString(value)
		if err != nil || price.IsNegative() {
			return &FieldValueError{Field: field, Value: value, Err: errors.New("price must be a non-negative number")}
		}
		e.draft.Price = price
	case "category":
		c := catalog.Category(value)
		if !c.Valid() {
			return &FieldValueError{Field: field, Value: value, Err: errors.New("unknown category")}
		}
		e.draft.Category = c
	case "releaseDate":
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return &FieldValueError{Field: field, Value: value, Err: err}
		}
		e.draft.ReleaseDate = value
	case "available":
		avail, err := strconv.ParseBool(value)
		if err != nil {
			return &FieldValueError{Field: field, Value: value, Err: err}
		}
		e.draft.Available = avail
	case "stock":
		stock, err := strconv.Atoi(value)
		if err != nil || stock < 0 {
			return &FieldValueError{Field: field, Value: value, Err: errors.New("stock must be a non-negative integer")}
		}
		e.draft.Stock = stock
	default:
		return &UnknownFieldError{Field: field}
	}
	return nil
}

// StageImage stages a replacement image to be sent with the next submit.
func (e *Editor) StageImage(data []byte, contentType, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil {
		return ErrNotLoaded
	}
	e.pendingImage = &catalog.Image{
		Name:        name,
		ContentType: contentType,
		Data:        data,
	}
	return nil
}

// IsDirty reports whether the draft differs from the original snapshot in
// any field, or a replacement image is staged. It is a pure comparison of
// the two snapshots.
func (e *Editor) IsDirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirtyLocked()
}

func (e *Editor) dirtyLocked() bool {
	if e.original == nil || e.draft == nil {
		return false
	}
	if e.pendingImage != nil {
		return true
	}
	o, d := e.original, e.draft
	return d.Name != o.Name ||
		d.Brand != o.Brand ||
		d.Description != o.Description ||
		!d.Price.Equal(o.Price) ||
		d.Category != o.Category ||
		d.ReleaseDate != o.ReleaseDate ||
		d.Available != o.Available ||
		d.Stock != o.Stock
}

// Draft returns a copy of the current draft and whether it is dirty.
func (e *Editor) Draft() (catalog.ProductRecord, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil {
		return catalog.ProductRecord{}, false, ErrNotLoaded
	}
	return *e.draft, e.dirtyLocked(), nil
}

// Submit sends the draft (plus the staged image, when present) as a
// multipart update. A clean draft is rejected with ErrNoChange before any
// network activity. On success the original baseline becomes the submitted
// draft and the staged image is cleared; on failure draft and staged image
// are left untouched.
func (e *Editor) Submit(ctx context.Context) (*catalog.ProductRecord, error) {
	e.mu.Lock()
	if e.draft == nil {
		e.mu.Unlock()
		return nil, ErrNotLoaded
	}
	if e.submitting {
		e.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	if !e.dirtyLocked() {
		e.mu.Unlock()
		return nil, ErrNoChange
	}
	e.submitting = true
	draft := *e.draft
	var image *catalog.Image
	if e.pendingImage != nil {
		img := *e.pendingImage
		image = &img
	}
	e.mu.Unlock()

	updated, err := e.client.Update(ctx, draft, image)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.submitting = false
	if err != nil {
		return nil, errors.Wrap(err, "submit product")
	}

	// The submitted draft becomes the new comparison baseline.
	fresh := *updated
	e.original = &fresh
	next := *updated
	e.draft = &next
	e.pendingImage = nil
	return updated, nil
}
