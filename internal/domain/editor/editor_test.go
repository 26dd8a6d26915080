package editor

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/catalog"
)

// --- Mock implementations ---

// mockClient serves a single record and records every Update call.
type mockClient struct {
	record    catalog.ProductRecord
	getErr    error
	updateErr error

	updates     int
	lastRecord  catalog.ProductRecord
	lastImage   *catalog.Image
	gets        int
	lastInclude bool

	// When updateGate is set, Update signals updateHeld and then blocks
	// until the gate is closed.
	updateGate chan struct{}
	updateHeld chan struct{}
}

func (m *mockClient) List(_ context.Context, _ bool) ([]catalog.ProductRecord, error) {
	return []catalog.ProductRecord{m.record}, nil
}

func (m *mockClient) Get(_ context.Context, id string, includeImage bool) (*catalog.ProductRecord, error) {
	m.gets++
	m.lastInclude = includeImage
	if m.getErr != nil {
		return nil, m.getErr
	}
	if id != m.record.ID {
		return nil, catalog.ErrNotFound
	}
	r := m.record
	return &r, nil
}

func (m *mockClient) Replace(_ context.Context, record catalog.ProductRecord) (*catalog.ProductRecord, error) {
	return &record, nil
}

func (m *mockClient) Update(_ context.Context, record catalog.ProductRecord, image *catalog.Image) (*catalog.ProductRecord, error) {
	if m.updateGate != nil {
		m.updateHeld <- struct{}{}
		<-m.updateGate
	}
	m.updates++
	m.lastRecord = record
	m.lastImage = image
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &record, nil
}

// --- Helpers ---

func testRecord() catalog.ProductRecord {
	return catalog.ProductRecord{
		ID:          "p1",
		Name:        "Widget",
		Brand:       "Acme",
		Description: "A widget",
		Price:       decimal.RequireFromString("19.99"),
		Category:    catalog.CategoryElectronics,
		ReleaseDate: "2024-06-01",
		Available:   true,
		Stock:       12,
	}
}

func loadedEditor(t *testing.T) (*Editor, *mockClient) {
	t.Helper()
	client := &mockClient{record: testRecord()}
	ed := New(client)
	require.NoError(t, ed.Load(context.Background(), "p1"))
	return ed, client
}

// --- Tests ---

func TestLoad_FetchesWithImage(t *testing.T) {
	ed, client := loadedEditor(t)

	assert.True(t, client.lastInclude)
	assert.False(t, ed.IsDirty())

	draft, dirty, err := ed.Draft()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, "Widget", draft.Name)
}

func TestLoad_NotFound(t *testing.T) {
	client := &mockClient{record: testRecord()}
	ed := New(client)

	err := ed.Load(context.Background(), "missing")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestEditField_BeforeLoad(t *testing.T) {
	ed := New(&mockClient{record: testRecord()})
	require.ErrorIs(t, ed.EditField("name", "x"), ErrNotLoaded)
}

func TestIsDirty_AfterSingleFieldEdit(t *testing.T) {
	fields := map[string]string{
		"name":        "Gadget",
		"brand":       "Globex",
		"description": "A gadget",
		"price":       "24.50",
		"category":    "Toys",
		"releaseDate": "2025-01-15",
		"available":   "false",
		"stock":       "7",
	}
	for field, value := range fields {
		t.Run(field, func(t *testing.T) {
			ed, _ := loadedEditor(t)
			require.False(t, ed.IsDirty())

			require.NoError(t, ed.EditField(field, value))
			assert.True(t, ed.IsDirty())
		})
	}
}

func TestIsDirty_RevertedEditIsClean(t *testing.T) {
	ed, _ := loadedEditor(t)

	require.NoError(t, ed.EditField("name", "Gadget"))
	require.True(t, ed.IsDirty())

	require.NoError(t, ed.EditField("name", "Widget"))
	assert.False(t, ed.IsDirty())
}

func TestIsDirty_AfterStagedImage(t *testing.T) {
	ed, _ := loadedEditor(t)

	require.NoError(t, ed.StageImage([]byte{0x89, 0x50}, "image/png", "widget.png"))
	assert.True(t, ed.IsDirty())
}

func TestEditField_UnknownField(t *testing.T) {
	ed, _ := loadedEditor(t)

	err := ed.EditField("colour", "red")
	var ufErr *UnknownFieldError
	require.ErrorAs(t, err, &ufErr)
	assert.Equal(t, "colour", ufErr.Field)
	assert.False(t, ed.IsDirty())
}

func TestEditField_InvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"negative price": {"price", "-5"},
		"garbage price":  {"price", "cheap"},
		"bad category":   {"category", "Spaceships"},
		"bad date":       {"releaseDate", "June 1st"},
		"bad bool":       {"available", "maybe"},
		"negative stock": {"stock", "-1"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ed, _ := loadedEditor(t)

			err := ed.EditField(tc[0], tc[1])
			var fvErr *FieldValueError
			require.ErrorAs(t, err, &fvErr)
			assert.False(t, ed.IsDirty())
		})
	}
}

func TestSubmit_CleanDraftRejectedWithoutNetworkCall(t *testing.T) {
	ed, client := loadedEditor(t)

	_, err := ed.Submit(context.Background())
	require.ErrorIs(t, err, ErrNoChange)
	assert.Zero(t, client.updates)
}

func TestSubmit_Success(t *testing.T) {
	ed, client := loadedEditor(t)

	require.NoError(t, ed.EditField("name", "Gadget"))
	require.NoError(t, ed.EditField("price", "24.50"))
	require.NoError(t, ed.StageImage([]byte{0x89}, "image/png", "gadget.png"))

	updated, err := ed.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, client.updates)
	assert.Equal(t, "Gadget", client.lastRecord.Name)
	assert.True(t, client.lastRecord.Price.Equal(decimal.RequireFromString("24.50")))
	require.NotNil(t, client.lastImage)
	assert.Equal(t, "image/png", client.lastImage.ContentType)

	// Baseline advanced to the submitted draft; image cleared.
	assert.Equal(t, "Gadget", updated.Name)
	assert.False(t, ed.IsDirty())
}

func TestSubmit_WithoutImageOmitsPart(t *testing.T) {
	ed, client := loadedEditor(t)
	require.NoError(t, ed.EditField("name", "Gadget"))

	_, err := ed.Submit(context.Background())
	require.NoError(t, err)
	assert.Nil(t, client.lastImage)
}

func TestSubmit_FailureKeepsDraftAndImage(t *testing.T) {
	ed, client := loadedEditor(t)
	client.updateErr = &catalog.NetworkError{Op: "update product", Err: errors.New("connection reset")}

	require.NoError(t, ed.EditField("name", "Gadget"))
	require.NoError(t, ed.StageImage([]byte{0x89}, "image/png", "gadget.png"))

	_, err := ed.Submit(context.Background())
	require.Error(t, err)

	var nErr *catalog.NetworkError
	assert.ErrorAs(t, err, &nErr)

	// Still dirty: the draft and staged image survived the failure.
	assert.True(t, ed.IsDirty())
	draft, _, err := ed.Draft()
	require.NoError(t, err)
	assert.Equal(t, "Gadget", draft.Name)

	// A retry reaches the network again.
	client.updateErr = nil
	_, err = ed.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, client.updates)
	require.NotNil(t, client.lastImage)
}

func TestSubmit_RejectsConcurrentSubmit(t *testing.T) {
	ed, client := loadedEditor(t)
	require.NoError(t, ed.EditField("name", "Gadget"))
	client.updateGate = make(chan struct{})
	client.updateHeld = make(chan struct{})

	first := make(chan error, 1)
	go func() {
		_, err := ed.Submit(context.Background())
		first <- err
	}()

	// The first submit is now parked inside its network write.
	<-client.updateHeld

	_, err := ed.Submit(context.Background())
	require.ErrorIs(t, err, ErrSubmitInProgress)

	close(client.updateGate)
	require.NoError(t, <-first)
	assert.Equal(t, 1, client.updates)

	// The guard is released; a repeat attempt now fails only because the
	// accepted submit left the draft clean.
	_, err = ed.Submit(context.Background())
	require.ErrorIs(t, err, ErrNoChange)
}

func TestReload_DiscardsDraft(t *testing.T) {
	ed, _ := loadedEditor(t)
	require.NoError(t, ed.EditField("name", "Gadget"))
	require.NoError(t, ed.StageImage([]byte{0x89}, "image/png", "gadget.png"))

	require.NoError(t, ed.Load(context.Background(), "p1"))
	assert.False(t, ed.IsDirty())
}

func TestRegistry(t *testing.T) {
	client := &mockClient{record: testRecord()}
	reg := NewRegistry(func() *Editor { return New(client) })

	ed := reg.Get("p1")
	assert.Same(t, ed, reg.Get("p1"))

	found, ok := reg.Lookup("p1")
	require.True(t, ok)
	assert.Same(t, ed, found)

	reg.Release("p1")
	_, ok = reg.Lookup("p1")
	assert.False(t, ok)

	// A fresh Get after release starts over.
	assert.NotSame(t, ed, reg.Get("p1"))
}
