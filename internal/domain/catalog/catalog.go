// Package catalog defines the product record model and the contract of the
// remote catalog service that owns it.
package catalog

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist remotely.
var ErrNotFound = errors.New("product not found")

// Category is one of the fixed product category labels.
type Category string

const (
	CategoryLaptop      Category = "Laptop"
	CategoryHeadphone   Category = "Headphone"
	CategoryMobile      Category = "Mobile"
	CategoryElectronics Category = "Electronics"
	CategoryToys        Category = "Toys"
	CategoryFashion     Category = "Fashion"
)

// Categories lists every valid category label.
var Categories = []Category{
	CategoryLaptop,
	CategoryHeadphone,
	CategoryMobile,
	CategoryElectronics,
	CategoryToys,
	CategoryFashion,
}

// Valid reports whether c is one of the known category labels.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Image holds a product image as raw bytes plus its transport metadata.
// On the wire the data travels base64-encoded next to its content type.
type Image struct {
	Name        string `json:"imageName,omitempty"`
	ContentType string `json:"imageType,omitempty"`
	Data        []byte `json:"imageData,omitempty"`
}

// Present reports whether the image carries any data. Absent images are
// rendered with a placeholder by the consuming UI.
func (i Image) Present() bool {
	return len(i.Data) > 0
}

// ProductRecord is the catalog's authoritative description of one product.
// The Stock field is authoritative on the remote side; carts hold a snapshot
// of it taken at add-time.
type ProductRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    Category        `json:"category"`
	ReleaseDate string          `json:"releaseDate"`
	Available   bool            `json:"available"`
	Stock       int             `json:"stock"`
	Image       Image           `json:"image,omitzero"`
}

// Client is the consumed contract of the remote catalog service.
type Client interface {
	// List fetches every product. includeImage controls whether image
	// payloads are transferred.
	List(ctx context.Context, includeImage bool) ([]ProductRecord, error)
	// Get fetches a single product by id.
	Get(ctx context.Context, id string, includeImage bool) (*ProductRecord, error)
	// Replace performs a full-record PUT with a JSON body. Checkout uses it
	// to write back decremented stock.
	Replace(ctx context.Context, record ProductRecord) (*ProductRecord, error)
	// Update performs a multipart PUT: the record as a JSON part plus an
	// optional replacement image as a binary part.
	Update(ctx context.Context, record ProductRecord, image *Image) (*ProductRecord, error)
}

// NetworkError indicates a request to the remote catalog could not complete.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError indicates the remote catalog rejected a payload, for
// example a stock write that would go negative.
type ValidationError struct {
	Op      string
	Status  int
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog %s rejected (%d): %s", e.Op, e.Status, e.Message)
}
