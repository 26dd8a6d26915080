// Package cart holds the session shopping cart: the store that owns the line
// items and the controller that exposes an editable working copy of them.
package cart

import (
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/catalog"
)

// Sentinel errors for cart mutations.
var (
	// ErrStockExceeded is returned when a quantity increase would pass the
	// stock snapshot ceiling. The quantity is left unchanged.
	ErrStockExceeded = errors.New("cannot add more than available stock")
	// ErrItemNotFound is returned when an operation targets an id that is
	// not in the cart.
	ErrItemNotFound = errors.New("item not in cart")
)

// LineItem is one product's entry in the cart. Stock is a snapshot of the
// remote availability taken when the product was added; it is the hard
// ceiling for Quantity.
type LineItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Brand    string          `json:"brand"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Stock    int             `json:"stock"`
	ImageRef string          `json:"imageRef,omitempty"`
}

// Subtotal returns price multiplied by quantity for this line.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Store is the single source of truth for the session cart. It exposes a
// narrow mutation API plus change subscriptions; no caller mutates its
// contents through a shared reference.
//
// The store has no persistence: its contents live exactly as long as the
// process session.
type Store struct {
	mu          sync.Mutex
	items       []LineItem // insertion order
	subscribers []func()
}

// NewStore creates an empty cart store.
func NewStore() *Store {
	return &Store{}
}

// Subscribe registers fn to be called after every store mutation. Callbacks
// run synchronously on the mutating goroutine, outside the store lock.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Add puts the product in the cart. If a line item with the same id already
// exists its quantity is incremented by one, bounded by the stock snapshot
// taken when the item was first added. A new line item starts at quantity 1
// and snapshots the product's current stock and price.
func (s *Store) Add(p catalog.ProductRecord) error {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == p.ID {
			if s.items[i].Quantity >= s.items[i].Stock {
				s.mu.Unlock()
				return ErrStockExceeded
			}
			s.items[i].Quantity++
			s.mu.Unlock()
			s.notify()
			return nil
		}
	}
	if p.Stock < 1 {
		s.mu.Unlock()
		return ErrStockExceeded
	}
	s.items = append(s.items, LineItem{
		ID:       p.ID,
		Name:     p.Name,
		Brand:    p.Brand,
		Price:    p.Price,
		Quantity: 1,
		Stock:    p.Stock,
		ImageRef: p.Image.Name,
	})
	s.mu.Unlock()
	s.notify()
	return nil
}

// Remove deletes the line item with the given id. Removing an absent id is
// a no-op and does not notify subscribers.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.mu.Unlock()
			s.notify()
			return
		}
	}
	s.mu.Unlock()
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
	s.notify()
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of line items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) notify() {
	s.mu.Lock()
	subs := make([]func(), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}
