package cart

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Controller maintains the editable working copy of the cart shown to the
// user. It syncs one-way from the Store on every store change; its own
// quantity edits stay in the working copy until checkout consumes them,
// while remove and clear delegate straight to the store.
type Controller struct {
	store *Store

	mu    sync.Mutex
	items []LineItem
}

// NewController creates a controller synced to the given store and
// subscribes it to store changes.
func NewController(store *Store) *Controller {
	c := &Controller{store: store}
	c.sync()
	store.Subscribe(c.sync)
	return c
}

// sync replaces the working copy with the store's current contents. The
// store is authoritative: quantity edits made in the view survive only until
// the next store mutation.
func (c *Controller) sync() {
	fresh := c.store.Items()
	c.mu.Lock()
	c.items = fresh
	c.mu.Unlock()
}

// IncreaseQuantity bumps the item's quantity by one. The stock snapshot is a
// hard ceiling: at quantity == stock the call returns ErrStockExceeded and
// the quantity is unchanged.
func (c *Controller) IncreaseQuantity(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			if c.items[i].Quantity >= c.items[i].Stock {
				return ErrStockExceeded
			}
			c.items[i].Quantity++
			return nil
		}
	}
	return ErrItemNotFound
}

// DecreaseQuantity lowers the item's quantity by one, flooring at 1.
// Dropping an item entirely requires an explicit RemoveItem.
func (c *Controller) DecreaseQuantity(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			if c.items[i].Quantity > 1 {
				c.items[i].Quantity--
			}
			return nil
		}
	}
	return ErrItemNotFound
}

// RemoveItem removes the line item from the store; the working copy follows
// through the store subscription.
func (c *Controller) RemoveItem(id string) {
	c.store.Remove(id)
}

// Clear empties the store; the working copy follows through the
// subscription.
func (c *Controller) Clear() {
	c.store.Clear()
}

// Items returns a copy of the working copy in iteration order. Checkout
// processes items in exactly this order.
func (c *Controller) Items() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Empty reports whether the working copy has no items. An empty cart is a
// distinct rendered state, not a degenerate list.
func (c *Controller) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) == 0
}

// Total returns the exact sum of price times quantity over the working
// copy. It is derived on every call, never stored.
func (c *Controller) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Subtotal())
	}
	return total
}
