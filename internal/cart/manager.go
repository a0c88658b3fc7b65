package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/snuzng/storefront/internal/catalog"
	"github.com/snuzng/storefront/internal/domain"
	"github.com/snuzng/storefront/internal/logger"
	"github.com/snuzng/storefront/internal/storage"
	"go.uber.org/zap"
)

// ItemsKey is versioned so the stored format can change by bumping the suffix.
const ItemsKey = "snuz.ng:cart_items_v1"

// AddInput is what a product card submits.
type AddInput struct {
	Name      string
	Image     string
	PriceText string
	Qty       int
}

type Manager struct {
	kv  storage.KV
	now func() time.Time
}

func NewManager(kv storage.KV) *Manager {
	return &Manager{kv: kv, now: time.Now}
}

// Read returns the visitor's items. Missing, unreadable or malformed data reads as an empty cart.
func (m *Manager) Read(ctx context.Context, visitor string) []domain.CartItem {
	raw, err := m.kv.Get(ctx, storage.VisitorKey(ItemsKey, visitor))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.FromContext(ctx).Warn("cart read failed", zap.Error(err))
		}
		return []domain.CartItem{}
	}
	return decodeItems(raw)
}

func (m *Manager) Write(ctx context.Context, visitor string, items []domain.CartItem) error {
	if items == nil {
		items = []domain.CartItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := m.kv.Set(ctx, storage.VisitorKey(ItemsKey, visitor), string(data), 0); err != nil {
		return fmt.Errorf("write cart failed: %w", err)
	}
	return nil
}

// AddOrMerge adds a product, or sums quantities into the existing line with the same id.
func (m *Manager) AddOrMerge(ctx context.Context, visitor string, in AddInput) ([]domain.CartItem, error) {
	qty := domain.ClampQty(in.Qty)
	name := in.Name
	if name == "" {
		name = "Product"
	}
	id := catalog.Slugify(name)
	if id == "" {
		id = catalog.Slugify(in.Image)
	}
	if id == "" {
		id = fmt.Sprintf("item-%d", m.now().UnixMilli())
	}

	items := m.Read(ctx, visitor)
	merged := false
	for i := range items {
		if items[i].ID == id {
			items[i].Qty = min(domain.QtyMax, items[i].Qty+qty)
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, domain.CartItem{
			ID:    id,
			Name:  name,
			Image: in.Image,
			Price: catalog.ParsePrice(in.PriceText),
			Qty:   qty,
		})
	}
	return items, m.Write(ctx, visitor, items)
}

// SetQuantity sets a line's quantity, clamped to [1, 99]. Unknown ids are ignored.
func (m *Manager) SetQuantity(ctx context.Context, visitor, id string, qty int) ([]domain.CartItem, error) {
	return m.update(ctx, visitor, id, func(int) int { return qty })
}

// Adjust applies a +/- control. It never removes a line; use Remove for that.
func (m *Manager) Adjust(ctx context.Context, visitor, id string, delta int) ([]domain.CartItem, error) {
	// Any step of QtyMax or more already saturates, so larger ones cannot overflow.
	delta = max(-domain.QtyMax, min(domain.QtyMax, delta))
	return m.update(ctx, visitor, id, func(cur int) int { return cur + delta })
}

func (m *Manager) update(ctx context.Context, visitor, id string, next func(int) int) ([]domain.CartItem, error) {
	items := m.Read(ctx, visitor)
	for i := range items {
		if items[i].ID == id {
			items[i].Qty = domain.ClampQty(next(items[i].Qty))
			return items, m.Write(ctx, visitor, items)
		}
	}
	return items, nil
}

func (m *Manager) Remove(ctx context.Context, visitor, id string) ([]domain.CartItem, error) {
	items := m.Read(ctx, visitor)
	kept := make([]domain.CartItem, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	return kept, m.Write(ctx, visitor, kept)
}

// Clear drops the stored cart; a missing entry reads as empty.
func (m *Manager) Clear(ctx context.Context, visitor string) error {
	if err := m.kv.Delete(ctx, storage.VisitorKey(ItemsKey, visitor)); err != nil {
		return fmt.Errorf("clear cart failed: %w", err)
	}
	return nil
}

// storedItem is permissive so hand-edited or older entries still load.
type storedItem struct {
	ID    any `json:"id"`
	Name  any `json:"name"`
	Image any `json:"image"`
	Price any `json:"price"`
	Qty   any `json:"qty"`
}

func decodeItems(raw string) []domain.CartItem {
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return []domain.CartItem{}
	}

	items := make([]domain.CartItem, 0, len(entries))
	for _, e := range entries {
		var s storedItem
		if err := json.Unmarshal(e, &s); err != nil {
			continue // not an object
		}
		it := domain.CartItem{
			ID:    asString(s.ID, ""),
			Name:  asString(s.Name, "Product"),
			Image: asString(s.Image, ""),
			Price: asNumber(s.Price),
			Qty:   int(asNumber(s.Qty)),
		}
		if it.Price <= 0 {
			it.Price = domain.DefaultUnitPrice
		}
		if it.Qty == 0 {
			it.Qty = 1
		}
		if it.ID == "" || it.Qty <= 0 {
			continue
		}
		items = append(items, it)
	}
	return items
}

func asString(v any, fallback string) string {
	switch x := v.(type) {
	case string:
		if x != "" {
			return x
		}
	case float64:
		if x != 0 {
			return fmt.Sprint(x)
		}
	case bool:
		if x {
			return "true"
		}
	}
	return fallback
}

func asNumber(v any) float64 {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case string:
		if _, err := fmt.Sscanf(x, "%g", &n); err != nil {
			return 0
		}
	case bool:
		if x {
			n = 1
		}
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}
