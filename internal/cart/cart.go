// Package cart stores per-user shopping carts in Redis.
//
// Each cart is a Redis hash keyed by "cart:<userID>" with one field per
// medicine. The field value is a JSON snapshot of the medicine at the time
// it was added, so the cart survives price edits until checkout re-reads
// the catalog.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// cartTTL keeps abandoned carts from accumulating forever. Every write
// refreshes the expiry.
const cartTTL = 30 * 24 * time.Hour

// Item is a single cart line: a snapshot of the medicine plus the quantity.
type Item struct {
	MedicineID uuid.UUID       `json:"medicine_id"`
	Name       string          `json:"name"`
	Category   string          `json:"category"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int32           `json:"quantity"`
	AddedAt    time.Time       `json:"added_at"`
}

// Subtotal returns price * quantity for this line.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Store reads and writes carts in Redis.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func cartKey(userID uuid.UUID) string {
	return fmt.Sprintf("cart:%s", userID)
}

// Get returns all items in the user's cart. An empty cart returns an empty
// slice, not an error.
func (s *Store) Get(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	fields, err := s.client.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading cart: %w", err)
	}

	items := make([]Item, 0, len(fields))
	for _, raw := range fields {
		var item Item
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("decoding cart item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Add puts an item in the cart. If the medicine is already present its
// quantity is increased and the snapshot refreshed.
func (s *Store) Add(ctx context.Context, userID uuid.UUID, item Item) (Item, error) {
	key := cartKey(userID)
	field := item.MedicineID.String()

	existing, err := s.client.HGet(ctx, key, field).Result()
	if err != nil && err != redis.Nil {
		return Item{}, fmt.Errorf("reading cart item: %w", err)
	}
	if err == nil {
		var prev Item
		if err := json.Unmarshal([]byte(existing), &prev); err == nil {
			item.Quantity += prev.Quantity
		}
	}

	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}

	if err := s.write(ctx, key, field, item); err != nil {
		return Item{}, err
	}
	return item, nil
}

// UpdateQuantity sets the quantity of an existing cart line. A quantity of
// zero removes the line. Returns false if the medicine is not in the cart.
func (s *Store) UpdateQuantity(ctx context.Context, userID uuid.UUID, medicineID uuid.UUID, quantity int32) (Item, bool, error) {
	key := cartKey(userID)
	field := medicineID.String()

	raw, err := s.client.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, fmt.Errorf("reading cart item: %w", err)
	}

	var item Item
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return Item{}, false, fmt.Errorf("decoding cart item: %w", err)
	}

	if quantity <= 0 {
		if err := s.client.HDel(ctx, key, field).Err(); err != nil {
			return Item{}, false, fmt.Errorf("removing cart item: %w", err)
		}
		item.Quantity = 0
		return item, true, nil
	}

	item.Quantity = quantity
	if err := s.write(ctx, key, field, item); err != nil {
		return Item{}, false, err
	}
	return item, true, nil
}

// Remove deletes a single line from the cart.
func (s *Store) Remove(ctx context.Context, userID uuid.UUID, medicineID uuid.UUID) error {
	if err := s.client.HDel(ctx, cartKey(userID), medicineID.String()).Err(); err != nil {
		return fmt.Errorf("removing cart item: %w", err)
	}
	return nil
}

// Clear empties the user's cart, typically after a successful checkout.
func (s *Store) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}
	return nil
}

// Total sums subtotals across all lines.
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (s *Store) write(ctx context.Context, key, field string, item Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding cart item: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, field, data)
	pipe.Expire(ctx, key, cartTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing cart item: %w", err)
	}
	return nil
}
