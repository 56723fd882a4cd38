package cart

// Cart is a per-user staging area mapping product-type id to desired
// quantity. Keys are stringified ids because the map is persisted as
// JSONB. Absence of a key means zero.
type Cart struct {
	UserID int64          `db:"user_id" json:"-"`
	Items  map[string]int `db:"items" json:"items"`
}

// Count returns the desired quantity for a product type, zero if absent.
func (c *Cart) Count(productTypeID string) int {
	return c.Items[productTypeID]
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
