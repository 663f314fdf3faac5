package model

// Item is the domain model for a todo entry.
// The json tags are the storage wire format; keep them stable.
type Item struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Toggled returns a copy of the item with Completed flipped.
func (it Item) Toggled() Item {
	it.Completed = !it.Completed
	return it
}

// Index returns the position of the item with the given id, or -1.
func Index(items []Item, id int64) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// Clone copies a list so callers can't alias store state.
func Clone(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
