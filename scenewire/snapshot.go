package scenewire

import (
	"slices"

	"golang.org/x/exp/maps"
)

// snapshotStore holds, per category, the last successfully broadcast entries,
// used as the diff baseline. Keyed data categories record their key set
// (entry values are only consulted for singleton categories); scene records
// are keyed by scene name; context lives under a single empty key.
//
// The store has no locking of its own. It is read and written only from the
// driver context.
type snapshotStore struct {
	categories map[Category]map[string]any
}

func newSnapshotStore() *snapshotStore {
	return &snapshotStore{
		categories: map[Category]map[string]any{},
	}
}

// get returns the stored entries for a category, nil if none were recorded.
func (self *snapshotStore) get(category Category) map[string]any {
	return self.categories[category]
}

func (self *snapshotStore) getKey(category Category, key string) (any, bool) {
	entries, ok := self.categories[category]
	if !ok {
		return nil, false
	}
	value, ok := entries[key]
	return value, ok
}

func (self *snapshotStore) put(category Category, key string, value any) {
	entries, ok := self.categories[category]
	if !ok {
		entries = map[string]any{}
		self.categories[category] = entries
	}
	entries[key] = value
}

// putAll replaces the whole recorded entry set for a category.
func (self *snapshotStore) putAll(category Category, entries map[string]any) {
	self.categories[category] = entries
}

func (self *snapshotStore) deleteKey(category Category, key string) {
	if entries, ok := self.categories[category]; ok {
		delete(entries, key)
	}
}

func (self *snapshotStore) deleteCategory(category Category) {
	delete(self.categories, category)
}

// keys returns the recorded key set in stable sorted order, and whether the
// category was recorded at all.
func (self *snapshotStore) keys(category Category) ([]string, bool) {
	entries, ok := self.categories[category]
	if !ok {
		return nil, false
	}
	keys := maps.Keys(entries)
	slices.Sort(keys)
	return keys, true
}
