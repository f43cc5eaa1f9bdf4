// Package scenewire synchronizes a live scene document to websocket
// subscribers. One sync driver owns all document reads, the diff baseline,
// and the decision of what to broadcast; connection read pumps only enqueue
// commands. Subscribers receive a full sync on join and minimal changesets
// on every tick after that.
package scenewire

import (
	"github.com/oklog/ulid/v2"
)

// Category names a partition of synchronized state. Categories are diffed
// independently of each other.
type Category string

const (
	CategoryCameras Category = "cameras"
	CategoryLamps   Category = "lamps"
	CategoryObjects Category = "objects"
	CategoryWorlds  Category = "worlds"
	CategoryScenes  Category = "scenes"
	CategoryContext Category = "context"
)

// DataCategories are the keyed collection categories, in broadcast order.
// Scene records and context always follow the data message.
var DataCategories = []Category{
	CategoryCameras,
	CategoryLamps,
	CategoryObjects,
	CategoryWorlds,
}

// CategorySet is the enabled-for-sync configuration, consumed read-only on
// every tick. A category missing from the set is skipped entirely, including
// its snapshot bookkeeping, so re-enabling it forces a full resend.
type CategorySet map[Category]bool

func NewCategorySet(categories ...Category) CategorySet {
	set := CategorySet{}
	for _, category := range categories {
		set[category] = true
	}
	return set
}

// DefaultCategories matches the historic default preference set.
func DefaultCategories() CategorySet {
	return NewCategorySet(CategoryObjects, CategoryScenes)
}

// comparable
type Id [16]byte

func NewId() Id {
	return Id(ulid.Make())
}

func (self Id) String() string {
	return ulid.ULID(self).String()
}
