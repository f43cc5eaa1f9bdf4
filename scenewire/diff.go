package scenewire

import (
	"reflect"
	"slices"
)

// diffEngine compares current document state against the snapshot baseline
// and produces the minimal entries to broadcast. It is the only writer of
// the snapshot store and always runs in the driver context.
//
// Keyed categories use the host-supplied dirty signal for content changes
// (deep value comparison over large collections is too expensive to run
// every tick) and the key-set difference against the baseline for presence
// changes. Singleton categories (scene records, context) use structural
// equality.
type diffEngine struct {
	snapshots *snapshotStore
}

func newDiffEngine() *diffEngine {
	return &diffEngine{
		snapshots: newSnapshotStore(),
	}
}

// dataCategory computes the entries to send for one keyed category.
// `full` includes every current entry; otherwise only dirty ones, plus a
// null entry for every key present in the baseline but gone now. `rebase`
// records the current key set as the new baseline and resets the host's
// dirty marks. The bool result is false when there is nothing to send.
//
// Full syncs for joining connections run with rebase=false so a join cannot
// perturb the incremental baseline of already-connected subscribers.
func (self *diffEngine) dataCategory(doc *Document, category Category, full bool, rebase bool) (map[string]any, bool) {
	view := doc.collection(category)
	if view == nil {
		return nil, false
	}
	if !full && !view.updatedFlag() {
		return nil, false
	}

	currentKeys := view.keys()
	entries := map[string]any{}

	if !full {
		if prevKeys, ok := self.snapshots.keys(category); ok {
			for _, prevKey := range prevKeys {
				if !slices.Contains(currentKeys, prevKey) {
					entries[prevKey] = nil
				}
			}
		}
	}

	for _, key := range currentKeys {
		if !full && !view.isDirty(key) {
			continue
		}
		value, ok := view.value(key)
		if !ok {
			continue
		}
		wire, ok := serialize(value)
		if !ok {
			// unrepresentable entries are omitted, never an error
			continue
		}
		entries[key] = wire
	}

	if rebase {
		baseline := map[string]any{}
		for _, key := range currentKeys {
			if wire, ok := entries[key]; ok {
				baseline[key] = wire
			} else if prev, ok := self.snapshots.getKey(category, key); ok {
				baseline[key] = prev
			} else {
				baseline[key] = nil
			}
		}
		self.snapshots.putAll(category, baseline)
		view.clearDirty()
	}

	if !full && len(entries) == 0 {
		return nil, false
	}
	return entries, true
}

// removedScenes returns the scene names present in the baseline but gone
// from the document, clearing their baseline entries so a re-added scene is
// treated as new.
func (self *diffEngine) removedScenes(doc *Document) []string {
	prevNames, ok := self.snapshots.keys(CategoryScenes)
	if !ok {
		return nil
	}
	currentNames := doc.Scenes.Keys()
	removed := []string{}
	for _, name := range prevNames {
		if !slices.Contains(currentNames, name) {
			removed = append(removed, name)
			self.snapshots.deleteKey(CategoryScenes, name)
		}
	}
	return removed
}

// sceneRecord computes the record to send for one scene. Incremental calls
// compare structurally against the baseline and report nothing when equal.
func (self *diffEngine) sceneRecord(doc *Document, name string, full bool, rebase bool) (map[string]any, bool) {
	scene, ok := doc.Scenes.Get(name)
	if !ok {
		return nil, false
	}
	record := serializeScene(scene)
	if !full {
		if prev, ok := self.snapshots.getKey(CategoryScenes, name); ok && reflect.DeepEqual(prev, record) {
			return nil, false
		}
	}
	if rebase {
		self.snapshots.put(CategoryScenes, name, record)
	}
	return record, true
}

// contextRecord computes the ambient context record (file path, selection).
func (self *diffEngine) contextRecord(doc *Document, full bool, rebase bool) (map[string]any, bool) {
	selected := []any{}
	for _, name := range doc.SelectedObjects {
		selected = append(selected, name)
	}
	record := map[string]any{
		"filePath":        doc.FilePath,
		"selectedObjects": selected,
	}
	if !full {
		if prev, ok := self.snapshots.getKey(CategoryContext, ""); ok && reflect.DeepEqual(prev, record) {
			return nil, false
		}
	}
	if rebase {
		self.snapshots.put(CategoryContext, "", record)
	}
	return record, true
}
