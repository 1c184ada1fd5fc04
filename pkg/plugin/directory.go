package plugin

import (
	"sort"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// Directory is the session-scoped arena of live instances, keyed by id.
// Parent and child links are ids into the directory.
type Directory struct {
	entries cmap.ConcurrentMap[string, *Instance]
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{entries: cmap.New[*Instance]()}
}

// Insert adds inst under its id. An existing entry is never replaced.
func (d *Directory) Insert(inst *Instance) error {
	if !d.entries.SetIfAbsent(inst.ID(), inst) {
		return &DuplicateIDError{ID: inst.ID()}
	}
	return nil
}

// Get returns the instance with the given id.
func (d *Directory) Get(id string) (*Instance, bool) {
	if id == "" {
		return nil, false
	}
	return d.entries.Get(id)
}

// Delete erases id. It only removes the entry if it still belongs to inst.
func (d *Directory) Delete(inst *Instance) {
	d.entries.RemoveCb(inst.ID(), func(key string, current *Instance, exists bool) bool {
		return exists && current == inst
	})
}

// Len returns the number of live instances.
func (d *Directory) Len() int {
	return d.entries.Count()
}

// IDs returns the ids of all live instances, sorted.
func (d *Directory) IDs() []string {
	ids := d.entries.Keys()
	sort.Strings(ids)
	return ids
}

// Clear erases every entry.
func (d *Directory) Clear() {
	d.entries.Clear()
}
