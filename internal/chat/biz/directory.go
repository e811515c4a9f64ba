package biz

import (
	"converse/internal/chat/types"
	"converse/internal/pkg/errors"
)

// ProjectDirectory is an in-memory, order-preserving cache of the user's
// known projects. It carries no locking of its own; all access is
// serialized through the owning session.
type ProjectDirectory struct {
	byID  map[string]*types.Project
	order []string
}

// NewProjectDirectory creates an empty directory
func NewProjectDirectory() *ProjectDirectory {
	return &ProjectDirectory{
		byID: make(map[string]*types.Project),
	}
}

// List returns all projects in insertion order
func (d *ProjectDirectory) List() []*types.Project {
	out := make([]*types.Project, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byID[id])
	}
	return out
}

// Add appends a project. Fails when the id is already present.
func (d *ProjectDirectory) Add(p *types.Project) error {
	if p == nil || p.ID == "" {
		return errors.New(errors.ErrInvalidParams, "project id is required")
	}
	if _, ok := d.byID[p.ID]; ok {
		return errors.New(errors.ErrDuplicateProject, p.ID)
	}
	d.byID[p.ID] = p
	d.order = append(d.order, p.ID)
	return nil
}

// Get returns the project with the given id
func (d *ProjectDirectory) Get(id string) (*types.Project, bool) {
	p, ok := d.byID[id]
	return p, ok
}

// Rename updates the matching entry's name. An absent id is reported but
// not fatal: the backend rename already happened.
func (d *ProjectDirectory) Rename(id, newName string) bool {
	p, ok := d.byID[id]
	if !ok {
		return false
	}
	p.Name = newName
	return true
}

// Remove drops the project with the given id
func (d *ProjectDirectory) Remove(id string) bool {
	if _, ok := d.byID[id]; !ok {
		return false
	}
	delete(d.byID, id)
	for i, oid := range d.order {
		if oid == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return true
}

// Replace resets the directory to the given projects, preserving their order
func (d *ProjectDirectory) Replace(projects []*types.Project) {
	d.byID = make(map[string]*types.Project, len(projects))
	d.order = d.order[:0]
	for _, p := range projects {
		if _, ok := d.byID[p.ID]; ok {
			continue
		}
		d.byID[p.ID] = p
		d.order = append(d.order, p.ID)
	}
}

// Clear empties the directory
func (d *ProjectDirectory) Clear() {
	d.byID = make(map[string]*types.Project)
	d.order = nil
}

// Len returns the number of cached projects
func (d *ProjectDirectory) Len() int {
	return len(d.order)
}
