package ops

import (
	"context"

	"github.com/hpungsan/jot/internal/db"
	"github.com/hpungsan/jot/internal/note"
)

// SortModifiedDesc is the only ordering: most recently modified first, ties by id.
const SortModifiedDesc = "modified_at_desc"

// ListInput contains parameters for the List operation.
type ListInput struct {
	Status string `json:"status,omitempty"` // active (default) or trashed
	Folder string `json:"folder,omitempty"`
	Kind   string `json:"kind,omitempty"`   // note or task; empty means both
	Limit  int    `json:"limit,omitempty"`  // 0 means no limit
	Offset int    `json:"offset,omitempty"` // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []note.Note `json:"items"`
	Pagination Pagination  `json:"pagination"`
	Sort       string      `json:"sort"`
}

// Get returns a single note, active or trashed.
func (r *Repository) Get(ctx context.Context, id int64) (*note.Note, error) {
	return db.GetByID(ctx, r.db, id)
}

// List returns active or trashed notes, most recently modified first.
func (r *Repository) List(ctx context.Context, input ListInput) (*ListOutput, error) {
	filter, err := statusFilter(input.Status, input.Folder, input.Kind)
	if err != nil {
		return nil, err
	}

	notes, err := db.List(ctx, r.db, filter)
	if err != nil {
		return nil, err
	}

	items, page, err := paginate(notes, input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}
	return &ListOutput{Items: items, Pagination: page, Sort: SortModifiedDesc}, nil
}

// Folders returns the distinct folder labels in ascending order.
func (r *Repository) Folders(ctx context.Context) ([]string, error) {
	return db.ListFolders(ctx, r.db)
}
