package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/jot/internal/db"
	"github.com/hpungsan/jot/internal/note"
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query  string `json:"query"` // blank lists everything in the status
	Status string `json:"status,omitempty"`
	Folder string `json:"folder,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Query      string      `json:"query"`
	Items      []note.Note `json:"items"`
	Pagination Pagination  `json:"pagination"`
	Sort       string      `json:"sort"`
}

// Search returns notes whose title or content contains the query, ignoring case.
// A blank (empty or whitespace-only) query behaves like List.
func (r *Repository) Search(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	filter, err := statusFilter(input.Status, input.Folder, input.Kind)
	if err != nil {
		return nil, err
	}

	query := input.Query
	if strings.TrimSpace(query) == "" {
		query = ""
	}
	notes, err := db.Search(ctx, r.db, query, filter)
	if err != nil {
		return nil, err
	}

	items, page, err := paginate(notes, input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}
	return &SearchOutput{Query: query, Items: items, Pagination: page, Sort: SortModifiedDesc}, nil
}
