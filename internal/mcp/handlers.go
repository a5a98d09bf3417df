package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	repo *ops.Repository
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(repo *ops.Repository) *Handlers {
	return &Handlers{repo: repo}
}

// Request types for each tool

// AddRequest represents the arguments for note_add.
type AddRequest struct {
	Title              string   `json:"title"`
	Content            string   `json:"content"`
	Folder             *string  `json:"folder,omitempty"`
	IsTask             bool     `json:"is_task,omitempty"`
	IsCompleted        bool     `json:"is_completed,omitempty"`
	DueDate            *int64   `json:"due_date,omitempty"`
	ImageURIs          []string `json:"image_uris,omitempty"`
	TextFormatting     *string  `json:"text_formatting,omitempty"`
	AudioFilePath      *string  `json:"audio_file_path,omitempty"`
	ReminderDateTime   *int64   `json:"reminder_date_time,omitempty"`
	ReminderRecurrence string   `json:"reminder_recurrence,omitempty"`
}

// EditRequest represents the arguments for note_edit.
// image_uris distinguishes omitted (nil) from [] (clear).
type EditRequest struct {
	ID                 int64    `json:"id"`
	Title              *string  `json:"title,omitempty"`
	Content            *string  `json:"content,omitempty"`
	Folder             *string  `json:"folder,omitempty"`
	IsTask             *bool    `json:"is_task,omitempty"`
	IsCompleted        *bool    `json:"is_completed,omitempty"`
	DueDate            *int64   `json:"due_date,omitempty"`
	ImageURIs          []string `json:"image_uris"`
	TextFormatting     *string  `json:"text_formatting,omitempty"`
	AudioFilePath      *string  `json:"audio_file_path,omitempty"`
	ReminderDateTime   *int64   `json:"reminder_date_time,omitempty"`
	ReminderRecurrence *string  `json:"reminder_recurrence,omitempty"`
}

// ListRequest represents the arguments for note_list.
type ListRequest struct {
	Status string `json:"status,omitempty"`
	Folder string `json:"folder,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// SearchRequest represents the arguments for note_search.
type SearchRequest struct {
	Query  string `json:"query"`
	Status string `json:"status,omitempty"`
	Folder string `json:"folder,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// EmptyTrashRequest represents the arguments for note_empty_trash.
type EmptyTrashRequest struct {
	OlderThanDays *int `json:"older_than_days,omitempty"`
}

// FoldersResult is the payload of note_folders.
type FoldersResult struct {
	Folders []string `json:"folders"`
}

// Handler implementations

// HandleAdd handles the note_add tool call.
func (h *Handlers) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.repo.Add(ctx, ops.AddInput{
		Title:              input.Title,
		Content:            input.Content,
		Folder:             input.Folder,
		IsTask:             input.IsTask,
		IsCompleted:        input.IsCompleted,
		DueDate:            input.DueDate,
		ImageURIs:          input.ImageURIs,
		TextFormatting:     input.TextFormatting,
		AudioFilePath:      input.AudioFilePath,
		ReminderDateTime:   input.ReminderDateTime,
		ReminderRecurrence: input.ReminderRecurrence,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleEdit handles the note_edit tool call.
func (h *Handlers) HandleEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[EditRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.repo.Edit(ctx, ops.EditInput{
		ID:                 input.ID,
		Title:              input.Title,
		Content:            input.Content,
		Folder:             input.Folder,
		IsTask:             input.IsTask,
		IsCompleted:        input.IsCompleted,
		DueDate:            input.DueDate,
		ImageURIs:          input.ImageURIs,
		TextFormatting:     input.TextFormatting,
		AudioFilePath:      input.AudioFilePath,
		ReminderDateTime:   input.ReminderDateTime,
		ReminderRecurrence: input.ReminderRecurrence,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGet handles the note_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := decodeID(req)
	if err != nil {
		return errorResult(err), nil
	}

	n, err := h.repo.Get(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(n)
}

// HandleList handles the note_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.repo.List(ctx, ops.ListInput{
		Status: input.Status,
		Folder: input.Folder,
		Kind:   input.Kind,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSearch handles the note_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.repo.Search(ctx, ops.SearchInput{
		Query:  input.Query,
		Status: input.Status,
		Folder: input.Folder,
		Kind:   input.Kind,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleTrash handles the note_trash tool call.
func (h *Handlers) HandleTrash(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := decodeID(req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.repo.Trash(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRestore handles the note_restore tool call.
func (h *Handlers) HandleRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := decodeID(req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.repo.Restore(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDelete handles the note_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := decodeID(req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.repo.PermanentlyDelete(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleEmptyTrash handles the note_empty_trash tool call.
func (h *Handlers) HandleEmptyTrash(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[EmptyTrashRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.repo.EmptyTrash(ctx, ops.EmptyTrashInput{OlderThanDays: input.OlderThanDays})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleToggle handles the note_toggle tool call.
func (h *Handlers) HandleToggle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := decodeID(req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.repo.ToggleTaskCompletion(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFolders handles the note_folders tool call.
func (h *Handlers) HandleFolders(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folders, err := h.repo.Folders(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(FoldersResult{Folders: folders})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	jErr := errors.As(err)

	errorObj := map[string]any{
		"code":    jErr.Code,
		"message": jErr.Message,
		"status":  jErr.Status,
	}
	if jErr.Code != errors.ErrInternal && jErr.Details != nil {
		errorObj["details"] = jErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
