package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/events"
	"github.com/hpungsan/jot/internal/live"
	"github.com/hpungsan/jot/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	repo     *ops.Repository
	bus      events.Subscriber
	renderer *Renderer
	logger   zerolog.Logger
}

// HandleList handles GET /notes: active notes, optionally filtered.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, ops.StatusActive)
}

// HandleTrash handles GET /notes/trash: trashed notes.
func (h *Handlers) HandleTrash(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, ops.StatusTrashed)
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request, status string) {
	q := r.URL.Query()
	input := ops.SearchInput{
		Query:  q.Get("q"),
		Status: status,
		Folder: q.Get("folder"),
		Kind:   q.Get("kind"),
		Limit:  parseIntParam(r, "limit", 50),
		Offset: parseIntParam(r, "offset", 0),
	}

	result, err := h.repo.Search(r.Context(), input)
	if err != nil {
		h.renderer.fail(w, r, err)
		return
	}
	folders, err := h.repo.Folders(r.Context())
	if err != nil {
		h.renderer.fail(w, r, err)
		return
	}

	if negotiate(r) == modeJSON {
		writeJSON(w, http.StatusOK, result)
		return
	}

	title, nav := "Notes", "notes"
	if status == ops.StatusTrashed {
		title, nav = "Trash", "trash"
	}

	stream := url.Values{"status": {status}}
	for key, v := range map[string]string{"q": input.Query, "folder": input.Folder, "kind": input.Kind} {
		if v != "" {
			stream.Set(key, v)
		}
	}

	h.renderer.page(w, r, http.StatusOK, "list", ListPageData{
		PageData: PageData{
			Title:   title,
			Version: h.renderer.version,
			Nav:     nav,
		},
		Items:      result.Items,
		Pagination: result.Pagination,
		Folders:    folders,
		Query:      input.Query,
		Folder:     input.Folder,
		Kind:       input.Kind,
		Trash:      status == ops.StatusTrashed,
		StreamURL:  "/notes/stream?" + stream.Encode(),
	})
}

// HandleDetail handles GET /notes/{id}: a single note.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.renderer.fail(w, r, err)
		return
	}

	n, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.renderer.fail(w, r, err)
		return
	}

	if negotiate(r) == modeJSON {
		writeJSON(w, http.StatusOK, n)
		return
	}

	h.renderer.page(w, r, http.StatusOK, "detail", DetailPageData{
		PageData: PageData{
			Title:   noteTitle(*n),
			Version: h.renderer.version,
			Nav:     navFor(n.IsDeleted),
		},
		Note:         n,
		RenderedHTML: renderMarkdown(n.Content),
	})
}

// HandleTrashNote handles POST /notes/{id}/trash.
func (h *Handlers) HandleTrashNote(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "/notes", func(ctx context.Context, id int64) (any, error) {
		return h.repo.Trash(ctx, id)
	})
}

// HandleRestore handles POST /notes/{id}/restore.
func (h *Handlers) HandleRestore(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "/notes/trash", func(ctx context.Context, id int64) (any, error) {
		return h.repo.Restore(ctx, id)
	})
}

// HandleDelete handles POST /notes/{id}/delete: permanent removal.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "/notes/trash", func(ctx context.Context, id int64) (any, error) {
		return h.repo.PermanentlyDelete(ctx, id)
	})
}

// HandleToggle handles POST /notes/{id}/toggle.
func (h *Handlers) HandleToggle(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "/notes", func(ctx context.Context, id int64) (any, error) {
		return h.repo.ToggleTaskCompletion(ctx, id)
	})
}

// act runs a single-note command and answers per content negotiation.
func (h *Handlers) act(w http.ResponseWriter, r *http.Request, redirect string, run func(context.Context, int64) (any, error)) {
	id, err := parseID(r)
	if err != nil {
		h.renderer.fail(w, r, err)
		return
	}

	result, err := run(r.Context(), id)
	if err != nil {
		h.renderer.fail(w, r, err)
		return
	}

	switch negotiate(r) {
	case modeFragment:
		w.Header().Set("HX-Redirect", redirect)
		w.WriteHeader(http.StatusOK)
	case modeJSON:
		writeJSON(w, http.StatusOK, result)
	default:
		http.Redirect(w, r, redirect, http.StatusSeeOther)
	}
}

// HandleEmptyTrash handles POST /notes/trash/empty: permanently delete trashed notes.
func (h *Handlers) HandleEmptyTrash(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.fail(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	if r.FormValue("confirm") != "true" {
		h.renderer.fail(w, r, errors.NewInvalidRequest("confirm parameter must be \"true\""))
		return
	}

	var input ops.EmptyTrashInput
	if days := r.FormValue("older_than_days"); days != "" {
		d, err := strconv.Atoi(days)
		if err != nil {
			h.renderer.fail(w, r, errors.NewInvalidRequest("older_than_days must be an integer"))
			return
		}
		input.OlderThanDays = &d
	}

	result, err := h.repo.EmptyTrash(r.Context(), input)
	if err != nil {
		h.renderer.fail(w, r, err)
		return
	}

	switch negotiate(r) {
	case modeFragment:
		writeHTML(w, http.StatusOK, []byte(`<div class="purge-result">`+template.HTMLEscapeString(result.Message)+`</div>`))
	case modeJSON:
		writeJSON(w, http.StatusOK, result)
	default:
		http.Redirect(w, r, "/notes/trash", http.StatusSeeOther)
	}
}

// HandleStream handles GET /notes/stream, server-sent events carrying the
// live state for the requested status, search text, folder and kind. Each
// connection gets its own controller.
func (h *Handlers) HandleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.renderer.fail(w, r, errors.NewInternal(fmt.Errorf("response writer cannot stream")))
		return
	}

	ctl := live.New(h.repo, h.bus, h.logger)
	if status := r.URL.Query().Get("status"); status != "" {
		if err := ctl.SetStatus(status); err != nil {
			h.renderer.fail(w, r, err)
			return
		}
	}
	if err := ctl.SetScope(r.URL.Query().Get("folder"), r.URL.Query().Get("kind")); err != nil {
		h.renderer.fail(w, r, err)
		return
	}
	ctl.UpdateSearchQuery(r.URL.Query().Get("q"))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	states, unsubscribe := ctl.Subscribe()
	defer unsubscribe()
	go func() { _ = ctl.Run(ctx) }()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-states:
			if !ok {
				return
			}
			data, err := json.Marshal(s)
			if err != nil {
				h.logger.Error().Err(err).Msg("encode state")
				return
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: state\ndata: %s\n\n", s.Seq, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// parseID reads the {id} path value.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewInvalidRequest("note id must be a positive integer")
	}
	return id, nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

func navFor(trashed bool) string {
	if trashed {
		return "trash"
	}
	return "notes"
}
