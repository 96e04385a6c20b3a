// Package tasks translates between the board's card representation and
// the backend's task representation. All wire-shape ambiguity (enum
// values, date formats, responsible entries that may be bare ids or full
// objects) is resolved at this boundary.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/Bushidonj/kanban-board/internal/kanban"
)

// API performs authenticated calls against the backend.
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
	PostMultipart(ctx context.Context, path, field, filename string, content io.Reader, out any) error
}

// Repository maps cards to backend tasks.
type Repository struct {
	api    API
	logger *slog.Logger

	// Process-lifetime cache of the user directory, fetched once and
	// reused to resolve bare responsible ids.
	mu              sync.Mutex
	directory       []kanban.UserRef
	directoryLoaded bool
}

// NewRepository creates a task repository on top of api.
func NewRepository(api API, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{api: api, logger: logger}
}

// List fetches all tasks and returns them as cards.
func (r *Repository) List(ctx context.Context) ([]kanban.Card, error) {
	var dtos []taskDTO
	if err := r.api.Get(ctx, "/tasks", &dtos); err != nil {
		return nil, fmt.Errorf("fetching tasks: %w", err)
	}

	cards := make([]kanban.Card, 0, len(dtos))
	for _, dto := range dtos {
		cards = append(cards, r.cardFromDTO(ctx, dto))
	}
	return cards, nil
}

// Create sends a card draft and returns the server-assigned record.
// The draft's id (temporary or empty) is not transmitted.
func (r *Repository) Create(ctx context.Context, draft kanban.Card) (kanban.Card, error) {
	var created taskDTO
	if err := r.api.Post(ctx, "/tasks", payloadFromCard(draft), &created); err != nil {
		return kanban.Card{}, fmt.Errorf("creating task: %w", err)
	}
	return r.cardFromDTO(ctx, created), nil
}

// Update sends the full card and returns the server's representation,
// which is authoritative for normalized fields.
func (r *Repository) Update(ctx context.Context, card kanban.Card) (kanban.Card, error) {
	var updated taskDTO
	if err := r.api.Patch(ctx, "/tasks/"+card.ID, payloadFromCard(card), &updated); err != nil {
		return kanban.Card{}, fmt.Errorf("updating task %s: %w", card.ID, err)
	}
	return r.cardFromDTO(ctx, updated), nil
}

// Move changes only a task's status.
func (r *Repository) Move(ctx context.Context, id string, status kanban.Status) error {
	body := map[string]string{"status": statusToWire[status]}
	if err := r.api.Patch(ctx, "/tasks/"+id, body, nil); err != nil {
		return fmt.Errorf("moving task %s: %w", id, err)
	}
	return nil
}

// Delete removes a task.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.api.Delete(ctx, "/tasks/"+id); err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	return nil
}

func (r *Repository) cardFromDTO(ctx context.Context, dto taskDTO) kanban.Card {
	tags := dto.Tags
	if tags == nil {
		tags = []kanban.Tag{}
	}
	comments := dto.Comments
	if comments == nil {
		comments = []kanban.Comment{}
	}

	return kanban.Card{
		ID:          dto.ID,
		Title:       dto.Title,
		Description: dto.Description,
		Responsible: r.resolveResponsible(ctx, dto.Responsible),
		Status:      r.boardStatus(dto.Status),
		Deadline:    deadlineFromWire(dto),
		Priority:    r.boardPriority(dto.Priority),
		Tags:        tags,
		Comments:    comments,
		Attachments: decodeAttachments(dto.Attachments),
	}
}

// resolveResponsible turns each wire entry into a {id, name} pair. Full
// objects pass through; bare ids are looked up in the cached user
// directory, with a synthesized placeholder name when the id is unknown.
// Entries are never dropped.
func (r *Repository) resolveResponsible(ctx context.Context, raws []json.RawMessage) []kanban.UserRef {
	refs := make([]kanban.UserRef, 0, len(raws))
	for _, raw := range raws {
		var full kanban.UserRef
		if err := json.Unmarshal(raw, &full); err == nil && full.Name != "" {
			refs = append(refs, full)
			continue
		}

		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			id = full.ID
		}
		if id == "" {
			// Neither a string nor an object with an id (a numeric id,
			// say). Keep the entry under its raw value.
			id = strings.Trim(string(raw), `"`)
			r.logger.Debug("unrecognized responsible entry", "raw", id)
		}

		refs = append(refs, kanban.UserRef{ID: id, Name: r.userName(ctx, id)})
	}
	return refs
}

func (r *Repository) userName(ctx context.Context, id string) string {
	for _, user := range r.users(ctx) {
		if user.ID == id {
			return user.Name
		}
	}
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return "User " + short
}

// users returns the cached user directory, fetching it on first use. A
// fetch failure yields an empty directory rather than failing the read;
// names then fall back to placeholders.
func (r *Repository) users(ctx context.Context) []kanban.UserRef {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.directoryLoaded {
		return r.directory
	}

	var users []kanban.UserRef
	if err := r.api.Get(ctx, "/users", &users); err != nil {
		r.logger.Error("failed to fetch user directory", "error", err)
		return nil
	}

	r.directory = users
	r.directoryLoaded = true
	r.logger.Debug("user directory cached", "users", len(users))
	return r.directory
}
