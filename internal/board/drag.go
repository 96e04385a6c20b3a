package board

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Bushidonj/kanban-board/internal/kanban"
)

// TargetKind identifies what the pointer is over during a drag.
type TargetKind int

const (
	TargetCard TargetKind = iota
	TargetColumn
)

// CardBoard is the view of the store the drag coordinator needs: card
// lookup for resolving targets, and move for issuing intents.
type CardBoard interface {
	CardByID(id string) (kanban.Card, bool)
	Move(ctx context.Context, id string, status kanban.Status) error
}

// Drag translates pointer drag events into move-intents. Column
// membership updates live as the pointer crosses boundaries, not just on
// drop. The coordinator holds no card data beyond the overlay snapshot
// of the dragged card.
type Drag struct {
	board  CardBoard
	logger *slog.Logger

	mu     sync.Mutex
	active *kanban.Card
}

// NewDrag creates a drag coordinator over board.
func NewDrag(board CardBoard, logger *slog.Logger) *Drag {
	if logger == nil {
		logger = slog.Default()
	}
	return &Drag{board: board, logger: logger}
}

// DragStart begins a gesture. The dragged card is looked up once and
// kept as the overlay representation. If the card cannot be found the
// gesture is inert: no overlay, no intents.
func (d *Drag) DragStart(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	card, ok := d.board.CardByID(id)
	if !ok {
		d.active = nil
		return
	}
	d.active = &card
}

// ActiveCard returns the overlay snapshot of the dragged card, or nil
// when no gesture is in progress.
func (d *Drag) ActiveCard() *kanban.Card {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return nil
	}
	snapshot := d.active.Clone()
	return &snapshot
}

// DragOver handles the pointer crossing onto a target, emitting at most
// one move-intent. A card target in a different column emits a move to
// that column; a column target always emits, even same-status — the move
// is idempotent for no-op status changes.
func (d *Drag) DragOver(ctx context.Context, draggedID, targetID string, kind TargetKind) error {
	d.mu.Lock()
	inert := d.active == nil
	d.mu.Unlock()
	if inert {
		return nil
	}
	if draggedID == targetID {
		return nil
	}

	// The dragged card's current status comes from the store, not the
	// overlay snapshot: earlier intents in the same gesture may already
	// have re-parented it.
	dragged, ok := d.board.CardByID(draggedID)
	if !ok {
		return nil
	}

	switch kind {
	case TargetCard:
		target, ok := d.board.CardByID(targetID)
		if !ok {
			return nil
		}
		if target.Status == dragged.Status {
			return nil
		}
		return d.board.Move(ctx, draggedID, target.Status)
	case TargetColumn:
		return d.board.Move(ctx, draggedID, kanban.Status(targetID))
	default:
		return nil
	}
}

// DragEnd finishes the gesture and clears the overlay.
func (d *Drag) DragEnd() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active = nil
}
