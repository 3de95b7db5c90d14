// Package board orders leads into per-status columns and applies card moves
// optimistically. ApplyOptimistic and Rollback are pure; Mover persists a
// move and rolls the board back when the store rejects it.
package board

import (
	"errors"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
)

// PositionStep is the gap left between cards appended at either end of a
// column. The first card in an empty column sits at PositionStep.
const PositionStep = 1000.0

var (
	// ErrCardNotFound is returned when a mutation names a card not on the board.
	ErrCardNotFound = errors.New("board: card not found")
	// ErrInvalidStatus is returned for a move to an unknown column.
	ErrInvalidStatus = errors.New("board: invalid status")
)

// Card is one lead as the board sees it.
type Card struct {
	LeadID      string       `json:"lead_id"`
	CompanyName string       `json:"company_name,omitempty"`
	Status      model.Status `json:"status"`
	Position    float64      `json:"position"`
}

// State is a snapshot of the board.
type State struct {
	Cards []Card `json:"cards"`
}

// Mutation moves LeadID into column ToStatus at Index, counted among the
// cards already in that column.
type Mutation struct {
	LeadID   string       `json:"lead_id" validate:"required"`
	ToStatus model.Status `json:"to_status" validate:"required"`
	Index    int          `json:"index" validate:"min=0"`
}

// FromLeads builds a board from leads.
func FromLeads(leads []model.Lead) State {
	cards := make([]Card, len(leads))
	for i, l := range leads {
		cards[i] = Card{
			LeadID:      l.ID,
			CompanyName: l.CompanyName,
			Status:      l.Status,
			Position:    l.Position,
		}
	}
	return State{Cards: cards}
}

// Clone returns a copy that shares nothing with s.
func (s State) Clone() State {
	return State{Cards: append([]Card(nil), s.Cards...)}
}

// Find returns the card for leadID.
func (s State) Find(leadID string) (Card, bool) {
	for _, c := range s.Cards {
		if c.LeadID == leadID {
			return c, true
		}
	}
	return Card{}, false
}

// Column returns the cards in status ordered by position. Ties keep board order.
func (s State) Column(status model.Status) []Card {
	var col []Card
	for _, c := range s.Cards {
		if c.Status == status {
			col = append(col, c)
		}
	}
	sort.SliceStable(col, func(i, j int) bool { return col[i].Position < col[j].Position })
	return col
}

// ApplyOptimistic returns state with the mutation applied. The moved card
// gets a fresh position from its new neighbours: the midpoint between them,
// or PositionStep beyond the end card. state is not modified.
func ApplyOptimistic(state State, m Mutation) (State, error) {
	if !m.ToStatus.Valid() {
		return state, eris.Wrapf(ErrInvalidStatus, "board: status %q", m.ToStatus)
	}
	idx := -1
	for i, c := range state.Cards {
		if c.LeadID == m.LeadID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return state, eris.Wrapf(ErrCardNotFound, "board: lead %s", m.LeadID)
	}

	var col []Card
	for _, c := range state.Column(m.ToStatus) {
		if c.LeadID != m.LeadID {
			col = append(col, c)
		}
	}

	next := state.Clone()
	next.Cards[idx].Status = m.ToStatus
	next.Cards[idx].Position = positionAt(col, m.Index)
	return next, nil
}

// positionAt picks a position that sorts a card at index within col.
func positionAt(col []Card, index int) float64 {
	if index < 0 {
		index = 0
	}
	if index > len(col) {
		index = len(col)
	}
	switch {
	case len(col) == 0:
		return PositionStep
	case index == 0:
		return col[0].Position - PositionStep
	case index == len(col):
		return col[len(col)-1].Position + PositionStep
	default:
		return (col[index-1].Position + col[index].Position) / 2
	}
}

// Rollback restores every card in snapshot to its snapshot status and
// position. Cards missing from state are put back; cards that appeared
// after the snapshot are kept as they are.
func Rollback(state, snapshot State) State {
	prev := make(map[string]Card, len(snapshot.Cards))
	for _, c := range snapshot.Cards {
		prev[c.LeadID] = c
	}

	out := State{Cards: make([]Card, 0, len(state.Cards)+len(snapshot.Cards))}
	seen := make(map[string]bool, len(state.Cards))
	for _, c := range state.Cards {
		if p, ok := prev[c.LeadID]; ok {
			c = p
		}
		seen[c.LeadID] = true
		out.Cards = append(out.Cards, c)
	}
	for _, c := range snapshot.Cards {
		if !seen[c.LeadID] {
			out.Cards = append(out.Cards, c)
		}
	}
	return out
}
