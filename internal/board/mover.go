package board

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

// LeadStore is the slice of the lead store the mover needs.
type LeadStore interface {
	GetLead(ctx context.Context, tenantID, id string) (*model.Lead, error)
	FindLeads(ctx context.Context, tenantID string, filter store.LeadFilter) ([]model.Lead, error)
	UpdateLead(ctx context.Context, tenantID, id string, patch model.LeadPatch) error
}

// Mover persists card moves.
type Mover struct {
	store LeadStore
}

// NewMover creates a Mover.
func NewMover(st LeadStore) *Mover {
	return &Mover{store: st}
}

// Move places leadID in column toStatus at index. The returned state holds
// the moved card and the destination column. When the store rejects the
// write, the rolled-back state is returned together with the error.
func (m *Mover) Move(ctx context.Context, tenantID, leadID string, toStatus model.Status, index int) (State, error) {
	lead, err := m.store.GetLead(ctx, tenantID, leadID)
	if err != nil {
		return State{}, eris.Wrap(err, "board: load lead")
	}
	if lead == nil {
		return State{}, eris.Wrapf(store.ErrNotFound, "board: lead %s", leadID)
	}

	column, err := m.store.FindLeads(ctx, tenantID, store.LeadFilter{Statuses: []model.Status{toStatus}})
	if err != nil {
		return State{}, eris.Wrap(err, "board: load column")
	}
	leads := []model.Lead{*lead}
	for _, l := range column {
		if l.ID != leadID {
			leads = append(leads, l)
		}
	}

	snapshot := FromLeads(leads)
	next, err := ApplyOptimistic(snapshot, Mutation{LeadID: leadID, ToStatus: toStatus, Index: index})
	if err != nil {
		return snapshot, eris.Wrap(err, "board: apply move")
	}

	moved, _ := next.Find(leadID)
	err = m.store.UpdateLead(ctx, tenantID, leadID, model.LeadPatch{
		Status:   model.Ptr(moved.Status),
		Position: model.Ptr(moved.Position),
	})
	if err != nil {
		zap.L().Warn("board: move rejected, rolling back",
			zap.String("tenant_id", tenantID),
			zap.String("lead_id", leadID),
			zap.Error(err),
		)
		return Rollback(next, snapshot), eris.Wrap(err, "board: persist move")
	}

	zap.L().Debug("board: card moved",
		zap.String("lead_id", leadID),
		zap.String("from", string(lead.Status)),
		zap.String("to", string(moved.Status)),
		zap.Float64("position", moved.Position),
	)
	return next, nil
}
