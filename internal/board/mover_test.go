package board

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

const tenant = "11111111-1111-1111-1111-111111111111"

type fakeStore struct {
	leads     map[string]model.Lead
	updateErr error
	patches   map[string]model.LeadPatch
}

func newFakeStore(leads ...model.Lead) *fakeStore {
	f := &fakeStore{leads: map[string]model.Lead{}, patches: map[string]model.LeadPatch{}}
	for _, l := range leads {
		f.leads[l.ID] = l
	}
	return f
}

func (f *fakeStore) GetLead(_ context.Context, _ string, id string) (*model.Lead, error) {
	l, ok := f.leads[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (f *fakeStore) FindLeads(_ context.Context, _ string, filter store.LeadFilter) ([]model.Lead, error) {
	var out []model.Lead
	for _, l := range f.leads {
		for _, s := range filter.Statuses {
			if l.Status == s {
				out = append(out, l)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateLead(_ context.Context, _ string, id string, patch model.LeadPatch) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.patches[id] = patch
	return nil
}

func TestMove_PersistsStatusAndPosition(t *testing.T) {
	st := newFakeStore(
		model.Lead{ID: "a", Status: model.StatusNew, Position: 1000},
		model.Lead{ID: "d", Status: model.StatusContacted, Position: 1000},
		model.Lead{ID: "e", Status: model.StatusContacted, Position: 2000},
	)

	state, err := NewMover(st).Move(context.Background(), tenant, "a", model.StatusContacted, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"d", "a", "e"}, ids(state.Column(model.StatusContacted)))
	patch := st.patches["a"]
	require.NotNil(t, patch.Status)
	require.NotNil(t, patch.Position)
	assert.Equal(t, model.StatusContacted, *patch.Status)
	assert.InDelta(t, 1500, *patch.Position, 0.0001)
}

func TestMove_RollsBackOnStoreError(t *testing.T) {
	st := newFakeStore(
		model.Lead{ID: "a", Status: model.StatusNew, Position: 1000},
		model.Lead{ID: "d", Status: model.StatusContacted, Position: 1000},
	)
	st.updateErr = errors.New("connection refused")

	state, err := NewMover(st).Move(context.Background(), tenant, "a", model.StatusContacted, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "board: persist move")

	a, ok := state.Find("a")
	require.True(t, ok)
	assert.Equal(t, model.StatusNew, a.Status)
	assert.InDelta(t, 1000, a.Position, 0.0001)
}

func TestMove_Errors(t *testing.T) {
	st := newFakeStore(model.Lead{ID: "a", Status: model.StatusNew})

	_, err := NewMover(st).Move(context.Background(), tenant, "missing", model.StatusLost, 0)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = NewMover(st).Move(context.Background(), tenant, "a", "archived", 0)
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Empty(t, st.patches)
}
