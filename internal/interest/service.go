package interest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/events"
	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

// ErrEmptyMessage rejects a reply with no text.
var ErrEmptyMessage = eris.New("interest: message is required")

// LeadStore is the slice of the lead store the service needs.
type LeadStore interface {
	GetLead(ctx context.Context, tenantID, id string) (*model.Lead, error)
	RecordActivity(ctx context.Context, tenantID, leadID string, patch model.LeadPatch, log *model.ContactLog, task *model.Task) error
}

// Outcome is the detection result plus what it did to the lead.
type Outcome struct {
	Result
	LeadID    string       `json:"lead_id"`
	NewStatus model.Status `json:"new_status"`
	TaskID    string       `json:"task_id,omitempty"`
}

// Service applies detection results to leads.
type Service struct {
	store LeadStore
	pub   events.Publisher
	now   func() time.Time
}

// NewService creates a Service. A nil publisher disables handoff events.
func NewService(s LeadStore, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{store: s, pub: pub, now: func() time.Time { return time.Now().UTC() }}
}

// Process scans an inbound reply and, in one transaction, logs it and moves
// the lead to lost, interested, or engaged.
func (s *Service) Process(ctx context.Context, tenantID, leadID, message string, channel model.Channel) (*Outcome, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	if leadID == "" {
		return nil, eris.New("interest: lead id is required")
	}
	if channel == "" {
		channel = model.ChannelEmail
	}

	lead, err := s.store.GetLead(ctx, tenantID, leadID)
	if err != nil {
		return nil, eris.Wrap(err, "interest: load lead")
	}
	if lead == nil {
		return nil, eris.Wrapf(store.ErrNotFound, "interest: lead %s", leadID)
	}

	res := Detect(message)
	now := s.now()
	log := zap.L().With(zap.String("tenant_id", tenantID), zap.String("lead_id", leadID))

	contact := &model.ContactLog{
		TenantID:         tenantID,
		LeadID:           leadID,
		Channel:          channel,
		Direction:        model.DirectionInbound,
		MessageType:      model.MessageResponse,
		Content:          message,
		RespondedAt:      &now,
		InterestDetected: res.Interest,
		InterestKeywords: res.Keywords,
	}

	out := &Outcome{Result: res, LeadID: leadID}
	var patch model.LeadPatch
	var task *model.Task

	switch {
	case res.OptedOut:
		out.NewStatus = model.StatusLost
		patch = model.LeadPatch{
			Status:           model.Ptr(model.StatusLost),
			OptedOut:         model.Ptr(true),
			OptedOutAt:       &now,
			AutomationPaused: model.Ptr(true),
		}
	case res.Interest:
		out.NewStatus = model.StatusInterested
		patch = model.LeadPatch{
			Status:           model.Ptr(model.StatusInterested),
			AutomationPaused: model.Ptr(true),
		}
		task = followUpTask(lead, res.Keywords, message, now)
		out.TaskID = task.ID
	default:
		out.NewStatus = model.StatusEngaged
		patch = model.LeadPatch{Status: model.Ptr(model.StatusEngaged)}
	}

	if err := s.store.RecordActivity(ctx, tenantID, leadID, patch, contact, task); err != nil {
		return nil, eris.Wrap(err, "interest: record reply")
	}
	metrics.RecordInterest(string(out.NewStatus))
	log.Info("interest: reply processed",
		zap.String("status", string(out.NewStatus)),
		zap.Strings("keywords", res.Keywords),
		zap.Float64("confidence", res.Confidence),
	)

	if res.Interest {
		if err := s.pub.Publish(ctx, events.Interested(tenantID, leadID)); err != nil {
			log.Warn("interest: publish handoff event", zap.Error(err))
		}
	}
	return out, nil
}

func followUpTask(lead *model.Lead, keywords []string, message string, now time.Time) *model.Task {
	name := lead.CompanyName
	if name == "" {
		name = "Lead"
	}
	return &model.Task{
		ID:          uuid.NewString(),
		TenantID:    lead.TenantID,
		LeadID:      lead.ID,
		Title:       "Interesse detectado: " + name,
		Description: fmt.Sprintf("Palavras-chave encontradas: %s\n\nMensagem original:\n\"%s\"", strings.Join(keywords, ", "), message),
		TaskType:    model.TaskTypeFollowUp,
		Priority:    model.PriorityUrgent,
		Status:      model.TaskPending,
		DueAt:       now,
		CreatedAt:   now,
	}
}
