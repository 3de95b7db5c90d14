package model

import "time"

// MessageType identifies a step of the outreach sequence.
type MessageType string

const (
	MessageInitial   MessageType = "initial"
	MessageFollowUp1 MessageType = "follow_up_1"
	MessageFollowUp2 MessageType = "follow_up_2"
	MessageResponse  MessageType = "response"
)

// Valid reports whether m is a known message type.
func (m MessageType) Valid() bool {
	switch m {
	case MessageInitial, MessageFollowUp1, MessageFollowUp2, MessageResponse:
		return true
	}
	return false
}

// Channel is the medium a contact happened on.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelPhone    Channel = "phone"
)

// Direction tells outbound contacts apart from inbound replies.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

// ContactLog is one append-only communication event tied to a lead.
type ContactLog struct {
	ID               string      `json:"id"`
	TenantID         string      `json:"tenant_id"`
	LeadID           string      `json:"lead_id"`
	Channel          Channel     `json:"channel"`
	Direction        Direction   `json:"direction"`
	MessageType      MessageType `json:"message_type"`
	Recipient        string      `json:"recipient,omitempty"`
	Subject          string      `json:"subject,omitempty"`
	Content          string      `json:"content,omitempty"`
	ProviderID       string      `json:"provider_id,omitempty"`
	SentAt           *time.Time  `json:"sent_at,omitempty"`
	OpenedAt         *time.Time  `json:"opened_at,omitempty"`
	RespondedAt      *time.Time  `json:"responded_at,omitempty"`
	InterestDetected bool        `json:"interest_detected"`
	InterestKeywords []string    `json:"interest_keywords,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// EmailTemplate is keyed by (classification, message type) and owned by a
// tenant or by DefaultTenantID.
type EmailTemplate struct {
	ID             string         `json:"id" yaml:"id"`
	TenantID       string         `json:"tenant_id" yaml:"tenant_id"`
	Name           string         `json:"name" yaml:"name"`
	Classification Classification `json:"classification" yaml:"classification"`
	MessageType    MessageType    `json:"message_type" yaml:"message_type"`
	Subject        string         `json:"subject" yaml:"subject"`
	Body           string         `json:"body" yaml:"body"`
	IsDefault      bool           `json:"is_default" yaml:"is_default"`
}

// TaskPriority ranks human follow-up work.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// TaskStatus is the completion state of a task.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskDone    TaskStatus = "done"
)

// TaskTypeFollowUp marks tasks created from detected interest.
const TaskTypeFollowUp = "follow_up"

// Task is a human follow-up work item referencing the lead that caused it.
type Task struct {
	ID          string       `json:"id"`
	TenantID    string       `json:"tenant_id"`
	LeadID      string       `json:"lead_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	TaskType    string       `json:"task_type"`
	Priority    TaskPriority `json:"priority"`
	Status      TaskStatus   `json:"status"`
	DueAt       time.Time    `json:"due_at"`
	CreatedAt   time.Time    `json:"created_at"`
}
