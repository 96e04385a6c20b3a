package tasks

import (
	"encoding/json"
	"time"

	"github.com/Bushidonj/kanban-board/internal/kanban"
)

// taskDTO is the backend wire shape of a task. Responsible and
// attachments arrive either as bare strings or as objects depending on
// the backend version, so they are decoded lazily here and never leak
// past this package.
type taskDTO struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      string            `json:"status"`
	Priority    string            `json:"priority"`
	DueDate     string            `json:"dueDate"`
	DueDateAlt  string            `json:"due_date"`
	Responsible []json.RawMessage `json:"responsible"`
	Tags        []kanban.Tag      `json:"tags"`
	Comments    []kanban.Comment  `json:"comments"`
	Attachments []json.RawMessage `json:"attachments"`
}

// taskPayload is the outgoing wire shape. Responsible is sent as bare
// ids per the API contract.
type taskPayload struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      string              `json:"status"`
	Priority    string              `json:"priority"`
	DueDate     *string             `json:"dueDate"`
	Responsible []string            `json:"responsible"`
	Tags        []kanban.Tag        `json:"tags"`
	Comments    []kanban.Comment    `json:"comments"`
	Attachments []kanban.Attachment `json:"attachments"`
}

// Allow-listed status mapping, both directions. The two sides currently
// agree on names, but the table is the contract: anything the backend
// sends outside it is normalized to Backlog instead of failing the
// whole fetch.
var statusToWire = map[kanban.Status]string{
	kanban.StatusBacklog:         "Backlog",
	kanban.StatusToDo:            "To Do",
	kanban.StatusDoing:           "Doing",
	kanban.StatusWaitingResponse: "Waiting Response",
	kanban.StatusWaitingReview:   "Waiting Review",
	kanban.StatusWaitingTest:     "Waiting Test",
	kanban.StatusBlocked:         "Blocked",
	kanban.StatusBug:             "Bug",
	kanban.StatusComplete:        "Complete",
	kanban.StatusClosed:          "Closed",
}

var statusFromWire = map[string]kanban.Status{}

var priorityToWire = map[kanban.Priority]string{
	kanban.PriorityBaixa:   "Baixa",
	kanban.PriorityMedia:   "Média",
	kanban.PriorityUrgente: "Urgente",
}

var priorityFromWire = map[string]kanban.Priority{}

func init() {
	for status, wire := range statusToWire {
		statusFromWire[wire] = status
	}
	for priority, wire := range priorityToWire {
		priorityFromWire[wire] = priority
	}
}

func (r *Repository) boardStatus(wire string) kanban.Status {
	if status, ok := statusFromWire[wire]; ok {
		return status
	}
	r.logger.Debug("unknown status from backend", "status", wire)
	return kanban.StatusBacklog
}

func (r *Repository) boardPriority(wire string) kanban.Priority {
	if priority, ok := priorityFromWire[wire]; ok {
		return priority
	}
	r.logger.Debug("unknown priority from backend", "priority", wire)
	return kanban.PriorityBaixa
}

// deadlineFromWire converts an ISO datetime into the board's
// "YYYY-MM-DD" form, taking the UTC calendar date. Absent or malformed
// input maps to empty, never an error.
func deadlineFromWire(dto taskDTO) string {
	raw := dto.DueDate
	if raw == "" {
		raw = dto.DueDateAlt
	}
	if raw == "" {
		return ""
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", raw); err == nil {
		return raw
	}
	return ""
}

// deadlineToWire converts "YYYY-MM-DD" into an ISO datetime at UTC
// midnight. Empty deadlines are sent as null.
func deadlineToWire(deadline string) *string {
	if deadline == "" {
		return nil
	}
	date, err := kanban.ParseLocalDate(deadline)
	if err != nil {
		return nil
	}
	iso := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
	return &iso
}

// decodeAttachment resolves the string-or-object ambiguity for a single
// attachment entry.
func decodeAttachment(raw json.RawMessage) (kanban.Attachment, bool) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return kanban.Attachment{Name: name}, true
	}
	var att kanban.Attachment
	if err := json.Unmarshal(raw, &att); err == nil {
		return att, true
	}
	return kanban.Attachment{}, false
}

func decodeAttachments(raws []json.RawMessage) []kanban.Attachment {
	out := make([]kanban.Attachment, 0, len(raws))
	for _, raw := range raws {
		if att, ok := decodeAttachment(raw); ok {
			out = append(out, att)
		}
	}
	return out
}

func payloadFromCard(card kanban.Card) taskPayload {
	responsible := make([]string, 0, len(card.Responsible))
	for _, ref := range card.Responsible {
		responsible = append(responsible, ref.ID)
	}

	tags := card.Tags
	if tags == nil {
		tags = []kanban.Tag{}
	}
	comments := card.Comments
	if comments == nil {
		comments = []kanban.Comment{}
	}
	attachments := card.Attachments
	if attachments == nil {
		attachments = []kanban.Attachment{}
	}

	return taskPayload{
		Title:       card.Title,
		Description: card.Description,
		Status:      statusToWire[card.Status],
		Priority:    priorityToWire[card.Priority],
		DueDate:     deadlineToWire(card.Deadline),
		Responsible: responsible,
		Tags:        tags,
		Comments:    comments,
		Attachments: attachments,
	}
}
