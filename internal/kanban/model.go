package kanban

import (
	"strings"

	"github.com/google/uuid"
)

// Status is the workflow column a card belongs to.
type Status string

const (
	StatusBacklog         Status = "Backlog"
	StatusToDo            Status = "To Do"
	StatusDoing           Status = "Doing"
	StatusWaitingResponse Status = "Waiting Response"
	StatusWaitingReview   Status = "Waiting Review"
	StatusWaitingTest     Status = "Waiting Test"
	StatusBlocked         Status = "Blocked"
	StatusBug             Status = "Bug"
	StatusComplete        Status = "Complete"
	StatusClosed          Status = "Closed"
)

// Priority is the urgency level of a card.
type Priority string

const (
	PriorityBaixa   Priority = "Baixa"
	PriorityMedia   Priority = "Média"
	PriorityUrgente Priority = "Urgente"
)

// Tag is a colored label attached to a card.
type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Comment is a note on a card, ordered by creation.
type Comment struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// UserRef identifies a responsible user on a card.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Attachment is a file attached to a card.
type Attachment struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
	Size int64  `json:"size,omitempty"`
	Type string `json:"type,omitempty"`
}

// Card is the draggable unit of work on the board.
type Card struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Responsible []UserRef    `json:"responsible"`
	Status      Status       `json:"status"`
	Deadline    string       `json:"deadline"`
	Priority    Priority     `json:"priority"`
	Tags        []Tag        `json:"tags"`
	Comments    []Comment    `json:"comments"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// TempIDPrefix marks client-generated ids for cards not yet saved.
// The server-assigned id replaces them on successful create.
const TempIDPrefix = "tmp-"

// NewTempID returns a fresh temporary card id.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id was generated client-side.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// Clone returns a deep copy of the card.
func (c Card) Clone() Card {
	out := c
	out.Responsible = append([]UserRef(nil), c.Responsible...)
	out.Tags = append([]Tag(nil), c.Tags...)
	out.Comments = append([]Comment(nil), c.Comments...)
	out.Attachments = append([]Attachment(nil), c.Attachments...)
	return out
}
