package kanban

// Column is a fixed-status lane on the board. Columns are static
// configuration, not persisted entities.
type Column struct {
	ID    Status `json:"id"`
	Title string `json:"title"`
}

var boardColumns = []Column{
	{ID: StatusBacklog, Title: "Backlog"},
	{ID: StatusToDo, Title: "To Do"},
	{ID: StatusDoing, Title: "Doing"},
	{ID: StatusWaitingResponse, Title: "Waiting Response"},
	{ID: StatusWaitingReview, Title: "Waiting Review"},
	{ID: StatusWaitingTest, Title: "Waiting Test"},
	{ID: StatusBlocked, Title: "Blocked"},
	{ID: StatusBug, Title: "Bug"},
	{ID: StatusComplete, Title: "Complete"},
	{ID: StatusClosed, Title: "Closed"},
}

// Columns returns the ten fixed board columns in display order.
func Columns() []Column {
	out := make([]Column, len(boardColumns))
	copy(out, boardColumns)
	return out
}

// ValidStatus reports whether s is one of the ten column statuses.
func ValidStatus(s Status) bool {
	for _, col := range boardColumns {
		if col.ID == s {
			return true
		}
	}
	return false
}

// ValidPriority reports whether p is one of the three priorities.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityBaixa, PriorityMedia, PriorityUrgente:
		return true
	}
	return false
}
