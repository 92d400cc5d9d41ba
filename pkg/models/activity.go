package models

// ActivityStatus is the lifecycle state of a single tool invocation.
type ActivityStatus string

const (
	// ActivityPending means the start event arrived but the tool has not
	// reported progress yet.
	ActivityPending ActivityStatus = "pending"
	// ActivityRunning means the tool is executing.
	ActivityRunning ActivityStatus = "running"
	// ActivityBackgrounded means the tool yielded control but keeps
	// running; still in flight for status purposes.
	ActivityBackgrounded ActivityStatus = "backgrounded"
	// ActivityCompleted is the successful terminal state.
	ActivityCompleted ActivityStatus = "completed"
	// ActivityError is the failed terminal state.
	ActivityError ActivityStatus = "error"
)

// Terminal reports whether the status is completed or error.
func (s ActivityStatus) Terminal() bool {
	return s == ActivityCompleted || s == ActivityError
}

// ToolActivity is one tool invocation's lifecycle record within a turn.
// It is a view derived from the event stream, never persisted on its own.
type ToolActivity struct {
	ToolUseID       string         `json:"toolUseId"`
	ToolName        string         `json:"toolName"`
	Input           map[string]any `json:"input,omitempty"`
	ParentToolUseID string         `json:"parentToolUseId,omitempty"`
	Result          string         `json:"result,omitempty"`
	IsError         bool           `json:"isError"`
	Done            bool           `json:"done"`
	ElapsedSeconds  float64        `json:"elapsedSeconds,omitempty"`
	Intent          string         `json:"intent,omitempty"`
	DisplayName     string         `json:"displayName,omitempty"`
	Status          ActivityStatus `json:"status"`

	// Display derivations. Absent values mean the derivation did not
	// apply or the payload could not be parsed.
	Summary   string     `json:"summary,omitempty"`
	DiffLines *int       `json:"diffLines,omitempty"`
	Media     []MediaRef `json:"media,omitempty"`
}

// MediaRef is a media reference recovered from a tool result.
type MediaRef struct {
	URL       string `json:"url"`
	MediaType string `json:"mediaType,omitempty"`
}

// ActivityItem is one renderable entry of the aggregated view: either a
// plain activity or a Task group (Children non-nil). Status carries the
// derived group status for groups, the activity's own status otherwise.
type ActivityItem struct {
	Activity *ToolActivity   `json:"activity"`
	Children []*ToolActivity `json:"children,omitempty"`
	Status   ActivityStatus  `json:"status"`
}
