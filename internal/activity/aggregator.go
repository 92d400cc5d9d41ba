// Package activity converts a stream of tool-invocation lifecycle
// events into a grouped, display-ready activity view.
package activity

import (
	"github.com/rs/zerolog/log"

	"github.com/meridianhq/agentdesk/pkg/models"
)

// TaskToolName denotes a sub-agent delegation; activities carrying a
// matching parentToolUseId are grouped under it.
const TaskToolName = "Task"

// EventKind is the lifecycle phase of a tool-activity event.
type EventKind string

const (
	EventStart  EventKind = "start"
	EventUpdate EventKind = "update"
	EventEnd    EventKind = "end"
)

// Event is one tool-activity lifecycle event, delivered per session in
// causal order with stable toolUseId identifiers.
type Event struct {
	Kind            EventKind      `json:"kind"`
	ToolUseID       string         `json:"toolUseId"`
	ToolName        string         `json:"toolName,omitempty"`
	ParentToolUseID string         `json:"parentToolUseId,omitempty"`
	Input           map[string]any `json:"input,omitempty"`
	Result          string         `json:"result,omitempty"`
	IsError         bool           `json:"isError,omitempty"`
	Backgrounded    bool           `json:"backgrounded,omitempty"`
	Intent          string         `json:"intent,omitempty"`
	DisplayName     string         `json:"displayName,omitempty"`
	ElapsedSeconds  float64        `json:"elapsedSeconds,omitempty"`
}

// Aggregator holds the live activity state for one session turn. It is
// a transient projection, rebuildable from the event stream; nothing
// here is persisted.
type Aggregator struct {
	byID  map[string]*models.ToolActivity
	order []string
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{byID: map[string]*models.ToolActivity{}}
}

// Apply folds one event into the activity state. Events for unknown ids
// other than start are dropped with a log line; malformed payloads only
// degrade the display derivations, never the state machine.
func (a *Aggregator) Apply(ev Event) {
	switch ev.Kind {
	case EventStart:
		a.applyStart(ev)
	case EventUpdate:
		a.applyUpdate(ev)
	case EventEnd:
		a.applyEnd(ev)
	default:
		log.Debug().Str("kind", string(ev.Kind)).Str("toolUseId", ev.ToolUseID).Msg("Dropping event of unknown kind")
	}
}

// ApplyAll folds a replayed event sequence in order.
func (a *Aggregator) ApplyAll(events []Event) {
	for _, ev := range events {
		a.Apply(ev)
	}
}

func (a *Aggregator) applyStart(ev Event) {
	if _, exists := a.byID[ev.ToolUseID]; exists {
		log.Debug().Str("toolUseId", ev.ToolUseID).Msg("Duplicate start event ignored")
		return
	}
	act := &models.ToolActivity{
		ToolUseID:       ev.ToolUseID,
		ToolName:        ev.ToolName,
		Input:           ev.Input,
		ParentToolUseID: ev.ParentToolUseID,
		Intent:          ev.Intent,
		DisplayName:     ev.DisplayName,
		Status:          models.ActivityPending,
	}
	act.Summary = SummarizeInput(ev.ToolName, ev.Input)
	if delta, ok := DiffLineDelta(ev.ToolName, ev.Input); ok {
		act.DiffLines = &delta
	}
	a.byID[ev.ToolUseID] = act
	a.order = append(a.order, ev.ToolUseID)
}

func (a *Aggregator) applyUpdate(ev Event) {
	act, ok := a.byID[ev.ToolUseID]
	if !ok {
		log.Debug().Str("toolUseId", ev.ToolUseID).Msg("Update for unknown activity dropped")
		return
	}
	if act.Done {
		log.Debug().Str("toolUseId", ev.ToolUseID).Msg("Update after terminal event ignored")
		return
	}
	if ev.Input != nil {
		act.Input = ev.Input
		act.Summary = SummarizeInput(act.ToolName, ev.Input)
		if delta, ok := DiffLineDelta(act.ToolName, ev.Input); ok {
			act.DiffLines = &delta
		}
	}
	if ev.Intent != "" {
		act.Intent = ev.Intent
	}
	if ev.DisplayName != "" {
		act.DisplayName = ev.DisplayName
	}
	if ev.ElapsedSeconds > 0 {
		act.ElapsedSeconds = ev.ElapsedSeconds
	}
	if ev.Backgrounded {
		act.Status = models.ActivityBackgrounded
	} else {
		act.Status = models.ActivityRunning
	}
}

func (a *Aggregator) applyEnd(ev Event) {
	act, ok := a.byID[ev.ToolUseID]
	if !ok {
		log.Debug().Str("toolUseId", ev.ToolUseID).Msg("End for unknown activity dropped")
		return
	}
	if act.Done {
		log.Debug().Str("toolUseId", ev.ToolUseID).Msg("Duplicate terminal event ignored")
		return
	}
	act.Result = ev.Result
	act.IsError = ev.IsError
	act.Done = true
	if ev.ElapsedSeconds > 0 {
		act.ElapsedSeconds = ev.ElapsedSeconds
	}
	if ev.IsError {
		act.Status = models.ActivityError
	} else {
		act.Status = models.ActivityCompleted
	}
	act.Media = ExtractMedia(ev.Result)
}

// Get returns the activity for a tool use id, if present.
func (a *Aggregator) Get(toolUseID string) (*models.ToolActivity, bool) {
	act, ok := a.byID[toolUseID]
	return act, ok
}

// Len returns the number of tracked activities.
func (a *Aggregator) Len() int {
	return len(a.order)
}

// View resolves the two-level Task hierarchy into renderable items:
// Task parents carry their children in arrival order and a derived
// group status; activities with no matching parent stay top-level in
// arrival order.
func (a *Aggregator) View() []models.ActivityItem {
	parents := map[string]int{}
	var items []models.ActivityItem

	for _, id := range a.order {
		act := a.byID[id]

		if act.ParentToolUseID != "" {
			if pos, ok := parents[act.ParentToolUseID]; ok {
				items[pos].Children = append(items[pos].Children, act)
				continue
			}
			// No matching Task parent: fall through to top level.
		}

		item := models.ActivityItem{Activity: act, Status: act.Status}
		items = append(items, item)
		if act.ToolName == TaskToolName {
			parents[act.ToolUseID] = len(items) - 1
		}
	}

	for i := range items {
		if items[i].Children != nil {
			items[i].Status = groupStatus(items[i].Activity, items[i].Children)
		}
	}
	return items
}

// groupStatus derives a Task group's status. The parent's own terminal
// signal is authoritative; otherwise fully finished children jointly
// imply a terminal status; otherwise the group mirrors the parent.
func groupStatus(parent *models.ToolActivity, children []*models.ToolActivity) models.ActivityStatus {
	if parent.Status.Terminal() {
		return parent.Status
	}

	if len(children) > 0 {
		allDone := true
		anyError := false
		for _, child := range children {
			if !child.Done {
				allDone = false
				break
			}
			if child.IsError {
				anyError = true
			}
		}
		if allDone {
			if anyError {
				return models.ActivityError
			}
			return models.ActivityCompleted
		}
	}

	return parent.Status
}
