package service

import (
	"context"
	"fmt"

	"voice-aftercare/model"
	"voice-aftercare/service/flows"
)

// StageHandler one stage of the dialogue graph
// Return values:
//   - reply: text for the caller, may be empty when the stage only routes
//   - next: stage after this handler
//   - advance: run next's handler within the same turn
//   - err: processing failure, turned into the safe reply by the caller
type StageHandler func(ctx context.Context, st *model.ConversationState, userMessage string) (reply string, next model.Stage, advance bool, err error)

// FlowRegistry stage -> handler transition table
type FlowRegistry map[model.Stage]StageHandler

// NewFlowRegistry wires every stage to its script handler
func NewFlowRegistry(script *flows.Script) FlowRegistry {
	return FlowRegistry{
		model.StageGreeting:          script.HandleGreeting,
		model.StageUrgencyCheck:      script.HandleUrgencyCheck,
		model.StageSlotFilling:       script.HandleSlotFilling,
		model.StageEmergencyGuidance: script.HandleEmergencyGuidance,
		model.StageComplete:          script.HandleComplete,
	}
}

// Run walks the table from st.Stage, chaining while handlers ask to advance.
// It returns the reply parts in order and every stage visited.
func (r FlowRegistry) Run(ctx context.Context, st *model.ConversationState, userMessage string) ([]string, []model.Stage, error) {
	var replies []string
	visited := []model.Stage{st.Stage}

	// each stage at most once per turn
	for hops := 0; hops <= len(r); hops++ {
		handler, ok := r[st.Stage]
		if !ok {
			return replies, visited, fmt.Errorf("no handler for stage %s", st.Stage)
		}
		reply, next, advance, err := handler(ctx, st, userMessage)
		if err != nil {
			return replies, visited, fmt.Errorf("stage %s: %w", st.Stage, err)
		}
		if reply != "" {
			replies = append(replies, reply)
		}
		if next != st.Stage {
			visited = append(visited, next)
		}
		st.Stage = next
		if !advance {
			return replies, visited, nil
		}
	}
	return replies, visited, fmt.Errorf("stage chain did not settle at %s", st.Stage)
}
