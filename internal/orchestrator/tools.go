// ABOUTME: Concurrent tool fan-out for one turn.
// ABOUTME: Tool failures degrade to omitted contributions; they never abort the turn.

package orchestrator

import (
	"context"
	"sync"

	"github.com/strandlabs/strand/internal/intent"
	"github.com/strandlabs/strand/internal/tool"
)

// toolOutcome is the result of one tool invocation within a turn.
type toolOutcome struct {
	name   string
	result tool.Result
}

// executeTools runs the routed invocations concurrently and collects the
// outcomes in invocation order. Registry-level errors (not found, disabled,
// invalid parameters) drop the invocation entirely; runtime failures keep
// their slot so they surface in tools-used metadata.
func (o *Orchestrator) executeTools(ctx context.Context, invocations []intent.Invocation) []toolOutcome {
	if len(invocations) == 0 {
		return nil
	}

	outcomes := make([]*toolOutcome, len(invocations))
	var wg sync.WaitGroup
	for i, inv := range invocations {
		wg.Add(1)
		go func(i int, inv intent.Invocation) {
			defer wg.Done()

			result, err := o.registry.Execute(ctx, inv.Tool, inv.Parameters)
			if err != nil {
				o.logger.Warn("tool invocation rejected",
					"tool_name", inv.Tool,
					"error", err,
				)
				return
			}
			if !result.Success {
				o.logger.Warn("tool execution failed",
					"tool_name", inv.Tool,
					"error", result.Error,
				)
			}
			outcomes[i] = &toolOutcome{name: inv.Tool, result: result}
		}(i, inv)
	}
	wg.Wait()

	collected := make([]toolOutcome, 0, len(invocations))
	for _, outcome := range outcomes {
		if outcome != nil {
			collected = append(collected, *outcome)
		}
	}
	return collected
}
