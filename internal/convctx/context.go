// ABOUTME: Per-conversation working set of recent messages plus trimming strategies.
// ABOUTME: Strategies bound the working set once it outgrows the configured limit.

package convctx

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/strandlabs/strand/internal/store"
)

// Context optimization strategies
const (
	StrategySlidingWindow = "sliding_window"
	StrategySummarize     = "summarize"
	StrategyHybrid        = "hybrid"
)

const (
	// keepRecent messages survive verbatim when older history is digested.
	keepRecent = 10
	// keepLeading messages survive verbatim under the hybrid strategy,
	// preserving the conversation's initial framing.
	keepLeading = 3
)

// Context is a read-only snapshot of one conversation's working set.
type Context struct {
	ConversationID string
	Messages       []store.Message
	LastActive     time.Time
}

// entry is the mutable cached working set behind a Context snapshot.
// Each entry carries its own lock so conversations never contend.
type entry struct {
	conversationID string
	messages       []store.Message
	lastActive     time.Time
}

// applyStrategy trims messages according to the strategy, preserving the
// relative order of everything it keeps. Callers hold the entry lock.
func applyStrategy(strategy string, messages []store.Message, maxMessages int) []store.Message {
	if len(messages) <= maxMessages {
		return messages
	}

	switch strategy {
	case StrategySummarize:
		keep := min(keepRecent, len(messages))
		collapsed := messages[:len(messages)-keep]
		if len(collapsed) == 0 {
			return messages
		}
		recent := messages[len(messages)-keep:]
		out := make([]store.Message, 0, keep+1)
		out = append(out, summaryMessage(collapsed, "Previous conversation summary: "))
		return append(out, recent...)

	case StrategyHybrid:
		lead := min(keepLeading, len(messages))
		keep := min(keepRecent, len(messages)-lead)
		leading := messages[:lead]
		recent := messages[len(messages)-keep:]
		middle := messages[lead : len(messages)-keep]
		out := make([]store.Message, 0, lead+keep+1)
		out = append(out, leading...)
		if len(middle) > 0 {
			out = append(out, summaryMessage(middle, "Conversation summary: "))
		}
		return append(out, recent...)

	default: // StrategySlidingWindow
		trimmed := make([]store.Message, maxMessages)
		copy(trimmed, messages[len(messages)-maxMessages:])
		return trimmed
	}
}

// summaryMessage collapses a message range into one synthetic system message.
// Its timestamp is the last collapsed message's so ordering is preserved.
func summaryMessage(collapsed []store.Message, prefix string) store.Message {
	return store.Message{
		ID:             uuid.New().String(),
		ConversationID: collapsed[0].ConversationID,
		Role:           store.RoleSystem,
		Content:        prefix + digest(collapsed),
		Timestamp:      collapsed[len(collapsed)-1].Timestamp,
	}
}

// digest produces a deterministic human-readable summary of a message range.
// The same input always yields the same digest.
func digest(messages []store.Message) string {
	var userTopics, assistantTopics []string
	for _, msg := range messages {
		switch msg.Role {
		case store.RoleUser:
			if len(userTopics) < 3 {
				userTopics = append(userTopics, msg.Content)
			}
		case store.RoleAssistant:
			if len(assistantTopics) < 3 {
				assistantTopics = append(assistantTopics, msg.Content)
			}
		}
	}

	var parts []string
	if len(userTopics) > 0 {
		parts = append(parts, "User discussed: "+strings.Join(userTopics, ", "))
	}
	if len(assistantTopics) > 0 {
		parts = append(parts, "Assistant responded with: "+strings.Join(assistantTopics, ", "))
	}
	if len(parts) == 0 {
		return "Previous conversation content"
	}
	return strings.Join(parts, ". ")
}
