package chat

import (
	"fmt"
	"strings"

	"github.com/suPer8Hu/rag-chat/internal/rag"
	"github.com/suPer8Hu/rag-chat/internal/window"
)

type PromptInput struct {
	System  string
	Chunks  []rag.ScoredChunk
	History []window.Turn
	Message string
}

// BuildPrompt renders the generation prompt. Sections with nothing in them
// are left out entirely.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	if sys := strings.TrimSpace(in.System); sys != "" {
		b.WriteString(sys)
		b.WriteString("\n\n")
	}

	if len(in.Chunks) > 0 {
		b.WriteString("Context:\n")
		for i, c := range in.Chunks {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, strings.TrimSpace(c.Chunk.Content))
		}
		b.WriteString("\n")
	}

	if len(in.History) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, t := range in.History {
			fmt.Fprintf(&b, "%s: %s\n", roleLabel(t.Role), t.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "User: %s\nAssistant:", in.Message)
	return b.String()
}

func roleLabel(role string) string {
	switch role {
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return "User"
	}
}
