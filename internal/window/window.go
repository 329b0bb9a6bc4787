// Package window trims conversation history to what a generation backend
// can take: the opening turn, the latest turns, and as much of the middle as
// the message and token budgets allow.
package window

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type Turn struct {
	Role      string
	Content   string
	Synthetic bool
}

// TokenEstimator approximates how many tokens a piece of text costs.
type TokenEstimator interface {
	Estimate(text string) int
}

// CharEstimator charges one token per four characters, rounded up.
type CharEstimator struct{}

func (CharEstimator) Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

type Options struct {
	MaxMessages int
	TokenBudget int
	KeepLatest  int
	KeepFirst   bool
	Estimator   TokenEstimator
}

// Window returns a chronological subset of history. When middle turns are
// dropped, a system notice saying how many is spliced in after the retained
// first turn.
func Window(history []Turn, opts Options) []Turn {
	if opts.MaxMessages <= 0 || len(history) <= opts.MaxMessages {
		return history
	}
	est := opts.Estimator
	if est == nil {
		est = CharEstimator{}
	}
	keepLatest := opts.KeepLatest
	if keepLatest < 0 {
		keepLatest = 0
	}

	headEnd := 0
	if opts.KeepFirst {
		headEnd = 1
	}
	tailStart := len(history) - keepLatest
	if tailStart < headEnd {
		tailStart = headEnd
	}

	head := history[:headEnd]
	middle := history[headEnd:tailStart]
	tail := history[tailStart:]

	slots := opts.MaxMessages - len(head) - len(tail)
	picked := selectMiddle(middle, slots, opts.TokenBudget, est)

	out := make([]Turn, 0, len(head)+len(picked)+len(tail)+1)
	out = append(out, head...)
	if dropped := len(middle) - len(picked); dropped > 0 {
		out = append(out, Turn{
			Role:      RoleSystem,
			Content:   fmt.Sprintf("[%d earlier messages omitted]", dropped),
			Synthetic: true,
		})
	}
	for _, i := range picked {
		out = append(out, middle[i])
	}
	out = append(out, tail...)
	return out
}

// selectMiddle returns indexes into middle in chronological order. Questions
// are taken first, up to half the token budget; the rest of the budget is
// filled in original order.
func selectMiddle(middle []Turn, slots, budget int, est TokenEstimator) []int {
	if slots <= 0 || budget <= 0 || len(middle) == 0 {
		return nil
	}

	chosen := make(map[int]bool, slots)
	var picked []int
	used := 0

	take := func(i, cost int) {
		chosen[i] = true
		picked = append(picked, i)
		used += cost
	}

	half := budget / 2
	for i, t := range middle {
		if len(picked) >= slots {
			break
		}
		if !strings.Contains(t.Content, "?") {
			continue
		}
		cost := est.Estimate(t.Content)
		if used+cost > half {
			continue
		}
		take(i, cost)
	}

	for i, t := range middle {
		if len(picked) >= slots {
			break
		}
		if chosen[i] {
			continue
		}
		cost := est.Estimate(t.Content)
		if used+cost > budget {
			continue
		}
		take(i, cost)
	}

	sort.Ints(picked)
	return picked
}
