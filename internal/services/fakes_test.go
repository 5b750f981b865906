package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"
)

// scriptedGenerator answers prompts from a fixed script, then falls back to
// a numbered quiz item. It records every prompt.
type scriptedGenerator struct {
	mu      sync.Mutex
	script  []string
	err     error
	calls   int
	prompts []string
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls++
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	if len(g.script) > 0 {
		out := g.script[0]
		g.script = g.script[1:]
		return out, nil
	}
	return quizJSON(fmt.Sprintf("Q%d", g.calls)), nil
}

func (g *scriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func quizJSON(question string) string {
	return fmt.Sprintf(`{"question":%q,"options":["a","b","c","d"],"correct_index":1}`, question)
}

var slotPattern = regexp.MustCompile(`question (\d+) of (\d+)`)

// slotGenerator answers "S<slot>" for the slot named in the prompt. Earlier
// slots answer later, so completion order is the reverse of slot order.
type slotGenerator struct {
	total int

	mu       sync.Mutex
	inFlight int
	peak     int
}

func (g *slotGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m := slotPattern.FindStringSubmatch(prompt)
	if m == nil {
		return "", fmt.Errorf("prompt without slot")
	}
	slot, _ := strconv.Atoi(m[1])

	g.mu.Lock()
	g.inFlight++
	if g.inFlight > g.peak {
		g.peak = g.inFlight
	}
	g.mu.Unlock()

	time.Sleep(time.Duration(g.total-slot+1) * 5 * time.Millisecond)

	g.mu.Lock()
	g.inFlight--
	g.mu.Unlock()
	return quizJSON(fmt.Sprintf("S%d", slot)), nil
}

func (g *slotGenerator) maxInFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.peak
}
