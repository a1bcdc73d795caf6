// Package llmtest provides a scripted TextModel for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"ai-video-generator/llm"
)

// Model replays Responses in order, or calls Func when set.
type Model struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Func      func(req llm.Request) (string, error)
	Requests  []llm.Request
}

func (m *Model) Generate(ctx context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)

	if m.Func != nil {
		return m.Func(req)
	}
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", fmt.Errorf("llmtest: no scripted response for call %d", len(m.Requests))
	}
	resp := m.Responses[0]
	m.Responses = m.Responses[1:]
	return resp, nil
}

// Calls returns how many requests were made.
func (m *Model) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
