package generate

import (
	"context"
	"strings"
)

// MockGenerator returns canned responses without any network calls. Responses
// are matched against prompt substrings in order; the first match wins.
type MockGenerator struct {
	// Responses maps a prompt substring to its reply.
	Responses map[string]string
	// Fallback is returned when no substring matches.
	Fallback string
	// Err, when set, is returned from every call.
	Err error

	// Prompts records every prompt passed to Generate.
	Prompts []string
}

func (m *MockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	for key, reply := range m.Responses {
		if strings.Contains(prompt, key) {
			return reply, nil
		}
	}
	return m.Fallback, nil
}
