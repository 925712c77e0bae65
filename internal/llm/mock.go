package llm

import "context"

// MockClient is a test double for Client.
type MockClient struct {
	ProviderName string
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

func (m *MockClient) Name() string { return m.ProviderName }

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &CompletionResponse{Content: "mock response"}, nil
}

// ScriptedClient replays a fixed sequence of responses, one per Complete
// call, and records every request it receives.
type ScriptedClient struct {
	Responses []*CompletionResponse
	Requests  []CompletionRequest
}

func (s *ScriptedClient) Name() string { return "scripted" }

func (s *ScriptedClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	s.Requests = append(s.Requests, req)
	if len(s.Requests) > len(s.Responses) {
		return nil, &ProviderError{Provider: "scripted", Message: "no scripted response left"}
	}
	return s.Responses[len(s.Requests)-1], nil
}
