package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/brandlens/brandlens-workflows/internal/providers/common"
)

// MockCostService is a mock implementation of CostService for testing
type MockCostService struct {
	CalculateCostFunc func(provider, model string, inputTokens, outputTokens int, webSearch bool) float64
}

func (m *MockCostService) CalculateCost(provider, model string, inputTokens, outputTokens int, webSearch bool) float64 {
	if m.CalculateCostFunc != nil {
		return m.CalculateCostFunc(provider, model, inputTokens, outputTokens, webSearch)
	}
	return 0.0015 // Default mock cost
}

// NewMockCostService creates a new mock cost service
func NewMockCostService() *MockCostService {
	return &MockCostService{}
}

// InvokeCall records one call the MockInvoker received.
type InvokeCall struct {
	ProviderID string
	PromptText string
	Opts       common.InvokeOptions
}

// MockInvoker is a scripted pipeline invoker. InvokeFunc decides each call's
// outcome; every call is recorded for assertions.
type MockInvoker struct {
	InvokeFunc func(providerID, promptText string) (*common.RawResponse, error)

	mu    sync.Mutex
	calls []InvokeCall
}

func (m *MockInvoker) Invoke(ctx context.Context, providerID string, promptText string, opts common.InvokeOptions) (*common.RawResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, InvokeCall{ProviderID: providerID, PromptText: promptText, Opts: opts})
	m.mu.Unlock()

	if m.InvokeFunc != nil {
		return m.InvokeFunc(providerID, promptText)
	}
	return &common.RawResponse{Response: "mock answer for " + promptText}, nil
}

// Calls returns a copy of the recorded calls.
func (m *MockInvoker) Calls() []InvokeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]InvokeCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many invocations the mock has seen.
func (m *MockInvoker) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// MockChatServer is a mock HTTP server for chat-completions style provider
// APIs (Perplexity). Configure the response body and status per test.
type MockChatServer struct {
	Server *httptest.Server

	mu       sync.Mutex
	status   int
	body     interface{}
	headers  http.Header
	requests int
}

// NewMockChatServer starts a server that answers every POST with the
// configured response.
func NewMockChatServer() *MockChatServer {
	m := &MockChatServer{
		status:  http.StatusOK,
		headers: http.Header{},
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		status := m.status
		body := m.body
		headers := m.headers.Clone()
		m.requests++
		m.mu.Unlock()

		for key, values := range headers {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if body != nil {
			json.NewEncoder(w).Encode(body)
		}
	}))
	return m
}

// Respond sets the status and JSON body for subsequent requests.
func (m *MockChatServer) Respond(status int, body interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
	m.body = body
}

// SetHeader sets a response header for subsequent requests.
func (m *MockChatServer) SetHeader(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers.Set(key, value)
}

// Requests returns how many requests the server has served.
func (m *MockChatServer) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

// Close shuts the server down.
func (m *MockChatServer) Close() {
	m.Server.Close()
}
