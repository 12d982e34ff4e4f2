// Package testutils provides shared fakes for judgebench tests.
package testutils

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/papercomputeco/judgebench/pkg/llm"
)

// Reply is what MockLLM sends back for one call.
type Reply struct {
	Status int
	Body   string
	Delay  time.Duration
}

// Answer is a 200 reply in the chat-completion shape carrying content.
func Answer(content string) Reply {
	return Reply{Status: http.StatusOK, Body: ChatBody(content)}
}

// Status is a reply with the given status code and raw body.
func Status(code int, body string) Reply {
	return Reply{Status: code, Body: body}
}

// ChatBody builds a minimal chat-completion response body.
func ChatBody(content string) string {
	payload, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "mock",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
	return string(payload)
}

// Responder decides the reply for a decoded request. call is the 1-based
// number of the call across the whole server.
type Responder func(req *llm.ChatRequest, call int) Reply

// MockLLM is an httptest chat-completion endpoint that records requests and
// tracks how many calls were in flight at once.
type MockLLM struct {
	server    *httptest.Server
	responder Responder

	mu       sync.Mutex
	requests []*llm.ChatRequest
	headers  []http.Header

	calls       atomic.Int32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

// NewMockLLM starts a server answering with responder.
func NewMockLLM(responder Responder) *MockLLM {
	m := &MockLLM{responder: responder}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

func (m *MockLLM) handle(w http.ResponseWriter, r *http.Request) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		prev := m.maxInFlight.Load()
		if n <= prev || m.maxInFlight.CompareAndSwap(prev, n) {
			break
		}
	}

	call := int(m.calls.Add(1))

	body, _ := io.ReadAll(r.Body)
	req := &llm.ChatRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.headers = append(m.headers, r.Header.Clone())
	m.mu.Unlock()

	reply := m.responder(req, call)
	if reply.Delay > 0 {
		time.Sleep(reply.Delay)
	}
	if reply.Status == 0 {
		reply.Status = http.StatusOK
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.Status)
	_, _ = w.Write([]byte(reply.Body))
}

// URL is the endpoint to POST chat requests to.
func (m *MockLLM) URL() string {
	return m.server.URL + "/v1/chat/completions"
}

// Requests returns the decoded requests in arrival order.
func (m *MockLLM) Requests() []*llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*llm.ChatRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Headers returns the request headers in arrival order.
func (m *MockLLM) Headers() []http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]http.Header, len(m.headers))
	copy(out, m.headers)
	return out
}

// Calls is the number of requests received.
func (m *MockLLM) Calls() int {
	return int(m.calls.Load())
}

// MaxInFlight is the highest number of concurrent requests observed.
func (m *MockLLM) MaxInFlight() int {
	return int(m.maxInFlight.Load())
}

// Close shuts the server down.
func (m *MockLLM) Close() {
	m.server.Close()
}

// LastUserMessage returns the content of the final user message in req.
func LastUserMessage(req *llm.ChatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == llm.RoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}
