package mockserver

import (
	"sync"
	"time"
)

// storedMessage mirrors the persistence shape of the real backend:
// type is the LangGraph message class (human, ai, tool).
type storedMessage struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	ToolName string `json:"name,omitempty"`
}

type thread struct {
	id       string
	messages []storedMessage
	updated  time.Time
}

// store keeps conversations in memory, newest first on listing
type store struct {
	mu      sync.RWMutex
	threads map[string]*thread
	order   []string
}

func newStore() *store {
	return &store{
		threads: make(map[string]*thread),
	}
}

func (s *store) append(threadID string, msgs ...storedMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	th, ok := s.threads[threadID]
	if !ok {
		th = &thread{id: threadID}
		s.threads[threadID] = th
		s.order = append(s.order, threadID)
	}
	th.messages = append(th.messages, msgs...)
	th.updated = time.Now()
}

func (s *store) list() []*thread {
	s.mu.RLock()
	defer s.mu.RUnlock()

	threads := make([]*thread, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if th, ok := s.threads[s.order[i]]; ok {
			threads = append(threads, th)
		}
	}
	return threads
}

func (s *store) messages(threadID string) ([]storedMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	th, ok := s.threads[threadID]
	if !ok {
		return nil, false
	}
	msgs := make([]storedMessage, len(th.messages))
	copy(msgs, th.messages)
	return msgs, true
}

func (s *store) delete(threadID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.threads[threadID]; !ok {
		return false
	}
	delete(s.threads, threadID)
	for i, id := range s.order {
		if id == threadID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (th *thread) preview() string {
	if len(th.messages) == 0 {
		return "No messages yet"
	}
	content := th.messages[0].Content
	if len(content) > 50 {
		return content[:50] + "..."
	}
	return content
}
