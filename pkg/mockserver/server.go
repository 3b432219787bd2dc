// Package mockserver is a self-contained development stand-in for the
// real chat backend. It speaks the same wire protocol as the streaming
// chat endpoint and the history API, backed by scripted responses and
// an in-memory store, so the client can be exercised offline.
package mockserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/loomlabs/loom/pkg/logger"
)

// Server serves the development chat backend
type Server struct {
	responder  Responder
	store      *store
	chunkDelay time.Duration
}

// Option configures a Server
type Option func(*Server)

// WithResponder replaces the default echo script
func WithResponder(r Responder) Option {
	return func(s *Server) {
		s.responder = r
	}
}

// WithChunkDelay sets the pause between streamed records. Zero means
// no pacing, which is what tests want.
func WithChunkDelay(d time.Duration) Option {
	return func(s *Server) {
		s.chunkDelay = d
	}
}

// New creates a development server
func New(opts ...Option) *Server {
	s := &Server{
		responder: EchoResponder{},
		store:     newStore(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the chi router with the backend's route surface
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/ping", s.handlePing)
	r.Get("/providers/active", s.handleActiveProvider)
	r.Post("/chat", s.handleChat)
	r.Post("/chat/stream", s.handleChatStream)

	r.Route("/history", func(r chi.Router) {
		r.Get("/", s.handleListConversations)
		r.Get("/{threadID}", s.handleConversationDetail)
		r.Delete("/{threadID}", s.handleDeleteConversation)
	})

	return r
}

// ListenAndServe runs the server until it fails or the process exits
func (s *Server) ListenAndServe(addr string) error {
	server := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	logger.Info("Development server listening on %s", addr)
	return server.ListenAndServe()
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "pong")
}

func (s *Server) handleActiveProvider(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"provider": "mock"})
}

type chatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	var reply strings.Builder
	for _, record := range s.responder.Respond(req.Message) {
		if record.Type == "text" {
			reply.WriteString(record.Content)
		}
	}

	s.record(req, reply.String(), nil)
	writeJSON(w, http.StatusOK, map[string]string{"content": reply.String()})
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	records := s.responder.Respond(req.Message)

	var reply strings.Builder
	var tools []storedMessage
	for _, record := range records {
		payload, err := json.Marshal(map[string]Record{"message": record})
		if err != nil {
			logger.Error("Failed to marshal stream record: %v", err)
			continue
		}

		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()

		switch record.Type {
		case "text":
			reply.WriteString(record.Content)
		case "tool_result":
			tools = append(tools, storedMessage{Type: "tool", Content: record.Content, ToolName: record.ToolName})
		}

		if s.chunkDelay > 0 {
			select {
			case <-r.Context().Done():
				logger.Debug("Client abandoned stream for thread %s", req.ThreadID)
				return
			case <-time.After(s.chunkDelay):
			}
		}
	}

	s.record(req, reply.String(), tools)
}

func (s *Server) decodeChatRequest(w http.ResponseWriter, r *http.Request) (chatRequest, bool) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return chatRequest{}, false
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return chatRequest{}, false
	}
	if req.ThreadID == "" {
		req.ThreadID = uuid.NewString()
	}
	return req, true
}

// record persists one completed turn into the in-memory history
func (s *Server) record(req chatRequest, reply string, tools []storedMessage) {
	msgs := []storedMessage{{Type: "human", Content: req.Message}}
	msgs = append(msgs, tools...)
	if reply != "" {
		msgs = append(msgs, storedMessage{Type: "ai", Content: reply})
	}
	s.store.append(req.ThreadID, msgs...)
}

func (s *Server) handleListConversations(w http.ResponseWriter, _ *http.Request) {
	type conversation struct {
		ThreadID      string `json:"thread_id"`
		LastMessageTS string `json:"last_message_ts"`
		Preview       string `json:"preview"`
	}

	conversations := make([]conversation, 0)
	for _, th := range s.store.list() {
		conversations = append(conversations, conversation{
			ThreadID:      th.id,
			LastMessageTS: th.updated.Format(time.RFC3339),
			Preview:       th.preview(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

func (s *Server) handleConversationDetail(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	msgs, ok := s.store.messages(threadID)
	if !ok {
		// The real backend answers an unknown thread with an empty list
		msgs = []storedMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	if !s.store.delete(threadID) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "conversation not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}
