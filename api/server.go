package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/wricardo/mcp-training/daifugo/game/card"
	"github.com/wricardo/mcp-training/daifugo/game/service"
	"github.com/wricardo/mcp-training/daifugo/game/session"
	"github.com/wricardo/mcp-training/daifugo/transport/rooms"
	"github.com/wricardo/mcp-training/daifugo/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	logger  *slog.Logger
}

// NewServer creates a new API server. hub may be nil, in which case /ws is
// not served.
func NewServer(gameService service.GameService, hub *websocket.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

// Router exposes the mux so callers can mount extra handlers such as /mcp
func (s *Server) Router() *mux.Router {
	return s.router
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Rooms on the game server
	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms/{room}", s.handleCreateRoom).Methods("POST")

	// Session management
	api.HandleFunc("/sessions", s.handleConnect).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleLeave).Methods("DELETE")

	// Game state
	api.HandleFunc("/sessions/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/sessions/{id}/transcript", s.handleGetTranscript).Methods("GET")

	// Intents
	api.HandleFunc("/sessions/{id}/join", s.handleAction(s.service.Join)).Methods("POST")
	api.HandleFunc("/sessions/{id}/start", s.handleAction(s.service.StartGame)).Methods("POST")
	api.HandleFunc("/sessions/{id}/pass", s.handleAction(s.service.Pass)).Methods("POST")
	api.HandleFunc("/sessions/{id}/submit", s.handleAction(s.service.SubmitCards)).Methods("POST")

	// Local selection
	api.HandleFunc("/sessions/{id}/select", s.handleToggle).Methods("POST")
	api.HandleFunc("/sessions/{id}/select", s.handleClearSelection).Methods("DELETE")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	if s.hub != nil {
		s.router.HandleFunc("/ws", s.handleWebSocket)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors onto status codes
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrSessionClosed):
		status = http.StatusConflict
	case errors.Is(err, service.ErrMissingRoom),
		errors.Is(err, service.ErrMissingPlayer),
		errors.Is(err, service.ErrNothingSelected),
		errors.Is(err, service.ErrCardNotInHand):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrRoomsUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, rooms.ErrRoomRequest), errors.Is(err, websocket.ErrTransportClosed):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	respondError(w, status, err.Error())
}

// Room Handlers

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.ListRooms(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(list),
		"rooms": list,
	})
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	room := mux.Vars(r)["room"]

	if err := s.service.CreateRoom(r.Context(), room); err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"message": fmt.Sprintf("Room %s created", room),
		"room":    room,
	})
}

// Session Handlers

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Room   string `json:"room"`
		Player string `json:"player"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	info, err := s.service.Connect(r.Context(), req.Room, req.Player)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.logger.Info("session opened", "session", info.ID, "room", info.Room, "player", info.Player)
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	room := query.Get("room")
	order := query.Get("order") // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit")

	if order == "" {
		order = "desc"
	}

	if room != "" {
		filtered := sessions[:0]
		for _, sess := range sessions {
			if sess.Room == room {
				filtered = append(filtered, sess)
			}
		}
		sessions = filtered
	}

	sort.Slice(sessions, func(i, j int) bool {
		ti, tj := sessions[i].CreatedAt, sessions[j].CreatedAt
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.Leave(r.Context(), sessionID); err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s closed", sessionID),
	})
}

// Game State Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	entries, err := s.service.GetTranscript(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"count":      len(entries),
		"entries":    entries,
	})
}

// Intent Handlers

type actionFunc func(ctx context.Context, sessionID string) (*service.ActionResult, error)

func (s *Server) handleAction(action actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := mux.Vars(r)["id"]

		result, err := action(r.Context(), sessionID)
		if err != nil {
			s.respondServiceError(w, err)
			return
		}

		s.logger.Debug("intent sent", "session", sessionID, "type", result.Sent, "cards", len(result.Cards))
		respondJSON(w, http.StatusOK, result)
	}
}

// selectRequest names a card either in short form ("10H", "JOKER") or by
// its wire fields
type selectRequest struct {
	Card     string    `json:"card,omitempty"`
	Number   *int      `json:"number,omitempty"`
	CardType card.Suit `json:"cardType,omitempty"`
}

func (req selectRequest) card() (card.Card, error) {
	if req.Card != "" {
		return card.Parse(req.Card)
	}
	if req.Number == nil || req.CardType == "" {
		return card.Card{}, errors.New("card or number and cardType required")
	}
	c := card.New(*req.Number, req.CardType)
	if err := c.Validate(); err != nil {
		return card.Card{}, err
	}
	return c, nil
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := req.card()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.ToggleCard(r.Context(), mux.Vars(r)["id"], c)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.ClearSelection(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID, info.State)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
