package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"

	"github.com/wricardo/gridsnake/game/engine"
	"github.com/wricardo/gridsnake/game/service"
	"github.com/wricardo/gridsnake/transport/chat"
	"github.com/wricardo/gridsnake/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	bot     *chat.Bot
	router  *mux.Router
}

// NewServer creates a new API server. hub and bot are optional; without them
// the /ws and /api/chat routes are not mounted. The hub's input is routed to
// the game service.
func NewServer(gameService service.GameService, hub *websocket.Hub, bot *chat.Bot) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		bot:     bot,
		router:  mux.NewRouter(),
	}

	if hub != nil {
		hub.SetInputHandler(gameService.SendInput)
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Rounds
	api.HandleFunc("/sessions", s.handleStartRound).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{location}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{location}/input", s.handleInput).Methods("POST")
	api.HandleFunc("/sessions/{location}/rankings", s.handleRankings).Methods("GET")
	api.HandleFunc("/sessions/{location}/board", s.handleBoard).Methods("GET")

	// Finished rounds
	api.HandleFunc("/results", s.handleListResults).Methods("GET")
	api.HandleFunc("/results/{id}", s.handleGetResult).Methods("GET")

	// Chat adapter
	if s.bot != nil {
		api.HandleFunc("/chat/{location}", s.handleChatStatus).Methods("GET")
		api.HandleFunc("/chat/{location}/messages", s.handleChatMessage).Methods("POST")
		api.HandleFunc("/chat/{location}/reactions", s.handleChatReaction).Methods("POST")
	}

	api.HandleFunc("/help", s.handleHelp).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

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

// errorStatus maps service errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrResultNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrRoundInProgress):
		return http.StatusConflict
	}
	var rejected *service.RejectedError
	if errors.As(err, &rejected) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func listOptions(r *http.Request, defaultOrder string) service.ListOptions {
	opts := service.ListOptions{Order: defaultOrder}

	query := r.URL.Query()
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	return opts
}

// Round Handlers

func (s *Server) handleStartRound(w http.ResponseWriter, r *http.Request) {
	var req service.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Location == "" {
		respondError(w, http.StatusBadRequest, "location is required")
		return
	}

	info, err := s.service.StartRound(r.Context(), req)
	if err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}

	log.Info().Str("location", info.Location).Str("round", info.Round).Str("mode", info.Mode).
		Int("players", len(info.Players)).Msg("Round started")
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r, "asc")

	sessions, err := s.service.ListSessions(r.Context(), opts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"sessions": sessions,
		"order":    opts.Order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	location := mux.Vars(r)["location"]

	info, err := s.service.GetSession(r.Context(), location)
	if err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// inputRequest accepts player ids as JSON strings or numbers
type inputRequest struct {
	PlayerID interface{} `json:"player_id"`
	Action   string      `json:"action"`
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	location := mux.Vars(r)["location"]

	var req inputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	playerID, err := cast.ToUint64E(req.PlayerID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid player_id")
		return
	}
	action, ok := engine.ParseAction(req.Action)
	if !ok {
		respondError(w, http.StatusBadRequest, "unknown action: "+req.Action)
		return
	}

	queued, err := s.service.SendInput(r.Context(), location, service.Input{PlayerID: playerID, Action: action})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Debug().Str("location", location).Uint64("player", playerID).Stringer("action", action).
		Bool("queued", queued).Msg("Input")
	respondJSON(w, http.StatusAccepted, map[string]bool{"queued": queued})
}

func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	location := mux.Vars(r)["location"]

	rankings, err := s.service.GetRankings(r.Context(), location)
	if err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"location": location,
		"rankings": rankings,
	})
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	location := mux.Vars(r)["location"]

	board, err := s.service.GetBoard(r.Context(), location)
	if err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(board + "\n"))
}

// Result Handlers

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r, "desc")

	results, err := s.service.ListResults(r.Context(), opts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(results),
		"results": results,
		"order":   opts.Order,
	})
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	summary, err := s.service.GetResult(r.Context(), id)
	if err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// Chat Handlers

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	location := mux.Vars(r)["location"]

	var req struct {
		Author  chat.Author `json:"author"`
		Content string      `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reply, err := s.bot.HandleMessage(r.Context(), location, req.Author, req.Content)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) handleChatReaction(w http.ResponseWriter, r *http.Request) {
	location := mux.Vars(r)["location"]

	var req struct {
		UserID interface{} `json:"user_id"`
		Emoji  string      `json:"emoji"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID, err := cast.ToUint64E(req.UserID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	queued, err := s.bot.HandleReaction(r.Context(), location, userID, req.Emoji)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]bool{"queued": queued})
}

func (s *Server) handleChatStatus(w http.ResponseWriter, r *http.Request) {
	location := mux.Vars(r)["location"]

	status, ok := s.bot.Status(location)
	if !ok {
		respondError(w, http.StatusNotFound, "no status message for location "+location)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"location": location,
		"status":   status,
	})
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"help": s.service.Help(r.Context())})
}

// WebSocket Handler

// handleWebSocket attaches a viewer to a location. The round does not have to
// be running yet; frames start flowing once one is.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	if location == "" {
		http.Error(w, "location parameter required", http.StatusBadRequest)
		return
	}

	s.hub.ServeWS(w, r, location)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
