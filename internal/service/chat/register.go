package chat

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"

	"github.com/oggyb/catmatch/internal/app"
	"github.com/oggyb/catmatch/internal/auth"
	"github.com/oggyb/catmatch/internal/db"
	"github.com/oggyb/catmatch/internal/logger"
	"github.com/oggyb/catmatch/internal/server"
)

// Registrar ties the Chat service into the HTTP router
type Registrar struct {
	service        *Service
	originPatterns []string
}

// NewRegistrar creates a new Registrar for the Chat service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{
		service:        NewChatService(appCtx),
		originPatterns: originPatterns(appCtx.Config.HTTP.AllowedOrigins),
	}
}

// Service returns the underlying chat service.
func (r *Registrar) Service() *Service {
	return r.service
}

func (r *Registrar) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/messages", r.post).Methods(http.MethodPost)
	router.HandleFunc("/messages/{matchId}", r.list).Methods(http.MethodGet)
	router.HandleFunc("/messages/{matchId}/read", r.markRead).Methods(http.MethodPost)
	router.HandleFunc("/messages/{matchId}/stream", r.stream).Methods(http.MethodGet)
}

type listResponse struct {
	Messages   []db.Message `json:"messages"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

func (r *Registrar) list(w http.ResponseWriter, req *http.Request) {
	p, _ := auth.PrincipalFrom(req.Context())
	matchID := mux.Vars(req)["matchId"]

	messages, next, err := r.service.List(req.Context(), matchID, p.UID, req.URL.Query().Get("after"))
	if err != nil {
		server.WriteError(w, req, err)
		return
	}
	if messages == nil {
		messages = []db.Message{}
	}
	server.WriteJSON(w, http.StatusOK, listResponse{Messages: messages, NextCursor: next})
}

type postRequest struct {
	MatchID string `json:"matchId"`
	Content string `json:"content"`
}

func (r *Registrar) post(w http.ResponseWriter, req *http.Request) {
	var body postRequest
	if err := server.DecodeJSON(req, &body); err != nil {
		server.WriteError(w, req, err)
		return
	}

	p, _ := auth.PrincipalFrom(req.Context())
	msg, err := r.service.Post(req.Context(), body.MatchID, p.UID, body.Content)
	if err != nil {
		server.WriteError(w, req, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"message": msg})
}

func (r *Registrar) markRead(w http.ResponseWriter, req *http.Request) {
	p, _ := auth.PrincipalFrom(req.Context())
	if err := r.service.MarkRead(req.Context(), mux.Vars(req)["matchId"], p.UID); err != nil {
		server.WriteError(w, req, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// stream relays new messages of a match over a websocket until either side
// goes away. Clients still poll for history; this only carries what arrives
// after the subscription.
func (r *Registrar) stream(w http.ResponseWriter, req *http.Request) {
	p, _ := auth.PrincipalFrom(req.Context())
	matchID := mux.Vars(req)["matchId"]
	log := logger.FromContext(req.Context(), r.service.appCtx.Logger).With("match_id", matchID)

	sub, err := r.service.Subscribe(req.Context(), matchID, p.UID)
	if err != nil {
		server.WriteError(w, req, err)
		return
	}
	defer sub.Close()

	c, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		OriginPatterns: r.originPatterns,
	})
	if err != nil {
		log.Warn("websocket accept failed", "err", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "stream closed")

	// we never expect client frames; CloseRead handles pings and the close
	ctx := c.CloseRead(req.Context())
	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			c.Close(websocket.StatusNormalClosure, "")
			return
		case msg, ok := <-ch:
			if !ok {
				c.Close(websocket.StatusGoingAway, "subscription ended")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.Write(writeCtx, websocket.MessageText, []byte(msg.Payload))
			cancel()
			if err != nil {
				log.Debug("websocket write failed", "err", err)
				return
			}
		}
	}
}

// originPatterns turns configured CORS origins into host patterns.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return patterns
}
