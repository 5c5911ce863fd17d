package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"peace-cake-service/internal/app"
	"peace-cake-service/internal/domain"
)

// WSHandler streams session snapshots to scoreboards and accepts host
// commands over the same connection.
type WSHandler struct {
	game     *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(game *app.GameService) *WSHandler {
	return &WSHandler{
		game: game,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type questionPayload struct {
	QuestionID string `json:"question_id"`
}

type resolvePayload struct {
	QuestionID string `json:"question_id"`
	domain.Resolution
}

type turnPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeSession upgrades the request and keeps the client in sync with the
// session: every change is pushed as a "session" message.
func (h *WSHandler) ServeSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	updates, cancel, err := h.game.Subscribe(r.Context(), sessionID)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusOf(err))
		_ = json.NewEncoder(w).Encode(errorBody{Error: err.Error()})
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer goroutine touches conn for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "session", Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(r, sessionID, inbound); err != nil {
			select {
			case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}:
			case <-writerDone:
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch applies a host command. The resulting snapshot reaches the client
// through the subscription, so only failures are answered directly.
func (h *WSHandler) dispatch(r *http.Request, sessionID string, in inboundMessage) error {
	ctx := r.Context()
	switch in.Type {
	case "start":
		var p questionPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return domain.Invalid("invalid start payload")
		}
		_, err := h.game.StartQuestion(ctx, sessionID, p.QuestionID)
		return err
	case "resolve":
		var p resolvePayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return domain.Invalid("invalid resolve payload")
		}
		_, err := h.game.ResolveQuestion(ctx, sessionID, p.QuestionID, p.Resolution)
		return err
	case "turn":
		var p turnPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return domain.Invalid("invalid turn payload")
		}
		_, err := h.game.SetActiveTurn(ctx, sessionID, p.Index)
		return err
	default:
		return domain.Invalid("unsupported message type %q", in.Type)
	}
}
