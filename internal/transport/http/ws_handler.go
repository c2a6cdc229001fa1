package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"classlive-session-service/internal/app"
	"classlive-session-service/internal/domain"

	"github.com/gorilla/websocket"
)

// WSHandler upgrades clients onto a session's broadcast channel. Hosts
// attach with ?code=X&hostId=H and drive transitions; players attach with
// ?code=X&name=N and submit answers.
type WSHandler struct {
	service  *app.SessionService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.SessionService) *WSHandler {
	return &WSHandler{
		service: service,
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

type answerPayload struct {
	QuestionIndex int `json:"questionIndex"`
	OptionIndex   int `json:"optionIndex"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type joinedPayload struct {
	ParticipantID string          `json:"participantId,omitempty"`
	Snapshot      domain.Snapshot `json:"snapshot"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the live
// session use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	hostID := r.URL.Query().Get("hostId")
	displayName := r.URL.Query().Get("name")
	if code == "" || (hostID == "" && displayName == "") {
		http.Error(w, "missing code, and one of hostId or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	isHost := hostID != ""

	var participantID string
	if !isHost {
		participantID, err = h.service.Join(ctx, code, displayName)
		if err != nil {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			return
		}
	}

	snapshot, err := h.service.Snapshot(ctx, code, participantID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	events, cancel, err := h.service.Subscribe(ctx, code)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	// One writer goroutine per connection; gorilla connections do not allow
	// concurrent writes.
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
		defer close(eventsDone)
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: event.Type, Payload: event.Payload}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: joinedPayload{
		ParticipantID: participantID,
		Snapshot:      snapshot,
	}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.handleMessage(ctx, send, inbound, code, hostID, participantID, isHost)
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handleMessage(ctx context.Context, send chan<- outboundMessage[any], inbound inboundMessage, code, hostID, participantID string, isHost bool) {
	switch inbound.Type {
	case "start", "next", "end":
		if !isHost {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: domain.ErrNotHost.Error()}}
			return
		}
		var err error
		switch inbound.Type {
		case "start":
			err = h.service.Start(ctx, code, hostID)
		case "next":
			err = h.service.Next(ctx, code, hostID)
		case "end":
			err = h.service.End(ctx, code, hostID)
		}
		if err != nil {
			log.Printf("session %s: host action %q rejected: %v", code, inbound.Type, err)
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		}
	case "answer":
		if isHost {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "hosts do not answer"}}
			return
		}
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
			return
		}
		result, err := h.service.SubmitAnswer(ctx, code, participantID, payload.QuestionIndex, payload.OptionIndex)
		if err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			return
		}
		send <- outboundMessage[any]{Type: "answerResult", Payload: result}
	case "resync":
		snapshot, err := h.service.Snapshot(ctx, code, participantID)
		if err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			return
		}
		send <- outboundMessage[any]{Type: "snapshot", Payload: snapshot}
	default:
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
	}
}
