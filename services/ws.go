package services

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/RelayProject/btcrelay/hub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // CORS policy is enforced by corsMiddleware on the HTTP surface
}

// wsCommand is a client->server control message: auth, "watch relay", or
// "unwatch relay" (spec §6).
type wsCommand struct {
	Type string `json:"type"`
	Key  string `json:"key,omitempty"`
}

const (
	cmdAuth    = "auth"
	cmdWatch   = "watch relay"
	cmdUnwatch = "unwatch relay"

	evtSatisfied = "relay requests satisfied"
)

// handleWebSocket upgrades the connection and runs the auth/watch/unwatch
// protocol against s.hub (spec §4.I, §6).
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("ws: upgrade: %v", err)
		return
	}
	defer conn.Close()

	session := &wsSession{conn: conn, apiKeyHash: s.apiKeyHash, h: s.hub, authed: s.apiKeyHash == ""}
	session.run()
}

// wsSession tracks one connection's auth state and relay-topic
// subscription. gorilla/websocket allows at most one concurrent writer
// per connection; the read loop in run() and the event-forwarding
// goroutine started by startWatching() both write to conn, so every
// conn.Write*/WriteJSON call goes through writeMu.
type wsSession struct {
	conn       *websocket.Conn
	writeMu    sync.Mutex
	apiKeyHash string
	h          *hub.Hub

	authed  bool
	subID   uint64
	watched bool
	done    chan struct{}
}

func (s *wsSession) run() {
	for {
		var cmd wsCommand
		if err := s.conn.ReadJSON(&cmd); err != nil {
			s.stopWatching()
			return
		}

		switch cmd.Type {
		case cmdAuth:
			s.authed = checkAPIKey(s.apiKeyHash, cmd.Key)
			s.reply(s.authed)
		case cmdWatch:
			if !s.authed {
				s.reply(false)
				continue
			}
			s.startWatching()
			s.reply(true)
		case cmdUnwatch:
			s.stopWatching()
			s.reply(true)
		default:
			s.reply(false)
		}
	}
}

func (s *wsSession) reply(ok bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.WriteJSON(map[string]bool{"ok": ok})
}

func (s *wsSession) startWatching() {
	if s.watched {
		return
	}
	id, events := s.h.Subscribe(hub.DefaultBuffer)
	s.subID = id
	s.watched = true
	s.done = make(chan struct{})

	go func(events <-chan hub.SatisfiedEvent, done chan struct{}) {
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				dto := SatisfiedEventDTO{TxID: ev.TxID.String(), Height: ev.Height}
				for _, id := range ev.Satisfied {
					dto.Satisfied = append(dto.Satisfied, id.String())
				}
				payload := map[string]interface{}{"type": evtSatisfied, "payload": dto}
				if data, err := json.Marshal(payload); err == nil {
					s.writeMu.Lock()
					err := s.conn.WriteMessage(websocket.TextMessage, data)
					s.writeMu.Unlock()
					if err != nil {
						return
					}
				}
			case <-done:
				return
			}
		}
	}(events, s.done)
}

func (s *wsSession) stopWatching() {
	if !s.watched {
		return
	}
	s.h.Unsubscribe(s.subID)
	close(s.done)
	s.watched = false
}
