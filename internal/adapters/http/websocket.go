package http

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/fireshield/firewatch/internal/adapters/nats"
	"github.com/fireshield/firewatch/internal/core/domain"
	"github.com/fireshield/firewatch/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to feeds.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Channel string `json:"channel"` // "hotspots" | "risk" | "alerts" | "all"
	Tier    string `json:"tier"`    // risk channel only: "moderate" | "high" ("" = both)
}

// channelSubject maps a client channel to the NATS subject it relays.
func channelSubject(m wsMessage) (string, bool) {
	switch m.Channel {
	case "", "all":
		return natsadapter.SubjectAll, true
	case "hotspots":
		return natsadapter.SubjectHotspotsRefreshed, true
	case "risk":
		switch domain.RiskTier(m.Tier) {
		case "":
			return natsadapter.SubjectRiskPrefix + ">", true
		case domain.RiskModerate, domain.RiskHigh:
			return natsadapter.RiskSubject(domain.RiskTier(m.Tier)), true
		}
		return "", false
	case "alerts":
		return natsadapter.SubjectEmergencyAlert, true
	}
	return "", false
}

// wsSubjects holds the subjects relayed to one connection, mapped to whether
// the client asked for them. The default subscription maps to false. No two
// held subjects overlap, so each event is relayed once.
type wsSubjects map[string]bool

// plan works out what subscribing to subject takes. covering is set when a
// subject the client asked for already relays it. Otherwise drop lists the
// held subjects to release first: the default one when subject narrows it and
// any that subject widens.
func (w wsSubjects) plan(subject string) (drop []string, covering string) {
	if _, ok := w[subject]; ok {
		return nil, subject
	}
	for held, requested := range w {
		if subjectCovers(held, subject) && requested {
			return nil, held
		}
	}
	for held, requested := range w {
		if subjectCovers(subject, held) || (!requested && subjectCovers(held, subject)) {
			drop = append(drop, held)
		}
	}
	sort.Strings(drop)
	return drop, ""
}

// subjectCovers reports whether every subject matched by sub is also matched
// by pattern, using NATS token wildcards.
func subjectCovers(pattern, sub string) bool {
	p := strings.Split(pattern, ".")
	s := strings.Split(sub, ".")
	for i, tok := range p {
		if tok == ">" {
			return len(s) > i
		}
		if i >= len(s) || s[i] == ">" {
			return false
		}
		if tok != "*" && tok != s[i] {
			return false
		}
	}
	return len(p) == len(s)
}

// WebSocketHandler returns a handler that upgrades to WebSocket
// and relays fire events from NATS to connected clients.
// Clients send JSON: {"action":"subscribe","channel":"risk","tier":"high"}
// Every connection starts subscribed to all fire events; subscribing to a
// narrower channel replaces that default.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription) // subject -> subscription

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		relay := func(msg *nats.Msg) {
			_ = writeJSON(map[string]interface{}{
				"subject": msg.Subject,
				"data":    json.RawMessage(msg.Data),
			})
		}

		sub, err := nc.Subscribe(natsadapter.SubjectAll, relay)
		if err != nil {
			slog.Error("ws default subscribe failed", "remote", remoteAddr, "error", err)
			return
		}
		subs[natsadapter.SubjectAll] = sub
		held := wsSubjects{natsadapter.SubjectAll: false}

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			subject, ok := channelSubject(m)
			if !ok {
				_ = writeJSON(map[string]string{"error": "unknown channel: " + m.Channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				drop, covering := held.plan(subject)
				if covering != "" {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": covering})
					continue
				}
				for _, d := range drop {
					_ = subs[d].Unsubscribe()
					delete(subs, d)
				}
				s, err := nc.Subscribe(subject, relay)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					for _, d := range drop {
						if restored, rerr := nc.Subscribe(d, relay); rerr == nil {
							subs[d] = restored
						} else {
							delete(held, d)
						}
					}
					continue
				}
				for _, d := range drop {
					delete(held, d)
				}
				subs[subject] = s
				held[subject] = true
				reply := map[string]interface{}{"status": "subscribed", "subject": subject}
				if len(drop) > 0 {
					reply["replaced"] = drop
				}
				_ = writeJSON(reply)

			case "unsubscribe":
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					delete(held, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
