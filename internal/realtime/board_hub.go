package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"partnerpipeline/internal/models"
	"partnerpipeline/internal/services"
)

// Message types exchanged on the kanban board socket.
const (
	TypeMove         = "move"
	TypeStageChanged = "stage_changed"
	TypeMoveRejected = "move_rejected"
	TypeRollback     = "rollback"
	TypeError        = "error"
)

const (
	sendBuffer     = 32
	maxMessageSize = 64 << 10
)

// BoardMessage is the envelope of every frame, in both directions.
type BoardMessage struct {
	Type          string                   `json:"type"`
	OpportunityID string                   `json:"opportunityId,omitempty"`
	FromStage     models.StageID           `json:"fromStage,omitempty"`
	ToStage       models.StageID           `json:"toStage,omitempty"`
	LostReason    string                   `json:"lostReason,omitempty"`
	Event         *models.StageChangeEvent `json:"event,omitempty"`
	Validation    *models.ValidationResult `json:"validation,omitempty"`
	Error         string                   `json:"error,omitempty"`
}

// StageMover performs a committed stage move.
type StageMover interface {
	MoveStage(ctx context.Context, id string, req services.StageMoveRequest, rollback services.RollbackFunc) (*models.Opportunity, models.ValidationResult, error)
}

// EventFilter reports whether a board may see a committed change.
type EventFilter func(ev models.StageChangeEvent) bool

type client struct {
	conn    *websocket.Conn
	send    chan BoardMessage
	actor   string
	mover   StageMover
	visible EventFilter
}

// BoardHub fans committed stage changes out to every open board and turns
// incoming drag-and-drop moves into service calls. A move that fails is
// answered only to its sender, with the state the card must return to.
type BoardHub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}

	mover        StageMover
	log          *logrus.Logger
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
}

func NewBoardHub(mover StageMover, log *logrus.Logger, allowedOrigins []string, writeTimeout time.Duration) *BoardHub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	h := &BoardHub{
		clients:      make(map[*client]struct{}),
		mover:        mover,
		log:          log,
		writeTimeout: writeTimeout,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ClientCount returns the number of connected boards.
func (h *BoardHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request and blocks until the board disconnects. Moves
// from this connection go through mover, or the hub's mover when nil. A nil
// visible lets the board receive every committed change.
func (h *BoardHub) Serve(w http.ResponseWriter, r *http.Request, actor string, mover StageMover, visible EventFilter) {
	if mover == nil {
		mover = h.mover
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("[board][upgrade][err]")
		return
	}
	conn.SetReadLimit(maxMessageSize)
	c := &client{conn: conn, send: make(chan BoardMessage, sendBuffer), actor: actor, mover: mover, visible: visible}
	h.register(c)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(c)
	}()
	h.readLoop(r.Context(), c)
	h.unregister(c)
	<-done
}

// PublishStageChange broadcasts a committed move to every board allowed to see it.
func (h *BoardHub) PublishStageChange(ev models.StageChangeEvent) {
	msg := BoardMessage{
		Type:          TypeStageChanged,
		OpportunityID: ev.OpportunityID,
		FromStage:     ev.FromStage,
		ToStage:       ev.ToStage,
		Event:         &ev,
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.visible != nil && !c.visible(ev) {
			continue
		}
		h.enqueue(c, msg)
	}
}

func (h *BoardHub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *BoardHub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// enqueue must be called with h.mu held.
func (h *BoardHub) enqueue(c *client, msg BoardMessage) {
	select {
	case c.send <- msg:
	default:
		h.log.WithField("actor", c.actor).Warn("[board][send] buffer full, dropping message")
	}
}

func (h *BoardHub) reply(c *client, msg BoardMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; ok {
		h.enqueue(c, msg)
	}
}

func (h *BoardHub) readLoop(ctx context.Context, c *client) {
	for {
		var msg BoardMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.WithError(err).Debug("[board][read] connection closed")
			}
			return
		}
		switch msg.Type {
		case TypeMove:
			h.handleMove(ctx, c, msg)
		default:
			h.reply(c, BoardMessage{Type: TypeError, Error: "unsupported message type"})
		}
	}
}

func (h *BoardHub) handleMove(ctx context.Context, c *client, msg BoardMessage) {
	if msg.OpportunityID == "" || msg.ToStage == "" {
		h.reply(c, BoardMessage{Type: TypeError, OpportunityID: msg.OpportunityID, Error: "opportunityId and toStage are required"})
		return
	}
	rolledBack := false
	rollback := func(prior *models.Opportunity) {
		rolledBack = true
		h.reply(c, BoardMessage{
			Type:          TypeRollback,
			OpportunityID: prior.ID,
			FromStage:     msg.ToStage,
			ToStage:       prior.Stage,
			Error:         "stage change could not be saved",
		})
	}
	_, result, err := c.mover.MoveStage(ctx, msg.OpportunityID, services.StageMoveRequest{
		Target:        msg.ToStage,
		PreviousStage: msg.FromStage,
		LostReason:    msg.LostReason,
		Actor:         c.actor,
	}, rollback)
	switch {
	case err != nil && rolledBack:
		h.log.WithField("id", msg.OpportunityID).WithError(err).Warn("[board][move] rolled back")
	case err != nil:
		h.reply(c, BoardMessage{Type: TypeError, OpportunityID: msg.OpportunityID, Error: err.Error()})
	case !result.IsValid:
		h.reply(c, BoardMessage{
			Type:          TypeMoveRejected,
			OpportunityID: msg.OpportunityID,
			FromStage:     msg.FromStage,
			ToStage:       msg.ToStage,
			Validation:    &result,
		})
	}
}

func (h *BoardHub) writeLoop(c *client) {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			h.log.WithError(err).Debug("[board][write][err]")
			// closing unblocks readLoop; the channel is drained until unregister closes it
			_ = c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = c.conn.Close()
}
