package main

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 150 // headsets stream poses at up to 90 Hz
	maxNameLen        = 16
	maxSessionNameLen = 30

	binaryMarker = 0xFF // SendBinary prefix understood by WritePump
	binaryPose   = 0x02 // inbound msgpack-encoded PoseMsg
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	id         ConnID
	remoteAddr string
	msgCount   int
	msgResetAt time.Time

	mu        sync.Mutex
	sessionID string
	identity  Identity
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		id:         hub.NextConnID(),
		remoteAddr: remoteAddr,
	}
}

// Session returns the id of the session the client is in, "" if none
func (c *Client) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) setSession(id string) {
	c.mu.Lock()
	c.sessionID = id
	c.mu.Unlock()
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Uint64("conn", uint64(c.id)).Msg("ws error")
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Warn().Str("addr", c.remoteAddr).Msg("rate limit exceeded, disconnecting")
			break
		}

		if msgType == websocket.BinaryMessage && len(message) > 1 && message[0] == binaryPose {
			c.handleBinaryPose(message[1:])
		} else {
			c.handleMessage(message)
		}
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			var err error
			if len(message) > 0 && message[0] == binaryMarker {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("marshal error")
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message.
// Prefixes with a marker byte so WritePump can distinguish from text.
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = binaryMarker
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}

// arena returns the arena the client has joined
func (c *Client) arena() *Arena {
	sid := c.Session()
	if sid == "" {
		return nil
	}
	sess := c.hub.sessions.GetSession(sid)
	if sess == nil {
		return nil
	}
	return sess.Arena
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Debug().Err(err).Uint64("conn", uint64(c.id)).Msg("unmarshal error")
		return
	}

	switch env.T {
	case MsgList:
		c.handleList()
	case MsgCreate:
		c.handleCreate(env.D)
	case MsgJoin:
		c.handleJoin(env.D)
	case MsgLeave:
		c.handleLeave()
	case MsgCheck:
		c.handleCheck(env.D)
	case MsgRegister:
		c.handleRegister(env.D)
	case MsgLogin:
		c.handleLogin(env.D)
	case MsgAuth:
		c.handleAuth(env.D)
	case MsgProfile:
		c.handleProfile()
	default:
		c.handleArenaMessage(env)
	}
}

// handleArenaMessage routes in-match requests. Rejections are expected racy
// input and are only logged by the arena.
func (c *Client) handleArenaMessage(env InEnvelope) {
	a := c.arena()
	if a == nil {
		return
	}
	switch env.T {
	case MsgPose:
		var msg PoseMsg
		if json.Unmarshal(env.D, &msg) == nil {
			a.HandlePose(c.id, msg)
		}
	case MsgGrab:
		var msg GrabMsg
		if json.Unmarshal(env.D, &msg) == nil {
			a.HandleGrab(c.id, msg)
		}
	case MsgDrop:
		var msg BallMsg
		if json.Unmarshal(env.D, &msg) == nil {
			a.HandleDrop(c.id, msg)
		}
	case MsgThrow:
		var msg ThrowMsg
		if json.Unmarshal(env.D, &msg) == nil {
			a.HandleThrow(c.id, msg)
		}
	case MsgHit:
		var msg HitMsg
		if json.Unmarshal(env.D, &msg) == nil {
			a.HandleHit(c.id, msg)
		}
	case MsgBallMotion:
		var msg BallMotionMsg
		if json.Unmarshal(env.D, &msg) == nil {
			a.HandleBallMotion(c.id, msg)
		}
	case MsgStart:
		if err := a.HandleStart(c.id); err != nil {
			log.Debug().Err(err).Uint64("conn", uint64(c.id)).Msg("start rejected")
		}
	case MsgReset:
		a.HandleReset(c.id)
	case MsgReady:
		a.HandleReady(c.id)
	case MsgSwitchSide:
		if err := a.HandleSwitchSide(c.id); err != nil {
			log.Debug().Err(err).Uint64("conn", uint64(c.id)).Msg("side switch rejected")
		}
	}
}

// handleBinaryPose decodes a msgpack pose frame
func (c *Client) handleBinaryPose(payload []byte) {
	a := c.arena()
	if a == nil {
		return
	}
	var msg PoseMsg
	if err := msgpack.Unmarshal(payload, &msg); err != nil {
		return
	}
	a.HandlePose(c.id, msg)
}

func (c *Client) handleList() {
	sessions := c.hub.sessions.ListSessions()
	c.SendJSON(Envelope{T: MsgSessions, Data: sessions})
}

func (c *Client) handleCreate(data json.RawMessage) {
	var msg CreateMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	sname := msg.SessionName
	if sname == "" {
		sname = "Dodgeball Court"
	}
	sname = TruncateRunes(sname, maxSessionNameLen)

	sess := c.hub.sessions.CreateSession(sname)
	if sess == nil {
		c.sendError("too many active sessions")
		return
	}

	c.hub.sessions.MarkActive(sess.ID)
	c.SendJSON(Envelope{T: MsgCreated, Data: map[string]string{"sid": sess.ID}})
}

// ensureIdentity issues a guest identity to a client that never authenticated
func (c *Client) ensureIdentity(name string) (Identity, bool) {
	c.mu.Lock()
	id := c.identity
	c.mu.Unlock()
	if id.StableID != "" {
		return id, true
	}
	id, token, err := c.hub.auth.Guest(name)
	if err != nil {
		c.sendError(err.Error())
		return Identity{}, false
	}
	c.setIdentity(id)
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{Token: token, Username: id.Name, StableID: id.StableID, Guest: true}})
	return id, true
}

func (c *Client) setIdentity(id Identity) {
	c.mu.Lock()
	c.identity = id
	c.mu.Unlock()
}

func (c *Client) handleJoin(data json.RawMessage) {
	var msg JoinMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	name := TruncateRunes(msg.Name, maxNameLen)
	id, ok := c.ensureIdentity(name)
	if !ok {
		return
	}
	if name != "" {
		id.Name = name
	}

	sess := c.hub.sessions.GetOrRestore(msg.SessionID)
	if sess == nil {
		c.sendError("session not found")
		return
	}
	if cur := c.Session(); cur != "" {
		c.hub.sessions.RemovePlayer(cur, c.id)
	}

	if _, err := sess.Arena.Join(c.id, c, id, msg.Spectator, msg.Pos); err != nil {
		switch {
		case errors.Is(err, ErrDuplicateConnection):
			c.sendError("already connected from another device")
		case errors.Is(err, ErrSessionFull):
			c.sendError("session full")
		default:
			c.sendError("could not join")
		}
		c.setSession("")
		return
	}
	c.hub.sessions.MarkActive(sess.ID)
	c.setSession(sess.ID)
	c.SendJSON(Envelope{T: MsgJoined, Data: map[string]string{"sid": sess.ID}})
}

func (c *Client) handleCheck(data json.RawMessage) {
	var msg CheckMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	sess := c.hub.sessions.GetSession(msg.SID)
	if sess == nil {
		c.SendJSON(Envelope{T: MsgChecked, Data: CheckedMsg{SID: msg.SID, Exists: false}})
		return
	}
	c.SendJSON(Envelope{T: MsgChecked, Data: CheckedMsg{
		SID:     msg.SID,
		Exists:  true,
		Name:    sess.Name,
		Players: sess.Arena.PlayerCount(),
	}})
}

func (c *Client) handleLeave() {
	if sid := c.Session(); sid != "" {
		c.hub.sessions.RemovePlayer(sid, c.id)
		c.setSession("")
	}
}

func (c *Client) handleRegister(data json.RawMessage) {
	var msg RegisterMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Register(msg.Username, msg.Password)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.setIdentity(id)
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{Token: token, Username: id.Name, StableID: id.StableID}})
}

func (c *Client) handleLogin(data json.RawMessage) {
	var msg LoginMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Login(msg.Username, msg.Password, c.remoteAddr)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.setIdentity(id)
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{Token: token, Username: id.Name, StableID: id.StableID}})
}

func (c *Client) handleAuth(data json.RawMessage) {
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, err := c.hub.auth.ValidateToken(msg.Token)
	if err != nil {
		c.sendError("invalid token")
		return
	}
	c.setIdentity(id)
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{
		Token:    msg.Token,
		Username: id.Name,
		StableID: id.StableID,
		Guest:    id.Guest,
	}})
}

func (c *Client) handleProfile() {
	c.mu.Lock()
	id := c.identity
	c.mu.Unlock()
	if c.hub.db == nil || id.AccountID == 0 {
		c.sendError("not authenticated")
		return
	}
	stats, err := c.hub.db.GetStats(id.AccountID)
	if err != nil || stats == nil {
		c.sendError("profile not found")
		return
	}
	c.SendJSON(Envelope{T: MsgProfileOK, Data: ProfileDataMsg{
		Username:  id.Name,
		Matches:   stats.Matches,
		Wins:      stats.Wins,
		Losses:    stats.Losses,
		Knockouts: stats.Knockouts,
		HitsTaken: stats.HitsTaken,
		Playtime:  stats.Playtime,
	}})
}
