package main

import "encoding/json"

// Client -> Server message types
const (
	MsgJoin       = "join"
	MsgLeave      = "leave"
	MsgCreate     = "create" // create session
	MsgList       = "list"   // list sessions
	MsgCheck      = "check"  // check if session exists
	MsgPose       = "pose"
	MsgGrab       = "grab"
	MsgDrop       = "drop"
	MsgThrow      = "throw"
	MsgHit        = "hit"
	MsgBallMotion = "ballpos"
	MsgStart      = "start"
	MsgReset      = "reset"
	MsgReady      = "ready" // avatar loaded
	MsgSwitchSide = "switchside"
	MsgRegister   = "register"
	MsgLogin      = "login"
	MsgAuth       = "auth"
	MsgProfile    = "profile"
)

// Server -> Client message types
const (
	MsgWelcome   = "welcome"
	MsgSessions  = "sessions"
	MsgJoined    = "joined"
	MsgCreated   = "created" // session created, client should navigate
	MsgError     = "error"
	MsgChecked   = "checked" // session check response
	MsgPhase     = "phase"
	MsgTime      = "time"
	MsgCountdown = "countdown"
	MsgColors    = "colors"
	MsgFade      = "fade"
	MsgTeleport  = "teleport"
	MsgShot      = "shot"
	MsgBounce    = "bounce"
	MsgKnockout  = "knockout"
	MsgScore     = "score"
	MsgSync      = "sync" // replicated field changes
	MsgAuthOK    = "auth_ok"
	MsgProfileOK = "profile_data"
	MsgResult    = "result"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// JoinMsg is sent when a player wants to join a session
type JoinMsg struct {
	Name      string `json:"name"`
	SessionID string `json:"sid"`
	Spectator bool   `json:"spec,omitempty"`
	Pos       Vec3   `json:"pos"` // last known position, origin for a fresh spawn
}

// CreateMsg is sent when a player wants to create a session
type CreateMsg struct {
	Name        string `json:"name"`
	SessionName string `json:"sname"`
}

// PoseMsg is streamed by headsets
type PoseMsg struct {
	Head  Vec3    `json:"h" msgpack:"h"`
	Left  Vec3    `json:"l" msgpack:"l"`
	Right Vec3    `json:"r" msgpack:"r"`
	Yaw   float64 `json:"yaw" msgpack:"yaw"`
}

// GrabMsg asks for ownership of a ball; Hand is "left", "right" or empty for either
type GrabMsg struct {
	Ball string `json:"ball"`
	Hand string `json:"hand,omitempty"`
}

// BallMsg names a ball
type BallMsg struct {
	Ball string `json:"ball"`
}

// ThrowMsg releases a held ball
type ThrowMsg struct {
	Ball   string  `json:"ball"`
	Dir    Vec3    `json:"dir"`
	Charge float64 `json:"charge"`
}

// HitMsg reports a ball collision; Target is a player id or empty for the environment
type HitMsg struct {
	Ball   string `json:"ball"`
	Target string `json:"target,omitempty"`
}

// BallMotionMsg is a physics report from the simulating client
type BallMotionMsg struct {
	Ball string `json:"ball"`
	Pos  Vec3   `json:"pos"`
	Vel  Vec3   `json:"vel"`
}

// WelcomeMsg is sent to a player when they join
type WelcomeMsg struct {
	ID        string `json:"id"`
	Team      string `json:"team"`
	Spectator bool   `json:"spec,omitempty"`
	Phase     string `json:"phase"`
}

// PhaseMsg broadcasts a phase change
type PhaseMsg struct {
	Phase string `json:"phase"`
}

// TimeMsg broadcasts whole seconds left in the current timed phase
type TimeMsg struct {
	Seconds int `json:"s"`
}

// FadeMsg tells a client to fade to black before a teleport
type FadeMsg struct {
	Ms int `json:"ms"`
}

// TeleportMsg moves a player; Phase lets the client lock movement during
// countdown and post-game
type TeleportMsg struct {
	Pos   Vec3    `json:"pos"`
	Yaw   float64 `json:"yaw"`
	Phase string  `json:"phase"`
}

// ShotMsg announces an accepted throw. Origin is the connection that predicted it locally.
type ShotMsg struct {
	Ball   string `json:"ball"`
	Team   string `json:"team"`
	By     string `json:"by"`
	Origin uint64 `json:"origin"`
	Pos    Vec3   `json:"pos"`
	Vel    Vec3   `json:"vel"`
}

// KnockoutMsg announces a scoring hit
type KnockoutMsg struct {
	Ball    string `json:"ball"`
	Victim  string `json:"victim"`
	Thrower string `json:"thrower,omitempty"`
	Team    string `json:"team"`
}

// ScoreMsg broadcasts both team scores
type ScoreMsg struct {
	A int `json:"a"`
	B int `json:"b"`
}

// ResultMsg is sent when a match ends
type ResultMsg struct {
	Winner string `json:"winner"`
	A      int    `json:"a"`
	B      int    `json:"b"`
}

// ArenaSnapshot is the binary state broadcast
type ArenaSnapshot struct {
	Tick      uint64         `msgpack:"t"`
	Phase     Phase          `msgpack:"ph"`
	Remaining int64          `msgpack:"rm"` // milliseconds
	ScoreA    int            `msgpack:"sa"`
	ScoreB    int            `msgpack:"sb"`
	Players   []PlayerSnap   `msgpack:"p"`
	Balls     []BallSnapshot `msgpack:"b"`
}

// PlayerSnap is broadcast per connected player
type PlayerSnap struct {
	ID        string  `msgpack:"id"`
	Name      string  `msgpack:"n"`
	Team      Team    `msgpack:"tm"`
	Spectator bool    `msgpack:"sp,omitempty"`
	Head      Vec3    `msgpack:"h"`
	Left      Vec3    `msgpack:"l"`
	Right     Vec3    `msgpack:"r"`
	Yaw       float64 `msgpack:"y"`
}

// BallSnapshot is broadcast per ball
type BallSnapshot struct {
	ID     string    `msgpack:"id"`
	State  BallState `msgpack:"s"`
	Owner  string    `msgpack:"o,omitempty"`
	Holder string    `msgpack:"hd,omitempty"`
	Team   Team      `msgpack:"tm"`
	Pos    Vec3      `msgpack:"p"`
	Vel    Vec3      `msgpack:"v"`
}

// SessionInfo is used in the session list
type SessionInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Players int    `json:"players"`
	Phase   string `json:"phase"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// CheckMsg is sent by client to check if a session exists
type CheckMsg struct {
	SID string `json:"sid"`
}

// CheckedMsg is the response to a session check
type CheckedMsg struct {
	SID     string `json:"sid"`
	Exists  bool   `json:"exists"`
	Name    string `json:"name,omitempty"`
	Players int    `json:"players,omitempty"`
}

// RegisterMsg creates an account
type RegisterMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginMsg authenticates an account
type LoginMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthMsg resumes an identity from a saved token
type AuthMsg struct {
	Token string `json:"token"`
}

// AuthOKMsg carries the identity a client must present on reconnect
type AuthOKMsg struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	StableID string `json:"id"`
	Guest    bool   `json:"guest,omitempty"`
}

// ProfileDataMsg is a player's lifetime stats
type ProfileDataMsg struct {
	Username  string  `json:"username"`
	Matches   int     `json:"matches"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	Knockouts int     `json:"knockouts"`
	HitsTaken int     `json:"hits_taken"`
	Playtime  float64 `json:"playtime"`
}
