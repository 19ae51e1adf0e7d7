package network

import (
	"encoding/json"
	"time"

	"voxelworld/internal/physics"
)

type MessageType string

const (
	MessageHello   MessageType = "hello"
	MessageWelcome MessageType = "welcome"
	MessageInput   MessageType = "input"
	MessageState   MessageType = "state"
	MessageChunk   MessageType = "chunk"
	MessageEdit    MessageType = "edit"
	MessageError   MessageType = "error"
)

type Envelope struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Seq       uint64          `json:"seq"`
	Payload   json.RawMessage `json:"payload"`
}

type Hello struct {
	Name string `json:"name"`
}

type Welcome struct {
	SessionID      string     `json:"sessionId"`
	ServerID       string     `json:"serverId"`
	TickRate       string     `json:"tickRate"`
	ChunkSize      int        `json:"chunkSize"`
	RenderDistance int        `json:"renderDistance"`
	Spawn          [3]float64 `json:"spawn"`
}

// Look carries an absolute camera orientation in radians.
type Look struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

// Input is one batch of client input. Presses are applied before releases.
type Input struct {
	Press     []string `json:"press,omitempty"`
	Release   []string `json:"release,omitempty"`
	Look      *Look    `json:"look,omitempty"`
	Primary   bool     `json:"primary,omitempty"`
	Secondary bool     `json:"secondary,omitempty"`
}

type State struct {
	Tick     uint64           `json:"tick"`
	Position [3]float64       `json:"position"`
	Velocity [3]float64       `json:"velocity"`
	Yaw      float64          `json:"yaw"`
	Pitch    float64          `json:"pitch"`
	Mode     string           `json:"mode"`
	Held     string           `json:"held"`
	Jumping  bool             `json:"jumping"`
	Contacts physics.Contacts `json:"contacts"`
}

// Edit reports a ledger entry produced by an interaction.
type Edit struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Z      int    `json:"z"`
	Type   string `json:"type"`
	Placed bool   `json:"placed"`
}

// EditBatch carries the edits made during one tick.
type EditBatch struct {
	Seq   uint64 `json:"seq"`
	Edits []Edit `json:"edits"`
}

type Error struct {
	Message string `json:"message"`
}

func Encode(msg Envelope) ([]byte, error) {
	return json.Marshal(msg)
}

func Decode(data []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	return env, err
}
