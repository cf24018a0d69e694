package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type 消息类型判别字段
type Type string

const (
	// 入站
	TypeGameState   Type = "game_state"
	TypeClientCount Type = "client_count"

	// 出站
	TypeHello       Type = "hello"
	TypePlayerInput Type = "player_input"
	TypeStartGame   Type = "start_game"
	TypeResetGame   Type = "reset_game"
)

var (
	ErrMalformed   = errors.New("protocol: malformed message")
	ErrUnknownType = errors.New("protocol: unknown message type")
)

// Message 所有收发消息的封闭集合；每种类型对应一种 data 结构
type Message interface {
	MessageType() Type
}

// Envelope 线上格式：{"type": ..., "data": ...}
type Envelope struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ClientCount 独立模式下服务端推送的在线连接数
type ClientCount struct {
	Count int `json:"count"`
}

func (ClientCount) MessageType() Type { return TypeClientCount }

// Direction 本地玩家的球拍方向意图
type Direction int

const (
	DirUp   Direction = -1
	DirNone Direction = 0
	DirDown Direction = 1
)

// Valid 只允许 -1 / 0 / 1
func (d Direction) Valid() bool { return d >= DirUp && d <= DirDown }

// PlayerInput 方向变化时发送（边沿触发）
type PlayerInput struct {
	Direction Direction `json:"direction"`
}

func (PlayerInput) MessageType() Type { return TypePlayerInput }

// StartGame 等待阶段按动作键
type StartGame struct{}

func (StartGame) MessageType() Type { return TypeStartGame }

// ResetGame 结束阶段按动作键
type ResetGame struct{}

func (ResetGame) MessageType() Type { return TypeResetGame }

// Hello 连接建立后立即发送的问候，data 为纯文本
type Hello struct {
	Text string
}

func (Hello) MessageType() Type { return TypeHello }

func (h Hello) MarshalJSON() ([]byte, error) { return json.Marshal(h.Text) }

// Encode 将消息序列化为带类型判别的 JSON 文本帧
func Encode(m Message) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("encode: %w", ErrMalformed)
	}
	if in, ok := m.(PlayerInput); ok && !in.Direction.Valid() {
		return nil, fmt.Errorf("encode direction %d: %w", in.Direction, ErrMalformed)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.MessageType(), err)
	}
	return json.Marshal(Envelope{Type: m.MessageType(), Data: data})
}

// Decode 解析入站帧。无法解析为 JSON 的返回 ErrMalformed，
// 未知类型返回 ErrUnknownType，调用方丢弃即可。
func Decode(b []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch env.Type {
	case TypeGameState:
		s := &Snapshot{}
		if err := decodeData(env.Data, s); err != nil {
			return nil, err
		}
		return s, nil
	case TypeClientCount:
		var cc ClientCount
		if err := decodeData(env.Data, &cc); err != nil {
			return nil, err
		}
		return cc, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return fmt.Errorf("%w: missing data", ErrMalformed)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
