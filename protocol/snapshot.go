package protocol

// Phase 服务端权威的对局阶段
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseGameOver Phase = "gameover"
)

// Side 球场的一侧；winner 字段与颜色都按侧区分
type Side string

const (
	SidePlayer1 Side = "player1"
	SidePlayer2 Side = "player2"
)

// Paddle 球拍：左上角坐标与宽高（逻辑场地单位）
type Paddle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Ball 球：中心、半径与速度（逻辑场地单位）
type Ball struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
}

// Snapshot 一个服务端 Tick 的完整状态。解码后只读，整体替换，不做原地修改。
// 缺失的可选字段为 nil / 零值，渲染时按“不存在”处理。
type Snapshot struct {
	State        Phase   `json:"state"`
	Player1      *Paddle `json:"player1,omitempty"`
	Player2      *Paddle `json:"player2,omitempty"`
	Ball         *Ball   `json:"ball,omitempty"`
	Player1Score int     `json:"player1Score"`
	Player2Score int     `json:"player2Score"`
	PlayerCount  int     `json:"playerCount"`
	Winner       Side    `json:"winner,omitempty"`
}

// MessageType implements Message
func (*Snapshot) MessageType() Type { return TypeGameState }

// Players 返回等待阶段的人数，限制在 0..2
func (s *Snapshot) Players() int {
	switch {
	case s.PlayerCount < 0:
		return 0
	case s.PlayerCount > 2:
		return 2
	}
	return s.PlayerCount
}

// ScoreChanged 任一比分与上一帧不同
func (s *Snapshot) ScoreChanged(prev *Snapshot) bool {
	return s.Player1Score != prev.Player1Score || s.Player2Score != prev.Player2Score
}
