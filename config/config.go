package config

import (
	"errors"
	"fmt"
	"image/color"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"

	"pongview/logging"
)

var ErrInvalid = errors.New("config: invalid")

// Config 客户端全部配置，对应 TOML 文件
type Config struct {
	ServerURL string `toml:"server_url"`
	PlayerID  string `toml:"player_id"` // 空则启动时生成
	FPS       int    `toml:"fps"`

	Field   Field   `toml:"field"`
	Network Network `toml:"network"`
	Effects Effects `toml:"effects"`
	Colors  Colors  `toml:"colors"`
	Input   Input   `toml:"input"`
	Log     Log     `toml:"log"`
	Admin   Admin   `toml:"admin"`
}

// Field 逻辑场地尺寸，必须与服务端模拟单位一致
type Field struct {
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

type Network struct {
	ReconnectDelay       time.Duration `toml:"reconnect_delay"`
	MaxReconnectAttempts int           `toml:"max_reconnect_attempts"`
	ConnectTimeout       time.Duration `toml:"connect_timeout"`
	ReadTimeout          time.Duration `toml:"read_timeout"`
	PingPeriod           time.Duration `toml:"ping_period"`
	SendQueue            int           `toml:"send_queue"`
}

// Effects 视觉开关与幅度
type Effects struct {
	Trail           bool `toml:"trail"`
	Glow            bool `toml:"glow"`
	Particles       bool `toml:"particles"`
	Sound           bool `toml:"sound"`
	TrailLength     int  `toml:"trail_length"`
	BurstCount      int  `toml:"burst_count"`
	ScoreBurstCount int  `toml:"score_burst_count"`
	TrailCount      int  `toml:"trail_count"`
}

// Colors 十六进制颜色，如 "#00ff88"
type Colors struct {
	Background string `toml:"background"`
	Foreground string `toml:"foreground"`
	Player1    string `toml:"player1"`
	Player2    string `toml:"player2"`
	Ball       string `toml:"ball"`
	UI         string `toml:"ui"`
}

// Input 终端没有按键松开事件，按住的键在 HoldWindow 内无重复即视为松开
type Input struct {
	HoldWindow time.Duration `toml:"hold_window"`
}

type Log struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// Admin 本地管理接口；Addr 为空则不启动
type Admin struct {
	Addr string `toml:"addr"`
}

// Default 默认配置
func Default() Config {
	return Config{
		ServerURL: "ws://localhost:8080/ws/game",
		FPS:       60,
		Field:     Field{Width: 800, Height: 600},
		Network: Network{
			ReconnectDelay:       3 * time.Second,
			MaxReconnectAttempts: 2,
			ConnectTimeout:       5 * time.Second,
			ReadTimeout:          60 * time.Second,
			PingPeriod:           54 * time.Second,
			SendQueue:            64,
		},
		Effects: Effects{
			Trail:           true,
			Glow:            true,
			Particles:       true,
			TrailLength:     10,
			BurstCount:      20,
			ScoreBurstCount: 40,
			TrailCount:      1,
		},
		Colors: Colors{
			Background: "#000000",
			Foreground: "#ffffff",
			Player1:    "#00ff88",
			Player2:    "#ff3366",
			Ball:       "#ffffff",
			UI:         "#00ccff",
		},
		Input: Input{HoldWindow: 150 * time.Millisecond},
		Log:   Log{File: "pongview.log", Level: "info"},
	}
}

// Load 读取 TOML 配置，未出现的字段保留默认值；文件不存在时使用默认配置
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("config %s: %w", path, err)
			}
			logging.Log.Infof("config %s not found, using defaults", path)
		} else {
			md, err := toml.DecodeFile(path, &cfg)
			if err != nil {
				return cfg, fmt.Errorf("config %s: %w", path, err)
			}
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				logging.Log.Warnf("config %s: unknown keys %v", path, undecoded)
			}
		}
	}
	if cfg.PlayerID == "" {
		cfg.PlayerID = uuid.NewString()
	}
	return cfg, cfg.Validate()
}

// Validate 检查取值范围与可解析性
func (c Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("%w: server_url %q must be a ws:// or wss:// address", ErrInvalid, c.ServerURL)
	}
	if c.Field.Width <= 0 || c.Field.Height <= 0 {
		return fmt.Errorf("%w: field %vx%v", ErrInvalid, c.Field.Width, c.Field.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("%w: fps %d", ErrInvalid, c.FPS)
	}
	if c.Network.ReconnectDelay < 0 || c.Network.MaxReconnectAttempts < 0 {
		return fmt.Errorf("%w: reconnect delay %v attempts %d", ErrInvalid,
			c.Network.ReconnectDelay, c.Network.MaxReconnectAttempts)
	}
	if c.Effects.TrailLength < 0 || c.Effects.BurstCount < 0 || c.Effects.ScoreBurstCount < 0 || c.Effects.TrailCount < 0 {
		return fmt.Errorf("%w: effect magnitudes must not be negative", ErrInvalid)
	}
	for name, hex := range map[string]string{
		"background": c.Colors.Background,
		"foreground": c.Colors.Foreground,
		"player1":    c.Colors.Player1,
		"player2":    c.Colors.Player2,
		"ball":       c.Colors.Ball,
		"ui":         c.Colors.UI,
	} {
		if _, err := ParseColor(hex); err != nil {
			return fmt.Errorf("%w: color %s: %v", ErrInvalid, name, err)
		}
	}
	return nil
}

// DialURL 服务端地址，附带 player 查询参数
func (c Config) DialURL() string {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return c.ServerURL
	}
	if c.PlayerID != "" {
		q := u.Query()
		q.Set("player", c.PlayerID)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// FrameInterval 渲染循环间隔
func (c Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FPS)
}

// ParseColor 解析 "#rrggbb" / "#rgb"
func ParseColor(hex string) (color.NRGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, err
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
