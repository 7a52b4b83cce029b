package internal

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration 包裝 time.Duration 以支援 YAML 的 "5m"、"30s" 字串格式
type Duration time.Duration

// UnmarshalYAML 解析持續時間字串
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("無效的持續時間 %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML 輸出持續時間字串
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std 轉換回標準 time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config 遊戲服務器配置
type Config struct {
	Server ServerConfig `yaml:"server"`
	Game   GameConfig   `yaml:"game"`
	Room   RoomConfig   `yaml:"room"`
}

// ServerConfig HTTP 服務配置
type ServerConfig struct {
	Port         int      `yaml:"port"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
	IdleTimeout  Duration `yaml:"idle_timeout"`
}

// GameConfig 模擬規則配置
type GameConfig struct {
	// 每秒 tick 數
	TickRate int `yaml:"tick_rate"`

	// 先達到此分數者獲勝
	WinningScore int `yaml:"winning_score"`

	// 場地邊長（正方形網格）
	GridSize int `yaml:"grid_size"`

	// 擋板高度（網格單位）
	PaddleHeight int `yaml:"paddle_height"`

	// 擋板每 tick 移動距離
	PaddleSpeed int `yaml:"paddle_speed"`

	// 球每 tick 在單軸上的移動距離
	BallSpeed int `yaml:"ball_speed"`
}

// RoomConfig 房間管理配置
type RoomConfig struct {
	// 房間碼長度
	CodeLength int `yaml:"code_length"`

	// 房間碼字符集（排除易混淆的 0/O、1/I）
	CodeAlphabet string `yaml:"code_alphabet"`

	// 等待第二位玩家的最長時間，超時回收
	WaitingTimeout Duration `yaml:"waiting_timeout"`

	// 回收掃描間隔
	CleanupInterval Duration `yaml:"cleanup_interval"`
}

// TickPeriod 單一 tick 的時間長度
func (g GameConfig) TickPeriod() time.Duration {
	return time.Second / time.Duration(g.TickRate)
}

// DefaultConfig 返回預設配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  Duration(15 * time.Second),
			WriteTimeout: Duration(15 * time.Second),
			IdleTimeout:  Duration(60 * time.Second),
		},
		Game: GameConfig{
			TickRate:     60, // 60 tick/秒（原始幀率）
			WinningScore: 5,
			GridSize:     100,
			PaddleHeight: 20,
			PaddleSpeed:  2,
			BallSpeed:    1,
		},
		Room: RoomConfig{
			CodeLength:      5,
			CodeAlphabet:    "ABCDEFGHJKLMNPQRSTUVWXYZ23456789",
			WaitingTimeout:  Duration(5 * time.Minute),
			CleanupInterval: Duration(30 * time.Second),
		},
	}
}

// LoadConfig 從 YAML 文件載入配置，未設定的欄位保留預設值。
// path 為空時直接返回預設配置。
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("讀取配置文件失敗: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失敗: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate 驗證配置合法性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("端口必須在 1-65535 之間: %d", c.Server.Port)
	}
	if c.Game.TickRate <= 0 || c.Game.TickRate > 240 {
		return fmt.Errorf("tick 頻率必須在 1-240 之間: %d", c.Game.TickRate)
	}
	if c.Game.WinningScore <= 0 {
		return fmt.Errorf("獲勝分數必須為正數: %d", c.Game.WinningScore)
	}
	if c.Game.GridSize < 10 {
		return fmt.Errorf("場地尺寸過小: %d", c.Game.GridSize)
	}
	if c.Game.PaddleHeight <= 0 || c.Game.PaddleHeight >= c.Game.GridSize {
		return fmt.Errorf("擋板高度必須在 1-%d 之間: %d", c.Game.GridSize-1, c.Game.PaddleHeight)
	}
	if c.Room.CodeLength < 4 {
		return fmt.Errorf("房間碼長度至少為 4: %d", c.Room.CodeLength)
	}
	if len(c.Room.CodeAlphabet) < 8 {
		return fmt.Errorf("房間碼字符集過小: %d", len(c.Room.CodeAlphabet))
	}
	return nil
}
