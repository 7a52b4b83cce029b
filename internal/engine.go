package internal

// 系統設計問題：
//   如何讓遊戲規則獨立於房間調度核心，且每 tick 的演算可測試、可重現？
//
// 核心挑戰：
//   1. 規則演進：彈球規則可能調整（速度、得分、場地），不應牽動調度核心
//   2. 確定性：相同狀態 + 相同輸入必須產生相同結果（便於測試與回放）
//   3. 併發安全：模擬函數不得持有共享狀態
//
// 設計方案：
//   ✅ Engine 介面 - 核心只依賴 NewState/Step 兩個純函數
//   ✅ 值語義 GameState - 每 tick 整體替換，無就地修改
//   ✅ 規則參數全部來自 GameConfig - 無隱藏常數

// Velocity 玩家的移動意圖（離散方向向量）
//
// 零值表示「不改變」：擋板保持靜止。
type Velocity struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Paddle 擋板狀態（僅縱向位置，頂端座標）
type Paddle struct {
	Y int `json:"y"`
}

// Ball 球的位置與速度
type Ball struct {
	X  int `json:"x"`
	Y  int `json:"y"`
	VX int `json:"vx"`
	VY int `json:"vy"`
}

// GameState 單一 tick 的完整遊戲快照
//
// 核心將其視為不可變值：調度器每 tick 以 Engine.Step 的返回值
// 整體替換，任何組件都不就地修改欄位。
type GameState struct {
	Ball     Ball      `json:"ball"`
	Paddles  [2]Paddle `json:"paddles"`
	Scores   [2]int    `json:"scores"`
	GridSize int       `json:"gridSize"`
}

// Engine 模擬引擎契約
//
// Step 必須是純函數：不保留內部狀態、不產生副作用。
// 返回的 winner 為獲勝玩家編號（1 或 2），0 表示尚無勝負。
type Engine interface {
	// NewState 返回一局遊戲的初始狀態
	NewState() GameState

	// Step 以兩位玩家的當前意圖推進一個 tick
	Step(state GameState, intents [2]Velocity) (GameState, int)
}

// PongEngine 雙擋板彈球規則的標準實現
//
// 規則摘要：
//   - 玩家 1 的擋板貼左牆（x=0），玩家 2 貼右牆（x=GridSize-1）
//   - 球撞上下牆反彈，撞擋板水平反彈
//   - 球越過左/右邊界時對方得分，球回到中央朝失分方發出
//   - 先達到 WinningScore 者獲勝
type PongEngine struct {
	cfg GameConfig
}

// NewPongEngine 創建彈球引擎
func NewPongEngine(cfg GameConfig) *PongEngine {
	return &PongEngine{cfg: cfg}
}

// NewState 返回初始狀態：球在場地中央朝玩家 1 發出，雙擋板置中
func (e *PongEngine) NewState() GameState {
	mid := e.cfg.GridSize / 2
	paddleY := mid - e.cfg.PaddleHeight/2
	return GameState{
		Ball: Ball{
			X:  mid,
			Y:  mid,
			VX: -e.cfg.BallSpeed,
			VY: e.cfg.BallSpeed,
		},
		Paddles:  [2]Paddle{{Y: paddleY}, {Y: paddleY}},
		GridSize: e.cfg.GridSize,
	}
}

// Step 推進一個 tick
func (e *PongEngine) Step(state GameState, intents [2]Velocity) (GameState, int) {
	next := state
	grid := e.cfg.GridSize

	// 1. 套用擋板意圖（只取縱向分量，橫向按鍵不移動擋板）
	for i := 0; i < 2; i++ {
		next.Paddles[i].Y = clamp(
			next.Paddles[i].Y+intents[i].Y*e.cfg.PaddleSpeed,
			0,
			grid-e.cfg.PaddleHeight,
		)
	}

	// 2. 移動球
	next.Ball.X += next.Ball.VX
	next.Ball.Y += next.Ball.VY

	// 3. 上下牆反彈
	if next.Ball.Y <= 0 {
		next.Ball.Y = -next.Ball.Y
		next.Ball.VY = -next.Ball.VY
	} else if next.Ball.Y >= grid-1 {
		next.Ball.Y = 2*(grid-1) - next.Ball.Y
		next.Ball.VY = -next.Ball.VY
	}

	// 4. 擋板碰撞與得分
	switch {
	case next.Ball.X <= 0:
		if e.hitsPaddle(next.Paddles[0], next.Ball.Y) {
			next.Ball.X = -next.Ball.X
			next.Ball.VX = -next.Ball.VX
		} else {
			// 玩家 2 得分，球回中央朝玩家 1 發出
			next.Scores[1]++
			next.Ball = e.serveBall(-e.cfg.BallSpeed)
		}
	case next.Ball.X >= grid-1:
		if e.hitsPaddle(next.Paddles[1], next.Ball.Y) {
			next.Ball.X = 2*(grid-1) - next.Ball.X
			next.Ball.VX = -next.Ball.VX
		} else {
			next.Scores[0]++
			next.Ball = e.serveBall(e.cfg.BallSpeed)
		}
	}

	// 5. 勝負判定
	for i := 0; i < 2; i++ {
		if next.Scores[i] >= e.cfg.WinningScore {
			return next, i + 1
		}
	}

	return next, 0
}

// hitsPaddle 判斷球的縱向位置是否落在擋板範圍內
func (e *PongEngine) hitsPaddle(p Paddle, ballY int) bool {
	return ballY >= p.Y && ballY < p.Y+e.cfg.PaddleHeight
}

// serveBall 從場地中央發球
func (e *PongEngine) serveBall(vx int) Ball {
	mid := e.cfg.GridSize / 2
	return Ball{X: mid, Y: mid, VX: vx, VY: e.cfg.BallSpeed}
}

// clamp 限制 v 到 [lo, hi]
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
