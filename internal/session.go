package internal

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// 系統設計問題：
//   如何在異步輸入寫入與固定頻率 tick 讀取之間安全共享場次狀態？
//
// 核心挑戰：
//   1. 狀態管理：場次有明確的狀態轉換（waiting → running → finished）
//   2. 併發控制：InputRouter 寫入意圖 vs 調度器讀取意圖，競爭同一槽位
//   3. 撕裂讀取：意圖是二維向量，讀取絕不能觀察到半寫入的值
//   4. 單一寫入者：GameState 只由所屬調度器替換，消除跨組件競爭
//
// 設計方案：
//   ✅ 有限狀態機（FSM）- 規範狀態轉換
//   ✅ atomic.Pointer 意圖槽 - 單次原子替換，無鎖熱點路徑
//   ✅ RWMutex 保護 FSM 與快照 - 讀多寫少優化
//   ✅ 值語義 GameState - 每 tick 整體替換

// SessionStatus 場次狀態
//
// 有限狀態機設計：
//
//	waiting_for_opponent → running → finished → 移除
//	        └──────────（創建者斷線 / 等待超時）──→ 移除
//
// 狀態轉換規則：
//   - waiting_for_opponent → running：第二位玩家加入（唯一啟動調度器的轉換）
//   - running → finished：某 tick 判定出勝者
//   - finished 不可回到 running
//   - 加入失敗（房間已滿 / 不存在）不改變任何狀態
type SessionStatus string

const (
	StatusWaiting  SessionStatus = "waiting_for_opponent" // 等待第二位玩家
	StatusRunning  SessionStatus = "running"              // 模擬進行中
	StatusFinished SessionStatus = "finished"             // 已判定勝負
)

// PlayerSlot 玩家槽位
//
// 意圖欄位是本場次中唯一由調度器以外的組件（InputRouter）寫入的狀態。
// 使用 atomic.Pointer 單次替換整個向量：寫入與讀取永不交錯出損壞值，
// 兩個 tick 之間到達的輸入保證被下一個 tick 觀察到。
type PlayerSlot struct {
	// Number 槽位編號（1 或 2），1 號永遠是創建者
	Number int

	// ConnID 佔據此槽位的連接身份，由 Session 的鎖保護
	ConnID string

	intent atomic.Pointer[Velocity]
}

// SetIntent 原子替換意圖
func (s *PlayerSlot) SetIntent(v Velocity) {
	s.intent.Store(&v)
}

// Intent 原子讀取當前意圖，尚未有輸入時返回零值（不移動）
func (s *PlayerSlot) Intent() Velocity {
	if p := s.intent.Load(); p != nil {
		return *p
	}
	return Velocity{}
}

// Session 一個配對場次
//
// 所有權：Session 由 Registry 獨佔擁有；調度器在運行期間持有
// 非擁有引用。Code 生成一次後不可變。
type Session struct {
	// Code 房間碼，場次生命週期內不變
	Code string

	mu        sync.RWMutex
	status    SessionStatus
	slots     [2]*PlayerSlot
	state     GameState
	engine    Engine
	createdAt time.Time
}

// NewSession 創建場次，創建者綁定 1 號槽位，初始狀態來自引擎
func NewSession(code string, engine Engine, creatorConnID string) *Session {
	return &Session{
		Code:   code,
		status: StatusWaiting,
		slots: [2]*PlayerSlot{
			{Number: 1, ConnID: creatorConnID},
			{Number: 2},
		},
		state:     engine.NewState(),
		engine:    engine,
		createdAt: time.Now(),
	}
}

// Join 綁定第二位玩家到 2 號槽位並轉換到 running
func (s *Session) Join(connID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 狀態檢查（狀態機驗證）：只有等待中的場次可加入
	if s.status != StatusWaiting || s.slots[1].ConnID != "" {
		return 0, ErrRoomFull
	}

	s.slots[1].ConnID = connID
	s.status = StatusRunning
	return 2, nil
}

// Tick 推進一個 tick：原子讀取雙方意圖，調用引擎，整體替換快照。
// 返回新快照與勝者編號（0 表示未分勝負）。
// 場次已非 running 時返回 ok=false，調度器據此靜默停止。
func (s *Session) Tick() (GameState, int, bool) {
	// 意圖讀取在鎖外進行（原子操作，與輸入寫入的競爭由 atomic 解決）
	intents := [2]Velocity{s.slots[0].Intent(), s.slots[1].Intent()}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRunning {
		return GameState{}, 0, false
	}

	next, winner := s.engine.Step(s.state, intents)
	s.state = next

	if winner != 0 {
		s.status = StatusFinished
	}

	return next, winner, true
}

// Close 標記場次終結（斷線中止或註冊表銷毀時調用）。
// 之後的 Tick 一律返回 ok=false，調度器據此靜默退出。
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusFinished
}

// Status 當前狀態
func (s *Session) Status() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Snapshot 當前遊戲快照
func (s *Session) Snapshot() GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SlotOf 返回連接所佔據的槽位，不在場次中時返回 nil
func (s *Session) SlotOf(connID string) *PlayerSlot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, slot := range s.slots {
		if slot.ConnID != "" && slot.ConnID == connID {
			return slot
		}
	}
	return nil
}

// Members 當前佔據槽位的連接身份（按槽位順序）
func (s *Session) Members() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]string, 0, 2)
	for _, slot := range s.slots {
		if slot.ConnID != "" {
			members = append(members, slot.ConnID)
		}
	}
	return members
}

// IsExpired 等待中的場次超過 timeout 視為過期，由清理機制回收
func (s *Session) IsExpired(timeout time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status == StatusWaiting && time.Since(s.createdAt) > timeout
}

// String 便於日誌輸出
func (s *Session) String() string {
	return fmt.Sprintf("Session(%s, %s)", s.Code, s.Status())
}
