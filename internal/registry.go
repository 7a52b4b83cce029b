package internal

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// 系統設計問題：
//   如何管理配對場次的生命週期，確保每個進行中的房間恰好有一個調度器？
//
// 核心挑戰：
//   1. 全域狀態：房間碼 → 場次、連接 → 房間歸屬，必須有明確的擁有者
//   2. 恰好一次：調度器只在第二位玩家加入時啟動，且每場次只有一個
//   3. 冪等銷毀：gameOver、斷線、超時回收可能同時觸發 teardown
//   4. 資源回收：創建後無人加入的房間不能永久佔用內存
//
// 設計方案：
//   ✅ Registry 實例獨佔擁有全部映射 - 注入而非環境全域變數
//   ✅ Join 持鎖啟動調度器 - 狀態轉換與啟動原子化
//   ✅ Teardown 冪等 - 先查後刪，重複調用是 no-op
//   ✅ 清理循環 - 等待超時的房間自動回收

// 加入失敗的錯誤分類。這些錯誤回報給加入方，場次狀態不受影響。
var (
	// ErrUnknownRoom 房間碼不存在
	ErrUnknownRoom = errors.New("房間不存在")

	// ErrRoomFull 房間兩個槽位都已被佔據
	ErrRoomFull = errors.New("房間已滿")

	// ErrAlreadyInRoom 連接已在其他房間中
	ErrAlreadyInRoom = errors.New("已在房間中")
)

// Registry 場次註冊表
//
// 擁有房間碼 → Session 與連接身份 → 房間碼兩組映射。
// Session 由 Registry 獨佔擁有；調度器只持有非擁有引用，
// 找不到所屬場次時靜默停止（正常競爭，非故障）。
type Registry struct {
	mu         sync.RWMutex
	rooms      map[string]*Session   // roomCode -> Session
	membership map[string]string     // connID -> roomCode
	schedulers map[string]*Scheduler // roomCode -> Scheduler

	codes     *CodeGenerator
	engine    Engine
	transport Transport
	cfg       *Config
	logger    *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewRegistry 創建場次註冊表並啟動清理循環
func NewRegistry(cfg *Config, engine Engine, codes *CodeGenerator, transport Transport, logger *slog.Logger) *Registry {
	r := &Registry{
		rooms:      make(map[string]*Session),
		membership: make(map[string]string),
		schedulers: make(map[string]*Scheduler),
		codes:      codes,
		engine:     engine,
		transport:  transport,
		cfg:        cfg,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}

	r.wg.Add(1)
	go r.cleanupLoop()

	return r
}

// Create 創建場次，創建者佔據 1 號槽位
//
// 房間碼碰撞機率極低，碰撞時在鎖內重新生成直到唯一。
func (r *Registry) Create(connID string) (string, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.membership[connID]; ok {
		r.logger.Warn("連接重複創建房間", "conn_id", connID, "existing_room", existing)
		return "", 0, ErrAlreadyInRoom
	}

	code := r.codes.Generate()
	for _, exists := r.rooms[code]; exists; _, exists = r.rooms[code] {
		code = r.codes.Generate()
	}

	session := NewSession(code, r.engine, connID)
	r.rooms[code] = session
	r.membership[connID] = code
	metricActiveRooms.Inc()

	r.logger.Info("房間已創建", "room_code", code, "conn_id", connID)

	return code, 1, nil
}

// Join 將連接綁定到 2 號槽位並啟動該房間的調度器
//
// 這是唯一啟動調度器的轉換：只有 1 號槽位被佔據的房間永遠不會 tick。
func (r *Registry) Join(code, connID string) (int, error) {
	code = strings.ToUpper(code)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.membership[connID]; ok {
		r.logger.Warn("連接重複加入房間", "conn_id", connID, "existing_room", existing)
		return 0, ErrAlreadyInRoom
	}

	session, exists := r.rooms[code]
	if !exists {
		return 0, ErrUnknownRoom
	}

	slot, err := session.Join(connID)
	if err != nil {
		return 0, err
	}

	r.membership[connID] = code

	// 持鎖啟動調度器：與狀態轉換原子化，確保每場次恰好一個實例
	scheduler := NewScheduler(session, r, r.transport, r.cfg.Game.TickPeriod(), r.logger)
	r.schedulers[code] = scheduler
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		scheduler.Run()
	}()

	r.logger.Info("玩家加入房間，開始模擬",
		"room_code", code,
		"conn_id", connID,
		"slot", slot)

	return slot, nil
}

// Teardown 銷毀場次：停止調度器、移除場次與全部成員歸屬。
// 冪等 — 對已移除的房間調用是 no-op 而非錯誤。
func (r *Registry) Teardown(code string) {
	code = strings.ToUpper(code)

	r.mu.Lock()
	session, exists := r.rooms[code]
	if !exists {
		r.mu.Unlock()
		return
	}

	delete(r.rooms, code)
	for _, connID := range session.Members() {
		delete(r.membership, connID)
	}

	scheduler := r.schedulers[code]
	delete(r.schedulers, code)
	r.mu.Unlock()

	// 停止在鎖外進行：Stop 冪等，調度器自身觸發的 teardown 不會死鎖。
	// 同時標記場次終結，正在進行的 tick 之後不會再有任何 tick。
	session.Close()
	if scheduler != nil {
		scheduler.Stop()
	}
	metricActiveRooms.Dec()

	r.logger.Info("房間已銷毀", "room_code", code)
}

// Resolve 查詢連接當前所在的房間碼
func (r *Registry) Resolve(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.membership[connID]
	return code, ok
}

// Session 按房間碼查詢場次，不存在時返回 nil
func (r *Registry) Session(code string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[strings.ToUpper(code)]
}

// Members 房間當前成員的連接身份，房間不存在時返回 nil
func (r *Registry) Members(code string) []string {
	r.mu.RLock()
	session := r.rooms[strings.ToUpper(code)]
	r.mu.RUnlock()

	if session == nil {
		return nil
	}
	return session.Members()
}

// Disconnect 處理連接斷開
//
// 進行中的場次向剩餘成員廣播中止通知後銷毀；
// 等待中的場次直接回收（調度器從未啟動）。
// 無房間歸屬的連接斷開是 no-op。
func (r *Registry) Disconnect(connID string) {
	r.mu.RLock()
	code, ok := r.membership[connID]
	var session *Session
	if ok {
		session = r.rooms[code]
	}
	r.mu.RUnlock()

	if !ok || session == nil {
		return
	}

	if session.Status() == StatusRunning {
		for _, member := range session.Members() {
			if member != connID {
				r.transport.Unicast(member, ServerMessage{Type: MsgOpponentLeft})
			}
		}
		r.logger.Info("玩家斷線，場次中止", "room_code", code, "conn_id", connID)
	} else {
		r.logger.Info("創建者斷線，回收等待中的房間", "room_code", code, "conn_id", connID)
	}

	r.Teardown(code)
}

// Stats 統計資訊
func (r *Registry) Stats() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statusCount := make(map[SessionStatus]int)
	for _, session := range r.rooms {
		statusCount[session.Status()]++
	}

	return map[string]any{
		"total_rooms":   len(r.rooms),
		"total_players": len(r.membership),
		"by_status":     statusCount,
	}
}

// cleanupLoop 定期回收等待超時的房間
func (r *Registry) cleanupLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.Room.CleanupInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.cleanup()
		case <-r.stopCh:
			return
		}
	}
}

// Cleanup 執行清理（公開方法供測試使用）
func (r *Registry) Cleanup() {
	r.cleanup()
}

// cleanup 回收過期房間
func (r *Registry) cleanup() {
	timeout := r.cfg.Room.WaitingTimeout.Std()

	r.mu.RLock()
	var toRemove []string
	for code, session := range r.rooms {
		if session.IsExpired(timeout) {
			toRemove = append(toRemove, code)
		}
	}
	r.mu.RUnlock()

	for _, code := range toRemove {
		r.Teardown(code)
		r.logger.Info("等待超時，房間已回收", "room_code", code)
	}
}

// Stop 停止註冊表：結束清理循環並銷毀所有場次
func (r *Registry) Stop() {
	close(r.stopCh)

	r.mu.RLock()
	codes := make([]string, 0, len(r.rooms))
	for code := range r.rooms {
		codes = append(codes, code)
	}
	r.mu.RUnlock()

	for _, code := range codes {
		r.Teardown(code)
	}

	r.wg.Wait()
	r.logger.Info("場次註冊表已停止")
}
