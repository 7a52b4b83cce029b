package internal

import (
	"log/slog"
	"sync"
	"time"
)

// 系統設計問題：
//   如何以固定頻率驅動每個房間的模擬，且房間之間完全隔離？
//
// 核心挑戰：
//   1. 獨立調度：一個房間的 tick 絕不阻塞另一個房間
//   2. 嚴格順序：單一房間內 tick N+1 不得在 tick N 廣播前開始
//   3. 恰好一次終局：gameOver 只廣播一次，之後不再有任何消息
//   4. 停止競爭：teardown 與 tick 可能併發，調度器必須靜默退場
//
// 設計方案：
//   ✅ 每場次一個 goroutine + time.Ticker - 輕量、天然隔離
//   ✅ 循環內同步執行 tick + 廣播 - 順序由單 goroutine 保證
//   ✅ stopCh + sync.Once - 停止恰好一次，重複 Stop 無害
//   ✅ Session.Tick 返回 ok=false 時直接退出 - 已銷毀是正常競爭
//
// 為什麼不用單一多路復用調度器？
//   - 房間數量級（千級）下 goroutine 開銷可忽略（KB 級棧）
//   - time.Ticker 由 runtime 統一管理，無需自建時間輪
//   - 單房間慢 tick 不會拖累其他房間（多路復用則會）

// Scheduler 單一場次的 tick 調度器
//
// 每個進行中的場次恰好對應一個實例，由 Registry 在第二位玩家
// 加入時創建並啟動。持有 Session 的非擁有引用。
type Scheduler struct {
	session   *Session
	registry  *Registry
	transport Transport
	period    time.Duration
	logger    *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewScheduler 創建調度器（不啟動，由調用方決定 goroutine 歸屬）
func NewScheduler(session *Session, registry *Registry, transport Transport, period time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		session:   session,
		registry:  registry,
		transport: transport,
		period:    period,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Run 運行調度循環直到終局或被停止
//
// 每 tick 依序執行：讀取意圖 → 引擎推進 → 替換快照 → 廣播。
// 廣播在下一次等待 ticker 之前完成，單房間內無 tick 重疊。
func (s *Scheduler) Run() {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Stop 與 ticker 同時就緒時 select 隨機選擇，
			// 這裡再確認一次，保證 teardown 後不再有 tick
			select {
			case <-s.stopCh:
				return
			default:
			}
			if !s.tick() {
				return
			}
		case <-s.stopCh:
			return
		}
	}
}

// tick 執行單個 tick，返回 false 表示循環應結束
func (s *Scheduler) tick() bool {
	state, winner, ok := s.session.Tick()
	if !ok {
		// 場次已被銷毀或已結束 — 正常競爭，靜默停止
		return false
	}

	metricTicksTotal.Inc()

	if winner == 0 {
		s.transport.Broadcast(s.session.Code, StateMessage(state))
		return true
	}

	// 終局：gameOver 是該房間的最後一條消息，隨即銷毀場次
	s.transport.Broadcast(s.session.Code, GameOverMessage(winner))
	metricGamesFinished.Inc()

	s.logger.Info("場次結束",
		"room_code", s.session.Code,
		"winner", winner,
		"scores", state.Scores)

	s.Stop()
	s.registry.Teardown(s.session.Code)
	return false
}

// Stop 停止下一次調度。冪等，可與 Run 併發調用。
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}
