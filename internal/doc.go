// Package internal 實現了一個服務器權威的即時雙人對戰遊戲主機。
//
// 系統將兩位遠端玩家配對到同一個房間（Room），以固定頻率運行確定性的
// 雙擋板彈球模擬，套用玩家提交的控制輸入，並將結果狀態廣播給雙方，
// 直到勝負條件終止該場次。
//
// 房間生命週期
//
// 提供完整的場次管理：
//   - 創建房間（產生短房間碼，創建者固定佔據 1 號位）
//   - 加入房間（第二位玩家佔據 2 號位，觸發調度器啟動）
//   - 勝負判定後自動銷毀
//   - 等待中的空閒房間定期回收
//
// # Tick 調度
//
// 每個進行中的房間擁有一個獨立的調度循環：
//   - 固定頻率（預設 60 tick/秒，可配置）
//   - 房間之間完全獨立，互不共享同步原語
//   - 單一房間內 tick 嚴格順序執行
//   - 勝負出現時廣播一次 gameOver 並停止
//
// 併發安全設計
//
// 採用了多層次的併發控制策略：
//   - 細粒度讀寫鎖保護註冊表與場次狀態
//   - 玩家意圖使用原子指針替換（無鎖熱點路徑）
//   - GameState 僅由所屬調度器整體替換，消除跨組件競爭
//   - stopCh + sync.Once 確保調度器恰好停止一次
//
// # WebSocket 通訊
//
// 實現了即時雙向通訊機制：
//   - 封閉的標記變體消息集，入口處一次性驗證
//   - 支援心跳檢測（Ping/Pong）
//   - 房間範圍廣播與單播
//   - 緩衝發送通道，慢客戶端不阻塞 tick
//
// 使用範例
//
// 啟動服務器：
//
//	cfg := internal.DefaultConfig()
//	engine := internal.NewPongEngine(cfg.Game)
//	hub := internal.NewHub(logger)
//	registry := internal.NewRegistry(cfg, engine, internal.NewCodeGenerator(cfg.Room), hub, logger)
//	router := internal.NewRouter(registry, logger)
//	hub.Attach(registry, router)
//
//	http.HandleFunc("/ws", hub.ServeWS)
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// 架構設計
//
// 系統採用分層架構設計：
//   - Hub 層：WebSocket 連接管理與消息入口
//   - Registry 層：房間與成員生命週期
//   - Scheduler 層：每房間固定頻率模擬循環
//   - Engine 層：純函數遊戲規則（可替換）
//
// 每層都有明確的職責邊界，透過介面進行交互，便於測試與擴展。
package internal
