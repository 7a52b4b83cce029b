// Package realtimepong 提供了一個服務器權威的即時雙人對戰遊戲主機。
//
// 實現了一個以房間為單位的即時遊戲服務器，包含以下核心功能：
//
// 房間配對系統
//
// 提供完整的場次生命週期管理：
//   - 短房間碼創建與分享
//   - 雙人配對（創建者 1 號位、加入者 2 號位）
//   - 容量與重複加入檢查
//   - 終局與斷線後的自動回收
//
// # 固定頻率模擬
//
// 每個進行中的房間擁有獨立的 tick 循環：
//   - 可配置的 tick 頻率（預設 60/秒）
//   - 確定性的純函數遊戲引擎
//   - 玩家輸入以原子意圖形式對下一個 tick 生效
//   - 勝負判定後恰好廣播一次終局消息
//
// # WebSocket 通訊
//
// 實現了即時雙向通訊機制：
//   - 支援心跳檢測（Ping/Pong）
//   - 訊息廣播與單播
//   - 緩衝發送通道與慢客戶端保護
//   - 連接狀態管理
//
// 具體實現位於 internal 套件，服務器入口位於 cmd/server。
package realtimepong
