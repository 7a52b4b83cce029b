package internal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// 系統設計問題：
//   如何把鬆散型別的客戶端按鍵事件安全地路由到所屬場次？
//
// 核心挑戰：
//   1. 鬆散負載：原始客戶端的 keyCode 可能是數字也可能是字串
//   2. 靜默降級：格式錯誤或無房間歸屬的輸入不得影響連接或場次
//   3. 不阻塞：輸入路徑絕不等待調度器，寫入必須是單次原子替換
//
// 設計方案：
//   ✅ 入口強制轉換一次 - 之後只流通強型別 Velocity
//   ✅ 丟棄而非報錯 - MalformedInput / OrphanInput 記錄後丟棄
//   ✅ atomic 意圖槽 - 下一個 tick 保證可見，撕裂讀取不可能

// 按鍵 → 意圖的固定映射（方向鍵）。
// 未列出的按鍵不改變意圖，保留玩家先前的方向。
var keyVelocities = map[int]Velocity{
	37: {X: -1, Y: 0}, // 左
	38: {X: 0, Y: -1}, // 上
	39: {X: 1, Y: 0},  // 右
	40: {X: 0, Y: 1},  // 下
}

// Router 輸入路由器
//
// 將連接的按鍵事件寫入其所屬場次的玩家槽位。
// 此路徑從不直接調用模擬引擎，也從不等待調度器。
type Router struct {
	registry *Registry
	logger   *slog.Logger
}

// NewRouter 創建輸入路由器
func NewRouter(registry *Registry, logger *slog.Logger) *Router {
	return &Router{
		registry: registry,
		logger:   logger,
	}
}

// OnInput 處理一次按鍵事件
//
// 任何失敗都靜默丟棄：無房間歸屬、無法轉換的按鍵碼、
// 場次已銷毀（與 teardown 的正常競爭）都不回報給連接。
func (rt *Router) OnInput(connID string, rawKeyCode json.RawMessage) {
	code, ok := rt.registry.Resolve(connID)
	if !ok {
		// 連接尚未加入任何房間
		metricInputsDiscarded.Inc()
		return
	}

	keyCode, err := coerceKeyCode(rawKeyCode)
	if err != nil {
		rt.logger.Debug("丟棄無法解析的按鍵碼",
			"conn_id", connID,
			"raw", string(rawKeyCode),
			"error", err)
		metricInputsDiscarded.Inc()
		return
	}

	velocity, mapped := keyVelocities[keyCode]
	if !mapped {
		// 未知按鍵：保留先前的意圖
		return
	}

	session := rt.registry.Session(code)
	if session == nil {
		// 場次剛被銷毀 — 正常競爭
		return
	}

	slot := session.SlotOf(connID)
	if slot == nil {
		return
	}

	slot.SetIntent(velocity)
}

// coerceKeyCode 將原始 JSON 值強制轉換為整數按鍵碼。
// 接受 JSON 數字與數字字串（原始客戶端兩種都會送）。
func coerceKeyCode(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("按鍵碼為空")
	}

	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return int(asNumber), nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		keyCode, err := strconv.Atoi(strings.TrimSpace(asString))
		if err != nil {
			return 0, fmt.Errorf("按鍵碼字串不是整數: %q", asString)
		}
		return keyCode, nil
	}

	return 0, fmt.Errorf("按鍵碼既不是數字也不是字串")
}
