package internal

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// 系統設計問題：
//   如何實現雙人對戰的實時狀態推送？
//
// 核心挑戰：
//   1. 實時通信：每 tick 的狀態快照需要立即推送給房間雙方
//   2. 連接管理：斷線必須觸發場次中止或回收
//   3. 心跳機制：檢測死連接（網絡異常、客戶端崩潰）
//   4. 隔離性：慢客戶端不得拖慢 tick 循環
//
// 設計方案：
//   ✅ WebSocket - 全雙工通信（低延遲、服務器推送）
//   ✅ Hub 模式 - 集中管理所有連接
//   ✅ Ping/Pong 心跳 - 檢測死連接（54s/60s）
//   ✅ 緩衝 channel - 異步發送，滿時丟棄（狀態快照下個 tick 就有新的）

// Hub WebSocket 連接中心
//
// 實現 Transport 介面：房間成員關係由 Registry 持有，
// 廣播時按房間碼反查成員再逐一投遞，避免維護第二份映射。
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	registry *Registry
	router   *Router

	mu    sync.RWMutex
	conns map[string]*Conn // connID -> Conn
}

// Conn 單一客戶端連接
//
// Send 通道永不關閉：調度器可能在斷線的同時投遞消息，
// 關閉信號走獨立的 done 通道，避免向已關閉通道發送。
type Conn struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
	Hub  *Hub

	done      chan struct{}
	closeOnce sync.Once // 確保 done 只關閉一次
}

// close 標記連接關閉，冪等
func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// NewHub 創建 WebSocket Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// 在生產環境應該檢查來源
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns: make(map[string]*Conn),
	}
}

// Attach 綁定註冊表與輸入路由器
//
// Hub 與 Registry 互相依賴（Hub 轉發事件給 Registry，
// Registry 透過 Transport 介面回推消息），故分兩步接線。
func (hub *Hub) Attach(registry *Registry, router *Router) {
	hub.registry = registry
	hub.router = router
}

// ServeWS 處理 WebSocket 連接
//
// 每個連接分配一個 UUID 作為連接身份，生命週期內不變。
func (hub *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("升級 WebSocket 失敗", "error", err)
		return
	}

	conn := &Conn{
		ID:   uuid.NewString(),
		Conn: wsConn,
		Send: make(chan []byte, 256),
		Hub:  hub,
		done: make(chan struct{}),
	}

	hub.register(conn)

	go conn.writePump()
	go conn.readPump()

	hub.logger.Info("WebSocket 連接建立", "conn_id", conn.ID)
}

// register 註冊連接
func (hub *Hub) register(conn *Conn) {
	hub.mu.Lock()
	hub.conns[conn.ID] = conn
	hub.mu.Unlock()
}

// unregister 取消註冊連接並通知註冊表處理斷線
func (hub *Hub) unregister(conn *Conn) {
	hub.mu.Lock()
	if actual, exists := hub.conns[conn.ID]; exists && actual == conn {
		delete(hub.conns, conn.ID)
		conn.close()
	}
	hub.mu.Unlock()

	hub.registry.Disconnect(conn.ID)

	hub.logger.Info("WebSocket 連接關閉", "conn_id", conn.ID)
}

// Unicast 發送消息給單一連接（實現 Transport）
func (hub *Hub) Unicast(connID string, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		hub.logger.Error("序列化消息失敗", "error", err, "type", msg.Type)
		return
	}
	hub.send(connID, data)
}

// Broadcast 發送消息給房間所有成員（實現 Transport）
//
// 只序列化一次，成員關係向 Registry 查詢。
func (hub *Hub) Broadcast(roomCode string, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		hub.logger.Error("序列化消息失敗", "error", err, "type", msg.Type)
		return
	}

	for _, connID := range hub.registry.Members(roomCode) {
		hub.send(connID, data)
	}
}

// send 非阻塞投遞
func (hub *Hub) send(connID string, data []byte) {
	hub.mu.RLock()
	conn, exists := hub.conns[connID]
	hub.mu.RUnlock()

	if !exists {
		return
	}

	select {
	case conn.Send <- data:
		metricMessagesSent.Inc()
	default:
		// 連接緩衝區滿了，丟棄本條（下個 tick 會有更新的快照）
		hub.logger.Warn("連接緩衝區滿，丟棄消息", "conn_id", connID)
	}
}

// Stop 關閉所有連接
func (hub *Hub) Stop() {
	hub.mu.Lock()
	for _, conn := range hub.conns {
		conn.close()
		conn.Conn.Close()
	}
	hub.conns = make(map[string]*Conn)
	hub.mu.Unlock()

	hub.logger.Info("WebSocket Hub 已停止")
}

// readPump 讀取客戶端消息
//
// 心跳機制（讀取端）：60 秒內未收到任何消息（含 Pong）即關閉連接，
// 配合 writePump 的 54 秒 Ping（留 6 秒余量）。
func (c *Conn) readPump() {
	defer func() {
		c.Hub.unregister(c)
		c.Conn.Close()
	}()

	if err := c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		c.Hub.logger.Error("設置讀取期限失敗", "error", err)
	}

	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
			c.Hub.logger.Error("設置讀取期限失敗", "error", err)
		}
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Error("WebSocket 讀取錯誤",
					"error", err,
					"conn_id", c.ID)
			}
			break
		}

		if messageType == websocket.TextMessage {
			c.handleMessage(message)
		}
	}
}

// writePump 寫入消息到客戶端
//
// 心跳機制（發送端）：54 秒 Ping 避開常見的 60 秒代理超時。
func (c *Conn) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			// 連接已標記關閉，優雅收尾
			deadline := time.Now().Add(time.Second)
			if err := c.Conn.SetWriteDeadline(deadline); err == nil {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			}
			return

		case message := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
				c.Hub.logger.Error("設置寫入期限失敗", "error", err)
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// 批量發送隊列中的消息
			n := len(c.Send)
			for i := 0; i < n; i++ {
				if err := c.Conn.WriteMessage(websocket.TextMessage, <-c.Send); err != nil {
					c.Hub.logger.Error("發送消息失敗", "error", err)
					return
				}
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
				c.Hub.logger.Error("設置寫入期限失敗", "error", err)
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 分派入站消息
//
// 封閉的消息集在此一次性驗證，未知類型只記錄不回應。
func (c *Conn) handleMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.Hub.logger.Debug("解析客戶端消息失敗",
			"error", err,
			"conn_id", c.ID)
		return
	}

	switch msg.Type {
	case MsgNewGame:
		c.handleNewGame()
	case MsgJoinGame:
		c.handleJoinGame(msg.GameCode)
	case MsgKeyDown:
		c.Hub.router.OnInput(c.ID, msg.KeyCode)
	default:
		c.Hub.logger.Debug("收到未知消息類型",
			"type", msg.Type,
			"conn_id", c.ID)
	}
}

// handleNewGame 創建房間：單播房間碼與玩家編號 1
func (c *Conn) handleNewGame() {
	code, slot, err := c.Hub.registry.Create(c.ID)
	if err != nil {
		c.Hub.Unicast(c.ID, ServerMessage{Type: MsgAlreadyInGame})
		return
	}

	c.Hub.Unicast(c.ID, GameCodeMessage(code))
	c.Hub.Unicast(c.ID, InitMessage(slot))
}

// handleJoinGame 加入房間：成功單播玩家編號 2，失敗單播對應錯誤
func (c *Conn) handleJoinGame(gameCode string) {
	slot, err := c.Hub.registry.Join(gameCode, c.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownRoom):
			c.Hub.Unicast(c.ID, ServerMessage{Type: MsgUnknownGame})
		case errors.Is(err, ErrRoomFull):
			c.Hub.Unicast(c.ID, ServerMessage{Type: MsgTooManyPlayers})
		case errors.Is(err, ErrAlreadyInRoom):
			c.Hub.Unicast(c.ID, ServerMessage{Type: MsgAlreadyInGame})
		default:
			c.Hub.logger.Error("加入房間失敗", "error", err, "conn_id", c.ID)
		}
		return
	}

	c.Hub.Unicast(c.ID, InitMessage(slot))
}
