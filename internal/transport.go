package internal

import "encoding/json"

// 消息協議：封閉的標記變體集合，入口處一次性驗證。
// 客戶端的鬆散負載（keyCode 可能是數字或字串）只在 Router 中強制轉換，
// 核心組件之間只流通強型別消息。

// 入站消息類型
const (
	MsgNewGame  = "newGame"  // 創建房間
	MsgJoinGame = "joinGame" // 加入房間
	MsgKeyDown  = "keyDown"  // 控制輸入
)

// 出站消息類型
const (
	MsgGameCode       = "gameCode"       // 單播給創建者：房間碼
	MsgInit           = "init"           // 單播：分配的玩家編號
	MsgGameState      = "gameState"      // 廣播：每 tick 的狀態快照
	MsgGameOver       = "gameOver"       // 廣播：勝者編號，場次隨即銷毀
	MsgUnknownGame    = "unknownGame"    // 單播：房間碼不存在
	MsgTooManyPlayers = "tooManyPlayers" // 單播：房間已滿
	MsgAlreadyInGame  = "alreadyInGame"  // 單播：連接已在其他房間中
	MsgOpponentLeft   = "opponentLeft"   // 廣播：對手斷線，場次中止
)

// ClientMessage 入站消息
//
// KeyCode 保留原始 JSON 值：原始客戶端可能送數字或字串，
// 強制轉換交由 Router 處理（失敗時靜默丟棄）。
type ClientMessage struct {
	Type     string          `json:"type"`
	GameCode string          `json:"gameCode,omitempty"`
	KeyCode  json.RawMessage `json:"keyCode,omitempty"`
}

// ServerMessage 出站消息
type ServerMessage struct {
	Type         string     `json:"type"`
	GameCode     string     `json:"gameCode,omitempty"`
	PlayerNumber int        `json:"playerNumber,omitempty"`
	State        *GameState `json:"state,omitempty"`
	Winner       int        `json:"winner,omitempty"`
}

// GameCodeMessage 房間碼通知
func GameCodeMessage(code string) ServerMessage {
	return ServerMessage{Type: MsgGameCode, GameCode: code}
}

// InitMessage 玩家編號分配
func InitMessage(playerNumber int) ServerMessage {
	return ServerMessage{Type: MsgInit, PlayerNumber: playerNumber}
}

// StateMessage tick 狀態快照
func StateMessage(state GameState) ServerMessage {
	return ServerMessage{Type: MsgGameState, State: &state}
}

// GameOverMessage 終局通知
func GameOverMessage(winner int) ServerMessage {
	return ServerMessage{Type: MsgGameOver, Winner: winner}
}

// Transport 消息傳遞抽象
//
// 核心組件（Registry、Scheduler）只依賴此介面，不感知底層協議。
// 兩個方法都不得阻塞調用方：慢客戶端由實現自行緩衝或丟棄。
type Transport interface {
	// Unicast 發送給單一連接
	Unicast(connID string, msg ServerMessage)

	// Broadcast 發送給房間的所有成員
	Broadcast(roomCode string, msg ServerMessage)
}
