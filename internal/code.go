package internal

import (
	"crypto/rand"
	"strings"
	"time"
)

// CodeGenerator 房間碼生成器
//
// 設計考量：
//   - 短碼（預設 5 字符）方便玩家口頭或訊息傳遞
//   - 字符集排除易混淆字符（0/O、1/I）
//   - crypto/rand 避免可預測性
//   - 碰撞由調用方（Registry）在持鎖狀態下檢查並重新生成
type CodeGenerator struct {
	length   int
	alphabet string
}

// NewCodeGenerator 創建房間碼生成器
func NewCodeGenerator(cfg RoomConfig) *CodeGenerator {
	return &CodeGenerator{
		length:   cfg.CodeLength,
		alphabet: cfg.CodeAlphabet,
	}
}

// Generate 生成一個新的房間碼
func (g *CodeGenerator) Generate() string {
	var sb strings.Builder
	sb.Grow(g.length)
	for i := 0; i < g.length; i++ {
		sb.WriteByte(g.alphabet[randInt(len(g.alphabet))])
	}
	return sb.String()
}

// randInt 生成 [0, max) 的隨機數
func randInt(max int) int {
	b := make([]byte, 1)
	if _, err := rand.Read(b); err != nil {
		// 如果隨機讀取失敗，使用時間作為隨機源
		return int(time.Now().UnixNano()) % max
	}
	return int(b[0]) % max
}
