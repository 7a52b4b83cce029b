package internal_test

import (
	"strings"
	"testing"

	"github.com/koopa0/realtime-pong/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCodeGenerator_Generate 測試房間碼生成
func TestCodeGenerator_Generate(t *testing.T) {
	tests := []struct {
		name     string
		length   int
		alphabet string
	}{
		{
			name:     "default config",
			length:   5,
			alphabet: "ABCDEFGHJKLMNPQRSTUVWXYZ23456789",
		},
		{
			name:     "longer code",
			length:   8,
			alphabet: "ABCDEFGHJKLMNPQRSTUVWXYZ23456789",
		},
		{
			name:     "custom alphabet",
			length:   6,
			alphabet: "ABCDEFGH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := internal.NewCodeGenerator(internal.RoomConfig{
				CodeLength:   tt.length,
				CodeAlphabet: tt.alphabet,
			})

			for i := 0; i < 100; i++ {
				code := gen.Generate()
				require.Len(t, code, tt.length)
				for _, ch := range code {
					assert.True(t, strings.ContainsRune(tt.alphabet, ch),
						"字符 %c 不在字符集中", ch)
				}
			}
		})
	}
}

// TestCodeGenerator_Uniqueness 測試生成的房間碼足夠分散
func TestCodeGenerator_Uniqueness(t *testing.T) {
	gen := internal.NewCodeGenerator(internal.DefaultConfig().Room)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		seen[gen.Generate()] = true
	}

	// 32^5 ≈ 3300 萬組合，1000 次生成幾乎不該碰撞
	assert.GreaterOrEqual(t, len(seen), 995)
}

// TestCodeGenerator_ExcludesAmbiguousChars 測試預設字符集排除易混淆字符
func TestCodeGenerator_ExcludesAmbiguousChars(t *testing.T) {
	alphabet := internal.DefaultConfig().Room.CodeAlphabet

	for _, ch := range "01IO" {
		assert.NotContains(t, alphabet, string(ch))
	}
}
