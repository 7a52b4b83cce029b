package internal_test

import (
	"encoding/json"
	"testing"

	"github.com/koopa0/realtime-pong/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRouterHarness 組裝進行中的場次供輸入測試
func newRouterHarness(t *testing.T) (*internal.Router, *internal.Registry, string) {
	t.Helper()

	registry, _ := newTestRegistry(t, nil)
	router := internal.NewRouter(registry, newTestLogger())

	code, _, err := registry.Create("conn_a")
	require.NoError(t, err)
	_, err = registry.Join(code, "conn_b")
	require.NoError(t, err)

	return router, registry, code
}

// TestRouter_OnInput_KeyMapping 測試按鍵到意圖的映射
func TestRouter_OnInput_KeyMapping(t *testing.T) {
	tests := []struct {
		name     string
		rawKey   string
		expected internal.Velocity
	}{
		{
			name:     "left arrow",
			rawKey:   "37",
			expected: internal.Velocity{X: -1, Y: 0},
		},
		{
			name:     "up arrow",
			rawKey:   "38",
			expected: internal.Velocity{X: 0, Y: -1},
		},
		{
			name:     "right arrow",
			rawKey:   "39",
			expected: internal.Velocity{X: 1, Y: 0},
		},
		{
			name:     "down arrow",
			rawKey:   "40",
			expected: internal.Velocity{X: 0, Y: 1},
		},
		{
			name:     "numeric string accepted",
			rawKey:   `"38"`,
			expected: internal.Velocity{X: 0, Y: -1},
		},
		{
			name:     "string with whitespace accepted",
			rawKey:   `" 40 "`,
			expected: internal.Velocity{X: 0, Y: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, registry, code := newRouterHarness(t)

			router.OnInput("conn_a", json.RawMessage(tt.rawKey))

			slot := registry.Session(code).SlotOf("conn_a")
			require.NotNil(t, slot)
			assert.Equal(t, tt.expected, slot.Intent())
		})
	}
}

// TestRouter_OnInput_MalformedDiscarded 測試格式錯誤的輸入靜默丟棄
func TestRouter_OnInput_MalformedDiscarded(t *testing.T) {
	tests := []struct {
		name   string
		rawKey string
	}{
		{name: "non-numeric string", rawKey: `"abc"`},
		{name: "boolean", rawKey: "true"},
		{name: "object", rawKey: `{"key":38}`},
		{name: "array", rawKey: "[38]"},
		{name: "empty", rawKey: ""},
		{name: "null", rawKey: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, registry, code := newRouterHarness(t)
			slot := registry.Session(code).SlotOf("conn_a")
			require.NotNil(t, slot)

			// 先設置一個合法意圖，驗證錯誤輸入不覆蓋它
			slot.SetIntent(internal.Velocity{Y: -1})

			router.OnInput("conn_a", json.RawMessage(tt.rawKey))

			assert.Equal(t, internal.Velocity{Y: -1}, slot.Intent(),
				"格式錯誤的輸入不得改變先前的意圖")
		})
	}
}

// TestRouter_OnInput_UnmappedKeyKeepsIntent 測試未映射按鍵保留先前意圖
func TestRouter_OnInput_UnmappedKeyKeepsIntent(t *testing.T) {
	router, registry, code := newRouterHarness(t)
	slot := registry.Session(code).SlotOf("conn_a")
	require.NotNil(t, slot)

	router.OnInput("conn_a", json.RawMessage("38"))
	require.Equal(t, internal.Velocity{Y: -1}, slot.Intent())

	// 空白鍵（32）未映射
	router.OnInput("conn_a", json.RawMessage("32"))

	assert.Equal(t, internal.Velocity{Y: -1}, slot.Intent(), "未知按鍵保留玩家先前的方向")
}

// TestRouter_OnInput_OrphanDiscarded 測試無房間歸屬的輸入靜默丟棄
func TestRouter_OnInput_OrphanDiscarded(t *testing.T) {
	registry, _ := newTestRegistry(t, nil)
	router := internal.NewRouter(registry, newTestLogger())

	// 不得 panic、不得報錯
	router.OnInput("never_joined", json.RawMessage("38"))
}

// TestRouter_OnInput_WritesOwnSlotOnly 測試輸入只寫入自己的槽位
func TestRouter_OnInput_WritesOwnSlotOnly(t *testing.T) {
	router, registry, code := newRouterHarness(t)
	session := registry.Session(code)

	router.OnInput("conn_b", json.RawMessage("40"))

	assert.Equal(t, internal.Velocity{}, session.SlotOf("conn_a").Intent())
	assert.Equal(t, internal.Velocity{Y: 1}, session.SlotOf("conn_b").Intent())
}

// TestRouter_OnInput_AfterTeardown 測試場次銷毀後的輸入是正常競爭
func TestRouter_OnInput_AfterTeardown(t *testing.T) {
	router, registry, code := newRouterHarness(t)

	registry.Teardown(code)

	// 靜默丟棄，不得 panic
	router.OnInput("conn_a", json.RawMessage("38"))
}
