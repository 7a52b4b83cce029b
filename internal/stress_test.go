package internal_test

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koopa0/realtime-pong/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRegistry_ConcurrentLifecycle 壓力測試：併發創建、加入、輸入與銷毀
//
// 驗證註冊表在大量併發場次下不死鎖、不崩潰，
// 且結束後所有資源（房間、歸屬、調度器）都被回收。
func TestRegistry_ConcurrentLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("跳過壓力測試")
	}

	registry, _ := newTestRegistry(t, nil)
	router := internal.NewRouter(registry, newTestLogger())

	const rooms = 50

	var (
		wg       sync.WaitGroup
		created  atomic.Int64
		joined   atomic.Int64
		inputs   atomic.Int64
		tornDown atomic.Int64
	)

	for i := 0; i < rooms; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			creator := fmt.Sprintf("creator_%d", i)
			joiner := fmt.Sprintf("joiner_%d", i)

			code, _, err := registry.Create(creator)
			if err != nil {
				return
			}
			created.Add(1)

			if _, err := registry.Join(code, joiner); err != nil {
				registry.Disconnect(creator)
				return
			}
			joined.Add(1)

			// 兩位玩家各送一串輸入，與調度器的 tick 讀取競爭
			keys := []string{"37", "38", "39", "40", `"38"`, "true", "7"}
			for j := 0; j < 20; j++ {
				router.OnInput(creator, json.RawMessage(keys[j%len(keys)]))
				router.OnInput(joiner, json.RawMessage(keys[(j+1)%len(keys)]))
				inputs.Add(2)
			}

			time.Sleep(time.Duration(i%5) * time.Millisecond)

			// 一半房間走斷線路徑，另一半直接銷毀
			if i%2 == 0 {
				registry.Disconnect(creator)
			} else {
				registry.Teardown(code)
			}
			tornDown.Add(1)
		}(i)
	}

	wg.Wait()

	require.Equal(t, int64(rooms), created.Load())
	require.Equal(t, created.Load(), tornDown.Load())

	stats := registry.Stats()
	assert.Equal(t, 0, stats["total_rooms"], "所有房間都被回收")
	assert.Equal(t, 0, stats["total_players"], "所有歸屬都被清除")

	t.Logf("rooms=%d joined=%d inputs=%d", created.Load(), joined.Load(), inputs.Load())
}

// TestRegistry_ConcurrentJoinSameRoom 壓力測試：多連接搶同一房間
//
// 恰好一位搶到 2 號槽位，其餘全部收到 ErrRoomFull。
func TestRegistry_ConcurrentJoinSameRoom(t *testing.T) {
	if testing.Short() {
		t.Skip("跳過壓力測試")
	}

	registry, _ := newTestRegistry(t, nil)

	code, _, err := registry.Create("creator")
	require.NoError(t, err)

	const contenders = 20

	var (
		wg      sync.WaitGroup
		winners atomic.Int64
		fulls   atomic.Int64
	)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			slot, err := registry.Join(code, fmt.Sprintf("contender_%d", i))
			switch {
			case err == nil:
				assert.Equal(t, 2, slot)
				winners.Add(1)
			default:
				assert.ErrorIs(t, err, internal.ErrRoomFull)
				fulls.Add(1)
			}
		}(i)
	}

	wg.Wait()

	assert.Equal(t, int64(1), winners.Load(), "恰好一位加入成功")
	assert.Equal(t, int64(contenders-1), fulls.Load())
	assert.Len(t, registry.Members(code), 2)
}
