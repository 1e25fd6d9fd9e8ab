package modelstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetAndGet(t *testing.T) {
	store := New()

	snap := store.Set("user-1", 3, "openai-main")
	assert.Equal(t, uint64(1), snap.Version)

	got, ok := store.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, uint(3), got.ProviderID)
	assert.Equal(t, "openai-main", got.ProviderName)

	// 不同用户互不影响
	_, ok = store.Get("user-2")
	assert.False(t, ok)
}

func TestStore_VersionIncrements(t *testing.T) {
	store := New()

	store.Set("user-1", 1, "p1")
	store.Set("user-1", 2, "p2")
	snap := store.Set("user-1", 3, "p3")

	assert.Equal(t, uint64(3), snap.Version)

	got, _ := store.Get("user-1")
	assert.Equal(t, "p3", got.ProviderName)
}

func TestStore_StaleWriteIgnored(t *testing.T) {
	store := New()

	store.Set("user-1", 1, "p1")
	current := store.Set("user-1", 2, "p2")

	// 乱序到达的旧版本被丢弃
	accepted := store.SetIfNewer(Snapshot{
		UserID:       "user-1",
		ProviderID:   9,
		ProviderName: "stale",
		Version:      current.Version - 1,
	})
	assert.False(t, accepted)

	got, _ := store.Get("user-1")
	assert.Equal(t, "p2", got.ProviderName)

	// 更新的版本被接受
	accepted = store.SetIfNewer(Snapshot{
		UserID:       "user-1",
		ProviderID:   5,
		ProviderName: "newer",
		Version:      current.Version + 1,
	})
	assert.True(t, accepted)

	got, _ = store.Get("user-1")
	assert.Equal(t, "newer", got.ProviderName)
}

func TestStore_SubscribeReceivesUpdates(t *testing.T) {
	store := New()

	ch, cancel := store.Subscribe("user-1")
	defer cancel()

	store.Set("user-1", 1, "p1")

	select {
	case snap := <-ch:
		assert.Equal(t, "p1", snap.ProviderName)
	case <-time.After(time.Second):
		t.Fatal("未收到订阅推送")
	}
}

func TestStore_SubscribeGetsCurrentValue(t *testing.T) {
	store := New()
	store.Set("user-1", 1, "p1")

	// 订阅时立即收到当前值
	ch, cancel := store.Subscribe("user-1")
	defer cancel()

	select {
	case snap := <-ch:
		assert.Equal(t, "p1", snap.ProviderName)
	case <-time.After(time.Second):
		t.Fatal("未收到当前值")
	}
}

func TestStore_SlowSubscriberSeesLatest(t *testing.T) {
	store := New()

	ch, cancel := store.Subscribe("user-1")
	defer cancel()

	// 订阅者不消费，连续写入多次
	store.Set("user-1", 1, "p1")
	store.Set("user-1", 2, "p2")
	store.Set("user-1", 3, "p3")

	// 中间值可以丢，最后一次写入必须可见
	var last Snapshot
	for {
		select {
		case snap := <-ch:
			last = snap
			continue
		case <-time.After(100 * time.Millisecond):
		}
		break
	}
	assert.Equal(t, "p3", last.ProviderName)
	assert.Equal(t, uint64(3), last.Version)
}

func TestStore_CancelClosesChannel(t *testing.T) {
	store := New()

	ch, cancel := store.Subscribe("user-1")
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// 取消后写入不会 panic
	store.Set("user-1", 1, "p1")
}
