package modelstore

import (
	"sync"
	"time"
)

// Snapshot 某个用户当前选中模型的一次快照
// Version 单调递增，乱序到达的旧写入会被丢弃
type Snapshot struct {
	UserID       string    `json:"user_id"`
	ProviderID   uint      `json:"provider_id"`
	ProviderName string    `json:"provider_name"`
	Version      uint64    `json:"version"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store 选中模型的内存存储
// 写入采用 last-write-wins：以版本号为准，而不是到达顺序。
// 订阅者通过带缓冲的通道接收最新快照，慢消费者只会丢中间值，
// 永远能看到最后一次写入
type Store struct {
	mu      sync.RWMutex
	current map[string]Snapshot
	subs    map[string]map[int]chan Snapshot
	nextSub int
}

// New 创建存储
func New() *Store {
	return &Store{
		current: make(map[string]Snapshot),
		subs:    make(map[string]map[int]chan Snapshot),
	}
}

// Get 读取用户当前选中的模型
func (s *Store) Get(userID string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.current[userID]
	return snap, ok
}

// Set 写入用户的模型选择，版本号自动递增
// 返回写入后的快照
func (s *Store) Set(userID string, providerID uint, providerName string) Snapshot {
	s.mu.Lock()

	snap := Snapshot{
		UserID:       userID,
		ProviderID:   providerID,
		ProviderName: providerName,
		Version:      s.current[userID].Version + 1,
		UpdatedAt:    time.Now(),
	}
	s.current[userID] = snap

	s.broadcastLocked(userID, snap)
	s.mu.Unlock()

	return snap
}

// SetIfNewer 仅当版本号更新时写入
// 用于多个写入方并发提交时丢弃乱序到达的旧值
func (s *Store) SetIfNewer(snap Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.current[snap.UserID]; ok && snap.Version <= existing.Version {
		return false
	}

	s.current[snap.UserID] = snap
	s.broadcastLocked(snap.UserID, snap)
	return true
}

// Clear 清除用户的选择
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	delete(s.current, userID)
	s.mu.Unlock()
}

// Subscribe 订阅某个用户的选择变化
// 返回接收通道和取消函数，取消后通道关闭
func (s *Store) Subscribe(userID string) (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, 1)
	id := s.nextSub
	s.nextSub++

	if s.subs[userID] == nil {
		s.subs[userID] = make(map[int]chan Snapshot)
	}
	s.subs[userID][id] = ch

	// 订阅时立即推送当前值
	if snap, ok := s.current[userID]; ok {
		ch <- snap
	}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if sub, ok := s.subs[userID][id]; ok {
			delete(s.subs[userID], id)
			if len(s.subs[userID]) == 0 {
				delete(s.subs, userID)
			}
			close(sub)
		}
	}

	return ch, cancel
}

// broadcastLocked 推送快照给所有订阅者，调用方持有写锁
// 通道已满时先丢弃积压的旧值，保证订阅者总能收到最新快照
func (s *Store) broadcastLocked(userID string, snap Snapshot) {
	for _, ch := range s.subs[userID] {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
