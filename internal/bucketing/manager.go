package bucketing

import (
	"hash"
	"sync"

	"github.com/spaolacci/murmur3"

	"admin-service/internal/config"
)

// Manager maps user IDs onto the fixed set of partition buckets used by
// the platform's users table. The bucket count is a deployment constant;
// changing it reshuffles every partition key.
type Manager struct {
	userBuckets int
	hasherPool  sync.Pool
}

func NewManager(cfg *config.Config) *Manager {
	m := &Manager{
		userBuckets: cfg.Bucketing.UserBuckets,
	}

	m.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}

	return m
}

// UserBucket returns the consistent bucket for userID (0 to userBuckets-1).
func (m *Manager) UserBucket(userID string) int {
	return int(m.getHash(userID) % uint64(m.userBuckets))
}

func (m *Manager) UserBuckets() int {
	return m.userBuckets
}

func (m *Manager) getHash(key string) uint64 {
	hasher := m.hasherPool.Get().(hash.Hash64)
	defer m.hasherPool.Put(hasher)

	hasher.Reset()
	hasher.Write([]byte(key))
	return hasher.Sum64()
}
