package platform

import "sync"

type Guild struct {
	ID   string
	Name string
}

// GuildRef holds the primary guild context. It is set once when the session
// reports ready and read by the sweeper and several handlers; consumers
// must treat an unset ref as "not ready yet" and no-op.
type GuildRef struct {
	mu sync.RWMutex
	g  *Guild
}

func NewGuildRef() *GuildRef {
	return &GuildRef{}
}

// Set records the primary guild. The first call wins; later calls (e.g. a
// gateway resume re-delivering ready) are ignored.
func (r *GuildRef) Set(g Guild) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.g == nil {
		r.g = &g
	}
}

func (r *GuildRef) Get() (Guild, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.g == nil {
		return Guild{}, false
	}
	return *r.g, true
}
