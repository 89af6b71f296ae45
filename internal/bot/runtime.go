package bot

import (
	"sync"

	"github.com/mymmrac/telego"
)

// Runtime is the process-scoped context built once at startup, after the
// transport and stores are confirmed ready. It replaces what would
// otherwise be package-level mutable globals: the bot identity, the admin
// set, and the banned-user cache consulted on the hot path.
type Runtime struct {
	Self   telego.User
	admins map[int64]struct{}

	mu     sync.RWMutex
	banned map[int64]struct{}
}

func NewRuntime(self telego.User, admins []int64, bannedIDs []int64) *Runtime {
	r := &Runtime{
		Self:   self,
		admins: make(map[int64]struct{}, len(admins)),
		banned: make(map[int64]struct{}, len(bannedIDs)),
	}
	for _, id := range admins {
		r.admins[id] = struct{}{}
	}
	for _, id := range bannedIDs {
		r.banned[id] = struct{}{}
	}
	return r
}

func (r *Runtime) IsAdmin(userID int64) bool {
	_, ok := r.admins[userID]
	return ok
}

func (r *Runtime) IsBanned(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.banned[userID]
	return ok
}

func (r *Runtime) SetBanned(userID int64, banned bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if banned {
		r.banned[userID] = struct{}{}
	} else {
		delete(r.banned, userID)
	}
}
