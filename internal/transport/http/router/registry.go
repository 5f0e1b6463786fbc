package router

import (
	"sort"
	"sync"

	"github.com/gin-gonic/gin"
)

// A module implements any of these to get mounted.
type (
	// PublicModule mounts routes under /api/v1 that need no token.
	PublicModule interface{ MountPublic(*gin.RouterGroup) }
	// APIModule mounts routes under /api/v1 behind AuthJWT.
	APIModule interface{ MountAPI(*gin.RouterGroup) }
	// AdminModule mounts routes under /admin/v1 behind AuthJWT("admin").
	AdminModule interface{ MountAdmin(*gin.RouterGroup) }
)

// Lower mounts first; modules without Priority get 100.
type prioritizer interface{ Priority() int }

type Registry struct {
	mu   sync.RWMutex
	mods []any
}

func NewRegistry(mods ...any) *Registry {
	r := &Registry{}
	for _, m := range mods {
		r.Register(m)
	}
	return r
}

func (r *Registry) Register(mod any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mods = append(r.mods, mod)
}

func (r *Registry) MountPublic(g *gin.RouterGroup) {
	for _, m := range r.sorted() {
		if pm, ok := m.(PublicModule); ok {
			pm.MountPublic(g)
		}
	}
}

func (r *Registry) MountAPI(g *gin.RouterGroup) {
	for _, m := range r.sorted() {
		if am, ok := m.(APIModule); ok {
			am.MountAPI(g)
		}
	}
}

func (r *Registry) MountAdmin(g *gin.RouterGroup) {
	for _, m := range r.sorted() {
		if am, ok := m.(AdminModule); ok {
			am.MountAdmin(g)
		}
	}
}

func (r *Registry) sorted() []any {
	r.mu.RLock()
	mods := append([]any(nil), r.mods...)
	r.mu.RUnlock()
	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
	return mods
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
