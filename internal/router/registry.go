package router

import "github.com/gin-gonic/gin"

// Module owns a group of routes. Modules decide their own sub-paths and
// per-route middleware.
type Module interface {
	Register(rg *gin.RouterGroup)
}

// Registry collects modules and mounts them on one route group in the order
// they were added.
type Registry struct {
	Engine  *gin.Engine
	Root    *gin.RouterGroup
	modules []Module
}

func NewRegistry(engine *gin.Engine, basePath string) *Registry {
	if basePath == "" {
		basePath = "/"
	}
	return &Registry{Engine: engine, Root: engine.Group(basePath)}
}

func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

func (r *Registry) RegisterAll() {
	for _, m := range r.modules {
		m.Register(r.Root)
	}
}
