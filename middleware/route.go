package middleware

import (
	"github.com/gin-gonic/gin"

	msecurity "PChat/middleware/security"
	"PChat/service/storage"
	"PChat/tools/security"
)

// RouteOpt marks per-route behavior; today that is only whether the route
// sits behind the bearer-token check.
type RouteOpt struct {
	IsAuth bool
}

// Router registers gin routes and applies the auth middleware to the ones
// that ask for it.
type Router struct {
	engine *gin.Engine
	auth   gin.HandlerFunc
}

func NewRouter(engine *gin.Engine, jwt security.Options, sessions storage.SessionStore) *Router {
	return &Router{engine: engine, auth: msecurity.Auth(jwt, sessions)}
}

func (r *Router) GET(path string, h gin.HandlerFunc, opts ...RouteOpt) {
	r.handle("GET", path, h, opts)
}

func (r *Router) POST(path string, h gin.HandlerFunc, opts ...RouteOpt) {
	r.handle("POST", path, h, opts)
}

func (r *Router) DELETE(path string, h gin.HandlerFunc, opts ...RouteOpt) {
	r.handle("DELETE", path, h, opts)
}

func (r *Router) handle(method, path string, h gin.HandlerFunc, opts []RouteOpt) {
	chain := make([]gin.HandlerFunc, 0, 2)
	for _, o := range opts {
		if o.IsAuth {
			chain = append(chain, r.auth)
			break
		}
	}
	chain = append(chain, h)
	r.engine.Handle(method, path, chain...)
}
