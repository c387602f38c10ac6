package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"PChat/config"
	"PChat/logger"
	"PChat/middleware"
	chathttp "PChat/module/chat"
	"PChat/module/chat/message"
	chatsvc "PChat/module/chat/service"
	userhttp "PChat/module/user"
	usersvc "PChat/module/user/service"
	"PChat/service/chat"
	"PChat/service/chat/handlers"
	"PChat/service/storage"
	redisc "PChat/service/storage/redis"
)

func main() {
	cfg := config.Load()
	defer logger.Sync()

	st := buildStores(cfg)

	server := chat.NewServer(cfg, st)
	handlers.RegisterAll(server.Dispatcher())

	users := usersvc.New(st.Users, st.Sessions, cfg.JWTOptions(), cfg.MaxLoginAttempts, cfg.AccountLockTime)
	convs := chatsvc.New(st.Convs, st.Users)

	userH := userhttp.NewHandler(users, server.Registry())
	convH := chathttp.NewHandler(convs)
	msgH := message.NewHandler(server.Log(), server)

	engine := gin.New()
	engine.Use(gin.Recovery())

	r := middleware.NewRouter(engine, cfg.JWTOptions(), st.Sessions)
	auth := middleware.RouteOpt{IsAuth: true}

	r.POST("/api/auth/register", userH.Register)
	r.POST("/api/auth/login", userH.Login)
	r.POST("/api/auth/logout", userH.Logout, auth)

	r.GET("/api/users/me", userH.Me, auth)
	r.GET("/api/users/search", userH.Search, auth)
	r.GET("/api/profiles/:id", userH.Profile, auth)

	r.POST("/api/private-chats", convH.OpenPrivate, auth)
	r.POST("/api/group-chats", convH.CreateGroup, auth)
	r.GET("/api/chats", convH.List, auth)
	r.GET("/api/chats/:id", convH.Get, auth)

	r.GET("/api/chats/:id/messages", msgH.History, auth)
	r.POST("/api/chats/:id/messages", msgH.Send, auth)
	r.GET("/api/messages/:messageId/statuses", msgH.Statuses, auth)
	r.DELETE("/api/messages/:messageId", msgH.Delete, auth)

	engine.GET("/ws", server.HandleWS)
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": server.Registry().Count()})
	})

	logger.Infof("[main] listening on %s", cfg.ListenAddr)
	if err := engine.Run(cfg.ListenAddr); err != nil {
		logger.Errorf("[main] server stopped err=%v", err)
	}
}

// buildStores picks redis when an address is configured, in-memory
// otherwise. The in-memory stores are for development and tests; state
// does not survive a restart.
func buildStores(cfg config.Config) storage.Stores {
	if cfg.RedisAddr == "" {
		logger.Warn("[main] REDIS_ADDR not set, using in-memory stores")
		return storage.NewMemoryStores()
	}
	if err := redisc.Init(redisc.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}); err != nil {
		logger.Errorf("[main] redis init addr=%s err=%v", cfg.RedisAddr, err)
		panic(err)
	}
	return storage.Stores{
		Users:    storage.NewRedisUsers(),
		Sessions: storage.NewRedisSessions(),
		Convs:    storage.NewRedisConversations(),
		Msgs:     storage.NewRedisMessages(),
	}
}
