package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"DevChat/global"
	"DevChat/logger"
	mw "DevChat/middleware/security"
	chatmod "DevChat/module/chat"
	chatsvc "DevChat/module/chat/service"
	usermod "DevChat/module/user"
	usersvc "DevChat/module/user/service"
	"DevChat/service/chat"
	"DevChat/service/storage"
	"DevChat/tools/security"
)

func main() {
	defer logger.Sync()
	cfg := global.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.OpenMongo(ctx, cfg.MongoURL, cfg.MongoDB)
	if err != nil {
		logger.Error("mongo unavailable", zap.Error(err))
		os.Exit(1)
	}

	// The registry stays authoritative without redis; the mirror is for
	// observers outside this process.
	var mirror chat.PresenceMirror
	redisMirror, err := storage.NewPresenceMirror(cfg.Redis, cfg.PresenceTTL)
	if err != nil {
		logger.Warn("redis unavailable, presence mirror disabled", zap.Error(err))
	} else {
		mirror = redisMirror
		defer redisMirror.Close()
	}

	jwtOpts := security.Options{Secret: []byte(cfg.JWTSecret), Alg: "HS256", TTL: cfg.JWTTTL}

	users := usersvc.New(db)
	store := chatsvc.NewStore(db)
	reg := chat.NewRegistry()
	gateway := chat.NewServer(chat.ServerConfig{
		JWTOpts:       jwtOpts,
		AuthWindow:    cfg.AuthWindow,
		SendQueueSize: cfg.SendQueueSize,
	}, reg, users, store, mirror)

	if mirror != nil {
		go refreshPresence(ctx, reg, mirror, cfg.PresenceTTL)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	auth := mw.Middleware(jwtOpts)
	usermod.NewHandler(users, reg, jwtOpts).RegisterRoutes(r, auth)
	chatmod.NewHandler(store, users).RegisterRoutes(r, auth)
	r.GET("/ws", gateway.HandleWS)
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "DevChat server running") })

	srv := &http.Server{Addr: cfg.Addr, Handler: r}
	go func() {
		logger.Infof("listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("serve failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// refreshPresence renews the mirror TTL for connected users so only a crashed
// gateway lets entries age out.
func refreshPresence(ctx context.Context, reg *chat.Registry, mirror chat.PresenceMirror, ttl time.Duration) {
	t := time.NewTicker(ttl / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if users := reg.LiveUsers(); len(users) > 0 {
				if err := mirror.Refresh(ctx, users); err != nil {
					logger.Warn("presence refresh failed", zap.Error(err))
				}
			}
		}
	}
}
