package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/happy-game/sync-player/internal/config"
	"github.com/happy-game/sync-player/internal/handler"
	"github.com/happy-game/sync-player/internal/middleware"
	"github.com/happy-game/sync-player/internal/transport"
	"github.com/happy-game/sync-player/pkg/constants"
)

// New builds the HTTP router. The sync stream endpoint depends on the
// configured protocol: websocket registers /ws, sse registers /sse/connect.
func New(
	cfg *config.Config,
	adapter transport.Adapter,
	userHandler *handler.UserHandler,
	roomHandler *handler.RoomHandler,
	playlistHandler *handler.PlaylistHandler,
	syncHandler *handler.SyncHandler,
	health *handler.HealthHandler,
) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.ParseUserInfo())

	r.GET(constants.PathHealth, health.Health)
	r.GET(constants.PathReady, health.Ready)

	api := r.Group("/api")
	{
		user := api.Group("/user")
		{
			user.POST("/login", userHandler.Login)
			user.GET("/query", userHandler.Query)
		}

		room := api.Group("/room")
		{
			room.POST("/create", roomHandler.Create)
			room.GET("/query", roomHandler.Query)
			room.POST("/join", roomHandler.Join)
			room.POST("/leave", roomHandler.Leave)
			room.GET("/queryOnlineUsers", roomHandler.QueryOnlineUsers)
		}

		playlist := api.Group("/playlist")
		playlist.Use(middleware.RequireAuth())
		{
			playlist.POST("/add", playlistHandler.Add)
			playlist.GET("/query", playlistHandler.Query)
			playlist.DELETE("/delete", playlistHandler.Delete)
			playlist.DELETE("/clear", playlistHandler.Clear)
			playlist.POST("/updateOrder", playlistHandler.UpdateOrder)
			playlist.POST("/switch", playlistHandler.Switch)
		}

		sync := api.Group("/sync")
		{
			sync.GET("/protocol", syncHandler.Protocol)
			authed := sync.Group("")
			authed.Use(middleware.RequireAuth())
			{
				authed.POST("/updateTime", syncHandler.UpdateTime)
				authed.POST("/updatePause", syncHandler.UpdatePause)
				authed.GET("/query", syncHandler.Query)
			}
		}
	}

	switch a := adapter.(type) {
	case *transport.WebSocketAdapter:
		r.GET(constants.PathWebSocket, a.HandleWS)
	case *transport.SSEAdapter:
		r.GET(constants.PathSSEConnect, a.HandleConnect)
	}

	return r
}
