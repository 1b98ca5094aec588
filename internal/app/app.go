package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"collab-service/internal/blob"
	"collab-service/internal/config"
	"collab-service/internal/feed"
	"collab-service/internal/friends"
	"collab-service/internal/handlers"
	"collab-service/internal/messages"
	"collab-service/internal/middleware"
	"collab-service/internal/notify"
	"collab-service/internal/observability"
	"collab-service/internal/presence"
	"collab-service/internal/repositories"
	"collab-service/internal/rooms"
	"collab-service/internal/telemetry"
	"collab-service/internal/whiteboard"
	"collab-service/internal/ws"
)

// Stores groups the persistence ports.
type Stores struct {
	Rooms         repositories.RoomRepository
	Messages      repositories.MessageRepository
	Friendships   repositories.FriendshipRepository
	Profiles      repositories.ProfileRepository
	Notifications repositories.NotificationRepository
	Whiteboards   repositories.WhiteboardRepository
}

// Options carries everything New wires together. Pusher, Uploader and
// Audit are optional.
type Options struct {
	Config   config.Config
	Stores   Stores
	Feed     feed.Subscriber
	Viewers  presence.Viewers
	Pusher   notify.Pusher
	Uploader blob.Uploader
	Audit    *telemetry.AuditEmitter
	Clock    clock.Clock
}

// App is the assembled collaboration core and its HTTP surface.
type App struct {
	Rooms         *rooms.Service
	Messages      *messages.Service
	Friends       *friends.Service
	Notifications *notify.Fanout
	Whiteboards   *whiteboard.Engine
	Hub           *ws.Hub
	Router        *gin.Engine
}

// New wires services and routes.
func New(opts Options) *App {
	if opts.Viewers == nil {
		opts.Viewers = presence.NewMemory()
	}
	cfg := opts.Config

	roomSvc := rooms.NewService(opts.Stores.Rooms, opts.Stores.Friendships)
	fanout := notify.NewFanout(opts.Stores.Notifications, opts.Pusher, opts.Viewers)
	msgSvc := messages.NewService(opts.Stores.Messages, roomSvc, fanout, opts.Feed)
	friendSvc := friends.NewService(opts.Stores.Friendships, opts.Stores.Profiles, fanout)
	engine := whiteboard.NewEngine(opts.Stores.Whiteboards, opts.Feed, whiteboard.Options{
		Clock:    opts.Clock,
		Debounce: cfg.WhiteboardDebounce,
		Suppress: cfg.WhiteboardSuppress,
	})
	hub := ws.NewHub()

	a := &App{
		Rooms:         roomSvc,
		Messages:      msgSvc,
		Friends:       friendSvc,
		Notifications: fanout,
		Whiteboards:   engine,
		Hub:           hub,
	}
	a.Router = a.routes(opts)
	return a
}

func (a *App) routes(opts Options) *gin.Engine {
	cfg := opts.Config
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	debug := handlers.DebugSources{Audit: opts.Audit, Connections: a.Hub}
	if counter, ok := opts.Feed.(handlers.Counter); ok {
		debug.Feed = counter
	}
	handlers.RegisterDebugRoutes(router, debug, cfg.DebugRoutes)

	authed := router.Group("/", middleware.AuthMiddleware(middleware.NewTokenValidator(cfg.JWTSecret)))
	api := handlers.API{
		Rooms:         handlers.NewRoomHandler(a.Rooms, opts.Uploader, opts.Audit),
		Messages:      handlers.NewMessageHandler(a.Messages, a.Rooms, opts.Uploader, opts.Audit),
		Friends:       handlers.NewFriendHandler(a.Friends, opts.Audit),
		Notifications: handlers.NewNotificationHandler(a.Notifications),
		Whiteboards:   handlers.NewWhiteboardHandler(a.Rooms, opts.Uploader),
	}
	api.Register(authed, middleware.RateLimit(middleware.NewLimiterPool(cfg.SendRPS, cfg.SendBurst)))

	authed.GET("/ws/rooms/:room_id", ws.NewRoomWebSocketHandler(a.Hub, a.Rooms, a.Messages, opts.Viewers).Handle)
	authed.GET("/ws/notifications", ws.NewNotificationWebSocketHandler(a.Hub, opts.Feed, a.Notifications).Handle)
	authed.GET("/ws/whiteboards/:room_id", ws.NewWhiteboardWebSocketHandler(a.Hub, a.Rooms, a.Whiteboards).Handle)
	return router
}

// Shutdown closes live sockets and waits for whiteboard saves still in
// flight.
func (a *App) Shutdown() {
	a.Hub.CloseAll()
	a.Hub.Wait()
	a.Whiteboards.Wait()
}
