package server

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"stickyboard-backend/internal/auth"
	"stickyboard-backend/internal/canvas"
	"stickyboard-backend/internal/config"
	"stickyboard-backend/internal/handler"
	"stickyboard-backend/internal/presence"
	"stickyboard-backend/internal/store"
)

// Server Fiber 서버 래퍼
type Server struct {
	app            *fiber.App
	cfg            *config.Config
	db             *gorm.DB
	hub            *handler.BoardHub
	boardHandler   *handler.BoardHandler
	noteHandler    *handler.NoteHandler
	groupHandler   *handler.GroupHandler
	gestureHandler *handler.GestureHandler
	canvasHandler  *handler.CanvasHandler
	healthHandler  *handler.HealthHandler
	jwtManager     *auth.JWTManager
	presence       *presence.Manager
}

// New 새 서버 인스턴스 생성
func New(cfg *config.Config, db *gorm.DB) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "Sticky Board API",
		ServerHeader:          "Fiber",
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		Prefork:               false, // WebSocket과 호환성 문제로 비활성화
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,
		BodyLimit:             1 * 1024 * 1024,
		DisableStartupMessage: false,
	})

	// Auth 초기화
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTokenExpiry)

	// Presence 초기화 (선택적)
	var presenceManager *presence.Manager
	if cfg.Redis.Enabled {
		presenceManager = presence.NewManager(
			cfg.Redis.Addr,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.HeartbeatTTL,
		)
		log.Printf("✅ Presence manager initialized (redis: %s)", cfg.Redis.Addr)
	} else {
		log.Println("ℹ️ Presence not configured (online indicators disabled)")
	}

	boardStore := store.NewBoardStore(db)
	hub := handler.NewBoardHub(boardStore, presenceManager, cfg.WebSocket)

	canvasOpts := canvas.Options{
		MinScale:         cfg.Canvas.MinScale,
		MaxScale:         cfg.Canvas.MaxScale,
		ZoomStep:         cfg.Canvas.ZoomStep,
		WheelSensitivity: cfg.Canvas.WheelSensitivity,
		FitPadding:       cfg.Canvas.FitPadding,
		FitMinScale:      cfg.Canvas.FitMinScale,
		FitMaxScale:      cfg.Canvas.FitMaxScale,
	}

	return &Server{
		app:            app,
		cfg:            cfg,
		db:             db,
		hub:            hub,
		boardHandler:   handler.NewBoardHandler(boardStore, hub, presenceManager, jwtManager),
		noteHandler:    handler.NewNoteHandler(boardStore, hub),
		groupHandler:   handler.NewGroupHandler(boardStore, hub),
		gestureHandler: handler.NewGestureHandler(boardStore, hub),
		canvasHandler:  handler.NewCanvasHandler(boardStore, canvasOpts),
		healthHandler:  handler.NewHealthHandler(db, presenceManager),
		jwtManager:     jwtManager,
		presence:       presenceManager,
	}
}

// SetupMiddleware 미들웨어 설정
func (s *Server) SetupMiddleware() {
	// 패닉 복구
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// 로깅
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Asia/Seoul",
	}))

	// CORS
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS.AllowOrigins,
		AllowHeaders:     s.cfg.CORS.AllowHeaders,
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowCredentials: true,
	}))
}

// SetupRoutes 라우트 설정
func (s *Server) SetupRoutes() {
	// 헬스체크 엔드포인트
	s.app.Get("/health", s.healthHandler.Check)
	s.app.Get("/health/live", s.healthHandler.Liveness)
	s.app.Get("/health/ready", s.healthHandler.Readiness)

	// Rate Limiter 설정 (생성 엔드포인트용 - 익명 보드라 남용 방지)
	createLimiter := limiter.New(limiter.Config{
		Max:        30,              // 최대 30회
		Expiration: 1 * time.Minute, // 1분당
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() // IP 기반 제한
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	})

	sessionAuth := auth.SessionMiddleware(s.jwtManager)

	// Board 라우트 그룹 (목록/생성/참가는 토큰 발급 전이라 인증 없음)
	boardGroup := s.app.Group("/api/boards")
	boardGroup.Post("/", createLimiter, s.boardHandler.CreateBoard)
	boardGroup.Get("/", s.boardHandler.ListBoards)
	boardGroup.Get("/:boardId", s.boardHandler.GetBoard)
	boardGroup.Delete("/:boardId", sessionAuth, s.boardHandler.DeleteBoard)
	boardGroup.Post("/:boardId/join", createLimiter, s.boardHandler.JoinBoard)
	boardGroup.Get("/:boardId/participants", s.boardHandler.ListParticipants)
	boardGroup.Post("/:boardId/timer", sessionAuth, s.boardHandler.StartTimer)
	boardGroup.Delete("/:boardId/timer", sessionAuth, s.boardHandler.ResetTimer)

	// Note 라우트 (보드 하위, 인증 필요)
	boardGroup.Post("/:boardId/notes", sessionAuth, createLimiter, s.noteHandler.CreateNote)
	boardGroup.Get("/:boardId/notes/archived", sessionAuth, s.noteHandler.ListArchivedNotes)
	boardGroup.Patch("/:boardId/notes/:noteId", sessionAuth, s.noteHandler.UpdateNote)
	boardGroup.Post("/:boardId/notes/:noteId/like", sessionAuth, s.noteHandler.ToggleLike)
	boardGroup.Post("/:boardId/notes/:noteId/archive", sessionAuth, s.noteHandler.ArchiveNote)
	boardGroup.Post("/:boardId/notes/:noteId/restore", sessionAuth, s.noteHandler.RestoreNote)
	boardGroup.Delete("/:boardId/notes/:noteId", sessionAuth, s.noteHandler.DeleteNote)

	// Group 라우트 (보드 하위, 인증 필요)
	boardGroup.Post("/:boardId/groups", sessionAuth, s.groupHandler.CreateGroup)
	boardGroup.Patch("/:boardId/groups/:groupId", sessionAuth, s.groupHandler.UpdateGroup)
	boardGroup.Delete("/:boardId/groups/:groupId", sessionAuth, s.groupHandler.DisbandGroup)
	boardGroup.Put("/:boardId/groups/:groupId/order", sessionAuth, s.groupHandler.ReorderGroup)
	boardGroup.Get("/:boardId/groups/:groupId/members", sessionAuth, s.groupHandler.GetGroupMembers)

	// 드래그 완료 판정
	boardGroup.Post("/:boardId/gestures/drag", sessionAuth, s.gestureHandler.ResolveDrag)

	// fit-to-content 프레이밍 계산
	boardGroup.Post("/:boardId/fit", sessionAuth, s.canvasHandler.FitToContent)

	// WebSocket 업그레이드 체크 미들웨어
	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket 보드 라이브 피드 엔드포인트
	s.app.Get("/ws/boards/:boardId", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		// 브라우저 WebSocket은 헤더를 못 실어서 token 쿼리로 받는다
		tokenString := c.Query("token")
		if tokenString == "" {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		claims, err := s.jwtManager.ValidateSessionToken(tokenString)
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		boardID := c.Params("boardId")
		if claims.BoardID != boardID {
			return c.SendStatus(fiber.StatusForbidden)
		}

		c.Locals("boardID", boardID)
		c.Locals("clientID", claims.ClientID)
		c.Locals("nickname", claims.Nickname)

		return c.Next()
	}, websocket.New(s.hub.HandleWebSocket, websocket.Config{
		ReadBufferSize:  s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: s.cfg.WebSocket.WriteBufferSize,
	}))
}

// Start 서버 시작 (Graceful Shutdown 지원)
func (s *Server) Start() error {
	// Graceful Shutdown 설정
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("🛑 Shutting down server...")
		if s.presence != nil {
			s.presence.Close()
		}
		if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Fatalf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("🚀 Sticky Board API starting on %s", s.cfg.Server.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost%s/ws/boards/:boardId", s.cfg.Server.Port)

	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown 서버 종료
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(30 * time.Second)
}
