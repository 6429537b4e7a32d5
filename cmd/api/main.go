package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "elixir/api/swagger" // swagger docs
	"elixir/internal/cache"
	"elixir/internal/config"
	"elixir/internal/database"
	"elixir/internal/handler"
	"elixir/internal/infra"
	"elixir/internal/logger"
	"elixir/internal/middleware"
	"elixir/internal/model"
	"elixir/internal/repository"
	"elixir/internal/service"
	"elixir/internal/websocket"
	"elixir/internal/worker"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Elixir API
// @version         1.0
// @description     Online liquor store and inventory management backend.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Setup(cfg.LogLevel, cfg.IsProduction())
	gin.SetMode(cfg.GinMode)
	loc := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := database.Seed(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("database seed failed")
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("database ready")

	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetCookieSecurity(cfg.IsProduction())
	middleware.InitPermissionMiddleware(db)
	handler.RegisterValidators()

	// Redis is optional: without it the cache is in-process and emails go out asynchronously in-process.
	var rdb *redis.Client
	var appCache cache.Cache = cache.NewMemory()
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer rdb.Close()
		appCache = cache.NewRedis(rdb)
	}

	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Repositories
	tx := repository.NewTransactionManager(db)
	usuarioRepo := repository.NewUsuarioRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	categoriaRepo := repository.NewCategoriaRepository(db)
	proveedorRepo := repository.NewProveedorRepository(db)
	movimientoRepo := repository.NewMovimientoRepository(db)
	pedidoRepo := repository.NewPedidoRepository(db)
	promocionRepo := repository.NewPromocionRepository(db)
	cuponRepo := repository.NewCuponRepository(db)
	direccionRepo := repository.NewDireccionRepository(db)
	tasaRepo := repository.NewTasaImpuestoRepository(db)
	solicitudRepo := repository.NewSolicitudRepository(db)
	reclamoRepo := repository.NewReclamoRepository(db)
	reporteRepo := repository.NewReporteRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	sistemaRepo := repository.NewSistemaRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)
	revenueRepo := repository.NewRevenueRepository(db)

	auditSvc := service.NewAuditService(auditRepo, loc)

	// Email transport
	var mailer worker.Deliverer = infra.LogMailer{}
	if cfg.SMTPHost != "" {
		mailer = infra.NewSMTPMailer(cfg)
	}
	var sistemaSvc service.SistemaService
	onMailFailure := func(mail infra.Mail, err error) {
		sistemaSvc.Registrar(context.Background(), service.EventoSistema{
			Nivel:     model.NivelError,
			Categoria: model.CategoriaEmail,
			Mensaje:   "Envío de correo fallido: " + mail.Subject,
			Extra:     map[string]interface{}{"to": mail.To, "error": err.Error()},
			Modulo:    "worker",
		})
	}
	var mailSender service.EmailSender
	var dlq service.DLQReporter
	if rdb != nil {
		dispatcher := worker.NewDispatcher(rdb)
		mailSender, dlq = dispatcher, dispatcher
		worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, map[string]worker.Consumer{
			worker.QueueEmail: worker.NewEmailWorker(mailer, onMailFailure).Consumer(),
		})
	} else {
		async := worker.NewAsyncSender(mailer, onMailFailure)
		mailSender, dlq = async, async
	}
	sistemaSvc = service.NewSistemaService(sistemaRepo, statsRepo, appCache, dlq, auditSvc)
	emailSvc := service.NewEmailService(mailSender, sistemaSvc, cfg.FrontendURL)

	// Services
	authSvc := service.NewAuthService(usuarioRepo, roleRepo, tx, auditSvc, sistemaSvc, emailSvc, service.TokenConfig{
		Secret:     middleware.GetJWTSecret(),
		AccessTTL:  time.Duration(cfg.JWTExpirationHours) * time.Hour,
		RefreshTTL: time.Duration(cfg.JWTRefreshHours) * time.Hour,
	})
	usuarioSvc := service.NewUsuarioService(usuarioRepo, pedidoRepo, tx, auditSvc, wsHub)
	roleSvc := service.NewRoleService(roleRepo, tx, auditSvc)
	catalogoSvc := service.NewCatalogoService(productoRepo, categoriaRepo, promocionRepo, pedidoRepo, statsRepo, sistemaRepo, appCache)
	autorizacionSvc := service.NewAutorizacionService(solicitudRepo, productoRepo, movimientoRepo, tx, auditSvc, wsHub)
	productoSvc := service.NewProductoService(productoRepo, categoriaRepo, proveedorRepo, movimientoRepo, tx, auditSvc, wsHub, autorizacionSvc)
	costo, gratisDesde := cfg.Shipping()
	pedidoSvc := service.NewPedidoService(service.PedidoDeps{
		Pedidos:     pedidoRepo,
		Productos:   productoRepo,
		Movimientos: movimientoRepo,
		Promociones: promocionRepo,
		Cupones:     cuponRepo,
		Direcciones: direccionRepo,
		Tasas:       tasaRepo,
		Tx:          tx,
		Auditor:     auditSvc,
		Email:       emailSvc,
		Notifier:    wsHub,
		Envio:       service.Envio{Costo: costo, GratisDesde: gratisDesde},
		Location:    loc,
	})
	posSvc := service.NewPOSService(productoRepo, movimientoRepo, promocionRepo, tasaRepo, pedidoRepo, usuarioRepo, tx, auditSvc, wsHub, loc)
	descuentoSvc := service.NewDescuentoService(cuponRepo, promocionRepo, productoRepo, tx, auditSvc)
	reclamoSvc := service.NewReclamoService(reclamoRepo, pedidoRepo, usuarioRepo, tx, auditSvc, emailSvc)
	direccionSvc := service.NewDireccionService(direccionRepo, tx)
	proveedorSvc := service.NewProveedorService(proveedorRepo, tx, auditSvc)
	impuestoSvc := service.NewImpuestoService(tasaRepo, tx, auditSvc, loc)
	ventasSvc := service.NewVentasService(pedidoRepo, auditSvc, loc)
	statisticsSvc := service.NewStatisticsService(statsRepo, revenueRepo, solicitudRepo, auditRepo, appCache, loc)
	reporteSvc := service.NewReporteService(reporteRepo, pedidoRepo, categoriaRepo, tx, auditSvc, emailSvc, cfg.ReportsDir, loc)

	loginLimiter, err := middleware.RateLimit(cfg.LoginRateLimit, "login", rdb)
	if err != nil {
		log.Fatal().Err(err).Str("rate", cfg.LoginRateLimit).Msg("invalid login rate limit")
	}

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// Staff realtime notifications
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c)
	})

	api := router.Group("/api")
	handler.NewUserHandler(authSvc, usuarioSvc, loginLimiter).RegisterRoutes(api)
	handler.NewRoleHandler(roleSvc).RegisterRoutes(api)
	handler.NewCatalogoHandler(catalogoSvc).RegisterRoutes(api)
	handler.NewInventoryHandler(productoSvc).RegisterRoutes(api)
	handler.NewPartnerHandler(proveedorSvc).RegisterRoutes(api)
	handler.NewOrderHandler(pedidoSvc).RegisterRoutes(api)
	handler.NewPOSHandler(posSvc).RegisterRoutes(api)
	handler.NewDescuentoHandler(descuentoSvc).RegisterRoutes(api)
	handler.NewReclamoHandler(reclamoSvc).RegisterRoutes(api)
	handler.NewDireccionHandler(direccionSvc).RegisterRoutes(api)
	handler.NewApprovalHandler(autorizacionSvc).RegisterRoutes(api)
	handler.NewStatisticsHandler(statisticsSvc, ventasSvc).RegisterRoutes(api)
	handler.NewReporteHandler(reporteSvc).RegisterRoutes(api)
	handler.NewAuditHandler(auditSvc, loc).RegisterRoutes(api)
	handler.NewSistemaHandler(sistemaSvc).RegisterRoutes(api)
	handler.NewTaxHandler(impuestoSvc, loc).RegisterRoutes(api)

	worker.StartReportScheduler(ctx, cfg.ReportSchedulerInterval, reporteSvc.EjecutarProgramados)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Int("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
