package router

import (
	"time"

	"lasmarias/internal/config"
	"lasmarias/internal/estado"
	"lasmarias/internal/handler"
	"lasmarias/internal/infra"
	"lasmarias/internal/middleware"
	"lasmarias/internal/notificacion"
	"lasmarias/internal/repository"
	"lasmarias/internal/service"
	"lasmarias/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Infra is what main connects to before any service exists. Redis and Blobs
// may be nil.
type Infra struct {
	DB    *gorm.DB
	Redis *redis.Client
	Blobs *infra.GCSStore
	Hub   estado.Hub
}

// Servicios are built once and shared by the HTTP handlers and the workers.
type Servicios struct {
	Auth      service.AuthService
	Joyas     service.JoyaService
	Ventas    service.VentaService
	Ganancias service.GananciasService
}

// NewServicios wires the dependency graph: Service ← Repository ← DB/Redis.
func NewServicios(cfg *config.Config, inf Infra) *Servicios {
	loc := cfg.Location()

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(inf.DB)
	joyaRepo := repository.NewJoyaRepository(inf.DB)
	ventaRepo := repository.NewVentaRepository(inf.DB)
	movimientoRepo := repository.NewMovimientoStockRepository(inf.DB)

	// ── Services ─────────────────────────────────────────────────────────────
	inventarioSvc := service.NewInventarioService(joyaRepo, movimientoRepo)

	var blobs infra.BlobStore
	if inf.Blobs != nil {
		blobs = inf.Blobs
	}

	deps := service.VentaDeps{
		Repo:       ventaRepo,
		Inventario: inventarioSvc,
		Hub:        inf.Hub,
		Bloqueo:    infra.NewBloqueo(inf.Redis, 10*time.Second),
		Mensajes:   notificacion.NuevoConstructor(cfg.NegocioNombre, cfg.WhatsAppURL),
		Negocio:    cfg.NegocioNombre,
		Loc:        loc,
	}
	// Notices need a queue; without redis payments are still recorded.
	if inf.Redis != nil && cfg.AvisoEmail != "" {
		deps.Avisos = worker.NewDispatcher(inf.Redis)
	}

	return &Servicios{
		Auth:      service.NewAuthService(usuarioRepo, cfg),
		Joyas:     service.NewJoyaService(joyaRepo, inventarioSvc, blobs, inf.Hub),
		Ventas:    service.NewVentaService(deps),
		Ganancias: service.NewGananciasService(ventaRepo, inf.Hub, inf.Redis, loc),
	}
}

// New returns a configured Gin engine.
func New(cfg *config.Config, inf Infra, svcs *Servicios) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(600, time.Minute))

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(svcs.Auth)
	joyasH := handler.NewJoyasHandler(svcs.Joyas)
	ventasH := handler.NewVentasHandler(svcs.Ventas, inf.Hub)
	gananciasH := handler.NewGananciasHandler(svcs.Ganancias)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(inf.DB, inf.Redis, inf.Blobs))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes. Every account is the shop owner, so there are no roles.
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		joyas := v1.Group("/joyas")
		{
			joyas.GET("", joyasH.Listar)
			joyas.POST("", joyasH.Crear)
			joyas.GET("/:id", joyasH.ObtenerPorID)
			joyas.PUT("/:id", joyasH.Actualizar)
			joyas.DELETE("/:id", joyasH.Eliminar)
			joyas.POST("/:id/imagen", joyasH.SubirImagen)
			joyas.PATCH("/:id/stock", joyasH.AjustarStock)
			joyas.GET("/:id/movimientos", joyasH.ListarMovimientos)
		}

		ventas := v1.Group("/ventas")
		{
			ventas.POST("", ventasH.RegistrarVenta)
			ventas.GET("", ventasH.ListarVentas)
			// Registered before /:id so the static segment wins.
			ventas.GET("/eventos", ventasH.Eventos)
			ventas.GET("/:id", ventasH.ObtenerVenta)
			ventas.DELETE("/:id", ventasH.EliminarVenta)
			ventas.POST("/:id/pagos", ventasH.RegistrarPago)
			ventas.PATCH("/:id/comprador", ventasH.EditarComprador)
			ventas.GET("/:id/comprobante", ventasH.Comprobante)
		}

		v1.GET("/ganancias", gananciasH.Reporte)
		v1.GET("/ganancias/export", gananciasH.Exportar)
	}

	// Swagger UI, only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
