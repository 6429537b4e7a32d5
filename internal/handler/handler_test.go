package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"elixir/internal/apperror"
	"elixir/internal/cache"
	"elixir/internal/infra"
	"elixir/internal/middleware"
	"elixir/internal/model"
	"elixir/internal/repository"
	"elixir/internal/service"
	"elixir/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetJWTSecret("handler-test-secret")
	RegisterValidators()
}

type fakeSender struct {
	mu    sync.Mutex
	mails []infra.Mail
}

func (f *fakeSender) Send(_ context.Context, m infra.Mail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mails = append(f.mails, m)
	return nil
}

type testServer struct {
	db     *gorm.DB
	router *gin.Engine
}

// newTestServer wires the handlers under test over a fresh sqlite database.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewDB(t)
	middleware.InitPermissionMiddleware(db)
	middleware.ClearPermissionCache("")

	tx := repository.NewTransactionManager(db)
	usuarios := repository.NewUsuarioRepository(db)
	productos := repository.NewProductoRepository(db)
	movimientos := repository.NewMovimientoRepository(db)
	pedidos := repository.NewPedidoRepository(db)
	solicitudes := repository.NewSolicitudRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	mem := cache.NewMemory()

	audit := service.NewAuditService(auditRepo, time.UTC)
	sistema := service.NewSistemaService(repository.NewSistemaRepository(db), repository.NewStatisticsRepository(db), mem, nil, audit)
	email := service.NewEmailService(&fakeSender{}, sistema, "http://localhost:5173")
	autorizaciones := service.NewAutorizacionService(solicitudes, productos, movimientos, tx, audit, nil)

	authService := service.NewAuthService(usuarios, repository.NewRoleRepository(db), tx, audit, sistema, email, service.TokenConfig{
		Secret:     middleware.GetJWTSecret(),
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	})
	pedidoService := service.NewPedidoService(service.PedidoDeps{
		Pedidos:     pedidos,
		Productos:   productos,
		Movimientos: movimientos,
		Promociones: repository.NewPromocionRepository(db),
		Cupones:     repository.NewCuponRepository(db),
		Direcciones: repository.NewDireccionRepository(db),
		Tasas:       repository.NewTasaImpuestoRepository(db),
		Tx:          tx,
		Auditor:     audit,
		Email:       email,
		Envio:       service.Envio{Costo: decimal.NewFromInt(3990), GratisDesde: decimal.NewFromInt(50000)},
		Location:    time.UTC,
	})
	productoService := service.NewProductoService(productos, repository.NewCategoriaRepository(db), repository.NewProveedorRepository(db), movimientos, tx, audit, nil, autorizaciones)
	statsService := service.NewStatisticsService(repository.NewStatisticsRepository(db), repository.NewRevenueRepository(db), solicitudes, auditRepo, mem, time.UTC)

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Recovery())
	api := router.Group("/api")
	NewUserHandler(authService, service.NewUsuarioService(usuarios, pedidos, tx, audit, nil), nil).RegisterRoutes(api)
	NewOrderHandler(pedidoService).RegisterRoutes(api)
	NewInventoryHandler(productoService).RegisterRoutes(api)
	NewStatisticsHandler(statsService, service.NewVentasService(pedidos, audit, time.UTC)).RegisterRoutes(api)
	NewAuditHandler(audit, time.UTC).RegisterRoutes(api)
	NewRoleHandler(service.NewRoleService(repository.NewRoleRepository(db), tx, audit)).RegisterRoutes(api)
	NewSistemaHandler(sistema).RegisterRoutes(api)

	return &testServer{db: db, router: router}
}

func tokenFor(t *testing.T, u *model.Usuario) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  u.ID.String(),
		"role": u.Rol,
		"typ":  "access",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString(middleware.GetJWTSecret())
	require.NoError(t, err)
	return s
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func TestRegistroLoginYMe(t *testing.T) {
	s := newTestServer(t)
	registro := map[string]string{
		"email":            "Nuevo@Test.cl",
		"password":         "secreto123",
		"password_confirm": "secreto123",
		"fecha_nacimiento": time.Now().AddDate(-15, 0, 0).Format("2006-01-02"),
	}

	w, env := s.do(t, http.MethodPost, "/api/auth/registro", "", registro)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, "18")

	registro["fecha_nacimiento"] = "1990-01-01"
	w, env = s.do(t, http.MethodPost, "/api/auth/registro", "", registro)
	require.Equal(t, http.StatusCreated, w.Code, env.Message)

	w, env = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "nuevo@test.cl", "password": "incorrecta"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "nuevo@test.cl", "password": "secreto123"})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var login service.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.Equal(t, model.RolCliente, login.Usuario.Rol)
	assert.NotEmpty(t, login.RefreshToken)
	assert.Contains(t, w.Header().Values("Set-Cookie")[0], "access_token=")

	w, env = s.do(t, http.MethodGet, "/api/auth/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var me service.MeResponse
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, model.RolCliente, me.Rol)
	assert.False(t, me.EsStaff)
}

func TestRutasProtegidasPorRol(t *testing.T) {
	s := newTestServer(t)
	cliente := testutil.CreateUsuario(t, s.db, "cliente@test.cl", model.RolCliente)
	gerente := testutil.CreateUsuario(t, s.db, "gerente@test.cl", model.RolGerente)
	admin := testutil.CreateUsuario(t, s.db, "admin@test.cl", model.RolAdminSistema)

	w, _ := s.do(t, http.MethodGet, "/api/dashboard/gerente", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/dashboard/gerente", tokenFor(t, cliente), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, env := s.do(t, http.MethodGet, "/api/dashboard/gerente", tokenFor(t, gerente), nil)
	assert.Equal(t, http.StatusOK, w.Code, env.Message)

	// auditoria.read is only granted to admin_sistema
	w, _ = s.do(t, http.MethodGet, "/api/auditoria/logs", tokenFor(t, gerente), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, env = s.do(t, http.MethodGet, "/api/auditoria/logs?desde=2026-13-01", tokenFor(t, admin), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, env = s.do(t, http.MethodGet, "/api/auditoria/logs", tokenFor(t, admin), nil)
	assert.Equal(t, http.StatusOK, w.Code, env.Message)
}

func TestCrearPedidoHTTP(t *testing.T) {
	s := newTestServer(t)
	cliente := testutil.CreateUsuario(t, s.db, "cliente@test.cl", model.RolCliente)
	vendedor := testutil.CreateUsuario(t, s.db, "vendedor@test.cl", model.RolVendedor)
	p := testutil.CreateProducto(t, s.db, "HTTP-1", "5000", 2, nil)
	token := tokenFor(t, cliente)

	body := func(cantidad int) map[string]interface{} {
		return map[string]interface{}{
			"items":        []map[string]interface{}{{"producto_id": p.ID.String(), "cantidad": cantidad}},
			"metodo_pago":  model.PagoTransferencia,
			"metodo_envio": model.EnvioRetiroTienda,
		}
	}

	w, env := s.do(t, http.MethodPost, "/api/pedidos", token, body(1))
	require.Equal(t, http.StatusCreated, w.Code, env.Message)
	var creado service.PedidoCreado
	require.NoError(t, json.Unmarshal(env.Data, &creado))
	assert.True(t, strings.HasPrefix(creado.NumeroPedido, "PED-"))
	assert.Equal(t, model.EstadoPendiente, creado.Estado)

	w, env = s.do(t, http.MethodPost, "/api/pedidos", token, body(5))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Stock insuficiente para "+p.Nombre, env.Message)

	w, env = s.do(t, http.MethodPost, "/api/pedidos", token, map[string]interface{}{
		"items":        []interface{}{},
		"metodo_pago":  model.PagoTransferencia,
		"metodo_envio": model.EnvioRetiroTienda,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)

	// staff cannot place web orders
	w, _ = s.do(t, http.MethodPost, "/api/pedidos", tokenFor(t, vendedor), body(1))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/pedidos/"+creado.PedidoID.String(), token, nil)
	assert.Equal(t, http.StatusOK, w.Code, env.Message)
	w, _ = s.do(t, http.MethodGet, "/api/pedidos/no-es-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActualizarStockVendedorQuedaPendiente(t *testing.T) {
	s := newTestServer(t)
	vendedor := testutil.CreateUsuario(t, s.db, "vendedor@test.cl", model.RolVendedor)
	gerente := testutil.CreateUsuario(t, s.db, "gerente@test.cl", model.RolGerente)
	p := testutil.CreateProducto(t, s.db, "STK-1", "1000", 10, nil)
	path := "/api/productos/" + p.ID.String() + "/stock"

	w, env := s.do(t, http.MethodPatch, path, tokenFor(t, vendedor), map[string]interface{}{"nuevo_stock": 20, "motivo": "Conteo"})
	require.Equal(t, http.StatusAccepted, w.Code, env.Message)
	var res service.StockResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.False(t, res.Aplicado)
	require.NotNil(t, res.Solicitud)

	w, env = s.do(t, http.MethodPatch, path, tokenFor(t, gerente), map[string]interface{}{"nuevo_stock": 15})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.Aplicado)

	w, _ = s.do(t, http.MethodPatch, path, tokenFor(t, gerente), map[string]interface{}{"nuevo_stock": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRespondErrorOcultaErroresInternos(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

	respondError(c, errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), msgErrorInterno)
	assert.NotContains(t, w.Body.String(), "pq:")

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	respondError(c, apperror.Conflict("Transición no permitida"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Transición no permitida")
}

func TestCambiarPermisosDeRolInvalidaLaCache(t *testing.T) {
	s := newTestServer(t)
	gerente := testutil.CreateUsuario(t, s.db, "gerente@test.cl", model.RolGerente)
	admin := testutil.CreateUsuario(t, s.db, "admin@test.cl", model.RolAdminSistema)

	var rol model.Role
	require.NoError(t, s.db.Where("name = ?", model.RolGerente).First(&rol).Error)
	path := "/api/roles/" + rol.ID.String() + "/permisos"

	// warms the permission cache for gerente
	w, _ := s.do(t, http.MethodGet, "/api/auditoria/logs", tokenFor(t, gerente), nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPut, path, tokenFor(t, gerente), map[string][]string{"permisos": {model.PermAuditoriaRead}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	permisos := append([]string{model.PermAuditoriaRead}, model.DefaultRolePermissions[model.RolGerente]...)
	w, env := s.do(t, http.MethodPut, path, tokenFor(t, admin), map[string][]string{"permisos": permisos})
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	w, env = s.do(t, http.MethodGet, "/api/auditoria/logs", tokenFor(t, gerente), nil)
	assert.Equal(t, http.StatusOK, w.Code, env.Message)

	w, env = s.do(t, http.MethodPut, path, tokenFor(t, admin), map[string][]string{"permisos": model.DefaultRolePermissions[model.RolGerente]})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	w, _ = s.do(t, http.MethodGet, "/api/auditoria/logs", tokenFor(t, gerente), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPut, path, tokenFor(t, admin), map[string][]string{"permisos": {"no.existe"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditoriaHTTP(t *testing.T) {
	s := newTestServer(t)
	admin := testutil.CreateUsuario(t, s.db, "admin@test.cl", model.RolAdminSistema)
	gerente := testutil.CreateUsuario(t, s.db, "gerente@test.cl", model.RolGerente)
	token := tokenFor(t, admin)

	nuevo := map[string]interface{}{"nombre": "Pisco Especial", "sku": "AUD-1", "precio": 7990, "stock": 5}
	w, env := s.do(t, http.MethodPost, "/api/productos", tokenFor(t, gerente), nuevo)
	require.Equal(t, http.StatusCreated, w.Code, env.Message)

	w, env = s.do(t, http.MethodGet, "/api/auditoria/logs?modelo=Producto", token, nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var page struct {
		Items []model.AuditLog `json:"items"`
		Total int64            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)

	w, env = s.do(t, http.MethodGet, "/api/auditoria/logs/"+page.Items[0].ID.String(), token, nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var detalle service.AuditLogDetail
	require.NoError(t, json.Unmarshal(env.Data, &detalle))
	assert.True(t, detalle.IntegridadValida)

	w, env = s.do(t, http.MethodGet, "/api/auditoria/estadisticas", token, nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var stats service.AuditStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(1), stats.Total)

	w, _ = s.do(t, http.MethodGet, "/api/auditoria/exportar?modelo=Producto", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "auditoria_")
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(w.Body.String()), "\n")+1)
}

func TestSistemaEstadisticasYBackupHTTP(t *testing.T) {
	s := newTestServer(t)
	admin := testutil.CreateUsuario(t, s.db, "admin@test.cl", model.RolAdminSistema)
	gerente := testutil.CreateUsuario(t, s.db, "gerente@test.cl", model.RolGerente)
	testutil.CreateProducto(t, s.db, "BK-1", "1000", 3, nil)

	w, _ := s.do(t, http.MethodGet, "/api/sistema/backup", tokenFor(t, gerente), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := s.do(t, http.MethodGet, "/api/sistema/estadisticas", tokenFor(t, admin), nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var stats service.EstadisticasSistema
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(2), stats.TotalUsuarios)
	assert.Equal(t, int64(1), stats.TotalProductos)
	assert.True(t, stats.BaseDatos.OK)

	w, _ = s.do(t, http.MethodGet, "/api/sistema/backup", tokenFor(t, admin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "backup_")
	var backup repository.Backup
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &backup))
	require.Len(t, backup.Productos, 1)
	assert.Equal(t, "BK-1", backup.Productos[0].SKU)
}

func TestEditarProductoVendedorNoFijaStock(t *testing.T) {
	s := newTestServer(t)
	vendedor := testutil.CreateUsuario(t, s.db, "vendedor@test.cl", model.RolVendedor)
	p := testutil.CreateProducto(t, s.db, "PUT-1", "1000", 10, nil)

	w, env := s.do(t, http.MethodPut, "/api/productos/"+p.ID.String(), tokenFor(t, vendedor), map[string]interface{}{"stock": 500})
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	var fresh model.Producto
	require.NoError(t, s.db.First(&fresh, "id = ?", p.ID).Error)
	assert.Equal(t, 10, fresh.Stock)

	var pendientes int64
	require.NoError(t, s.db.Model(&model.SolicitudAutorizacion{}).Where("estado = ?", model.SolicitudPendiente).Count(&pendientes).Error)
	assert.Equal(t, int64(1), pendientes)
}
