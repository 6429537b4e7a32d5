package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"elixir/internal/cache"
	"elixir/internal/infra"
	"elixir/internal/model"
	"elixir/internal/repository"
	"elixir/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

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

func (f *fakeSender) tipos() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.mails))
	for _, m := range f.mails {
		out = append(out, m.Tipo)
	}
	return out
}

type evento struct {
	nombre  string
	roles   []string
	usuario uuid.UUID
}

type fakeNotifier struct {
	mu      sync.Mutex
	eventos []evento
}

func (f *fakeNotifier) Publish(event string, _ interface{}, roles ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventos = append(f.eventos, evento{nombre: event, roles: roles})
}

func (f *fakeNotifier) PublishToUser(usuarioID uuid.UUID, event string, _ interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventos = append(f.eventos, evento{nombre: event, usuario: usuarioID})
}

func (f *fakeNotifier) paraUsuario(usuarioID uuid.UUID) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.eventos {
		if e.usuario == usuarioID {
			out = append(out, e.nombre)
		}
	}
	return out
}

func (f *fakeNotifier) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.eventos {
		if e.nombre == event {
			n++
		}
	}
	return n
}

// env wires every repository and the shared collaborators over a fresh database.
type env struct {
	db       *gorm.DB
	tx       repository.TransactionManager
	sender   *fakeSender
	notifier *fakeNotifier
	cache    *cache.MemoryCache
	audit    AuditService
	email    EmailService

	usuarios    repository.UsuarioRepository
	productos   repository.ProductoRepository
	categorias  repository.CategoriaRepository
	proveedores repository.ProveedorRepository
	movimientos repository.MovimientoRepository
	solicitudes repository.SolicitudRepository
	pedidos     repository.PedidoRepository
	cupones     repository.CuponRepository
	promociones repository.PromocionRepository
	direcciones repository.DireccionRepository
	reclamos    repository.ReclamoRepository
	reportes    repository.ReporteRepository
	tasas       repository.TasaImpuestoRepository
	stats       repository.StatisticsRepository
	revenue     repository.RevenueRepository
	sistema     repository.SistemaRepository
	auditRepo   repository.AuditRepository
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	e := &env{
		db:          db,
		tx:          repository.NewTransactionManager(db),
		sender:      &fakeSender{},
		notifier:    &fakeNotifier{},
		cache:       cache.NewMemory(),
		usuarios:    repository.NewUsuarioRepository(db),
		productos:   repository.NewProductoRepository(db),
		categorias:  repository.NewCategoriaRepository(db),
		proveedores: repository.NewProveedorRepository(db),
		movimientos: repository.NewMovimientoRepository(db),
		solicitudes: repository.NewSolicitudRepository(db),
		pedidos:     repository.NewPedidoRepository(db),
		cupones:     repository.NewCuponRepository(db),
		promociones: repository.NewPromocionRepository(db),
		direcciones: repository.NewDireccionRepository(db),
		reclamos:    repository.NewReclamoRepository(db),
		reportes:    repository.NewReporteRepository(db),
		tasas:       repository.NewTasaImpuestoRepository(db),
		stats:       repository.NewStatisticsRepository(db),
		revenue:     repository.NewRevenueRepository(db),
		sistema:     repository.NewSistemaRepository(db),
		auditRepo:   repository.NewAuditRepository(db),
	}
	e.audit = NewAuditService(e.auditRepo, time.UTC)
	e.email = NewEmailService(e.sender, nil, "http://localhost:3000")
	return e
}

func (e *env) actor(u *model.Usuario) Actor {
	return Actor{ID: u.ID, Rol: u.Rol, IP: "127.0.0.1", UserAgent: "go-test"}
}

func (e *env) pedidoService() PedidoService {
	return NewPedidoService(PedidoDeps{
		Pedidos:     e.pedidos,
		Productos:   e.productos,
		Movimientos: e.movimientos,
		Promociones: e.promociones,
		Cupones:     e.cupones,
		Direcciones: e.direcciones,
		Tasas:       e.tasas,
		Tx:          e.tx,
		Auditor:     e.audit,
		Email:       e.email,
		Notifier:    e.notifier,
		Envio:       Envio{Costo: decimal.NewFromInt(3990), GratisDesde: decimal.NewFromInt(50000)},
		Location:    time.UTC,
	})
}

func (e *env) posService() POSService {
	return NewPOSService(e.productos, e.movimientos, e.promociones, e.tasas, e.pedidos, e.usuarios, e.tx, e.audit, e.notifier, time.UTC)
}

func (e *env) autorizacionService() AutorizacionService {
	return NewAutorizacionService(e.solicitudes, e.productos, e.movimientos, e.tx, e.audit, e.notifier)
}

func (e *env) productoService() ProductoService {
	return NewProductoService(e.productos, e.categorias, e.proveedores, e.movimientos, e.tx, e.audit, e.notifier, e.autorizacionService())
}

func (e *env) stock(t *testing.T, p *model.Producto) int {
	t.Helper()
	var fresh model.Producto
	if err := e.db.Unscoped().First(&fresh, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("reload producto: %v", err)
	}
	return fresh.Stock
}

func (e *env) countAudit(t *testing.T, accion, modelo string) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(&model.AuditLog{}).Where("tipo_accion = ? AND modelo = ?", accion, modelo).Count(&n).Error; err != nil {
		t.Fatalf("count audit: %v", err)
	}
	return n
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func toStruct(raw []byte, dest interface{}) error { return json.Unmarshal(raw, dest) }
