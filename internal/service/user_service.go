package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"elixir/internal/apperror"
	"elixir/internal/model"
	"elixir/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type ActualizarPerfilRequest struct {
	Nombre          *string `json:"nombre"`
	Apellido        *string `json:"apellido"`
	FechaNacimiento *string `json:"fecha_nacimiento"`
	Telefono        *string `json:"telefono" binding:"omitempty,max=20"`
	Direccion       *string `json:"direccion" binding:"omitempty,max=255"`
	Comuna          *string `json:"comuna" binding:"omitempty,max=100"`
}

type CambiarRolRequest struct {
	Rol string `json:"rol" binding:"required"`
}

type PerfilResponse struct {
	*model.Usuario
	GastoTotal   decimal.Decimal `json:"gasto_total"`
	TotalPedidos int64           `json:"total_pedidos"`
}

type ClienteDetalle struct {
	PerfilResponse
	UltimosPedidos []model.Pedido `json:"ultimos_pedidos"`
}

// UsuarioService covers profiles, the client directory and role changes.
type UsuarioService interface {
	Perfil(ctx context.Context, id uuid.UUID) (*PerfilResponse, error)
	ActualizarPerfil(ctx context.Context, actor Actor, req ActualizarPerfilRequest) (*PerfilResponse, error)
	ListarClientes(ctx context.Context, filter repository.UsuarioFilter) ([]model.Usuario, int64, error)
	BuscarClientes(ctx context.Context, q string) ([]model.Usuario, error)
	DetalleCliente(ctx context.Context, id uuid.UUID) (*ClienteDetalle, error)
	CambiarRol(ctx context.Context, actor Actor, id uuid.UUID, rol string) (*model.Usuario, error)
	CrearOPromover(ctx context.Context, email, password, rol string) (*model.Usuario, bool, error)
}

type usuarioService struct {
	usuarios repository.UsuarioRepository
	pedidos  repository.PedidoRepository
	tx       repository.TransactionManager
	auditor  Auditor
	notifier Notifier
}

// NewUsuarioService returns a new instance of UsuarioService
func NewUsuarioService(usuarios repository.UsuarioRepository, pedidos repository.PedidoRepository, tx repository.TransactionManager, auditor Auditor, notifier Notifier) UsuarioService {
	return &usuarioService{usuarios: usuarios, pedidos: pedidos, tx: tx, auditor: auditor, notifier: notifierOrNoop(notifier)}
}

func (s *usuarioService) get(ctx context.Context, id uuid.UUID) (*model.Usuario, error) {
	u, err := s.usuarios.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("Usuario no encontrado")
		}
		return nil, err
	}
	return u, nil
}

func (s *usuarioService) perfil(ctx context.Context, u *model.Usuario) (*PerfilResponse, error) {
	resumen, err := s.usuarios.ResumenCompras(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &PerfilResponse{Usuario: u, GastoTotal: resumen.GastoTotal, TotalPedidos: resumen.TotalPedidos}, nil
}

func (s *usuarioService) Perfil(ctx context.Context, id uuid.UUID) (*PerfilResponse, error) {
	u, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.perfil(ctx, u)
}

func (s *usuarioService) ActualizarPerfil(ctx context.Context, actor Actor, req ActualizarPerfilRequest) (*PerfilResponse, error) {
	u, err := s.get(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	antes := *u

	if req.Nombre != nil {
		u.Nombre = strings.TrimSpace(*req.Nombre)
	}
	if req.Apellido != nil {
		u.Apellido = strings.TrimSpace(*req.Apellido)
	}
	if req.FechaNacimiento != nil {
		nacimiento, err := time.Parse("2006-01-02", strings.TrimSpace(*req.FechaNacimiento))
		if err != nil {
			return nil, apperror.Validation("Fecha de nacimiento inválida, use el formato AAAA-MM-DD")
		}
		u.FechaNacimiento = &nacimiento
	}
	if req.Telefono != nil {
		u.Telefono = strings.TrimSpace(*req.Telefono)
	}
	if req.Direccion != nil {
		u.Direccion = strings.TrimSpace(*req.Direccion)
	}
	if req.Comuna != nil {
		u.Comuna = strings.TrimSpace(*req.Comuna)
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.usuarios.Update(txCtx, u); err != nil {
			return err
		}
		return s.auditor.Record(txCtx, actor, AuditEntry{
			Accion:      model.AccionActualizar,
			Modelo:      "Usuario",
			IDObjeto:    u.ID.String(),
			Descripcion: "Actualización de perfil",
			Antes:       perfilSnapshot(&antes),
			Despues:     perfilSnapshot(u),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.perfil(ctx, u)
}

func perfilSnapshot(u *model.Usuario) map[string]interface{} {
	return map[string]interface{}{
		"nombre":           u.Nombre,
		"apellido":         u.Apellido,
		"fecha_nacimiento": u.FechaNacimiento,
		"telefono":         u.Telefono,
		"direccion":        u.Direccion,
		"comuna":           u.Comuna,
	}
}

func (s *usuarioService) ListarClientes(ctx context.Context, filter repository.UsuarioFilter) ([]model.Usuario, int64, error) {
	if filter.Rol != "" && !model.RolValido(filter.Rol) {
		return nil, 0, apperror.Validation("Rol inválido")
	}
	filter.Page, filter.Limit = pageOrDefault(filter.Page, filter.Limit)
	return s.usuarios.List(ctx, filter)
}

func (s *usuarioService) BuscarClientes(ctx context.Context, q string) ([]model.Usuario, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []model.Usuario{}, nil
	}
	return s.usuarios.Search(ctx, q, 20)
}

func (s *usuarioService) DetalleCliente(ctx context.Context, id uuid.UUID) (*ClienteDetalle, error) {
	u, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	perfil, err := s.perfil(ctx, u)
	if err != nil {
		return nil, err
	}
	pedidos, _, err := s.pedidos.List(ctx, repository.PedidoFilter{ClienteID: &u.ID, Page: 1, Limit: 10})
	if err != nil {
		return nil, err
	}
	return &ClienteDetalle{PerfilResponse: *perfil, UltimosPedidos: pedidos}, nil
}

func (s *usuarioService) CambiarRol(ctx context.Context, actor Actor, id uuid.UUID, rol string) (*model.Usuario, error) {
	if !model.RolValido(rol) {
		return nil, apperror.Validation("Rol inválido")
	}
	if id == actor.ID && rol != model.RolAdminSistema {
		return nil, apperror.Forbidden("No puedes quitarte el rol de administrador")
	}
	u, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	anterior := u.Rol
	if anterior == rol {
		return u, nil
	}
	u.Rol = rol

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.usuarios.Update(txCtx, u); err != nil {
			return err
		}
		return s.auditor.Record(txCtx, actor, AuditEntry{
			Accion:      model.AccionActualizar,
			Modelo:      "Usuario",
			IDObjeto:    u.ID.String(),
			Descripcion: fmt.Sprintf("Cambio de rol de %s: %s -> %s", u.Email, anterior, rol),
			Antes:       map[string]string{"rol": anterior},
			Despues:     map[string]string{"rol": rol},
		})
	})
	if err != nil {
		return nil, err
	}

	evento := map[string]interface{}{
		"usuario_id":   u.ID,
		"email":        u.Email,
		"rol_anterior": anterior,
		"rol_nuevo":    rol,
	}
	s.notifier.Publish(EventRolActualizado, evento, model.RolAdminSistema)
	// the user's access token still carries the old role; the client
	// refreshes on this event to pick up the new one
	s.notifier.PublishToUser(u.ID, EventRolActualizado, evento)
	return u, nil
}

// CrearOPromover creates a user with the given role, or promotes an existing
// one and resets its password. It reports whether the user was created.
func (s *usuarioService) CrearOPromover(ctx context.Context, email, password, rol string) (*model.Usuario, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !model.RolValido(rol) {
		return nil, false, apperror.Validation("Rol inválido")
	}
	if len(password) < 8 {
		return nil, false, apperror.Validation("La contraseña debe tener al menos 8 caracteres")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, fmt.Errorf("failed to hash password: %w", err)
	}

	u, err := s.usuarios.GetByEmail(ctx, email)
	created := false
	switch {
	case err == nil:
		u.Rol = rol
		u.Password = string(hash)
		u.Activo = true
		err = s.usuarios.Update(ctx, u)
	case repository.IsNotFound(err):
		created = true
		u = &model.Usuario{
			Email:           email,
			Username:        email,
			Password:        string(hash),
			Rol:             rol,
			Activo:          true,
			EmailConfirmado: true,
		}
		err = s.usuarios.Create(ctx, u)
	}
	if err != nil {
		return nil, false, err
	}
	accion := model.AccionActualizar
	if created {
		accion = model.AccionCrear
	}
	if err := s.auditor.Record(ctx, Actor{}, AuditEntry{
		Accion:      accion,
		Modelo:      "Usuario",
		IDObjeto:    u.ID.String(),
		Descripcion: "Alta de " + rol + " desde la consola de administración: " + u.Email,
	}); err != nil {
		return nil, false, err
	}
	return u, created, nil
}
