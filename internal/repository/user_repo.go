package repository

import (
	"context"
	"time"

	"elixir/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UsuarioFilter narrows the client listing.
type UsuarioFilter struct {
	Rol   string
	Page  int
	Limit int
}

// ResumenCompras is the purchase history summary of a client.
type ResumenCompras struct {
	GastoTotal   decimal.Decimal `json:"gasto_total"`
	TotalPedidos int64           `json:"total_pedidos"`
}

// UsuarioRepository defines the data access of Usuario entities and their refresh tokens
type UsuarioRepository interface {
	Create(ctx context.Context, user *model.Usuario) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Usuario, error)
	GetByEmail(ctx context.Context, email string) (*model.Usuario, error)
	List(ctx context.Context, filter UsuarioFilter) ([]model.Usuario, int64, error)
	Search(ctx context.Context, q string, limit int) ([]model.Usuario, error)
	Update(ctx context.Context, user *model.Usuario) error
	TouchUltimoAcceso(ctx context.Context, id uuid.UUID, at time.Time) error
	ResumenCompras(ctx context.Context, clienteID uuid.UUID) (ResumenCompras, error)

	CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
}

type usuarioRepository struct {
	db *gorm.DB
}

func NewUsuarioRepository(db *gorm.DB) UsuarioRepository {
	return &usuarioRepository{db: db}
}

func (r *usuarioRepository) Create(ctx context.Context, user *model.Usuario) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *usuarioRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Usuario, error) {
	var user model.Usuario
	if err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *usuarioRepository) GetByEmail(ctx context.Context, email string) (*model.Usuario, error) {
	var user model.Usuario
	if err := GetDB(ctx, r.db).First(&user, "LOWER(email) = LOWER(?)", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *usuarioRepository) List(ctx context.Context, filter UsuarioFilter) ([]model.Usuario, int64, error) {
	var users []model.Usuario
	var total int64

	query := func() *gorm.DB {
		q := GetDB(ctx, r.db).Model(&model.Usuario{})
		if filter.Rol != "" {
			q = q.Where("rol = ?", filter.Rol)
		}
		return q
	}

	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query().Order("fecha_creacion desc").
		Offset(offset(filter.Page, filter.Limit)).Limit(filter.Limit).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *usuarioRepository) Search(ctx context.Context, q string, limit int) ([]model.Usuario, error) {
	var users []model.Usuario
	like := "%" + q + "%"
	err := GetDB(ctx, r.db).
		Where("LOWER(email) LIKE LOWER(?) OR LOWER(nombre) LIKE LOWER(?) OR LOWER(apellido) LIKE LOWER(?)", like, like, like).
		Order("nombre asc").
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *usuarioRepository) Update(ctx context.Context, user *model.Usuario) error {
	return GetDB(ctx, r.db).Save(user).Error
}

func (r *usuarioRepository) TouchUltimoAcceso(ctx context.Context, id uuid.UUID, at time.Time) error {
	return GetDB(ctx, r.db).Model(&model.Usuario{}).Where("id = ?", id).
		UpdateColumn("ultimo_acceso", at).Error
}

// ResumenCompras sums the totals of the client's non-cancelled orders.
func (r *usuarioRepository) ResumenCompras(ctx context.Context, clienteID uuid.UUID) (ResumenCompras, error) {
	var row struct {
		Gasto  decimal.Decimal
		Conteo int64
	}
	err := GetDB(ctx, r.db).Model(&model.Pedido{}).
		Select("COALESCE(SUM(total), 0) AS gasto, COUNT(*) AS conteo").
		Where("cliente_id = ? AND estado <> ?", clienteID, model.EstadoCancelado).
		Scan(&row).Error
	return ResumenCompras{GastoTotal: row.Gasto, TotalPedidos: row.Conteo}, err
}

func (r *usuarioRepository) CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	return GetDB(ctx, r.db).Create(token).Error
}

func (r *usuarioRepository) FindRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	var rt model.RefreshToken
	if err := GetDB(ctx, r.db).Preload("Usuario").First(&rt, "token = ?", token).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *usuarioRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	return GetDB(ctx, r.db).Where("token = ?", token).Delete(&model.RefreshToken{}).Error
}
