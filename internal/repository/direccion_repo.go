package repository

import (
	"context"

	"elixir/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DireccionRepository interface {
	Create(ctx context.Context, dir *model.DireccionEnvio) error
	Update(ctx context.Context, dir *model.DireccionEnvio) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindForCliente(ctx context.Context, id, clienteID uuid.UUID) (*model.DireccionEnvio, error)
	FindPrincipal(ctx context.Context, clienteID uuid.UUID) (*model.DireccionEnvio, error)
	ListByCliente(ctx context.Context, clienteID uuid.UUID) ([]model.DireccionEnvio, error)
	CountByCliente(ctx context.Context, clienteID uuid.UUID) (int64, error)
	ClearPrincipal(ctx context.Context, clienteID uuid.UUID) error
	SetPrincipal(ctx context.Context, id uuid.UUID) error
	Latest(ctx context.Context, clienteID uuid.UUID) (*model.DireccionEnvio, error)
}

type direccionRepository struct {
	db *gorm.DB
}

func NewDireccionRepository(db *gorm.DB) DireccionRepository {
	return &direccionRepository{db: db}
}

func (r *direccionRepository) Create(ctx context.Context, dir *model.DireccionEnvio) error {
	return GetDB(ctx, r.db).Create(dir).Error
}

func (r *direccionRepository) Update(ctx context.Context, dir *model.DireccionEnvio) error {
	return GetDB(ctx, r.db).Save(dir).Error
}

func (r *direccionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.DireccionEnvio{}).Error
}

// FindForCliente only finds addresses owned by clienteID.
func (r *direccionRepository) FindForCliente(ctx context.Context, id, clienteID uuid.UUID) (*model.DireccionEnvio, error) {
	var dir model.DireccionEnvio
	if err := GetDB(ctx, r.db).First(&dir, "id = ? AND cliente_id = ?", id, clienteID).Error; err != nil {
		return nil, err
	}
	return &dir, nil
}

func (r *direccionRepository) FindPrincipal(ctx context.Context, clienteID uuid.UUID) (*model.DireccionEnvio, error) {
	var dir model.DireccionEnvio
	if err := GetDB(ctx, r.db).First(&dir, "cliente_id = ? AND es_principal = ?", clienteID, true).Error; err != nil {
		return nil, err
	}
	return &dir, nil
}

func (r *direccionRepository) ListByCliente(ctx context.Context, clienteID uuid.UUID) ([]model.DireccionEnvio, error) {
	var dirs []model.DireccionEnvio
	err := GetDB(ctx, r.db).Where("cliente_id = ?", clienteID).
		Order("es_principal desc, fecha_creacion desc").
		Find(&dirs).Error
	return dirs, err
}

func (r *direccionRepository) CountByCliente(ctx context.Context, clienteID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.DireccionEnvio{}).Where("cliente_id = ?", clienteID).Count(&count).Error
	return count, err
}

func (r *direccionRepository) ClearPrincipal(ctx context.Context, clienteID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.DireccionEnvio{}).
		Where("cliente_id = ? AND es_principal = ?", clienteID, true).
		Update("es_principal", false).Error
}

func (r *direccionRepository) SetPrincipal(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.DireccionEnvio{}).Where("id = ?", id).
		Update("es_principal", true).Error
}

// Latest returns the client's most recently created address.
func (r *direccionRepository) Latest(ctx context.Context, clienteID uuid.UUID) (*model.DireccionEnvio, error) {
	var dir model.DireccionEnvio
	if err := GetDB(ctx, r.db).Where("cliente_id = ?", clienteID).
		Order("fecha_creacion desc").First(&dir).Error; err != nil {
		return nil, err
	}
	return &dir, nil
}
