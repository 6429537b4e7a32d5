package repository

import (
	"context"

	"elixir/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoriaRepository interface {
	Create(ctx context.Context, categoria *model.Categoria) error
	Update(ctx context.Context, categoria *model.Categoria) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Categoria, error)
	FindByNombre(ctx context.Context, nombre string) (*model.Categoria, error)
	First(ctx context.Context) (*model.Categoria, error)
	ListActivas(ctx context.Context) ([]model.Categoria, error)
}

type categoriaRepository struct {
	db *gorm.DB
}

func NewCategoriaRepository(db *gorm.DB) CategoriaRepository {
	return &categoriaRepository{db: db}
}

func (r *categoriaRepository) Create(ctx context.Context, categoria *model.Categoria) error {
	return GetDB(ctx, r.db).Create(categoria).Error
}

func (r *categoriaRepository) Update(ctx context.Context, categoria *model.Categoria) error {
	return GetDB(ctx, r.db).Save(categoria).Error
}

func (r *categoriaRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Categoria, error) {
	var categoria model.Categoria
	if err := GetDB(ctx, r.db).First(&categoria, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &categoria, nil
}

func (r *categoriaRepository) FindByNombre(ctx context.Context, nombre string) (*model.Categoria, error) {
	var categoria model.Categoria
	if err := GetDB(ctx, r.db).First(&categoria, "LOWER(nombre) = LOWER(?)", nombre).Error; err != nil {
		return nil, err
	}
	return &categoria, nil
}

func (r *categoriaRepository) First(ctx context.Context) (*model.Categoria, error) {
	var categoria model.Categoria
	if err := GetDB(ctx, r.db).Order("fecha_creacion asc").First(&categoria).Error; err != nil {
		return nil, err
	}
	return &categoria, nil
}

func (r *categoriaRepository) ListActivas(ctx context.Context) ([]model.Categoria, error) {
	var categorias []model.Categoria
	err := GetDB(ctx, r.db).Where("activa = ?", true).Order("nombre asc").Find(&categorias).Error
	return categorias, err
}
