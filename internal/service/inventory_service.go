package service

import (
	"context"
	"fmt"
	"strings"

	"elixir/internal/apperror"
	"elixir/internal/model"
	"elixir/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductoRequest is used for creation and partial updates; nil fields are left untouched.
type ProductoRequest struct {
	Nombre      *string          `json:"nombre" binding:"omitempty,max=200"`
	SKU         *string          `json:"sku" binding:"omitempty,max=50"`
	Precio      *decimal.Decimal `json:"precio" swaggertype:"number"`
	Costo       *decimal.Decimal `json:"costo" swaggertype:"number"`
	Stock       *int             `json:"stock"`
	StockMinimo *int             `json:"stock_minimo"`
	CategoriaID *string          `json:"categoria_id"`
	ProveedorID *string          `json:"proveedor_id"`
	Descripcion *string          `json:"descripcion"`
	ImagenURL   *string          `json:"imagen_url" binding:"omitempty,max=500"`
	Activo      *bool            `json:"activo"`
}

type StockRequest struct {
	NuevoStock *int   `json:"nuevo_stock" binding:"required,gte=0"`
	Motivo     string `json:"motivo" binding:"max=255"`
}

// StockResult tells whether the change was applied or left pending approval.
type StockResult struct {
	Aplicado  bool                         `json:"aplicado"`
	Producto  *model.Producto              `json:"producto,omitempty"`
	Solicitud *model.SolicitudAutorizacion `json:"solicitud,omitempty"`
}

type CategoriaRequest struct {
	Nombre      string `json:"nombre" binding:"required,max=100"`
	Descripcion string `json:"descripcion"`
	Activa      *bool  `json:"activa"`
}

type ProductoService interface {
	Crear(ctx context.Context, actor Actor, req ProductoRequest) (*model.Producto, error)
	Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req ProductoRequest) (*model.Producto, error)
	Eliminar(ctx context.Context, actor Actor, id uuid.UUID) error
	Obtener(ctx context.Context, id uuid.UUID) (*model.Producto, error)
	ListarAdmin(ctx context.Context, search string, page, limit int) ([]model.Producto, int64, error)
	ActualizarStock(ctx context.Context, actor Actor, id uuid.UUID, req StockRequest) (*StockResult, error)
	StockBajo(ctx context.Context) ([]model.Producto, error)
	Movimientos(ctx context.Context, id uuid.UUID) ([]model.MovimientoStock, error)
	CrearCategoria(ctx context.Context, actor Actor, req CategoriaRequest) (*model.Categoria, error)
	ActualizarCategoria(ctx context.Context, actor Actor, id uuid.UUID, req CategoriaRequest) (*model.Categoria, error)
	FixImages(ctx context.Context) (int64, error)
	SeedDemo(ctx context.Context) (int, error)
}

// SolicitudCreator files approval requests on behalf of vendedores.
type SolicitudCreator interface {
	Solicitar(ctx context.Context, actor Actor, req SolicitudRequest) (*model.SolicitudAutorizacion, error)
}

type productoService struct {
	productos   repository.ProductoRepository
	categorias  repository.CategoriaRepository
	proveedores repository.ProveedorRepository
	movimientos repository.MovimientoRepository
	tx          repository.TransactionManager
	auditor     Auditor
	notifier    Notifier
	solicitudes SolicitudCreator
}

func NewProductoService(
	productos repository.ProductoRepository,
	categorias repository.CategoriaRepository,
	proveedores repository.ProveedorRepository,
	movimientos repository.MovimientoRepository,
	tx repository.TransactionManager,
	auditor Auditor,
	notifier Notifier,
	solicitudes SolicitudCreator,
) ProductoService {
	return &productoService{
		productos:   productos,
		categorias:  categorias,
		proveedores: proveedores,
		movimientos: movimientos,
		tx:          tx,
		auditor:     auditor,
		notifier:    notifierOrNoop(notifier),
		solicitudes: solicitudes,
	}
}

func productoSnapshot(p *model.Producto) map[string]interface{} {
	return map[string]interface{}{
		"nombre":       p.Nombre,
		"sku":          p.SKU,
		"precio":       p.Precio.String(),
		"costo":        p.Costo.String(),
		"stock":        p.Stock,
		"stock_minimo": p.StockMinimo,
		"categoria_id": p.CategoriaID,
		"proveedor_id": p.ProveedorID,
		"activo":       p.Activo,
	}
}

func validarProducto(p *model.Producto) error {
	if strings.TrimSpace(p.Nombre) == "" {
		return apperror.Validation("El nombre del producto es obligatorio")
	}
	if strings.TrimSpace(p.SKU) == "" {
		return apperror.Validation("El SKU es obligatorio")
	}
	if !p.Precio.IsPositive() {
		return apperror.Validation("El precio debe ser mayor a 0")
	}
	if p.Costo.IsNegative() {
		return apperror.Validation("El costo no puede ser negativo")
	}
	if p.Stock < 0 {
		return apperror.Validation("El stock no puede ser negativo")
	}
	if p.StockMinimo < 0 {
		return apperror.Validation("El stock mínimo no puede ser negativo")
	}
	return nil
}

func (s *productoService) get(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	p, err := s.productos.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("Producto no encontrado")
		}
		return nil, err
	}
	return p, nil
}

// applyRequest copies the non-nil request fields onto p.
func (s *productoService) applyRequest(ctx context.Context, p *model.Producto, req ProductoRequest) error {
	if req.Nombre != nil {
		p.Nombre = strings.TrimSpace(*req.Nombre)
	}
	if req.SKU != nil {
		p.SKU = strings.ToUpper(strings.TrimSpace(*req.SKU))
	}
	if req.Precio != nil {
		p.Precio = *req.Precio
	}
	if req.Costo != nil {
		p.Costo = *req.Costo
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	if req.StockMinimo != nil {
		p.StockMinimo = *req.StockMinimo
	}
	if req.Descripcion != nil {
		p.Descripcion = *req.Descripcion
	}
	if req.ImagenURL != nil {
		p.ImagenURL = strings.TrimSpace(*req.ImagenURL)
	}
	if req.Activo != nil {
		p.Activo = *req.Activo
	}
	if req.CategoriaID != nil {
		id, err := parseOptionalID(*req.CategoriaID, "categoría")
		if err != nil {
			return err
		}
		if id != nil {
			if _, err := s.categorias.FindByID(ctx, *id); err != nil {
				if repository.IsNotFound(err) {
					return apperror.Validation("La categoría no existe")
				}
				return err
			}
		}
		p.CategoriaID = id
		p.Categoria = nil
	}
	if req.ProveedorID != nil {
		id, err := parseOptionalID(*req.ProveedorID, "proveedor")
		if err != nil {
			return err
		}
		if id != nil {
			if _, err := s.proveedores.FindByID(ctx, *id); err != nil {
				if repository.IsNotFound(err) {
					return apperror.Validation("El proveedor no existe")
				}
				return err
			}
		}
		p.ProveedorID = id
		p.Proveedor = nil
	}
	return nil
}

func (s *productoService) Crear(ctx context.Context, actor Actor, req ProductoRequest) (*model.Producto, error) {
	p := &model.Producto{StockMinimo: model.DefaultStockMinimo, Activo: true, CreadorID: actor.usuarioID()}
	if err := s.applyRequest(ctx, p, req); err != nil {
		return nil, err
	}
	if err := validarProducto(p); err != nil {
		return nil, err
	}
	if exists, err := s.productos.SKUExists(ctx, p.SKU, nil); err != nil {
		return nil, err
	} else if exists {
		return nil, apperror.Conflict("Ya existe un producto con el SKU " + p.SKU)
	}

	// missing category or supplier fall back to the first existing ones
	if p.CategoriaID == nil {
		if c, err := s.categorias.First(ctx); err == nil {
			p.CategoriaID = &c.ID
		} else if !repository.IsNotFound(err) {
			return nil, err
		}
	}
	if p.ProveedorID == nil {
		if pr, err := s.proveedores.First(ctx); err == nil {
			p.ProveedorID = &pr.ID
		} else if !repository.IsNotFound(err) {
			return nil, err
		}
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productos.Create(txCtx, p); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		if err := s.movimientos.Create(txCtx, &model.MovimientoStock{
			ProductoID:      p.ID,
			Tipo:            model.MovimientoEntrada,
			Cantidad:        p.Stock,
			StockResultante: p.Stock,
			UsuarioID:       actor.usuarioID(),
			Motivo:          "Stock inicial",
		}); err != nil {
			return err
		}
		return s.auditor.Record(txCtx, actor, AuditEntry{
			Accion:      model.AccionCrear,
			Modelo:      "Producto",
			IDObjeto:    p.ID.String(),
			Descripcion: "Creación de producto " + p.Nombre,
			Despues:     productoSnapshot(p),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.get(ctx, p.ID)
}

// Actualizar applies a partial update under a row lock. A vendedor cannot set
// stock directly: the requested value becomes an ajuste_stock request.
func (s *productoService) Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req ProductoRequest) (*model.Producto, error) {
	var stockSolicitado *int
	if actor.Rol == model.RolVendedor && req.Stock != nil {
		if *req.Stock < 0 {
			return nil, apperror.Validation("El stock no puede ser negativo")
		}
		stockSolicitado, req.Stock = req.Stock, nil
	}

	var p *model.Producto
	stockCambiado := false
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		p, err = s.productos.FindByIDForUpdate(txCtx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return apperror.NotFound("Producto no encontrado")
			}
			return err
		}
		antes := productoSnapshot(p)
		stockAnterior := p.Stock

		if err := s.applyRequest(txCtx, p, req); err != nil {
			return err
		}
		if err := validarProducto(p); err != nil {
			return err
		}
		if req.SKU != nil {
			if exists, err := s.productos.SKUExists(txCtx, p.SKU, &p.ID); err != nil {
				return err
			} else if exists {
				return apperror.Conflict("Ya existe un producto con el SKU " + p.SKU)
			}
		}

		if err := s.productos.Update(txCtx, p); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		if p.Stock != stockAnterior {
			stockCambiado = true
			if err := s.productos.UpdateStock(txCtx, p.ID, p.Stock); err != nil {
				return fmt.Errorf("failed to update stock: %w", err)
			}
			if err := s.movimientos.Create(txCtx, &model.MovimientoStock{
				ProductoID:      p.ID,
				Tipo:            model.MovimientoAjuste,
				Cantidad:        p.Stock - stockAnterior,
				StockResultante: p.Stock,
				UsuarioID:       actor.usuarioID(),
				Motivo:          "Edición de producto",
			}); err != nil {
				return err
			}
		}
		return s.auditor.Record(txCtx, actor, AuditEntry{
			Accion:      model.AccionActualizar,
			Modelo:      "Producto",
			IDObjeto:    p.ID.String(),
			Descripcion: "Actualización de producto " + p.Nombre,
			Antes:       antes,
			Despues:     productoSnapshot(p),
		})
	})
	if err != nil {
		return nil, err
	}

	if stockSolicitado != nil && *stockSolicitado != p.Stock {
		if _, err := s.solicitudes.Solicitar(ctx, actor, SolicitudRequest{
			Tipo:        model.SolicitudAjusteStock,
			ProductoID:  p.ID.String(),
			Descripcion: "Edición de producto",
			Datos:       map[string]interface{}{"nuevo_stock": *stockSolicitado, "motivo": "Edición de producto"},
		}); err != nil {
			return nil, err
		}
	}
	if stockCambiado {
		alertarStockBajo(s.notifier, p)
	}
	return s.get(ctx, p.ID)
}

func (s *productoService) Eliminar(ctx context.Context, actor Actor, id uuid.UUID) error {
	p, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return eliminarProducto(txCtx, s.productos, s.auditor, actor, p)
	})
}

func eliminarProducto(ctx context.Context, productos repository.ProductoRepository, auditor Auditor, actor Actor, p *model.Producto) error {
	if err := productos.Delete(ctx, p.ID); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return auditor.Record(ctx, actor, AuditEntry{
		Accion:      model.AccionEliminar,
		Modelo:      "Producto",
		IDObjeto:    p.ID.String(),
		Descripcion: "Eliminación de producto " + p.Nombre,
		Antes:       productoSnapshot(p),
	})
}

func (s *productoService) Obtener(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	return s.get(ctx, id)
}

func (s *productoService) ListarAdmin(ctx context.Context, search string, page, limit int) ([]model.Producto, int64, error) {
	page, limit = pageOrDefault(page, limit)
	return s.productos.List(ctx, repository.ProductoFilter{Search: strings.TrimSpace(search), Page: page, Limit: limit})
}

func (s *productoService) ActualizarStock(ctx context.Context, actor Actor, id uuid.UUID, req StockRequest) (*StockResult, error) {
	if req.NuevoStock == nil || *req.NuevoStock < 0 {
		return nil, apperror.Validation("El stock no puede ser negativo")
	}
	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.Rol == model.RolVendedor {
		solicitud, err := s.solicitudes.Solicitar(ctx, actor, SolicitudRequest{
			Tipo:        model.SolicitudAjusteStock,
			ProductoID:  p.ID.String(),
			Descripcion: req.Motivo,
			Datos:       map[string]interface{}{"nuevo_stock": *req.NuevoStock, "motivo": req.Motivo},
		})
		if err != nil {
			return nil, err
		}
		return &StockResult{Aplicado: false, Solicitud: solicitud}, nil
	}

	var actualizado *model.Producto
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var ajusteErr error
		actualizado, ajusteErr = ajustarStock(txCtx, s.productos, s.movimientos, s.auditor, actor, p.ID, *req.NuevoStock, req.Motivo)
		return ajusteErr
	})
	if err != nil {
		return nil, err
	}
	alertarStockBajo(s.notifier, actualizado)
	return &StockResult{Aplicado: true, Producto: actualizado}, nil
}

// ajustarStock locks the product, sets its stock and records an ajuste movement.
// It must run inside a transaction.
func ajustarStock(ctx context.Context, productos repository.ProductoRepository, movimientos repository.MovimientoRepository, auditor Auditor, actor Actor, id uuid.UUID, nuevo int, motivo string) (*model.Producto, error) {
	p, err := productos.FindByIDForUpdate(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("Producto no encontrado")
		}
		return nil, err
	}
	anterior := p.Stock
	if err := productos.UpdateStock(ctx, p.ID, nuevo); err != nil {
		return nil, fmt.Errorf("failed to update stock: %w", err)
	}
	p.Stock = nuevo
	if motivo == "" {
		motivo = "Ajuste manual"
	}
	if err := movimientos.Create(ctx, &model.MovimientoStock{
		ProductoID:      p.ID,
		Tipo:            model.MovimientoAjuste,
		Cantidad:        nuevo - anterior,
		StockResultante: nuevo,
		UsuarioID:       actor.usuarioID(),
		Motivo:          motivo,
	}); err != nil {
		return nil, err
	}
	if err := auditor.Record(ctx, actor, AuditEntry{
		Accion:      model.AccionActualizar,
		Modelo:      "Producto",
		IDObjeto:    p.ID.String(),
		Descripcion: fmt.Sprintf("Ajuste de stock de %s: %d -> %d (%s)", p.Nombre, anterior, nuevo, motivo),
		Antes:       map[string]int{"stock": anterior},
		Despues:     map[string]int{"stock": nuevo},
	}); err != nil {
		return nil, err
	}
	return p, nil
}

func alertarStockBajo(n Notifier, p *model.Producto) {
	if p == nil || !p.StockBajo() {
		return
	}
	n.Publish(EventStockBajo, map[string]interface{}{
		"producto_id":  p.ID,
		"nombre":       p.Nombre,
		"sku":          p.SKU,
		"stock":        p.Stock,
		"stock_minimo": p.StockMinimo,
	}, model.StaffRoles...)
}

func (s *productoService) StockBajo(ctx context.Context) ([]model.Producto, error) {
	return s.productos.StockBajo(ctx)
}

func (s *productoService) Movimientos(ctx context.Context, id uuid.UUID) ([]model.MovimientoStock, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}
	return s.movimientos.ListByProducto(ctx, id, 50)
}

func (s *productoService) CrearCategoria(ctx context.Context, actor Actor, req CategoriaRequest) (*model.Categoria, error) {
	nombre := strings.TrimSpace(req.Nombre)
	if _, err := s.categorias.FindByNombre(ctx, nombre); err == nil {
		return nil, apperror.Conflict("Ya existe una categoría llamada " + nombre)
	} else if !repository.IsNotFound(err) {
		return nil, err
	}
	c := &model.Categoria{Nombre: nombre, Descripcion: req.Descripcion, Activa: true}
	if req.Activa != nil {
		c.Activa = *req.Activa
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.categorias.Create(txCtx, c); err != nil {
			return err
		}
		return s.auditor.Record(txCtx, actor, AuditEntry{
			Accion:      model.AccionCrear,
			Modelo:      "Categoria",
			IDObjeto:    c.ID.String(),
			Descripcion: "Creación de categoría " + c.Nombre,
			Despues:     c,
		})
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *productoService) ActualizarCategoria(ctx context.Context, actor Actor, id uuid.UUID, req CategoriaRequest) (*model.Categoria, error) {
	c, err := s.categorias.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("Categoría no encontrada")
		}
		return nil, err
	}
	antes := *c
	nombre := strings.TrimSpace(req.Nombre)
	if !strings.EqualFold(nombre, c.Nombre) {
		if other, err := s.categorias.FindByNombre(ctx, nombre); err == nil && other.ID != c.ID {
			return nil, apperror.Conflict("Ya existe una categoría llamada " + nombre)
		} else if err != nil && !repository.IsNotFound(err) {
			return nil, err
		}
	}
	c.Nombre = nombre
	c.Descripcion = req.Descripcion
	if req.Activa != nil {
		c.Activa = *req.Activa
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.categorias.Update(txCtx, c); err != nil {
			return err
		}
		return s.auditor.Record(txCtx, actor, AuditEntry{
			Accion:      model.AccionActualizar,
			Modelo:      "Categoria",
			IDObjeto:    c.ID.String(),
			Descripcion: "Actualización de categoría " + c.Nombre,
			Antes:       antes,
			Despues:     c,
		})
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *productoService) FixImages(ctx context.Context) (int64, error) {
	return s.productos.AsignarPlaceholder(ctx, model.PlaceholderImagen)
}

type demoProducto struct {
	sku, nombre, categoria, precio, costo string
	stock                                 int
}

var demoCatalogo = []demoProducto{
	{"VIN-CS-001", "Cabernet Sauvignon Reserva 750ml", "Vinos", "7990", "4500", 40},
	{"VIN-CA-002", "Carménère Gran Reserva 750ml", "Vinos", "12990", "7800", 25},
	{"VIN-SB-003", "Sauvignon Blanc 750ml", "Vinos", "5990", "3200", 30},
	{"CER-IPA-001", "Cerveza IPA Artesanal 330ml", "Cervezas", "2490", "1300", 120},
	{"CER-LAG-002", "Cerveza Lager Six Pack", "Cervezas", "5990", "3600", 60},
	{"PIS-35-001", "Pisco 35° 750ml", "Piscos", "6490", "3900", 50},
	{"PIS-40-002", "Pisco Reservado 40° 750ml", "Piscos", "9990", "6100", 20},
	{"DES-WHI-001", "Whisky Escocés 12 años 750ml", "Destilados", "29990", "19000", 10},
	{"DES-RON-002", "Ron Añejo 750ml", "Destilados", "11990", "7200", 15},
	{"DES-GIN-003", "Gin London Dry 700ml", "Destilados", "15990", "9800", 4},
}

// SeedDemo inserts demo categories, a supplier and products. Existing SKUs are skipped.
func (s *productoService) SeedDemo(ctx context.Context) (int, error) {
	creados := 0
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		proveedor, err := s.proveedores.First(txCtx)
		if repository.IsNotFound(err) {
			proveedor = &model.Proveedor{Nombre: "Distribuidora Central", Rut: "76.123.456-7", Email: "ventas@distcentral.cl", Activo: true}
			err = s.proveedores.Create(txCtx, proveedor)
		}
		if err != nil {
			return err
		}

		categorias := map[string]*model.Categoria{}
		for _, d := range demoCatalogo {
			cat, ok := categorias[d.categoria]
			if !ok {
				cat, err = s.categorias.FindByNombre(txCtx, d.categoria)
				if repository.IsNotFound(err) {
					cat = &model.Categoria{Nombre: d.categoria, Activa: true}
					err = s.categorias.Create(txCtx, cat)
				}
				if err != nil {
					return err
				}
				categorias[d.categoria] = cat
			}

			exists, err := s.productos.SKUExists(txCtx, d.sku, nil)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			p := &model.Producto{
				Nombre:      d.nombre,
				SKU:         d.sku,
				Precio:      decimal.RequireFromString(d.precio),
				Costo:       decimal.RequireFromString(d.costo),
				Stock:       d.stock,
				StockMinimo: model.DefaultStockMinimo,
				CategoriaID: &cat.ID,
				ProveedorID: &proveedor.ID,
				Descripcion: d.nombre,
				ImagenURL:   model.PlaceholderImagen,
				Activo:      true,
			}
			if err := s.productos.Create(txCtx, p); err != nil {
				return err
			}
			if err := s.movimientos.Create(txCtx, &model.MovimientoStock{
				ProductoID:      p.ID,
				Tipo:            model.MovimientoEntrada,
				Cantidad:        p.Stock,
				StockResultante: p.Stock,
				Motivo:          "Carga inicial de demostración",
			}); err != nil {
				return err
			}
			creados++
		}
		return nil
	})
	return creados, err
}
