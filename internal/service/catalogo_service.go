package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"elixir/internal/apperror"
	"elixir/internal/cache"
	"elixir/internal/model"
	"elixir/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	slidersCacheKey     = "sliders:config"
	maxDestacados       = 8
	maxRelacionados     = 4
	maxSugerencias      = 8
	maxRecomendaciones  = 8
	ventanaMasVistos    = 30 * 24 * time.Hour
	catalogoLimitMaximo = 100
)

type Slider struct {
	Titulo    string `json:"titulo" binding:"required"`
	Subtitulo string `json:"subtitulo"`
	Imagen    string `json:"imagen"`
	Enlace    string `json:"enlace"`
	Categoria string `json:"categoria"`
}

var defaultSliders = []Slider{
	{Titulo: "Vinos", Subtitulo: "Los mejores valles de Chile", Imagen: "/static/sliders/vinos.jpg", Enlace: "/catalogo?categoria=vinos", Categoria: "vinos"},
	{Titulo: "Cervezas", Subtitulo: "Artesanales e importadas", Imagen: "/static/sliders/cervezas.jpg", Enlace: "/catalogo?categoria=cervezas", Categoria: "cervezas"},
	{Titulo: "Piscos", Subtitulo: "Tradición del norte", Imagen: "/static/sliders/piscos.jpg", Enlace: "/catalogo?categoria=piscos", Categoria: "piscos"},
}

type HomeResponse struct {
	Categorias []model.Categoria   `json:"categorias"`
	Destacados []ProductoConPrecio `json:"productos_destacados"`
}

type CatalogoFilter struct {
	Categoria string
	Q         string
	Page      int
	Limit     int
}

type ProductoDetalle struct {
	ProductoConPrecio
	Relacionados []ProductoConPrecio `json:"productos_relacionados"`
}

// CatalogoService serves the public storefront.
type CatalogoService interface {
	Home(ctx context.Context) (*HomeResponse, error)
	Catalogo(ctx context.Context, filter CatalogoFilter) ([]ProductoConPrecio, int64, error)
	Detalle(ctx context.Context, visitante Actor, id uuid.UUID, fuente string) (*ProductoDetalle, error)
	Sugerencias(ctx context.Context, q string) ([]string, error)
	Categorias(ctx context.Context) ([]model.Categoria, error)
	Sliders(ctx context.Context) ([]Slider, error)
	GuardarSliders(ctx context.Context, sliders []Slider) error
	Recomendaciones(ctx context.Context, actor Actor) ([]ProductoConPrecio, error)
}

type catalogoService struct {
	productos  repository.ProductoRepository
	categorias repository.CategoriaRepository
	pedidos    repository.PedidoRepository
	stats      repository.StatisticsRepository
	sistema    repository.SistemaRepository
	cache      cache.Cache
	pricing    pricing
	now        func() time.Time
}

func NewCatalogoService(
	productos repository.ProductoRepository,
	categorias repository.CategoriaRepository,
	promociones repository.PromocionRepository,
	pedidos repository.PedidoRepository,
	stats repository.StatisticsRepository,
	sistema repository.SistemaRepository,
	c cache.Cache,
) CatalogoService {
	return &catalogoService{
		productos:  productos,
		categorias: categorias,
		pedidos:    pedidos,
		stats:      stats,
		sistema:    sistema,
		cache:      c,
		pricing:    pricing{promociones: promociones},
		now:        time.Now,
	}
}

func (s *catalogoService) Home(ctx context.Context) (*HomeResponse, error) {
	categorias, err := s.categorias.ListActivas(ctx)
	if err != nil {
		return nil, err
	}
	destacados, err := s.productos.Destacados(ctx, maxDestacados)
	if err != nil {
		return nil, err
	}
	items, err := s.pricing.conPrecios(ctx, destacados, s.now())
	if err != nil {
		return nil, err
	}
	return &HomeResponse{Categorias: categorias, Destacados: items}, nil
}

// resolveCategoria accepts a category id or a case-insensitive name.
func (s *catalogoService) resolveCategoria(ctx context.Context, raw string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if id, err := uuid.Parse(raw); err == nil {
		return &id, nil
	}
	c, err := s.categorias.FindByNombre(ctx, raw)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("Categoría no encontrada")
		}
		return nil, err
	}
	return &c.ID, nil
}

func (s *catalogoService) Catalogo(ctx context.Context, filter CatalogoFilter) ([]ProductoConPrecio, int64, error) {
	categoriaID, err := s.resolveCategoria(ctx, filter.Categoria)
	if err != nil {
		return nil, 0, err
	}
	page, limit := pageOrDefault(filter.Page, filter.Limit)
	if limit > catalogoLimitMaximo {
		limit = catalogoLimitMaximo
	}
	productos, total, err := s.productos.List(ctx, repository.ProductoFilter{
		CategoriaID: categoriaID,
		Search:      strings.TrimSpace(filter.Q),
		SoloActivos: true,
		Page:        page,
		Limit:       limit,
	})
	if err != nil {
		return nil, 0, err
	}
	items, err := s.pricing.conPrecios(ctx, productos, s.now())
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func fuenteValida(f string) string {
	switch f {
	case model.FuenteBusqueda, model.FuenteCategoria, model.FuenteRecomendacion, model.FuenteHome:
		return f
	}
	return model.FuenteDirecto
}

func (s *catalogoService) Detalle(ctx context.Context, visitante Actor, id uuid.UUID, fuente string) (*ProductoDetalle, error) {
	p, err := s.productos.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("Producto no encontrado")
		}
		return nil, err
	}
	if !p.Activo && !visitante.EsStaff() {
		return nil, apperror.NotFound("Producto no encontrado")
	}

	now := s.now()
	lista := []model.Producto{*p}
	var relacionados []model.Producto
	if p.CategoriaID != nil {
		relacionados, err = s.productos.Relacionados(ctx, *p.CategoriaID, p.ID, maxRelacionados)
		if err != nil {
			return nil, err
		}
		lista = append(lista, relacionados...)
	}
	items, err := s.pricing.conPrecios(ctx, lista, now)
	if err != nil {
		return nil, err
	}

	visita := &model.EstadisticaVisita{
		ProductoID: p.ID,
		UsuarioID:  visitante.usuarioID(),
		Fuente:     fuenteValida(fuente),
		IPAddress:  visitante.IP,
		UserAgent:  visitante.UserAgent,
	}
	if err := s.sistema.CreateVisita(ctx, visita); err != nil {
		log.Warn().Err(err).Str("producto_id", p.ID.String()).Msg("could not record product visit")
	}

	return &ProductoDetalle{ProductoConPrecio: items[0], Relacionados: items[1:]}, nil
}

func (s *catalogoService) Sugerencias(ctx context.Context, q string) ([]string, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < 2 {
		return []string{}, nil
	}
	return s.productos.Sugerencias(ctx, q, maxSugerencias)
}

func (s *catalogoService) Categorias(ctx context.Context) ([]model.Categoria, error) {
	return s.categorias.ListActivas(ctx)
}

func (s *catalogoService) Sliders(ctx context.Context) ([]Slider, error) {
	var sliders []Slider
	found, err := s.cache.Get(ctx, slidersCacheKey, &sliders)
	if err != nil {
		log.Warn().Err(err).Msg("slider cache read failed")
	}
	if !found || len(sliders) == 0 {
		return defaultSliders, nil
	}
	return sliders, nil
}

func (s *catalogoService) GuardarSliders(ctx context.Context, sliders []Slider) error {
	if len(sliders) == 0 {
		return apperror.Validation("Debe enviar al menos un slider")
	}
	return s.cache.Set(ctx, slidersCacheKey, sliders, 0)
}

// Recomendaciones picks products from the categories the user bought most,
// falling back to the most viewed and then the newest products.
func (s *catalogoService) Recomendaciones(ctx context.Context, actor Actor) ([]ProductoConPrecio, error) {
	unidades, err := s.stats.UnidadesVendidas(ctx)
	if err != nil {
		return nil, err
	}

	elegidos := make([]model.Producto, 0, maxRecomendaciones)
	vistos := map[uuid.UUID]bool{}
	agregar := func(p model.Producto) {
		if len(elegidos) >= maxRecomendaciones || vistos[p.ID] || !p.Activo || p.Stock <= 0 {
			return
		}
		vistos[p.ID] = true
		elegidos = append(elegidos, p)
	}

	if actor.ID != uuid.Nil {
		compras, err := s.pedidos.ListConDetalles(ctx, repository.PedidoFilter{ClienteID: &actor.ID})
		if err != nil {
			return nil, err
		}
		porCategoria := map[uuid.UUID]int{}
		for _, pedido := range compras {
			if pedido.Estado == model.EstadoCancelado {
				continue
			}
			for _, d := range pedido.Detalles {
				vistos[d.ProductoID] = true
				if d.Producto != nil && d.Producto.CategoriaID != nil {
					porCategoria[*d.Producto.CategoriaID] += d.Cantidad
				}
			}
		}

		categorias := make([]uuid.UUID, 0, len(porCategoria))
		for id := range porCategoria {
			categorias = append(categorias, id)
		}
		sort.Slice(categorias, func(i, j int) bool {
			return porCategoria[categorias[i]] > porCategoria[categorias[j]]
		})

		for _, catID := range categorias {
			id := catID
			candidatos, _, err := s.productos.List(ctx, repository.ProductoFilter{CategoriaID: &id, SoloActivos: true, Page: 1, Limit: catalogoLimitMaximo})
			if err != nil {
				return nil, err
			}
			sort.SliceStable(candidatos, func(i, j int) bool {
				return unidades[candidatos[i].ID.String()] > unidades[candidatos[j].ID.String()]
			})
			for _, p := range candidatos {
				agregar(p)
			}
		}
	}

	if len(elegidos) < maxRecomendaciones {
		ids, err := s.sistema.MasVistos(ctx, s.now().Add(-ventanaMasVistos).UTC(), maxRecomendaciones*2)
		if err != nil {
			return nil, err
		}
		masVistos, err := s.productos.FindByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		orden := make(map[uuid.UUID]int, len(ids))
		for i, id := range ids {
			orden[id] = i
		}
		sort.Slice(masVistos, func(i, j int) bool { return orden[masVistos[i].ID] < orden[masVistos[j].ID] })
		for _, p := range masVistos {
			agregar(p)
		}
	}

	if len(elegidos) < maxRecomendaciones {
		nuevos, err := s.productos.Destacados(ctx, maxRecomendaciones*2)
		if err != nil {
			return nil, err
		}
		for _, p := range nuevos {
			agregar(p)
		}
	}

	return s.pricing.conPrecios(ctx, elegidos, s.now())
}
