package service

import (
	"context"
	"testing"
	"time"

	"elixir/internal/apperror"
	"elixir/internal/model"
	"elixir/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *env) catalogoService() CatalogoService {
	return NewCatalogoService(e.productos, e.categorias, e.promociones, e.pedidos, e.stats, e.sistema, e.cache)
}

func TestDetalleAplicaPromocionYRegistraVisita(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vinos := testutil.CreateCategoria(t, e.db, "Vinos")
	p := testutil.CreateProducto(t, e.db, "VIN-1", "10000", 10, vinos)
	testutil.CreateProducto(t, e.db, "VIN-2", "12000", 10, vinos)
	now := time.Now().UTC()
	require.NoError(t, e.db.Create(&model.PromocionProducto{
		ProductoID:          p.ID,
		Nombre:              "Cyber",
		DescuentoPorcentaje: dec("20"),
		FechaInicio:         now.Add(-time.Hour),
		FechaFin:            now.Add(time.Hour),
		Activa:              true,
	}).Error)

	d, err := e.catalogoService().Detalle(ctx, Actor{IP: "10.0.0.1"}, p.ID, "busqueda")
	require.NoError(t, err)
	assert.True(t, dec("8000").Equal(d.PrecioFinal), "precio final %s", d.PrecioFinal)
	assert.True(t, dec("10000").Equal(d.PrecioOriginal))
	require.NotNil(t, d.Promocion)
	require.Len(t, d.Relacionados, 1)
	assert.Equal(t, "VIN-2", d.Relacionados[0].SKU)

	var visitas []model.EstadisticaVisita
	require.NoError(t, e.db.Find(&visitas).Error)
	require.Len(t, visitas, 1)
	assert.Equal(t, "busqueda", visitas[0].Fuente)
	assert.Nil(t, visitas[0].UsuarioID)
}

func TestDetalleProductoInactivoSoloStaff(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := testutil.CreateProducto(t, e.db, "OFF-1", "1000", 10, nil)
	require.NoError(t, e.db.Model(p).Update("activo", false).Error)
	svc := e.catalogoService()

	_, err := svc.Detalle(ctx, Actor{}, p.ID, "")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = svc.Detalle(ctx, Actor{ID: uuid.New(), Rol: model.RolGerente}, p.ID, "")
	assert.NoError(t, err)
}

func TestCatalogoFiltraPorNombreDeCategoria(t *testing.T) {
	e := newEnv(t)
	vinos := testutil.CreateCategoria(t, e.db, "Vinos")
	cervezas := testutil.CreateCategoria(t, e.db, "Cervezas")
	testutil.CreateProducto(t, e.db, "VIN-1", "1000", 1, vinos)
	testutil.CreateProducto(t, e.db, "CER-1", "1000", 1, cervezas)
	testutil.CreateProducto(t, e.db, "CER-2", "1000", 1, cervezas)

	items, total, err := e.catalogoService().Catalogo(context.Background(), CatalogoFilter{Categoria: "cervezas"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 2)
}

func TestSugerenciasRequiereDosCaracteres(t *testing.T) {
	e := newEnv(t)
	testutil.CreateProducto(t, e.db, "S-1", "1000", 1, nil)
	svc := e.catalogoService()

	out, err := svc.Sugerencias(context.Background(), "p")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = svc.Sugerencias(context.Background(), "prod")
	require.NoError(t, err)
	assert.Equal(t, []string{"Producto S-1"}, out)
}

func TestSlidersPorDefectoYGuardados(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := e.catalogoService()

	sliders, err := svc.Sliders(ctx)
	require.NoError(t, err)
	assert.Len(t, sliders, len(defaultSliders))

	assert.True(t, apperror.Is(svc.GuardarSliders(ctx, nil), apperror.KindValidation))
	require.NoError(t, svc.GuardarSliders(ctx, []Slider{{Titulo: "Navidad"}}))
	sliders, err = svc.Sliders(ctx)
	require.NoError(t, err)
	require.Len(t, sliders, 1)
	assert.Equal(t, "Navidad", sliders[0].Titulo)
}

func TestRecomendacionesExcluyeComprados(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	cliente := testutil.CreateUsuario(t, e.db, "cliente@test.cl", model.RolCliente)
	vinos := testutil.CreateCategoria(t, e.db, "Vinos")
	comprado := testutil.CreateProducto(t, e.db, "VIN-1", "1000", 10, vinos)
	otro := testutil.CreateProducto(t, e.db, "VIN-2", "1000", 10, vinos)

	_, err := e.pedidoService().Crear(ctx, e.actor(cliente), CrearPedidoRequest{
		Items:       []ItemRequest{{ProductoID: comprado.ID.String(), Cantidad: 1}},
		MetodoPago:  model.PagoTarjeta,
		MetodoEnvio: model.EnvioRetiroTienda,
	})
	require.NoError(t, err)

	recs, err := e.catalogoService().Recomendaciones(ctx, e.actor(cliente))
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	assert.Equal(t, otro.ID, recs[0].ID)
	for _, r := range recs {
		assert.NotEqual(t, comprado.ID, r.ID)
	}
}

func TestDireccionPrincipal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	cliente := testutil.CreateUsuario(t, e.db, "cliente@test.cl", model.RolCliente)
	ajeno := testutil.CreateUsuario(t, e.db, "ajeno@test.cl", model.RolCliente)
	svc := NewDireccionService(e.direcciones, e.tx)
	base := DireccionRequest{Nombre: "Casa", Calle: "Los Leones", Numero: "100", Comuna: "Providencia", Ciudad: "Santiago", Region: "RM"}

	casa, err := svc.Crear(ctx, e.actor(cliente), base)
	require.NoError(t, err)
	assert.True(t, casa.EsPrincipal)
	assert.Equal(t, "Metropolitana de Santiago", casa.RegionNombre)

	oficina := base
	oficina.Nombre = "Oficina"
	ofi, err := svc.Crear(ctx, e.actor(cliente), oficina)
	require.NoError(t, err)
	assert.False(t, ofi.EsPrincipal)

	_, err = svc.MarcarPrincipal(ctx, e.actor(ajeno), ofi.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = svc.MarcarPrincipal(ctx, e.actor(cliente), ofi.ID)
	require.NoError(t, err)
	lista, err := svc.Listar(ctx, e.actor(cliente))
	require.NoError(t, err)
	require.Len(t, lista, 2)
	assert.Equal(t, ofi.ID, lista[0].ID)
	assert.False(t, lista[1].EsPrincipal)

	// deleting the principal promotes the remaining address
	require.NoError(t, svc.Eliminar(ctx, e.actor(cliente), ofi.ID))
	lista, err = svc.Listar(ctx, e.actor(cliente))
	require.NoError(t, err)
	require.Len(t, lista, 1)
	assert.True(t, lista[0].EsPrincipal)
}

func TestValidarCuponNuncaFalla(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := NewDescuentoService(e.cupones, e.promociones, e.productos, e.tx, e.audit)
	now := time.Now().UTC()
	require.NoError(t, e.db.Create(&model.Cupon{
		Codigo:         "FIJO5000",
		TipoDescuento:  model.DescuentoMonto,
		DescuentoMonto: dec("5000"),
		MontoMinimo:    dec("20000"),
		FechaInicio:    now.Add(-time.Hour),
		FechaFin:       now.Add(time.Hour),
		UsosMaximos:    10,
		Activo:         true,
	}).Error)

	res, err := svc.ValidarCupon(ctx, ValidarCuponRequest{Codigo: "NOEXISTE", Monto: dec("30000")})
	require.NoError(t, err)
	assert.False(t, res.Valido)

	res, err = svc.ValidarCupon(ctx, ValidarCuponRequest{Codigo: "fijo5000", Monto: dec("10000")})
	require.NoError(t, err)
	assert.False(t, res.Valido)

	res, err = svc.ValidarCupon(ctx, ValidarCuponRequest{Codigo: "fijo5000", Monto: dec("30000")})
	require.NoError(t, err)
	assert.True(t, res.Valido)
	assert.True(t, dec("25000").Equal(res.TotalConDescuento))
}

func TestReclamoCicloDeVida(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	cliente := testutil.CreateUsuario(t, e.db, "cliente@test.cl", model.RolCliente)
	otro := testutil.CreateUsuario(t, e.db, "otro@test.cl", model.RolCliente)
	vendedor := testutil.CreateUsuario(t, e.db, "vendedor@test.cl", model.RolVendedor)
	svc := NewReclamoService(e.reclamos, e.pedidos, e.usuarios, e.tx, e.audit, e.email)

	r, err := svc.Crear(ctx, e.actor(cliente), CrearReclamoRequest{
		Tipo:        model.ReclamoEnvioRetrasado,
		Titulo:      "No llega",
		Descripcion: "Mi pedido no llega",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PrioridadMedia, r.Prioridad)

	_, err = svc.Detalle(ctx, e.actor(otro), r.ID)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	_, err = svc.Comentar(ctx, e.actor(cliente), r.ID, ComentarioRequest{Comentario: "x", EsInterno: true})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
	_, err = svc.Comentar(ctx, e.actor(vendedor), r.ID, ComentarioRequest{Comentario: "Revisar courier", EsInterno: true})
	require.NoError(t, err)
	_, err = svc.Comentar(ctx, e.actor(vendedor), r.ID, ComentarioRequest{Comentario: "Estamos revisando"})
	require.NoError(t, err)

	visibles, err := svc.Comentarios(ctx, e.actor(cliente), r.ID)
	require.NoError(t, err)
	assert.Len(t, visibles, 1)
	todos, err := svc.Comentarios(ctx, e.actor(vendedor), r.ID)
	require.NoError(t, err)
	assert.Len(t, todos, 2)

	_, err = svc.Calificar(ctx, e.actor(cliente), r.ID, SatisfaccionRequest{Puntuacion: 5})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	resuelto := model.ReclamoResuelto
	_, err = svc.Actualizar(ctx, e.actor(vendedor), r.ID, ActualizarReclamoRequest{Estado: &resuelto})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	resolucion := "Reenvío realizado"
	det, err := svc.Actualizar(ctx, e.actor(vendedor), r.ID, ActualizarReclamoRequest{Estado: &resuelto, Resolucion: &resolucion})
	require.NoError(t, err)
	require.NotNil(t, det.FechaResolucion)
	require.NotNil(t, det.TiempoResolucionHoras)
	assert.Contains(t, e.sender.tipos(), MailReclamoResuelto)

	det, err = svc.Calificar(ctx, e.actor(cliente), r.ID, SatisfaccionRequest{Puntuacion: 4})
	require.NoError(t, err)
	require.NotNil(t, det.SatisfaccionCliente)
	assert.Equal(t, 4, *det.SatisfaccionCliente)
}

func TestTasaVigentePrefiereLaMasReciente(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUsuario(t, e.db, "admin@test.cl", model.RolAdminSistema)
	svc := NewImpuestoService(e.tasas, e.tx, e.audit, time.UTC)

	actual, err := svc.Vigente(ctx, time.Now())
	require.NoError(t, err)
	assert.True(t, model.DefaultIVA.Equal(actual.Tasa))
	assert.False(t, actual.Defecto)

	_, err = svc.Crear(ctx, e.actor(admin), TasaRequest{Nombre: "IVA transitorio", Tasa: "0.15", VigenteDesde: "2020-01-01", VigenteHasta: "2020-12-31"})
	require.NoError(t, err)

	en2020, err := svc.Vigente(ctx, time.Date(2020, 12, 31, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, dec("0.15").Equal(en2020.Tasa))

	en2021, err := svc.Vigente(ctx, time.Date(2021, 1, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, model.DefaultIVA.Equal(en2021.Tasa))

	antes, err := svc.Vigente(ctx, time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, antes.Defecto)

	_, err = svc.Crear(ctx, e.actor(admin), TasaRequest{Nombre: "X", Tasa: "1.5", VigenteDesde: "2020-01-01"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.Equal(t, int64(1), e.countAudit(t, model.AccionCrear, "TasaImpuesto"))
}
