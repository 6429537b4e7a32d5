package model

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMargenGanancia(t *testing.T) {
	p := Producto{Precio: dec("15000"), Costo: dec("10000")}
	assert.True(t, p.MargenGanancia().Equal(dec("50")))

	p = Producto{Precio: dec("10000"), Costo: dec("3000")}
	assert.True(t, p.MargenGanancia().Equal(dec("233.33")))

	p = Producto{Precio: dec("10000")}
	assert.True(t, p.MargenGanancia().IsZero())
}

func TestStockBajoAndImagen(t *testing.T) {
	assert.True(t, Producto{Stock: 5, StockMinimo: 5}.StockBajo())
	assert.False(t, Producto{Stock: 6, StockMinimo: 5}.StockBajo())
	assert.Equal(t, PlaceholderImagen, Producto{}.Imagen())
	assert.Equal(t, "http://x/img.png", Producto{ImagenURL: "http://x/img.png"}.Imagen())
}

func TestPuedeTransicionar(t *testing.T) {
	cases := []struct {
		desde, hacia string
		ok           bool
	}{
		{EstadoPendiente, EstadoPagado, true},
		{EstadoPagado, EstadoPagado, false},
		{EstadoPendiente, EstadoEnPreparacion, true},
		{EstadoPagado, EstadoEnPreparacion, true},
		{EstadoEnviado, EstadoEnPreparacion, false},
		{EstadoPagado, EstadoEnviado, true},
		{EstadoEnPreparacion, EstadoEnviado, true},
		{EstadoPendiente, EstadoEnviado, false},
		{EstadoEnviado, EstadoEntregado, true},
		{EstadoPagado, EstadoEntregado, false},
		{EstadoEnviado, EstadoCancelado, true},
		{EstadoEntregado, EstadoCancelado, false},
		{EstadoPendiente, EstadoPendiente, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, PuedeTransicionar(tc.desde, tc.hacia), "%s -> %s", tc.desde, tc.hacia)
	}
}

func TestNumeroPedidoAndSeguimiento(t *testing.T) {
	at := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	numero := NuevoNumeroPedido(at)
	assert.Regexp(t, regexp.MustCompile(`^PED-20240309-[0-9A-F]{8}$`), numero)

	p := Pedido{NumeroPedido: "PED-20240309-ABCD1234"}
	assert.Equal(t, "SEG-20240309-ABCD1234", p.CodigoSeguimiento())
	assert.Equal(t, "PED-20240309-ABCD1234", NumeroDesdeSeguimiento("seg-20240309-abcd1234"))
}

func TestDetalleSubtotal(t *testing.T) {
	d := DetallePedido{Cantidad: 3, PrecioUnitario: dec("4990")}
	d.CalcularSubtotal()
	assert.True(t, d.Subtotal.Equal(dec("14970")))
}

func TestCuponValidezYDescuento(t *testing.T) {
	now := time.Now()
	c := Cupon{
		TipoDescuento:       DescuentoPorcentaje,
		DescuentoPorcentaje: dec("10"),
		FechaInicio:         now.Add(-time.Hour),
		FechaFin:            now.Add(time.Hour),
		UsosMaximos:         2,
		UsosActuales:        1,
		Activo:              true,
	}
	assert.True(t, c.EsValido(now))
	assert.True(t, c.CalcularDescuento(dec("20000")).Equal(dec("2000")))

	c.UsosActuales = 2
	assert.False(t, c.EsValido(now))

	c.UsosActuales = 0
	assert.False(t, c.EsValido(now.Add(2*time.Hour)))

	c.Activo = false
	assert.False(t, c.EsValido(now))

	m := Cupon{TipoDescuento: DescuentoMonto, DescuentoMonto: dec("5000")}
	assert.True(t, m.CalcularDescuento(dec("20000")).Equal(dec("5000")))
	assert.True(t, m.CalcularDescuento(dec("3000")).Equal(dec("3000")))
}

func TestMejorPrecio(t *testing.T) {
	now := time.Now()
	promos := []PromocionProducto{
		{DescuentoPorcentaje: dec("10"), FechaInicio: now.Add(-time.Hour), FechaFin: now.Add(time.Hour), Activa: true},
		{DescuentoPorcentaje: dec("25"), FechaInicio: now.Add(-time.Hour), FechaFin: now.Add(time.Hour), Activa: true},
		{DescuentoPorcentaje: dec("50"), FechaInicio: now.Add(-time.Hour), FechaFin: now.Add(time.Hour), Activa: false},
		{DescuentoPorcentaje: dec("60"), FechaInicio: now.Add(time.Hour), FechaFin: now.Add(2 * time.Hour), Activa: true},
	}
	precio, promo := MejorPrecio(dec("10000"), promos, now)
	assert.True(t, precio.Equal(dec("7500")))
	require.NotNil(t, promo)
	assert.True(t, promo.DescuentoPorcentaje.Equal(dec("25")))

	precio, promo = MejorPrecio(dec("10000"), nil, now)
	assert.True(t, precio.Equal(dec("10000")))
	assert.Nil(t, promo)
}

func TestAuditHashDetectsTampering(t *testing.T) {
	uid := uuid.New()
	entry := AuditLog{
		UsuarioID:   &uid,
		TipoAccion:  AccionActualizar,
		Modelo:      "Producto",
		IDObjeto:    "abc",
		DatosNuevos: datatypes.JSON(`{"precio": "100", "nombre": "Pisco"}`),
	}
	entry.Sellar(time.Now())
	require.Len(t, entry.HashIntegridad, 64)
	assert.True(t, entry.IntegridadValida())

	// jsonb may reorder keys and drop whitespace
	entry.DatosNuevos = datatypes.JSON(`{"nombre":"Pisco","precio":"100"}`)
	assert.True(t, entry.IntegridadValida())

	entry.DatosNuevos = datatypes.JSON(`{"nombre":"Pisco","precio":"1"}`)
	assert.False(t, entry.IntegridadValida())
}

func TestEdad(t *testing.T) {
	born := time.Date(2006, 6, 15, 0, 0, 0, 0, time.UTC)
	u := Usuario{FechaNacimiento: &born}
	assert.Equal(t, 17, u.Edad(time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 18, u.Edad(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, Usuario{}.Edad(time.Now()))
}

func TestDireccionCompleta(t *testing.T) {
	d := DireccionEnvio{Calle: "Av. Providencia", Numero: "1234", Comuna: "Providencia", Ciudad: "Santiago", Region: "RM"}
	assert.Equal(t, "Av. Providencia 1234, Providencia, Santiago, Metropolitana de Santiago", d.DireccionCompleta())
}

func TestTiempoResolucionHoras(t *testing.T) {
	created := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	resolved := created.Add(90 * time.Minute)
	r := Reclamo{Base: Base{FechaCreacion: created}, FechaResolucion: &resolved}
	require.NotNil(t, r.TiempoResolucionHoras())
	assert.InDelta(t, 1.5, *r.TiempoResolucionHoras(), 0.001)
	assert.Nil(t, Reclamo{}.TiempoResolucionHoras())
}

func TestSiguienteEjecucion(t *testing.T) {
	at := time.Date(2024, 1, 31, 8, 0, 0, 0, time.UTC)
	assert.Nil(t, SiguienteEjecucion(FrecuenciaUnico, at))
	assert.Equal(t, at.AddDate(0, 0, 1), *SiguienteEjecucion(FrecuenciaDiario, at))
	assert.Equal(t, at.AddDate(0, 0, 7), *SiguienteEjecucion(FrecuenciaSemanal, at))
	assert.Equal(t, at.AddDate(0, 1, 0), *SiguienteEjecucion(FrecuenciaMensual, at))
}

func TestDesglosarIVA(t *testing.T) {
	neto, iva := DesglosarIVA(dec("11900"), dec("0.19"))
	assert.True(t, neto.Equal(dec("10000")))
	assert.True(t, iva.Equal(dec("1900")))
}

func TestCrecimiento(t *testing.T) {
	assert.True(t, Crecimiento(dec("150"), dec("100")).Equal(dec("50")))
	assert.True(t, Crecimiento(dec("50"), dec("100")).Equal(dec("-50")))
	assert.True(t, Crecimiento(dec("10"), decimal.Zero).Equal(dec("100")))
	assert.True(t, Crecimiento(decimal.Zero, decimal.Zero).IsZero())
}
