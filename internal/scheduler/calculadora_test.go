package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fecha(dia int, hora, minuto int) time.Time {
	// Enero 2024: el lunes 8 es día laboral de referencia.
	return time.Date(2024, time.January, dia, hora, minuto, 0, 0, time.Local)
}

func TestCalcularDiasLaborales_EscenarioReferencia(t *testing.T) {
	calc := NewCalculadoraTiempo()

	// Lunes 08:00, 100 unidades a 10 u/h: 50 antes de colación, 35 en la
	// tarde, 15 a la mañana siguiente.
	resultado, err := calc.CalcularDiasLaborales(fecha(8, 8, 0), 100, 10, nil)
	require.NoError(t, err)
	require.Len(t, resultado.Intervalos, 3)

	assert.Equal(t, fecha(8, 8, 0), resultado.Intervalos[0].Inicio)
	assert.Equal(t, fecha(8, 13, 0), resultado.Intervalos[0].Fin)
	assert.InDelta(t, 50, resultado.Intervalos[0].Unidades, 1e-6)
	assert.InDelta(t, 50, resultado.Intervalos[0].UnidadesRestantes, 1e-6)

	assert.Equal(t, fecha(8, 14, 0), resultado.Intervalos[1].Inicio)
	assert.Equal(t, fecha(8, 17, 30), resultado.Intervalos[1].Fin)
	assert.InDelta(t, 35, resultado.Intervalos[1].Unidades, 1e-6)

	assert.Equal(t, fecha(9, 8, 0), resultado.Intervalos[2].Inicio)
	assert.Equal(t, fecha(9, 9, 30), resultado.Intervalos[2].Fin)
	assert.InDelta(t, 15, resultado.Intervalos[2].Unidades, 1e-6)

	assert.Equal(t, fecha(9, 9, 30), resultado.ProximaDisponible)
}

func TestCalcularDiasLaborales_SumaCantidades(t *testing.T) {
	calc := NewCalculadoraTiempo()

	casos := []struct {
		nombre   string
		inicio   time.Time
		cantidad float64
		estandar float64
	}{
		{"una hora exacta", fecha(8, 8, 0), 10, 10},
		{"varios días", fecha(8, 8, 0), 500, 7.5},
		{"arranque en la tarde", fecha(8, 15, 0), 123.45, 11},
		{"cantidad fraccionaria", fecha(10, 9, 15), 0.75, 3},
		{"cruzando fin de semana", fecha(12, 14, 0), 300, 9},
	}

	for _, caso := range casos {
		t.Run(caso.nombre, func(t *testing.T) {
			resultado, err := calc.CalcularDiasLaborales(caso.inicio, caso.cantidad, caso.estandar, nil)
			require.NoError(t, err)

			suma := 0.0
			for _, intervalo := range resultado.Intervalos {
				suma += intervalo.Unidades
			}
			assert.InDelta(t, caso.cantidad, suma, 1e-6)
		})
	}
}

func TestCalcularDiasLaborales_ConfinadoAHorarioLaboral(t *testing.T) {
	calc := NewCalculadoraTiempo()
	cal := calc.Calendario()

	resultado, err := calc.CalcularDiasLaborales(fecha(8, 8, 0), 800, 12, nil)
	require.NoError(t, err)

	for _, intervalo := range resultado.Intervalos {
		wd := intervalo.Inicio.Weekday()
		assert.NotEqual(t, time.Saturday, wd)
		assert.NotEqual(t, time.Sunday, wd)

		assert.False(t, intervalo.Inicio.Before(cal.InicioJornada(intervalo.Inicio)),
			"intervalo parte antes de la apertura: %s", intervalo.Inicio)
		assert.False(t, intervalo.Fin.After(cal.FinJornada(intervalo.Fin)),
			"intervalo termina después del cierre: %s", intervalo.Fin)

		// Ningún intervalo pisa la colación.
		colacionIni := cal.InicioColacion(intervalo.Inicio)
		colacionFin := cal.FinColacion(intervalo.Inicio)
		solapa := intervalo.Inicio.Before(colacionFin) && colacionIni.Before(intervalo.Fin)
		assert.False(t, solapa, "intervalo %s-%s pisa la colación", intervalo.Inicio, intervalo.Fin)
	}
}

func TestCalcularDiasLaborales_ViernesCorto(t *testing.T) {
	calc := NewCalculadoraTiempo()

	// Viernes 12 de enero de 2024: la tarde termina 16:30 y el resto salta
	// al lunes.
	resultado, err := calc.CalcularDiasLaborales(fecha(12, 14, 0), 30, 10, nil)
	require.NoError(t, err)
	require.Len(t, resultado.Intervalos, 2)

	assert.Equal(t, fecha(12, 16, 30), resultado.Intervalos[0].Fin)
	assert.InDelta(t, 25, resultado.Intervalos[0].Unidades, 1e-6)
	assert.Equal(t, fecha(15, 8, 0), resultado.Intervalos[1].Inicio) // lunes
}

func TestCalcularDiasLaborales_EstandarInvalido(t *testing.T) {
	calc := NewCalculadoraTiempo()

	for _, estandar := range []float64{0, -5} {
		resultado, err := calc.CalcularDiasLaborales(fecha(8, 8, 0), 100, estandar, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEstandarInvalido)
		assert.Nil(t, resultado)
	}
}

func TestCalcularDiasLaborales_CantidadCeroDegenera(t *testing.T) {
	calc := NewCalculadoraTiempo()

	resultado, err := calc.CalcularDiasLaborales(fecha(8, 10, 0), 0, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, resultado.Intervalos)
	assert.Equal(t, fecha(8, 10, 0), resultado.ProximaDisponible)
}

func TestCalcularDiasLaborales_InicioEnFinDeSemana(t *testing.T) {
	calc := NewCalculadoraTiempo()

	// Sábado 6 de enero: ajusta al lunes 8 a las 08:00.
	resultado, err := calc.CalcularDiasLaborales(fecha(6, 10, 0), 10, 10, nil)
	require.NoError(t, err)
	require.NotEmpty(t, resultado.Intervalos)
	assert.Equal(t, fecha(8, 8, 0), resultado.Intervalos[0].Inicio)
}

func TestCalcularDiasLaborales_InicioEnColacion(t *testing.T) {
	calc := NewCalculadoraTiempo()

	resultado, err := calc.CalcularDiasLaborales(fecha(8, 13, 30), 5, 10, nil)
	require.NoError(t, err)
	require.NotEmpty(t, resultado.Intervalos)
	assert.Equal(t, fecha(8, 14, 0), resultado.Intervalos[0].Inicio)
}

func TestCalcularDiasLaborales_LoteMinimoSiguiente(t *testing.T) {
	calc := NewCalculadoraTiempo()

	// Quedan 10 unidades pero el proceso siguiente necesita 30 para partir:
	// el primer tramo produce 30 aunque el pedido se cubra antes.
	resultado, err := calc.CalcularDiasLaborales(fecha(8, 8, 0), 10, 10, &OpcionesCalculo{CantidadMinimaSiguiente: 30})
	require.NoError(t, err)
	require.Len(t, resultado.Intervalos, 1)
	assert.InDelta(t, 30, resultado.Intervalos[0].Unidades, 1e-6)
	assert.Equal(t, fecha(8, 11, 0), resultado.Intervalos[0].Fin)
}

func TestAjustarAHorarioLaboral(t *testing.T) {
	cal := NewCalendarioLaboral()

	casos := []struct {
		nombre   string
		entrada  time.Time
		esperado time.Time
	}{
		{"madrugada", fecha(8, 6, 0), fecha(8, 8, 0)},
		{"dentro de jornada", fecha(8, 10, 30), fecha(8, 10, 30)},
		{"colación", fecha(8, 13, 15), fecha(8, 14, 0)},
		{"pasado el cierre", fecha(8, 18, 0), fecha(9, 8, 0)},
		{"viernes pasado el cierre corto", fecha(12, 17, 0), fecha(15, 8, 0)},
		{"domingo", fecha(7, 12, 0), fecha(8, 8, 0)},
	}

	for _, caso := range casos {
		t.Run(caso.nombre, func(t *testing.T) {
			assert.Equal(t, caso.esperado, cal.AjustarAHorarioLaboral(caso.entrada))
		})
	}
}

func TestFinJornadaMasCercano(t *testing.T) {
	cal := NewCalendarioLaboral()

	assert.Equal(t, fecha(8, 17, 30), cal.FinJornadaMasCercano(fecha(8, 15, 0)))
	assert.Equal(t, fecha(12, 16, 30), cal.FinJornadaMasCercano(fecha(12, 10, 0)))
	// Pasado el cierre avanza al cierre del siguiente día laboral.
	assert.Equal(t, fecha(9, 17, 30), cal.FinJornadaMasCercano(fecha(8, 18, 0)))
	// Sábado cae al cierre del lunes.
	assert.Equal(t, fecha(8, 17, 30), cal.FinJornadaMasCercano(fecha(6, 12, 0)))
}
