package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodoDePrueba(t *testing.T, calc *CalculadoraTiempo, id, maquina, prioridad int, cantidad, estandar float64, inicio time.Time) *NodoProceso {
	t.Helper()
	nodo, err := NewNodoProceso(calc, NodoProceso{
		ItemRutaID: id,
		MaquinaID:  maquina,
		Prioridad:  prioridad,
		Cantidad:   cantidad,
		Estandar:   estandar,
	}, inicio)
	require.NoError(t, err)
	return nodo
}

func TestPropagarAjuste_ContencionDeMaquina(t *testing.T) {
	calc := NewCalculadoraTiempo()
	inicio := fecha(8, 8, 0)

	// Dos procesos compiten por la máquina 1. El prioritario produce 20
	// unidades a 10 u/h (termina 10:00); con 30 minutos de setup el segundo
	// queda corrido a las 10:30.
	a := nodoDePrueba(t, calc, 1, 1, 1, 20, 10, inicio)
	b := nodoDePrueba(t, calc, 2, 1, 2, 10, 10, inicio)
	porMaquina := map[int][]*NodoProceso{1: {a, b}}

	require.NoError(t, a.PropagarAjuste(TiempoSetupDefecto, porMaquina))

	assert.Equal(t, fecha(8, 10, 0), a.FechaFin)
	assert.Equal(t, fecha(8, 10, 30), b.FechaInicio)
	assert.Equal(t, fecha(8, 11, 30), b.FechaFin)
}

func TestPropagarAjuste_CadenaDeSucesores(t *testing.T) {
	calc := NewCalculadoraTiempo()
	inicio := fecha(8, 8, 0)

	// Ruta de tres procesos en máquinas distintas, todos anclados a las
	// 08:00. La propagación debe encadenarlos con el setup entre medio.
	p1 := nodoDePrueba(t, calc, 1, 1, 1, 20, 10, inicio) // termina 10:00
	p2 := nodoDePrueba(t, calc, 2, 2, 1, 10, 10, inicio)
	p3 := nodoDePrueba(t, calc, 3, 3, 1, 10, 10, inicio)
	p1.SiguienteProceso = p2
	p2.SiguienteProceso = p3
	porMaquina := map[int][]*NodoProceso{1: {p1}, 2: {p2}, 3: {p3}}

	require.NoError(t, p1.PropagarAjuste(TiempoSetupDefecto, porMaquina))

	assert.Equal(t, fecha(8, 10, 30), p2.FechaInicio)
	assert.Equal(t, fecha(8, 11, 30), p2.FechaFin)
	assert.Equal(t, fecha(8, 12, 0), p3.FechaInicio)
	assert.Equal(t, fecha(8, 13, 0), p3.FechaFin)
}

func TestPropagarAjuste_SucesorMasTardioNoRetrocede(t *testing.T) {
	calc := NewCalculadoraTiempo()

	p1 := nodoDePrueba(t, calc, 1, 1, 1, 10, 10, fecha(8, 8, 0)) // termina 09:00
	p2 := nodoDePrueba(t, calc, 2, 2, 1, 10, 10, fecha(8, 15, 0))
	p1.SiguienteProceso = p2
	porMaquina := map[int][]*NodoProceso{1: {p1}, 2: {p2}}

	require.NoError(t, p1.PropagarAjuste(TiempoSetupDefecto, porMaquina))

	// El sucesor ya partía después del mínimo exigido: no se mueve.
	assert.Equal(t, fecha(8, 15, 0), p2.FechaInicio)
}

func TestPropagarAjuste_Idempotente(t *testing.T) {
	calc := NewCalculadoraTiempo()
	inicio := fecha(8, 8, 0)

	a := nodoDePrueba(t, calc, 1, 1, 1, 20, 10, inicio)
	b := nodoDePrueba(t, calc, 2, 1, 2, 15, 10, inicio)
	c := nodoDePrueba(t, calc, 3, 2, 1, 10, 10, inicio)
	b.SiguienteProceso = c
	porMaquina := map[int][]*NodoProceso{1: {a, b}, 2: {c}}

	require.NoError(t, a.PropagarAjuste(TiempoSetupDefecto, porMaquina))
	fijadas := []time.Time{a.FechaInicio, a.FechaFin, b.FechaInicio, b.FechaFin, c.FechaInicio, c.FechaFin}

	require.NoError(t, a.PropagarAjuste(TiempoSetupDefecto, porMaquina))
	assert.Equal(t, fijadas, []time.Time{a.FechaInicio, a.FechaFin, b.FechaInicio, b.FechaFin, c.FechaInicio, c.FechaFin})
}

func TestPropagarAjuste_SinSolapesEnMaquina(t *testing.T) {
	calc := NewCalculadoraTiempo()
	inicio := fecha(8, 8, 0)

	var nodos []*NodoProceso
	for i := 0; i < 5; i++ {
		nodos = append(nodos, nodoDePrueba(t, calc, i+1, 7, i+1, 25, 10, inicio))
	}
	porMaquina := map[int][]*NodoProceso{7: nodos}

	require.NoError(t, nodos[0].PropagarAjuste(TiempoSetupDefecto, porMaquina))

	lista := OrdenarListaMaquina(nodos)
	for i := 1; i < len(lista); i++ {
		minimo := lista[i-1].FechaFin.Add(TiempoSetupDefecto)
		assert.False(t, lista[i].FechaInicio.Before(minimo),
			"nodo %d parte %s antes del mínimo %s", lista[i].ItemRutaID, lista[i].FechaInicio, minimo)
	}
}

func TestPropagarAjuste_ListaConDuplicadoNoCicla(t *testing.T) {
	calc := NewCalculadoraTiempo()
	inicio := fecha(8, 8, 0)

	a := nodoDePrueba(t, calc, 1, 1, 1, 10, 10, inicio)
	b := nodoDePrueba(t, calc, 2, 1, 2, 10, 10, inicio)
	porMaquina := map[int][]*NodoProceso{1: {a, b, a}}

	require.NoError(t, a.PropagarAjuste(TiempoSetupDefecto, porMaquina))
	assert.Equal(t, fecha(8, 9, 30), b.FechaInicio)
}

func TestOrdenarListaMaquina(t *testing.T) {
	calc := NewCalculadoraTiempo()

	a := nodoDePrueba(t, calc, 3, 1, 2, 10, 10, fecha(8, 8, 0))
	b := nodoDePrueba(t, calc, 1, 1, 1, 10, 10, fecha(8, 14, 0))
	c := nodoDePrueba(t, calc, 2, 1, 1, 10, 10, fecha(8, 14, 0))

	lista := OrdenarListaMaquina([]*NodoProceso{a, b, c})
	require.Len(t, lista, 3)
	// Prioridad manda sobre la fecha; a igual prioridad y fecha desempata el ID.
	assert.Equal(t, []int{1, 2, 3}, []int{lista[0].ItemRutaID, lista[1].ItemRutaID, lista[2].ItemRutaID})
}
