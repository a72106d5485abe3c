package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ahora = time.Date(2024, time.January, 8, 10, 0, 0, 0, time.Local)

func TestActualizarProgreso_Transiciones(t *testing.T) {
	tarea := &TareaFragmentada{ID: 1, CantidadAsignada: 80, CantidadPendienteAnterior: 20, Estado: EstadoTareaPendiente}

	require.NoError(t, tarea.ActualizarProgreso(30, "operador1", ahora))
	assert.Equal(t, EstadoTareaEnProceso, tarea.Estado)
	assert.Equal(t, ahora, tarea.FechaInicioReal)
	assert.InDelta(t, 70, tarea.CantidadPendiente(), 1e-9)
	assert.InDelta(t, 30, tarea.PorcentajeCompletado(), 1e-9)

	require.NoError(t, tarea.ActualizarProgreso(100, "operador1", ahora))
	assert.Equal(t, EstadoTareaCompletada, tarea.Estado)
	assert.Equal(t, ahora, tarea.FechaFinReal)
	assert.Zero(t, tarea.CantidadPendiente())
}

func TestActualizarProgreso_Rechazos(t *testing.T) {
	tarea := &TareaFragmentada{ID: 1, CantidadAsignada: 50, Estado: EstadoTareaPendiente}
	require.Error(t, tarea.ActualizarProgreso(-1, "operador1", ahora))

	detenida := &TareaFragmentada{ID: 2, CantidadAsignada: 50, Estado: EstadoTareaDetenida}
	require.Error(t, detenida.ActualizarProgreso(10, "operador1", ahora))
}

func TestActualizarProgreso_RecortaAlTotal(t *testing.T) {
	tarea := &TareaFragmentada{ID: 1, CantidadAsignada: 50, Estado: EstadoTareaPendiente}

	require.NoError(t, tarea.ActualizarProgreso(70, "operador1", ahora))
	assert.InDelta(t, 50, tarea.CantidadCompletada, 1e-9)

	require.NotEmpty(t, tarea.HistorialCambios)
	assert.Equal(t, CambioClampCantidad, tarea.HistorialCambios[0].Tipo)
}

func TestRegistrarCambio_TruncaElHistorial(t *testing.T) {
	tarea := &TareaFragmentada{ID: 1}
	for i := 0; i < MaxEntradasHistorial+20; i++ {
		tarea.RegistrarCambio(EntradaHistorial{Tipo: CambioProgreso, Detalle: fmt.Sprintf("avance %d", i)})
	}

	require.Len(t, tarea.HistorialCambios, MaxEntradasHistorial)
	// Sobreviven las entradas más recientes.
	assert.Equal(t, "avance 69", tarea.HistorialCambios[MaxEntradasHistorial-1].Detalle)
	assert.Equal(t, "avance 20", tarea.HistorialCambios[0].Detalle)
}

func TestCantidadAsignadaOriginal(t *testing.T) {
	raiz := &TareaFragmentada{ID: 1, CantidadAsignada: 100}
	hija := &TareaFragmentada{ID: 2, CantidadAsignada: 40, TareaPadreID: 1, NivelFragmentacion: 1}
	nieta := &TareaFragmentada{ID: 3, CantidadAsignada: 15, TareaPadreID: 2, NivelFragmentacion: 2}
	tareas := map[int]*TareaFragmentada{1: raiz, 2: hija, 3: nieta}
	buscar := func(id int) *TareaFragmentada { return tareas[id] }

	original, err := CantidadAsignadaOriginal(nieta, buscar)
	require.NoError(t, err)
	assert.InDelta(t, 100, original, 1e-9)

	// Padre inexistente.
	huerfana := &TareaFragmentada{ID: 4, TareaPadreID: 99}
	_, err = CantidadAsignadaOriginal(huerfana, buscar)
	require.Error(t, err)

	// Un ciclo en los enlaces termina por la cota de niveles.
	raiz.TareaPadreID = 3
	_, err = CantidadAsignadaOriginal(nieta, buscar)
	require.Error(t, err)
}

func TestMarcarContinuada(t *testing.T) {
	tarea := &TareaFragmentada{ID: 1, Estado: EstadoTareaEnProceso}
	tarea.MarcarContinuada(7, "supervisor", ahora)

	assert.Equal(t, EstadoTareaContinuada, tarea.Estado)
	require.NotEmpty(t, tarea.HistorialCambios)
	ultima := tarea.HistorialCambios[len(tarea.HistorialCambios)-1]
	assert.Equal(t, CambioContinuacion, ultima.Tipo)
	assert.Equal(t, EstadoTareaEnProceso, ultima.EstadoAnt)
}

func TestReporteDiario_Cerrar(t *testing.T) {
	reporte := &ReporteDiarioPrograma{ProgramaID: 1, Fecha: ahora, Estado: ReporteAbierto}

	require.NoError(t, reporte.Cerrar("supervisor", ahora))
	assert.True(t, reporte.EstaCerrado())
	assert.Equal(t, "supervisor", reporte.CerradoPor)

	require.Error(t, reporte.Cerrar("otro", ahora))
}

func TestReporteDiario_Bloqueo(t *testing.T) {
	reporte := &ReporteDiarioPrograma{ProgramaID: 1, Fecha: ahora, Estado: ReporteAbierto}

	require.NoError(t, reporte.AdquirirBloqueo("supervisor", ahora, 0))
	assert.Equal(t, ahora.Add(BloqueoDuracionDefecto), reporte.BloqueoHasta)

	// Otro usuario no puede tomarlo mientras está vigente.
	require.Error(t, reporte.AdquirirBloqueo("otro", ahora.Add(time.Minute), 0))
	// El dueño puede renovarlo.
	require.NoError(t, reporte.AdquirirBloqueo("supervisor", ahora.Add(time.Minute), 0))
	// Vencido, cualquiera lo toma.
	require.NoError(t, reporte.AdquirirBloqueo("otro", ahora.Add(time.Hour), 0))

	reporte.LiberarBloqueo("supervisor")
	assert.Equal(t, "otro", reporte.BloqueadoPor, "liberar con otro usuario no suelta el bloqueo ajeno")
	reporte.LiberarBloqueo("otro")
	assert.Empty(t, reporte.BloqueadoPor)
}

func TestOrdenTrabajo_Planificable(t *testing.T) {
	casos := map[string]bool{
		SituacionPendiente:   true,
		SituacionSinImprimir: true,
		SituacionTerminada:   false,
		SituacionCancelada:   false,
		SituacionAnulada:     false,
	}
	for situacion, esperado := range casos {
		ot := &OrdenTrabajo{Situacion: situacion}
		assert.Equal(t, esperado, ot.EsPlanificable(), "situación %s", situacion)
	}
}

func TestItemRuta_Validar(t *testing.T) {
	valido := &ItemRuta{Item: 1, CodigoProceso: "PR1", MaquinaID: 3, Estandar: 10, CantidadPedida: 50}
	require.NoError(t, valido.Validar())

	sinEstandar := &ItemRuta{Item: 1, MaquinaID: 3, CantidadPedida: 50}
	require.Error(t, sinEstandar.Validar())

	sinMaquina := &ItemRuta{Item: 1, Estandar: 10, CantidadPedida: 50}
	require.Error(t, sinMaquina.Validar())

	sinCantidad := &ItemRuta{Item: 1, MaquinaID: 3, Estandar: 10}
	require.Error(t, sinCantidad.Validar())
}

func TestOrdenarPorPrioridad(t *testing.T) {
	ordenes := []OrdenConPrioridad{
		{Orden: &OrdenTrabajo{ID: 3}, Prioridad: 2},
		{Orden: &OrdenTrabajo{ID: 2}, Prioridad: 1},
		{Orden: &OrdenTrabajo{ID: 1}, Prioridad: 1},
	}
	ordenadas := OrdenarPorPrioridad(ordenes)
	assert.Equal(t, []int{1, 2, 3}, []int{ordenadas[0].Orden.ID, ordenadas[1].Orden.ID, ordenadas[2].Orden.ID})
}
