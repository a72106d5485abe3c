package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"API-PLANIFICACION/internal/models"
)

func TestActualizarProgresoTarea_ProyectaAlProceso(t *testing.T) {
	almacen := NewAlmacenMemoria()
	programa, planificador := programaConTareas(t, almacen, 50)
	ctx := context.Background()

	tareas, err := almacen.TareasDePrograma(ctx, programa.ID)
	require.NoError(t, err)
	require.Len(t, tareas, 1)

	actualizada, err := planificador.ActualizarProgresoTarea(ctx, tareas[0].ID, 20, "operador1")
	require.NoError(t, err)
	assert.Equal(t, models.EstadoTareaEnProceso, actualizada.Estado)
	assert.InDelta(t, 20, actualizada.CantidadCompletada, 1e-6)
	assert.False(t, actualizada.FechaInicioReal.IsZero())

	// El terminado del proceso es la suma de sus fragmentos.
	item, err := almacen.ObtenerItemRuta(ctx, tareas[0].TareaOriginalID)
	require.NoError(t, err)
	assert.InDelta(t, 20, item.CantidadTerminada, 1e-6)
	assert.Equal(t, models.EstadoProcesoEnProceso, item.Estado)
}

func TestActualizarProgresoTarea_UltimoProcesoCascadeaALaOT(t *testing.T) {
	almacen := NewAlmacenMemoria()
	programa, planificador := programaConTareas(t, almacen, 50)
	ctx := context.Background()

	tareas, err := almacen.TareasDePrograma(ctx, programa.ID)
	require.NoError(t, err)

	actualizada, err := planificador.ActualizarProgresoTarea(ctx, tareas[0].ID, 50, "operador1")
	require.NoError(t, err)
	assert.Equal(t, models.EstadoTareaCompletada, actualizada.Estado)

	item, err := almacen.ObtenerItemRuta(ctx, tareas[0].TareaOriginalID)
	require.NoError(t, err)
	assert.Equal(t, models.EstadoProcesoCompletado, item.Estado)

	orden, err := almacen.ObtenerOrdenTrabajo(ctx, tareas[0].OrdenTrabajoID)
	require.NoError(t, err)
	assert.InDelta(t, 50, orden.CantidadAvance, 1e-6)
}

func TestActualizarProgresoTarea_RechazaNegativos(t *testing.T) {
	almacen := NewAlmacenMemoria()
	programa, planificador := programaConTareas(t, almacen, 50)
	ctx := context.Background()

	tareas, err := almacen.TareasDePrograma(ctx, programa.ID)
	require.NoError(t, err)

	_, err = planificador.ActualizarProgresoTarea(ctx, tareas[0].ID, -5, "operador1")
	require.Error(t, err)

	// Nada cambió en el almacén.
	intacta, err := almacen.ObtenerTarea(ctx, tareas[0].ID)
	require.NoError(t, err)
	assert.Zero(t, intacta.CantidadCompletada)
	assert.Equal(t, models.EstadoTareaPendiente, intacta.Estado)
}

func TestActualizarProgresoTarea_RecortaSobreElTotal(t *testing.T) {
	almacen := NewAlmacenMemoria()
	programa, planificador := programaConTareas(t, almacen, 50)
	ctx := context.Background()

	tareas, err := almacen.TareasDePrograma(ctx, programa.ID)
	require.NoError(t, err)

	actualizada, err := planificador.ActualizarProgresoTarea(ctx, tareas[0].ID, 80, "operador1")
	require.NoError(t, err)
	assert.InDelta(t, 50, actualizada.CantidadCompletada, 1e-6)

	var recorte bool
	for _, entrada := range actualizada.HistorialCambios {
		if entrada.Tipo == models.CambioClampCantidad {
			recorte = true
		}
	}
	assert.True(t, recorte, "el recorte debe quedar en el historial de la tarea")
}

func TestCrearContinuacionManual(t *testing.T) {
	almacen := NewAlmacenMemoria()
	programa, planificador := programaConTareas(t, almacen, 50)
	ctx := context.Background()

	tareas, err := almacen.TareasDePrograma(ctx, programa.ID)
	require.NoError(t, err)
	lunes := tareas[0]

	_, err = planificador.ActualizarProgresoTarea(ctx, lunes.ID, 30, "operador1")
	require.NoError(t, err)

	continuacion, err := planificador.CrearContinuacion(ctx, lunes.ID, "supervisor")
	require.NoError(t, err)
	assert.InDelta(t, 20, continuacion.CantidadAsignada, 1e-6)
	assert.Equal(t, lunes.ID, continuacion.TareaPadreID)
	assert.True(t, MismaFecha(continuacion.Fecha, fecha(9, 0, 0)))

	original, err := almacen.ObtenerTarea(ctx, lunes.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EstadoTareaContinuada, original.Estado)
}

func TestCrearContinuacion_HistorialConservaAsignacionRaiz(t *testing.T) {
	almacen := NewAlmacenMemoria()
	programa, planificador := programaConTareas(t, almacen, 50)
	ctx := context.Background()

	tareas, err := almacen.TareasDePrograma(ctx, programa.ID)
	require.NoError(t, err)
	lunes := tareas[0]

	_, err = planificador.ActualizarProgresoTarea(ctx, lunes.ID, 30, "operador1")
	require.NoError(t, err)
	martes, err := planificador.CrearContinuacion(ctx, lunes.ID, "supervisor")
	require.NoError(t, err)

	// Dos niveles de cadena: la continuación de la continuación sigue
	// reportando la asignación de la tarea raíz, no la de su padre directo.
	_, err = planificador.ActualizarProgresoTarea(ctx, martes.ID, 5, "operador1")
	require.NoError(t, err)
	miercoles, err := planificador.CrearContinuacion(ctx, martes.ID, "supervisor")
	require.NoError(t, err)
	assert.Equal(t, 2, miercoles.NivelFragmentacion)

	var detalle string
	for _, entrada := range miercoles.HistorialCambios {
		if entrada.Tipo == models.CambioContinuacion {
			detalle = entrada.Detalle
		}
	}
	assert.Contains(t, detalle, "asignación raíz 50.00")
}

func TestCrearContinuacion_SinFaltante(t *testing.T) {
	almacen := NewAlmacenMemoria()
	programa, planificador := programaConTareas(t, almacen, 50)
	ctx := context.Background()

	tareas, err := almacen.TareasDePrograma(ctx, programa.ID)
	require.NoError(t, err)

	_, err = planificador.ActualizarProgresoTarea(ctx, tareas[0].ID, 50, "operador1")
	require.NoError(t, err)

	_, err = planificador.CrearContinuacion(ctx, tareas[0].ID, "supervisor")
	require.Error(t, err)
}

func TestActualizarTiempoRealTarea(t *testing.T) {
	almacen := NewAlmacenMemoria()
	programa, planificador := programaConTareas(t, almacen, 50)
	ctx := context.Background()

	tareas, err := almacen.TareasDePrograma(ctx, programa.ID)
	require.NoError(t, err)

	actualizada, err := planificador.ActualizarTiempoRealTarea(ctx, tareas[0].ID, fecha(8, 8, 15), fecha(8, 12, 40), "operador1")
	require.NoError(t, err)
	assert.Equal(t, fecha(8, 8, 15), actualizada.FechaInicioReal)
	assert.Equal(t, fecha(8, 12, 40), actualizada.FechaFinReal)

	// Fin anterior al inicio se rechaza.
	_, err = planificador.ActualizarTiempoRealTarea(ctx, tareas[0].ID, fecha(8, 12, 0), fecha(8, 9, 0), "operador1")
	require.Error(t, err)
}
