package scheduler

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"API-PLANIFICACION/internal/models"
)

// programaConTareas arma un programa de una OT de un proceso y deja creadas
// sus tareas fragmentadas.
func programaConTareas(t *testing.T, almacen *AlmacenMemoria, cantidad float64) (*models.ProgramaProduccion, *PlanificadorProduccion) {
	t.Helper()
	programa := armarPrograma(almacen, fecha(8, 8, 0), models.OrdenConPrioridad{
		Orden:     otDePrueba("OT-100", itemDePrueba(1, 1, cantidad, 10)),
		Prioridad: 1,
	})
	planificador := NewPlanificadorProduccion(almacen, nil, zerolog.Nop())
	require.True(t, planificador.CrearTareasFragmentadas(context.Background(), programa.ID))
	return programa, planificador
}

func TestFinalizarDia_ArrastreAFragmentoExistente(t *testing.T) {
	almacen := NewAlmacenMemoria()
	// 100 unidades: 85 el lunes y 15 el martes. El lunes solo se completan 45.
	programa, planificador := programaConTareas(t, almacen, 100)
	ctx := context.Background()

	tareas, err := almacen.TareasDePrograma(ctx, programa.ID)
	require.NoError(t, err)
	require.Len(t, tareas, 2)
	lunes, martes := tareas[0], tareas[1]

	_, err = planificador.ActualizarProgresoTarea(ctx, lunes.ID, 45, "operador1")
	require.NoError(t, err)

	resultado, err := planificador.FinalizarDia(ctx, programa.ID, fecha(8, 0, 0), "supervisor")
	require.NoError(t, err)
	assert.Equal(t, 0, resultado.TareasCompletadas)
	assert.Equal(t, 1, resultado.TareasContinuadas)
	assert.True(t, MismaFecha(resultado.SiguienteDia, fecha(9, 0, 0)))

	// El faltante de 40 se arrastra al fragmento del martes, no nace una
	// tarea nueva.
	despues, err := almacen.TareasDePrograma(ctx, programa.ID)
	require.NoError(t, err)
	require.Len(t, despues, 2)

	cerrada, err := almacen.ObtenerTarea(ctx, lunes.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EstadoTareaContinuada, cerrada.Estado)

	arrastrada, err := almacen.ObtenerTarea(ctx, martes.ID)
	require.NoError(t, err)
	assert.InDelta(t, 15, arrastrada.CantidadAsignada, 1e-6)
	assert.InDelta(t, 40, arrastrada.CantidadPendienteAnterior, 1e-6)

	// Conservación: lo completado más lo por hacer sigue sumando el pedido.
	assert.InDelta(t, 100, cerrada.CantidadCompletada+arrastrada.CantidadTotalDia(), 1e-6)

	// La reorganización del martes reempaqueta las 55 unidades desde la
	// apertura: 50 en la mañana y 5 después de colación.
	assert.Equal(t, fecha(9, 8, 0), arrastrada.FechaInicioPlan)
	assert.Equal(t, fecha(9, 14, 30), arrastrada.FechaFinPlan)

	reporteLunes, err := almacen.ObtenerReporteDiario(ctx, programa.ID, fecha(8, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, models.ReporteCerrado, reporteLunes.Estado)
	assert.Equal(t, "supervisor", reporteLunes.CerradoPor)

	reporteMartes, err := almacen.ObtenerReporteDiario(ctx, programa.ID, fecha(9, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, models.ReporteAbierto, reporteMartes.Estado)

	historiales, err := almacen.HistorialesDePrograma(ctx, programa.ID)
	require.NoError(t, err)
	require.Len(t, historiales, 1)
	historial := historiales[0]
	assert.Equal(t, models.ReajusteDiario, historial.TipoReajuste)
	assert.NotEmpty(t, historial.UUID)
	assert.NotEmpty(t, historial.TimelineAntes)
	assert.NotEmpty(t, historial.TimelineDespues)
	require.Len(t, historial.Cambios, 1)
	assert.Equal(t, models.CambioTareaContinuacion, historial.Cambios[0].Tipo)
	assert.Equal(t, lunes.ID, historial.Cambios[0].TareaID)
	assert.Equal(t, martes.ID, historial.Cambios[0].ContinuacionID)
	assert.InDelta(t, 40, historial.Cambios[0].CantidadArrastrada, 1e-6)
}

func TestFinalizarDia_ContinuacionNueva(t *testing.T) {
	almacen := NewAlmacenMemoria()
	// 50 unidades caben en la mañana del lunes: no hay fragmento el martes.
	programa, planificador := programaConTareas(t, almacen, 50)
	ctx := context.Background()

	tareas, err := almacen.TareasDePrograma(ctx, programa.ID)
	require.NoError(t, err)
	require.Len(t, tareas, 1)
	lunes := tareas[0]

	_, err = planificador.ActualizarProgresoTarea(ctx, lunes.ID, 10, "operador1")
	require.NoError(t, err)

	resultado, err := planificador.FinalizarDia(ctx, programa.ID, fecha(8, 0, 0), "supervisor")
	require.NoError(t, err)
	assert.Equal(t, 1, resultado.TareasContinuadas)

	despues, err := almacen.TareasDePrograma(ctx, programa.ID)
	require.NoError(t, err)
	require.Len(t, despues, 2)

	continuacion := despues[1]
	assert.InDelta(t, 40, continuacion.CantidadAsignada, 1e-6)
	assert.Zero(t, continuacion.CantidadPendienteAnterior)
	assert.Equal(t, lunes.ID, continuacion.TareaPadreID)
	assert.Equal(t, 1, continuacion.NivelFragmentacion)
	assert.True(t, MismaFecha(continuacion.Fecha, fecha(9, 0, 0)))
	assert.Equal(t, fecha(9, 8, 0), continuacion.FechaInicioPlan)
	assert.Equal(t, fecha(9, 12, 0), continuacion.FechaFinPlan)
	assert.Equal(t, models.EstadoTareaPendiente, continuacion.Estado)
}

func TestFinalizarDia_CompletaTareasSinFaltante(t *testing.T) {
	almacen := NewAlmacenMemoria()
	programa, planificador := programaConTareas(t, almacen, 50)
	ctx := context.Background()

	tareas, err := almacen.TareasDePrograma(ctx, programa.ID)
	require.NoError(t, err)
	lunes := tareas[0]
	lunes.Estado = models.EstadoTareaEnProceso
	lunes.CantidadCompletada = 50
	require.NoError(t, almacen.ActualizarTarea(ctx, &lunes))

	resultado, err := planificador.FinalizarDia(ctx, programa.ID, fecha(8, 0, 0), "supervisor")
	require.NoError(t, err)
	assert.Equal(t, 1, resultado.TareasCompletadas)
	assert.Equal(t, 0, resultado.TareasContinuadas)

	cerrada, err := almacen.ObtenerTarea(ctx, lunes.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EstadoTareaCompletada, cerrada.Estado)
	assert.False(t, cerrada.FechaFinReal.IsZero())

	historiales, err := almacen.HistorialesDePrograma(ctx, programa.ID)
	require.NoError(t, err)
	require.Len(t, historiales, 1)
	require.Len(t, historiales[0].Cambios, 1)
	assert.Equal(t, models.CambioTareaCompletada, historiales[0].Cambios[0].Tipo)
}

func TestFinalizarDia_DiaYaCerrado(t *testing.T) {
	almacen := NewAlmacenMemoria()
	programa, planificador := programaConTareas(t, almacen, 50)
	ctx := context.Background()

	_, err := planificador.FinalizarDia(ctx, programa.ID, fecha(8, 0, 0), "supervisor")
	require.NoError(t, err)

	_, err = planificador.FinalizarDia(ctx, programa.ID, fecha(8, 0, 0), "supervisor")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDiaYaCerrado)
}

func TestFinalizarDia_HistorialDiarioBloqueaReintento(t *testing.T) {
	almacen := NewAlmacenMemoria()
	programa := armarPrograma(almacen, fecha(8, 8, 0))
	planificador := NewPlanificadorProduccion(almacen, nil, zerolog.Nop())
	ctx := context.Background()

	// Quedó un historial DIARIO de un cierre anterior aunque el reporte no
	// llegó a cerrarse: el reintento directo se rechaza.
	require.NoError(t, almacen.CrearHistorial(ctx, &models.HistorialPlanificacion{
		ProgramaID:      programa.ID,
		FechaReferencia: fecha(8, 0, 0),
		TipoReajuste:    models.ReajusteDiario,
	}))

	_, err := planificador.FinalizarDia(ctx, programa.ID, fecha(8, 0, 0), "supervisor")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHistorialDuplicado)
}

func TestFinalizarDia_FalloEliminaHistorial(t *testing.T) {
	almacen := NewAlmacenMemoria()
	programa := armarPrograma(almacen, fecha(8, 8, 0))
	planificador := NewPlanificadorProduccion(almacen, nil, zerolog.Nop())
	ctx := context.Background()

	// Tarea huérfana: su proceso de origen no existe, así que el cierre falla
	// al intentar continuarla.
	require.NoError(t, almacen.CrearTarea(ctx, &models.TareaFragmentada{
		ProgramaID:       programa.ID,
		TareaOriginalID:  9999,
		Fecha:            fecha(8, 0, 0),
		CantidadAsignada: 10,
		Estado:           models.EstadoTareaPendiente,
	}))

	_, err := planificador.FinalizarDia(ctx, programa.ID, fecha(8, 0, 0), "supervisor")
	require.Error(t, err)

	// Acción compensatoria: el historial del intento fallido no queda, y el
	// día sigue abierto para reintentar.
	historiales, err := almacen.HistorialesDePrograma(ctx, programa.ID)
	require.NoError(t, err)
	assert.Empty(t, historiales)

	existe, err := almacen.ExisteHistorialDiario(ctx, programa.ID, fecha(8, 0, 0))
	require.NoError(t, err)
	assert.False(t, existe)
}

func TestFinalizarDia_ViernesContinuaElLunes(t *testing.T) {
	almacen := NewAlmacenMemoria()
	programa := armarPrograma(almacen, fecha(12, 8, 0), models.OrdenConPrioridad{
		Orden:     otDePrueba("OT-100", itemDePrueba(1, 1, 40, 10)),
		Prioridad: 1,
	})
	planificador := NewPlanificadorProduccion(almacen, nil, zerolog.Nop())
	ctx := context.Background()
	require.True(t, planificador.CrearTareasFragmentadas(ctx, programa.ID))

	tareas, err := almacen.TareasDePrograma(ctx, programa.ID)
	require.NoError(t, err)
	require.Len(t, tareas, 1)

	_, err = planificador.ActualizarProgresoTarea(ctx, tareas[0].ID, 15, "operador1")
	require.NoError(t, err)

	resultado, err := planificador.FinalizarDia(ctx, programa.ID, fecha(12, 0, 0), "supervisor")
	require.NoError(t, err)
	// El siguiente día laboral de un viernes es el lunes.
	assert.True(t, MismaFecha(resultado.SiguienteDia, fecha(15, 0, 0)))

	despues, err := almacen.TareasDePrograma(ctx, programa.ID)
	require.NoError(t, err)
	require.Len(t, despues, 2)
	assert.True(t, MismaFecha(despues[1].Fecha, fecha(15, 0, 0)))
	assert.Equal(t, fecha(15, 8, 0), despues[1].FechaInicioPlan)
}
