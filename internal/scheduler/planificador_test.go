package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"API-PLANIFICACION/internal/models"
)

func otDePrueba(codigo string, items ...models.ItemRuta) *models.OrdenTrabajo {
	total := 0.0
	for _, it := range items {
		if it.CantidadPedida > total {
			total = it.CantidadPedida
		}
	}
	return &models.OrdenTrabajo{
		CodigoOT:       codigo,
		Descripcion:    "Producto " + codigo,
		CantidadPedida: total,
		Situacion:      models.SituacionPendiente,
		Ruta:           &models.RutaOT{Items: items},
	}
}

func itemDePrueba(item, maquina int, cantidad, estandar float64) models.ItemRuta {
	return models.ItemRuta{
		Item:           item,
		CodigoProceso:  "PR" + string(rune('0'+item)),
		MaquinaID:      maquina,
		Estandar:       estandar,
		CantidadPedida: cantidad,
		Estado:         models.EstadoProcesoPendiente,
	}
}

func armarPrograma(almacen *AlmacenMemoria, inicio time.Time, ordenes ...models.OrdenConPrioridad) *models.ProgramaProduccion {
	programa := &models.ProgramaProduccion{Nombre: "Programa de prueba", FechaInicio: inicio}
	almacen.CargarPrograma(programa, ordenes)
	return programa
}

func TestGenerarTimeline_ProgramaSimple(t *testing.T) {
	almacen := NewAlmacenMemoria()
	programa := armarPrograma(almacen, fecha(8, 8, 0), models.OrdenConPrioridad{
		Orden:     otDePrueba("OT-1001", itemDePrueba(1, 1, 100, 10), itemDePrueba(2, 2, 100, 20)),
		Prioridad: 1,
	})
	planificador := NewPlanificadorProduccion(almacen, nil, zerolog.Nop())

	timeline, err := planificador.GenerarTimeline(context.Background(), programa.ID, nil)
	require.NoError(t, err)

	require.Len(t, timeline.Groups, 1)
	assert.Equal(t, "OT-1001", timeline.Groups[0].OrdenTrabajoCodigoOT)
	assert.Len(t, timeline.Groups[0].Procesos, 2)

	require.NotEmpty(t, timeline.Items)
	assert.Equal(t, "2024-01-08 08:00:00", timeline.Items[0].FechaInicio)

	// Todo es plan base, no hay fragmentos aún.
	for _, item := range timeline.Items {
		assert.False(t, item.EsFragmento)
	}
}

func TestGenerarTimeline_OrdenNoPlanificableSeOmite(t *testing.T) {
	almacen := NewAlmacenMemoria()
	terminada := otDePrueba("OT-2001", itemDePrueba(1, 1, 50, 10))
	terminada.Situacion = models.SituacionTerminada
	programa := armarPrograma(almacen, fecha(8, 8, 0),
		models.OrdenConPrioridad{Orden: otDePrueba("OT-2000", itemDePrueba(1, 1, 50, 10)), Prioridad: 1},
		models.OrdenConPrioridad{Orden: terminada, Prioridad: 2},
	)
	planificador := NewPlanificadorProduccion(almacen, nil, zerolog.Nop())

	timeline, err := planificador.GenerarTimeline(context.Background(), programa.ID, nil)
	require.NoError(t, err)

	require.Len(t, timeline.Groups, 1)
	assert.Equal(t, "OT-2000", timeline.Groups[0].OrdenTrabajoCodigoOT)
}

func TestGenerarTimeline_ContencionEntreOrdenes(t *testing.T) {
	almacen := NewAlmacenMemoria()
	// Dos órdenes disputan la máquina 1. La prioritaria produce 20 unidades a
	// 10 u/h (08:00 a 10:00); la segunda queda corrida a las 10:30.
	programa := armarPrograma(almacen, fecha(8, 8, 0),
		models.OrdenConPrioridad{Orden: otDePrueba("OT-A", itemDePrueba(1, 1, 20, 10)), Prioridad: 1},
		models.OrdenConPrioridad{Orden: otDePrueba("OT-B", itemDePrueba(1, 1, 10, 10)), Prioridad: 2},
	)
	planificador := NewPlanificadorProduccion(almacen, nil, zerolog.Nop())

	ctx := context.Background()
	timeline, err := planificador.GenerarTimeline(ctx, programa.ID, nil)
	require.NoError(t, err)

	ordenes, err := almacen.OrdenesDePrograma(ctx, programa.ID)
	require.NoError(t, err)
	var ordenB int
	for _, oc := range ordenes {
		if oc.Orden.CodigoOT == "OT-B" {
			ordenB = oc.Orden.ID
		}
	}
	require.NotZero(t, ordenB)

	var inicioB string
	for _, item := range timeline.Items {
		if item.OTID == ordenB {
			inicioB = item.FechaInicio
			break
		}
	}
	assert.Equal(t, "2024-01-08 10:30:00", inicioB)
}

func TestGenerarTimeline_ProcesoSinEstandarNoSeAgenda(t *testing.T) {
	almacen := NewAlmacenMemoria()
	programa := armarPrograma(almacen, fecha(8, 8, 0), models.OrdenConPrioridad{
		Orden:     otDePrueba("OT-3000", itemDePrueba(1, 1, 50, 10), itemDePrueba(2, 2, 50, 0)),
		Prioridad: 1,
	})
	planificador := NewPlanificadorProduccion(almacen, nil, zerolog.Nop())

	timeline, err := planificador.GenerarTimeline(context.Background(), programa.ID, nil)
	require.NoError(t, err)

	// El proceso sin estándar aparece como metadato del grupo pero sin bloques.
	require.Len(t, timeline.Groups, 1)
	assert.Len(t, timeline.Groups[0].Procesos, 2)
	for _, item := range timeline.Items {
		assert.NotEqual(t, 2, itemDeProceso(t, timeline.Groups[0], item.ProcesoID))
	}
}

// itemDeProceso resuelve el número de item de ruta al que pertenece un bloque.
func itemDeProceso(t *testing.T, grupo GrupoTimeline, procesoID string) int {
	t.Helper()
	for _, p := range grupo.Procesos {
		if p.ID == procesoID {
			return p.Item
		}
	}
	return 0
}

func TestCrearTareasFragmentadas_UnaTareaPorDia(t *testing.T) {
	almacen := NewAlmacenMemoria()
	// 100 unidades a 10 u/h desde el lunes: 85 el lunes, 15 el martes.
	programa := armarPrograma(almacen, fecha(8, 8, 0), models.OrdenConPrioridad{
		Orden:     otDePrueba("OT-4000", itemDePrueba(1, 1, 100, 10)),
		Prioridad: 1,
	})
	planificador := NewPlanificadorProduccion(almacen, nil, zerolog.Nop())
	ctx := context.Background()

	require.True(t, planificador.CrearTareasFragmentadas(ctx, programa.ID))

	tareas, err := almacen.TareasDePrograma(ctx, programa.ID)
	require.NoError(t, err)
	require.Len(t, tareas, 2)

	assert.True(t, MismaFecha(tareas[0].Fecha, fecha(8, 0, 0)))
	assert.InDelta(t, 85, tareas[0].CantidadAsignada, 1e-6)
	assert.Equal(t, fecha(8, 8, 0), tareas[0].FechaInicioPlan)
	assert.Equal(t, fecha(8, 17, 30), tareas[0].FechaFinPlan)
	assert.Equal(t, models.EstadoTareaPendiente, tareas[0].Estado)

	assert.True(t, MismaFecha(tareas[1].Fecha, fecha(9, 0, 0)))
	assert.InDelta(t, 15, tareas[1].CantidadAsignada, 1e-6)
	assert.Equal(t, fecha(9, 9, 30), tareas[1].FechaFinPlan)

	// El primer día del programa queda con su reporte abierto.
	reporte, err := almacen.ObtenerReporteDiario(ctx, programa.ID, fecha(8, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, models.ReporteAbierto, reporte.Estado)
}

func TestCrearTareasFragmentadas_ProcesoInvalidoRechazaElLote(t *testing.T) {
	almacen := NewAlmacenMemoria()
	invalido := itemDePrueba(2, 0, 50, 10) // sin máquina asignada
	programa := armarPrograma(almacen, fecha(8, 8, 0), models.OrdenConPrioridad{
		Orden:     otDePrueba("OT-5000", itemDePrueba(1, 1, 50, 10), invalido),
		Prioridad: 1,
	})
	planificador := NewPlanificadorProduccion(almacen, nil, zerolog.Nop())
	ctx := context.Background()

	assert.False(t, planificador.CrearTareasFragmentadas(ctx, programa.ID))

	// Nada quedó a medias: ni siquiera las tareas del proceso válido.
	tareas, err := almacen.TareasDePrograma(ctx, programa.ID)
	require.NoError(t, err)
	assert.Empty(t, tareas)
}

func TestCrearTareasFragmentadas_RegenerarReemplazaElPlan(t *testing.T) {
	almacen := NewAlmacenMemoria()
	programa := armarPrograma(almacen, fecha(8, 8, 0), models.OrdenConPrioridad{
		Orden:     otDePrueba("OT-4100", itemDePrueba(1, 1, 100, 10)),
		Prioridad: 1,
	})
	planificador := NewPlanificadorProduccion(almacen, nil, zerolog.Nop())
	ctx := context.Background()

	require.True(t, planificador.CrearTareasFragmentadas(ctx, programa.ID))
	require.True(t, planificador.CrearTareasFragmentadas(ctx, programa.ID))

	// Regenerar reemplaza los fragmentos anteriores, no los acumula: sigue
	// habiendo una tarea por día y por proceso.
	tareas, err := almacen.TareasDePrograma(ctx, programa.ID)
	require.NoError(t, err)
	require.Len(t, tareas, 2)
	assert.InDelta(t, 85, tareas[0].CantidadAsignada, 1e-6)
	assert.InDelta(t, 15, tareas[1].CantidadAsignada, 1e-6)
}

// disponibilidadFija es un oráculo de prueba: la máquina está ocupada hasta un
// instante fijo y libre después.
type disponibilidadFija struct {
	libreDesde time.Time
}

func (d disponibilidadFija) VerificarConflicto(_ context.Context, _ int, inicio, _ time.Time, _ int) (*ResultadoConflicto, error) {
	if inicio.Before(d.libreDesde) {
		return &ResultadoConflicto{TieneConflicto: true, FechaDisponible: d.libreDesde}, nil
	}
	return &ResultadoConflicto{FechaDisponible: inicio}, nil
}

func (d disponibilidadFija) CargaMaquina(context.Context, int, time.Time, time.Time) (float64, error) {
	return 0, nil
}

func TestGenerarTimeline_OraculoCorreElInicio(t *testing.T) {
	almacen := NewAlmacenMemoria()
	programa := armarPrograma(almacen, fecha(8, 8, 0), models.OrdenConPrioridad{
		Orden:     otDePrueba("OT-7000", itemDePrueba(1, 1, 20, 10)),
		Prioridad: 1,
	})
	planificador := NewPlanificadorProduccion(almacen, disponibilidadFija{libreDesde: fecha(8, 10, 0)}, zerolog.Nop())

	timeline, err := planificador.GenerarTimeline(context.Background(), programa.ID, nil)
	require.NoError(t, err)

	require.NotEmpty(t, timeline.Items)
	assert.Equal(t, "2024-01-08 10:00:00", timeline.Items[0].FechaInicio)
}

func TestGenerarTimeline_FragmentosPropiosNoCorrenElPlan(t *testing.T) {
	almacen := NewAlmacenMemoria()
	// 50 unidades a 10 u/h: un solo fragmento de 08:00 a 13:00.
	programa := armarPrograma(almacen, fecha(8, 8, 0), models.OrdenConPrioridad{
		Orden:     otDePrueba("OT-8000", itemDePrueba(1, 1, 50, 10)),
		Prioridad: 1,
	})
	planificador := NewPlanificadorProduccion(almacen, NewDisponibilidadTareas(almacen, programa.ID), zerolog.Nop())
	ctx := context.Background()

	require.True(t, planificador.CrearTareasFragmentadas(ctx, programa.ID))

	// El plan ya persistido no compite consigo mismo: regenerar el timeline
	// mantiene el mismo inicio, todas las veces.
	for i := 0; i < 3; i++ {
		timeline, err := planificador.GenerarTimeline(ctx, programa.ID, nil)
		require.NoError(t, err)
		require.NotEmpty(t, timeline.Items)
		assert.Equal(t, "2024-01-08 08:00:00", timeline.Items[0].FechaInicio)
	}
}

func TestGenerarTimeline_FragmentosAjenosSiCorrenElPlan(t *testing.T) {
	almacen := NewAlmacenMemoria()
	ctx := context.Background()

	// Otro programa ya tiene tomada la máquina 1 de 08:00 a 13:00.
	vecino := armarPrograma(almacen, fecha(8, 8, 0))
	require.NoError(t, almacen.CrearTarea(ctx, &models.TareaFragmentada{
		ProgramaID:       vecino.ID,
		TareaOriginalID:  999,
		MaquinaID:        1,
		Fecha:            fecha(8, 0, 0),
		CantidadAsignada: 50,
		FechaInicioPlan:  fecha(8, 8, 0),
		FechaFinPlan:     fecha(8, 13, 0),
		Estado:           models.EstadoTareaPendiente,
	}))

	programa := armarPrograma(almacen, fecha(8, 8, 0), models.OrdenConPrioridad{
		Orden:     otDePrueba("OT-8100", itemDePrueba(1, 1, 20, 10)),
		Prioridad: 1,
	})
	planificador := NewPlanificadorProduccion(almacen, NewDisponibilidadTareas(almacen, programa.ID), zerolog.Nop())

	timeline, err := planificador.GenerarTimeline(ctx, programa.ID, nil)
	require.NoError(t, err)

	// El fin ajeno cae justo en la colación: el inicio propio salta a las 14:00.
	require.NotEmpty(t, timeline.Items)
	assert.Equal(t, "2024-01-08 14:00:00", timeline.Items[0].FechaInicio)
}

func TestCalcularFechaFinPrograma(t *testing.T) {
	almacen := NewAlmacenMemoria()
	programa := armarPrograma(almacen, fecha(8, 8, 0), models.OrdenConPrioridad{
		Orden:     otDePrueba("OT-6000", itemDePrueba(1, 1, 100, 10)),
		Prioridad: 1,
	})
	planificador := NewPlanificadorProduccion(almacen, nil, zerolog.Nop())

	// El plan termina el martes 09:30: la fecha fin es el cierre de ese día.
	fin := planificador.CalcularFechaFinPrograma(context.Background(), programa.ID)
	assert.Equal(t, fecha(9, 17, 30), fin)
}

func TestCalcularFechaFinPrograma_SinOrdenesDegradaAlInicio(t *testing.T) {
	almacen := NewAlmacenMemoria()
	programa := armarPrograma(almacen, fecha(8, 8, 0))
	planificador := NewPlanificadorProduccion(almacen, nil, zerolog.Nop())

	fin := planificador.CalcularFechaFinPrograma(context.Background(), programa.ID)
	assert.Equal(t, fecha(8, 8, 0), fin)
}

func TestPropagarAjusteTarea_EmpujaTareasPosteriores(t *testing.T) {
	almacen := NewAlmacenMemoria()
	programa := armarPrograma(almacen, fecha(8, 8, 0),
		models.OrdenConPrioridad{Orden: otDePrueba("OT-A", itemDePrueba(1, 1, 20, 10)), Prioridad: 1},
		models.OrdenConPrioridad{Orden: otDePrueba("OT-B", itemDePrueba(1, 1, 10, 10)), Prioridad: 2},
	)
	planificador := NewPlanificadorProduccion(almacen, nil, zerolog.Nop())
	ctx := context.Background()
	require.True(t, planificador.CrearTareasFragmentadas(ctx, programa.ID))

	tareas, err := almacen.TareasDePrograma(ctx, programa.ID)
	require.NoError(t, err)
	require.Len(t, tareas, 2)
	tareaA, tareaB := tareas[0], tareas[1]

	// La máquina de la primera tarea partió una hora tarde: se corre su inicio
	// y se repropaga el día.
	tareaA.FechaInicioPlan = fecha(8, 9, 0)
	tareaA.FechaFinPlan = fecha(8, 11, 0)
	require.NoError(t, almacen.ActualizarTarea(ctx, &tareaA))

	require.NoError(t, planificador.PropagarAjusteTarea(ctx, tareaA.ID, "supervisor"))

	movida, err := almacen.ObtenerTarea(ctx, tareaB.ID)
	require.NoError(t, err)
	assert.Equal(t, fecha(8, 11, 30), movida.FechaInicioPlan)
	assert.Equal(t, fecha(8, 12, 30), movida.FechaFinPlan)
	assert.Equal(t, 1, movida.VersionPlanificacion)
	assert.Equal(t, models.MotivoAjusteMaquina, movida.MotivoModificacion)
	require.NotEmpty(t, movida.HistorialCambios)
	assert.Equal(t, models.CambioFechas, movida.HistorialCambios[len(movida.HistorialCambios)-1].Tipo)
}
