package scheduler

import (
	"context"
	"fmt"
	"time"

	"API-PLANIFICACION/internal/models"
)

// ActualizarProgresoTarea registra el avance acumulado del día sobre una tarea
// fragmentada y proyecta ese avance hacia los otros registros: la suma de las
// tareas del proceso es el libro mayor autoritativo, el terminado del item de
// ruta y el avance de la OT se derivan de él.
func (p *PlanificadorProduccion) ActualizarProgresoTarea(ctx context.Context, tareaID int, nuevaCantidad float64, usuario string) (*models.TareaFragmentada, error) {
	tarea, err := p.almacen.ObtenerTarea(ctx, tareaID)
	if err != nil {
		return nil, err
	}

	ahora := time.Now()
	if err := tarea.ActualizarProgreso(nuevaCantidad, usuario, ahora); err != nil {
		return nil, err
	}

	err = p.almacen.EnTransaccion(ctx, func(tx Almacen) error {
		if err := tx.ActualizarTarea(ctx, tarea); err != nil {
			return err
		}
		return p.proyectarProgreso(ctx, tx, tarea, usuario)
	})
	if err != nil {
		return nil, err
	}
	return tarea, nil
}

// ActualizarTiempoRealTarea registra los instantes reales de trabajo del día.
func (p *PlanificadorProduccion) ActualizarTiempoRealTarea(ctx context.Context, tareaID int, inicio, fin time.Time, usuario string) (*models.TareaFragmentada, error) {
	tarea, err := p.almacen.ObtenerTarea(ctx, tareaID)
	if err != nil {
		return nil, err
	}
	if err := tarea.ActualizarTiempoReal(inicio, fin, usuario); err != nil {
		return nil, err
	}
	if err := p.almacen.ActualizarTarea(ctx, tarea); err != nil {
		return nil, err
	}
	return tarea, nil
}

// proyectarProgreso recalcula el terminado del proceso como la suma de lo
// completado en sus tareas fragmentadas y, si el proceso es el último de la
// ruta y quedó completo, cascadea el avance a la OT.
func (p *PlanificadorProduccion) proyectarProgreso(ctx context.Context, tx Almacen, tarea *models.TareaFragmentada, usuario string) error {
	item, err := tx.ObtenerItemRuta(ctx, tarea.TareaOriginalID)
	if err != nil {
		return err
	}

	tareas, err := tx.TareasDePrograma(ctx, tarea.ProgramaID)
	if err != nil {
		return err
	}
	total := 0.0
	for i := range tareas {
		if tareas[i].TareaOriginalID == item.ID {
			total += tareas[i].CantidadCompletada
		}
	}

	item.CantidadTerminada = total
	switch {
	case total >= item.CantidadPedida && item.CantidadPedida > 0:
		item.Estado = models.EstadoProcesoCompletado
	case total > 0 && item.Estado == models.EstadoProcesoPendiente:
		item.Estado = models.EstadoProcesoEnProceso
	}
	if err := tx.ActualizarItemRuta(ctx, item); err != nil {
		return err
	}

	if item.Estado != models.EstadoProcesoCompletado {
		return nil
	}

	orden, err := tx.ObtenerOrdenTrabajo(ctx, tarea.OrdenTrabajoID)
	if err != nil {
		return err
	}
	if orden.Ruta == nil {
		return nil
	}
	items := orden.Ruta.ItemsOrdenados()
	if len(items) == 0 || items[len(items)-1].ID != item.ID {
		return nil
	}

	// Último proceso de la ruta completado: el avance de la OT sube a lo
	// terminado por ese proceso.
	orden.CantidadAvance = total
	if orden.CantidadAvance > orden.CantidadPedida {
		orden.CantidadAvance = orden.CantidadPedida
	}
	p.log.Info().Str("codigo_ot", orden.CodigoOT).Float64("avance", orden.CantidadAvance).
		Str("usuario", usuario).Msg("avance de OT actualizado por término del último proceso")
	return tx.ActualizarOrdenTrabajo(ctx, orden)
}

// CrearContinuacion crea manualmente la continuación de una tarea en el
// siguiente día laboral, con la misma semántica de enlace y nivel que el
// cierre de día.
func (p *PlanificadorProduccion) CrearContinuacion(ctx context.Context, tareaID int, usuario string) (*models.TareaFragmentada, error) {
	tarea, err := p.almacen.ObtenerTarea(ctx, tareaID)
	if err != nil {
		return nil, err
	}
	if esEstadoTerminal(tarea.Estado) {
		return nil, fmt.Errorf("la tarea %d ya está %s, no admite continuación", tareaID, tarea.Estado)
	}
	if tarea.CantidadPendiente() <= toleranciaCantidad {
		return nil, fmt.Errorf("la tarea %d no tiene faltante que continuar", tareaID)
	}

	siguienteDia := medianoche(p.calc.Calendario().SiguienteDiaLaboral(tarea.Fecha))

	var continuacion *models.TareaFragmentada
	err = p.almacen.EnTransaccion(ctx, func(tx Almacen) error {
		var errTx error
		continuacion, errTx = p.crearOActualizarContinuacion(ctx, tx, tarea, siguienteDia, usuario)
		if errTx != nil {
			return errTx
		}
		tarea.MarcarContinuada(continuacion.ID, usuario, time.Now())
		return tx.ActualizarTarea(ctx, tarea)
	})
	if err != nil {
		return nil, err
	}
	return continuacion, nil
}
