package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"API-PLANIFICACION/internal/models"
)

// ErrDiaYaCerrado indica un intento de cerrar un día ya cerrado.
var ErrDiaYaCerrado = errors.New("el día ya fue cerrado")

// ErrHistorialDuplicado indica que ya existe un historial DIARIO para el
// (programa, fecha): el cierre solo puede intentarse una vez; para reintentar
// el operador debe regenerar el programa con el comando de limpieza.
var ErrHistorialDuplicado = errors.New("ya existe un historial diario para esta fecha")

// ResultadoCierre resume lo ocurrido en un cierre de día.
type ResultadoCierre struct {
	ProgramaID        int       `json:"programa_id"`
	Fecha             time.Time `json:"fecha"`
	TareasCompletadas int       `json:"tareas_completadas"`
	TareasContinuadas int       `json:"tareas_continuadas"`
	SiguienteDia      time.Time `json:"siguiente_dia"`
	HistorialID       int       `json:"historial_id"`
}

// FinalizarDia cierra el día de un programa: completa o continúa cada tarea de
// la fecha, reorganiza la contención del siguiente día laboral, deja snapshots
// antes/después en el historial de planificación y abre el reporte del
// siguiente día. El snapshot se persiste antes de cualquier mutación de estado
// para que una caída a mitad de cierre nunca deje cambios sin auditar; ante un
// error se elimina el historial creado (acción compensatoria) y el día queda
// abierto para reintentar.
func (p *PlanificadorProduccion) FinalizarDia(ctx context.Context, programaID int, fecha time.Time, usuario string) (*ResultadoCierre, error) {
	fecha = medianoche(fecha)

	// Guardia 1: el día no puede cerrarse dos veces.
	reporte, err := p.almacen.ObtenerReporteDiario(ctx, programaID, fecha)
	switch {
	case err == nil:
		if reporte.EstaCerrado() {
			return nil, fmt.Errorf("%w: programa=%d fecha=%s cerrado por %s",
				ErrDiaYaCerrado, programaID, fecha.Format("2006-01-02"), reporte.CerradoPor)
		}
	case errors.Is(err, ErrNoEncontrado):
		reporte = &models.ReporteDiarioPrograma{
			ProgramaID: programaID,
			Fecha:      fecha,
			Estado:     models.ReporteAbierto,
		}
	default:
		return nil, err
	}

	// Guardia 2: idempotencia por historial. Un DIARIO previo bloquea el
	// reintento aunque el reporte haya quedado abierto.
	existe, err := p.almacen.ExisteHistorialDiario(ctx, programaID, fecha)
	if err != nil {
		return nil, err
	}
	if existe {
		return nil, fmt.Errorf("%w: programa=%d fecha=%s", ErrHistorialDuplicado, programaID, fecha.Format("2006-01-02"))
	}

	// Snapshot del estado previo, persistido antes de tocar nada.
	timelineAntes, err := p.GenerarTimeline(ctx, programaID, nil)
	if err != nil {
		return nil, fmt.Errorf("generando snapshot previo al cierre: %w", err)
	}
	antesJSON, err := json.Marshal(timelineAntes)
	if err != nil {
		return nil, fmt.Errorf("serializando snapshot previo: %w", err)
	}

	historial := &models.HistorialPlanificacion{
		UUID:            uuid.NewString(),
		ProgramaID:      programaID,
		FechaReferencia: fecha,
		TipoReajuste:    models.ReajusteDiario,
		TimelineAntes:   antesJSON,
		CreadoPor:       usuario,
		CreadoEn:        time.Now(),
	}
	if err := p.almacen.CrearHistorial(ctx, historial); err != nil {
		return nil, fmt.Errorf("creando historial de cierre: %w", err)
	}

	resultado, err := p.cerrarDia(ctx, reporte, historial, fecha, usuario)
	if err != nil {
		// Acción compensatoria: el historial recién creado se elimina para
		// que el operador pueda reintentar el cierre.
		if errComp := p.almacen.EliminarHistorial(ctx, historial.ID); errComp != nil {
			p.log.Error().Err(errComp).Int("historial_id", historial.ID).
				Msg("no se pudo eliminar el historial tras el fallo del cierre")
		}
		return nil, err
	}
	return resultado, nil
}

// cerrarDia ejecuta los pasos mutantes del cierre dentro de una transacción.
func (p *PlanificadorProduccion) cerrarDia(ctx context.Context, reporte *models.ReporteDiarioPrograma, historial *models.HistorialPlanificacion, fecha time.Time, usuario string) (*ResultadoCierre, error) {
	cal := p.calc.Calendario()
	siguienteDia := medianoche(cal.SiguienteDiaLaboral(fecha))
	ahora := time.Now()

	resultado := &ResultadoCierre{
		ProgramaID:   reporte.ProgramaID,
		Fecha:        fecha,
		SiguienteDia: siguienteDia,
		HistorialID:  historial.ID,
	}

	err := p.almacen.EnTransaccion(ctx, func(tx Almacen) error {
		tareasDelDia, err := tx.TareasPorFecha(ctx, reporte.ProgramaID, fecha)
		if err != nil {
			return err
		}

		// Fase de decisión: completar lo terminado y preparar continuaciones.
		// Las transiciones a CONTINUADO se difieren hasta después de
		// persistir el snapshot posterior.
		type continuacionPendiente struct {
			original     models.TareaFragmentada
			continuacion *models.TareaFragmentada
			arrastre     float64
		}
		var pendientes []continuacionPendiente

		for i := range tareasDelDia {
			t := tareasDelDia[i]
			if esEstadoTerminal(t.Estado) || t.Estado == models.EstadoTareaDetenida {
				continue
			}

			if t.CantidadPendiente() <= toleranciaCantidad {
				t.Estado = models.EstadoTareaCompletada
				if t.FechaFinReal.IsZero() {
					t.FechaFinReal = ahora
				}
				t.MotivoModificacion = models.MotivoFinalizarDia
				if err := tx.ActualizarTarea(ctx, &t); err != nil {
					return err
				}
				resultado.TareasCompletadas++
				historial.Cambios = append(historial.Cambios, models.CambioTarea{
					TareaID:        t.ID,
					Tipo:           models.CambioTareaCompletada,
					EstadoAnterior: tareasDelDia[i].Estado,
					EstadoNuevo:    models.EstadoTareaCompletada,
				})
				continue
			}

			continuacion, err := p.crearOActualizarContinuacion(ctx, tx, &t, siguienteDia, usuario)
			if err != nil {
				return err
			}
			pendientes = append(pendientes, continuacionPendiente{
				original:     t,
				continuacion: continuacion,
				arrastre:     t.CantidadPendiente(),
			})
		}

		// Reorganización del siguiente día: empaquetado secuencial simple por
		// máquina desde la apertura, no la propagación completa del grafo.
		if err := p.reorganizarDia(ctx, tx, reporte.ProgramaID, siguienteDia); err != nil {
			return err
		}

		// Snapshot posterior en la misma fila de historial, antes de voltear
		// estados.
		timelineDespues, err := p.timelineDesdeTx(ctx, tx, reporte.ProgramaID)
		if err != nil {
			return fmt.Errorf("generando snapshot posterior al cierre: %w", err)
		}
		despuesJSON, err := json.Marshal(timelineDespues)
		if err != nil {
			return fmt.Errorf("serializando snapshot posterior: %w", err)
		}
		historial.TimelineDespues = despuesJSON

		for _, pend := range pendientes {
			historial.Cambios = append(historial.Cambios, models.CambioTarea{
				TareaID:            pend.original.ID,
				Tipo:               models.CambioTareaContinuacion,
				EstadoAnterior:     pend.original.Estado,
				EstadoNuevo:        models.EstadoTareaContinuada,
				ContinuacionID:     pend.continuacion.ID,
				CantidadArrastrada: pend.arrastre,
			})
		}
		if err := tx.ActualizarHistorial(ctx, historial); err != nil {
			return err
		}

		// Recién con la auditoría en disco se vuelcan los estados.
		for _, pend := range pendientes {
			original := pend.original
			original.MarcarContinuada(pend.continuacion.ID, usuario, ahora)
			original.MotivoModificacion = models.MotivoFinalizarDia
			if err := tx.ActualizarTarea(ctx, &original); err != nil {
				return err
			}
			resultado.TareasContinuadas++
		}

		// Cierre del reporte del día y apertura del siguiente.
		if err := reporte.Cerrar(usuario, ahora); err != nil {
			return err
		}
		if err := tx.GuardarReporteDiario(ctx, reporte); err != nil {
			return err
		}

		_, err = tx.ObtenerReporteDiario(ctx, reporte.ProgramaID, siguienteDia)
		if errors.Is(err, ErrNoEncontrado) {
			return tx.GuardarReporteDiario(ctx, &models.ReporteDiarioPrograma{
				ProgramaID: reporte.ProgramaID,
				Fecha:      siguienteDia,
				Estado:     models.ReporteAbierto,
			})
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	p.log.Info().Int("programa_id", reporte.ProgramaID).Str("fecha", fecha.Format("2006-01-02")).
		Int("completadas", resultado.TareasCompletadas).Int("continuadas", resultado.TareasContinuadas).
		Msg("día finalizado")
	return resultado, nil
}

// crearOActualizarContinuacion lleva el faltante de una tarea al siguiente día
// laboral. Si el proceso ya tiene un fragmento planificado ese día, el
// faltante se suma como cantidad pendiente anterior; si no, nace una
// continuación nueva cuyo asignado es el faltante, enlazada por tarea padre y
// con nivel de fragmentación incrementado.
func (p *PlanificadorProduccion) crearOActualizarContinuacion(ctx context.Context, tx Almacen, original *models.TareaFragmentada, siguienteDia time.Time, usuario string) (*models.TareaFragmentada, error) {
	faltante := original.CantidadPendiente()

	item, err := tx.ObtenerItemRuta(ctx, original.TareaOriginalID)
	if err != nil {
		return nil, fmt.Errorf("tarea %d: %w", original.ID, err)
	}

	siguientes, err := tx.TareasPorFecha(ctx, original.ProgramaID, siguienteDia)
	if err != nil {
		return nil, err
	}
	for i := range siguientes {
		s := &siguientes[i]
		if s.TareaOriginalID != original.TareaOriginalID || esEstadoTerminal(s.Estado) {
			continue
		}
		s.CantidadPendienteAnterior += faltante
		s.RegistrarCambio(models.EntradaHistorial{
			Tipo:    models.CambioContinuacion,
			Usuario: usuario,
			Detalle: fmt.Sprintf("arrastre de %.2f desde la tarea %d", faltante, original.ID),
			Nuevo:   s.CantidadPendienteAnterior,
		})
		if err := tx.ActualizarTarea(ctx, s); err != nil {
			return nil, err
		}
		return s, nil
	}

	inicio := p.calc.Calendario().AjustarAHorarioLaboral(p.calc.Calendario().InicioJornada(siguienteDia))
	calculo, err := p.calc.CalcularDiasLaborales(inicio, faltante, item.Estandar, nil)
	if err != nil {
		return nil, fmt.Errorf("replanificando continuación de la tarea %d: %w", original.ID, err)
	}

	continuacion := &models.TareaFragmentada{
		ProgramaID:         original.ProgramaID,
		TareaOriginalID:    original.TareaOriginalID,
		OrdenTrabajoID:     original.OrdenTrabajoID,
		MaquinaID:          original.MaquinaID,
		Fecha:              siguienteDia,
		CantidadAsignada:   faltante,
		FechaInicioPlan:    calculo.FechaInicio,
		FechaFinPlan:       calculo.FechaFin,
		Estado:             models.EstadoTareaPendiente,
		TareaPadreID:       original.ID,
		NivelFragmentacion: original.NivelFragmentacion + 1,
		Operador:           original.Operador,
	}
	detalle := fmt.Sprintf("nace como continuación de la tarea %d", original.ID)
	raiz, err := models.CantidadAsignadaOriginal(original, func(id int) *models.TareaFragmentada {
		padre, err := tx.ObtenerTarea(ctx, id)
		if err != nil {
			return nil
		}
		return padre
	})
	if err != nil {
		p.log.Warn().Err(err).Int("tarea_id", original.ID).Msg("cadena de fragmentación irrecuperable")
	} else {
		detalle = fmt.Sprintf("%s (asignación raíz %.2f)", detalle, raiz)
	}
	continuacion.RegistrarCambio(models.EntradaHistorial{
		Tipo:    models.CambioContinuacion,
		Usuario: usuario,
		Detalle: detalle,
		Nuevo:   faltante,
	})
	if err := tx.CrearTarea(ctx, continuacion); err != nil {
		return nil, err
	}
	return continuacion, nil
}

// reorganizarDia reempaqueta secuencialmente las tareas de cada máquina de un
// día desde la apertura de jornada, respetando el setup entre tareas.
func (p *PlanificadorProduccion) reorganizarDia(ctx context.Context, tx Almacen, programaID int, dia time.Time) error {
	tareas, err := tx.TareasPorFecha(ctx, programaID, dia)
	if err != nil {
		return err
	}

	porMaquina := make(map[int][]*models.TareaFragmentada)
	for i := range tareas {
		t := &tareas[i]
		if esEstadoTerminal(t.Estado) || t.Estado == models.EstadoTareaDetenida {
			continue
		}
		porMaquina[t.MaquinaID] = append(porMaquina[t.MaquinaID], t)
	}

	maquinas := make([]int, 0, len(porMaquina))
	for id := range porMaquina {
		maquinas = append(maquinas, id)
	}
	sort.Ints(maquinas)

	cal := p.calc.Calendario()
	apertura := cal.AjustarAHorarioLaboral(cal.InicioJornada(dia))

	for _, maquinaID := range maquinas {
		cola := porMaquina[maquinaID]
		sort.SliceStable(cola, func(i, j int) bool {
			if !cola[i].FechaInicioPlan.Equal(cola[j].FechaInicioPlan) {
				return cola[i].FechaInicioPlan.Before(cola[j].FechaInicioPlan)
			}
			return cola[i].TareaOriginalID < cola[j].TareaOriginalID
		})

		cursor := apertura
		for _, t := range cola {
			item, err := tx.ObtenerItemRuta(ctx, t.TareaOriginalID)
			if err != nil {
				return fmt.Errorf("tarea %d: %w", t.ID, err)
			}
			if !item.TieneEstandarValido() {
				continue
			}

			calculo, err := p.calc.CalcularDiasLaborales(cursor, t.CantidadPendiente(), item.Estandar, nil)
			if err != nil {
				return fmt.Errorf("reorganizando tarea %d: %w", t.ID, err)
			}
			if !calculo.FechaInicio.Equal(t.FechaInicioPlan) || !calculo.FechaFin.Equal(t.FechaFinPlan) {
				t.FechaInicioPlan = calculo.FechaInicio
				t.FechaFinPlan = calculo.FechaFin
				t.VersionPlanificacion++
				t.MotivoModificacion = models.MotivoFinalizarDia
				if err := tx.ActualizarTarea(ctx, t); err != nil {
					return err
				}
			}
			cursor = calculo.FechaFin.Add(p.tiempoSetup)
		}
	}
	return nil
}

// timelineDesdeTx regenera el timeline usando el almacén transaccional para
// que el snapshot posterior vea las mutaciones aún no confirmadas.
func (p *PlanificadorProduccion) timelineDesdeTx(ctx context.Context, tx Almacen, programaID int) (*Timeline, error) {
	programa, err := tx.ObtenerPrograma(ctx, programaID)
	if err != nil {
		return nil, err
	}
	ordenes, err := tx.OrdenesDePrograma(ctx, programaID)
	if err != nil {
		return nil, err
	}
	timeline, err := p.GenerarTimelineDesdeDatos(ctx, programa, ordenes, nil)
	if err != nil {
		return nil, err
	}

	tareas, err := tx.TareasDePrograma(ctx, programaID)
	if err != nil {
		return nil, err
	}
	for i := range tareas {
		t := &tareas[i]
		if t.Estado == models.EstadoTareaPendiente && !t.EsContinuacion() {
			continue
		}
		timeline.Items = append(timeline.Items, ItemTimeline{
			ID:                fmt.Sprintf("tarea_%d", t.ID),
			OTID:              t.OrdenTrabajoID,
			ProcesoID:         fmt.Sprintf("proc_%d", t.TareaOriginalID),
			Nombre:            fmt.Sprintf("Fragmento %s", t.Fecha.Format("02/01")),
			FechaInicio:       t.FechaInicioPlan.Format(FormatoFechaHora),
			FechaFin:          t.FechaFinPlan.Format(FormatoFechaHora),
			CantidadTotal:     t.CantidadTotalDia(),
			CantidadIntervalo: t.CantidadCompletada,
			Estado:            t.Estado,
			EsFragmento:       true,
			TareaID:           t.ID,
		})
	}
	return timeline, nil
}
