package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"API-PLANIFICACION/internal/models"
)

// PlanificadorProduccion orquesta la generación del timeline: construye el
// grafo de nodos de proceso desde los datos de las órdenes, resuelve los
// conflictos de máquina en orden de prioridad, aplana el resultado en bloques
// por día y persiste el plan como tareas fragmentadas por día.
type PlanificadorProduccion struct {
	almacen        Almacen
	disponibilidad DisponibilidadMaquinas
	calc           *CalculadoraTiempo
	log            zerolog.Logger
	tiempoSetup    time.Duration
}

// NewPlanificadorProduccion construye el planificador. La disponibilidad de
// máquinas es opcional: sin ella solo se resuelve la contención interna del
// programa.
func NewPlanificadorProduccion(almacen Almacen, disponibilidad DisponibilidadMaquinas, logger zerolog.Logger) *PlanificadorProduccion {
	return &PlanificadorProduccion{
		almacen:        almacen,
		disponibilidad: disponibilidad,
		calc:           NewCalculadoraTiempo(),
		log:            logger,
		tiempoSetup:    TiempoSetupDefecto,
	}
}

// TiempoSetup cambia el buffer de cambio entre tareas. Cero restaura el
// defecto.
func (p *PlanificadorProduccion) TiempoSetup(d time.Duration) {
	if d <= 0 {
		d = TiempoSetupDefecto
	}
	p.tiempoSetup = d
}

// grafoProduccion es el resultado intermedio de la construcción del timeline.
type grafoProduccion struct {
	nodos      []*NodoProceso
	porMaquina map[int][]*NodoProceso
	grupos     []GrupoTimeline
}

// GenerarTimeline carga el programa y sus órdenes desde el almacén y produce
// el timeline aplanado, incluyendo las tareas fragmentadas en curso para que
// refleje el avance real y no solo el plan.
func (p *PlanificadorProduccion) GenerarTimeline(ctx context.Context, programaID int, fechaReferencia *time.Time) (*Timeline, error) {
	programa, err := p.almacen.ObtenerPrograma(ctx, programaID)
	if err != nil {
		return nil, err
	}
	ordenes, err := p.almacen.OrdenesDePrograma(ctx, programaID)
	if err != nil {
		return nil, err
	}

	timeline, err := p.GenerarTimelineDesdeDatos(ctx, programa, ordenes, fechaReferencia)
	if err != nil {
		return nil, err
	}

	if err := p.agregarTareasFragmentadas(ctx, programaID, timeline); err != nil {
		return nil, err
	}
	return timeline, nil
}

// GenerarTimelineDesdeDatos produce el timeline base a partir de datos ya
// cargados, sin mezclar tareas fragmentadas. Es el insumo de los snapshots de
// historial.
func (p *PlanificadorProduccion) GenerarTimelineDesdeDatos(ctx context.Context, programa *models.ProgramaProduccion, ordenes []models.OrdenConPrioridad, fechaReferencia *time.Time) (*Timeline, error) {
	inicio := programa.FechaInicio
	if fechaReferencia != nil {
		inicio = *fechaReferencia
	}

	grafo, err := p.construirGrafo(inicio, ordenes)
	if err != nil {
		return nil, err
	}
	if err := p.resolverConflictos(ctx, grafo); err != nil {
		return nil, err
	}

	timeline := &Timeline{Groups: grafo.grupos}
	for _, nodo := range grafo.nodos {
		timeline.Items = append(timeline.Items, CrearBloquesPorDia(nodo)...)
	}
	return timeline, nil
}

// construirGrafo arma el grafo de nodos: un grupo por OT (en orden de
// prioridad del programa), un nodo por proceso con estándar válido. El primer
// proceso de cada orden parte a la apertura del día de inicio; cada sucesor
// parte al fin del anterior más el setup, ajustado a horario laboral.
func (p *PlanificadorProduccion) construirGrafo(inicio time.Time, ordenes []models.OrdenConPrioridad) (*grafoProduccion, error) {
	grafo := &grafoProduccion{porMaquina: make(map[int][]*NodoProceso)}
	cal := p.calc.Calendario()
	inicioPrograma := cal.AjustarAHorarioLaboral(cal.InicioJornada(inicio))

	for _, oc := range models.OrdenarPorPrioridad(ordenes) {
		orden := oc.Orden
		if !orden.EsPlanificable() {
			p.log.Debug().Str("codigo_ot", orden.CodigoOT).Str("situacion", orden.Situacion).
				Msg("orden no planificable, se omite del timeline")
			continue
		}

		grupo := GrupoTimeline{
			ID:                   fmt.Sprintf("ot_%d", orden.ID),
			OrdenTrabajoCodigoOT: orden.CodigoOT,
			Descripcion:          orden.Descripcion,
		}

		var anterior *NodoProceso
		if orden.Ruta != nil {
			for _, item := range orden.Ruta.ItemsOrdenados() {
				grupo.Procesos = append(grupo.Procesos, ProcesoTimeline{
					ID:          fmt.Sprintf("proc_%d", item.ID),
					Descripcion: item.DescripcionProceso,
					Item:        item.Item,
				})

				restante := item.CantidadPendiente()
				if !item.TieneEstandarValido() {
					// El proceso aparece como metadato del grupo pero no se
					// agenda.
					p.log.Warn().Str("codigo_ot", orden.CodigoOT).Int("item", item.Item).
						Float64("estandar", item.Estandar).
						Msg("proceso sin estándar válido, no se agenda")
					continue
				}

				arranque := inicioPrograma
				if anterior != nil {
					arranque = cal.AjustarAHorarioLaboral(anterior.FechaFin.Add(p.tiempoSetup))
				}

				nodo, err := NewNodoProceso(p.calc, NodoProceso{
					ItemRutaID:     item.ID,
					OrdenTrabajoID: orden.ID,
					CodigoOT:       orden.CodigoOT,
					Item:           item.Item,
					CodigoProceso:  item.CodigoProceso,
					Descripcion:    item.DescripcionProceso,
					MaquinaID:      item.MaquinaID,
					Maquina:        item.DescripcionMaquina,
					Cantidad:       restante,
					Estandar:       item.Estandar,
					Prioridad:      oc.Prioridad,
					Estado:         item.Estado,
				}, arranque)
				if err != nil {
					return nil, fmt.Errorf("ot %s: %w", orden.CodigoOT, err)
				}

				if anterior != nil {
					anterior.SiguienteProceso = nodo
				}
				anterior = nodo
				grafo.nodos = append(grafo.nodos, nodo)
				grafo.porMaquina[nodo.MaquinaID] = append(grafo.porMaquina[nodo.MaquinaID], nodo)
			}
		}

		grafo.grupos = append(grafo.grupos, grupo)
	}

	return grafo, nil
}

// resolverConflictos recorre cada máquina en orden canónico y fuerza que cada
// nodo parta después del fin del anterior más el setup. Cada empuje se propaga
// por el grafo. Si hay un oráculo de disponibilidad, se consulta por ocupación
// externa al programa antes de la contención interna.
func (p *PlanificadorProduccion) resolverConflictos(ctx context.Context, grafo *grafoProduccion) error {
	maquinas := make([]int, 0, len(grafo.porMaquina))
	for id := range grafo.porMaquina {
		maquinas = append(maquinas, id)
	}
	sort.Ints(maquinas)

	for _, maquinaID := range maquinas {
		if p.disponibilidad != nil {
			for _, nodo := range OrdenarListaMaquina(grafo.porMaquina[maquinaID]) {
				conflicto, err := p.disponibilidad.VerificarConflicto(ctx, maquinaID, nodo.FechaInicio, nodo.FechaFin, nodo.Prioridad)
				if err != nil {
					return fmt.Errorf("consultando disponibilidad de máquina %d: %w", maquinaID, err)
				}
				if conflicto.TieneConflicto && conflicto.FechaDisponible.After(nodo.FechaInicio) {
					if err := nodo.ActualizarFechas(conflicto.FechaDisponible); err != nil {
						return err
					}
					if err := nodo.PropagarAjuste(p.tiempoSetup, grafo.porMaquina); err != nil {
						return err
					}
				}
			}
		}

		lista := OrdenarListaMaquina(grafo.porMaquina[maquinaID])
		for i := 1; i < len(lista); i++ {
			limite := lista[i-1].FechaFin.Add(p.tiempoSetup)
			if lista[i].FechaInicio.Before(limite) {
				if err := lista[i].ActualizarFechas(limite); err != nil {
					return err
				}
				if err := lista[i].PropagarAjuste(p.tiempoSetup, grafo.porMaquina); err != nil {
					return err
				}
				// El empuje pudo reordenar la cola: reevaluar desde la lista
				// canónica actualizada.
				lista = OrdenarListaMaquina(grafo.porMaquina[maquinaID])
			}
		}
	}
	return nil
}

// agregarTareasFragmentadas mezcla en el timeline las tareas ya fragmentadas o
// en curso, para que la vista refleje el avance real.
func (p *PlanificadorProduccion) agregarTareasFragmentadas(ctx context.Context, programaID int, timeline *Timeline) error {
	tareas, err := p.almacen.TareasDePrograma(ctx, programaID)
	if err != nil {
		return err
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
	return nil
}

// CrearTareasFragmentadas genera el timeline base y persiste una tarea
// fragmentada por proceso y por día implicado, dentro de una transacción con
// savepoint: un fallo de validación revierte limpio sin abortar una
// transacción externa. Devuelve false (y registra el motivo) ante cualquier
// fallo de validación o persistencia; el llamador trata false como "no se
// creó ninguna tarea".
func (p *PlanificadorProduccion) CrearTareasFragmentadas(ctx context.Context, programaID int) bool {
	programa, err := p.almacen.ObtenerPrograma(ctx, programaID)
	if err != nil {
		p.log.Error().Err(err).Int("programa_id", programaID).Msg("no se pudo cargar el programa")
		return false
	}
	ordenes, err := p.almacen.OrdenesDePrograma(ctx, programaID)
	if err != nil {
		p.log.Error().Err(err).Int("programa_id", programaID).Msg("no se pudieron cargar las órdenes del programa")
		return false
	}

	grafo, err := p.construirGrafo(programa.FechaInicio, ordenes)
	if err != nil {
		p.log.Error().Err(err).Int("programa_id", programaID).Msg("error construyendo el grafo de procesos")
		return false
	}
	if err := p.resolverConflictos(ctx, grafo); err != nil {
		p.log.Error().Err(err).Int("programa_id", programaID).Msg("error resolviendo conflictos de máquina")
		return false
	}

	// Validación completa antes de escribir: cualquier proceso inválido
	// rechaza el lote entero.
	for _, nodo := range grafo.nodos {
		item, err := p.almacen.ObtenerItemRuta(ctx, nodo.ItemRutaID)
		if err != nil {
			p.log.Error().Err(err).Int("item_ruta_id", nodo.ItemRutaID).Msg("proceso inexistente, lote rechazado")
			return false
		}
		if err := item.Validar(); err != nil {
			p.log.Error().Err(err).Int("item_ruta_id", nodo.ItemRutaID).Msg("proceso inválido, lote rechazado")
			return false
		}
	}

	var eliminadas int
	err = p.almacen.EnTransaccion(ctx, func(tx Almacen) error {
		// Regenerar reemplaza el plan anterior: sin esto cada llamada
		// duplicaría los fragmentos pendientes del programa.
		var err error
		eliminadas, err = tx.EliminarTareasDePrograma(ctx, programaID)
		if err != nil {
			return fmt.Errorf("eliminando tareas previas del programa %d: %w", programaID, err)
		}

		for _, nodo := range grafo.nodos {
			for _, tarea := range fragmentarNodo(nodo, programaID) {
				tarea := tarea
				if err := tx.CrearTarea(ctx, &tarea); err != nil {
					return fmt.Errorf("creando tarea de item_ruta=%d fecha=%s: %w",
						nodo.ItemRutaID, tarea.Fecha.Format("2006-01-02"), err)
				}
			}
		}

		// El primer día del programa queda con reporte abierto.
		reporte := &models.ReporteDiarioPrograma{
			ProgramaID: programaID,
			Fecha:      medianoche(p.calc.Calendario().AjustarAHorarioLaboral(p.calc.Calendario().InicioJornada(programa.FechaInicio))),
			Estado:     models.ReporteAbierto,
		}
		return tx.GuardarReporteDiario(ctx, reporte)
	})
	if err != nil {
		p.log.Error().Err(err).Int("programa_id", programaID).Msg("error persistiendo tareas fragmentadas")
		return false
	}

	p.log.Info().Int("programa_id", programaID).Int("procesos", len(grafo.nodos)).
		Int("tareas_previas_eliminadas", eliminadas).
		Msg("tareas fragmentadas creadas")
	return true
}

// fragmentarNodo parte los intervalos de un nodo en una tarea por día
// calendario.
func fragmentarNodo(nodo *NodoProceso, programaID int) []models.TareaFragmentada {
	var tareas []models.TareaFragmentada
	var actual *models.TareaFragmentada

	for _, intervalo := range nodo.Intervalos {
		if actual == nil || !MismaFecha(actual.Fecha, intervalo.Inicio) {
			tareas = append(tareas, models.TareaFragmentada{
				ProgramaID:      programaID,
				TareaOriginalID: nodo.ItemRutaID,
				OrdenTrabajoID:  nodo.OrdenTrabajoID,
				MaquinaID:       nodo.MaquinaID,
				Fecha:           medianoche(intervalo.Inicio),
				FechaInicioPlan: intervalo.Inicio,
				FechaFinPlan:    intervalo.Fin,
				Estado:          models.EstadoTareaPendiente,
			})
			actual = &tareas[len(tareas)-1]
		}
		actual.CantidadAsignada += intervalo.Unidades
		if intervalo.Fin.After(actual.FechaFinPlan) {
			actual.FechaFinPlan = intervalo.Fin
		}
	}
	return tareas
}

// CalcularFechaFinPrograma regenera el timeline base y devuelve el máximo fin
// proyectado ajustado al cierre de jornada más cercano. Ante cualquier error
// interno degrada a la fecha de inicio del programa: política deliberada de
// degradación segura.
func (p *PlanificadorProduccion) CalcularFechaFinPrograma(ctx context.Context, programaID int) time.Time {
	programa, err := p.almacen.ObtenerPrograma(ctx, programaID)
	if err != nil {
		p.log.Warn().Err(err).Int("programa_id", programaID).Msg("programa no disponible para calcular fecha fin")
		return time.Time{}
	}

	ordenes, err := p.almacen.OrdenesDePrograma(ctx, programaID)
	if err != nil {
		p.log.Warn().Err(err).Int("programa_id", programaID).Msg("órdenes no disponibles, fecha fin degrada al inicio")
		return programa.FechaInicio
	}

	timeline, err := p.GenerarTimelineDesdeDatos(ctx, programa, ordenes, nil)
	if err != nil {
		p.log.Warn().Err(err).Int("programa_id", programaID).Msg("timeline no generable, fecha fin degrada al inicio")
		return programa.FechaInicio
	}

	var maximo time.Time
	for _, item := range timeline.Items {
		fin, err := time.ParseInLocation(FormatoFechaHora, item.FechaFin, programa.FechaInicio.Location())
		if err != nil {
			continue
		}
		if fin.After(maximo) {
			maximo = fin
		}
	}
	if maximo.IsZero() {
		return programa.FechaInicio
	}
	return p.calc.Calendario().FinJornadaMasCercano(maximo)
}

// ActualizarFechaFin recalcula y persiste la fecha de término del programa.
// Se invoca cada vez que cambia la composición o las prioridades.
func (p *PlanificadorProduccion) ActualizarFechaFin(ctx context.Context, programaID int) error {
	programa, err := p.almacen.ObtenerPrograma(ctx, programaID)
	if err != nil {
		return err
	}
	programa.FechaFin = p.CalcularFechaFinPrograma(ctx, programaID)
	programa.ActualizadoEn = time.Now()
	return p.almacen.ActualizarPrograma(ctx, programa)
}

// PropagarAjusteTarea reconstruye un grafo de nodos desde todas las tareas
// fragmentadas en o después de la fecha de la tarea dada (no solo el plan
// restante), repropaga desde el nodo objetivo y persiste los cambios de fechas
// resultantes, subiendo la versión de planificación con motivo AJUSTE_MAQUINA.
func (p *PlanificadorProduccion) PropagarAjusteTarea(ctx context.Context, tareaID int, usuario string) error {
	tarea, err := p.almacen.ObtenerTarea(ctx, tareaID)
	if err != nil {
		return err
	}

	tareas, err := p.almacen.TareasDesdeFecha(ctx, tarea.ProgramaID, tarea.Fecha)
	if err != nil {
		return err
	}

	porMaquina := make(map[int][]*NodoProceso)
	nodosPorTarea := make(map[int]*NodoProceso, len(tareas))
	var objetivo *NodoProceso

	for i := range tareas {
		t := &tareas[i]
		item, err := p.almacen.ObtenerItemRuta(ctx, t.TareaOriginalID)
		if err != nil {
			return fmt.Errorf("tarea %d: %w", t.ID, err)
		}
		if !item.TieneEstandarValido() {
			continue
		}

		nodo, err := NewNodoProceso(p.calc, NodoProceso{
			ItemRutaID:     t.TareaOriginalID,
			OrdenTrabajoID: t.OrdenTrabajoID,
			Item:           item.Item,
			CodigoProceso:  item.CodigoProceso,
			Descripcion:    item.DescripcionProceso,
			MaquinaID:      t.MaquinaID,
			Maquina:        item.DescripcionMaquina,
			Cantidad:       t.CantidadPendiente(),
			Estandar:       item.Estandar,
			Estado:         t.Estado,
		}, t.FechaInicioPlan)
		if err != nil {
			return fmt.Errorf("tarea %d: %w", t.ID, err)
		}

		nodosPorTarea[t.ID] = nodo
		porMaquina[t.MaquinaID] = append(porMaquina[t.MaquinaID], nodo)
		if t.ID == tareaID {
			objetivo = nodo
		}
	}

	if objetivo == nil {
		return fmt.Errorf("tarea %d no participa del plan vigente", tareaID)
	}

	if err := objetivo.PropagarAjuste(p.tiempoSetup, porMaquina); err != nil {
		return err
	}

	return p.almacen.EnTransaccion(ctx, func(tx Almacen) error {
		ahora := time.Now()
		for i := range tareas {
			t := &tareas[i]
			nodo, ok := nodosPorTarea[t.ID]
			if !ok {
				continue
			}
			if nodo.FechaInicio.Equal(t.FechaInicioPlan) && nodo.FechaFin.Equal(t.FechaFinPlan) {
				continue
			}

			t.RegistrarCambio(models.EntradaHistorial{
				Tipo:    models.CambioFechas,
				Fecha:   ahora,
				Usuario: usuario,
				Detalle: fmt.Sprintf("replanificada de %s a %s",
					t.FechaInicioPlan.Format(FormatoFechaHora), nodo.FechaInicio.Format(FormatoFechaHora)),
			})
			t.FechaInicioPlan = nodo.FechaInicio
			t.FechaFinPlan = nodo.FechaFin
			t.Fecha = medianoche(nodo.FechaInicio)
			t.VersionPlanificacion++
			t.MotivoModificacion = models.MotivoAjusteMaquina

			if err := tx.ActualizarTarea(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
}
