package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"API-PLANIFICACION/internal/models"
)

// AlmacenMemoria es una implementación en memoria de Almacen. Se usa en tests
// y en los comandos administrativos con modo de prueba. EnTransaccion toma un
// snapshot profundo del estado y lo restaura si la función falla, lo que
// reproduce la semántica de savepoints del almacén real.
type AlmacenMemoria struct {
	mu sync.Mutex

	programas   map[int]*models.ProgramaProduccion
	ordenes     map[int]*models.OrdenTrabajo
	membresias  map[int][]models.ProgramaOrdenTrabajo // por programa
	items       map[int]*models.ItemRuta
	tareas      map[int]*models.TareaFragmentada
	reportes    map[int]*models.ReporteDiarioPrograma
	historiales map[int]*models.HistorialPlanificacion

	proximoID int
}

// NewAlmacenMemoria construye un almacén vacío.
func NewAlmacenMemoria() *AlmacenMemoria {
	return &AlmacenMemoria{
		programas:   make(map[int]*models.ProgramaProduccion),
		ordenes:     make(map[int]*models.OrdenTrabajo),
		membresias:  make(map[int][]models.ProgramaOrdenTrabajo),
		items:       make(map[int]*models.ItemRuta),
		tareas:      make(map[int]*models.TareaFragmentada),
		reportes:    make(map[int]*models.ReporteDiarioPrograma),
		historiales: make(map[int]*models.HistorialPlanificacion),
		proximoID:   1,
	}
}

func (a *AlmacenMemoria) siguienteID() int {
	id := a.proximoID
	a.proximoID++
	return id
}

// CargarPrograma registra un programa con sus órdenes y prioridades. Helper de
// armado para tests y comandos.
func (a *AlmacenMemoria) CargarPrograma(programa *models.ProgramaProduccion, ordenes []models.OrdenConPrioridad) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if programa.ID == 0 {
		programa.ID = a.siguienteID()
	}
	a.programas[programa.ID] = clonPrograma(programa)

	for _, oc := range ordenes {
		orden := oc.Orden
		if orden.ID == 0 {
			orden.ID = a.siguienteID()
		}
		if orden.Ruta != nil {
			if orden.Ruta.ID == 0 {
				orden.Ruta.ID = a.siguienteID()
			}
			orden.Ruta.OrdenTrabajoID = orden.ID
			for i := range orden.Ruta.Items {
				if orden.Ruta.Items[i].ID == 0 {
					orden.Ruta.Items[i].ID = a.siguienteID()
				}
				orden.Ruta.Items[i].RutaID = orden.Ruta.ID
				a.items[orden.Ruta.Items[i].ID] = clonItem(&orden.Ruta.Items[i])
			}
		}
		a.ordenes[orden.ID] = clonOrden(orden)
		a.membresias[programa.ID] = append(a.membresias[programa.ID], models.ProgramaOrdenTrabajo{
			ID:             a.siguienteID(),
			ProgramaID:     programa.ID,
			OrdenTrabajoID: orden.ID,
			Prioridad:      oc.Prioridad,
		})
	}
}

func (a *AlmacenMemoria) ObtenerPrograma(_ context.Context, id int) (*models.ProgramaProduccion, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.programas[id]
	if !ok {
		return nil, fmt.Errorf("programa %d: %w", id, ErrNoEncontrado)
	}
	return clonPrograma(p), nil
}

func (a *AlmacenMemoria) ActualizarPrograma(_ context.Context, programa *models.ProgramaProduccion) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.programas[programa.ID]; !ok {
		return fmt.Errorf("programa %d: %w", programa.ID, ErrNoEncontrado)
	}
	a.programas[programa.ID] = clonPrograma(programa)
	return nil
}

func (a *AlmacenMemoria) OrdenesDePrograma(_ context.Context, programaID int) ([]models.OrdenConPrioridad, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var resultado []models.OrdenConPrioridad
	for _, m := range a.membresias[programaID] {
		orden, ok := a.ordenes[m.OrdenTrabajoID]
		if !ok {
			return nil, fmt.Errorf("orden %d del programa %d: %w", m.OrdenTrabajoID, programaID, ErrNoEncontrado)
		}
		copia := clonOrden(orden)
		// Los items de ruta viven en su propio mapa: rehidratar por si fueron
		// actualizados de forma independiente.
		if copia.Ruta != nil {
			for i := range copia.Ruta.Items {
				if it, ok := a.items[copia.Ruta.Items[i].ID]; ok {
					copia.Ruta.Items[i] = *clonItem(it)
				}
			}
		}
		resultado = append(resultado, models.OrdenConPrioridad{Orden: copia, Prioridad: m.Prioridad})
	}
	return models.OrdenarPorPrioridad(resultado), nil
}

func (a *AlmacenMemoria) ObtenerOrdenTrabajo(_ context.Context, id int) (*models.OrdenTrabajo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	o, ok := a.ordenes[id]
	if !ok {
		return nil, fmt.Errorf("orden de trabajo %d: %w", id, ErrNoEncontrado)
	}
	return clonOrden(o), nil
}

func (a *AlmacenMemoria) ActualizarOrdenTrabajo(_ context.Context, orden *models.OrdenTrabajo) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.ordenes[orden.ID]; !ok {
		return fmt.Errorf("orden de trabajo %d: %w", orden.ID, ErrNoEncontrado)
	}
	a.ordenes[orden.ID] = clonOrden(orden)
	return nil
}

func (a *AlmacenMemoria) ObtenerItemRuta(_ context.Context, id int) (*models.ItemRuta, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	it, ok := a.items[id]
	if !ok {
		return nil, fmt.Errorf("item de ruta %d: %w", id, ErrNoEncontrado)
	}
	return clonItem(it), nil
}

func (a *AlmacenMemoria) ActualizarItemRuta(_ context.Context, item *models.ItemRuta) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.items[item.ID]; !ok {
		return fmt.Errorf("item de ruta %d: %w", item.ID, ErrNoEncontrado)
	}
	a.items[item.ID] = clonItem(item)
	return nil
}

func (a *AlmacenMemoria) CrearTarea(_ context.Context, tarea *models.TareaFragmentada) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if tarea.ID == 0 {
		tarea.ID = a.siguienteID()
	}
	a.tareas[tarea.ID] = clonTarea(tarea)
	return nil
}

func (a *AlmacenMemoria) ActualizarTarea(_ context.Context, tarea *models.TareaFragmentada) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.tareas[tarea.ID]; !ok {
		return fmt.Errorf("tarea %d: %w", tarea.ID, ErrNoEncontrado)
	}
	a.tareas[tarea.ID] = clonTarea(tarea)
	return nil
}

func (a *AlmacenMemoria) ObtenerTarea(_ context.Context, id int) (*models.TareaFragmentada, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.tareas[id]
	if !ok {
		return nil, fmt.Errorf("tarea %d: %w", id, ErrNoEncontrado)
	}
	return clonTarea(t), nil
}

func (a *AlmacenMemoria) TareasDePrograma(_ context.Context, programaID int) ([]models.TareaFragmentada, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.filtrarTareas(func(t *models.TareaFragmentada) bool {
		return t.ProgramaID == programaID
	}), nil
}

func (a *AlmacenMemoria) TareasPorFecha(_ context.Context, programaID int, fecha time.Time) ([]models.TareaFragmentada, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.filtrarTareas(func(t *models.TareaFragmentada) bool {
		return t.ProgramaID == programaID && MismaFecha(t.Fecha, fecha)
	}), nil
}

func (a *AlmacenMemoria) TareasDesdeFecha(_ context.Context, programaID int, fecha time.Time) ([]models.TareaFragmentada, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	corte := medianoche(fecha)
	return a.filtrarTareas(func(t *models.TareaFragmentada) bool {
		return t.ProgramaID == programaID && !medianoche(t.Fecha).Before(corte)
	}), nil
}

func (a *AlmacenMemoria) TareasDeMaquina(_ context.Context, maquinaID int, desde time.Time) ([]models.TareaFragmentada, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	corte := medianoche(desde)
	return a.filtrarTareas(func(t *models.TareaFragmentada) bool {
		return t.MaquinaID == maquinaID && !medianoche(t.Fecha).Before(corte)
	}), nil
}

func (a *AlmacenMemoria) filtrarTareas(pred func(*models.TareaFragmentada) bool) []models.TareaFragmentada {
	var resultado []models.TareaFragmentada
	for _, t := range a.tareas {
		if pred(t) {
			resultado = append(resultado, *clonTarea(t))
		}
	}
	sort.Slice(resultado, func(i, j int) bool {
		if !resultado[i].Fecha.Equal(resultado[j].Fecha) {
			return resultado[i].Fecha.Before(resultado[j].Fecha)
		}
		return resultado[i].ID < resultado[j].ID
	})
	return resultado
}

func (a *AlmacenMemoria) EliminarTareasDePrograma(_ context.Context, programaID int) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	eliminadas := 0
	for id, t := range a.tareas {
		if t.ProgramaID == programaID {
			delete(a.tareas, id)
			eliminadas++
		}
	}
	return eliminadas, nil
}

func (a *AlmacenMemoria) ObtenerReporteDiario(_ context.Context, programaID int, fecha time.Time) (*models.ReporteDiarioPrograma, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range a.reportes {
		if r.ProgramaID == programaID && MismaFecha(r.Fecha, fecha) {
			return clonReporte(r), nil
		}
	}
	return nil, fmt.Errorf("reporte diario programa=%d fecha=%s: %w",
		programaID, fecha.Format("2006-01-02"), ErrNoEncontrado)
}

func (a *AlmacenMemoria) GuardarReporteDiario(_ context.Context, reporte *models.ReporteDiarioPrograma) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if reporte.ID == 0 {
		for _, r := range a.reportes {
			if r.ProgramaID == reporte.ProgramaID && MismaFecha(r.Fecha, reporte.Fecha) {
				reporte.ID = r.ID
				break
			}
		}
	}
	if reporte.ID == 0 {
		reporte.ID = a.siguienteID()
	}
	a.reportes[reporte.ID] = clonReporte(reporte)
	return nil
}

func (a *AlmacenMemoria) ExisteHistorialDiario(_ context.Context, programaID int, fecha time.Time) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, h := range a.historiales {
		if h.ProgramaID == programaID && h.TipoReajuste == models.ReajusteDiario && MismaFecha(h.FechaReferencia, fecha) {
			return true, nil
		}
	}
	return false, nil
}

func (a *AlmacenMemoria) CrearHistorial(_ context.Context, historial *models.HistorialPlanificacion) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if historial.ID == 0 {
		historial.ID = a.siguienteID()
	}
	a.historiales[historial.ID] = clonHistorial(historial)
	return nil
}

func (a *AlmacenMemoria) ActualizarHistorial(_ context.Context, historial *models.HistorialPlanificacion) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.historiales[historial.ID]; !ok {
		return fmt.Errorf("historial %d: %w", historial.ID, ErrNoEncontrado)
	}
	a.historiales[historial.ID] = clonHistorial(historial)
	return nil
}

func (a *AlmacenMemoria) EliminarHistorial(_ context.Context, id int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.historiales, id)
	return nil
}

func (a *AlmacenMemoria) HistorialesDePrograma(_ context.Context, programaID int) ([]models.HistorialPlanificacion, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var resultado []models.HistorialPlanificacion
	for _, h := range a.historiales {
		if h.ProgramaID == programaID {
			resultado = append(resultado, *clonHistorial(h))
		}
	}
	sort.Slice(resultado, func(i, j int) bool { return resultado[i].ID < resultado[j].ID })
	return resultado, nil
}

// EnTransaccion ejecuta fn contra el mismo almacén, restaurando un snapshot
// profundo del estado si fn devuelve error. Las llamadas anidadas se comportan
// como savepoints: cada nivel guarda y restaura su propio snapshot.
func (a *AlmacenMemoria) EnTransaccion(_ context.Context, fn func(Almacen) error) error {
	a.mu.Lock()
	snapshot := a.tomarSnapshot()
	a.mu.Unlock()

	if err := fn(a); err != nil {
		a.mu.Lock()
		a.restaurarSnapshot(snapshot)
		a.mu.Unlock()
		return err
	}
	return nil
}

type snapshotMemoria struct {
	programas   map[int]*models.ProgramaProduccion
	ordenes     map[int]*models.OrdenTrabajo
	membresias  map[int][]models.ProgramaOrdenTrabajo
	items       map[int]*models.ItemRuta
	tareas      map[int]*models.TareaFragmentada
	reportes    map[int]*models.ReporteDiarioPrograma
	historiales map[int]*models.HistorialPlanificacion
	proximoID   int
}

func (a *AlmacenMemoria) tomarSnapshot() *snapshotMemoria {
	s := &snapshotMemoria{
		programas:   make(map[int]*models.ProgramaProduccion, len(a.programas)),
		ordenes:     make(map[int]*models.OrdenTrabajo, len(a.ordenes)),
		membresias:  make(map[int][]models.ProgramaOrdenTrabajo, len(a.membresias)),
		items:       make(map[int]*models.ItemRuta, len(a.items)),
		tareas:      make(map[int]*models.TareaFragmentada, len(a.tareas)),
		reportes:    make(map[int]*models.ReporteDiarioPrograma, len(a.reportes)),
		historiales: make(map[int]*models.HistorialPlanificacion, len(a.historiales)),
		proximoID:   a.proximoID,
	}
	for id, p := range a.programas {
		s.programas[id] = clonPrograma(p)
	}
	for id, o := range a.ordenes {
		s.ordenes[id] = clonOrden(o)
	}
	for id, ms := range a.membresias {
		s.membresias[id] = append([]models.ProgramaOrdenTrabajo(nil), ms...)
	}
	for id, it := range a.items {
		s.items[id] = clonItem(it)
	}
	for id, t := range a.tareas {
		s.tareas[id] = clonTarea(t)
	}
	for id, r := range a.reportes {
		s.reportes[id] = clonReporte(r)
	}
	for id, h := range a.historiales {
		s.historiales[id] = clonHistorial(h)
	}
	return s
}

func (a *AlmacenMemoria) restaurarSnapshot(s *snapshotMemoria) {
	a.programas = s.programas
	a.ordenes = s.ordenes
	a.membresias = s.membresias
	a.items = s.items
	a.tareas = s.tareas
	a.reportes = s.reportes
	a.historiales = s.historiales
	a.proximoID = s.proximoID
}

func clonPrograma(p *models.ProgramaProduccion) *models.ProgramaProduccion {
	copia := *p
	copia.Ordenes = append([]models.ProgramaOrdenTrabajo(nil), p.Ordenes...)
	return &copia
}

func clonOrden(o *models.OrdenTrabajo) *models.OrdenTrabajo {
	copia := *o
	if o.Ruta != nil {
		ruta := *o.Ruta
		ruta.Items = append([]models.ItemRuta(nil), o.Ruta.Items...)
		copia.Ruta = &ruta
	}
	return &copia
}

func clonItem(it *models.ItemRuta) *models.ItemRuta {
	copia := *it
	return &copia
}

func clonTarea(t *models.TareaFragmentada) *models.TareaFragmentada {
	copia := *t
	copia.HistorialCambios = append([]models.EntradaHistorial(nil), t.HistorialCambios...)
	return &copia
}

func clonReporte(r *models.ReporteDiarioPrograma) *models.ReporteDiarioPrograma {
	copia := *r
	return &copia
}

func clonHistorial(h *models.HistorialPlanificacion) *models.HistorialPlanificacion {
	copia := *h
	copia.TimelineAntes = append([]byte(nil), h.TimelineAntes...)
	copia.TimelineDespues = append([]byte(nil), h.TimelineDespues...)
	copia.Cambios = append([]models.CambioTarea(nil), h.Cambios...)
	return &copia
}
