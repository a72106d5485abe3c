package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"API-PLANIFICACION/internal/models"
	"API-PLANIFICACION/internal/scheduler"
)

// AlmacenPostgres implementa scheduler.Almacen sobre la base interna.
type AlmacenPostgres struct {
	con interfazPgx
}

// interfazPgx es el subconjunto común de *pgxpool.Pool y pgx.Tx que usa el
// almacén. Begin sobre una pgx.Tx abre un savepoint, así que la misma
// implementación sirve dentro y fuera de una transacción.
type interfazPgx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// NewAlmacenPostgres construye el almacén sobre el pool del manager.
func NewAlmacenPostgres(mgr *PostgresManager) *AlmacenPostgres {
	return &AlmacenPostgres{con: mgr.Pool()}
}

func (a *AlmacenPostgres) exec(ctx context.Context, sql string, args ...any) error {
	_, err := a.con.Exec(ctx, sql, args...)
	return err
}

// EnTransaccion ejecuta fn dentro de una transacción. Si el almacén ya
// participa de una transacción, Begin abre un savepoint: un fallo interno
// revierte solo ese tramo.
func (a *AlmacenPostgres) EnTransaccion(ctx context.Context, fn func(scheduler.Almacen) error) error {
	tx, err := a.con.Begin(ctx)
	if err != nil {
		return fmt.Errorf("db: no fue posible iniciar la transacción: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&AlmacenPostgres{con: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("db: no fue posible confirmar la transacción: %w", err)
	}
	return nil
}

func (a *AlmacenPostgres) ObtenerPrograma(ctx context.Context, id int) (*models.ProgramaProduccion, error) {
	var p models.ProgramaProduccion
	err := a.con.QueryRow(ctx, SELECT_PROGRAMA, id).Scan(
		&p.ID, &p.Nombre, &p.FechaInicio, &p.FechaFin, &p.CreadoEn, &p.ActualizadoEn)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("programa %d: %w", id, scheduler.ErrNoEncontrado)
	}
	if err != nil {
		return nil, fmt.Errorf("db: consultando programa %d: %w", id, err)
	}
	return &p, nil
}

func (a *AlmacenPostgres) ActualizarPrograma(ctx context.Context, programa *models.ProgramaProduccion) error {
	if err := a.exec(ctx, UPDATE_PROGRAMA,
		programa.ID, programa.Nombre, programa.FechaInicio, programa.FechaFin, programa.ActualizadoEn); err != nil {
		return fmt.Errorf("db: actualizando programa %d: %w", programa.ID, err)
	}
	return nil
}

func (a *AlmacenPostgres) OrdenesDePrograma(ctx context.Context, programaID int) ([]models.OrdenConPrioridad, error) {
	rows, err := a.con.Query(ctx, SELECT_ORDENES_DE_PROGRAMA, programaID)
	if err != nil {
		return nil, fmt.Errorf("db: consultando órdenes del programa %d: %w", programaID, err)
	}
	defer rows.Close()

	var resultado []models.OrdenConPrioridad
	for rows.Next() {
		var oc models.OrdenConPrioridad
		var orden models.OrdenTrabajo
		var rutaID *int
		if err := rows.Scan(&oc.Prioridad,
			&orden.ID, &orden.CodigoOT, &orden.Descripcion, &orden.CodigoProducto,
			&orden.CantidadPedida, &orden.CantidadAvance, &orden.Situacion, &rutaID); err != nil {
			return nil, fmt.Errorf("db: escaneando orden del programa %d: %w", programaID, err)
		}
		if rutaID != nil {
			ruta, err := a.cargarRuta(ctx, *rutaID, orden.ID)
			if err != nil {
				return nil, err
			}
			orden.Ruta = ruta
		}
		oc.Orden = &orden
		resultado = append(resultado, oc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: iterando órdenes del programa %d: %w", programaID, err)
	}
	return models.OrdenarPorPrioridad(resultado), nil
}

func (a *AlmacenPostgres) cargarRuta(ctx context.Context, rutaID, ordenID int) (*models.RutaOT, error) {
	rows, err := a.con.Query(ctx, SELECT_ITEMS_DE_RUTA, rutaID)
	if err != nil {
		return nil, fmt.Errorf("db: consultando ruta %d: %w", rutaID, err)
	}
	defer rows.Close()

	ruta := &models.RutaOT{ID: rutaID, OrdenTrabajoID: ordenID}
	for rows.Next() {
		var it models.ItemRuta
		if err := rows.Scan(&it.ID, &it.RutaID, &it.Item, &it.CodigoProceso, &it.DescripcionProceso,
			&it.MaquinaID, &it.DescripcionMaquina, &it.Estandar,
			&it.CantidadPedida, &it.CantidadTerminada, &it.Estado); err != nil {
			return nil, fmt.Errorf("db: escaneando item de la ruta %d: %w", rutaID, err)
		}
		ruta.Items = append(ruta.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: iterando ruta %d: %w", rutaID, err)
	}
	return ruta, nil
}

func (a *AlmacenPostgres) ObtenerOrdenTrabajo(ctx context.Context, id int) (*models.OrdenTrabajo, error) {
	var orden models.OrdenTrabajo
	var rutaID *int
	err := a.con.QueryRow(ctx, SELECT_ORDEN_TRABAJO, id).Scan(
		&orden.ID, &orden.CodigoOT, &orden.Descripcion, &orden.CodigoProducto,
		&orden.CantidadPedida, &orden.CantidadAvance, &orden.Situacion, &rutaID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("orden de trabajo %d: %w", id, scheduler.ErrNoEncontrado)
	}
	if err != nil {
		return nil, fmt.Errorf("db: consultando orden de trabajo %d: %w", id, err)
	}
	if rutaID != nil {
		ruta, err := a.cargarRuta(ctx, *rutaID, orden.ID)
		if err != nil {
			return nil, err
		}
		orden.Ruta = ruta
	}
	return &orden, nil
}

func (a *AlmacenPostgres) ActualizarOrdenTrabajo(ctx context.Context, orden *models.OrdenTrabajo) error {
	if err := a.exec(ctx, UPDATE_ORDEN_TRABAJO,
		orden.ID, orden.CantidadPedida, orden.CantidadAvance, orden.Situacion); err != nil {
		return fmt.Errorf("db: actualizando orden de trabajo %d: %w", orden.ID, err)
	}
	return nil
}

func (a *AlmacenPostgres) ObtenerItemRuta(ctx context.Context, id int) (*models.ItemRuta, error) {
	var it models.ItemRuta
	err := a.con.QueryRow(ctx, SELECT_ITEM_RUTA, id).Scan(
		&it.ID, &it.RutaID, &it.Item, &it.CodigoProceso, &it.DescripcionProceso,
		&it.MaquinaID, &it.DescripcionMaquina, &it.Estandar,
		&it.CantidadPedida, &it.CantidadTerminada, &it.Estado)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("item de ruta %d: %w", id, scheduler.ErrNoEncontrado)
	}
	if err != nil {
		return nil, fmt.Errorf("db: consultando item de ruta %d: %w", id, err)
	}
	return &it, nil
}

func (a *AlmacenPostgres) ActualizarItemRuta(ctx context.Context, item *models.ItemRuta) error {
	if err := a.exec(ctx, UPDATE_ITEM_RUTA,
		item.ID, item.Estandar, item.CantidadPedida, item.CantidadTerminada,
		item.Estado, item.MaquinaID, item.DescripcionMaquina); err != nil {
		return fmt.Errorf("db: actualizando item de ruta %d: %w", item.ID, err)
	}
	return nil
}

// ActualizarEstandarPorCodigo aplica el estándar del ERP al item de ruta
// identificado por código de OT y número de item. Devuelve true si hubo cambio.
func (a *AlmacenPostgres) ActualizarEstandarPorCodigo(ctx context.Context, codigoOT string, item int, estandar float64) (bool, error) {
	tag, err := a.con.Exec(ctx, UPDATE_ESTANDAR_POR_CODIGO, codigoOT, item, estandar)
	if err != nil {
		return false, fmt.Errorf("db: actualizando estándar de %s item %d: %w", codigoOT, item, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (a *AlmacenPostgres) CrearTarea(ctx context.Context, tarea *models.TareaFragmentada) error {
	historialJSON, err := json.Marshal(tarea.HistorialCambios)
	if err != nil {
		return fmt.Errorf("db: serializando historial de la tarea: %w", err)
	}
	err = a.con.QueryRow(ctx, INSERT_TAREA_FRAGMENTADA,
		tarea.ProgramaID, tarea.TareaOriginalID, tarea.OrdenTrabajoID, tarea.MaquinaID, tarea.Fecha,
		tarea.CantidadAsignada, tarea.CantidadPendienteAnterior, tarea.CantidadCompletada,
		tarea.FechaInicioPlan, tarea.FechaFinPlan, horaONulo(tarea.FechaInicioReal), horaONulo(tarea.FechaFinReal),
		tarea.Estado, tarea.TareaPadreID, tarea.NivelFragmentacion, tarea.Operador,
		tarea.VersionPlanificacion, tarea.MotivoModificacion, historialJSON,
	).Scan(&tarea.ID)
	if err != nil {
		return fmt.Errorf("db: insertando tarea fragmentada: %w", err)
	}
	return nil
}

func (a *AlmacenPostgres) ActualizarTarea(ctx context.Context, tarea *models.TareaFragmentada) error {
	historialJSON, err := json.Marshal(tarea.HistorialCambios)
	if err != nil {
		return fmt.Errorf("db: serializando historial de la tarea %d: %w", tarea.ID, err)
	}
	if err := a.exec(ctx, UPDATE_TAREA_FRAGMENTADA,
		tarea.ID, tarea.Fecha, tarea.CantidadAsignada, tarea.CantidadPendienteAnterior,
		tarea.CantidadCompletada, tarea.FechaInicioPlan, tarea.FechaFinPlan,
		horaONulo(tarea.FechaInicioReal), horaONulo(tarea.FechaFinReal), tarea.Estado,
		tarea.TareaPadreID, tarea.NivelFragmentacion, tarea.Operador,
		tarea.VersionPlanificacion, tarea.MotivoModificacion, historialJSON); err != nil {
		return fmt.Errorf("db: actualizando tarea %d: %w", tarea.ID, err)
	}
	return nil
}

func (a *AlmacenPostgres) ObtenerTarea(ctx context.Context, id int) (*models.TareaFragmentada, error) {
	tarea, err := escanearTarea(a.con.QueryRow(ctx, SELECT_TAREA_FRAGMENTADA, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("tarea %d: %w", id, scheduler.ErrNoEncontrado)
	}
	if err != nil {
		return nil, fmt.Errorf("db: consultando tarea %d: %w", id, err)
	}
	return tarea, nil
}

func (a *AlmacenPostgres) TareasDePrograma(ctx context.Context, programaID int) ([]models.TareaFragmentada, error) {
	return a.consultarTareas(ctx, SELECT_TAREAS_DE_PROGRAMA, programaID)
}

func (a *AlmacenPostgres) TareasPorFecha(ctx context.Context, programaID int, fecha time.Time) ([]models.TareaFragmentada, error) {
	return a.consultarTareas(ctx, SELECT_TAREAS_POR_FECHA, programaID, fecha)
}

func (a *AlmacenPostgres) TareasDesdeFecha(ctx context.Context, programaID int, fecha time.Time) ([]models.TareaFragmentada, error) {
	return a.consultarTareas(ctx, SELECT_TAREAS_DESDE_FECHA, programaID, fecha)
}

func (a *AlmacenPostgres) TareasDeMaquina(ctx context.Context, maquinaID int, desde time.Time) ([]models.TareaFragmentada, error) {
	return a.consultarTareas(ctx, SELECT_TAREAS_DE_MAQUINA, maquinaID, desde)
}

func (a *AlmacenPostgres) consultarTareas(ctx context.Context, query string, args ...any) ([]models.TareaFragmentada, error) {
	rows, err := a.con.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db: consultando tareas: %w", err)
	}
	defer rows.Close()

	var tareas []models.TareaFragmentada
	for rows.Next() {
		tarea, err := escanearTarea(rows)
		if err != nil {
			return nil, fmt.Errorf("db: escaneando tarea: %w", err)
		}
		tareas = append(tareas, *tarea)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: iterando tareas: %w", err)
	}
	return tareas, nil
}

func escanearTarea(row pgx.Row) (*models.TareaFragmentada, error) {
	var t models.TareaFragmentada
	var inicioReal, finReal *time.Time
	var historialJSON []byte
	if err := row.Scan(&t.ID, &t.ProgramaID, &t.TareaOriginalID, &t.OrdenTrabajoID, &t.MaquinaID, &t.Fecha,
		&t.CantidadAsignada, &t.CantidadPendienteAnterior, &t.CantidadCompletada,
		&t.FechaInicioPlan, &t.FechaFinPlan, &inicioReal, &finReal,
		&t.Estado, &t.TareaPadreID, &t.NivelFragmentacion, &t.Operador,
		&t.VersionPlanificacion, &t.MotivoModificacion, &historialJSON); err != nil {
		return nil, err
	}
	if inicioReal != nil {
		t.FechaInicioReal = *inicioReal
	}
	if finReal != nil {
		t.FechaFinReal = *finReal
	}
	if len(historialJSON) > 0 {
		if err := json.Unmarshal(historialJSON, &t.HistorialCambios); err != nil {
			return nil, fmt.Errorf("historial de cambios corrupto: %w", err)
		}
	}
	return &t, nil
}

func (a *AlmacenPostgres) EliminarTareasDePrograma(ctx context.Context, programaID int) (int, error) {
	tag, err := a.con.Exec(ctx, DELETE_TAREAS_DE_PROGRAMA, programaID)
	if err != nil {
		return 0, fmt.Errorf("db: eliminando tareas del programa %d: %w", programaID, err)
	}
	return int(tag.RowsAffected()), nil
}

func (a *AlmacenPostgres) ObtenerReporteDiario(ctx context.Context, programaID int, fecha time.Time) (*models.ReporteDiarioPrograma, error) {
	var r models.ReporteDiarioPrograma
	var fechaCierre, bloqueoHasta *time.Time
	err := a.con.QueryRow(ctx, SELECT_REPORTE_DIARIO, programaID, fecha).Scan(
		&r.ID, &r.ProgramaID, &r.Fecha, &r.Estado, &r.CerradoPor, &fechaCierre, &r.BloqueadoPor, &bloqueoHasta)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reporte diario programa=%d fecha=%s: %w",
			programaID, fecha.Format("2006-01-02"), scheduler.ErrNoEncontrado)
	}
	if err != nil {
		return nil, fmt.Errorf("db: consultando reporte diario: %w", err)
	}
	if fechaCierre != nil {
		r.FechaCierre = *fechaCierre
	}
	if bloqueoHasta != nil {
		r.BloqueoHasta = *bloqueoHasta
	}
	return &r, nil
}

func (a *AlmacenPostgres) GuardarReporteDiario(ctx context.Context, reporte *models.ReporteDiarioPrograma) error {
	err := a.con.QueryRow(ctx, UPSERT_REPORTE_DIARIO,
		reporte.ProgramaID, reporte.Fecha, reporte.Estado, reporte.CerradoPor,
		horaONulo(reporte.FechaCierre), reporte.BloqueadoPor, horaONulo(reporte.BloqueoHasta),
	).Scan(&reporte.ID)
	if err != nil {
		return fmt.Errorf("db: guardando reporte diario: %w", err)
	}
	return nil
}

func (a *AlmacenPostgres) ExisteHistorialDiario(ctx context.Context, programaID int, fecha time.Time) (bool, error) {
	var existe bool
	if err := a.con.QueryRow(ctx, EXISTS_HISTORIAL_DIARIO, programaID, fecha).Scan(&existe); err != nil {
		return false, fmt.Errorf("db: verificando historial diario: %w", err)
	}
	return existe, nil
}

func (a *AlmacenPostgres) CrearHistorial(ctx context.Context, historial *models.HistorialPlanificacion) error {
	cambiosJSON, err := json.Marshal(historial.Cambios)
	if err != nil {
		return fmt.Errorf("db: serializando cambios del historial: %w", err)
	}
	err = a.con.QueryRow(ctx, INSERT_HISTORIAL,
		historial.UUID, historial.ProgramaID, historial.FechaReferencia, historial.TipoReajuste,
		historial.TimelineAntes, historial.TimelineDespues, cambiosJSON,
		historial.CreadoPor, historial.CreadoEn,
	).Scan(&historial.ID)
	if err != nil {
		// El índice único (programa_id, fecha_referencia, tipo_reajuste) es la
		// segunda barrera contra cierres concurrentes del mismo día.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: programa=%d fecha=%s", scheduler.ErrHistorialDuplicado,
				historial.ProgramaID, historial.FechaReferencia.Format("2006-01-02"))
		}
		return fmt.Errorf("db: insertando historial: %w", err)
	}
	return nil
}

func (a *AlmacenPostgres) ActualizarHistorial(ctx context.Context, historial *models.HistorialPlanificacion) error {
	cambiosJSON, err := json.Marshal(historial.Cambios)
	if err != nil {
		return fmt.Errorf("db: serializando cambios del historial %d: %w", historial.ID, err)
	}
	if err := a.exec(ctx, UPDATE_HISTORIAL,
		historial.ID, historial.TimelineAntes, historial.TimelineDespues, cambiosJSON); err != nil {
		return fmt.Errorf("db: actualizando historial %d: %w", historial.ID, err)
	}
	return nil
}

func (a *AlmacenPostgres) EliminarHistorial(ctx context.Context, id int) error {
	if err := a.exec(ctx, DELETE_HISTORIAL, id); err != nil {
		return fmt.Errorf("db: eliminando historial %d: %w", id, err)
	}
	return nil
}

func (a *AlmacenPostgres) HistorialesDePrograma(ctx context.Context, programaID int) ([]models.HistorialPlanificacion, error) {
	rows, err := a.con.Query(ctx, SELECT_HISTORIALES_DE_PROGRAMA, programaID)
	if err != nil {
		return nil, fmt.Errorf("db: consultando historiales del programa %d: %w", programaID, err)
	}
	defer rows.Close()

	var historiales []models.HistorialPlanificacion
	for rows.Next() {
		var h models.HistorialPlanificacion
		var cambiosJSON []byte
		if err := rows.Scan(&h.ID, &h.UUID, &h.ProgramaID, &h.FechaReferencia, &h.TipoReajuste,
			&h.TimelineAntes, &h.TimelineDespues, &cambiosJSON, &h.CreadoPor, &h.CreadoEn); err != nil {
			return nil, fmt.Errorf("db: escaneando historial: %w", err)
		}
		if len(cambiosJSON) > 0 {
			if err := json.Unmarshal(cambiosJSON, &h.Cambios); err != nil {
				return nil, fmt.Errorf("db: cambios del historial %d corruptos: %w", h.ID, err)
			}
		}
		historiales = append(historiales, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: iterando historiales del programa %d: %w", programaID, err)
	}
	return historiales, nil
}

// EliminarHistorialesDePrograma borra todos los historiales de un programa. Lo
// usa el comando de regeneración.
func (a *AlmacenPostgres) EliminarHistorialesDePrograma(ctx context.Context, programaID int) error {
	if err := a.exec(ctx, DELETE_HISTORIALES_DE_PROGRAMA, programaID); err != nil {
		return fmt.Errorf("db: eliminando historiales del programa %d: %w", programaID, err)
	}
	return nil
}

func horaONulo(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
