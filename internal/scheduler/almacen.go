package scheduler

import (
	"context"
	"errors"
	"time"

	"API-PLANIFICACION/internal/models"
)

// ErrNoEncontrado se devuelve cuando una entidad consultada no existe.
var ErrNoEncontrado = errors.New("entidad no encontrada")

// Almacen es la frontera de persistencia del planificador. Las operaciones
// multi-fila (creación de tareas, cierre de día, regeneración) deben ejecutarse
// dentro de EnTransaccion para que una aplicación parcial no sea observable.
// Una llamada anidada a EnTransaccion abre un savepoint: la función interna
// puede fallar y revertirse sin abortar la transacción externa.
type Almacen interface {
	ObtenerPrograma(ctx context.Context, id int) (*models.ProgramaProduccion, error)
	ActualizarPrograma(ctx context.Context, programa *models.ProgramaProduccion) error
	OrdenesDePrograma(ctx context.Context, programaID int) ([]models.OrdenConPrioridad, error)

	ObtenerOrdenTrabajo(ctx context.Context, id int) (*models.OrdenTrabajo, error)
	ActualizarOrdenTrabajo(ctx context.Context, orden *models.OrdenTrabajo) error
	ObtenerItemRuta(ctx context.Context, id int) (*models.ItemRuta, error)
	ActualizarItemRuta(ctx context.Context, item *models.ItemRuta) error

	CrearTarea(ctx context.Context, tarea *models.TareaFragmentada) error
	ActualizarTarea(ctx context.Context, tarea *models.TareaFragmentada) error
	ObtenerTarea(ctx context.Context, id int) (*models.TareaFragmentada, error)
	TareasDePrograma(ctx context.Context, programaID int) ([]models.TareaFragmentada, error)
	TareasPorFecha(ctx context.Context, programaID int, fecha time.Time) ([]models.TareaFragmentada, error)
	TareasDesdeFecha(ctx context.Context, programaID int, fecha time.Time) ([]models.TareaFragmentada, error)
	TareasDeMaquina(ctx context.Context, maquinaID int, desde time.Time) ([]models.TareaFragmentada, error)
	EliminarTareasDePrograma(ctx context.Context, programaID int) (int, error)

	ObtenerReporteDiario(ctx context.Context, programaID int, fecha time.Time) (*models.ReporteDiarioPrograma, error)
	GuardarReporteDiario(ctx context.Context, reporte *models.ReporteDiarioPrograma) error

	ExisteHistorialDiario(ctx context.Context, programaID int, fecha time.Time) (bool, error)
	CrearHistorial(ctx context.Context, historial *models.HistorialPlanificacion) error
	ActualizarHistorial(ctx context.Context, historial *models.HistorialPlanificacion) error
	EliminarHistorial(ctx context.Context, id int) error
	HistorialesDePrograma(ctx context.Context, programaID int) ([]models.HistorialPlanificacion, error)

	EnTransaccion(ctx context.Context, fn func(Almacen) error) error
}
