package erp

import (
	"context"
	"log"
	"time"

	"API-PLANIFICACION/internal/db"
)

// EstandaresSyncWorker sincroniza periódicamente los estándares de producción
// desde el ERP (SQL Server) hacia las rutas locales en PostgreSQL. El ERP es la
// fuente de verdad de los estándares; el planificador solo los consume.
type EstandaresSyncWorker struct {
	ctx          context.Context
	cancel       context.CancelFunc
	sqlServerMgr *db.Manager         // SQL Server (vistas del ERP)
	almacen      *db.AlmacenPostgres // PostgreSQL (rutas locales)
	interval     time.Duration
}

// NewEstandaresSyncWorker crea una nueva instancia del worker de sincronización
func NewEstandaresSyncWorker(
	ctx context.Context,
	sqlServerMgr *db.Manager,
	almacen *db.AlmacenPostgres,
	interval time.Duration,
) *EstandaresSyncWorker {
	workerCtx, cancel := context.WithCancel(ctx)
	return &EstandaresSyncWorker{
		ctx:          workerCtx,
		cancel:       cancel,
		sqlServerMgr: sqlServerMgr,
		almacen:      almacen,
		interval:     interval,
	}
}

// Start inicia el worker de sincronización
func (w *EstandaresSyncWorker) Start() {
	go w.run()
	log.Printf("🔄 Worker de estándares iniciado (intervalo: %v)", w.interval)
}

// Stop detiene el worker de sincronización
func (w *EstandaresSyncWorker) Stop() {
	w.cancel()
	log.Println("🛑 Worker de estándares detenido")
}

func (w *EstandaresSyncWorker) run() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ PANIC en worker de estándares: %v", r)
		}
	}()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Primera pasada inmediata; luego el ticker manda
	w.SyncEstandares()

	for {
		select {
		case <-w.ctx.Done():
			log.Println("🛑 [Worker] Contexto cancelado, saliendo...")
			return
		case <-ticker.C:
			w.SyncEstandares()
		}
	}
}

// SyncEstandares ejecuta una pasada de sincronización y reporta los cambios
// aplicados. También la usa el comando de sincronización manual.
func (w *EstandaresSyncWorker) SyncEstandares() (actualizados int, errores int) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(w.ctx, 30*time.Second)
	defer cancel()

	log.Println("🔄 Iniciando sincronización de estándares desde el ERP...")

	estandares, err := w.sqlServerMgr.ConsultarEstandares(ctx)
	if err != nil {
		log.Printf("❌ Error al obtener estándares desde el ERP: %v", err)
		return 0, 1
	}
	log.Printf("   → %d estándares obtenidos desde el ERP", len(estandares))

	for _, e := range estandares {
		cambio, err := w.almacen.ActualizarEstandarPorCodigo(ctx, e.CodigoOT, e.Item, e.Estandar)
		if err != nil {
			log.Printf("❌ Error aplicando estándar de %s item %d: %v", e.CodigoOT, e.Item, err)
			errores++
			continue
		}
		if cambio {
			log.Printf("   → %s item %d: estándar actualizado a %.2f u/h", e.CodigoOT, e.Item, e.Estandar)
			actualizados++
		}
	}

	log.Printf("✅ Sincronización de estándares completada en %v (%d actualizados, %d errores)",
		time.Since(startTime), actualizados, errores)
	return actualizados, errores
}
