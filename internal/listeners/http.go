package listeners

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"API-PLANIFICACION/internal/communication/plc"
	"API-PLANIFICACION/internal/config"
	"API-PLANIFICACION/internal/models"
	"API-PLANIFICACION/internal/scheduler"
)

// FormatoFecha es el formato de fecha (sin hora) aceptado en query params y bodies.
const FormatoFecha = "2006-01-02"

type HTTPFrontend struct {
	router  *gin.Engine
	addr    string // Dirección completa host:port
	almacen scheduler.Almacen
	cfg     *config.Config
	wsHub   *WebSocketHub
	logger  zerolog.Logger
	monitor *plc.Monitor // nil si la planta no tiene OPC UA
}

func NewHTTPFrontend(addr string, almacen scheduler.Almacen, cfg *config.Config, logger zerolog.Logger) *HTTPFrontend {
	router := gin.Default()

	// Configurar CORS para permitir todas las peticiones
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Manejador personalizado para rutas 404
	router.NoRoute(func(c *gin.Context) {
		RespondWithError(c, http.StatusNotFound, ErrCodeNotFound,
			"🤔 La ruta que buscas no existe en este servidor",
			gin.H{
				"available_endpoints": gin.H{
					"programas": []string{
						"GET /programas/:id",
						"GET /programas/:id/timeline",
						"GET /programas/:id/tareas",
						"GET /programas/:id/historiales",
						"POST /programas/:id/tareas/regenerar",
						"POST /programas/:id/finalizar-dia",
					},
					"tareas": []string{
						"PATCH /tareas/:id/progreso",
						"PATCH /tareas/:id/tiempo-real",
						"POST /tareas/:id/propagar",
						"POST /tareas/:id/continuacion",
					},
					"reportes": []string{
						"POST /programas/:id/reportes/bloqueo",
						"DELETE /programas/:id/reportes/bloqueo",
					},
					"maquinas": []string{
						"GET /maquinas",
						"GET /programas/:id/maquinas/:maquina_id/carga",
					},
					"websocket": []string{
						"GET /ws/:room",
						"GET /ws/stats",
					},
				},
			},
			"Revisa la documentación en MANUAL_API.md o contacta al equipo de desarrollo")
	})

	// Crear e iniciar WebSocket Hub
	wsHub := NewWebSocketHub()
	go wsHub.Run()

	return &HTTPFrontend{
		router:  router,
		addr:    addr,
		almacen: almacen,
		cfg:     cfg,
		wsHub:   wsHub,
		logger:  logger,
	}
}

// GetWebSocketHub retorna el hub de WebSocket
func (h *HTTPFrontend) GetWebSocketHub() *WebSocketHub {
	return h.wsHub
}

// SetMonitorPLC vincula el monitor OPC UA de planta. Con monitor, la
// verificación de disponibilidad superpone el estado en línea de las máquinas.
func (h *HTTPFrontend) SetMonitorPLC(monitor *plc.Monitor) {
	h.monitor = monitor
}

// planificadorPara arma un planificador acotado al programa indicado. La
// disponibilidad de máquinas se resuelve contra las tareas persistidas del
// mismo programa, superpuesta con el PLC si hay monitor conectado.
func (h *HTTPFrontend) planificadorPara(programaID int) *scheduler.PlanificadorProduccion {
	var disponibilidad scheduler.DisponibilidadMaquinas = scheduler.NewDisponibilidadTareas(h.almacen, programaID)
	if h.monitor != nil {
		disponibilidad = plc.NewDisponibilidadPLC(h.monitor, disponibilidad)
	}
	p := scheduler.NewPlanificadorProduccion(h.almacen, disponibilidad, h.logger)
	p.TiempoSetup(h.cfg.Planificacion.GetTiempoSetupDuration())
	return p
}

// notificarTimeline recalcula el timeline del programa y lo publica en su room.
func (h *HTTPFrontend) notificarTimeline(ctx context.Context, programaID int) {
	if !h.cfg.Planificacion.NotificarTimelines {
		return
	}

	timeline, err := h.planificadorPara(programaID).GenerarTimeline(ctx, programaID, nil)
	if err != nil {
		log.Printf("⚠️  No se pudo recalcular el timeline del programa %d para notificar: %v", programaID, err)
		return
	}
	h.wsHub.NotifyTimeline(programaID, timeline)
}

// respondError traduce errores del dominio a respuestas HTTP estandarizadas.
func respondError(c *gin.Context, operation string, err error) {
	switch {
	case errors.Is(err, scheduler.ErrNoEncontrado):
		NotFound(c, "Recurso no encontrado", gin.H{"operation": operation, "error": err.Error()})
	case errors.Is(err, scheduler.ErrDiaYaCerrado), errors.Is(err, scheduler.ErrHistorialDuplicado):
		RespondWithError(c, http.StatusConflict, ErrCodeDiaYaCerrado, err.Error(),
			gin.H{"operation": operation},
			"Consulta los historiales del programa para revisar el cierre registrado")
	case errors.Is(err, scheduler.ErrEstandarInvalido):
		UnprocessableEntity(c, err.Error(), gin.H{"operation": operation})
	case strings.Contains(err.Error(), "bloqueado"):
		RespondWithError(c, http.StatusConflict, ErrCodeTareaBloqueada, err.Error(),
			gin.H{"operation": operation},
			"Espera a que expire el bloqueo o pide al usuario que lo libere")
	default:
		DatabaseError(c, operation, err)
	}
}

func paramInt(c *gin.Context, name string) (int, bool) {
	value, err := strconv.Atoi(c.Param(name))
	if err != nil {
		ValidationError(c, name, "debe ser un número entero válido")
		return 0, false
	}
	return value, true
}

func (h *HTTPFrontend) setupRoutes() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ PANIC en setupRoutes: %v", r)
		}
	}()

	// Endpoint GET /programas/:id
	// Retorna el programa con sus órdenes de trabajo priorizadas
	h.router.GET("/programas/:id", func(c *gin.Context) {
		programaID, ok := paramInt(c, "id")
		if !ok {
			return
		}

		ctx := c.Request.Context()
		programa, err := h.almacen.ObtenerPrograma(ctx, programaID)
		if err != nil {
			if errors.Is(err, scheduler.ErrNoEncontrado) {
				ProgramaNotFound(c, programaID)
				return
			}
			respondError(c, "obtener_programa", err)
			return
		}

		ordenes, err := h.almacen.OrdenesDePrograma(ctx, programaID)
		if err != nil {
			respondError(c, "ordenes_de_programa", err)
			return
		}

		Success(c, gin.H{
			"programa": programa,
			"ordenes":  models.OrdenarPorPrioridad(ordenes),
		}, "Programa obtenido exitosamente")
	})

	// Endpoint GET /programas/:id/timeline
	// Calcula el timeline de planificación. Acepta ?fecha=YYYY-MM-DD para
	// proyectar desde una fecha de referencia distinta al inicio del programa.
	h.router.GET("/programas/:id/timeline", func(c *gin.Context) {
		programaID, ok := paramInt(c, "id")
		if !ok {
			return
		}

		var fechaReferencia *time.Time
		if raw := c.Query("fecha"); raw != "" {
			fecha, err := time.ParseInLocation(FormatoFecha, raw, time.Local)
			if err != nil {
				ValidationError(c, "fecha", "debe tener formato YYYY-MM-DD")
				return
			}
			fechaReferencia = &fecha
		}

		timeline, err := h.planificadorPara(programaID).GenerarTimeline(c.Request.Context(), programaID, fechaReferencia)
		if err != nil {
			if errors.Is(err, scheduler.ErrNoEncontrado) {
				ProgramaNotFound(c, programaID)
				return
			}
			respondError(c, "generar_timeline", err)
			return
		}

		Success(c, timeline, "Timeline generado exitosamente")
	})

	// Endpoint POST /programas/:id/tareas/regenerar
	// Reemplaza las tareas fragmentadas del programa según el timeline vigente
	h.router.POST("/programas/:id/tareas/regenerar", func(c *gin.Context) {
		programaID, ok := paramInt(c, "id")
		if !ok {
			return
		}

		ctx := c.Request.Context()
		planificador := h.planificadorPara(programaID)
		if !planificador.CrearTareasFragmentadas(ctx, programaID) {
			UnprocessableEntity(c, "No fue posible regenerar las tareas del programa",
				gin.H{"programa_id": programaID})
			return
		}

		if err := planificador.ActualizarFechaFin(ctx, programaID); err != nil {
			log.Printf("⚠️  No se pudo actualizar la fecha fin del programa %d: %v", programaID, err)
		}

		tareas, err := h.almacen.TareasDePrograma(ctx, programaID)
		if err != nil {
			respondError(c, "tareas_de_programa", err)
			return
		}

		h.notificarTimeline(ctx, programaID)
		Created(c, gin.H{
			"programa_id": programaID,
			"tareas":      tareas,
		}, "Tareas regeneradas exitosamente")
	})

	// Endpoint GET /programas/:id/tareas
	// Lista las tareas fragmentadas. Acepta ?fecha=YYYY-MM-DD para un solo día.
	h.router.GET("/programas/:id/tareas", func(c *gin.Context) {
		programaID, ok := paramInt(c, "id")
		if !ok {
			return
		}

		ctx := c.Request.Context()
		var tareas []models.TareaFragmentada
		var err error

		if raw := c.Query("fecha"); raw != "" {
			fecha, parseErr := time.ParseInLocation(FormatoFecha, raw, time.Local)
			if parseErr != nil {
				ValidationError(c, "fecha", "debe tener formato YYYY-MM-DD")
				return
			}
			tareas, err = h.almacen.TareasPorFecha(ctx, programaID, fecha)
		} else {
			tareas, err = h.almacen.TareasDePrograma(ctx, programaID)
		}

		if err != nil {
			respondError(c, "listar_tareas", err)
			return
		}

		Success(c, tareas, "Tareas obtenidas exitosamente")
	})

	// Endpoint GET /programas/:id/historiales
	h.router.GET("/programas/:id/historiales", func(c *gin.Context) {
		programaID, ok := paramInt(c, "id")
		if !ok {
			return
		}

		historiales, err := h.almacen.HistorialesDePrograma(c.Request.Context(), programaID)
		if err != nil {
			respondError(c, "historiales_de_programa", err)
			return
		}

		Success(c, historiales, "Historiales obtenidos exitosamente")
	})

	// Endpoint POST /programas/:id/finalizar-dia
	// Cierra el día del programa: completa o continúa las tareas de la fecha y
	// reorganiza el día siguiente. Body: { "fecha": "YYYY-MM-DD", "usuario": string }
	h.router.POST("/programas/:id/finalizar-dia", func(c *gin.Context) {
		programaID, ok := paramInt(c, "id")
		if !ok {
			return
		}

		var request struct {
			Fecha   string `json:"fecha" binding:"required"`
			Usuario string `json:"usuario" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			BadRequest(c, "Formato de body inválido",
				gin.H{
					"required_format": gin.H{
						"fecha":   "string (YYYY-MM-DD)",
						"usuario": "string",
					},
					"error": err.Error(),
				})
			return
		}

		fecha, err := time.ParseInLocation(FormatoFecha, request.Fecha, time.Local)
		if err != nil {
			ValidationError(c, "fecha", "debe tener formato YYYY-MM-DD")
			return
		}

		ctx := c.Request.Context()
		resultado, err := h.planificadorPara(programaID).FinalizarDia(ctx, programaID, fecha, request.Usuario)
		if err != nil {
			if errors.Is(err, scheduler.ErrDiaYaCerrado) || errors.Is(err, scheduler.ErrHistorialDuplicado) {
				DiaYaCerrado(c, programaID, request.Fecha)
				return
			}
			respondError(c, "finalizar_dia", err)
			return
		}

		h.wsHub.NotifyCierreDia(programaID, resultado)
		h.notificarTimeline(ctx, programaID)
		Success(c, resultado, "Día finalizado exitosamente")
	})

	// Endpoint PATCH /tareas/:id/progreso
	// Reporta avance de producción sobre una tarea.
	// Body: { "cantidad": float, "usuario": string }
	h.router.PATCH("/tareas/:id/progreso", func(c *gin.Context) {
		tareaID, ok := paramInt(c, "id")
		if !ok {
			return
		}

		var request struct {
			Cantidad *float64 `json:"cantidad" binding:"required"` // Pointer para aceptar 0
			Usuario  string   `json:"usuario" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			BadRequest(c, "Formato de body inválido",
				gin.H{
					"required_format": gin.H{
						"cantidad": "number (float)",
						"usuario":  "string",
					},
					"error": err.Error(),
				})
			return
		}

		ctx := c.Request.Context()
		tarea, err := h.almacen.ObtenerTarea(ctx, tareaID)
		if err != nil {
			if errors.Is(err, scheduler.ErrNoEncontrado) {
				TareaNotFound(c, tareaID)
				return
			}
			respondError(c, "obtener_tarea", err)
			return
		}

		actualizada, err := h.planificadorPara(tarea.ProgramaID).ActualizarProgresoTarea(ctx, tareaID, *request.Cantidad, request.Usuario)
		if err != nil {
			respondError(c, "actualizar_progreso", err)
			return
		}

		h.wsHub.NotifyProgresoTarea(actualizada.ProgramaID, actualizada)
		Success(c, actualizada, "Progreso actualizado exitosamente")
	})

	// Endpoint PATCH /tareas/:id/tiempo-real
	// Registra el tiempo real de ejecución de una tarea.
	// Body: { "fecha_inicio": "YYYY-MM-DD HH:MM:SS", "fecha_fin": "...", "usuario": string }
	h.router.PATCH("/tareas/:id/tiempo-real", func(c *gin.Context) {
		tareaID, ok := paramInt(c, "id")
		if !ok {
			return
		}

		var request struct {
			FechaInicio string `json:"fecha_inicio" binding:"required"`
			FechaFin    string `json:"fecha_fin" binding:"required"`
			Usuario     string `json:"usuario" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			BadRequest(c, "Formato de body inválido",
				gin.H{
					"required_format": gin.H{
						"fecha_inicio": "string (YYYY-MM-DD HH:MM:SS)",
						"fecha_fin":    "string (YYYY-MM-DD HH:MM:SS)",
						"usuario":      "string",
					},
					"error": err.Error(),
				})
			return
		}

		inicio, err := time.ParseInLocation(scheduler.FormatoFechaHora, request.FechaInicio, time.Local)
		if err != nil {
			ValidationError(c, "fecha_inicio", "debe tener formato YYYY-MM-DD HH:MM:SS")
			return
		}
		fin, err := time.ParseInLocation(scheduler.FormatoFechaHora, request.FechaFin, time.Local)
		if err != nil {
			ValidationError(c, "fecha_fin", "debe tener formato YYYY-MM-DD HH:MM:SS")
			return
		}

		ctx := c.Request.Context()
		tarea, err := h.almacen.ObtenerTarea(ctx, tareaID)
		if err != nil {
			if errors.Is(err, scheduler.ErrNoEncontrado) {
				TareaNotFound(c, tareaID)
				return
			}
			respondError(c, "obtener_tarea", err)
			return
		}

		actualizada, err := h.planificadorPara(tarea.ProgramaID).ActualizarTiempoRealTarea(ctx, tareaID, inicio, fin, request.Usuario)
		if err != nil {
			respondError(c, "actualizar_tiempo_real", err)
			return
		}

		Success(c, actualizada, "Tiempo real registrado exitosamente")
	})

	// Endpoint POST /tareas/:id/propagar
	// Propaga el ajuste manual de una tarea hacia las tareas posteriores.
	// Body: { "usuario": string }
	h.router.POST("/tareas/:id/propagar", func(c *gin.Context) {
		tareaID, ok := paramInt(c, "id")
		if !ok {
			return
		}

		var request struct {
			Usuario string `json:"usuario" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			BadRequest(c, "Formato de body inválido",
				gin.H{"required_format": gin.H{"usuario": "string"}, "error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		tarea, err := h.almacen.ObtenerTarea(ctx, tareaID)
		if err != nil {
			if errors.Is(err, scheduler.ErrNoEncontrado) {
				TareaNotFound(c, tareaID)
				return
			}
			respondError(c, "obtener_tarea", err)
			return
		}

		if err := h.planificadorPara(tarea.ProgramaID).PropagarAjusteTarea(ctx, tareaID, request.Usuario); err != nil {
			respondError(c, "propagar_ajuste", err)
			return
		}

		h.notificarTimeline(ctx, tarea.ProgramaID)
		Success(c, gin.H{
			"tarea_id":    tareaID,
			"programa_id": tarea.ProgramaID,
		}, "Ajuste propagado exitosamente")
	})

	// Endpoint POST /tareas/:id/continuacion
	// Crea manualmente la continuación de una tarea con faltante.
	// Body: { "usuario": string }
	h.router.POST("/tareas/:id/continuacion", func(c *gin.Context) {
		tareaID, ok := paramInt(c, "id")
		if !ok {
			return
		}

		var request struct {
			Usuario string `json:"usuario" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			BadRequest(c, "Formato de body inválido",
				gin.H{"required_format": gin.H{"usuario": "string"}, "error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		tarea, err := h.almacen.ObtenerTarea(ctx, tareaID)
		if err != nil {
			if errors.Is(err, scheduler.ErrNoEncontrado) {
				TareaNotFound(c, tareaID)
				return
			}
			respondError(c, "obtener_tarea", err)
			return
		}

		continuacion, err := h.planificadorPara(tarea.ProgramaID).CrearContinuacion(ctx, tareaID, request.Usuario)
		if err != nil {
			respondError(c, "crear_continuacion", err)
			return
		}

		h.notificarTimeline(ctx, tarea.ProgramaID)
		Created(c, continuacion, "Continuación creada exitosamente")
	})

	// Endpoint POST /programas/:id/reportes/bloqueo
	// Toma el bloqueo consultivo de edición del reporte diario.
	// Body: { "fecha": "YYYY-MM-DD", "usuario": string }
	h.router.POST("/programas/:id/reportes/bloqueo", func(c *gin.Context) {
		programaID, ok := paramInt(c, "id")
		if !ok {
			return
		}

		var request struct {
			Fecha   string `json:"fecha" binding:"required"`
			Usuario string `json:"usuario" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			BadRequest(c, "Formato de body inválido",
				gin.H{
					"required_format": gin.H{
						"fecha":   "string (YYYY-MM-DD)",
						"usuario": "string",
					},
					"error": err.Error(),
				})
			return
		}

		fecha, err := time.ParseInLocation(FormatoFecha, request.Fecha, time.Local)
		if err != nil {
			ValidationError(c, "fecha", "debe tener formato YYYY-MM-DD")
			return
		}

		ctx := c.Request.Context()
		reporte, err := h.almacen.ObtenerReporteDiario(ctx, programaID, fecha)
		if err != nil {
			if errors.Is(err, scheduler.ErrNoEncontrado) {
				NotFound(c, "No existe reporte diario para la fecha indicada",
					gin.H{"programa_id": programaID, "fecha": request.Fecha})
				return
			}
			respondError(c, "obtener_reporte", err)
			return
		}

		if err := reporte.AdquirirBloqueo(request.Usuario, time.Now(), h.cfg.Planificacion.GetBloqueoEdicionDuration()); err != nil {
			TareaBloqueada(c, reporte.ID, reporte.BloqueadoPor)
			return
		}

		if err := h.almacen.GuardarReporteDiario(ctx, reporte); err != nil {
			respondError(c, "guardar_reporte", err)
			return
		}

		Success(c, reporte, "Bloqueo adquirido exitosamente")
	})

	// Endpoint DELETE /programas/:id/reportes/bloqueo
	// Libera el bloqueo consultivo si lo mantiene el usuario indicado.
	// Body: { "fecha": "YYYY-MM-DD", "usuario": string }
	h.router.DELETE("/programas/:id/reportes/bloqueo", func(c *gin.Context) {
		programaID, ok := paramInt(c, "id")
		if !ok {
			return
		}

		var request struct {
			Fecha   string `json:"fecha" binding:"required"`
			Usuario string `json:"usuario" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			BadRequest(c, "Formato de body inválido",
				gin.H{
					"required_format": gin.H{
						"fecha":   "string (YYYY-MM-DD)",
						"usuario": "string",
					},
					"error": err.Error(),
				})
			return
		}

		fecha, err := time.ParseInLocation(FormatoFecha, request.Fecha, time.Local)
		if err != nil {
			ValidationError(c, "fecha", "debe tener formato YYYY-MM-DD")
			return
		}

		ctx := c.Request.Context()
		reporte, err := h.almacen.ObtenerReporteDiario(ctx, programaID, fecha)
		if err != nil {
			if errors.Is(err, scheduler.ErrNoEncontrado) {
				NotFound(c, "No existe reporte diario para la fecha indicada",
					gin.H{"programa_id": programaID, "fecha": request.Fecha})
				return
			}
			respondError(c, "obtener_reporte", err)
			return
		}

		reporte.LiberarBloqueo(request.Usuario)
		if err := h.almacen.GuardarReporteDiario(ctx, reporte); err != nil {
			respondError(c, "guardar_reporte", err)
			return
		}

		NoContent(c)
	})

	// Endpoint GET /maquinas
	// Lista las máquinas configuradas en planta
	h.router.GET("/maquinas", func(c *gin.Context) {
		Success(c, h.cfg.Maquinas, "Máquinas obtenidas exitosamente")
	})

	// Endpoint GET /maquinas/estado
	// Estado en línea de las máquinas según el PLC
	h.router.GET("/maquinas/estado", func(c *gin.Context) {
		if h.monitor == nil {
			RespondWithError(c, http.StatusServiceUnavailable, ErrCodeServiceUnavail,
				"Monitor OPC UA no disponible", nil,
				"La planta no tiene PLC configurado o la conexión está caída")
			return
		}
		Success(c, h.monitor.LeerTodas(c.Request.Context()), "Estados de máquina obtenidos exitosamente")
	})

	// Endpoint GET /programas/:id/maquinas/:maquina_id/carga
	// Horas planificadas de la máquina en una ventana.
	// Query: desde=YYYY-MM-DD, hasta=YYYY-MM-DD
	h.router.GET("/programas/:id/maquinas/:maquina_id/carga", func(c *gin.Context) {
		programaID, ok := paramInt(c, "id")
		if !ok {
			return
		}
		maquinaID, ok := paramInt(c, "maquina_id")
		if !ok {
			return
		}

		desde, err := time.ParseInLocation(FormatoFecha, c.Query("desde"), time.Local)
		if err != nil {
			ValidationError(c, "desde", "debe tener formato YYYY-MM-DD")
			return
		}
		hasta, err := time.ParseInLocation(FormatoFecha, c.Query("hasta"), time.Local)
		if err != nil {
			ValidationError(c, "hasta", "debe tener formato YYYY-MM-DD")
			return
		}
		// La ventana es inclusiva del día 'hasta' completo
		hasta = hasta.AddDate(0, 0, 1)

		disponibilidad := scheduler.NewDisponibilidadTareas(h.almacen, programaID)
		horas, err := disponibilidad.CargaMaquina(c.Request.Context(), maquinaID, desde, hasta)
		if err != nil {
			respondError(c, "carga_maquina", err)
			return
		}

		Success(c, gin.H{
			"programa_id": programaID,
			"maquina_id":  maquinaID,
			"desde":       desde.Format(FormatoFecha),
			"hasta":       hasta.AddDate(0, 0, -1).Format(FormatoFecha),
			"horas_plan":  horas,
		}, "Carga de máquina calculada exitosamente")
	})
}

func (h *HTTPFrontend) Start() error {
	h.setupRoutes()

	// Configurar rutas de WebSocket
	SetupWebSocketRoutes(h.router, h.wsHub)

	return h.router.Run(h.addr)
}

func (h *HTTPFrontend) GetRouter() *gin.Engine {
	return h.router
}
