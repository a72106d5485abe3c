package models

// Estados de un ItemRuta (proceso ruteado).
const (
	EstadoProcesoPendiente  = "PENDIENTE"
	EstadoProcesoEnProceso  = "EN_PROCESO"
	EstadoProcesoCompletado = "COMPLETADO"
	EstadoProcesoPausado    = "PAUSADO"
	EstadoProcesoCancelado  = "CANCELADO"
)

// Estados de una TareaFragmentada.
const (
	EstadoTareaPendiente  = "PENDIENTE"
	EstadoTareaEnProceso  = "EN_PROCESO"
	EstadoTareaCompletada = "COMPLETADO"
	EstadoTareaContinuada = "CONTINUADO"
	EstadoTareaDetenida   = "DETENIDO"
)

// Situaciones de una OrdenTrabajo. Solo P y S son planificables.
const (
	SituacionPendiente   = "P"
	SituacionSinImprimir = "S"
	SituacionTerminada   = "T"
	SituacionCancelada   = "C"
	SituacionAnulada     = "A"
)

// Estados de un ReporteDiarioPrograma.
const (
	ReporteAbierto    = "ABIERTO"
	ReporteCerrado    = "CERRADO"
	ReporteEnRevision = "EN_REVISION"
)

// Tipos de reajuste de un HistorialPlanificacion.
const (
	ReajusteInicial          = "INICIAL"
	ReajusteDiario           = "DIARIO"
	ReajusteManual           = "MANUAL"
	ReajusteContinuacion     = "CONTINUACION"
	ReajusteAjusteAutomatico = "AJUSTE_AUTOMATICO"
)

// Motivos de modificación de una tarea fragmentada.
const (
	MotivoAjusteMaquina = "AJUSTE_MAQUINA"
	MotivoFinalizarDia  = "FINALIZAR_DIA"
	MotivoRegeneracion  = "REGENERACION"
)

// SituacionPlanificable indica si una OT puede entrar a un programa.
func SituacionPlanificable(situacion string) bool {
	return situacion == SituacionPendiente || situacion == SituacionSinImprimir
}
