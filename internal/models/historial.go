package models

import "time"

// Tipos de cambio por tarea registrados en un historial de planificación.
const (
	CambioTareaCompletada   = "COMPLETADO"
	CambioTareaContinuacion = "CONTINUACION"
)

// CambioTarea describe qué le pasó a una tarea durante un reajuste.
type CambioTarea struct {
	TareaID            int     `json:"tarea_id"`
	Tipo               string  `json:"tipo"` // COMPLETADO | CONTINUACION
	EstadoAnterior     string  `json:"estado_anterior"`
	EstadoNuevo        string  `json:"estado_nuevo"`
	ContinuacionID     int     `json:"continuacion_id,omitempty"`
	CantidadArrastrada float64 `json:"cantidad_arrastrada,omitempty"`
}

// HistorialPlanificacion es un snapshot append-only de la línea de tiempo antes
// y después de un reajuste. Para el tipo DIARIO existe a lo más uno por
// (programa, fecha): es la guardia de idempotencia del cierre de día.
type HistorialPlanificacion struct {
	ID              int           `json:"id"`
	UUID            string        `json:"uuid"`
	ProgramaID      int           `json:"programa_id"`
	FechaReferencia time.Time     `json:"fecha_referencia"`
	TipoReajuste    string        `json:"tipo_reajuste"`
	TimelineAntes   []byte        `json:"timeline_antes,omitempty"`   // JSON del timeline previo
	TimelineDespues []byte        `json:"timeline_despues,omitempty"` // JSON del timeline resultante
	Cambios         []CambioTarea `json:"cambios,omitempty"`
	CreadoPor       string        `json:"creado_por"`
	CreadoEn        time.Time     `json:"creado_en"`
}
