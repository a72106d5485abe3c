package models

import (
	"fmt"
	"time"
)

// MaxEntradasHistorial es el tope del log de cambios de una tarea fragmentada.
// Al superarlo se descartan las entradas más antiguas.
const MaxEntradasHistorial = 50

// MaxNivelFragmentacion acota la caminata por la cadena de continuaciones.
const MaxNivelFragmentacion = 100

// Tipos de cambio registrados en el historial de una tarea.
const (
	CambioProgreso      = "PROGRESO"
	CambioEstado        = "ESTADO"
	CambioFechas        = "FECHAS"
	CambioContinuacion  = "CONTINUACION"
	CambioTiempoReal    = "TIEMPO_REAL"
	CambioClampCantidad = "CLAMP_CANTIDAD"
)

// EntradaHistorial es una entrada del log de cambios de una tarea. El campo
// Tipo discrimina qué campos del payload aplican.
type EntradaHistorial struct {
	Tipo      string    `json:"tipo"`
	Fecha     time.Time `json:"fecha"`
	Usuario   string    `json:"usuario,omitempty"`
	Detalle   string    `json:"detalle,omitempty"`
	Anterior  float64   `json:"valor_anterior,omitempty"`
	Nuevo     float64   `json:"valor_nuevo,omitempty"`
	EstadoAnt string    `json:"estado_anterior,omitempty"`
	EstadoNvo string    `json:"estado_nuevo,omitempty"`
}

// TareaFragmentada es la unidad central de planificación: la rebanada de un día
// de trabajo sobre un proceso ruteado dentro de un programa.
type TareaFragmentada struct {
	ID                        int                `json:"id"`
	ProgramaID                int                `json:"programa_id"`
	TareaOriginalID           int                `json:"tarea_original_id"` // ItemRuta
	OrdenTrabajoID            int                `json:"orden_trabajo_id"`
	MaquinaID                 int                `json:"maquina_id"`
	Fecha                     time.Time          `json:"fecha"` // día calendario de la rebanada
	CantidadAsignada          float64            `json:"cantidad_asignada"`
	CantidadPendienteAnterior float64            `json:"cantidad_pendiente_anterior"`
	CantidadCompletada        float64            `json:"cantidad_completada"`
	FechaInicioPlan           time.Time          `json:"fecha_inicio_planificada"`
	FechaFinPlan              time.Time          `json:"fecha_fin_planificada"`
	FechaInicioReal           time.Time          `json:"fecha_inicio_real,omitempty"`
	FechaFinReal              time.Time          `json:"fecha_fin_real,omitempty"`
	Estado                    string             `json:"estado"`
	TareaPadreID              int                `json:"tarea_padre_id,omitempty"` // 0 = sin padre
	NivelFragmentacion        int                `json:"nivel_fragmentacion"`
	Operador                  string             `json:"operador,omitempty"`
	VersionPlanificacion      int                `json:"version_planificacion"`
	MotivoModificacion        string             `json:"motivo_modificacion,omitempty"`
	HistorialCambios          []EntradaHistorial `json:"historial_cambios,omitempty"`
}

// CantidadTotalDia es el total a producir en el día: lo asignado más el arrastre
// del día anterior.
func (t *TareaFragmentada) CantidadTotalDia() float64 {
	return t.CantidadAsignada + t.CantidadPendienteAnterior
}

// CantidadPendiente es lo que falta por producir en el día.
func (t *TareaFragmentada) CantidadPendiente() float64 {
	pendiente := t.CantidadTotalDia() - t.CantidadCompletada
	if pendiente < 0 {
		return 0
	}
	return pendiente
}

// PorcentajeCompletado devuelve el avance del día en porcentaje [0, 100].
func (t *TareaFragmentada) PorcentajeCompletado() float64 {
	total := t.CantidadTotalDia()
	if total <= 0 {
		return 0
	}
	pct := t.CantidadCompletada / total * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// EsContinuacion indica si la tarea nació como continuación de otra.
func (t *TareaFragmentada) EsContinuacion() bool {
	return t.TareaPadreID != 0
}

// RegistrarCambio agrega una entrada al historial, truncando a las
// MaxEntradasHistorial más recientes.
func (t *TareaFragmentada) RegistrarCambio(entrada EntradaHistorial) {
	if entrada.Fecha.IsZero() {
		entrada.Fecha = time.Now()
	}
	t.HistorialCambios = append(t.HistorialCambios, entrada)
	if exceso := len(t.HistorialCambios) - MaxEntradasHistorial; exceso > 0 {
		t.HistorialCambios = append([]EntradaHistorial(nil), t.HistorialCambios[exceso:]...)
	}
}

// ActualizarProgreso registra una nueva cantidad completada acumulada para el
// día. Transiciona PENDIENTE→EN_PROCESO con el primer avance y a COMPLETADO al
// cubrir el total del día. Cantidades sobre el total del día se recortan al
// tope, dejando constancia en el historial.
func (t *TareaFragmentada) ActualizarProgreso(nuevaCantidad float64, usuario string, ahora time.Time) error {
	if nuevaCantidad < 0 {
		return fmt.Errorf("cantidad completada inválida %.2f: no puede ser negativa", nuevaCantidad)
	}
	if t.Estado == EstadoTareaDetenida {
		return fmt.Errorf("la tarea %d está DETENIDA, no admite avances", t.ID)
	}

	total := t.CantidadTotalDia()
	if nuevaCantidad > total {
		t.RegistrarCambio(EntradaHistorial{
			Tipo:     CambioClampCantidad,
			Fecha:    ahora,
			Usuario:  usuario,
			Detalle:  fmt.Sprintf("cantidad %.2f recortada al total del día %.2f", nuevaCantidad, total),
			Anterior: nuevaCantidad,
			Nuevo:    total,
		})
		nuevaCantidad = total
	}

	anterior := t.CantidadCompletada
	t.CantidadCompletada = nuevaCantidad
	t.RegistrarCambio(EntradaHistorial{
		Tipo:     CambioProgreso,
		Fecha:    ahora,
		Usuario:  usuario,
		Anterior: anterior,
		Nuevo:    nuevaCantidad,
	})

	if t.Estado == EstadoTareaPendiente && nuevaCantidad > 0 {
		t.cambiarEstado(EstadoTareaEnProceso, usuario, ahora)
		if t.FechaInicioReal.IsZero() {
			t.FechaInicioReal = ahora
		}
	}
	if nuevaCantidad >= total && total > 0 && t.Estado != EstadoTareaCompletada {
		t.cambiarEstado(EstadoTareaCompletada, usuario, ahora)
		t.FechaFinReal = ahora
	}
	return nil
}

// ActualizarTiempoReal registra los instantes reales de inicio y fin del día.
func (t *TareaFragmentada) ActualizarTiempoReal(inicio, fin time.Time, usuario string) error {
	if !fin.IsZero() && !inicio.IsZero() && fin.Before(inicio) {
		return fmt.Errorf("fin real %s anterior al inicio real %s", fin.Format("15:04"), inicio.Format("15:04"))
	}
	if !inicio.IsZero() {
		t.FechaInicioReal = inicio
	}
	if !fin.IsZero() {
		t.FechaFinReal = fin
	}
	t.RegistrarCambio(EntradaHistorial{
		Tipo:    CambioTiempoReal,
		Usuario: usuario,
		Detalle: fmt.Sprintf("inicio=%s fin=%s", formatoOVacio(inicio), formatoOVacio(fin)),
	})
	return nil
}

// MarcarContinuada transiciona la tarea a CONTINUADO dejando registro del
// enlace con su continuación.
func (t *TareaFragmentada) MarcarContinuada(continuacionID int, usuario string, ahora time.Time) {
	estadoAnterior := t.Estado
	t.Estado = EstadoTareaContinuada
	t.RegistrarCambio(EntradaHistorial{
		Tipo:      CambioContinuacion,
		Fecha:     ahora,
		Usuario:   usuario,
		Detalle:   fmt.Sprintf("continuación en tarea %d", continuacionID),
		EstadoAnt: estadoAnterior,
		EstadoNvo: EstadoTareaContinuada,
	})
}

func (t *TareaFragmentada) cambiarEstado(nuevo, usuario string, ahora time.Time) {
	anterior := t.Estado
	t.Estado = nuevo
	t.RegistrarCambio(EntradaHistorial{
		Tipo:      CambioEstado,
		Fecha:     ahora,
		Usuario:   usuario,
		EstadoAnt: anterior,
		EstadoNvo: nuevo,
	})
}

func formatoOVacio(instante time.Time) string {
	if instante.IsZero() {
		return "-"
	}
	return instante.Format("2006-01-02 15:04:05")
}

// CantidadAsignadaOriginal recorre la cadena de ancestros de una continuación
// para encontrar la cantidad asignada de la tarea raíz. La caminata está
// acotada por el nivel de fragmentación para garantizar término aunque los
// enlaces estén corruptos.
func CantidadAsignadaOriginal(tarea *TareaFragmentada, buscar func(id int) *TareaFragmentada) (float64, error) {
	actual := tarea
	for salto := 0; salto <= MaxNivelFragmentacion; salto++ {
		if actual.TareaPadreID == 0 {
			return actual.CantidadAsignada, nil
		}
		padre := buscar(actual.TareaPadreID)
		if padre == nil {
			return 0, fmt.Errorf("tarea padre %d de la tarea %d no encontrada", actual.TareaPadreID, actual.ID)
		}
		actual = padre
	}
	return 0, fmt.Errorf("cadena de continuaciones de la tarea %d excede %d niveles", tarea.ID, MaxNivelFragmentacion)
}
