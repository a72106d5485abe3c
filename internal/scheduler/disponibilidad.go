package scheduler

import (
	"context"
	"time"

	"API-PLANIFICACION/internal/models"
)

// ResultadoConflicto es la respuesta del servicio de disponibilidad: si la
// máquina está ocupada en el intervalo consultado y, de estarlo, el próximo
// instante libre.
type ResultadoConflicto struct {
	TieneConflicto  bool      `json:"tiene_conflicto"`
	FechaDisponible time.Time `json:"fecha_disponible"`
}

// DisponibilidadMaquinas reporta si una máquina está libre en un intervalo.
// El planificador lo trata como un oráculo externo: no es un componente suyo.
type DisponibilidadMaquinas interface {
	VerificarConflicto(ctx context.Context, maquinaID int, inicio, fin time.Time, prioridad int) (*ResultadoConflicto, error)
	CargaMaquina(ctx context.Context, maquinaID int, desde, hasta time.Time) (float64, error)
}

// DisponibilidadTareas implementa DisponibilidadMaquinas sobre las tareas
// fragmentadas persistidas. Para el planificador la ocupación relevante es la
// AJENA al programa en curso: sus propios fragmentos pendientes van a ser
// reemplazados por el plan que se está generando y no pueden estorbarlo.
type DisponibilidadTareas struct {
	almacen    Almacen
	programaID int
	cal        *CalendarioLaboral
}

// NewDisponibilidadTareas construye el servicio acotado a un programa.
func NewDisponibilidadTareas(almacen Almacen, programaID int) *DisponibilidadTareas {
	return &DisponibilidadTareas{
		almacen:    almacen,
		programaID: programaID,
		cal:        NewCalendarioLaboral(),
	}
}

// VerificarConflicto revisa solapamientos del intervalo con las tareas
// planificadas de la máquina en otros programas. FechaDisponible es el mayor
// fin planificado de las tareas en conflicto.
func (d *DisponibilidadTareas) VerificarConflicto(ctx context.Context, maquinaID int, inicio, fin time.Time, prioridad int) (*ResultadoConflicto, error) {
	tareas, err := d.almacen.TareasDeMaquina(ctx, maquinaID, inicio)
	if err != nil {
		return nil, err
	}

	resultado := &ResultadoConflicto{FechaDisponible: inicio}
	for i := range tareas {
		t := &tareas[i]
		if t.ProgramaID == d.programaID || esEstadoTerminal(t.Estado) {
			continue
		}
		if t.FechaInicioPlan.Before(fin) && inicio.Before(t.FechaFinPlan) {
			resultado.TieneConflicto = true
			if t.FechaFinPlan.After(resultado.FechaDisponible) {
				resultado.FechaDisponible = t.FechaFinPlan
			}
		}
	}
	if resultado.TieneConflicto {
		resultado.FechaDisponible = d.cal.AjustarAHorarioLaboral(resultado.FechaDisponible)
	}
	return resultado, nil
}

// CargaMaquina devuelve las horas planificadas de la máquina en la ventana.
// A diferencia de VerificarConflicto, acá interesa la carga del propio
// programa: es lo que reporta el endpoint de carga por máquina.
func (d *DisponibilidadTareas) CargaMaquina(ctx context.Context, maquinaID int, desde, hasta time.Time) (float64, error) {
	tareas, err := d.almacen.TareasDesdeFecha(ctx, d.programaID, desde)
	if err != nil {
		return 0, err
	}

	horas := 0.0
	for i := range tareas {
		t := &tareas[i]
		if t.MaquinaID != maquinaID || esEstadoTerminal(t.Estado) {
			continue
		}
		ini := t.FechaInicioPlan
		fin := t.FechaFinPlan
		if ini.Before(desde) {
			ini = desde
		}
		if fin.After(hasta) {
			fin = hasta
		}
		if fin.After(ini) {
			horas += fin.Sub(ini).Hours()
		}
	}
	return horas, nil
}

func esEstadoTerminal(estado string) bool {
	return estado == models.EstadoTareaCompletada || estado == models.EstadoTareaContinuada
}
