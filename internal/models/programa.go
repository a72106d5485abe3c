package models

import (
	"fmt"
	"sort"
	"time"
)

// ProgramaProduccion es un lote de planificación: agrupa varias OTs con
// prioridades relativas sobre una ventana de fechas. La fecha de término es
// derivada (máximo de los fines proyectados de sus tareas).
type ProgramaProduccion struct {
	ID            int                    `json:"id"`
	Nombre        string                 `json:"nombre"`
	FechaInicio   time.Time              `json:"fecha_inicio"`
	FechaFin      time.Time              `json:"fecha_fin"`
	Ordenes       []ProgramaOrdenTrabajo `json:"ordenes"`
	CreadoEn      time.Time              `json:"creado_en"`
	ActualizadoEn time.Time              `json:"actualizado_en"`
}

// NombreODefecto devuelve el nombre del programa, generando uno a partir de la
// fecha de inicio cuando viene en blanco.
func (p *ProgramaProduccion) NombreODefecto() string {
	if p.Nombre != "" {
		return p.Nombre
	}
	return fmt.Sprintf("Programa %s", p.FechaInicio.Format("02/01/2006"))
}

// ProgramaOrdenTrabajo es la membresía de una OT en un programa, con su
// prioridad entera (menor = se planifica primero).
type ProgramaOrdenTrabajo struct {
	ID             int `json:"id"`
	ProgramaID     int `json:"programa_id"`
	OrdenTrabajoID int `json:"orden_trabajo_id"`
	Prioridad      int `json:"prioridad"`
}

// OrdenConPrioridad empareja una OT cargada con su prioridad dentro del
// programa. Es la forma en que el planificador recibe las órdenes.
type OrdenConPrioridad struct {
	Orden     *OrdenTrabajo `json:"orden_trabajo"`
	Prioridad int           `json:"prioridad"`
}

// OrdenarPorPrioridad ordena las órdenes por prioridad ascendente; empates se
// resuelven por ID de OT para mantener un orden estable.
func OrdenarPorPrioridad(ordenes []OrdenConPrioridad) []OrdenConPrioridad {
	out := make([]OrdenConPrioridad, len(ordenes))
	copy(out, ordenes)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Prioridad != out[j].Prioridad {
			return out[i].Prioridad < out[j].Prioridad
		}
		return out[i].Orden.ID < out[j].Orden.ID
	})
	return out
}
