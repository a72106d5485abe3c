package scheduler

import (
	"fmt"
	"sort"
	"time"
)

// FormatoFechaHora es el formato de fecha-hora del contrato JSON con el
// front-end. No cambiar: el visualizador lo parsea textualmente.
const FormatoFechaHora = "2006-01-02 15:04:05"

// Nombres de los bloques de medio día.
const (
	BloqueManana = "Mañana"
	BloqueTarde  = "Tarde"
)

// ProcesoTimeline es el metadato de un proceso dentro de un grupo del timeline.
// Los procesos sin estándar válido igualmente aparecen aquí aunque no generen
// items.
type ProcesoTimeline struct {
	ID          string `json:"id"`
	Descripcion string `json:"descripcion"`
	Item        int    `json:"item"`
}

// GrupoTimeline agrupa los procesos de una OT en el timeline.
type GrupoTimeline struct {
	ID                   string            `json:"id"`
	OrdenTrabajoCodigoOT string            `json:"orden_trabajo_codigo_ot"`
	Descripcion          string            `json:"descripcion"`
	Procesos             []ProcesoTimeline `json:"procesos"`
}

// ItemTimeline es un bloque visual del timeline: un tramo de medio día de un
// proceso sobre una máquina. Los nombres de campo y el formato de fechas son
// contrato con el front-end.
type ItemTimeline struct {
	ID                string  `json:"id"`
	OTID              int     `json:"ot_id"`
	ProcesoID         string  `json:"proceso_id"`
	Nombre            string  `json:"name"`
	FechaInicio       string  `json:"start_time"` // YYYY-MM-DD HH:MM:SS
	FechaFin          string  `json:"end_time"`
	CantidadTotal     float64 `json:"cantidad_total"`
	CantidadIntervalo float64 `json:"cantidad_intervalo"`
	Estandar          float64 `json:"estandar"`
	Maquina           string  `json:"maquina"`
	Estado            string  `json:"estado"`
	EsFragmento       bool    `json:"es_fragmento,omitempty"`
	TareaID           int     `json:"tarea_id,omitempty"`
}

// Timeline es la salida aplanada del planificador: grupos por OT e items por
// bloque de día.
type Timeline struct {
	Groups []GrupoTimeline `json:"groups"`
	Items  []ItemTimeline  `json:"items"`
}

// bloqueDia acumula los intervalos de un proceso dentro de un medio día.
type bloqueDia struct {
	nombre   string
	inicio   time.Time
	fin      time.Time
	unidades float64
}

// CrearBloquesPorDia agrupa los intervalos de un nodo por fecha calendario y
// los parte en un bloque "Mañana" (todo lo que termina a más tardar al inicio
// de colación) y un bloque "Tarde" (todo lo que parte desde el fin de
// colación), unificando múltiples intervalos-hora en un solo item visual con
// unidades sumadas. Es agregación de presentación, no decisión de agenda.
func CrearBloquesPorDia(nodo *NodoProceso) []ItemTimeline {
	cal := NewCalendarioLaboral()

	type claveBloque struct {
		fecha  string
		nombre string
	}
	bloques := make(map[claveBloque]*bloqueDia)
	var orden []claveBloque

	for _, intervalo := range nodo.Intervalos {
		nombre := BloqueTarde
		if !intervalo.Fin.After(cal.InicioColacion(intervalo.Inicio)) {
			nombre = BloqueManana
		}
		clave := claveBloque{fecha: intervalo.Inicio.Format("2006-01-02"), nombre: nombre}

		b, ok := bloques[clave]
		if !ok {
			b = &bloqueDia{nombre: nombre, inicio: intervalo.Inicio, fin: intervalo.Fin}
			bloques[clave] = b
			orden = append(orden, clave)
		}
		if intervalo.Inicio.Before(b.inicio) {
			b.inicio = intervalo.Inicio
		}
		if intervalo.Fin.After(b.fin) {
			b.fin = intervalo.Fin
		}
		b.unidades += intervalo.Unidades
	}

	items := make([]ItemTimeline, 0, len(orden))
	for i, clave := range orden {
		b := bloques[clave]
		items = append(items, ItemTimeline{
			ID:                fmt.Sprintf("proc_%d_bloque_%d", nodo.ItemRutaID, i),
			OTID:              nodo.OrdenTrabajoID,
			ProcesoID:         fmt.Sprintf("proc_%d", nodo.ItemRutaID),
			Nombre:            fmt.Sprintf("%s - %s", nodo.Descripcion, b.nombre),
			FechaInicio:       b.inicio.Format(FormatoFechaHora),
			FechaFin:          b.fin.Format(FormatoFechaHora),
			CantidadTotal:     nodo.Cantidad,
			CantidadIntervalo: b.unidades,
			Estandar:          nodo.Estandar,
			Maquina:           nodo.Maquina,
			Estado:            nodo.Estado,
		})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].FechaInicio < items[j].FechaInicio })
	return items
}
