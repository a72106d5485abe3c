package models

import (
	"fmt"
	"sort"
)

// OrdenTrabajo representa una orden de trabajo (OT): la unidad de demanda del
// cliente, con su producto objetivo y cantidades pedida/avanzada.
type OrdenTrabajo struct {
	ID             int     `json:"id"`
	CodigoOT       string  `json:"codigo_ot"`
	Descripcion    string  `json:"descripcion_producto_ot"`
	CodigoProducto string  `json:"codigo_producto_inicial"`
	CantidadPedida float64 `json:"cantidad"`
	CantidadAvance float64 `json:"cantidad_avance"`
	Situacion      string  `json:"situacion_ot"` // P, S, T, C, A
	Ruta           *RutaOT `json:"ruta_ot,omitempty"`
}

// EsPlanificable indica si la OT puede incluirse en un programa de producción.
func (ot *OrdenTrabajo) EsPlanificable() bool {
	return SituacionPlanificable(ot.Situacion)
}

// RutaOT es la ruta de fabricación de una OT: el conjunto ordenado de procesos
// (máquina + proceso + estándar) por los que debe pasar el producto.
type RutaOT struct {
	ID             int        `json:"id"`
	OrdenTrabajoID int        `json:"orden_trabajo_id"`
	Items          []ItemRuta `json:"items"`
}

// ItemsOrdenados devuelve los items de la ruta ordenados por número de item.
func (r *RutaOT) ItemsOrdenados() []ItemRuta {
	items := make([]ItemRuta, len(r.Items))
	copy(items, r.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].Item < items[j].Item })
	return items
}

// BuscarItem busca un item de ruta por su ID. Devuelve nil si no existe.
func (r *RutaOT) BuscarItem(itemRutaID int) *ItemRuta {
	for i := range r.Items {
		if r.Items[i].ID == itemRutaID {
			return &r.Items[i]
		}
	}
	return nil
}

// ItemRuta es un paso de la ruta de una OT: un proceso sobre una máquina con un
// estándar de producción (unidades/hora). Muchas tareas fragmentadas referencian
// un ItemRuta como su tarea original.
type ItemRuta struct {
	ID                 int     `json:"id"`
	RutaID             int     `json:"ruta_id"`
	Item               int     `json:"item"` // orden dentro de la ruta
	CodigoProceso      string  `json:"codigo_proceso"`
	DescripcionProceso string  `json:"descripcion_proceso"`
	MaquinaID          int     `json:"maquina_id"`
	DescripcionMaquina string  `json:"descripcion_maquina"`
	Estandar           float64 `json:"estandar"` // unidades/hora; <= 0 no es planificable
	CantidadPedida     float64 `json:"cantidad_pedido"`
	CantidadTerminada  float64 `json:"cantidad_terminado_proceso"`
	Estado             string  `json:"estado_proceso"`
}

// CantidadPendiente es la cantidad que falta por producir en este proceso.
// Nunca devuelve un valor negativo aunque el terminado exceda lo pedido.
func (it *ItemRuta) CantidadPendiente() float64 {
	pendiente := it.CantidadPedida - it.CantidadTerminada
	if pendiente < 0 {
		return 0
	}
	return pendiente
}

// TieneEstandarValido indica si el item tiene un estándar utilizable para
// planificar.
func (it *ItemRuta) TieneEstandarValido() bool {
	return it.Estandar > 0
}

// Validar comprueba las condiciones mínimas para que el item entre al
// planificador.
func (it *ItemRuta) Validar() error {
	if it.Estandar <= 0 {
		return fmt.Errorf("item %d (proceso %s): estándar inválido %.2f, debe ser mayor a cero",
			it.Item, it.CodigoProceso, it.Estandar)
	}
	if it.CantidadPedida <= 0 {
		return fmt.Errorf("item %d (proceso %s): cantidad pedida inválida %.2f",
			it.Item, it.CodigoProceso, it.CantidadPedida)
	}
	if it.MaquinaID == 0 {
		return fmt.Errorf("item %d (proceso %s): sin máquina asignada", it.Item, it.CodigoProceso)
	}
	return nil
}
