package scheduler

import (
	"fmt"
	"sort"
	"time"
)

// NodoProceso envuelve una instancia de proceso ruteado (un paso de la ruta de
// una OT) con su intervalo calculado, el enlace al siguiente proceso de la
// misma orden y su pertenencia a la lista de contención de su máquina.
type NodoProceso struct {
	ItemRutaID     int
	OrdenTrabajoID int
	CodigoOT       string
	Item           int // posición dentro de la ruta
	CodigoProceso  string
	Descripcion    string
	MaquinaID      int
	Maquina        string
	Cantidad       float64
	Estandar       float64
	Prioridad      int
	Estado         string

	FechaInicio time.Time
	FechaFin    time.Time
	Intervalos  []IntervaloProduccion

	// SiguienteProceso es el sucesor en la secuencia de la misma orden.
	SiguienteProceso *NodoProceso

	calc *CalculadoraTiempo
}

// NewNodoProceso construye el nodo y calcula sus intervalos a partir del
// instante dado. Un estándar inválido devuelve error sin crear el nodo.
func NewNodoProceso(calc *CalculadoraTiempo, n NodoProceso, inicio time.Time) (*NodoProceso, error) {
	n.calc = calc
	if err := n.ActualizarFechas(inicio); err != nil {
		return nil, err
	}
	return &n, nil
}

// ActualizarFechas reancla el nodo a un nuevo instante de inicio: lo ajusta a
// horario laboral, recalcula los intervalos con la cantidad y estándar fijos
// del nodo y reemplaza inicio, fin e intervalos. Solo muta este nodo.
func (n *NodoProceso) ActualizarFechas(nuevaFechaInicio time.Time) error {
	resultado, err := n.calc.CalcularDiasLaborales(nuevaFechaInicio, n.Cantidad, n.Estandar, nil)
	if err != nil {
		return fmt.Errorf("nodo item_ruta=%d: %w", n.ItemRutaID, err)
	}
	n.FechaInicio = resultado.FechaInicio
	n.FechaFin = resultado.FechaFin
	n.Intervalos = resultado.Intervalos
	return nil
}

// PropagarAjuste empuja hacia adelante los nodos afectados por un cambio de
// fechas de este nodo, en dos fases: primero los nodos posteriores de la misma
// máquina, luego la cadena de sucesores de la misma orden. Cada empuje solo
// mueve nodos hacia adelante, por lo que la relajación termina; el guard de
// visitados protege contra listas de máquina corruptas que contengan al nodo
// dos veces.
func (n *NodoProceso) PropagarAjuste(tiempoSetup time.Duration, porMaquina map[int][]*NodoProceso) error {
	if tiempoSetup <= 0 {
		tiempoSetup = TiempoSetupDefecto
	}
	visitados := make(map[*NodoProceso]bool)
	return n.propagar(tiempoSetup, porMaquina, visitados)
}

func (n *NodoProceso) propagar(tiempoSetup time.Duration, porMaquina map[int][]*NodoProceso, visitados map[*NodoProceso]bool) error {
	if visitados[n] {
		return nil
	}
	visitados[n] = true

	// Fase 1: contención de máquina. Los nodos que siguen a este en la lista
	// priorizada de su máquina deben partir después de su fin más el setup.
	lista := OrdenarListaMaquina(porMaquina[n.MaquinaID])
	pos := -1
	for i, otro := range lista {
		if otro == n {
			pos = i
			break
		}
	}
	if pos >= 0 {
		limite := n.FechaFin.Add(tiempoSetup)
		for _, posterior := range lista[pos+1:] {
			if posterior == n {
				// Lista corrupta con el nodo duplicado: no perseguirse a sí mismo.
				continue
			}
			if posterior.FechaInicio.Before(limite) {
				if err := posterior.ActualizarFechas(limite); err != nil {
					return err
				}
				if err := posterior.propagar(tiempoSetup, porMaquina, visitados); err != nil {
					return err
				}
				limite = posterior.FechaFin.Add(tiempoSetup)
			}
		}
	}

	// Fase 2: dependencia secuencial de la orden. Cada sucesor debe partir en
	// max(fin del predecesor + setup, su inicio actual).
	for pred, suc := n, n.SiguienteProceso; suc != nil; pred, suc = suc, suc.SiguienteProceso {
		minimo := pred.FechaFin.Add(tiempoSetup)
		if suc.FechaInicio.Before(minimo) {
			if err := suc.ActualizarFechas(minimo); err != nil {
				return err
			}
			delete(visitados, suc)
			if err := suc.propagar(tiempoSetup, porMaquina, visitados); err != nil {
				return err
			}
		}
	}

	return nil
}

// OrdenarListaMaquina devuelve la lista de contención de una máquina en su
// orden canónico: prioridad ascendente, luego fecha de inicio, luego ID de
// ItemRuta como desempate estable.
func OrdenarListaMaquina(nodos []*NodoProceso) []*NodoProceso {
	lista := make([]*NodoProceso, len(nodos))
	copy(lista, nodos)
	sort.SliceStable(lista, func(i, j int) bool {
		if lista[i].Prioridad != lista[j].Prioridad {
			return lista[i].Prioridad < lista[j].Prioridad
		}
		if !lista[i].FechaInicio.Equal(lista[j].FechaInicio) {
			return lista[i].FechaInicio.Before(lista[j].FechaInicio)
		}
		return lista[i].ItemRutaID < lista[j].ItemRutaID
	})
	return lista
}
