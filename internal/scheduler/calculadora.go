package scheduler

import (
	"errors"
	"fmt"
	"time"
)

// ErrEstandarInvalido se devuelve cuando el estándar de producción no sirve
// para planificar (cero o negativo).
var ErrEstandarInvalido = errors.New("estándar de producción inválido")

// toleranciaCantidad absorbe el ruido de punto flotante al comparar cantidades.
const toleranciaCantidad = 1e-9

// IntervaloProduccion es un tramo contiguo de producción dentro de la jornada:
// no cruza la colación ni el cierre del día.
type IntervaloProduccion struct {
	Inicio            time.Time `json:"fecha_inicio"`
	Fin               time.Time `json:"fecha_fin"`
	Unidades          float64   `json:"unidades"`
	UnidadesRestantes float64   `json:"unidades_restantes"`
}

// Horas devuelve la duración del intervalo en horas fraccionarias.
func (i IntervaloProduccion) Horas() float64 {
	return i.Fin.Sub(i.Inicio).Hours()
}

// ResultadoCalculo es la salida de CalcularDiasLaborales: la secuencia de
// intervalos necesarios para producir la cantidad pedida y el ancla para
// encadenar el siguiente proceso dependiente.
type ResultadoCalculo struct {
	Intervalos        []IntervaloProduccion `json:"intervalos"`
	ProximaDisponible time.Time             `json:"proxima_disponible"`
	FechaInicio       time.Time             `json:"fecha_inicio"`
	FechaFin          time.Time             `json:"fecha_fin"`
}

// OpcionesCalculo modula el cálculo de intervalos.
type OpcionesCalculo struct {
	// CantidadMinimaSiguiente sesga el primer intervalo para producir al
	// menos esa cantidad, acomodando un proceso aguas abajo más rápido que
	// necesita un lote mínimo para partir.
	CantidadMinimaSiguiente float64
}

// CalculadoraTiempo convierte (instante de inicio, cantidad, estándar) en la
// secuencia concreta de intervalos de trabajo, respetando jornada, colación,
// viernes corto y fines de semana.
type CalculadoraTiempo struct {
	cal *CalendarioLaboral
}

// NewCalculadoraTiempo construye la calculadora sobre el calendario estándar.
func NewCalculadoraTiempo() *CalculadoraTiempo {
	return &CalculadoraTiempo{cal: NewCalendarioLaboral()}
}

// Calendario expone el calendario laboral subyacente.
func (c *CalculadoraTiempo) Calendario() *CalendarioLaboral {
	return c.cal
}

// CalcularDiasLaborales produce los intervalos de trabajo necesarios para
// fabricar `cantidad` unidades a `estandar` unidades/hora partiendo de
// `inicio`. Un estándar <= 0 es un error; una cantidad <= 0 degenera en cero
// intervalos con la próxima disponibilidad en el inicio ajustado.
func (c *CalculadoraTiempo) CalcularDiasLaborales(inicio time.Time, cantidad, estandar float64, opts *OpcionesCalculo) (*ResultadoCalculo, error) {
	if estandar <= 0 {
		return nil, fmt.Errorf("%w: %.2f unidades/hora", ErrEstandarInvalido, estandar)
	}

	cursor := c.cal.AjustarAHorarioLaboral(inicio)
	resultado := &ResultadoCalculo{
		FechaInicio:       cursor,
		ProximaDisponible: cursor,
	}

	if cantidad <= toleranciaCantidad {
		resultado.FechaFin = cursor
		return resultado, nil
	}

	restante := cantidad
	minimaPendiente := 0.0
	if opts != nil && opts.CantidadMinimaSiguiente > 0 {
		minimaPendiente = opts.CantidadMinimaSiguiente
	}

	for restante > toleranciaCantidad {
		finTramo := c.finDeTramo(cursor)
		horasTramo := finTramo.Sub(cursor).Hours()
		capacidadTramo := horasTramo * estandar

		objetivo := restante
		if minimaPendiente > objetivo {
			// Sesgo de lote mínimo: el tramo produce más de lo que la
			// cantidad pedida requiere para alimentar al proceso siguiente.
			objetivo = minimaPendiente
		}

		var intervalo IntervaloProduccion
		if objetivo <= capacidadTramo+toleranciaCantidad {
			duracion := time.Duration(objetivo / estandar * float64(time.Hour))
			intervalo = IntervaloProduccion{
				Inicio:   cursor,
				Fin:      cursor.Add(duracion),
				Unidades: objetivo,
			}
		} else {
			intervalo = IntervaloProduccion{
				Inicio:   cursor,
				Fin:      finTramo,
				Unidades: capacidadTramo,
			}
		}

		producidoParaPedido := intervalo.Unidades
		if producidoParaPedido > restante {
			producidoParaPedido = restante
		}
		restante -= producidoParaPedido
		if restante < toleranciaCantidad {
			restante = 0
		}
		intervalo.UnidadesRestantes = restante

		if minimaPendiente > 0 {
			minimaPendiente -= intervalo.Unidades
			if minimaPendiente < toleranciaCantidad {
				minimaPendiente = 0
			}
		}

		resultado.Intervalos = append(resultado.Intervalos, intervalo)

		if restante > toleranciaCantidad {
			cursor = c.siguienteTramo(finTramo)
		} else {
			cursor = intervalo.Fin
		}
	}

	ultimo := resultado.Intervalos[len(resultado.Intervalos)-1]
	resultado.FechaFin = ultimo.Fin
	resultado.ProximaDisponible = ultimo.Fin
	return resultado, nil
}

// finDeTramo devuelve el fin del tramo contiguo de trabajo que contiene al
// cursor: el inicio de colación si el cursor está en la mañana, o el cierre de
// jornada si está en la tarde. El cursor debe venir ya ajustado a horario
// laboral.
func (c *CalculadoraTiempo) finDeTramo(cursor time.Time) time.Time {
	colacion := c.cal.InicioColacion(cursor)
	if cursor.Before(colacion) {
		fin := c.cal.FinJornada(cursor)
		if colacion.Before(fin) {
			return colacion
		}
		return fin
	}
	return c.cal.FinJornada(cursor)
}

// siguienteTramo avanza desde el fin de un tramo al inicio del siguiente:
// tras la colación el mismo día, o la apertura del siguiente día laboral.
func (c *CalculadoraTiempo) siguienteTramo(finTramo time.Time) time.Time {
	if finTramo.Equal(c.cal.InicioColacion(finTramo)) {
		return c.cal.FinColacion(finTramo)
	}
	return c.cal.SiguienteDiaLaboral(finTramo)
}
