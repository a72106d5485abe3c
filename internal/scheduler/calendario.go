package scheduler

import "time"

// Jornada laboral: lunes a jueves 08:00-17:30, viernes 08:00-16:30, colación
// 13:00-14:00. Solo lunes a viernes son días laborales.
const (
	HoraInicioJornada  = 8 * time.Hour
	HoraFinJornada     = 17*time.Hour + 30*time.Minute
	HoraFinViernes     = 16*time.Hour + 30*time.Minute
	HoraInicioColacion = 13 * time.Hour
	HoraFinColacion    = 14 * time.Hour
)

// TiempoSetupDefecto es el buffer fijo de cambio entre tareas consecutivas de
// una máquina y entre procesos dependientes de una misma orden.
const TiempoSetupDefecto = 30 * time.Minute

// CalendarioLaboral encapsula la aritmética de calendario de la planta.
type CalendarioLaboral struct{}

// NewCalendarioLaboral construye el calendario con la jornada estándar.
func NewCalendarioLaboral() *CalendarioLaboral {
	return &CalendarioLaboral{}
}

// EsDiaLaboral indica si la fecha cae en un día de trabajo (lunes a viernes).
func (c *CalendarioLaboral) EsDiaLaboral(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// medianoche trunca el instante al inicio de su día calendario.
func medianoche(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// InicioJornada devuelve las 08:00 del día del instante dado.
func (c *CalendarioLaboral) InicioJornada(t time.Time) time.Time {
	return medianoche(t).Add(HoraInicioJornada)
}

// FinJornada devuelve el cierre de jornada del día del instante dado: 17:30 de
// lunes a jueves, 16:30 los viernes.
func (c *CalendarioLaboral) FinJornada(t time.Time) time.Time {
	if t.Weekday() == time.Friday {
		return medianoche(t).Add(HoraFinViernes)
	}
	return medianoche(t).Add(HoraFinJornada)
}

// InicioColacion y FinColacion delimitan la ventana de colación del día.
func (c *CalendarioLaboral) InicioColacion(t time.Time) time.Time {
	return medianoche(t).Add(HoraInicioColacion)
}

func (c *CalendarioLaboral) FinColacion(t time.Time) time.Time {
	return medianoche(t).Add(HoraFinColacion)
}

// SiguienteDiaLaboral devuelve las 08:00 del siguiente día laboral después del
// día del instante dado.
func (c *CalendarioLaboral) SiguienteDiaLaboral(t time.Time) time.Time {
	dia := medianoche(t).AddDate(0, 0, 1)
	for !c.EsDiaLaboral(dia) {
		dia = dia.AddDate(0, 0, 1)
	}
	return dia.Add(HoraInicioJornada)
}

// AjustarAHorarioLaboral ajusta un instante hacia adelante hasta el próximo
// instante válido de trabajo: fines de semana saltan al lunes 08:00, instantes
// antes de las 08:00 se llevan a la apertura, la colación se salta a las 14:00
// y pasado el cierre se avanza al siguiente día laboral.
func (c *CalendarioLaboral) AjustarAHorarioLaboral(t time.Time) time.Time {
	for {
		if !c.EsDiaLaboral(t) {
			t = c.SiguienteDiaLaboral(t)
			continue
		}
		if t.Before(c.InicioJornada(t)) {
			return c.InicioJornada(t)
		}
		if !t.Before(c.FinJornada(t)) {
			t = c.SiguienteDiaLaboral(t)
			continue
		}
		if !t.Before(c.InicioColacion(t)) && t.Before(c.FinColacion(t)) {
			return c.FinColacion(t)
		}
		return t
	}
}

// FinJornadaMasCercano lleva un instante de término al cierre de jornada
// laboral más cercano hacia adelante: si cae fuera de un día laboral o pasado
// el cierre, avanza al cierre del siguiente día laboral.
func (c *CalendarioLaboral) FinJornadaMasCercano(t time.Time) time.Time {
	for !c.EsDiaLaboral(t) {
		t = medianoche(t).AddDate(0, 0, 1)
	}
	if t.After(c.FinJornada(t)) {
		sig := c.SiguienteDiaLaboral(t)
		return c.FinJornada(sig)
	}
	return c.FinJornada(t)
}

// MismaFecha compara dos instantes por día calendario.
func MismaFecha(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
