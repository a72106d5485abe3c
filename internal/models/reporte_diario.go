package models

import (
	"fmt"
	"time"
)

// BloqueoDuracionDefecto es la vigencia del bloqueo de edición de supervisor.
const BloqueoDuracionDefecto = 30 * time.Minute

// ReporteDiarioPrograma representa el estado de un día de un programa: abierto,
// cerrado o en revisión. Un día no puede cerrarse dos veces; cerrar un día abre
// automáticamente el reporte del siguiente día laboral.
type ReporteDiarioPrograma struct {
	ID          int       `json:"id"`
	ProgramaID  int       `json:"programa_id"`
	Fecha       time.Time `json:"fecha"`
	Estado      string    `json:"estado"`
	CerradoPor  string    `json:"cerrado_por,omitempty"`
	FechaCierre time.Time `json:"fecha_cierre,omitempty"`

	// Bloqueo consultivo de edición para supervisores. No es un lock del
	// planificador: solo una exclusión temporal entre editores humanos.
	BloqueadoPor string    `json:"bloqueado_por,omitempty"`
	BloqueoHasta time.Time `json:"bloqueo_hasta,omitempty"`
}

// EstaCerrado indica si el día ya fue cerrado.
func (r *ReporteDiarioPrograma) EstaCerrado() bool {
	return r.Estado == ReporteCerrado
}

// Cerrar estampa el cierre del día. Falla si ya estaba cerrado.
func (r *ReporteDiarioPrograma) Cerrar(usuario string, ahora time.Time) error {
	if r.EstaCerrado() {
		return fmt.Errorf("el día %s del programa %d ya fue cerrado por %s",
			r.Fecha.Format("2006-01-02"), r.ProgramaID, r.CerradoPor)
	}
	r.Estado = ReporteCerrado
	r.CerradoPor = usuario
	r.FechaCierre = ahora
	return nil
}

// AdquirirBloqueo toma el bloqueo consultivo de edición por la duración dada.
// Devuelve error si otro usuario lo mantiene vigente.
func (r *ReporteDiarioPrograma) AdquirirBloqueo(usuario string, ahora time.Time, duracion time.Duration) error {
	if duracion <= 0 {
		duracion = BloqueoDuracionDefecto
	}
	if r.BloqueadoPor != "" && r.BloqueadoPor != usuario && ahora.Before(r.BloqueoHasta) {
		return fmt.Errorf("reporte bloqueado por %s hasta %s", r.BloqueadoPor, r.BloqueoHasta.Format("15:04:05"))
	}
	r.BloqueadoPor = usuario
	r.BloqueoHasta = ahora.Add(duracion)
	return nil
}

// LiberarBloqueo suelta el bloqueo consultivo si lo mantiene el usuario dado.
func (r *ReporteDiarioPrograma) LiberarBloqueo(usuario string) {
	if r.BloqueadoPor == usuario {
		r.BloqueadoPor = ""
		r.BloqueoHasta = time.Time{}
	}
}
