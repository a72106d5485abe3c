package db

import (
	"context"
	"fmt"
)

// EstandarERP representa el estándar de producción vigente en el ERP para un
// proceso de una orden de trabajo. Se usa para sincronizar las rutas locales.
type EstandarERP struct {
	CodigoOT      string
	Item          int
	CodigoProceso string
	Maquina       string
	Estandar      float64
}

// SELECT_ESTANDARES_ERP trae los estándares por proceso de las órdenes de
// trabajo abiertas. La vista la mantiene el equipo del ERP.
const SELECT_ESTANDARES_ERP = `
SELECT
    ot.codigo_ot,
    rt.item,
    rt.codigo_proceso,
    rt.maquina,
    rt.estandar_hora
FROM dbo.vw_ordenes_trabajo ot
INNER JOIN dbo.vw_rutas_ot rt ON rt.codigo_ot = ot.codigo_ot
WHERE ot.situacion IN ('P', 'I')
  AND rt.estandar_hora > 0
ORDER BY ot.codigo_ot, rt.item`

// ConsultarEstandares lee desde el ERP los estándares por proceso de todas las
// órdenes de trabajo en situación planificable.
func (m *Manager) ConsultarEstandares(ctx context.Context) ([]EstandarERP, error) {
	rows, err := m.Query(ctx, SELECT_ESTANDARES_ERP)
	if err != nil {
		return nil, fmt.Errorf("db: error consultando estándares en el ERP: %w", err)
	}
	defer rows.Close()

	var estandares []EstandarERP
	for rows.Next() {
		var e EstandarERP
		if err := rows.Scan(&e.CodigoOT, &e.Item, &e.CodigoProceso, &e.Maquina, &e.Estandar); err != nil {
			return nil, fmt.Errorf("db: error leyendo estándar del ERP: %w", err)
		}
		estandares = append(estandares, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: error recorriendo estándares del ERP: %w", err)
	}

	return estandares, nil
}
