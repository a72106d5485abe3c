package db

const SELECT_PROGRAMA = `
	SELECT id, nombre, fecha_inicio, fecha_fin, creado_en, actualizado_en
	FROM programa_produccion
	WHERE id = $1
`

const UPDATE_PROGRAMA = `
	UPDATE programa_produccion
	SET nombre = $2, fecha_inicio = $3, fecha_fin = $4, actualizado_en = $5
	WHERE id = $1
`

const SELECT_ORDENES_DE_PROGRAMA = `
	SELECT pot.prioridad,
	       ot.id, ot.codigo_ot, ot.descripcion_producto_ot, ot.codigo_producto_inicial,
	       ot.cantidad, ot.cantidad_avance, ot.situacion_ot,
	       r.id AS ruta_id
	FROM programa_orden_trabajo pot
	JOIN orden_trabajo ot ON ot.id = pot.orden_trabajo_id
	LEFT JOIN ruta_ot r ON r.orden_trabajo_id = ot.id
	WHERE pot.programa_id = $1
	ORDER BY pot.prioridad, ot.id
`

const SELECT_ORDEN_TRABAJO = `
	SELECT ot.id, ot.codigo_ot, ot.descripcion_producto_ot, ot.codigo_producto_inicial,
	       ot.cantidad, ot.cantidad_avance, ot.situacion_ot,
	       r.id AS ruta_id
	FROM orden_trabajo ot
	LEFT JOIN ruta_ot r ON r.orden_trabajo_id = ot.id
	WHERE ot.id = $1
`

const UPDATE_ORDEN_TRABAJO = `
	UPDATE orden_trabajo
	SET cantidad = $2, cantidad_avance = $3, situacion_ot = $4
	WHERE id = $1
`

const SELECT_ITEMS_DE_RUTA = `
	SELECT id, ruta_id, item, codigo_proceso, descripcion_proceso,
	       maquina_id, descripcion_maquina, estandar,
	       cantidad_pedido, cantidad_terminado_proceso, estado_proceso
	FROM item_ruta
	WHERE ruta_id = $1
	ORDER BY item
`

const SELECT_ITEM_RUTA = `
	SELECT id, ruta_id, item, codigo_proceso, descripcion_proceso,
	       maquina_id, descripcion_maquina, estandar,
	       cantidad_pedido, cantidad_terminado_proceso, estado_proceso
	FROM item_ruta
	WHERE id = $1
`

const UPDATE_ITEM_RUTA = `
	UPDATE item_ruta
	SET estandar = $2, cantidad_pedido = $3, cantidad_terminado_proceso = $4,
	    estado_proceso = $5, maquina_id = $6, descripcion_maquina = $7
	WHERE id = $1
`

const UPDATE_ESTANDAR_POR_CODIGO = `
	UPDATE item_ruta ir
	SET estandar = $3
	FROM ruta_ot r
	INNER JOIN orden_trabajo ot ON ot.id = r.orden_trabajo_id
	WHERE ir.ruta_id = r.id
	  AND ot.codigo_ot = $1
	  AND ir.item = $2
	  AND ir.estandar IS DISTINCT FROM $3
`

const INSERT_TAREA_FRAGMENTADA = `
	INSERT INTO tarea_fragmentada (
		programa_id, tarea_original_id, orden_trabajo_id, maquina_id, fecha,
		cantidad_asignada, cantidad_pendiente_anterior, cantidad_completada,
		fecha_inicio_plan, fecha_fin_plan, fecha_inicio_real, fecha_fin_real,
		estado, tarea_padre_id, nivel_fragmentacion, operador,
		version_planificacion, motivo_modificacion, historial_cambios
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
	          NULLIF($14, 0), $15, $16, $17, $18, $19)
	RETURNING id
`

const UPDATE_TAREA_FRAGMENTADA = `
	UPDATE tarea_fragmentada
	SET fecha = $2, cantidad_asignada = $3, cantidad_pendiente_anterior = $4,
	    cantidad_completada = $5, fecha_inicio_plan = $6, fecha_fin_plan = $7,
	    fecha_inicio_real = $8, fecha_fin_real = $9, estado = $10,
	    tarea_padre_id = NULLIF($11, 0), nivel_fragmentacion = $12, operador = $13,
	    version_planificacion = $14, motivo_modificacion = $15, historial_cambios = $16
	WHERE id = $1
`

const SELECT_TAREA_FRAGMENTADA = `
	SELECT id, programa_id, tarea_original_id, orden_trabajo_id, maquina_id, fecha,
	       cantidad_asignada, cantidad_pendiente_anterior, cantidad_completada,
	       fecha_inicio_plan, fecha_fin_plan, fecha_inicio_real, fecha_fin_real,
	       estado, COALESCE(tarea_padre_id, 0), nivel_fragmentacion, COALESCE(operador, ''),
	       version_planificacion, COALESCE(motivo_modificacion, ''), historial_cambios
	FROM tarea_fragmentada
	WHERE id = $1
`

const SELECT_TAREAS_DE_PROGRAMA = `
	SELECT id, programa_id, tarea_original_id, orden_trabajo_id, maquina_id, fecha,
	       cantidad_asignada, cantidad_pendiente_anterior, cantidad_completada,
	       fecha_inicio_plan, fecha_fin_plan, fecha_inicio_real, fecha_fin_real,
	       estado, COALESCE(tarea_padre_id, 0), nivel_fragmentacion, COALESCE(operador, ''),
	       version_planificacion, COALESCE(motivo_modificacion, ''), historial_cambios
	FROM tarea_fragmentada
	WHERE programa_id = $1
	ORDER BY fecha, id
`

const SELECT_TAREAS_POR_FECHA = `
	SELECT id, programa_id, tarea_original_id, orden_trabajo_id, maquina_id, fecha,
	       cantidad_asignada, cantidad_pendiente_anterior, cantidad_completada,
	       fecha_inicio_plan, fecha_fin_plan, fecha_inicio_real, fecha_fin_real,
	       estado, COALESCE(tarea_padre_id, 0), nivel_fragmentacion, COALESCE(operador, ''),
	       version_planificacion, COALESCE(motivo_modificacion, ''), historial_cambios
	FROM tarea_fragmentada
	WHERE programa_id = $1 AND fecha = $2
	ORDER BY fecha, id
`

const SELECT_TAREAS_DESDE_FECHA = `
	SELECT id, programa_id, tarea_original_id, orden_trabajo_id, maquina_id, fecha,
	       cantidad_asignada, cantidad_pendiente_anterior, cantidad_completada,
	       fecha_inicio_plan, fecha_fin_plan, fecha_inicio_real, fecha_fin_real,
	       estado, COALESCE(tarea_padre_id, 0), nivel_fragmentacion, COALESCE(operador, ''),
	       version_planificacion, COALESCE(motivo_modificacion, ''), historial_cambios
	FROM tarea_fragmentada
	WHERE programa_id = $1 AND fecha >= $2
	ORDER BY fecha, id
`

const SELECT_TAREAS_DE_MAQUINA = `
	SELECT id, programa_id, tarea_original_id, orden_trabajo_id, maquina_id, fecha,
	       cantidad_asignada, cantidad_pendiente_anterior, cantidad_completada,
	       fecha_inicio_plan, fecha_fin_plan, fecha_inicio_real, fecha_fin_real,
	       estado, COALESCE(tarea_padre_id, 0), nivel_fragmentacion, COALESCE(operador, ''),
	       version_planificacion, COALESCE(motivo_modificacion, ''), historial_cambios
	FROM tarea_fragmentada
	WHERE maquina_id = $1 AND fecha >= $2
	ORDER BY fecha, id
`

const DELETE_TAREAS_DE_PROGRAMA = `
	DELETE FROM tarea_fragmentada
	WHERE programa_id = $1
`

const SELECT_REPORTE_DIARIO = `
	SELECT id, programa_id, fecha, estado, COALESCE(cerrado_por, ''),
	       fecha_cierre, COALESCE(bloqueado_por, ''), bloqueo_hasta
	FROM reporte_diario_programa
	WHERE programa_id = $1 AND fecha = $2
`

const UPSERT_REPORTE_DIARIO = `
	INSERT INTO reporte_diario_programa (
		programa_id, fecha, estado, cerrado_por, fecha_cierre, bloqueado_por, bloqueo_hasta
	) VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), $7)
	ON CONFLICT (programa_id, fecha) DO UPDATE SET
		estado = EXCLUDED.estado,
		cerrado_por = EXCLUDED.cerrado_por,
		fecha_cierre = EXCLUDED.fecha_cierre,
		bloqueado_por = EXCLUDED.bloqueado_por,
		bloqueo_hasta = EXCLUDED.bloqueo_hasta
	RETURNING id
`

const EXISTS_HISTORIAL_DIARIO = `
	SELECT EXISTS (
		SELECT 1 FROM historial_planificacion
		WHERE programa_id = $1 AND tipo_reajuste = 'DIARIO' AND fecha_referencia = $2
	)
`

const INSERT_HISTORIAL = `
	INSERT INTO historial_planificacion (
		uuid, programa_id, fecha_referencia, tipo_reajuste,
		timeline_antes, timeline_despues, cambios, creado_por, creado_en
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING id
`

const UPDATE_HISTORIAL = `
	UPDATE historial_planificacion
	SET timeline_antes = $2, timeline_despues = $3, cambios = $4
	WHERE id = $1
`

const DELETE_HISTORIAL = `
	DELETE FROM historial_planificacion
	WHERE id = $1
`

const SELECT_HISTORIALES_DE_PROGRAMA = `
	SELECT id, uuid, programa_id, fecha_referencia, tipo_reajuste,
	       COALESCE(timeline_antes, 'null'::jsonb), COALESCE(timeline_despues, 'null'::jsonb),
	       COALESCE(cambios, '[]'::jsonb), COALESCE(creado_por, ''), creado_en
	FROM historial_planificacion
	WHERE programa_id = $1
	ORDER BY id
`

const DELETE_HISTORIALES_DE_PROGRAMA = `
	DELETE FROM historial_planificacion
	WHERE programa_id = $1
`
