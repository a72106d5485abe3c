package plc

import (
	"context"
	"fmt"
	"log"
	"time"

	"API-PLANIFICACION/internal/config"
	"API-PLANIFICACION/internal/scheduler"
)

// Monitor coordina la conexión al servidor OPC UA de planta y la lectura del
// estado en línea de las máquinas configuradas.
type Monitor struct {
	client *Client
	config *config.Config
	cache  *EstadoCache
}

// NewMonitor crea un nuevo monitor de máquinas sin conectar
func NewMonitor(cfg *config.Config) *Monitor {
	timeout, err := cfg.OPCUA.GetConnectionTimeoutDuration()
	if err != nil {
		timeout = 10 * time.Second
	}

	plcConfig := PLCConfig{
		Endpoint:       cfg.OPCUA.Endpoint,
		Username:       cfg.OPCUA.Username,
		Password:       cfg.OPCUA.Password,
		ConnectTimeout: timeout,
	}

	return &Monitor{
		client: NewClient(plcConfig),
		config: cfg,
		cache:  NewEstadoCache(len(cfg.Maquinas)+1, 5*time.Second),
	}
}

// Connect establece la conexión con el PLC de planta
func (m *Monitor) Connect(ctx context.Context) error {
	if m.config.OPCUA.Endpoint == "" {
		return fmt.Errorf("no hay endpoint OPC UA configurado")
	}

	log.Printf("📡 Conectando a PLC de planta: %s", m.config.OPCUA.Endpoint)
	if err := m.client.Connect(ctx); err != nil {
		return fmt.Errorf("error conectando a %s: %w", m.config.OPCUA.Endpoint, err)
	}
	return nil
}

// Close cierra la conexión con el PLC
func (m *Monitor) Close(ctx context.Context) {
	if err := m.client.Close(ctx); err != nil {
		log.Printf("⚠️  Error cerrando conexión a %s: %v", m.config.OPCUA.Endpoint, err)
	} else {
		log.Printf("🔌 Conexión cerrada: %s", m.config.OPCUA.Endpoint)
	}
	m.cache.Clear()
}

// LeerEstadoMaquina lee el estado en línea de una máquina. Las lecturas se
// cachean algunos segundos: la resolución de contención del planificador
// consulta la misma máquina muchas veces por pasada.
func (m *Monitor) LeerEstadoMaquina(ctx context.Context, maquinaID int) (*EstadoMaquina, error) {
	if estado, ok := m.cache.Get(maquinaID); ok {
		return estado, nil
	}

	maquina := m.config.BuscarMaquina(maquinaID)
	if maquina == nil {
		return nil, fmt.Errorf("máquina %d no encontrada en configuración", maquinaID)
	}
	if maquina.PLC.EstadoNodeID == "" {
		return nil, fmt.Errorf("máquina %d (%s) no tiene nodos PLC configurados", maquinaID, maquina.Codigo)
	}

	nodos, err := m.leerNodosMaquina(ctx, maquina)
	if err != nil {
		return nil, err
	}

	estado := &EstadoMaquina{
		MaquinaID:     maquina.ID,
		Codigo:        maquina.Codigo,
		UltimaLectura: time.Now(),
	}

	if nodos.EstadoNode != nil && nodos.EstadoNode.Error == nil {
		valor, err := ComoEntero(nodos.EstadoNode.Value)
		if err != nil {
			return nil, fmt.Errorf("estado de máquina %s ilegible: %w", maquina.Codigo, err)
		}
		estado.Estado = valor
	}

	if nodos.OcupadaHastaNode != nil && nodos.OcupadaHastaNode.Error == nil {
		hasta, err := ComoTiempo(nodos.OcupadaHastaNode.Value)
		if err != nil {
			log.Printf("⚠️  Reserva de máquina %s ilegible: %v", maquina.Codigo, err)
		} else {
			estado.OcupadaHasta = hasta
		}
	}

	if nodos.ContadorNode != nil && nodos.ContadorNode.Error == nil {
		contador, err := ComoFlotante(nodos.ContadorNode.Value)
		if err != nil {
			log.Printf("⚠️  Contador de máquina %s ilegible: %v", maquina.Codigo, err)
		} else {
			estado.Contador = contador
		}
	}

	m.cache.Set(maquinaID, estado)
	return estado, nil
}

// LeerTodas lee el estado de todas las máquinas con PLC configurado
func (m *Monitor) LeerTodas(ctx context.Context) []EstadoMaquina {
	estados := make([]EstadoMaquina, 0, len(m.config.Maquinas))

	for i := range m.config.Maquinas {
		maquina := &m.config.Maquinas[i]
		if maquina.PLC.EstadoNodeID == "" {
			continue
		}
		estado, err := m.LeerEstadoMaquina(ctx, maquina.ID)
		if err != nil {
			log.Printf("⚠️  Error leyendo máquina %s: %v", maquina.Codigo, err)
			continue
		}
		estados = append(estados, *estado)
	}

	return estados
}

// leerNodosMaquina lee en una sola operación los nodos configurados de la máquina
func (m *Monitor) leerNodosMaquina(ctx context.Context, maquina *config.Maquina) (*MaquinaNodos, error) {
	nodeIDs := []string{maquina.PLC.EstadoNodeID}
	if maquina.PLC.OcupadaHastaID != "" {
		nodeIDs = append(nodeIDs, maquina.PLC.OcupadaHastaID)
	}
	if maquina.PLC.ContadorNodeID != "" {
		nodeIDs = append(nodeIDs, maquina.PLC.ContadorNodeID)
	}

	lecturas, err := m.client.ReadMultipleNodes(ctx, nodeIDs)
	if err != nil {
		return nil, fmt.Errorf("error leyendo nodos de %s: %w", maquina.Codigo, err)
	}

	nodos := &MaquinaNodos{
		MaquinaID: maquina.ID,
		Codigo:    maquina.Codigo,
	}
	for _, lectura := range lecturas {
		switch lectura.NodeID {
		case maquina.PLC.EstadoNodeID:
			lectura.Description = fmt.Sprintf("%s - Estado", maquina.Codigo)
			nodos.EstadoNode = lectura
		case maquina.PLC.OcupadaHastaID:
			lectura.Description = fmt.Sprintf("%s - Ocupada hasta", maquina.Codigo)
			nodos.OcupadaHastaNode = lectura
		case maquina.PLC.ContadorNodeID:
			lectura.Description = fmt.Sprintf("%s - Contador", maquina.Codigo)
			nodos.ContadorNode = lectura
		}
	}

	return nodos, nil
}

// DisponibilidadPLC implementa la verificación de disponibilidad combinando el
// estado en línea del PLC con las tareas planificadas. Si el PLC reporta una
// reserva más tardía que el plan, manda la reserva; si la máquina no tiene
// PLC o la lectura falla, responde solo el respaldo.
type DisponibilidadPLC struct {
	monitor  *Monitor
	respaldo scheduler.DisponibilidadMaquinas
	cal      *scheduler.CalendarioLaboral
}

// NewDisponibilidadPLC construye el servicio con su respaldo basado en tareas
func NewDisponibilidadPLC(monitor *Monitor, respaldo scheduler.DisponibilidadMaquinas) *DisponibilidadPLC {
	return &DisponibilidadPLC{
		monitor:  monitor,
		respaldo: respaldo,
		cal:      scheduler.NewCalendarioLaboral(),
	}
}

// VerificarConflicto consulta primero el plan persistido y superpone la
// reserva en línea del PLC si alcanza más lejos.
func (d *DisponibilidadPLC) VerificarConflicto(ctx context.Context, maquinaID int, inicio, fin time.Time, prioridad int) (*scheduler.ResultadoConflicto, error) {
	resultado, err := d.respaldo.VerificarConflicto(ctx, maquinaID, inicio, fin, prioridad)
	if err != nil {
		return nil, err
	}

	estado, err := d.monitor.LeerEstadoMaquina(ctx, maquinaID)
	if err != nil {
		// Sin PLC la planificación sigue valiendo por las tareas persistidas
		return resultado, nil
	}

	if !estado.OcupadaHasta.IsZero() && estado.OcupadaHasta.After(inicio) {
		resultado.TieneConflicto = true
		if estado.OcupadaHasta.After(resultado.FechaDisponible) {
			resultado.FechaDisponible = d.cal.AjustarAHorarioLaboral(estado.OcupadaHasta)
		}
	}

	return resultado, nil
}

// CargaMaquina delega en el respaldo: la carga planificada vive en las tareas
func (d *DisponibilidadPLC) CargaMaquina(ctx context.Context, maquinaID int, desde, hasta time.Time) (float64, error) {
	return d.respaldo.CargaMaquina(ctx, maquinaID, desde, hasta)
}
