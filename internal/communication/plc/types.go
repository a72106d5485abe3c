package plc

import "time"

// Estados reportados por el PLC en el nodo de estado de cada máquina.
const (
	EstadoPLCLibre       = 0
	EstadoPLCProduciendo = 1
	EstadoPLCDetenida    = 2
)

// NodeInfo representa la información de un nodo OPC UA y su valor leído
type NodeInfo struct {
	NodeID      string      // ID del nodo (ej: "ns=4;i=22")
	Description string      // Descripción legible (ej: "CNC-01 - Estado")
	Value       interface{} // Valor leído del nodo
	ValueType   string      // Tipo del valor (bool, int16, int32, string, etc.)
	ReadTime    time.Time   // Momento de la lectura
	Error       error       // Error si hubo problema al leer
}

// EstadoMaquina es la fotografía del estado en línea de una máquina según el
// PLC: estado discreto, reserva vigente y contador de producción del turno.
type EstadoMaquina struct {
	MaquinaID     int       `json:"maquina_id"`
	Codigo        string    `json:"codigo"`
	Estado        int       `json:"estado"`
	OcupadaHasta  time.Time `json:"ocupada_hasta,omitempty"`
	Contador      float64   `json:"contador"`
	UltimaLectura time.Time `json:"ultima_lectura"`
}

// Produciendo indica que la máquina está ejecutando una orden.
func (e *EstadoMaquina) Produciendo() bool {
	return e.Estado == EstadoPLCProduciendo
}

// MaquinaNodos agrupa las lecturas crudas de los nodos de una máquina
type MaquinaNodos struct {
	MaquinaID        int       // ID de la máquina
	Codigo           string    // Código de planta (ej: "CNC-01")
	EstadoNode       *NodeInfo // Nodo de estado
	OcupadaHastaNode *NodeInfo // Nodo de reserva (puede ser nil si no existe)
	ContadorNode     *NodeInfo // Nodo de contador (puede ser nil si no existe)
}

// PLCConfig contiene la configuración necesaria para conectarse a un PLC
type PLCConfig struct {
	Endpoint       string
	Username       string
	Password       string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}
