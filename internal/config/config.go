package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	HTTP          HTTPConfig          `yaml:"http"`
	Planificacion PlanificacionConfig `yaml:"planificacion"`
	Maquinas      []Maquina           `yaml:"maquinas"`
	OPCUA         OPCUAConfig         `yaml:"opcua"`
}

type PlanificacionConfig struct {
	TiempoSetup        string `yaml:"tiempo_setup"`        // ej: "30m"
	BloqueoEdicion     string `yaml:"bloqueo_edicion"`     // ej: "30m"
	IntervaloSyncERP   string `yaml:"intervalo_sync_erp"`  // ej: "1h"
	NotificarTimelines bool   `yaml:"notificar_timelines"` // push por websocket al replanificar
}

// GetTiempoSetupDuration retorna el buffer de cambio entre tareas.
func (p *PlanificacionConfig) GetTiempoSetupDuration() time.Duration {
	duration, err := time.ParseDuration(p.TiempoSetup)
	if err != nil {
		return 30 * time.Minute // default
	}
	return duration
}

// GetBloqueoEdicionDuration retorna la vigencia del bloqueo de edición.
func (p *PlanificacionConfig) GetBloqueoEdicionDuration() time.Duration {
	duration, err := time.ParseDuration(p.BloqueoEdicion)
	if err != nil {
		return 30 * time.Minute // default
	}
	return duration
}

// GetIntervaloSyncERPDuration retorna el período del worker de sincronización
// de estándares.
func (p *PlanificacionConfig) GetIntervaloSyncERPDuration() time.Duration {
	duration, err := time.ParseDuration(p.IntervaloSyncERP)
	if err != nil {
		return time.Hour // default
	}
	return duration
}

type DatabaseConfig struct {
	Postgres  PostgresConfig  `yaml:"postgres"`
	SQLServer SQLServerConfig `yaml:"sqlserver"`
}

type PostgresConfig struct {
	URL                 string `yaml:"url"`
	MinConns            int    `yaml:"min_conns"`
	MaxConns            int    `yaml:"max_conns"`
	ConnectTimeout      string `yaml:"connect_timeout"`
	HealthcheckInterval string `yaml:"healthcheck_interval"`
}

type SQLServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	Encrypt         string `yaml:"encrypt"`
	TrustCert       bool   `yaml:"trust_cert"`
	AppName         string `yaml:"app_name"`
	ConnectTimeout  int    `yaml:"connect_timeout"`
	MaxConns        int    `yaml:"max_conns"`
	MinConns        int    `yaml:"min_conns"`
	MaxConnLifetime string `yaml:"max_conn_lifetime"`
	MaxConnIdleTime string `yaml:"max_conn_idle_time"`
}

type OPCUAConfig struct {
	Endpoint             string `yaml:"endpoint"`
	Username             string `yaml:"username"`
	Password             string `yaml:"password"`
	SecurityPolicy       string `yaml:"security_policy"`
	SecurityMode         string `yaml:"security_mode"`
	CertificatePath      string `yaml:"certificate_path"`
	PrivateKeyPath       string `yaml:"private_key_path"`
	ConnectionTimeout    string `yaml:"connection_timeout"`
	SessionTimeout       string `yaml:"session_timeout"`
	SubscriptionInterval string `yaml:"subscription_interval"`
	KeepaliveCount       uint32 `yaml:"keepalive_count"`
	LifetimeCount        uint32 `yaml:"lifetime_count"`
	MaxNotifications     uint32 `yaml:"max_notifications"`
}

type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Maquina describe una máquina de planta y sus nodos OPC UA de estado. Las
// máquinas sin PLC igualmente se planifican; solo pierden la verificación de
// disponibilidad en línea.
type Maquina struct {
	ID          int              `yaml:"id"`
	Codigo      string           `yaml:"codigo"`
	Descripcion string           `yaml:"descripcion"`
	PLC         MaquinaPLCConfig `yaml:"plc"`
}

type MaquinaPLCConfig struct {
	EstadoNodeID   string `yaml:"estado_node_id"`   // 0=libre, 1=produciendo, 2=detenida
	OcupadaHastaID string `yaml:"ocupada_hasta_id"` // epoch segundos; 0 = sin reserva
	ContadorNodeID string `yaml:"contador_node_id"` // unidades producidas del turno (opcional)
}

// LoadConfig carga la configuración desde el archivo YAML
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error leyendo archivo de configuración: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parseando YAML: %w", err)
	}

	return &config, nil
}

// BuscarMaquina devuelve la configuración de una máquina por su ID.
func (c *Config) BuscarMaquina(id int) *Maquina {
	for i := range c.Maquinas {
		if c.Maquinas[i].ID == id {
			return &c.Maquinas[i]
		}
	}
	return nil
}

// Métodos helper para conversión de tipos
func (p PostgresConfig) GetConnectTimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(p.ConnectTimeout)
}

func (p PostgresConfig) GetHealthcheckIntervalDuration() (time.Duration, error) {
	return time.ParseDuration(p.HealthcheckInterval)
}

func (o OPCUAConfig) GetConnectionTimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(o.ConnectionTimeout)
}

func (o OPCUAConfig) GetSessionTimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(o.SessionTimeout)
}

func (o OPCUAConfig) GetSubscriptionIntervalDuration() (time.Duration, error) {
	return time.ParseDuration(o.SubscriptionInterval)
}

func (s SQLServerConfig) GetMaxConnLifetimeDuration() (time.Duration, error) {
	return time.ParseDuration(s.MaxConnLifetime)
}

func (s SQLServerConfig) GetMaxConnIdleTimeDuration() (time.Duration, error) {
	return time.ParseDuration(s.MaxConnIdleTime)
}
