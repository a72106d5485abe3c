package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"API-PLANIFICACION/internal/communication/plc"
	"API-PLANIFICACION/internal/config"
	"API-PLANIFICACION/internal/db"
	"API-PLANIFICACION/internal/erp"
	"API-PLANIFICACION/internal/listeners"
)

func main() {
	// Configurar logger sin timestamps para el banner
	log.SetOutput(os.Stdout)
	log.SetFlags(0)

	log.Println("")
	log.Println("    ██████╗░██╗░░░░░░█████╗░███╗░░██╗██╗███████╗██╗░█████╗░░█████╗░░█████╗░██╗░█████╗░███╗░░██╗")
	log.Println("    ██╔══██╗██║░░░░░██╔══██╗████╗░██║██║██╔════╝██║██╔══██╗██╔══██╗██╔══██╗██║██╔══██╗████╗░██║")
	log.Println("    ██████╔╝██║░░░░░███████║██╔██╗██║██║█████╗░░██║██║░░╚═╝███████║██║░░╚═╝██║██║░░██║██╔██╗██║")
	log.Println("    ██╔═══╝░██║░░░░░██╔══██║██║╚████║██║██╔══╝░░██║██║░░██╗██╔══██║██║░░██╗██║██║░░██║██║╚████║")
	log.Println("    ██║░░░░░███████╗██║░░██║██║░╚███║██║██║░░░░░██║╚█████╔╝██║░░██║╚█████╔╝██║╚█████╔╝██║░╚███║")
	log.Println("    ╚═╝░░░░░╚══════╝╚═╝░░╚═╝╚═╝░░╚══╝╚═╝╚═╝░░░░░╚═╝░╚════╝░╚═╝░░╚═╝░╚════╝░╚═╝░╚════╝░╚═╝░░╚══╝")
	log.Println("")
	log.Println("Iniciando API-Planificacion...")
	log.Println("")

	// Ahora activar fecha/hora para los logs normales
	log.SetFlags(log.Ldate | log.Ltime)

	// 1. Cargar archivo .env para obtener ruta del config
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Archivo .env no encontrado, usando valores por defecto")
	}

	// 2. Cargar configuración desde YAML
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("❌ Error al cargar configuración: %v", err)
	}
	log.Printf("✅ Configuración cargada desde: %s", configPath)

	// 3. Inicializar la conexión a PostgreSQL usando config YAML
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	connectTimeout, _ := cfg.Database.Postgres.GetConnectTimeoutDuration()
	healthCheckInterval, _ := cfg.Database.Postgres.GetHealthcheckIntervalDuration()

	dbManager, err := db.GetPostgresManagerWithURL(
		ctx,
		cfg.Database.Postgres.URL,
		int32(cfg.Database.Postgres.MinConns),
		int32(cfg.Database.Postgres.MaxConns),
		connectTimeout,
		healthCheckInterval,
	)
	if err != nil {
		log.Fatalf("❌ Error al inicializar PostgreSQL: %v", err)
	}
	defer dbManager.Close()
	log.Println("✅ Base de datos PostgreSQL inicializada correctamente")

	almacen := db.NewAlmacenPostgres(dbManager)

	// 4. Conectar con el ERP y levantar el worker de estándares (opcional)
	if cfg.Database.SQLServer.Host != "" {
		erpManager, err := db.GetManagerWithConfigAndLabel(ctx, cfg.Database.SQLServer, "erp")
		if err != nil {
			log.Printf("⚠️  ERP no disponible: %v (continuando sin sincronización de estándares)", err)
		} else {
			defer erpManager.Close()

			syncWorker := erp.NewEstandaresSyncWorker(
				context.Background(),
				erpManager,
				almacen,
				cfg.Planificacion.GetIntervaloSyncERPDuration(),
			)
			syncWorker.Start()
			defer syncWorker.Stop()
		}
	} else {
		log.Println("⚠️  ERP no configurado, sin sincronización de estándares")
	}

	// 5. Mostrar máquinas configuradas
	if len(cfg.Maquinas) > 0 {
		log.Printf("🏭 Máquinas configuradas: %d", len(cfg.Maquinas))
		for _, maquina := range cfg.Maquinas {
			log.Println("  ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			log.Printf("  ⚙️  Máquina #%d: %s", maquina.ID, maquina.Codigo)
			log.Printf("     Descripción: %s", maquina.Descripcion)
			if maquina.PLC.EstadoNodeID != "" {
				log.Printf("     PLC estado: %s", maquina.PLC.EstadoNodeID)
			} else {
				log.Printf("     PLC: sin nodos (solo planificación)")
			}
		}
		log.Println("  ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("")
	}

	// 6. Conectar el monitor OPC UA de planta (opcional)
	var monitor *plc.Monitor
	if cfg.OPCUA.Endpoint != "" {
		monitor = plc.NewMonitor(cfg)
		if err := monitor.Connect(ctx); err != nil {
			log.Printf("⚠️  PLC no disponible: %v (continuando sin estado en línea)", err)
			monitor = nil
		} else {
			defer monitor.Close(context.Background())
		}
	}

	// 7. Crear e iniciar el servidor HTTP con endpoints
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("servicio", "planificador").Logger()
	httpAddr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	httpService := listeners.NewHTTPFrontend(httpAddr, almacen, cfg, logger)
	if monitor != nil {
		httpService.SetMonitorPLC(monitor)
	}

	log.Printf("🌐 Servidor HTTP iniciando en %s...", httpAddr)
	log.Println("📊 Endpoints disponibles:")
	log.Println("   GET   /programas/:id")
	log.Println("   GET   /programas/:id/timeline")
	log.Println("   GET   /programas/:id/tareas")
	log.Println("   POST  /programas/:id/tareas/regenerar")
	log.Println("   POST  /programas/:id/finalizar-dia")
	log.Println("   PATCH /tareas/:id/progreso")
	log.Println("   GET   /ws/:room (programa_N, maquinas)")

	g, gctx := errgroup.WithContext(context.Background())

	// Servidor HTTP con las rutas configuradas
	g.Go(httpService.Start)

	// Difusión periódica del estado en línea de las máquinas
	if monitor != nil {
		intervalo, err := cfg.OPCUA.GetSubscriptionIntervalDuration()
		if err != nil || intervalo <= 0 {
			intervalo = 10 * time.Second
		}

		g.Go(func() error {
			ticker := time.NewTicker(intervalo)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-ticker.C:
					estados := monitor.LeerTodas(gctx)
					if len(estados) > 0 {
						httpService.GetWebSocketHub().NotifyEstadoMaquinas(estados)
					}
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("❌ Servicio terminado con error: %v", err)
	}
}
