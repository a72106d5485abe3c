package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"API-PLANIFICACION/internal/config"
	"API-PLANIFICACION/internal/db"
	"API-PLANIFICACION/internal/erp"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("🚀 ================================================")
	log.Println("🚀 Sync Estándares - Sincronización ERP → Rutas")
	log.Println("🚀 ================================================")
	log.Println("")

	// Cargar .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Archivo .env no encontrado, usando valores por defecto")
	}

	// 1. Cargar configuración
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("❌ Error cargando configuración: %v", err)
	}
	log.Printf("✅ Configuración cargada desde: %s", configPath)

	ctx := context.Background()

	// 2. Conectar al ERP (SQL Server)
	log.Println("🔌 Conectando al ERP (SQL Server)...")
	erpManager, err := db.GetManagerWithConfigAndLabel(ctx, cfg.Database.SQLServer, "sync-estandares")
	if err != nil {
		log.Fatalf("❌ Error conectando al ERP: %v", err)
	}
	defer erpManager.Close()
	log.Println("✅ Conectado al ERP")

	// 3. Conectar a PostgreSQL
	log.Println("🔌 Conectando a PostgreSQL...")

	connectTimeout, err := cfg.Database.Postgres.GetConnectTimeoutDuration()
	if err != nil {
		log.Printf("⚠️  Error parseando connect_timeout: %v, usando 30s", err)
		connectTimeout = 30 * time.Second
	}

	healthCheckInterval, err := cfg.Database.Postgres.GetHealthcheckIntervalDuration()
	if err != nil {
		log.Printf("⚠️  Error parseando healthcheck_interval: %v, usando 1m", err)
		healthCheckInterval = 1 * time.Minute
	}

	postgresMgr, err := db.GetPostgresManagerWithURL(
		ctx,
		cfg.Database.Postgres.URL,
		int32(cfg.Database.Postgres.MinConns),
		int32(cfg.Database.Postgres.MaxConns),
		connectTimeout,
		healthCheckInterval,
	)
	if err != nil {
		log.Fatalf("❌ Error conectando a PostgreSQL: %v", err)
	}
	defer postgresMgr.Close()
	log.Println("✅ Conectado a PostgreSQL")
	log.Println("")

	almacen := db.NewAlmacenPostgres(postgresMgr)

	// 4. Configurar intervalo de sincronización
	syncInterval := cfg.Planificacion.GetIntervaloSyncERPDuration()
	if intervalStr := os.Getenv("SYNC_INTERVAL"); intervalStr != "" {
		if parsed, err := time.ParseDuration(intervalStr); err == nil {
			syncInterval = parsed
		} else {
			log.Printf("⚠️  Error parseando SYNC_INTERVAL '%s': %v, usando %v", intervalStr, err, syncInterval)
		}
	}

	// 5. Crear worker y ejecutar
	syncWorker := erp.NewEstandaresSyncWorker(ctx, erpManager, almacen, syncInterval)

	// Modo one-shot: SYNC_ONCE=true ejecuta una sola pasada y termina
	if os.Getenv("SYNC_ONCE") == "true" {
		actualizados, errores := syncWorker.SyncEstandares()
		if errores > 0 {
			log.Printf("⚠️  Sincronización terminada con %d error(es)", errores)
			os.Exit(1)
		}
		log.Printf("✅ Sincronización única completada (%d estándares actualizados)", actualizados)
		return
	}

	log.Println("🔁 Iniciando sincronización continua...")
	log.Printf("⏱️  Sincronización se ejecutará cada %v", syncInterval)
	log.Println("🛑 Presiona Ctrl+C para detener")
	log.Println("")

	syncWorker.SyncEstandares()

	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()

	syncCount := 1
	for range ticker.C {
		syncCount++
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Printf("🔁 Sincronización #%d", syncCount)
		syncWorker.SyncEstandares()
	}
}
