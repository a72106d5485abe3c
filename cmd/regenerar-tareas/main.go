package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"API-PLANIFICACION/internal/config"
	"API-PLANIFICACION/internal/db"
	"API-PLANIFICACION/internal/scheduler"
)

// Regenera las tareas fragmentadas de un programa desde su timeline vigente.
// Uso: regenerar-tareas <programa_id>
func main() {
	log.SetFlags(log.Ldate | log.Ltime)
	log.Println("🚀 ================================================")
	log.Println("🚀 Regenerar Tareas - Replanificación de Programa")
	log.Println("🚀 ================================================")
	log.Println("")

	if len(os.Args) < 2 {
		log.Fatalf("❌ Uso: %s <programa_id>", os.Args[0])
	}
	programaID, err := strconv.Atoi(os.Args[1])
	if err != nil {
		log.Fatalf("❌ programa_id inválido '%s': debe ser un número entero", os.Args[1])
	}

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Archivo .env no encontrado, usando valores por defecto")
	}

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("❌ Error cargando configuración: %v", err)
	}
	log.Printf("✅ Configuración cargada desde: %s", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	connectTimeout, _ := cfg.Database.Postgres.GetConnectTimeoutDuration()
	healthCheckInterval, _ := cfg.Database.Postgres.GetHealthcheckIntervalDuration()

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

	almacen := db.NewAlmacenPostgres(postgresMgr)

	programa, err := almacen.ObtenerPrograma(ctx, programaID)
	if err != nil {
		log.Fatalf("❌ Programa %d no encontrado: %v", programaID, err)
	}
	log.Printf("📋 Programa #%d: %s", programa.ID, programa.NombreODefecto())

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("servicio", "regenerar-tareas").Logger()
	disponibilidad := scheduler.NewDisponibilidadTareas(almacen, programaID)
	planificador := scheduler.NewPlanificadorProduccion(almacen, disponibilidad, logger)
	planificador.TiempoSetup(cfg.Planificacion.GetTiempoSetupDuration())

	log.Println("🔄 Regenerando tareas fragmentadas...")
	if !planificador.CrearTareasFragmentadas(ctx, programaID) {
		log.Fatalf("❌ No fue posible regenerar las tareas del programa %d", programaID)
	}

	if err := planificador.ActualizarFechaFin(ctx, programaID); err != nil {
		log.Printf("⚠️  No se pudo actualizar la fecha fin del programa: %v", err)
	}

	tareas, err := almacen.TareasDePrograma(ctx, programaID)
	if err != nil {
		log.Fatalf("❌ Error listando tareas regeneradas: %v", err)
	}

	log.Printf("✅ Regeneración completada: %d tareas", len(tareas))
	for i := range tareas {
		t := &tareas[i]
		log.Printf("   ↳ Tarea #%d: OT %d, máquina %d, %s → %s (%.1f unidades)",
			t.ID, t.OrdenTrabajoID, t.MaquinaID,
			t.FechaInicioPlan.Format(scheduler.FormatoFechaHora),
			t.FechaFinPlan.Format(scheduler.FormatoFechaHora),
			t.CantidadAsignada)
	}
}
