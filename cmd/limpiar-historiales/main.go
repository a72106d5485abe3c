package main

import (
	"context"
	"log"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"API-PLANIFICACION/internal/config"
	"API-PLANIFICACION/internal/db"
	"API-PLANIFICACION/internal/models"
)

// Limpia los historiales de planificación de un programa. Por defecto elimina
// solo los historiales DIARIO duplicados (conserva el primero de cada fecha,
// que es el cierre válido). Con --todos elimina todos los historiales, para
// replanificar el programa desde cero.
// Uso: limpiar-historiales <programa_id> [--todos]
func main() {
	log.SetFlags(log.Ldate | log.Ltime)
	log.Println("🚀 ================================================")
	log.Println("🚀 Limpiar Historiales - Mantención de Programa")
	log.Println("🚀 ================================================")
	log.Println("")

	if len(os.Args) < 2 {
		log.Fatalf("❌ Uso: %s <programa_id> [--todos]", os.Args[0])
	}
	programaID, err := strconv.Atoi(os.Args[1])
	if err != nil {
		log.Fatalf("❌ programa_id inválido '%s': debe ser un número entero", os.Args[1])
	}

	eliminarTodos := false
	for _, arg := range os.Args[2:] {
		if arg == "--todos" {
			eliminarTodos = true
		}
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
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

	historiales, err := almacen.HistorialesDePrograma(ctx, programaID)
	if err != nil {
		log.Fatalf("❌ Error listando historiales: %v", err)
	}

	if len(historiales) == 0 {
		log.Printf("ℹ️  El programa #%d (%s) no tiene historiales, nada que limpiar", programa.ID, programa.NombreODefecto())
		return
	}

	if eliminarTodos {
		log.Printf("🗑️  Eliminando %d historial(es) del programa #%d (%s)...",
			len(historiales), programa.ID, programa.NombreODefecto())

		if err := almacen.EliminarHistorialesDePrograma(ctx, programaID); err != nil {
			log.Fatalf("❌ Error eliminando historiales: %v", err)
		}

		log.Printf("✅ Historiales eliminados")
		return
	}

	duplicados := diariosDuplicados(historiales)
	if len(duplicados) == 0 {
		log.Printf("ℹ️  El programa #%d (%s) no tiene historiales DIARIO duplicados", programa.ID, programa.NombreODefecto())
		return
	}

	log.Printf("🗑️  Eliminando %d historial(es) DIARIO duplicado(s) del programa #%d (%s)...",
		len(duplicados), programa.ID, programa.NombreODefecto())

	eliminados := 0
	for _, historial := range duplicados {
		if err := almacen.EliminarHistorial(ctx, historial.ID); err != nil {
			log.Printf("❌ Error eliminando historial #%d (%s): %v",
				historial.ID, historial.FechaReferencia.Format("2006-01-02"), err)
			continue
		}
		log.Printf("   🗑️  Historial #%d (%s, creado %s)",
			historial.ID,
			historial.FechaReferencia.Format("2006-01-02"),
			historial.CreadoEn.Format("2006-01-02 15:04:05"))
		eliminados++
	}

	log.Printf("✅ %d de %d duplicado(s) eliminado(s)", eliminados, len(duplicados))
}

// diariosDuplicados devuelve los historiales DIARIO que sobran: para cada fecha
// se conserva el más antiguo (el cierre que realmente ocurrió primero).
func diariosDuplicados(historiales []models.HistorialPlanificacion) []models.HistorialPlanificacion {
	sort.Slice(historiales, func(i, j int) bool {
		return historiales[i].CreadoEn.Before(historiales[j].CreadoEn)
	})

	vistos := make(map[string]bool)
	var sobrantes []models.HistorialPlanificacion
	for _, historial := range historiales {
		if historial.TipoReajuste != models.ReajusteDiario {
			continue
		}
		fecha := historial.FechaReferencia.Format("2006-01-02")
		if vistos[fecha] {
			sobrantes = append(sobrantes, historial)
			continue
		}
		vistos[fecha] = true
	}

	return sobrantes
}
