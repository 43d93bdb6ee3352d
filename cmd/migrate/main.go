package main

import (
	"context"
	"flag"
	"os"

	"claimsim/adapters/excel"
	"claimsim/adapters/postgres"
	"claimsim/internal/logger"
	"claimsim/internal/migration"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	_ = godotenv.Load()
	log := logger.New()
	defer log.Sync()
	ctx := logger.WithLogger(context.Background(), log)

	databaseURL := flag.String("database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	importPath := flag.String("import", "", "Claims file (.csv or .xlsx) to load into the claims table")
	flag.Parse()

	if *databaseURL == "" {
		log.Fatal("Usage: migrate -database-url <url> [-import claims.csv]")
	}

	db, err := sqlx.Connect("postgres", *databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if *importPath == "" {
		return
	}
	cs, err := excel.NewClaimSource(*importPath).LoadClaims(ctx)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *importPath, err)
	}
	if err := postgres.NewClaimRepository(db).ImportClaims(ctx, cs); err != nil {
		log.Fatalf("Import failed: %v", err)
	}
	log.Infof("Imported %d claims from %s", len(cs), *importPath)
}
