package db

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/demenago/devis-saas/internal/models"
)

// Models migrated on the AutoMigrate (dev) path, in dependency order.
func migrationModels() []any {
	return []any{
		&models.User{}, &models.Entreprise{},
		&models.CategorieMeuble{}, &models.Meuble{},
		&models.Devis{}, &models.DevisMeuble{},
	}
}

func ConnectAndMigrate(log *zap.SugaredLogger) (*gorm.DB, error) {
	dsn := GetNormalizedDSN()
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN est vide, vérifiez la configuration de l'environnement")
	}
	var db *gorm.DB
	var err error
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel), TranslateError: true}
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			break
		}
		log.Warnw("retrying DB connection", "error", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}

	// Basic connectivity test
	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	log.Infow("database connected", "dsn", MaskDSN(dsn))

	// If MIGRATIONS=1 (or true) we run sql migrations via golang-migrate; otherwise keep AutoMigrate fallback (dev convenience)
	if v := strings.ToLower(os.Getenv("MIGRATIONS")); v == "1" || v == "true" || v == "yes" {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range migrationModels() {
			if migErr := db.AutoMigrate(m); migErr != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
			}
		}
	}

	// Colonnes ajoutées après la première release : les installations ayant
	// migré avant leur introduction les reçoivent ici.
	for _, c := range []struct{ table, column, ddl string }{
		{"entreprises", "smtp_host", "TEXT"},
		{"entreprises", "smtp_port", "INTEGER"},
		{"entreprises", "smtp_user", "TEXT"},
		{"entreprises", "smtp_pass", "TEXT"},
	} {
		if err := EnsureColumn(db, c.table, c.column, c.ddl); err != nil {
			return nil, fmt.Errorf("ensure column %s.%s: %w", c.table, c.column, err)
		}
	}

	// sanity check: ensure required core tables exist
	for _, table := range []string{"users", "entreprises", "devis"} {
		if !db.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	// Seeding only when explicitly requested (e.g. development) via DB_SEED=1|true
	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		SeedCatalogue(db)
	}
	return db, nil
}

// SeedCatalogue inserts the base furniture catalogue when absent.
func SeedCatalogue(db *gorm.DB) {
	categories := []models.CategorieMeuble{
		{Nom: "Salon"}, {Nom: "Chambre"}, {Nom: "Cuisine"}, {Nom: "Cartons"},
	}
	for i := range categories {
		var existing models.CategorieMeuble
		if err := db.Where("nom = ?", categories[i].Nom).First(&existing).Error; err == gorm.ErrRecordNotFound {
			db.Create(&categories[i])
		} else {
			categories[i] = existing
		}
	}
	byNom := map[string]uint{}
	for _, c := range categories {
		byNom[c.Nom] = c.ID
	}
	meubles := []models.Meuble{
		{Nom: "Canapé 3 places", CategorieID: byNom["Salon"], VolumeM3: 1.5, PoidsKg: 90, Actif: true},
		{Nom: "Table basse", CategorieID: byNom["Salon"], VolumeM3: 0.4, PoidsKg: 25, Actif: true},
		{Nom: "Lit double", CategorieID: byNom["Chambre"], VolumeM3: 1.7, PoidsKg: 80, Actif: true},
		{Nom: "Armoire 2 portes", CategorieID: byNom["Chambre"], VolumeM3: 1.2, PoidsKg: 70, Actif: true},
		{Nom: "Réfrigérateur", CategorieID: byNom["Cuisine"], VolumeM3: 0.7, PoidsKg: 60, Actif: true},
		{Nom: "Carton standard", CategorieID: byNom["Cartons"], VolumeM3: 0.1, PoidsKg: 15, Actif: true},
	}
	for _, m := range meubles {
		var existing models.Meuble
		if err := db.Where("nom = ?", m.Nom).First(&existing).Error; err == gorm.ErrRecordNotFound {
			db.Create(&m)
		}
	}
}

// runSQLMigrations executes migrations in ./migrations using golang-migrate file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
