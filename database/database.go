package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"github.com/rpupo63/showcase-backend/config"
	"github.com/rpupo63/showcase-backend/errs"
	"github.com/rpupo63/showcase-backend/models"
)

type Database struct {
	db              *gorm.DB
	projectRepo     *ProjectRepo
	userRepo        *UserRepo
	authSessionRepo *AuthSessionRepo
}

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB) Database {
	return Database{
		db:              db,
		projectRepo:     NewProjectRepo(db),
		userRepo:        NewUserRepo(db),
		authSessionRepo: NewAuthSessionRepo(db),
	}
}

// Accessor methods for each repository

func (d Database) ProjectRepo() *ProjectRepo {
	return d.projectRepo
}

func (d Database) UserRepo() *UserRepo {
	return d.userRepo
}

func (d Database) AuthSessionRepo() *AuthSessionRepo {
	return d.authSessionRepo
}

// GetDB returns the underlying database connection
func (d Database) GetDB() *gorm.DB {
	return d.db
}

// Close releases the connection pool.
func (d Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate creates or updates every table.
func (d Database) Migrate(ctx context.Context) error {
	if err := d.db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return errs.NewDatabaseError("migrate", "schema", err)
	}
	return nil
}

// Ping checks the primary connection.
func (d Database) Ping(ctx context.Context) error {
	var result int
	if err := d.db.WithContext(ctx).Raw("SELECT 1").Scan(&result).Error; err != nil {
		return errs.NewDatabaseError("ping", "database", err)
	}
	return nil
}

// DSN builds the postgres connection string from configuration. DB_TYPE=supa
// reads the SUPABASE_DB_* variables; DB_TYPE=postgres uses DATABASE_URL.
func DSN(c map[string]string) (string, error) {
	dbType := config.GetString(c, "DB_TYPE", "supa")
	switch dbType {
	case "supa":
		host := config.GetString(c, "SUPABASE_DB_HOST", "")
		if host == "" {
			return "", fmt.Errorf("SUPABASE_DB_HOST is required for DB_TYPE=supa")
		}
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=require",
			host,
			config.GetString(c, "SUPABASE_DB_USER", ""),
			config.GetString(c, "SUPABASE_DB_PASSWORD", ""),
			config.GetString(c, "SUPABASE_DB_NAME", ""),
			config.GetString(c, "SUPABASE_DB_PORT", "5432"),
		), nil
	case "postgres":
		dsn := config.GetString(c, "DATABASE_URL", "")
		if dsn == "" {
			return "", fmt.Errorf("DATABASE_URL is required for DB_TYPE=postgres")
		}
		return dsn, nil
	default:
		return "", fmt.Errorf("unsupported DB_TYPE %q", dbType)
	}
}

// Open connects to postgres, registers the optional read replica and verifies
// the connection.
func Open(ctx context.Context, c map[string]string) (Database, error) {
	logger := zlog.With().Str("component", "database").Logger()

	connStr, err := DSN(c)
	if err != nil {
		return Database{}, err
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  connStr,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		PrepareStmt: false,
		Logger:      newGormLogger(c),
	})
	if err != nil {
		return Database{}, fmt.Errorf("connecting to database: %w", err)
	}

	if replica := config.GetString(c, "DB_REPLICA_DSN", ""); replica != "" {
		if err := UseReplica(db, postgres.New(postgres.Config{DSN: replica, PreferSimpleProtocol: true})); err != nil {
			return Database{}, fmt.Errorf("registering read replica: %w", err)
		}
		logger.Info().Msg("read replica registered")
	}

	d := New(db)
	if err := d.Ping(ctx); err != nil {
		return Database{}, err
	}
	return d, nil
}

// catalogResolver names the replica resolver. Only queries that opt in with
// onReplica use it; owner reads and read-backs after a write stay on the primary.
const catalogResolver = "catalog"

// UseReplica registers replica for the public catalog listing queries.
func UseReplica(db *gorm.DB, replica gorm.Dialector) error {
	return db.Use(dbresolver.Register(dbresolver.Config{
		Replicas: []gorm.Dialector{replica},
		Policy:   dbresolver.RandomPolicy{},
	}, catalogResolver))
}

func onReplica(db *gorm.DB) *gorm.DB {
	return db.Clauses(dbresolver.Use(catalogResolver))
}

func newGormLogger(c map[string]string) logger.Interface {
	level := logger.Warn
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		level = logger.Info
	}
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Duration(config.GetInt(c, "DB_SLOW_THRESHOLD_SECONDS", 10)) * time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)
}
