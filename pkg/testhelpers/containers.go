// Package testhelpers provides shared PostgreSQL containers for integration tests.
package testhelpers

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-unify/pkg/database"
)

// PostgresImage is the PostgreSQL image used for integration tests.
const PostgresImage = "postgres:17-alpine"

const (
	superUser     = "ekaya"
	superPassword = "test_password"
	// AppRole owns the unify test database. It is not a superuser, so
	// row-level security applies to it exactly as in production.
	AppRole     = "unify_app"
	appPassword = "unify_password"
	unifyDBName = "ekaya_unify_test"
)

// TestDB holds a shared test database container and a superuser pool.
type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	ConnStr   string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "postgres",
			"POSTGRES_USER":     superUser,
			"POSTGRES_PASSWORD": superPassword,
		},
		// The entrypoint restarts postgres once after init; wait for the second start.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	connStr, err := ConnString(ctx, container, superUser, superPassword, "postgres")
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err := pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	return &TestDB{
		Container: container,
		Pool:      pool,
		ConnStr:   connStr,
	}, nil
}

// ConnString builds a connection URL for the container.
func ConnString(ctx context.Context, container testcontainers.Container, user, password, dbName string) (string, error) {
	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("failed to get container port: %w", err)
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port.Port(), dbName), nil
}

// UnifyDB holds the unify database, migrated and connected as AppRole.
// Use this for testing repositories and handlers against a real database.
type UnifyDB struct {
	DB      *database.DB
	ConnStr string
}

var (
	sharedUnifyDB     *UnifyDB
	sharedUnifyDBOnce sync.Once
	sharedUnifyDBErr  error
)

// GetUnifyDB returns a shared, migrated unify database for integration tests.
func GetUnifyDB(t *testing.T) *UnifyDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	testDB := GetTestDB(t)

	sharedUnifyDBOnce.Do(func() {
		sharedUnifyDB, sharedUnifyDBErr = setupUnifyDB(testDB)
	})

	if sharedUnifyDBErr != nil {
		t.Fatalf("Failed to setup unify database: %v", sharedUnifyDBErr)
	}

	return sharedUnifyDB
}

func setupUnifyDB(testDB *TestDB) (*UnifyDB, error) {
	ctx := context.Background()

	stmts := []string{
		fmt.Sprintf("CREATE ROLE %s WITH LOGIN NOSUPERUSER NOBYPASSRLS PASSWORD '%s'", AppRole, appPassword),
		fmt.Sprintf("CREATE DATABASE %s OWNER %s", unifyDBName, AppRole),
	}
	for _, stmt := range stmts {
		if _, err := testDB.Pool.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to prepare unify database: %w", err)
		}
	}

	connStr, err := ConnString(ctx, testDB.Container, AppRole, appPassword, unifyDBName)
	if err != nil {
		return nil, err
	}

	// golang-migrate needs database/sql.
	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open sql connection: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: 5,
	}, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to unify database: %w", err)
	}

	return &UnifyDB{
		DB:      db,
		ConnStr: connStr,
	}, nil
}
