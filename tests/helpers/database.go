package helpers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dailypy/mediaflow/internal/database"
	"github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	User         = "postgres"
	Password     = "postgres"
	MasterDBName = "MEDIAFLOW_DB"

	// EnvSkipContainers disables any test which requires docker
	EnvSkipContainers = "MEDIAFLOW_SKIP_CONTAINERS"
)

var (
	ctx       = context.Background()
	pgManager = newDatabaseManager(MasterDBName)
)

// databaseManager is an internal test helper which facilitates
// the templating of a single 'master' database in a shared postgresql
// docker instance. This allows tests to use individual databases without
// needing to create multiple instances of docker. This manager will:
//   - automatically spawn the container,
//   - migrate the master database,
//   - mark the master database as a template, and,
//   - facilitate provisioning of new databases based off that master database.
type databaseManager struct {
	*sync.Mutex
	masterDatabaseName string
	pgContainer        *postgres.PostgresContainer
	host               string
	port               string
	connection         *sql.DB
}

func newDatabaseManager(databaseName string) *databaseManager {
	return &databaseManager{
		Mutex:              &sync.Mutex{},
		masterDatabaseName: databaseName,
	}
}

// NewSqliteCatalog connects to a fresh, fully migrated, sqlite database
// which is removed when the test completes.
func NewSqliteCatalog(t *testing.T) database.Manager {
	db := database.New()
	if err := db.Connect(database.DatabaseConfig{Dialect: database.DialectSqlite, Path: filepath.Join(t.TempDir(), "catalog.db")}); err != nil {
		t.Fatalf("failed to connect to sqlite catalog: %s", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate sqlite catalog: %s", err)
	}

	return db
}

// NewPostgresCatalog provisions a new postgres database (named after the test) from
// the migrated master template, and connects to it. The test is skipped when running
// in short mode, or if containers have been disabled via the environment.
func NewPostgresCatalog(t *testing.T) database.Manager {
	if testing.Short() || os.Getenv(EnvSkipContainers) != "" {
		t.Skip("skipping postgres catalog test: containers unavailable in this mode")
	}

	databaseName := strings.ToLower(strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	config := pgManager.provisionDB(t, databaseName)

	db := database.New()
	if err := db.Connect(config); err != nil {
		t.Fatalf("failed to connect to provisioned database '%s': %s", databaseName, err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// TeardownDatabases stops the shared postgres container, if one was started. This
// should be called from TestMain once all tests in the package have completed.
func TeardownDatabases() {
	pgManager.disconnect()
}

func (manager *databaseManager) provisionDB(t *testing.T, databaseName string) database.DatabaseConfig {
	manager.Lock()
	defer manager.Unlock()

	if databaseName == manager.masterDatabaseName {
		t.Fatalf("refusing to provision database '%s' as this DB is the master database", databaseName)
	}

	if manager.connection == nil {
		t.Log("Database provisioning request received but manager not started yet. Initializing database management...")
		manager.connect(t)
		manager.markMasterDB(t)
		t.Log("Database management initialised!")
	}

	_, err := manager.connection.Exec(fmt.Sprintf(`CREATE DATABASE "%s" TEMPLATE "%s"`, databaseName, manager.masterDatabaseName))
	if err != nil {
		var pqErr *pq.Error
		if !errors.As(err, &pqErr) || pqErr.Code != "42P04" {
			t.Fatalf("failed to provision database '%s' based on template database '%s': (%T) %s", databaseName, manager.masterDatabaseName, err, err)
		}

		t.Logf("Database '%s' already provisioned. Reusing database", databaseName)
	}

	return manager.configFor(databaseName)
}

func (manager *databaseManager) configFor(databaseName string) database.DatabaseConfig {
	return database.DatabaseConfig{
		Dialect:         database.DialectPostgres,
		User:            User,
		Password:        Password,
		Name:            databaseName,
		Host:            manager.host,
		Port:            manager.port,
		ConnectAttempts: 3,
	}
}

func (manager *databaseManager) connect(t *testing.T) {
	if manager.pgContainer == nil {
		manager.spawnPostgres(t)
	}

	_, dsn, err := manager.configFor("postgres").ConnectionString()
	if err != nil {
		t.Fatalf("failed to build connection string: %s", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to open postgres connection: %s", err)
	}

	for attempt := 1; ; attempt++ {
		if err := db.Ping(); err == nil {
			break
		} else if attempt >= 3 {
			t.Fatalf("all database connection attempts FAILED: %s", err)
		}

		t.Logf("DB connection attempt (%v/3) failed... Retrying in 3s", attempt)
		time.Sleep(3 * time.Second)
	}

	t.Log("Database connection established!")
	manager.connection = db
}

func (manager *databaseManager) markMasterDB(t *testing.T) {
	t.Log("Migrating master database...")
	master := database.New()
	if err := master.Connect(manager.configFor(manager.masterDatabaseName)); err != nil {
		t.Fatalf("failed to connect to master database: %s", err)
	}
	if err := master.Migrate(); err != nil {
		t.Fatalf("failed to migrate master database: %s", err)
	}
	_ = master.Close()

	t.Log("Master DB migrated, marking master database as template...")
	if _, err := manager.connection.Exec(fmt.Sprintf(`ALTER DATABASE "%s" WITH is_template TRUE`, manager.masterDatabaseName)); err != nil {
		t.Fatalf("failed to mark master database (%s) as template: %s", manager.masterDatabaseName, err)
	}
}

func (manager *databaseManager) spawnPostgres(t *testing.T) {
	postgresC, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("docker.io/postgres:14.1-alpine"),
		postgres.WithDatabase(manager.masterDatabaseName),
		postgres.WithUsername(User),
		postgres.WithPassword(Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start container: %s", err)
	}

	host, err := postgresC.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %s", err)
	}
	port, err := postgresC.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get container port: %s", err)
	}

	manager.pgContainer = postgresC
	manager.host, manager.port = host, port.Port()
}

func (manager *databaseManager) disconnect() {
	manager.Lock()
	defer manager.Unlock()

	if manager.connection != nil {
		_ = manager.connection.Close()
		manager.connection = nil
	}

	if manager.pgContainer != nil {
		fmt.Println("Tearing down Postgres container...")
		if err := manager.pgContainer.Terminate(ctx); err != nil {
			fmt.Printf("WARNING: failed to terminate Postgres container: %s\n", err)
		}
		manager.pgContainer = nil
	}
}
