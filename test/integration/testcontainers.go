package integration

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/credvault/credvault/pkg/audit"
	"github.com/credvault/credvault/pkg/config"
	"github.com/credvault/credvault/pkg/envelope"
	"github.com/credvault/credvault/pkg/notify"
	"github.com/credvault/credvault/pkg/server"
	"github.com/credvault/credvault/pkg/server/endpoints"
	gormstore "github.com/credvault/credvault/pkg/server/store/gorm"
	"github.com/credvault/credvault/pkg/vault"
)

const testSecret = "integration-test-master-secret"

// TestContext holds all the resources needed for integration tests
type TestContext struct {
	DB            *gorm.DB
	RawDB         *sql.DB
	Container     testcontainers.Container
	ServerURL     string
	DatabaseURL   string
	Envelope      *envelope.Envelope
	HTTPClient    *http.Client
	Cancel        context.CancelFunc
	ServerProcess *exec.Cmd
	InlineServer  *server.Server
	Dispatcher    *notify.Dispatcher
}

// NewTestContext creates a new test context with PostgreSQL testcontainer.
// Modes:
//   - Binary mode (default): Set CREDVAULT_BINARY to the path of the credvaultctl binary
//   - Inline mode: Set CREDVAULT_INLINE=1 to run the server in-process (no binary needed)
func NewTestContext(ctx context.Context) (*TestContext, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}
	migrationsDir := filepath.Join(projectRoot, "db", "migrations")

	inlineMode := os.Getenv("CREDVAULT_INLINE") == "1"
	binaryPath := os.Getenv("CREDVAULT_BINARY")

	if !inlineMode && binaryPath == "" {
		return nil, fmt.Errorf("either CREDVAULT_BINARY or CREDVAULT_INLINE=1 is required\n\nBinary mode:\n  go build -o credvaultctl ./cmd/credvaultctl\n  INTEGRATION_TEST=1 CREDVAULT_BINARY=$(pwd)/credvaultctl go test -v ./test/integration/...\n\nInline mode:\n  INTEGRATION_TEST=1 CREDVAULT_INLINE=1 go test -v ./test/integration/...")
	}
	if !inlineMode {
		if _, err := os.Stat(binaryPath); err != nil {
			return nil, fmt.Errorf("CREDVAULT_BINARY path does not exist: %s", binaryPath)
		}
		log.Printf("Using binary: %s", binaryPath)
	} else {
		log.Println("Using inline server mode")
	}

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("credvault_test"),
		tcpostgres.WithUsername("credvault"),
		tcpostgres.WithPassword("credvault"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{
		DSN:                  connStr,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	rawDB, err := db.DB()
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get raw db: %w", err)
	}

	if err := runMigrations(rawDB, migrationsDir); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	env, err := envelope.NewEnvelope(envelope.DeriveKey(testSecret))
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, err
	}

	serverPort := "18080"
	tc := &TestContext{
		DB:          db,
		RawDB:       rawDB,
		Container:   pgContainer,
		ServerURL:   fmt.Sprintf("http://127.0.0.1:%s", serverPort),
		DatabaseURL: connStr,
		Envelope:    env,
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
	}

	if inlineMode {
		err = tc.startInlineServer(serverPort)
	} else {
		err = tc.startBinary(binaryPath, serverPort)
	}
	if err != nil {
		tc.Close(ctx)
		return nil, err
	}

	if err := waitForServer(tc.ServerURL, 30*time.Second); err != nil {
		tc.Close(ctx)
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}
	return tc, nil
}

// startInlineServer starts the server in-process (no binary needed)
func (tc *TestContext) startInlineServer(port string) error {
	audit.SetEnabled(false)

	stores := vault.Stores{
		Credentials: gormstore.NewCredentialStore(tc.DB),
		Services:    gormstore.NewServiceStore(tc.DB),
		Tags:        gormstore.NewTagStore(tc.DB),
		Users:       gormstore.NewUserStore(tc.DB),
		AccessLogs:  gormstore.NewAccessLogStore(tc.DB),
	}
	tc.Dispatcher = notify.NewDispatcher(stores.AccessLogs, notify.NewLogSink(nil), notify.Options{Workers: 2, QueueSize: 64})

	cfg := config.Default()
	s, err := server.NewServer(server.Deps{
		Config:   cfg,
		Secret:   testSecret,
		Stores:   stores,
		Health:   gormstore.NewHealthStore(tc.DB),
		Sealer:   tc.Envelope,
		Notifier: tc.Dispatcher,
	}, "127.0.0.1", port)
	if err != nil {
		return fmt.Errorf("failed to start inline server: %w", err)
	}
	endpoints.RegisterAll(s)

	go func() {
		if err := s.Start(); err != nil {
			log.Printf("inline server: %v", err)
		}
	}()

	tc.InlineServer = s
	tc.Cancel = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
		_ = tc.Dispatcher.Close(ctx)
	}
	return nil
}

// startBinary starts the credvaultctl server binary
func (tc *TestContext) startBinary(binaryPath, port string) error {
	ctx, cancel := context.WithCancel(context.Background())

	// Migrations already ran in the test setup.
	cmd := exec.CommandContext(ctx, binaryPath, "server", "--no-migrate", "-b", "127.0.0.1", "-p", port)
	cmd.Env = append(os.Environ(),
		"DATABASE_URL="+tc.DatabaseURL,
		"CREDVAULT_SECRET_KEY="+testSecret,
		"CREDVAULT_AUDIT_ENABLED=false",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start binary: %w", err)
	}
	tc.ServerProcess = cmd
	tc.Cancel = cancel
	return nil
}

// waitForServer polls the server until it responds or times out
func waitForServer(serverURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = timeout

	return backoff.Retry(func() error {
		resp, err := client.Get(serverURL + "/")
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		return nil
	}, b)
}

// Close cleans up all test resources
func (tc *TestContext) Close(ctx context.Context) {
	if tc.Cancel != nil {
		tc.Cancel()
	}
	if tc.ServerProcess != nil && tc.ServerProcess.Process != nil {
		_ = tc.ServerProcess.Process.Kill()
		_ = tc.ServerProcess.Wait()
	}
	if tc.RawDB != nil {
		_ = tc.RawDB.Close()
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}

// findProjectRoot locates the project root directory
func findProjectRoot() (string, error) {
	for _, p := range []string{"../..", "..", "."} {
		if _, err := os.Stat(filepath.Join(p, "go.mod")); err == nil {
			return filepath.Abs(p)
		}
	}
	return "", fmt.Errorf("project root not found (looking for go.mod)")
}

// runMigrations applies the up migrations in order.
func runMigrations(db *sql.DB, migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("migration %s: %w", filepath.Base(file), err)
		}
	}
	return nil
}
