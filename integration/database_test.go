//go:build database

package integration

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestFleetscanWithMySQL tests the fleetscan CLI with a MySQL store backend.
func TestFleetscanWithMySQL(t *testing.T) {
	ctx := context.Background()

	// Start MySQL container
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306:3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "fleetscan",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(30 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	// Get connection details
	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/fleetscan?parseTime=true", host, port.Port())

	// Set environment variables
	_ = os.Setenv("FLEETSCAN_STORE_BACKEND", "mysql")
	_ = os.Setenv("FLEETSCAN_STORE_DB_CONNECT", connStr)
	defer func() { _ = os.Unsetenv("FLEETSCAN_STORE_BACKEND") }()
	defer func() { _ = os.Unsetenv("FLEETSCAN_STORE_DB_CONNECT") }()

	// Run fleetscan store clear
	err = runFleetscanCommand(t, "store", "clear")
	require.NoError(t, err)

	// Run fleetscan store migrate
	err = runFleetscanCommand(t, "store", "migrate")
	require.NoError(t, err)

	// Run fleetscan status
	err = runFleetscanCommand(t, "status")
	require.NoError(t, err)

	// Roll the schema back to the initial state
	err = runFleetscanCommand(t, "store", "migrate", "--target-version", "0")
	require.NoError(t, err)
}

// TestFleetscanWithPostgres tests the fleetscan CLI with a PostgreSQL store backend.
func TestFleetscanWithPostgres(t *testing.T) {
	ctx := context.Background()

	// Start Postgres container
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432:5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()
	time.Sleep(5 * time.Second)

	// Get connection details
	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres", host, port.Port())

	// Set environment variables
	_ = os.Setenv("FLEETSCAN_STORE_BACKEND", "postgresql")
	_ = os.Setenv("FLEETSCAN_STORE_DB_CONNECT", connStr)
	defer func() { _ = os.Unsetenv("FLEETSCAN_STORE_BACKEND") }()
	defer func() { _ = os.Unsetenv("FLEETSCAN_STORE_DB_CONNECT") }()

	// Run fleetscan store clear
	err = runFleetscanCommand(t, "store", "clear")
	require.NoError(t, err)

	// Run fleetscan store migrate
	err = runFleetscanCommand(t, "store", "migrate")
	require.NoError(t, err)

	// Run fleetscan status
	err = runFleetscanCommand(t, "status")
	require.NoError(t, err)

	// Roll the schema back to the initial state
	err = runFleetscanCommand(t, "store", "migrate", "--target-version", "0")
	require.NoError(t, err)
}

func runFleetscanCommand(t *testing.T, args ...string) error {
	fleetscanPath := getFleetscanBinary()
	cmd := exec.Command(fleetscanPath, args...)
	cmd.Dir = "../" // Run from project root
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Logf("Command failed: %s\nOutput: %s", cmd.String(), string(output))
		return err
	}
	return nil
}
