package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*sqlx.DB, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)

	err = applyMigrations(db)
	require.NoError(t, err)

	cleanup := func() {
		_ = db.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return db, cleanup
}

func applyMigrations(db *sqlx.DB) error {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}

func cleanupTestData(db *sqlx.DB) {
	_, _ = db.Exec(`TRUNCATE TABLE messages, conversations, contacts, webhook_logs, api_keys, expiring_credentials, accounts RESTART IDENTITY CASCADE`)
}

func insertTestAccount(t *testing.T, db *sqlx.DB, phoneNumber, verifyToken string) int64 {
	t.Helper()

	var id int64
	err := db.Get(&id, `
		INSERT INTO accounts (user_id, business_id, phone_number_id, phone_number, display_name, access_token, verify_token, status, created_at, updated_at)
		VALUES (1, 'biz-1', $1, $1, 'Test Business', 'tok-test', $2, 'active', NOW(), NOW())
		RETURNING id
	`, phoneNumber, verifyToken)
	require.NoError(t, err)

	return id
}

func insertTestContact(t *testing.T, db *sqlx.DB, accountID int64, waID, phoneNumber string) int64 {
	t.Helper()

	var id int64
	err := db.Get(&id, `
		INSERT INTO contacts (account_id, wa_id, phone_number, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id
	`, accountID, waID, phoneNumber)
	require.NoError(t, err)

	return id
}

func insertTestConversation(t *testing.T, db *sqlx.DB, accountID, contactID int64) int64 {
	t.Helper()

	var id int64
	err := db.Get(&id, `
		INSERT INTO conversations (account_id, contact_id, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id
	`, accountID, contactID)
	require.NoError(t, err)

	return id
}

// newThread creates an account, contact and conversation in one call and
// returns the conversation id; most message tests only need the thread.
func newThread(t *testing.T, db *sqlx.DB, phone string) int64 {
	t.Helper()

	accountID := insertTestAccount(t, db, phone, "verify-"+phone)
	contactID := insertTestContact(t, db, accountID, "wa-"+phone, "+"+phone)
	return insertTestConversation(t, db, accountID, contactID)
}

func messageStatus(t *testing.T, db *sqlx.DB, externalID string) (string, sql.NullString, sql.NullString) {
	t.Helper()

	var row struct {
		Status       string         `db:"status"`
		ErrorCode    sql.NullString `db:"error_code"`
		ErrorMessage sql.NullString `db:"error_message"`
	}
	err := db.Get(&row, `SELECT status, error_code, error_message FROM messages WHERE external_id = $1`, externalID)
	require.NoError(t, err)

	return row.Status, row.ErrorCode, row.ErrorMessage
}
