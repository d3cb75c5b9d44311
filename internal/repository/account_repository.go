package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/avolkov/wabridge/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type accountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, user_id, business_id, phone_number_id, phone_number, display_name, access_token, verify_token, status, created_at, updated_at`

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE id = $1`, accountColumns)

	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by id: %w", err)
	}

	return &account, nil
}

func (r *accountRepository) GetByPhoneNumberID(ctx context.Context, phoneNumberID string) (*models.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE phone_number_id = $1`, accountColumns)

	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, phoneNumberID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by phone number id: %w", err)
	}

	return &account, nil
}

func (r *accountRepository) GetByPhoneNumber(ctx context.Context, phoneNumber string) (*models.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE phone_number = $1`, accountColumns)

	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, phoneNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by phone number: %w", err)
	}

	return &account, nil
}

func (r *accountRepository) ExistsByVerifyToken(ctx context.Context, token string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM accounts WHERE verify_token = $1)`

	if err := r.db.GetContext(ctx, &exists, query, token); err != nil {
		return false, fmt.Errorf("failed to check verify token: %w", err)
	}

	return exists, nil
}
