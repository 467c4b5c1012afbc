package bank

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores joint accounts, owner memberships and withdrawal
// requests in PostgreSQL. Owner identities are stored as opaque text.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a registry backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateAccount inserts the account and one owner row per member atomically.
func (r *PostgresRepository) CreateAccount(ctx context.Context, account Account) (int64, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var id int64
	if err := tx.QueryRow(ctx, `INSERT INTO joint_accounts (created_at) VALUES ($1) RETURNING id`,
		account.CreatedAt.UTC()).Scan(&id); err != nil {
		return 0, err
	}

	for position, owner := range account.Owners {
		if _, err := tx.Exec(ctx, `INSERT INTO joint_account_owners (account_id, owner_id, position)
            VALUES ($1, $2, $3)`, id, string(owner), position); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

// GetAccount fetches the account and its owner set in creation order.
func (r *PostgresRepository) GetAccount(ctx context.Context, id int64) (Account, error) {
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, `SELECT created_at FROM joint_accounts WHERE id = $1`, id).Scan(&createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}

	rows, err := r.db.Query(ctx, `SELECT owner_id FROM joint_account_owners
        WHERE account_id = $1 ORDER BY position`, id)
	if err != nil {
		return Account{}, err
	}
	defer rows.Close()

	account := Account{ID: id, CreatedAt: createdAt.UTC()}
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return Account{}, err
		}
		account.Owners = append(account.Owners, Identity(owner))
	}
	return account, rows.Err()
}

// DeleteAccount removes the account with its owner rows, requests and
// approvals in one transaction.
func (r *PostgresRepository) DeleteAccount(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM withdrawal_approvals WHERE account_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM withdrawal_requests WHERE account_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM joint_account_owners WHERE account_id = $1`, id); err != nil {
		return err
	}
	cmd, err := tx.Exec(ctx, `DELETE FROM joint_accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return tx.Commit(ctx)
}

// AccountsForOwner lists account ids the identity participates in, oldest first.
func (r *PostgresRepository) AccountsForOwner(ctx context.Context, owner Identity) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT account_id FROM joint_account_owners
        WHERE owner_id = $1 ORDER BY account_id`, string(owner))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateRequest assigns the next request id in the account's sequence and
// inserts the row. The account row is locked so concurrent requests get
// distinct ids.
func (r *PostgresRepository) CreateRequest(ctx context.Context, request WithdrawalRequest) (int64, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var accountID int64
	if err := tx.QueryRow(ctx, `SELECT id FROM joint_accounts WHERE id = $1 FOR UPDATE`,
		request.AccountID).Scan(&accountID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}

	var requestID int64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(request_id) + 1, 0) FROM withdrawal_requests
        WHERE account_id = $1`, request.AccountID).Scan(&requestID); err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, `INSERT INTO withdrawal_requests
        (account_id, request_id, requester, amount, threshold, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		request.AccountID, requestID, string(request.Requester), request.Amount,
		request.Threshold, string(request.Status), request.CreatedAt.UTC()); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return requestID, nil
}

// GetRequest fetches a request with its recorded approvals.
func (r *PostgresRepository) GetRequest(ctx context.Context, accountID, requestID int64) (WithdrawalRequest, error) {
	row := r.db.QueryRow(ctx, `SELECT requester, amount, threshold, status, created_at
        FROM withdrawal_requests WHERE account_id = $1 AND request_id = $2`, accountID, requestID)

	request := WithdrawalRequest{ID: requestID, AccountID: accountID}
	var requester, status string
	var createdAt time.Time
	if err := row.Scan(&requester, &request.Amount, &request.Threshold, &status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WithdrawalRequest{}, ErrRequestNotFound
		}
		return WithdrawalRequest{}, err
	}
	request.Requester = Identity(requester)
	request.Status = RequestStatus(status)
	request.CreatedAt = createdAt.UTC()

	rows, err := r.db.Query(ctx, `SELECT owner_id FROM withdrawal_approvals
        WHERE account_id = $1 AND request_id = $2 ORDER BY approved_at`, accountID, requestID)
	if err != nil {
		return WithdrawalRequest{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return WithdrawalRequest{}, err
		}
		request.Approvals = append(request.Approvals, Identity(owner))
	}
	return request, rows.Err()
}

// AddApproval records one owner's approval of a request.
func (r *PostgresRepository) AddApproval(ctx context.Context, accountID, requestID int64, owner Identity) error {
	_, err := r.db.Exec(ctx, `INSERT INTO withdrawal_approvals (account_id, request_id, owner_id, approved_at)
        VALUES ($1, $2, $3, $4)`, accountID, requestID, string(owner), time.Now().UTC())
	return err
}

// SetRequestStatus moves the request to the given lifecycle state.
func (r *PostgresRepository) SetRequestStatus(ctx context.Context, accountID, requestID int64, status RequestStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE withdrawal_requests SET status = $1
        WHERE account_id = $2 AND request_id = $3`, string(status), accountID, requestID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}
