package coin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"clubhub/internal/metrics"
)

const walletColumns = `id, owner_type, owner_id, balance, total_earned, total_spent, last_transaction_at, created_at, updated_at`

// Ledger applies balance changes to wallets. Every mutation runs in a
// database transaction with the wallet row locked, and appends exactly one
// coin_transactions row whose balance_after matches the stored balance.
type Ledger struct {
	db *sqlx.DB
}

func NewLedger(db *sqlx.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) GetOrCreateWallet(ctx context.Context, owner WalletOwner) (*Wallet, error) {
	w := &Wallet{}
	err := l.db.GetContext(ctx, w,
		`SELECT `+walletColumns+` FROM wallets WHERE owner_type = $1 AND owner_id = $2`,
		owner.Type, owner.ID,
	)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = l.db.QueryRowxContext(ctx,
		`INSERT INTO wallets (owner_type, owner_id) VALUES ($1, $2) RETURNING `+walletColumns,
		owner.Type, owner.ID,
	).StructScan(w)
	if err != nil {
		return nil, err
	}

	return w, nil
}

func (l *Ledger) GetWallet(ctx context.Context, owner WalletOwner) (*Wallet, error) {
	w := &Wallet{}
	err := l.db.GetContext(ctx, w,
		`SELECT `+walletColumns+` FROM wallets WHERE owner_type = $1 AND owner_id = $2`,
		owner.Type, owner.ID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// EnsureWalletTx creates the wallet row inside the caller's transaction if it
// does not exist yet. Used when a club is created so its wallet is visible
// immediately.
func (l *Ledger) EnsureWalletTx(ctx context.Context, tx *sqlx.Tx, owner WalletOwner) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO wallets (owner_type, owner_id) VALUES ($1, $2)
		 ON CONFLICT (owner_type, owner_id) DO NOTHING`,
		owner.Type, owner.ID,
	)
	return err
}

// Credit adds amount coins to the owner's wallet in its own transaction.
// A non-empty reference deduplicates retries: a second call with the same
// reference returns ErrDuplicateReference without mutating anything.
func (l *Ledger) Credit(ctx context.Context, owner WalletOwner, amount int64, txType, description string, meta Metadata, reference string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t, err := l.apply(ctx, tx, owner, amount, txType, description, meta, reference)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.RecordCoinTransaction(txType, amount)
	return t, nil
}

// Debit removes amount coins; it fails with *InsufficientCoinsError and no
// mutation when amount exceeds the current balance.
func (l *Ledger) Debit(ctx context.Context, owner WalletOwner, amount int64, txType, description string, meta Metadata, reference string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t, err := l.apply(ctx, tx, owner, -amount, txType, description, meta, reference)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.RecordCoinTransaction(txType, -amount)
	return t, nil
}

// CreditTx and DebitTx run inside a caller-supplied transaction so a wallet
// change and a related record mutation commit or roll back together.
func (l *Ledger) CreditTx(ctx context.Context, tx *sqlx.Tx, owner WalletOwner, amount int64, txType, description string, meta Metadata, reference string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return l.apply(ctx, tx, owner, amount, txType, description, meta, reference)
}

func (l *Ledger) DebitTx(ctx context.Context, tx *sqlx.Tx, owner WalletOwner, amount int64, txType, description string, meta Metadata, reference string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return l.apply(ctx, tx, owner, -amount, txType, description, meta, reference)
}

func (l *Ledger) apply(ctx context.Context, tx *sqlx.Tx, owner WalletOwner, amount int64, txType, description string, meta Metadata, reference string) (*Transaction, error) {
	var ref *string
	if reference != "" {
		ref = &reference

		var exists bool
		err := tx.GetContext(ctx, &exists,
			`SELECT EXISTS(SELECT 1 FROM coin_transactions WHERE reference = $1)`, reference)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrDuplicateReference
		}
	}

	w, err := l.lockWallet(ctx, tx, owner)
	if err != nil {
		return nil, err
	}

	newBalance := w.Balance + amount
	if newBalance < 0 {
		return nil, &InsufficientCoinsError{Required: -amount, Available: w.Balance}
	}

	earned, spent := w.TotalEarned, w.TotalSpent
	if amount > 0 {
		earned += amount
	} else {
		spent += -amount
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE wallets
		 SET balance = $1, total_earned = $2, total_spent = $3, last_transaction_at = NOW(), updated_at = NOW()
		 WHERE id = $4`,
		newBalance, earned, spent, w.ID,
	)
	if err != nil {
		return nil, err
	}

	t := &Transaction{
		WalletID:     w.ID,
		Type:         txType,
		Amount:       amount,
		BalanceAfter: newBalance,
		Description:  description,
		Metadata:     meta,
		Status:       "completed",
		Reference:    ref,
	}
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO coin_transactions (wallet_id, type, amount, balance_after, description, metadata, status, reference)
		 VALUES ($1, $2, $3, $4, $5, $6, 'completed', $7)
		 RETURNING id, created_at`,
		w.ID, txType, amount, newBalance, description, meta, ref,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		// Two concurrent calls with the same reference can both pass the
		// EXISTS check; the loser hits the unique index instead.
		if isDuplicateReference(err) {
			return nil, ErrDuplicateReference
		}
		return nil, err
	}

	return t, nil
}

func isDuplicateReference(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) &&
		pqErr.Code == "23505" &&
		pqErr.Constraint == "coin_transactions_reference_key"
}

func (l *Ledger) lockWallet(ctx context.Context, tx *sqlx.Tx, owner WalletOwner) (*Wallet, error) {
	w := &Wallet{}
	err := tx.QueryRowxContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE owner_type = $1 AND owner_id = $2 FOR UPDATE`,
		owner.Type, owner.ID,
	).StructScan(w)
	if errors.Is(err, sql.ErrNoRows) {
		err = tx.QueryRowxContext(ctx,
			`INSERT INTO wallets (owner_type, owner_id) VALUES ($1, $2) RETURNING `+walletColumns,
			owner.Type, owner.ID,
		).StructScan(w)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

type TransferResult struct {
	Amount      int64 `json:"amount"`
	UserBalance int64 `json:"userNewBalance"`
	ClubBalance int64 `json:"clubNewBalance"`
}

// Transfer moves coins from a user's wallet to a club's wallet in one
// transaction. Wallet rows are locked in ascending id order so two opposing
// transfers cannot deadlock.
func (l *Ledger) Transfer(ctx context.Context, fromUserID, toClubID int, amount int64, message string) (*TransferResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	from := UserOwner(fromUserID)
	to := ClubOwner(toClubID)
	if err := l.EnsureWalletTx(ctx, tx, from); err != nil {
		return nil, err
	}
	if err := l.EnsureWalletTx(ctx, tx, to); err != nil {
		return nil, err
	}

	var fromID, toID int
	if err := tx.GetContext(ctx, &fromID, `SELECT id FROM wallets WHERE owner_type = $1 AND owner_id = $2`, from.Type, from.ID); err != nil {
		return nil, err
	}
	if err := tx.GetContext(ctx, &toID, `SELECT id FROM wallets WHERE owner_type = $1 AND owner_id = $2`, to.Type, to.ID); err != nil {
		return nil, err
	}
	if fromID == toID {
		return nil, ErrSameWallet
	}

	first, second := fromID, toID
	if second < first {
		first, second = second, first
	}
	for _, id := range []int{first, second} {
		var locked int
		if err := tx.GetContext(ctx, &locked, `SELECT id FROM wallets WHERE id = $1 FOR UPDATE`, id); err != nil {
			return nil, err
		}
	}

	desc := fmt.Sprintf("Transferred %d coins to club", amount)
	if message != "" {
		desc = fmt.Sprintf("Transferred %d coins to club: %s", amount, message)
	}
	meta := Metadata{"clubId": toClubID, "transferredBy": fromUserID}
	if message != "" {
		meta["message"] = message
	}

	debitTx, err := l.apply(ctx, tx, from, -amount, TxClubTransfer, desc, meta, "")
	if err != nil {
		return nil, err
	}

	creditTx, err := l.apply(ctx, tx, to, amount, TxTransferReceived,
		fmt.Sprintf("Received %d coins from member", amount), meta, "")
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.RecordCoinTransaction(TxClubTransfer, -amount)
	metrics.RecordCoinTransaction(TxTransferReceived, amount)
	metrics.RecordCoinTransfer()

	return &TransferResult{
		Amount:      amount,
		UserBalance: debitTx.BalanceAfter,
		ClubBalance: creditTx.BalanceAfter,
	}, nil
}

// Transactions returns a page of ledger entries for the owner, newest first,
// together with the total count.
func (l *Ledger) Transactions(ctx context.Context, owner WalletOwner, page, limit int) ([]Transaction, int, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var walletID int
	err := l.db.GetContext(ctx, &walletID,
		`SELECT id FROM wallets WHERE owner_type = $1 AND owner_id = $2`, owner.Type, owner.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return []Transaction{}, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	var total int
	err = l.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM coin_transactions WHERE wallet_id = $1`, walletID)
	if err != nil {
		return nil, 0, err
	}

	txs := []Transaction{}
	err = l.db.SelectContext(ctx, &txs, `
		SELECT id, wallet_id, type, amount, balance_after, description, metadata, status, reference, created_at
		FROM coin_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}

	return txs, total, nil
}
