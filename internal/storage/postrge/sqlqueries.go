package postrge

const (
	MigrationQuery = `
	CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		user_id TEXT UNIQUE NOT NULL,
		main_balance NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (main_balance >= 0),
		referral_balance NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (referral_balance >= 0),
		currency TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		seq BIGSERIAL UNIQUE,
		account_id UUID NOT NULL REFERENCES accounts(id),
		type TEXT NOT NULL,
		balance_type TEXT NOT NULL CHECK (balance_type IN ('main', 'referral')),
		direction TEXT NOT NULL CHECK (direction IN ('credit', 'debit')),
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		reference_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS withdrawal_requests (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		account_id UUID NOT NULL REFERENCES accounts(id),
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		method TEXT NOT NULL,
		payout_account TEXT NOT NULL,
		payout_holder TEXT NOT NULL,
		status TEXT NOT NULL,
		admin_note TEXT NOT NULL DEFAULT '',
		idempotency_key TEXT,
		transaction_id UUID NOT NULL REFERENCES transactions(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS topup_requests (
		id UUID PRIMARY KEY,
		account_id UUID NOT NULL REFERENCES accounts(id),
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		method TEXT NOT NULL,
		status TEXT NOT NULL,
		payment_url TEXT NOT NULL DEFAULT '',
		external_ref TEXT NOT NULL DEFAULT '',
		idempotency_key TEXT,
		transaction_id UUID REFERENCES transactions(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS platform_accruals (
		order_id TEXT PRIMARY KEY,
		referrer_account_id UUID NOT NULL REFERENCES accounts(id),
		split TEXT NOT NULL,
		order_total NUMERIC(14,2) NOT NULL,
		partner_percent NUMERIC(5,2) NOT NULL,
		total_commission NUMERIC(14,2) NOT NULL,
		referrer_share NUMERIC(14,2) NOT NULL,
		platform_share NUMERIC(14,2) NOT NULL,
		transaction_id UUID REFERENCES transactions(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_account_created ON transactions(account_id, created_at DESC, seq DESC);
	CREATE INDEX IF NOT EXISTS idx_withdrawals_status_created ON withdrawal_requests(status, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_topups_status_created ON topup_requests(status, created_at);
	CREATE UNIQUE INDEX IF NOT EXISTS uq_withdrawals_idempotency ON withdrawal_requests(account_id, idempotency_key)
		WHERE idempotency_key IS NOT NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS uq_topups_idempotency ON topup_requests(account_id, idempotency_key)
		WHERE idempotency_key IS NOT NULL;
	`

	accountColumns = `id, user_id, main_balance, referral_balance, currency, created_at, updated_at`

	InsertAccountQuery = `
		INSERT INTO accounts (id, user_id, main_balance, referral_balance, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);`
	GetAccountQuery        = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1;`
	GetAccountByUserQuery  = `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1;`
	LockAccountQuery       = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE;`
	UpdateBalancesQuery    = `UPDATE accounts SET main_balance = $2, referral_balance = $3, updated_at = $4 WHERE id = $1;`
	SetLockTimeoutTemplate = `SET LOCAL lock_timeout = '%dms';`

	transactionColumns = `id, seq, account_id, type, balance_type, direction, amount, description, status, reference_id, created_at`

	InsertTransactionQuery = `
		INSERT INTO transactions (id, account_id, type, balance_type, direction, amount, description, status, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING seq;`
	LedgerTotalsQuery = `
		SELECT balance_type,
			COALESCE(SUM(CASE WHEN direction = 'credit' THEN amount ELSE -amount END), 0),
			COUNT(*)
		FROM transactions
		WHERE account_id = $1
			AND (status = 'completed' OR (status IN ('pending', 'processing') AND direction = 'debit'))
		GROUP BY balance_type;`
	SetTransactionStatusQuery = `UPDATE transactions SET status = $3 WHERE id = $1 AND status = $2;`

	withdrawalColumns = `id, user_id, account_id, amount, method, payout_account, payout_holder, status, admin_note,
		COALESCE(idempotency_key, ''), transaction_id, created_at, updated_at`

	InsertWithdrawalQuery = `
		INSERT INTO withdrawal_requests (id, user_id, account_id, amount, method, payout_account, payout_holder,
			status, admin_note, idempotency_key, transaction_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12, $13);`
	GetWithdrawalQuery      = `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1;`
	GetWithdrawalByKeyQuery = `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE account_id = $1 AND idempotency_key = $2;`
	ResolveWithdrawalQuery  = `
		UPDATE withdrawal_requests SET status = $2, admin_note = $3, updated_at = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + withdrawalColumns + `;`

	topupColumns = `id, account_id, amount, method, status, payment_url, external_ref, COALESCE(idempotency_key, ''),
		transaction_id, created_at, updated_at`

	InsertTopupQuery = `
		INSERT INTO topup_requests (id, account_id, amount, method, status, payment_url, external_ref,
			idempotency_key, transaction_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11);`
	AttachTopupPaymentQuery = `UPDATE topup_requests SET payment_url = $2, external_ref = $3 WHERE id = $1;`
	GetTopupQuery           = `SELECT ` + topupColumns + ` FROM topup_requests WHERE id = $1;`
	GetTopupByKeyQuery      = `SELECT ` + topupColumns + ` FROM topup_requests WHERE account_id = $1 AND idempotency_key = $2;`
	ResolveTopupQuery       = `
		UPDATE topup_requests SET status = $2, transaction_id = $3, external_ref = $4, updated_at = $5
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + topupColumns + `;`
	ExpireTopupsQuery = `
		UPDATE topup_requests SET status = 'failed', updated_at = NOW()
		WHERE status = 'pending' AND created_at < $1
		RETURNING ` + topupColumns + `;`

	InsertAccrualQuery = `
		INSERT INTO platform_accruals (order_id, referrer_account_id, split, order_total, partner_percent,
			total_commission, referrer_share, platform_share, transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (order_id) DO NOTHING;`
	GetAccrualQuery = `
		SELECT order_id, referrer_account_id, split, order_total, partner_percent, total_commission,
			referrer_share, platform_share, transaction_id, created_at
		FROM platform_accruals WHERE order_id = $1;`
)
