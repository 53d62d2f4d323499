package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "carebridge/pkg/domain-errors"
	txcontext "carebridge/pkg/platform/tx"
)

const defaultDecisionTxTimeout = 5 * time.Second

// decisionPostgresTx bounds every decision transaction so a stuck row lock
// cannot hold a request forever.
type decisionPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newDecisionPostgresTx(db *sql.DB) *decisionPostgresTx {
	return &decisionPostgresTx{db: db}
}

func (t *decisionPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultDecisionTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return txcontext.Run(ctx, t.db, fn)
}
