package database

import "context"

type txKey struct{}

// TxInfo carries a transaction through the context along with who is
// responsible for finishing it. Owned means the unit of work opened the
// transaction and will commit or roll back; a repository must never do
// either on a transaction it only borrowed.
type TxInfo struct {
	Tx    Transaction
	Owned bool
}

// WithTx attaches a transaction to the context.
func WithTx(ctx context.Context, tx Transaction, owned bool) context.Context {
	return context.WithValue(ctx, txKey{}, TxInfo{Tx: tx, Owned: owned})
}

// TxFromContext returns the transaction in the context, or nil when the
// caller is running outside one.
func TxFromContext(ctx context.Context) Transaction {
	info, ok := ctx.Value(txKey{}).(TxInfo)
	if !ok || info.Tx == nil {
		return nil
	}
	return info.Tx
}

// TxInfoFromContext returns the transaction with its ownership flag.
func TxInfoFromContext(ctx context.Context) (TxInfo, bool) {
	info, ok := ctx.Value(txKey{}).(TxInfo)
	if !ok || info.Tx == nil {
		return TxInfo{}, false
	}
	return info, true
}

// ExecutorFromContext picks the statement target for a repository call:
// the context's transaction when one is open, the bare connection
// otherwise. Repositories stay oblivious to transaction boundaries.
func ExecutorFromContext(ctx context.Context, conn Connection) Executor {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return conn
}
