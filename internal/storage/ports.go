package storage

import "context"

// Keys under which application state is persisted.
const (
	KeyTransactions = "finflow_transactions"
	KeyLastReset    = "finflow_last_reset"
	KeyTheme        = "finflow_theme"
	KeyAdvice       = "finflow_advice"
)

// KV is the key-value persistence port. A missing key is reported with
// found=false and a nil error.
//
//go:generate mockgen -destination=mocks/mock_kv.go -package=mocks -source=ports.go KV
type KV interface {
	Load(ctx context.Context, key string) (value []byte, found bool, err error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
