package http

import "context"

// StoreProber is the minimal interface the router requires from the active OTP store.
type StoreProber interface {
	Ping(ctx context.Context) error
}
