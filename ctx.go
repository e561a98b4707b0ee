package auth

import (
	"context"
)

var accountCtxKey = &contextKey{"account"}

type contextKey struct {
	name string
}

// WithAccount stores the authenticated account in ctx
func WithAccount(ctx context.Context, account *Account) context.Context {
	return context.WithValue(ctx, accountCtxKey, account)
}

// AccountFromContext returns the authenticated account stored in ctx.
func AccountFromContext(ctx context.Context) (*Account, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(accountCtxKey).(*Account)
	return raw, ok && raw != nil
}

// ActorFromContext returns the ActorRef for the authenticated account, or
// SystemActor when none is present.
func ActorFromContext(ctx context.Context) ActorRef {
	account, ok := AccountFromContext(ctx)
	if !ok {
		return SystemActor
	}
	return ActorRef{ID: account.ID.String(), Type: "account"}
}
