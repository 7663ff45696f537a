package handlers

import (
	"context"

	"github.com/akinalp/tms/models"
)

// contextKey, context'te değer taşımak için kullanılan özel tip.
// String key kullanmak başka paketlerle çakışmaya neden olabilir.
type contextKey string

// UserContextKey altında auth middleware'ın doğruladığı models.Identity durur.
const UserContextKey contextKey = "user"

// WithIdentity, kimliği context'e ekler.
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, UserContextKey, identity)
}

// IdentityFromContext, auth middleware'ın eklediği kimliği döner.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(UserContextKey).(models.Identity)
	return identity, ok
}
