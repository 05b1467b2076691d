package middleware

import (
	"context"

	"github.com/rite2rise/web-bff/internal/domain"
)

// SetRequestIDForTest injects a request ID without going through RequestID.
func SetRequestIDForTest(ctx context.Context, id string) context.Context {
	return WithRequestID(ctx, id)
}

// SetIdentityForTest attaches an identity and a placeholder bearer token.
func SetIdentityForTest(ctx context.Context, id domain.Identity) context.Context {
	return WithIdentity(ctx, id, "test-token-"+id.ID)
}
