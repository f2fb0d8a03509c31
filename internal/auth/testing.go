package auth

import "context"

// SetUserIDForTest injects a user with the given role into the context for testing purposes.
func SetUserIDForTest(ctx context.Context, userID string, role Role) context.Context {
	return WithClaims(ctx, &Claims{UserID: userID, Role: role})
}
