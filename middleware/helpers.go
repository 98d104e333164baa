package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v4"
)

const jwtClaimUserID = "user_id"

// GetUserIDFromContext extracts the authenticated caller's id from the
// claims Authenticate stored. JSON numbers arrive as float64; some token
// issuers encode the id as a string, so both are accepted.
func GetUserIDFromContext(ctx context.Context) (int, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return 0, errors.New("user claims not found in context or invalid type")
	}

	userIDClaim, ok := claims[jwtClaimUserID]
	if !ok {
		return 0, fmt.Errorf("missing %q claim in token", jwtClaimUserID)
	}

	switch v := userIDClaim.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%q claim is not an integer: %f", jwtClaimUserID, v)
		}
		return validUserID(int(v))
	case string:
		id, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %q claim: %w", jwtClaimUserID, err)
		}
		return validUserID(id)
	default:
		return 0, fmt.Errorf("invalid type for %q claim: %T", jwtClaimUserID, userIDClaim)
	}
}

func validUserID(id int) (int, error) {
	if id <= 0 {
		return 0, fmt.Errorf("invalid user id value: %d", id)
	}
	return id, nil
}
