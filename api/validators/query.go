package validators

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
	pkgerrors "github.com/kiranaconnect/kiranaconnect-backend/pkg/errors"
)

// QueryString returns a trimmed, length-capped query parameter.
func QueryString(r *http.Request, key string, maxLen int) string {
	return SanitizeString(r.URL.Query().Get(key), maxLen)
}

// QueryRole parses an optional role parameter; empty means unset.
func QueryRole(r *http.Request, key string) (enums.UserRole, error) {
	raw := QueryString(r, key, 32)
	if raw == "" {
		return "", nil
	}
	role, err := enums.ParseUserRole(raw)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid query parameter").WithDetails(map[string]any{"field": key})
	}
	return role, nil
}

// PathUUID parses a UUID path segment.
func PathUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(SanitizeString(raw, 64))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid id").WithDetails(map[string]any{"field": field})
	}
	return id, nil
}
