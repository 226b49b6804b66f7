package errors

import (
	stderrors "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// FromStorage translates a unique-index violation raised by the storage layer
// into a DUPLICATE_KEY error naming the offending field(s). Any other error is
// wrapped as an internal error. A nil error yields nil.
func FromStorage(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	if field, ok := uniqueViolationField(err); ok {
		return &AppError{
			Code:       ErrDuplicateKey.Code,
			Message:    "Duplicate value for " + field,
			Field:      field,
			StatusCode: ErrDuplicateKey.StatusCode,
			Internal:   err,
			stack:      callers(),
		}
	}
	return Wrap(ErrInternalServer, err)
}

// IsUniqueViolation reports whether err came from a unique index.
func IsUniqueViolation(err error) bool {
	_, ok := uniqueViolationField(err)
	return ok
}

func uniqueViolationField(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return "", false
		}
		// Detail looks like: Key (firm_id, fiscal_year, quarter)=(...) already exists.
		if start := strings.Index(pgErr.Detail, "Key ("); start >= 0 {
			rest := pgErr.Detail[start+len("Key ("):]
			if end := strings.Index(rest, ")="); end >= 0 {
				return normalizeFields(strings.Split(rest[:end], ",")), true
			}
		}
		return pgErr.ConstraintName, true
	}

	// sqlite: "UNIQUE constraint failed: members.email, members.mobile_number"
	const marker = "UNIQUE constraint failed: "
	msg := err.Error()
	idx := strings.Index(msg, marker)
	if idx < 0 {
		return "", false
	}
	cols := strings.Split(msg[idx+len(marker):], ",")
	for i, c := range cols {
		c = strings.TrimSpace(c)
		if dot := strings.LastIndex(c, "."); dot >= 0 {
			c = c[dot+1:]
		}
		cols[i] = c
	}
	return normalizeFields(cols), true
}

func normalizeFields(cols []string) string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return strings.Join(out, ",")
}
