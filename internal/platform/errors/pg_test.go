package errors

import (
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func pgErr(code string) error {
	return &pgconn.PgError{Code: code, Message: "pg says no"}
}

func TestDBErrorCodeMapping(t *testing.T) {
	cases := []struct {
		sqlstate string
		want     ErrorCode
	}{
		{pgErrUniqueViolation, ErrorCodeDuplicateKey},
		{pgErrNotNullViolation, ErrorCodeValidation},
		{pgErrCheckViolation, ErrorCodeValidation},
		{pgErrSerialization, ErrorCodeDB},
		{pgErrCannotConnectNow, ErrorCodeUnavailable},
		{"99999", ErrorCodeDB},
	}
	for _, c := range cases {
		got, ok := DBErrorCode(pgErr(c.sqlstate))
		if !ok || got != c.want {
			t.Fatalf("DBErrorCode(%s) = %v ok=%v, want %v", c.sqlstate, got, ok, c.want)
		}
	}
	if _, ok := DBErrorCode(New(ErrorCodeDB, "not a pg error")); ok {
		t.Fatalf("non-pg error should report !ok")
	}
}

func TestFromPostgresWrapsEvenWhenNested(t *testing.T) {
	wrapped := Wrap(pgErr(pgErrUniqueViolation), ErrorCodeDB, "outer")
	err := FromPostgres(wrapped, "record code")
	if !IsDuplicateKey(err) {
		t.Fatalf("duplicate key should be detected through wrapping")
	}
	if FromPostgres(nil, "x") != nil {
		t.Fatalf("nil in, nil out")
	}
}

func TestIsRetryablePg(t *testing.T) {
	if !IsRetryable(pgErr(pgErrDeadlockDetected)) {
		t.Fatalf("deadlock should be retryable")
	}
	if IsRetryable(pgErr(pgErrUniqueViolation)) {
		t.Fatalf("unique violation is not retryable")
	}
}
