package resilience

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/retail-pos-core/internal/fault"
)

// MySQL server error numbers that indicate bad credentials or a bad
// deployment rather than a transient condition.
const (
	erAccessDenied       = 1044 // ER_DBACCESS_DENIED_ERROR
	erAccessDeniedUser   = 1045 // ER_ACCESS_DENIED_ERROR
	erBadDatabase        = 1049 // ER_BAD_DB_ERROR
	erMustChangePassword = 1820 // ER_MUST_CHANGE_PASSWORD_LOGIN
)

// Retryable reports whether an error is worth another attempt.
// Authentication/authorization and configuration failures are terminal:
// retrying them wastes time and can mask misconfiguration. Timeouts and
// transport failures are always retryable. Anything unrecognized is
// retried, favoring availability over fast-fail; Do logs each of those
// retries for audit.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	switch fault.KindOf(err) {
	case fault.KindAuthentication, fault.KindConfiguration, fault.KindValidation:
		return false
	case fault.KindConnectivity:
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case erAccessDenied, erAccessDeniedUser, erBadDatabase, erMustChangePassword:
			return false
		}
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Unrecognized errors default to retryable.
	return true
}

// ClassifyConnect tags a connection-phase error with the fault kind the
// upper layers branch on: bad credentials become authentication errors,
// everything else connectivity.
func ClassifyConnect(err error) error {
	if err == nil {
		return nil
	}
	if fault.KindOf(err) != fault.KindUnknown {
		return err
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case erAccessDenied, erAccessDeniedUser:
			return fault.Wrap(fault.KindAuthentication, "backend rejected credentials", err)
		case erBadDatabase:
			return fault.Wrap(fault.KindConfiguration, "database does not exist", err)
		}
	}
	// Last resort for errors the driver did not structure: message
	// inspection, kept narrow on purpose.
	if strings.Contains(strings.ToLower(err.Error()), "access denied") {
		return fault.Wrap(fault.KindAuthentication, "backend rejected credentials", err)
	}
	return fault.Wrap(fault.KindConnectivity, "backend unreachable", err)
}
