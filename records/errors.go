package records

import (
	"github.com/goliatone/go-errors"

	auth "github.com/goliatone/go-service-auth"
)

const TextCodeDuplicateBillNo = "DUPLICATE_BILL_NO"

// ErrDuplicateBillNo is returned when a bill number is already taken
var ErrDuplicateBillNo = errors.New("a service record with this bill number already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateBillNo).
	WithCode(errors.CodeConflict)

var ErrInvalidStatus = auth.WrapAs(auth.ErrValidationFailed,
	"status must be one of Pending, InProgress, Completed, Delivered")

var ErrInvalidPhone = auth.WrapAs(auth.ErrValidationFailed, "customer phone number is not valid")
