package auth

// Operation names a protected action on service records
type Operation string

const (
	OpCreateRecord       Operation = "records:create"
	OpUpdateRecordStatus Operation = "records:update_status"
	OpDeleteRecord       Operation = "records:delete"
	OpGenerateReport     Operation = "records:report"
	OpReadRecord         Operation = "records:read"
	OpListRecords        Operation = "records:list"
)

// OperationClass is the permission tier of an operation
type OperationClass int

const (
	// ClassAdminOnly requires RoleAdmin
	ClassAdminOnly OperationClass = iota
	// ClassOwnerOrAdmin requires RoleAdmin or ownership of the resource
	ClassOwnerOrAdmin
	// ClassAuthenticated allows any identity. Results must be narrowed
	// with OwnerFilter.
	ClassAuthenticated
)

var operationClasses = map[Operation]OperationClass{
	OpCreateRecord:       ClassAdminOnly,
	OpUpdateRecordStatus: ClassAdminOnly,
	OpDeleteRecord:       ClassAdminOnly,
	OpGenerateReport:     ClassAdminOnly,
	OpReadRecord:         ClassOwnerOrAdmin,
	OpListRecords:        ClassAuthenticated,
}

// Class returns the tier for op. Unknown operations are admin only.
func (op Operation) Class() OperationClass {
	if class, ok := operationClasses[op]; ok {
		return class
	}
	return ClassAdminOnly
}

// Decision is the outcome of Authorize
type Decision struct {
	Allowed bool
	Reason  error
}

var allow = Decision{Allowed: true}

func deny(reason error) Decision {
	return Decision{Reason: reason}
}

// Err returns nil when allowed, the deny reason otherwise
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == nil {
		return ErrForbidden
	}
	return d.Reason
}

// Authorize decides whether p may perform op on a resource owned by
// resourceOwnerEmail. It has no side effects. The rules, in order:
//  1. anonymous callers are denied with ErrUnauthenticated
//  2. admin only operations deny non admins with ErrForbidden
//  3. owner or admin operations deny non admins who do not own the resource
//  4. everything else is allowed
func Authorize(p Principal, op Operation, resourceOwnerEmail string) Decision {
	identity, ok := AsIdentity(p)
	if !ok {
		return deny(ErrUnauthenticated)
	}

	if identity.IsAdmin() {
		return allow
	}

	switch op.Class() {
	case ClassAdminOnly:
		return deny(ErrForbidden)
	case ClassOwnerOrAdmin:
		if NormalizeEmail(identity.Email) != NormalizeEmail(resourceOwnerEmail) {
			return deny(ErrForbidden)
		}
	}

	return allow
}

// OwnerFilter returns the owner email every multi record query must be
// narrowed to. scoped is false only for admins.
func OwnerFilter(p Principal) (email string, scoped bool) {
	identity, ok := AsIdentity(p)
	if !ok {
		return "", true
	}
	if identity.IsAdmin() {
		return "", false
	}
	return NormalizeEmail(identity.Email), true
}
