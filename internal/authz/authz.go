// Package authz resolves whether an actor may perform an action on a
// resource. It is pure: the decision depends only on the Context passed in,
// never on ambient session state.
package authz

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrForbidden = errors.New("you are not allowed to perform this action")

// Role is the function an actor holds in the organization.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleTreasurer    Role = "treasurer"
	RoleFundDirector Role = "fund_director"
	RolePastor       Role = "pastor"
)

// Scope is the breadth of a permission.
type Scope string

const (
	// ScopeAll grants the action on every resource.
	ScopeAll Scope = "all"
	// ScopeAssigned grants the action only on funds the actor is assigned to.
	ScopeAssigned Scope = "assigned"
	// ScopeOwn grants the action only on resources of the actor's own church.
	ScopeOwn Scope = "own"
)

// Action is a single operation an actor can request.
type Action string

const (
	ActionChurchCreate     Action = "church:create"
	ActionChurchRead       Action = "church:read"
	ActionChurchUpdate     Action = "church:update"
	ActionChurchDeactivate Action = "church:deactivate"

	ActionReportCreate            Action = "report:create"
	ActionReportRead              Action = "report:read"
	ActionReportUpdate            Action = "report:update"
	ActionReportDelete            Action = "report:delete"
	ActionReportSubmit            Action = "report:submit"
	ActionReportApprove           Action = "report:approve"
	ActionReportReject            Action = "report:reject"
	ActionReportRequestCorrection Action = "report:request_correction"
	ActionReportProcess           Action = "report:process"
	ActionReportReopen            Action = "report:reopen"
	ActionReportNote              Action = "report:note"

	ActionFundCreate     Action = "fund:create"
	ActionFundRead       Action = "fund:read"
	ActionFundUpdate     Action = "fund:update"
	ActionFundDeactivate Action = "fund:deactivate"

	ActionMovementCreate   Action = "movement:create"
	ActionMovementRead     Action = "movement:read"
	ActionMovementOverride Action = "movement:override"
	ActionTransferCreate   Action = "transfer:create"

	ActionTransactionCreate Action = "transaction:create"
	ActionTransactionRead   Action = "transaction:read"
	ActionTransactionUpdate Action = "transaction:update"
	ActionTransactionDelete Action = "transaction:delete"

	ActionReconciliationRead Action = "reconciliation:read"
	ActionImport             Action = "import"
	ActionCleanup            Action = "cleanup"
)

// Context is the identity an upstream authentication layer verified for the
// current call. The resolver trusts it as-is.
type Context struct {
	ActorID  uuid.UUID
	Role     Role
	ChurchID *uuid.UUID  // church the actor belongs to, if any
	FundIDs  []uuid.UUID // funds the actor is assigned to, if any
}

// Resource describes the target of an action. Fields that do not apply to
// the resource kind stay nil; a nil field can never satisfy an own or
// assigned scope.
type Resource struct {
	ChurchID *uuid.UUID
	FundID   *uuid.UUID
}

// registry is the closed set of (role, action) → scope grants. Anything not
// listed here is denied. It is validated once at package init so that a typo
// can not silently widen access.
var registry = map[Role]map[Action]Scope{
	RoleAdmin: {
		ActionChurchCreate:            ScopeAll,
		ActionChurchRead:              ScopeAll,
		ActionChurchUpdate:            ScopeAll,
		ActionChurchDeactivate:        ScopeAll,
		ActionReportCreate:            ScopeAll,
		ActionReportRead:              ScopeAll,
		ActionReportUpdate:            ScopeAll,
		ActionReportDelete:            ScopeAll,
		ActionReportSubmit:            ScopeAll,
		ActionReportApprove:           ScopeAll,
		ActionReportReject:            ScopeAll,
		ActionReportRequestCorrection: ScopeAll,
		ActionReportProcess:           ScopeAll,
		ActionReportReopen:            ScopeAll,
		ActionReportNote:              ScopeAll,
		ActionFundCreate:              ScopeAll,
		ActionFundRead:                ScopeAll,
		ActionFundUpdate:              ScopeAll,
		ActionFundDeactivate:          ScopeAll,
		ActionMovementCreate:          ScopeAll,
		ActionMovementRead:            ScopeAll,
		ActionMovementOverride:        ScopeAll,
		ActionTransferCreate:          ScopeAll,
		ActionTransactionCreate:       ScopeAll,
		ActionTransactionRead:         ScopeAll,
		ActionTransactionUpdate:       ScopeAll,
		ActionTransactionDelete:       ScopeAll,
		ActionReconciliationRead:      ScopeAll,
		ActionImport:                  ScopeAll,
		ActionCleanup:                 ScopeAll,
	},
	RoleTreasurer: {
		ActionChurchRead:              ScopeAll,
		ActionReportRead:              ScopeAll,
		ActionReportUpdate:            ScopeAll,
		ActionReportApprove:           ScopeAll,
		ActionReportReject:            ScopeAll,
		ActionReportRequestCorrection: ScopeAll,
		ActionReportProcess:           ScopeAll,
		ActionReportNote:              ScopeAll,
		ActionFundRead:                ScopeAll,
		ActionMovementCreate:          ScopeAll,
		ActionMovementRead:            ScopeAll,
		ActionTransferCreate:          ScopeAll,
		ActionTransactionRead:         ScopeAll,
		ActionReconciliationRead:      ScopeAll,
		ActionImport:                  ScopeAll,
	},
	RoleFundDirector: {
		ActionFundRead:       ScopeAssigned,
		ActionMovementCreate: ScopeAssigned,
		ActionMovementRead:   ScopeAssigned,
		ActionTransferCreate: ScopeAssigned,
	},
	RolePastor: {
		ActionChurchRead:         ScopeOwn,
		ActionReportCreate:       ScopeOwn,
		ActionReportRead:         ScopeOwn,
		ActionReportUpdate:       ScopeOwn,
		ActionReportDelete:       ScopeOwn,
		ActionReportSubmit:       ScopeOwn,
		ActionReportNote:         ScopeOwn,
		ActionTransactionCreate:  ScopeOwn,
		ActionTransactionRead:    ScopeOwn,
		ActionTransactionUpdate:  ScopeOwn,
		ActionTransactionDelete:  ScopeOwn,
		ActionReconciliationRead: ScopeOwn,
	},
}

func init() {
	if err := validateRegistry(); err != nil {
		panic(err)
	}
}

// validateRegistry rejects grants with an unknown scope. A permission with a
// scope outside the closed set would otherwise be unreachable or, worse,
// fall through to a wider grant.
func validateRegistry() error {
	for role, grants := range registry {
		for action, scope := range grants {
			switch scope {
			case ScopeAll, ScopeAssigned, ScopeOwn:
			default:
				return fmt.Errorf("permission registry: role %q action %q has unknown scope %q", role, action, scope)
			}
		}
	}

	return nil
}

// ScopeFor returns the scope the actor holds for action. List endpoints use
// it to narrow their queries before they run instead of filtering rows after
// the fact.
func ScopeFor(ctx Context, action Action) (Scope, error) {
	grants, ok := registry[ctx.Role]
	if !ok {
		return "", fmt.Errorf("%w: unknown role %q", ErrForbidden, ctx.Role)
	}

	scope, ok := grants[action]
	if !ok {
		return "", fmt.Errorf("%w: role %q can not perform %q", ErrForbidden, ctx.Role, action)
	}

	return scope, nil
}

// Authorize reports whether the actor in ctx may perform action on resource.
// Resolution order: the role must hold the action at all, then the
// permission's scope must match the resource. Anything else is denied.
func Authorize(ctx Context, action Action, resource Resource) error {
	scope, err := ScopeFor(ctx, action)
	if err != nil {
		return err
	}

	switch scope {
	case ScopeAll:
		return nil

	case ScopeOwn:
		if ctx.ChurchID == nil || resource.ChurchID == nil || *ctx.ChurchID != *resource.ChurchID {
			return fmt.Errorf("%w: %q is limited to your own church", ErrForbidden, action)
		}
		return nil

	case ScopeAssigned:
		if resource.FundID == nil {
			return fmt.Errorf("%w: %q is limited to your assigned funds", ErrForbidden, action)
		}
		for _, id := range ctx.FundIDs {
			if id == *resource.FundID {
				return nil
			}
		}
		return fmt.Errorf("%w: %q is limited to your assigned funds", ErrForbidden, action)
	}

	// Unreachable as long as validateRegistry holds, kept as a hard stop.
	return ErrForbidden
}
