package auth

const (
	PermPeriodsRead       = "periods.read"
	PermPeriodsManage     = "periods.manage"
	PermEvaluationsRead   = "evaluations.read"
	PermEvaluationsSubmit = "evaluations.submit"
	PermEvaluationsDelete = "evaluations.delete"
	PermIntegrityRun      = "integrity.run"
	PermNotificationsRead = "notifications.read"
	PermAuditRead         = "audit.read"
)

var DefaultPermissions = []string{
	PermPeriodsRead,
	PermPeriodsManage,
	PermEvaluationsRead,
	PermEvaluationsSubmit,
	PermEvaluationsDelete,
	PermIntegrityRun,
	PermNotificationsRead,
	PermAuditRead,
}

// RolePermissions gates routes coarsely. Whether an actor is the employee or
// the evaluator of an evaluation is decided by the transition guards, so a
// user with the employee role can still act as a mapped evaluator.
var RolePermissions = map[Role][]string{
	RoleEmployee: {
		PermPeriodsRead,
		PermEvaluationsRead,
		PermEvaluationsSubmit,
		PermNotificationsRead,
	},
	RoleManager: {
		PermPeriodsRead,
		PermEvaluationsRead,
		PermEvaluationsSubmit,
			PermNotificationsRead,
	},
	RoleAdmin: {
		PermPeriodsRead,
		PermPeriodsManage,
		PermEvaluationsRead,
		PermEvaluationsSubmit,
			PermEvaluationsDelete,
		PermIntegrityRun,
		PermNotificationsRead,
		PermAuditRead,
	},
}

func HasPermission(role Role, permission string) bool {
	for _, perm := range RolePermissions[role] {
		if perm == permission {
			return true
		}
	}
	return false
}
