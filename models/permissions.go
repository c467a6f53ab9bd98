package models

// Action is something a caller may attempt against the HTTP surface.
type Action string

const (
	ActionDraftReport    Action = "report:draft"
	ActionReadAllReports Action = "report:read_all"
	ActionReviewReport   Action = "report:review"
	ActionExportReports  Action = "report:export"
	ActionSubmitAttend   Action = "attendance:submit"
	ActionReadAttendance Action = "attendance:read"
	ActionNotify         Action = "notification:create"
	ActionManageMachines Action = "machine:manage"
)

var rolePermissions = map[UserRole]map[Action]bool{
	UserRoleAdmin: {
		ActionDraftReport:    true,
		ActionReadAllReports: true,
		ActionReviewReport:   true,
		ActionExportReports:  true,
		ActionSubmitAttend:   true,
		ActionReadAttendance: true,
		ActionNotify:         true,
		ActionManageMachines: true,
	},
	UserRoleReporter: {
		ActionDraftReport:  true,
		ActionSubmitAttend: true,
	},
	UserRoleViewer: {
		ActionReadAllReports: true,
		ActionExportReports:  true,
		ActionReadAttendance: true,
	},
}

// Can reports whether role may perform action.
func (r UserRole) Can(action Action) bool {
	return rolePermissions[r][action]
}
