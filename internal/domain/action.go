package domain

// ReportAction enumerates staff and reporter intents against a report.
// Submit is the only action that creates a report; every other action is
// dispatched through the transition table below.
type ReportAction string

const (
	ActionSubmit            ReportAction = "SUBMIT"
	ActionMarkFixed         ReportAction = "MARK_FIXED"
	ActionMarkCantReplicate ReportAction = "MARK_CANT_REPLICATE"
	ActionRequestMoreInfo   ReportAction = "REQUEST_MORE_INFO"
	ActionReporterReplies   ReportAction = "REPORTER_REPLIES"
	ActionSendFollowUp      ReportAction = "SEND_FOLLOW_UP"
	ActionClose             ReportAction = "CLOSE"
)

// transitions maps the current status to the actions legal from it and their
// target status. Keeping this a table means adding a transition is a table
// edit, not new control flow.
var transitions = map[ReportStatus]map[ReportAction]ReportStatus{
	ReportStatusOpen: {
		ActionMarkFixed:         ReportStatusFixed,
		ActionMarkCantReplicate: ReportStatusCantReplicate,
		ActionRequestMoreInfo:   ReportStatusMoreInfoRequired,
		ActionSendFollowUp:      ReportStatusFollowUpSent,
	},
	ReportStatusMoreInfoRequired: {
		ActionReporterReplies: ReportStatusOpen,
		ActionSendFollowUp:    ReportStatusFollowUpSent,
		ActionClose:           ReportStatusClosed,
	},
	ReportStatusFixed: {
		ActionSendFollowUp: ReportStatusFollowUpSent,
		ActionClose:        ReportStatusClosed,
	},
	ReportStatusCantReplicate: {
		ActionSendFollowUp: ReportStatusFollowUpSent,
		ActionClose:        ReportStatusClosed,
	},
	ReportStatusFollowUpSent: {
		ActionClose: ReportStatusClosed,
	},
	ReportStatusClosed: {},
}

// ResolveTransition returns the target status for applying action to current,
// or false when the action is illegal for that status.
func ResolveTransition(current ReportStatus, action ReportAction) (ReportStatus, bool) {
	next, ok := transitions[current][action]
	return next, ok
}

// NextActions lists the actions legal from the given status. The order is
// fixed so clients can render a stable set of buttons.
func NextActions(current ReportStatus) []ReportAction {
	ordered := []ReportAction{
		ActionMarkFixed,
		ActionMarkCantReplicate,
		ActionRequestMoreInfo,
		ActionReporterReplies,
		ActionSendFollowUp,
		ActionClose,
	}
	valid := transitions[current]
	out := make([]ReportAction, 0, len(valid))
	for _, action := range ordered {
		if _, ok := valid[action]; ok {
			out = append(out, action)
		}
	}
	return out
}

// RequiresStaffAttention reports whether a public update for this action
// should ping the staff role.
func RequiresStaffAttention(action ReportAction) bool {
	return action == ActionSubmit || action == ActionReporterReplies
}
