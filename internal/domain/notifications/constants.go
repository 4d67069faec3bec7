package notifications

const (
	TypeEvaluationCreated       = "evaluation_created"
	TypeAwaitingManagerApproval = "evaluation_awaiting_approval"
	TypeAwaitingEmployeeComment = "evaluation_awaiting_comment"
	TypeAwaitingFinalization    = "evaluation_awaiting_finalization"
	TypeEvaluationConcluded     = "evaluation_concluded"
)

const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
	ChannelPush  = "push"
	// ChannelDispatch marks messages dropped before any channel was tried.
	ChannelDispatch = "dispatch"
)

const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
	DeliveryPruned = "pruned"
)
