package enums

type ActionType string

const (
	ActionTypeWarning ActionType = "warning"
	ActionTypeDelete  ActionType = "delete"
	ActionTypeBan     ActionType = "ban"
)

func (a ActionType) Valid() bool {
	switch a {
	case ActionTypeWarning, ActionTypeDelete, ActionTypeBan:
		return true
	default:
		return false
	}
}
