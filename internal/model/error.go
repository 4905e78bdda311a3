package model

// ErrorCode is the closed failure taxonomy surfaced to the UI. Codes are
// stable strings so the frontend can map them to behavior.
type ErrorCode string

const (
	ErrUnknown           ErrorCode = "unknown"
	ErrAuthRequired      ErrorCode = "auth_required"
	ErrExtractorOutdated ErrorCode = "extractor_outdated"
	ErrGeoRestricted     ErrorCode = "geo_restricted"
	ErrFormatUnavailable ErrorCode = "format_unavailable"
	ErrNetwork           ErrorCode = "network_error"
	ErrDisk              ErrorCode = "disk_error"
	ErrToolMissing       ErrorCode = "tool_missing"
)

// ActionKind is an opaque remediation token. The engine never interprets
// these; the UI renders them as buttons.
type ActionKind string

const (
	ActionImportCookies    ActionKind = "import_cookies"
	ActionUpdateEngine     ActionKind = "update_engine"
	ActionConfigureProxy   ActionKind = "configure_proxy"
	ActionRetryRecommended ActionKind = "retry_recommended"
	ActionRetry            ActionKind = "retry"
	ActionOpenLogs         ActionKind = "open_logs"
	ActionFreeDiskSpace    ActionKind = "free_disk_space"
	ActionCheckPermissions ActionKind = "check_permissions"
)

// Action pairs a stable kind with a human label.
type Action struct {
	Kind  ActionKind `json:"kind"`
	Label string     `json:"label"`
}

// UserFacingError is a short, actionable failure shown directly in the UI.
// Raw engine stderr stays in the diagnostic buffer, never here.
type UserFacingError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Actions []Action  `json:"actions,omitempty"`
}

func (e *UserFacingError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Common action constructors keep labels consistent across call sites.

func ImportCookiesAction() Action {
	return Action{Kind: ActionImportCookies, Label: "Import cookies from browser"}
}

func UpdateEngineAction() Action {
	return Action{Kind: ActionUpdateEngine, Label: "Update yt-dlp"}
}

func ConfigureProxyAction() Action {
	return Action{Kind: ActionConfigureProxy, Label: "Configure proxy"}
}

func RetryRecommendedAction() Action {
	return Action{Kind: ActionRetryRecommended, Label: "Use Recommended preset"}
}

func RetryAction() Action {
	return Action{Kind: ActionRetry, Label: "Retry"}
}

func OpenLogsAction() Action {
	return Action{Kind: ActionOpenLogs, Label: "View logs"}
}

func FreeDiskSpaceAction() Action {
	return Action{Kind: ActionFreeDiskSpace, Label: "Free disk space"}
}

func CheckPermissionsAction() Action {
	return Action{Kind: ActionCheckPermissions, Label: "Check folder permissions"}
}

// ActionsForCode returns the remediation set for a code. Persistence stores
// only the code and message; actions are rebuilt from the code on load.
func ActionsForCode(code ErrorCode) []Action {
	switch code {
	case ErrAuthRequired:
		return []Action{ImportCookiesAction(), RetryAction()}
	case ErrExtractorOutdated:
		return []Action{UpdateEngineAction(), RetryAction()}
	case ErrGeoRestricted:
		return []Action{ConfigureProxyAction(), RetryAction()}
	case ErrFormatUnavailable:
		return []Action{RetryRecommendedAction()}
	case ErrNetwork:
		return []Action{RetryAction()}
	case ErrDisk:
		return []Action{FreeDiskSpaceAction(), CheckPermissionsAction()}
	case ErrToolMissing:
		return []Action{UpdateEngineAction()}
	default:
		return []Action{RetryAction(), OpenLogsAction()}
	}
}

// NewUserFacingError builds an error with the standard actions for its code.
func NewUserFacingError(code ErrorCode, message string) *UserFacingError {
	return &UserFacingError{Code: code, Message: message, Actions: ActionsForCode(code)}
}
