package syncengine

import "go.uber.org/zap"

// Notice is an advisory, user-facing outcome of a sync operation. Notices
// never block the caller; they exist so the surrounding application can show
// a short message.
type Notice int

const (
	NoticeSaved Notice = iota + 1
	NoticeLocalOnly
	NoticeUsingLocal
	NoticeSecurity
	NoticeProgressSaved
)

// Message returns the text shown to the player.
func (n Notice) Message() string {
	switch n {
	case NoticeSaved:
		return "game saved"
	case NoticeLocalOnly:
		return "saved locally only, cloud unavailable"
	case NoticeUsingLocal:
		return "using local save"
	case NoticeSecurity:
		return "security check failed, starting fresh"
	case NoticeProgressSaved:
		return "progress saved"
	default:
		return "unknown notice"
	}
}

func (n Notice) String() string {
	switch n {
	case NoticeSaved:
		return "saved"
	case NoticeLocalOnly:
		return "local_only"
	case NoticeUsingLocal:
		return "using_local"
	case NoticeSecurity:
		return "security"
	case NoticeProgressSaved:
		return "progress_saved"
	default:
		return "unknown"
	}
}

// Notifier receives notices for an identity.
type Notifier interface {
	Notify(identity string, n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(identity string, n Notice)

func (f NotifierFunc) Notify(identity string, n Notice) { f(identity, n) }

// logNotifier is the default Notifier: notices go to the debug log.
type logNotifier struct {
	logger *zap.Logger
}

func (l logNotifier) Notify(identity string, n Notice) {
	l.logger.Debug("notice", zap.String("identity", identity), zap.Stringer("notice", n))
}
