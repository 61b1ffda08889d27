package app

import (
	"slices"
	"sync"
	"time"

	"github.com/uday-incquet/AiVoice/internal/relay"
)

// CallInfo holds metadata about one active call.
type CallInfo struct {
	// SessionID is the relay session identifier.
	SessionID string `json:"session_id"`

	// CallSID is the Twilio call SID, empty until the start message arrives.
	CallSID string `json:"call_sid,omitempty"`

	// RemoteAddr is the peer address of the media WebSocket.
	RemoteAddr string `json:"remote_addr,omitempty"`

	// StartedAt is when the media WebSocket was accepted.
	StartedAt time.Time `json:"started_at"`
}

// CallManager tracks the relay sessions currently serving calls. All methods
// are safe for concurrent use.
type CallManager struct {
	mu    sync.Mutex
	calls map[string]*activeCall
}

type activeCall struct {
	info CallInfo
	sess *relay.Session
}

// NewCallManager creates an empty call manager.
func NewCallManager() *CallManager {
	return &CallManager{calls: make(map[string]*activeCall)}
}

// Register adds a running session under its session ID.
func (cm *CallManager) Register(sess *relay.Session, info CallInfo) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.calls[sess.ID()] = &activeCall{info: info, sess: sess}
}

// Unregister removes a session once its Run loop has returned.
func (cm *CallManager) Unregister(sessionID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.calls, sessionID)
}

// Count returns the number of active calls.
func (cm *CallManager) Count() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return len(cm.calls)
}

// List returns a snapshot of active calls ordered by start time.
func (cm *CallManager) List() []CallInfo {
	cm.mu.Lock()
	infos := make([]CallInfo, 0, len(cm.calls))
	for _, c := range cm.calls {
		infos = append(infos, c.info)
	}
	cm.mu.Unlock()

	slices.SortFunc(infos, func(a, b CallInfo) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	return infos
}

// CloseAll requests teardown of every active session. Used during shutdown;
// each Run loop unregisters itself as it exits.
func (cm *CallManager) CloseAll() {
	cm.mu.Lock()
	sessions := make([]*relay.Session, 0, len(cm.calls))
	for _, c := range cm.calls {
		sessions = append(sessions, c.sess)
	}
	cm.mu.Unlock()

	for _, s := range sessions {
		_ = s.Close()
	}
}
