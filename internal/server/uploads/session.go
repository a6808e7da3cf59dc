// Package uploads tracks the lifecycle of direct-to-storage uploads. Each
// session covers a single object and a single attempt: a failed upload needs
// a brand-new session with a fresh credential and key.
package uploads

import (
	"math"
	"sync"
	"time"

	"github.com/apetrov/assetgate/internal/common"
	"github.com/apetrov/assetgate/internal/server/models"
	"github.com/apetrov/assetgate/internal/server/signer"
)

// Status is the lifecycle state of an upload session.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Session is the in-flight record of one direct upload. All mutation goes
// through methods holding mu, so progress callbacks for the same session are
// serialized; different sessions never contend.
type Session struct {
	mu sync.Mutex

	id              string
	request         models.UploadRequest
	credential      *signer.Credential
	progressPercent int
	status          Status
	resultObjectURL string
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Snapshot is a read-only copy of the session's observable state.
type Snapshot struct {
	ID              string
	Request         models.UploadRequest
	Credential      signer.Credential
	ProgressPercent int
	Status          Status
	ResultObjectURL string
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:              s.id,
		Request:         s.request,
		Credential:      *s.credential,
		ProgressPercent: s.progressPercent,
		Status:          s.status,
		ResultObjectURL: s.resultObjectURL,
	}
}

// progress applies a client progress report. Only legal while
// Pending/InProgress; the first report moves Pending to InProgress. The
// percentage is monotonic: late, smaller values are ignored so out-of-order
// delivery cannot regress it. bytesTotal == 0 counts as complete.
func (s *Session) progress(bytesSent, bytesTotal int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusPending:
		s.status = StatusInProgress
	case StatusInProgress:
	default:
		return 0, common.ErrorSessionNotFound
	}

	pct := 100
	if bytesTotal > 0 {
		pct = int(math.Round(100 * float64(bytesSent) / float64(bytesTotal)))
		if pct > 100 {
			pct = 100
		}
		if pct < 0 {
			pct = 0
		}
	}
	if pct > s.progressPercent {
		s.progressPercent = pct
	}
	return s.progressPercent, nil
}

// complete resolves the session. The credential's expiry wins over a
// claimed transport success: an acknowledgment arriving after the window
// closed cannot succeed silently.
func (s *Session) complete(transportOK bool, publicURL string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusPending, StatusInProgress:
	default:
		return "", common.ErrorSessionNotFound
	}

	if s.credential.Expired(now) {
		s.status = StatusFailed
		return "", common.ErrorCredentialExpired
	}
	if !transportOK {
		s.status = StatusFailed
		return "", common.ErrorUploadRejected
	}

	s.status = StatusSucceeded
	s.progressPercent = 100
	s.resultObjectURL = publicURL
	return publicURL, nil
}

// expired reports whether the session's credential window has closed while
// the session is still unresolved.
func (s *Session) expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status {
	case StatusPending, StatusInProgress:
		return s.credential.Expired(now)
	default:
		return true
	}
}
