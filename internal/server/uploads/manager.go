package uploads

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/apetrov/assetgate/internal/common"
	"github.com/apetrov/assetgate/internal/logging"
	"github.com/apetrov/assetgate/internal/server/metrics"
	"github.com/apetrov/assetgate/internal/server/models"
	"github.com/apetrov/assetgate/internal/server/signer"
	"github.com/apetrov/assetgate/internal/server/storage"
)

// Options carries the upload policy configuration.
type Options struct {
	MaxUploadBytes      int64
	AllowedContentTypes []string
	CredentialTTL       time.Duration
	PublicBaseURL       string
	KeyPrefix           string
}

// StartResult is returned to the client after a session is created: where
// to PUT the bytes, which session to report against, and the public URL the
// object will have once the upload succeeds.
type StartResult struct {
	SessionID string
	UploadURL string
	ObjectURL string
	ExpiresAt time.Time
}

// Manager owns the in-flight upload sessions. Sessions live in memory,
// keyed by a UUID; the gateway is otherwise stateless between requests.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	signer signer.Signer
	lister storage.Lister
	opts   Options
	logger logging.Logger
}

func NewManager(s signer.Signer, l storage.Lister, opts Options, log logging.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		signer:   s,
		lister:   l,
		opts:     opts,
		logger:   log.With("module", "uploads"),
	}
}

// randomStorageKey builds a collision-free object key from the date, a UUID,
// and the sanitized client filename, following the bucket layout
// <prefix>/<year>/<month>/<day>/<uuid>-<filename>.
func (m *Manager) randomStorageKey(filename string) string {
	d := time.Now()
	return fmt.Sprintf("%s/%d/%02d/%02d/%s-%s",
		m.opts.KeyPrefix, d.Year(), int(d.Month()), d.Day(), uuid.New(), sanitizeFilename(filename))
}

// sanitizeFilename strips any path components and characters that have no
// business in an object key.
func sanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func (m *Manager) validate(req models.UploadRequest) error {
	if strings.TrimSpace(req.Filename) == "" {
		return fmt.Errorf("%w: filename is required", common.ErrorValidation)
	}
	allowed := false
	for _, ct := range m.opts.AllowedContentTypes {
		if req.ContentType == ct {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: content type %q is not allowed", common.ErrorValidation, req.ContentType)
	}
	if req.SizeBytes < 0 {
		return fmt.Errorf("%w: negative size", common.ErrorValidation)
	}
	if req.SizeBytes > m.opts.MaxUploadBytes {
		return fmt.Errorf("%w: file size %d exceeds limit %d", common.ErrorValidation, req.SizeBytes, m.opts.MaxUploadBytes)
	}
	return nil
}

// Start validates the request, mints an upload credential for a fresh
// server-generated object key, and registers a Pending session. Validation
// failures mint nothing.
func (m *Manager) Start(ctx context.Context, req models.UploadRequest) (*StartResult, error) {
	if err := m.validate(req); err != nil {
		return nil, err
	}

	key := m.randomStorageKey(req.Filename)
	cred, err := m.signer.Sign(ctx, key, signer.OperationUpload, m.opts.CredentialTTL)
	if err != nil {
		return nil, err
	}

	session := &Session{
		id:         uuid.NewString(),
		request:    req,
		credential: cred,
		status:     StatusPending,
	}

	m.mu.Lock()
	m.sessions[session.id] = session
	m.mu.Unlock()

	metrics.UploadsStarted.Inc()
	m.logger.Info(ctx, "upload session started", "session_id", session.id, "key", key)

	return &StartResult{
		SessionID: session.id,
		UploadURL: cred.URL,
		ObjectURL: m.publicURL(key),
		ExpiresAt: cred.ExpiresAt,
	}, nil
}

func (m *Manager) publicURL(key string) string {
	return strings.TrimRight(m.opts.PublicBaseURL, "/") + "/" + key
}

func (m *Manager) get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, common.ErrorSessionNotFound
	}
	return s, nil
}

// Progress applies a client progress report and returns the session's
// current (monotonic) percentage.
func (m *Manager) Progress(sessionID string, bytesSent, bytesTotal int64) (int, error) {
	s, err := m.get(sessionID)
	if err != nil {
		return 0, err
	}
	return s.progress(bytesSent, bytesTotal)
}

// Complete resolves a session from the reported transport outcome and
// returns the public object URL on success. A claimed success is verified
// against the storage backend when a lister is available. Terminal sessions
// are removed: retrying requires a new session.
func (m *Manager) Complete(ctx context.Context, sessionID string, transportOK bool) (string, error) {
	s, err := m.get(sessionID)
	if err != nil {
		return "", err
	}

	snap := s.Snapshot()
	if transportOK && m.lister != nil && !snap.Credential.Expired(time.Now()) {
		exists, err := m.lister.Exists(ctx, snap.Credential.ObjectKey)
		if err != nil {
			return "", err
		}
		if !exists {
			transportOK = false
		}
	}

	url, err := s.complete(transportOK, m.publicURL(snap.Credential.ObjectKey), time.Now())

	// The session is terminal either way; drop it so a second report cannot
	// flip the outcome.
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if err != nil {
		metrics.UploadsResolved.WithLabelValues("failed").Inc()
		m.logger.Warn(ctx, "upload session failed", "session_id", sessionID, "error", err.Error())
		return "", err
	}

	metrics.UploadsResolved.WithLabelValues("succeeded").Inc()
	m.logger.Info(ctx, "upload session succeeded", "session_id", sessionID, "url", url)
	return url, nil
}

// Sweep drops abandoned sessions whose credentials have expired. Returns
// the number removed. Called periodically by the app.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of in-flight sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
