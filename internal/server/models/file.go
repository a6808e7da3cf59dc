package models

import "time"

// UploadRequest describes a single direct-to-storage upload attempt as
// submitted by the client. It is validated before any credential is minted
// and discarded once the session resolves.
type UploadRequest struct {
	Filename    string
	ContentType string
	SizeBytes   int64
}

// AccessibleFile is one entry of a tier-filtered listing: an object the
// caller may read, wrapped in a freshly minted download URL. Entries are
// produced per call and never cached, so every listing carries
// independently expiring links.
type AccessibleFile struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
