// Package services contains server-side business logic: resolving
// tier-scoped file listings and managing user accounts.
package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/apetrov/assetgate/internal/common"
	"github.com/apetrov/assetgate/internal/logging"
	"github.com/apetrov/assetgate/internal/server/catalog"
	"github.com/apetrov/assetgate/internal/server/metrics"
	"github.com/apetrov/assetgate/internal/server/models"
	"github.com/apetrov/assetgate/internal/server/signer"
	"github.com/apetrov/assetgate/internal/server/storage"
)

const (
	listRetryAttempts = 2
	listRetryBase     = 100 * time.Millisecond
)

// FileService resolves, for an account tier, the set of storage objects the
// tier may read, each wrapped in a freshly minted download URL.
type FileService struct {
	signer          signer.Signer
	lister          storage.Lister
	catalog         *catalog.Catalog
	downloadTTL     time.Duration
	mintConcurrency int
	logger          logging.Logger
}

func NewFileService(s signer.Signer, l storage.Lister, c *catalog.Catalog,
	downloadTTL time.Duration, mintConcurrency int, log logging.Logger) *FileService {
	if mintConcurrency <= 0 {
		mintConcurrency = 1
	}
	return &FileService{
		signer:          s,
		lister:          l,
		catalog:         c,
		downloadTTL:     downloadTTL,
		mintConcurrency: mintConcurrency,
		logger:          log.With("module", "files"),
	}
}

// ListAccessibleFiles returns the tier's readable objects with fresh signed
// URLs. The listing call is retried with backoff since storage hiccups are
// transient; once keys are known, credentials are minted concurrently under
// a cap. Any failure fails the whole call — no partial, half-signed lists.
// Zero matching objects is a normal empty result.
func (s *FileService) ListAccessibleFiles(ctx context.Context, tier models.Tier) ([]models.AccessibleFile, error) {
	patterns, err := s.catalog.PatternsFor(tier)
	if err != nil {
		// Catalog/enum mismatch is a configuration defect; make it loud.
		s.logger.Error(ctx, "tier missing from catalog", "tier", tier.String())
		return nil, err
	}

	keys, err := s.listWithRetry(ctx, catalog.Prefixes(patterns))
	if err != nil {
		metrics.ListingFailures.Inc()
		return nil, err
	}

	keys = filterKeys(keys, patterns)
	if len(keys) == 0 {
		return []models.AccessibleFile{}, nil
	}

	out := make([]models.AccessibleFile, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.mintConcurrency)
	for i, key := range keys {
		g.Go(func() error {
			cred, err := s.signer.Sign(gctx, key, signer.OperationDownload, s.downloadTTL)
			if err != nil {
				return fmt.Errorf("minting download credential for %q: %w", key, err)
			}
			out[i] = models.AccessibleFile{
				Name:      path.Base(key),
				URL:       cred.URL,
				ExpiresAt: cred.ExpiresAt,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.ListingFailures.Inc()
		return nil, err
	}

	return out, nil
}

func (s *FileService) listWithRetry(ctx context.Context, prefixes []string) ([]string, error) {
	var keys []string
	backoff := retry.WithMaxRetries(listRetryAttempts, retry.NewExponential(listRetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var listErr error
		keys, listErr = s.lister.List(ctx, prefixes)
		if listErr != nil {
			return retry.RetryableError(listErr)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, common.ErrorStorageUnavailable) {
			err = fmt.Errorf("%w: %v", common.ErrorStorageUnavailable, err)
		}
		return nil, err
	}
	return keys, nil
}

// filterKeys keeps keys matching the pattern set, deduplicated by key with
// first-seen order preserved. Order is stable within one call; callers must
// not assume any particular sort.
func filterKeys(keys []string, patterns []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if catalog.Matches(key, patterns) {
			out = append(out, key)
		}
	}
	return out
}
