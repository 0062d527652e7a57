package visibility

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"cinetag/internal/config"
	"cinetag/internal/logging"
	"cinetag/internal/services"
)

// Gateway is the server-side surface the synchronizer drives. Library ids
// are opaque server identifiers; tags resolve to libraries by name.
type Gateway interface {
	ListLibraries(ctx context.Context) (map[string]string, error)
	ListGrants(ctx context.Context) ([]string, error)
	Grant(ctx context.Context, libraryID string) error
	Revoke(ctx context.Context, libraryID string) error
}

const maxRetryBackoff = 10 * time.Second

// Synchronizer converges the configured account's grant set onto a desired
// set of visible tags.
type Synchronizer struct {
	gateway    Gateway
	maxRetries int
	backoff    time.Duration
	grantLimit int
	logger     *slog.Logger
}

// New builds a synchronizer from the jellyfin config section.
func New(cfg *config.Config, gateway Gateway, logger *slog.Logger) *Synchronizer {
	backoff := time.Duration(cfg.Jellyfin.RetryBackoffMS) * time.Millisecond
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	retries := cfg.Jellyfin.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Synchronizer{
		gateway:    gateway,
		maxRetries: retries,
		backoff:    backoff,
		grantLimit: cfg.Jellyfin.GrantLimit,
		logger:     logging.NewComponentLogger(logger, "visibility"),
	}
}

// Sync reads the account's current grants, diffs them against the desired
// tag set, and applies the difference. Grants are always re-read from the
// server so out-of-band changes are tolerated. Changes apply sequentially:
// every write rewrites the same policy document, so concurrent calls would
// clobber each other.
func (s *Synchronizer) Sync(ctx context.Context, desiredTags []string) (*Result, error) {
	libraries, err := s.gateway.ListLibraries(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "visibility", "list-libraries", "read server libraries", err)
	}
	current, err := s.gateway.ListGrants(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "visibility", "list-grants", "read account grants", err)
	}

	names := make(map[string]string, len(libraries))
	for name, id := range libraries {
		names[id] = name
	}

	result := &Result{}
	desired := make(map[string]struct{}, len(desiredTags))
	for _, tag := range desiredTags {
		id, ok := libraries[tag]
		if !ok {
			// The tag's library has not been created server-side yet.
			result.Missing = append(result.Missing, tag)
			continue
		}
		desired[id] = struct{}{}
	}
	sort.Strings(result.Missing)

	currentSet := make(map[string]struct{}, len(current))
	for _, id := range current {
		currentSet[id] = struct{}{}
	}

	var revokes, grants []change
	for _, id := range current {
		if _, ok := desired[id]; !ok {
			revokes = append(revokes, change{Action: ActionRevoke, LibraryID: id, Library: names[id]})
		}
	}
	for id := range desired {
		if _, ok := currentSet[id]; !ok {
			grants = append(grants, change{Action: ActionGrant, LibraryID: id, Library: names[id]})
		}
	}
	sortChanges(revokes)
	sortChanges(grants)

	// With a server-enforced grant ceiling, freeing slots must come first
	// or additions near the limit would be rejected.
	ordered := append(revokes, grants...)
	if s.grantLimit > 0 && len(currentSet)-len(revokes)+len(grants) > s.grantLimit {
		s.logger.Warn("desired grants exceed server limit",
			logging.Int("limit", s.grantLimit),
			logging.Int("desired", len(desired)),
		)
	}

	for _, ch := range ordered {
		if ctx.Err() != nil {
			result.Aborted = true
			break
		}
		if err := s.applyChange(ctx, ch); err != nil {
			result.Failures = append(result.Failures, Failure{
				Library:   ch.Library,
				LibraryID: ch.LibraryID,
				Action:    ch.Action,
				Err:       err,
			})
			if errors.Is(err, services.ErrAuth) {
				// Credentials are bad for every remaining call too.
				result.Aborted = true
				break
			}
			continue
		}
		if ch.Action == ActionGrant {
			result.Granted = append(result.Granted, ch.displayName())
		} else {
			result.Revoked = append(result.Revoked, ch.displayName())
		}
	}

	s.logger.Info("visibility sync finished",
		logging.Int("granted", len(result.Granted)),
		logging.Int("revoked", len(result.Revoked)),
		logging.Int("missing_libraries", len(result.Missing)),
		logging.Int("failures", len(result.Failures)),
		logging.Bool("aborted", result.Aborted),
	)
	return result, nil
}

func (s *Synchronizer) applyChange(ctx context.Context, ch change) error {
	attempt := 0
	for {
		var err error
		if ch.Action == ActionGrant {
			err = s.gateway.Grant(ctx, ch.LibraryID)
		} else {
			err = s.gateway.Revoke(ctx, ch.LibraryID)
		}
		if err == nil {
			return nil
		}
		if !services.Retryable(err) || attempt >= s.maxRetries {
			return err
		}
		attempt++
		backoff := s.backoff * time.Duration(1<<uint(attempt-1))
		if backoff > maxRetryBackoff {
			backoff = maxRetryBackoff
		}
		s.logger.Warn("grant call failed, retrying",
			logging.String("library", ch.displayName()),
			logging.String("action", ch.Action),
			logging.Int("attempt", attempt),
			logging.Duration("backoff", backoff),
			logging.Error(err),
		)
		if err := sleepWithContext(ctx, backoff); err != nil {
			return err
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
