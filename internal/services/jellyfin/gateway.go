package jellyfin

import (
	"context"
	"net/http"
	"slices"
)

// ListLibraries returns the server's media folders keyed by name. One tag
// maps to one library by name, so the synchronizer resolves tag names
// through this map.
func (c *Client) ListLibraries(ctx context.Context) (map[string]string, error) {
	libraries, err := c.Libraries(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]string, len(libraries))
	for _, library := range libraries {
		byName[library.Name] = library.ID
	}
	return byName, nil
}

// ListGrants returns the library ids the configured account can currently
// see. An account with EnableAllFolders set sees everything, so the full
// library list is reported as granted; the first explicit write flips the
// account to managed mode.
func (c *Client) ListGrants(ctx context.Context) ([]string, error) {
	acct, err := c.fetchAccount(ctx)
	if err != nil {
		return nil, err
	}
	if acct.allFoldersEnabled() {
		libraries, err := c.Libraries(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(libraries))
		for _, library := range libraries {
			ids = append(ids, library.ID)
		}
		slices.Sort(ids)
		return ids, nil
	}
	grants := acct.enabledFolders()
	slices.Sort(grants)
	return grants, nil
}

// Grant adds one library to the account's visible set. The policy is
// re-read on every call so out-of-band changes are never clobbered.
func (c *Client) Grant(ctx context.Context, libraryID string) error {
	acct, err := c.fetchAccount(ctx)
	if err != nil {
		return err
	}
	folders, err := c.managedFolders(ctx, acct)
	if err != nil {
		return err
	}
	if slices.Contains(folders, libraryID) {
		if !acct.allFoldersEnabled() {
			return nil
		}
		// Flip into managed mode without losing what the account can
		// currently see.
		return c.setEnabledFolders(ctx, acct, folders)
	}
	return c.setEnabledFolders(ctx, acct, append(folders, libraryID))
}

// Revoke removes one library from the account's visible set.
func (c *Client) Revoke(ctx context.Context, libraryID string) error {
	acct, err := c.fetchAccount(ctx)
	if err != nil {
		return err
	}
	folders, err := c.managedFolders(ctx, acct)
	if err != nil {
		return err
	}
	index := slices.Index(folders, libraryID)
	if index < 0 && !acct.allFoldersEnabled() {
		return nil
	}
	if index >= 0 {
		folders = slices.Delete(folders, index, index+1)
	}
	return c.setEnabledFolders(ctx, acct, folders)
}

// managedFolders is the enabled-folder list a policy write must start from.
// With EnableAllFolders set, the raw EnabledFolders list is meaningless (and
// usually empty); the account effectively holds every library, so the first
// managed write has to seed the explicit list with the full library set or it
// would silently drop everything the flag was granting.
func (c *Client) managedFolders(ctx context.Context, acct *account) ([]string, error) {
	if !acct.allFoldersEnabled() {
		return acct.enabledFolders(), nil
	}
	libraries, err := c.Libraries(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(libraries))
	for _, library := range libraries {
		ids = append(ids, library.ID)
	}
	return ids, nil
}

// Check verifies the server is reachable and the credentials and account
// name are valid.
func (c *Client) Check(ctx context.Context) error {
	if _, err := c.fetchAccount(ctx); err != nil {
		return err
	}
	return c.do(ctx, http.MethodGet, "/Library/MediaFolders", nil, nil)
}
