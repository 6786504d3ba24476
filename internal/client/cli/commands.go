package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/zkkeeper/internal/client/models"
	"github.com/dmitrijs2005/zkkeeper/internal/client/reconciler"
	"github.com/dmitrijs2005/zkkeeper/internal/common"
	"github.com/dmitrijs2005/zkkeeper/internal/vaultx"
)

const idPrefixLen = 8

var (
	ErrAmbiguousID = errors.New("id prefix matches more than one entry")
	ErrEmptyInput  = errors.New("value must not be empty")
)

func (a *App) readCredentials(confirm bool) (string, []byte, error) {
	username, err := GetSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return "", nil, err
	}
	if username == "" {
		return "", nil, ErrEmptyInput
	}

	password, err := GetPassword(a.out, "Enter password")
	if err != nil {
		return "", nil, err
	}
	if len(password) == 0 {
		return "", nil, ErrEmptyInput
	}

	if confirm {
		again, err := GetPassword(a.out, "Repeat password")
		if err != nil {
			common.WipeByteArray(password)
			return "", nil, err
		}
		match := string(again) == string(password)
		common.WipeByteArray(again)
		if !match {
			common.WipeByteArray(password)
			return "", nil, errors.New("passwords do not match")
		}
	}

	return username, password, nil
}

func (a *App) Register(ctx context.Context) error {
	username, password, err := a.readCredentials(true)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Register(ctx, username, password); err != nil {
		a.logger.Warn(ctx, "registration failed", "error", err)
		return err
	}
	a.printf("Registered %q. You can login now.\n", username)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	if n := a.vault.PendingCount(); n > 0 {
		ok, err := GetConfirmation(a.reader, fmt.Sprintf("%d change(s) of %s are not synced and will be lost. Continue?", n, a.auth.Username()), a.out)
		if err != nil || !ok {
			return err
		}
	}

	username, password, err := a.readCredentials(false)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Login(ctx, username, password); err != nil {
		return err
	}

	a.vault.Reset()
	if err := a.vault.Load(ctx); err != nil {
		a.logger.Warn(ctx, "vault load failed", "error", err)
		a.printf("Logged in as %s, but the vault could not be loaded: %v\n", a.auth.Username(), err)
		return nil
	}
	a.printf("Logged in as %s (%d entries)\n", a.auth.Username(), len(a.vault.Entries()))
	return nil
}

// Unlock re-authenticates with the server so the password is resident
// again, then flushes whatever was queued while locked.
func (a *App) Unlock(ctx context.Context) error {
	password, err := GetPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Unlock(ctx, password); err != nil {
		return err
	}

	if !a.vault.Loaded() {
		return a.vault.Load(ctx)
	}
	if a.vault.HasPending() {
		return a.reportSync(ctx, a.vault.RetryPending(ctx))
	}
	a.printf("Unlocked\n")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if n := a.vault.PendingCount(); n > 0 {
		ok, err := GetConfirmation(a.reader, fmt.Sprintf("%d change(s) are not synced and will be lost. Logout anyway?", n), a.out)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	err := a.auth.Logout(ctx)
	a.vault.Reset()
	if err != nil {
		a.logger.Warn(ctx, "server logout failed", "error", err)
	}
	a.printf("Logged out\n")
	return nil
}

func (a *App) List(ctx context.Context) error {
	if !a.vault.Loaded() {
		return reconciler.ErrVaultNotLoaded
	}
	entries := a.vault.Entries()
	if len(entries) == 0 {
		a.printf("Vault is empty\n")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tUSERNAME\tCATEGORY\tSTRENGTH\t")
	for _, e := range entries {
		name := e.Name
		if e.Favorite {
			name = "* " + name
		}
		id := shortID(e.ID)
		if e.Pending {
			id += " ~"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", id, name, e.Username, e.Category, e.Strength)
	}
	return tw.Flush()
}

func (a *App) Show(ctx context.Context, id string) error {
	e, err := a.resolveEntry(id)
	if err != nil {
		return err
	}

	a.printf("ID:        %s\n", e.ID)
	a.printf("Name:      %s\n", e.Name)
	a.printf("Username:  %s\n", e.Username)
	a.printf("Password:  %s\n", e.Password)
	if e.Website != "" {
		a.printf("Website:   %s\n", e.Website)
	}
	if e.Category != "" {
		a.printf("Category:  %s\n", e.Category)
	}
	a.printf("Strength:  %s\n", e.Strength)
	a.printf("Favorite:  %t\n", e.Favorite)
	a.printf("Modified:  %s\n", e.LastModified.Local().Format(time.DateTime))
	if e.Notes != "" {
		a.printf("Notes:\n%s\n", e.Notes)
	}
	if e.Pending {
		a.printf("(not synced yet)\n")
	}
	return nil
}

func (a *App) Add(ctx context.Context) error {
	if !a.vault.Loaded() {
		return reconciler.ErrVaultNotLoaded
	}

	var e vaultx.Entry
	var err error

	if e.Name, err = GetSimpleText(a.reader, "Name", a.out); err != nil {
		return err
	}
	if e.Name == "" {
		return ErrEmptyInput
	}
	if e.Username, err = GetSimpleText(a.reader, "Username", a.out); err != nil {
		return err
	}
	if e.Password, err = GetSimpleText(a.reader, "Password (leave empty to generate)", a.out); err != nil {
		return err
	}
	if e.Password == "" {
		if e.Password, err = models.Generate(models.DefaultGeneratorOptions()); err != nil {
			return err
		}
		a.printf("Generated password: %s\n", e.Password)
	}
	if e.Website, err = GetSimpleText(a.reader, "Website", a.out); err != nil {
		return err
	}
	if e.Category, err = GetSimpleText(a.reader, "Category", a.out); err != nil {
		return err
	}
	if e.Notes, err = GetMultiline(a.reader, "Notes", a.out); err != nil {
		return err
	}

	added, err := a.vault.ApplyLocal(ctx, reconciler.Add(e))
	if err != nil && !isDeferred(err) {
		return err
	}
	a.printf("Added %s (%s)\n", shortID(added.ID), added.Strength)
	return a.reportSync(ctx, err)
}

func (a *App) Delete(ctx context.Context, id string) error {
	e, err := a.resolveEntry(id)
	if err != nil {
		return err
	}

	ok, err := GetConfirmation(a.reader, fmt.Sprintf("Delete %q?", e.Name), a.out)
	if err != nil || !ok {
		return err
	}

	_, err = a.vault.ApplyLocal(ctx, reconciler.Delete(e.ID))
	if err != nil && !isDeferred(err) {
		return err
	}
	a.printf("Deleted %s\n", shortID(e.ID))
	return a.reportSync(ctx, err)
}

func (a *App) Favorite(ctx context.Context, id string) error {
	e, err := a.resolveEntry(id)
	if err != nil {
		return err
	}

	updated, err := a.vault.ApplyLocal(ctx, reconciler.Toggle(e.ID))
	if err != nil && !isDeferred(err) {
		return err
	}
	if updated.Favorite {
		a.printf("Marked %s as favorite\n", shortID(e.ID))
	} else {
		a.printf("Unmarked %s as favorite\n", shortID(e.ID))
	}
	return a.reportSync(ctx, err)
}

func (a *App) Sync(ctx context.Context) error {
	if !a.vault.Loaded() {
		if err := a.vault.Load(ctx); err != nil {
			return err
		}
		a.printf("Vault loaded (%d entries)\n", len(a.vault.Entries()))
		return nil
	}
	if !a.vault.HasPending() {
		a.printf("Nothing to sync\n")
		return nil
	}
	err := a.vault.RetryPending(ctx)
	if err == nil {
		a.printf("Synced\n")
	}
	return a.reportSync(ctx, err)
}

func (a *App) Generate(ctx context.Context, args []string) error {
	opts := models.DefaultGeneratorOptions()
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid length %q", args[0])
		}
		opts.Length = n
	}

	pw, err := models.Generate(opts)
	if err != nil {
		return err
	}
	a.printf("%s (%s)\n", pw, models.Strength(pw))
	return nil
}

// resolveEntry accepts a full id or a unique prefix of one.
func (a *App) resolveEntry(id string) (vaultx.Entry, error) {
	if !a.vault.Loaded() {
		return vaultx.Entry{}, reconciler.ErrVaultNotLoaded
	}
	if e, err := a.vault.Entry(id); err == nil {
		return e, nil
	}

	var matches []vaultx.Entry
	for _, e := range a.vault.Entries() {
		if strings.HasPrefix(e.ID, id) {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return vaultx.Entry{}, reconciler.ErrEntryNotFound
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m.ID)
		}
		sort.Strings(ids)
		return vaultx.Entry{}, fmt.Errorf("%w: %s", ErrAmbiguousID, strings.Join(ids, ", "))
	}
}

func isDeferred(err error) bool {
	return errors.Is(err, reconciler.ErrSyncDeferred) || errors.Is(err, reconciler.ErrMissingDerivationSecret)
}

// reportSync turns a deferred upload into a notice. The change itself is
// kept locally in both cases.
func (a *App) reportSync(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, reconciler.ErrMissingDerivationSecret):
		a.printf("Vault is locked; change saved locally. Run 'unlock' to sync.\n")
		return nil
	case errors.Is(err, reconciler.ErrSyncDeferred):
		a.logger.Warn(ctx, "sync deferred", "error", err)
		a.printf("Server unreachable; change saved locally and will sync later.\n")
		return nil
	default:
		return err
	}
}

func shortID(id string) string {
	if len(id) > idPrefixLen {
		return id[:idPrefixLen]
	}
	return id
}
