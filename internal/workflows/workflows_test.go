package workflows

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/PolarWolf314/rakau/internal/audit"
	"github.com/PolarWolf314/rakau/internal/codec/codectest"
	"github.com/PolarWolf314/rakau/internal/configs"
	kerrors "github.com/PolarWolf314/rakau/internal/errors"
	logger "github.com/PolarWolf314/rakau/internal/logging"
	"github.com/PolarWolf314/rakau/internal/store"
	"github.com/PolarWolf314/rakau/internal/versioning"
)

func newTestWire(t *testing.T, versioningBackend string) (*Wire, *codectest.TagCipher) {
	t.Helper()
	dir := t.TempDir()
	c := codectest.New()
	w, err := NewWire(WireOptions{
		Settings: &configs.Settings{
			StoreDir:          filepath.Join(dir, "store"),
			VersioningBackend: versioningBackend,
			AuditPath:         filepath.Join(dir, "audit.jsonl"),
		},
		Log:    logger.Logger{},
		Cipher: c,
	})
	if err != nil {
		t.Fatalf("NewWire failed: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w, c
}

func initStore(t *testing.T, w *Wire, ids ...string) *InitResult {
	t.Helper()
	res, err := Init(context.Background(), w, InitOptions{Recipients: ids})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return res
}

func insert(t *testing.T, w *Wire, name, secret string) *InsertResult {
	t.Helper()
	res, err := Insert(context.Background(), w, InsertOptions{Name: name, Secret: []byte(secret)})
	if err != nil {
		t.Fatalf("Insert(%s) failed: %v", name, err)
	}
	return res
}

func listNames(t *testing.T, w *Wire, prefix string) []string {
	t.Helper()
	res, err := List(context.Background(), w, ListOptions{Prefix: prefix})
	if err != nil {
		t.Fatalf("List(%q) failed: %v", prefix, err)
	}
	return res.Names()
}

func auditOps(t *testing.T, w *Wire) []string {
	t.Helper()
	entries, err := w.Audit.ReadEntries()
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	var ops []string
	for _, e := range entries {
		ops = append(ops, e.Operation)
	}
	return ops
}

func TestNewWireRejectsUnknownVersioning(t *testing.T) {
	_, err := NewWire(WireOptions{
		Settings: &configs.Settings{StoreDir: t.TempDir(), VersioningBackend: "svn"},
		Cipher:   codectest.New(),
	})
	if err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}

func TestInitCreatesStoreAndJournal(t *testing.T) {
	w, _ := newTestWire(t, configs.VersioningJournal)
	res := initStore(t, w, "K1")

	if !res.Created {
		t.Error("expected Created to be set")
	}
	if !slices.Equal(res.Recipients, []string{"K1"}) {
		t.Errorf("Recipients = %v, want [K1]", res.Recipients)
	}
	if res.Version.IsZero() {
		t.Error("expected a version record for init")
	}
	if _, err := os.Stat(filepath.Join(w.Root(), ".gpg-id")); err != nil {
		t.Errorf("declaration missing: %v", err)
	}

	_, err := Init(context.Background(), w, InitOptions{Recipients: []string{"K2"}})
	if !errors.Is(err, kerrors.ErrAlreadyInitialized) {
		t.Errorf("second Init error = %v, want ErrAlreadyInitialized", err)
	}
}

func TestInitWithoutRecipients(t *testing.T) {
	w, _ := newTestWire(t, configs.VersioningNone)
	_, err := Init(context.Background(), w, InitOptions{})
	if !errors.Is(err, kerrors.ErrNoRecipientsConfigured) {
		t.Errorf("error = %v, want ErrNoRecipientsConfigured", err)
	}
}

func TestInsertShowRoundTrip(t *testing.T) {
	w, _ := newTestWire(t, configs.VersioningJournal)
	initStore(t, w, "K1")

	ins := insert(t, w, "web/mail", "hunter2\nuser: alice\nurl: https://mail.example\n")
	if ins.Replaced {
		t.Error("a fresh entry should not be marked replaced")
	}
	if ins.Version.IsZero() {
		t.Error("expected a version record for insert")
	}

	ctx := context.Background()
	tests := []struct {
		name string
		opts ShowOptions
		want string
	}{
		{"whole entry", ShowOptions{Name: "web/mail"}, "hunter2\nuser: alice\nurl: https://mail.example\n"},
		{"password line", ShowOptions{Name: "web/mail", Line: 1}, "hunter2"},
		{"field", ShowOptions{Name: "web/mail", Field: "user"}, "alice"},
		{"field ignores case", ShowOptions{Name: "web/mail", Field: "URL"}, "https://mail.example"},
		{"password field", ShowOptions{Name: "web/mail", Field: "password"}, "hunter2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Show(ctx, w, tt.opts)
			if err != nil {
				t.Fatalf("Show failed: %v", err)
			}
			if res.IsTree() {
				t.Fatal("expected an entry, got a tree")
			}
			if res.Value != tt.want {
				t.Errorf("Value = %q, want %q", res.Value, tt.want)
			}
		})
	}

	if _, err := Show(ctx, w, ShowOptions{Name: "web/mail", Field: "pin"}); !errors.Is(err, kerrors.ErrFieldNotFound) {
		t.Errorf("missing field error = %v, want ErrFieldNotFound", err)
	}
	if _, err := Show(ctx, w, ShowOptions{Name: "web/mail", Line: 9}); !errors.Is(err, kerrors.ErrFieldNotFound) {
		t.Errorf("missing line error = %v, want ErrFieldNotFound", err)
	}
	if _, err := Show(ctx, w, ShowOptions{Name: "web/nope"}); !errors.Is(err, kerrors.ErrEntryNotFound) {
		t.Errorf("missing entry error = %v, want ErrEntryNotFound", err)
	}
}

func TestShowDirectoryIsTree(t *testing.T) {
	w, _ := newTestWire(t, configs.VersioningNone)
	initStore(t, w, "K1")
	insert(t, w, "web/mail", "a")
	insert(t, w, "web/bank/login", "b")
	insert(t, w, "wifi", "c")

	res, err := Show(context.Background(), w, ShowOptions{Name: "web"})
	if err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if !res.IsTree() {
		t.Fatal("expected a tree for a directory")
	}
	if want := []string{"bank/login", "mail"}; !slices.Equal(res.Tree, want) {
		t.Errorf("Tree = %v, want %v", res.Tree, want)
	}

	res, err = Show(context.Background(), w, ShowOptions{})
	if err != nil {
		t.Fatalf("Show root failed: %v", err)
	}
	if len(res.Tree) != 3 {
		t.Errorf("root tree has %d entries, want 3", len(res.Tree))
	}
}

func TestInsertRefusesOverwriteWithoutForce(t *testing.T) {
	w, _ := newTestWire(t, configs.VersioningNone)
	initStore(t, w, "K1")
	insert(t, w, "a", "one")

	ctx := context.Background()
	_, err := Insert(ctx, w, InsertOptions{Name: "a", Secret: []byte("two")})
	if !errors.Is(err, kerrors.ErrEntryExists) {
		t.Fatalf("error = %v, want ErrEntryExists", err)
	}

	res, err := Insert(ctx, w, InsertOptions{Name: "a", Secret: []byte("two"), Force: true})
	if err != nil {
		t.Fatalf("forced Insert failed: %v", err)
	}
	if !res.Replaced {
		t.Error("expected Replaced to be set")
	}
	shown, err := Show(ctx, w, ShowOptions{Name: "a"})
	if err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if shown.Value != "two" {
		t.Errorf("Value = %q, want two", shown.Value)
	}
}

func TestInsertIntoDirectoryName(t *testing.T) {
	w, _ := newTestWire(t, configs.VersioningNone)
	initStore(t, w, "K1")
	insert(t, w, "web/mail", "a")

	_, err := Insert(context.Background(), w, InsertOptions{Name: "web", Secret: []byte("x")})
	if !errors.Is(err, kerrors.ErrIsDirectory) {
		t.Errorf("error = %v, want ErrIsDirectory", err)
	}
}

func TestInsertInvalidName(t *testing.T) {
	w, _ := newTestWire(t, configs.VersioningNone)
	initStore(t, w, "K1")

	for _, name := range []string{"", "../escape", "a/.hidden"} {
		_, err := Insert(context.Background(), w, InsertOptions{Name: name, Secret: []byte("x")})
		if !errors.Is(err, kerrors.ErrInvalidEntryPath) {
			t.Errorf("Insert(%q) error = %v, want ErrInvalidEntryPath", name, err)
		}
	}
}

func TestOperationsBeforeInit(t *testing.T) {
	w, _ := newTestWire(t, configs.VersioningNone)
	_, err := Insert(context.Background(), w, InsertOptions{Name: "a", Secret: []byte("x")})
	if !errors.Is(err, kerrors.ErrStoreNotInitialized) {
		t.Errorf("error = %v, want ErrStoreNotInitialized", err)
	}
}

func TestListAndFind(t *testing.T) {
	w, _ := newTestWire(t, configs.VersioningNone)
	initStore(t, w, "K1")
	for _, name := range []string{"web/mail", "web/bank", "webmail", "shop/amazon"} {
		insert(t, w, name, "x")
	}

	if got, want := listNames(t, w, "web"), []string{"web/bank", "web/mail"}; !slices.Equal(got, want) {
		t.Errorf("List(web) = %v, want %v", got, want)
	}
	if got := listNames(t, w, ""); len(got) != 4 {
		t.Errorf("List() = %v, want 4 entries", got)
	}

	ctx := context.Background()
	tests := []struct {
		name  string
		terms []string
		want  []string
	}{
		{"substring", []string{"MAIL"}, []string{"web/mail", "webmail"}},
		{"glob", []string{"web/*"}, []string{"web/bank", "web/mail"}},
		{"many terms", []string{"amazon", "bank"}, []string{"shop/amazon", "web/bank"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Find(ctx, w, FindOptions{Terms: tt.terms})
			if err != nil {
				t.Fatalf("Find failed: %v", err)
			}
			if got := res.Names(); !slices.Equal(got, tt.want) {
				t.Errorf("Find(%v) = %v, want %v", tt.terms, got, tt.want)
			}
		})
	}

	if _, err := Find(ctx, w, FindOptions{Terms: []string{"[unclosed"}}); !errors.Is(err, kerrors.ErrInvalidPattern) {
		t.Errorf("bad pattern error = %v, want ErrInvalidPattern", err)
	}
}

func TestRemove(t *testing.T) {
	w, _ := newTestWire(t, configs.VersioningJournal)
	initStore(t, w, "K1")
	insert(t, w, "web/mail", "a")
	insert(t, w, "web/bank", "b")
	insert(t, w, "wifi", "c")
	ctx := context.Background()

	if _, err := Remove(ctx, w, RemoveOptions{Name: "web"}); !errors.Is(err, kerrors.ErrIsDirectory) {
		t.Errorf("non-recursive directory removal error = %v, want ErrIsDirectory", err)
	}

	res, err := Remove(ctx, w, RemoveOptions{Name: "wifi"})
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if res.Version.IsZero() {
		t.Error("expected a version record for remove")
	}

	res, err = Remove(ctx, w, RemoveOptions{Name: "web", Recursive: true})
	if err != nil {
		t.Fatalf("recursive Remove failed: %v", err)
	}
	if len(res.Removed) != 2 {
		t.Errorf("Removed = %v, want 2 entries", res.Removed)
	}
	if got := listNames(t, w, ""); len(got) != 0 {
		t.Errorf("store still lists %v", got)
	}

	if _, err := Remove(ctx, w, RemoveOptions{Name: "wifi"}); !errors.Is(err, kerrors.ErrEntryNotFound) {
		t.Errorf("second removal error = %v, want ErrEntryNotFound", err)
	}
}

func TestMove(t *testing.T) {
	ctx := context.Background()

	t.Run("RenameEntry", func(t *testing.T) {
		w, _ := newTestWire(t, configs.VersioningNone)
		initStore(t, w, "K1")
		insert(t, w, "old", "s")

		res, err := Move(ctx, w, MoveOptions{From: "old", To: "new"})
		if err != nil {
			t.Fatalf("Move failed: %v", err)
		}
		if len(res.Moved) != 1 || res.Moved[0].To.String() != "new" {
			t.Errorf("Moved = %+v", res.Moved)
		}
		if got := listNames(t, w, ""); !slices.Equal(got, []string{"new"}) {
			t.Errorf("List = %v, want [new]", got)
		}
	})

	t.Run("IntoDirectory", func(t *testing.T) {
		w, _ := newTestWire(t, configs.VersioningNone)
		initStore(t, w, "K1")
		insert(t, w, "mail", "s")
		insert(t, w, "archive/keep", "k")

		if _, err := Move(ctx, w, MoveOptions{From: "mail", To: "archive"}); err != nil {
			t.Fatalf("Move failed: %v", err)
		}
		if got, want := listNames(t, w, ""), []string{"archive/keep", "archive/mail"}; !slices.Equal(got, want) {
			t.Errorf("List = %v, want %v", got, want)
		}
	})

	t.Run("Directory", func(t *testing.T) {
		w, _ := newTestWire(t, configs.VersioningNone)
		initStore(t, w, "K1")
		insert(t, w, "web/mail", "a")
		insert(t, w, "web/bank/login", "b")

		res, err := Move(ctx, w, MoveOptions{From: "web", To: "sites"})
		if err != nil {
			t.Fatalf("Move failed: %v", err)
		}
		if len(res.Moved) != 2 {
			t.Errorf("Moved %d entries, want 2", len(res.Moved))
		}
		if got, want := listNames(t, w, ""), []string{"sites/bank/login", "sites/mail"}; !slices.Equal(got, want) {
			t.Errorf("List = %v, want %v", got, want)
		}
	})

	t.Run("RefusesOverwrite", func(t *testing.T) {
		w, _ := newTestWire(t, configs.VersioningNone)
		initStore(t, w, "K1")
		insert(t, w, "a", "1")
		insert(t, w, "b", "2")

		if _, err := Move(ctx, w, MoveOptions{From: "a", To: "b"}); !errors.Is(err, kerrors.ErrEntryExists) {
			t.Errorf("error = %v, want ErrEntryExists", err)
		}
		if _, err := Move(ctx, w, MoveOptions{From: "a", To: "b", Force: true}); err != nil {
			t.Fatalf("forced Move failed: %v", err)
		}
		shown, err := Show(ctx, w, ShowOptions{Name: "b"})
		if err != nil {
			t.Fatalf("Show failed: %v", err)
		}
		if shown.Value != "1" {
			t.Errorf("Value = %q, want 1", shown.Value)
		}
	})

	t.Run("AcrossScopesReencrypts", func(t *testing.T) {
		w, _ := newTestWire(t, configs.VersioningNone)
		initStore(t, w, "K1")
		if _, err := Init(ctx, w, InitOptions{Recipients: []string{"K2"}, Subfolder: "team"}); err != nil {
			t.Fatalf("subfolder Init failed: %v", err)
		}
		insert(t, w, "mine", "s")

		res, err := Move(ctx, w, MoveOptions{From: "mine", To: "team/mine"})
		if err != nil {
			t.Fatalf("Move failed: %v", err)
		}
		if !res.Moved[0].Reencrypted {
			t.Error("expected the entry to be re-encrypted for the team scope")
		}
	})

	t.Run("Missing", func(t *testing.T) {
		w, _ := newTestWire(t, configs.VersioningNone)
		initStore(t, w, "K1")
		if _, err := Move(ctx, w, MoveOptions{From: "ghost", To: "x"}); !errors.Is(err, kerrors.ErrEntryNotFound) {
			t.Errorf("error = %v, want ErrEntryNotFound", err)
		}
	})
}

func TestReinitializeReencryptsForNewKey(t *testing.T) {
	w, c := newTestWire(t, configs.VersioningJournal)
	initStore(t, w, "K1")
	insert(t, w, "a", "secret-a")
	insert(t, w, "dir/b", "secret-b")
	ctx := context.Background()

	res, err := Init(ctx, w, InitOptions{Recipients: []string{"K1", "K2"}, Reinitialize: true})
	if err != nil {
		t.Fatalf("Reinitialize failed: %v", err)
	}
	if len(res.Reencrypted) != 2 {
		t.Errorf("Reencrypted = %v, want 2 entries", res.Reencrypted)
	}

	c.Hold("K2")
	for name, want := range map[string]string{"a": "secret-a", "dir/b": "secret-b"} {
		shown, err := Show(ctx, w, ShowOptions{Name: name})
		if err != nil {
			t.Fatalf("Show(%s) with K2 only failed: %v", name, err)
		}
		if shown.Value != want {
			t.Errorf("Show(%s) = %q, want %q", name, shown.Value, want)
		}
	}
}

func TestSubfolderRecipients(t *testing.T) {
	w, c := newTestWire(t, configs.VersioningNone)
	initStore(t, w, "A")
	insert(t, w, "work/vpn", "v")
	insert(t, w, "personal/bank", "p")
	ctx := context.Background()

	res, err := Init(ctx, w, InitOptions{Recipients: []string{"B"}, Subfolder: "work"})
	if err != nil {
		t.Fatalf("Init work failed: %v", err)
	}
	if res.Scope.String() != "work" || len(res.Reencrypted) != 1 {
		t.Errorf("result = %+v", res)
	}

	c.Hold("B")
	if _, err := Show(ctx, w, ShowOptions{Name: "work/vpn"}); err != nil {
		t.Errorf("B should read work/vpn: %v", err)
	}
	if _, err := Show(ctx, w, ShowOptions{Name: "personal/bank"}); err == nil {
		t.Error("B should not read personal/bank")
	}

	// An empty list drops the subfolder declaration again.
	c.Hold()
	res, err = Init(ctx, w, InitOptions{Subfolder: "work"})
	if err != nil {
		t.Fatalf("Deinitialize failed: %v", err)
	}
	if len(res.Recipients) != 0 {
		t.Errorf("Recipients = %v, want none", res.Recipients)
	}
	c.Hold("A")
	if _, err := Show(ctx, w, ShowOptions{Name: "work/vpn"}); err != nil {
		t.Errorf("A should read work/vpn after deinit: %v", err)
	}
}

func TestReencryptResumes(t *testing.T) {
	w, c := newTestWire(t, configs.VersioningJournal)
	initStore(t, w, "K1")
	for _, name := range []string{"a", "b", "c"} {
		insert(t, w, name, name)
	}
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(w.Root(), ".gpg-id"), []byte("K1\nK2\n"), 0o600); err != nil {
		t.Fatalf("failed to rewrite declaration: %v", err)
	}

	c.FailAfter(1)
	res, err := Reencrypt(ctx, w, ReencryptOptions{})
	var rerr *kerrors.ReencryptError
	if !errors.As(err, &rerr) {
		t.Fatalf("error = %v, want *ReencryptError", err)
	}
	if len(res.Converted) != 1 {
		t.Errorf("Converted = %v, want 1 entry", res.Converted)
	}
	if res.Version.IsZero() {
		t.Error("converted entries should still be versioned")
	}

	c.FailAfter(-1)
	res, err = Reencrypt(ctx, w, ReencryptOptions{OnlyStale: true})
	if err != nil {
		t.Fatalf("resumed Reencrypt failed: %v", err)
	}
	if len(res.Converted) != 2 || len(res.Skipped) != 1 {
		t.Errorf("Converted = %v, Skipped = %v", res.Converted, res.Skipped)
	}

	res, err = Reencrypt(ctx, w, ReencryptOptions{OnlyStale: true})
	if err != nil {
		t.Fatalf("idempotent Reencrypt failed: %v", err)
	}
	if len(res.Converted) != 0 {
		t.Errorf("third run converted %v", res.Converted)
	}
	if !res.Version.IsZero() {
		t.Error("a run that changes nothing should not create a version")
	}
}

func TestHistoryAndCommit(t *testing.T) {
	w, _ := newTestWire(t, configs.VersioningJournal)
	initStore(t, w, "K1")
	insert(t, w, "a", "1")
	if _, err := Remove(context.Background(), w, RemoveOptions{Name: "a"}); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	ctx := context.Background()

	hist, err := History(ctx, w, HistoryOptions{})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if !hist.Enabled || hist.Backend != configs.VersioningJournal {
		t.Errorf("History backend = %s enabled=%v", hist.Backend, hist.Enabled)
	}
	var msgs []string
	for _, r := range hist.Records {
		msgs = append(msgs, r.Message)
	}
	want := []string{"Remove a from store.", "Add given password for a to store.", "Set GPG id to K1."}
	if !slices.Equal(msgs, want) {
		t.Errorf("messages = %q, want %q", msgs, want)
	}

	limited, err := History(ctx, w, HistoryOptions{Limit: 1})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(limited.Records) != 1 {
		t.Errorf("limited history has %d records", len(limited.Records))
	}

	// A change made behind the store's back is picked up by Commit.
	if err := os.WriteFile(filepath.Join(w.Root(), ".gpg-id"), []byte("K1\nK9\n"), 0o600); err != nil {
		t.Fatalf("failed to edit declaration: %v", err)
	}
	res, err := Commit(ctx, w, CommitOptions{})
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if res.Version.IsZero() || res.Version.Message != DefaultCommitMessage {
		t.Errorf("Commit version = %+v", res.Version)
	}

	res, err = Commit(ctx, w, CommitOptions{Message: "again"})
	if err != nil {
		t.Fatalf("second Commit failed: %v", err)
	}
	if !res.Version.IsZero() {
		t.Errorf("nothing changed but got version %+v", res.Version)
	}
}

func TestHistoryDisabled(t *testing.T) {
	w, _ := newTestWire(t, configs.VersioningNone)
	initStore(t, w, "K1")
	hist, err := History(context.Background(), w, HistoryOptions{})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if hist.Enabled || len(hist.Records) != 0 {
		t.Errorf("History = %+v, want disabled and empty", hist)
	}
}

func TestAuditTrail(t *testing.T) {
	w, c := newTestWire(t, configs.VersioningNone)
	initStore(t, w, "K1")
	insert(t, w, "web/mail", "a")
	insert(t, w, "wifi", "b")
	ctx := context.Background()
	if _, err := Show(ctx, w, ShowOptions{Name: "wifi"}); err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	c.Hold("nobody")
	if _, err := Show(ctx, w, ShowOptions{Name: "wifi"}); err == nil {
		t.Fatal("expected decryption to fail")
	}

	if got, want := auditOps(t, w), []string{"init", "insert", "insert", "show", "show"}; !slices.Equal(got, want) {
		t.Errorf("audit ops = %v, want %v", got, want)
	}

	res, err := AuditLog(ctx, w, AuditLogOptions{Operations: "insert", Path: "web"})
	if err != nil {
		t.Fatalf("AuditLog failed: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Paths[0] != "web/mail" {
		t.Errorf("filtered entries = %+v", res.Entries)
	}
	if res.TotalEntriesBeforeFilter != 5 {
		t.Errorf("TotalEntriesBeforeFilter = %d, want 5", res.TotalEntriesBeforeFilter)
	}

	res, err = AuditLog(ctx, w, AuditLogOptions{Limit: 1, Reverse: true})
	if err != nil {
		t.Fatalf("AuditLog failed: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Error == "" {
		t.Errorf("latest entry = %+v, want the failed show", res.Entries)
	}

	if _, err := AuditLog(ctx, w, AuditLogOptions{Since: "yesterday"}); !errors.Is(err, kerrors.ErrInvalidConfig) {
		t.Errorf("bad date error = %v, want ErrInvalidConfig", err)
	}
}

func TestAuditLogDisabled(t *testing.T) {
	w, err := NewWire(WireOptions{
		Settings: &configs.Settings{StoreDir: t.TempDir(), VersioningBackend: configs.VersioningNone},
		Cipher:   codectest.New(),
	})
	if err != nil {
		t.Fatalf("NewWire failed: %v", err)
	}
	res, err := AuditLog(context.Background(), w, AuditLogOptions{})
	if err != nil {
		t.Fatalf("AuditLog failed: %v", err)
	}
	if res.Path != "" || len(res.Entries) != 0 {
		t.Errorf("result = %+v, want empty", res)
	}
}

func TestFormatDetails(t *testing.T) {
	tests := []struct {
		name  string
		entry audit.Entry
		want  string
	}{
		{"paths", audit.Entry{Paths: []string{"a", "b"}}, "a, b"},
		{"many paths", audit.Entry{Paths: []string{"a", "b", "c", "d"}}, "4 entries"},
		{"recipients", audit.Entry{Paths: []string{"work"}, Recipients: []string{"K1"}}, "work for K1"},
		{"version", audit.Entry{Paths: []string{"a"}, Version: "0123456789abcdef"}, "a @0123456789ab"},
		{"error", audit.Entry{Error: "boom"}, "failed: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDetails(tt.entry); got != tt.want {
				t.Errorf("FormatDetails() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	w, _ := newTestWire(t, configs.VersioningJournal)
	ctx := context.Background()

	res, err := Validate(ctx, w, ValidateOptions{})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if res.Healthy() {
		t.Error("an uninitialized store should not be healthy")
	}

	initStore(t, w, "K1")
	insert(t, w, "a", "1")
	res, err = Validate(ctx, w, ValidateOptions{})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !res.Healthy() || len(res.Findings) != 0 {
		t.Errorf("fresh store: summary %+v findings %+v checks %+v", res.Summary, res.Findings, res.Checks)
	}

	if err := os.WriteFile(filepath.Join(w.Root(), ".gpg-id"), []byte("K2\n"), 0o600); err != nil {
		t.Fatalf("failed to rewrite declaration: %v", err)
	}
	res, err = Validate(ctx, w, ValidateOptions{})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(res.Findings) != 1 || res.Findings[0].Kind != store.IssueStaleEntry {
		t.Errorf("findings = %+v, want one stale entry", res.Findings)
	}
	if res.Summary.Warnings == 0 {
		t.Error("a stale entry should produce a warning")
	}
	if !slices.ContainsFunc(res.Suggestions, func(s string) bool { return strings.Contains(s, "reencrypt") }) {
		t.Errorf("suggestions = %v, want a reencrypt hint", res.Suggestions)
	}
}

func TestCheckStatusJSON(t *testing.T) {
	b, err := CheckWarning.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	if string(b) != `"warning"` {
		t.Errorf("MarshalJSON = %s", b)
	}
}

// brokenVersioner is enabled but cannot record anything.
type brokenVersioner struct{ versioning.None }

func (brokenVersioner) Name() string { return "broken" }

func (brokenVersioner) Enabled(context.Context) bool { return true }

func (brokenVersioner) RecordChange(context.Context, versioning.Change) (versioning.Record, error) {
	return versioning.Record{}, errors.New("disk full")
}

func TestPartialMoveKeepsVersioningFailure(t *testing.T) {
	ctx := context.Background()
	w, c := newTestWire(t, configs.VersioningNone)
	initStore(t, w, "K1")
	if _, err := Init(ctx, w, InitOptions{Recipients: []string{"K2"}, Subfolder: "team"}); err != nil {
		t.Fatalf("subfolder Init failed: %v", err)
	}
	insert(t, w, "web/a", "1")
	insert(t, w, "web/b", "2")

	w.Versioner = brokenVersioner{}
	c.FailAfter(1)
	res, err := Move(ctx, w, MoveOptions{From: "web", To: "team"})
	if res == nil || len(res.Moved) != 1 {
		t.Fatalf("Move result = %+v, want one moved entry", res)
	}
	if !errors.Is(err, kerrors.ErrEncryptionFailed) {
		t.Errorf("error = %v, want the encryption failure", err)
	}
	if !errors.Is(err, kerrors.ErrVersioningFailed) {
		t.Errorf("error = %v, want ErrVersioningFailed as well", err)
	}
}

func TestRemoveReportsVersioningFailure(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestWire(t, configs.VersioningNone)
	initStore(t, w, "K1")
	insert(t, w, "a", "1")

	w.Versioner = brokenVersioner{}
	res, err := Remove(ctx, w, RemoveOptions{Name: "a"})
	if !errors.Is(err, kerrors.ErrVersioningFailed) {
		t.Errorf("error = %v, want ErrVersioningFailed", err)
	}
	if res == nil || len(res.Removed) != 1 {
		t.Errorf("Remove result = %+v, want the removed entry", res)
	}
}
