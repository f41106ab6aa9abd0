package tokencache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)

	if err := c.Put("unity", "abc123", "bearer", 3600*time.Second, map[string]string{"scope": "reporting"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	rec, ok, err := c.Get("unity")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected record to be present")
	}
	if rec.Token != "abc123" || rec.TokenType != "bearer" {
		t.Errorf("unexpected record: %+v", rec)
	}
	wantExpiry := time.Now().Add(3600*time.Second - 60*time.Second).Unix()
	if diff := rec.ExpiresAt - wantExpiry; diff < -2 || diff > 2 {
		t.Errorf("expires_at off by too much: got %d want ~%d", rec.ExpiresAt, wantExpiry)
	}
}

func TestGetExpiredIsPurged(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)

	if err := c.Put("moloco", "tok", "bearer", 30*time.Second, nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// Safety buffer floors expiry at now+60s even for a 30s TTL, so force
	// an already-expired record directly to exercise the purge path.
	path := filepath.Join(dir, "moloco_token.json")
	expired := `{"network":"moloco","token":"tok","token_type":"bearer","expires_at":1,"created_at":1}`
	if err := os.WriteFile(path, []byte(expired), 0o600); err != nil {
		t.Fatalf("write expired fixture: %v", err)
	}

	if _, ok, err := c.Get("moloco"); ok || err != nil {
		t.Fatalf("expected expired record to be absent, got ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected expired file to be purged")
	}
}

func TestGetCorruptIsPurged(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	path := filepath.Join(dir, "pangle_token.json")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, ok, err := c.Get("pangle"); ok || err != nil {
		t.Fatalf("expected corrupt record to be absent, got ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected corrupt file to be purged")
	}
}

func TestGetMissingIsAbsentNotError(t *testing.T) {
	c := New(t.TempDir())
	if _, ok, err := c.Get("inmobi"); ok || err != nil {
		t.Fatalf("expected absent, no error for missing key, got ok=%v err=%v", ok, err)
	}
}

func TestGetPermissionErrorSurfacesAsIOError(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses permission bits, can't exercise this path")
	}
	dir := t.TempDir()
	c := New(dir)
	if err := c.Put("bidmachine", "tok", "bearer", time.Hour, nil); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "bidmachine_token.json")
	if err := os.Chmod(path, 0o000); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(path, 0o600)

	_, ok, err := c.Get("bidmachine")
	if ok {
		t.Fatal("expected ok=false on a permission error")
	}
	var ioErr *IOError
	if err == nil {
		t.Fatal("expected a non-nil IOError")
	} else if !errors.As(err, &ioErr) {
		t.Errorf("expected *IOError, got %T: %v", err, err)
	}
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	if err := c.Put("admob", "tok", "bearer", time.Hour, nil); err != nil {
		t.Fatal(err)
	}
	c.Delete("admob")
	if _, ok, err := c.Get("admob"); ok || err != nil {
		t.Fatalf("expected record to be gone after Delete, got ok=%v err=%v", ok, err)
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	if err := c.Put("unity", "a", "bearer", time.Hour, nil); err != nil {
		t.Fatal(err)
	}
	if err := c.Put("moloco", "b", "bearer", time.Hour, nil); err != nil {
		t.Fatal(err)
	}
	names, err := c.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %v", names)
	}
}

func TestListMissingDir(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "does-not-exist"))
	names, err := c.List()
	if err != nil {
		t.Fatalf("List on missing dir should not error: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected no names, got %v", names)
	}
}
