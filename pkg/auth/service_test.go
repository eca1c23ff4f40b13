package auth

import (
	"context"
	"encoding/hex"
	"path/filepath"
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/ProvenanceLabs/registrar/pkg/config"
	"github.com/ProvenanceLabs/registrar/pkg/errors"
	"github.com/ProvenanceLabs/registrar/pkg/logging"
	"github.com/ProvenanceLabs/registrar/pkg/storage"
)

func newTestAuth(t *testing.T, ttl time.Duration) *Service {
	t.Helper()
	cfg := config.DatabaseConfig{
		Driver:      "sqlite3",
		DSN:         filepath.Join(t.TempDir(), "ledger.db"),
		BusyTimeout: time.Second,
	}
	store, err := storage.Open(cfg, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(store, ttl, logging.NewNopLogger())
}

func TestChallengeRoundTrip(t *testing.T) {
	svc := newTestAuth(t, 5*time.Minute)
	ctx := context.Background()

	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	addr := ethcrypto.PubkeyToAddress(key.PublicKey)

	ch, err := svc.CreateChallenge(ctx, addr)
	if err != nil {
		t.Fatalf("create challenge: %v", err)
	}
	if ch.Nonce == "" || ch.ID == "" {
		t.Fatalf("incomplete challenge %+v", ch)
	}

	sig, err := SignPersonal(ch.Nonce, key)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.VerifyAndConsume(ctx, addr, ch.Nonce, sig); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestChallengeIsSingleUse(t *testing.T) {
	svc := newTestAuth(t, 5*time.Minute)
	ctx := context.Background()

	key, _ := ethcrypto.GenerateKey()
	addr := ethcrypto.PubkeyToAddress(key.PublicKey)

	ch, err := svc.CreateChallenge(ctx, addr)
	if err != nil {
		t.Fatal(err)
	}
	sig, err := SignPersonal(ch.Nonce, key)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.VerifyAndConsume(ctx, addr, ch.Nonce, sig); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	err = svc.VerifyAndConsume(ctx, addr, ch.Nonce, sig)
	if !errors.IsUnauthorized(err) {
		t.Fatalf("replay err = %v, want Unauthorized", err)
	}
}

func TestVerifyRejectsWrongSigner(t *testing.T) {
	svc := newTestAuth(t, 5*time.Minute)
	ctx := context.Background()

	key, _ := ethcrypto.GenerateKey()
	other, _ := ethcrypto.GenerateKey()
	addr := ethcrypto.PubkeyToAddress(key.PublicKey)

	ch, err := svc.CreateChallenge(ctx, addr)
	if err != nil {
		t.Fatal(err)
	}
	sig, err := SignPersonal(ch.Nonce, other)
	if err != nil {
		t.Fatal(err)
	}

	err = svc.VerifyAndConsume(ctx, addr, ch.Nonce, sig)
	if !errors.IsUnauthorized(err) {
		t.Fatalf("err = %v, want Unauthorized", err)
	}
}

func TestVerifyRejectsUnknownNonce(t *testing.T) {
	svc := newTestAuth(t, 5*time.Minute)
	key, _ := ethcrypto.GenerateKey()
	addr := ethcrypto.PubkeyToAddress(key.PublicKey)

	sig, err := SignPersonal("deadbeef", key)
	if err != nil {
		t.Fatal(err)
	}
	err = svc.VerifyAndConsume(context.Background(), addr, "deadbeef", sig)
	if !errors.IsUnauthorized(err) {
		t.Fatalf("err = %v, want Unauthorized", err)
	}
}

func TestVerifyRejectsExpiredChallenge(t *testing.T) {
	svc := newTestAuth(t, time.Minute)
	ctx := context.Background()

	key, _ := ethcrypto.GenerateKey()
	addr := ethcrypto.PubkeyToAddress(key.PublicKey)

	ch, err := svc.CreateChallenge(ctx, addr)
	if err != nil {
		t.Fatal(err)
	}
	sig, err := SignPersonal(ch.Nonce, key)
	if err != nil {
		t.Fatal(err)
	}

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	err = svc.VerifyAndConsume(ctx, addr, ch.Nonce, sig)
	if !errors.IsUnauthorized(err) {
		t.Fatalf("err = %v, want Unauthorized", err)
	}
}

func TestVerifyRejectsMalformedSignature(t *testing.T) {
	svc := newTestAuth(t, time.Minute)
	ctx := context.Background()

	key, _ := ethcrypto.GenerateKey()
	addr := ethcrypto.PubkeyToAddress(key.PublicKey)

	ch, err := svc.CreateChallenge(ctx, addr)
	if err != nil {
		t.Fatal(err)
	}

	for _, sig := range []string{"", "0x1234", "not-hex"} {
		err := svc.VerifyAndConsume(ctx, addr, ch.Nonce, sig)
		if !errors.IsUnauthorized(err) {
			t.Errorf("sig %q err = %v, want Unauthorized", sig, err)
		}
	}
}

func TestRecoverSignerLegacyAndRawRecoveryID(t *testing.T) {
	key, _ := ethcrypto.GenerateKey()
	addr := ethcrypto.PubkeyToAddress(key.PublicKey)

	// SignPersonal emits the legacy 27/28 form.
	sig, err := SignPersonal("hello", key)
	if err != nil {
		t.Fatal(err)
	}
	got, err := RecoverSigner("hello", sig)
	if err != nil {
		t.Fatal(err)
	}
	if got != addr {
		t.Errorf("recovered %s, want %s", got.Hex(), addr.Hex())
	}

	// The raw 0/1 form must work too.
	raw, err := ethcrypto.Sign(personalMessageHash("hello"), key)
	if err != nil {
		t.Fatal(err)
	}
	got, err = RecoverSigner("hello", "0x"+hex.EncodeToString(raw))
	if err != nil {
		t.Fatal(err)
	}
	if got != addr {
		t.Errorf("recovered %s, want %s", got.Hex(), addr.Hex())
	}
}

func TestPurgeExpired(t *testing.T) {
	svc := newTestAuth(t, time.Minute)
	ctx := context.Background()

	key, _ := ethcrypto.GenerateKey()
	addr := ethcrypto.PubkeyToAddress(key.PublicKey)

	if _, err := svc.CreateChallenge(ctx, addr); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateChallenge(ctx, addr); err != nil {
		t.Fatal(err)
	}

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	n, err := svc.PurgeExpired(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("purged %d, want 2", n)
	}
}
