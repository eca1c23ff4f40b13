package registrar

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ProvenanceLabs/registrar/pkg/config"
	"github.com/ProvenanceLabs/registrar/pkg/errors"
	"github.com/ProvenanceLabs/registrar/pkg/events"
	"github.com/ProvenanceLabs/registrar/pkg/logging"
	"github.com/ProvenanceLabs/registrar/pkg/storage"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000AA")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000BB")
	hashA = common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	hashB = common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222")
)

func newTestService(t *testing.T) *Service {
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
	return NewService(store, events.NewManager(logging.NewNopLogger()), logging.NewNopLogger())
}

func TestRegisterUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.RegisterUser(ctx, alice, "alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Username != "alice" || u.Address != alice {
		t.Errorf("unexpected user %+v", u)
	}

	got, err := svc.GetUser(ctx, alice)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("username = %q, want alice", got.Username)
	}
	if got.RegisteredAt.IsZero() {
		t.Error("registered_at not set")
	}
}

func TestRegisterUserTwiceKeepsFirstUsername(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, alice, "alice"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.RegisterUser(ctx, alice, "someone-else")
	if !errors.IsAlreadyRegistered(err) {
		t.Fatalf("second register err = %v, want AlreadyRegistered", err)
	}

	got, err := svc.GetUser(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if got.Username != "alice" {
		t.Errorf("username = %q, want the original alice", got.Username)
	}
}

func TestRegisterUserEmptyUsername(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.RegisterUser(context.Background(), alice, "")
	if !errors.IsInvalidInput(err) {
		t.Fatalf("err = %v, want InvalidInput", err)
	}
	// A failed registration leaves the address free to register.
	if _, err := svc.RegisterUser(context.Background(), alice, "alice"); err != nil {
		t.Fatalf("register after failed attempt: %v", err)
	}
}

func TestRegisterUserDuplicateUsernameAcrossAddresses(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, alice, "shared"); err != nil {
		t.Fatal(err)
	}
	// Usernames are not unique; a different address may reuse one.
	if _, err := svc.RegisterUser(ctx, bob, "shared"); err != nil {
		t.Fatalf("second address with same username: %v", err)
	}
}

func TestSubmitEntryAssignsDenseIDs(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, alice, "alice"); err != nil {
		t.Fatal(err)
	}

	const n = 5
	for i := 1; i <= n; i++ {
		e, err := svc.SubmitEntry(ctx, alice, hashA, "report", "")
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if e.ID != int64(i) {
			t.Errorf("submit %d assigned id %d", i, e.ID)
		}
	}

	count, err := svc.GetEntryCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != n {
		t.Errorf("count = %d, want %d", count, n)
	}

	// Every id in [1, n] reads back.
	for i := int64(1); i <= n; i++ {
		if _, err := svc.GetEntry(ctx, i); err != nil {
			t.Errorf("GetEntry(%d): %v", i, err)
		}
	}
}

func TestSubmitEntryRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, alice, "alice"); err != nil {
		t.Fatal(err)
	}

	before := time.Now().UTC().Add(-2 * time.Second)
	e, err := svc.SubmitEntry(ctx, alice, hashA, "audit", "ipfs://QmExample")
	if err != nil {
		t.Fatal(err)
	}
	after := time.Now().UTC().Add(2 * time.Second)

	got, err := svc.GetEntry(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.DataHash != hashA {
		t.Errorf("hash = %s, want %s", got.DataHash.Hex(), hashA.Hex())
	}
	if got.Submitter != alice {
		t.Errorf("submitter = %s, want %s", got.Submitter.Hex(), alice.Hex())
	}
	if got.Category != "audit" {
		t.Errorf("category = %q", got.Category)
	}
	if got.MetadataURI != "ipfs://QmExample" {
		t.Errorf("metadata_uri = %q", got.MetadataURI)
	}
	if got.Timestamp.Before(before) || got.Timestamp.After(after) {
		t.Errorf("timestamp %v outside [%v, %v]", got.Timestamp, before, after)
	}
}

func TestSubmitEntryUnregistered(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitEntry(ctx, bob, hashA, "report", "")
	if !errors.IsNotRegistered(err) {
		t.Fatalf("err = %v, want NotRegistered", err)
	}

	count, err := svc.GetEntryCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("count = %d after rejected submit, want 0", count)
	}
}

func TestSubmitEntryUnregisteredBeforeInputChecks(t *testing.T) {
	svc := newTestService(t)
	// Zero hash AND unregistered caller: registration is checked first.
	_, err := svc.SubmitEntry(context.Background(), bob, common.Hash{}, "", "")
	if !errors.IsNotRegistered(err) {
		t.Fatalf("err = %v, want NotRegistered", err)
	}
}

func TestSubmitEntryInvalidInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, alice, "alice"); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name     string
		hash     common.Hash
		category string
	}{
		{"zero hash", common.Hash{}, "report"},
		{"empty category", hashA, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SubmitEntry(ctx, alice, tc.hash, tc.category, "")
			if !errors.IsInvalidInput(err) {
				t.Fatalf("err = %v, want InvalidInput", err)
			}
		})
	}

	count, err := svc.GetEntryCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("count = %d after rejected submits, want 0", count)
	}
}

func TestGetEntryNotFound(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, alice, "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SubmitEntry(ctx, alice, hashA, "report", ""); err != nil {
		t.Fatal(err)
	}

	for _, id := range []int64{0, -1, 2, 99} {
		_, err := svc.GetEntry(ctx, id)
		if !errors.IsNotFound(err) {
			t.Errorf("GetEntry(%d) err = %v, want NotFound", id, err)
		}
	}
}

func TestVerifyEntry(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, alice, "alice"); err != nil {
		t.Fatal(err)
	}
	e, err := svc.SubmitEntry(ctx, alice, hashA, "report", "")
	if err != nil {
		t.Fatal(err)
	}

	ok, err := svc.VerifyEntry(ctx, e.ID, hashA)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("matching hash verified false")
	}

	ok, err = svc.VerifyEntry(ctx, e.ID, hashB)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("mismatched hash verified true")
	}

	if _, err := svc.VerifyEntry(ctx, 42, hashA); !errors.IsNotFound(err) {
		t.Errorf("verify of missing id err = %v, want NotFound", err)
	}
}

func TestGetUserNotFound(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.GetUser(context.Background(), bob); !errors.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestIsRegistered(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ok, err := svc.IsRegistered(ctx, alice)
	if err != nil || ok {
		t.Fatalf("IsRegistered before = (%v, %v), want (false, nil)", ok, err)
	}
	if _, err := svc.RegisterUser(ctx, alice, "alice"); err != nil {
		t.Fatal(err)
	}
	ok, err = svc.IsRegistered(ctx, alice)
	if err != nil || !ok {
		t.Fatalf("IsRegistered after = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestEventsPersistedAndPublished(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sub := svc.events.Subscribe()

	if _, err := svc.RegisterUser(ctx, alice, "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SubmitEntry(ctx, alice, hashA, "report", ""); err != nil {
		t.Fatal(err)
	}

	list, err := svc.ListEvents(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("persisted events = %d, want 2", len(list))
	}
	if list[0].Type != events.TypeUserRegistered || list[1].Type != events.TypeEntrySubmitted {
		t.Errorf("event types = %s, %s", list[0].Type, list[1].Type)
	}
	if list[0].Seq >= list[1].Seq {
		t.Errorf("seqs not increasing: %d, %d", list[0].Seq, list[1].Seq)
	}

	var reg events.UserRegisteredPayload
	if err := json.Unmarshal(list[0].Payload, &reg); err != nil {
		t.Fatal(err)
	}
	if reg.User != alice.Hex() || reg.Username != "alice" {
		t.Errorf("payload = %+v", reg)
	}

	var sub1 events.EntrySubmittedPayload
	if err := json.Unmarshal(list[1].Payload, &sub1); err != nil {
		t.Fatal(err)
	}
	if sub1.EntryID != 1 || sub1.DataHash != hashA.Hex() {
		t.Errorf("payload = %+v", sub1)
	}

	// Live fanout saw both events too.
	for i := 0; i < 2; i++ {
		select {
		case <-sub.C:
		case <-time.After(time.Second):
			t.Fatalf("missing live event %d", i)
		}
	}

	// Pagination: after the first seq only the second event remains.
	tail, err := svc.ListEvents(ctx, list[0].Seq, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(tail) != 1 || tail[0].Seq != list[1].Seq {
		t.Errorf("tail = %+v", tail)
	}
}

func TestStats(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, alice, "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SubmitEntry(ctx, alice, hashA, "report", ""); err != nil {
		t.Fatal(err)
	}

	st, err := svc.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.EntryCount != 1 || st.UserCount != 1 || st.EventCount != 2 {
		t.Errorf("stats = %+v", st)
	}
}
