package registrar

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/ProvenanceLabs/registrar/pkg/errors"
	"github.com/ProvenanceLabs/registrar/pkg/events"
	"github.com/ProvenanceLabs/registrar/pkg/logging"
	"github.com/ProvenanceLabs/registrar/pkg/storage"
)

// Service coordinates user registration and ledger appends. All writes run
// in a single database transaction so a failed operation leaves no partial
// state behind, and the entry counter only moves together with the entry
// it numbers.
type Service struct {
	store  *storage.Store
	events *events.Manager
	logger *logging.ColoredLogger

	// now is swapped out in tests for deterministic timestamps.
	now func() time.Time
}

// NewService creates a registrar service on top of an opened, migrated store.
func NewService(store *storage.Store, evts *events.Manager, logger *logging.ColoredLogger) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{
		store:  store,
		events: evts,
		logger: logger,
		now:    time.Now,
	}
}

// addrKey normalizes an address for storage and lookup.
func addrKey(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// RegisterUser registers a username for the given address. Each address
// registers exactly once; the first registration wins and later attempts
// fail without modifying anything. Usernames are not unique across
// addresses.
func (s *Service) RegisterUser(ctx context.Context, addr common.Address, username string) (*User, error) {
	tx, err := s.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewDatabaseError("begin register tx", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT username FROM users WHERE address = ?`, addrKey(addr)).Scan(&existing)
	switch {
	case err == nil:
		return nil, errors.NewAlreadyRegisteredError(addr.Hex())
	case err != sql.ErrNoRows:
		return nil, errors.NewDatabaseError("check registration", err)
	}

	if username == "" {
		return nil, errors.NewInvalidInputError("username", "username must not be empty", username)
	}

	registeredAt := s.now().UTC().Truncate(time.Second)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users(address, username, registered_at) VALUES (?, ?, ?)`,
		addrKey(addr), username, registeredAt.Unix()); err != nil {
		return nil, errors.NewDatabaseError("insert user", err)
	}

	evt, err := s.appendEvent(ctx, tx, events.TypeUserRegistered, events.UserRegisteredPayload{
		User:     addr.Hex(),
		Username: username,
	}, registeredAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewDatabaseError("commit register tx", err)
	}

	s.logger.ComponentInfo(logging.ComponentRegistrar, "user registered",
		zap.String("address", addr.Hex()),
		zap.String("username", username),
	)
	s.publish(evt)

	return &User{Address: addr, Username: username, RegisteredAt: registeredAt}, nil
}

// SubmitEntry appends a ledger entry for a registered submitter. The
// registration check runs before input validation, so an unregistered
// caller always sees NotRegistered regardless of payload. The assigned id
// is the post-increment entry count; ids are dense from 1 with no gaps.
func (s *Service) SubmitEntry(ctx context.Context, submitter common.Address, dataHash common.Hash, category, metadataURI string) (*Entry, error) {
	tx, err := s.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewDatabaseError("begin submit tx", err)
	}
	defer tx.Rollback()

	var username string
	err = tx.QueryRowContext(ctx,
		`SELECT username FROM users WHERE address = ?`, addrKey(submitter)).Scan(&username)
	switch {
	case err == sql.ErrNoRows:
		return nil, errors.NewNotRegisteredError(submitter.Hex())
	case err != nil:
		return nil, errors.NewDatabaseError("check registration", err)
	}

	if dataHash == (common.Hash{}) {
		return nil, errors.NewInvalidInputError("data_hash", "data hash must not be zero", dataHash.Hex())
	}
	if category == "" {
		return nil, errors.NewInvalidInputError("category", "category must not be empty", category)
	}

	var count int64
	if err := tx.QueryRowContext(ctx,
		`SELECT entry_count FROM ledger_state WHERE id = 1`).Scan(&count); err != nil {
		return nil, errors.NewDatabaseError("read entry count", err)
	}

	id := count + 1
	ts := s.now().UTC().Truncate(time.Second)

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO entries(id, data_hash, submitter, ts, category, metadata_uri)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, dataHash.Hex(), addrKey(submitter), ts.Unix(), category, metadataURI); err != nil {
		return nil, errors.NewDatabaseError("insert entry", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE ledger_state SET entry_count = ? WHERE id = 1`, id); err != nil {
		return nil, errors.NewDatabaseError("update entry count", err)
	}

	evt, err := s.appendEvent(ctx, tx, events.TypeEntrySubmitted, events.EntrySubmittedPayload{
		EntryID:     id,
		DataHash:    dataHash.Hex(),
		Submitter:   submitter.Hex(),
		Category:    category,
		Timestamp:   ts,
		MetadataURI: metadataURI,
	}, ts)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewDatabaseError("commit submit tx", err)
	}

	s.logger.ComponentInfo(logging.ComponentRegistrar, "entry submitted",
		zap.Int64("id", id),
		zap.String("submitter", submitter.Hex()),
		zap.String("category", category),
	)
	s.publish(evt)

	return &Entry{
		ID:          id,
		DataHash:    dataHash,
		Submitter:   submitter,
		Timestamp:   ts,
		Category:    category,
		MetadataURI: metadataURI,
	}, nil
}

// GetEntryCount returns the number of entries ever submitted.
func (s *Service) GetEntryCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.store.DB().QueryRowContext(ctx,
		`SELECT entry_count FROM ledger_state WHERE id = 1`).Scan(&count)
	if err != nil {
		return 0, errors.NewDatabaseError("read entry count", err)
	}
	return count, nil
}

// GetEntry returns the entry with the given id, or NotFound if the id is
// outside [1, count].
func (s *Service) GetEntry(ctx context.Context, id int64) (*Entry, error) {
	if id < 1 {
		return nil, errors.NewNotFoundError("entry", strconv.FormatInt(id, 10))
	}

	var (
		hashHex     string
		submitter   string
		ts          int64
		category    string
		metadataURI string
	)
	err := s.store.DB().QueryRowContext(ctx,
		`SELECT data_hash, submitter, ts, category, metadata_uri FROM entries WHERE id = ?`, id).
		Scan(&hashHex, &submitter, &ts, &category, &metadataURI)
	switch {
	case err == sql.ErrNoRows:
		return nil, errors.NewNotFoundError("entry", strconv.FormatInt(id, 10))
	case err != nil:
		return nil, errors.NewDatabaseError("read entry", err)
	}

	return &Entry{
		ID:          id,
		DataHash:    common.HexToHash(hashHex),
		Submitter:   common.HexToAddress(submitter),
		Timestamp:   time.Unix(ts, 0).UTC(),
		Category:    category,
		MetadataURI: metadataURI,
	}, nil
}

// VerifyEntry reports whether the stored hash of the entry matches the
// candidate hash. Unknown ids are an error, not a false result.
func (s *Service) VerifyEntry(ctx context.Context, id int64, candidate common.Hash) (bool, error) {
	entry, err := s.GetEntry(ctx, id)
	if err != nil {
		return false, err
	}
	return entry.DataHash == candidate, nil
}

// GetUser returns the registration record for an address.
func (s *Service) GetUser(ctx context.Context, addr common.Address) (*User, error) {
	var (
		username     string
		registeredAt int64
	)
	err := s.store.DB().QueryRowContext(ctx,
		`SELECT username, registered_at FROM users WHERE address = ?`, addrKey(addr)).
		Scan(&username, &registeredAt)
	switch {
	case err == sql.ErrNoRows:
		return nil, errors.NewNotFoundError("user", addr.Hex())
	case err != nil:
		return nil, errors.NewDatabaseError("read user", err)
	}

	return &User{
		Address:      addr,
		Username:     username,
		RegisteredAt: time.Unix(registeredAt, 0).UTC(),
	}, nil
}

// IsRegistered reports whether an address has a registration record.
func (s *Service) IsRegistered(ctx context.Context, addr common.Address) (bool, error) {
	_, err := s.GetUser(ctx, addr)
	if err != nil {
		if errors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// maxEventPage bounds a single ListEvents response.
const maxEventPage = 1000

// ListEvents returns up to limit persisted events with seq greater than
// afterSeq, in ascending seq order. A non-positive limit selects a default
// page of 100.
func (s *Service) ListEvents(ctx context.Context, afterSeq int64, limit int) ([]events.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxEventPage {
		limit = maxEventPage
	}

	rows, err := s.store.DB().QueryContext(ctx,
		`SELECT seq, type, payload, created_at FROM events WHERE seq > ? ORDER BY seq ASC LIMIT ?`,
		afterSeq, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("list events", err)
	}
	defer rows.Close()

	out := make([]events.Event, 0, limit)
	for rows.Next() {
		var (
			evt       events.Event
			payload   string
			createdAt int64
		)
		if err := rows.Scan(&evt.Seq, &evt.Type, &payload, &createdAt); err != nil {
			return nil, errors.NewDatabaseError("scan event", err)
		}
		evt.Payload = json.RawMessage(payload)
		evt.Timestamp = time.Unix(createdAt, 0).UTC()
		out = append(out, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("list events", err)
	}
	return out, nil
}

// Stats returns a snapshot of ledger counters.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}

	if err := s.store.DB().QueryRowContext(ctx,
		`SELECT entry_count FROM ledger_state WHERE id = 1`).Scan(&st.EntryCount); err != nil {
		return nil, errors.NewDatabaseError("read entry count", err)
	}
	if err := s.store.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users`).Scan(&st.UserCount); err != nil {
		return nil, errors.NewDatabaseError("count users", err)
	}
	if err := s.store.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events`).Scan(&st.EventCount); err != nil {
		return nil, errors.NewDatabaseError("count events", err)
	}
	return st, nil
}

// appendEvent writes an event row inside the caller's transaction and
// returns the fully formed event for fanout after commit.
func (s *Service) appendEvent(ctx context.Context, tx *sql.Tx, eventType string, payload interface{}, ts time.Time) (events.Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return events.Event{}, errors.NewInternalError("encode event payload", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO events(type, payload, created_at) VALUES (?, ?, ?)`,
		eventType, string(raw), ts.Unix())
	if err != nil {
		return events.Event{}, errors.NewDatabaseError("insert event", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return events.Event{}, errors.NewDatabaseError("event seq", err)
	}

	return events.Event{
		Seq:       seq,
		Type:      eventType,
		Payload:   raw,
		Timestamp: ts,
	}, nil
}

// publish fans a committed event out to live subscribers.
func (s *Service) publish(evt events.Event) {
	if s.events != nil {
		s.events.Publish(evt)
	}
}
