// Package auth proves control of an address before a write is accepted.
// A caller requests a single-use challenge nonce, signs it as an Ethereum
// personal message, and presents the signature alongside the write.
package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ProvenanceLabs/registrar/pkg/errors"
	"github.com/ProvenanceLabs/registrar/pkg/logging"
	"github.com/ProvenanceLabs/registrar/pkg/storage"
)

// Challenge is a pending proof-of-address request. The caller signs Nonce
// with the key behind Address and returns the signature before ExpiresAt.
type Challenge struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service issues and verifies signature challenges backed by the store.
type Service struct {
	store  *storage.Store
	logger *logging.ColoredLogger
	ttl    time.Duration

	now func() time.Time
}

// NewService creates an auth service. ttl bounds how long an issued
// challenge stays valid.
func NewService(store *storage.Store, ttl time.Duration, logger *logging.ColoredLogger) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		store:  store,
		logger: logger,
		ttl:    ttl,
		now:    time.Now,
	}
}

// CreateChallenge issues a fresh nonce for the address. Multiple
// outstanding challenges per address are allowed; each is single use.
func (s *Service) CreateChallenge(ctx context.Context, addr common.Address) (*Challenge, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, errors.NewInternalError("generate nonce", err)
	}

	ch := &Challenge{
		ID:        uuid.NewString(),
		Address:   strings.ToLower(addr.Hex()),
		Nonce:     hex.EncodeToString(raw),
		ExpiresAt: s.now().UTC().Add(s.ttl).Truncate(time.Second),
	}

	if _, err := s.store.DB().ExecContext(ctx,
		`INSERT INTO auth_nonces(id, address, nonce, expires_at) VALUES (?, ?, ?, ?)`,
		ch.ID, ch.Address, ch.Nonce, ch.ExpiresAt.Unix()); err != nil {
		return nil, errors.NewDatabaseError("store challenge", err)
	}

	s.logger.ComponentDebug(logging.ComponentAuth, "challenge issued",
		zap.String("address", ch.Address),
		zap.String("id", ch.ID),
	)
	return ch, nil
}

// VerifyAndConsume checks that signature is a valid personal-message
// signature of nonce by the key behind addr, and that the nonce was issued
// to addr and has not expired or been used. A verified nonce is deleted so
// it cannot be replayed.
func (s *Service) VerifyAndConsume(ctx context.Context, addr common.Address, nonce, signature string) error {
	key := strings.ToLower(addr.Hex())

	var (
		id        string
		expiresAt int64
	)
	err := s.store.DB().QueryRowContext(ctx,
		`SELECT id, expires_at FROM auth_nonces WHERE address = ? AND nonce = ?`,
		key, nonce).Scan(&id, &expiresAt)
	switch {
	case err == sql.ErrNoRows:
		return errors.NewUnauthorizedError("unknown or already used challenge")
	case err != nil:
		return errors.NewDatabaseError("load challenge", err)
	}

	if s.now().UTC().Unix() > expiresAt {
		// Expired rows are dead weight; drop on sight.
		s.deleteNonce(ctx, id)
		return errors.NewUnauthorizedError("challenge expired")
	}

	recovered, err := RecoverSigner(nonce, signature)
	if err != nil {
		return errors.NewUnauthorizedError(fmt.Sprintf("invalid signature: %v", err))
	}
	if recovered != addr {
		return errors.NewUnauthorizedError("signature does not match address")
	}

	s.deleteNonce(ctx, id)
	s.logger.ComponentDebug(logging.ComponentAuth, "challenge verified",
		zap.String("address", key),
	)
	return nil
}

func (s *Service) deleteNonce(ctx context.Context, id string) {
	if _, err := s.store.DB().ExecContext(ctx,
		`DELETE FROM auth_nonces WHERE id = ?`, id); err != nil {
		s.logger.ComponentWarn(logging.ComponentAuth, "failed to delete nonce",
			zap.String("id", id), zap.Error(err))
	}
}

// PurgeExpired deletes challenges past their expiry. Returns the number of
// rows removed.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.store.DB().ExecContext(ctx,
		`DELETE FROM auth_nonces WHERE expires_at < ?`, s.now().UTC().Unix())
	if err != nil {
		return 0, errors.NewDatabaseError("purge expired challenges", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// RecoverSigner recovers the address that produced an Ethereum
// personal-message signature over message. The signature is hex encoded,
// 65 bytes, with the recovery id either raw (0/1) or legacy (27/28).
func RecoverSigner(message, signature string) (common.Address, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	if sig[64] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[64] -= 27
	}

	hash := personalMessageHash(message)
	pub, err := ethcrypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// SignPersonal signs message in the personal-message format and returns a
// hex signature with a legacy (27/28) recovery id, matching what wallets
// produce.
func SignPersonal(message string, key *ecdsa.PrivateKey) (string, error) {
	hash := personalMessageHash(message)
	sig, err := ethcrypto.Sign(hash, key)
	if err != nil {
		return "", err
	}
	sig[64] += 27
	return "0x" + hex.EncodeToString(sig), nil
}

// personalMessageHash computes the EIP-191 personal message digest.
func personalMessageHash(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return ethcrypto.Keccak256([]byte(prefixed))
}
