package client

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/ProvenanceLabs/registrar/pkg/auth"
)

// Signer holds the private key used to answer signature challenges.
type Signer struct {
	key *ecdsa.PrivateKey
}

// NewSigner wraps an existing key.
func NewSigner(key *ecdsa.PrivateKey) *Signer {
	return &Signer{key: key}
}

// NewSignerFromHex parses a hex-encoded private key.
func NewSignerFromHex(hexKey string) (*Signer, error) {
	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Signer{key: key}, nil
}

// GenerateSigner creates a signer with a fresh random key.
func GenerateSigner() (*Signer, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &Signer{key: key}, nil
}

// Address returns the address derived from the key.
func (s *Signer) Address() common.Address {
	return ethcrypto.PubkeyToAddress(s.key.PublicKey)
}

// Sign produces a personal-message signature over message.
func (s *Signer) Sign(message string) (string, error) {
	return auth.SignPersonal(message, s.key)
}
