package gateway

import (
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/ProvenanceLabs/registrar/pkg/errors"
	"github.com/ProvenanceLabs/registrar/pkg/httputil"
)

// challengeRequest asks for a signature challenge for an address.
type challengeRequest struct {
	Address string `json:"address"`
}

func (g *Gateway) challengeHandler(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteErr(w, errors.NewInvalidInputError("body", "malformed JSON body", nil))
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	ch, err := g.auth.CreateChallenge(r.Context(), addr)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ch)
}

// registerRequest registers a username for an address. Nonce and signature
// come from a prior challenge.
type registerRequest struct {
	Address   string `json:"address"`
	Username  string `json:"username"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

func (g *Gateway) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteErr(w, errors.NewInvalidInputError("body", "malformed JSON body", nil))
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	if err := g.auth.VerifyAndConsume(r.Context(), addr, req.Nonce, req.Signature); err != nil {
		httputil.WriteErr(w, err)
		return
	}

	user, err := g.registrar.RegisterUser(r.Context(), addr, req.Username)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

// submitEntryRequest appends a ledger entry.
type submitEntryRequest struct {
	Address     string `json:"address"`
	DataHash    string `json:"data_hash"`
	Category    string `json:"category"`
	MetadataURI string `json:"metadata_uri"`
	Nonce       string `json:"nonce"`
	Signature   string `json:"signature"`
}

func (g *Gateway) submitEntryHandler(w http.ResponseWriter, r *http.Request) {
	var req submitEntryRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteErr(w, errors.NewInvalidInputError("body", "malformed JSON body", nil))
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}
	hash, err := parseHash(req.DataHash)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	if err := g.auth.VerifyAndConsume(r.Context(), addr, req.Nonce, req.Signature); err != nil {
		httputil.WriteErr(w, err)
		return
	}

	entry, err := g.registrar.SubmitEntry(r.Context(), addr, hash, req.Category, req.MetadataURI)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entry)
}

func (g *Gateway) entryCountHandler(w http.ResponseWriter, r *http.Request) {
	count, err := g.registrar.GetEntryCount(r.Context())
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (g *Gateway) getEntryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseEntryID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	entry, err := g.registrar.GetEntry(r.Context(), id)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

func (g *Gateway) verifyEntryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseEntryID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}
	hash, err := parseHash(httputil.QueryParam(r, "hash", ""))
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	match, err := g.registrar.VerifyEntry(r.Context(), id, hash)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "match": match})
}

func (g *Gateway) getUserHandler(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	user, err := g.registrar.GetUser(r.Context(), addr)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (g *Gateway) listEventsHandler(w http.ResponseWriter, r *http.Request) {
	after := httputil.QueryParamInt64(r, "after", 0)
	limit := httputil.QueryParamInt(r, "limit", 100)

	list, err := g.registrar.ListEvents(r.Context(), after, limit)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"events": list,
		"count":  len(list),
	})
}

// parseAddress validates a 0x-prefixed hex address.
func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.NewInvalidInputError("address", "must be a 0x-prefixed 20-byte hex address", s)
	}
	return common.HexToAddress(s), nil
}

// parseHash validates a 0x-prefixed 32-byte hex hash.
func parseHash(s string) (common.Hash, error) {
	hexPart := strings.TrimPrefix(s, "0x")
	if len(hexPart) != 64 {
		return common.Hash{}, errors.NewInvalidInputError("data_hash", "must be a 0x-prefixed 32-byte hex hash", s)
	}
	if _, err := hex.DecodeString(hexPart); err != nil {
		return common.Hash{}, errors.NewInvalidInputError("data_hash", "must be a 0x-prefixed 32-byte hex hash", s)
	}
	return common.HexToHash(s), nil
}

// parseEntryID parses the id path segment. Non-numeric ids are invalid
// input, not a miss.
func parseEntryID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.NewInvalidInputError("id", "entry id must be an integer", s)
	}
	return id, nil
}
