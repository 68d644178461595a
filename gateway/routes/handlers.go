package routes

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"tipchain/crypto"
	"tipchain/eventlog"
	"tipchain/gateway/middleware"
	"tipchain/native/tipping"
)

const maxBodyBytes = 64 << 10

func decodeBody(r *http.Request, out interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return badRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

func parseAmount(field, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, badRequest(field + " required")
	}
	v, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, badRequest(field + " must be a base-10 integer")
	}
	return v, nil
}

func parseAddress(field, value string) ([20]byte, error) {
	raw, err := crypto.ParseAccount(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, badRequest(fmt.Sprintf("%s: %v", field, err))
	}
	return raw, nil
}

func queryLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, badRequest("limit must be a non-negative integer")
	}
	return limit, nil
}

func (a *api) caller(w http.ResponseWriter, r *http.Request) ([20]byte, bool) {
	caller, ok := middleware.CallerFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "caller not authenticated")
		return [20]byte{}, false
	}
	return caller, true
}

func (a *api) getPlatform(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.ledger.Platform(r.Context())
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPlatformView(cfg))
}

func (a *api) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.ledger.Stats(r.Context())
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatsView(stats))
}

func (a *api) listCreators(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	creators, err := a.ledger.Creators(r.Context(), limit)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	out := make([]creatorView, 0, len(creators))
	for _, c := range creators {
		out = append(out, newCreatorView(c))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"creators": out})
}

func (a *api) getCreator(w http.ResponseWriter, r *http.Request) {
	creator, err := a.ledger.Creator(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCreatorView(creator))
}

func (a *api) getAgent(w http.ResponseWriter, r *http.Request) {
	owner, err := parseAddress("address", chi.URLParam(r, "address"))
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	agent, err := a.ledger.Agent(r.Context(), owner)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAgentView(agent))
}

func (a *api) getBalance(w http.ResponseWriter, r *http.Request) {
	account, err := parseAddress("address", chi.URLParam(r, "address"))
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	balance, err := a.ledger.Balance(r.Context(), account)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"address": addr(account), "balance": amount(balance)})
}

func (a *api) listEvents(w http.ResponseWriter, r *http.Request) {
	if a.events == nil {
		writeJSONError(w, http.StatusNotImplemented, "event log not configured")
		return
	}
	q := r.URL.Query()
	filter := eventlog.Filter{Type: strings.TrimSpace(q.Get("type"))}
	if v := strings.TrimSpace(q.Get("tipper")); v != "" {
		raw, err := parseAddress("tipper", v)
		if err != nil {
			a.writeErr(w, r, err)
			return
		}
		filter.Tipper = addr(raw)
	}
	if v := strings.TrimSpace(q.Get("recipient")); v != "" {
		raw, err := parseAddress("recipient", v)
		if err != nil {
			a.writeErr(w, r, err)
			return
		}
		filter.Recipient = addr(raw)
	}
	if v := strings.TrimSpace(q.Get("after")); v != "" {
		after, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			a.writeErr(w, r, badRequest("after must be a sequence number"))
			return
		}
		filter.After = after
	}
	limit, err := queryLimit(r)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	filter.Limit = limit
	records, err := a.events.Query(r.Context(), filter)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	if records == nil {
		records = []eventlog.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": records})
}

func (a *api) topCreators(w http.ResponseWriter, r *http.Request) {
	if a.leaderboard == nil {
		writeJSONError(w, http.StatusNotImplemented, "indexer not configured")
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	rows, err := a.leaderboard.TopCreators(r.Context(), limit)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"creators": rows})
}

func (a *api) topTippers(w http.ResponseWriter, r *http.Request) {
	if a.leaderboard == nil {
		writeJSONError(w, http.StatusNotImplemented, "indexer not configured")
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	rows, err := a.leaderboard.TopTippers(r.Context(), limit)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tippers": rows})
}

func (a *api) creatorTips(w http.ResponseWriter, r *http.Request) {
	if a.leaderboard == nil {
		writeJSONError(w, http.StatusNotImplemented, "indexer not configured")
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	tips, err := a.leaderboard.TipsByCreator(r.Context(), chi.URLParam(r, "handle"), limit)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tips": tips})
}

type registerCreatorRequest struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	AvatarURI   string `json:"avatarUri"`
}

func (a *api) registerCreator(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req registerCreatorRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	creator, err := a.ledger.RegisterCreator(r.Context(), caller, req.Handle, req.DisplayName, req.AvatarURI)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCreatorView(creator))
}

type updateCreatorRequest struct {
	DisplayName *string `json:"displayName"`
	AvatarURI   *string `json:"avatarUri"`
}

func (a *api) updateCreator(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req updateCreatorRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	creator, err := a.ledger.UpdateCreator(r.Context(), caller, chi.URLParam(r, "handle"), req.DisplayName, req.AvatarURI)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCreatorView(creator))
}

type registerAgentRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (a *api) registerAgent(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req registerAgentRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	agent, err := a.ledger.RegisterAgent(r.Context(), caller, req.Name, req.Type)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAgentView(agent))
}

type tipRequest struct {
	Handle       string `json:"handle"`
	Amount       string `json:"amount"`
	Message      string `json:"message"`
	PaymentProof string `json:"paymentProof"`
	// Agent attributes the tip to the agent registered under this address.
	Agent string `json:"agent"`
}

func (a *api) sendTip(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req tipRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	gross, err := parseAmount("amount", req.Amount)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	var origin tipping.TipOrigin = tipping.Direct{Tipper: caller}
	if strings.TrimSpace(req.Agent) != "" {
		agent, err := parseAddress("agent", req.Agent)
		if err != nil {
			a.writeErr(w, r, err)
			return
		}
		origin = tipping.ViaAgent{Tipper: caller, Agent: agent}
	}
	receipt, err := a.ledger.Tip(r.Context(), tipping.TipRequest{
		Origin:       origin,
		Handle:       req.Handle,
		Amount:       gross,
		Message:      req.Message,
		PaymentProof: req.PaymentProof,
	})
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newReceiptView(receipt))
}

func (a *api) setPaused(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Paused *bool `json:"paused"`
	}
	if err := decodeBody(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	if req.Paused == nil {
		a.writeErr(w, r, badRequest("paused required"))
		return
	}
	cfg, err := a.ledger.SetPaused(r.Context(), caller, *req.Paused)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPlatformView(cfg))
}

func (a *api) updateFee(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		PlatformFeeBps *int64 `json:"platformFeeBps"`
	}
	if err := decodeBody(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	if req.PlatformFeeBps == nil || *req.PlatformFeeBps < 0 || *req.PlatformFeeBps > math.MaxUint16 {
		a.writeErr(w, r, badRequest("platformFeeBps must be between 0 and 65535"))
		return
	}
	cfg, err := a.ledger.UpdatePlatformFee(r.Context(), caller, uint16(*req.PlatformFeeBps))
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPlatformView(cfg))
}

func (a *api) updateMinTip(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		MinTipAmount string `json:"minTipAmount"`
	}
	if err := decodeBody(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	minTip, err := parseAmount("minTipAmount", req.MinTipAmount)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	cfg, err := a.ledger.UpdateMinTip(r.Context(), caller, minTip)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPlatformView(cfg))
}

func (a *api) faucetDrip(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	if err := a.ledger.Mint(r.Context(), caller, new(big.Int).Set(a.faucet)); err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.logger.Info("dev faucet drip", "amount", a.faucet.String())
	balance, err := a.ledger.Balance(r.Context(), caller)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"address": addr(caller), "balance": amount(balance)})
}
