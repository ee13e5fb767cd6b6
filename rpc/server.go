// Package rpc exposes the node over HTTP: POST endpoints submit
// transactions, GET endpoints read committed state. Amounts travel as
// decimal strings, addresses as bech32, assets as "native:denom" or
// "token:symbol" references.
package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"farmchain/core"
	"farmchain/crypto"
	"farmchain/native/amm"
	"farmchain/native/assets"
	"farmchain/native/common"
	"farmchain/native/escrow"
	"farmchain/native/farm"
	"farmchain/native/game"
	"farmchain/native/token"
	"farmchain/native/vault"
)

const requestLimit = 1 << 20 // 1 MiB

type Server struct {
	node *core.Node
	log  *slog.Logger
}

func NewServer(node *core.Node, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{node: node, log: log}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/vault", s.getVault)
		r.Get("/vault/positions/{id}", s.getBorrowPosition)
		r.Post("/vault/deposit", s.deposit)
		r.Post("/vault/withdraw", s.withdraw)
		r.Post("/vault/borrow", s.borrow)
		r.Post("/vault/repay", s.repay)
		r.Post("/vault/accrue", s.accrue)
		r.Post("/vault/whitelist", s.addToWhitelist)

		r.Get("/farm", s.getFarm)
		r.Get("/farm/positions/{id}", s.getFarmPosition)
		r.Post("/farm/open", s.openPosition)
		r.Post("/farm/close", s.closePosition)

		r.Get("/amm/pair", s.getPair)
		r.Post("/amm/provide", s.provideLiquidity)
		r.Post("/amm/swap", s.swap)

		r.Post("/escrow/requests", s.createPaymentRequest)
		r.Get("/escrow/requests/{id}", s.getPaymentRequest)
		r.Post("/escrow/requests/{id}/pay", s.payPaymentRequest)
		r.Post("/escrow/requests/{id}/settle", s.settlePaymentRequest)

		r.Post("/game/start", s.startGame)
		r.Post("/game/move", s.opponentMove)
		r.Get("/game/hosts/{host}", s.listGames)

		r.Post("/token/allowance", s.increaseAllowance)

		r.Get("/balances/{address}", s.getBalance)

		r.Post("/admin/pause", s.setModulePaused)
	})
	return r
}

// --- Vault handlers ---

func (s *Server) getVault(w http.ResponseWriter, _ *http.Request) {
	v, balance, err := s.node.VaultStatus()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if v == nil {
		s.writeError(w, errNotFound)
		return
	}
	writeJSON(w, http.StatusOK, vaultResponse(v, balance))
}

func (s *Server) getBorrowPosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	position, err := s.node.BorrowPosition(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":         strconv.FormatUint(position.ID, 10),
		"borrower":   position.Borrower.String(),
		"debt_share": position.DebtShare.String(),
	})
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Depositor string `json:"depositor"`
		Amount    string `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	depositor, amount, err := addressAndAmount(req.Depositor, req.Amount)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	shares, err := s.node.Deposit(depositor, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"shares": shares.String()})
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Withdrawer string `json:"withdrawer"`
		Shares     string `json:"shares"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	withdrawer, shares, err := addressAndAmount(req.Withdrawer, req.Shares)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	amount, err := s.node.Withdraw(withdrawer, shares)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"amount": amount.String()})
}

func (s *Server) borrow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Borrower string `json:"borrower"`
		Amount   string `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	borrower, amount, err := addressAndAmount(req.Borrower, req.Amount)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	id, err := s.node.Borrow(borrower, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"position_id": strconv.FormatUint(id, 10)})
}

func (s *Server) repay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Payer      string `json:"payer"`
		PositionID uint64 `json:"position_id"`
		Amount     string `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	payer, amount, err := addressAndAmount(req.Payer, req.Amount)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	if err := s.node.Repay(payer, req.PositionID, amount); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "repaid"})
}

func (s *Server) accrue(w http.ResponseWriter, _ *http.Request) {
	if err := s.node.Accrue(); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accrued"})
}

func (s *Server) addToWhitelist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller   string `json:"caller"`
		Borrower string `json:"borrower"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	borrower, err := crypto.DecodeAddress(req.Borrower)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	if err := s.node.AddToWhitelist(caller, borrower); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Farm handlers ---

func (s *Server) getFarm(w http.ResponseWriter, _ *http.Request) {
	f, err := s.node.FarmInfo()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if f == nil {
		s.writeError(w, errNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"base_asset":             assetRef(f.BaseAsset),
		"other_asset":            assetRef(f.OtherAsset),
		"lp_token":               f.LPToken,
		"total_liquidity_shares": f.TotalLiquidityShares.String(),
	})
}

func (s *Server) getFarmPosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	position, err := s.node.FarmPosition(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":              strconv.FormatUint(position.ID, 10),
		"owner":           position.Owner.String(),
		"liquidity_share": position.LiquidityShare.String(),
	})
}

func (s *Server) openPosition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner  string `json:"owner"`
		Amount string `json:"deposit_amount"`
		Borrow string `json:"borrow_amount"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	owner, deposit, err := addressAndAmount(req.Owner, req.Amount)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	borrow, err := parseAmount(req.Borrow)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	workflowID, err := s.node.OpenPosition(owner, deposit, borrow)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"workflow_id": workflowID})
}

func (s *Server) closePosition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller     string `json:"caller"`
		PositionID uint64 `json:"position_id"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	if err := s.node.ClosePosition(caller, req.PositionID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// --- Venue handlers ---

func (s *Server) getPair(w http.ResponseWriter, r *http.Request) {
	a, err := parseAssetRef(r.URL.Query().Get("a"))
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	b, err := parseAssetRef(r.URL.Query().Get("b"))
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	pair, err := s.node.Pair(a, b)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":       pair.ID,
		"asset_a":  assetRef(pair.AssetA),
		"asset_b":  assetRef(pair.AssetB),
		"lp_token": pair.LPToken,
		"address":  pair.Address.String(),
	})
}

func (s *Server) provideLiquidity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
		AssetA   string `json:"asset_a"`
		AmountA  string `json:"amount_a"`
		AssetB   string `json:"asset_b"`
		AmountB  string `json:"amount_b"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	provider, err := crypto.DecodeAddress(req.Provider)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	legA, err := parseAssetAmount(req.AssetA, req.AmountA)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	legB, err := parseAssetAmount(req.AssetB, req.AmountB)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	share, err := s.node.ProvideLiquidity(provider, legA, legB)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"share": share.String()})
}

func (s *Server) swap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Trader string `json:"trader"`
		Offer  string `json:"offer_asset"`
		Amount string `json:"offer_amount"`
		Ask    string `json:"ask_asset"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	trader, err := crypto.DecodeAddress(req.Trader)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	offer, err := parseAssetAmount(req.Offer, req.Amount)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	ask, err := parseAssetRef(req.Ask)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	out, err := s.node.Swap(trader, offer, ask)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"return_amount": out.String()})
}

// --- Escrow handlers ---

func (s *Server) createPaymentRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Merchant string `json:"merchant"`
		Asset    string `json:"asset"`
		Amount   string `json:"amount"`
		OrderID  string `json:"order_id"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	merchant, amount, err := addressAndAmount(req.Merchant, req.Amount)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	asset, err := parseAssetRef(req.Asset)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	id, err := s.node.CreatePaymentRequest(merchant, asset, amount, req.OrderID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": strconv.FormatUint(id, 10)})
}

func (s *Server) getPaymentRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	request, err := s.node.PaymentRequest(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := map[string]string{
		"id":       strconv.FormatUint(request.ID, 10),
		"merchant": request.Merchant.String(),
		"asset":    assetRef(request.Asset),
		"amount":   request.Amount.String(),
		"order_id": request.OrderID,
		"paid":     strconv.FormatBool(request.Paid),
	}
	if request.Paid {
		resp["customer"] = request.Customer.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) payPaymentRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	var req struct {
		Payer  string `json:"payer"`
		Asset  string `json:"asset"`
		Amount string `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	payer, err := crypto.DecodeAddress(req.Payer)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	sent, err := parseAssetAmount(req.Asset, req.Amount)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	if err := s.node.PayPaymentRequest(payer, id, sent); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paid"})
}

func (s *Server) settlePaymentRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	var req struct {
		Caller string `json:"caller"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	if err := s.node.SettlePaymentRequest(caller, id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "settled"})
}

// --- Game handlers ---

func (s *Server) startGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Host     string `json:"host"`
		Opponent string `json:"opponent"`
		Move     string `json:"move"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	host, err := crypto.DecodeAddress(req.Host)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	opponent, err := crypto.DecodeAddress(req.Opponent)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	move, err := game.ParseMove(req.Move)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	if err := s.node.StartGame(host, opponent, move); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) opponentMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Opponent string `json:"opponent"`
		Host     string `json:"host"`
		Move     string `json:"move"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	opponent, err := crypto.DecodeAddress(req.Opponent)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	host, err := crypto.DecodeAddress(req.Host)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	move, err := game.ParseMove(req.Move)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	outcome, err := s.node.PlayOpponentMove(opponent, host, move)
	if err != nil {
		s.writeError(w, err)
		return
	}
	result := "draw"
	switch outcome {
	case game.OutcomeHostWins:
		result = "host_wins"
	case game.OutcomeOpponentWins:
		result = "opponent_wins"
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": result})
}

func (s *Server) listGames(w http.ResponseWriter, r *http.Request) {
	host, err := crypto.DecodeAddress(chi.URLParam(r, "host"))
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	games, err := s.node.GamesByHost(host)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]map[string]string, 0, len(games))
	for _, g := range games {
		out = append(out, map[string]string{
			"host":     g.Host.String(),
			"opponent": g.Opponent.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": out})
}

// --- Admin handlers ---

func (s *Server) setModulePaused(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
		Module string `json:"module"`
		Paused bool   `json:"paused"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	if err := s.node.SetModulePaused(caller, req.Module, req.Paused); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Token handlers ---

func (s *Server) increaseAllowance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner   string `json:"owner"`
		Symbol  string `json:"symbol"`
		Spender string `json:"spender"`
		Amount  string `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	owner, amount, err := addressAndAmount(req.Owner, req.Amount)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	spender, err := crypto.DecodeAddress(req.Spender)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	if err := s.node.IncreaseTokenAllowance(owner, strings.ToUpper(strings.TrimSpace(req.Symbol)), spender, amount); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Balance handler ---

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := crypto.DecodeAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	asset, err := parseAssetRef(r.URL.Query().Get("asset"))
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	balance, err := s.node.Balance(asset, addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"address": addr.String(),
		"asset":   assetRef(asset),
		"balance": balance.String(),
	})
}

// --- Helpers ---

var errNotFound = errors.New("rpc: not found")

func decode(r *http.Request, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, requestLimit))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func pathID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, fmt.Errorf("rpc: malformed amount %q", raw)
	}
	return amount, nil
}

func addressAndAmount(rawAddr, rawAmount string) (crypto.Address, *big.Int, error) {
	addr, err := crypto.DecodeAddress(rawAddr)
	if err != nil {
		return crypto.Address{}, nil, err
	}
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return crypto.Address{}, nil, err
	}
	return addr, amount, nil
}

// parseAssetRef reads "native:uusd" or "token:UULP"; a bare identifier is
// treated as a native denom.
func parseAssetRef(raw string) (assets.Info, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return assets.Info{}, fmt.Errorf("rpc: empty asset reference")
	}
	kind, id, found := strings.Cut(raw, ":")
	if !found {
		return assets.NativeAsset(raw), nil
	}
	switch kind {
	case "native":
		return assets.NativeAsset(id), nil
	case "token":
		return assets.TokenAsset(id), nil
	default:
		return assets.Info{}, fmt.Errorf("rpc: unknown asset kind %q", kind)
	}
}

func parseAssetAmount(rawAsset, rawAmount string) (assets.Asset, error) {
	info, err := parseAssetRef(rawAsset)
	if err != nil {
		return assets.Asset{}, err
	}
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return assets.Asset{}, err
	}
	return assets.NewAsset(info, amount), nil
}

func assetRef(info assets.Info) string {
	if info.Kind == assets.Native {
		return "native:" + info.Denom
	}
	return "token:" + info.Symbol
}

func vaultResponse(v *vault.Vault, balance *big.Int) map[string]string {
	return map[string]string{
		"asset":            assetRef(v.Asset),
		"claim_token":      v.ClaimToken,
		"total_balance":    balance.String(),
		"total_debt":       v.TotalDebt.String(),
		"total_debt_share": v.TotalDebtShares.String(),
		"reserve_pool":     v.ReservePool.String(),
		"reserve_pool_bps": strconv.FormatUint(v.ReservePoolBps, 10),
		"admin":            v.Admin.String(),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errNotFound),
		errors.Is(err, vault.ErrPositionNotFound),
		errors.Is(err, farm.ErrPositionNotFound),
		errors.Is(err, escrow.ErrRequestNotFound),
		errors.Is(err, game.ErrGameNotFound),
		errors.Is(err, amm.ErrPairNotFound),
		errors.Is(err, token.ErrUnknownToken):
		status = http.StatusNotFound
	case errors.Is(err, vault.ErrUnauthorized),
		errors.Is(err, farm.ErrUnauthorized),
		errors.Is(err, escrow.ErrUnauthorized),
		errors.Is(err, token.ErrNotMinter),
		errors.Is(err, token.ErrInsufficientApproval):
		status = http.StatusForbidden
	case errors.Is(err, vault.ErrWrongAsset),
		errors.Is(err, vault.ErrWrongAmount),
		errors.Is(err, farm.ErrWrongAsset),
		errors.Is(err, farm.ErrWrongAmount),
		errors.Is(err, escrow.ErrWrongAsset),
		errors.Is(err, escrow.ErrWrongAmount),
		errors.Is(err, game.ErrInvalidMove),
		errors.Is(err, amm.ErrWrongAsset):
		status = http.StatusBadRequest
	case errors.Is(err, vault.ErrInsufficientLiquidity),
		errors.Is(err, farm.ErrInsufficientFunds),
		errors.Is(err, escrow.ErrUnpaid),
		errors.Is(err, game.ErrGameExists),
		errors.Is(err, amm.ErrEmptyPool):
		status = http.StatusConflict
	case errors.Is(err, common.ErrModulePaused):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
