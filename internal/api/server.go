package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/custody"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/marketplace"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/repository"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/wallet"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const CallerHeader = "X-Caller"

var ErrHistoryUnavailable = errors.New("action history is not available")

type Marketplace interface {
	List(ctx context.Context, call marketplace.Call, collection entity.Address, assetId uint64, price uint64) error
	Buy(ctx context.Context, call marketplace.Call, collection entity.Address, assetId uint64) error
	Cancel(ctx context.Context, caller entity.Address, collection entity.Address, assetId uint64) error
	WithdrawFees(ctx context.Context, caller entity.Address) error
	SetListFeeRate(ctx context.Context, caller entity.Address, rate uint) error
	SetBuyFeeRate(ctx context.Context, caller entity.Address, rate uint) error
	Pause(ctx context.Context, caller entity.Address) error
	Unpause(ctx context.Context, caller entity.Address) error
	TransferOperator(ctx context.Context, caller entity.Address, newOperator entity.Address) error

	GetListing(ctx context.Context, collection entity.Address, assetId uint64) (entity.Listing, bool)
	Listings(ctx context.Context) []entity.Listing
	Summary(ctx context.Context) marketplace.Summary
}

type Server struct {
	market     Marketplace
	ledger     wallet.Ledger
	custodian  custody.Custodian
	actionRepo repository.ActionRepository
}

// NewServer builds the HTTP front of the marketplace. actionRepo may be nil when no search
// index is configured.
func NewServer(market Marketplace, ledger wallet.Ledger, custodian custody.Custodian, actionRepo repository.ActionRepository) Server {
	return Server{market, ledger, custodian, actionRepo}
}

func (s Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	r.HandleFunc("/listings", s.handleGetListings).Methods("GET")
	r.HandleFunc("/listings/{collection}/{assetId}", s.handleGetListing).Methods("GET")
	r.HandleFunc("/listings/{collection}/{assetId}", s.handleList).Methods("POST")
	r.HandleFunc("/listings/{collection}/{assetId}", s.handleCancel).Methods("DELETE")
	r.HandleFunc("/listings/{collection}/{assetId}/buy", s.handleBuy).Methods("POST")

	r.HandleFunc("/fees", s.handleGetFees).Methods("GET")
	r.HandleFunc("/fees/withdraw", s.handleWithdrawFees).Methods("POST")
	r.HandleFunc("/fees/list-rate", s.handleSetRate(Marketplace.SetListFeeRate)).Methods("PUT")
	r.HandleFunc("/fees/buy-rate", s.handleSetRate(Marketplace.SetBuyFeeRate)).Methods("PUT")

	r.HandleFunc("/pause", s.handleGate(Marketplace.Pause)).Methods("POST")
	r.HandleFunc("/unpause", s.handleGate(Marketplace.Unpause)).Methods("POST")
	r.HandleFunc("/operator", s.handleTransferOperator).Methods("PUT")

	r.HandleFunc("/actions/{collection}/{assetId}", s.handleGetAssetActions).Methods("GET")
	r.HandleFunc("/assets/{collection}/{assetId}/holder", s.handleGetHolder).Methods("GET")
	r.HandleFunc("/accounts/{address}/balance", s.handleGetBalance).Methods("GET")
	r.HandleFunc("/accounts/{address}/actions", s.handleGetAccountActions).Methods("GET")
	r.HandleFunc("/accounts/{address}/rejections", s.handleGetRejections).Methods("GET")

	r.NotFoundHandler = notFoundHandler()
	r.Use(loggingMiddleware)

	return r
}

func (s Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s Server) handleGetListings(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, s.market.Listings(r.Context()))
}

func (s Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	collection, assetId, err := getAsset(r)
	if err != nil {
		writeError(w, err)
		return
	}

	listing, ok := s.market.GetListing(r.Context(), collection, assetId)
	if !ok {
		writeError(w, marketplace.ErrListingNotFound)
		return
	}

	writeJson(w, http.StatusOK, listing)
}

func (s Server) handleList(w http.ResponseWriter, r *http.Request) {
	caller, collection, assetId, ok := s.callerAndAsset(w, r)
	if !ok {
		return
	}

	var req ListRequest
	if !decode(w, r, &req) {
		return
	}

	if err := s.market.List(r.Context(), marketplace.Call{Caller: caller, Value: req.Value}, collection, assetId, req.Price); err != nil {
		writeError(w, err)
		return
	}

	listing, _ := s.market.GetListing(r.Context(), collection, assetId)
	writeJson(w, http.StatusCreated, listing)
}

func (s Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	caller, collection, assetId, ok := s.callerAndAsset(w, r)
	if !ok {
		return
	}

	var req BuyRequest
	if !decode(w, r, &req) {
		return
	}

	if err := s.market.Buy(r.Context(), marketplace.Call{Caller: caller, Value: req.Value}, collection, assetId); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	caller, collection, assetId, ok := s.callerAndAsset(w, r)
	if !ok {
		return
	}

	if err := s.market.Cancel(r.Context(), caller, collection, assetId); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s Server) handleGetFees(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, s.market.Summary(r.Context()))
}

func (s Server) handleWithdrawFees(w http.ResponseWriter, r *http.Request) {
	s.handleGate(Marketplace.WithdrawFees)(w, r)
}

func (s Server) handleSetRate(set func(Marketplace, context.Context, entity.Address, uint) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := getCaller(r)
		if err != nil {
			writeError(w, err)
			return
		}

		var req RateRequest
		if !decode(w, r, &req) {
			return
		}

		if err := set(s.market, r.Context(), caller, req.Rate); err != nil {
			writeError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (s Server) handleGate(op func(Marketplace, context.Context, entity.Address) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := getCaller(r)
		if err != nil {
			writeError(w, err)
			return
		}

		if err := op(s.market, r.Context(), caller); err != nil {
			writeError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (s Server) handleTransferOperator(w http.ResponseWriter, r *http.Request) {
	caller, err := getCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req OperatorRequest
	if !decode(w, r, &req) {
		return
	}

	operator, err := entity.ParseAddress(req.Operator)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.market.TransferOperator(r.Context(), caller, operator); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s Server) handleGetAssetActions(w http.ResponseWriter, r *http.Request) {
	if s.actionRepo == nil {
		writeError(w, ErrHistoryUnavailable)
		return
	}

	collection, assetId, err := getAsset(r)
	if err != nil {
		writeError(w, err)
		return
	}

	actions, err := s.actionRepo.GetActionsForAsset(r.Context(), collection, assetId, getSize(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusOK, actions)
}

func (s Server) handleGetAccountActions(w http.ResponseWriter, r *http.Request) {
	if s.actionRepo == nil {
		writeError(w, ErrHistoryUnavailable)
		return
	}

	account, err := entity.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		writeError(w, err)
		return
	}

	actions, err := s.actionRepo.GetActionsForAccount(r.Context(), account, getSize(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusOK, actions)
}

func (s Server) handleGetRejections(w http.ResponseWriter, r *http.Request) {
	if s.actionRepo == nil {
		writeError(w, ErrHistoryUnavailable)
		return
	}

	caller, err := entity.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		writeError(w, err)
		return
	}

	rejections, err := s.actionRepo.GetRejectionsForCaller(r.Context(), caller, getSize(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusOK, rejections)
}

func (s Server) handleGetHolder(w http.ResponseWriter, r *http.Request) {
	collection, assetId, err := getAsset(r)
	if err != nil {
		writeError(w, err)
		return
	}

	holder, err := s.custodian.CurrentHolder(r.Context(), collection, assetId)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusOK, HolderResponse{Collection: collection, AssetId: assetId, Holder: holder})
}

func (s Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	account, err := entity.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		writeError(w, err)
		return
	}

	balance, err := s.ledger.BalanceOf(r.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusOK, BalanceResponse{Address: account, Bech32: account.Bech32(), Balance: balance})
}

func (s Server) callerAndAsset(w http.ResponseWriter, r *http.Request) (entity.Address, entity.Address, uint64, bool) {
	caller, err := getCaller(r)
	if err != nil {
		writeError(w, err)
		return "", "", 0, false
	}

	collection, assetId, err := getAsset(r)
	if err != nil {
		writeError(w, err)
		return "", "", 0, false
	}

	return caller, collection, assetId, true
}

// getCaller reads the caller identity. A missing header is the null address.
func getCaller(r *http.Request) (entity.Address, error) {
	header := r.Header.Get(CallerHeader)
	if header == "" {
		return entity.NullAddress, nil
	}
	return entity.ParseAddress(header)
}

func getAsset(r *http.Request) (entity.Address, uint64, error) {
	collection, err := entity.ParseAddress(mux.Vars(r)["collection"])
	if err != nil {
		return "", 0, err
	}

	assetId, err := strconv.ParseUint(mux.Vars(r)["assetId"], 10, 64)
	if err != nil {
		return "", 0, errBadRequest{"invalid asset id"}
	}

	return collection, assetId, nil
}

func getSize(r *http.Request) int {
	size, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil {
		return repository.DefaultSize
	}
	return size
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, errBadRequest{"invalid request body: " + err.Error()})
		return false
	}
	return true
}

func notFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, http.StatusNotFound, ErrorResponse{Error: "page not found", Code: "NotFound"})
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zap.L().With(
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("caller", r.Header.Get(CallerHeader)),
		).Debug("Api: Request")
		next.ServeHTTP(w, r)
	})
}
