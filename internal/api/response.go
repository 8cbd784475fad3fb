package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/marketplace"
	"go.uber.org/zap"
)

type ListRequest struct {
	Price uint64 `json:"price"`
	Value uint64 `json:"value"`
}

type BuyRequest struct {
	Value uint64 `json:"value"`
}

type RateRequest struct {
	Rate uint `json:"rate"`
}

type OperatorRequest struct {
	Operator string `json:"operator"`
}

type BalanceResponse struct {
	Address entity.Address `json:"address"`
	Bech32  string         `json:"bech32"`
	Balance uint64         `json:"balance"`
}

type HolderResponse struct {
	Collection entity.Address `json:"collection"`
	AssetId    uint64         `json:"assetId"`
	Holder     entity.Address `json:"holder"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type errBadRequest struct {
	msg string
}

func (e errBadRequest) Error() string {
	return e.msg
}

var statuses = map[string]int{
	"PriceZero":         http.StatusBadRequest,
	"IncorrectFee":      http.StatusBadRequest,
	"IncorrectPrice":    http.StatusBadRequest,
	"RateTooHigh":       http.StatusBadRequest,
	"InvalidAddress":    http.StatusBadRequest,
	"InvalidOperator":   http.StatusBadRequest,
	"BadRequest":        http.StatusBadRequest,
	"NotAssetOwner":     http.StatusForbidden,
	"NotListingOwner":   http.StatusForbidden,
	"NotOperator":       http.StatusForbidden,
	"ListingNotFound":   http.StatusNotFound,
	"NothingToWithdraw": http.StatusConflict,
	"NoOpTransition":    http.StatusConflict,
	"SystemPaused":      http.StatusConflict,
	"ReentrantCall":     http.StatusConflict,
	"TransferFailed":    http.StatusBadGateway,
	"Unavailable":       http.StatusServiceUnavailable,
}

// ErrorCode names err for the response body. Marketplace errors keep their own code.
func ErrorCode(err error) string {
	var badRequest errBadRequest
	switch {
	case errors.As(err, &badRequest):
		return "BadRequest"
	case errors.Is(err, entity.ErrInvalidAddress):
		return "InvalidAddress"
	case errors.Is(err, ErrHistoryUnavailable):
		return "Unavailable"
	}
	return marketplace.Code(err)
}

func StatusCode(code string) int {
	if status, ok := statuses[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	code := ErrorCode(err)
	status := StatusCode(code)

	if status == http.StatusInternalServerError {
		zap.L().With(zap.Error(err)).Error("Api: Request failed")
	}

	writeJson(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

func writeJson(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().With(zap.Error(err)).Warn("Api: Failed to write response")
	}
}
