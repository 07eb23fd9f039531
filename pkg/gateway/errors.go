package gateway

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"

	"hashpay/pkg/apperr"
)

// mapError turns whatever the provider returned into the error taxonomy.
// Errors that are already classified pass through.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Timeout(op, err)
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return apperr.RPC(rpcErr.ErrorCode(), rpcErr.Error())
	}
	if errors.Is(err, context.Canceled) {
		return apperr.Cancelled(op, err)
	}
	return apperr.RPC(apperr.CodeInternal, err.Error())
}

func panicError(method string, r interface{}) error {
	return apperr.RPC(apperr.CodeInternal, fmt.Sprintf("%s: provider panic: %v", method, r))
}

func isMethodNotFound(err error) bool {
	var appErr *apperr.Error
	return errors.As(err, &appErr) && appErr.Kind == apperr.KindRPC && appErr.Code == apperr.CodeMethodNotFound
}
