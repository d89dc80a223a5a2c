package grpcserver

import (
	"context"
	"errors"
	"strings"

	"service_market/internal/domain"
	"service_market/internal/ledger"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps domain errors to gRPC status. Market errors keep their
// "Code: message" text so clients can match on the symbolic code.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if code, ok := domain.CodeOf(err); ok {
		return status.Error(grpcCode(code), err.Error())
	}

	switch {
	case errors.Is(err, errBadRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ledger.ErrAssetNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidAuthority):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, ledger.ErrAssetFrozen),
		errors.Is(err, ledger.ErrAssetLocked),
		errors.Is(err, ledger.ErrAssetExists),
		errors.Is(err, ledger.ErrPluginExists):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ledger.ErrInvalidOwner), errors.Is(err, ledger.ErrInvalidRoyalties):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Internal, err.Error())
}

func grpcCode(code domain.Code) codes.Code {
	switch code {
	case domain.CodeUnauthorized:
		return codes.PermissionDenied
	case domain.CodeAlreadyExists, domain.CodeDuplicateListing:
		return codes.AlreadyExists
	case domain.CodeMarketplaceNotFound, domain.CodeListingNotFound:
		return codes.NotFound
	case domain.CodePurchaseNotEnoughFunds, domain.CodeAlreadySold:
		return codes.FailedPrecondition
	default:
		return codes.InvalidArgument
	}
}

// CodeOf extracts the symbolic market error code from a gRPC error.
// Messages from non-market errors (ledger, transport) report no code.
func CodeOf(err error) (domain.Code, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return "", false
	}
	prefix, _, found := strings.Cut(st.Message(), ": ")
	if !found {
		return "", false
	}
	return domain.ParseCode(prefix)
}
