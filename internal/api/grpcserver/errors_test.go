package grpcserver

import (
	"errors"
	"fmt"
	"testing"

	"service_market/internal/domain"
	"service_market/internal/ledger"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     codes.Code
		market   domain.Code
		isMarket bool
	}{
		{"market error", fmt.Errorf("buy_service: %w", domain.ErrAlreadySold), codes.FailedPrecondition, domain.CodeAlreadySold, true},
		{"unauthorized", domain.ErrUnauthorized, codes.PermissionDenied, domain.CodeUnauthorized, true},
		{"ledger error", ledger.ErrAssetExists, codes.FailedPrecondition, "", false},
		{"ledger authority", ledger.ErrInvalidAuthority, codes.PermissionDenied, "", false},
		{"plain error", errors.New("disk: full"), codes.Internal, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := toStatus(tt.err)
			if status.Code(err) != tt.code {
				t.Errorf("code = %v, want %v", status.Code(err), tt.code)
			}
			got, ok := CodeOf(err)
			if ok != tt.isMarket || got != tt.market {
				t.Errorf("CodeOf = (%q, %v), want (%q, %v)", got, ok, tt.market, tt.isMarket)
			}
		})
	}
}
