package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// Code is the symbolic error code surfaced to callers.
// Callers must match on the code, never on the message text.
type Code string

const (
	CodeAlreadyExists          Code = "AlreadyExists"
	CodeInvalidPrice           Code = "InvalidPrice"
	CodeInvalidRoyalty         Code = "InvalidRoyalty"
	CodeDuplicateListing       Code = "DuplicateListing"
	CodeUnauthorized           Code = "Unauthorized"
	CodePurchaseNotEnoughFunds Code = "PurchaseNotEnoughFunds"
	CodeAlreadySold            Code = "AlreadySold"
	CodeMarketplaceNotFound    Code = "MarketplaceNotFound"
	CodeListingNotFound        Code = "ListingNotFound"
	CodeInvalidInstruction     Code = "InvalidInstruction"
)

var knownCodes = map[Code]struct{}{
	CodeAlreadyExists:          {},
	CodeInvalidPrice:           {},
	CodeInvalidRoyalty:         {},
	CodeDuplicateListing:       {},
	CodeUnauthorized:           {},
	CodePurchaseNotEnoughFunds: {},
	CodeAlreadySold:            {},
	CodeMarketplaceNotFound:    {},
	CodeListingNotFound:        {},
	CodeInvalidInstruction:     {},
}

// ParseCode returns the Code named by s, if it is one.
func ParseCode(s string) (Code, bool) {
	c := Code(s)
	_, ok := knownCodes[c]
	return c, ok
}

// MarketError is a marketplace program error with a fixed message.
// Market errors abort the instruction and are never retried by the core.
type MarketError struct {
	Code    Code
	Message string
}

func (e *MarketError) Error() string {
	return string(e.Code) + ": " + e.Message
}

func (e *MarketError) IsRetriable() bool {
	return false
}

var (
	ErrAlreadyExists          = &MarketError{CodeAlreadyExists, "Account already exists"}
	ErrInvalidPrice           = &MarketError{CodeInvalidPrice, "Price must be greater than zero"}
	ErrInvalidRoyalty         = &MarketError{CodeInvalidRoyalty, "Royalty basis points must not exceed 10000"}
	ErrDuplicateListing       = &MarketError{CodeDuplicateListing, "This asset is already listed by this creator"}
	ErrUnauthorized           = &MarketError{CodeUnauthorized, "Required signer is missing or invalid"}
	ErrPurchaseNotEnoughFunds = &MarketError{CodePurchaseNotEnoughFunds, "You don't have enough funds to buy the service"}
	ErrAlreadySold            = &MarketError{CodeAlreadySold, "The service has already been sold"}
	ErrMarketplaceNotFound    = &MarketError{CodeMarketplaceNotFound, "Marketplace does not exist"}
	ErrListingNotFound        = &MarketError{CodeListingNotFound, "Service listing does not exist"}
	ErrInvalidInstruction     = &MarketError{CodeInvalidInstruction, "Instruction is malformed"}
)

// CodeOf extracts the symbolic code from an error chain.
func CodeOf(err error) (Code, bool) {
	var me *MarketError
	if errors.As(err, &me) {
		return me.Code, true
	}
	return "", false
}

// NetworkError represents a network-related error that may be retriable
type NetworkError struct {
	Op        string // Operation that failed (e.g., "connect", "publish")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")

	// ErrUndeclaredAccount is returned when an instruction touches an account it did not lock.
	ErrUndeclaredAccount = errors.New("account was not declared by the instruction")
)
