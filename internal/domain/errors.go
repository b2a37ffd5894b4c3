package domain

import "errors"

// Errores del engine. Toda operación fallida devuelve exactamente uno de
// estos, quizá envuelto con contexto; se comparan con errors.Is o Code.
var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInsufficientLiquidity  = errors.New("insufficient liquidity")
	ErrIncorrectAuthority     = errors.New("incorrect authority")
	ErrInvalidAuthority       = errors.New("invalid authority")
	ErrMarketNotCompleted     = errors.New("market not completed")
	ErrCurveAlreadyCompleted  = errors.New("curve already completed")
	ErrMarketResolvedLpLocked = errors.New("market resolved: liquidity locked until pool settlement")
	ErrSystemPaused           = errors.New("system paused")
	ErrDisputeWindowClosed    = errors.New("dispute window closed")
	ErrDisputeWindowOpen      = errors.New("dispute window still open")
	ErrRateLimitExceeded      = errors.New("rate limit exceeded")
	ErrDuplicateDispute       = errors.New("duplicate dispute")
	ErrMathOverflow           = errors.New("arithmetic overflow")

	ErrSlippageExceeded    = errors.New("slippage exceeded")
	ErrDeadlineExpired     = errors.New("deadline expired")
	ErrMarketNotFound      = errors.New("market not found")
	ErrMarketAlreadyExists = errors.New("market already exists")
	ErrNotInitialized      = errors.New("config not initialized")
	ErrAlreadyInitialized  = errors.New("config already initialized")
	ErrInvalidRatio        = errors.New("invalid resolution ratio")
	ErrInvalidFee          = errors.New("invalid fee configuration")
	ErrInvalidDispute      = errors.New("invalid dispute")
	ErrDisputeNotFound     = errors.New("dispute not found")
	ErrDisputeClosed       = errors.New("dispute already closed")
	ErrMarketDisputed      = errors.New("market has open disputes")
	ErrPoolAlreadySettled  = errors.New("pool already settled")
	ErrPoolNotEmpty        = errors.New("pool already seeded")
	ErrMarketExpired       = errors.New("market trading period ended")
	ErrCreatorNotAllowed   = errors.New("creator not on allow-list")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrAlreadyFinalized    = errors.New("resolution already finalized")
	ErrNotFound            = errors.New("not found")
)

var codes = map[error]string{
	ErrInvalidAmount:          "InvalidAmount",
	ErrInsufficientBalance:    "InsufficientBalance",
	ErrInsufficientLiquidity:  "InsufficientLiquidity",
	ErrIncorrectAuthority:     "IncorrectAuthority",
	ErrInvalidAuthority:       "InvalidAuthority",
	ErrMarketNotCompleted:     "MarketNotCompleted",
	ErrCurveAlreadyCompleted:  "CurveAlreadyCompleted",
	ErrMarketResolvedLpLocked: "MarketResolvedLpLocked",
	ErrSystemPaused:           "SystemPaused",
	ErrDisputeWindowClosed:    "DisputeWindowClosed",
	ErrDisputeWindowOpen:      "DisputeWindowOpen",
	ErrRateLimitExceeded:      "RateLimitExceeded",
	ErrDuplicateDispute:       "DuplicateDispute",
	ErrMathOverflow:           "MathOverflow",
	ErrSlippageExceeded:       "SlippageExceeded",
	ErrDeadlineExpired:        "DeadlineExpired",
	ErrMarketNotFound:         "MarketNotFound",
	ErrMarketAlreadyExists:    "MarketAlreadyExists",
	ErrNotInitialized:         "NotInitialized",
	ErrAlreadyInitialized:     "AlreadyInitialized",
	ErrInvalidRatio:           "InvalidRatio",
	ErrInvalidFee:             "InvalidFee",
	ErrInvalidDispute:         "InvalidDispute",
	ErrDisputeNotFound:        "DisputeNotFound",
	ErrDisputeClosed:          "DisputeClosed",
	ErrMarketDisputed:         "MarketDisputed",
	ErrPoolAlreadySettled:     "PoolAlreadySettled",
	ErrPoolNotEmpty:           "PoolNotEmpty",
	ErrMarketExpired:          "MarketExpired",
	ErrCreatorNotAllowed:      "CreatorNotAllowed",
	ErrInvalidSignature:       "InvalidSignature",
	ErrAlreadyFinalized:       "AlreadyFinalized",
	ErrNotFound:               "NotFound",
}

// Code devuelve el código estable de err, o "Internal" si err no envuelve
// ninguno de los errores del engine. Devuelve "" para un error nil.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for target, code := range codes {
		if errors.Is(err, target) {
			return code
		}
	}
	return "Internal"
}
