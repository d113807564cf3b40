package lnaddy

// PayRequest is the first-phase LNURL-pay response describing how a wallet
// should request an invoice.
type PayRequest struct {
	// Type of LNURL, always "payRequest" here.
	Tag Type `json:"tag"`

	// Callback is the URL from LN SERVICE which will accept the pay request
	// parameters.
	Callback string `json:"callback"`

	// Metadata json which must be presented as raw string here, this is
	// required to pass signature verification at a later step. The SHA256
	// of this exact string becomes the description hash of the invoice
	// served in the second phase.
	Metadata string `json:"metadata"`

	// MinSendable is the min amount LN SERVICE is willing to receive in
	// millisatoshi, can not be less than 1 or more than `maxSendable`.
	MinSendable int64 `json:"minSendable"`

	// MaxSendable is the max amount LN SERVICE is willing to receive in
	// millisatoshi.
	MaxSendable int64 `json:"maxSendable"`

	// CommentAllowed is the number of characters accepted for the comment
	// query parameter of the callback. Omitted entirely when comments are
	// not accepted.
	CommentAllowed int64 `json:"commentAllowed,omitempty"`
}

// PayValues is the second-phase response carrying the invoice.
type PayValues struct {
	// PR is a bech32-serialized lightning invoice.
	PR string `json:"pr"`

	// Routes is always an empty array.
	Routes []struct{} `json:"routes"`

	// SuccessAction is an optional action for the wallet to perform once
	// the invoice is paid.
	SuccessAction *SuccessAction `json:"successAction,omitempty"`
}

type Type string

const (
	TypePayRequest = "payRequest"
)

// Error is the in-band LNURL error payload. Wallet-facing endpoints always
// answer HTTP 200 and report failures in this shape instead.
type Error struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

const StatusError = "ERROR"

func NewError(reason string) *Error {
	return &Error{Status: StatusError, Reason: reason}
}
