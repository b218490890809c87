package domain

import (
	"fmt"
	"strings"
)

// Kind classifies ledger failures so adapters can map them without string matching.
type Kind int

const (
	KindInvalidCommand Kind = iota + 1
	KindItemNotFound
	KindStockUnderflow
	KindInvalidQuantity
	KindNoSuchItemGroup
	KindSaveError
	KindInvalidQuantityFormat
	KindInvalidLineFormat
	KindParseDate
)

var kindNames = map[Kind]string{
	KindInvalidCommand:        "InvalidCommand",
	KindItemNotFound:          "ItemNotFound",
	KindStockUnderflow:        "StockUnderflow",
	KindInvalidQuantity:       "InvalidQuantity",
	KindNoSuchItemGroup:       "NoSuchItemGroup",
	KindSaveError:             "SaveError",
	KindInvalidQuantityFormat: "InvalidQuantityFormat",
	KindInvalidLineFormat:     "InvalidLineFormat",
	KindParseDate:             "ParseDateError",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// KindFromString resolves the name produced by Kind.String.
func KindFromString(name string) (Kind, bool) {
	for kind, candidate := range kindNames {
		if candidate == name {
			return kind, true
		}
	}
	return 0, false
}

// Error is the single error type raised by the ledger and its collaborators.
// Context fields are populated only when relevant to the kind.
type Error struct {
	Kind      Kind
	Item      string
	Expiry    string
	Requested int
	Available int
	Line      int
	Detail    string
	Err       error
}

// Sentinels for errors.Is checks; matching is by kind only.
var (
	ErrInvalidCommand        = &Error{Kind: KindInvalidCommand}
	ErrItemNotFound          = &Error{Kind: KindItemNotFound}
	ErrStockUnderflow        = &Error{Kind: KindStockUnderflow}
	ErrInvalidQuantity       = &Error{Kind: KindInvalidQuantity}
	ErrNoSuchItemGroup       = &Error{Kind: KindNoSuchItemGroup}
	ErrSave                  = &Error{Kind: KindSaveError}
	ErrInvalidQuantityFormat = &Error{Kind: KindInvalidQuantityFormat}
	ErrInvalidLineFormat     = &Error{Kind: KindInvalidLineFormat}
	ErrParseDate             = &Error{Kind: KindParseDate}
)

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindStockUnderflow:
		msg = fmt.Sprintf("insufficient stock for %q: available %d, requested %d", e.Item, e.Available, e.Requested)
	case KindItemNotFound:
		msg = "item not found"
		if e.Item != "" {
			msg = fmt.Sprintf("no batch of %q with expiry %s", e.Item, orNone(e.Expiry))
		}
	case KindNoSuchItemGroup:
		msg = fmt.Sprintf("no item group named %q", e.Item)
	case KindInvalidQuantity:
		msg = "quantity must be greater than zero"
		if e.Item != "" {
			msg = fmt.Sprintf("invalid quantity %d for %q", e.Requested, e.Item)
		}
	case KindInvalidLineFormat:
		msg = "malformed record, expected name,quantity"
	case KindInvalidQuantityFormat:
		msg = "quantity is not a number"
	case KindParseDate:
		msg = "invalid date, expected YYYY-MM-DD"
	case KindSaveError:
		msg = "failed to save ledger"
	case KindInvalidCommand:
		msg = "invalid command"
	default:
		msg = e.Kind.String()
	}
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	b.WriteString(msg)
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func NewInvalidCommand(detail string) *Error {
	return &Error{Kind: KindInvalidCommand, Detail: detail}
}

func NewItemNotFound(item, expiry string) *Error {
	return &Error{Kind: KindItemNotFound, Item: item, Expiry: expiry}
}

func NewNoSuchItemGroup(item string) *Error {
	return &Error{Kind: KindNoSuchItemGroup, Item: item}
}

func NewStockUnderflow(item string, requested, available int) *Error {
	return &Error{Kind: KindStockUnderflow, Item: item, Requested: requested, Available: available}
}

func NewInvalidQuantity(item string, quantity int) *Error {
	return &Error{Kind: KindInvalidQuantity, Item: item, Requested: quantity}
}

// NewStockOverflow reports a receipt that would push the total stock of item past math.MaxInt.
func NewStockOverflow(item string, quantity, headroom int) *Error {
	return &Error{Kind: KindInvalidQuantity, Item: item, Requested: quantity, Available: headroom, Detail: "stock would exceed the maximum quantity"}
}

func NewSaveError(target string, err error) *Error {
	return &Error{Kind: KindSaveError, Detail: target, Err: err}
}

func NewInvalidLineFormat(line int, raw string) *Error {
	return &Error{Kind: KindInvalidLineFormat, Line: line, Detail: fmt.Sprintf("%q", raw)}
}

func NewInvalidQuantityFormat(line int, raw string, err error) *Error {
	return &Error{Kind: KindInvalidQuantityFormat, Line: line, Detail: fmt.Sprintf("%q", raw), Err: err}
}

func NewParseDateError(raw string, err error) *Error {
	return &Error{Kind: KindParseDate, Detail: fmt.Sprintf("%q", raw), Err: err}
}

func orNone(expiry string) string {
	if expiry == "" {
		return NoExpiryKey
	}
	return expiry
}
