// Package i18n renders user-facing error messages from error codes.
package i18n

import (
	"bytes"
	"text/template"
)

// Locale identifies the message catalog shipped with the service.
const Locale = "en-US"

// Code is a machine-readable error code (duplicated from the errors package
// to avoid an import cycle).
type Code = string

// messages maps error codes to en-US message templates. Template variables
// reference error metadata keys.
var messages = map[Code]string{
	"UNKNOWN": "Something went wrong. Please try again.",

	"ROOM_NAME_REQUIRED":          "Room name is required.",
	"ROOM_JOIN_CODE_REQUIRED":     "Room code is required.",
	"ROOM_CLOSED":                 "This room is closed.",
	"ROOM_ALREADY_JOINED":         "You have already joined this room.",
	"ROOM_NOT_ADMIN":              "Only the room admin can perform this action.",
	"ROOM_INVALID_INITIAL_POINTS": "Initial points cannot be negative.",

	"PARTICIPANT_NOT_IN_ROOM": "You are not a participant of this room.",
	"PARTICIPANT_BANNED":      "You are banned from this room.",

	"QUESTION_TITLE_REQUIRED":      "Question title is required.",
	"QUESTION_TEST_CASES_REQUIRED": "At least one test case is required.",
	"QUESTION_POINTS_INVALID":      "Points must be at least 1.",
	"QUESTION_ALREADY_SOLVED":      "You have already solved this question.",
	"SUBMISSION_EMPTY":             "Submission output is required.",

	"UNLOCK_CODE_REQUIRED":       "Unlock code is required.",
	"UNLOCK_CODE_NOT_FOUND":      "Invalid unlock code or you do not own this code.",
	"UNLOCK_CODE_NOT_SELLABLE":   "You do not have permission to sell this code.",
	"UNLOCK_CODE_ALREADY_USED":   "This code has already been used.",
	"UNLOCK_CODE_ALREADY_SOLD":   "This code has already been sold.",
	"UNLOCK_CODE_ALREADY_LISTED": "This code is already listed for sale.",
	"UNLOCK_CODE_NOT_FOR_SALE":   "This code is not for sale.",
	"UNLOCK_CODE_ALREADY_OWNED":  "You already own a code with this value.",
	"SELLING_PRICE_INVALID":      "Selling price must be greater than 0.",

	"TRADE_BUYER_REQUIRED":    "Buyer is required.",
	"TRADE_SELF_TRADE":        "You cannot trade a code with yourself.",
	"INSUFFICIENT_POINTS":     "Not enough points for this trade.",
	"TRANSFER_AMOUNT_INVALID": "Transfer amount must be greater than 0.",

	"PURCHASE_REQUEST_OFFER_INVALID":     "Offered price must be greater than 0.",
	"PURCHASE_REQUEST_DUPLICATE":         "You have already sent a request for this code.",
	"PURCHASE_REQUEST_ALREADY_PROCESSED": "This request has already been processed.",
	"PURCHASE_REQUEST_NOT_SELLER":        "You are not the seller of this code.",

	"NOT_FOUND": "The requested resource was not found.",
}

// Format renders the message template for a code with the given metadata.
// Falls back to the code itself when no template exists, and to the raw
// template when rendering fails.
func Format(code Code, metadata map[string]string) string {
	tmpl, ok := messages[code]
	if !ok {
		return code
	}
	if metadata == nil {
		metadata = map[string]string{}
	}

	t, err := template.New("msg").Parse(tmpl)
	if err != nil {
		return tmpl
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, metadata); err != nil {
		return tmpl
	}
	return buf.String()
}
