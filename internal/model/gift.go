package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Common payment sources recorded on a gift.
const (
	SourceWebsite     = "Website"
	SourceKiosk       = "Kiosk"
	SourceMobileApp   = "Mobile Application"
	SourceOnsite      = "On-Site Collection"
	SourceBankDeposit = "Bank Deposit"
)

// Common currency types recorded on a gift.
const (
	CurrencyCash       = "Cash"
	CurrencyCheck      = "Check"
	CurrencyCreditCard = "Credit Card"
	CurrencyACH        = "ACH"
	CurrencyNonCash    = "Non-Cash"
)

// Gift is a single contribution made by a giving unit.
type Gift struct {
	Date         time.Time
	Amount       decimal.Decimal
	ID           string
	GiverID      string
	Source       string // Payment source, e.g. Website or Kiosk
	CurrencyType string // Currency type, e.g. Cash or Credit Card
	IsScheduled  bool   // Part of a scheduled (recurring) transaction
}
