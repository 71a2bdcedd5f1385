// Package ofx imports gifts from OFX/QFX bank statements.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/Veraticus/giving-analytics/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// ImportResult holds the gifts found in a statement.
type ImportResult struct {
	Gifts []model.Gift
	// Unmatched lists payee names of deposits with no giver, sorted and unique.
	Unmatched []string
	// Skipped counts debits and non-gift credits such as interest.
	Skipped int
}

// Parser turns deposits in OFX bank statements into gifts.
type Parser struct {
	givers *GiverMap
}

// NewParser creates a new OFX parser that attributes deposits through givers.
func NewParser(givers *GiverMap) *Parser {
	return &Parser{givers: givers}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be INFO, WARN, or ERROR
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML-style files sometimes drop the closing bracket of a bare tag
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// ParseFile parses an OFX/QFX file and returns the gifts it contains.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) (*ImportResult, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	result := &ImportResult{}
	unmatched := make(map[string]bool)
	var bankStmts int

	for _, msg := range resp.Bank {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		bankStmts++
		p.processBankStatement(stmt, result, unmatched)
	}

	for name := range unmatched {
		result.Unmatched = append(result.Unmatched, name)
	}
	sort.Strings(result.Unmatched)

	slog.Info("Parsed OFX file",
		"gifts", len(result.Gifts),
		"unmatched_payees", len(result.Unmatched),
		"skipped", result.Skipped,
		"bank_statements", bankStmts)

	return result, nil
}

func (p *Parser) processBankStatement(stmt *ofxgo.StatementResponse, result *ImportResult, unmatched map[string]bool) {
	accountID := string(stmt.BankAcctFrom.AcctID)

	for _, ofxTx := range stmt.BankTranList.Transactions {
		if !isGiftCredit(ofxTx) {
			result.Skipped++
			continue
		}

		payee := extractPayeeName(ofxTx)
		giverID, ok := p.givers.Resolve(payee)
		if !ok {
			unmatched[payee] = true
			continue
		}

		gift, err := convertTransaction(ofxTx, accountID, giverID)
		if err != nil {
			slog.Warn("Skipping unreadable deposit",
				"account", accountID,
				"fitid", string(ofxTx.FiTID),
				"error", err)
			result.Skipped++
			continue
		}
		result.Gifts = append(result.Gifts, gift)
	}
}

// isGiftCredit reports whether a transaction is an incoming payment that can
// be a gift. Interest and dividends are credits but never gifts.
func isGiftCredit(tx ofxgo.Transaction) bool {
	if tx.TrnAmt.Sign() <= 0 {
		return false
	}
	switch tx.TrnType {
	case ofxgo.TrnTypeInt, ofxgo.TrnTypeDiv, ofxgo.TrnTypeFee, ofxgo.TrnTypeSrvChg:
		return false
	}
	return true
}

func convertTransaction(tx ofxgo.Transaction, accountID, giverID string) (model.Gift, error) {
	amount, err := decimal.NewFromString(tx.TrnAmt.FloatString(2))
	if err != nil {
		return model.Gift{}, fmt.Errorf("invalid amount: %w", err)
	}

	gift := model.Gift{
		ID:           accountID + "-" + string(tx.FiTID),
		GiverID:      giverID,
		Date:         tx.DtPosted.Time.UTC(),
		Amount:       amount,
		Source:       model.SourceBankDeposit,
		CurrencyType: currencyType(tx),
	}

	switch tx.TrnType {
	case ofxgo.TrnTypeDirectDep, ofxgo.TrnTypeRepeatPmt:
		gift.IsScheduled = true
	}

	return gift, nil
}

func currencyType(tx ofxgo.Transaction) string {
	if tx.CheckNum != "" {
		return model.CurrencyCheck
	}
	switch tx.TrnType {
	case ofxgo.TrnTypeCheck:
		return model.CurrencyCheck
	case ofxgo.TrnTypeCash:
		return model.CurrencyCash
	default:
		return model.CurrencyACH
	}
}

// extractPayeeName tries to get the depositor's name from OFX data.
func extractPayeeName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := strings.TrimSpace(string(tx.Name))
	if tx.Memo != "" && isGenericDescription(name) {
		name = strings.TrimSpace(string(tx.Memo))
	}

	prefixes := []string{
		"ACH CREDIT ",
		"DEPOSIT FROM ",
		"MOBILE DEPOSIT ",
		"ONLINE TRANSFER FROM ",
		"ZELLE FROM ",
		"DIRECT DEP ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = strings.TrimSpace(name[len(prefix):])
			break
		}
	}

	return name
}

// isGenericDescription checks if a transaction name is too generic.
func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEPOSIT", "CREDIT", "ACH CREDIT", "TRANSFER", "MOBILE DEPOSIT":
		return true
	}
	return false
}
