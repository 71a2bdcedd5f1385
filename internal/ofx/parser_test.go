package ofx

import (
	"context"
	"strings"
	"testing"

	"github.com/Veraticus/giving-analytics/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGiverMap = `
givers:
  G100: ["JOHN SMITH", "J SMITH"]
  G200:
    - Mary Jones
`

// Sample OFX data for testing.
const sampleDepositOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20240107120000[0:GMT]
<TRNAMT>100.00
<FITID>2024010701
<CHECKNUM>5512
<NAME>John Smith
</STMTTRN>
<STMTTRN>
<TRNTYPE>DIRECTDEP
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>250.50
<FITID>2024011501
<NAME>ACH CREDIT MARY JONES
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>40.00
<FITID>2024012001
<NAME>DEPOSIT
<MEMO>Unknown Donor
</STMTTRN>
<STMTTRN>
<TRNTYPE>INT
<DTPOSTED>20240131120000[0:GMT]
<TRNAMT>1.12
<FITID>2024013101
<NAME>INTEREST PAID
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>-500.00
<FITID>2024012501
<NAME>Electric Company
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	givers, err := ParseGiverMap([]byte(sampleGiverMap))
	require.NoError(t, err)
	return NewParser(givers)
}

func TestParseFile(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{
			name:          "valid deposit statement",
			ofxData:       sampleDepositOFX,
			expectedCount: 2,
		},
		{
			name:          "invalid OFX data",
			ofxData:       "not valid OFX",
			expectedError: true,
		},
		{
			name:          "empty OFX",
			ofxData:       "",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := newTestParser(t)

			result, err := parser.ParseFile(context.Background(), strings.NewReader(tt.ofxData))

			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, result.Gifts, tt.expectedCount)
		})
	}
}

func TestParseDeposits(t *testing.T) {
	parser := newTestParser(t)

	result, err := parser.ParseFile(context.Background(), strings.NewReader(sampleDepositOFX))
	require.NoError(t, err)
	require.Len(t, result.Gifts, 2)

	check := result.Gifts[0]
	assert.Equal(t, "1234567890-2024010701", check.ID)
	assert.Equal(t, "G100", check.GiverID)
	assert.True(t, decimal.NewFromInt(100).Equal(check.Amount))
	assert.Equal(t, model.CurrencyCheck, check.CurrencyType)
	assert.Equal(t, model.SourceBankDeposit, check.Source)
	assert.False(t, check.IsScheduled)
	assert.Equal(t, 7, check.Date.Day())

	ach := result.Gifts[1]
	assert.Equal(t, "G200", ach.GiverID)
	assert.True(t, decimal.RequireFromString("250.50").Equal(ach.Amount))
	assert.Equal(t, model.CurrencyACH, ach.CurrencyType)
	assert.True(t, ach.IsScheduled)

	assert.Equal(t, []string{"Unknown Donor"}, result.Unmatched)
	assert.Equal(t, 2, result.Skipped, "interest and debit are not gifts")
}

func TestParseFile_Canceled(t *testing.T) {
	parser := newTestParser(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := parser.ParseFile(ctx, strings.NewReader(sampleDepositOFX))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractPayeeName(t *testing.T) {
	tests := []struct {
		name     string
		tx       ofxgo.Transaction
		expected string
	}{
		{
			name:     "remove ACH prefix",
			tx:       ofxgo.Transaction{Name: "ACH CREDIT MARY JONES"},
			expected: "MARY JONES",
		},
		{
			name:     "remove zelle prefix",
			tx:       ofxgo.Transaction{Name: "Zelle From John Smith"},
			expected: "John Smith",
		},
		{
			name:     "generic name falls back to memo",
			tx:       ofxgo.Transaction{Name: "DEPOSIT", Memo: "J Smith"},
			expected: "J Smith",
		},
		{
			name:     "payee wins",
			tx:       ofxgo.Transaction{Name: "DEPOSIT", Payee: &ofxgo.Payee{Name: "Mary Jones"}},
			expected: "Mary Jones",
		},
		{
			name:     "trim whitespace",
			tx:       ofxgo.Transaction{Name: "  John Smith  "},
			expected: "John Smith",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractPayeeName(tt.tx))
		})
	}
}

func TestPreprocessOFX(t *testing.T) {
	parser := NewParser(nil)

	input := "\n\n  <OFX>\n<SEVERITY>Info</SEVERITY>\n<CODE\n"
	got := parser.preprocessOFX(input)

	assert.True(t, strings.HasPrefix(got, "<OFX>"))
	assert.Contains(t, got, "<SEVERITY>INFO</SEVERITY>")
	assert.Contains(t, got, "<CODE>")
}
