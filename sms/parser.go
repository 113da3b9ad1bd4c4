package sms

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrParseFailed = errors.New("unrecognized transfer message format")

// ParsedTransfer is the structured form of one inbound bank transfer SMS.
type ParsedTransfer struct {
	Amount             decimal.Decimal `json:"amount"`
	DestAccountLast4   string          `json:"dest_account_last4"`
	SourceBank         string          `json:"source_bank"`
	SourceAccountLast4 string          `json:"source_account_last4"`
	SourceName         string          `json:"source_name"`
	BalanceAfter       decimal.Decimal `json:"balance_after"`
	DateTime           string          `json:"date_time"`
}

// Message shape:
//
//	มีเงิน10.00บ.โอนเข้าบ/ชxx7109 จากBBL X7902 MR WORAPON CHIN เหลือ94.00บ.31/12/25@00:33
var (
	reAmount   = regexp.MustCompile(`มีเงิน([\d,]+\.?\d*)บ`)
	reDest     = regexp.MustCompile(`โอนเข้าบ/ช[xX]*(\d{4})`)
	reSource   = regexp.MustCompile(`จาก\s*([A-Z]+)\s*[xX](\d{4})`)
	reName     = regexp.MustCompile(`จาก\s*[A-Z]+\s*[xX]\d{4}\s+(.+?)\s+เหลือ`)
	reBalance  = regexp.MustCompile(`เหลือ([\d,]+\.?\d*)บ`)
	reDateTime = regexp.MustCompile(`(\d{2}/\d{2}/\d{2}@\d{2}:\d{2})`)
	reSpaces   = regexp.MustCompile(`\s+`)
)

// Parse extracts a transfer event from a Thai bank SMS. Amount, destination
// account, and source bank/account are required; a message missing any of
// them fails as a whole rather than yielding a partial result.
func Parse(raw string) (*ParsedTransfer, error) {
	normalized := strings.TrimSpace(reSpaces.ReplaceAllString(raw, " "))

	amountMatch := reAmount.FindStringSubmatch(normalized)
	if amountMatch == nil {
		return nil, ErrParseFailed
	}
	amount, err := parseAmount(amountMatch[1])
	if err != nil {
		return nil, ErrParseFailed
	}

	destMatch := reDest.FindStringSubmatch(normalized)
	if destMatch == nil {
		return nil, ErrParseFailed
	}

	sourceMatch := reSource.FindStringSubmatch(normalized)
	if sourceMatch == nil {
		return nil, ErrParseFailed
	}

	parsed := &ParsedTransfer{
		Amount:             amount,
		DestAccountLast4:   destMatch[1],
		SourceBank:         sourceMatch[1],
		SourceAccountLast4: sourceMatch[2],
	}

	if nameMatch := reName.FindStringSubmatch(normalized); nameMatch != nil {
		parsed.SourceName = strings.TrimSpace(nameMatch[1])
	}
	if balanceMatch := reBalance.FindStringSubmatch(normalized); balanceMatch != nil {
		if bal, err := parseAmount(balanceMatch[1]); err == nil {
			parsed.BalanceAfter = bal
		}
	}
	if dtMatch := reDateTime.FindStringSubmatch(normalized); dtMatch != nil {
		parsed.DateTime = dtMatch[1]
	}

	return parsed, nil
}

// Hash is the dedupe digest of a raw message: identical input always maps to
// the same hash.
func Hash(raw string) string {
	sum := md5.Sum([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}
