package sms

import "strings"

// bankAliases maps the bank codes seen in transfer messages to the names the
// same banks go by in player registrations.
var bankAliases = map[string][]string{
	"BBL":       {"กรุงเทพ", "bangkok bank", "bbl"},
	"KBANK":     {"กสิกรไทย", "กสิกร", "kasikorn", "kbank"},
	"SCB":       {"ไทยพาณิชย์", "scb", "siam commercial"},
	"KTB":       {"กรุงไทย", "krungthai", "ktb"},
	"BAY":       {"กรุงศรีอยุธยา", "กรุงศรี", "krungsri", "bay"},
	"TMB":       {"ทหารไทยธนชาต", "ทหารไทย", "tmb", "ttb"},
	"TTB":       {"ทีทีบี", "ttb", "tmbthanachart"},
	"GSB":       {"ออมสิน", "gsb", "government savings"},
	"CIMB":      {"ซีไอเอ็มบี", "cimb"},
	"LH":        {"แลนด์แอนด์เฮ้าส์", "lhbank", "lh"},
	"TISCO":     {"ทิสโก้", "tisco"},
	"UOB":       {"ยูโอบี", "uob"},
	"BAAC":      {"ธ.ก.ส.", "baac", "ธกส"},
	"ICBC":      {"ไอซีบีซี", "icbc"},
	"PROMPTPAY": {"พร้อมเพย์", "promptpay"},
}

// MatchBankName reports whether an SMS bank code refers to the same bank as a
// registered holder's bank name. Unknown codes fall back to a direct compare.
func MatchBankName(smsBank, holderBank string) bool {
	holder := strings.ToLower(strings.TrimSpace(holderBank))
	aliases, ok := bankAliases[strings.ToUpper(smsBank)]
	if !ok {
		return strings.ToLower(smsBank) == holder
	}
	for _, alias := range aliases {
		a := strings.ToLower(alias)
		if strings.Contains(holder, a) || strings.Contains(a, holder) {
			return true
		}
	}
	return false
}

// MatchAccountLast4 reports whether a full account number ends with the given
// digits, ignoring separators.
func MatchAccountLast4(fullAccount, last4 string) bool {
	var digits strings.Builder
	for _, r := range fullAccount {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return last4 != "" && strings.HasSuffix(digits.String(), last4)
}

// BankThaiName returns the canonical Thai name for an SMS bank code.
func BankThaiName(smsBank string) string {
	if aliases, ok := bankAliases[strings.ToUpper(smsBank)]; ok {
		return aliases[0]
	}
	return smsBank
}
