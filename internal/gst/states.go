package gst

import "strings"

// StateCodes maps GST state codes (the first two GSTIN digits) to state names.
var StateCodes = map[string]string{
	"01": "Jammu and Kashmir",
	"02": "Himachal Pradesh",
	"07": "Delhi",
	"09": "Uttar Pradesh",
	"10": "Bihar",
	"27": "Maharashtra",
	"29": "Karnataka",
	"32": "Kerala",
	"33": "Tamil Nadu",
	"36": "Telangana",
	"37": "Andhra Pradesh",
}

// StateCodeFromGSTIN returns the two-digit state prefix of a GSTIN, or "" if
// the value does not start with two digits. Checksums are not verified.
func StateCodeFromGSTIN(gstin string) string {
	g := strings.TrimSpace(gstin)
	if len(g) < 2 || g[0] < '0' || g[0] > '9' || g[1] < '0' || g[1] > '9' {
		return ""
	}
	return g[:2]
}

// StateName returns the state for a code, or "" when the code is not listed.
func StateName(code string) string {
	return StateCodes[strings.TrimSpace(code)]
}

// IsInterStateSupply compares supplier and buyer states case-insensitively.
// Unknown (empty) states are treated as intra-state.
func IsInterStateSupply(supplierState, buyerState string) bool {
	s, b := strings.TrimSpace(supplierState), strings.TrimSpace(buyerState)
	if s == "" || b == "" {
		return false
	}
	return !strings.EqualFold(s, b)
}
