package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"time"
)

// VNPay wire constants.
const (
	vnpVersion = "2.1.0"
	vnpCommand = "pay"

	paramSecureHash     = "vnp_SecureHash"
	paramSecureHashType = "vnp_SecureHashType"

	// ResponseCodeSuccess is the gateway's "payment accepted" code.
	ResponseCodeSuccess = "00"
)

type VNPayConfig struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string
}

// hashData builds the canonical string for signing: parameters sorted by
// key, URL-encoded values, empty values and the hash fields themselves
// excluded. The same string doubles as the query of the outbound URL, so
// what we sign is byte-for-byte what the gateway receives.
func hashData(params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		if v == "" || k == paramSecureHash || k == paramSecureHashType {
			continue
		}
		values.Set(k, v)
	}
	return values.Encode()
}

// Sign computes the HMAC-SHA512 hex signature over the canonical string.
func Sign(secret string, params map[string]string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(hashData(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the signature over every vnp_ parameter except
// the hash fields and compares it in constant time against the submitted
// vnp_SecureHash.
func VerifySignature(secret string, params map[string]string) bool {
	submitted := params[paramSecureHash]
	if submitted == "" {
		return false
	}
	expected := Sign(secret, params)
	return hmac.Equal([]byte(expected), []byte(submitted))
}

// BuildPayURL signs the parameter set and assembles the redirect URL.
func BuildPayURL(cfg VNPayConfig, params map[string]string) string {
	query := hashData(params)
	sig := Sign(cfg.HashSecret, params)
	return cfg.PayURL + "?" + query + "&" + paramSecureHash + "=" + sig
}

func formatVNPayTime(t time.Time) string {
	return t.Format("20060102150405")
}
