package payment

import (
	"net/url"
	"strings"
	"testing"
)

func TestSignIsOrderIndependent(t *testing.T) {
	secret := "test-secret"
	a := map[string]string{
		"vnp_TxnRef":  "abc123",
		"vnp_Amount":  "25000000",
		"vnp_TmnCode": "DEMO",
	}
	b := map[string]string{
		"vnp_TmnCode": "DEMO",
		"vnp_Amount":  "25000000",
		"vnp_TxnRef":  "abc123",
	}
	if Sign(secret, a) != Sign(secret, b) {
		t.Fatal("signature must not depend on map iteration order")
	}
}

func TestSignSkipsEmptyAndHashParams(t *testing.T) {
	secret := "test-secret"
	base := map[string]string{
		"vnp_TxnRef": "abc123",
		"vnp_Amount": "25000000",
	}
	withNoise := map[string]string{
		"vnp_TxnRef":         "abc123",
		"vnp_Amount":         "25000000",
		"vnp_BankCode":       "",
		"vnp_SecureHash":     "deadbeef",
		"vnp_SecureHashType": "HMACSHA512",
	}
	if Sign(secret, base) != Sign(secret, withNoise) {
		t.Fatal("empty values and hash fields must not enter the canonical string")
	}
}

func TestVerifySignatureRoundTrip(t *testing.T) {
	secret := "test-secret"
	params := map[string]string{
		"vnp_TxnRef":       "abc123",
		"vnp_Amount":       "25000000",
		"vnp_ResponseCode": "00",
		"vnp_OrderInfo":    "Thanh toan lich kham 66b2",
	}
	params[paramSecureHash] = Sign(secret, params)

	if !VerifySignature(secret, params) {
		t.Fatal("genuine signature must verify")
	}

	params["vnp_Amount"] = "1"
	if VerifySignature(secret, params) {
		t.Fatal("tampered parameter must fail verification")
	}
}

func TestVerifySignatureMissingHash(t *testing.T) {
	if VerifySignature("secret", map[string]string{"vnp_TxnRef": "x"}) {
		t.Fatal("missing vnp_SecureHash must fail verification")
	}
}

func TestBuildPayURLSignatureMatchesQuery(t *testing.T) {
	cfg := VNPayConfig{
		TmnCode:    "DEMO",
		HashSecret: "test-secret",
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
	}
	params := map[string]string{
		"vnp_TxnRef":    "abc123",
		"vnp_Amount":    "25000000",
		"vnp_OrderInfo": "Thanh toan lich kham 66b2",
	}

	raw := BuildPayURL(cfg, params)
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("pay url must parse: %v", err)
	}
	if !strings.HasPrefix(raw, cfg.PayURL+"?") {
		t.Fatalf("unexpected base url: %s", raw)
	}

	// The query the gateway receives must verify against its own hash.
	got := make(map[string]string)
	for key, values := range u.Query() {
		got[key] = values[0]
	}
	if !VerifySignature(cfg.HashSecret, got) {
		t.Fatal("url query must carry a verifiable signature")
	}
}
