// Package payment builds UPI payment intents for online checkout.
package payment

import (
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
)

// UPIConfig identifies the merchant receiving payments.
type UPIConfig struct {
	PayeeID   string // virtual payment address, e.g. medistore@upi
	PayeeName string
}

// Intent is a ready-to-use UPI payment request: a deep link that UPI apps
// open directly, plus the same link encoded as a QR code PNG for scanning.
type Intent struct {
	Link      string `json:"link"`
	QRCodePNG string `json:"qr_code_png"` // base64-encoded PNG
}

// BuildIntent constructs the upi://pay deep link for an order and renders
// its QR code. The amount is formatted with two decimal places as UPI apps
// expect.
func BuildIntent(cfg UPIConfig, amount decimal.Decimal, note string) (Intent, error) {
	if cfg.PayeeID == "" {
		return Intent{}, fmt.Errorf("upi payee id is not configured")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return Intent{}, fmt.Errorf("upi amount must be positive, got %s", amount)
	}

	params := url.Values{}
	params.Set("pa", cfg.PayeeID)
	params.Set("pn", cfg.PayeeName)
	params.Set("am", amount.StringFixed(2))
	params.Set("cu", "INR")
	if note != "" {
		params.Set("tn", note)
	}

	link := "upi://pay?" + params.Encode()

	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return Intent{}, fmt.Errorf("encoding upi qr code: %w", err)
	}

	return Intent{
		Link:      link,
		QRCodePNG: base64.StdEncoding.EncodeToString(png),
	}, nil
}
