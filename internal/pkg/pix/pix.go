// Package pix builds static "BR Code" payloads for PIX instant payments
// (EMV merchant-presented QR code, as specified by the Brazilian central bank).
package pix

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	idPayloadFormat    = "00"
	idInitiationMethod = "01"
	idMerchantAccount  = "26"
	idCategoryCode     = "52"
	idCurrency         = "53"
	idAmount           = "54"
	idCountry          = "58"
	idMerchantName     = "59"
	idMerchantCity     = "60"
	idAdditionalData   = "62"
	idCRC              = "63"

	subGUI         = "00"
	subKey         = "01"
	subDescription = "02"
	subTxID        = "05"

	gui           = "br.gov.bcb.pix"
	currencyBRL   = "986"
	maxNameLen    = 25
	maxCityLen    = 15
	maxTxIDLen    = 25
	maxFieldValue = 99
)

// Charge describes a single PIX payment request.
type Charge struct {
	Key          string // merchant PIX key (email, phone, CPF/CNPJ or random key)
	MerchantName string
	MerchantCity string
	AmountCents  int64
	TxID         string
	Description  string
}

// Payload renders c as a BR Code string ready to be encoded into a QR code
// or offered as "copia e cola".
func Payload(c Charge) (string, error) {
	if c.Key == "" {
		return "", fmt.Errorf("pix: key is required")
	}
	if c.AmountCents <= 0 {
		return "", fmt.Errorf("pix: amount must be positive")
	}
	txid := sanitizeTxID(c.TxID)
	if txid == "" {
		txid = "***"
	}

	account := tlv(subGUI, gui) + tlv(subKey, c.Key)
	if d := normalize(c.Description, 0); d != "" {
		account += tlv(subDescription, d)
	}
	if len(account) > maxFieldValue {
		return "", fmt.Errorf("pix: merchant account information too long")
	}

	var b strings.Builder
	b.WriteString(tlv(idPayloadFormat, "01"))
	b.WriteString(tlv(idInitiationMethod, "12"))
	b.WriteString(tlv(idMerchantAccount, account))
	b.WriteString(tlv(idCategoryCode, "0000"))
	b.WriteString(tlv(idCurrency, currencyBRL))
	b.WriteString(tlv(idAmount, formatAmount(c.AmountCents)))
	b.WriteString(tlv(idCountry, "BR"))
	b.WriteString(tlv(idMerchantName, normalize(c.MerchantName, maxNameLen)))
	b.WriteString(tlv(idMerchantCity, normalize(c.MerchantCity, maxCityLen)))
	b.WriteString(tlv(idAdditionalData, tlv(subTxID, txid)))
	b.WriteString(idCRC + "04")
	payload := b.String()
	return payload + fmt.Sprintf("%04X", CRC16(payload)), nil
}

// Valid reports whether payload ends with a correct CRC field.
func Valid(payload string) bool {
	if len(payload) < 8 {
		return false
	}
	body, sum := payload[:len(payload)-4], payload[len(payload)-4:]
	if !strings.HasSuffix(body, idCRC+"04") {
		return false
	}
	return fmt.Sprintf("%04X", CRC16(body)) == sum
}

// CRC16 computes CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF).
func CRC16(s string) uint16 {
	crc := uint16(0xFFFF)
	for i := 0; i < len(s); i++ {
		crc ^= uint16(s[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func tlv(id, value string) string {
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

func formatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// normalize strips accents and anything outside printable ASCII, upper-cases
// and truncates to max bytes (0 means no limit).
func normalize(s string, max int) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if r < 0x20 || r > 0x7e {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	out := strings.TrimSpace(b.String())
	if max > 0 && len(out) > max {
		out = strings.TrimSpace(out[:max])
	}
	return out
}

func sanitizeTxID(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > maxTxIDLen {
		out = out[:maxTxIDLen]
	}
	return out
}
