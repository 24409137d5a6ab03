package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// Field is one named value in a gateway signature message. Field order is
// part of the wire contract: reordering produces a different signature and
// the gateway will reject the payload.
type Field struct {
	Name  string
	Value string
}

// Sign computes the keyed signature over the ordered fields, serialized as
// "name=value" pairs joined by commas, HMAC-SHA256, base64 encoded. Pure;
// the same secret and fields always produce the same output.
func Sign(secret string, fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Name+"="+f.Value)
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(parts, ",")))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
