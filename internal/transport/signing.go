package transport

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Sign computes the request signature the API verifies: the HMAC-SHA256 of
// "clientID:timestamp:payload" keyed by the client secret, base64-encoded.
// The payload is the raw request body; empty for GET requests.
func Sign(clientSecret, clientID, timestamp string, payload []byte) string {
	message := fmt.Sprintf("%s:%s:%s", clientID, timestamp, payload)
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a signature in constant time. Used by tests and
// available to server-side consumers of the same scheme.
func VerifySignature(clientSecret, clientID, timestamp string, payload []byte, signature string) bool {
	expected := Sign(clientSecret, clientID, timestamp, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
