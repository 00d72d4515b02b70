package channel

import "encoding/base64"

// Payload obfuscation: XOR with a repeating secret, then base64 so the
// stored text stays printable. This defeats casual inspection of the
// shared store and nothing more; treat it as frosted glass, not a lock.

func obfuscate(plain, secret string) string {
	if secret == "" {
		return plain
	}
	b := []byte(plain)
	k := []byte(secret)
	for i := range b {
		b[i] ^= k[i%len(k)]
	}
	return base64.StdEncoding.EncodeToString(b)
}

func deobfuscate(text, secret string) (string, error) {
	if secret == "" {
		return text, nil
	}
	b, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return "", err
	}
	k := []byte(secret)
	for i := range b {
		b[i] ^= k[i%len(k)]
	}
	return string(b), nil
}
