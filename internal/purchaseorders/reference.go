package purchaseorders

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"
)

const (
	referencePrefix   = "PO"
	referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referenceSuffix   = 4
)

// ReferenceGenerator produces a candidate reference number for the given day.
type ReferenceGenerator func(now time.Time) (string, error)

// NewReferenceNumber returns PO-YYYYMMDD-XXXX using crypto/rand.
func NewReferenceNumber(now time.Time) (string, error) {
	return referenceFrom(now, rand.Reader)
}

func referenceFrom(now time.Time, src io.Reader) (string, error) {
	buf := make([]byte, referenceSuffix)
	if _, err := io.ReadFull(src, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	suffix := make([]byte, referenceSuffix)
	for i, b := range buf {
		suffix[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return fmt.Sprintf("%s-%s-%s", referencePrefix, now.UTC().Format("20060102"), suffix), nil
}
