package bookings

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// generateBookingCode returns prefix + yyyymmdd + 4 random digits, falling
// back to a timestamp-derived suffix once the attempts are used up.
func (s *service) generateBookingCode(ctx context.Context, now time.Time) (string, error) {
	base := s.codePrefix + now.In(s.loc).Format("20060102")

	for attempt := 0; attempt < s.codeMaxAttempts; attempt++ {
		digits, err := s.randomDigits(4)
		if err != nil {
			return "", fmt.Errorf("failed to generate booking code: %w", err)
		}
		code := base + digits
		exists, err := s.Repo.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}

	return fmt.Sprintf("%s%09d", base, now.UnixNano()/int64(time.Microsecond)%1_000_000_000), nil
}

// generateOrderCode returns a numeric gateway reference: unix millis + 4
// random digits, or unix micros once the attempts are used up.
func (s *service) generateOrderCode(ctx context.Context, now time.Time) (string, error) {
	for attempt := 0; attempt < s.codeMaxAttempts; attempt++ {
		digits, err := s.randomDigits(4)
		if err != nil {
			return "", fmt.Errorf("failed to generate order code: %w", err)
		}
		code := fmt.Sprintf("%d%s", now.UnixMilli(), digits)
		_, err = s.Repo.GetByOrderCode(ctx, code)
		if errors.Is(err, ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%d", now.UnixMicro()), nil
}

func cryptoDigits(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
