package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCardExpiredAt(t *testing.T) {
	now := time.Date(2026, 9, 1, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		status     CardStatus
		expiration time.Time
		want       bool
	}{
		{
			name:       "active with future date",
			status:     CardStatusActive,
			expiration: now.AddDate(1, 0, 0),
			want:       false,
		},
		{
			name:       "expires today is still usable",
			status:     CardStatusActive,
			expiration: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
			want:       false,
		},
		{
			name:       "expired yesterday",
			status:     CardStatusActive,
			expiration: time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
			want:       true,
		},
		{
			name:       "stored EXPIRED status wins over future date",
			status:     CardStatusExpired,
			expiration: now.AddDate(1, 0, 0),
			want:       true,
		},
		{
			name:       "blocked card with past date reads expired",
			status:     CardStatusBlocked,
			expiration: now.AddDate(0, -1, 0),
			want:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := &Card{Status: tt.status, ExpirationDate: tt.expiration}
			assert.Equal(t, tt.want, card.ExpiredAt(now))
		})
	}
}

func TestCardExpiredAtUsesUTCDay(t *testing.T) {
	// Dates are stored at UTC midnight; the server's local calendar day
	// must not shift the answer in either direction.
	card := &Card{
		Status:         CardStatusActive,
		ExpirationDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}

	t.Run("local day ahead of UTC", func(t *testing.T) {
		// 2026-09-02 01:00 at UTC+14 is still 2026-09-01 in UTC.
		now := time.Date(2026, 9, 2, 1, 0, 0, 0, time.FixedZone("UTC+14", 14*3600))
		assert.False(t, card.ExpiredAt(now))
	})

	t.Run("local day behind UTC", func(t *testing.T) {
		// 2026-09-01 23:00 at UTC-11 is 2026-09-02 10:00 in UTC, one day
		// past the expiration date.
		now := time.Date(2026, 9, 1, 23, 0, 0, 0, time.FixedZone("UTC-11", -11*3600))
		assert.True(t, card.ExpiredAt(now))
	})
}
