package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExportKey(t *testing.T) {
	ts := time.Date(2026, 8, 20, 15, 4, 5, 0, time.UTC)
	key := ExportKey("9d2c6f1e-3b4a-4c5d-8e7f-001122334455", "last_30_days", ts)
	assert.Equal(t, "exports/9d2c6f1e-3b4a-4c5d-8e7f-001122334455/analytics-last_30_days-20260820T150405Z.csv", key)
}

func TestPresignExpireDefault(t *testing.T) {
	s := &S3{cfg: S3Config{}}
	assert.Equal(t, 15*time.Minute, s.PresignExpire())

	s = &S3{cfg: S3Config{PresignExpireMinutes: 60}}
	assert.Equal(t, time.Hour, s.PresignExpire())
}
