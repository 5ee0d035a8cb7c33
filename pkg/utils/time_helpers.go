// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package utils provides utility functions for the messaging sync service.
package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/constants"
)

// ValidateRFC3339 validates that a timestamp string is in RFC3339 format.
// Returns the parsed time.Time and nil error if valid, or zero time and error if invalid.
func ValidateRFC3339(timestamp string) (time.Time, error) {
	if timestamp == "" {
		return time.Time{}, fmt.Errorf(constants.ErrEmptyTimestamp)
	}

	t, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", constants.ErrInvalidTimestampFormat, err)
	}

	return t, nil
}

// ParseEpochMillis parses a decimal string of milliseconds since the Unix epoch.
// Providers such as Gmail report message dates this way.
func ParseEpochMillis(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf(constants.ErrEmptyTimestamp)
	}

	millis, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", constants.ErrInvalidEpochMillis, err)
	}
	if millis < 0 {
		return 0, fmt.Errorf("%s: %d", constants.ErrInvalidEpochMillis, millis)
	}

	return millis, nil
}

// EpochMillisToTime converts milliseconds since the Unix epoch into a UTC time.
func EpochMillisToTime(millis int64) time.Time {
	return time.UnixMilli(millis).UTC()
}

// FormatTimePtr formats a time.Time pointer as an RFC3339 string pointer.
// Returns nil if the input is nil.
func FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}

	formatted := t.Format(constants.TimestampFormat)
	return &formatted
}
