// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package redaction masks personal data before it reaches logs.
package redaction

import "strings"

const mask = "***"

// RedactEmail keeps the first character of the local part and the full domain,
// e.g. "jane.doe@example.com" becomes "j***@example.com". Values that are not
// shaped like an address are masked entirely.
func RedactEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return ""
	}

	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return mask
	}

	return email[:1] + mask + email[at:]
}

// RedactEmails applies RedactEmail to every element.
func RedactEmails(emails []string) []string {
	out := make([]string, len(emails))
	for i, e := range emails {
		out[i] = RedactEmail(e)
	}
	return out
}
