// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package httpapi

import (
	"errors"

	"github.com/samber/oops"
)

// errCode extracts the machine-readable code from a service error.
// Returns empty string for plain errors or non-string codes.
func errCode(err error) string {
	var oopsErr oops.OopsError
	if errors.As(err, &oopsErr) {
		code, _ := oopsErr.Code().(string)
		return code
	}
	return ""
}
