// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package doctor

import (
	"context"
	"errors"
	"fmt"
	"syscall"
)

// ExecuteFixes applies the fix closure of every fixable failure in
// results, mutating statuses and messages in place. Dry-run mode
// executes nothing and returns a zero Outcome.
func ExecuteFixes(ctx context.Context, results []Result, dryRun bool) Outcome {
	if dryRun {
		return Outcome{}
	}

	var outcome Outcome
	for i := range results {
		result := &results[i]
		if result.Status != StatusFail || result.fix == nil {
			continue
		}

		err := result.fix(ctx)
		switch {
		case err == nil:
			result.Status = StatusFixed
			outcome.FixedCount++
		case errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES):
			outcome.PermissionDenied = true
			result.Message = fmt.Sprintf("%s (insufficient permissions)", result.Message)
		default:
			result.Message = fmt.Sprintf("%s (fix failed: %v)", result.Message, err)
		}
	}
	return outcome
}
