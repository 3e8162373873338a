// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package job

import (
	"errors"
	"fmt"

	"github.com/Quandela/Perceval-Interop/lib/ledger"
)

// resolveJob turns a user-supplied job reference into a platform job
// id, consulting the ledger for names and id prefixes. The reference
// "last" means the most recent submission. A reference the ledger does
// not know is passed through verbatim, so jobs submitted from another
// machine still work by full id. The ledger entry is returned when one
// exists; ambiguous prefixes are an error.
func resolveJob(ldg *ledger.Ledger, reference string) (string, *ledger.Entry, error) {
	if reference == "last" {
		entry, err := ldg.Last()
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return "", nil, fmt.Errorf("no jobs in the ledger yet (submit one first)")
			}
			return "", nil, err
		}
		return entry.JobID, entry, nil
	}

	entry, err := ldg.Find(reference)
	if err == nil {
		return entry.JobID, entry, nil
	}
	if errors.Is(err, ledger.ErrNotFound) {
		return reference, nil, nil
	}
	return "", nil, err
}
