// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"errors"

	"github.com/wuwei-labs/antegen-sub001/chain"
)

// IsAccountNotFound reports whether err represents the "account has not
// been created on chain yet" condition, which get_or_fetch retries with
// backoff rather than treating as a fatal lookup failure (spec §4.C).
func IsAccountNotFound(err error) bool {
	return errors.Is(err, chain.ErrAccountNotFound)
}
