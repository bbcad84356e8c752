// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transformer

import "errors"

var (
	// ErrProviderUnavailable marks an adapter with no credentials or a
	// provider returning hard failures.
	ErrProviderUnavailable = errors.New("transformer: provider unavailable")

	// ErrProviderTimeout marks a request that exhausted its deadline and
	// retries.
	ErrProviderTimeout = errors.New("transformer: provider timeout")

	// ErrProviderInput marks a 4xx-class rejection; retrying the same
	// payload will not help.
	ErrProviderInput = errors.New("transformer: provider rejected input")
)
