/*
 * Copyright 2017-2022 Provide Technologies Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package common

import "errors"

var (
	// ErrUnknownStrategy is returned when the requested ledger strategy is not registered
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrStrategyExists is returned when registering a strategy id twice
	ErrStrategyExists = errors.New("strategy already exists")

	// ErrSourceUnavailable is returned when a ledger state provider fails to deliver states
	ErrSourceUnavailable = errors.New("ledger state source unavailable")

	// ErrIntegrityMismatch is returned when a recomputed merkle root disagrees with the embedded root
	ErrIntegrityMismatch = errors.New("integrity mismatch")

	// ErrInvalidSignature is returned when a view envelope signature does not verify against its creator
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInsufficientViews is returned when fewer than two serialized views are given for merging
	ErrInsufficientViews = errors.New("at least two views are required")

	// ErrUnknownPolicy is returned when a privacy or merge policy id is not registered
	ErrUnknownPolicy = errors.New("unknown policy")

	// ErrInvalidPolicyArguments is returned when a policy is applied with too few arguments
	ErrInvalidPolicyArguments = errors.New("invalid policy arguments")

	// ErrInvalidTimestamp is returned when a timestamp is not a base-10 integer
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)
