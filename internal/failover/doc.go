// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package failover runs a request across an ordered list of regions.
//
// Only transient failures (rate limiting, server faults, timeouts, network
// errors) move on to the next region. Authentication and request errors stop
// at once. A failure after part of a reply was delivered is reported as
// ErrStreamInterrupted rather than retried.
//
// # Usage
//
//	regions := failover.Candidates(cfg.VertexLocation, nil)
//	res, err := failover.NewPolicy().Run(ctx, regions, func(ctx context.Context, region string) (failover.Outcome, error) {
//	    ...
//	})
package failover
