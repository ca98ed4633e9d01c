// Package feature holds the flag model consumed by the evaluation engine.
//
// A Flag carries a base enabled state, typed Attributes and optional
// RolloutOptions. Attributes are a map of Value, a small sum type over bool,
// string, string list and number. Four keys are reserved and read by the
// engine during user-scoped evaluation:
//
//   - KillSwitch (bool)
//   - Enabled (bool, global override)
//   - AllowList (string list of user ids)
//   - DenyList (string list of user ids)
//
// Every other key is opaque. A reserved key holding the wrong kind is treated as
// absent by the accessors and reported by Attributes.Validate.
//
// # Providers
//
// Provider is the base-state source. MemoryProvider is the in-process
// implementation; it copies flags on write and on read so callers never share
// state with it:
//
//	provider, err := feature.NewMemoryProvider(&feature.Flag{
//		Name:    "beta",
//		Enabled: true,
//		Attributes: feature.Attributes{
//			feature.AttrAllowList: feature.StringListValue("u1"),
//		},
//		Rollout: &feature.RolloutOptions{Percentage: feature.Percent(25)},
//	})
//
// # Rollout buckets
//
// Bucket hashes a user id together with a feature name into [0, 100) with
// SHA-256. The mapping has no seed, so the same pair lands in the same bucket on
// every process and raising the percentage only ever adds users.
//
// # Definitions file
//
// LoadFile and Decode read flags from YAML:
//
//	features:
//	  - name: beta
//	    enabled: true
//	    tags: [web]
//	    attributes:
//	      KillSwitch: false
//	      DenyList: [u9]
//	      Owner: growth
//	    rollout:
//	      percentage: 50
//	      specific_user_groups: [staff]
package feature
