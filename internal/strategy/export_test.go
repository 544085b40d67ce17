// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package strategy

// Test hooks for the external test package.
var (
	OverrideBaseURLs    = overrideBaseURLs
	NewRepositoryServer = newRepositoryServer
)
