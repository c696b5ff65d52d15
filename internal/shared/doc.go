// Package shared holds helpers used across the internal packages that do not
// belong to any one layer.
//
// # Test Utilities
//
// The testutil subpackage captures slog output so tests can assert on what
// a component logged:
//
//	logger, logs := testutil.NewTestLogger(t)
//	handler := apierrors.NewErrorHandler(logger, false)
//	...
//	testutil.AssertLogContains(t, logs, slog.LevelError, "request failed")
package shared
