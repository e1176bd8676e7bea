// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package require provides the fatal test assertions used throughout the
// driver test suites, mirroring the assert package.
package require

import (
	"github.com/stretchr/testify/require"
)

// TestingT is the subset of testing.T the assertions need.
type TestingT = require.TestingT

// Nil requires that the specified object is nil.
func Nil(t TestingT, object interface{}, msgAndArgs ...interface{}) {
	require.Nil(t, object, msgAndArgs...)
}

// NotNil requires that the specified object is not nil.
func NotNil(t TestingT, object interface{}, msgAndArgs ...interface{}) {
	require.NotNil(t, object, msgAndArgs...)
}

// NoError requires that err is nil.
func NoError(t TestingT, err error, msgAndArgs ...interface{}) {
	require.NoError(t, err, msgAndArgs...)
}

// Equal requires that two objects are equal.
func Equal(t TestingT, expected, actual interface{}, msgAndArgs ...interface{}) {
	require.Equal(t, expected, actual, msgAndArgs...)
}

// True requires that the specified value is true.
func True(t TestingT, value bool, msgAndArgs ...interface{}) {
	require.True(t, value, msgAndArgs...)
}

// False requires that the specified value is false.
func False(t TestingT, value bool, msgAndArgs ...interface{}) {
	require.False(t, value, msgAndArgs...)
}

// ErrorIs requires that errors.Is(err, target) returns true.
func ErrorIs(t TestingT, err, target error, msgAndArgs ...interface{}) {
	require.ErrorIs(t, err, target, msgAndArgs...)
}
