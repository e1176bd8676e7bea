// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package options defines the option types for configuring clients, sessions,
// and transactions.
package options

// ClientOptions represents options that can be used to configure a Client.
type ClientOptions struct {
	// LoggerOptions configures the client's logger.
	LoggerOptions *LoggerOptions
}

// Client creates a new ClientOptions instance.
func Client() *ClientOptions {
	return &ClientOptions{}
}

// SetLoggerOptions sets the value for the LoggerOptions field.
func (c *ClientOptions) SetLoggerOptions(opts *LoggerOptions) *ClientOptions {
	c.LoggerOptions = opts
	return c
}

// MergeClientOptions combines the given ClientOptions instances into a single
// ClientOptions in a last-one-wins fashion.
func MergeClientOptions(opts ...*ClientOptions) *ClientOptions {
	c := Client()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if opt.LoggerOptions != nil {
			c.LoggerOptions = opt.LoggerOptions
		}
	}

	return c
}
