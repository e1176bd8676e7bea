// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ikmak/mongo-driver-core/internal/assert"
	"github.com/ikmak/mongo-driver-core/internal/require"
	"github.com/ikmak/mongo-driver-core/x/mongo/driver/drivertest"
)

func setupTestClient(t *testing.T) (*Client, *drivertest.MockConn) {
	t.Helper()

	conn := &drivertest.MockConn{}
	client, err := NewClient(drivertest.NewMockDeployment(conn))
	require.Nil(t, err, "NewClient error: %v", err)
	return client, conn
}

func commandNames(conn *drivertest.MockConn) []string {
	return conn.CommandNames()
}

func TestConvenientTransactions(t *testing.T) {
	ctx := context.Background()

	t.Run("callback raises custom error", func(t *testing.T) {
		client, conn := setupTestClient(t)

		testErr := errors.New("test error")
		_, err := client.WithTransaction(ctx, func(ctx context.Context) (interface{}, error) {
			return nil, testErr
		})
		assert.Equal(t, testErr, err, "expected error %v, got %v", testErr, err)

		// No command was bound inside the transaction, so the abort is
		// vacuous and nothing reaches the wire.
		names := commandNames(conn)
		assert.Equal(t, 0, len(names), "expected no commands, got %v", names)
	})

	t.Run("callback returns value", func(t *testing.T) {
		client, _ := setupTestClient(t)

		res, err := client.WithTransaction(ctx, func(ctx context.Context) (interface{}, error) {
			return false, nil
		})
		assert.Nil(t, err, "WithTransaction error: %v", err)
		resBool, ok := res.(bool)
		assert.True(t, ok, "expected result type %T, got %T", false, res)
		assert.False(t, resBool, "expected result false, got %v", resBool)
	})

	t.Run("callback error aborts in-progress transaction", func(t *testing.T) {
		client, conn := setupTestClient(t)

		testErr := errors.New("boom")
		_, err := client.WithTransaction(ctx, func(ctx context.Context) (interface{}, error) {
			sess := SessionFromContext(ctx)
			require.NotNil(t, sess, "expected session in context")

			_, _, bindErr := sess.BindCommand(insertCommand("Greta"))
			require.Nil(t, bindErr, "BindCommand error: %v", bindErr)
			return nil, testErr
		})
		assert.Equal(t, testErr, err, "expected error %v, got %v", testErr, err)

		names := commandNames(conn)
		require.Equal(t, 1, len(names), "expected 1 command, got %v", names)
		assert.Equal(t, "abortTransaction", names[0], "expected an abortTransaction, got %v", names)
	})

	t.Run("callback success commits in-progress transaction", func(t *testing.T) {
		client, conn := setupTestClient(t)

		res, err := client.WithTransaction(ctx, func(ctx context.Context) (interface{}, error) {
			sess := SessionFromContext(ctx)
			conn2, cmd, bindErr := sess.BindCommand(insertCommand("Waldo"))
			require.Nil(t, bindErr, "BindCommand error: %v", bindErr)

			_, runErr := conn2.RunCommand(ctx, "test", cmd)
			return "done", runErr
		})
		assert.Nil(t, err, "WithTransaction error: %v", err)
		assert.Equal(t, "done", res, "expected result done, got %v", res)

		names := commandNames(conn)
		require.Equal(t, 2, len(names), "expected 2 commands, got %v", names)
		assert.Equal(t, "insert", names[0], "expected an insert, got %v", names)
		assert.Equal(t, "commitTransaction", names[1], "expected a commitTransaction, got %v", names)
	})

	t.Run("callback panic becomes error", func(t *testing.T) {
		client, _ := setupTestClient(t)

		_, err := client.WithTransaction(ctx, func(ctx context.Context) (interface{}, error) {
			panic("kaboom")
		})
		require.NotNil(t, err, "expected error, got nil")
		assert.True(t, err.Error() == "transaction callback panicked: kaboom",
			"unexpected error message %q", err.Error())
	})

	t.Run("nil callback", func(t *testing.T) {
		client, _ := setupTestClient(t)

		sess, err := client.StartSession(ctx)
		require.Nil(t, err, "StartSession error: %v", err)
		defer sess.EndSession(ctx)

		_, err = sess.WithTransaction(ctx, nil)
		assert.Equal(t, ErrNilCallback, err, "expected error %v, got %v", ErrNilCallback, err)
	})

	t.Run("overall timeout enforced", func(t *testing.T) {
		withTransactionTimeout = 100 * time.Millisecond
		defer func() { withTransactionTimeout = 120 * time.Second }()

		client, _ := setupTestClient(t)

		_, err := client.WithTransaction(ctx, func(ctx context.Context) (interface{}, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
		assert.Equal(t, context.DeadlineExceeded, err, "expected error %v, got %v",
			context.DeadlineExceeded, err)
	})

	t.Run("commit uses transaction write concern", func(t *testing.T) {
		client, conn := setupTestClient(t)

		sess, err := client.StartSession(ctx)
		require.Nil(t, err, "StartSession error: %v", err)
		defer sess.EndSession(ctx)

		err = sess.StartTransaction(transactionOptsW1())
		require.Nil(t, err, "StartTransaction error: %v", err)

		_, cmd, err := sess.BindCommand(insertCommand("Greta"))
		require.Nil(t, err, "BindCommand error: %v", err)
		_, err = conn.RunCommand(ctx, "test", cmd)
		require.Nil(t, err, "RunCommand error: %v", err)

		err = sess.CommitTransaction(ctx)
		require.Nil(t, err, "CommitTransaction error: %v", err)

		calls := conn.Calls()
		require.Equal(t, 2, len(calls), "expected 2 commands, got %d", len(calls))
		commit := calls[1]
		assert.Equal(t, "admin", commit.DB, "expected commit against admin, got %q", commit.DB)

		wcVal, wcErr := commit.Command.LookupErr("writeConcern")
		require.Nil(t, wcErr, "commit missing writeConcern: %v", commit.Command.String())
		wcDoc, ok := wcVal.DocumentOK()
		require.True(t, ok, "expected writeConcern to be a document")
		wVal, wErr := wcDoc.LookupErr("w")
		require.Nil(t, wErr, "writeConcern missing w: %v", wcDoc.String())
		w, _ := wVal.Int32OK()
		assert.Equal(t, int32(1), w, "expected w:1, got %d", w)
	})
}
