// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcsub

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wuwei-labs/antegen-sub001/chain"
)

func TestDecodeNotificationClock(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("clockdata"))
	raw, err := json.Marshal(accountNotificationResult{
		Context: struct {
			Slot uint64 `json:"slot"`
		}{Slot: 7},
		Value: accountValue{
			Lamports: 1,
			Owner:    "Sysvar1111111111111111111111111111111111",
			Data:     []interface{}{payload, "base64"},
		},
	})
	require.NoError(t, err)

	update, err := decodeNotification(subClock, raw, "ProgramId11111111111111111111111111111111")
	require.NoError(t, err)
	require.Equal(t, chain.ClockSysvarAddress, update.Address)
	require.Equal(t, []byte("clockdata"), update.Data)
	require.Equal(t, uint64(7), update.Slot)
}

func TestDecodeNotificationProgramAccount(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("threaddata"))
	raw, err := json.Marshal(programNotificationResult{
		Context: struct {
			Slot uint64 `json:"slot"`
		}{Slot: 99},
		Value: struct {
			Pubkey  string       `json:"pubkey"`
			Account accountValue `json:"account"`
		}{
			Pubkey: "Thread1111111111111111111111111111111111",
			Account: accountValue{
				Lamports: 2,
				Owner:    "Program1111111111111111111111111111111111",
				Data:     []interface{}{payload, "base64"},
			},
		},
	})
	require.NoError(t, err)

	programID := chain.Address("Program1111111111111111111111111111111111")
	update, err := decodeNotification(subProgram, raw, programID)
	require.NoError(t, err)
	require.Equal(t, chain.Address("Thread1111111111111111111111111111111111"), update.Address)
	require.Equal(t, programID, update.Owner)
	require.Equal(t, []byte("threaddata"), update.Data)
	require.Equal(t, uint64(99), update.Slot)
}

func TestDecodeBase64PairEmpty(t *testing.T) {
	data, err := decodeBase64Pair(nil)
	require.NoError(t, err)
	require.Nil(t, data)
}
