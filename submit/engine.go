// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package submit

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"

	"github.com/wuwei-labs/antegen-sub001/chain"
	"github.com/wuwei-labs/antegen-sub001/log"
	"github.com/wuwei-labs/antegen-sub001/rpcpool"
	"github.com/wuwei-labs/antegen-sub001/tpu"
)

// Engine is the submission engine described in spec §4.H: simulate, sign,
// send, confirm, retry.
type Engine struct {
	cfg    Config
	pool   *rpcpool.Pool
	tpu    *tpu.Client // nil disables TPU sending entirely
	signer solana.PrivateKey
}

// New constructs an Engine. tpuClient may be nil if the TPU client is
// disabled in configuration, in which case Mode is forced to ModeRPCOnly.
func New(cfg Config, pool *rpcpool.Pool, tpuClient *tpu.Client, signer solana.PrivateKey) *Engine {
	if tpuClient == nil {
		cfg.Mode = ModeRPCOnly
	}
	return &Engine{cfg: cfg, pool: pool, tpu: tpuClient, signer: signer}
}

// BuildInput carries everything Engine.SubmitAndConfirm needs to compile
// a transaction (spec §4.H "Pre-send").
type BuildInput struct {
	Instructions   []solana.Instruction
	PriorityFeeMicroLamports uint64
	NonceAccount   chain.Address // empty means use a recent blockhash
	TargetLevel    CommitmentLevel
}

// SubmitAndConfirm runs the full pre-send/send/confirm/retry pipeline for
// one logical submission attempt (spec §4.H). It is the sole entry point
// scheduler actors use; a thread actor never touches RPC or TPU directly.
func (e *Engine) SubmitAndConfirm(ctx context.Context, in BuildInput) (Result, error) {
	var lastResult Result
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		result, retryable, err := e.attempt(ctx, in)
		if err != nil {
			return Result{}, err
		}
		lastResult = result

		switch result.Status {
		case StatusConfirmed, StatusAlreadyProcessed:
			return result, nil
		case StatusFailed:
			if !retryable {
				return result, nil
			}
		case StatusExpired:
			// always retryable, per spec §4.H "Retries"
		}

		if attempt == e.cfg.MaxRetries {
			break
		}
		log.Debug("submit: retrying", "attempt", attempt+1, "status", result.Status.String())
	}
	return lastResult, nil
}

// attempt performs one simulate→sign→send→confirm cycle with a fresh
// blockhash/nonce, per spec §4.H "each attempt a fresh blockhash and
// fresh send".
func (e *Engine) attempt(ctx context.Context, in BuildInput) (Result, bool, error) {
	instructions := e.withComputeBudget(in)

	blockhashOrNonce, err := e.fetchRecentBlockhashOrNonce(ctx, in.NonceAccount)
	if err != nil {
		return Result{}, false, err
	}

	tx, err := solana.NewTransaction(instructions, blockhashOrNonce, solana.TransactionPayer(e.signer.PublicKey()))
	if err != nil {
		return Result{}, false, err
	}

	if e.cfg.SimulateBeforeSubmit {
		if simErr := e.simulate(ctx, tx); simErr != nil {
			return Result{Status: StatusFailed, Err: simErr.Error()}, false, nil
		}
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(e.signer.PublicKey()) {
			return &e.signer
		}
		return nil
	}); err != nil {
		return Result{}, false, ErrSignerMismatch
	}

	wireTx, err := tx.MarshalBinary()
	if err != nil {
		return Result{}, false, err
	}
	sig := chain.Signature(tx.Signatures[0].String())

	if sendErr := e.send(ctx, tx, wireTx); sendErr != nil {
		retryable := isRetryableSendError(sendErr.Error())
		if isAlreadyProcessed(sendErr.Error()) {
			return Result{Signature: sig, Status: StatusAlreadyProcessed}, false, nil
		}
		return Result{Signature: sig, Status: StatusFailed, Err: sendErr.Error()}, retryable, nil
	}

	result := e.confirm(ctx, sig, in.TargetLevel)
	return result, result.Status == StatusFailed && isRetryableSendError(result.Err), nil
}

// withComputeBudget prepends SetComputeUnitLimit/SetComputeUnitPrice
// instructions ahead of the caller's instructions (spec §4.H step 1-2).
// The exact unit limit is refined after simulation in a production
// pipeline; here it is bounded by MaxComputeUnits up front and is not
// re-simulated a second time, matching the reference submitter's
// single-simulation-pass behavior.
func (e *Engine) withComputeBudget(in BuildInput) []solana.Instruction {
	limit := e.cfg.MaxComputeUnits
	budget := []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstructionBuilder().SetUnits(limit).Build(),
	}
	if in.PriorityFeeMicroLamports > 0 {
		budget = append(budget, computebudget.NewSetComputeUnitPriceInstructionBuilder().SetMicroLamports(in.PriorityFeeMicroLamports).Build())
	}
	return append(budget, in.Instructions...)
}

func (e *Engine) simulate(ctx context.Context, tx *solana.Transaction) error {
	wire, err := tx.MarshalBinary()
	if err != nil {
		return err
	}
	encoded := base64.StdEncoding.EncodeToString(wire)

	var reply struct {
		Value struct {
			Err  interface{} `json:"err"`
			Logs []string    `json:"logs"`
		} `json:"value"`
	}
	params := []interface{}{encoded, map[string]interface{}{"encoding": "base64", "replaceRecentBlockhash": false}}
	if err := e.pool.Call(ctx, rpcpool.RoleSubmission, "simulateTransaction", params, &reply); err != nil {
		return err
	}
	if reply.Value.Err != nil {
		return fmt.Errorf("%w: %v logs=%v", ErrSimulationFailed, reply.Value.Err, reply.Value.Logs)
	}
	return nil
}

func (e *Engine) fetchRecentBlockhashOrNonce(ctx context.Context, nonceAccount chain.Address) (solana.Hash, error) {
	if nonceAccount != "" {
		return e.fetchNonce(ctx, nonceAccount)
	}
	var reply struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	if err := e.pool.Call(ctx, rpcpool.RoleSubmission, "getLatestBlockhash", nil, &reply); err != nil {
		return solana.Hash{}, err
	}
	return solana.HashFromBase58(reply.Value.Blockhash)
}

// fetchNonce reads a durable nonce account's stored blockhash (spec §6
// "Supplemented features" — durable-nonce transactions). The nonce
// account data layout places the stored blockhash at a fixed offset
// within the nonce state, and this function decodes it from there. The
// account is read directly via getAccountInfo since nonce state changes
// on every use and must never be served from the shared account cache.
func (e *Engine) fetchNonce(ctx context.Context, nonceAccount chain.Address) (solana.Hash, error) {
	var reply struct {
		Value struct {
			Data []string `json:"data"`
		} `json:"value"`
	}
	params := []interface{}{string(nonceAccount), map[string]interface{}{"encoding": "base64"}}
	if err := e.pool.Call(ctx, rpcpool.RoleSubmission, "getAccountInfo", params, &reply); err != nil {
		return solana.Hash{}, err
	}
	if len(reply.Value.Data) == 0 {
		return solana.Hash{}, fmt.Errorf("submit: nonce account %s not found", nonceAccount)
	}
	data, err := base64.StdEncoding.DecodeString(reply.Value.Data[0])
	if err != nil {
		return solana.Hash{}, err
	}
	// NonceState: 4-byte version + 4-byte state + 32-byte authority +
	// 32-byte stored blockhash + 8-byte fee-calculator.
	const blockhashOffset = 40
	if len(data) < blockhashOffset+32 {
		return solana.Hash{}, fmt.Errorf("submit: nonce account %s data too short", nonceAccount)
	}
	var hash solana.Hash
	copy(hash[:], data[blockhashOffset:blockhashOffset+32])
	return hash, nil
}

func (e *Engine) send(ctx context.Context, tx *solana.Transaction, wireTx []byte) error {
	switch e.cfg.Mode {
	case ModeTPUOnly:
		return e.sendTPU(wireTx)
	case ModeTPUWithFallback:
		tpuErr := e.sendTPU(wireTx)
		if tpuErr == nil {
			go e.fallbackAfterDelay(ctx, tx, wireTx)
			return nil
		}
		log.Debug("submit: tpu send failed, falling back to rpc immediately", "err", tpuErr)
		return e.sendRPC(ctx, wireTx)
	default:
		return e.sendRPC(ctx, wireTx)
	}
}

func (e *Engine) sendTPU(wireTx []byte) error {
	if e.tpu == nil || e.tpu.Unavailable() {
		return fmt.Errorf("tpu client unavailable")
	}
	return e.tpu.Send(wireTx)
}

func (e *Engine) sendRPC(ctx context.Context, wireTx []byte) error {
	encoded := base64.StdEncoding.EncodeToString(wireTx)
	var sig string
	params := []interface{}{encoded, map[string]interface{}{"encoding": "base64"}}
	return e.pool.Call(ctx, rpcpool.RoleSubmission, "sendTransaction", params, &sig)
}

// fallbackAfterDelay implements TpuWithFallback's "also schedule an RPC
// send after a short delay unless confirmation arrives" (spec §4.H).
// Confirmation tracking itself happens in the caller's confirm loop; this
// goroutine only guards against a silently dropped TPU send.
func (e *Engine) fallbackAfterDelay(ctx context.Context, tx *solana.Transaction, wireTx []byte) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(e.cfg.FallbackDelay):
	}
	sig := tx.Signatures[0].String()
	status := e.pollOnce(ctx, chain.Signature(sig), CommitmentProcessed)
	if status == StatusPending {
		if err := e.sendRPC(ctx, wireTx); err != nil {
			log.Debug("submit: fallback rpc send failed", "err", err)
		}
	}
}

func (e *Engine) confirm(ctx context.Context, sig chain.Signature, target CommitmentLevel) Result {
	deadline := time.Now().Add(e.cfg.MaxConfirmationTime)
	ticker := time.NewTicker(e.cfg.ConfirmPollInterval)
	defer ticker.Stop()

	for {
		if status := e.pollOnce(ctx, sig, target); status != StatusPending {
			return Result{Signature: sig, Status: status, Level: target}
		}
		if time.Now().After(deadline) {
			return Result{Signature: sig, Status: StatusExpired}
		}
		select {
		case <-ctx.Done():
			return Result{Signature: sig, Status: StatusExpired}
		case <-ticker.C:
		}
	}
}

// pollOnce checks sig's current status, returning StatusConfirmed only
// once the cluster reports a commitment level that meets or exceeds
// target (spec §4.H "terminal success when level meets or exceeds the
// caller's target").
func (e *Engine) pollOnce(ctx context.Context, sig chain.Signature, target CommitmentLevel) Status {
	var reply struct {
		Value []*struct {
			ConfirmationStatus string      `json:"confirmationStatus"`
			Err                interface{} `json:"err"`
		} `json:"value"`
	}
	params := []interface{}{[]string{string(sig)}}
	if err := e.pool.Call(ctx, rpcpool.RoleSubmission, "getSignatureStatuses", params, &reply); err != nil {
		return StatusPending
	}
	if len(reply.Value) == 0 || reply.Value[0] == nil {
		return StatusPending
	}
	st := reply.Value[0]
	if st.Err != nil {
		return StatusFailed
	}
	level, ok := parseCommitmentLevel(st.ConfirmationStatus)
	if !ok || !level.atLeast(target) {
		return StatusPending
	}
	return StatusConfirmed
}

func parseCommitmentLevel(s string) (CommitmentLevel, bool) {
	switch s {
	case "processed":
		return CommitmentProcessed, true
	case "confirmed":
		return CommitmentConfirmed, true
	case "finalized":
		return CommitmentFinalized, true
	default:
		return 0, false
	}
}
