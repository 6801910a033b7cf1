// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

// Account discriminators (spec §4.E "the discriminator identifies a
// thread"). The concrete on-chain program is a collaborator this client
// only consumes (spec §1 "Out of scope"), so its exact IDL is not
// available here; these follow the Anchor convention every program in
// this ecosystem uses and are load-bearing only for this client's own
// dispatch, not for parsing a foreign deployment's bytes.
var (
	ThreadDiscriminator       = anchorDiscriminator("Thread")
	FiberDiscriminator        = anchorDiscriminator("Fiber")
	ThreadConfigDiscriminator = anchorDiscriminator("ThreadConfig")
)

// IsThreadAccount reports whether data carries the Thread discriminator.
func IsThreadAccount(data []byte) bool {
	return Discriminator(data) == ThreadDiscriminator
}

// IsFiberAccount reports whether data carries the Fiber discriminator.
func IsFiberAccount(data []byte) bool {
	return Discriminator(data) == FiberDiscriminator
}

// IsThreadConfigAccount reports whether data carries the ThreadConfig
// discriminator.
func IsThreadConfigAccount(data []byte) bool {
	return Discriminator(data) == ThreadConfigDiscriminator
}

// --- Trigger ---

func encodeTrigger(w *borshWriter, t Trigger) {
	w.u8(uint8(t.Kind))
	switch t.Kind {
	case TriggerNow:
	case TriggerCron:
		w.str(t.CronSchedule)
		w.i64(t.JitterBound)
		w.boolean(t.Skippable)
	case TriggerInterval:
		w.i64(t.IntervalSeconds)
		w.i64(t.JitterBound)
		w.boolean(t.Skippable)
	case TriggerTimestamp:
		w.i64(t.UnixTimestamp)
	case TriggerSlot:
		w.u64(t.TargetSlot)
	case TriggerEpoch:
		w.u64(t.TargetEpoch)
	case TriggerAccount:
		pk, _ := AddressToPubkey(t.WatchAddress)
		w.fixed(pk[:])
		w.u32(t.Offset)
		w.u32(t.Size)
	}
}

func decodeTrigger(r *borshReader) (Trigger, error) {
	kind, err := r.u8()
	if err != nil {
		return Trigger{}, err
	}
	t := Trigger{Kind: TriggerKind(kind)}
	switch t.Kind {
	case TriggerNow:
	case TriggerCron:
		if t.CronSchedule, err = r.str(); err != nil {
			return Trigger{}, err
		}
		if t.JitterBound, err = r.i64(); err != nil {
			return Trigger{}, err
		}
		if t.Skippable, err = r.boolean(); err != nil {
			return Trigger{}, err
		}
	case TriggerInterval:
		if t.IntervalSeconds, err = r.i64(); err != nil {
			return Trigger{}, err
		}
		if t.JitterBound, err = r.i64(); err != nil {
			return Trigger{}, err
		}
		if t.Skippable, err = r.boolean(); err != nil {
			return Trigger{}, err
		}
	case TriggerTimestamp:
		if t.UnixTimestamp, err = r.i64(); err != nil {
			return Trigger{}, err
		}
	case TriggerSlot:
		if t.TargetSlot, err = r.u64(); err != nil {
			return Trigger{}, err
		}
	case TriggerEpoch:
		if t.TargetEpoch, err = r.u64(); err != nil {
			return Trigger{}, err
		}
	case TriggerAccount:
		raw, err := r.bytesN(32)
		if err != nil {
			return Trigger{}, err
		}
		var pk Pubkey
		copy(pk[:], raw)
		t.WatchAddress = pk.Address()
		if t.Offset, err = r.u32(); err != nil {
			return Trigger{}, err
		}
		if t.Size, err = r.u32(); err != nil {
			return Trigger{}, err
		}
	default:
		return Trigger{}, ErrUnknownTriggerKind
	}
	return t, nil
}

// --- Schedule ---

func encodeSchedule(w *borshWriter, s Schedule) {
	w.u8(uint8(s.Kind))
	w.i64(s.Prev)
	w.i64(s.Next)
	w.u64(s.PrevHash)
}

func decodeSchedule(r *borshReader) (Schedule, error) {
	kind, err := r.u8()
	if err != nil {
		return Schedule{}, err
	}
	s := Schedule{Kind: ScheduleKind(kind)}
	if s.Kind > ScheduleOnChange {
		return Schedule{}, ErrUnknownScheduleKind
	}
	if s.Prev, err = r.i64(); err != nil {
		return Schedule{}, err
	}
	if s.Next, err = r.i64(); err != nil {
		return Schedule{}, err
	}
	if s.PrevHash, err = r.u64(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}

// --- AccountMeta / Fiber ---

func encodeAccountMeta(w *borshWriter, m AccountMeta) {
	w.fixed(m.Pubkey[:])
	w.boolean(m.IsSigner)
	w.boolean(m.IsWritable)
}

func decodeAccountMeta(r *borshReader) (AccountMeta, error) {
	raw, err := r.bytesN(32)
	if err != nil {
		return AccountMeta{}, err
	}
	var m AccountMeta
	copy(m.Pubkey[:], raw)
	if m.IsSigner, err = r.boolean(); err != nil {
		return AccountMeta{}, err
	}
	if m.IsWritable, err = r.boolean(); err != nil {
		return AccountMeta{}, err
	}
	return m, nil
}

func encodeFiberFields(w *borshWriter, f Fiber) {
	pk, _ := AddressToPubkey(f.ProgramID)
	w.fixed(pk[:])
	w.u32(uint32(len(f.Accounts)))
	for _, m := range f.Accounts {
		encodeAccountMeta(w, m)
	}
	w.bytes(f.Data)
	w.u64(f.PriorityFee)
}

func decodeFiberFields(r *borshReader) (Fiber, error) {
	raw, err := r.bytesN(32)
	if err != nil {
		return Fiber{}, err
	}
	var pk Pubkey
	copy(pk[:], raw)

	n, err := r.u32()
	if err != nil {
		return Fiber{}, err
	}
	accounts := make([]AccountMeta, 0, n)
	for i := uint32(0); i < n; i++ {
		m, err := decodeAccountMeta(r)
		if err != nil {
			return Fiber{}, err
		}
		accounts = append(accounts, m)
	}

	data, err := r.bytes()
	if err != nil {
		return Fiber{}, err
	}
	fee, err := r.u64()
	if err != nil {
		return Fiber{}, err
	}
	return Fiber{ProgramID: pk.Address(), Accounts: accounts, Data: data, PriorityFee: fee}, nil
}

// EncodeFiberAccount serializes f as a standalone Fiber account (used when
// a thread's fiber is a separate account addressed by (thread, index)
// rather than an inline default fiber), discriminator-prefixed.
func EncodeFiberAccount(f Fiber) []byte {
	w := &borshWriter{}
	w.fixed(FiberDiscriminator[:])
	encodeFiberFields(w, f)
	return w.buf
}

// DecodeFiberAccount parses a standalone Fiber account.
func DecodeFiberAccount(data []byte) (Fiber, error) {
	if !IsFiberAccount(data) {
		return Fiber{}, ErrWrongDiscriminator
	}
	r := &borshReader{buf: data, pos: 8}
	return decodeFiberFields(r)
}

// --- Thread ---

// EncodeThread serializes t into the account-data layout DecodeThread
// expects. It exists primarily so tests can construct fixtures without
// hand-assembling bytes; the executor itself never writes thread accounts.
func EncodeThread(t Thread) []byte {
	w := &borshWriter{}
	w.fixed(ThreadDiscriminator[:])
	authorityPk, _ := AddressToPubkey(t.Authority)
	w.fixed(authorityPk[:])
	w.str(t.ID)
	w.u8(t.Bump)
	encodeTrigger(w, t.Trigger)
	encodeSchedule(w, t.Schedule)
	w.u32(uint32(len(t.FiberIDs)))
	for _, id := range t.FiberIDs {
		w.u32(id)
	}
	w.u32(t.FiberCursor)
	if t.DefaultFiber != nil {
		w.boolean(true)
		encodeFiberFields(w, *t.DefaultFiber)
	} else {
		w.boolean(false)
	}
	w.fixed(t.LastExecutor[:])
	w.i64(t.LastErrorTime)
	w.boolean(t.Paused)
	if t.NonceAccount != "" {
		w.boolean(true)
		pk, _ := AddressToPubkey(t.NonceAccount)
		w.fixed(pk[:])
	} else {
		w.boolean(false)
	}
	return w.buf
}

// DecodeThread parses a Thread account's data. address is the account's
// own pubkey (a PDA derived from authority+id, so it is not itself part
// of the serialized payload).
func DecodeThread(address Address, data []byte) (*Thread, error) {
	if !IsThreadAccount(data) {
		return nil, ErrWrongDiscriminator
	}
	r := &borshReader{buf: data, pos: 8}

	authorityRaw, err := r.bytesN(32)
	if err != nil {
		return nil, err
	}
	var authorityPk Pubkey
	copy(authorityPk[:], authorityRaw)

	t := &Thread{Address: address, Authority: authorityPk.Address()}

	if t.ID, err = r.str(); err != nil {
		return nil, err
	}
	if t.Bump, err = r.u8(); err != nil {
		return nil, err
	}
	if t.Trigger, err = decodeTrigger(r); err != nil {
		return nil, err
	}
	if t.Schedule, err = decodeSchedule(r); err != nil {
		return nil, err
	}

	fiberCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	t.FiberIDs = make([]uint32, 0, fiberCount)
	for i := uint32(0); i < fiberCount; i++ {
		id, err := r.u32()
		if err != nil {
			return nil, err
		}
		t.FiberIDs = append(t.FiberIDs, id)
	}

	if t.FiberCursor, err = r.u32(); err != nil {
		return nil, err
	}

	hasDefault, err := r.boolean()
	if err != nil {
		return nil, err
	}
	if hasDefault {
		f, err := decodeFiberFields(r)
		if err != nil {
			return nil, err
		}
		t.DefaultFiber = &f
	}

	lastExecRaw, err := r.bytesN(32)
	if err != nil {
		return nil, err
	}
	copy(t.LastExecutor[:], lastExecRaw)

	if t.LastErrorTime, err = r.i64(); err != nil {
		return nil, err
	}
	if t.Paused, err = r.boolean(); err != nil {
		return nil, err
	}

	hasNonce, err := r.boolean()
	if err != nil {
		return nil, err
	}
	if hasNonce {
		nonceRaw, err := r.bytesN(32)
		if err != nil {
			return nil, err
		}
		var noncePk Pubkey
		copy(noncePk[:], nonceRaw)
		t.NonceAccount = noncePk.Address()
	}

	return t, nil
}

// --- ThreadConfig ---

// EncodeThreadConfig serializes the global fee-schedule account, for test
// fixtures.
func EncodeThreadConfig(c ThreadConfig) []byte {
	w := &borshWriter{}
	w.fixed(ThreadConfigDiscriminator[:])
	w.u64(c.CommissionFeeLamports)
	w.u16(c.ExecutorFeeBps)
	w.u16(c.CoreTeamBps)
	w.i64(c.GracePeriodSeconds)
	w.i64(c.FeeDecaySeconds)
	w.boolean(c.Paused)
	pk, _ := AddressToPubkey(c.Admin)
	w.fixed(pk[:])
	return w.buf
}

// DecodeThreadConfig parses the global fee-schedule account's data.
func DecodeThreadConfig(data []byte) (*ThreadConfig, error) {
	if !IsThreadConfigAccount(data) {
		return nil, ErrWrongDiscriminator
	}
	r := &borshReader{buf: data, pos: 8}

	c := &ThreadConfig{}
	var err error
	if c.CommissionFeeLamports, err = r.u64(); err != nil {
		return nil, err
	}
	if c.ExecutorFeeBps, err = r.u16(); err != nil {
		return nil, err
	}
	if c.CoreTeamBps, err = r.u16(); err != nil {
		return nil, err
	}
	if c.GracePeriodSeconds, err = r.i64(); err != nil {
		return nil, err
	}
	if c.FeeDecaySeconds, err = r.i64(); err != nil {
		return nil, err
	}
	if c.Paused, err = r.boolean(); err != nil {
		return nil, err
	}
	adminRaw, err := r.bytesN(32)
	if err != nil {
		return nil, err
	}
	var adminPk Pubkey
	copy(adminPk[:], adminRaw)
	c.Admin = adminPk.Address()
	return c, nil
}
