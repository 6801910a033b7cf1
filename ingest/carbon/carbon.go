// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package carbon is the indexer-subscription ingestion adapter variant
// (spec §4.D variant 2): a gRPC stream to a Yellowstone-style geyser
// indexer, filtered to the thread program's accounts plus the clock
// sysvar.
package carbon

import (
	"context"
	"time"

	"github.com/mr-tron/base58"
	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/wuwei-labs/antegen-sub001/chain"
	"github.com/wuwei-labs/antegen-sub001/ingest"
	"github.com/wuwei-labs/antegen-sub001/log"
	"github.com/wuwei-labs/antegen-sub001/rpcpool"
)

// Config configures the gRPC indexer connection (spec §6, `datasources`
// section).
type Config struct {
	Endpoint       string
	Token          string
	ProgramID      chain.Address
	UseTLS         bool
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig mirrors the reference adapter's reconnect defaults.
func DefaultConfig() Config {
	return Config{InitialBackoff: 500 * time.Millisecond, MaxBackoff: 30 * time.Second}
}

// Source implements ingest.Source.
type Source struct {
	cfg  Config
	pool *rpcpool.Pool

	stop chan struct{}
	done chan struct{}
}

func New(cfg Config, pool *rpcpool.Pool) *Source {
	return &Source{cfg: cfg, pool: pool, stop: make(chan struct{}), done: make(chan struct{})}
}

var _ ingest.Source = (*Source)(nil)

func (s *Source) Start(ctx context.Context, out chan<- chain.AccountUpdate) error {
	if err := ingest.SeedClock(ctx, s.pool, out); err != nil {
		log.Warn("carbon: initial clock seed failed", "err", err)
	}
	go s.run(ctx, out)
	return nil
}

func (s *Source) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
}

func (s *Source) run(ctx context.Context, out chan<- chain.AccountUpdate) {
	defer close(s.done)
	backoff := s.cfg.InitialBackoff

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := s.streamOnce(ctx, out); err != nil {
			log.Warn("carbon: stream dropped, reconnecting", "err", err, "backoff", backoff)
		} else {
			return
		}

		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}
}

func (s *Source) streamOnce(ctx context.Context, out chan<- chain.AccountUpdate) error {
	creds := credentials.NewTLS(nil)
	var dialOpt grpc.DialOption
	if s.cfg.UseTLS {
		dialOpt = grpc.WithTransportCredentials(creds)
	} else {
		dialOpt = grpc.WithTransportCredentials(insecure.NewCredentials())
	}

	conn, err := grpc.NewClient(s.cfg.Endpoint, dialOpt)
	if err != nil {
		return err
	}
	defer conn.Close()

	client := pb.NewGeyserClient(conn)
	streamCtx := ctx
	if s.cfg.Token != "" {
		streamCtx = metadata.AppendToOutgoingContext(ctx, "x-token", s.cfg.Token)
	}

	stream, err := client.Subscribe(streamCtx)
	if err != nil {
		return err
	}

	commitment := pb.CommitmentLevel_CONFIRMED
	req := &pb.SubscribeRequest{
		Accounts: map[string]*pb.SubscribeRequestFilterAccounts{
			"thread_program": {Owner: []string{string(s.cfg.ProgramID)}},
			"clock_sysvar":   {Account: []string{string(chain.ClockSysvarAddress)}},
		},
		Commitment: &commitment,
	}
	if err := stream.Send(req); err != nil {
		return err
	}

	for {
		update, err := stream.Recv()
		if err != nil {
			return err
		}
		au, ok := decodeUpdate(update, s.cfg.ProgramID)
		if !ok {
			continue
		}
		select {
		case out <- au:
		case <-ctx.Done():
			return nil
		}
	}
}

func decodeUpdate(u *pb.SubscribeUpdate, programID chain.Address) (chain.AccountUpdate, bool) {
	acct := u.GetAccount()
	if acct == nil || acct.Account == nil {
		return chain.AccountUpdate{}, false
	}
	info := acct.Account
	return chain.AccountUpdate{
		Address: chain.Address(base58.Encode(info.Pubkey)),
		Owner:   chain.Address(base58.Encode(info.Owner)),
		Data:    info.Data,
		Slot:    acct.Slot,
	}, true
}
