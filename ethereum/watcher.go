package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"cosmossdk.io/log"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pascaldekloe/etherstream"

	"github.com/strangelove-ventures/oapp-wirer/address"
	"github.com/strangelove-ventures/oapp-wirer/types"
)

// Drift is an on-chain change to a watched OApp's peer or library settings.
type Drift struct {
	EID       types.EID      `json:"eid"`
	Event     string         `json:"event"`
	OApp      common.Address `json:"oapp"`
	RemoteEID types.EID      `json:"remote_eid"`
	TxHash    string         `json:"tx_hash"`
	Block     uint64         `json:"block"`
}

var driftEvents = []string{"SendLibrarySet", "ReceiveLibrarySet", "ReceiveLibraryTimeoutSet"}

// Watch streams Drift for the given local endpoints until ctx is done. The websocket
// subscription is re-established when it drops.
func (e *Ethereum) Watch(ctx context.Context, logger log.Logger, locals []types.Endpoint, drift chan<- Drift) error {
	if e.wsClient == nil {
		return fmt.Errorf("chain %s has no websocket endpoint configured", e.name)
	}
	if len(locals) == 0 {
		return nil
	}
	logger = logger.With("routine", "Watch", "chain", e.name, "eid", e.eid)

	oapps := make(map[common.Address]struct{}, len(locals))
	for _, local := range locals {
		addr, err := address.ParseEVM(local.Address)
		if err != nil {
			return err
		}
		oapps[addr] = struct{}{}
	}
	endpointAddr, _, err := e.endpointAddress(ctx, locals[0])
	if err != nil {
		return fmt.Errorf("unable to determine endpoint address: %w", err)
	}

	attempt := 1
	for {
		err := e.watchOnce(ctx, logger, oapps, endpointAddr, drift)
		if ctx.Err() != nil {
			return nil
		}
		logger.Error("Connection closed. Restarting...", "attempt", attempt, "err", err)
		attempt++

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}

func (e *Ethereum) watchOnce(
	ctx context.Context,
	logger log.Logger,
	oapps map[common.Address]struct{},
	endpointAddr common.Address,
	drift chan<- Drift,
) error {
	header, err := e.wsClient.HeaderByNumber(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to get latest block height: %w", err)
	}

	addresses := []common.Address{endpointAddr}
	for oapp := range oapps {
		addresses = append(addresses, oapp)
	}
	topics := []common.Hash{oappABI.Events["PeerSet"].ID}
	for _, name := range driftEvents {
		topics = append(topics, endpointABI.Events[name].ID)
	}

	query := ethereum.FilterQuery{
		Addresses: addresses,
		Topics:    [][]common.Hash{topics},
		FromBlock: new(big.Int).Set(header.Number),
	}

	reader := etherstream.Reader{Backend: e.wsClient}
	stream, sub, _, err := reader.QueryWithHistory(ctx, &query)
	if err != nil {
		return fmt.Errorf("unable to subscribe to logs: %w", err)
	}
	defer sub.Unsubscribe()

	logger.Info(fmt.Sprintf("Watching %d oapps from block %d", len(oapps), header.Number.Uint64()))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription closed")
			}
			return err
		case l := <-stream:
			d, ok, err := ParseDriftLog(e.eid, l, oapps)
			if err != nil {
				logger.Error("Unable to parse log, skipping", "tx", l.TxHash.Hex(), "err", err)
				continue
			}
			if !ok {
				continue
			}
			logger.Info("Drift detected", "event", d.Event, "oapp", d.OApp.Hex(), "remote_eid", d.RemoteEID, "tx", d.TxHash)
			select {
			case drift <- d:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// ParseDriftLog decodes a PeerSet or library event. ok is false for events about OApps
// outside oapps.
func ParseDriftLog(eid types.EID, l ethtypes.Log, oapps map[common.Address]struct{}) (d Drift, ok bool, err error) {
	if len(l.Topics) == 0 {
		return d, false, errors.New("log has no topics")
	}
	d = Drift{EID: eid, TxHash: l.TxHash.Hex(), Block: l.BlockNumber}

	if l.Topics[0] == oappABI.Events["PeerSet"].ID {
		if _, watched := oapps[l.Address]; !watched {
			return d, false, nil
		}
		out, err := oappABI.Events["PeerSet"].Inputs.Unpack(l.Data)
		if err != nil {
			return d, false, fmt.Errorf("unable to unpack PeerSet: %w", err)
		}
		d.Event = "PeerSet"
		d.OApp = l.Address
		d.RemoteEID = types.EID(out[0].(uint32))
		return d, true, nil
	}

	for _, name := range driftEvents {
		event := endpointABI.Events[name]
		if l.Topics[0] != event.ID {
			continue
		}
		out, err := event.Inputs.Unpack(l.Data)
		if err != nil {
			return d, false, fmt.Errorf("unable to unpack %s: %w", name, err)
		}
		oapp := out[0].(common.Address)
		if _, watched := oapps[oapp]; !watched {
			return d, false, nil
		}
		d.Event = name
		d.OApp = oapp
		d.RemoteEID = types.EID(out[1].(uint32))
		return d, true, nil
	}

	return d, false, nil
}
