// Package escrow reads campaign funding records from the CampaignEscrow
// settlement contract over JSON-RPC.
package escrow

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fundrail/fundrail/internal/domain"
)

// getCampaignABI is the fragment of the CampaignEscrow ABI this reader
// needs: getCampaign(uint256) -> (creator, goal, totalPledged, deadline,
// finalized, successful).
const getCampaignABI = `[{
	"inputs": [{"internalType": "uint256", "name": "campaignId", "type": "uint256"}],
	"name": "getCampaign",
	"outputs": [
		{"internalType": "address", "name": "creator", "type": "address"},
		{"internalType": "uint256", "name": "goal", "type": "uint256"},
		{"internalType": "uint256", "name": "totalPledged", "type": "uint256"},
		{"internalType": "uint256", "name": "deadline", "type": "uint256"},
		{"internalType": "bool", "name": "finalized", "type": "bool"},
		{"internalType": "bool", "name": "successful", "type": "bool"}
	],
	"stateMutability": "view",
	"type": "function"
}]`

// Reader implements domain.LedgerReader against an EVM JSON-RPC endpoint.
// It performs no caching: every GetCampaign call is an eth_call against the
// latest confirmed block.
type Reader struct {
	client   *ethclient.Client
	contract common.Address
	abi      abi.ABI
	timeout  time.Duration
	logger   *slog.Logger
}

// NewReader dials the RPC endpoint and prepares the contract binding.
// timeout bounds each chain call; zero means no per-call deadline beyond
// the caller's context.
func NewReader(ctx context.Context, rpcURL, contractAddr string, timeout time.Duration, logger *slog.Logger) (*Reader, error) {
	if !common.IsHexAddress(contractAddr) {
		return nil, fmt.Errorf("escrow: invalid contract address %q", contractAddr)
	}

	parsed, err := abi.JSON(strings.NewReader(getCampaignABI))
	if err != nil {
		return nil, fmt.Errorf("escrow: parse abi: %w", err)
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("escrow: dial %s: %w", rpcURL, err)
	}

	return &Reader{
		client:   client,
		contract: common.HexToAddress(contractAddr),
		abi:      parsed,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// GetCampaign reads the current funding record for the given escrow
// campaign id. RPC and decode failures wrap domain.ErrChainRead; an id the
// escrow has never assigned (zero creator address) returns
// domain.ErrNotFound.
func (r *Reader) GetCampaign(ctx context.Context, ledgerCampaignID int64) (domain.CampaignRecord, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	data, err := r.abi.Pack("getCampaign", new(big.Int).SetInt64(ledgerCampaignID))
	if err != nil {
		return domain.CampaignRecord{}, fmt.Errorf("escrow: pack getCampaign(%d): %w", ledgerCampaignID, err)
	}

	out, err := r.client.CallContract(ctx, ethereum.CallMsg{
		To:   &r.contract,
		Data: data,
	}, nil)
	if err != nil {
		return domain.CampaignRecord{}, fmt.Errorf("escrow: call getCampaign(%d): %w: %v",
			ledgerCampaignID, domain.ErrChainRead, err)
	}

	vals, err := r.abi.Unpack("getCampaign", out)
	if err != nil {
		return domain.CampaignRecord{}, fmt.Errorf("escrow: unpack getCampaign(%d): %w: %v",
			ledgerCampaignID, domain.ErrChainRead, err)
	}
	if len(vals) != 6 {
		return domain.CampaignRecord{}, fmt.Errorf("escrow: getCampaign(%d): %w: got %d outputs",
			ledgerCampaignID, domain.ErrChainRead, len(vals))
	}

	creator, ok := vals[0].(common.Address)
	if !ok {
		return domain.CampaignRecord{}, fmt.Errorf("escrow: getCampaign(%d): %w: bad creator type",
			ledgerCampaignID, domain.ErrChainRead)
	}
	// The contract returns a zeroed struct for ids it never assigned.
	if creator == (common.Address{}) {
		return domain.CampaignRecord{}, fmt.Errorf("escrow: campaign %d: %w", ledgerCampaignID, domain.ErrNotFound)
	}

	goal, _ := vals[1].(*big.Int)
	totalPledged, _ := vals[2].(*big.Int)
	deadline, _ := vals[3].(*big.Int)
	finalized, _ := vals[4].(bool)
	successful, _ := vals[5].(bool)
	if goal == nil || totalPledged == nil || deadline == nil {
		return domain.CampaignRecord{}, fmt.Errorf("escrow: getCampaign(%d): %w: bad output types",
			ledgerCampaignID, domain.ErrChainRead)
	}

	rec := domain.CampaignRecord{
		Creator:      creator.Hex(),
		Goal:         goal,
		TotalPledged: totalPledged,
		Deadline:     time.Unix(deadline.Int64(), 0).UTC(),
		Finalized:    finalized,
		Successful:   successful,
	}

	r.logger.DebugContext(ctx, "escrow: read campaign",
		slog.Int64("ledger_campaign_id", ledgerCampaignID),
		slog.Bool("finalized", rec.Finalized),
		slog.Bool("successful", rec.Successful),
		slog.String("total_pledged", totalPledged.String()),
	)

	return rec, nil
}

// Close releases the underlying RPC connection.
func (r *Reader) Close() {
	r.client.Close()
}

// Compile-time interface check.
var _ domain.LedgerReader = (*Reader)(nil)
