package providers

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	logger "github.com/kthomas/go-logger"
	"github.com/provideplatform/bungee/common"
	"github.com/provideplatform/bungee/state"
)

// AssetContractABI is the subset of the asset contract abi used to enumerate asset ids
const AssetContractABI = `[{"inputs":[],"name":"getAllAssetsIDs","outputs":[{"internalType":"string[]","name":"","type":"string[]"}],"stateMutability":"view","type":"function"}]`

const assetContractMethodGetAllAssetIDs = "getAllAssetsIDs"

// EVMClient is the subset of the ethereum rpc client used to capture states
type EVMClient interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	TransactionByHash(ctx context.Context, hash ethcommon.Hash) (tx *types.Transaction, isPending bool, err error)
	HeaderByHash(ctx context.Context, hash ethcommon.Hash) (*types.Header, error)
	Close()
}

// EVMClientFactory dials the rpc endpoint of an EVM ledger
type EVMClientFactory func(ctx context.Context, rpcURL string) (EVMClient, error)

// EVMProvider captures asset states from the logs emitted by an asset contract; every
// log whose first indexed topic is the keccak256 hash of an asset id is a transaction
// on that asset
type EVMProvider struct {
	log  *logger.Logger
	abi  abi.ABI
	dial EVMClientFactory
}

// InitEVMProvider initializes an EVM provider dialing ledgers with go-ethereum's rpc client
func InitEVMProvider(log *logger.Logger) (*EVMProvider, error) {
	return InitEVMProviderWithClientFactory(log, func(ctx context.Context, rpcURL string) (EVMClient, error) {
		return ethclient.DialContext(ctx, rpcURL)
	})
}

// InitEVMProviderWithClientFactory initializes an EVM provider using the given client factory;
// the configured logger is used when log is nil
func InitEVMProviderWithClientFactory(log *logger.Logger, dial EVMClientFactory) (*EVMProvider, error) {
	if log == nil {
		log = common.Log
	}
	contractABI, err := abi.JSON(strings.NewReader(AssetContractABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse asset contract abi; %s", err.Error())
	}
	return &EVMProvider{
		log:  log,
		abi:  contractABI,
		dial: dial,
	}, nil
}

// FetchStates captures the requested assets, or every asset known to the contract
func (p *EVMProvider) FetchStates(ctx context.Context, stateIDs []string, details *NetworkDetails) (map[string]*state.State, error) {
	if details == nil || details.RPCURL == nil || details.ContractAddress == nil {
		return nil, fmt.Errorf("failed to fetch states from evm ledger; rpc url and contract address required")
	}
	if !ethcommon.IsHexAddress(*details.ContractAddress) {
		return nil, fmt.Errorf("failed to fetch states from evm ledger; invalid contract address %s", *details.ContractAddress)
	}
	contract := ethcommon.HexToAddress(*details.ContractAddress)

	client, err := p.dial(ctx, *details.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial evm ledger %s; %s", *details.RPCURL, err.Error())
	}
	defer client.Close()

	assetIDs := stateIDs
	if len(assetIDs) == 0 {
		assetIDs, err = p.assetIDs(ctx, client, contract)
		if err != nil {
			return nil, err
		}
	}
	p.log.Debugf("capturing %d asset(s) from contract %s", len(assetIDs), contract.Hex())

	states := map[string]*state.State{}
	for _, assetID := range assetIDs {
		st, err := p.captureAsset(ctx, client, contract, assetID)
		if err != nil {
			return nil, err
		}
		states[assetID] = st
	}

	return states, nil
}

func (p *EVMProvider) assetIDs(ctx context.Context, client EVMClient, contract ethcommon.Address) ([]string, error) {
	input, err := p.abi.Pack(assetContractMethodGetAllAssetIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call; %s", assetContractMethodGetAllAssetIDs, err.Error())
	}

	output, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &contract,
		Data: input,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s on contract %s; %s", assetContractMethodGetAllAssetIDs, contract.Hex(), err.Error())
	}

	vals, err := p.abi.Unpack(assetContractMethodGetAllAssetIDs, output)
	if err != nil || len(vals) != 1 {
		return nil, fmt.Errorf("failed to unpack %s output of contract %s", assetContractMethodGetAllAssetIDs, contract.Hex())
	}
	ids, ok := vals[0].([]string)
	if !ok {
		return nil, fmt.Errorf("failed to unpack %s output of contract %s; unexpected type %T", assetContractMethodGetAllAssetIDs, contract.Hex(), vals[0])
	}
	return ids, nil
}

func (p *EVMProvider) captureAsset(ctx context.Context, client EVMClient, contract ethcommon.Address, assetID string) (*state.State, error) {
	logs, err := client.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []ethcommon.Address{contract},
		Topics:    [][]ethcommon.Hash{{}, {crypto.Keccak256Hash([]byte(assetID))}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to filter logs of asset %s; %s", assetID, err.Error())
	}

	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})

	values := make([]string, 0, len(logs))
	transactions := make([]*state.Transaction, 0, len(logs))
	blocks := make([]*state.Block, 0)
	seenBlocks := map[ethcommon.Hash]bool{}

	for _, l := range logs {
		tx, _, err := client.TransactionByHash(ctx, l.TxHash)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve transaction %s of asset %s; %s", l.TxHash.Hex(), assetID, err.Error())
		}
		header, err := client.HeaderByHash(ctx, l.BlockHash)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve block %s of asset %s; %s", l.BlockHash.Hex(), assetID, err.Error())
		}

		creator := state.Undefined
		if sender, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx); err == nil {
			creator = sender.Hex()
		} else {
			p.log.Warningf("failed to recover sender of transaction %s; %s", l.TxHash.Hex(), err.Error())
		}

		proof := state.NewTransactionProof(state.NewProof(creator, nil, nil), l.TxHash.Hex())
		transaction := state.NewTransaction(l.TxHash.Hex(), state.FormatTime(int64(header.Time)), proof)
		transaction.SetStateID(assetID)
		transaction.SetTarget(contract.Hex())
		transaction.SetPayload(hexutil.Encode(tx.Data()))

		transactions = append(transactions, transaction)
		values = append(values, hexutil.Encode(l.Data))

		if !seenBlocks[l.BlockHash] {
			seenBlocks[l.BlockHash] = true
			blocks = append(blocks, &state.Block{
				Hash:    l.BlockHash.Hex(),
				Creator: header.Coinbase.Hex(),
				Signers: make([]string, 0),
			})
		}
	}

	st := state.NewState(assetID, values, transactions)
	proof := state.NewStateProof(st.Value(), st.Version, assetID)
	for _, block := range blocks {
		proof.AddBlock(block)
	}
	st.SetStateProofs([]*state.StateProof{proof})

	return st, nil
}
