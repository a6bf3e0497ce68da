// Package chain submits coin creation transactions to the Zora coin factory.
package chain

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"
	"go.uber.org/zap"

	"zoiner/internal/domain"
)

var (
	funcDeploy = w3.MustNewFunc(
		"deploy(address payoutRecipient, address[] owners, string uri, string name, string symbol, address platformReferrer, address currency, int24 tickLower, uint256 orderSize)",
		"address coin, uint256 coinsPurchased",
	)
	eventCoinCreated = w3.MustNewEvent(
		"CoinCreated(address indexed caller, address indexed payoutRecipient, address indexed platformReferrer, address currency, string uri, string name, string symbol, address coin, address pool, string version)",
	)
)

type CoinParams struct {
	Name            string
	Symbol          string
	URI             string
	PayoutRecipient common.Address
}

type Config struct {
	RPCURL           string
	ChainID          int64
	PrivateKey       string
	Factory          string
	Currency         string
	PlatformReferrer string
	TickLower        int64
	GasLimit         uint64
	GasFeeCap        *big.Int
	GasTipCap        *big.Int
	IPFSGateway      string
	ReceiptTimeout   time.Duration
}

type Zora struct {
	client   *w3.Client
	signer   types.Signer
	key      *ecdsa.PrivateKey
	address  common.Address
	factory  common.Address
	currency common.Address
	referrer common.Address
	cfg      Config
	http     *http.Client
	log      *zap.Logger
}

func NewZora(cfg Config, log *zap.Logger) (*Zora, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse wallet key: %w", err)
	}

	client, err := w3.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	if cfg.ReceiptTimeout == 0 {
		cfg.ReceiptTimeout = 2 * time.Minute
	}

	return &Zora{
		client:   client,
		signer:   types.NewLondonSigner(big.NewInt(cfg.ChainID)),
		key:      key,
		address:  crypto.PubkeyToAddress(key.PublicKey),
		factory:  common.HexToAddress(cfg.Factory),
		currency: common.HexToAddress(cfg.Currency),
		referrer: common.HexToAddress(cfg.PlatformReferrer),
		cfg:      cfg,
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}, nil
}

func (z *Zora) Address() common.Address {
	return z.address
}

func (z *Zora) Close() error {
	return z.client.Close()
}

// CreateCoin checks the metadata, simulates the factory call, then signs and
// sends it. Only the first step can fail with KindMetadataFetch.
func (z *Zora) CreateCoin(ctx context.Context, p CoinParams) (domain.DeploymentResult, error) {
	if err := z.checkMetadata(ctx, p.URI); err != nil {
		return domain.DeploymentResult{}, wrap(KindMetadataFetch, err)
	}

	args := []any{
		p.PayoutRecipient,
		[]common.Address{p.PayoutRecipient},
		p.URI,
		p.Name,
		p.Symbol,
		z.referrer,
		z.currency,
		big.NewInt(z.cfg.TickLower),
		big.NewInt(0),
	}

	var (
		predicted common.Address
		purchased *big.Int
	)
	if err := z.client.CallCtx(ctx,
		eth.CallFunc(z.factory, funcDeploy, args...).From(z.address).Returns(&predicted, &purchased),
	); err != nil {
		return domain.DeploymentResult{}, wrap(KindReverted, fmt.Errorf("simulate deploy: %w", err))
	}

	calldata, err := funcDeploy.EncodeArgs(args...)
	if err != nil {
		return domain.DeploymentResult{}, fmt.Errorf("encode deploy: %w", err)
	}

	txHash, err := z.send(ctx, calldata)
	if err != nil {
		return domain.DeploymentResult{}, wrap(KindSubmit, err)
	}

	z.log.Info("coin transaction sent",
		zap.String("tx", txHash.Hex()),
		zap.String("predicted", predicted.Hex()),
		zap.String("payout", shortAddr(p.PayoutRecipient)),
	)

	waitCtx, cancel := context.WithTimeout(ctx, z.cfg.ReceiptTimeout)
	defer cancel()

	receipt, err := z.waitForReceipt(waitCtx, txHash)
	if err != nil {
		return domain.DeploymentResult{}, wrap(KindReceipt, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return domain.DeploymentResult{}, wrap(KindReverted, fmt.Errorf("transaction %s reverted", txHash.Hex()))
	}

	coin, pool, version, err := coinFromReceipt(receipt)
	if err != nil {
		return domain.DeploymentResult{}, wrap(KindReceipt, err)
	}

	return domain.DeploymentResult{
		TransactionHash: txHash.Hex(),
		ContractAddress: coin.Hex(),
		Info: domain.DeploymentInfo{
			BlockNumber: receipt.BlockNumber.Uint64(),
			GasUsed:     receipt.GasUsed,
			Pool:        pool.Hex(),
			Version:     version,
		},
	}, nil
}

func (z *Zora) send(ctx context.Context, calldata []byte) (common.Hash, error) {
	var nonce uint64
	if err := z.client.CallCtx(ctx, eth.Nonce(z.address, nil).Returns(&nonce)); err != nil {
		return common.Hash{}, fmt.Errorf("get nonce: %w", err)
	}

	//  EIP-1559 only
	tx := types.NewTx(&types.DynamicFeeTx{
		Nonce:     nonce,
		To:        &z.factory,
		GasFeeCap: z.cfg.GasFeeCap,
		GasTipCap: z.cfg.GasTipCap,
		Gas:       z.cfg.GasLimit,
		Value:     big.NewInt(0),
		Data:      calldata,
	})

	signed, err := types.SignTx(tx, z.signer, z.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}

	var hash common.Hash
	if err := z.client.CallCtx(ctx, eth.SendTx(signed).Returns(&hash)); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}

	return hash, nil
}

func (z *Zora) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		var receipt *types.Receipt
		err := z.client.CallCtx(ctx, eth.TxReceipt(txHash).Returns(&receipt))
		if err == nil && receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for receipt %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// checkMetadata reads the document the way the factory's indexer will.
func (z *Zora) checkMetadata(ctx context.Context, uri string) error {
	url := uri
	if cid, ok := strings.CutPrefix(uri, "ipfs://"); ok {
		url = strings.TrimSuffix(z.cfg.IPFSGateway, "/") + "/" + cid
	}
	return FetchMetadata(ctx, z.http, url)
}

// FetchMetadata downloads the document at url and requires name and image.
func FetchMetadata(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	var doc domain.MetadataDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	if doc.Name == "" || doc.Image == "" {
		return errors.New("metadata is missing name or image")
	}

	return nil
}

func coinFromReceipt(receipt *types.Receipt) (coin, pool common.Address, version string, err error) {
	for _, log := range receipt.Logs {
		var (
			caller, payout, referrer, currency common.Address
			uri, name, symbol                  string
		)
		if err := eventCoinCreated.DecodeArgs(log,
			&caller, &payout, &referrer, &currency,
			&uri, &name, &symbol, &coin, &pool, &version,
		); err == nil {
			return coin, pool, version, nil
		}
	}
	return common.Address{}, common.Address{}, "", errors.New("CoinCreated event not found in receipt logs")
}

func shortAddr(a common.Address) string {
	return a.Hex()[:6] + "..."
}
