package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"autosell-worker/internal/pkg/config"
	"autosell-worker/internal/pkg/logger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultGasLimit    = uint64(350_000)
	defaultSwapTimeout = 2 * time.Minute
	defaultReceiptPoll = 2 * time.Second
)

var (
	ErrNonPositiveAmount = errors.New("swap amount must be positive")
	ErrTransactionFailed = errors.New("transaction reverted")
)

// SwapExecutor sells ERC-20 collateral for the native asset through a
// Uniswap V2 style router, sending proceeds to the vault.
type SwapExecutor struct {
	client      Client
	key         *ecdsa.PrivateKey
	vault       common.Address
	router      common.Address
	weth        common.Address
	chainID     *big.Int
	gasLimit    uint64
	swapTimeout time.Duration
	receiptPoll time.Duration
	now         func() time.Time

	mu       sync.Mutex
	decimals map[common.Address]uint8
}

func NewSwapExecutor(ctx context.Context, client Client, cfg config.ChainConfig) (*SwapExecutor, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client required")
	}
	for name, addr := range map[string]string{"router": cfg.RouterAddress, "weth": cfg.WETHAddress} {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("invalid %s address %q", name, addr)
		}
	}

	key, err := gethcrypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.VaultPrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse vault private key: %w", err)
	}
	signer := gethcrypto.PubkeyToAddress(key.PublicKey)
	if cfg.VaultAddress != "" {
		if !common.IsHexAddress(cfg.VaultAddress) || common.HexToAddress(cfg.VaultAddress) != signer {
			return nil, fmt.Errorf("vault address %s does not match private key (%s)", cfg.VaultAddress, signer.Hex())
		}
	}

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID == 0 {
		chainID, err = client.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch chain id: %w", err)
		}
	}

	return &SwapExecutor{
		client:      client,
		key:         key,
		vault:       signer,
		router:      common.HexToAddress(cfg.RouterAddress),
		weth:        common.HexToAddress(cfg.WETHAddress),
		chainID:     chainID,
		gasLimit:    orDefault(cfg.GasLimit, defaultGasLimit),
		swapTimeout: orDefault(cfg.SwapTimeout, defaultSwapTimeout),
		receiptPoll: orDefault(cfg.ReceiptPoll, defaultReceiptPoll),
		now:         time.Now,
		decimals:    make(map[common.Address]uint8),
	}, nil
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// VaultAddress is the account that signs swaps and receives proceeds.
func (s *SwapExecutor) VaultAddress() common.Address {
	return s.vault
}

// Swap sells amount of token and returns the swap transaction hash once the
// receipt reports success.
func (s *SwapExecutor) Swap(ctx context.Context, token string, amount float64) (string, error) {
	if !common.IsHexAddress(token) {
		return "", fmt.Errorf("invalid token address %q", token)
	}
	tokenAddr := common.HexToAddress(token)

	ctx, cancel := context.WithTimeout(ctx, s.swapTimeout)
	defer cancel()

	decimals, err := s.tokenDecimals(ctx, tokenAddr)
	if err != nil {
		return "", err
	}
	amountIn, err := ToBaseUnits(amount, decimals)
	if err != nil {
		return "", err
	}

	if err := s.ensureAllowance(ctx, tokenAddr, amountIn); err != nil {
		return "", err
	}

	deadline := big.NewInt(s.now().Add(s.swapTimeout).Unix())
	data, err := routerABI.Pack(swapMethod,
		amountIn,
		big.NewInt(0),
		[]common.Address{tokenAddr, s.weth},
		s.vault,
		deadline,
	)
	if err != nil {
		return "", fmt.Errorf("pack swap call: %w", err)
	}

	hash, err := s.sendAndWait(ctx, s.router, data)
	if err != nil {
		return "", fmt.Errorf("swap %s: %w", token, err)
	}

	logger.CtxInfo(ctx, "Collateral swapped",
		zap.String("token", token),
		zap.String("amount_in", amountIn.String()),
		zap.String("txn", hash.Hex()),
	)
	return hash.Hex(), nil
}

// ToBaseUnits converts a human amount to integer token units, truncating
// anything below the token's precision.
func ToBaseUnits(amount float64, decimals uint8) (*big.Int, error) {
	units := decimal.NewFromFloat(amount).Shift(int32(decimals)).Truncate(0)
	if !units.IsPositive() {
		return nil, ErrNonPositiveAmount
	}
	return units.BigInt(), nil
}

func (s *SwapExecutor) tokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	s.mu.Lock()
	d, ok := s.decimals[token]
	s.mu.Unlock()
	if ok {
		return d, nil
	}

	out, err := s.call(ctx, token, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok = out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals type %T", out[0])
	}

	s.mu.Lock()
	s.decimals[token] = d
	s.mu.Unlock()
	return d, nil
}

func (s *SwapExecutor) ensureAllowance(ctx context.Context, token common.Address, amount *big.Int) error {
	out, err := s.call(ctx, token, "allowance", s.vault, s.router)
	if err != nil {
		return err
	}
	current, ok := out[0].(*big.Int)
	if !ok {
		return fmt.Errorf("unexpected allowance type %T", out[0])
	}
	if current.Cmp(amount) >= 0 {
		return nil
	}

	data, err := erc20ABI.Pack("approve", s.router, math.MaxBig256)
	if err != nil {
		return fmt.Errorf("pack approve: %w", err)
	}
	hash, err := s.sendAndWait(ctx, token, data)
	if err != nil {
		return fmt.Errorf("approve router: %w", err)
	}
	logger.CtxInfo(ctx, "Router approved for token", zap.String("token", token.Hex()), zap.String("txn", hash.Hex()))
	return nil
}

func (s *SwapExecutor) call(ctx context.Context, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := s.client.CallContract(ctx, ethereum.CallMsg{From: s.vault, To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	out, err := erc20ABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty %s result", method)
	}
	return out, nil
}

func (s *SwapExecutor) sendAndWait(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	nonce, err := s.client.PendingNonceAt(ctx, s.vault)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetch nonce: %w", err)
	}
	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}

	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      s.gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}
	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}

	return signed.Hash(), s.waitReceipt(ctx, signed.Hash())
}

func (s *SwapExecutor) waitReceipt(ctx context.Context, hash common.Hash) error {
	ticker := time.NewTicker(s.receiptPoll)
	defer ticker.Stop()

	for {
		receipt, err := s.client.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			if receipt.Status != gethtypes.ReceiptStatusSuccessful {
				return fmt.Errorf("%w: %s", ErrTransactionFailed, hash.Hex())
			}
			return nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			return fmt.Errorf("fetch receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
