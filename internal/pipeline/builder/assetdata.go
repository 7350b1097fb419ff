package builder

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// 0x asset-proxy selectors the builder understands.
const (
	erc20ProxyID       = "0xf47261b0"
	erc20BridgeProxyID = "0xdc1600f3"
)

const wordSize = 32

// decodedAsset is the outcome of decoding one assetData blob. For bridge
// assets, TokenAddress is already the underlying token; the literal
// transfer token never leaves this function.
type decodedAsset struct {
	TokenAddress  string
	BridgeAddress string
	BridgeData    string
}

// decodeAssetData decodes a 0x assetData payload. ERC-20 payloads carry a
// single token address word; ERC-20 bridge payloads carry the underlying
// token, the bridge contract, and an opaque bridge blob which is retained
// verbatim for audit.
func decodeAssetData(assetData string) (decodedAsset, error) {
	raw, err := hexutil.Decode(assetData)
	if err != nil {
		return decodedAsset{}, fmt.Errorf("malformed asset data: %w", err)
	}
	if len(raw) < 4 {
		return decodedAsset{}, fmt.Errorf("asset data too short (%d bytes)", len(raw))
	}

	selector := hexutil.Encode(raw[:4])
	words := raw[4:]

	switch selector {
	case erc20ProxyID:
		token, err := addressWord(words, 0)
		if err != nil {
			return decodedAsset{}, err
		}
		return decodedAsset{TokenAddress: token}, nil

	case erc20BridgeProxyID:
		token, err := addressWord(words, 0)
		if err != nil {
			return decodedAsset{}, err
		}
		bridge, err := addressWord(words, 1)
		if err != nil {
			return decodedAsset{}, err
		}
		bridgeData, err := bytesWord(words, 2)
		if err != nil {
			return decodedAsset{}, err
		}
		return decodedAsset{
			TokenAddress:  token,
			BridgeAddress: bridge,
			BridgeData:    hexutil.Encode(bridgeData),
		}, nil

	default:
		return decodedAsset{}, fmt.Errorf("unrecognized asset proxy %s", selector)
	}
}

// addressWord reads the address packed into ABI word i.
func addressWord(words []byte, i int) (string, error) {
	start := i * wordSize
	if len(words) < start+wordSize {
		return "", fmt.Errorf("asset data truncated at word %d", i)
	}
	word := words[start : start+wordSize]
	return strings.ToLower(common.BytesToAddress(word).Hex()), nil
}

// bytesWord follows the dynamic-bytes offset in ABI word i and returns the
// referenced blob.
func bytesWord(words []byte, i int) ([]byte, error) {
	start := i * wordSize
	if len(words) < start+wordSize {
		return nil, fmt.Errorf("asset data truncated at word %d", i)
	}

	offset := new(big.Int).SetBytes(words[start : start+wordSize])
	if !offset.IsInt64() || offset.Int64()+wordSize > int64(len(words)) {
		return nil, fmt.Errorf("asset data offset out of range at word %d", i)
	}

	o := int(offset.Int64())
	length := new(big.Int).SetBytes(words[o : o+wordSize])
	if !length.IsInt64() || int64(o+wordSize)+length.Int64() > int64(len(words)) {
		return nil, fmt.Errorf("asset data length out of range at word %d", i)
	}

	return words[o+wordSize : o+wordSize+int(length.Int64())], nil
}
