package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sudoswap/0x-tracker-worker/internal/domain/model"
	"github.com/sudoswap/0x-tracker-worker/internal/store"
)

// zrxTokenAddress denominates v2 maker/taker fees, which are always paid
// in ZRX.
const zrxTokenAddress = "0xe41d2489571d322189246dafa5ebde1f4699f498"

// Builder decodes one raw event (plus its captured block context) into a
// structured fill. Pure construction: persistence is not its job.
type Builder struct {
	blocks store.BlockRepository
	logger *slog.Logger
}

func New(blocks store.BlockRepository, logger *slog.Logger) *Builder {
	return &Builder{
		blocks: blocks,
		logger: logger.With("component", "builder"),
	}
}

// Build constructs the fill for event. Returns a classified *Error for the
// expected per-item failure kinds (missing block, unsupported asset,
// unsupported protocol); anything else is systemic.
func (b *Builder) Build(ctx context.Context, event *model.Event) (*model.Fill, error) {
	if event.ProtocolVersion != 2 && event.ProtocolVersion != 3 {
		return nil, &Error{
			Kind:    KindUnsupportedProtocol,
			EventID: event.ID,
			Detail:  fmt.Sprintf("v%d", event.ProtocolVersion),
		}
	}

	var data model.EventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return nil, fmt.Errorf("decode event %s data: %w", event.ID, err)
	}
	args := data.Args

	block, err := b.blocks.FindByHash(ctx, event.BlockHash)
	if err != nil {
		return nil, fmt.Errorf("look up block %s: %w", event.BlockHash, err)
	}
	if block == nil {
		return nil, &Error{Kind: KindMissingBlock, EventID: event.ID}
	}

	makerAsset, err := buildAsset(event, args.MakerAssetData, args.MakerAssetFilledAmount, model.ActorMaker)
	if err != nil {
		return nil, err
	}
	takerAsset, err := buildAsset(event, args.TakerAssetData, args.TakerAssetFilledAmount, model.ActorTaker)
	if err != nil {
		return nil, err
	}

	fees, err := buildFees(event, args)
	if err != nil {
		return nil, err
	}

	fill := &model.Fill{
		ID:               event.ID,
		EventID:          event.ID,
		Status:           model.FillStatusSuccessful,
		Assets:           []model.Asset{makerAsset, takerAsset},
		Fees:             fees,
		Maker:            args.MakerAddress,
		Taker:            args.TakerAddress,
		SenderAddress:    args.SenderAddress,
		FeeRecipient:     args.FeeRecipientAddress,
		AffiliateAddress: data.AffiliateAddress,
		ProtocolFee:      zeroIfEmpty(args.ProtocolFeePaid),
		ProtocolVersion:  event.ProtocolVersion,
		RelayerID:        data.RelayerID,
		OrderHash:        args.OrderHash,
		BlockHash:        event.BlockHash,
		BlockNumber:      event.BlockNumber,
		LogIndex:         event.LogIndex,
		TransactionHash:  event.TransactionHash,
		Date:             block.Timestamp,
	}

	return fill, nil
}

// buildAsset decodes one assetData blob into a fill leg. Bridge
// substitution happens here, exactly once: the decoded underlying token
// becomes the asset's token address and is never re-derived downstream.
func buildAsset(event *model.Event, assetData, amount string, actor model.TradeActor) (model.Asset, error) {
	decoded, err := decodeAssetData(assetData)
	if err != nil {
		return model.Asset{}, &Error{
			Kind:    KindUnsupportedAsset,
			EventID: event.ID,
			Detail:  err.Error(),
		}
	}

	return model.Asset{
		TokenAddress:  decoded.TokenAddress,
		Amount:        zeroIfEmpty(amount),
		Actor:         actor,
		BridgeAddress: decoded.BridgeAddress,
		BridgeData:    decoded.BridgeData,
	}, nil
}

func buildFees(event *model.Event, args model.EventArgs) ([]model.Fee, error) {
	fees := []model.Fee{}

	appendFee := func(amount, feeAssetData string, trader model.TradeActor) error {
		if amount == "" || amount == "0" {
			return nil
		}

		tokenAddress := zrxTokenAddress
		if event.ProtocolVersion >= 3 {
			decoded, err := decodeAssetData(feeAssetData)
			if err != nil {
				return &Error{
					Kind:    KindUnsupportedAsset,
					EventID: event.ID,
					Detail:  fmt.Sprintf("fee asset: %v", err),
				}
			}
			tokenAddress = decoded.TokenAddress
		}

		fees = append(fees, model.Fee{
			TokenAddress: tokenAddress,
			Amount:       model.FeeAmount{Token: amount},
			TraderType:   trader,
		})
		return nil
	}

	if err := appendFee(args.MakerFeePaid, args.MakerFeeAssetData, model.ActorMaker); err != nil {
		return nil, err
	}
	if err := appendFee(args.TakerFeePaid, args.TakerFeeAssetData, model.ActorTaker); err != nil {
		return nil, err
	}

	return fees, nil
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
