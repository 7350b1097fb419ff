package valuator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sudoswap/0x-tracker-worker/internal/domain/model"
	"github.com/sudoswap/0x-tracker-worker/internal/tokens"
)

// nativeDecimals is the precision of the chain's native currency, which
// denominates protocol fees.
const (
	nativeSymbol   = "ETH"
	nativeDecimals = 18
	targetCurrency = "USD"
)

// TokenSource is the cache-only token read used during valuation.
type TokenSource interface {
	Get(address string) (model.Token, bool)
}

// RateSource answers conversion-rate queries. The bool is false when the
// oracle has no rate for the pair/date.
type RateSource interface {
	Rate(ctx context.Context, symbol, target string, at time.Time) (decimal.Decimal, bool, error)
}

// Valuator decides which side of a trade is reliably priceable and
// computes the fill's USD value from it.
type Valuator struct {
	tokens TokenSource
	rates  RateSource
	logger *slog.Logger
	nowFn  func() time.Time
}

func New(tokenSource TokenSource, rateSource RateSource, logger *slog.Logger) *Valuator {
	return &Valuator{
		tokens: tokenSource,
		rates:  rateSource,
		logger: logger.With("component", "valuator"),
		nowFn:  time.Now,
	}
}

// Measure sets the fill's pricing fields. Afterwards exactly one of
// hasValue and immeasurable holds. Errors are fatal for this fill only.
func (v *Valuator) Measure(ctx context.Context, fill *model.Fill) error {
	for i := range fill.Assets {
		_, ok := v.tokens.Get(fill.Assets[i].TokenAddress)
		fill.Assets[i].TokenResolved = ok
	}

	actor, ok := measurableActor(fill)
	if !ok {
		fill.HasValue = false
		fill.Immeasurable = true
		fill.PricingStatus = model.PricingStatusImmeasurable
		v.logger.Debug("fill immeasurable", "fill", fill.ID)
		return nil
	}

	// Strict sequential accumulation in stored asset order keeps the total
	// byte-for-byte reproducible for identical oracle answers.
	total := decimal.Zero
	for i := range fill.Assets {
		asset := &fill.Assets[i]
		if asset.Actor != actor {
			continue
		}

		token, ok := v.tokens.Get(asset.TokenAddress)
		if !ok {
			return fmt.Errorf("unable to fetch resolved token %s from token cache", asset.TokenAddress)
		}

		amount, err := tokens.FormatAmount(asset.Amount, token.Decimals)
		if err != nil {
			return fmt.Errorf("format amount of token %s: %w", token.Address, err)
		}

		symbol := tokens.NormalizeSymbol(token.Symbol)
		rate, available, err := v.rates.Rate(ctx, symbol, targetCurrency, fill.Date)
		if err != nil {
			return err
		}
		if !available {
			return fmt.Errorf("unable to fetch USD price of %s on %s", symbol, fill.Date.Format(time.RFC3339))
		}

		value := amount.Mul(rate)
		asset.Price = &model.Money{USD: rate}
		asset.Value = &model.Money{USD: value}
		total = total.Add(value)

		v.logger.Debug("priced asset",
			"fill", fill.ID, "token", token.Address, "price_usd", rate.String())
	}

	if err := v.measureProtocolFee(ctx, fill); err != nil {
		return err
	}

	quoteDate := v.nowFn().UTC()
	fill.Conversions.USD.Amount = &total
	fill.HasValue = true
	fill.Immeasurable = false
	fill.PricingStatus = model.PricingStatusPriced
	fill.QuoteDate = &quoteDate

	v.logger.Debug("valued fill", "fill", fill.ID, "value_usd", total.String())
	return nil
}

// measureProtocolFee converts the native-currency protocol fee at the
// fill's date.
func (v *Valuator) measureProtocolFee(ctx context.Context, fill *model.Fill) error {
	if fill.ProtocolFee == "" || fill.ProtocolFee == "0" {
		return nil
	}

	amount, err := tokens.FormatAmount(fill.ProtocolFee, nativeDecimals)
	if err != nil {
		return fmt.Errorf("format protocol fee: %w", err)
	}

	rate, available, err := v.rates.Rate(ctx, nativeSymbol, targetCurrency, fill.Date)
	if err != nil {
		return err
	}
	if !available {
		return fmt.Errorf("unable to fetch USD price of %s on %s", nativeSymbol, fill.Date.Format(time.RFC3339))
	}

	fee := amount.Mul(rate)
	fill.Conversions.USD.ProtocolFee = &fee
	return nil
}

// measurableActor picks the trade side used for valuation: the maker side
// when every maker asset's token resolves, else the taker side under the
// same rule. A fill where neither side fully resolves is immeasurable.
func measurableActor(fill *model.Fill) (model.TradeActor, bool) {
	if sideResolved(fill, model.ActorMaker) {
		return model.ActorMaker, true
	}
	if sideResolved(fill, model.ActorTaker) {
		return model.ActorTaker, true
	}
	return 0, false
}

func sideResolved(fill *model.Fill, actor model.TradeActor) bool {
	found := false
	for _, a := range fill.Assets {
		if a.Actor != actor {
			continue
		}
		found = true
		if !a.TokenResolved {
			return false
		}
	}
	return found
}
