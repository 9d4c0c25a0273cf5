package quote

import (
	"context"
	"fmt"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"signal-screener/internal/types"
)

const kiteSource = "kite"

// KiteSource reads historical candles from Zerodha Kite Connect.
type KiteSource struct {
	kc          *kiteconnect.Client
	exchange    string
	hasAuth     bool
	instruments *instrumentMapper

	loadOnce sync.Once
	loadErr  error
}

// NewKiteSource creates a Kite client for exchange (e.g. NSE).
func NewKiteSource(apiKey, accessToken, exchange string) *KiteSource {
	kc := kiteconnect.New(apiKey)
	kc.SetAccessToken(accessToken)

	return &KiteSource{
		kc:          kc,
		exchange:    exchange,
		hasAuth:     apiKey != "" && accessToken != "",
		instruments: newInstrumentMapper(),
	}
}

func (k *KiteSource) Name() string { return kiteSource }

func kiteInterval(res types.Resolution) (string, error) {
	switch res {
	case types.Resolution1Min:
		return "minute", nil
	case types.Resolution5Min:
		return "5minute", nil
	case types.Resolution15Min:
		return "15minute", nil
	case types.Resolution30Min:
		return "30minute", nil
	case types.Resolution60Min:
		return "60minute", nil
	case types.ResolutionDay:
		return "day", nil
	}
	return "", fmt.Errorf("resolution %q not supported by kite", res)
}

// Candles implements interfaces.PriceSource.
func (k *KiteSource) Candles(ctx context.Context, ticker string, from, to time.Time, res types.Resolution) ([]types.PricePoint, error) {
	if !k.hasAuth {
		return nil, &types.SourceFetchError{Source: kiteSource, Err: ErrMissingCredentials}
	}
	interval, err := kiteInterval(res)
	if err != nil {
		return nil, &types.SourceFetchError{Source: kiteSource, Err: err}
	}

	return runBlocking(ctx, kiteSource, func() ([]types.PricePoint, error) {
		token, err := k.instrumentToken(ticker)
		if err != nil {
			return nil, err
		}

		candles, err := k.kc.GetHistoricalData(int(token), interval, from, to, false, false)
		if err != nil {
			return nil, &types.SourceFetchError{Source: kiteSource, Err: fmt.Errorf("historical %s: %w", ticker, err)}
		}

		points := make([]types.PricePoint, 0, len(candles))
		for _, c := range candles {
			points = append(points, types.PricePoint{Timestamp: c.Date.Unix(), Close: c.Close})
		}
		sortPoints(points)
		return points, nil
	})
}

// instrumentToken resolves a trading symbol, loading the exchange's
// instrument list on first use.
func (k *KiteSource) instrumentToken(ticker string) (uint32, error) {
	k.loadOnce.Do(func() {
		instruments, err := k.kc.GetInstrumentsByExchange(k.exchange)
		if err != nil {
			k.loadErr = &types.SourceFetchError{Source: kiteSource, Err: fmt.Errorf("instruments %s: %w", k.exchange, err)}
			return
		}
		for _, ins := range instruments {
			k.instruments.addMapping(ins.Tradingsymbol, uint32(ins.InstrumentToken))
		}
	})
	if k.loadErr != nil {
		return 0, k.loadErr
	}

	token, ok := k.instruments.getToken(ticker)
	if !ok {
		return 0, &types.MalformedResponseError{Source: kiteSource, Reason: fmt.Sprintf("no instrument for %s on %s", ticker, k.exchange)}
	}
	return token, nil
}

// instrumentMapper maps trading symbols to instrument tokens.
type instrumentMapper struct {
	symbolToToken map[string]uint32
	mu            sync.RWMutex
}

func newInstrumentMapper() *instrumentMapper {
	return &instrumentMapper{symbolToToken: make(map[string]uint32)}
}

func (im *instrumentMapper) addMapping(symbol string, token uint32) {
	im.mu.Lock()
	defer im.mu.Unlock()

	im.symbolToToken[symbol] = token
}

func (im *instrumentMapper) getToken(symbol string) (uint32, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	token, ok := im.symbolToToken[symbol]
	return token, ok
}
