package gateway

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"go.uber.org/zap"

	"github.com/rxtech-lab/gridbot/internal/logger"
	"github.com/rxtech-lab/gridbot/internal/types"
	"github.com/rxtech-lab/gridbot/pkg/errors"
)

const (
	// binanceDecimalPrecision is the fallback decimal precision for order
	// quantities. Production systems should use symbol-specific precision
	// from Binance exchange info (LOT_SIZE, PRICE_FILTER).
	binanceDecimalPrecision = 8

	// fillFetchLimit caps how many trades one RecentFills poll requests.
	fillFetchLimit = 200
)

// Service interfaces for mocking the Binance API.

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	Price(price string) CreateOrderService
	TimeInForce(tif binance.TimeInForceType) CreateOrderService
	NewClientOrderID(id string) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// CancelOrderService interface for canceling orders by client order id.
type CancelOrderService interface {
	Symbol(symbol string) CancelOrderService
	OrigClientOrderID(id string) CancelOrderService
	Do(ctx context.Context) (*binance.CancelOrderResponse, error)
}

// CancelOpenOrdersService interface for canceling all open orders for a symbol.
type CancelOpenOrdersService interface {
	Symbol(symbol string) CancelOpenOrdersService
	Do(ctx context.Context) error
}

// ListOpenOrdersService interface for listing open orders.
type ListOpenOrdersService interface {
	Symbol(symbol string) ListOpenOrdersService
	Do(ctx context.Context) ([]*binance.Order, error)
}

// ListTradesService interface for listing account trades.
type ListTradesService interface {
	Symbol(symbol string) ListTradesService
	Limit(limit int) ListTradesService
	StartTime(startTime int64) ListTradesService
	Do(ctx context.Context) ([]*binance.TradeV3, error)
}

// BookTickerService interface for fetching the current best bid/ask.
type BookTickerService interface {
	Symbol(symbol string) BookTickerService
	Do(ctx context.Context) ([]*binance.BookTicker, error)
}

// BinanceClient interface abstracts the Binance client for testing.
type BinanceClient interface {
	NewCreateOrderService() CreateOrderService
	NewCancelOrderService() CancelOrderService
	NewCancelOpenOrdersService() CancelOpenOrdersService
	NewListOpenOrdersService() ListOpenOrdersService
	NewListTradesService() ListTradesService
	NewBookTickerService() BookTickerService
}

// realBinanceClient wraps the actual binance.Client.
type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceClient) NewCancelOrderService() CancelOrderService {
	return &realCancelOrderService{service: r.client.NewCancelOrderService()}
}

func (r *realBinanceClient) NewCancelOpenOrdersService() CancelOpenOrdersService {
	return &realCancelOpenOrdersService{service: r.client.NewCancelOpenOrdersService()}
}

func (r *realBinanceClient) NewListOpenOrdersService() ListOpenOrdersService {
	return &realListOpenOrdersService{service: r.client.NewListOpenOrdersService()}
}

func (r *realBinanceClient) NewListTradesService() ListTradesService {
	return &realListTradesService{service: r.client.NewListTradesService()}
}

func (r *realBinanceClient) NewBookTickerService() BookTickerService {
	return &realBookTickerService{service: r.client.NewListBookTickersService()}
}

// Real service wrappers

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) Price(price string) CreateOrderService {
	s.service = s.service.Price(price)

	return s
}

func (s *realCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	s.service = s.service.TimeInForce(tif)

	return s
}

func (s *realCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	s.service = s.service.NewClientOrderID(id)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realCancelOrderService struct {
	service *binance.CancelOrderService
}

func (s *realCancelOrderService) Symbol(symbol string) CancelOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCancelOrderService) OrigClientOrderID(id string) CancelOrderService {
	s.service = s.service.OrigClientOrderID(id)

	return s
}

func (s *realCancelOrderService) Do(ctx context.Context) (*binance.CancelOrderResponse, error) {
	return s.service.Do(ctx)
}

type realCancelOpenOrdersService struct {
	service *binance.CancelOpenOrdersService
}

func (s *realCancelOpenOrdersService) Symbol(symbol string) CancelOpenOrdersService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCancelOpenOrdersService) Do(ctx context.Context) error {
	_, err := s.service.Do(ctx)

	return err
}

type realListOpenOrdersService struct {
	service *binance.ListOpenOrdersService
}

func (s *realListOpenOrdersService) Symbol(symbol string) ListOpenOrdersService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realListOpenOrdersService) Do(ctx context.Context) ([]*binance.Order, error) {
	return s.service.Do(ctx)
}

type realListTradesService struct {
	service *binance.ListTradesService
}

func (s *realListTradesService) Symbol(symbol string) ListTradesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realListTradesService) Limit(limit int) ListTradesService {
	s.service = s.service.Limit(limit)

	return s
}

func (s *realListTradesService) StartTime(startTime int64) ListTradesService {
	s.service = s.service.StartTime(startTime)

	return s
}

func (s *realListTradesService) Do(ctx context.Context) ([]*binance.TradeV3, error) {
	return s.service.Do(ctx)
}

type realBookTickerService struct {
	service *binance.ListBookTickersService
}

func (s *realBookTickerService) Symbol(symbol string) BookTickerService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realBookTickerService) Do(ctx context.Context) ([]*binance.BookTicker, error) {
	return s.service.Do(ctx)
}

// BinanceConfig holds the credentials and endpoint for a Binance gateway.
type BinanceConfig struct {
	APIKey     string `yaml:"api_key" json:"api_key"`
	SecretKey  string `yaml:"secret_key" json:"secret_key"`
	BaseURL    string `yaml:"base_url" json:"base_url"`
	UseTestnet bool   `yaml:"use_testnet" json:"use_testnet"`
}

// BinanceGateway implements Gateway against the Binance spot API. Engine
// order ids travel as client order ids, so open-order listings come back
// keyed the way the engine knows them. Trades report only the exchange
// order id, so the gateway keeps an exchange-to-client id map fed by
// order placement and open-order listings.
type BinanceGateway struct {
	client BinanceClient
	log    *logger.Logger

	mu               sync.Mutex
	exchangeToClient map[int64]string
	lastTradeTime    int64
}

// NewBinanceGateway connects to Binance. If config.BaseURL is set it
// takes precedence over UseTestnet.
func NewBinanceGateway(config BinanceConfig, log *logger.Logger) *BinanceGateway {
	if config.UseTestnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(config.APIKey, config.SecretKey)
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return newBinanceGatewayWithClient(&realBinanceClient{client: client}, log)
}

// newBinanceGatewayWithClient is used by tests to inject a mock client.
func newBinanceGatewayWithClient(client BinanceClient, log *logger.Logger) *BinanceGateway {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &BinanceGateway{
		client:           client,
		log:              log,
		exchangeToClient: make(map[int64]string),
	}
}

// Ticker implements Gateway. The price is the book mid since the spot
// book ticker endpoint does not carry a last trade price.
func (b *BinanceGateway) Ticker(ctx context.Context, symbol string) (types.Tick, error) {
	tickers, err := b.client.NewBookTickerService().Symbol(symbol).Do(ctx)
	if err != nil {
		return types.Tick{}, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "failed to fetch book ticker", err)
	}

	if len(tickers) == 0 {
		return types.Tick{}, errors.Newf(errors.ErrCodeMarketDataFetchFailed, "no book ticker returned for %s", symbol)
	}

	bid, err := strconv.ParseFloat(tickers[0].BidPrice, 64)
	if err != nil {
		return types.Tick{}, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "invalid bid price", err)
	}

	ask, err := strconv.ParseFloat(tickers[0].AskPrice, 64)
	if err != nil {
		return types.Tick{}, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "invalid ask price", err)
	}

	return types.Tick{
		Symbol: symbol,
		Price:  (bid + ask) / 2,
		Bid:    bid,
		Ask:    ask,
		Time:   time.Now(),
	}, nil
}

// PlaceOrder implements Gateway.
func (b *BinanceGateway) PlaceOrder(ctx context.Context, order types.Order) error {
	if err := order.Validate(); err != nil {
		return err
	}

	var side binance.SideType

	switch order.Side {
	case types.SideBuy:
		side = binance.SideTypeBuy
	case types.SideSell:
		side = binance.SideTypeSell
	default:
		return errors.Newf(errors.ErrCodeInvalidOrder, "unsupported order side: %s", order.Side)
	}

	service := b.client.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(side).
		Quantity(strconv.FormatFloat(order.Quantity, 'f', binanceDecimalPrecision, 64)).
		NewClientOrderID(order.ID)

	if order.OrderType == types.OrderTypeLimit {
		service = service.
			Type(binance.OrderTypeLimit).
			Price(strconv.FormatFloat(order.Price, 'f', -1, 64)).
			TimeInForce(binance.TimeInForceTypeGTC)
	} else {
		service = service.Type(binance.OrderTypeMarket)
	}

	res, err := service.Do(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeOrderPlacementFailed, "failed to place order on Binance", err)
	}

	b.mu.Lock()
	b.exchangeToClient[res.OrderID] = order.ID
	b.mu.Unlock()

	return nil
}

// CancelOrder implements Gateway, canceling by the original client order id.
func (b *BinanceGateway) CancelOrder(ctx context.Context, symbol, orderID string) error {
	_, err := b.client.NewCancelOrderService().
		Symbol(symbol).
		OrigClientOrderID(orderID).
		Do(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeOrderCancelFailed, err, "failed to cancel order %s", orderID)
	}

	return nil
}

// CancelAllOrders implements Gateway.
func (b *BinanceGateway) CancelAllOrders(ctx context.Context, symbol string) error {
	if err := b.client.NewCancelOpenOrdersService().Symbol(symbol).Do(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeOrderCancelFailed, "failed to cancel open orders", err)
	}

	return nil
}

// OpenOrders implements Gateway. Listing also refreshes the exchange-id
// map so fills arriving after a restart still resolve to engine ids.
func (b *BinanceGateway) OpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error) {
	orders, err := b.client.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeOpenOrdersFailed, "failed to list open orders", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	open := make([]OpenOrder, 0, len(orders))

	for _, order := range orders {
		b.exchangeToClient[order.OrderID] = order.ClientOrderID

		price, _ := strconv.ParseFloat(order.Price, 64)
		quantity, _ := strconv.ParseFloat(order.OrigQuantity, 64)

		open = append(open, OpenOrder{
			ID:       order.ClientOrderID,
			Symbol:   order.Symbol,
			Side:     types.Side(order.Side),
			Price:    price,
			Quantity: quantity,
		})
	}

	return open, nil
}

// RecentFills implements Gateway. Trades carry only the exchange order
// id; trades whose order the gateway has never seen are skipped with a
// diagnostic rather than surfaced under an id the engine cannot match.
func (b *BinanceGateway) RecentFills(ctx context.Context, symbol string) ([]Fill, error) {
	b.mu.Lock()
	startTime := b.lastTradeTime + 1
	b.mu.Unlock()

	service := b.client.NewListTradesService().Symbol(symbol).Limit(fillFetchLimit)
	if startTime > 1 {
		service = service.StartTime(startTime)
	}

	trades, err := service.Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFillFetchFailed, "failed to list trades", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	fills := make([]Fill, 0, len(trades))

	for _, trade := range trades {
		if trade.Time > b.lastTradeTime {
			b.lastTradeTime = trade.Time
		}

		clientID, ok := b.exchangeToClient[trade.OrderID]
		if !ok {
			b.log.Warn("trade for unknown exchange order skipped",
				zap.Int64("exchangeOrderId", trade.OrderID),
				zap.Int64("tradeId", trade.ID),
			)

			continue
		}

		price, _ := strconv.ParseFloat(trade.Price, 64)
		quantity, _ := strconv.ParseFloat(trade.Quantity, 64)

		fills = append(fills, Fill{
			TradeID:  strconv.FormatInt(trade.ID, 10),
			OrderID:  clientID,
			Price:    price,
			Quantity: quantity,
			Time:     time.UnixMilli(trade.Time),
		})
	}

	return fills, nil
}
