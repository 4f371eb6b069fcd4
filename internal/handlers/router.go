package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/heodongun/DongunCoinHub/internal/auth"
	"github.com/heodongun/DongunCoinHub/internal/health"
	"github.com/heodongun/DongunCoinHub/internal/httpmiddleware"
	"github.com/heodongun/DongunCoinHub/internal/metrics"
)

// RouterDeps carries everything the HTTP surface needs.
type RouterDeps struct {
	Logger    *slog.Logger
	Registry  *prometheus.Registry
	Health    *health.State
	Issuer    *auth.TokenIssuer
	Auth      *AuthHandler
	Trade     *TradeHandler
	Account   *AccountHandler
	Market    *MarketHandler
	NFT       *NFTHandler
	Onchain   *OnchainHandler
	Watchlist *WatchlistHandler
	Tickers   gin.HandlerFunc
}

func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.Logger(deps.Logger))
	r.Use(httpmiddleware.Recovery(deps.Logger))

	r.GET("/healthz", health.Liveness)
	r.GET("/readyz", health.Readiness(deps.Health))
	r.GET("/metrics", gin.WrapH(metrics.Handler(deps.Registry)))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", deps.Auth.Register)
	authGroup.POST("/login", deps.Auth.Login)
	authGroup.POST("/refresh", deps.Auth.Refresh)

	market := api.Group("/market")
	market.GET("/tickers", deps.Market.Tickers)
	market.GET("/coins/:symbol", deps.Market.CoinBySymbol)

	api.GET("/onchain/chains/:chainName", deps.Onchain.ChainMetrics)

	protected := api.Group("")
	protected.Use(auth.Middleware(deps.Issuer))

	protected.GET("/account/summary", deps.Account.Summary)

	protected.POST("/trade/order", deps.Trade.PlaceOrder)
	protected.GET("/trade/orders", deps.Trade.ListOrders)

	protected.GET("/watchlist", deps.Watchlist.List)
	protected.POST("/watchlist", deps.Watchlist.Add)
	protected.DELETE("/watchlist/:symbol", deps.Watchlist.Remove)

	nft := api.Group("/nft")
	nft.GET("/list", deps.NFT.ListVault)
	nft.GET("/orders", deps.NFT.ListOrders)

	nftProtected := protected.Group("/nft")
	nftProtected.GET("/my", deps.NFT.ListMine)
	nftProtected.POST("/mint", deps.NFT.Mint)
	nftProtected.POST("/buy", deps.NFT.Buy)
	nftProtected.POST("/sell", deps.NFT.Sell)
	nftProtected.POST("/withdraw", deps.NFT.Withdraw)

	if deps.Tickers != nil {
		r.GET("/ws/tickers", deps.Tickers)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Code: "NOT_FOUND", Message: "route not found"})
	})

	return r
}
