package metrics

import (
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

// Global Tags
var (
	ProviderKey, _    = tag.NewKey("provider")
	EventHandleKey, _ = tag.NewKey("event_handle")
	NetworkKey, _     = tag.NewKey("network")
)

// Distribution
var defaultMillisecondsDistribution = view.Distribution(0.01, 0.05, 0.1, 0.3, 0.6, 0.8, 1, 2, 3, 4, 5, 6, 8, 10, 13, 16, 20, 25, 30, 40, 50, 65, 80, 100, 130, 160, 200, 250, 300, 400, 500, 650, 800, 1000, 2000, 3000, 4000, 5000, 7500, 10000, 20000, 50000, 100000)

var (
	// wallet
	WalletConnect    = stats.Int64("wallet/connect", "Wallet connect", stats.UnitDimensionless)
	WalletDisconnect = stats.Int64("wallet/disconnect", "Wallet disconnect", stats.UnitDimensionless)
	WalletSign       = stats.Float64("wallet/sign", "Wallet sign spent time", stats.UnitMilliseconds)

	// transaction
	TxnSubmit   = stats.Int64("txn/submit", "Transaction submit", stats.UnitDimensionless)
	TxnConfirm  = stats.Float64("txn/confirm", "Transaction confirmation wait spent time", stats.UnitMilliseconds)
	TxnSimulate = stats.Int64("txn/simulate", "Transaction simulation", stats.UnitDimensionless)

	// events
	EventsDelivered = stats.Int64("events/delivered", "Events delivered to subscribers", stats.UnitDimensionless)
	SubscriptionNum = stats.Int64("events/subscription_num", "Live subscription count", stats.UnitDimensionless)
)

var (
	walletConnectView = &view.View{
		Measure:     WalletConnect,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{ProviderKey},
	}
	walletDisconnectView = &view.View{
		Measure:     WalletDisconnect,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{ProviderKey},
	}
	walletSignView = &view.View{
		Measure:     WalletSign,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{ProviderKey},
	}
	txnSubmitView = &view.View{
		Measure:     TxnSubmit,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{NetworkKey},
	}
	txnConfirmView = &view.View{
		Measure:     TxnConfirm,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{NetworkKey},
	}
	txnSimulateView = &view.View{
		Measure:     TxnSimulate,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{NetworkKey},
	}
	eventsDeliveredView = &view.View{
		Measure:     EventsDelivered,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{EventHandleKey},
	}
	subscriptionNumView = &view.View{
		Measure:     SubscriptionNum,
		Aggregation: view.LastValue(),
	}
)

var views = []*view.View{
	walletConnectView,
	walletDisconnectView,
	walletSignView,
	txnSubmitView,
	txnConfirmView,
	txnSimulateView,
	eventsDeliveredView,
	subscriptionNumView,
}

// SinceInMilliseconds returns the duration of time since the provide time as a float64.
func SinceInMilliseconds(startTime time.Time) float64 {
	return float64(time.Since(startTime).Nanoseconds()) / 1e6
}

func init() {
	// register metrics
	_ = view.Register(views...)
}
