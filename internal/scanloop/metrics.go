package scanloop

import (
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/gabapcia/walletbot/internal/scanloop"

type instruments struct {
	scanFailures        metric.Int64Counter
	transactionsMatched metric.Int64Counter
	notificationsSent   metric.Int64Counter
	notificationsFailed metric.Int64Counter
	watermark           metric.Int64Gauge
}

func newInstruments(mp metric.MeterProvider) (instruments, error) {
	meter := mp.Meter(instrumentationName)

	var (
		i   instruments
		err error
	)

	if i.scanFailures, err = meter.Int64Counter("walletbot.scan.failures",
		metric.WithDescription("Chain reader, head lookup or checkpoint failures during a scan cycle."),
	); err != nil {
		return instruments{}, err
	}

	if i.transactionsMatched, err = meter.Int64Counter("walletbot.transactions.matched",
		metric.WithDescription("Transactions that passed the direction and value filters."),
	); err != nil {
		return instruments{}, err
	}

	if i.notificationsSent, err = meter.Int64Counter("walletbot.notifications.sent",
		metric.WithDescription("Notifications delivered to subscribers."),
	); err != nil {
		return instruments{}, err
	}

	if i.notificationsFailed, err = meter.Int64Counter("walletbot.notifications.failed",
		metric.WithDescription("Notifications that could not be delivered."),
	); err != nil {
		return instruments{}, err
	}

	if i.watermark, err = meter.Int64Gauge("walletbot.scan.watermark",
		metric.WithDescription("Last fully scanned block height."),
		metric.WithUnit("{block}"),
	); err != nil {
		return instruments{}, err
	}

	return i, nil
}
