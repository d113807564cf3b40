// Package price tracks BTC fiat prices and answers satoshi-per-unit rate
// queries for currency denominated pay links.
package price

import (
	"fmt"
	"io/ioutil"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const satsPerBTC = 100_000_000

type Watcher struct {
	client         *http.Client
	UpdateInterval time.Duration
	Currencies     []string
	Exchanges      map[string]func(string) (float64, error)

	mu    sync.RWMutex
	price map[string]float64
}

func NewWatcher(currencies []string) *Watcher {
	w := &Watcher{
		client: &http.Client{
			Timeout: time.Second * time.Duration(5),
		},
		Currencies:     currencies,
		price:          make(map[string]float64),
		Exchanges:      make(map[string]func(string) (float64, error)),
		UpdateInterval: time.Second * time.Duration(30),
	}
	w.Exchanges["coinbase"] = w.GetCoinbasePrice
	w.Exchanges["bitfinex"] = w.GetBitfinexPrice
	log.Infof("[price] Watcher started")
	return w
}

func (w *Watcher) Start() {
	w.update()
	go w.watch()
}

func (w *Watcher) watch() {
	for {
		time.Sleep(w.UpdateInterval)
		w.update()
	}
}

func (w *Watcher) update() {
	for _, currency := range w.Currencies {
		avgPrice := 0.0
		nResponses := 0
		for exchange, getPrice := range w.Exchanges {
			fprice, err := getPrice(currency)
			if err != nil {
				log.Errorf("[price] %s: %v", exchange, err)
				// if one exchange is down, use the next
				continue
			}
			nResponses++
			avgPrice += fprice
			log.Debugf("[price] %s %s price: %f", exchange,
				currency, fprice)
		}
		if nResponses == 0 {
			continue
		}

		w.mu.Lock()
		w.price[currency] = avgPrice / float64(nResponses)
		w.mu.Unlock()
	}
}

// SatPerUnit returns how many satoshi one unit of the given currency buys at
// the last observed BTC price.
func (w *Watcher) SatPerUnit(currency string) (float64, error) {
	currency = strings.ToUpper(currency)

	w.mu.RLock()
	fiatPerBTC, ok := w.price[currency]
	w.mu.RUnlock()

	if !ok || fiatPerBTC <= 0 {
		return 0, fmt.Errorf("no price for currency '%s'", currency)
	}

	return satsPerBTC / fiatPerBTC, nil
}

func (w *Watcher) GetCoinbasePrice(currency string) (float64, error) {
	endpoint := fmt.Sprintf(
		"https://api.coinbase.com/v2/prices/spot?currency=%s",
		currency,
	)
	response, err := w.client.Get(endpoint)
	if err != nil {
		return 0, err
	}
	defer response.Body.Close()

	bodyBytes, err := ioutil.ReadAll(response.Body)
	if err != nil {
		return 0, err
	}

	price := gjson.Get(string(bodyBytes), "data.amount")
	return strconv.ParseFloat(strings.TrimSpace(price.String()), 64)
}

func (w *Watcher) GetBitfinexPrice(currency string) (float64, error) {
	pair := fmt.Sprintf("btc%s", strings.ToLower(currency))
	endpoint := fmt.Sprintf(
		"https://api.bitfinex.com/v1/pubticker/%s", pair,
	)
	response, err := w.client.Get(endpoint)
	if err, ok := err.(net.Error); ok && err.Timeout() {
		return 0, err
	}
	if err != nil {
		return 0, err
	}
	defer response.Body.Close()

	bodyBytes, err := ioutil.ReadAll(response.Body)
	if err != nil {
		return 0, err
	}

	price := gjson.Get(string(bodyBytes), "last_price")
	return strconv.ParseFloat(strings.TrimSpace(price.String()), 64)
}
