// Package orderbook is the price-time matching book behind the exchange
// simulator. It produces the fills and aggregated depth that get published.
package orderbook
