package domain

// Coin is one row of the warehouse coin dimension. Name and symbol track
// the latest snapshot seen for the coin.
type Coin struct {
	ID     string // stable provider identifier, e.g. "bitcoin"
	Name   string // display name
	Symbol string // ticker symbol, e.g. "btc"
}
