package domain

import (
	"github.com/gagliardetto/solana-go"
)

// Token is immutable token metadata.
type Token struct {
	Mint     solana.PublicKey `json:"mint"`
	Decimals uint8            `json:"decimals"`
	Symbol   string           `json:"symbol"`
}

func NewToken(mint solana.PublicKey, decimals uint8, symbol string) Token {
	return Token{Mint: mint, Decimals: decimals, Symbol: symbol}
}

func (t Token) IsNative() bool {
	return t.Mint.Equals(solana.SolMint)
}

// TradeToken is either a fiat currency or an on-chain token. Only crypto tokens can be swapped.
type TradeToken interface {
	isTradeToken()
	Code() string
}

type FiatToken struct {
	Currency string
}

type CryptoToken struct {
	Token Token
}

func (FiatToken) isTradeToken()   {}
func (CryptoToken) isTradeToken() {}

func (f FiatToken) Code() string { return f.Currency }

func (c CryptoToken) Code() string {
	if c.Token.Symbol != "" {
		return c.Token.Symbol
	}
	return c.Token.Mint.String()
}
