package symbols

// alias mapea un término coloquial a su símbolo canónico.
type alias struct {
	term   string
	symbol string
}

// aliasTable se recorre en orden; el primer alias presente gana.
//
// Orden: metales preciosos, metales industriales, apodos forex, códigos
// forex, cripto, energía, índices.
var aliasTable = []alias{
	// Metales preciosos
	{"GOLD", "XAUUSD"},
	{"XAU", "XAUUSD"},
	{"SILVER", "XAGUSD"},
	{"XAG", "XAGUSD"},
	{"PLATINUM", "XPTUSD"},
	{"XPT", "XPTUSD"},
	{"PALLADIUM", "XPDUSD"},
	{"XPD", "XPDUSD"},

	// Metales industriales
	{"ALUMINUM", "XALUSD"},
	{"ALUMINIUM", "XALUSD"},
	{"COPPER", "XCUUSD"},
	{"NICKEL", "XNIUSD"},
	{"LEAD", "XPBUSD"},
	{"ZINC", "XZNUSD"},

	// Apodos forex
	{"FIBER", "EURUSD"},
	{"CABLE", "GBPUSD"},
	{"GOPHER", "USDJPY"},
	{"AUSSIE", "AUDUSD"},
	{"KIWI", "NZDUSD"},
	{"LOONIE", "USDCAD"},
	{"SWISSIE", "USDCHF"},

	// Códigos forex sueltos
	{"EUR", "EURUSD"},
	{"EURO", "EURUSD"},
	{"GBP", "GBPUSD"},
	{"POUND", "GBPUSD"},
	{"JPY", "USDJPY"},
	{"YEN", "USDJPY"},
	{"AUD", "AUDUSD"},
	{"NZD", "NZDUSD"},
	{"CAD", "USDCAD"},
	{"CHF", "USDCHF"},
	{"FRANC", "USDCHF"},

	// Cripto
	{"BITCOIN", "BTCUSD"},
	{"BTC", "BTCUSD"},
	{"ETHEREUM", "ETHUSD"},
	{"ETH", "ETHUSD"},
	{"LITECOIN", "LTCUSD"},
	{"LTC", "LTCUSD"},
	{"RIPPLE", "XRPUSD"},
	{"XRP", "XRPUSD"},
	{"CARDANO", "ADAUSD"},
	{"ADA", "ADAUSD"},
	{"DOGECOIN", "DOGEUSD"},
	{"DOGE", "DOGEUSD"},
	{"SOLANA", "SOLUSD"},
	{"SOL", "SOLUSD"},

	// Energía
	{"OIL", "USOIL"},
	{"CRUDE", "USOIL"},
	{"WTI", "USOIL"},
	{"BRENT", "UKOIL"},
	{"GAS", "XNGUSD"},
	{"NATGAS", "XNGUSD"},
	{"NATURALGAS", "XNGUSD"},

	// Índices
	{"DOW", "US30"},
	{"DOWJONES", "US30"},
	{"NASDAQ", "USTEC"},
	{"NAS100", "USTEC"},
	{"NAS", "USTEC"},
	{"SPX", "US500"},
	{"SP500", "US500"},
	{"SNP", "US500"},
	{"S&P", "US500"},
	{"FTSE", "UK100"},
	{"DAX", "DE30"},
	{"CAC", "FR40"},
	{"NIKKEI", "JP225"},
	{"ASX", "AUS200"},
	{"HANGSENG", "HK50"},
	{"HSI", "HK50"},
	{"STOXX", "STOXX50"},
	{"EUROSTOXX", "STOXX50"},
}

// knownShortSymbols códigos válidos por debajo del largo mínimo del patrón.
// Las variantes amplificadas se guardan en mayúsculas (el texto ya viene normalizado).
var knownShortSymbols = map[string]struct{}{
	"US30":       {},
	"US500":      {},
	"UK100":      {},
	"DE30":       {},
	"FR40":       {},
	"JP225":      {},
	"HK50":       {},
	"USTEC":      {},
	"AUS200":     {},
	"STOXX50":    {},
	"UKOIL":      {},
	"USOIL":      {},
	"US30_X10":   {},
	"USTEC_X100": {},
	"US500_X100": {},
}

// stoplist tokens con forma de símbolo que nunca lo son.
var stoplist = map[string]struct{}{
	"BUY": {}, "SELL": {}, "LONG": {}, "SHORT": {}, "CLOSE": {},
	"NOW": {}, "MARKET": {}, "LIMIT": {}, "IMMEDIATE": {}, "ASAP": {},
	"STOP": {}, "LOSS": {}, "TAKE": {}, "PROFIT": {}, "TARGET": {},
	"SL": {}, "TP": {}, "ENTRY": {}, "PRICE": {}, "ORDER": {},
	"SIGNAL": {}, "SIGNALS": {}, "UPDATE": {}, "PENDING": {},
	"THE": {}, "AND": {}, "FOR": {}, "WITH": {}, "FROM": {},
	"THIS": {}, "THAT": {}, "HAVE": {}, "WILL": {}, "JUST": {},
	"MESSAGE": {},
}
