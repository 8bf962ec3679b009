package database

import "github.com/shopspring/decimal"

// DataSourceRecord is a configured data source, keyed by its config name.
type DataSourceRecord struct {
	Name string `gorm:"type:varchar(20);primaryKey"`
}

func (DataSourceRecord) TableName() string {
	return "datasource"
}

// SymbolRecord is a canonical instrument name, independent of any data source.
type SymbolRecord struct {
	Name string `gorm:"type:varchar(32);primaryKey"`
}

func (SymbolRecord) TableName() string {
	return "symbol"
}

// DataSourceSymbolRecord maps a data source to a symbol and flags whether
// price data is retrieved for the pair.
type DataSourceSymbolRecord struct {
	ID uint `gorm:"primaryKey;autoIncrement"`

	// unique pair
	DataSourceName string `gorm:"column:datasource_name;type:varchar(20);not null;index:idx_datasource_symbol_pair,unique"`
	SymbolName     string `gorm:"column:symbol_name;type:varchar(32);not null;index:idx_datasource_symbol_pair,unique"`

	RetrievePriceData bool `gorm:"column:retrieve_price_data;not null"`

	DataSource DataSourceRecord `gorm:"foreignKey:DataSourceName;references:Name"`
	Symbol     SymbolRecord     `gorm:"foreignKey:SymbolName;references:Name"`
}

func (DataSourceSymbolRecord) TableName() string {
	return "datasource_symbol"
}

// CandleRecord is a bid/ask OHLC candle for a datasource symbol.
// Part of the schema; the symbol sync never writes it.
type CandleRecord struct {
	ID int64 `gorm:"primaryKey"`

	DataSourceSymbolID uint                   `gorm:"column:datasource_symbol_id;index:idx_candle_datasource_symbol"`
	DataSourceSymbol   DataSourceSymbolRecord `gorm:"foreignKey:DataSourceSymbolID"`

	BidOpen  decimal.Decimal `gorm:"type:numeric(12,6)"`
	BidHigh  decimal.Decimal `gorm:"type:numeric(12,6)"`
	BidLow   decimal.Decimal `gorm:"type:numeric(12,6)"`
	BidClose decimal.Decimal `gorm:"type:numeric(12,6)"`
	AskOpen  decimal.Decimal `gorm:"type:numeric(12,6)"`
	AskHigh  decimal.Decimal `gorm:"type:numeric(12,6)"`
	AskLow   decimal.Decimal `gorm:"type:numeric(12,6)"`
	AskClose decimal.Decimal `gorm:"type:numeric(12,6)"`

	// number of ticks in the candle
	Volume int `gorm:"type:integer"`
}

func (CandleRecord) TableName() string {
	return "candle"
}
