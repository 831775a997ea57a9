package models

import "time"

// CryptoSnapshot is one listing row at capture time. Price and the other
// monetary columns keep the page's currency formatting as scraped. Rows are
// append-only; every row of one scrape pass shares the same ScrapedAt.
type CryptoSnapshot struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	Rank              int       `gorm:"index" json:"rank"`
	Name              string    `gorm:"type:varchar(100);not null;index" json:"name"`
	Price             string    `gorm:"type:varchar(50)" json:"price"`
	Change1h          string    `gorm:"type:varchar(20)" json:"change_1h"`
	Change24h         string    `gorm:"type:varchar(20)" json:"change_24h"`
	Change7d          string    `gorm:"type:varchar(20)" json:"change_7d"`
	MarketCap         string    `gorm:"type:varchar(50)" json:"market_cap"`
	Volume24h         string    `gorm:"type:varchar(50)" json:"volume_24h"`
	CirculatingSupply string    `gorm:"type:varchar(100)" json:"circulating_supply"`
	ScrapedAt         time.Time `gorm:"index" json:"scraped_at"`
}

func (CryptoSnapshot) TableName() string {
	return "crypto_snapshots"
}
