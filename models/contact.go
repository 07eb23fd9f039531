package models

import "time"

type Contact struct {
	ID                  int64      `db:"id" json:"id"`
	Name                string     `db:"name" json:"name"`
	WalletAddress       string     `db:"wallet_address" json:"wallet_address"`
	IsFavorite          bool       `db:"is_favorite" json:"is_favorite"`
	LastTransactionDate *time.Time `db:"last_transaction_date" json:"last_transaction_date"`
}

type ContactInput struct {
	Name          string `json:"name" binding:"required"`
	WalletAddress string `json:"wallet_address" binding:"required"`
	IsFavorite    bool   `json:"is_favorite"`
}

type FavoriteInput struct {
	IsFavorite bool `json:"is_favorite"`
}
