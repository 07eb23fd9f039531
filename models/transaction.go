package models

import "time"

type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxCompleted TxStatus = "completed"
	TxFailed    TxStatus = "failed"
)

func (s TxStatus) Valid() bool {
	switch s {
	case TxPending, TxCompleted, TxFailed:
		return true
	}
	return false
}

func (s TxStatus) Terminal() bool {
	return s == TxCompleted || s == TxFailed
}

type TxType string

const (
	TxSend    TxType = "send"
	TxReceive TxType = "receive"
)

type Transaction struct {
	ID          int64     `db:"id" json:"id"`
	FromAddress string    `db:"from_address" json:"from_address"`
	ToAddress   string    `db:"to_address" json:"to_address"`
	Amount      string    `db:"amount" json:"amount"` // wei, base 10
	AmountInEth string    `db:"amount_in_eth" json:"amount_in_eth"`
	Timestamp   time.Time `db:"timestamp" json:"timestamp"`
	TxHash      *string   `db:"tx_hash" json:"tx_hash"` // nil until the gateway answers
	Message     *string   `db:"message" json:"message,omitempty"`
	Status      TxStatus  `db:"status" json:"status"`
	Type        TxType    `db:"type" json:"type"`
}

// Direction reports how the transaction looks from viewer's side.
func (t Transaction) Direction(viewer string, same func(a, b string) bool) TxType {
	if same(t.ToAddress, viewer) && !same(t.FromAddress, viewer) {
		return TxReceive
	}
	return t.Type
}

type SendInput struct {
	ToAddress string `json:"to_address" binding:"required"`
	AmountEth string `json:"amount_eth" binding:"required"`
	Message   string `json:"message"`
}

type TransactionStats struct {
	Address      string `json:"address"`
	SentEth      string `json:"sent_eth"`
	ReceivedEth  string `json:"received_eth"`
	Transactions int    `json:"transactions"`
}
