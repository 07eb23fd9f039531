package models

type WalletKind string

const (
	WalletMetaMask      WalletKind = "metamask"
	WalletSmartContract WalletKind = "smartcontract"
)

func (k WalletKind) Valid() bool {
	return k == WalletMetaMask || k == WalletSmartContract
}

type WalletState struct {
	Connected bool       `json:"connected"`
	Address   string     `json:"address"`
	Kind      WalletKind `json:"kind"`
}

type SmartContractInput struct {
	Address string `json:"address" binding:"required"`
}

type DepositInfo struct {
	Address      string `json:"address"`
	ShortAddress string `json:"short_address"`
	PaymentURI   string `json:"payment_uri"`
}
