package service

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"hashpay/internal/wallet"
	"hashpay/models"
	"hashpay/pkg/apperr"
	"hashpay/pkg/gateway"
	"hashpay/pkg/metrics"
	"hashpay/pkg/repository"
	"hashpay/pkg/stream"
	"hashpay/pkg/units"
)

const finishTimeout = 5 * time.Second

type TransferService struct {
	txs      repository.Transactions
	contacts repository.Contacts
	conn     *wallet.Connection
	chain    ChainGateway
	contract string
	now      func() time.Time
	result   *stream.State[models.TransactionState]
}

func NewTransferService(txs repository.Transactions, contacts repository.Contacts, conn *wallet.Connection, chain ChainGateway, opts Options) *TransferService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &TransferService{
		txs:      txs,
		contacts: contacts,
		conn:     conn,
		chain:    chain,
		contract: strings.TrimSpace(opts.ContractAddress),
		now:      now,
		result:   stream.NewState(models.Idle()),
	}
}

func (s *TransferService) LastResult() models.TransactionState {
	return s.result.Get()
}

func (s *TransferService) SubscribeResults(ctx context.Context) <-chan models.TransactionState {
	return s.result.Subscribe(ctx)
}

// Send validates the request, records a pending transaction, and submits it
// through the wallet. Once a row exists it always ends completed or failed.
func (s *TransferService) Send(ctx context.Context, input models.SendInput) (models.Transaction, error) {
	stage := models.StageIdle
	s.result.Set(models.Loading())

	tx, err := s.send(ctx, input, &stage)

	metrics.SubmissionsTotal.WithLabelValues(stage.String()).Inc()
	log := logrus.WithFields(logrus.Fields{"stage": stage.String(), "tx_id": tx.ID})
	if err != nil {
		log.WithError(err).Warn("send finished with error")
		state := models.Failure(apperr.Message(err))
		state.TxID = tx.ID
		s.result.Set(state)
		return tx, err
	}

	log.Info("send completed")
	state := models.Success("Transaction sent successfully")
	state.TxID = tx.ID
	if tx.TxHash != nil {
		state.TxHash = *tx.TxHash
	}
	s.result.Set(state)
	return tx, nil
}

func (s *TransferService) send(ctx context.Context, input models.SendInput, stage *models.SubmissionStage) (tx models.Transaction, err error) {
	*stage = models.StageValidating

	from, ok := s.conn.Address()
	if !ok {
		*stage = models.StageNeedsConnection
		return tx, apperr.NotConnected("connect a wallet before sending")
	}
	to, wei, message, err := s.validate(input)
	if err != nil {
		*stage = models.StageInvalidInput
		return tx, err
	}
	if err := s.checkBalance(ctx, from, wei); err != nil {
		*stage = models.StageInvalidInput
		return tx, err
	}

	*stage = models.StageSubmitting
	tx = models.Transaction{
		FromAddress: from,
		ToAddress:   to,
		Amount:      wei.String(),
		AmountInEth: strings.TrimSpace(input.AmountEth),
		Timestamp:   s.now().UTC(),
		Status:      models.TxPending,
		Type:        models.TxSend,
	}
	if message != "" {
		tx.Message = &message
	}

	*stage = models.StagePersistPending
	tx.ID, err = s.txs.Create(ctx, tx)
	if err != nil {
		*stage = models.StageFailed
		return tx, err
	}

	finished := false
	defer func() {
		if finished {
			return
		}
		if r := recover(); r != nil {
			logrus.WithField("tx_id", tx.ID).Errorf("send panicked: %v", r)
			err = apperr.RPC(apperr.CodeInternal, fmt.Sprintf("send aborted: %v", r))
		}
		if err == nil {
			err = apperr.RPC(apperr.CodeInternal, "send aborted")
		}
		s.finish(ctx, &tx, models.TxFailed, nil)
		*stage = models.StageFailed
	}()

	name := fmt.Sprintf("Contact #%d", tx.ID)
	if err := s.contacts.Touch(ctx, to, name, tx.Timestamp); err != nil {
		logrus.WithError(err).WithField("address", to).Warn("recipient contact not updated")
	}

	*stage = models.StageAwaitingChain
	hash, sendErr := s.submit(ctx, from, to, message, wei)
	if sendErr != nil {
		s.finish(ctx, &tx, models.TxFailed, nil)
		finished = true
		*stage = models.StageFailed
		return tx, sendErr
	}

	if err := s.finish(ctx, &tx, models.TxCompleted, &hash); err != nil {
		// the chain accepted the transfer, so the row must not become failed
		finished = true
		*stage = models.StageFailed
		return tx, err
	}
	finished = true
	*stage = models.StageCompleted
	return tx, nil
}

func (s *TransferService) validate(input models.SendInput) (to string, wei *big.Int, message string, err error) {
	to = strings.TrimSpace(input.ToAddress)
	if to == "" {
		return "", nil, "", apperr.Validation("recipient address is required")
	}
	if !wallet.IsValidAddress(to) {
		return "", nil, "", apperr.Validation("recipient address is not a valid address")
	}

	amount, err := units.ParseEth(input.AmountEth)
	if err != nil {
		return "", nil, "", apperr.Validation(err.Error())
	}
	wei = units.DecimalToWei(amount)
	if wei.Sign() <= 0 {
		return "", nil, "", apperr.Validation("amount is smaller than 1 wei")
	}
	return wallet.Normalize(to), wei, strings.TrimSpace(input.Message), nil
}

// checkBalance rejects sends the wallet obviously cannot cover. It only
// runs with a live provider session and never fails the send on its own
// errors.
func (s *TransferService) checkBalance(ctx context.Context, from string, wei *big.Int) error {
	if !s.chain.IsConnected() {
		return nil
	}
	balance, err := s.chain.GetBalance(ctx, from, gateway.SkipAutoConnect())
	if err != nil {
		logrus.WithError(err).Debug("balance check skipped")
		return nil
	}
	if balance.Cmp(wei) < 0 {
		return apperr.Validationf("insufficient balance: %s ETH available", units.FormatEth(balance, balancePlaces))
	}
	return nil
}

func (s *TransferService) submit(ctx context.Context, from, to, message string, wei *big.Int) (string, error) {
	if !s.chain.IsConnected() {
		if _, err := s.chain.Connect(ctx); err != nil {
			return "", err
		}
	}
	logrus.WithFields(logrus.Fields{
		"from":  from,
		"to":    to,
		"value": units.ToHex(wei),
	}).Info("submitting transfer")

	if message != "" && s.contract != "" {
		return s.chain.SendContractCall(ctx, from, s.contract, to, message, wei)
	}
	return s.chain.SendTransaction(ctx, from, to, wei)
}

// finish moves the row to a terminal status. It runs detached from the
// caller so a cancelled request still settles the row.
// SweepPending reports rows still pending when the service starts. A send
// runs inside one request, so any such row belongs to a process that died
// or lost its store mid-send. The chain outcome is unknown here, so the rows
// are logged for manual reconciliation and left untouched.
func (s *TransferService) SweepPending(ctx context.Context) (int, error) {
	pending, err := s.txs.ListByStatus(ctx, models.TxPending)
	if err != nil {
		return 0, err
	}
	now := s.now()
	for _, tx := range pending {
		logrus.WithFields(logrus.Fields{
			"tx_id":  tx.ID,
			"to":     tx.ToAddress,
			"amount": tx.AmountInEth,
			"age":    now.Sub(tx.Timestamp).Round(time.Second).String(),
		}).Warn("transaction pending since a previous run")
	}
	return len(pending), nil
}

func (s *TransferService) finish(ctx context.Context, tx *models.Transaction, status models.TxStatus, hash *string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	changed, err := s.txs.UpdateStatus(ctx, tx.ID, status, hash)
	if err != nil {
		changed, err = s.txs.UpdateStatus(ctx, tx.ID, status, hash)
	}
	if err != nil {
		log := logrus.WithError(err).WithFields(logrus.Fields{"tx_id": tx.ID, "status": status})
		if hash != nil {
			log = log.WithField("tx_hash", *hash)
		}
		log.Error("transaction left pending")
		return err
	}
	if !changed {
		logrus.WithField("tx_id", tx.ID).Warn("transaction was already settled")
	}
	tx.Status = status
	tx.TxHash = hash
	return nil
}
