package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hashpay/internal/wallet"
	"hashpay/models"
	"hashpay/pkg/apperr"
	"hashpay/pkg/gateway"
	"hashpay/pkg/repository"
	"hashpay/pkg/service"
)

const (
	alice = "0x52908400098527886E0F7030069857D2E4169EE7"
	bob   = "0x8617E340B3D01FA5F11F306F4090FD50E238070D"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubChain answers like an unlocked provider holding address.
type stubChain struct {
	address string
	balance *big.Int
	hash    string
	sendErr error
}

func (s *stubChain) Connect(context.Context) (string, error) {
	if s.address == "" {
		return "", apperr.RPC(4001, "User rejected the request.")
	}
	return s.address, nil
}

func (s *stubChain) SelectedAddress(context.Context) (string, error) { return s.address, nil }
func (s *stubChain) IsConnected() bool                              { return s.address != "" }

func (s *stubChain) GetBalance(context.Context, string, ...gateway.CallOption) (*big.Int, error) {
	return s.balance, nil
}

func (s *stubChain) SendTransaction(context.Context, string, string, *big.Int) (string, error) {
	return s.hash, s.sendErr
}

func (s *stubChain) SendContractCall(context.Context, string, string, string, string, *big.Int) (string, error) {
	return s.hash, s.sendErr
}

func (s *stubChain) Disconnect(context.Context, bool) error { return nil }

type testAPI struct {
	router *gin.Engine
	chain  *stubChain
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := repository.NewDB(repository.Config{Driver: repository.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.Migrate(context.Background(), db))

	repos := repository.NewRepository(db)
	chain := &stubChain{
		balance: new(big.Int).Mul(big.NewInt(10), big.NewInt(1_000_000_000_000_000_000)),
		hash:    "0xfeed",
	}
	svc := service.NewService(repos, wallet.NewConnection(repos.Preferences), chain, service.Options{})
	return &testAPI{router: NewHandler(svc).InitRoute(nil), chain: chain}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// connectAs switches the provider account and connects through the API.
func (a *testAPI) connectAs(t *testing.T, address string) {
	t.Helper()
	a.chain.address = address
	w := a.do(t, http.MethodPost, "/api/wallet/connect", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var body struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) Error {
	t.Helper()
	var e Error
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e), w.Body.String())
	return e
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.KindValidation, http.StatusBadRequest},
		{apperr.KindNotConnected, http.StatusPreconditionRequired},
		{apperr.KindPermission, http.StatusForbidden},
		{apperr.KindNotFound, http.StatusNotFound},
		{apperr.KindConflict, http.StatusConflict},
		{apperr.KindTimeout, http.StatusGatewayTimeout},
		{apperr.KindRPC, http.StatusBadGateway},
		{apperr.KindPersistence, http.StatusInternalServerError},
		{apperr.KindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.kind))
		})
	}
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = a.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWalletRoutes(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodGet, "/api/wallet/balance", nil)
	assert.Equal(t, http.StatusPreconditionRequired, w.Code)
	assert.Equal(t, "not_connected", decodeError(t, w).Kind)

	w = a.do(t, http.MethodPost, "/api/wallet/connect", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "User rejected the request.", decodeError(t, w).Message)

	a.connectAs(t, alice)
	st := decodeData[models.WalletState](t, a.do(t, http.MethodGet, "/api/wallet/state", nil))
	assert.Equal(t, models.WalletState{Connected: true, Address: alice, Kind: models.WalletMetaMask}, st)

	w = a.do(t, http.MethodGet, "/api/wallet/balance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10.000000", decodeData[models.Balance](t, w).Eth)

	deposit := decodeData[models.DepositInfo](t, a.do(t, http.MethodGet, "/api/wallet/deposit", nil))
	assert.Equal(t, "ethereum:"+alice, deposit.PaymentURI)

	w = a.do(t, http.MethodPost, "/api/wallet/verify", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodPost, "/api/wallet/disconnect", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	st = decodeData[models.WalletState](t, a.do(t, http.MethodGet, "/api/wallet/state", nil))
	assert.False(t, st.Connected)

	w = a.do(t, http.MethodPost, "/api/wallet/connect/smart-contract", gin.H{"address": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendRoutes(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodPost, "/api/transactions/send", models.SendInput{ToAddress: bob, AmountEth: "1"})
	assert.Equal(t, http.StatusPreconditionRequired, w.Code)

	a.connectAs(t, alice)
	w = a.do(t, http.MethodPost, "/api/transactions/send", gin.H{"to_address": bob})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPost, "/api/transactions/send", models.SendInput{ToAddress: bob, AmountEth: "0"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", decodeError(t, w).Kind)

	w = a.do(t, http.MethodPost, "/api/transactions/send", models.SendInput{ToAddress: bob, AmountEth: "1.5"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tx := decodeData[models.Transaction](t, w)
	assert.Equal(t, models.TxCompleted, tx.Status)

	last := decodeData[models.TransactionState](t, a.do(t, http.MethodGet, "/api/transactions/last-result", nil))
	assert.Equal(t, models.StateSuccess, last.Kind)

	mine := decodeData[[]models.Transaction](t, a.do(t, http.MethodGet, "/api/transactions?scope=mine", nil))
	require.Len(t, mine, 1)
	assert.Equal(t, tx.ID, mine[0].ID)

	w = a.do(t, http.MethodGet, "/api/transactions?status=lost", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	stats := decodeData[models.TransactionStats](t, a.do(t, http.MethodGet, "/api/transactions/stats", nil))
	assert.Equal(t, "1.500000", stats.SentEth)

	w = a.do(t, http.MethodGet, "/api/transactions/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = a.do(t, http.MethodGet, "/api/transactions/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	contacts := decodeData[[]models.Contact](t, a.do(t, http.MethodGet, "/api/contacts/recent", nil))
	require.Len(t, contacts, 1)
	assert.Equal(t, bob, contacts[0].WalletAddress)
}

func TestContactRoutes(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodPost, "/api/contacts", models.ContactInput{Name: "Bob", WalletAddress: bob})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeData[models.Contact](t, w)

	w = a.do(t, http.MethodPost, "/api/contacts", models.ContactInput{Name: "Bobby", WalletAddress: bob})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(t, http.MethodPut, "/api/contacts/"+itoa(created.ID)+"/favorite", models.FavoriteInput{IsFavorite: true})
	assert.Equal(t, http.StatusNoContent, w.Code)
	favs := decodeData[[]models.Contact](t, a.do(t, http.MethodGet, "/api/contacts/favorites", nil))
	assert.Len(t, favs, 1)

	w = a.do(t, http.MethodPut, "/api/contacts/"+itoa(created.ID), models.ContactInput{Name: "Robert", WalletAddress: bob})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Robert", decodeData[models.Contact](t, w).Name)

	w = a.do(t, http.MethodGet, "/api/contacts/recent?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodDelete, "/api/contacts/"+itoa(created.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = a.do(t, http.MethodDelete, "/api/contacts/"+itoa(created.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvoiceRoutes(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodPost, "/api/invoices", models.InvoiceInput{ReceiverAddress: alice, Amount: "0.5"})
	assert.Equal(t, http.StatusPreconditionRequired, w.Code)

	a.connectAs(t, alice)
	w = a.do(t, http.MethodPost, "/api/invoices", models.InvoiceInput{ReceiverAddress: alice, Amount: "0"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPost, "/api/invoices", models.InvoiceInput{ReceiverAddress: alice, Amount: "0.5", Description: "Logo"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	inv := decodeData[models.InvoiceView](t, w)
	assert.Equal(t, models.InvoicePending, inv.Status)
	assert.Equal(t, alice, inv.SenderAddress)
	path := "/api/invoices/" + itoa(inv.ID)

	w = a.do(t, http.MethodPost, path+"/pay", nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "receiver cannot pay")

	a.connectAs(t, bob)
	w = a.do(t, http.MethodPost, path+"/cancel", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodPost, path+"/pay", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	paid := decodeData[models.InvoiceView](t, w)
	assert.True(t, paid.IsPaid)
	assert.Equal(t, "0xfeed", *paid.TransactionHash)

	w = a.do(t, http.MethodPost, path+"/mark-paid", models.MarkPaidInput{TransactionHash: "0xbeef"})
	assert.Equal(t, http.StatusConflict, w.Code)

	a.connectAs(t, alice)
	w = a.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	list := decodeData[[]models.InvoiceView](t, a.do(t, http.MethodGet, "/api/invoices?status=PAID&scope=mine", nil))
	require.Len(t, list, 1)
	assert.Equal(t, inv.ID, list[0].ID)

	w = a.do(t, http.MethodGet, "/api/invoices?status=SOON", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// openStream subscribes to an SSE route and yields its data lines.
func openStream(t *testing.T, srv *httptest.Server, path string) <-chan string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	events := make(chan string, 4)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data:") {
				events <- line
			}
		}
		close(events)
	}()
	return events
}

func TestStreamWalletState(t *testing.T) {
	a := newTestAPI(t)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	events := openStream(t, srv, "/api/wallet/state/stream")
	assert.Contains(t, <-events, `"connected":false`)

	a.connectAs(t, alice)
	assert.Contains(t, <-events, alice)
}

func TestStreamContacts(t *testing.T) {
	a := newTestAPI(t)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	all := openStream(t, srv, "/api/contacts/stream")
	recent := openStream(t, srv, "/api/contacts/stream?recent=1")
	assert.NotContains(t, <-all, bob)
	assert.NotContains(t, <-recent, bob)

	w := a.do(t, http.MethodPost, "/api/contacts", models.ContactInput{Name: "Bob", WalletAddress: bob})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, <-all, bob)
	assert.Contains(t, <-recent, bob)

	w = a.do(t, http.MethodGet, "/api/contacts/stream?recent=-2", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "recent must be a non-negative integer", decodeError(t, w).Message)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
