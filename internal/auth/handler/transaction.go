package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
)

const (
	txnCookieName = "__oauth_txn"
	txnTTL        = 5 * time.Minute

	txnState    = "state"
	txnVerifier = "verifier"
	txnReturnTo = "return_to"
)

// transaction is what the login redirect has to remember until the callback.
type transaction struct {
	State    string
	Verifier string
	ReturnTo string
}

func newTxnStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(txnTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func saveTxn(store sessions.Store, w http.ResponseWriter, r *http.Request, txn transaction) error {
	s, err := store.Get(r, txnCookieName)
	if err != nil && s == nil {
		return err
	}
	s.Values[txnState] = txn.State
	s.Values[txnVerifier] = txn.Verifier
	s.Values[txnReturnTo] = txn.ReturnTo
	return s.Save(r, w)
}

// loadTxn returns the pending transaction. A missing or tampered cookie
// yields ok=false.
func loadTxn(store sessions.Store, r *http.Request) (transaction, bool) {
	s, err := store.Get(r, txnCookieName)
	if err != nil || s.IsNew {
		return transaction{}, false
	}
	state, _ := s.Values[txnState].(string)
	verifier, _ := s.Values[txnVerifier].(string)
	returnTo, _ := s.Values[txnReturnTo].(string)
	if state == "" || verifier == "" {
		return transaction{}, false
	}
	return transaction{State: state, Verifier: verifier, ReturnTo: returnTo}, true
}

func clearTxn(store sessions.Store, w http.ResponseWriter, r *http.Request) {
	s, _ := store.Get(r, txnCookieName)
	if s == nil {
		return
	}
	s.Options.MaxAge = -1
	_ = s.Save(r, w)
}

// safeReturnTo only accepts same-origin relative paths.
func safeReturnTo(v string) string {
	if v == "" || !strings.HasPrefix(v, "/") || strings.HasPrefix(v, "//") || strings.HasPrefix(v, "/\\") {
		return "/"
	}
	return v
}
