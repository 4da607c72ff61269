package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/kysee/zkcharity/zk-charity/charity"
	"github.com/kysee/zkcharity/zk-charity/node"
	"github.com/kysee/zkcharity/zk-charity/prover"
	"github.com/kysee/zkcharity/zk-charity/sdk"
	"github.com/kysee/zkcharity/zk-charity/types"
	"github.com/kysee/zkcharity/zk-charity/verifier"
	"github.com/kysee/zkcharity/zk-charity/wallet"
	"github.com/rs/zerolog"
)

const msgMissingProofFields = "Missing required fields for proof generation."

type App struct {
	Prover    *prover.Prover
	Verifier  *verifier.Verifier
	SDK       *sdk.Client
	Dashboard *sdk.Dashboard
	Ledger    *node.Ledger
	Charities *charity.Registry

	validate *validator.Validate
	log      zerolog.Logger
}

func NewApp(p *prover.Prover, client *sdk.Client, dash *sdk.Dashboard, l *node.Ledger, reg *charity.Registry, log zerolog.Logger) *App {
	return &App{
		Prover:    p,
		Verifier:  p.Verifier(),
		SDK:       client,
		Dashboard: dash,
		Ledger:    l,
		Charities: reg,
		validate:  validator.New(),
		log:       log.With().Str("module", "server").Logger(),
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}

// fail maps a domain error to its status code. Unexpected errors are logged
// and hidden behind a generic message.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		a.log.Error().Err(err).Str("requestId", RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).Msg("request failed")
		a.error(w, code, "internal error")
		return
	}
	a.error(w, code, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrMissingFields),
		errors.Is(err, types.ErrInvalidAmount),
		errors.Is(err, types.ErrUnknownPrivacyLevel),
		errors.Is(err, types.ErrInvalidTx),
		errors.Is(err, types.ErrInvalidProof),
		errors.Is(err, types.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrInsufficientDust),
		errors.Is(err, types.ErrInsufficientNight):
		return http.StatusPaymentRequired
	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrUnknownCharity),
		errors.Is(err, wallet.ErrWalletNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrNullifierExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// decode reads a JSON body into v and validates it.
func (a *App) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return a.validate.Struct(v)
}
