package server

import (
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kysee/zkcharity/zk-charity/prover"
	"github.com/kysee/zkcharity/zk-charity/sdk"
	"github.com/kysee/zkcharity/zk-charity/types"
	"github.com/shopspring/decimal"
)

func (a *App) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ZK Charity Proof Server is running!"))
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

type generateProofRequest struct {
	Amount       decimal.Decimal    `json:"amount"`
	DonorSecret  string             `json:"donorSecret" validate:"required"`
	CharityID    string             `json:"charityId" validate:"required"`
	PrivacyLevel types.PrivacyLevel `json:"privacyLevel"`
}

type generateProofResponse struct {
	Backend       types.Backend       `json:"backend"`
	Proof         prover.SnarkJSProof `json:"proof"`
	PublicSignals []string            `json:"publicSignals"`
	ProofBytes    string              `json:"proofBytes"`
	Salt          string              `json:"salt"`
}

func (a *App) GenerateProof(w http.ResponseWriter, r *http.Request) {
	var req generateProofRequest
	if err := a.decode(r, &req); err != nil {
		if errors.Is(err, types.ErrUnknownPrivacyLevel) {
			a.error(w, http.StatusBadRequest, err.Error())
			return
		}
		a.error(w, http.StatusBadRequest, msgMissingProofFields)
		return
	}
	if req.Amount.IsZero() {
		a.error(w, http.StatusBadRequest, msgMissingProofFields)
		return
	}
	units, err := types.ToBaseUnits(req.Amount)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	lvl := req.PrivacyLevel
	if lvl == "" {
		lvl = types.PRIVATE
	}

	proof, err := a.Prover.Prove(r.Context(), prover.Request{
		DonorSecret: req.DonorSecret,
		CharityID:   req.CharityID,
		Amount:      units.Uint64(),
		Reveal:      lvl.RevealsAmount(),
	})
	if err != nil {
		if errors.Is(err, types.ErrMissingFields) {
			a.error(w, http.StatusBadRequest, msgMissingProofFields)
			return
		}
		a.fail(w, r, err)
		return
	}

	a.json(w, http.StatusOK, generateProofResponse{
		Backend:       proof.Backend,
		Proof:         proof.SnarkJS(),
		PublicSignals: proof.Signals().Strings(),
		ProofBytes:    hex.EncodeToString(proof.Bytes),
		Salt:          hex.EncodeToString(proof.Salt),
	})
}

type verifyProofRequest struct {
	ProofBytes    string   `json:"proofBytes" validate:"required"`
	PublicSignals []string `json:"publicSignals" validate:"required,min=1"`
}

type validResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func (a *App) VerifyProof(w http.ResponseWriter, r *http.Request) {
	var req verifyProofRequest
	if err := a.decode(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, err.Error())
		return
	}
	bz, err := hex.DecodeString(strings.TrimPrefix(req.ProofBytes, "0x"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "proofBytes is not hex")
		return
	}
	if err := a.Verifier.VerifySignals(bz, req.PublicSignals); err != nil {
		a.json(w, http.StatusOK, validResponse{Error: err.Error()})
		return
	}
	a.json(w, http.StatusOK, validResponse{Valid: true})
}

func (a *App) WalletBalances(w http.ResponseWriter, r *http.Request) {
	b, err := a.SDK.GetWalletBalances(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, b)
}

// levelQuery reads a privacy level without rejecting unknown names; those
// are priced at the default cost.
func levelQuery(r *http.Request) types.PrivacyLevel {
	q := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("privacyLevel")))
	if q == "" {
		return types.PRIVATE
	}
	return types.PrivacyLevel(q)
}

func (a *App) Estimate(w http.ResponseWriter, r *http.Request) {
	op := r.URL.Query().Get("operation")
	if op == "" {
		op = sdk.OpDonation
	}
	est, err := a.SDK.EstimateDustCost(r.Context(), op, levelQuery(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, est)
}

func (a *App) DashboardSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := a.Dashboard.Snapshot()
	if !ok {
		if err := a.Dashboard.Refresh(r.Context()); err != nil {
			a.fail(w, r, err)
			return
		}
		snap, _ = a.Dashboard.Snapshot()
	}
	a.json(w, http.StatusOK, snap)
}

type privacyLevelRequest struct {
	PrivacyLevel types.PrivacyLevel `json:"privacyLevel" validate:"required"`
}

func (a *App) SetPrivacyLevel(w http.ResponseWriter, r *http.Request) {
	var req privacyLevelRequest
	if err := a.decode(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, err.Error())
		return
	}
	a.Dashboard.SetPrivacyLevel(req.PrivacyLevel)
	a.json(w, http.StatusOK, req)
}

type donationRequest struct {
	types.DonationDetails
	PrivacyLevel types.PrivacyLevel `json:"privacyLevel"`
}

// CreateDonation runs the dust-aware flow when a privacy level is given and
// the plain PRIVATE flow otherwise.
func (a *App) CreateDonation(w http.ResponseWriter, r *http.Request) {
	var req donationRequest
	if err := a.decode(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		res *types.DonationResult
		err error
	)
	if req.PrivacyLevel == "" {
		rid := RequestIDFromContext(r.Context())
		res, err = a.SDK.MakeDonation(r.Context(), req.DonationDetails, func(msg string) {
			a.log.Debug().Str("requestId", rid).Msg(msg)
		})
	} else {
		res, err = a.SDK.MakeDustAwareDonation(r.Context(), req.CharityID, req.Amount, req.DonorSecret, req.PrivacyLevel)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, res)
}

func (a *App) ListDonations(w http.ResponseWriter, r *http.Request) {
	history, err := a.SDK.History()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if history == nil {
		history = []*sdk.Donation{}
	}
	a.json(w, http.StatusOK, history)
}

func (a *App) TaxReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := a.SDK.TaxReceipt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, receipt)
}

func (a *App) VerifyTaxReceipt(w http.ResponseWriter, r *http.Request) {
	var receipt sdk.TaxReceipt
	if err := a.decode(r, &receipt); err != nil {
		a.error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.SDK.VerifyTaxReceipt(&receipt); err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			a.fail(w, r, err)
			return
		}
		a.json(w, http.StatusOK, validResponse{Error: err.Error()})
		return
	}
	a.json(w, http.StatusOK, validResponse{Valid: true})
}

func (a *App) ListCharities(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.Charities.List())
}

func (a *App) CharityReceived(w http.ResponseWriter, r *http.Request) {
	received, err := a.Charities.Received(a.Ledger, chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, received)
}

func (a *App) LedgerRoot(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"root":   hex.EncodeToString(a.Ledger.Root()),
		"leaves": a.Ledger.Len(),
	})
}
