package charity

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/kysee/zkcharity/utils"
	"github.com/kysee/zkcharity/zk-charity/crypto"
	"github.com/kysee/zkcharity/zk-charity/node"
	"github.com/kysee/zkcharity/zk-charity/store"
	"github.com/kysee/zkcharity/zk-charity/types"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const bucketKeys = "charitykeys"

type Info struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var DefaultCharities = []Info{
	{ID: "charity_1", Name: "Red Cross"},
	{ID: "charity_2", Name: "Doctors Without Borders"},
}

// Charity is a registered recipient. Its key is held custodially and only
// used to decrypt the donation notes addressed to it.
type Charity struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`

	key *jubjub.PrivateKey
}

func (c *Charity) PublicKey() *jubjub.PublicKey {
	return &c.key.PublicKey
}

type Registry struct {
	mtx       sync.RWMutex
	charities map[string]*Charity
	order     []string
	keys      *store.Bucket
	log       zerolog.Logger
}

// NewRegistry registers infos, loading each charity key from db or creating
// and storing a new one.
func NewRegistry(db *store.DB, infos []Info, log zerolog.Logger) (*Registry, error) {
	r := &Registry{
		charities: make(map[string]*Charity),
		keys:      db.Bucket(bucketKeys),
		log:       log.With().Str("module", "charity").Logger(),
	}
	for _, info := range infos {
		if err := r.Register(info); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(info Info) error {
	if info.ID == "" {
		return fmt.Errorf("%w: charity id", types.ErrMissingFields)
	}
	key, err := r.loadKey(info.ID)
	if err != nil {
		return err
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()
	if _, ok := r.charities[info.ID]; !ok {
		r.order = append(r.order, info.ID)
	}
	r.charities[info.ID] = &Charity{
		ID:      info.ID,
		Name:    info.Name,
		Address: types.Pub2Addr(key.Public()),
		key:     key,
	}
	return nil
}

func (r *Registry) loadKey(id string) (*jubjub.PrivateKey, error) {
	bz, err := r.keys.Get([]byte(id))
	if err == nil {
		key := new(jubjub.PrivateKey)
		if _, err := key.SetBytes(bz); err != nil {
			return nil, fmt.Errorf("charity %s key: %w", id, err)
		}
		return key, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	key, err := crypto.NewKey()
	if err != nil {
		return nil, err
	}
	if err := r.keys.Put([]byte(id), key.Bytes()); err != nil {
		return nil, err
	}
	r.log.Info().Str("charity", id).Msg("generated charity key")
	return key, nil
}

func (r *Registry) Has(id string) bool {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	_, ok := r.charities[id]
	return ok
}

func (r *Registry) Lookup(id string) (*Charity, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	c, ok := r.charities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownCharity, id)
	}
	return c, nil
}

// List returns the charities in registration order.
func (r *Registry) List() []Charity {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	ret := make([]Charity, 0, len(r.order))
	for _, id := range r.order {
		c := r.charities[id]
		ret = append(ret, Charity{ID: c.ID, Name: c.Name, Address: c.Address})
	}
	return ret
}

type NoteSource interface {
	Notes(charityID string) ([]node.NoteRecord, error)
	Commitment(idx uint64) ([]byte, error)
}

type ReceivedDonation struct {
	TxID   string          `json:"txId"`
	Index  uint64          `json:"index"`
	Amount decimal.Decimal `json:"amount"`
	Donor  string          `json:"donor,omitempty"`
}

type Received struct {
	CharityID string             `json:"charityId"`
	Total     decimal.Decimal    `json:"total"`
	Donations []ReceivedDonation `json:"donations"`
}

// Received decrypts the notes addressed to a charity and totals them. Notes
// that do not open the commitment stored at their ledger index are skipped.
func (r *Registry) Received(src NoteSource, id string) (*Received, error) {
	c, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	records, err := src.Notes(id)
	if err != nil {
		return nil, err
	}

	ret := &Received{CharityID: id, Total: decimal.Zero, Donations: []ReceivedDonation{}}
	for _, rec := range records {
		note, err := types.OpenDonationNote(c.key, rec.Sealed)
		if err != nil {
			r.log.Warn().Err(err).Str("txId", rec.TxID).Msg("cannot open donation note")
			continue
		}
		leaf, err := src.Commitment(rec.Index)
		if err != nil {
			return nil, err
		}
		if cmt := note.Commitment(); !bytes.Equal(utils.ElementBytes(cmt), leaf) {
			r.log.Warn().Str("txId", rec.TxID).Msg("donation note does not match its commitment")
			continue
		}

		amount := types.FromBaseUnits(note.Amount)
		ret.Total = ret.Total.Add(amount)
		ret.Donations = append(ret.Donations, ReceivedDonation{
			TxID:   rec.TxID,
			Index:  rec.Index,
			Amount: amount,
			Donor:  note.Donor,
		})
	}
	return ret, nil
}
