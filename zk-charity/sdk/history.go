package sdk

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
	"github.com/kysee/zkcharity/zk-charity/types"
	"github.com/shopspring/decimal"
)

const bucketHistory = "history/"

// Donation is one entry of the donor's history. Tag and Salt open the
// commitment and never leave the donor's store except inside a tax receipt.
type Donation struct {
	DonationID   string             `cbor:"1,keyasint" json:"donationId"`
	CharityID    string             `cbor:"2,keyasint" json:"charityId"`
	Units        uint64             `cbor:"3,keyasint" json:"-"`
	PrivacyLevel types.PrivacyLevel `cbor:"4,keyasint" json:"privacyLevel"`
	DustConsumed int64              `cbor:"5,keyasint" json:"dustConsumed"`
	Timestamp    time.Time          `cbor:"6,keyasint" json:"timestamp"`
	Commitment   []byte             `cbor:"7,keyasint" json:"-"`
	Tag          []byte             `cbor:"8,keyasint" json:"-"`
	Salt         []byte             `cbor:"9,keyasint" json:"-"`
}

func (d *Donation) Amount() decimal.Decimal {
	return types.FromBaseUnits(uint256.NewInt(d.Units))
}

func (d *Donation) MarshalJSON() ([]byte, error) {
	type plain Donation
	return json.Marshal(struct {
		plain
		Amount     decimal.Decimal `json:"amount"`
		Commitment string          `json:"commitment"`
	}{
		plain:      plain(*d),
		Amount:     d.Amount(),
		Commitment: hex.EncodeToString(d.Commitment),
	})
}

var historyEnc cbor.EncMode

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	if historyEnc, err = opts.EncMode(); err != nil {
		panic(err)
	}
}

// keys sort by time so iteration yields the oldest donation first
func historyKey(d *Donation) []byte {
	key := binary.BigEndian.AppendUint64(nil, uint64(d.Timestamp.UnixNano()))
	return append(key, d.DonationID...)
}

func (c *Client) putHistory(d *Donation) error {
	bz, err := historyEnc.Marshal(d)
	if err != nil {
		return err
	}
	return c.history.Put(historyKey(d), bz)
}

// History returns the donations made through this client's wallet, oldest first.
func (c *Client) History() ([]*Donation, error) {
	ret := []*Donation{}
	err := c.history.Iterate(func(_, v []byte) error {
		d := new(Donation)
		if err := cbor.Unmarshal(v, d); err != nil {
			return fmt.Errorf("corrupted history entry: %w", err)
		}
		ret = append(ret, d)
		return nil
	})
	return ret, err
}

func (c *Client) Donation(donationID string) (*Donation, error) {
	var found *Donation
	errFound := errors.New("found")
	err := c.history.Iterate(func(_, v []byte) error {
		d := new(Donation)
		if err := cbor.Unmarshal(v, d); err != nil {
			return err
		}
		if d.DonationID == donationID {
			found = d
			return errFound
		}
		return nil
	})
	if err != nil && !errors.Is(err, errFound) {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: donation %s", types.ErrNotFound, donationID)
	}
	return found, nil
}
