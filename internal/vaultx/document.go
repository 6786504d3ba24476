package vaultx

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"
)

// Strength classes assigned to stored passwords.
const (
	StrengthWeak   = "weak"
	StrengthMedium = "medium"
	StrengthStrong = "strong"
)

// Entry is one stored secret. Pending is local bookkeeping and is never
// encrypted.
type Entry struct {
	ID           string    `cbor:"id" json:"id"`
	Name         string    `cbor:"name" json:"name"`
	Username     string    `cbor:"username" json:"username"`
	Password     string    `cbor:"password" json:"password"`
	Website      string    `cbor:"website,omitempty" json:"website,omitempty"`
	Category     string    `cbor:"category,omitempty" json:"category,omitempty"`
	Notes        string    `cbor:"notes,omitempty" json:"notes,omitempty"`
	Favorite     bool      `cbor:"favorite" json:"favorite"`
	LastModified time.Time `cbor:"last_modified" json:"last_modified"`
	Strength     string    `cbor:"strength,omitempty" json:"strength,omitempty"`

	Pending bool `cbor:"-" json:"-"`
}

type Transaction struct {
	From   string `cbor:"from" json:"from"`
	To     string `cbor:"to" json:"to"`
	Amount int64  `cbor:"amount" json:"amount"`
}

// Wallet is an optional section kept alongside the entries.
type Wallet struct {
	Balance   int64         `cbor:"balance" json:"balance"`
	TxHistory []Transaction `cbor:"tx_history,omitempty" json:"tx_history,omitempty"`
}

// Document is the unit of encryption: every write re-encrypts all of it.
type Document struct {
	Entries []Entry `cbor:"entries" json:"entries"`
	Wallet  *Wallet `cbor:"wallet,omitempty" json:"wallet,omitempty"`
}

// ErrInvalidText is returned for string fields that are not valid UTF-8.
// Such documents could be sealed but never decoded again.
var ErrInvalidText = errors.New("text is not valid UTF-8")

// Validate checks that every string field is valid UTF-8.
func (e *Entry) Validate() error {
	fields := []struct{ name, value string }{
		{"id", e.ID},
		{"name", e.Name},
		{"username", e.Username},
		{"password", e.Password},
		{"website", e.Website},
		{"category", e.Category},
		{"notes", e.Notes},
		{"strength", e.Strength},
	}
	for _, f := range fields {
		if !utf8.ValidString(f.value) {
			return fmt.Errorf("%w: %s", ErrInvalidText, f.name)
		}
	}
	return nil
}

func (d *Document) Validate() error {
	for i := range d.Entries {
		if err := d.Entries[i].Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	if d.Wallet != nil {
		for i, tx := range d.Wallet.TxHistory {
			if !utf8.ValidString(tx.From) || !utf8.ValidString(tx.To) {
				return fmt.Errorf("transaction %d: %w", i, ErrInvalidText)
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	if d == nil {
		return &Document{}
	}
	out := &Document{Entries: make([]Entry, len(d.Entries))}
	copy(out.Entries, d.Entries)
	if d.Wallet != nil {
		w := *d.Wallet
		w.TxHistory = append([]Transaction(nil), d.Wallet.TxHistory...)
		out.Wallet = &w
	}
	return out
}

// Find returns the index of the entry with id, or -1.
func (d *Document) Find(id string) int {
	for i := range d.Entries {
		if d.Entries[i].ID == id {
			return i
		}
	}
	return -1
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano

	var err error
	if encMode, err = opts.EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}).DecMode(); err != nil {
		panic(err)
	}
}

// Encode returns the canonical byte form of the document. Equal documents
// encode to equal bytes.
func Encode(d *Document) ([]byte, error) {
	if d == nil {
		d = &Document{}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	norm := Document{Entries: make([]Entry, len(d.Entries)), Wallet: d.Wallet}
	for i, e := range d.Entries {
		e.LastModified = e.LastModified.UTC()
		norm.Entries[i] = e
	}
	return encMode.Marshal(&norm)
}

func Decode(b []byte) (*Document, error) {
	var d Document
	if err := decMode.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	if d.Entries == nil {
		d.Entries = []Entry{}
	}
	return &d, nil
}
