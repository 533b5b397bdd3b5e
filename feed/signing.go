package feed

import (
	"errors"
	"time"

	"github.com/ansybl/ansybl-go/canonical"
	"github.com/ansybl/ansybl-go/sign"
)

// SignItem computes the item's detached signature over its canonical signing
// payload and stores it on the item. Any later field mutation invalidates the
// signature and requires re-signing.
func SignItem(item *Item, privateKey string) error {
	if item == nil {
		return errors.New("feed: nil item")
	}
	payload, err := canonical.SignatureData(item.ToMap(), canonical.KindItem)
	if err != nil {
		return err
	}
	sig, err := sign.SignPayload([]byte(payload), privateKey)
	if err != nil {
		return err
	}
	item.Signature = sig
	return nil
}

// SignFeed stamps date_signed, computes the feed's detached signature over
// its canonical signing payload, and stores it. The signing timestamp is a
// signed field, so verifiers reconstruct the exact payload later.
func SignFeed(f *Feed, privateKey string, signedAt time.Time) error {
	if f == nil {
		return errors.New("feed: nil feed")
	}
	f.DateSigned = signedAt.UTC().Format(time.RFC3339)
	f.Signature = ""
	payload, err := canonical.SignatureData(f.ToMap(), canonical.KindFeed)
	if err != nil {
		return err
	}
	sig, err := sign.SignPayload([]byte(payload), privateKey)
	if err != nil {
		return err
	}
	f.Signature = sig
	return nil
}
