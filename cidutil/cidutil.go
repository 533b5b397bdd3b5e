// Package cidutil derives content identifiers for canonical Ansybl document
// bytes.
package cidutil

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ContentCID hashes data with sha2-256 and wraps the digest in a CIDv1 under
// the "raw" multicodec. Callers supply canonical bytes; two equivalent
// documents share an identifier only when both are canonical.
func ContentCID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// ContentID is ContentCID rendered as a string, with the empty string
// standing in for the error case so report fields stay plain.
func ContentID(data []byte) string {
	c, err := ContentCID(data)
	if err != nil {
		return ""
	}
	return c.String()
}
